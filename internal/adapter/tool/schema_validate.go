package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"universal-mcp-serpapi/internal/domain"
	"universal-mcp-serpapi/internal/infra/metrics"
)

// SchemaValidatingTool wraps a Tool with JSON Schema validation.
// On Execute, it validates params against the compiled schema before delegating.
type SchemaValidatingTool struct {
	inner  domain.Tool
	schema *jsonschema.Schema
}

// ValidateWithSchema wraps a tool so that Execute validates params against
// the tool's JSON Schema before forwarding to the inner tool.
// Returns error if the schema fails to compile.
func ValidateWithSchema(t domain.Tool) (domain.Tool, error) {
	raw := t.Schema().Parameters
	if len(raw) == 0 || string(raw) == "null" {
		return t, nil
	}

	url := t.Name() + ".schema.json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema resource for %q: %w", t.Name(), err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema for %q: %w", t.Name(), err)
	}

	return &SchemaValidatingTool{inner: t, schema: compiled}, nil
}

func (s *SchemaValidatingTool) Name() string              { return s.inner.Name() }
func (s *SchemaValidatingTool) Description() string       { return s.inner.Description() }
func (s *SchemaValidatingTool) Schema() domain.ToolSchema { return s.inner.Schema() }

func (s *SchemaValidatingTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	if len(params) == 0 || string(params) == "null" {
		params = json.RawMessage(`{}`)
	}

	var v any
	if err := json.Unmarshal(params, &v); err != nil {
		return InvalidInput("invalid JSON: %v", err), nil
	}
	if err := s.schema.Validate(v); err != nil {
		return InvalidInput("invalid arguments: %s", describeValidation(err)), nil
	}

	return s.inner.Execute(ctx, params)
}

// describeValidation flattens a schema validation error into one line,
// listing the innermost causes.
func describeValidation(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	var msgs []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			msgs = append(msgs, loc+": "+e.Message)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return strings.Join(msgs, "; ")
}

// instrumentedTool counts calls and their outcome.
type instrumentedTool struct {
	domain.Tool
	metrics *metrics.Metrics
}

func (t *instrumentedTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	start := time.Now()
	res, err := t.Tool.Execute(ctx, params)

	status := "ok"
	switch {
	case err != nil:
		status = string(domain.ErrorCodeOf(err))
	case res != nil && res.IsError:
		status = string(res.Code)
		if status == "" {
			status = string(domain.CodeUnknown)
		}
	}
	t.metrics.RecordToolCall(t.Name(), status, time.Since(start))
	return res, err
}
