package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"universal-mcp-serpapi/internal/domain"
	"universal-mcp-serpapi/internal/infra/tracer"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// NewCallID returns a time-ordered ID for correlating one tool call across
// logs and traces.
func NewCallID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Execute is the standard tool execution pipeline: parse params -> start trace -> run handler -> format result.
//
// The handler receives the parsed params and an active trace span. It should return:
//   - (*domain.ToolResult, nil): returned as-is
//   - (string, nil): wrapped in a plain-text ToolResult
//   - (any other value, nil): JSON-marshaled; the value is also kept as structured content
//   - (nil, error): turned into an error ToolResult whose text starts with the error code
func Execute[P any](
	ctx context.Context,
	toolName string,
	logger *slog.Logger,
	rawParams json.RawMessage,
	handler func(ctx context.Context, span trace.Span, params P) (any, error),
) (*domain.ToolResult, error) {
	callID := NewCallID()
	ctx, span := tracer.StartSpan(ctx, "tool."+toolName,
		trace.WithAttributes(
			tracer.StringAttr("tool.name", toolName),
			tracer.StringAttr("tool.call_id", callID),
		),
	)
	defer span.End()

	log := logger.With("tool", toolName, "call_id", callID)
	start := time.Now()

	p, bad := ParseParams[P](rawParams)
	if bad != nil {
		tracer.RecordError(span, errors.New(bad.Content))
		log.Debug("tool call rejected", "reason", bad.Content)
		return bad, nil
	}

	result, err := handler(ctx, span, p)
	if err != nil {
		tracer.RecordError(span, err)
		res := errorResult(err)
		log.Warn("tool call failed",
			"code", res.Code,
			"retryable", res.IsRetryable,
			"duration", time.Since(start),
			"error", err,
		)
		return res, nil
	}

	res := formatResult(span, result)
	log.Debug("tool call completed", "duration", time.Since(start), "is_error", res.IsError)
	return res, nil
}

// errorResult converts a handler error into an error ToolResult. The content
// leads with the machine-readable code so that callers can branch on it.
func errorResult(err error) *domain.ToolResult {
	code := domain.ErrorCodeOf(err)
	retryable := classifyToolError(err)
	content := fmt.Sprintf("%s: %v", code, err)
	if retryable {
		content += " (transient error, may succeed on retry)"
	}
	return &domain.ToolResult{IsError: true, IsRetryable: retryable, Code: code, Content: content}
}

// formatResult converts the handler's return value into a ToolResult.
func formatResult(span trace.Span, result any) *domain.ToolResult {
	switch v := result.(type) {
	case *domain.ToolResult:
		if v.IsError {
			tracer.RecordError(span, errors.New(v.Content))
		} else {
			tracer.SetOK(span)
		}
		return v
	case string:
		tracer.SetOK(span)
		return TextResult(v)
	default:
		res, err := JSONResult(result)
		if err != nil {
			tracer.RecordError(span, err)
			return errorResult(fmt.Errorf("format response: %w", err))
		}
		tracer.SetOK(span)
		return res
	}
}

// ParseParams unmarshals rawParams into P. Absent params decode as "{}".
// On failure it returns an INVALID_INPUT ToolResult suitable for returning directly.
func ParseParams[P any](rawParams json.RawMessage) (P, *domain.ToolResult) {
	var p P
	if len(rawParams) == 0 || string(rawParams) == "null" {
		rawParams = json.RawMessage(`{}`)
	}
	if err := json.Unmarshal(rawParams, &p); err != nil {
		return p, InvalidInput("invalid params: %v", err)
	}
	return p, nil
}

// InvalidInput creates an INVALID_INPUT error ToolResult. Use this for
// argument problems that should be reported without being logged as failures.
func InvalidInput(format string, args ...any) *domain.ToolResult {
	return &domain.ToolResult{
		IsError: true,
		Code:    domain.CodeInvalidInput,
		Content: string(domain.CodeInvalidInput) + ": " + fmt.Sprintf(format, args...),
	}
}

// JSONResult marshals v as indented JSON into a success ToolResult that also
// carries v as structured content.
func JSONResult(v any) (*domain.ToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return &domain.ToolResult{Content: string(data), Structured: v}, nil
}

// TextResult creates a plain text success ToolResult.
func TextResult(s string) *domain.ToolResult {
	return &domain.ToolResult{Content: s}
}
