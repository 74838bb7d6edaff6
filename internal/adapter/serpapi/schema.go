package serpapi

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kaptinlin/jsonschema"

	"universal-mcp-serpapi/internal/domain"
)

// Response shapes the mapper relies on. Only the containers are pinned down;
// individual fields stay loose because the vendor adds and drops them freely.
const (
	webResponseSchema = `{
  "type": "object",
  "properties": {
    "search_metadata": {"type": "object"},
    "search_information": {"type": "object"},
    "organic_results": {"type": "array", "items": {"type": "object"}},
    "error": {"type": "string"}
  }
}`

	mapsResponseSchema = `{
  "type": "object",
  "properties": {
    "search_metadata": {"type": "object"},
    "local_results": {"type": "array", "items": {"type": "object"}},
    "place_results": {"type": "object"},
    "error": {"type": "string"}
  }
}`

	reviewsResponseSchema = `{
  "type": "object",
  "properties": {
    "search_metadata": {"type": "object"},
    "place_info": {"type": "object"},
    "reviews": {"type": "array", "items": {"type": "object"}},
    "serpapi_pagination": {"type": "object"},
    "error": {"type": "string"}
  }
}`

	accountResponseSchema = `{
  "type": "object",
  "properties": {
    "plan_searches_left": {"type": "number"},
    "searches_per_month": {"type": "number"},
    "error": {"type": "string"}
  }
}`
)

// shapeValidator validates decoded responses per engine.
type shapeValidator struct {
	schemas map[string]*jsonschema.Schema
}

// accountEngine keys the account endpoint's schema; it is not a real engine.
const accountEngine = "account"

func newShapeValidator() (*shapeValidator, error) {
	sources := map[string]string{
		domain.EngineGoogle:            webResponseSchema,
		domain.EngineGoogleLight:       webResponseSchema,
		domain.EngineBing:              webResponseSchema,
		domain.EngineDuckDuckGo:        webResponseSchema,
		domain.EngineGoogleMaps:        mapsResponseSchema,
		domain.EngineGoogleMapsReviews: reviewsResponseSchema,
		accountEngine:                  accountResponseSchema,
	}

	v := &shapeValidator{schemas: make(map[string]*jsonschema.Schema, len(sources))}
	compiler := jsonschema.NewCompiler()
	for engine, src := range sources {
		schema, err := compiler.Compile([]byte(src))
		if err != nil {
			return nil, fmt.Errorf("compile %s response schema: %w", engine, err)
		}
		v.schemas[engine] = schema
	}
	return v, nil
}

// validate checks data against the engine's schema. Engines without a
// schema pass.
func (v *shapeValidator) validate(engine string, data any) error {
	schema, ok := v.schemas[engine]
	if !ok {
		return nil
	}
	result := schema.Validate(data)
	if !result.IsValid() {
		return fmt.Errorf("unexpected %s response shape: %s", engine, describeShape(result))
	}
	return nil
}

// describeShape lists the failed keywords as "location: message", sorted so
// the text is stable.
func describeShape(result *jsonschema.EvaluationResult) string {
	detailed := result.DetailedErrors()
	if len(detailed) == 0 {
		return result.Error()
	}
	msgs := make([]string, 0, len(detailed))
	for loc, msg := range detailed {
		if loc == "" {
			loc = "/"
		}
		msgs = append(msgs, loc+": "+msg)
	}
	sort.Strings(msgs)
	return strings.Join(msgs, "; ")
}
