package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"universal-mcp-serpapi/internal/domain"
	"universal-mcp-serpapi/internal/infra/tracer"
)

// MapsSearchTool searches Google Maps for places.
type MapsSearchTool struct {
	provider      domain.SearchProvider
	defaultFormat string
	logger        *slog.Logger
}

// NewMapsSearchTool creates the places search tool.
func NewMapsSearchTool(provider domain.SearchProvider, defaultFormat string, logger *slog.Logger) *MapsSearchTool {
	if defaultFormat == "" {
		defaultFormat = FormatJSON
	}
	return &MapsSearchTool{provider: provider, defaultFormat: defaultFormat, logger: logger}
}

func (t *MapsSearchTool) Name() string { return "google_maps_search" }
func (t *MapsSearchTool) Description() string {
	return "Search Google Maps for places matching a query. Returns name, address, rating, " +
		"contact details and the place_id/data_id needed to fetch reviews."
}

func (t *MapsSearchTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Title:       "Google Maps search",
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "minLength": 1, "maxLength": 2048, "description": "What to look for, e.g. \"coffee near Austin\""},
				"ll": {"type": "string", "description": "Map position as @latitude,longitude,zoom (e.g. @40.7455096,-74.0083012,14z)"},
				"language": {"type": "string", "description": "Two-letter language code (hl)"},
				"country": {"type": "string", "description": "Two-letter country code (gl)"},
				"start": {"type": "integer", "minimum": 0, "description": "Result offset for pagination (multiples of 20)"},
				"params": {"type": "object", "additionalProperties": {"type": "string"}, "description": "Extra SerpApi parameters"},
				"format": {"type": "string", "enum": ["json", "text"], "description": "Output format (default: json)"}
			},
			"required": ["query"],
			"additionalProperties": false
		}`),
	}
}

type mapsSearchParams struct {
	Query    string            `json:"query"`
	LL       string            `json:"ll,omitempty"`
	Language string            `json:"language,omitempty"`
	Country  string            `json:"country,omitempty"`
	Start    int               `json:"start,omitempty"`
	Params   map[string]string `json:"params,omitempty"`
	Format   string            `json:"format,omitempty"`
}

func (t *MapsSearchTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, t.Name(), t.logger, params,
		func(ctx context.Context, span trace.Span, p mapsSearchParams) (any, error) {
			if err := ValidateAll(
				RequireField("query", p.Query),
				ValidateMaxLength("query", p.Query, maxQueryLength),
				validateLL(p.LL),
				ValidateNonNegative("start", p.Start),
				ValidateEnum("format", p.Format, Formats...),
				ValidateExtraParams(p.Params),
			); err != nil {
				return InvalidInput("%v", err), nil
			}
			format := p.Format
			if format == "" {
				format = t.defaultFormat
			}
			span.SetAttributes(tracer.BoolAttr("maps.has_ll", p.LL != ""))

			res, err := t.provider.MapsSearch(ctx, domain.MapsSearchRequest{
				Query:    p.Query,
				LL:       p.LL,
				Language: p.Language,
				Country:  p.Country,
				Start:    p.Start,
				Params:   p.Params,
			})
			if err != nil {
				return nil, err
			}
			span.SetAttributes(tracer.IntAttr("maps.places", len(res.Places)))

			return render(format, res, func() string { return FormatPlacesText(res) }), nil
		})
}

// validateLL checks the "@lat,lng,zoom" shape loosely; the vendor owns the
// exact grammar.
func validateLL(ll string) error {
	if ll == "" {
		return nil
	}
	if !strings.HasPrefix(ll, "@") || strings.Count(ll, ",") != 2 {
		return fmt.Errorf("ll must look like @latitude,longitude,zoom")
	}
	return nil
}

var _ domain.Tool = (*MapsSearchTool)(nil)
