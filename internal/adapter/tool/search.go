package tool

import (
	"context"
	"encoding/json"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"universal-mcp-serpapi/internal/domain"
	"universal-mcp-serpapi/internal/infra/tracer"
)

const (
	maxQueryLength = 2048
	maxNum         = 100
)

// SearchTool runs a web search and returns its organic results.
type SearchTool struct {
	provider      domain.SearchProvider
	defaultEngine string
	defaultFormat string
	logger        *slog.Logger
}

// NewSearchTool creates the web search tool. Empty defaults fall back to
// google_light and json.
func NewSearchTool(provider domain.SearchProvider, defaultEngine, defaultFormat string, logger *slog.Logger) *SearchTool {
	if defaultEngine == "" {
		defaultEngine = domain.EngineGoogleLight
	}
	if defaultFormat == "" {
		defaultFormat = FormatJSON
	}
	return &SearchTool{
		provider:      provider,
		defaultEngine: defaultEngine,
		defaultFormat: defaultFormat,
		logger:        logger,
	}
}

func (t *SearchTool) Name() string { return "search" }
func (t *SearchTool) Description() string {
	return "Search the web through SerpApi and return the organic results (title, link, snippet). " +
		"Uses the google_light engine unless another web engine is chosen."
}

func (t *SearchTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Title:       "Web search",
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "minLength": 1, "maxLength": 2048, "description": "The search query"},
				"engine": {"type": "string", "enum": ["google", "google_light", "bing", "duckduckgo"], "description": "Search engine (default: google_light)"},
				"location": {"type": "string", "description": "Location to search from, e.g. \"Austin, Texas\""},
				"country": {"type": "string", "description": "Two-letter country code (gl)"},
				"language": {"type": "string", "description": "Two-letter language code (hl)"},
				"num": {"type": "integer", "minimum": 1, "maximum": 100, "description": "Number of results"},
				"start": {"type": "integer", "minimum": 0, "description": "Result offset for pagination"},
				"safe": {"type": "string", "enum": ["active", "off"], "description": "Safe search filter"},
				"params": {"type": "object", "additionalProperties": {"type": "string"}, "description": "Extra engine-specific SerpApi parameters"},
				"format": {"type": "string", "enum": ["json", "text"], "description": "Output format (default: json)"}
			},
			"required": ["query"],
			"additionalProperties": false
		}`),
	}
}

type searchParams struct {
	Query    string            `json:"query"`
	Engine   string            `json:"engine,omitempty"`
	Location string            `json:"location,omitempty"`
	Country  string            `json:"country,omitempty"`
	Language string            `json:"language,omitempty"`
	Num      int               `json:"num,omitempty"`
	Start    int               `json:"start,omitempty"`
	Safe     string            `json:"safe,omitempty"`
	Params   map[string]string `json:"params,omitempty"`
	Format   string            `json:"format,omitempty"`
}

func (t *SearchTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, t.Name(), t.logger, params,
		func(ctx context.Context, span trace.Span, p searchParams) (any, error) {
			if err := ValidateAll(
				RequireField("query", p.Query),
				ValidateMaxLength("query", p.Query, maxQueryLength),
				ValidateEnum("engine", p.Engine, domain.WebEngines...),
				ValidateOptionalRange("num", p.Num, 1, maxNum),
				ValidateNonNegative("start", p.Start),
				ValidateEnum("safe", p.Safe, "active", "off"),
				ValidateEnum("format", p.Format, Formats...),
				ValidateExtraParams(p.Params),
			); err != nil {
				return InvalidInput("%v", err), nil
			}

			engine := p.Engine
			if engine == "" {
				engine = t.defaultEngine
			}
			format := p.Format
			if format == "" {
				format = t.defaultFormat
			}
			span.SetAttributes(
				tracer.StringAttr("search.engine", engine),
				tracer.IntAttr("search.query_length", len(p.Query)),
			)

			res, err := t.provider.Search(ctx, domain.SearchRequest{
				Query:      p.Query,
				Engine:     engine,
				Location:   p.Location,
				Country:    p.Country,
				Language:   p.Language,
				Num:        p.Num,
				Start:      p.Start,
				SafeSearch: p.Safe,
				Params:     p.Params,
			})
			if err != nil {
				return nil, err
			}
			span.SetAttributes(tracer.IntAttr("search.results", len(res.Results)))

			return render(format, res, func() string { return FormatSearchText(res) }), nil
		})
}

var _ domain.Tool = (*SearchTool)(nil)
