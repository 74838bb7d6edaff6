package tool

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"universal-mcp-serpapi/internal/domain"
	"universal-mcp-serpapi/internal/infra/tracer"
)

// maxReviewsPerPage is the vendor's page size ceiling for follow-up pages.
const maxReviewsPerPage = 20

// MapsReviewsTool fetches one page of Google Maps reviews for a place.
type MapsReviewsTool struct {
	provider      domain.SearchProvider
	defaultFormat string
	logger        *slog.Logger
}

// NewMapsReviewsTool creates the place reviews tool.
func NewMapsReviewsTool(provider domain.SearchProvider, defaultFormat string, logger *slog.Logger) *MapsReviewsTool {
	if defaultFormat == "" {
		defaultFormat = FormatJSON
	}
	return &MapsReviewsTool{provider: provider, defaultFormat: defaultFormat, logger: logger}
}

func (t *MapsReviewsTool) Name() string { return "get_google_maps_reviews" }
func (t *MapsReviewsTool) Description() string {
	return "Fetch Google Maps reviews for one place, identified by place_id or data_id " +
		"(as returned by google_maps_search). Pass next_page_token to page through results."
}

func (t *MapsReviewsTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Title:       "Google Maps reviews",
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"place_id": {"type": "string", "description": "Google place ID"},
				"data_id": {"type": "string", "description": "Google Maps data ID"},
				"language": {"type": "string", "description": "Two-letter language code (hl)"},
				"sort_by": {"type": "string", "enum": ["qualityScore", "newestFirst", "ratingHigh", "ratingLow"], "description": "Review ordering"},
				"next_page_token": {"type": "string", "description": "Token from a previous page"},
				"num": {"type": "integer", "minimum": 1, "maximum": 20, "description": "Reviews per page; only honored together with next_page_token"},
				"format": {"type": "string", "enum": ["json", "text"], "description": "Output format (default: json)"}
			},
			"additionalProperties": false
		}`),
	}
}

type mapsReviewsParams struct {
	PlaceID       string `json:"place_id,omitempty"`
	DataID        string `json:"data_id,omitempty"`
	Language      string `json:"language,omitempty"`
	SortBy        string `json:"sort_by,omitempty"`
	NextPageToken string `json:"next_page_token,omitempty"`
	Num           int    `json:"num,omitempty"`
	Format        string `json:"format,omitempty"`
}

func (t *MapsReviewsTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, t.Name(), t.logger, params,
		func(ctx context.Context, span trace.Span, p mapsReviewsParams) (any, error) {
			if err := ValidateAll(
				ExactlyOne("place_id", p.PlaceID, "data_id", p.DataID),
				ValidateEnum("sort_by", p.SortBy, domain.ReviewSortOrders...),
				ValidateOptionalRange("num", p.Num, 1, maxReviewsPerPage),
				ValidateEnum("format", p.Format, Formats...),
			); err != nil {
				return InvalidInput("%v", err), nil
			}
			format := p.Format
			if format == "" {
				format = t.defaultFormat
			}
			span.SetAttributes(tracer.BoolAttr("reviews.paged", p.NextPageToken != ""))

			res, err := t.provider.MapsReviews(ctx, domain.ReviewsRequest{
				PlaceID:       strings.TrimSpace(p.PlaceID),
				DataID:        strings.TrimSpace(p.DataID),
				Language:      p.Language,
				SortBy:        p.SortBy,
				NextPageToken: p.NextPageToken,
				Num:           p.Num,
			})
			if err != nil {
				return nil, err
			}
			span.SetAttributes(tracer.IntAttr("reviews.count", len(res.Reviews)))

			return render(format, res, func() string { return FormatReviewsText(res) }), nil
		})
}

var _ domain.Tool = (*MapsReviewsTool)(nil)
