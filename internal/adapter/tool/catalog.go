package tool

import (
	"fmt"
	"log/slog"

	"universal-mcp-serpapi/internal/domain"
	"universal-mcp-serpapi/internal/infra/config"
	"universal-mcp-serpapi/internal/infra/metrics"
)

// SearchTools returns the search tools backed by provider, in their
// canonical order. A non-empty cfg.Enabled keeps only the named tools.
func SearchTools(provider domain.SearchProvider, cfg config.ToolsConfig, defaultEngine string, logger *slog.Logger) []domain.Tool {
	all := []domain.Tool{
		NewSearchTool(provider, defaultEngine, cfg.DefaultFormat, logger),
		NewMapsSearchTool(provider, cfg.DefaultFormat, logger),
		NewMapsReviewsTool(provider, cfg.DefaultFormat, logger),
	}
	if len(cfg.Enabled) == 0 {
		return all
	}

	enabled := make(map[string]bool, len(cfg.Enabled))
	for _, name := range cfg.Enabled {
		enabled[name] = true
	}
	var out []domain.Tool
	for _, t := range all {
		if enabled[t.Name()] {
			out = append(out, t)
		}
	}
	return out
}

// NewSearchRegistry builds a Registry holding the enabled search tools.
// m may be nil.
func NewSearchRegistry(provider domain.SearchProvider, cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (*Registry, error) {
	reg := NewRegistry(logger,
		ValidateArguments(cfg.Tools.SchemaValidation),
		RecordMetrics(m),
	)
	for _, t := range SearchTools(provider, cfg.Tools, cfg.SerpAPI.DefaultEngine, logger) {
		if err := reg.Register(t); err != nil {
			return nil, fmt.Errorf("register %s: %w", t.Name(), err)
		}
	}
	return reg, nil
}
