package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"universal-mcp-serpapi/internal/domain"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// KnownTools lists the tool names that tools.enabled may reference.
var KnownTools = []string{"search", "google_maps_search", "get_google_maps_reviews"}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
//
// A missing SerpApi key is not a validation error: the server still starts
// and lists its tools, and each call reports the authentication failure.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateServer(cfg, ve)
	validateSerpAPI(cfg, ve)
	validateTools(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	validateMetrics(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateServer(cfg *Config, ve *ValidationError) {
	s := cfg.Server
	if s.Name == "" {
		ve.Add("server.name must not be empty")
	}
	switch s.Transport {
	case "stdio":
		// stdout carries the protocol stream.
		if cfg.Logger.Output == "stdout" {
			ve.Add("logger.output must not be \"stdout\" with the stdio transport")
		}
	case "http":
		if _, _, err := net.SplitHostPort(s.Addr); err != nil {
			ve.Add("server.addr %q is not a valid host:port: %v", s.Addr, err)
		}
		if !strings.HasPrefix(s.EndpointPath, "/") {
			ve.Add("server.endpoint_path must start with \"/\"")
		}
		if s.RequestsPerMin < 0 {
			ve.Add("server.requests_per_min must be >= 0")
		}
		if s.RequestsPerMin > 0 && s.BurstSize <= 0 {
			ve.Add("server.burst_size must be > 0 when rate limiting is enabled")
		}
		if s.ShutdownTimeout <= 0 {
			ve.Add("server.shutdown_timeout must be > 0")
		}
		for i, tok := range s.AuthTokens {
			if strings.TrimSpace(tok) == "" {
				ve.Add("server.auth_tokens[%d] must not be empty", i)
			}
		}
		for _, p := range s.TrustedProxies {
			if _, _, err := net.ParseCIDR(p); err != nil && net.ParseIP(p) == nil {
				ve.Add("server.trusted_proxies: %q is neither an IP nor a CIDR", p)
			}
		}
	default:
		ve.Add("server.transport %q is invalid (valid: stdio, http)", s.Transport)
	}
}

func validateSerpAPI(cfg *Config, ve *ValidationError) {
	s := cfg.SerpAPI
	u, err := url.Parse(s.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		ve.Add("serpapi.base_url %q must be an absolute http(s) URL", s.BaseURL)
	}
	if !domain.IsWebEngine(s.DefaultEngine) {
		ve.Add("serpapi.default_engine %q is invalid (valid: %s)", s.DefaultEngine, strings.Join(domain.WebEngines, ", "))
	}
	if s.Timeout <= 0 {
		ve.Add("serpapi.timeout must be > 0")
	}
	if s.RequestsPerMinute < 0 {
		ve.Add("serpapi.requests_per_minute must be >= 0")
	}
	if s.Breaker.Enabled {
		if s.Breaker.MaxFailures == 0 {
			ve.Add("serpapi.breaker.max_failures must be > 0 when the breaker is enabled")
		}
		if s.Breaker.Timeout <= 0 {
			ve.Add("serpapi.breaker.timeout must be > 0 when the breaker is enabled")
		}
		if s.Breaker.Interval <= 0 {
			ve.Add("serpapi.breaker.interval must be > 0 when the breaker is enabled")
		}
	}
}

func validateTools(cfg *Config, ve *ValidationError) {
	switch cfg.Tools.DefaultFormat {
	case "json", "text":
	default:
		ve.Add("tools.default_format %q is invalid (valid: json, text)", cfg.Tools.DefaultFormat)
	}
	for _, name := range cfg.Tools.Enabled {
		if !isKnownTool(name) {
			ve.Add("tools.enabled: unknown tool %q (valid: %s)", name, strings.Join(KnownTools, ", "))
		}
	}
}

func isKnownTool(name string) bool {
	for _, k := range KnownTools {
		if k == name {
			return true
		}
	}
	return false
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}

func validateLogger(cfg *Config, ve *ValidationError) {
	if !validLogLevels[strings.ToLower(cfg.Logger.Level)] {
		ve.Add("logger.level %q is invalid (valid: debug, info, warn, error)", cfg.Logger.Level)
	}
	switch cfg.Logger.Format {
	case "json", "text":
	default:
		ve.Add("logger.format %q is invalid (valid: json, text)", cfg.Logger.Format)
	}
	if cfg.Logger.Output == "" {
		ve.Add("logger.output must not be empty")
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	switch cfg.Tracer.Exporter {
	case "", "noop", "stdout":
	default:
		ve.Add("tracer.exporter %q is invalid (valid: noop, stdout)", cfg.Tracer.Exporter)
	}
	if cfg.Tracer.Enabled && cfg.Tracer.Exporter == "stdout" && cfg.Server.Transport == "stdio" {
		ve.Add("tracer.exporter \"stdout\" cannot be used with the stdio transport")
	}
}

func validateMetrics(cfg *Config, ve *ValidationError) {
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		ve.Add("metrics.path must start with \"/\"")
	}
	if cfg.Metrics.Enabled && cfg.Server.Transport == "http" && cfg.Metrics.Path == cfg.Server.EndpointPath {
		ve.Add("metrics.path must differ from server.endpoint_path")
	}
}
