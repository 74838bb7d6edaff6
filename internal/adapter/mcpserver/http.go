package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/server"

	"universal-mcp-serpapi/internal/infra/metrics"
	"universal-mcp-serpapi/internal/infra/middleware"
)

// UpstreamStatus reports the state of the search backend for /healthz.
type UpstreamStatus interface {
	Name() string
	HasAPIKey() bool
	BreakerState() string
}

// HTTPConfig configures the streamable HTTP transport.
type HTTPConfig struct {
	Addr            string
	EndpointPath    string
	MetricsPath     string // empty disables /metrics
	AuthTokens      []string
	RateLimit       middleware.RateLimitConfig
	ShutdownTimeout time.Duration
	Version         string
}

// HTTPServer serves MCP over streamable HTTP behind a chi router.
type HTTPServer struct {
	mcp      *Server
	cfg      HTTPConfig
	metrics  *metrics.Metrics
	upstream UpstreamStatus
	logger   *slog.Logger

	httpSrv   *http.Server
	boundAddr string
	started   time.Time
}

// NewHTTPServer creates the HTTP transport for s. m and upstream may be nil.
func NewHTTPServer(s *Server, cfg HTTPConfig, m *metrics.Metrics, upstream UpstreamStatus, logger *slog.Logger) *HTTPServer {
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	return &HTTPServer{
		mcp:      s,
		cfg:      cfg,
		metrics:  m,
		upstream: upstream,
		logger:   logger,
		started:  time.Now(),
	}
}

// Handler builds the router. ctx bounds the rate limiter's cleanup goroutine.
func (h *HTTPServer) Handler(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)
	if h.metrics != nil {
		r.Use(middleware.CountRequests(h.metrics))
	}
	r.Use(middleware.RateLimit(ctx, h.cfg.RateLimit))

	public := []string{"/healthz"}
	if h.metrics != nil && h.cfg.MetricsPath != "" {
		public = append(public, h.cfg.MetricsPath)
	}
	r.Use(middleware.BearerAuth(h.cfg.AuthTokens, public...))

	r.Get("/healthz", h.handleHealth)
	if h.metrics != nil && h.cfg.MetricsPath != "" {
		r.Method(http.MethodGet, h.cfg.MetricsPath, h.metrics.Handler())
	}

	streamable := server.NewStreamableHTTPServer(h.mcp.MCP(),
		server.WithEndpointPath(h.cfg.EndpointPath),
	)
	r.Handle(h.cfg.EndpointPath, streamable)
	return r
}

// Start listens on cfg.Addr and serves until ctx is cancelled, then shuts
// down gracefully.
func (h *HTTPServer) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", h.cfg.Addr)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}
	h.boundAddr = listener.Addr().String()

	h.httpSrv = &http.Server{
		Handler:           h.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	h.logger.Info("mcp server listening",
		"transport", "http",
		"addr", h.boundAddr,
		"endpoint", h.cfg.EndpointPath,
		"auth", len(h.cfg.AuthTokens) > 0,
	)

	errCh := make(chan error, 1)
	go func() { errCh <- h.httpSrv.Serve(listener) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), h.cfg.ShutdownTimeout)
	defer cancel()
	if err := h.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	h.logger.Info("mcp server stopped", "transport", "http")
	return nil
}

// BoundAddr returns the address the server bound to. Only valid after Start.
func (h *HTTPServer) BoundAddr() string { return h.boundAddr }

// HealthResponse is the JSON body returned by GET /healthz.
type HealthResponse struct {
	Status        string          `json:"status"`
	Version       string          `json:"version,omitempty"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Tools         int             `json:"tools"`
	Upstream      *UpstreamHealth `json:"upstream,omitempty"`
}

// UpstreamHealth describes the search backend in a HealthResponse.
type UpstreamHealth struct {
	Provider string `json:"provider"`
	APIKey   bool   `json:"api_key_configured"`
	Breaker  string `json:"breaker"`
}

func (h *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{
		Status:        "ok",
		Version:       h.cfg.Version,
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Tools:         len(h.mcp.tools.Schemas()),
	}
	if h.upstream != nil {
		resp.Upstream = &UpstreamHealth{
			Provider: h.upstream.Name(),
			APIKey:   h.upstream.HasAPIKey(),
			Breaker:  h.upstream.BreakerState(),
		}
		// An open breaker means every tool call fails fast right now.
		if resp.Upstream.Breaker == "open" {
			resp.Status = "degraded"
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Warn("write health response", "error", err)
	}
}
