package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "serpapi_mcp"

// Metrics owns a private registry so that tests and multiple servers in one
// process do not collide on the global default registerer.
//
// All recording methods are safe on a nil *Metrics, which is how callers
// run with metrics disabled.
type Metrics struct {
	registry *prometheus.Registry

	toolCalls       *prometheus.CounterVec
	toolLatency     *prometheus.HistogramVec
	upstreamCalls   *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	breakerTrips    *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		toolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Total number of MCP tool calls",
			},
			[]string{"tool", "status"}, // status: ok | error code
		),
		toolLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_call_duration_seconds",
				Help:      "MCP tool call latency in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"tool"},
		),
		upstreamCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_requests_total",
				Help:      "Total number of SerpApi requests",
			},
			[]string{"engine", "status"}, // status: HTTP status code or "error"
		),
		upstreamLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_request_duration_seconds",
				Help:      "SerpApi request latency in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"engine"},
		),
		breakerTrips: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_transitions_total",
				Help:      "Circuit breaker state transitions",
			},
			[]string{"name", "to"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests served by the streamable transport",
			},
			[]string{"code"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.toolCalls,
		m.toolLatency,
		m.upstreamCalls,
		m.upstreamLatency,
		m.breakerTrips,
		m.httpRequests,
	)
	return m
}

// Registry exposes the underlying registry for tests and custom collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordToolCall records one finished tool call. status is "ok" or an error code.
func (m *Metrics) RecordToolCall(tool, status string, latency time.Duration) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, status).Inc()
	m.toolLatency.WithLabelValues(tool).Observe(latency.Seconds())
}

// RecordUpstream records one SerpApi round trip. status is the HTTP status
// text (e.g. "200") or "error" when no response arrived.
func (m *Metrics) RecordUpstream(engine, status string, latency time.Duration) {
	if m == nil {
		return
	}
	m.upstreamCalls.WithLabelValues(engine, status).Inc()
	m.upstreamLatency.WithLabelValues(engine).Observe(latency.Seconds())
}

// RecordBreakerTransition counts a circuit breaker state change.
func (m *Metrics) RecordBreakerTransition(name, to string) {
	if m == nil {
		return
	}
	m.breakerTrips.WithLabelValues(name, to).Inc()
}

// RecordHTTPRequest counts a served HTTP request by status code.
func (m *Metrics) RecordHTTPRequest(code string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(code).Inc()
}
