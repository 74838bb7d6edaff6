package serpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sony/gobreaker/v2"

	"universal-mcp-serpapi/internal/domain"
	"universal-mcp-serpapi/internal/infra/config"
	"universal-mcp-serpapi/internal/infra/metrics"
)

const breakerName = "serpapi"

func newBreaker(cfg config.BreakerConfig, logger *slog.Logger, m *metrics.Metrics) *gobreaker.CircuitBreaker[*response] {
	maxFailures := cfg.MaxFailures
	return gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1, // one probe in half-open state
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
			m.RecordBreakerTransition(name, to.String())
		},
		IsSuccessful: func(err error) bool {
			return !tripsBreaker(err)
		},
	})
}

// tripsBreaker reports whether err says the upstream itself is unhealthy:
// no response at all, or a 5xx. Client-side problems (bad key, quota,
// bad request, empty results) leave the breaker alone.
func tripsBreaker(err error) bool {
	if err == nil {
		return false
	}
	var ue *domain.UpstreamError
	if !errors.As(err, &ue) {
		return true
	}
	if errors.Is(err, domain.ErrAuthInvalid) || errors.Is(err, domain.ErrRateLimit) {
		return false
	}
	return ue.StatusCode == 0 || ue.StatusCode >= http.StatusInternalServerError
}
