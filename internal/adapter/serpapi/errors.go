package serpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"universal-mcp-serpapi/internal/domain"
)

// noResultsMarker appears in the vendor's "error" field when a query simply
// matched nothing; that case is an empty result, not a failure.
const noResultsMarker = "hasn't returned any results"

// authKeywords in a vendor error message mark an authentication problem.
var authKeywords = []string{
	"invalid api key",
	"authorization failed",
	"api key needed",
	"forbidden",
	"account disabled",
	"private api key is missing",
}

func isNoResults(msg string) bool {
	return strings.Contains(strings.ToLower(msg), noResultsMarker)
}

func isAuthMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, kw := range authKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// vendorError turns a vendor-reported failure into an UpstreamError. The
// status code and the message text both feed the classification.
func vendorError(engine string, status int, msg string) *domain.UpstreamError {
	var cause error
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden || isAuthMessage(msg):
		cause = domain.ErrAuthInvalid
	case status == http.StatusTooManyRequests:
		cause = domain.ErrRateLimit
	}
	if msg == "" && status != 0 {
		msg = http.StatusText(status)
	}
	return domain.NewUpstreamError(engine, status, msg, cause)
}

// transportError wraps a failed round trip. Deadline expiry is reported as a
// timeout so that callers see a retryable error.
func transportError(engine string, err error) *domain.UpstreamError {
	if errors.Is(err, context.DeadlineExceeded) || isNetTimeout(err) {
		return domain.NewUpstreamError(engine, 0, "request timed out", fmt.Errorf("%w: %w", domain.ErrTimeout, err))
	}
	return domain.NewUpstreamError(engine, 0, "request failed", err)
}

func isNetTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// malformed reports an undecodable or wrongly shaped payload.
func malformed(engine string, status int, err error) *domain.UpstreamError {
	return domain.NewUpstreamError(engine, status, "malformed response", err)
}

// snippet shortens a response body for inclusion in an error message.
func snippet(body []byte, max int) string {
	s := strings.TrimSpace(string(body))
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
