package tool

import (
	"errors"
	"strings"

	"universal-mcp-serpapi/internal/domain"
)

// retryablePatterns are substrings in error messages that indicate transient
// failures for errors that carry no sentinel. Checked case-insensitively.
var retryablePatterns = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"timeout",
	"deadline exceeded",
	"temporarily unavailable",
	"service unavailable",
	"try again",
}

// classifyToolError returns true if the error is transient and the tool call
// may succeed on retry. Returns false for nil, permanent, or unknown errors.
func classifyToolError(err error) bool {
	if err == nil {
		return false
	}
	if domain.IsRetryableError(err) {
		return true
	}
	// Bad keys and bad arguments stay bad however often they are retried.
	if errors.Is(err, domain.ErrAuthInvalid) || errors.Is(err, domain.ErrInvalidInput) {
		return false
	}

	lower := strings.ToLower(err.Error())
	for _, p := range retryablePatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
