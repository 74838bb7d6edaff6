package domain

import (
	"errors"
	"fmt"
)

// Category sentinels.
var (
	ErrNotFound     = fmt.Errorf("not found")
	ErrTimeout      = fmt.Errorf("operation timed out")
	ErrInvalidInput = fmt.Errorf("invalid input")
	ErrDisabled     = fmt.Errorf("disabled")
)

// Sentinel errors for the domain layer.
var (
	ErrToolNotFound = fmt.Errorf("tool not found")
	ErrToolFailure  = fmt.Errorf("tool execution failed")
	ErrConfigLoad   = fmt.Errorf("failed to load configuration")
	ErrDecryption   = fmt.Errorf("decryption failed")

	// Upstream (vendor search API) errors. Every failed vendor call surfaces as
	// an *UpstreamError, which matches ErrUpstream; auth and rate limit
	// failures also match ErrAuthInvalid and ErrRateLimit respectively.
	ErrUpstream    = fmt.Errorf("upstream search api error")
	ErrAuthInvalid = fmt.Errorf("authentication failed")
	ErrRateLimit   = fmt.Errorf("rate limit exceeded")
	ErrCircuitOpen = fmt.Errorf("upstream circuit open")

	// HTTP transport errors.
	ErrUnauthorized = fmt.Errorf("unauthorized")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "Registry.Get")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// UpstreamError is the single failure kind of a vendor API call: network
// error, non-success status, vendor-reported error or malformed payload.
type UpstreamError struct {
	Engine     string // vendor engine, e.g. "google_maps"
	StatusCode int    // HTTP status; 0 when no response was received
	Message    string // vendor or local description
	Err        error  // cause; may be ErrAuthInvalid, ErrRateLimit, a transport or decode error
}

func (e *UpstreamError) Error() string {
	msg := "serpapi"
	if e.Engine != "" {
		msg += " " + e.Engine
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Is makes every UpstreamError match ErrUpstream regardless of its cause.
func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// NewUpstreamError creates an UpstreamError.
func NewUpstreamError(engine string, status int, message string, cause error) *UpstreamError {
	return &UpstreamError{Engine: engine, StatusCode: status, Message: message, Err: cause}
}

// IsRetryableError reports whether err is a transient error that may succeed on retry.
func IsRetryableError(err error) bool {
	if errors.Is(err, ErrRateLimit) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrCircuitOpen) {
		return true
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.StatusCode >= 500
	}
	return false
}

// ErrorCode is a machine-parseable error category for monitoring and tool results.
type ErrorCode string

const (
	CodeUnknown      ErrorCode = "UNKNOWN"
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeTimeout      ErrorCode = "TIMEOUT"
	CodeInvalidInput ErrorCode = "INVALID_INPUT"
	CodeDisabled     ErrorCode = "DISABLED"
	CodeToolNotFound ErrorCode = "TOOL_NOT_FOUND"
	CodeToolFailure  ErrorCode = "TOOL_FAILURE"
	CodeConfigLoad   ErrorCode = "CONFIG_LOAD"
	CodeDecryption   ErrorCode = "DECRYPTION"
	CodeUpstream     ErrorCode = "UPSTREAM_ERROR"
	CodeAuthInvalid  ErrorCode = "AUTH_INVALID"
	CodeRateLimit    ErrorCode = "RATE_LIMIT"
	CodeCircuitOpen  ErrorCode = "CIRCUIT_OPEN"
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrNotFound:     CodeNotFound,
	ErrTimeout:      CodeTimeout,
	ErrInvalidInput: CodeInvalidInput,
	ErrDisabled:     CodeDisabled,
	ErrToolNotFound: CodeToolNotFound,
	ErrToolFailure:  CodeToolFailure,
	ErrConfigLoad:   CodeConfigLoad,
	ErrDecryption:   CodeDecryption,
	ErrUpstream:     CodeUpstream,
	ErrAuthInvalid:  CodeAuthInvalid,
	ErrRateLimit:    CodeRateLimit,
	ErrCircuitOpen:  CodeCircuitOpen,
	ErrUnauthorized: CodeUnauthorized,
}

// specificity lists sentinels from most to least specific so that an
// UpstreamError caused by an auth failure reports AUTH_INVALID, not
// UPSTREAM_ERROR.
var specificity = []error{
	ErrAuthInvalid,
	ErrRateLimit,
	ErrCircuitOpen,
	ErrTimeout,
	ErrUpstream,
	ErrToolNotFound,
	ErrInvalidInput,
	ErrNotFound,
	ErrDisabled,
	ErrConfigLoad,
	ErrDecryption,
	ErrUnauthorized,
	ErrToolFailure,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	// Fast path: direct sentinel lookup.
	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	for _, sentinel := range specificity {
		if errors.Is(err, sentinel) {
			return errorCodeMap[sentinel]
		}
	}

	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
func (e *DomainError) Code() ErrorCode {
	return ErrorCodeOf(e.Err)
}
