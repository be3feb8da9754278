package toolexec

import (
	"errors"
	"fmt"
)

// Status enumerates the terminal outcomes of a tool call.
type Status string

const (
	// StatusSuccess means the tool returned data.
	StatusSuccess Status = "success"
	// StatusError means the tool failed and retries were exhausted or not
	// applicable.
	StatusError Status = "error"
	// StatusTimeout means the soft or hard timeout elapsed before the tool
	// returned.
	StatusTimeout Status = "timeout"
	// StatusCancelled means the caller's context was cancelled.
	StatusCancelled Status = "cancelled"
	// StatusBreakerOpen means the per-tool breaker short-circuited the call
	// before the tool was invoked.
	StatusBreakerOpen Status = "breaker_open"
)

type (
	// Result is the single terminal record of one Execute call. Failures are
	// returned in-band rather than as Go errors so every call yields exactly
	// one Result.
	Result struct {
		// Status is the terminal outcome.
		Status Status `json:"status"`
		// Data is the tool output, nil unless Status is success.
		Data map[string]any `json:"data,omitempty"`
		// Error describes the failure, nil on success.
		Error *ErrorInfo `json:"error,omitempty"`
		// FromCache reports whether Data came from the result cache. When
		// true the tool was not invoked on this call.
		FromCache bool `json:"from_cache"`
		// LatencyMS is the wall-clock duration of the whole call in
		// milliseconds, including retries and backoff.
		LatencyMS int64 `json:"latency_ms"`
		// Retries counts attempts beyond the first.
		Retries int `json:"retries"`
	}

	// ErrorInfo is the wire shape of a tool call failure.
	ErrorInfo struct {
		// Reason is the stable failure category: "tool_error", "timeout",
		// "cancelled" or "breaker_open".
		Reason string `json:"reason"`
		// Type carries the error classification when known, for example
		// "ConnectionError" or "TimeoutError".
		Type string `json:"type,omitempty"`
		// Message is the human-readable failure detail.
		Message string `json:"message,omitempty"`
		// RetryAfterSeconds is set on breaker_open failures: whole seconds
		// until a probe will be allowed.
		RetryAfterSeconds int `json:"retry_after_seconds,omitempty"`
	}

	// ToolError lets tool implementations classify their failures so the
	// executor's retry policy can tell transient faults from permanent ones.
	ToolError struct {
		// Type is the classification, for example ErrTypeConnection.
		Type string
		// Message is the failure detail.
		Message string
	}
)

// Error classifications the retry policy recognizes as transient.
const (
	ErrTypeConnection = "ConnectionError"
	ErrTypeTimeout    = "TimeoutError"
	ErrTypeTemporary  = "TemporaryError"
)

// ErrTypeValidation marks argument validation failures. Validation errors are
// permanent: retrying the same arguments cannot succeed.
const ErrTypeValidation = "ValidationError"

// Stable failure reasons carried in ErrorInfo.Reason.
const (
	ReasonToolError   = "tool_error"
	ReasonTimeout     = "timeout"
	ReasonCancelled   = "cancelled"
	ReasonBreakerOpen = "breaker_open"
)

// Error implements the error interface.
func (e *ToolError) Error() string {
	if e.Type == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// NewToolError builds a classified tool error.
func NewToolError(errType, format string, args ...any) *ToolError {
	return &ToolError{Type: errType, Message: fmt.Sprintf(format, args...)}
}

// errorType extracts the classification from a tool failure, empty when the
// error carries none.
func errorType(err error) string {
	var te *ToolError
	if errors.As(err, &te) {
		return te.Type
	}
	return ""
}
