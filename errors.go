package ofetch

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Error types reported through ClientError.Type.
const (
	ErrorTypeConfig      = "Config"
	ErrorTypeTimeout     = "Timeout"
	ErrorTypeNetwork     = "Network"
	ErrorTypeHTTP        = "HTTP"
	ErrorTypeInterceptor = "Interceptor"
	ErrorTypeSerialize   = "Serialize"
	ErrorTypeValidation  = "Validation"
)

// Pipeline stages recorded on ClientError.Stage.
const (
	StageRequest  = "request"
	StageDispatch = "dispatch"
	StageResponse = "response"
)

// Sentinel errors for common failure scenarios
var (
	// ErrTimeout is returned when the per-request timeout aborts a dispatch.
	ErrTimeout = errors.New("ofetch: request timed out")

	// ErrInvalidTarget is returned when a call target is neither a URL
	// string nor a *RequestConfig.
	ErrInvalidTarget = errors.New("ofetch: invalid request target")

	// ErrNilConfig is returned when an interceptor leaves the pipeline
	// without a usable request configuration.
	ErrNilConfig = errors.New("ofetch: nil request config")
)

// ClientError is the error type surfaced by the client. It carries enough
// context to attribute a failure to a pipeline stage without re-running the
// call.
type ClientError struct {
	Type       string
	Message    string
	Cause      error
	RequestID  string
	Method     string
	URL        string
	Stage      string
	StatusCode int
	Timestamp  time.Time
	Duration   time.Duration
}

// Error implements error interface.
func (e *ClientError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	if e.RequestID != "" {
		msg = fmt.Sprintf("[%s] %s", e.RequestID, msg)
	}
	if e.Stage != "" {
		msg = fmt.Sprintf("%s (stage: %s)", msg, e.Stage)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ClientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares error types for errors.Is.
func (e *ClientError) Is(target error) bool {
	if e == nil {
		return false
	}
	if target == ErrTimeout {
		return e.Type == ErrorTypeTimeout
	}
	if targetErr, ok := target.(*ClientError); ok {
		return e.Type == targetErr.Type
	}
	return false
}

// IsTimeout reports whether err represents a timeout-aborted dispatch.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var clientErr *ClientError
	return errors.As(err, &clientErr) && clientErr.Type == ErrorTypeTimeout
}

// IsHTTPStatus reports whether err is a non-success status surfaced by the
// transport, and returns the status code when it is.
func IsHTTPStatus(err error) (int, bool) {
	var clientErr *ClientError
	if errors.As(err, &clientErr) && clientErr.Type == ErrorTypeHTTP {
		return clientErr.StatusCode, true
	}
	return 0, false
}

// errorType extracts the ClientError type label for metrics, defaulting to
// Network for foreign errors.
func errorType(err error) string {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type
	}
	return ErrorTypeNetwork
}

// DebugInfo renders a multi-line string with diagnostic context.
func (e *ClientError) DebugInfo() string {
	if e == nil {
		return "Error: <nil>"
	}
	info := fmt.Sprintf("Error Type: %s\n", e.Type)
	info += fmt.Sprintf("Message: %s\n", e.Message)
	if e.RequestID != "" {
		info += fmt.Sprintf("Request ID: %s\n", e.RequestID)
	}
	if e.Method != "" {
		info += fmt.Sprintf("Method: %s\n", e.Method)
	}
	if e.URL != "" {
		info += fmt.Sprintf("URL: %s\n", e.URL)
	}
	if e.Stage != "" {
		info += fmt.Sprintf("Stage: %s\n", e.Stage)
	}
	if e.StatusCode > 0 {
		info += fmt.Sprintf("Status Code: %d\n", e.StatusCode)
	}
	if !e.Timestamp.IsZero() {
		info += fmt.Sprintf("Timestamp: %s\n", e.Timestamp.Format(time.RFC3339))
	}
	if e.Duration > 0 {
		info += fmt.Sprintf("Duration: %v\n", e.Duration)
	}
	if e.Cause != nil {
		info += fmt.Sprintf("Cause: %v\n", e.Cause)
	}
	return info
}
