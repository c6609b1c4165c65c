package flink

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for classification via errors.Is().
var (
	// ErrValidation marks input rejected locally, before any request was made.
	ErrValidation = errors.New("validation error")
	// ErrStatus marks a response whose status code differs from the expected one.
	ErrStatus = errors.New("unexpected status")
	// ErrConvention marks a successful response carrying an unsuccessful payload.
	ErrConvention = errors.New("unsuccessful response")
	// ErrUnsupported marks operations this client does not implement.
	ErrUnsupported = errors.New("unsupported operation")
)

// Error is the single error type returned for API-level failures.
// Transport failures are not converted; they come back wrapped with %w.
type Error struct {
	Sentinel   error    // ErrValidation, ErrStatus, ErrConvention or ErrUnsupported
	Message    string   // Human-readable message
	Op         string   // Operation that failed (e.g., "jars.uploadAndRun")
	Field      string   // For validation errors (e.g., "parallelism")
	StatusCode int      // Status actually received, for ErrStatus
	Errors     []string // Server supplied "errors" entries, for ErrStatus
	Body       []byte   // Raw response body, for ErrConvention
}

// Error returns the human-readable error message.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the sentinel error for errors.Is() classification.
func (e *Error) Unwrap() error {
	return e.Sentinel
}

// Diagnostic returns the server supplied errors joined by newlines.
func (e *Error) Diagnostic() string {
	return strings.Join(e.Errors, "\n")
}

func validationError(field, message string) error {
	return &Error{
		Sentinel: ErrValidation,
		Message:  message,
		Field:    field,
	}
}

func statusError(code int, serverErrors []string) error {
	msg := fmt.Sprintf("REST response error (%d)", code)
	if len(serverErrors) > 0 {
		msg += ": " + strings.Join(serverErrors, "\n")
	}
	return &Error{
		Sentinel:   ErrStatus,
		Message:    msg,
		StatusCode: code,
		Errors:     serverErrors,
	}
}

func conventionError(op, message string, body []byte) error {
	return &Error{
		Sentinel: ErrConvention,
		Message:  fmt.Sprintf("%s: %s", op, message),
		Op:       op,
		Body:     body,
	}
}

func unsupportedError(op string) error {
	return &Error{
		Sentinel: ErrUnsupported,
		Message:  fmt.Sprintf("%s is not supported by this client", op),
		Op:       op,
	}
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not an
// ErrStatus failure.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) && errors.Is(apiErr, ErrStatus) {
		return apiErr.StatusCode
	}
	return 0
}
