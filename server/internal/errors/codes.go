package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a specific error type surfaced by the API.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a referenced record does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeInvalidRequest indicates invalid input parameters.
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	// ErrCodeAuthFailure indicates authentication failure.
	ErrCodeAuthFailure ErrorCode = "AUTH_FAILURE"
	// ErrCodeConflict indicates a uniqueness violation.
	ErrCodeConflict ErrorCode = "CONFLICT"
	// ErrCodeUpstreamFailure indicates the LLM or voice provider failed.
	ErrCodeUpstreamFailure ErrorCode = "UPSTREAM_FAILURE"
	// ErrCodeRateLimitExceeded indicates rate limit has been exceeded.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeInternal indicates an unexpected failure.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// APIError represents a structured error carrying an HTTP mapping.
type APIError struct {
	Code    ErrorCode
	Message string
	Cause   error
	// Status overrides the default status for Code when non-zero.
	Status  int
	Context map[string]any
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *APIError) WithContext(key string, value any) *APIError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithStatus overrides the HTTP status.
func (e *APIError) WithStatus(status int) *APIError {
	e.Status = status
	return e
}

// HTTPStatus returns the HTTP status for the error.
func (e *APIError) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeInvalidRequest, ErrCodeConflict:
		return http.StatusBadRequest
	case ErrCodeAuthFailure:
		return http.StatusUnauthorized
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Convenience constructors for common error types.

func NotFound(msg string) *APIError {
	return &APIError{Code: ErrCodeNotFound, Message: msg}
}

func InvalidRequest(msg string) *APIError {
	return &APIError{Code: ErrCodeInvalidRequest, Message: msg}
}

func AuthFailure(msg string) *APIError {
	return &APIError{Code: ErrCodeAuthFailure, Message: msg}
}

func Conflict(msg string) *APIError {
	return &APIError{Code: ErrCodeConflict, Message: msg}
}

// UpstreamFailure creates an upstream failure error.
func UpstreamFailure(msg string, cause error) *APIError {
	return &APIError{Code: ErrCodeUpstreamFailure, Message: msg, Cause: cause}
}

func RateLimitExceeded(msg string) *APIError {
	return &APIError{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string, cause error) *APIError {
	return &APIError{Code: ErrCodeInternal, Message: msg, Cause: cause}
}

// Wrap wraps an existing error with additional context.
func Wrap(cause error, code ErrorCode, msg string) *APIError {
	return &APIError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if any error in the chain is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not an APIError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return defaultCode
}

// As extracts the APIError from err.
func As(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}
