// Package errors provides the error taxonomy shared by the token pipeline.
// Every failure is an *AppError carrying a machine-readable code, an HTTP
// status hint and optional structured details.
package errors

import (
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an *AppError with the same code. This lets
// package-level sentinels be matched with errors.Is regardless of message.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok || t == nil {
		return false
	}
	return e.Code == t.Code
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// Configuration creates an error for a missing or invalid component binding.
func Configuration(format string, args ...any) *AppError {
	return New(ErrCodeConfiguration, fmt.Sprintf(format, args...), http.StatusInternalServerError)
}

// KeyIO creates an error for key material that could not be read.
func KeyIO(path string, cause error) *AppError {
	return New(ErrCodeKeyIO, fmt.Sprintf("unable to read key file %q", path), http.StatusInternalServerError).
		WithDetail("path", path).
		WithCause(cause)
}

// CannotDecodeContent creates an error for a segment that failed to decode.
func CannotDecodeContent(message string, cause error) *AppError {
	return New(ErrCodeCannotDecodeContent, message, http.StatusBadRequest).WithCause(cause)
}

// InvalidTokenStructure creates an error for a token with an unexpected shape.
func InvalidTokenStructure(message string) *AppError {
	return New(ErrCodeInvalidTokenStructure, message, http.StatusBadRequest)
}

// UnsupportedHeader creates an error for an unsupported header parameter.
func UnsupportedHeader(name string) *AppError {
	return New(ErrCodeUnsupportedHeader, fmt.Sprintf("header %q is not supported", name), http.StatusBadRequest).
		WithDetail("header", name)
}

// ConstraintViolation creates an error for a token rejected by the named constraint.
func ConstraintViolation(constraint, reason string) *AppError {
	return New(ErrCodeConstraintViolation, reason, http.StatusUnauthorized).
		WithDetail("constraint", constraint)
}

// Unauthorized creates a new AppError for unauthorized access.
func Unauthorized(reason string) *AppError {
	if reason == "" {
		reason = "Authentication required."
	}
	return New(ErrCodeUnauthorized, reason, http.StatusUnauthorized)
}

// InvalidToken creates a new AppError for an invalid authentication token.
func InvalidToken() *AppError {
	return New(ErrCodeInvalidToken, "The access token invalid or expired", http.StatusUnauthorized)
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return New(ErrCodeInvalidInput, message, http.StatusBadRequest)
}

// Internal creates a new AppError for an internal error.
func Internal(cause error) *AppError {
	return New(ErrCodeInternal, "An unexpected error occurred.", http.StatusInternalServerError).WithCause(cause)
}

// ServiceUnavailable creates a new AppError for a backing service that cannot be reached.
func ServiceUnavailable(service string, cause error) *AppError {
	return New(ErrCodeServiceUnavailable, fmt.Sprintf("The %s is temporarily unavailable.", service), http.StatusServiceUnavailable).
		WithDetail("service", service).
		WithCause(cause)
}
