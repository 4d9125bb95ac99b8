// Package errors defines the error taxonomy of the generation chain.
// Backend failures surface as *LLMError; a mode without a transport surfaces
// as *UnsupportedModeError. Every layer returns these values unchanged.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrUnsupportedMode is matched by every *UnsupportedModeError via errors.Is.
var ErrUnsupportedMode = stderrors.New("unsupported model mode")

// LLMError represents a transport-level failure talking to the backend:
// a network error, a non-2xx response or a malformed payload.
type LLMError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Type       string `json:"type"`
	Provider   string `json:"provider"`
	Model      string `json:"model"`

	cause error
}

// Error implements the error interface.
func (e *LLMError) Error() string {
	return fmt.Sprintf("[%s] %s (provider=%s, model=%s, code=%d)",
		e.Type, e.Message, e.Provider, e.Model, e.StatusCode)
}

// Unwrap returns the underlying cause, if any.
func (e *LLMError) Unwrap() error {
	return e.cause
}

// HTTPStatusCode returns the appropriate HTTP status code for the error.
func (e *LLMError) HTTPStatusCode() int {
	if e.StatusCode > 0 {
		return e.StatusCode
	}
	return http.StatusBadGateway
}

// Common error types as constants for consistency.
const (
	TypeTransport          = "transport_error"
	TypeMalformedResponse  = "malformed_response"
	TypeAuthentication     = "authentication_error"
	TypeRateLimit          = "rate_limit_error"
	TypeInvalidRequest     = "invalid_request_error"
	TypeNotFound           = "not_found_error"
	TypeTimeout            = "timeout_error"
	TypeServiceUnavailable = "service_unavailable_error"
	TypeInternalError      = "internal_error"
)

// NewTransportError wraps a network-level failure (dial, reset, cancelled context).
func NewTransportError(provider, model string, cause error) *LLMError {
	msg := "transport failure"
	if cause != nil {
		msg = cause.Error()
	}
	return &LLMError{
		Message:  msg,
		Type:     TypeTransport,
		Provider: provider,
		Model:    model,
		cause:    cause,
	}
}

// NewMalformedResponseError reports a body that could not be decoded.
func NewMalformedResponseError(provider, model string, cause error) *LLMError {
	msg := "malformed response"
	if cause != nil {
		msg = "malformed response: " + cause.Error()
	}
	return &LLMError{
		StatusCode: http.StatusBadGateway,
		Message:    msg,
		Type:       TypeMalformedResponse,
		Provider:   provider,
		Model:      model,
		cause:      cause,
	}
}

// NewAuthenticationError creates an authentication error (401).
func NewAuthenticationError(provider, model, message string) *LLMError {
	return &LLMError{
		StatusCode: http.StatusUnauthorized,
		Message:    message,
		Type:       TypeAuthentication,
		Provider:   provider,
		Model:      model,
	}
}

// NewRateLimitError creates a rate limit error (429).
func NewRateLimitError(provider, model, message string) *LLMError {
	return &LLMError{
		StatusCode: http.StatusTooManyRequests,
		Message:    message,
		Type:       TypeRateLimit,
		Provider:   provider,
		Model:      model,
	}
}

// NewInvalidRequestError creates an invalid request error (400).
func NewInvalidRequestError(provider, model, message string) *LLMError {
	return &LLMError{
		StatusCode: http.StatusBadRequest,
		Message:    message,
		Type:       TypeInvalidRequest,
		Provider:   provider,
		Model:      model,
	}
}

// NewNotFoundError creates a not found error (404), typically an unpulled model.
func NewNotFoundError(provider, model, message string) *LLMError {
	return &LLMError{
		StatusCode: http.StatusNotFound,
		Message:    message,
		Type:       TypeNotFound,
		Provider:   provider,
		Model:      model,
	}
}

// NewTimeoutError creates a timeout error (408).
func NewTimeoutError(provider, model, message string) *LLMError {
	return &LLMError{
		StatusCode: http.StatusRequestTimeout,
		Message:    message,
		Type:       TypeTimeout,
		Provider:   provider,
		Model:      model,
	}
}

// NewServiceUnavailableError creates a service unavailable error (503).
func NewServiceUnavailableError(provider, model, message string) *LLMError {
	return &LLMError{
		StatusCode: http.StatusServiceUnavailable,
		Message:    message,
		Type:       TypeServiceUnavailable,
		Provider:   provider,
		Model:      model,
	}
}

// NewInternalError creates an internal server error (500).
func NewInternalError(provider, model, message string) *LLMError {
	return &LLMError{
		StatusCode: http.StatusInternalServerError,
		Message:    message,
		Type:       TypeInternalError,
		Provider:   provider,
		Model:      model,
	}
}

// FromStatus maps a non-2xx backend status to the matching LLMError.
func FromStatus(provider, model string, statusCode int, message string) *LLMError {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return NewAuthenticationError(provider, model, message)
	case http.StatusTooManyRequests:
		return NewRateLimitError(provider, model, message)
	case http.StatusBadRequest:
		return NewInvalidRequestError(provider, model, message)
	case http.StatusNotFound:
		return NewNotFoundError(provider, model, message)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return NewTimeoutError(provider, model, message)
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return NewServiceUnavailableError(provider, model, message)
	default:
		e := NewInternalError(provider, model, message)
		if statusCode > 0 {
			e.StatusCode = statusCode
		}
		return e
	}
}

// UnsupportedModeError is returned when the configured mode has no transport.
type UnsupportedModeError struct {
	Mode      string
	Operation string
}

// Error implements the error interface.
func (e *UnsupportedModeError) Error() string {
	if e.Operation == "" {
		return fmt.Sprintf("model mode %q is not supported", e.Mode)
	}
	return fmt.Sprintf("model mode %q is not supported for %s", e.Mode, e.Operation)
}

// Is makes errors.Is(err, ErrUnsupportedMode) true.
func (e *UnsupportedModeError) Is(target error) bool {
	return target == ErrUnsupportedMode
}

// NewUnsupportedModeError creates an UnsupportedModeError.
func NewUnsupportedModeError(mode, operation string) *UnsupportedModeError {
	return &UnsupportedModeError{Mode: mode, Operation: operation}
}

// IsTransport reports whether err is, or wraps, an *LLMError.
func IsTransport(err error) bool {
	var llmErr *LLMError
	return stderrors.As(err, &llmErr)
}

// IsUnsupportedMode reports whether err is, or wraps, an unsupported mode failure.
func IsUnsupportedMode(err error) bool {
	return stderrors.Is(err, ErrUnsupportedMode)
}

// StatusCode returns the HTTP status best describing err.
func StatusCode(err error) int {
	var llmErr *LLMError
	if stderrors.As(err, &llmErr) {
		return llmErr.HTTPStatusCode()
	}
	if IsUnsupportedMode(err) {
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

// Kind returns a short, bounded label for err, suitable for metrics.
func Kind(err error) string {
	var llmErr *LLMError
	switch {
	case err == nil:
		return ""
	case stderrors.As(err, &llmErr):
		return llmErr.Type
	case IsUnsupportedMode(err):
		return "unsupported_mode"
	case stderrors.Is(err, context.Canceled):
		return "canceled"
	case stderrors.Is(err, context.DeadlineExceeded):
		return TypeTimeout
	default:
		return "unknown"
	}
}
