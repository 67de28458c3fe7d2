package oto

import (
	"errors"
	"fmt"
	"net/http"
)

// RequestFailedPrefix starts the message of every APIError.
const RequestFailedPrefix = "API request failed: "

// Sentinel errors matched by the concrete error kinds via errors.Is.
var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrAPI is matched by every *APIError.
	ErrAPI = errors.New("api request failed")

	// ErrParse is matched by every *ParseError.
	ErrParse = errors.New("response is not a JSON object")
)

// ValidationError is returned before any network call when a required
// argument or payload field is missing or empty.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Message
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func requiredFieldError(field string) *ValidationError {
	return NewValidationError(field, fmt.Sprintf("'%s' field is required", field))
}

// APIError represents a failed call to the TryOto API: a transport failure
// or a non-2xx response.
type APIError struct {
	Code       string
	Message    string
	StatusCode int
	Body       []byte
	Cause      error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	return e.Cause
}

// Is matches ErrAPI, or another *APIError carrying the same Code.
func (e *APIError) Is(target error) bool {
	if target == ErrAPI {
		return true
	}
	t, ok := target.(*APIError)
	return ok && t != nil && e.Code == t.Code
}

// NewAPIError wraps cause into an APIError with the fixed message prefix.
func NewAPIError(code string, cause error) *APIError {
	msg := RequestFailedPrefix
	if cause != nil {
		msg += cause.Error()
	}
	return &APIError{
		Code:    code,
		Message: msg,
		Cause:   cause,
	}
}

// WithStatusCode adds an HTTP status code to the error.
func (e *APIError) WithStatusCode(code int) *APIError {
	e.StatusCode = code
	return e
}

// WithBody attaches the raw response body.
func (e *APIError) WithBody(body []byte) *APIError {
	e.Body = body
	return e
}

// HTTPStatusError is the cause of an APIError produced by a non-2xx response.
type HTTPStatusError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *HTTPStatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
}

// ParseError is returned when a successful response body is not a JSON
// object.
type ParseError struct {
	Body  []byte
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", ErrParse.Error(), e.Cause)
}

// Unwrap returns the underlying decode error.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrParse.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// IsRetryable returns true for transport failures and 5xx responses. A
// canceled call is never retryable.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case CodeTransport, CodeTimeout:
		return true
	case CodeCanceled:
		return false
	}
	return apiErr.StatusCode >= http.StatusInternalServerError
}

// Error codes carried by APIError.
const (
	CodeTransport = "TRANSPORT"
	CodeTimeout   = "TIMEOUT"
	CodeCanceled  = "CANCELED"
)

func statusCode(status int) string {
	return fmt.Sprintf("HTTP_%d", status)
}
