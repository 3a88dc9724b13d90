// Package errors defines structured error types for the grid API.
package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode defines specific error types for the API.
type ErrorCode string

const (
	// ErrValidationFailed is returned when input data fails validation
	ErrValidationFailed ErrorCode = "VALIDATION_FAILED"
	// ErrNotFound is returned when a resource is not found
	ErrNotFound ErrorCode = "NOT_FOUND"
	// ErrPageNotFound is returned when a page number is unknown or out of range
	ErrPageNotFound ErrorCode = "PAGE_NOT_FOUND"
	// ErrFetchFailed is returned when the row source fails to deliver a page
	ErrFetchFailed ErrorCode = "FETCH_FAILED"
	// ErrInvariantViolation is returned when the row store is found inconsistent
	ErrInvariantViolation ErrorCode = "INVARIANT_VIOLATION"
	// ErrInternal is returned when an unexpected server error occurs
	ErrInternal ErrorCode = "INTERNAL_ERROR"
)

// ErrorWithStatus is an error that includes an HTTP status code and error code.
type ErrorWithStatus interface {
	Error() string
	StatusCode() int
	Code() ErrorCode
	Details() map[string]any
}

// APIError is a concrete error type with status code, code, and optional details.
type APIError struct {
	statusCode int
	code       ErrorCode
	message    string
	details    map[string]any
	wrappedErr error
}

// NewAPIError creates a new APIError with the given status code and message.
func NewAPIError(statusCode int, code ErrorCode, message string) *APIError {
	return &APIError{
		statusCode: statusCode,
		code:       code,
		message:    message,
		details:    make(map[string]any),
	}
}

// WithDetail attaches key to the error's details, reported next to the
// message.
func (e *APIError) WithDetail(key string, value any) *APIError {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

// Wrap wraps an underlying error.
func (e *APIError) Wrap(err error) *APIError {
	e.wrappedErr = err
	return e
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.wrappedErr != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrappedErr)
	}
	return e.message
}

// StatusCode returns the HTTP status code.
func (e *APIError) StatusCode() int {
	return e.statusCode
}

// Code returns the error code.
func (e *APIError) Code() ErrorCode {
	return e.code
}

// Details returns additional error details.
func (e *APIError) Details() map[string]any {
	return e.details
}

// Unwrap returns the wrapped error if any.
func (e *APIError) Unwrap() error {
	return e.wrappedErr
}

// NotFound creates a 404 Not Found error.
func NotFound(resource string) *APIError {
	return NewAPIError(http.StatusNotFound, ErrNotFound, fmt.Sprintf("%s not found", resource))
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrValidationFailed, message)
}

// MissingField creates a 400 Bad Request error for a missing field.
func MissingField(fieldName string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrValidationFailed, fmt.Sprintf("Missing required field: %s", fieldName))
}

// PageNotFound creates a 404 error for an unknown page.
func PageNotFound(page int) *APIError {
	return NewAPIError(http.StatusNotFound, ErrPageNotFound, fmt.Sprintf("page %d not found", page)).WithDetail("page", page)
}

// FetchFailed creates a 502 error wrapping a row source failure.
func FetchFailed(page int, err error) *APIError {
	return NewAPIError(http.StatusBadGateway, ErrFetchFailed, fmt.Sprintf("failed to fetch page %d", page)).WithDetail("page", page).Wrap(err)
}

// InvariantViolation creates a 500 error wrapping a store consistency failure.
func InvariantViolation(err error) *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrInvariantViolation, "row store is inconsistent").Wrap(err)
}

// InternalWithError creates a 500 error wrapping an unexpected session
// failure.
func InternalWithError(message string, err error) *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrInternal, message).Wrap(err)
}
