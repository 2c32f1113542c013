// Package apierrors defines the error taxonomy rendered by the API boundary.
// Each error carries a machine-readable code, an HTTP status, a human-readable
// message, and optional structured details.
package apierrors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeConflict     = "CONFLICT"
	CodeRateLimit    = "RATE_LIMIT_EXCEEDED"
	CodeInternal     = "INTERNAL_SERVER_ERROR"
)

type Error struct {
	Code    string
	Message string
	Status  int
	Details map[string]interface{}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// As unwraps err into an *Error if it is one.
func As(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func NewValidation(message string, details map[string]interface{}) *Error {
	return &Error{
		Code:    CodeValidation,
		Message: message,
		Status:  http.StatusUnprocessableEntity,
		Details: details,
	}
}

func NewNotFound(resource string, identifier interface{}) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with identifier '%v' not found", resource, identifier),
		Status:  http.StatusNotFound,
		Details: map[string]interface{}{
			"resource":   resource,
			"identifier": fmt.Sprintf("%v", identifier),
		},
	}
}

func NewUnauthorized(message string) *Error {
	if message == "" {
		message = "Authentication required"
	}
	return &Error{
		Code:    CodeUnauthorized,
		Message: message,
		Status:  http.StatusUnauthorized,
	}
}

func NewForbidden(message string) *Error {
	if message == "" {
		message = "Insufficient permissions"
	}
	return &Error{
		Code:    CodeForbidden,
		Message: message,
		Status:  http.StatusForbidden,
	}
}

func NewConflict(message string, details map[string]interface{}) *Error {
	return &Error{
		Code:    CodeConflict,
		Message: message,
		Status:  http.StatusConflict,
		Details: details,
	}
}

func NewRateLimit(retryAfterSeconds int) *Error {
	return &Error{
		Code:    CodeRateLimit,
		Message: fmt.Sprintf("Rate limit exceeded. Retry after %d seconds", retryAfterSeconds),
		Status:  http.StatusTooManyRequests,
		Details: map[string]interface{}{
			"retry_after": retryAfterSeconds,
		},
	}
}
