// Package shopify provides domain types for the Shopify Admin API integration.
package shopify

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Standard domain errors.
var (
	ErrMissingToken       = errors.New("shopify access token is required")
	ErrUnauthorized       = errors.New("unauthorized access")
	ErrRateLimited        = errors.New("API rate limit exceeded")
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidRequest     = errors.New("invalid request parameters")
	ErrServiceUnavailable = errors.New("Shopify service temporarily unavailable")
	ErrInvalidResponse    = errors.New("invalid response from Shopify API")
)

// APIError represents a non-2xx response from the Shopify Admin API.
type APIError struct {
	StatusCode int
	Message    string
	Path       string
	RequestID  string
	// RetryAfter is the delay requested by a 429 response, zero if absent.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("shopify %s [%d]: %s (request_id: %s)", e.Path, e.StatusCode, e.Message, e.RequestID)
	}
	return fmt.Sprintf("shopify %s [%d]: %s", e.Path, e.StatusCode, e.Message)
}

// Is implements errors.Is for APIError.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrInvalidRequest:
		return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity
	case ErrServiceUnavailable:
		return e.StatusCode >= 500
	default:
		return false
	}
}

// IsRetryable returns true if this error is safe to retry.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// NewAPIError creates a new APIError with the given parameters.
func NewAPIError(statusCode int, path, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Path:       path,
		Message:    message,
	}
}

// ErrorCategory classifies errors into categories.
type ErrorCategory string

const (
	CategoryAuthentication ErrorCategory = "authentication"
	CategoryRateLimit      ErrorCategory = "rate_limit"
	CategoryServer         ErrorCategory = "server"
	CategoryNotFound       ErrorCategory = "not_found"
	CategoryValidation     ErrorCategory = "validation"
	CategoryUnknown        ErrorCategory = "unknown"
)

// Category returns the category of this error.
func (e *APIError) Category() ErrorCategory {
	switch {
	case errors.Is(e, ErrUnauthorized):
		return CategoryAuthentication
	case errors.Is(e, ErrRateLimited):
		return CategoryRateLimit
	case errors.Is(e, ErrServiceUnavailable):
		return CategoryServer
	case errors.Is(e, ErrNotFound):
		return CategoryNotFound
	case errors.Is(e, ErrInvalidRequest):
		return CategoryValidation
	default:
		return CategoryUnknown
	}
}
