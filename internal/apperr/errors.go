// Package apperr defines the error kinds shared by the workflow, dispatcher,
// evaluator and job runner, and maps them onto HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidTransition is returned when a status change is not an edge of the state graph.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrUnauthorized is returned when the caller is not the recorded actor for an operation.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned for unknown ids.
	ErrNotFound = errors.New("not found")
	// ErrConcurrentModification is returned when a conditional update lost a race.
	ErrConcurrentModification = errors.New("concurrent modification")
	// ErrTransportFailure is returned by email, SMS and push senders.
	ErrTransportFailure = errors.New("transport failure")
	// ErrUpstreamUnavailable wraps persistence failures.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict is returned by stores when a uniqueness constraint rejects a write.
	ErrConflict = errors.New("conflict")
)

// Upstream wraps a persistence error so callers can match ErrUpstreamUnavailable
// while keeping the original cause in the chain.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUpstreamUnavailable, err)
}

// Validation builds an ErrValidation with a message.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// HTTPStatus maps an error chain to the status code the HTTP adapter returns.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrConcurrentModification), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Code returns a stable machine-readable code for an error chain.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "VALIDATION_FAILED"
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrInvalidTransition):
		return "INVALID_TRANSITION"
	case errors.Is(err, ErrConcurrentModification):
		return "CONCURRENT_MODIFICATION"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "UPSTREAM_UNAVAILABLE"
	case errors.Is(err, ErrTransportFailure):
		return "TRANSPORT_FAILURE"
	default:
		return "INTERNAL"
	}
}
