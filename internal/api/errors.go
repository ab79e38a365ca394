package api

import (
	"errors"
	"net/http"

	"github.com/mbarlow/lectern-api/internal/domain"
	"github.com/mbarlow/lectern-api/internal/store"
	"github.com/mbarlow/lectern-api/internal/task"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types or messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Admission denials. The two ceilings surface differently: the user
	// can free their own slots (429), whereas a full system asks the
	// client to retry later (503).
	case errors.Is(err, store.ErrUserLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, store.ErrGlobalLimitExceeded):
		return http.StatusServiceUnavailable

	// Ownership violations.
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden

	// Missing or malformed task IDs.
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// State conflicts: result not ready yet, or cancel of a finished task.
	case errors.Is(err, task.ErrNotReady),
		errors.Is(err, store.ErrAlreadyTerminal):
		return http.StatusConflict

	// Bad input.
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidTaskKind),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Shutting down.
	case errors.Is(err, task.ErrManagerClosed):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-facing message for the
// error.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, store.ErrUserLimitExceeded):
		return "Too many tasks running, wait for one to finish or cancel one"
	case errors.Is(err, store.ErrGlobalLimitExceeded):
		return "System is at capacity, try again later"
	case errors.Is(err, domain.ErrUnauthorized):
		return "You do not own this task"
	case errors.Is(err, store.ErrNotFound):
		return "Task not found"
	case errors.Is(err, task.ErrNotReady):
		return "Task has not finished yet"
	case errors.Is(err, store.ErrAlreadyTerminal):
		return "Task already finished"
	case errors.Is(err, domain.ErrInvalidTaskKind):
		return "Unknown task kind"
	case errors.Is(err, domain.ErrValidation):
		return "Invalid request data"
	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"
	case errors.Is(err, task.ErrManagerClosed):
		return "Service is shutting down"
	default:
		return "An unexpected error occurred"
	}
}
