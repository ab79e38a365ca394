package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	ErrNotFound = errors.New("entity not found")

	// ErrTaskNotFound indicates that the requested task does not exist in the store.
	ErrTaskNotFound = fmt.Errorf("%w: task", ErrNotFound)

	// ErrLimitExceeded is the generic parent of the admission denial errors.
	ErrLimitExceeded = errors.New("concurrency limit exceeded")

	// ErrUserLimitExceeded is returned when a user is already running their
	// maximum number of concurrent tasks.
	ErrUserLimitExceeded = fmt.Errorf("%w: per-user ceiling", ErrLimitExceeded)

	// ErrGlobalLimitExceeded is returned when the process-wide ceiling of
	// concurrent tasks has been reached.
	ErrGlobalLimitExceeded = fmt.Errorf("%w: global ceiling", ErrLimitExceeded)

	// ErrAlreadyTerminal is returned by conditional updates that found the
	// task already in a terminal status. The losing writer of a terminal
	// race observes this and takes no further action.
	ErrAlreadyTerminal = errors.New("task already in terminal status")

	// ErrNotActive is returned by progress updates that found the task
	// neither pending nor processing.
	ErrNotActive = errors.New("task is not active")

	// ErrCancelRequested is returned by progress updates that found the
	// cooperative cancellation flag set. The execution unit stops advancing
	// and leaves the terminal transition to the canceller.
	ErrCancelRequested = errors.New("task cancellation requested")

	// ErrDuplicate is returned when an insert violates a uniqueness
	// constraint.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails a database
	// constraint other than uniqueness.
	ErrInvalidEntity = errors.New("invalid entity")
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsLimitError checks if the error is an admission denial of either scope.
func IsLimitError(err error) bool {
	return errors.Is(err, ErrLimitExceeded)
}
