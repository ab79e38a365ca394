package task

import "errors"

var (
	// ErrNotReady is returned when a result is requested for a task that
	// has not reached a terminal status yet.
	ErrNotReady = errors.New("task result not ready")

	// ErrManagerClosed is returned when a task is submitted after the
	// manager began shutting down.
	ErrManagerClosed = errors.New("task manager is shut down")
)
