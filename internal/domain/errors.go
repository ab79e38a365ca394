package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidTaskID is returned when a task ID is malformed or does not
	// encode an owning user.
	ErrInvalidTaskID = errors.New("invalid task ID")

	// ErrInvalidStatus is returned when a task status value is not valid.
	ErrInvalidStatus = errors.New("invalid task status")

	// ErrInvalidStage is returned when a task stage value is not valid.
	ErrInvalidStage = errors.New("invalid task stage")

	// ErrInvalidProgress is returned when a progress value is outside 0-100.
	ErrInvalidProgress = errors.New("invalid progress value")

	// ErrInvalidTaskKind is returned when a task kind is not one of the
	// supported pipeline variants.
	ErrInvalidTaskKind = errors.New("invalid task kind")

	// ErrUnauthorized is returned when an operation is not permitted.
	ErrUnauthorized = errors.New("unauthorized operation")
)
