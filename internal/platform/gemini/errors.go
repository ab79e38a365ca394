package gemini

import "errors"

// Generation errors. Transient failures are retried with backoff; the
// others abort the call immediately.
var (
	// ErrInvalidConfig indicates missing or malformed generator configuration.
	ErrInvalidConfig = errors.New("invalid generator configuration")

	// ErrEmptyScript indicates the script to generate from was empty.
	ErrEmptyScript = errors.New("script cannot be empty")

	// ErrInvalidResponse indicates the model returned output that could not
	// be parsed into the expected structure.
	ErrInvalidResponse = errors.New("invalid model response")

	// ErrContentBlocked indicates the model refused the request on safety
	// grounds.
	ErrContentBlocked = errors.New("content blocked by safety filters")

	// ErrTransientFailure indicates a retryable failure that persisted
	// through all retry attempts.
	ErrTransientFailure = errors.New("transient generation failure")
)
