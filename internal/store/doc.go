// Package store defines the persistence interfaces and shared error types
// used by the task subsystem. Implementations live under internal/platform
// and must be safe for concurrent use by multiple processes sharing the
// same backing store.
package store
