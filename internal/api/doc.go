// Package api implements the HTTP handlers for the task subsystem: task
// creation for each processing kind, status and result polling, task
// listing, cancellation, and the legacy synchronous generation endpoint.
package api
