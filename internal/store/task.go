package store

import (
	"context"
	"time"

	"github.com/mbarlow/lectern-api/internal/domain"
)

// TaskStore is the durable store for task records and the active-task sets
// used for concurrency accounting. All compound mutations (admission plus
// registration, terminal transitions) must be atomic with respect to other
// callers, including callers in other processes sharing the same store.
type TaskStore interface {
	// Admit atomically checks the per-user and global ceilings and, if both
	// hold, persists the pending record and registers it in the user's and
	// the global active set. On denial it performs no writes and returns
	// ErrUserLimitExceeded or ErrGlobalLimitExceeded.
	Admit(ctx context.Context, rec *domain.TaskRecord, userLimit, globalLimit int) error

	// Release undoes an admission for a task that never started executing,
	// removing the record and its active-set memberships.
	Release(ctx context.Context, taskID string) error

	// Get returns a snapshot of the task record, or ErrTaskNotFound.
	Get(ctx context.Context, taskID string) (*domain.TaskRecord, error)

	// AdvanceStage moves an active task to status=processing at the given
	// stage and progress, refreshing updated_at. It fails with
	// ErrCancelRequested when the cancellation flag is set, and with
	// ErrNotActive when the task is already terminal; in both cases no
	// write occurs.
	AdvanceStage(ctx context.Context, taskID string, stage domain.TaskStage, progress int) error

	// RequestCancel sets the cooperative cancellation flag without touching
	// the status. Safe to call on terminal tasks (no-op).
	RequestCancel(ctx context.Context, taskID string) error

	// Complete transitions the task to completed with the given result,
	// guarded on the record still being non-terminal. The losing writer of
	// a terminal race gets ErrAlreadyTerminal and must take no further
	// action. Removes active-set membership and records history atomically.
	Complete(ctx context.Context, taskID string, result []byte) error

	// Fail transitions the task to failed with the given message, with the
	// same compare-and-set discipline as Complete.
	Fail(ctx context.Context, taskID string, errorMessage string) error

	// Cancel transitions the task to cancelled, with the same
	// compare-and-set discipline as Complete.
	Cancel(ctx context.Context, taskID string) error

	// ListActive returns the user's non-terminal tasks, newest first.
	ListActive(ctx context.Context, userID string) ([]*domain.TaskRecord, error)

	// ListCompleted returns up to limit of the user's most recent terminal
	// tasks, newest first.
	ListCompleted(ctx context.Context, userID string, limit int) ([]*domain.TaskRecord, error)

	// ListStaleProcessing returns tasks that are status=processing but whose
	// updated_at is older than the given age. These are orphan candidates:
	// records whose execution unit died with the process.
	ListStaleProcessing(ctx context.Context, olderThan time.Duration) ([]*domain.TaskRecord, error)
}
