// Package events defines task lifecycle notifications and an in-process
// emitter for dispatching them to registered handlers.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mbarlow/lectern-api/internal/domain"
)

// TaskEvent describes a single task status transition. Events are
// informational; handlers cannot influence the transition itself.
type TaskEvent struct {
	// ID is a unique identifier for this event.
	ID uuid.UUID `json:"id"`

	// TaskID identifies the task that transitioned.
	TaskID string `json:"task_id"`

	// UserID is the task owner.
	UserID string `json:"user_id"`

	// Kind is the task's processing kind.
	Kind domain.TaskKind `json:"kind"`

	// Status is the status the task transitioned into.
	Status domain.TaskStatus `json:"status"`

	// Stage is the processing stage at the time of the transition.
	Stage domain.TaskStage `json:"stage"`

	// Progress is the percentage reported at the time of the transition.
	Progress int `json:"progress"`

	// OccurredAt is when the transition was observed.
	OccurredAt time.Time `json:"occurred_at"`
}

// NewTaskEvent builds an event from a task record snapshot.
func NewTaskEvent(rec *domain.TaskRecord) *TaskEvent {
	return &TaskEvent{
		ID:         uuid.New(),
		TaskID:     rec.TaskID,
		UserID:     rec.UserID,
		Kind:       rec.Kind,
		Status:     rec.Status,
		Stage:      rec.Stage,
		Progress:   rec.Progress,
		OccurredAt: time.Now().UTC(),
	}
}

// Handler processes task lifecycle events.
type Handler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *TaskEvent) error
}

// Emitter publishes task lifecycle events to registered handlers. It
// lets the task manager announce transitions without direct knowledge
// of who is listening.
type Emitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns the first handler error encountered, if any.
	EmitEvent(ctx context.Context, event *TaskEvent) error
}
