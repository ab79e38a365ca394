package domain

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a background task.
type TaskStatus string

// Possible task status values.
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// IsTerminal reports whether the status admits no further transitions.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	}
	return false
}

// IsValid reports whether the status is one of the known values.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusProcessing,
		TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	}
	return false
}

// TaskStage is a named checkpoint within the processing pipeline.
// Stages are strictly ordered and advance monotonically.
type TaskStage string

// Pipeline stages, in order.
const (
	TaskStageQueued        TaskStage = "queued"
	TaskStageTranscribing  TaskStage = "transcribing"
	TaskStageProcessingLLM TaskStage = "processing_llm"
	TaskStageAligning      TaskStage = "aligning"
	TaskStageCompleted     TaskStage = "completed"
)

// stageOrder maps each stage to its position in the pipeline.
var stageOrder = map[TaskStage]int{
	TaskStageQueued:        0,
	TaskStageTranscribing:  1,
	TaskStageProcessingLLM: 2,
	TaskStageAligning:      3,
	TaskStageCompleted:     4,
}

// IsValid reports whether the stage is one of the known values.
func (s TaskStage) IsValid() bool {
	_, ok := stageOrder[s]
	return ok
}

// Ord returns the stage's position in the pipeline order, with
// unknown stages ordered before all known ones.
func (s TaskStage) Ord() int {
	ord, ok := stageOrder[s]
	if !ok {
		return -1
	}
	return ord
}

// TaskKind selects which pipeline variant an execution unit runs.
type TaskKind string

// Supported task kinds.
const (
	TaskKindGenerateParagraphs TaskKind = "generate_paragraphs_with_visuals"
	TaskKindAlignPDFVisuals    TaskKind = "extract_and_align_pdf_visuals"
	TaskKindAlignPDFCopyright  TaskKind = "extract_and_align_pdf_visuals_with_copyright_detection"
)

// IsValid reports whether the kind is one of the supported values.
func (k TaskKind) IsValid() bool {
	switch k {
	case TaskKindGenerateParagraphs, TaskKindAlignPDFVisuals, TaskKindAlignPDFCopyright:
		return true
	}
	return false
}

// InputHandles references the uploaded input artifacts a task needs.
// Handles are opaque keys into the external file-storage collaborator;
// the artifacts themselves are never stored with the task.
type InputHandles struct {
	Subtitle string `json:"subtitle"`
	Media    string `json:"media"`
	PDF      string `json:"pdf,omitempty"`
}

// TaskRecord is the durable unit of state for one background task.
//
// The task ID is composed as "{user_id}:{uuid}". This is a documented
// contract, not an incidental detail: the embedded owner lets every
// status/result/cancel operation verify ownership without a secondary
// index, and gives the store a natural partition key.
type TaskRecord struct {
	TaskID       string       `json:"task_id"`
	UserID       string       `json:"user_id"`
	Kind         TaskKind     `json:"kind"`
	Status       TaskStatus   `json:"status"`
	Stage        TaskStage    `json:"stage"`
	Progress     int          `json:"progress"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	Result       []byte       `json:"result,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
	Inputs       InputHandles `json:"inputs"`

	// CancelRequested is the cooperative cancellation flag. Execution
	// units observe it at stage boundaries; it never changes the status
	// by itself.
	CancelRequested bool `json:"cancel_requested,omitempty"`
}

// NewTaskRecord creates a pending task record for the given user.
func NewTaskRecord(userID string, kind TaskKind, inputs InputHandles) (*TaskRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user ID cannot be empty", ErrValidation)
	}
	if strings.Contains(userID, ":") {
		return nil, fmt.Errorf("%w: user ID cannot contain ':'", ErrValidation)
	}
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTaskKind, kind)
	}

	now := time.Now().UTC()
	return &TaskRecord{
		TaskID:    ComposeTaskID(userID, uuid.New()),
		UserID:    userID,
		Kind:      kind,
		Status:    TaskStatusPending,
		Stage:     TaskStageQueued,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
		Inputs:    inputs,
	}, nil
}

// ComposeTaskID builds a task ID from its owner and a fresh UUID.
// The UUID is hex-encoded without dashes, matching the wire format
// the store and clients already rely on.
func ComposeTaskID(userID string, id uuid.UUID) string {
	return userID + ":" + hex.EncodeToString(id[:])
}

// TaskOwner extracts the owning user ID encoded in a task ID.
// Returns ErrInvalidTaskID when the ID does not carry an owner.
func TaskOwner(taskID string) (string, error) {
	idx := strings.LastIndex(taskID, ":")
	if idx <= 0 || idx == len(taskID)-1 {
		return "", fmt.Errorf("%w: %q", ErrInvalidTaskID, taskID)
	}
	return taskID[:idx], nil
}

// OwnedBy reports whether the task ID encodes the given user as owner.
func OwnedBy(taskID, userID string) bool {
	owner, err := TaskOwner(taskID)
	if err != nil {
		return false
	}
	return owner == userID
}

// Validate checks the record's structural invariants.
func (r *TaskRecord) Validate() error {
	owner, err := TaskOwner(r.TaskID)
	if err != nil {
		return err
	}
	if owner != r.UserID {
		return fmt.Errorf("%w: task ID owner %q does not match user %q",
			ErrInvalidTaskID, owner, r.UserID)
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, r.Status)
	}
	if !r.Stage.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStage, r.Stage)
	}
	if !r.Kind.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidTaskKind, r.Kind)
	}
	if r.Progress < 0 || r.Progress > 100 {
		return fmt.Errorf("%w: %d", ErrInvalidProgress, r.Progress)
	}
	return nil
}

// IsActive reports whether the task still occupies a concurrency slot.
func (r *TaskRecord) IsActive() bool {
	return r.Status == TaskStatusPending || r.Status == TaskStatusProcessing
}
