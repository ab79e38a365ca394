package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mbarlow/lectern-api/internal/domain"
	"github.com/mbarlow/lectern-api/internal/events"
	"github.com/mbarlow/lectern-api/internal/service"
	"github.com/mbarlow/lectern-api/internal/store"
)

// PipelineRunner is the slice of the processing pipeline the manager needs:
// the three phases an execution unit drives with stage updates in between,
// plus the all-in-one entry point used by the synchronous path.
type PipelineRunner interface {
	Transcribe(ctx context.Context, kind domain.TaskKind, inputs domain.InputHandles) (*service.TranscriptBundle, error)
	Generate(ctx context.Context, kind domain.TaskKind, bundle *service.TranscriptBundle) (*domain.GeneratedContent, error)
	AlignAndStore(ctx context.Context, bundle *service.TranscriptBundle, generated *domain.GeneratedContent) (*domain.EducationalContent, error)
	Run(ctx context.Context, kind domain.TaskKind, inputs domain.InputHandles) (*domain.EducationalContent, error)
}

// Result is a task's terminal outcome as returned to the owner.
type Result struct {
	Status       domain.TaskStatus `json:"status"`
	Content      json.RawMessage   `json:"content,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
}

// TaskList groups a user's tasks by whether they still occupy a slot.
type TaskList struct {
	Active    []*domain.TaskRecord `json:"active"`
	Completed []*domain.TaskRecord `json:"completed"`
}

// Manager is the entry point of the task subsystem. It admits new tasks,
// spawns one execution unit per admitted task, and answers status, result,
// list, and cancel requests with ownership enforced from the task ID.
type Manager struct {
	store        store.TaskStore
	admission    *AdmissionController
	pipeline     PipelineRunner
	emitter      events.Emitter
	logger       *slog.Logger
	historyLimit int

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	closed  bool

	wg sync.WaitGroup
}

// NewManager creates a Manager. historyLimit bounds how many terminal tasks
// a listing returns per user; non-positive values default to 100. The
// emitter is optional; nil disables lifecycle notifications.
func NewManager(
	s store.TaskStore,
	admission *AdmissionController,
	pipeline PipelineRunner,
	emitter events.Emitter,
	historyLimit int,
	logger *slog.Logger,
) (*Manager, error) {
	if s == nil {
		return nil, errors.New("store cannot be nil")
	}
	if admission == nil {
		return nil, errors.New("admission controller cannot be nil")
	}
	if pipeline == nil {
		return nil, errors.New("pipeline cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if historyLimit <= 0 {
		historyLimit = 100
	}

	return &Manager{
		store:        s,
		admission:    admission,
		pipeline:     pipeline,
		emitter:      emitter,
		logger:       logger.With(slog.String("component", "task_manager")),
		historyLimit: historyLimit,
		cancels:      make(map[string]context.CancelFunc),
	}, nil
}

// CreateTask admits a new background task for the user and starts its
// execution unit. The returned record is the pending snapshot; the caller
// polls status with the task ID. Admission denials surface as
// store.ErrUserLimitExceeded or store.ErrGlobalLimitExceeded.
func (m *Manager) CreateTask(ctx context.Context, userID string, kind domain.TaskKind, inputs domain.InputHandles) (*domain.TaskRecord, error) {
	rec, err := domain.NewTaskRecord(userID, kind, inputs)
	if err != nil {
		return nil, err
	}

	if err := m.admission.TryAdmit(ctx, rec); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		if relErr := m.admission.Release(context.Background(), rec.TaskID); relErr != nil {
			m.logger.ErrorContext(ctx, "failed to release task after shutdown race",
				"task_id", rec.TaskID, "error", relErr)
		}
		return nil, ErrManagerClosed
	}

	taskCtx, cancel := context.WithCancel(context.Background())
	m.cancels[rec.TaskID] = cancel
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(taskCtx, rec)

	m.notify(ctx, rec)
	m.logger.InfoContext(ctx, "task created",
		"task_id", rec.TaskID,
		"user_id", userID,
		"kind", kind)
	return rec, nil
}

// GetStatus returns the caller's task record. Tasks owned by other users
// are reported as unauthorized, not as missing, since the task ID itself
// names its owner.
func (m *Manager) GetStatus(ctx context.Context, userID, taskID string) (*domain.TaskRecord, error) {
	if err := authorize(userID, taskID); err != nil {
		return nil, err
	}
	return m.store.Get(ctx, taskID)
}

// GetResult returns the terminal outcome of the caller's task. Non-terminal
// tasks yield ErrNotReady.
func (m *Manager) GetResult(ctx context.Context, userID, taskID string) (*Result, error) {
	if err := authorize(userID, taskID); err != nil {
		return nil, err
	}

	rec, err := m.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	switch rec.Status {
	case domain.TaskStatusCompleted:
		return &Result{Status: rec.Status, Content: rec.Result}, nil
	case domain.TaskStatusFailed:
		return &Result{Status: rec.Status, ErrorMessage: rec.ErrorMessage}, nil
	case domain.TaskStatusCancelled:
		return &Result{Status: rec.Status}, nil
	default:
		return nil, fmt.Errorf("%w: task is %s", ErrNotReady, rec.Status)
	}
}

// ListUserTasks returns the user's active tasks and, when requested, their
// recent terminal history, both newest first.
func (m *Manager) ListUserTasks(ctx context.Context, userID string, includeCompleted bool) (*TaskList, error) {
	active, err := m.store.ListActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	completed := []*domain.TaskRecord{}
	if includeCompleted {
		completed, err = m.store.ListCompleted(ctx, userID, m.historyLimit)
		if err != nil {
			return nil, err
		}
	}
	return &TaskList{Active: active, Completed: completed}, nil
}

// CancelTask cancels the caller's task and returns the resulting record.
// Cancelling a task that already reached a terminal state is an idempotent
// no-op: the record is returned unchanged. For a live task the cooperative
// flag is set first so a concurrently running execution unit stops at its
// next stage boundary, then the terminal transition is applied with a
// compare-and-set: if the task finished in the meantime the finished
// outcome stands.
func (m *Manager) CancelTask(ctx context.Context, userID, taskID string) (*domain.TaskRecord, error) {
	if err := authorize(userID, taskID); err != nil {
		return nil, err
	}

	rec, err := m.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if rec.Status.IsTerminal() {
		return rec, nil
	}

	if err := m.store.RequestCancel(ctx, taskID); err != nil {
		return nil, err
	}

	m.cancelLocal(taskID)

	if err := m.store.Cancel(ctx, taskID); err != nil {
		if errors.Is(err, store.ErrAlreadyTerminal) {
			// Lost the terminal race to a natural completion or failure.
			return m.store.Get(ctx, taskID)
		}
		return nil, err
	}

	// Re-read so the caller and the lifecycle event carry the store's
	// post-cancel state, not the earlier snapshot's timestamps.
	cancelled, err := m.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	m.notify(ctx, cancelled)

	m.logger.InfoContext(ctx, "task cancelled",
		"task_id", taskID,
		"user_id", userID)
	return cancelled, nil
}

// RunSync executes the pipeline inline and returns the finished content.
// This is the legacy synchronous path: it bypasses admission entirely and
// creates no task record.
func (m *Manager) RunSync(ctx context.Context, kind domain.TaskKind, inputs domain.InputHandles) (*domain.EducationalContent, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidTaskKind, kind)
	}
	return m.pipeline.Run(ctx, kind, inputs)
}

// Shutdown stops accepting new tasks, cancels all running execution units,
// and waits for them to finish their terminal bookkeeping or for the
// context to expire.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	for _, cancel := range m.cancels {
		cancel()
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown wait: %w", ctx.Err())
	}
}

// cancelLocal cancels the in-process execution unit, if this process owns
// one. Tasks spawned by another process are reached through the cooperative
// flag alone.
func (m *Manager) cancelLocal(taskID string) {
	m.mu.Lock()
	cancel, ok := m.cancels[taskID]
	m.mu.Unlock()
	if ok {
		cancel()
	}
}

// notify publishes a lifecycle event for the given record snapshot.
// Delivery failures are logged and swallowed; notifications never affect
// the transition they describe.
func (m *Manager) notify(ctx context.Context, rec *domain.TaskRecord) {
	if m.emitter == nil {
		return
	}
	if err := m.emitter.EmitEvent(ctx, events.NewTaskEvent(rec)); err != nil {
		m.logger.WarnContext(ctx, "task event delivery failed",
			"task_id", rec.TaskID, "error", err)
	}
}

// unregister drops the execution unit's cancel func after it returns.
func (m *Manager) unregister(taskID string) {
	m.mu.Lock()
	if cancel, ok := m.cancels[taskID]; ok {
		cancel()
		delete(m.cancels, taskID)
	}
	m.mu.Unlock()
}

// authorize verifies that the task ID names the caller as owner. Malformed
// IDs are indistinguishable from missing tasks.
func authorize(userID, taskID string) error {
	owner, err := domain.TaskOwner(taskID)
	if err != nil {
		return fmt.Errorf("%w: %q", store.ErrTaskNotFound, taskID)
	}
	if owner != userID {
		return fmt.Errorf("%w: task belongs to another user", domain.ErrUnauthorized)
	}
	return nil
}
