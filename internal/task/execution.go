package task

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/mbarlow/lectern-api/internal/domain"
	"github.com/mbarlow/lectern-api/internal/store"
)

// Progress milestones published at each stage boundary.
const (
	progressTranscribing  = 10
	progressProcessingLLM = 30
	progressAligning      = 70
)

// run is the execution unit for one admitted task. It drives the pipeline
// phases, publishing a stage advance before each one. Advances double as
// cancellation checkpoints: when the cooperative flag is set the store
// refuses the advance and the unit stops without running the next phase.
//
// Store writes use a background context so that cancelling the task's own
// context never breaks the terminal bookkeeping.
func (m *Manager) run(ctx context.Context, rec *domain.TaskRecord) {
	defer m.wg.Done()
	defer m.unregister(rec.TaskID)

	taskID := rec.TaskID
	log := m.logger.With(
		slog.String("task_id", taskID),
		slog.String("kind", string(rec.Kind)))
	bg := context.Background()

	// rec is the admission-time snapshot shared with the caller; cur tracks
	// the transitions this unit applies so failure reporting names the
	// stage that was actually running.
	cur := rec

	if !m.advance(bg, cur, domain.TaskStageTranscribing, progressTranscribing, log) {
		return
	}
	cur = snapshot(cur, domain.TaskStatusProcessing, domain.TaskStageTranscribing, progressTranscribing)
	bundle, err := m.pipeline.Transcribe(ctx, rec.Kind, rec.Inputs)
	if err != nil {
		m.finishFailure(bg, ctx, cur, err, log)
		return
	}

	if !m.advance(bg, cur, domain.TaskStageProcessingLLM, progressProcessingLLM, log) {
		return
	}
	cur = snapshot(cur, domain.TaskStatusProcessing, domain.TaskStageProcessingLLM, progressProcessingLLM)
	generated, err := m.pipeline.Generate(ctx, rec.Kind, bundle)
	if err != nil {
		m.finishFailure(bg, ctx, cur, err, log)
		return
	}

	if !m.advance(bg, cur, domain.TaskStageAligning, progressAligning, log) {
		return
	}
	cur = snapshot(cur, domain.TaskStatusProcessing, domain.TaskStageAligning, progressAligning)
	content, err := m.pipeline.AlignAndStore(ctx, bundle, generated)
	if err != nil {
		m.finishFailure(bg, ctx, cur, err, log)
		return
	}

	payload, err := json.Marshal(content)
	if err != nil {
		m.finishFailure(bg, ctx, cur, err, log)
		return
	}

	if err := m.store.Complete(bg, taskID, payload); err != nil {
		if errors.Is(err, store.ErrAlreadyTerminal) {
			// A canceller won the terminal race; its outcome stands.
			log.Info("task finished after being cancelled, result discarded")
			return
		}
		log.Error("failed to record task completion", "error", err)
		return
	}

	m.notify(bg, snapshot(rec, domain.TaskStatusCompleted, domain.TaskStageCompleted, 100))
	log.Info("task completed", "paragraph_count", len(content.Paragraphs))
}

// snapshot copies a record with the transition the store just applied, for
// event reporting.
func snapshot(rec *domain.TaskRecord, status domain.TaskStatus, stage domain.TaskStage, progress int) *domain.TaskRecord {
	snap := *rec
	snap.Status = status
	snap.Stage = stage
	snap.Progress = progress
	return &snap
}

// advance publishes the next stage. Returns false when the unit must stop:
// cancellation was requested, or the record is already terminal.
func (m *Manager) advance(ctx context.Context, rec *domain.TaskRecord, stage domain.TaskStage, progress int, log *slog.Logger) bool {
	taskID := rec.TaskID
	err := m.store.AdvanceStage(ctx, taskID, stage, progress)
	if err == nil {
		m.notify(ctx, snapshot(rec, domain.TaskStatusProcessing, stage, progress))
		log.Info("task stage advanced", "stage", stage, "progress", progress)
		return true
	}

	switch {
	case errors.Is(err, store.ErrCancelRequested):
		// The canceller normally applies the terminal transition itself;
		// applying it here too covers a canceller that died in between.
		// The compare-and-set makes the double write safe.
		if cErr := m.store.Cancel(ctx, taskID); cErr != nil && !errors.Is(cErr, store.ErrAlreadyTerminal) {
			log.Error("failed to finalize cancelled task", "error", cErr)
		}
		log.Info("task stopped at stage boundary after cancellation request", "stage", stage)
	case errors.Is(err, store.ErrNotActive), errors.Is(err, store.ErrAlreadyTerminal):
		log.Info("task no longer active, stopping", "stage", stage)
	case store.IsNotFoundError(err):
		log.Warn("task record disappeared, stopping", "stage", stage)
	default:
		log.Error("failed to advance task stage", "stage", stage, "error", err)
		m.fail(ctx, rec, err, log)
	}
	return false
}

// finishFailure records a phase error as the task's terminal outcome. A
// phase aborted by the task's own context counts as a cancellation, not a
// failure.
func (m *Manager) finishFailure(ctx, taskCtx context.Context, rec *domain.TaskRecord, err error, log *slog.Logger) {
	if taskCtx.Err() != nil {
		if cErr := m.store.Cancel(ctx, rec.TaskID); cErr != nil && !errors.Is(cErr, store.ErrAlreadyTerminal) {
			log.Error("failed to finalize cancelled task", "error", cErr)
		}
		log.Info("task cancelled mid-phase", "cause", err)
		return
	}

	log.Error("task failed", "error", err)
	m.fail(ctx, rec, err, log)
}

func (m *Manager) fail(ctx context.Context, rec *domain.TaskRecord, err error, log *slog.Logger) {
	if fErr := m.store.Fail(ctx, rec.TaskID, err.Error()); fErr != nil {
		if !errors.Is(fErr, store.ErrAlreadyTerminal) {
			log.Error("failed to record task failure", "error", fErr)
		}
		return
	}
	m.notify(ctx, snapshot(rec, domain.TaskStatusFailed, rec.Stage, rec.Progress))
}
