package task

import (
	"context"
	"log/slog"

	"github.com/mbarlow/lectern-api/internal/domain"
	"github.com/mbarlow/lectern-api/internal/store"
)

// AdmissionController decides whether a new task may start, enforcing the
// per-user and global concurrency ceilings. The check and the registration
// of the admitted task happen in one atomic store operation, so two
// concurrent requests can never both squeeze through the last free slot.
type AdmissionController struct {
	store       store.TaskStore
	userLimit   int
	globalLimit int
	logger      *slog.Logger
}

// NewAdmissionController creates an AdmissionController with the given
// ceilings. Non-positive limits fall back to the defaults (5 per user, 20
// global).
func NewAdmissionController(s store.TaskStore, userLimit, globalLimit int, logger *slog.Logger) *AdmissionController {
	if userLimit <= 0 {
		userLimit = 5
	}
	if globalLimit <= 0 {
		globalLimit = 20
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &AdmissionController{
		store:       s,
		userLimit:   userLimit,
		globalLimit: globalLimit,
		logger:      logger.With(slog.String("component", "admission")),
	}
}

// TryAdmit admits the pending record, persisting it and occupying a slot in
// the user's and the global active set. On denial nothing is written and
// the error identifies which ceiling was hit.
func (a *AdmissionController) TryAdmit(ctx context.Context, rec *domain.TaskRecord) error {
	err := a.store.Admit(ctx, rec, a.userLimit, a.globalLimit)
	if err != nil {
		if store.IsLimitError(err) {
			a.logger.InfoContext(ctx, "task admission denied",
				"task_id", rec.TaskID,
				"user_id", rec.UserID,
				"reason", err.Error())
		}
		return err
	}

	a.logger.InfoContext(ctx, "task admitted",
		"task_id", rec.TaskID,
		"user_id", rec.UserID,
		"kind", rec.Kind)
	return nil
}

// Release frees the slot held by a task that never started executing.
func (a *AdmissionController) Release(ctx context.Context, taskID string) error {
	return a.store.Release(ctx, taskID)
}
