package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mbarlow/lectern-api/internal/store"
)

// Sweeper periodically fails processing tasks whose execution unit died
// with its process: records still marked processing but not updated for
// longer than StaleAge. Failing them releases their concurrency slots and
// gives owners a terminal status instead of a task frozen mid-pipeline.
type Sweeper struct {
	store    store.TaskStore
	staleAge time.Duration
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSweeper creates a Sweeper. A zero interval disables sweeping; Start
// becomes a no-op.
func NewSweeper(s store.TaskStore, staleAge, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if staleAge <= 0 {
		staleAge = 30 * time.Minute
	}

	return &Sweeper{
		store:    s,
		staleAge: staleAge,
		interval: interval,
		logger:   logger.With(slog.String("component", "task_sweeper")),
	}
}

// Start launches the periodic sweep in a background goroutine.
func (s *Sweeper) Start() {
	if s.interval <= 0 {
		s.logger.Info("task sweeper disabled")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("task sweeper started",
			"interval", s.interval,
			"stale_age", s.staleAge)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

// Stop shuts down the sweep loop and waits for an in-flight pass to finish.
func (s *Sweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// sweep fails every stale processing record it can find. The terminal write
// is conditional on the record still being non-terminal, so a task that
// finished between the listing and the write keeps its real outcome.
func (s *Sweeper) sweep(ctx context.Context) {
	stale, err := s.store.ListStaleProcessing(ctx, s.staleAge)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list stale tasks", "error", err)
		return
	}
	if len(stale) == 0 {
		return
	}

	s.logger.InfoContext(ctx, "sweeping stale tasks", "count", len(stale))

	for _, rec := range stale {
		msg := fmt.Sprintf("task abandoned: no progress for more than %s", s.staleAge)
		if err := s.store.Fail(ctx, rec.TaskID, msg); err != nil {
			s.logger.ErrorContext(ctx, "failed to fail stale task",
				"task_id", rec.TaskID,
				"error", err)
			continue
		}
		s.logger.InfoContext(ctx, "stale task failed",
			"task_id", rec.TaskID,
			"stage", rec.Stage,
			"updated_at", rec.UpdatedAt)
	}
}
