package task

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mbarlow/lectern-api/internal/domain"
	"github.com/mbarlow/lectern-api/internal/store"
)

// MockTaskStore is an in-memory store.TaskStore for testing. Every method
// delegates to an overridable Fn field; the defaults implement the real
// semantics, including the compare-and-set discipline on terminal writes.
type MockTaskStore struct {
	mutex   sync.RWMutex
	records map[string]*domain.TaskRecord

	AdmitFn               func(ctx context.Context, rec *domain.TaskRecord, userLimit, globalLimit int) error
	ReleaseFn             func(ctx context.Context, taskID string) error
	GetFn                 func(ctx context.Context, taskID string) (*domain.TaskRecord, error)
	AdvanceStageFn        func(ctx context.Context, taskID string, stage domain.TaskStage, progress int) error
	RequestCancelFn       func(ctx context.Context, taskID string) error
	CompleteFn            func(ctx context.Context, taskID string, result []byte) error
	FailFn                func(ctx context.Context, taskID string, errorMessage string) error
	CancelFn              func(ctx context.Context, taskID string) error
	ListActiveFn          func(ctx context.Context, userID string) ([]*domain.TaskRecord, error)
	ListCompletedFn       func(ctx context.Context, userID string, limit int) ([]*domain.TaskRecord, error)
	ListStaleProcessingFn func(ctx context.Context, olderThan time.Duration) ([]*domain.TaskRecord, error)
}

var _ store.TaskStore = (*MockTaskStore)(nil)

// NewMockTaskStore creates a MockTaskStore with default in-memory behavior.
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{records: make(map[string]*domain.TaskRecord)}
}

// Snapshot returns a copy of the stored record, for assertions.
func (s *MockTaskStore) Snapshot(taskID string) (*domain.TaskRecord, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	rec, ok := s.records[taskID]
	if !ok {
		return nil, false
	}
	cp := *rec
	return &cp, true
}

func (s *MockTaskStore) activeCounts(userID string) (user, global int) {
	for _, rec := range s.records {
		if rec.IsActive() {
			global++
			if rec.UserID == userID {
				user++
			}
		}
	}
	return user, global
}

func (s *MockTaskStore) Admit(ctx context.Context, rec *domain.TaskRecord, userLimit, globalLimit int) error {
	if s.AdmitFn != nil {
		return s.AdmitFn(ctx, rec, userLimit, globalLimit)
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	user, global := s.activeCounts(rec.UserID)
	if user >= userLimit {
		return store.ErrUserLimitExceeded
	}
	if global >= globalLimit {
		return store.ErrGlobalLimitExceeded
	}

	cp := *rec
	s.records[rec.TaskID] = &cp
	return nil
}

func (s *MockTaskStore) Release(ctx context.Context, taskID string) error {
	if s.ReleaseFn != nil {
		return s.ReleaseFn(ctx, taskID)
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.records, taskID)
	return nil
}

func (s *MockTaskStore) Get(ctx context.Context, taskID string) (*domain.TaskRecord, error) {
	if s.GetFn != nil {
		return s.GetFn(ctx, taskID)
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	rec, ok := s.records[taskID]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MockTaskStore) AdvanceStage(ctx context.Context, taskID string, stage domain.TaskStage, progress int) error {
	if s.AdvanceStageFn != nil {
		return s.AdvanceStageFn(ctx, taskID, stage, progress)
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	rec, ok := s.records[taskID]
	if !ok {
		return store.ErrTaskNotFound
	}
	if rec.Status.IsTerminal() {
		return store.ErrNotActive
	}
	if rec.CancelRequested {
		return store.ErrCancelRequested
	}

	rec.Status = domain.TaskStatusProcessing
	rec.Stage = stage
	rec.Progress = progress
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MockTaskStore) RequestCancel(ctx context.Context, taskID string) error {
	if s.RequestCancelFn != nil {
		return s.RequestCancelFn(ctx, taskID)
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	rec, ok := s.records[taskID]
	if !ok {
		return store.ErrTaskNotFound
	}
	if !rec.Status.IsTerminal() {
		rec.CancelRequested = true
	}
	return nil
}

func (s *MockTaskStore) terminal(taskID string, status domain.TaskStatus, mutate func(*domain.TaskRecord)) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	rec, ok := s.records[taskID]
	if !ok {
		return store.ErrTaskNotFound
	}
	if rec.Status.IsTerminal() {
		return fmt.Errorf("%w: task is %s", store.ErrAlreadyTerminal, rec.Status)
	}

	rec.Status = status
	rec.UpdatedAt = time.Now().UTC()
	if mutate != nil {
		mutate(rec)
	}
	return nil
}

func (s *MockTaskStore) Complete(ctx context.Context, taskID string, result []byte) error {
	if s.CompleteFn != nil {
		return s.CompleteFn(ctx, taskID, result)
	}
	return s.terminal(taskID, domain.TaskStatusCompleted, func(rec *domain.TaskRecord) {
		rec.Stage = domain.TaskStageCompleted
		rec.Progress = 100
		rec.Result = result
	})
}

func (s *MockTaskStore) Fail(ctx context.Context, taskID string, errorMessage string) error {
	if s.FailFn != nil {
		return s.FailFn(ctx, taskID, errorMessage)
	}
	return s.terminal(taskID, domain.TaskStatusFailed, func(rec *domain.TaskRecord) {
		rec.ErrorMessage = errorMessage
	})
}

func (s *MockTaskStore) Cancel(ctx context.Context, taskID string) error {
	if s.CancelFn != nil {
		return s.CancelFn(ctx, taskID)
	}
	return s.terminal(taskID, domain.TaskStatusCancelled, nil)
}

func (s *MockTaskStore) list(userID string, active bool, limit int) []*domain.TaskRecord {
	var out []*domain.TaskRecord
	for _, rec := range s.records {
		if rec.UserID != userID {
			continue
		}
		if rec.IsActive() != active {
			continue
		}
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *MockTaskStore) ListActive(ctx context.Context, userID string) ([]*domain.TaskRecord, error) {
	if s.ListActiveFn != nil {
		return s.ListActiveFn(ctx, userID)
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.list(userID, true, 0), nil
}

func (s *MockTaskStore) ListCompleted(ctx context.Context, userID string, limit int) ([]*domain.TaskRecord, error) {
	if s.ListCompletedFn != nil {
		return s.ListCompletedFn(ctx, userID, limit)
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.list(userID, false, limit), nil
}

func (s *MockTaskStore) ListStaleProcessing(ctx context.Context, olderThan time.Duration) ([]*domain.TaskRecord, error) {
	if s.ListStaleProcessingFn != nil {
		return s.ListStaleProcessingFn(ctx, olderThan)
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	cutoff := time.Now().Add(-olderThan)
	var out []*domain.TaskRecord
	for _, rec := range s.records {
		if rec.Status == domain.TaskStatusProcessing && rec.UpdatedAt.Before(cutoff) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}
