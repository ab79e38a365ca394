package task

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbarlow/lectern-api/internal/domain"
	"github.com/mbarlow/lectern-api/internal/store"
)

func newPendingRecord(t *testing.T, userID string) *domain.TaskRecord {
	t.Helper()
	rec, err := domain.NewTaskRecord(userID, domain.TaskKindGenerateParagraphs, domain.InputHandles{
		Subtitle: "sub", Media: "media",
	})
	require.NoError(t, err)
	return rec
}

func TestAdmissionController(t *testing.T) {
	t.Parallel()

	t.Run("admits below both ceilings", func(t *testing.T) {
		t.Parallel()

		s := NewMockTaskStore()
		a := NewAdmissionController(s, 2, 10, testLogger())

		rec := newPendingRecord(t, "alice")
		require.NoError(t, a.TryAdmit(context.Background(), rec))

		stored, ok := s.Snapshot(rec.TaskID)
		require.True(t, ok)
		assert.Equal(t, domain.TaskStatusPending, stored.Status)
	})

	t.Run("denies at the per-user ceiling", func(t *testing.T) {
		t.Parallel()

		s := NewMockTaskStore()
		a := NewAdmissionController(s, 2, 10, testLogger())

		require.NoError(t, a.TryAdmit(context.Background(), newPendingRecord(t, "alice")))
		require.NoError(t, a.TryAdmit(context.Background(), newPendingRecord(t, "alice")))

		denied := newPendingRecord(t, "alice")
		err := a.TryAdmit(context.Background(), denied)
		assert.ErrorIs(t, err, store.ErrUserLimitExceeded)

		// A denial writes nothing.
		_, ok := s.Snapshot(denied.TaskID)
		assert.False(t, ok)

		// Other users are unaffected by alice's ceiling.
		assert.NoError(t, a.TryAdmit(context.Background(), newPendingRecord(t, "bob")))
	})

	t.Run("denies at the global ceiling", func(t *testing.T) {
		t.Parallel()

		s := NewMockTaskStore()
		a := NewAdmissionController(s, 5, 3, testLogger())

		require.NoError(t, a.TryAdmit(context.Background(), newPendingRecord(t, "u1")))
		require.NoError(t, a.TryAdmit(context.Background(), newPendingRecord(t, "u2")))
		require.NoError(t, a.TryAdmit(context.Background(), newPendingRecord(t, "u3")))

		err := a.TryAdmit(context.Background(), newPendingRecord(t, "u4"))
		assert.ErrorIs(t, err, store.ErrGlobalLimitExceeded)
	})

	t.Run("concurrent admissions never exceed the ceilings", func(t *testing.T) {
		t.Parallel()

		const userLimit = 3
		const attempts = 20

		s := NewMockTaskStore()
		a := NewAdmissionController(s, userLimit, 50, testLogger())

		recs := make([]*domain.TaskRecord, attempts)
		for i := range recs {
			recs[i] = newPendingRecord(t, "alice")
		}

		var wg sync.WaitGroup
		var admitted atomic.Int64
		unexpected := make(chan error, attempts)
		for _, rec := range recs {
			wg.Add(1)
			go func(rec *domain.TaskRecord) {
				defer wg.Done()
				err := a.TryAdmit(context.Background(), rec)
				switch {
				case err == nil:
					admitted.Add(1)
				case errors.Is(err, store.ErrUserLimitExceeded):
				default:
					unexpected <- err
				}
			}(rec)
		}
		wg.Wait()
		close(unexpected)
		for err := range unexpected {
			t.Errorf("unexpected admit error: %v", err)
		}

		assert.Equal(t, int64(userLimit), admitted.Load())

		// The store holds exactly the admitted records and no more.
		active, err := s.ListActive(context.Background(), "alice")
		require.NoError(t, err)
		assert.Len(t, active, userLimit)
	})

	t.Run("release frees the slot", func(t *testing.T) {
		t.Parallel()

		s := NewMockTaskStore()
		a := NewAdmissionController(s, 1, 10, testLogger())

		rec := newPendingRecord(t, "alice")
		require.NoError(t, a.TryAdmit(context.Background(), rec))
		require.ErrorIs(t, a.TryAdmit(context.Background(), newPendingRecord(t, "alice")), store.ErrUserLimitExceeded)

		require.NoError(t, a.Release(context.Background(), rec.TaskID))
		assert.NoError(t, a.TryAdmit(context.Background(), newPendingRecord(t, "alice")))
	})

	t.Run("non-positive limits fall back to defaults", func(t *testing.T) {
		t.Parallel()

		a := NewAdmissionController(NewMockTaskStore(), 0, -1, testLogger())
		assert.Equal(t, 5, a.userLimit)
		assert.Equal(t, 20, a.globalLimit)
	})
}
