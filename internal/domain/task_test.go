package domain_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbarlow/lectern-api/internal/domain"
)

func TestNewTaskRecord(t *testing.T) {
	t.Parallel()

	t.Run("valid record", func(t *testing.T) {
		t.Parallel()

		rec, err := domain.NewTaskRecord("u1", domain.TaskKindGenerateParagraphs, domain.InputHandles{
			Subtitle: "uploads/lecture.srt",
			Media:    "uploads/lecture.mp4",
		})
		require.NoError(t, err)

		assert.Equal(t, "u1", rec.UserID)
		assert.Equal(t, domain.TaskStatusPending, rec.Status)
		assert.Equal(t, domain.TaskStageQueued, rec.Stage)
		assert.Equal(t, 0, rec.Progress)
		assert.True(t, strings.HasPrefix(rec.TaskID, "u1:"))
		assert.Equal(t, rec.CreatedAt, rec.UpdatedAt)
		assert.WithinDuration(t, time.Now().UTC(), rec.CreatedAt, time.Minute)
		assert.NoError(t, rec.Validate())
		assert.True(t, rec.IsActive())
	})

	t.Run("empty user ID", func(t *testing.T) {
		t.Parallel()

		_, err := domain.NewTaskRecord("", domain.TaskKindGenerateParagraphs, domain.InputHandles{})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("user ID with separator", func(t *testing.T) {
		t.Parallel()

		_, err := domain.NewTaskRecord("a:b", domain.TaskKindGenerateParagraphs, domain.InputHandles{})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("unknown kind", func(t *testing.T) {
		t.Parallel()

		_, err := domain.NewTaskRecord("u1", domain.TaskKind("mystery"), domain.InputHandles{})
		assert.ErrorIs(t, err, domain.ErrInvalidTaskKind)
	})
}

func TestTaskOwner(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		taskID  string
		owner   string
		wantErr bool
	}{
		{name: "simple", taskID: "u1:abc123", owner: "u1"},
		{name: "owner containing colon", taskID: "org:u1:abc123", owner: "org:u1"},
		{name: "no separator", taskID: "abc123", wantErr: true},
		{name: "empty owner", taskID: ":abc123", wantErr: true},
		{name: "empty suffix", taskID: "u1:", wantErr: true},
		{name: "empty", taskID: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			owner, err := domain.TaskOwner(tt.taskID)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidTaskID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.owner, owner)
		})
	}
}

func TestOwnedBy(t *testing.T) {
	t.Parallel()

	rec, err := domain.NewTaskRecord("u1", domain.TaskKindAlignPDFVisuals, domain.InputHandles{})
	require.NoError(t, err)

	assert.True(t, domain.OwnedBy(rec.TaskID, "u1"))
	assert.False(t, domain.OwnedBy(rec.TaskID, "u2"))
	assert.False(t, domain.OwnedBy("garbage", "u1"))
}

func TestTaskStatusIsTerminal(t *testing.T) {
	t.Parallel()

	assert.False(t, domain.TaskStatusPending.IsTerminal())
	assert.False(t, domain.TaskStatusProcessing.IsTerminal())
	assert.True(t, domain.TaskStatusCompleted.IsTerminal())
	assert.True(t, domain.TaskStatusFailed.IsTerminal())
	assert.True(t, domain.TaskStatusCancelled.IsTerminal())
}

func TestTaskStageOrd(t *testing.T) {
	t.Parallel()

	stages := []domain.TaskStage{
		domain.TaskStageQueued,
		domain.TaskStageTranscribing,
		domain.TaskStageProcessingLLM,
		domain.TaskStageAligning,
		domain.TaskStageCompleted,
	}
	for i := 1; i < len(stages); i++ {
		assert.Greater(t, stages[i].Ord(), stages[i-1].Ord(),
			"stage %s should order after %s", stages[i], stages[i-1])
	}
	assert.Equal(t, -1, domain.TaskStage("bogus").Ord())
}

func TestTaskRecordValidate(t *testing.T) {
	t.Parallel()

	valid := func() *domain.TaskRecord {
		rec, err := domain.NewTaskRecord("u1", domain.TaskKindGenerateParagraphs, domain.InputHandles{})
		require.NoError(t, err)
		return rec
	}

	t.Run("owner mismatch", func(t *testing.T) {
		t.Parallel()
		rec := valid()
		rec.UserID = "u2"
		assert.ErrorIs(t, rec.Validate(), domain.ErrInvalidTaskID)
	})

	t.Run("bad status", func(t *testing.T) {
		t.Parallel()
		rec := valid()
		rec.Status = "sleeping"
		assert.ErrorIs(t, rec.Validate(), domain.ErrInvalidStatus)
	})

	t.Run("bad stage", func(t *testing.T) {
		t.Parallel()
		rec := valid()
		rec.Stage = "warp"
		assert.ErrorIs(t, rec.Validate(), domain.ErrInvalidStage)
	})

	t.Run("progress out of range", func(t *testing.T) {
		t.Parallel()
		rec := valid()
		rec.Progress = 101
		assert.ErrorIs(t, rec.Validate(), domain.ErrInvalidProgress)
	})
}
