package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbarlow/lectern-api/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingHandler captures the events it receives and optionally fails.
type recordingHandler struct {
	received []*TaskEvent
	err      error
}

func (h *recordingHandler) HandleEvent(_ context.Context, event *TaskEvent) error {
	h.received = append(h.received, event)
	return h.err
}

func sampleEvent(t *testing.T) *TaskEvent {
	t.Helper()
	rec, err := domain.NewTaskRecord("alice", domain.TaskKindGenerateParagraphs, domain.InputHandles{
		Subtitle: "sub-1",
		Media:    "media-1",
	})
	require.NoError(t, err)
	return NewTaskEvent(rec)
}

func TestInMemoryEmitter(t *testing.T) {
	t.Parallel()

	t.Run("delivers to all registered handlers", func(t *testing.T) {
		t.Parallel()

		emitter := NewInMemoryEmitter(testLogger())
		first := &recordingHandler{}
		second := &recordingHandler{}
		emitter.RegisterHandler(first)
		emitter.RegisterHandler(second)

		event := sampleEvent(t)
		require.NoError(t, emitter.EmitEvent(context.Background(), event))

		require.Len(t, first.received, 1)
		require.Len(t, second.received, 1)
		assert.Equal(t, event.TaskID, first.received[0].TaskID)
	})

	t.Run("failing handler does not block the rest", func(t *testing.T) {
		t.Parallel()

		emitter := NewInMemoryEmitter(testLogger())
		failing := &recordingHandler{err: errors.New("handler broke")}
		healthy := &recordingHandler{}
		emitter.RegisterHandler(failing)
		emitter.RegisterHandler(healthy)

		err := emitter.EmitEvent(context.Background(), sampleEvent(t))

		assert.ErrorContains(t, err, "handler broke")
		assert.Len(t, healthy.received, 1)
	})

	t.Run("no handlers is not an error", func(t *testing.T) {
		t.Parallel()

		emitter := NewInMemoryEmitter(testLogger())
		assert.NoError(t, emitter.EmitEvent(context.Background(), sampleEvent(t)))
	})
}

func TestNewTaskEvent(t *testing.T) {
	t.Parallel()

	rec, err := domain.NewTaskRecord("bob", domain.TaskKindAlignPDFVisuals, domain.InputHandles{
		Subtitle: "sub-2",
		Media:    "media-2",
		PDF:      "pdf-2",
	})
	require.NoError(t, err)

	event := NewTaskEvent(rec)

	assert.NotEqual(t, "", event.ID.String())
	assert.Equal(t, rec.TaskID, event.TaskID)
	assert.Equal(t, "bob", event.UserID)
	assert.Equal(t, domain.TaskKindAlignPDFVisuals, event.Kind)
	assert.Equal(t, domain.TaskStatusPending, event.Status)
	assert.Equal(t, domain.TaskStageQueued, event.Stage)
	assert.False(t, event.OccurredAt.IsZero())
}

func TestLogHandler(t *testing.T) {
	t.Parallel()

	handler := NewLogHandler(testLogger())
	assert.NoError(t, handler.HandleEvent(context.Background(), sampleEvent(t)))
}
