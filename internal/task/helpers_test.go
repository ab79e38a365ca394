package task

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mbarlow/lectern-api/internal/domain"
	"github.com/mbarlow/lectern-api/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTranscript(text string) *domain.Transcript {
	tokens := strings.Fields(text)
	words := make([]domain.WordTimestamp, len(tokens))
	for i, tok := range tokens {
		words[i] = domain.WordTimestamp{Word: tok, Start: float64(i), End: float64(i) + 0.9}
	}
	return &domain.Transcript{Words: words}
}

// mockPipeline implements PipelineRunner with overridable phases. The
// defaults produce a minimal successful pass.
type mockPipeline struct {
	TranscribeFn    func(ctx context.Context, kind domain.TaskKind, inputs domain.InputHandles) (*service.TranscriptBundle, error)
	GenerateFn      func(ctx context.Context, kind domain.TaskKind, bundle *service.TranscriptBundle) (*domain.GeneratedContent, error)
	AlignAndStoreFn func(ctx context.Context, bundle *service.TranscriptBundle, generated *domain.GeneratedContent) (*domain.EducationalContent, error)
	RunFn           func(ctx context.Context, kind domain.TaskKind, inputs domain.InputHandles) (*domain.EducationalContent, error)
}

func (p *mockPipeline) Transcribe(ctx context.Context, kind domain.TaskKind, inputs domain.InputHandles) (*service.TranscriptBundle, error) {
	if p.TranscribeFn != nil {
		return p.TranscribeFn(ctx, kind, inputs)
	}
	return &service.TranscriptBundle{
		Script:     "hello world",
		Transcript: testTranscript("hello world"),
	}, nil
}

func (p *mockPipeline) Generate(ctx context.Context, kind domain.TaskKind, bundle *service.TranscriptBundle) (*domain.GeneratedContent, error) {
	if p.GenerateFn != nil {
		return p.GenerateFn(ctx, kind, bundle)
	}
	return &domain.GeneratedContent{
		Paragraphs: []domain.GeneratedParagraph{{Index: 0, Text: bundle.Script}},
	}, nil
}

func (p *mockPipeline) AlignAndStore(ctx context.Context, bundle *service.TranscriptBundle, generated *domain.GeneratedContent) (*domain.EducationalContent, error) {
	if p.AlignAndStoreFn != nil {
		return p.AlignAndStoreFn(ctx, bundle, generated)
	}
	return &domain.EducationalContent{
		Paragraphs: []domain.Paragraph{{
			ID:    0,
			Text:  bundle.Script,
			Words: bundle.Transcript.Words,
		}},
	}, nil
}

func (p *mockPipeline) Run(ctx context.Context, kind domain.TaskKind, inputs domain.InputHandles) (*domain.EducationalContent, error) {
	if p.RunFn != nil {
		return p.RunFn(ctx, kind, inputs)
	}
	return &domain.EducationalContent{
		Paragraphs: []domain.Paragraph{{ID: 0, Text: "sync"}},
	}, nil
}

func newTestManager(t *testing.T, s *MockTaskStore, pipeline *mockPipeline, userLimit, globalLimit int) *Manager {
	t.Helper()

	if s == nil {
		s = NewMockTaskStore()
	}
	if pipeline == nil {
		pipeline = &mockPipeline{}
	}

	admission := NewAdmissionController(s, userLimit, globalLimit, testLogger())
	m, err := NewManager(s, admission, pipeline, nil, 100, testLogger())
	require.NoError(t, err)
	return m
}
