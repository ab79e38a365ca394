package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbarlow/lectern-api/internal/domain"
)

type mockFileStore struct {
	FetchFn func(ctx context.Context, handle string) ([]byte, error)
}

func (m *mockFileStore) Fetch(ctx context.Context, handle string) ([]byte, error) {
	if m.FetchFn != nil {
		return m.FetchFn(ctx, handle)
	}
	return []byte("1\n00:00:01,000 --> 00:00:02,000\nstub script\n"), nil
}

type mockTranscriber struct {
	TranscribeFn func(ctx context.Context, mediaHandle string) (*domain.Transcript, error)
}

func (m *mockTranscriber) Transcribe(ctx context.Context, mediaHandle string) (*domain.Transcript, error) {
	if m.TranscribeFn != nil {
		return m.TranscribeFn(ctx, mediaHandle)
	}
	return makeTranscript("stub script", 0), nil
}

type mockGenerator struct {
	GenerateFn func(ctx context.Context, script string) (*domain.GeneratedContent, error)
}

func (m *mockGenerator) Generate(ctx context.Context, script string) (*domain.GeneratedContent, error) {
	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, script)
	}
	return &domain.GeneratedContent{
		Paragraphs: []domain.GeneratedParagraph{{Index: 0, Text: script}},
	}, nil
}

type mockExtractor struct {
	ExtractFn func(ctx context.Context, pdfHandle string) ([]domain.GeneratedVisual, error)
}

func (m *mockExtractor) Extract(ctx context.Context, pdfHandle string) ([]domain.GeneratedVisual, error) {
	if m.ExtractFn != nil {
		return m.ExtractFn(ctx, pdfHandle)
	}
	return nil, nil
}

type mockScreener struct {
	ScreenFn func(ctx context.Context, imageURL string) (string, error)
}

func (m *mockScreener) Screen(ctx context.Context, imageURL string) (string, error) {
	if m.ScreenFn != nil {
		return m.ScreenFn(ctx, imageURL)
	}
	return imageURL, nil
}

type mockContentStore struct {
	SaveContentFn func(ctx context.Context, content *domain.EducationalContent) error
	saved         *domain.EducationalContent
}

func (m *mockContentStore) SaveContent(ctx context.Context, content *domain.EducationalContent) error {
	m.saved = content
	if m.SaveContentFn != nil {
		return m.SaveContentFn(ctx, content)
	}
	return nil
}

func newTestPipeline(t *testing.T) (*Pipeline, *mockFileStore, *mockTranscriber, *mockGenerator, *mockExtractor, *mockScreener, *mockContentStore) {
	t.Helper()

	files := &mockFileStore{}
	transcriber := &mockTranscriber{}
	generator := &mockGenerator{}
	extractor := &mockExtractor{}
	screener := &mockScreener{}
	contentStore := &mockContentStore{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	p, err := NewPipeline(files, transcriber, generator, extractor, screener, contentStore, logger)
	require.NoError(t, err)
	return p, files, transcriber, generator, extractor, screener, contentStore
}

func TestNewPipeline(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("rejects nil required dependencies", func(t *testing.T) {
		t.Parallel()

		_, err := NewPipeline(nil, &mockTranscriber{}, &mockGenerator{}, nil, nil, &mockContentStore{}, logger)
		assert.ErrorIs(t, err, ErrNilFileStore)

		_, err = NewPipeline(&mockFileStore{}, nil, &mockGenerator{}, nil, nil, &mockContentStore{}, logger)
		assert.ErrorIs(t, err, ErrNilTranscriber)

		_, err = NewPipeline(&mockFileStore{}, &mockTranscriber{}, nil, nil, nil, &mockContentStore{}, logger)
		assert.ErrorIs(t, err, ErrNilGenerator)

		_, err = NewPipeline(&mockFileStore{}, &mockTranscriber{}, &mockGenerator{}, nil, nil, nil, logger)
		assert.ErrorIs(t, err, ErrNilContentStore)

		_, err = NewPipeline(&mockFileStore{}, &mockTranscriber{}, &mockGenerator{}, nil, nil, &mockContentStore{}, nil)
		assert.ErrorIs(t, err, ErrNilLogger)
	})

	t.Run("extractor and screener are optional", func(t *testing.T) {
		t.Parallel()

		p, err := NewPipeline(&mockFileStore{}, &mockTranscriber{}, &mockGenerator{}, nil, nil, &mockContentStore{}, logger)
		require.NoError(t, err)
		assert.NotNil(t, p)
	})
}

func TestPipelineTranscribe(t *testing.T) {
	t.Parallel()

	inputs := domain.InputHandles{Subtitle: "sub-1", Media: "media-1"}

	t.Run("builds script and transcript", func(t *testing.T) {
		t.Parallel()

		p, files, transcriber, _, _, _, _ := newTestPipeline(t)
		files.FetchFn = func(_ context.Context, handle string) ([]byte, error) {
			assert.Equal(t, "sub-1", handle)
			return []byte("1\n00:00:01,000 --> 00:00:02,000\nhello world\n"), nil
		}
		transcriber.TranscribeFn = func(_ context.Context, handle string) (*domain.Transcript, error) {
			assert.Equal(t, "media-1", handle)
			return makeTranscript("hello world", 0), nil
		}

		bundle, err := p.Transcribe(context.Background(), domain.TaskKindGenerateParagraphs, inputs)
		require.NoError(t, err)
		assert.Equal(t, "hello world", bundle.Script)
		assert.Len(t, bundle.Transcript.Words, 2)
		assert.Empty(t, bundle.PDFVisuals)
	})

	t.Run("fails on empty transcript", func(t *testing.T) {
		t.Parallel()

		p, _, transcriber, _, _, _, _ := newTestPipeline(t)
		transcriber.TranscribeFn = func(context.Context, string) (*domain.Transcript, error) {
			return &domain.Transcript{}, nil
		}

		_, err := p.Transcribe(context.Background(), domain.TaskKindGenerateParagraphs, inputs)
		assert.ErrorIs(t, err, ErrEmptyTranscript)
	})

	t.Run("propagates fetch failure", func(t *testing.T) {
		t.Parallel()

		p, files, _, _, _, _, _ := newTestPipeline(t)
		files.FetchFn = func(context.Context, string) ([]byte, error) {
			return nil, errors.New("storage unavailable")
		}

		_, err := p.Transcribe(context.Background(), domain.TaskKindGenerateParagraphs, inputs)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "subtitle artifact")
	})

	t.Run("extracts PDF visuals for PDF kinds", func(t *testing.T) {
		t.Parallel()

		p, _, _, _, extractor, _, _ := newTestPipeline(t)
		extractor.ExtractFn = func(_ context.Context, handle string) ([]domain.GeneratedVisual, error) {
			assert.Equal(t, "pdf-1", handle)
			return []domain.GeneratedVisual{
				{Type: domain.VisualTypeImage, Content: json.RawMessage(`{}`), StartSentence: "stub"},
			}, nil
		}

		withPDF := domain.InputHandles{Subtitle: "sub-1", Media: "media-1", PDF: "pdf-1"}
		bundle, err := p.Transcribe(context.Background(), domain.TaskKindAlignPDFVisuals, withPDF)
		require.NoError(t, err)
		assert.Len(t, bundle.PDFVisuals, 1)
	})

	t.Run("PDF kind without a PDF handle fails", func(t *testing.T) {
		t.Parallel()

		p, _, _, _, _, _, _ := newTestPipeline(t)
		_, err := p.Transcribe(context.Background(), domain.TaskKindAlignPDFVisuals, inputs)
		assert.ErrorIs(t, err, ErrMissingPDFHandle)
	})
}

func TestPipelineGenerate(t *testing.T) {
	t.Parallel()

	t.Run("fails on empty generation", func(t *testing.T) {
		t.Parallel()

		p, _, _, generator, _, _, _ := newTestPipeline(t)
		generator.GenerateFn = func(context.Context, string) (*domain.GeneratedContent, error) {
			return &domain.GeneratedContent{}, nil
		}

		bundle := &TranscriptBundle{Script: "x", Transcript: makeTranscript("x", 0)}
		_, err := p.Generate(context.Background(), domain.TaskKindGenerateParagraphs, bundle)
		assert.ErrorIs(t, err, ErrEmptyGeneration)
	})

	t.Run("fills bare paragraphs with PDF visuals in order", func(t *testing.T) {
		t.Parallel()

		p, _, _, generator, _, _, _ := newTestPipeline(t)
		generated := &domain.GeneratedContent{
			Paragraphs: []domain.GeneratedParagraph{
				{Index: 0, Text: "a"},
				{Index: 1, Text: "b", Visual: &domain.GeneratedVisual{Type: domain.VisualTypeChart, StartSentence: "b"}},
				{Index: 2, Text: "c"},
			},
		}
		generator.GenerateFn = func(context.Context, string) (*domain.GeneratedContent, error) {
			return generated, nil
		}

		bundle := &TranscriptBundle{
			Script:     "a b c",
			Transcript: makeTranscript("a b c", 0),
			PDFVisuals: []domain.GeneratedVisual{
				{Type: domain.VisualTypeImage, StartSentence: "a"},
				{Type: domain.VisualTypeTable, StartSentence: "c"},
			},
		}

		out, err := p.Generate(context.Background(), domain.TaskKindAlignPDFVisuals, bundle)
		require.NoError(t, err)
		require.NotNil(t, out.Paragraphs[0].Visual)
		assert.Equal(t, domain.VisualTypeImage, out.Paragraphs[0].Visual.Type)
		assert.Equal(t, domain.VisualTypeChart, out.Paragraphs[1].Visual.Type)
		require.NotNil(t, out.Paragraphs[2].Visual)
		assert.Equal(t, domain.VisualTypeTable, out.Paragraphs[2].Visual.Type)
	})

	t.Run("screens image visuals for the copyright kind", func(t *testing.T) {
		t.Parallel()

		p, _, _, generator, _, screener, _ := newTestPipeline(t)
		generator.GenerateFn = func(context.Context, string) (*domain.GeneratedContent, error) {
			return &domain.GeneratedContent{
				Paragraphs: []domain.GeneratedParagraph{
					{
						Index: 0,
						Text:  "a",
						Visual: &domain.GeneratedVisual{
							Type:          domain.VisualTypeImage,
							Content:       json.RawMessage(`{"type":"image","src":"https://example.com/a.png"}`),
							StartSentence: "a",
						},
					},
				},
			}, nil
		}
		screener.ScreenFn = func(_ context.Context, url string) (string, error) {
			assert.Equal(t, "https://example.com/a.png", url)
			return "https://safe.example.com/b.png", nil
		}

		bundle := &TranscriptBundle{Script: "a", Transcript: makeTranscript("a", 0)}
		out, err := p.Generate(context.Background(), domain.TaskKindAlignPDFCopyright, bundle)
		require.NoError(t, err)

		var img imageContent
		require.NoError(t, json.Unmarshal(out.Paragraphs[0].Visual.Content, &img))
		assert.Equal(t, "https://safe.example.com/b.png", img.Src)
	})

	t.Run("screening failure fails generation", func(t *testing.T) {
		t.Parallel()

		p, _, _, generator, _, screener, _ := newTestPipeline(t)
		generator.GenerateFn = func(context.Context, string) (*domain.GeneratedContent, error) {
			return &domain.GeneratedContent{
				Paragraphs: []domain.GeneratedParagraph{
					{
						Index: 0,
						Text:  "a",
						Visual: &domain.GeneratedVisual{
							Type:    domain.VisualTypeImage,
							Content: json.RawMessage(`{"type":"image","src":"https://example.com/a.png"}`),
						},
					},
				},
			}, nil
		}
		screener.ScreenFn = func(context.Context, string) (string, error) {
			return "", errors.New("screening service down")
		}

		bundle := &TranscriptBundle{Script: "a", Transcript: makeTranscript("a", 0)}
		_, err := p.Generate(context.Background(), domain.TaskKindAlignPDFCopyright, bundle)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "copyright screening failed")
	})
}

func TestPipelineRun(t *testing.T) {
	t.Parallel()

	t.Run("full pass persists aligned content", func(t *testing.T) {
		t.Parallel()

		p, files, transcriber, generator, _, _, contentStore := newTestPipeline(t)
		files.FetchFn = func(context.Context, string) ([]byte, error) {
			return []byte("1\n00:00:00,000 --> 00:00:05,000\nthe quick brown fox\n"), nil
		}
		transcriber.TranscribeFn = func(context.Context, string) (*domain.Transcript, error) {
			return makeTranscript("the quick brown fox", 0), nil
		}
		generator.GenerateFn = func(_ context.Context, script string) (*domain.GeneratedContent, error) {
			return &domain.GeneratedContent{
				Paragraphs: []domain.GeneratedParagraph{{Index: 0, Text: script}},
			}, nil
		}

		inputs := domain.InputHandles{Subtitle: "s", Media: "m"}
		content, err := p.Run(context.Background(), domain.TaskKindGenerateParagraphs, inputs)
		require.NoError(t, err)
		require.Len(t, content.Paragraphs, 1)
		assert.Equal(t, "the quick brown fox", content.Paragraphs[0].Text)
		assert.NotNil(t, contentStore.saved)
	})

	t.Run("alignment mismatch surfaces and nothing is persisted", func(t *testing.T) {
		t.Parallel()

		p, _, transcriber, generator, _, _, contentStore := newTestPipeline(t)
		transcriber.TranscribeFn = func(context.Context, string) (*domain.Transcript, error) {
			return makeTranscript("short transcript", 0), nil
		}
		generator.GenerateFn = func(context.Context, string) (*domain.GeneratedContent, error) {
			return &domain.GeneratedContent{
				Paragraphs: []domain.GeneratedParagraph{
					{Index: 0, Text: "a much longer paragraph than the transcript"},
				},
			}, nil
		}

		inputs := domain.InputHandles{Subtitle: "s", Media: "m"}
		_, err := p.Run(context.Background(), domain.TaskKindGenerateParagraphs, inputs)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAlignmentMismatch)
		assert.Nil(t, contentStore.saved)
	})
}
