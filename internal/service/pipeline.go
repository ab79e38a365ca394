package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mbarlow/lectern-api/internal/domain"
)

// Dependency validation errors.
var (
	ErrNilFileStore    = errors.New("file store cannot be nil")
	ErrNilTranscriber  = errors.New("transcriber cannot be nil")
	ErrNilGenerator    = errors.New("generator cannot be nil")
	ErrNilContentStore = errors.New("content store cannot be nil")
	ErrNilLogger       = errors.New("logger cannot be nil")
)

// TranscriptBundle carries the outputs of the transcription phase into the
// later phases.
type TranscriptBundle struct {
	Script     string
	Transcript *domain.Transcript
	PDFVisuals []domain.GeneratedVisual
}

// Pipeline orchestrates the media-processing phases. Each phase is exposed
// separately so the execution unit can publish stage progress and observe
// cancellation between them.
type Pipeline struct {
	files        FileStore
	transcriber  Transcriber
	generator    ContentGenerator
	extractor    VisualExtractor
	screener     ImageScreener
	contentStore ContentStore
	logger       *slog.Logger
}

// NewPipeline creates a Pipeline. The extractor and screener are only
// required by the PDF and copyright task kinds respectively; passing nil
// disables those kinds.
func NewPipeline(
	files FileStore,
	transcriber Transcriber,
	generator ContentGenerator,
	extractor VisualExtractor,
	screener ImageScreener,
	contentStore ContentStore,
	logger *slog.Logger,
) (*Pipeline, error) {
	if files == nil {
		return nil, ErrNilFileStore
	}
	if transcriber == nil {
		return nil, ErrNilTranscriber
	}
	if generator == nil {
		return nil, ErrNilGenerator
	}
	if contentStore == nil {
		return nil, ErrNilContentStore
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	return &Pipeline{
		files:        files,
		transcriber:  transcriber,
		generator:    generator,
		extractor:    extractor,
		screener:     screener,
		contentStore: contentStore,
		logger:       logger,
	}, nil
}

// Transcribe fetches the subtitle artifact, transcribes the media file, and
// extracts PDF visuals for the kinds that use them.
func (p *Pipeline) Transcribe(ctx context.Context, kind domain.TaskKind, inputs domain.InputHandles) (*TranscriptBundle, error) {
	raw, err := p.files.Fetch(ctx, inputs.Subtitle)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subtitle artifact: %w", err)
	}

	transcript, err := p.transcriber.Transcribe(ctx, inputs.Media)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}
	if transcript == nil || len(transcript.Words) == 0 {
		return nil, ErrEmptyTranscript
	}

	bundle := &TranscriptBundle{
		Script:     extractSRTText(raw),
		Transcript: transcript,
	}

	if kind == domain.TaskKindAlignPDFVisuals || kind == domain.TaskKindAlignPDFCopyright {
		if inputs.PDF == "" {
			return nil, ErrMissingPDFHandle
		}
		if p.extractor == nil {
			return nil, fmt.Errorf("task kind %q is not enabled: no visual extractor configured", kind)
		}
		visuals, err := p.extractor.Extract(ctx, inputs.PDF)
		if err != nil {
			return nil, fmt.Errorf("PDF visual extraction failed: %w", err)
		}
		bundle.PDFVisuals = visuals
	}

	return bundle, nil
}

// Generate runs the LLM over the script and post-processes its suggestions:
// PDF-extracted visuals fill paragraphs the generator left bare, and for the
// copyright-screened kind every suggested image is vetted before use.
func (p *Pipeline) Generate(ctx context.Context, kind domain.TaskKind, bundle *TranscriptBundle) (*domain.GeneratedContent, error) {
	generated, err := p.generator.Generate(ctx, bundle.Script)
	if err != nil {
		return nil, fmt.Errorf("content generation failed: %w", err)
	}
	if generated == nil || len(generated.Paragraphs) == 0 {
		return nil, ErrEmptyGeneration
	}

	if len(bundle.PDFVisuals) > 0 {
		fillVisuals(generated, bundle.PDFVisuals)
	}

	if kind == domain.TaskKindAlignPDFCopyright {
		if p.screener == nil {
			return nil, fmt.Errorf("task kind %q is not enabled: no image screener configured", kind)
		}
		if err := p.screenImages(ctx, generated); err != nil {
			return nil, err
		}
	}

	return generated, nil
}

// AlignAndStore aligns the generated paragraphs against the transcript
// timeline and persists the finished content.
func (p *Pipeline) AlignAndStore(ctx context.Context, bundle *TranscriptBundle, generated *domain.GeneratedContent) (*domain.EducationalContent, error) {
	paragraphs, err := alignParagraphs(bundle.Transcript, generated)
	if err != nil {
		return nil, err
	}

	content := &domain.EducationalContent{Paragraphs: paragraphs}
	if err := p.contentStore.SaveContent(ctx, content); err != nil {
		return nil, fmt.Errorf("failed to persist content: %w", err)
	}

	p.logger.InfoContext(ctx, "content persisted", "paragraphs", len(paragraphs))
	return content, nil
}

// Run executes all phases back to back. Used by the legacy synchronous
// endpoint; background tasks drive the phases individually.
func (p *Pipeline) Run(ctx context.Context, kind domain.TaskKind, inputs domain.InputHandles) (*domain.EducationalContent, error) {
	bundle, err := p.Transcribe(ctx, kind, inputs)
	if err != nil {
		return nil, err
	}
	generated, err := p.Generate(ctx, kind, bundle)
	if err != nil {
		return nil, err
	}
	return p.AlignAndStore(ctx, bundle, generated)
}

// fillVisuals assigns extracted PDF visuals, in order, to paragraphs the
// generator left without one.
func fillVisuals(generated *domain.GeneratedContent, visuals []domain.GeneratedVisual) {
	next := 0
	for i := range generated.Paragraphs {
		if next >= len(visuals) {
			return
		}
		if generated.Paragraphs[i].Visual == nil {
			v := visuals[next]
			generated.Paragraphs[i].Visual = &v
			next++
		}
	}
}

// imageContent is the shape of an image visual's opaque content payload.
type imageContent struct {
	Type  string `json:"type"`
	Src   string `json:"src"`
	Alt   string `json:"alt,omitempty"`
	Title string `json:"title,omitempty"`
}

// screenImages vets every suggested image visual, replacing sources the
// screener rejects.
func (p *Pipeline) screenImages(ctx context.Context, generated *domain.GeneratedContent) error {
	for i := range generated.Paragraphs {
		visual := generated.Paragraphs[i].Visual
		if visual == nil || visual.Type != domain.VisualTypeImage {
			continue
		}

		var img imageContent
		if err := json.Unmarshal(visual.Content, &img); err != nil {
			return fmt.Errorf("paragraph %d has malformed image content: %w",
				generated.Paragraphs[i].Index, err)
		}
		if img.Src == "" {
			continue
		}

		src, err := p.screener.Screen(ctx, img.Src)
		if err != nil {
			return fmt.Errorf("copyright screening failed for paragraph %d: %w",
				generated.Paragraphs[i].Index, err)
		}
		if src == img.Src {
			continue
		}

		img.Src = src
		content, err := json.Marshal(img)
		if err != nil {
			return fmt.Errorf("failed to re-encode screened image content: %w", err)
		}
		visual.Content = content
	}
	return nil
}
