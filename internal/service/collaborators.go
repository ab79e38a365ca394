package service

import (
	"context"

	"github.com/mbarlow/lectern-api/internal/domain"
)

// FileStore fetches uploaded input artifacts by their opaque handle.
// The artifacts live in the external file-storage collaborator; tasks only
// carry handles.
type FileStore interface {
	// Fetch returns the raw contents of the artifact behind the handle.
	Fetch(ctx context.Context, handle string) ([]byte, error)
}

// Transcriber produces a word-level transcript for a media artifact.
type Transcriber interface {
	Transcribe(ctx context.Context, mediaHandle string) (*domain.Transcript, error)
}

// ContentGenerator turns a script into structured paragraphs with keyword
// and visual suggestions. Implemented by the Gemini-backed generator.
type ContentGenerator interface {
	Generate(ctx context.Context, script string) (*domain.GeneratedContent, error)
}

// VisualExtractor pulls visual elements out of an uploaded PDF so they can
// be offered to the aligner instead of (or alongside) generated ones.
type VisualExtractor interface {
	Extract(ctx context.Context, pdfHandle string) ([]domain.GeneratedVisual, error)
}

// ImageScreener checks suggested image visuals for copyright problems and
// returns a replacement reference when the original cannot be used.
type ImageScreener interface {
	// Screen returns the image reference to use: the original URL when it
	// is safe, or a substitute found by the search collaborator.
	Screen(ctx context.Context, imageURL string) (string, error)
}

// ContentStore persists finished educational content into the content
// database.
type ContentStore interface {
	SaveContent(ctx context.Context, content *domain.EducationalContent) error
}
