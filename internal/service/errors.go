package service

import "errors"

// Pipeline errors. These are captured by the execution unit and recorded on
// the task as a failure; they never propagate to a caller as a panic or an
// unhandled fault.
var (
	// ErrAlignmentMismatch is returned when the generated paragraphs do not
	// line up with the transcript word stream (word counts disagree).
	ErrAlignmentMismatch = errors.New("paragraph alignment mismatch")

	// ErrVisualAnchorNotFound is returned when a visual's start sentence
	// cannot be located inside its paragraph's words.
	ErrVisualAnchorNotFound = errors.New("visual anchor not found in paragraph")

	// ErrEmptyTranscript is returned when the transcription collaborator
	// produced no words for the media file.
	ErrEmptyTranscript = errors.New("transcript contains no words")

	// ErrEmptyGeneration is returned when the LLM produced no paragraphs.
	ErrEmptyGeneration = errors.New("generation produced no paragraphs")

	// ErrMissingPDFHandle is returned when a PDF-visuals task kind was
	// requested without a PDF input handle.
	ErrMissingPDFHandle = errors.New("task kind requires a PDF input handle")
)
