package domain

import "encoding/json"

// WordTimestamp is one spoken word with its position in the media timeline.
type WordTimestamp struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Transcript is the word-level transcription of a media file, produced by
// the external transcription collaborator.
type Transcript struct {
	Words []WordTimestamp `json:"words"`
}

// KeywordType classifies an on-screen keyword.
type KeywordType string

// Keyword classifications produced by the generator.
const (
	KeywordTypeMain     KeywordType = "main"
	KeywordTypeKeyTerm  KeywordType = "key_terms"
	KeywordTypeCallout  KeywordType = "callouts"
	KeywordTypeWarning  KeywordType = "warnings"
)

// Keyword is a short on-screen text extracted from a paragraph.
type Keyword struct {
	Text string      `json:"text"`
	Type KeywordType `json:"type"`
}

// VisualType identifies the kind of visual suggested for a paragraph.
type VisualType string

// Supported visual kinds.
const (
	VisualTypeChart VisualType = "chart"
	VisualTypeImage VisualType = "image"
	VisualTypeTable VisualType = "table"
)

// Visual is a suggested on-screen visual anchored to a point in the media.
// Content is kept opaque: its shape depends on the visual type (chart spec,
// image reference, table rows).
type Visual struct {
	Type      VisualType      `json:"type"`
	Content   json.RawMessage `json:"content"`
	StartTime float64         `json:"start_time"`
}

// Paragraph is one aligned unit of generated educational content.
type Paragraph struct {
	ID        int             `json:"paragraph_id"`
	Text      string          `json:"paragraph_text"`
	StartTime float64         `json:"start_time"`
	EndTime   float64         `json:"end_time"`
	Words     []WordTimestamp `json:"words"`
	Keywords  []Keyword       `json:"keywords"`
	Visual    *Visual         `json:"visual,omitempty"`
}

// EducationalContent is the final output of the processing pipeline: the
// full set of aligned paragraphs for one media file.
type EducationalContent struct {
	CourseID   string      `json:"course_id,omitempty"`
	ChapterID  string      `json:"chapter_id,omitempty"`
	VideoName  string      `json:"video_name,omitempty"`
	Paragraphs []Paragraph `json:"paragraphs"`
}

// GeneratedVisual is a visual suggestion as produced by the LLM, before
// alignment. StartSentence is the short run of words the aligner searches
// for inside the paragraph to anchor the visual in time.
type GeneratedVisual struct {
	Type          VisualType      `json:"type"`
	Content       json.RawMessage `json:"content"`
	StartSentence string          `json:"start_sentence"`
}

// GeneratedParagraph is one paragraph as produced by the LLM, before
// alignment against the transcript.
type GeneratedParagraph struct {
	Index    int              `json:"paragraph_index"`
	Text     string           `json:"paragraph_text"`
	Keywords []Keyword        `json:"keywords"`
	Visual   *GeneratedVisual `json:"visuals,omitempty"`
}

// GeneratedContent is the raw LLM output for one script.
type GeneratedContent struct {
	Paragraphs []GeneratedParagraph `json:"paragraphs"`
}
