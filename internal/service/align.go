package service

import (
	"fmt"
	"strings"

	"github.com/mbarlow/lectern-api/internal/domain"
)

// alignParagraphs walks the transcript word stream and assigns each
// generated paragraph the contiguous run of words its text covers, giving
// every paragraph start/end times and every visual an anchor time.
//
// The generator is instructed to reproduce the script verbatim when
// splitting it into paragraphs, so the concatenated paragraph texts must
// cover the transcript word-for-word. When they do not, the content cannot
// be trusted and the whole task fails with a named mismatch.
func alignParagraphs(transcript *domain.Transcript, generated *domain.GeneratedContent) ([]domain.Paragraph, error) {
	words := transcript.Words
	paragraphs := make([]domain.Paragraph, 0, len(generated.Paragraphs))

	wordIdx := 0
	for _, gp := range generated.Paragraphs {
		tokens := strings.Fields(gp.Text)
		if len(tokens) == 0 {
			return nil, fmt.Errorf("%w: paragraph %d is empty", ErrAlignmentMismatch, gp.Index)
		}
		if wordIdx+len(tokens) > len(words) {
			return nil, fmt.Errorf(
				"%w: paragraph %d needs words %d-%d but transcript has only %d words",
				ErrAlignmentMismatch, gp.Index, wordIdx, wordIdx+len(tokens)-1, len(words))
		}

		paragraphWords := words[wordIdx : wordIdx+len(tokens)]

		var visual *domain.Visual
		if gp.Visual != nil {
			anchored, err := anchorVisual(gp.Visual, paragraphWords)
			if err != nil {
				return nil, fmt.Errorf("paragraph %d: %w", gp.Index, err)
			}
			visual = anchored
		}

		paragraphs = append(paragraphs, domain.Paragraph{
			ID:        gp.Index,
			Text:      gp.Text,
			StartTime: paragraphWords[0].Start,
			EndTime:   paragraphWords[len(paragraphWords)-1].End,
			Words:     paragraphWords,
			Keywords:  gp.Keywords,
			Visual:    visual,
		})
		wordIdx += len(tokens)
	}

	if wordIdx != len(words) {
		return nil, fmt.Errorf(
			"%w: paragraphs cover %d words but transcript has %d",
			ErrAlignmentMismatch, wordIdx, len(words))
	}

	return paragraphs, nil
}

// anchorVisual finds the visual's start sentence inside the paragraph's
// words and stamps the visual with the matching word's start time.
func anchorVisual(v *domain.GeneratedVisual, paragraphWords []domain.WordTimestamp) (*domain.Visual, error) {
	anchor := strings.Fields(v.StartSentence)
	if len(anchor) == 0 || len(anchor) > len(paragraphWords) {
		return nil, fmt.Errorf("%w: start sentence %q", ErrVisualAnchorNotFound, v.StartSentence)
	}

	for i := 0; i+len(anchor) <= len(paragraphWords); i++ {
		if wordsMatch(paragraphWords[i:i+len(anchor)], anchor) {
			return &domain.Visual{
				Type:      v.Type,
				Content:   v.Content,
				StartTime: paragraphWords[i].Start,
			}, nil
		}
	}

	return nil, fmt.Errorf("%w: start sentence %q", ErrVisualAnchorNotFound, v.StartSentence)
}

func wordsMatch(words []domain.WordTimestamp, tokens []string) bool {
	for i, tok := range tokens {
		if !strings.EqualFold(normalizeWord(words[i].Word), normalizeWord(tok)) {
			return false
		}
	}
	return true
}

// normalizeWord strips surrounding punctuation so transcription artifacts
// ("word," vs "word") do not break anchoring.
func normalizeWord(w string) string {
	return strings.Trim(strings.TrimSpace(w), ".,;:!?\"'()[]")
}
