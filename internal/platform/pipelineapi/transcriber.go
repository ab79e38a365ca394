package pipelineapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mbarlow/lectern-api/internal/domain"
)

// TranscriberClient calls the transcription service to produce word-level
// timestamps for a media artifact. Implements service.Transcriber.
type TranscriberClient struct {
	client
}

// NewTranscriberClient creates a client for the transcription service at
// baseURL.
func NewTranscriberClient(baseURL string, httpClient *http.Client) *TranscriberClient {
	return &TranscriberClient{client: newClient(baseURL, httpClient)}
}

type transcribeRequest struct {
	MediaHandle string `json:"media_handle"`
}

type transcribeResponse struct {
	Words []domain.WordTimestamp `json:"words"`
}

// Transcribe submits the media artifact for transcription and waits for the
// word-level result.
func (c *TranscriberClient) Transcribe(ctx context.Context, mediaHandle string) (*domain.Transcript, error) {
	var resp transcribeResponse
	err := c.postJSON(ctx, "/transcribe", transcribeRequest{MediaHandle: mediaHandle}, &resp, nil)
	if err != nil {
		return nil, fmt.Errorf("transcription service: %w", err)
	}
	return &domain.Transcript{Words: resp.Words}, nil
}
