package pipelineapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mbarlow/lectern-api/internal/domain"
)

// VisualExtractorClient calls the file-storage service's PDF analysis
// endpoint to pull charts, tables, and images out of an uploaded PDF.
// Implements service.VisualExtractor.
type VisualExtractorClient struct {
	client
}

// NewVisualExtractorClient creates a client against the file-storage
// service at baseURL.
func NewVisualExtractorClient(baseURL string, httpClient *http.Client) *VisualExtractorClient {
	return &VisualExtractorClient{client: newClient(baseURL, httpClient)}
}

type extractRequest struct {
	PDFHandle string `json:"pdf_handle"`
}

type extractResponse struct {
	Visuals []domain.GeneratedVisual `json:"visuals"`
}

// Extract returns the visual elements found in the PDF, each carrying the
// start sentence the aligner anchors it with.
func (c *VisualExtractorClient) Extract(ctx context.Context, pdfHandle string) ([]domain.GeneratedVisual, error) {
	var resp extractResponse
	err := c.postJSON(ctx, "/pdf/extract-visuals", extractRequest{PDFHandle: pdfHandle}, &resp, nil)
	if err != nil {
		return nil, fmt.Errorf("visual extraction service: %w", err)
	}
	return resp.Visuals, nil
}
