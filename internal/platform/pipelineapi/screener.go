package pipelineapi

import (
	"context"
	"fmt"
	"net/http"
)

// ImageScreenerClient calls the image-search service's copyright screening
// endpoint. When a suggested image cannot be used, the service returns a
// license-safe replacement found by reverse search. Implements
// service.ImageScreener.
type ImageScreenerClient struct {
	client
	apiKey string
}

// NewImageScreenerClient creates a client for the image-search service at
// baseURL, authenticating with apiKey.
func NewImageScreenerClient(baseURL, apiKey string, httpClient *http.Client) *ImageScreenerClient {
	return &ImageScreenerClient{client: newClient(baseURL, httpClient), apiKey: apiKey}
}

type screenRequest struct {
	ImageURL string `json:"image_url"`
}

type screenResponse struct {
	Safe        bool   `json:"safe"`
	Replacement string `json:"replacement,omitempty"`
}

// Screen returns the image reference to use: the original URL when it is
// safe, or the service's replacement when it is not.
func (c *ImageScreenerClient) Screen(ctx context.Context, imageURL string) (string, error) {
	headers := map[string]string{"X-API-Key": c.apiKey}

	var resp screenResponse
	err := c.postJSON(ctx, "/screen", screenRequest{ImageURL: imageURL}, &resp, headers)
	if err != nil {
		return "", fmt.Errorf("image screening service: %w", err)
	}

	if resp.Safe {
		return imageURL, nil
	}
	if resp.Replacement == "" {
		return "", fmt.Errorf("image %q rejected with no replacement available", imageURL)
	}
	return resp.Replacement, nil
}
