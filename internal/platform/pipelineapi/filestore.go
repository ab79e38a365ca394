package pipelineapi

import (
	"context"
	"net/http"
	"net/url"
)

// FileStoreClient fetches uploaded artifacts from the file-storage service.
// Implements service.FileStore.
type FileStoreClient struct {
	client
}

// NewFileStoreClient creates a client for the file-storage service at
// baseURL. Passing a nil httpClient uses a default with a generous timeout.
func NewFileStoreClient(baseURL string, httpClient *http.Client) *FileStoreClient {
	return &FileStoreClient{client: newClient(baseURL, httpClient)}
}

// Fetch returns the raw contents of the artifact behind the handle.
func (c *FileStoreClient) Fetch(ctx context.Context, handle string) ([]byte, error) {
	return c.getBytes(ctx, "/files/"+url.PathEscape(handle))
}
