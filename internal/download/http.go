// Package download implements item downloaders for the sync engine.
package download

import (
	"context"
	"fmt"
	"net/http"

	"albumsync/internal/fs"
	"albumsync/internal/syncer"
)

// HTTPDownloader fetches http(s) URLs.
type HTTPDownloader struct {
	client *http.Client
}

var _ syncer.Downloader = (*HTTPDownloader)(nil)

// NewHTTPDownloader creates a downloader. A nil client means http.DefaultClient.
func NewHTTPDownloader(client *http.Client) *HTTPDownloader {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPDownloader{client: client}
}

func (d *HTTPDownloader) Download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s: unexpected status %s", url, resp.Status)
	}
	return fs.CopyAtomic(dest, resp.Body)
}
