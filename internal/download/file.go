package download

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"albumsync/internal/fs"
	"albumsync/internal/syncer"
)

// FileDownloader copies file:// URLs or plain paths.
type FileDownloader struct{}

var _ syncer.Downloader = FileDownloader{}

func (FileDownloader) Download(ctx context.Context, rawURL, dest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Scheme == "file" {
		path = u.Path
	}

	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer src.Close()

	return fs.CopyAtomic(dest, src)
}
