package download

import (
	"context"
	"fmt"
	"net/url"

	"albumsync/internal/config"
	"albumsync/internal/syncer"
)

// Router dispatches each download by URL scheme. A URL without a scheme is
// treated as a local path.
type Router struct {
	byScheme map[string]syncer.Downloader
}

var _ syncer.Downloader = (*Router)(nil)

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{byScheme: make(map[string]syncer.Downloader)}
}

// Handle registers d for the given schemes.
func (r *Router) Handle(d syncer.Downloader, schemes ...string) *Router {
	for _, s := range schemes {
		r.byScheme[s] = d
	}
	return r
}

func (r *Router) Download(ctx context.Context, rawURL, dest string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parsing url: %w", err)
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "file"
	}

	d, ok := r.byScheme[scheme]
	if !ok {
		return fmt.Errorf("no downloader for scheme %q", scheme)
	}
	return d.Download(ctx, rawURL, dest)
}

// NewDownloaderFromConfig creates a router serving http, https, file and s3 URLs.
func NewDownloaderFromConfig(cfg config.S3Config) syncer.Downloader {
	return NewRouter().
		Handle(NewHTTPDownloader(nil), "http", "https").
		Handle(FileDownloader{}, "file").
		Handle(NewS3Downloader(cfg), "s3")
}
