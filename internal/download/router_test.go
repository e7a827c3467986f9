package download

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"albumsync/internal/config"
	"albumsync/internal/testutil"
)

func TestRouter_Download(t *testing.T) {
	web := testutil.NewStubDownloader()
	local := testutil.NewStubDownloader()
	r := NewRouter().Handle(web, "http", "https").Handle(local, "file")

	dir := t.TempDir()
	tests := []struct {
		url  string
		want *testutil.StubDownloader
	}{
		{url: "https://example.com/a.jpg", want: web},
		{url: "http://example.com/b.jpg", want: web},
		{url: "file:///tmp/c.jpg", want: local},
		{url: "/tmp/d.jpg", want: local},
	}
	for _, tt := range tests {
		if err := r.Download(context.Background(), tt.url, filepath.Join(dir, "out")); err != nil {
			t.Fatalf("Download(%q) error = %v", tt.url, err)
		}
		if tt.want.Calls(tt.url) != 1 {
			t.Errorf("Download(%q) not routed to the expected downloader", tt.url)
		}
	}

	if err := r.Download(context.Background(), "ftp://example.com/e.jpg", filepath.Join(dir, "out")); err == nil {
		t.Error("Download() expected error for unknown scheme")
	}
}

func TestNewDownloaderFromConfig(t *testing.T) {
	d := NewDownloaderFromConfig(config.S3Config{})

	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	if err := os.WriteFile(src, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := d.Download(context.Background(), "file://"+src, filepath.Join(dir, "dest")); err != nil {
		t.Errorf("file download error = %v", err)
	}
	if err := d.Download(context.Background(), "s3://bucket", filepath.Join(dir, "dest2")); err == nil {
		t.Error("s3 download without key expected error")
	}
}
