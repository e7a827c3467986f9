package download

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileDownloader_Download(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	if err := os.WriteFile(src, []byte("local bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	for _, locator := range []string{src, "file://" + src} {
		dest := filepath.Join(t.TempDir(), "original.jpg")
		if err := (FileDownloader{}).Download(context.Background(), locator, dest); err != nil {
			t.Fatalf("Download(%q) error = %v", locator, err)
		}
		got, _ := os.ReadFile(dest)
		if string(got) != "local bytes" {
			t.Errorf("Download(%q) content = %q", locator, got)
		}
	}

	if err := (FileDownloader{}).Download(context.Background(), filepath.Join(dir, "nope.jpg"), filepath.Join(dir, "out.jpg")); err == nil {
		t.Error("Download() expected error for missing source")
	}
}
