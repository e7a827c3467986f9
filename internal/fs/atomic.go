// Package fs holds small filesystem helpers shared by writers of output and
// downloaded content.
package fs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// WriteAtomic writes dest through a temp file in the same directory and renames
// it into place, so readers never observe a partial file. write receives the
// open temp file; if it fails, the temp file is removed and dest is untouched.
func WriteAtomic(dest string, write func(f *os.File) error) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// WriteFileAtomic is WriteAtomic for in-memory data.
func WriteFileAtomic(dest string, data []byte) error {
	return WriteAtomic(dest, func(f *os.File) error {
		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("failed to write %s: %w", dest, err)
		}
		return nil
	})
}

// CopyAtomic is WriteAtomic for a stream.
func CopyAtomic(dest string, r io.Reader) error {
	return WriteAtomic(dest, func(f *os.File) error {
		if _, err := io.Copy(f, r); err != nil {
			return fmt.Errorf("failed to write %s: %w", dest, err)
		}
		return nil
	})
}

// RemoveWithin deletes path like Remove, but only if it lies strictly inside root.
func RemoveWithin(root, path string) error {
	if !Within(root, path) {
		return fmt.Errorf("refusing to remove %s: not inside %s", path, root)
	}
	return Remove(path)
}

// Within reports whether path resolves to a location strictly below root.
func Within(root, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return !filepath.IsAbs(rel)
}

// Remove deletes path (recursively if it is a directory). A missing path is not an error.
func Remove(path string) error {
	if err := os.RemoveAll(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
