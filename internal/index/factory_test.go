package index

import (
	"io"
	"path/filepath"
	"testing"

	"albumsync/internal/config"
)

func TestNewStoreFromConfig(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		cfg     config.IndexConfig
		wantErr bool
	}{
		{name: "yaml", cfg: config.IndexConfig{Type: "yaml", Path: filepath.Join(dir, "index.yaml")}},
		{name: "default type is yaml", cfg: config.IndexConfig{Path: filepath.Join(dir, "other.yaml")}},
		{name: "sqlite", cfg: config.IndexConfig{Type: "sqlite", Path: filepath.Join(dir, "index.db")}},
		{name: "memory", cfg: config.IndexConfig{Type: "memory"}},
		{name: "yaml without path", cfg: config.IndexConfig{Type: "yaml"}, wantErr: true},
		{name: "sqlite without path", cfg: config.IndexConfig{Type: "sqlite"}, wantErr: true},
		{name: "unknown", cfg: config.IndexConfig{Type: "redis"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewStoreFromConfig(tt.cfg, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewStoreFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if c, ok := s.(io.Closer); ok {
				t.Cleanup(func() { c.Close() })
			}
			if _, err := s.Load(); err != nil {
				t.Errorf("Load() error = %v", err)
			}
		})
	}
}

func TestMemoryStore_IsolatesSnapshots(t *testing.T) {
	s := NewMemoryStore()
	idx := sampleIndex()
	if err := s.Save(idx); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	idx.RemoveItem("p1", t1)

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !got.Has("p1") {
		t.Error("mutating the saved index changed the stored snapshot")
	}
	if s.Saves() != 1 {
		t.Errorf("Saves() = %d, want 1", s.Saves())
	}
}
