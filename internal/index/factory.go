package index

import (
	"fmt"

	"albumsync/internal/config"
)

// Store loads and persists an Index.
type Store interface {
	// Load returns the stored index, or an empty one if nothing is stored yet.
	Load() (*Index, error)

	// Save persists the full index, replacing what was stored before.
	Save(idx *Index) error
}

var (
	_ Store = (*YAMLStore)(nil)
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

// NewStoreFromConfig creates a Store implementation based on the index config type.
// Stores that hold resources (sqlite) implement io.Closer.
func NewStoreFromConfig(cfg config.IndexConfig, newID func() string) (Store, error) {
	switch cfg.Type {
	case "yaml", "":
		if cfg.Path == "" {
			return nil, fmt.Errorf("path required for yaml index")
		}
		return NewYAMLStore(cfg.Path, newID), nil
	case "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("path required for sqlite index")
		}
		return OpenSQLiteStore(cfg.Path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown index type: %s", cfg.Type)
	}
}
