package album

import (
	"fmt"

	"albumsync/internal/config"
	"albumsync/internal/syncer"
)

const mockAlbumSize = 3

// NewClientFromConfig creates an AlbumClient based on the album config type.
func NewClientFromConfig(cfg config.AlbumConfig) (syncer.AlbumClient, error) {
	switch cfg.Type {
	case "manifest", "":
		return NewManifestClient(nil), nil
	case "mock":
		return NewMockClient(mockAlbumSize), nil
	default:
		return nil, fmt.Errorf("unknown album type: %s", cfg.Type)
	}
}
