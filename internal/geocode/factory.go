package geocode

import (
	"fmt"

	"albumsync/internal/config"
	"albumsync/internal/syncer"
)

// NewResolverFromConfig creates a PlaceResolver based on the geocode config type.
func NewResolverFromConfig(cfg config.GeocodeConfig) (syncer.PlaceResolver, error) {
	switch cfg.Type {
	case "offline", "":
		return OfflineResolver{}, nil
	case "none":
		return NoopResolver{}, nil
	default:
		return nil, fmt.Errorf("unknown geocode type: %s", cfg.Type)
	}
}
