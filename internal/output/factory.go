package output

import (
	"fmt"

	"albumsync/internal/config"
	"albumsync/internal/syncer"
)

// NewShaperFromConfig creates the Shaper selected by the target's output type.
func NewShaperFromConfig(t config.TargetConfig, ids syncer.IDGenerator, clock syncer.Clock) (syncer.Shaper, error) {
	switch t.OutputType {
	case config.OutputBundle, config.OutputPhotostream:
		return NewBundleShaper(t.OutDir), nil
	case config.OutputGallery:
		return NewGalleryShaper(t.OutDir, GalleryOptions{
			Name:        t.Name,
			Description: t.Description,
			Privacy:     t.Privacy,
		}, ids, clock), nil
	default:
		return nil, fmt.Errorf("unknown output type: %s", t.OutputType)
	}
}
