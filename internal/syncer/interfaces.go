package syncer

import (
	"context"
	"time"

	"albumsync/internal/index"
	"albumsync/internal/model"
)

// AlbumClient fetches the current state of a remote album.
type AlbumClient interface {
	// Fetch returns the album name and its items keyed by id.
	// The locator is opaque to the sync engine.
	Fetch(ctx context.Context, locator string) (*model.Album, error)
}

// Downloader retrieves item bytes.
type Downloader interface {
	// Download writes the content at url to dest. The parent directory of dest
	// already exists. Implementations must not leave a partial file at dest.
	Download(ctx context.Context, url, dest string) error
}

// MetadataExtractor reads camera, time and position fields from a downloaded file.
// Errors are treated as "no metadata available".
type MetadataExtractor interface {
	Extract(path string) (*model.Metadata, error)
}

// PlaceResolver turns coordinates into a place description.
// Errors are treated as "no place available".
type PlaceResolver interface {
	Resolve(lat, lon float64) (*model.Place, error)
}

// Shaper is an output strategy. It decides where item content lives on disk,
// which part of the index an album is compared against, and which documents are
// written. A Shaper serves one sync pass at a time.
type Shaper interface {
	// Mode names the strategy, e.g. "bundle" or "gallery".
	Mode() string

	// Prepare readies shaper-owned index state for a pass over album.
	// It must not touch the filesystem.
	Prepare(idx *index.Index, album *model.Album) error

	// LocalView returns the indexed items the album is classified against.
	LocalView(idx *index.Index) map[string]model.IndexedItem

	// ItemDir returns the directory that holds the item's content.
	ItemDir(item model.RemoteItem) string

	// ContentPath returns the path the item's bytes are downloaded to.
	ContentPath(item model.RemoteItem) string

	// WriteItem writes any per-item document. It is called concurrently for
	// distinct items and must only write under ItemDir(item).
	WriteItem(item model.IndexedItem) error

	// RemoveItem deletes the on-disk artifacts of an orphaned item.
	// It is called concurrently for distinct items. Missing files are not an error.
	RemoveItem(item model.IndexedItem) error

	// Adopt records a successfully processed item in shaper-owned index state.
	// It is called only from the sequential mutation pass.
	Adopt(idx *index.Index, id string, at time.Time)

	// Forget drops a successfully removed item from the index state this shaper
	// owns. It is called only from the sequential mutation pass.
	Forget(idx *index.Index, id string, at time.Time)

	// Render writes documents derived from the mutated index.
	Render(idx *index.Index) error
}
