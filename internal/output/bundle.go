package output

import (
	"fmt"
	"path/filepath"
	"time"

	"albumsync/internal/fs"
	"albumsync/internal/index"
	"albumsync/internal/model"
	"albumsync/internal/syncer"
)

// BundleShaper writes one page bundle per item:
//
//	<root>/
//	  <id>/
//	    original.<ext>
//	    index.md
type BundleShaper struct {
	root string
}

var _ syncer.Shaper = (*BundleShaper)(nil)

// NewBundleShaper creates a shaper that writes bundles under root.
func NewBundleShaper(root string) *BundleShaper {
	return &BundleShaper{root: root}
}

func (s *BundleShaper) Mode() string { return "bundle" }

// Prepare is a no-op: bundles own no collection.
func (s *BundleShaper) Prepare(*index.Index, *model.Album) error { return nil }

// LocalView is the whole index.
func (s *BundleShaper) LocalView(idx *index.Index) map[string]model.IndexedItem {
	return idx.Items
}

func (s *BundleShaper) ItemDir(item model.RemoteItem) string {
	return filepath.Join(s.root, item.ID)
}

func (s *BundleShaper) ContentPath(item model.RemoteItem) string {
	return filepath.Join(s.root, item.ID, "original."+Extension(item.MediaType))
}

// WriteItem writes <id>/index.md.
func (s *BundleShaper) WriteItem(item model.IndexedItem) error {
	data, err := document(bundleFrontmatterFor(item), item.Caption)
	if err != nil {
		return err
	}
	return fs.WriteFileAtomic(filepath.Join(s.ItemDir(item.RemoteItem), "index.md"), data)
}

// RemoveItem deletes the item's bundle directory. It never removes the root
// itself or anything outside it.
func (s *BundleShaper) RemoveItem(item model.IndexedItem) error {
	if err := model.ValidateID(item.ID); err != nil {
		return fmt.Errorf("refusing to remove bundle: %w", err)
	}
	return fs.RemoveWithin(s.root, s.ItemDir(item.RemoteItem))
}

// Adopt is a no-op: the executor has already written the item into the index.
func (s *BundleShaper) Adopt(*index.Index, string, time.Time) {}

// Forget removes the item from the index and, by cascade, every collection.
func (s *BundleShaper) Forget(idx *index.Index, id string, at time.Time) {
	idx.RemoveItem(id, at)
}

// Render is a no-op: every bundle was written by WriteItem.
func (s *BundleShaper) Render(*index.Index) error { return nil }

type bundleFrontmatter struct {
	Title            string     `yaml:"title"`
	Date             time.Time  `yaml:"date"`
	ID               string     `yaml:"id"`
	OriginalFilename string     `yaml:"original_filename"`
	Width            int        `yaml:"width"`
	Height           int        `yaml:"height"`
	MediaType        string     `yaml:"media_type"`
	CameraMake       string     `yaml:"camera_make,omitempty"`
	CameraModel      string     `yaml:"camera_model,omitempty"`
	ExifDate         *time.Time `yaml:"exif_date,omitempty"`
	Latitude         *fixed     `yaml:"latitude,omitempty"`
	Longitude        *fixed     `yaml:"longitude,omitempty"`
	ISO              *int       `yaml:"iso,omitempty"`
	ExposureTime     string     `yaml:"exposure_time,omitempty"`
	FNumber          *fixed     `yaml:"f_number,omitempty"`
	FocalLength      *fixed     `yaml:"focal_length,omitempty"`
	Location         string     `yaml:"location,omitempty"`
	City             string     `yaml:"city,omitempty"`
	State            string     `yaml:"state,omitempty"`
	Country          string     `yaml:"country,omitempty"`
}

// bundleFrontmatterFor publishes only the fuzzed coordinates; raw ones stay in the index.
func bundleFrontmatterFor(item model.IndexedItem) bundleFrontmatter {
	fm := bundleFrontmatter{
		Title:            Title(item),
		Date:             DisplayDate(item),
		ID:               item.ID,
		OriginalFilename: item.Filename,
		Width:            item.Width,
		Height:           item.Height,
		MediaType:        item.MediaType,
	}
	if fm.OriginalFilename == "" {
		fm.OriginalFilename = filepath.Base(item.LocalPath)
	}

	if m := item.Metadata; m != nil {
		fm.CameraMake = m.CameraMake
		fm.CameraModel = m.CameraModel
		fm.ExifDate = m.CapturedAt
		fm.Latitude = newFixed(m.FuzzedLat, 6)
		fm.Longitude = newFixed(m.FuzzedLon, 6)
		fm.ISO = m.ISO
		fm.ExposureTime = m.ExposureTime
		fm.FNumber = newFixed(m.FNumber, 1)
		fm.FocalLength = newFixed(m.FocalLength, 1)
	}

	if p := item.Place; p != nil {
		fm.Location = p.FormattedAddress
		fm.City = p.City
		fm.State = p.State
		fm.Country = p.Country
	}
	return fm
}
