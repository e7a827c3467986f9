package index

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"albumsync/internal/fs"
	"albumsync/internal/model"
)

// document is the on-disk YAML shape. The legacy fields are only read.
type document struct {
	LastUpdated time.Time                    `yaml:"last_updated"`
	Items       map[string]model.IndexedItem `yaml:"items"`
	Collections map[string]*model.Collection `yaml:"collections"`

	Photos             map[string]legacyPhoto `yaml:"photos,omitempty"`
	GalleryName        string                 `yaml:"gallery_name,omitempty"`
	GalleryDescription string                 `yaml:"gallery_description,omitempty"`
	GalleryPhotos      []string               `yaml:"gallery_photos,omitempty"`
}

// legacyPhoto is the flat per-photo record written by older releases.
type legacyPhoto struct {
	GUID              string     `yaml:"guid"`
	Filename          string     `yaml:"filename"`
	Caption           string     `yaml:"caption"`
	CreatedAt         time.Time  `yaml:"created_at"`
	Checksum          string     `yaml:"checksum"`
	URL               string     `yaml:"url"`
	Width             int        `yaml:"width"`
	Height            int        `yaml:"height"`
	MimeType          string     `yaml:"mime_type"`
	LastSync          time.Time  `yaml:"last_sync"`
	LocalPath         string     `yaml:"local_path"`
	CameraMake        string     `yaml:"camera_make"`
	CameraModel       string     `yaml:"camera_model"`
	ExifDate          *time.Time `yaml:"exif_date"`
	Latitude          *float64   `yaml:"latitude"`
	Longitude         *float64   `yaml:"longitude"`
	OriginalLatitude  *float64   `yaml:"original_latitude"`
	OriginalLongitude *float64   `yaml:"original_longitude"`
	Location          string     `yaml:"location"`
	City              string     `yaml:"city"`
	State             string     `yaml:"state"`
	Country           string     `yaml:"country"`
}

// DefaultCollectionName names the collection synthesized from a legacy index.
const DefaultCollectionName = "Default"

// YAMLStore persists the index as a single YAML document.
type YAMLStore struct {
	path  string
	newID func() string
}

// NewYAMLStore returns a store backed by the file at path.
// newID supplies the id of a collection synthesized during a legacy upgrade;
// when nil the id "default" is used.
func NewYAMLStore(path string, newID func() string) *YAMLStore {
	return &YAMLStore{path: path, newID: newID}
}

// Path returns the backing file path.
func (s *YAMLStore) Path() string { return s.path }

// Load reads the index. A missing file yields an empty index.
func (s *YAMLStore) Load() (*Index, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(), nil
		}
		return nil, fmt.Errorf("opening index file: %w", err)
	}
	defer f.Close()

	idx, err := Decode(f, s.newID)
	if err != nil {
		return nil, fmt.Errorf("reading index from %s: %w", s.path, err)
	}
	return idx, nil
}

// Save writes the index atomically, creating parent directories as needed.
func (s *YAMLStore) Save(idx *Index) error {
	var buf bytes.Buffer
	if err := Encode(&buf, idx); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	if err := fs.WriteFileAtomic(s.path, buf.Bytes()); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	return nil
}

// Encode writes idx as YAML.
func Encode(w io.Writer, idx *Index) error {
	doc := document{
		LastUpdated: idx.LastUpdated,
		Items:       idx.Items,
		Collections: idx.Collections,
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}
	return enc.Close()
}

// Decode reads a YAML index, upgrading the legacy layout when it is detected.
// An empty input yields an empty index.
func Decode(r io.Reader, newID func() string) (*Index, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding index: %w", err)
	}

	idx := New()
	idx.LastUpdated = doc.LastUpdated
	for id, it := range doc.Items {
		it.ID = id
		idx.Items[id] = it
	}
	for id, c := range doc.Collections {
		if c == nil {
			continue
		}
		c.ID = id
		idx.Collections[id] = c
	}

	if len(idx.Collections) == 0 && doc.isLegacy() {
		upgradeLegacy(idx, &doc, newID)
	}
	return idx, nil
}

func (d *document) isLegacy() bool {
	return len(d.Photos) > 0 || d.GalleryName != "" || len(d.GalleryPhotos) > 0
}

// upgradeLegacy moves legacy photos into items and synthesizes exactly one collection.
func upgradeLegacy(idx *Index, doc *document, newID func() string) {
	for id, p := range doc.Photos {
		if _, exists := idx.Items[id]; exists {
			continue
		}
		idx.Items[id] = p.toItem(id)
	}

	name := doc.GalleryName
	if name == "" {
		name = DefaultCollectionName
	}

	members := doc.GalleryPhotos
	if len(members) == 0 {
		members = make([]string, 0, len(doc.Photos))
		for id := range doc.Photos {
			members = append(members, id)
		}
		slices.Sort(members)
	}

	id := "default"
	if newID != nil {
		id = newID()
	}

	at := doc.LastUpdated
	c := &model.Collection{
		ID:          id,
		Name:        name,
		Slug:        model.Slugify(name),
		Description: doc.GalleryDescription,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	for _, id := range members {
		c.AddMember(id, at)
	}
	idx.Collections[c.ID] = c
}

func (p legacyPhoto) toItem(id string) model.IndexedItem {
	item := model.IndexedItem{
		RemoteItem: model.RemoteItem{
			ID:        id,
			URL:       p.URL,
			Checksum:  p.Checksum,
			Caption:   p.Caption,
			Filename:  p.Filename,
			CreatedAt: p.CreatedAt,
			Width:     p.Width,
			Height:    p.Height,
			MediaType: p.MimeType,
		},
		LastSynced: p.LastSync,
		LocalPath:  p.LocalPath,
	}

	m := &model.Metadata{
		CameraMake:  p.CameraMake,
		CameraModel: p.CameraModel,
		CapturedAt:  p.ExifDate,
		Latitude:    p.OriginalLatitude,
		Longitude:   p.OriginalLongitude,
		FuzzedLat:   p.Latitude,
		FuzzedLon:   p.Longitude,
	}
	if *m != (model.Metadata{}) {
		item.Metadata = m
	}

	place := &model.Place{
		FormattedAddress: p.Location,
		City:             p.City,
		State:            p.State,
		Country:          p.Country,
	}
	if *place != (model.Place{}) {
		item.Place = place
	}
	return item
}
