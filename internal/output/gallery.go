package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"albumsync/internal/config"
	"albumsync/internal/fs"
	"albumsync/internal/index"
	"albumsync/internal/model"
	"albumsync/internal/syncer"
)

// GalleryShaper maintains one collection and writes it as a single page bundle:
//
//	<root>/
//	  <id>.<ext>   (one file per member)
//	  index.md     (frontmatter listing every member, then shortcodes)
type GalleryShaper struct {
	root        string
	name        string
	description string
	privacy     config.PrivacyConfig
	ids         syncer.IDGenerator
	clock       syncer.Clock

	collectionID string
}

var _ syncer.Shaper = (*GalleryShaper)(nil)

// GalleryOptions describes the collection a GalleryShaper maintains.
type GalleryOptions struct {
	// Name is the collection's display name. Empty or config.DefaultGalleryName
	// means "use the album name".
	Name        string
	Description string
	Privacy     config.PrivacyConfig
}

// NewGalleryShaper creates a shaper writing into root.
func NewGalleryShaper(root string, opts GalleryOptions, ids syncer.IDGenerator, clock syncer.Clock) *GalleryShaper {
	return &GalleryShaper{
		root:        root,
		name:        opts.Name,
		description: opts.Description,
		privacy:     opts.Privacy,
		ids:         ids,
		clock:       clock,
	}
}

func (s *GalleryShaper) Mode() string { return "gallery" }

// CollectionID returns the id of the collection chosen by the last Prepare.
func (s *GalleryShaper) CollectionID() string { return s.collectionID }

// Prepare reuses the collection with the configured display name, or creates it.
func (s *GalleryShaper) Prepare(idx *index.Index, album *model.Album) error {
	name := s.name
	if name == "" || name == config.DefaultGalleryName {
		name = album.Name
	}
	if name == "" {
		return fmt.Errorf("gallery needs a name: the album has none and none is configured")
	}

	now := s.clock.Now()
	c := idx.CollectionByName(name)
	if c == nil {
		c = &model.Collection{
			ID:          s.ids.New(),
			Name:        name,
			Slug:        model.Slugify(name),
			Description: s.description,
			Members:     []string{},
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		idx.PutCollection(c, now)
	} else if s.description != "" && c.Description != s.description {
		c.Description = s.description
		c.UpdatedAt = now
		idx.PutCollection(c, now)
	}

	s.collectionID = c.ID
	return nil
}

// LocalView is the indexed members of the collection, so an indexed non-member
// is treated as new here.
func (s *GalleryShaper) LocalView(idx *index.Index) map[string]model.IndexedItem {
	view := make(map[string]model.IndexedItem)
	for _, it := range idx.Members(s.collectionID) {
		view[it.ID] = it
	}
	return view
}

func (s *GalleryShaper) ItemDir(model.RemoteItem) string { return s.root }

func (s *GalleryShaper) ContentPath(item model.RemoteItem) string {
	return filepath.Join(s.root, filename(item))
}

// WriteItem is a no-op: the gallery document is written once by Render.
func (s *GalleryShaper) WriteItem(model.IndexedItem) error { return nil }

// RemoveItem deletes the member's file from the shared directory.
func (s *GalleryShaper) RemoveItem(item model.IndexedItem) error {
	if err := model.ValidateID(item.ID); err != nil {
		return fmt.Errorf("refusing to remove gallery file: %w", err)
	}
	return fs.RemoveWithin(s.root, s.ContentPath(item.RemoteItem))
}

// Adopt adds the item to the collection.
func (s *GalleryShaper) Adopt(idx *index.Index, id string, at time.Time) {
	idx.AddMember(s.collectionID, id, at)
}

// Forget drops the item from the collection only; it stays in the index.
func (s *GalleryShaper) Forget(idx *index.Index, id string, at time.Time) {
	idx.RemoveMember(s.collectionID, id, at)
}

// Render writes <root>/index.md for the collection.
func (s *GalleryShaper) Render(idx *index.Index) error {
	c := idx.Collection(s.collectionID)
	if c == nil {
		return fmt.Errorf("collection %s not found", s.collectionID)
	}

	data, err := renderGallery(c, idx.Members(c.ID), s.privacy)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return fmt.Errorf("creating gallery directory: %w", err)
	}
	if err := fs.WriteFileAtomic(filepath.Join(s.root, "index.md"), data); err != nil {
		return fmt.Errorf("writing gallery index: %w", err)
	}
	return nil
}

func filename(item model.RemoteItem) string {
	return item.ID + "." + Extension(item.MediaType)
}

type galleryFrontmatter struct {
	Title       string         `yaml:"title"`
	Date        time.Time      `yaml:"date"`
	Type        string         `yaml:"type"`
	Layout      string         `yaml:"layout"`
	Description string         `yaml:"description,omitempty"`
	Slug        string         `yaml:"slug,omitempty"`
	NoFeed      bool           `yaml:"nofeed,omitempty"`
	NoIndex     bool           `yaml:"noindex,omitempty"`
	Unlisted    bool           `yaml:"unlisted,omitempty"`
	Robots      string         `yaml:"robots,omitempty"`
	PhotoCount  int            `yaml:"photo_count"`
	Photos      []galleryPhoto `yaml:"photos"`
}

type galleryPhoto struct {
	Filename        string    `yaml:"filename"`
	Caption         string    `yaml:"caption"`
	MimeType        string    `yaml:"mime_type"`
	OriginalCaption string    `yaml:"original_caption,omitempty"`
	Location        string    `yaml:"location,omitempty"`
	CameraMake      string    `yaml:"camera_make,omitempty"`
	CameraModel     string    `yaml:"camera_model,omitempty"`
	Date            time.Time `yaml:"date"`
}

func renderGallery(c *model.Collection, members []model.IndexedItem, privacy config.PrivacyConfig) ([]byte, error) {
	fm := galleryFrontmatter{
		Title:       c.Name,
		Date:        c.UpdatedAt,
		Type:        "gallery",
		Layout:      "gallery",
		Description: c.Description,
		NoFeed:      privacy.ExcludeFromFeeds,
		NoIndex:     privacy.ExcludeFromSearchIndex,
		Unlisted:    privacy.Unlisted,
		PhotoCount:  len(members),
		Photos:      make([]galleryPhoto, 0, len(members)),
	}
	if privacy.UseOpaqueIDAsSlug {
		fm.Slug = c.ID
	}
	if privacy.RobotsNoIndexNoFollow {
		fm.Robots = "noindex, nofollow"
	}

	var body strings.Builder
	if c.Description != "" {
		body.WriteString(c.Description)
		body.WriteString("\n\n")
	}

	for _, it := range members {
		title := Title(it)
		p := galleryPhoto{
			Filename: filename(it.RemoteItem),
			Caption:  title,
			MimeType: it.MediaType,
			Date:     DisplayDate(it),
		}
		if strings.TrimSpace(it.Caption) != "" {
			p.OriginalCaption = it.Caption
		}
		if it.Place != nil {
			p.Location = it.Place.FormattedAddress
		}
		if it.Metadata != nil {
			p.CameraMake = it.Metadata.CameraMake
			p.CameraModel = it.Metadata.CameraModel
		}
		fm.Photos = append(fm.Photos, p)

		caption := escapeQuotes(title)
		if it.IsVideo() {
			fmt.Fprintf(&body, "{{< video src=\"%s\" caption=\"%s\" >}}\n\n", p.Filename, caption)
		} else {
			fmt.Fprintf(&body, "{{< figure\n  src=\"%s\"\n  alt=\"%s\"\n  caption=\"%s\"\n  class=\"ma0 w-75\"\n>}}\n\n",
				p.Filename, caption, caption)
		}
	}

	return document(fm, body.String())
}
