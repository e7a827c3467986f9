package testutil

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"albumsync/internal/model"
)

// StubAlbumClient serves albums from memory, keyed by locator.
type StubAlbumClient struct {
	mu     sync.Mutex
	albums map[string]*model.Album
	errs   map[string]error
	calls  int
}

func NewStubAlbumClient() *StubAlbumClient {
	return &StubAlbumClient{
		albums: make(map[string]*model.Album),
		errs:   make(map[string]error),
	}
}

// SetAlbum replaces the album served for locator.
func (c *StubAlbumClient) SetAlbum(locator, name string, items ...model.RemoteItem) {
	c.mu.Lock()
	defer c.mu.Unlock()

	album := &model.Album{Name: name, Items: make(map[string]model.RemoteItem, len(items))}
	for _, it := range items {
		album.Items[it.ID] = it
	}
	c.albums[locator] = album
	delete(c.errs, locator)
}

// FailWith makes Fetch(locator) return err.
func (c *StubAlbumClient) FailWith(locator string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs[locator] = err
}

// Calls returns the number of Fetch calls.
func (c *StubAlbumClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Fetch returns a copy of the stored album.
func (c *StubAlbumClient) Fetch(_ context.Context, locator string) (*model.Album, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++

	if err := c.errs[locator]; err != nil {
		return nil, err
	}
	album, ok := c.albums[locator]
	if !ok {
		return nil, fmt.Errorf("album %q not found", locator)
	}
	return &model.Album{Name: album.Name, Items: maps.Clone(album.Items)}, nil
}

// Item builds a RemoteItem with test defaults.
func Item(id, checksum string) model.RemoteItem {
	return model.RemoteItem{
		ID:        id,
		URL:       "https://example.com/" + id + ".jpg",
		Checksum:  checksum,
		Filename:  "IMG_" + id + ".JPG",
		CreatedAt: time.Date(2023, 12, 25, 9, 0, 0, 0, time.UTC),
		Width:     4032,
		Height:    3024,
		MediaType: "image/jpeg",
	}
}
