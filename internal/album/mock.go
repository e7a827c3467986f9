package album

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"albumsync/internal/model"
	"albumsync/internal/syncer"
)

// MockClient returns a deterministic demo album derived from the locator.
// Item URLs point at example.com and are not expected to resolve.
type MockClient struct {
	size int
}

var _ syncer.AlbumClient = (*MockClient)(nil)

// NewMockClient creates a client whose albums hold size items.
func NewMockClient(size int) *MockClient {
	return &MockClient{size: size}
}

func (c *MockClient) Fetch(ctx context.Context, locator string) (*model.Album, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	album := &model.Album{Name: "Demo Album", Items: make(map[string]model.RemoteItem, c.size)}
	for i := range c.size {
		id := fmt.Sprintf("demo-%03d", i+1)
		sum := sha256.Sum256([]byte(locator + "/" + id))
		album.Items[id] = model.RemoteItem{
			ID:        id,
			URL:       "https://example.com/demo/" + id + ".jpg",
			Checksum:  hex.EncodeToString(sum[:8]),
			Filename:  fmt.Sprintf("IMG_%04d.JPG", i+1),
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
			Width:     4032,
			Height:    3024,
			MediaType: "image/jpeg",
		}
	}
	return album, nil
}
