// Package album implements remote album clients.
package album

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"albumsync/internal/model"
	"albumsync/internal/syncer"
)

// ManifestClient reads an album from a YAML manifest:
//
//	name: Summer 2024
//	items:
//	  - id: p1
//	    url: https://cdn.example.com/p1.jpg
//	    checksum: 9f86d08
//	    created_at: 2024-07-04T18:00:00Z
//	    media_type: image/jpeg
//
// The locator is a local path, a file:// URL or an http(s):// URL.
type ManifestClient struct {
	http *http.Client
}

var _ syncer.AlbumClient = (*ManifestClient)(nil)

// NewManifestClient creates a client. A nil httpClient means http.DefaultClient.
func NewManifestClient(httpClient *http.Client) *ManifestClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ManifestClient{http: httpClient}
}

type manifest struct {
	Name  string             `yaml:"name"`
	Items []model.RemoteItem `yaml:"items"`
}

func (c *ManifestClient) Fetch(ctx context.Context, locator string) (*model.Album, error) {
	rc, err := c.open(ctx, locator)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	album, err := ParseManifest(rc)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", locator, err)
	}
	return album, nil
}

func (c *ManifestClient) open(ctx context.Context, locator string) (io.ReadCloser, error) {
	u, err := url.Parse(locator)
	if err != nil || u.Scheme == "" {
		return openFile(locator)
	}

	switch u.Scheme {
	case "file":
		return openFile(u.Path)
	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
		if err != nil {
			return nil, fmt.Errorf("building manifest request: %w", err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching manifest: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetching manifest: unexpected status %s", resp.Status)
		}
		return resp.Body, nil
	default:
		return nil, fmt.Errorf("unsupported manifest scheme: %s", u.Scheme)
	}
}

func openFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	return f, nil
}

// ParseManifest decodes a manifest. Every item needs an id and a url, and ids
// must be unique.
func ParseManifest(r io.Reader) (*model.Album, error) {
	var m manifest
	if err := yaml.NewDecoder(r).Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}

	album := &model.Album{Name: strings.TrimSpace(m.Name), Items: make(map[string]model.RemoteItem, len(m.Items))}
	for i, it := range m.Items {
		if it.ID == "" {
			return nil, fmt.Errorf("item %d: missing id", i)
		}
		if err := model.ValidateID(it.ID); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		if it.URL == "" {
			return nil, fmt.Errorf("item %s: missing url", it.ID)
		}
		if _, dup := album.Items[it.ID]; dup {
			return nil, fmt.Errorf("item %s: duplicate id", it.ID)
		}
		album.Items[it.ID] = it
	}
	return album, nil
}
