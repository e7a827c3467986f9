package model

import (
	"slices"
	"strings"
	"time"
)

// RemoteItem is one media object as reported by the album service.
// The ID is stable across fetches; Checksum changes when the content does.
type RemoteItem struct {
	ID        string    `yaml:"id"`
	URL       string    `yaml:"url"`
	Checksum  string    `yaml:"checksum"`
	Caption   string    `yaml:"caption,omitempty"`
	Filename  string    `yaml:"filename,omitempty"`
	CreatedAt time.Time `yaml:"created_at"`
	Width     int       `yaml:"width"`
	Height    int       `yaml:"height"`
	MediaType string    `yaml:"media_type"`
}

// IsVideo reports whether the item is a video rather than a still image.
func (r RemoteItem) IsVideo() bool {
	return strings.HasPrefix(r.MediaType, "video/")
}

// Album is the result of fetching a remote album.
type Album struct {
	Name  string
	Items map[string]RemoteItem
}

// Metadata holds fields extracted from the downloaded bytes.
// Every field is optional; a nil pointer or empty string means "not present".
type Metadata struct {
	CameraMake   string     `yaml:"camera_make,omitempty"`
	CameraModel  string     `yaml:"camera_model,omitempty"`
	CapturedAt   *time.Time `yaml:"captured_at,omitempty"`
	Latitude     *float64   `yaml:"latitude,omitempty"`
	Longitude    *float64   `yaml:"longitude,omitempty"`
	FuzzedLat    *float64   `yaml:"fuzzed_latitude,omitempty"`
	FuzzedLon    *float64   `yaml:"fuzzed_longitude,omitempty"`
	ISO          *int       `yaml:"iso,omitempty"`
	ExposureTime string     `yaml:"exposure_time,omitempty"`
	FNumber      *float64   `yaml:"f_number,omitempty"`
	FocalLength  *float64   `yaml:"focal_length,omitempty"`
}

// HasCoordinates reports whether raw GPS coordinates were extracted.
func (m *Metadata) HasCoordinates() bool {
	return m != nil && m.Latitude != nil && m.Longitude != nil
}

// Place is a best-effort description of where an item was captured.
type Place struct {
	FormattedAddress string `yaml:"formatted_address,omitempty"`
	City             string `yaml:"city,omitempty"`
	State            string `yaml:"state,omitempty"`
	Country          string `yaml:"country,omitempty"`
}

// IndexedItem is the persisted record of an item that has been synced.
type IndexedItem struct {
	RemoteItem `yaml:",inline"`
	LastSynced time.Time `yaml:"last_synced"`
	LocalPath  string    `yaml:"local_path"`
	Metadata   *Metadata `yaml:"metadata,omitempty"`
	Place      *Place    `yaml:"place,omitempty"`
}

// Collection is a named, ordered group of item references rendered as one bundle.
type Collection struct {
	ID          string    `yaml:"id"`
	Name        string    `yaml:"name"`
	Slug        string    `yaml:"slug"`
	Description string    `yaml:"description,omitempty"`
	Members     []string  `yaml:"members"`
	CreatedAt   time.Time `yaml:"created_at"`
	UpdatedAt   time.Time `yaml:"updated_at"`
}

// HasMember reports whether id is in the member list.
func (c *Collection) HasMember(id string) bool {
	return slices.Contains(c.Members, id)
}

// AddMember appends id unless it is already a member.
// It returns true if the member list changed.
func (c *Collection) AddMember(id string, at time.Time) bool {
	if c.HasMember(id) {
		return false
	}
	c.Members = append(c.Members, id)
	c.UpdatedAt = at
	return true
}

// RemoveMember drops id from the member list.
// It returns true if the member list changed.
func (c *Collection) RemoveMember(id string, at time.Time) bool {
	i := slices.Index(c.Members, id)
	if i < 0 {
		return false
	}
	c.Members = slices.Delete(c.Members, i, i+1)
	c.UpdatedAt = at
	return true
}
