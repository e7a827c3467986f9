// Package output implements the sync engine's output strategies: one Hugo page
// bundle per item, or one gallery bundle per collection.
package output

import (
	"strings"
	"time"

	"albumsync/internal/model"
)

const titleDateLayout = "January 2, 2006"

// DisplayDate is the capture time when known, else the album's created time.
func DisplayDate(item model.IndexedItem) time.Time {
	if item.Metadata != nil && item.Metadata.CapturedAt != nil {
		return *item.Metadata.CapturedAt
	}
	return item.CreatedAt
}

// Title builds a human title from date, place and camera, skipping empty parts.
// Example: "December 25, 2023, Chicago, Acme X100".
func Title(item model.IndexedItem) string {
	var parts []string

	if d := DisplayDate(item); !d.IsZero() {
		parts = append(parts, d.Format(titleDateLayout))
	}
	if p := placeName(item.Place); p != "" {
		parts = append(parts, p)
	}
	if c := cameraName(item.Metadata); c != "" {
		parts = append(parts, c)
	}
	return strings.Join(parts, ", ")
}

func placeName(p *model.Place) string {
	if p == nil {
		return ""
	}
	if p.City != "" {
		return p.City
	}
	return p.FormattedAddress
}

func cameraName(m *model.Metadata) string {
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m.CameraMake + " " + m.CameraModel)
}

var extensions = map[string]string{
	"image/jpeg":      "jpg",
	"image/png":       "png",
	"image/heic":      "heic",
	"image/gif":       "gif",
	"image/webp":      "webp",
	"video/mp4":       "mp4",
	"video/quicktime": "mov",
}

// Extension maps a media type to a file extension, defaulting to "jpg".
func Extension(mediaType string) string {
	if ext, ok := extensions[strings.ToLower(mediaType)]; ok {
		return ext
	}
	return "jpg"
}
