// Package exif extracts camera, time and position metadata from image files.
package exif

import (
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	goexif "github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"albumsync/internal/model"
	"albumsync/internal/syncer"
)

// metersPerDegree approximates the length of one degree of latitude.
const metersPerDegree = 111111.0

// Extractor reads EXIF fields and adds a randomly fuzzed copy of the GPS
// position. Safe for concurrent use.
type Extractor struct {
	fuzzMeters float64

	mu  sync.Mutex
	rnd *rand.Rand
}

var _ syncer.MetadataExtractor = (*Extractor)(nil)

// NewExtractor creates an Extractor that moves published coordinates by up to
// fuzzMeters in each axis. A nil src seeds a random source.
func NewExtractor(fuzzMeters float64, src rand.Source) *Extractor {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Extractor{fuzzMeters: fuzzMeters, rnd: rand.New(src)}
}

// Extract decodes the file's EXIF block. Files without one return an error.
func (e *Extractor) Extract(path string) (*model.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	x, err := goexif.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding exif: %w", err)
	}

	m := &model.Metadata{
		CameraMake:   stringField(x, goexif.Make),
		CameraModel:  stringField(x, goexif.Model),
		ExposureTime: exposureField(x),
		FNumber:      ratField(x, goexif.FNumber),
		FocalLength:  ratField(x, goexif.FocalLength),
	}

	if t, err := x.DateTime(); err == nil {
		captured := utcWallClock(t)
		m.CapturedAt = &captured
	}

	if tag, err := x.Get(goexif.ISOSpeedRatings); err == nil {
		if iso, err := tag.Int(0); err == nil {
			m.ISO = &iso
		}
	}

	if lat, lon, err := x.LatLong(); err == nil && !math.IsNaN(lat) && !math.IsNaN(lon) {
		m.Latitude, m.Longitude = &lat, &lon
		flat, flon := e.fuzz(lat, lon)
		m.FuzzedLat, m.FuzzedLon = &flat, &flon
	}

	return m, nil
}

// fuzz offsets both coordinates by a uniform random amount within fuzzMeters.
func (e *Extractor) fuzz(lat, lon float64) (float64, float64) {
	if e.fuzzMeters <= 0 {
		return lat, lon
	}
	deg := e.fuzzMeters / metersPerDegree

	e.mu.Lock()
	dlat := (e.rnd.Float64()*2 - 1) * deg
	dlon := (e.rnd.Float64()*2 - 1) * deg
	e.mu.Unlock()

	return lat + dlat, lon + dlon
}

// utcWallClock keeps the camera's wall-clock reading and labels it UTC.
// Cameras record local time without a zone.
func utcWallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func stringField(x *goexif.Exif, name goexif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimRight(s, "\x00"))
}

func ratField(x *goexif.Exif, name goexif.FieldName) *float64 {
	tag, err := x.Get(name)
	if err != nil {
		return nil
	}
	return ratio(tag)
}

func ratio(tag *tiff.Tag) *float64 {
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return nil
	}
	v := float64(num) / float64(den)
	return &v
}

func exposureField(x *goexif.Exif) string {
	tag, err := x.Get(goexif.ExposureTime)
	if err != nil {
		return ""
	}
	num, den, err := tag.Rat2(0)
	if err != nil {
		return ""
	}
	return formatExposure(num, den)
}

// formatExposure renders shutter speeds the way cameras display them:
// "30" for whole seconds, "1/250" for unit fractions, "10/3" otherwise.
func formatExposure(num, den int64) string {
	switch {
	case den <= 0 || num < 0:
		return ""
	case den == 1:
		return strconv.FormatInt(num, 10)
	case num == 0:
		return "0"
	case den%num == 0:
		return "1/" + strconv.FormatInt(den/num, 10)
	default:
		return strconv.FormatInt(num, 10) + "/" + strconv.FormatInt(den, 10)
	}
}
