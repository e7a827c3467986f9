// Package geocode resolves coordinates to places.
package geocode

import (
	"fmt"

	"albumsync/internal/model"
	"albumsync/internal/syncer"
)

type region struct {
	minLat, maxLat float64
	minLon, maxLon float64
	place          model.Place
}

func (r region) contains(lat, lon float64) bool {
	return lat > r.minLat && lat < r.maxLat && lon > r.minLon && lon < r.maxLon
}

var regions = []region{
	{41.5, 42.0, -88.0, -87.5, model.Place{FormattedAddress: "Chicago, IL, USA", City: "Chicago", State: "Illinois", Country: "United States"}},
	{40.5, 41.0, -74.5, -73.5, model.Place{FormattedAddress: "New York, NY, USA", City: "New York", State: "New York", Country: "United States"}},
	{37.5, 38.0, -123.0, -122.0, model.Place{FormattedAddress: "San Francisco, CA, USA", City: "San Francisco", State: "California", Country: "United States"}},
	{51.0, 52.0, -0.5, 0.5, model.Place{FormattedAddress: "London, England, UK", City: "London", State: "England", Country: "United Kingdom"}},
}

// OfflineResolver looks coordinates up in a small built-in table of city
// bounding boxes. Points outside every box get a coordinate description and no city.
type OfflineResolver struct{}

var _ syncer.PlaceResolver = OfflineResolver{}

func (OfflineResolver) Resolve(lat, lon float64) (*model.Place, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("coordinates out of range: %f, %f", lat, lon)
	}

	for _, r := range regions {
		if r.contains(lat, lon) {
			p := r.place
			return &p, nil
		}
	}
	return &model.Place{FormattedAddress: fmt.Sprintf("%s at %.4f, %.4f", hemisphere(lat, lon), lat, lon)}, nil
}

func hemisphere(lat, lon float64) string {
	ns, ew := "North", "East"
	if lat < 0 {
		ns = "South"
	}
	if lon < 0 {
		ew = "West"
	}
	return ns + " " + ew
}

// NoopResolver never resolves a place.
type NoopResolver struct{}

var _ syncer.PlaceResolver = NoopResolver{}

func (NoopResolver) Resolve(float64, float64) (*model.Place, error) { return nil, nil }
