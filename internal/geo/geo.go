// Package geo provides geographic primitives shared by all data sources.
package geo

import (
	"errors"
	"math"
)

// ErrInvalidCoordinates is returned for out-of-range latitude or longitude.
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// Point represents a geographic point in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Validate checks that the point lies within valid coordinate ranges.
func (p Point) Validate() error {
	if p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}

// DistanceKm calculates the great-circle distance between two points in
// kilometers using the Haversine formula.
func DistanceKm(a, b Point) float64 {
	const earthRadiusKm = 6371.0

	lat1Rad := a.Lat * math.Pi / 180
	lat2Rad := b.Lat * math.Pi / 180
	deltaLat := (b.Lat - a.Lat) * math.Pi / 180
	deltaLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// RoundKm rounds a distance in kilometers to two decimals for presentation.
func RoundKm(km float64) float64 {
	return math.Round(km*100) / 100
}

// BoundingBox represents a geographic bounding box.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Contains checks if a point is within the bounding box.
func (b BoundingBox) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// IndiaEnvelope bounds the service area. Satellite samples outside this
// envelope are rejected at ingest.
var IndiaEnvelope = BoundingBox{
	MinLat: 6.0,
	MaxLat: 37.5,
	MinLon: 68.0,
	MaxLon: 97.5,
}
