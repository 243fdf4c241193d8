// Package station provides ground monitoring station data access.
package station

import (
	"errors"
	"time"

	"github.com/vayulabs/vayu/internal/geo"
)

// Repository errors.
var (
	ErrStationNotFound = errors.New("station not found")
)

// Station represents a ground pollution monitoring station.
// Stations are deactivated rather than deleted so historical joins survive
// a decommissioning.
type Station struct {
	// ID is the internal identifier used by reading references.
	ID string

	// StationID is the globally unique external identifier (CPCB naming).
	StationID string

	City  string
	State string
	Point geo.Point

	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Reading represents a single pollutant observation at a station.
// Readings are append-only and never updated in place.
type Reading struct {
	ID         int64
	StationRef string

	// Pollutant concentrations in µg/m³ (CO in mg/m³). Absent when the
	// station does not report the pollutant.
	PM25 *float64
	PM10 *float64
	NO2  *float64
	SO2  *float64
	CO   *float64
	O3   *float64

	// PollutantIndex is the derived composite index (CPCB AQI scale).
	PollutantIndex *float64

	// QualityScore rates the reading from 1 (suspect) to 5 (verified).
	QualityScore int

	RecordedAt time.Time
	IngestedAt time.Time
}

// NearestQuery describes a qualified nearest-station lookup.
type NearestQuery struct {
	Point    geo.Point
	RadiusKm float64

	// MaxAge is the reading freshness window.
	MaxAge time.Duration

	// MinQuality is the minimum acceptable reading quality score.
	MinQuality int
}

// Candidate pairs a station with its qualifying reading and the distance
// from the query point.
type Candidate struct {
	Station    Station
	Reading    Reading
	DistanceKm float64
}
