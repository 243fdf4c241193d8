package station

import (
	"context"
	"time"

	"github.com/vayulabs/vayu/internal/geo"
)

// Repository defines persistence operations for stations and readings.
type Repository interface {
	// Upsert creates a station or updates its metadata by external
	// station identifier. On return s.ID carries the persisted internal
	// identifier, which existing rows keep across updates.
	Upsert(ctx context.Context, s *Station) error

	// Deactivate marks a station inactive by external station identifier.
	// Returns ErrStationNotFound when no such station exists.
	Deactivate(ctx context.Context, stationID string) error

	// ListActive returns all active stations.
	ListActive(ctx context.Context) ([]*Station, error)

	// InsertReadings appends a batch of readings.
	InsertReadings(ctx context.Context, readings []*Reading) error

	// NearestQualified returns the closest active station within the query
	// radius that has a reading satisfying the freshness and quality
	// constraints, together with that reading. Among stations at equal
	// distance the more recent reading wins. Returns (nil, nil) when no
	// station qualifies.
	NearestQualified(ctx context.Context, q NearestQuery) (*Candidate, error)

	// ReadingsInRange returns a station's readings in [from, to) at or
	// above the given quality score, ordered by recording time ascending.
	ReadingsInRange(ctx context.Context, stationRef string, from, to time.Time, minQuality int) ([]*Reading, error)

	// IndexedReadingsNear returns readings recorded since the given time
	// that carry a pollutant index, from active stations within radiusKm
	// of the point.
	IndexedReadingsNear(ctx context.Context, p geo.Point, radiusKm float64, since time.Time) ([]*Reading, error)

	// Stats reports the reading count and latest recording time.
	Stats(ctx context.Context) (count int64, latest time.Time, err error)
}
