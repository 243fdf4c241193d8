package weather

import (
	"context"
	"time"

	"github.com/vayulabs/vayu/internal/geo"
)

// Repository defines persistence operations for daily weather samples.
type Repository interface {
	// Insert appends a batch of daily samples.
	Insert(ctx context.Context, samples []*Sample) error

	// Nearest returns the closest sample within the query radius dated
	// within the query's day lag window. Among samples at equal distance
	// the one dated closest to the query date wins. Returns (nil, nil)
	// when no sample qualifies.
	Nearest(ctx context.Context, q NearestQuery) (*Candidate, error)

	// ForRange returns samples dated in [from, to) within radiusKm of the
	// point, ordered by date ascending.
	ForRange(ctx context.Context, p geo.Point, radiusKm float64, from, to time.Time) ([]*Sample, error)

	// Stats reports the sample count and latest observation date.
	Stats(ctx context.Context) (count int64, latest time.Time, err error)
}
