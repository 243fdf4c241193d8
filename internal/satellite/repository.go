package satellite

import (
	"context"
	"time"

	"github.com/vayulabs/vayu/internal/geo"
)

// Repository defines persistence operations for satellite samples.
type Repository interface {
	// InsertBatch appends a batch of samples.
	InsertBatch(ctx context.Context, samples []*Sample) error

	// NearestFresh returns the closest sample within the query radius whose
	// observation time satisfies the freshness window. Among samples at
	// equal distance the more recent observation wins. Returns (nil, nil)
	// when no sample qualifies.
	NearestFresh(ctx context.Context, q NearestQuery) (*Candidate, error)

	// SamplesNear returns samples observed in [from, to) within radiusKm
	// of the point, ordered by observation time ascending.
	SamplesNear(ctx context.Context, p geo.Point, radiusKm float64, from, to time.Time) ([]*Sample, error)

	// DeleteOlderThan removes samples observed before the cutoff and
	// reports how many were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// Stats reports the sample count and latest observation time.
	Stats(ctx context.Context) (count int64, latest time.Time, err error)
}
