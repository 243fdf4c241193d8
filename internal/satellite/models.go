// Package satellite provides satellite aerosol optical depth data access.
package satellite

import (
	"errors"
	"math"
	"time"

	"github.com/vayulabs/vayu/internal/geo"
)

// Validation errors.
var (
	ErrInvalidAOD  = errors.New("invalid aod value")
	ErrInvalidTier = errors.New("invalid quality tier")
)

// Sample is one satellite aerosol optical depth observation at a grid point.
type Sample struct {
	ID int64

	// Satellite names the observing platform, e.g. "INSAT-3D".
	Satellite string

	Point geo.Point

	// AOD is the aerosol optical depth, a dimensionless column measure.
	AOD float64

	// QualityTier is the coarse retrieval quality, 1 (worst) to 3 (best).
	QualityTier int

	ObservedAt time.Time
	IngestedAt time.Time
}

// Validate rejects samples with non-finite or negative optical depth, an
// out-of-range quality tier, or coordinates outside the valid range.
// Negative AOD values are retrieval artifacts and never physical.
func (s *Sample) Validate() error {
	if err := s.Point.Validate(); err != nil {
		return err
	}
	if math.IsNaN(s.AOD) || math.IsInf(s.AOD, 0) || s.AOD < 0 {
		return ErrInvalidAOD
	}
	if s.QualityTier < 1 || s.QualityTier > 3 {
		return ErrInvalidTier
	}
	return nil
}

// NearestQuery describes a nearest fresh sample lookup.
type NearestQuery struct {
	Point    geo.Point
	RadiusKm float64

	// MaxAge is the observation freshness window.
	MaxAge time.Duration

	// MinTier is the minimum acceptable retrieval quality tier.
	MinTier int
}

// Candidate pairs a sample with its distance from the query point.
type Candidate struct {
	Sample     Sample
	DistanceKm float64
}
