package weather

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vayulabs/vayu/internal/geo"
)

// ServiceConfig holds configuration for the enrichment service.
type ServiceConfig struct {
	// Repository is the weather sample store.
	Repository Repository

	// Logger for service operations.
	Logger zerolog.Logger

	// RadiusMultiplier widens the caller's search radius for weather
	// lookups (default: 2). Surface weather varies over larger scales
	// than pollution, so a wider net is acceptable.
	RadiusMultiplier float64

	// MaxDayLag is how many calendar days an observation may be offset
	// from the target date and still qualify (default: 2).
	MaxDayLag int
}

// Service attaches daily weather conditions to fused estimates.
type Service struct {
	repo             Repository
	logger           zerolog.Logger
	radiusMultiplier float64
	maxDayLag        int
}

// NewService creates a new enrichment service.
func NewService(cfg ServiceConfig) *Service {
	radiusMultiplier := cfg.RadiusMultiplier
	if radiusMultiplier == 0 {
		radiusMultiplier = 2
	}

	maxDayLag := cfg.MaxDayLag
	if maxDayLag == 0 {
		maxDayLag = 2
	}

	return &Service{
		repo:             cfg.Repository,
		logger:           cfg.Logger,
		radiusMultiplier: radiusMultiplier,
		maxDayLag:        maxDayLag,
	}
}

// Enrich finds the weather conditions nearest to the point for the given
// date. The search radius is the caller's radius widened by the configured
// multiplier. Returns (nil, nil) when no observation qualifies; absence of
// weather is not an error, downstream consumers fall back to climatology.
func (s *Service) Enrich(ctx context.Context, p geo.Point, radiusKm float64, at time.Time) (*Conditions, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	c, err := s.repo.Nearest(ctx, NearestQuery{
		Point:     p,
		RadiusKm:  radiusKm * s.radiusMultiplier,
		Date:      at,
		MaxDayLag: s.maxDayLag,
	})
	if err != nil {
		return nil, fmt.Errorf("weather lookup failed: %w", err)
	}
	if c == nil {
		s.logger.Debug().
			Float64("lat", p.Lat).
			Float64("lon", p.Lon).
			Float64("radius_km", radiusKm*s.radiusMultiplier).
			Msg("no weather observation near point")
		return nil, nil
	}

	return &Conditions{
		MinTemp:       c.Sample.MinTemp,
		MaxTemp:       c.Sample.MaxTemp,
		Rainfall:      c.Sample.Rainfall,
		Humidity:      c.Sample.Humidity,
		WindSpeed:     c.Sample.WindSpeed,
		WindDirection: c.Sample.WindDirection,
		Pressure:      c.Sample.Pressure,
		StationName:   c.Sample.StationName,
		DistanceKm:    geo.RoundKm(c.DistanceKm),
		Date:          c.Sample.Date.Format("2006-01-02"),
	}, nil
}
