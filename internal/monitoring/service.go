// Package monitoring exposes freshness and availability of every data
// source behind the fusion pipeline.
package monitoring

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/vayulabs/vayu/internal/calibration"
	"github.com/vayulabs/vayu/internal/satellite"
	"github.com/vayulabs/vayu/internal/station"
	"github.com/vayulabs/vayu/internal/weather"
)

// SourceStatus describes one data source.
type SourceStatus struct {
	Name    string `json:"name"`
	Records int64  `json:"records"`

	// Latest is the most recent observation time, RFC 3339, empty when
	// the store is empty.
	Latest string `json:"latest,omitempty"`

	// AgeHours is how stale the newest record is.
	AgeHours float64 `json:"age_hours,omitempty"`

	// Healthy means the source answered and its data is inside the
	// configured staleness bound.
	Healthy bool `json:"healthy"`

	// Error carries the store failure when a source cannot be queried.
	Error string `json:"error,omitempty"`
}

// Snapshot is the full monitoring view.
type Snapshot struct {
	Sources     []SourceStatus `json:"sources"`
	Calibration bool           `json:"calibration_healthy"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// ServiceConfig holds configuration for the monitoring service.
type ServiceConfig struct {
	Stations   station.Repository
	Satellites satellite.Repository
	Weather    weather.Repository
	Calibrator calibration.Calibrator

	// Logger for monitoring operations.
	Logger zerolog.Logger

	// StaleAfter bounds how old the newest record of a source may be
	// before the source reports unhealthy (default: 48h).
	StaleAfter time.Duration
}

// Service assembles monitoring snapshots.
type Service struct {
	stations   station.Repository
	satellites satellite.Repository
	weather    weather.Repository
	calibrator calibration.Calibrator
	logger     zerolog.Logger
	staleAfter time.Duration
}

// NewService creates a new monitoring service.
func NewService(cfg ServiceConfig) *Service {
	staleAfter := cfg.StaleAfter
	if staleAfter == 0 {
		staleAfter = 48 * time.Hour
	}
	return &Service{
		stations:   cfg.Stations,
		satellites: cfg.Satellites,
		weather:    cfg.Weather,
		calibrator: cfg.Calibrator,
		logger:     cfg.Logger,
		staleAfter: staleAfter,
	}
}

type statsFunc func(ctx context.Context) (int64, time.Time, error)

// Snapshot reports record counts, freshness, and calibration reachability.
// A failing store marks its source unhealthy rather than failing the whole
// snapshot; the monitoring view must stay up when a source is down.
func (s *Service) Snapshot(ctx context.Context) *Snapshot {
	now := time.Now().UTC()

	type source struct {
		name  string
		stats statsFunc
	}
	sources := []source{
		{"ground_stations", s.stations.Stats},
		{"satellite_aod", s.satellites.Stats},
	}
	if s.weather != nil {
		sources = append(sources, source{"weather", s.weather.Stats})
	}

	snap := &Snapshot{GeneratedAt: now}
	for _, src := range sources {
		status := SourceStatus{Name: src.name}

		count, latest, err := src.stats(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Str("source", src.name).Msg("source stats unavailable")
			status.Error = err.Error()
			snap.Sources = append(snap.Sources, status)
			continue
		}

		status.Records = count
		if !latest.IsZero() && latest.Unix() > 0 {
			status.Latest = latest.UTC().Format(time.RFC3339)
			status.AgeHours = now.Sub(latest).Hours()
			status.Healthy = now.Sub(latest) <= s.staleAfter
		}
		snap.Sources = append(snap.Sources, status)
	}

	if s.calibrator != nil {
		snap.Calibration = s.calibrator.Healthy(ctx)
	}
	return snap
}
