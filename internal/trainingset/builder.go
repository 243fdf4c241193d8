// Package trainingset assembles station-day feature rows for calibration
// model training.
package trainingset

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/vayulabs/vayu/internal/satellite"
	"github.com/vayulabs/vayu/internal/station"
	"github.com/vayulabs/vayu/internal/weather"
)

// Row is one station-day training example. A row exists only when both a
// ground PM2.5 average and a satellite optical depth average are available;
// the calibration model needs both sides of the pair.
type Row struct {
	StationID string    `json:"station_id"`
	Date      time.Time `json:"date"`

	// GroundPM25 is the daily mean of qualifying station readings.
	GroundPM25     float64 `json:"ground_pm25"`
	GroundReadings int     `json:"ground_readings"`

	// SatelliteAOD is the daily mean of nearby satellite samples.
	SatelliteAOD     float64 `json:"satellite_aod"`
	SatelliteSamples int     `json:"satellite_samples"`

	// Weather is present when a surface observation matched the
	// station-day.
	Weather *weather.Conditions `json:"weather,omitempty"`

	// Completeness scores the row from 2 (bare pair) to 5 (dense ground
	// coverage, dense satellite coverage, and weather).
	Completeness int `json:"completeness"`
}

// BuilderConfig holds configuration for the training-set builder.
type BuilderConfig struct {
	Stations   station.Repository
	Satellites satellite.Repository
	Weather    *weather.Service

	// Logger for builder operations.
	Logger zerolog.Logger

	// SatelliteRadiusKm is the match radius for satellite samples around
	// a station (default: 5).
	SatelliteRadiusKm float64

	// MinQuality is the minimum ground reading quality score
	// (default: 3).
	MinQuality int

	// DenseGroundCount and DenseSatelliteCount are the per-day sample
	// counts that earn a completeness bonus (defaults: 3 and 5).
	DenseGroundCount    int
	DenseSatelliteCount int
}

// Builder assembles training rows over a date range.
type Builder struct {
	stations   station.Repository
	satellites satellite.Repository
	weather    *weather.Service
	logger     zerolog.Logger

	satelliteRadiusKm   float64
	minQuality          int
	denseGroundCount    int
	denseSatelliteCount int
}

// NewBuilder creates a new training-set builder.
func NewBuilder(cfg BuilderConfig) *Builder {
	satelliteRadiusKm := cfg.SatelliteRadiusKm
	if satelliteRadiusKm == 0 {
		satelliteRadiusKm = 5
	}

	minQuality := cfg.MinQuality
	if minQuality == 0 {
		minQuality = 3
	}

	denseGroundCount := cfg.DenseGroundCount
	if denseGroundCount == 0 {
		denseGroundCount = 3
	}

	denseSatelliteCount := cfg.DenseSatelliteCount
	if denseSatelliteCount == 0 {
		denseSatelliteCount = 5
	}

	return &Builder{
		stations:            cfg.Stations,
		satellites:          cfg.Satellites,
		weather:             cfg.Weather,
		logger:              cfg.Logger,
		satelliteRadiusKm:   satelliteRadiusKm,
		minQuality:          minQuality,
		denseGroundCount:    denseGroundCount,
		denseSatelliteCount: denseSatelliteCount,
	}
}

// Build assembles rows for calendar days in [from, to). Output order is
// deterministic: most recent date first, then completeness descending,
// with the station identifier as the stable tiebreak.
func (b *Builder) Build(ctx context.Context, from, to time.Time) ([]Row, error) {
	stations, err := b.stations.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stations: %w", err)
	}

	from = weather.DayOf(from)
	to = weather.DayOf(to)

	var rows []Row
	for _, st := range stations {
		for day := from; day.Before(to); day = day.AddDate(0, 0, 1) {
			row, err := b.buildDay(ctx, st, day)
			if err != nil {
				return nil, err
			}
			if row != nil {
				rows = append(rows, *row)
			}
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.After(rows[j].Date)
		}
		if rows[i].Completeness != rows[j].Completeness {
			return rows[i].Completeness > rows[j].Completeness
		}
		return rows[i].StationID < rows[j].StationID
	})

	b.logger.Info().
		Int("stations", len(stations)).
		Int("rows", len(rows)).
		Time("from", from).
		Time("to", to).
		Msg("assembled training set")

	return rows, nil
}

func (b *Builder) buildDay(ctx context.Context, st *station.Station, day time.Time) (*Row, error) {
	next := day.AddDate(0, 0, 1)

	readings, err := b.stations.ReadingsInRange(ctx, st.ID, day, next, b.minQuality)
	if err != nil {
		return nil, fmt.Errorf("failed to load readings for %s: %w", st.StationID, err)
	}

	var pmSum float64
	var pmCount int
	for _, rd := range readings {
		if rd.PM25 != nil {
			pmSum += *rd.PM25
			pmCount++
		}
	}
	if pmCount == 0 {
		return nil, nil
	}

	samples, err := b.satellites.SamplesNear(ctx, st.Point, b.satelliteRadiusKm, day, next)
	if err != nil {
		return nil, fmt.Errorf("failed to load satellite samples for %s: %w", st.StationID, err)
	}
	if len(samples) == 0 {
		return nil, nil
	}

	var aodSum float64
	for _, s := range samples {
		aodSum += s.AOD
	}

	row := &Row{
		StationID:        st.StationID,
		Date:             day,
		GroundPM25:       pmSum / float64(pmCount),
		GroundReadings:   pmCount,
		SatelliteAOD:     aodSum / float64(len(samples)),
		SatelliteSamples: len(samples),
		Completeness:     2,
	}

	if pmCount >= b.denseGroundCount {
		row.Completeness++
	}
	if len(samples) >= b.denseSatelliteCount {
		row.Completeness++
	}

	cond, err := b.weather.Enrich(ctx, st.Point, b.satelliteRadiusKm, day)
	if err != nil {
		return nil, fmt.Errorf("failed to load weather for %s: %w", st.StationID, err)
	}
	if cond != nil {
		row.Weather = cond
		row.Completeness++
	}

	return row, nil
}
