// Package ingest pulls external feeds into the data stores.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vayulabs/vayu/internal/geo"
	"github.com/vayulabs/vayu/internal/ingest/cpcb"
	"github.com/vayulabs/vayu/internal/satellite"
	"github.com/vayulabs/vayu/internal/station"
	"github.com/vayulabs/vayu/internal/weather"
)

// GroundSource supplies realtime station records.
type GroundSource interface {
	FetchRealtime(ctx context.Context) ([]cpcb.Record, error)
}

// SatelliteSource supplies recent optical depth samples.
type SatelliteSource interface {
	FetchRecent(ctx context.Context) ([]*satellite.Sample, error)
}

// WeatherSource supplies daily surface observations for a date.
type WeatherSource interface {
	FetchDaily(ctx context.Context, date time.Time) ([]*weather.Sample, error)
}

// Report summarizes one ingest run.
type Report struct {
	Fetched  int `json:"fetched"`
	Stored   int `json:"stored"`
	Rejected int `json:"rejected"`
}

// ServiceConfig holds configuration for the ingest service.
type ServiceConfig struct {
	Stations   station.Repository
	Satellites satellite.Repository
	Weather    weather.Repository

	Ground        GroundSource
	SatelliteFeed SatelliteSource
	WeatherFeed   WeatherSource

	// Logger for ingest operations.
	Logger zerolog.Logger

	// Envelope bounds accepted coordinates (default: geo.IndiaEnvelope).
	Envelope geo.BoundingBox
}

// Service runs ingest pipelines against the external feeds.
type Service struct {
	stations   station.Repository
	satellites satellite.Repository
	weather    weather.Repository

	ground        GroundSource
	satelliteFeed SatelliteSource
	weatherFeed   WeatherSource

	logger   zerolog.Logger
	envelope geo.BoundingBox
}

// NewService creates a new ingest service.
func NewService(cfg ServiceConfig) *Service {
	envelope := cfg.Envelope
	if envelope == (geo.BoundingBox{}) {
		envelope = geo.IndiaEnvelope
	}
	return &Service{
		stations:      cfg.Stations,
		satellites:    cfg.Satellites,
		weather:       cfg.Weather,
		ground:        cfg.Ground,
		satelliteFeed: cfg.SatelliteFeed,
		weatherFeed:   cfg.WeatherFeed,
		logger:        cfg.Logger,
		envelope:      envelope,
	}
}

// IngestGround pulls the realtime feed, upserts station metadata, and
// stores one reading per station assembled from its pollutant records.
func (s *Service) IngestGround(ctx context.Context) (*Report, error) {
	records, err := s.ground.FetchRealtime(ctx)
	if err != nil {
		return nil, fmt.Errorf("ground fetch failed: %w", err)
	}

	groups := groupByStation(records)
	report := &Report{Fetched: len(records)}

	var readings []*station.Reading
	for _, grp := range groups {
		first := grp[0]
		p := geo.Point{Lat: first.Latitude, Lon: first.Longitude}
		if p.Validate() != nil || !s.envelope.Contains(p) {
			report.Rejected += len(grp)
			s.logger.Warn().
				Str("station", first.StationID).
				Float64("lat", p.Lat).
				Float64("lon", p.Lon).
				Msg("station outside envelope, skipping")
			continue
		}

		st := &station.Station{
			ID:        uuid.NewString(),
			StationID: first.StationID,
			City:      first.City,
			State:     first.State,
			Point:     p,
		}
		if err := s.stations.Upsert(ctx, st); err != nil {
			return nil, fmt.Errorf("station upsert failed: %w", err)
		}

		rd := assembleReading(st.ID, grp)
		if rd == nil {
			report.Rejected += len(grp)
			continue
		}
		readings = append(readings, rd)
		report.Stored++
	}

	if err := s.stations.InsertReadings(ctx, readings); err != nil {
		return nil, fmt.Errorf("reading insert failed: %w", err)
	}

	s.logger.Info().
		Int("fetched", report.Fetched).
		Int("stored", report.Stored).
		Int("rejected", report.Rejected).
		Msg("ingested ground readings")
	return report, nil
}

// IngestSatellite pulls recent optical depth samples, drops invalid or
// out-of-envelope ones, and batch inserts the rest.
func (s *Service) IngestSatellite(ctx context.Context) (*Report, error) {
	samples, err := s.satelliteFeed.FetchRecent(ctx)
	if err != nil {
		return nil, fmt.Errorf("satellite fetch failed: %w", err)
	}

	report := &Report{Fetched: len(samples)}
	valid := make([]*satellite.Sample, 0, len(samples))
	for _, sm := range samples {
		if err := sm.Validate(); err != nil || !s.envelope.Contains(sm.Point) {
			report.Rejected++
			continue
		}
		valid = append(valid, sm)
	}

	if err := s.satellites.InsertBatch(ctx, valid); err != nil {
		return nil, fmt.Errorf("sample insert failed: %w", err)
	}
	report.Stored = len(valid)

	s.logger.Info().
		Int("fetched", report.Fetched).
		Int("stored", report.Stored).
		Int("rejected", report.Rejected).
		Msg("ingested satellite samples")
	return report, nil
}

// IngestWeather pulls the daily surface observations for a date.
func (s *Service) IngestWeather(ctx context.Context, date time.Time) (*Report, error) {
	samples, err := s.weatherFeed.FetchDaily(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("weather fetch failed: %w", err)
	}

	report := &Report{Fetched: len(samples)}
	valid := make([]*weather.Sample, 0, len(samples))
	for _, sm := range samples {
		if sm.Validate() != nil || !s.envelope.Contains(sm.Point) {
			report.Rejected++
			continue
		}
		valid = append(valid, sm)
	}

	if err := s.weather.Insert(ctx, valid); err != nil {
		return nil, fmt.Errorf("weather insert failed: %w", err)
	}
	report.Stored = len(valid)

	s.logger.Info().
		Int("fetched", report.Fetched).
		Int("stored", report.Stored).
		Int("rejected", report.Rejected).
		Msg("ingested weather samples")
	return report, nil
}

// groupByStation collects per-pollutant records into per-station groups,
// preserving feed order for determinism.
func groupByStation(records []cpcb.Record) [][]cpcb.Record {
	index := make(map[string]int)
	var groups [][]cpcb.Record
	for _, rec := range records {
		i, ok := index[rec.StationID]
		if !ok {
			i = len(groups)
			index[rec.StationID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], rec)
	}
	return groups
}

// assembleReading folds one station's pollutant records into a reading.
// Returns nil when every pollutant is absent.
func assembleReading(stationRef string, grp []cpcb.Record) *station.Reading {
	rd := &station.Reading{
		StationRef: stationRef,
		RecordedAt: grp[0].LastUpdate,
	}

	present := 0
	for _, rec := range grp {
		if rec.Avg == nil {
			continue
		}
		v := *rec.Avg
		switch strings.ToUpper(rec.Pollutant) {
		case "PM2.5":
			rd.PM25 = &v
		case "PM10":
			rd.PM10 = &v
		case "NO2":
			rd.NO2 = &v
		case "SO2":
			rd.SO2 = &v
		case "CO":
			rd.CO = &v
		case "OZONE", "O3":
			rd.O3 = &v
		default:
			continue
		}
		present++
		if rec.LastUpdate.After(rd.RecordedAt) {
			rd.RecordedAt = rec.LastUpdate
		}
	}
	if present == 0 {
		return nil
	}

	rd.PollutantIndex = station.ComputeIndex(rd)
	rd.QualityScore = scoreReading(present, rd.RecordedAt)
	return rd
}

// scoreReading rates a reading on pollutant coverage and freshness.
func scoreReading(pollutants int, recordedAt time.Time) int {
	score := 3
	if pollutants >= 3 {
		score++
	}
	if time.Since(recordedAt) < time.Hour {
		score++
	}
	return score
}
