package monitoring_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vayulabs/vayu/internal/calibration"
	"github.com/vayulabs/vayu/internal/geo"
	"github.com/vayulabs/vayu/internal/monitoring"
	"github.com/vayulabs/vayu/internal/satellite"
	"github.com/vayulabs/vayu/internal/station"
	"github.com/vayulabs/vayu/internal/weather"
)

type staticCalibrator struct{ healthy bool }

func (c staticCalibrator) Calibrate(context.Context, calibration.Input) (*calibration.Estimate, error) {
	return nil, calibration.ErrUnavailable
}
func (c staticCalibrator) Healthy(context.Context) bool { return c.healthy }

type failingStations struct {
	station.Repository
}

func (failingStations) Stats(context.Context) (int64, time.Time, error) {
	return 0, time.Time{}, errors.New("connection refused")
}

func ptr(v float64) *float64 { return &v }

func TestSnapshot(t *testing.T) {
	ctx := context.Background()
	stations := station.NewMemoryRepository()
	satellites := satellite.NewMemoryRepository()
	weatherRepo := weather.NewMemoryRepository()
	now := time.Now()
	p := geo.Point{Lat: 28.61, Lon: 77.21}

	require.NoError(t, stations.Upsert(ctx, &station.Station{ID: "ref-1", StationID: "DL001", Point: p}))
	require.NoError(t, stations.InsertReadings(ctx, []*station.Reading{
		{StationRef: "ref-1", PM25: ptr(80), QualityScore: 4, RecordedAt: now.Add(-time.Hour)},
	}))
	require.NoError(t, satellites.InsertBatch(ctx, []*satellite.Sample{
		{Point: p, AOD: 0.4, ObservedAt: now.Add(-72 * time.Hour)},
	}))

	svc := monitoring.NewService(monitoring.ServiceConfig{
		Stations:   stations,
		Satellites: satellites,
		Weather:    weatherRepo,
		Calibrator: staticCalibrator{healthy: true},
		Logger:     zerolog.New(io.Discard),
	})

	snap := svc.Snapshot(ctx)
	require.Len(t, snap.Sources, 3)
	assert.True(t, snap.Calibration)

	byName := map[string]monitoring.SourceStatus{}
	for _, s := range snap.Sources {
		byName[s.Name] = s
	}

	ground := byName["ground_stations"]
	assert.EqualValues(t, 1, ground.Records)
	assert.True(t, ground.Healthy)
	assert.InDelta(t, 1, ground.AgeHours, 0.1)

	// Satellite data is past the staleness bound.
	sat := byName["satellite_aod"]
	assert.EqualValues(t, 1, sat.Records)
	assert.False(t, sat.Healthy)

	// An empty store is unhealthy but not an error.
	wx := byName["weather"]
	assert.Zero(t, wx.Records)
	assert.False(t, wx.Healthy)
	assert.Empty(t, wx.Error)
}

func TestSnapshotSurvivesStoreFailure(t *testing.T) {
	svc := monitoring.NewService(monitoring.ServiceConfig{
		Stations:   failingStations{},
		Satellites: satellite.NewMemoryRepository(),
		Weather:    weather.NewMemoryRepository(),
		Calibrator: staticCalibrator{healthy: false},
		Logger:     zerolog.New(io.Discard),
	})

	snap := svc.Snapshot(context.Background())
	require.Len(t, snap.Sources, 3)
	assert.False(t, snap.Calibration)
	assert.Equal(t, "connection refused", snap.Sources[0].Error)
	assert.False(t, snap.Sources[0].Healthy)
}
