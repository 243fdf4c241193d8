package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vayulabs/vayu/internal/geo"
	"github.com/vayulabs/vayu/internal/ingest"
	"github.com/vayulabs/vayu/internal/ingest/cpcb"
	"github.com/vayulabs/vayu/internal/maintenance"
	"github.com/vayulabs/vayu/internal/satellite"
	"github.com/vayulabs/vayu/internal/station"
	"github.com/vayulabs/vayu/internal/trainingset"
	"github.com/vayulabs/vayu/internal/weather"
	"github.com/vayulabs/vayu/internal/worker"
)

func ptr(v float64) *float64 { return &v }

func delhiPoint() geo.Point { return geo.Point{Lat: 28.61, Lon: 77.21} }

type groundFeed struct {
	records []cpcb.Record
	err     error
}

func (f *groundFeed) FetchRealtime(_ context.Context) ([]cpcb.Record, error) {
	return f.records, f.err
}

type satelliteFeed struct {
	samples []*satellite.Sample
}

func (f *satelliteFeed) FetchRecent(_ context.Context) ([]*satellite.Sample, error) {
	return f.samples, nil
}

type weatherFeed struct {
	samples []*weather.Sample
	gotDate time.Time
}

func (f *weatherFeed) FetchDaily(_ context.Context, date time.Time) ([]*weather.Sample, error) {
	f.gotDate = date
	return f.samples, nil
}

type fixture struct {
	stations    *station.MemoryRepository
	satellites  *satellite.MemoryRepository
	ground      *groundFeed
	wx          *weatherFeed
	trainingDir string
	runner      *worker.Runner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zerolog.New(io.Discard)

	f := &fixture{
		stations:   station.NewMemoryRepository(),
		satellites: satellite.NewMemoryRepository(),
		ground: &groundFeed{records: []cpcb.Record{{
			StationID:  "DL001",
			City:       "Delhi",
			State:      "Delhi",
			Latitude:   28.64,
			Longitude:  77.31,
			Pollutant:  "PM2.5",
			Avg:        ptr(88),
			LastUpdate: time.Now().Add(-15 * time.Minute),
		}}},
		wx: &weatherFeed{samples: []*weather.Sample{{
			StationName: "SAFDARJUNG",
			Point:       geo.Point{Lat: 28.58, Lon: 77.21},
			Date:        time.Now().UTC().Truncate(24 * time.Hour),
			MinTemp:     26,
			MaxTemp:     34,
		}}},
	}

	weatherRepo := weather.NewMemoryRepository()
	ingestSvc := ingest.NewService(ingest.ServiceConfig{
		Stations:      f.stations,
		Satellites:    f.satellites,
		Weather:       weatherRepo,
		Ground:        f.ground,
		SatelliteFeed: &satelliteFeed{samples: []*satellite.Sample{{
			Satellite:   "INSAT-3D",
			Point:       delhiPoint(),
			AOD:         0.8,
			QualityTier: 2,
			ObservedAt:  time.Now().Add(-2 * time.Hour),
		}}},
		WeatherFeed: f.wx,
		Logger:      logger,
	})
	maintenanceSvc := maintenance.NewService(maintenance.ServiceConfig{
		Satellites: f.satellites,
		Logger:     logger,
	})
	builder := trainingset.NewBuilder(trainingset.BuilderConfig{
		Stations:   f.stations,
		Satellites: f.satellites,
		Weather: weather.NewService(weather.ServiceConfig{
			Repository: weatherRepo,
			Logger:     logger,
		}),
		Logger: logger,
	})

	f.trainingDir = t.TempDir()
	f.runner = worker.NewRunner(worker.RunnerConfig{
		Config: worker.Config{
			TrainingSetDays: 7,
			TrainingSetDir:  f.trainingDir,
		},
		Logger:      logger,
		Ingest:      ingestSvc,
		Maintenance: maintenanceSvc,
		TrainingSet: builder,
	})
	return f
}

func TestRunnerGroundIngest(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.runner.Run(context.Background(), worker.JobGroundIngest))

	stations, err := f.stations.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, stations, 1)
	assert.Equal(t, "DL001", stations[0].StationID)

	m := f.runner.GetMetrics()
	assert.Equal(t, int64(1), m.TotalRuns)
	assert.Equal(t, int64(1), m.GroundRuns)
	assert.Equal(t, int64(1), m.RecordsStored)
	assert.Zero(t, m.FailedRuns)
}

func TestRunnerSatelliteIngest(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.runner.Run(context.Background(), worker.JobSatelliteIngest))

	count, _, err := f.satellites.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRunnerWeatherBackfillUsesGivenDate(t *testing.T) {
	f := newFixture(t)
	date := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, f.runner.BackfillWeather(context.Background(), date))
	assert.Equal(t, date, f.wx.gotDate)
}

func TestRunnerRetentionPrunesAndCounts(t *testing.T) {
	f := newFixture(t)
	old := &satellite.Sample{
		Satellite:  "INSAT-3D",
		Point:      delhiPoint(),
		AOD:        0.5,
		ObservedAt: time.Now().AddDate(0, 0, -45),
	}
	require.NoError(t, f.satellites.InsertBatch(context.Background(), []*satellite.Sample{old}))

	require.NoError(t, f.runner.Run(context.Background(), worker.JobRetention))

	count, _, err := f.satellites.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, int64(1), f.runner.GetMetrics().SamplesPruned)
}

func TestRunnerFailedJobCounted(t *testing.T) {
	f := newFixture(t)
	f.ground.err = errors.New("feed down")

	err := f.runner.Run(context.Background(), worker.JobGroundIngest)
	require.Error(t, err)

	m := f.runner.GetMetrics()
	assert.Equal(t, int64(1), m.FailedRuns)
	assert.Zero(t, m.GroundRuns)
}

func TestRunnerUnknownJobType(t *testing.T) {
	f := newFixture(t)

	err := f.runner.Run(context.Background(), "reindex")
	assert.Error(t, err)
}

func TestRunnerHealthCheckWithoutMonitoring(t *testing.T) {
	f := newFixture(t)

	assert.NoError(t, f.runner.Run(context.Background(), worker.JobHealthCheck))
}

func TestRunnerTrainingSetBuild(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	yesterday := time.Now().UTC().Truncate(24 * time.Hour).Add(-24 * time.Hour)

	require.NoError(t, f.stations.Upsert(ctx, &station.Station{
		ID: "st-dl001", StationID: "DL001", Point: delhiPoint(),
	}))
	require.NoError(t, f.stations.InsertReadings(ctx, []*station.Reading{{
		StationRef:   "st-dl001",
		PM25:         ptr(96),
		QualityScore: 4,
		RecordedAt:   yesterday.Add(9 * time.Hour),
	}}))
	require.NoError(t, f.satellites.InsertBatch(ctx, []*satellite.Sample{{
		Satellite:   "INSAT-3D",
		Point:       delhiPoint(),
		AOD:         0.7,
		QualityTier: 2,
		ObservedAt:  yesterday.Add(10 * time.Hour),
	}}))

	require.NoError(t, f.runner.Run(ctx, worker.JobTrainingSet))

	name := "trainingset_" + time.Now().UTC().Format("2006-01-02") + ".json"
	data, err := os.ReadFile(filepath.Join(f.trainingDir, name))
	require.NoError(t, err)

	var rows []trainingset.Row
	require.NoError(t, json.Unmarshal(data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "DL001", rows[0].StationID)
	assert.Equal(t, 96.0, rows[0].GroundPM25)
	assert.Equal(t, 0.7, rows[0].SatelliteAOD)

	m := f.runner.GetMetrics()
	assert.Equal(t, int64(1), m.TrainingSetRuns)
	assert.Equal(t, int64(1), m.TrainingRowsBuilt)
}
