package trainingset_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vayulabs/vayu/internal/geo"
	"github.com/vayulabs/vayu/internal/satellite"
	"github.com/vayulabs/vayu/internal/station"
	"github.com/vayulabs/vayu/internal/trainingset"
	"github.com/vayulabs/vayu/internal/weather"
)

var (
	delhi = geo.Point{Lat: 28.61, Lon: 77.21}
	day   = time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
)

func ptr(v float64) *float64 { return &v }

type fixture struct {
	stations   *station.MemoryRepository
	satellites *satellite.MemoryRepository
	weather    *weather.MemoryRepository
	builder    *trainingset.Builder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		stations:   station.NewMemoryRepository(),
		satellites: satellite.NewMemoryRepository(),
		weather:    weather.NewMemoryRepository(),
	}
	f.builder = trainingset.NewBuilder(trainingset.BuilderConfig{
		Stations:   f.stations,
		Satellites: f.satellites,
		Weather: weather.NewService(weather.ServiceConfig{
			Repository: f.weather,
			Logger:     zerolog.New(io.Discard),
		}),
		Logger: zerolog.New(io.Discard),
	})
	return f
}

func (f *fixture) seedStation(t *testing.T, id string, p geo.Point) {
	t.Helper()
	require.NoError(t, f.stations.Upsert(context.Background(),
		&station.Station{ID: "ref-" + id, StationID: id, Point: p}))
}

func (f *fixture) seedReadings(t *testing.T, id string, at time.Time, pm25 ...float64) {
	t.Helper()
	readings := make([]*station.Reading, len(pm25))
	for i, v := range pm25 {
		readings[i] = &station.Reading{
			StationRef:   "ref-" + id,
			PM25:         ptr(v),
			QualityScore: 4,
			RecordedAt:   at.Add(time.Duration(i) * time.Hour),
		}
	}
	require.NoError(t, f.stations.InsertReadings(context.Background(), readings))
}

func (f *fixture) seedSamples(t *testing.T, p geo.Point, at time.Time, aod ...float64) {
	t.Helper()
	samples := make([]*satellite.Sample, len(aod))
	for i, v := range aod {
		samples[i] = &satellite.Sample{
			Satellite:   "INSAT-3D",
			Point:       p,
			AOD:         v,
			QualityTier: 2,
			ObservedAt:  at.Add(time.Duration(i) * time.Hour),
		}
	}
	require.NoError(t, f.satellites.InsertBatch(context.Background(), samples))
}

func TestBuildAveragesPair(t *testing.T) {
	f := newFixture(t)
	f.seedStation(t, "DL001", delhi)
	f.seedReadings(t, "DL001", day.Add(6*time.Hour), 80, 100)
	f.seedSamples(t, delhi, day.Add(9*time.Hour), 0.4, 0.6)

	rows, err := f.builder.Build(context.Background(), day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "DL001", rows[0].StationID)
	assert.Equal(t, 90.0, rows[0].GroundPM25)
	assert.Equal(t, 2, rows[0].GroundReadings)
	assert.InDelta(t, 0.5, rows[0].SatelliteAOD, 1e-9)
	assert.Equal(t, 2, rows[0].SatelliteSamples)
	assert.Equal(t, 2, rows[0].Completeness)
	assert.Nil(t, rows[0].Weather)
}

func TestBuildDropsIncompletePairs(t *testing.T) {
	f := newFixture(t)
	f.seedStation(t, "DL001", delhi)
	f.seedStation(t, "DL002", geo.Point{Lat: 19.07, Lon: 72.88})

	// DL001 has only ground data, DL002 only satellite coverage.
	f.seedReadings(t, "DL001", day.Add(6*time.Hour), 80)
	f.seedSamples(t, geo.Point{Lat: 19.07, Lon: 72.88}, day.Add(9*time.Hour), 0.4)

	rows, err := f.builder.Build(context.Background(), day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestBuildCompletenessScoring(t *testing.T) {
	f := newFixture(t)
	f.seedStation(t, "DL001", delhi)
	f.seedReadings(t, "DL001", day.Add(4*time.Hour), 80, 90, 100)
	f.seedSamples(t, delhi, day.Add(8*time.Hour), 0.4, 0.5, 0.6, 0.5, 0.4)
	require.NoError(t, f.weather.Insert(context.Background(), []*weather.Sample{
		{StationName: "Safdarjung", Point: delhi, Date: day, MinTemp: 26, MaxTemp: 36, Rainfall: 1},
	}))

	rows, err := f.builder.Build(context.Background(), day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 5, rows[0].Completeness)
	require.NotNil(t, rows[0].Weather)
	assert.Equal(t, 26.0, rows[0].Weather.MinTemp)
}

func TestBuildDeterministicOrder(t *testing.T) {
	f := newFixture(t)
	mumbai := geo.Point{Lat: 19.07, Lon: 72.88}

	// Seed in reverse identifier order to prove output ordering does not
	// depend on insertion order.
	f.seedStation(t, "MH001", mumbai)
	f.seedStation(t, "DL001", delhi)
	for _, d := range []time.Time{day.AddDate(0, 0, 1), day} {
		f.seedReadings(t, "MH001", d.Add(6*time.Hour), 60)
		f.seedReadings(t, "DL001", d.Add(6*time.Hour), 80)
		f.seedSamples(t, mumbai, d.Add(9*time.Hour), 0.3)
		f.seedSamples(t, delhi, d.Add(9*time.Hour), 0.5)
	}

	first, err := f.builder.Build(context.Background(), day, day.AddDate(0, 0, 2))
	require.NoError(t, err)
	second, err := f.builder.Build(context.Background(), day, day.AddDate(0, 0, 2))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, first, 4)

	// Most recent date first, station identifier as tiebreak within it.
	assert.Equal(t, day.AddDate(0, 0, 1), first[0].Date)
	assert.Equal(t, "DL001", first[0].StationID)
	assert.Equal(t, day.AddDate(0, 0, 1), first[1].Date)
	assert.Equal(t, "MH001", first[1].StationID)
	assert.Equal(t, day, first[2].Date)
	assert.Equal(t, "DL001", first[2].StationID)
	assert.Equal(t, day, first[3].Date)
	assert.Equal(t, "MH001", first[3].StationID)
}

func TestBuildRanksCompleteRowsFirstWithinDate(t *testing.T) {
	f := newFixture(t)
	mumbai := geo.Point{Lat: 19.07, Lon: 72.88}

	f.seedStation(t, "DL001", delhi)
	f.seedStation(t, "MH001", mumbai)
	f.seedReadings(t, "DL001", day.Add(6*time.Hour), 80)
	f.seedSamples(t, delhi, day.Add(9*time.Hour), 0.5)
	f.seedReadings(t, "MH001", day.Add(6*time.Hour), 60)
	f.seedSamples(t, mumbai, day.Add(9*time.Hour), 0.3)
	require.NoError(t, f.weather.Insert(context.Background(), []*weather.Sample{
		{StationName: "Santacruz", Point: mumbai, Date: day, MinTemp: 27, MaxTemp: 32, Rainfall: 12},
	}))

	rows, err := f.builder.Build(context.Background(), day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// MH001 carries weather and outranks DL001 despite sorting after it
	// by identifier.
	assert.Equal(t, "MH001", rows[0].StationID)
	assert.Equal(t, 3, rows[0].Completeness)
	assert.Equal(t, "DL001", rows[1].StationID)
	assert.Equal(t, 2, rows[1].Completeness)
}

func TestBuildDefaultSatelliteRadiusIsTight(t *testing.T) {
	f := newFixture(t)
	f.seedStation(t, "DL001", delhi)
	f.seedReadings(t, "DL001", day.Add(6*time.Hour), 80)

	// Roughly 10 km north of the station: outside the 5 km default match
	// radius, so no pair forms.
	f.seedSamples(t, geo.Point{Lat: 28.70, Lon: 77.21}, day.Add(9*time.Hour), 0.4)

	rows, err := f.builder.Build(context.Background(), day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, rows)

	// A sample about 3 km away pairs up.
	f.seedSamples(t, geo.Point{Lat: 28.64, Lon: 77.21}, day.Add(10*time.Hour), 0.5)

	rows, err = f.builder.Build(context.Background(), day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestBuildIgnoresLowQualityReadings(t *testing.T) {
	f := newFixture(t)
	f.seedStation(t, "DL001", delhi)
	require.NoError(t, f.stations.InsertReadings(context.Background(), []*station.Reading{
		{StationRef: "ref-DL001", PM25: ptr(500), QualityScore: 1, RecordedAt: day.Add(6 * time.Hour)},
		{StationRef: "ref-DL001", PM25: ptr(80), QualityScore: 4, RecordedAt: day.Add(7 * time.Hour)},
	}))
	f.seedSamples(t, delhi, day.Add(9*time.Hour), 0.4)

	rows, err := f.builder.Build(context.Background(), day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 80.0, rows[0].GroundPM25)
	assert.Equal(t, 1, rows[0].GroundReadings)
}
