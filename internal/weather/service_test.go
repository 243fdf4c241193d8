package weather_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vayulabs/vayu/internal/geo"
	"github.com/vayulabs/vayu/internal/weather"
)

func newService(t *testing.T, repo weather.Repository) *weather.Service {
	t.Helper()
	return weather.NewService(weather.ServiceConfig{
		Repository: repo,
		Logger:     zerolog.New(io.Discard),
	})
}

func TestEnrichPicksNearestObservation(t *testing.T) {
	ctx := context.Background()
	repo := weather.NewMemoryRepository()
	day := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Insert(ctx, []*weather.Sample{
		{StationName: "Safdarjung", Point: geo.Point{Lat: 28.58, Lon: 77.20}, Date: day, MinTemp: 26, MaxTemp: 36, Rainfall: 2.5, Humidity: 72, WindSpeed: 2.8, WindDirection: 250, Pressure: 1001},
		{StationName: "Palam", Point: geo.Point{Lat: 28.57, Lon: 77.11}, Date: day, MinTemp: 27, MaxTemp: 37, Rainfall: 0},
	}))

	svc := newService(t, repo)
	cond, err := svc.Enrich(ctx, geo.Point{Lat: 28.59, Lon: 77.21}, 10, day.Add(9*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, cond)
	assert.Equal(t, "Safdarjung", cond.StationName)
	assert.Equal(t, 26.0, cond.MinTemp)
	assert.Equal(t, 36.0, cond.MaxTemp)
	assert.Equal(t, 2.5, cond.Rainfall)
	assert.Equal(t, 72.0, cond.Humidity)
	assert.Equal(t, 2.8, cond.WindSpeed)
	assert.Equal(t, 250.0, cond.WindDirection)
	assert.Equal(t, 1001.0, cond.Pressure)
	assert.Equal(t, "2026-08-20", cond.Date)
}

func TestSampleValidateWindDirection(t *testing.T) {
	p := geo.Point{Lat: 28.58, Lon: 77.20}

	tests := []struct {
		name    string
		sample  weather.Sample
		wantErr error
	}{
		{"valid", weather.Sample{Point: p, WindDirection: 240}, nil},
		{"calm", weather.Sample{Point: p}, nil},
		{"due north wrapped", weather.Sample{Point: p, WindDirection: 360}, nil},
		{"over range", weather.Sample{Point: p, WindDirection: 400}, weather.ErrInvalidWindDirection},
		{"negative", weather.Sample{Point: p, WindDirection: -10}, weather.ErrInvalidWindDirection},
		{"bad point", weather.Sample{Point: geo.Point{Lat: 95}}, geo.ErrInvalidCoordinates},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sample.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestEnrichWidensRadius(t *testing.T) {
	ctx := context.Background()
	repo := weather.NewMemoryRepository()
	day := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	// Station roughly 15 km away: outside a 10 km radius but inside the
	// doubled weather radius.
	require.NoError(t, repo.Insert(ctx, []*weather.Sample{
		{StationName: "Gurugram", Point: geo.Point{Lat: 28.46, Lon: 77.03}, Date: day, MinTemp: 25, MaxTemp: 35},
	}))

	svc := newService(t, repo)
	cond, err := svc.Enrich(ctx, geo.Point{Lat: 28.55, Lon: 77.12}, 10, day)
	require.NoError(t, err)
	require.NotNil(t, cond)
	assert.Equal(t, "Gurugram", cond.StationName)
}

func TestEnrichDayLagWindow(t *testing.T) {
	ctx := context.Background()
	repo := weather.NewMemoryRepository()
	day := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	p := geo.Point{Lat: 28.58, Lon: 77.20}

	require.NoError(t, repo.Insert(ctx, []*weather.Sample{
		{StationName: "Safdarjung", Point: p, Date: day.AddDate(0, 0, -2), MinTemp: 24, MaxTemp: 34},
	}))

	svc := newService(t, repo)

	// Two days old is still inside the window.
	cond, err := svc.Enrich(ctx, p, 10, day)
	require.NoError(t, err)
	require.NotNil(t, cond)
	assert.Equal(t, 24.0, cond.MinTemp)

	// Three days old is not.
	cond, err = svc.Enrich(ctx, p, 10, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Nil(t, cond)
}

func TestEnrichNoDataIsNotAnError(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, weather.NewMemoryRepository())

	cond, err := svc.Enrich(ctx, geo.Point{Lat: 28.58, Lon: 77.20}, 10, time.Now())
	require.NoError(t, err)
	assert.Nil(t, cond)
}

func TestEnrichInvalidPoint(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, weather.NewMemoryRepository())

	_, err := svc.Enrich(ctx, geo.Point{Lat: 95, Lon: 0}, 10, time.Now())
	assert.ErrorIs(t, err, geo.ErrInvalidCoordinates)
}

func TestMemoryRepositoryUpsertsByStationAndDay(t *testing.T) {
	ctx := context.Background()
	repo := weather.NewMemoryRepository()
	day := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	p := geo.Point{Lat: 28.58, Lon: 77.20}

	require.NoError(t, repo.Insert(ctx, []*weather.Sample{
		{StationName: "Safdarjung", Point: p, Date: day, MinTemp: 26, MaxTemp: 36},
	}))
	// Re-ingesting the same station-day replaces the row.
	require.NoError(t, repo.Insert(ctx, []*weather.Sample{
		{StationName: "Safdarjung", Point: p, Date: day.Add(6 * time.Hour), MinTemp: 25, MaxTemp: 37, Rainfall: 1},
	}))

	count, latest, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	assert.Equal(t, day, latest)

	got, err := repo.ForRange(ctx, p, 10, day.AddDate(0, 0, -1), day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 25.0, got[0].MinTemp)
}
