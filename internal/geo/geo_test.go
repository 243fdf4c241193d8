package geo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vayulabs/vayu/internal/geo"
)

func TestPoint_Validate(t *testing.T) {
	tests := []struct {
		name    string
		point   geo.Point
		wantErr bool
	}{
		{"valid delhi", geo.Point{Lat: 28.6139, Lon: 77.2090}, false},
		{"valid boundary", geo.Point{Lat: 90, Lon: -180}, false},
		{"lat too high", geo.Point{Lat: 90.1, Lon: 0}, true},
		{"lat too low", geo.Point{Lat: -91, Lon: 0}, true},
		{"lon too high", geo.Point{Lat: 0, Lon: 180.5}, true},
		{"lon too low", geo.Point{Lat: 0, Lon: -181}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.point.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, geo.ErrInvalidCoordinates)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestDistanceKm(t *testing.T) {
	// New Delhi to Gurugram is roughly 26 km.
	delhi := geo.Point{Lat: 28.6139, Lon: 77.2090}
	gurugram := geo.Point{Lat: 28.4595, Lon: 77.0266}

	dist := geo.DistanceKm(delhi, gurugram)
	assert.InDelta(t, 24.7, dist, 2.0)

	// Distance to self is zero.
	assert.InDelta(t, 0, geo.DistanceKm(delhi, delhi), 0.0001)

	// Symmetric.
	assert.InDelta(t, dist, geo.DistanceKm(gurugram, delhi), 0.0001)
}

func TestRoundKm(t *testing.T) {
	assert.Equal(t, 0.5, geo.RoundKm(0.4999))
	assert.Equal(t, 12.35, geo.RoundKm(12.3456))
}

func TestIndiaEnvelope(t *testing.T) {
	assert.True(t, geo.IndiaEnvelope.Contains(geo.Point{Lat: 28.6139, Lon: 77.2090}))  // Delhi
	assert.True(t, geo.IndiaEnvelope.Contains(geo.Point{Lat: 8.5241, Lon: 76.9366}))   // Thiruvananthapuram
	assert.False(t, geo.IndiaEnvelope.Contains(geo.Point{Lat: 51.5074, Lon: -0.1278})) // London
	assert.False(t, geo.IndiaEnvelope.Contains(geo.Point{Lat: 28.6139, Lon: 120.0}))   // east of envelope
}
