// Package fusion resolves a query point into the best available air
// quality estimate, preferring ground truth over satellite inference.
package fusion

import (
	"errors"
	"time"

	"github.com/vayulabs/vayu/internal/geo"
	"github.com/vayulabs/vayu/internal/weather"
)

// Fusion errors.
var (
	// ErrInvalidQuery is returned for out-of-range coordinates or a
	// non-positive radius.
	ErrInvalidQuery = errors.New("invalid fusion query")

	// ErrStoreUnavailable is returned when a backing data store cannot be
	// reached. Distinct from an empty result, which is not an error.
	ErrStoreUnavailable = errors.New("data store unavailable")
)

// Source identifies which pipeline produced an estimate.
type Source string

const (
	// SourceGround is a direct ground station reading.
	SourceGround Source = "ground-station"

	// SourceSatelliteCalibrated is satellite optical depth converted to
	// PM2.5 by the calibration model.
	SourceSatelliteCalibrated Source = "satellite-calibrated"

	// SourceSatelliteRaw is uncalibrated satellite optical depth, served
	// when the calibration endpoint is unavailable.
	SourceSatelliteRaw Source = "satellite-raw"

	// SourceNone means no data source could answer the query.
	SourceNone Source = "none"
)

// Confidence grades how much trust to place in an estimate.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// Query is a point lookup with a search radius.
type Query struct {
	Point    geo.Point
	RadiusKm float64
}

// Validate rejects malformed queries.
func (q Query) Validate() error {
	if err := q.Point.Validate(); err != nil {
		return ErrInvalidQuery
	}
	if q.RadiusKm <= 0 {
		return ErrInvalidQuery
	}
	return nil
}

// Pollutants is the per-pollutant concentration breakdown of a ground
// reading, in µg/m³ (CO in mg/m³).
type Pollutants struct {
	PM25 *float64 `json:"pm25,omitempty"`
	PM10 *float64 `json:"pm10,omitempty"`
	NO2  *float64 `json:"no2,omitempty"`
	SO2  *float64 `json:"so2,omitempty"`
	CO   *float64 `json:"co,omitempty"`
	O3   *float64 `json:"o3,omitempty"`
}

// Result is a fused air quality estimate.
type Result struct {
	Source     Source     `json:"source"`
	Confidence Confidence `json:"confidence,omitempty"`

	// PM25 is present for ground and calibrated satellite results.
	PM25 *float64 `json:"pm25,omitempty"`

	// PollutantIndex is present for ground results whose reading carries
	// a composite index.
	PollutantIndex *float64 `json:"pollutant_index,omitempty"`

	// Pollutants is the full concentration breakdown of a ground reading.
	Pollutants *Pollutants `json:"pollutants,omitempty"`

	// QualityScore is the ground reading quality, 1 to 5.
	QualityScore int `json:"quality_score,omitempty"`

	// AOD is present for satellite results.
	AOD *float64 `json:"aod,omitempty"`

	// QualityTier is the satellite retrieval quality, 1 to 3.
	QualityTier int `json:"quality_tier,omitempty"`

	// CalibrationFallback is set when a satellite result carries raw
	// optical depth because calibration was unavailable.
	CalibrationFallback bool   `json:"calibration_fallback,omitempty"`
	ModelVersion        string `json:"model_version,omitempty"`

	// StationID and Satellite name the contributing source.
	StationID string `json:"station_id,omitempty"`
	Satellite string `json:"satellite,omitempty"`

	DistanceKm float64   `json:"distance_km,omitempty"`
	ObservedAt time.Time `json:"observed_at,omitzero"`

	Weather *weather.Conditions `json:"weather,omitempty"`

	GeneratedAt time.Time `json:"generated_at"`
}
