// Package calibration converts raw satellite optical depth into surface
// PM2.5 estimates through an external model-serving endpoint.
package calibration

import "errors"

// Calibration errors.
var (
	// ErrUnavailable is returned when the calibration endpoint cannot
	// produce an estimate. Callers fall back to the raw optical depth.
	ErrUnavailable = errors.New("calibration service unavailable")
)

// Default weather inputs used when no observation is available. These are
// plain-season climatology for the service region.
const (
	DefaultMinTemp  = 25.0
	DefaultMaxTemp  = 35.0
	DefaultRainfall = 0.0
)

// Input is the feature vector sent to the calibration endpoint.
type Input struct {
	SatelliteAOD float64 `json:"satellite_aod"`
	MinTemp      float64 `json:"min_temp"`
	MaxTemp      float64 `json:"max_temp"`
	Rainfall     float64 `json:"rainfall"`
}

// Estimate is the calibrated surface concentration returned by the
// endpoint.
type Estimate struct {
	CalibratedPM25 float64 `json:"calibrated_pm25"`
	Source         string  `json:"source"`
	ModelVersion   string  `json:"model_version"`
	Confidence     float64 `json:"confidence"`
}
