// Package weather provides daily surface weather data access and the
// enrichment step that attaches weather conditions to a fused estimate.
package weather

import (
	"errors"
	"time"

	"github.com/vayulabs/vayu/internal/geo"
)

// Validation errors.
var (
	ErrInvalidWindDirection = errors.New("wind direction out of range")
)

// Sample is one daily weather observation from a surface station.
// Observations are daily aggregates, so Date carries calendar-day
// resolution (midnight UTC).
type Sample struct {
	ID int64

	// StationName identifies the reporting surface station.
	StationName string

	Point geo.Point
	Date  time.Time

	// MinTemp and MaxTemp are the daily extremes in °C.
	MinTemp float64
	MaxTemp float64

	// Rainfall is the daily accumulation in mm.
	Rainfall float64

	// Humidity is the mean relative humidity in percent.
	Humidity float64

	// WindSpeed is the mean wind speed in km/h. WindDirection is the
	// mean bearing in degrees, 0 to 360.
	WindSpeed     float64
	WindDirection float64

	// Pressure is the mean sea-level pressure in hPa.
	Pressure float64

	IngestedAt time.Time
}

// Validate rejects observations with coordinates outside the valid range
// or a wind bearing off the compass.
func (s *Sample) Validate() error {
	if err := s.Point.Validate(); err != nil {
		return err
	}
	if s.WindDirection < 0 || s.WindDirection > 360 {
		return ErrInvalidWindDirection
	}
	return nil
}

// NearestQuery describes a nearest daily observation lookup. Observations
// dated within MaxDayLag calendar days on either side of Date qualify.
type NearestQuery struct {
	Point     geo.Point
	RadiusKm  float64
	Date      time.Time
	MaxDayLag int
}

// Candidate pairs a sample with its distance from the query point.
type Candidate struct {
	Sample     Sample
	DistanceKm float64
}

// Conditions is the weather context attached to a fused air quality
// estimate.
type Conditions struct {
	MinTemp       float64 `json:"min_temp"`
	MaxTemp       float64 `json:"max_temp"`
	Rainfall      float64 `json:"rainfall"`
	Humidity      float64 `json:"humidity"`
	WindSpeed     float64 `json:"wind_speed"`
	WindDirection float64 `json:"wind_direction"`
	Pressure      float64 `json:"pressure"`

	StationName string  `json:"station_name"`
	DistanceKm  float64 `json:"distance_km"`
	Date        string  `json:"date"`
}

// DayOf truncates a timestamp to its calendar day in UTC.
func DayOf(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}
