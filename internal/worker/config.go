// Package worker provides background job processing for Vayu.
package worker

import (
	"time"
)

// Job type identifiers, shared between the Pub/Sub trigger and the
// scheduled loop.
const (
	JobGroundIngest    = "station_ingest"
	JobSatelliteIngest = "satellite_ingest"
	JobWeatherIngest   = "weather_ingest"
	JobRetention       = "retention"
	JobTrainingSet     = "trainingset_build"
	JobHealthCheck     = "health_check"
)

// Config holds the schedule for the periodic job loop.
type Config struct {
	// GroundInterval is how often the realtime station feed is pulled.
	// The feed publishes hourly. Default: 1 hour.
	GroundInterval time.Duration

	// SatelliteInterval is how often recent optical depth samples are
	// pulled. Overpasses are a few times a day. Default: 6 hours.
	SatelliteInterval time.Duration

	// WeatherInterval is how often daily surface observations are pulled.
	// Default: 24 hours.
	WeatherInterval time.Duration

	// RetentionInterval is how often aged satellite samples are pruned.
	// Default: 24 hours.
	RetentionInterval time.Duration

	// TrainingSetInterval is how often the calibration training set is
	// rebuilt. Default: 24 hours.
	TrainingSetInterval time.Duration

	// TrainingSetDays is how many days of history each rebuild covers.
	// Default: 30.
	TrainingSetDays int

	// TrainingSetDir is the directory training set files are written to.
	// Default: "trainingset".
	TrainingSetDir string

	// JobTimeout bounds a single job run. Default: 5 minutes.
	JobTimeout time.Duration
}

// DefaultConfig returns the default job schedule.
func DefaultConfig() Config {
	return Config{
		GroundInterval:      time.Hour,
		SatelliteInterval:   6 * time.Hour,
		WeatherInterval:     24 * time.Hour,
		RetentionInterval:   24 * time.Hour,
		TrainingSetInterval: 24 * time.Hour,
		TrainingSetDays:     30,
		TrainingSetDir:      "trainingset",
		JobTimeout:          5 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.GroundInterval == 0 {
		c.GroundInterval = def.GroundInterval
	}
	if c.SatelliteInterval == 0 {
		c.SatelliteInterval = def.SatelliteInterval
	}
	if c.WeatherInterval == 0 {
		c.WeatherInterval = def.WeatherInterval
	}
	if c.RetentionInterval == 0 {
		c.RetentionInterval = def.RetentionInterval
	}
	if c.TrainingSetInterval == 0 {
		c.TrainingSetInterval = def.TrainingSetInterval
	}
	if c.TrainingSetDays == 0 {
		c.TrainingSetDays = def.TrainingSetDays
	}
	if c.TrainingSetDir == "" {
		c.TrainingSetDir = def.TrainingSetDir
	}
	if c.JobTimeout == 0 {
		c.JobTimeout = def.JobTimeout
	}
	return c
}
