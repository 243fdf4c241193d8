package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vayulabs/vayu/internal/ingest"
	"github.com/vayulabs/vayu/internal/maintenance"
	"github.com/vayulabs/vayu/internal/monitoring"
	"github.com/vayulabs/vayu/internal/trainingset"
)

// Runner executes ingest and maintenance jobs, either on a schedule or
// triggered through Pub/Sub.
type Runner struct {
	config      Config
	logger      zerolog.Logger
	ingest      *ingest.Service
	maintenance *maintenance.Service

	// monitoring backs the health check job (optional).
	monitoring *monitoring.Service

	// trainingset backs the training-set rebuild job (optional).
	trainingset *trainingset.Builder

	metrics *Metrics
}

// Metrics tracks job statistics.
type Metrics struct {
	mu sync.RWMutex

	// Counters
	TotalRuns       int64
	FailedRuns      int64
	GroundRuns      int64
	SatelliteRuns   int64
	WeatherRuns     int64
	RetentionRuns   int64
	TrainingSetRuns int64

	// Record totals across ingest runs
	RecordsStored     int64
	RecordsRejected   int64
	SamplesPruned     int64
	TrainingRowsBuilt int64

	// Timings
	LastRunAt       time.Time
	LastRunDuration time.Duration
}

// RunnerConfig holds configuration for creating a Runner.
type RunnerConfig struct {
	Config      Config
	Logger      zerolog.Logger
	Ingest      *ingest.Service
	Maintenance *maintenance.Service
	Monitoring  *monitoring.Service
	TrainingSet *trainingset.Builder
}

// NewRunner creates a new job runner.
func NewRunner(cfg RunnerConfig) *Runner {
	return &Runner{
		config:      cfg.Config.withDefaults(),
		logger:      cfg.Logger,
		ingest:      cfg.Ingest,
		maintenance: cfg.Maintenance,
		monitoring:  cfg.Monitoring,
		trainingset: cfg.TrainingSet,
		metrics:     &Metrics{},
	}
}

// Run executes a single job by type. Unknown job types are an error so
// the Pub/Sub handler can decide whether to redeliver.
func (r *Runner) Run(ctx context.Context, jobType string) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, r.config.JobTimeout)
	defer cancel()

	var err error
	switch jobType {
	case JobGroundIngest:
		err = r.runGround(ctx)
	case JobSatelliteIngest:
		err = r.runSatellite(ctx)
	case JobWeatherIngest:
		err = r.runWeather(ctx, time.Now().UTC())
	case JobRetention:
		err = r.runRetention(ctx)
	case JobTrainingSet:
		err = r.runTrainingSet(ctx, time.Now().UTC())
	case JobHealthCheck:
		err = r.runHealthCheck(ctx)
	default:
		return fmt.Errorf("unknown job type %q", jobType)
	}

	r.recordRun(time.Since(start), err)

	if err != nil {
		r.logger.Error().Err(err).Str("job_type", jobType).Msg("job failed")
		return err
	}
	r.logger.Info().
		Str("job_type", jobType).
		Dur("duration", time.Since(start)).
		Msg("job completed")
	return nil
}

// Start runs the scheduled loop until the context is cancelled. Ground
// ingest runs once immediately so a fresh deployment serves data without
// waiting out the first interval.
func (r *Runner) Start(ctx context.Context) {
	r.logger.Info().
		Dur("ground_interval", r.config.GroundInterval).
		Dur("satellite_interval", r.config.SatelliteInterval).
		Dur("weather_interval", r.config.WeatherInterval).
		Dur("retention_interval", r.config.RetentionInterval).
		Msg("starting job loop")

	_ = r.Run(ctx, JobGroundIngest)

	ground := time.NewTicker(r.config.GroundInterval)
	sat := time.NewTicker(r.config.SatelliteInterval)
	wx := time.NewTicker(r.config.WeatherInterval)
	retention := time.NewTicker(r.config.RetentionInterval)
	training := time.NewTicker(r.config.TrainingSetInterval)
	defer ground.Stop()
	defer sat.Stop()
	defer wx.Stop()
	defer retention.Stop()
	defer training.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("job loop stopped")
			return
		case <-ground.C:
			_ = r.Run(ctx, JobGroundIngest)
		case <-sat.C:
			_ = r.Run(ctx, JobSatelliteIngest)
		case <-wx.C:
			_ = r.Run(ctx, JobWeatherIngest)
		case <-retention.C:
			_ = r.Run(ctx, JobRetention)
		case <-training.C:
			_ = r.Run(ctx, JobTrainingSet)
		}
	}
}

// BackfillWeather runs a weather ingest for a specific date, used by
// Pub/Sub triggers to fill gaps in the daily series.
func (r *Runner) BackfillWeather(ctx context.Context, date time.Time) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, r.config.JobTimeout)
	defer cancel()

	err := r.runWeather(ctx, date)
	r.recordRun(time.Since(start), err)
	if err != nil {
		r.logger.Error().Err(err).Str("date", date.Format("2006-01-02")).Msg("weather backfill failed")
	}
	return err
}

func (r *Runner) runGround(ctx context.Context) error {
	report, err := r.ingest.IngestGround(ctx)
	if err != nil {
		return err
	}
	r.recordReport(report, &r.metrics.GroundRuns)
	return nil
}

func (r *Runner) runSatellite(ctx context.Context) error {
	report, err := r.ingest.IngestSatellite(ctx)
	if err != nil {
		return err
	}
	r.recordReport(report, &r.metrics.SatelliteRuns)
	return nil
}

// runWeather pulls the daily observations for a date. The scheduled loop
// passes the current day; Pub/Sub triggers may backfill older dates.
func (r *Runner) runWeather(ctx context.Context, date time.Time) error {
	report, err := r.ingest.IngestWeather(ctx, date)
	if err != nil {
		return err
	}
	r.recordReport(report, &r.metrics.WeatherRuns)
	return nil
}

func (r *Runner) runRetention(ctx context.Context) error {
	report, err := r.maintenance.PruneSatellite(ctx)
	if err != nil {
		return err
	}

	r.metrics.mu.Lock()
	r.metrics.RetentionRuns++
	r.metrics.SamplesPruned += report.SamplesRemoved
	r.metrics.mu.Unlock()
	return nil
}

// runTrainingSet rebuilds the calibration training set over the trailing
// window and writes it as a dated JSON file the model pipeline picks up.
func (r *Runner) runTrainingSet(ctx context.Context, now time.Time) error {
	if r.trainingset == nil {
		return nil
	}

	to := now.AddDate(0, 0, 1)
	from := now.AddDate(0, 0, -r.config.TrainingSetDays)

	rows, err := r.trainingset.Build(ctx, from, to)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode training set: %w", err)
	}

	if err := os.MkdirAll(r.config.TrainingSetDir, 0o755); err != nil {
		return fmt.Errorf("failed to create training set dir: %w", err)
	}
	name := fmt.Sprintf("trainingset_%s.json", now.Format("2006-01-02"))
	path := filepath.Join(r.config.TrainingSetDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write training set: %w", err)
	}

	r.metrics.mu.Lock()
	r.metrics.TrainingSetRuns++
	r.metrics.TrainingRowsBuilt += int64(len(rows))
	r.metrics.mu.Unlock()

	r.logger.Info().Int("rows", len(rows)).Str("path", path).Msg("training set written")
	return nil
}

// runHealthCheck verifies every data source still answers and is not
// stale. A source-level error fails the job so the trigger redelivers.
func (r *Runner) runHealthCheck(ctx context.Context) error {
	if r.monitoring == nil {
		return nil
	}

	snap := r.monitoring.Snapshot(ctx)
	for _, src := range snap.Sources {
		if src.Error != "" {
			return fmt.Errorf("source %s unavailable: %s", src.Name, src.Error)
		}
	}
	return nil
}

func (r *Runner) recordReport(report *ingest.Report, counter *int64) {
	r.metrics.mu.Lock()
	defer r.metrics.mu.Unlock()
	*counter++
	r.metrics.RecordsStored += int64(report.Stored)
	r.metrics.RecordsRejected += int64(report.Rejected)
}

func (r *Runner) recordRun(d time.Duration, err error) {
	r.metrics.mu.Lock()
	defer r.metrics.mu.Unlock()
	r.metrics.TotalRuns++
	if err != nil {
		r.metrics.FailedRuns++
	}
	r.metrics.LastRunAt = time.Now()
	r.metrics.LastRunDuration = d
}

// GetMetrics returns a copy of the current metrics.
func (r *Runner) GetMetrics() Metrics {
	r.metrics.mu.RLock()
	defer r.metrics.mu.RUnlock()

	return Metrics{
		TotalRuns:         r.metrics.TotalRuns,
		FailedRuns:        r.metrics.FailedRuns,
		GroundRuns:        r.metrics.GroundRuns,
		SatelliteRuns:     r.metrics.SatelliteRuns,
		WeatherRuns:       r.metrics.WeatherRuns,
		RetentionRuns:     r.metrics.RetentionRuns,
		TrainingSetRuns:   r.metrics.TrainingSetRuns,
		RecordsStored:     r.metrics.RecordsStored,
		RecordsRejected:   r.metrics.RecordsRejected,
		SamplesPruned:     r.metrics.SamplesPruned,
		TrainingRowsBuilt: r.metrics.TrainingRowsBuilt,
		LastRunAt:         r.metrics.LastRunAt,
		LastRunDuration:   r.metrics.LastRunDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (r *Runner) MetricsSnapshot() map[string]interface{} {
	m := r.GetMetrics()
	return map[string]interface{}{
		"total_runs":          m.TotalRuns,
		"failed_runs":         m.FailedRuns,
		"ground_runs":         m.GroundRuns,
		"satellite_runs":      m.SatelliteRuns,
		"weather_runs":        m.WeatherRuns,
		"retention_runs":      m.RetentionRuns,
		"trainingset_runs":    m.TrainingSetRuns,
		"records_stored":      m.RecordsStored,
		"records_rejected":    m.RecordsRejected,
		"samples_pruned":      m.SamplesPruned,
		"training_rows_built": m.TrainingRowsBuilt,
		"last_run_at":         m.LastRunAt,
		"last_run_duration":   m.LastRunDuration.String(),
	}
}
