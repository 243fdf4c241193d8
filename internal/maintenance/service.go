// Package maintenance runs periodic housekeeping over the data stores.
package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vayulabs/vayu/internal/satellite"
)

// ServiceConfig holds configuration for the maintenance service.
type ServiceConfig struct {
	Satellites satellite.Repository

	// Logger for maintenance operations.
	Logger zerolog.Logger

	// RetentionDays is how long satellite samples are kept (default: 30).
	// Ground readings are kept indefinitely; only the high-volume
	// satellite grid is pruned.
	RetentionDays int
}

// analyzer is implemented by stores that can refresh planner statistics.
type analyzer interface {
	Analyze(ctx context.Context) error
}

// Service prunes aged data and reports on what it removed.
type Service struct {
	satellites    satellite.Repository
	logger        zerolog.Logger
	retentionDays int
}

// PruneReport summarizes one maintenance run.
type PruneReport struct {
	Cutoff           time.Time `json:"cutoff"`
	SamplesRemoved   int64     `json:"samples_removed"`
	SamplesRemaining int64     `json:"samples_remaining"`
}

// NewService creates a new maintenance service.
func NewService(cfg ServiceConfig) *Service {
	retentionDays := cfg.RetentionDays
	if retentionDays == 0 {
		retentionDays = 30
	}
	return &Service{
		satellites:    cfg.Satellites,
		logger:        cfg.Logger,
		retentionDays: retentionDays,
	}
}

// PruneSatellite removes satellite samples older than the retention window
// and refreshes store statistics. Safe to run repeatedly; a second run over
// the same data removes nothing.
func (s *Service) PruneSatellite(ctx context.Context) (*PruneReport, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.retentionDays)

	removed, err := s.satellites.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("satellite prune failed: %w", err)
	}

	// Bulk deletes skew the planner's row estimates, so stores that
	// support it refresh their statistics after a prune.
	if a, ok := s.satellites.(analyzer); ok {
		if err := a.Analyze(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("statistics refresh failed")
		}
	}

	remaining, _, err := s.satellites.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh satellite stats: %w", err)
	}

	s.logger.Info().
		Time("cutoff", cutoff).
		Int64("removed", removed).
		Int64("remaining", remaining).
		Msg("pruned satellite samples")

	return &PruneReport{
		Cutoff:           cutoff,
		SamplesRemoved:   removed,
		SamplesRemaining: remaining,
	}, nil
}
