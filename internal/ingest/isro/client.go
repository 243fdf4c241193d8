// Package isro fetches satellite aerosol optical depth grids from the
// MOSDAC feed.
package isro

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vayulabs/vayu/internal/geo"
	"github.com/vayulabs/vayu/internal/provider/resilience"
	"github.com/vayulabs/vayu/internal/satellite"
)

// Client errors.
var (
	ErrUnavailable = errors.New("satellite feed unavailable")
)

// ClientConfig holds configuration for the feed client.
type ClientConfig struct {
	// BaseURL is the feed base URL.
	BaseURL string

	// Logger for client operations.
	Logger zerolog.Logger

	// Timeout bounds each fetch (default: 60 seconds). Grid dumps are
	// large.
	Timeout time.Duration
}

// Client pulls recent optical depth grids.
type Client struct {
	baseURL string
	http    *resilience.Client
	logger  zerolog.Logger
}

// NewClient creates a satellite feed client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	rc := resilience.NewClient(resilience.ClientConfig{
		Name:    "isro",
		Timeout: timeout,
	})
	resilience.GlobalRegistry.Register("isro", rc)

	return &Client{baseURL: cfg.BaseURL, http: rc, logger: cfg.Logger}
}

type feedSample struct {
	Satellite   string    `json:"satellite"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	AOD         float64   `json:"aod"`
	QualityTier int       `json:"quality_tier"`
	ObservedAt  time.Time `json:"observed_at"`
}

// FetchRecent pulls the latest grid dump.
func (c *Client) FetchRecent(ctx context.Context) ([]*satellite.Sample, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/aod/recent", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build satellite feed request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		resilience.GlobalRegistry.RecordFailure("isro", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status %d", resp.StatusCode)
		resilience.GlobalRegistry.RecordFailure("isro", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var feed []feedSample
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		resilience.GlobalRegistry.RecordFailure("isro", err)
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrUnavailable, err)
	}
	resilience.GlobalRegistry.RecordSuccess("isro")

	samples := make([]*satellite.Sample, 0, len(feed))
	for _, fs := range feed {
		tier := fs.QualityTier
		if tier == 0 {
			// Grids without retrieval flags are treated as the coarsest
			// tier rather than dropped.
			tier = 1
		}
		samples = append(samples, &satellite.Sample{
			Satellite:   fs.Satellite,
			Point:       geo.Point{Lat: fs.Latitude, Lon: fs.Longitude},
			AOD:         fs.AOD,
			QualityTier: tier,
			ObservedAt:  fs.ObservedAt,
		})
	}

	c.logger.Debug().Int("samples", len(samples)).Msg("fetched satellite grid")
	return samples, nil
}
