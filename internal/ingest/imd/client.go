// Package imd fetches daily surface weather observations from the IMD
// station feed.
package imd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/vayulabs/vayu/internal/geo"
	"github.com/vayulabs/vayu/internal/provider/resilience"
	"github.com/vayulabs/vayu/internal/weather"
)

// Client errors.
var (
	ErrUnavailable = errors.New("weather feed unavailable")
)

// ClientConfig holds configuration for the feed client.
type ClientConfig struct {
	// BaseURL is the feed base URL.
	BaseURL string

	// Logger for client operations.
	Logger zerolog.Logger

	// Timeout bounds each fetch (default: 30 seconds).
	Timeout time.Duration
}

// Client pulls daily station observations.
type Client struct {
	baseURL string
	http    *resilience.Client
	logger  zerolog.Logger
}

// NewClient creates a weather feed client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	rc := resilience.NewClient(resilience.ClientConfig{
		Name:    "imd",
		Timeout: timeout,
	})
	resilience.GlobalRegistry.Register("imd", rc)

	return &Client{baseURL: cfg.BaseURL, http: rc, logger: cfg.Logger}
}

type feedObservation struct {
	Station       string  `json:"station"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Date          string  `json:"date"`
	MinTemp       float64 `json:"min_temp"`
	MaxTemp       float64 `json:"max_temp"`
	Rainfall      float64 `json:"rainfall"`
	Humidity      float64 `json:"humidity"`
	WindSpeed     float64 `json:"wind_speed"`
	WindDirection float64 `json:"wind_direction"`
	Pressure      float64 `json:"pressure"`
}

// FetchDaily pulls station observations for one calendar day.
func (c *Client) FetchDaily(ctx context.Context, date time.Time) ([]*weather.Sample, error) {
	q := url.Values{}
	q.Set("date", date.UTC().Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/daily?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build weather feed request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		resilience.GlobalRegistry.RecordFailure("imd", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status %d", resp.StatusCode)
		resilience.GlobalRegistry.RecordFailure("imd", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var feed []feedObservation
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		resilience.GlobalRegistry.RecordFailure("imd", err)
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrUnavailable, err)
	}
	resilience.GlobalRegistry.RecordSuccess("imd")

	samples := make([]*weather.Sample, 0, len(feed))
	for _, fo := range feed {
		day, err := time.Parse("2006-01-02", fo.Date)
		if err != nil {
			c.logger.Warn().Str("station", fo.Station).Str("date", fo.Date).Msg("dropping observation with bad date")
			continue
		}
		samples = append(samples, &weather.Sample{
			StationName:   fo.Station,
			Point:         geo.Point{Lat: fo.Latitude, Lon: fo.Longitude},
			Date:          day,
			MinTemp:       fo.MinTemp,
			MaxTemp:       fo.MaxTemp,
			Rainfall:      fo.Rainfall,
			Humidity:      fo.Humidity,
			WindSpeed:     fo.WindSpeed,
			WindDirection: fo.WindDirection,
			Pressure:      fo.Pressure,
		})
	}

	c.logger.Debug().Int("observations", len(samples)).Msg("fetched daily weather")
	return samples, nil
}
