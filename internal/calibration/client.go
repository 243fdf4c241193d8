package calibration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vayulabs/vayu/internal/provider/resilience"
	"github.com/vayulabs/vayu/internal/telemetry"
)

// ProviderName identifies the calibration endpoint in provider health
// reporting.
const ProviderName = "calibration"

// Calibrator produces calibrated PM2.5 estimates from satellite inputs.
type Calibrator interface {
	// Calibrate converts one feature vector into an estimate. Returns
	// ErrUnavailable when the endpoint cannot serve.
	Calibrate(ctx context.Context, in Input) (*Estimate, error)

	// Healthy reports whether the endpoint is currently reachable.
	Healthy(ctx context.Context) bool
}

// ClientConfig holds configuration for the calibration client.
type ClientConfig struct {
	// BaseURL is the calibration endpoint base URL.
	BaseURL string

	// Logger for client operations.
	Logger zerolog.Logger

	// Timeout bounds each calibration call (default: 3 seconds). The
	// fusion path degrades to raw optical depth rather than waiting.
	Timeout time.Duration
}

// Client calls the external calibration endpoint with retry and circuit
// breaker protection.
type Client struct {
	baseURL string
	http    *resilience.Client
	logger  zerolog.Logger
	metrics *telemetry.ProviderMetrics
}

var _ Calibrator = (*Client)(nil)

// NewClient creates a calibration client and registers it for provider
// health reporting.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 3 * time.Second
	}

	rc := resilience.NewClient(resilience.ClientConfig{
		Name:            ProviderName,
		Timeout:         timeout,
		MaxRetries:      1,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     500 * time.Millisecond,
	})
	resilience.GlobalRegistry.Register(ProviderName, rc)

	metrics, err := telemetry.NewProviderMetrics()
	if err != nil {
		cfg.Logger.Warn().Err(err).Msg("provider instruments unavailable")
	}

	return &Client{
		baseURL: cfg.BaseURL,
		http:    rc,
		logger:  cfg.Logger,
		metrics: metrics,
	}
}

func (c *Client) Calibrate(ctx context.Context, in Input) (*Estimate, error) {
	start := time.Now()
	est, err := c.post(ctx, in)
	c.metrics.Record(ctx, ProviderName, "calibrate", time.Since(start), err)
	return est, err
}

func (c *Client) post(ctx context.Context, in Input) (*Estimate, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to encode calibration input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/calibrate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build calibration request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		resilience.GlobalRegistry.RecordFailure(ProviderName, err)
		c.logger.Warn().Err(err).Msg("calibration request failed")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status %d", resp.StatusCode)
		resilience.GlobalRegistry.RecordFailure(ProviderName, err)
		c.logger.Warn().Int("status", resp.StatusCode).Msg("calibration request rejected")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var est Estimate
	if err := json.NewDecoder(resp.Body).Decode(&est); err != nil {
		resilience.GlobalRegistry.RecordFailure(ProviderName, err)
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrUnavailable, err)
	}

	resilience.GlobalRegistry.RecordSuccess(ProviderName)
	return &est, nil
}

func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
