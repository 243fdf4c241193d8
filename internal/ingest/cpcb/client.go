// Package cpcb fetches realtime ground station readings from the CPCB
// open data feed.
package cpcb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/vayulabs/vayu/internal/provider/resilience"
)

// Client errors.
var (
	ErrUnavailable = errors.New("cpcb feed unavailable")
)

// updateLayout is the timestamp format used by the feed.
const updateLayout = "02-01-2006 15:04:05"

// Record is one pollutant observation at one station. The feed emits one
// record per station-pollutant pair.
type Record struct {
	StationID  string
	Station    string
	City       string
	State      string
	Latitude   float64
	Longitude  float64
	Pollutant  string
	Avg        *float64
	LastUpdate time.Time
}

// ClientConfig holds configuration for the CPCB client.
type ClientConfig struct {
	// BaseURL is the feed base URL.
	BaseURL string

	// APIKey authenticates against the open data portal.
	APIKey string

	// Logger for client operations.
	Logger zerolog.Logger

	// Timeout bounds each fetch (default: 30 seconds).
	Timeout time.Duration

	// PageSize is the fetch page size (default: 500).
	PageSize int
}

// Client pulls paginated realtime records from the feed.
type Client struct {
	baseURL  string
	apiKey   string
	http     *resilience.Client
	logger   zerolog.Logger
	pageSize int
}

// NewClient creates a CPCB feed client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	pageSize := cfg.PageSize
	if pageSize == 0 {
		pageSize = 500
	}

	rc := resilience.NewClient(resilience.ClientConfig{
		Name:    "cpcb",
		Timeout: timeout,
	})
	resilience.GlobalRegistry.Register("cpcb", rc)

	return &Client{
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		http:     rc,
		logger:   cfg.Logger,
		pageSize: pageSize,
	}
}

type feedResponse struct {
	Total   int          `json:"total"`
	Records []feedRecord `json:"records"`
}

type feedRecord struct {
	Station      string `json:"station"`
	City         string `json:"city"`
	State        string `json:"state"`
	Latitude     string `json:"latitude"`
	Longitude    string `json:"longitude"`
	LastUpdate   string `json:"last_update"`
	PollutantID  string `json:"pollutant_id"`
	PollutantAvg string `json:"pollutant_avg"`
}

// FetchRealtime pulls all pages of the realtime feed. Records with
// unparsable coordinates or timestamps are dropped with a warning; a "NA"
// average is kept as an absent value so the station itself still counts.
func (c *Client) FetchRealtime(ctx context.Context) ([]Record, error) {
	var records []Record
	offset := 0

	for {
		page, total, err := c.fetchPage(ctx, offset)
		if err != nil {
			return nil, err
		}
		records = append(records, page...)

		offset += c.pageSize
		if offset >= total || len(page) == 0 {
			break
		}
	}

	c.logger.Debug().Int("records", len(records)).Msg("fetched cpcb realtime feed")
	return records, nil
}

func (c *Client) fetchPage(ctx context.Context, offset int) ([]Record, int, error) {
	q := url.Values{}
	q.Set("api-key", c.apiKey)
	q.Set("format", "json")
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(c.pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build cpcb request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		resilience.GlobalRegistry.RecordFailure("cpcb", err)
		return nil, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status %d", resp.StatusCode)
		resilience.GlobalRegistry.RecordFailure("cpcb", err)
		return nil, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var feed feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		resilience.GlobalRegistry.RecordFailure("cpcb", err)
		return nil, 0, fmt.Errorf("%w: failed to decode response: %v", ErrUnavailable, err)
	}
	resilience.GlobalRegistry.RecordSuccess("cpcb")

	records := make([]Record, 0, len(feed.Records))
	for _, fr := range feed.Records {
		rec, err := fr.toRecord()
		if err != nil {
			c.logger.Warn().Err(err).Str("station", fr.Station).Msg("dropping malformed cpcb record")
			continue
		}
		records = append(records, rec)
	}
	return records, feed.Total, nil
}

func (fr feedRecord) toRecord() (Record, error) {
	lat, err := strconv.ParseFloat(fr.Latitude, 64)
	if err != nil {
		return Record{}, fmt.Errorf("bad latitude %q", fr.Latitude)
	}
	lon, err := strconv.ParseFloat(fr.Longitude, 64)
	if err != nil {
		return Record{}, fmt.Errorf("bad longitude %q", fr.Longitude)
	}
	updated, err := time.Parse(updateLayout, fr.LastUpdate)
	if err != nil {
		return Record{}, fmt.Errorf("bad last_update %q", fr.LastUpdate)
	}

	return Record{
		StationID:  fr.Station,
		Station:    fr.Station,
		City:       fr.City,
		State:      fr.State,
		Latitude:   lat,
		Longitude:  lon,
		Pollutant:  fr.PollutantID,
		Avg:        parseAvg(fr.PollutantAvg),
		LastUpdate: updated,
	}, nil
}

// parseAvg converts the feed's average field. The feed reports "NA" for
// pollutants the station does not currently measure.
func parseAvg(s string) *float64 {
	if s == "" || s == "NA" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
