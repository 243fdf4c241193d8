// Package trend aggregates pollutant index history around a point into
// time buckets with a direction signal.
package trend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/vayulabs/vayu/internal/fusion"
	"github.com/vayulabs/vayu/internal/geo"
	"github.com/vayulabs/vayu/internal/station"
	"github.com/vayulabs/vayu/internal/weather"
)

// Trend errors.
var (
	// ErrNoData is returned when no indexed readings exist around the
	// query point for the window.
	ErrNoData = errors.New("no trend data for location")
)

// Direction labels how the pollutant index is moving between buckets.
type Direction string

const (
	DirectionIncreasing Direction = "INCREASING"
	DirectionDecreasing Direction = "DECREASING"
	DirectionStable     Direction = "STABLE"

	// DirectionUnknown marks a bucket with no predecessor to compare
	// against.
	DirectionUnknown Direction = "UNKNOWN"
)

// Granularity selects the bucket width.
type Granularity string

const (
	GranularityHour Granularity = "hour"
	GranularityDay  Granularity = "day"
	GranularityWeek Granularity = "week"
)

// directionBand is the symmetric fraction around the previous bucket's
// average inside which the index counts as stable.
const directionBand = 0.10

// Query describes a trend lookup.
type Query struct {
	Point    geo.Point
	RadiusKm float64

	// Days is the lookback window in calendar days (default: 7).
	Days int

	// Granularity is the bucket width. Unrecognized values fall back to
	// daily buckets.
	Granularity Granularity
}

// Bucket is one aggregation window.
type Bucket struct {
	Start      time.Time `json:"start"`
	AvgIndex   float64   `json:"avg_index"`
	MinIndex   float64   `json:"min_index"`
	MaxIndex   float64   `json:"max_index"`
	Samples    int       `json:"samples"`
	AvgQuality float64   `json:"avg_quality"`

	// Direction compares this bucket's average against the bucket before
	// it. The oldest bucket has nothing to compare against.
	Direction Direction `json:"direction"`

	// ChangePct is the relative change against the previous bucket's
	// average, as a percentage. Zero for the oldest bucket.
	ChangePct float64 `json:"change_pct"`
}

// Trend is the aggregated history for a point.
type Trend struct {
	// Direction is the latest bucket's direction.
	Direction Direction `json:"direction"`

	// ChangePct is the latest bucket's relative change.
	ChangePct float64 `json:"change_pct"`

	// Confidence grades the aggregate on sample count and average
	// quality, from 2 (thin) to 5 (dense and verified).
	Confidence int `json:"confidence"`

	Granularity Granularity `json:"granularity"`
	Buckets     []Bucket    `json:"buckets"`
}

// ServiceConfig holds configuration for the trend service.
type ServiceConfig struct {
	Stations station.Repository

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service aggregates reading history into trends.
type Service struct {
	stations station.Repository
	logger   zerolog.Logger
}

// NewService creates a new trend service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{stations: cfg.Stations, logger: cfg.Logger}
}

// Aggregate buckets indexed readings around the point by the requested
// granularity and derives a per-bucket direction against the bucket
// before it. Returns ErrNoData when the window holds no indexed readings.
func (s *Service) Aggregate(ctx context.Context, q Query) (*Trend, error) {
	if err := q.Point.Validate(); err != nil {
		return nil, fusion.ErrInvalidQuery
	}
	if q.RadiusKm <= 0 {
		return nil, fusion.ErrInvalidQuery
	}

	days := q.Days
	if days == 0 {
		days = 7
	}

	gran := q.Granularity
	switch gran {
	case GranularityHour, GranularityDay, GranularityWeek:
	default:
		gran = GranularityDay
	}

	since := weather.DayOf(time.Now()).AddDate(0, 0, -days)
	readings, err := s.stations.IndexedReadingsNear(ctx, q.Point, q.RadiusKm, since)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", fusion.ErrStoreUnavailable, err)
	}
	if len(readings) == 0 {
		return nil, ErrNoData
	}

	type acc struct {
		sum        float64
		min        float64
		max        float64
		qualitySum int
		count      int
	}
	accs := make(map[time.Time]*acc)
	totalQuality := 0
	for _, rd := range readings {
		start := truncate(rd.RecordedAt, gran)
		idx := *rd.PollutantIndex

		a, ok := accs[start]
		if !ok {
			a = &acc{min: idx, max: idx}
			accs[start] = a
		}
		a.sum += idx
		if idx < a.min {
			a.min = idx
		}
		if idx > a.max {
			a.max = idx
		}
		a.qualitySum += rd.QualityScore
		a.count++
		totalQuality += rd.QualityScore
	}

	buckets := make([]Bucket, 0, len(accs))
	for start, a := range accs {
		buckets = append(buckets, Bucket{
			Start:      start,
			AvgIndex:   a.sum / float64(a.count),
			MinIndex:   a.min,
			MaxIndex:   a.max,
			Samples:    a.count,
			AvgQuality: float64(a.qualitySum) / float64(a.count),
		})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Start.Before(buckets[j].Start)
	})

	for i := range buckets {
		if i == 0 {
			buckets[i].Direction = DirectionUnknown
			continue
		}
		buckets[i].Direction, buckets[i].ChangePct = direction(buckets[i].AvgIndex, buckets[i-1].AvgIndex)
	}

	avgQuality := float64(totalQuality) / float64(len(readings))
	latest := buckets[len(buckets)-1]

	return &Trend{
		Direction:   latest.Direction,
		ChangePct:   latest.ChangePct,
		Confidence:  confidence(len(readings), avgQuality),
		Granularity: gran,
		Buckets:     buckets,
	}, nil
}

// direction compares a bucket average against its predecessor with a
// symmetric band: a move of at most 10% either way counts as stable.
func direction(cur, prev float64) (Direction, float64) {
	changePct := 0.0
	if prev > 0 {
		changePct = (cur - prev) / prev * 100
	}
	switch {
	case cur > prev*(1+directionBand):
		return DirectionIncreasing, changePct
	case cur < prev*(1-directionBand):
		return DirectionDecreasing, changePct
	default:
		return DirectionStable, changePct
	}
}

func truncate(t time.Time, g Granularity) time.Time {
	switch g {
	case GranularityHour:
		return t.UTC().Truncate(time.Hour)
	case GranularityWeek:
		day := weather.DayOf(t)
		// Weeks start on Monday.
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	default:
		return weather.DayOf(t)
	}
}

func confidence(count int, avgQuality float64) int {
	switch {
	case count >= 12 && avgQuality >= 4:
		return 5
	case count >= 6 && avgQuality >= 3:
		return 4
	case count >= 3:
		return 3
	default:
		return 2
	}
}
