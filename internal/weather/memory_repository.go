package weather

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/vayulabs/vayu/internal/geo"
)

// MemoryRepository is an in-memory Repository used in tests and local
// development.
type MemoryRepository struct {
	mu      sync.RWMutex
	samples []*Sample
	nextID  int64
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty in-memory weather repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{nextID: 1}
}

func (r *MemoryRepository) Insert(_ context.Context, samples []*Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, s := range samples {
		cp := *s
		cp.Date = DayOf(cp.Date)
		cp.IngestedAt = now

		replaced := false
		for i, existing := range r.samples {
			if existing.StationName == cp.StationName && existing.Date.Equal(cp.Date) {
				cp.ID = existing.ID
				r.samples[i] = &cp
				replaced = true
				break
			}
		}
		if !replaced {
			cp.ID = r.nextID
			r.nextID++
			r.samples = append(r.samples, &cp)
		}
	}
	return nil
}

func (r *MemoryRepository) Nearest(_ context.Context, q NearestQuery) (*Candidate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	day := DayOf(q.Date)
	lag := time.Duration(q.MaxDayLag) * 24 * time.Hour

	dayGap := func(s *Sample) float64 {
		return math.Abs(s.Date.Sub(day).Hours())
	}

	var best *Candidate
	for _, s := range r.samples {
		if s.Date.Before(day.Add(-lag)) || s.Date.After(day.Add(lag)) {
			continue
		}
		dist := geo.DistanceKm(q.Point, s.Point)
		if dist > q.RadiusKm {
			continue
		}
		if best == nil || dist < best.DistanceKm ||
			(dist == best.DistanceKm && dayGap(s) < dayGap(&best.Sample)) {
			best = &Candidate{Sample: *s, DistanceKm: dist}
		}
	}
	return best, nil
}

func (r *MemoryRepository) ForRange(_ context.Context, p geo.Point, radiusKm float64, from, to time.Time) ([]*Sample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Sample
	for _, s := range r.samples {
		if s.Date.Before(from) || !s.Date.Before(to) {
			continue
		}
		if geo.DistanceKm(p, s.Point) > radiusKm {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func (r *MemoryRepository) Stats(_ context.Context) (int64, time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest time.Time
	for _, s := range r.samples {
		if s.Date.After(latest) {
			latest = s.Date
		}
	}
	return int64(len(r.samples)), latest, nil
}
