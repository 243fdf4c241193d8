package satellite

import (
	"context"
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

// NewMemoryRepository creates an empty in-memory satellite repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{nextID: 1}
}

func (r *MemoryRepository) InsertBatch(_ context.Context, samples []*Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, s := range samples {
		cp := *s
		cp.ID = r.nextID
		r.nextID++
		if cp.IngestedAt.IsZero() {
			cp.IngestedAt = now
		}
		r.samples = append(r.samples, &cp)
	}
	return nil
}

func (r *MemoryRepository) NearestFresh(_ context.Context, q NearestQuery) (*Candidate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cutoff := time.Now().Add(-q.MaxAge)

	var best *Candidate
	for _, s := range r.samples {
		if s.ObservedAt.Before(cutoff) || s.QualityTier < q.MinTier {
			continue
		}
		dist := geo.DistanceKm(q.Point, s.Point)
		if dist > q.RadiusKm {
			continue
		}
		if best == nil || dist < best.DistanceKm ||
			(dist == best.DistanceKm && s.ObservedAt.After(best.Sample.ObservedAt)) {
			best = &Candidate{Sample: *s, DistanceKm: dist}
		}
	}
	return best, nil
}

func (r *MemoryRepository) SamplesNear(_ context.Context, p geo.Point, radiusKm float64, from, to time.Time) ([]*Sample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Sample
	for _, s := range r.samples {
		if s.ObservedAt.Before(from) || !s.ObservedAt.Before(to) {
			continue
		}
		if geo.DistanceKm(p, s.Point) > radiusKm {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ObservedAt.Before(out[j].ObservedAt)
	})
	return out, nil
}

func (r *MemoryRepository) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.samples[:0]
	var removed int64
	for _, s := range r.samples {
		if s.ObservedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	r.samples = kept
	return removed, nil
}

func (r *MemoryRepository) Stats(_ context.Context) (int64, time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest time.Time
	for _, s := range r.samples {
		if s.ObservedAt.After(latest) {
			latest = s.ObservedAt
		}
	}
	return int64(len(r.samples)), latest, nil
}
