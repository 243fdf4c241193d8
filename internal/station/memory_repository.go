package station

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
	mu       sync.RWMutex
	stations map[string]*Station // keyed by external station identifier
	readings []*Reading
	nextID   int64
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty in-memory station repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		stations: make(map[string]*Station),
		nextID:   1,
	}
}

func (r *MemoryRepository) Upsert(_ context.Context, s *Station) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if existing, ok := r.stations[s.StationID]; ok {
		existing.City = s.City
		existing.State = s.State
		existing.Point = s.Point
		existing.Active = true
		existing.UpdatedAt = now
		s.ID = existing.ID
		return nil
	}

	cp := *s
	cp.Active = true
	cp.CreatedAt = now
	cp.UpdatedAt = now
	r.stations[s.StationID] = &cp
	return nil
}

func (r *MemoryRepository) Deactivate(_ context.Context, stationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stations[stationID]
	if !ok {
		return ErrStationNotFound
	}
	s.Active = false
	s.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryRepository) ListActive(_ context.Context) ([]*Station, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stations []*Station
	for _, s := range r.stations {
		if s.Active {
			cp := *s
			stations = append(stations, &cp)
		}
	}
	sort.Slice(stations, func(i, j int) bool {
		return stations[i].StationID < stations[j].StationID
	})
	return stations, nil
}

func (r *MemoryRepository) InsertReadings(_ context.Context, readings []*Reading) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, rd := range readings {
		cp := *rd
		cp.ID = r.nextID
		r.nextID++
		if cp.IngestedAt.IsZero() {
			cp.IngestedAt = now
		}
		r.readings = append(r.readings, &cp)
	}
	return nil
}

func (r *MemoryRepository) NearestQualified(_ context.Context, q NearestQuery) (*Candidate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cutoff := time.Now().Add(-q.MaxAge)

	var best *Candidate
	for _, s := range r.stations {
		if !s.Active {
			continue
		}
		dist := geo.DistanceKm(q.Point, s.Point)
		if dist > q.RadiusKm {
			continue
		}

		var latest *Reading
		for _, rd := range r.readings {
			if rd.StationRef != s.ID {
				continue
			}
			if rd.RecordedAt.Before(cutoff) || rd.QualityScore < q.MinQuality {
				continue
			}
			if latest == nil || rd.RecordedAt.After(latest.RecordedAt) {
				latest = rd
			}
		}
		if latest == nil {
			continue
		}

		if best == nil || dist < best.DistanceKm ||
			(dist == best.DistanceKm && latest.RecordedAt.After(best.Reading.RecordedAt)) {
			best = &Candidate{Station: *s, Reading: *latest, DistanceKm: dist}
		}
	}
	return best, nil
}

func (r *MemoryRepository) ReadingsInRange(_ context.Context, stationRef string, from, to time.Time, minQuality int) ([]*Reading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Reading
	for _, rd := range r.readings {
		if rd.StationRef != stationRef || rd.QualityScore < minQuality {
			continue
		}
		if rd.RecordedAt.Before(from) || !rd.RecordedAt.Before(to) {
			continue
		}
		cp := *rd
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RecordedAt.Before(out[j].RecordedAt)
	})
	return out, nil
}

func (r *MemoryRepository) IndexedReadingsNear(_ context.Context, p geo.Point, radiusKm float64, since time.Time) ([]*Reading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active := make(map[string]bool)
	for _, s := range r.stations {
		if s.Active && geo.DistanceKm(p, s.Point) <= radiusKm {
			active[s.ID] = true
		}
	}

	var out []*Reading
	for _, rd := range r.readings {
		if !active[rd.StationRef] || rd.PollutantIndex == nil || rd.RecordedAt.Before(since) {
			continue
		}
		cp := *rd
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RecordedAt.Before(out[j].RecordedAt)
	})
	return out, nil
}

func (r *MemoryRepository) Stats(_ context.Context) (int64, time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest time.Time
	for _, rd := range r.readings {
		if rd.RecordedAt.After(latest) {
			latest = rd.RecordedAt
		}
	}
	return int64(len(r.readings)), latest, nil
}
