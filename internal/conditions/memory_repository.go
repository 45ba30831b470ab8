package conditions

import (
	"context"
	"sync"

	"github.com/aqisense/aqisense/internal/heatmap"
)

// MemoryRepository is an in-memory Repository for tests and local
// development.
type MemoryRepository struct {
	mu    sync.RWMutex
	items []*Snapshot
}

// NewMemoryRepository creates an empty in-memory conditions repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Save stores one snapshot.
func (r *MemoryRepository) Save(_ context.Context, s *Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append(r.items, s)
	return nil
}

// All returns every stored snapshot, oldest first.
func (r *MemoryRepository) All() []*Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Snapshot, len(r.items))
	copy(out, r.items)
	return out
}

// AllForMap returns every stored snapshot reduced to location and
// index entries.
func (r *MemoryRepository) AllForMap(_ context.Context) ([]heatmap.ConditionsRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var records []heatmap.ConditionsRecord
	for _, s := range r.items {
		lat, lon := s.Location.Latitude, s.Location.Longitude
		rec := heatmap.ConditionsRecord{Latitude: &lat, Longitude: &lon}
		if s.Reading != nil {
			for _, idx := range s.Reading.Indexes {
				aqi := float64(idx.AQI)
				rec.Indexes = append(rec.Indexes, heatmap.IndexEntry{
					DisplayName: idx.DisplayName,
					AQI:         &aqi,
				})
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// Ensure MemoryRepository implements Repository interface.
var _ Repository = (*MemoryRepository)(nil)
