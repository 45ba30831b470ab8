package prediction

import (
	"context"
	"sync"

	"github.com/aqisense/aqisense/internal/heatmap"
)

// MemoryRepository is an in-memory Repository for tests and local
// development.
type MemoryRepository struct {
	mu    sync.RWMutex
	items []*StoredPrediction
}

// NewMemoryRepository creates an empty in-memory prediction repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Save stores a completed prediction.
func (r *MemoryRepository) Save(_ context.Context, p *StoredPrediction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Newest first.
	r.items = append([]*StoredPrediction{p}, r.items...)
	return nil
}

// QueryByDate returns predictions for a target date, newest first.
func (r *MemoryRepository) QueryByDate(_ context.Context, date string, opts QueryOptions) ([]*StoredPrediction, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*StoredPrediction
	for _, p := range r.items {
		if p.Date == date {
			matched = append(matched, p)
		}
	}
	return page(matched, opts), len(matched), nil
}

// QueryAll returns predictions across all dates, newest first.
func (r *MemoryRepository) QueryAll(_ context.Context, opts QueryOptions) ([]*StoredPrediction, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return page(r.items, opts), len(r.items), nil
}

// AllForMap returns every prediction with resolved coordinates.
func (r *MemoryRepository) AllForMap(_ context.Context) ([]heatmap.PredictionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var records []heatmap.PredictionRecord
	for _, p := range r.items {
		if p.LocationInfo == nil {
			continue
		}
		lat, lon := p.LocationInfo.Latitude, p.LocationInfo.Longitude
		records = append(records, heatmap.PredictionRecord{
			Latitude:  &lat,
			Longitude: &lon,
			Category:  p.Category,
		})
	}
	return records, nil
}

func page(items []*StoredPrediction, opts QueryOptions) []*StoredPrediction {
	if opts.Skip >= len(items) {
		return nil
	}
	items = items[opts.Skip:]
	if opts.Limit > 0 && len(items) > opts.Limit {
		items = items[:opts.Limit]
	}

	out := make([]*StoredPrediction, len(items))
	copy(out, items)
	return out
}

// Ensure MemoryRepository implements Repository interface.
var _ Repository = (*MemoryRepository)(nil)
