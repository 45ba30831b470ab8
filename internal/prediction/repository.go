package prediction

import (
	"context"

	"github.com/aqisense/aqisense/internal/heatmap"
)

// QueryOptions controls history pagination. Limit is the page size,
// Skip the number of newest records to pass over.
type QueryOptions struct {
	Limit int
	Skip  int
}

// Repository persists predictions and serves history queries.
// Implementations must return results newest first.
type Repository interface {
	// Save stores a completed prediction.
	Save(ctx context.Context, p *StoredPrediction) error

	// QueryByDate returns the page of predictions for a target date
	// plus the total count for that date.
	QueryByDate(ctx context.Context, date string, opts QueryOptions) ([]*StoredPrediction, int, error)

	// QueryAll returns the page of predictions across all dates plus
	// the total count.
	QueryAll(ctx context.Context, opts QueryOptions) ([]*StoredPrediction, int, error)

	// AllForMap returns every prediction that has resolved
	// coordinates, reduced to what the heatmap needs.
	AllForMap(ctx context.Context) ([]heatmap.PredictionRecord, error)
}
