package conditions

import (
	"context"

	"github.com/aqisense/aqisense/internal/heatmap"
)

// Repository persists observed conditions snapshots.
type Repository interface {
	// Save stores one snapshot.
	Save(ctx context.Context, s *Snapshot) error

	// AllForMap returns every stored snapshot reduced to what the
	// heatmap needs.
	AllForMap(ctx context.Context) ([]heatmap.ConditionsRecord, error)
}
