// Package conditions serves live air-quality lookups, attaches a
// category forecast and keeps a snapshot history for the heatmap.
package conditions

import (
	"errors"
	"time"

	"github.com/aqisense/aqisense/internal/airquality"
	"github.com/aqisense/aqisense/internal/geocode"
)

// Conditions errors.
var (
	ErrValidation  = errors.New("invalid conditions input")
	ErrPersistence = errors.New("conditions store unavailable")
)

// Forecast is the category forecast attached to an observation when
// the classifier could run on the measured pollutants.
type Forecast struct {
	ID            string             `json:"prediction_id"`
	Category      string             `json:"predicted_category"`
	Probabilities map[string]float64 `json:"probabilities"`
	Summary       string             `json:"summary"`
}

// Snapshot is one observed set of conditions at a resolved location,
// as returned to callers and persisted for the heatmap.
type Snapshot struct {
	ID                string              `json:"id"`
	Location          geocode.Location    `json:"location"`
	PollutantsSummary map[string]float64  `json:"current_pollutants_summary"`
	Reading           *airquality.Reading `json:"external_aq_data"`
	Forecast          *Forecast           `json:"prediction,omitempty"`
	FetchedAt         time.Time           `json:"timestamp"`
	CreatedAt         time.Time           `json:"-"`
}
