// Package prediction implements the AQI prediction workflow: input
// validation, optional auto-fill of missing pollutants, classifier
// invocation and persistence of the outcome.
package prediction

import (
	"errors"
	"time"

	"github.com/aqisense/aqisense/internal/airquality"
)

// Prediction errors.
var (
	ErrValidation  = errors.New("invalid prediction input")
	ErrNotFound    = errors.New("prediction not found")
	ErrPersistence = errors.New("prediction store unavailable")
)

// Pollutants carries the six optional pollutant concentrations in
// provider-native units. A nil field means the caller did not supply
// a value.
type Pollutants struct {
	PM25 *float64 `json:"pm25"`
	PM10 *float64 `json:"pm10"`
	O3   *float64 `json:"o3"`
	NO2  *float64 `json:"no2"`
	SO2  *float64 `json:"so2"`
	CO   *float64 `json:"co"`
}

// Get returns the value for a known pollutant code, nil otherwise.
func (p *Pollutants) Get(code string) *float64 {
	switch code {
	case "pm25":
		return p.PM25
	case "pm10":
		return p.PM10
	case "o3":
		return p.O3
	case "no2":
		return p.NO2
	case "so2":
		return p.SO2
	case "co":
		return p.CO
	}
	return nil
}

// Set stores a value for a known pollutant code and reports whether
// the code was recognized.
func (p *Pollutants) Set(code string, value float64) bool {
	v := value
	switch code {
	case "pm25":
		p.PM25 = &v
	case "pm10":
		p.PM10 = &v
	case "o3":
		p.O3 = &v
	case "no2":
		p.NO2 = &v
	case "so2":
		p.SO2 = &v
	case "co":
		p.CO = &v
	default:
		return false
	}
	return true
}

// Missing lists the pollutant codes without a caller-supplied value,
// in canonical order.
func (p *Pollutants) Missing() []string {
	var missing []string
	for _, code := range airquality.KnownPollutants {
		if p.Get(code) == nil {
			missing = append(missing, code)
		}
	}
	return missing
}

// Input is one prediction request. It is owned by the request and
// never mutated once the features have been engineered.
type Input struct {
	Date       string
	Pollutants Pollutants
	Country    string
	City       string
	AutoFill   bool
}

// InputData is the caller's original input as persisted for
// traceability. Pollutant values here are the caller-supplied ones,
// never the auto-filled ones.
type InputData struct {
	Date string `json:"date"`
	Pollutants
	Country  string `json:"country"`
	Loc      string `json:"loc"`
	AutoFill bool   `json:"auto_fill_pollutants"`
}

// LocationInfo is the resolved geography attached to a stored
// prediction when geocoding succeeded.
type LocationInfo struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
	DisplayName      string  `json:"display_name,omitempty"`
	PlaceID          string  `json:"place_id,omitempty"`
	Source           string  `json:"source,omitempty"`
}

// UsedMeasurements records provenance for auto-filled pollutant
// fields. It never contains caller-supplied fields.
type UsedMeasurements struct {
	Source     string             `json:"source"`
	Timestamp  time.Time          `json:"timestamp"`
	Pollutants map[string]float64 `json:"pollutants"`
}

// StoredPrediction is one completed prediction as persisted.
type StoredPrediction struct {
	ID               string             `json:"prediction_id"`
	Date             string             `json:"date"`
	InputData        InputData          `json:"input_data"`
	Category         string             `json:"predicted_category"`
	Probabilities    map[string]float64 `json:"probabilities"`
	Summary          string             `json:"summary"`
	LocationInfo     *LocationInfo      `json:"location_info,omitempty"`
	UsedMeasurements *UsedMeasurements  `json:"used_measurements,omitempty"`
	CreatedAt        time.Time          `json:"timestamp"`
}

// HistoryPage wraps a page of stored predictions with pagination
// metadata. A history item is a stored prediction plus page context,
// by composition.
type HistoryPage struct {
	Items      []*StoredPrediction
	TotalCount int
	Limit      int
	Skip       int
}
