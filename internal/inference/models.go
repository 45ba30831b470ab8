// Package inference implements the trained AQI classification pipeline:
// feature engineering, categorical encoding and tree-ensemble scoring.
package inference

import "errors"

// Pipeline errors.
var (
	ErrNotLoaded       = errors.New("inference resources not loaded")
	ErrSchemaMismatch  = errors.New("engineered columns do not match trained columns")
	ErrEmptyPrediction = errors.New("classifier produced no output")
)

// Air quality categories as produced by the trained category encoder.
const (
	CategoryGood          = "Good"
	CategoryModerate      = "Moderate"
	CategorySensitive     = "Unhealthy for Sensitive Groups"
	CategoryUnhealthy     = "Unhealthy"
	CategoryVeryUnhealthy = "Very Unhealthy"
	CategoryHazardous     = "Hazardous"
)

// Categories returns the six categories ordered from best to worst.
func Categories() []string {
	return []string{
		CategoryGood,
		CategoryModerate,
		CategorySensitive,
		CategoryUnhealthy,
		CategoryVeryUnhealthy,
		CategoryHazardous,
	}
}

var categorySummaries = map[string]string{
	CategoryGood:          "✅ Good: Air quality is considered satisfactory, and air pollution poses little or no risk.",
	CategoryModerate:      "ℹ️ Moderate: Air quality is acceptable; however, for some pollutants there may be a moderate health concern for a very small number of people who are unusually sensitive to air pollution.",
	CategorySensitive:     "⚠️ Unhealthy for Sensitive Groups: Members of sensitive groups may experience health effects. The general public is not likely to be affected.",
	CategoryUnhealthy:     "❗ Unhealthy: Everyone may begin to experience health effects; members of sensitive groups may experience more serious health effects.",
	CategoryVeryUnhealthy: "🚨 Very Unhealthy: Health alert: everyone may experience more serious health effects.",
	CategoryHazardous:     "☠️ Hazardous: Health warnings of emergency conditions. The entire population is more likely to be affected.",
}

// SummaryMessage returns the canned health summary for a category.
// Unknown categories get a generic fallback rather than an error.
func SummaryMessage(category string) string {
	if s, ok := categorySummaries[category]; ok {
		return s
	}
	return "ℹ️ No specific summary available for this category."
}

// Record is one raw observation handed to the feature transform.
// Pollutant fields are nil when the caller did not supply them.
type Record struct {
	Date    string
	PM25    *float64
	PM10    *float64
	O3      *float64
	NO2     *float64
	SO2     *float64
	CO      *float64
	Country string
	City    string
}

// FeatureRow is one engineered row. Columns carries the names in trained
// order and Values the matching numeric vector.
type FeatureRow struct {
	Columns []string
	Values  []float64
}

// PredictionResult is the outcome of a single classifier inference.
type PredictionResult struct {
	// Category is the decoded label of the winning class.
	Category string

	// Probabilities maps every trained category to its probability.
	// The values sum to 1 within floating tolerance.
	Probabilities map[string]float64

	// Summary is the human-readable message for the winning category.
	Summary string
}
