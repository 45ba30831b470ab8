package inference

import (
	"math"
	"time"
)

// The six pollutant codes the model was trained on. All per-pollutant
// dispatch is membership over this list.
var pollutantCodes = []string{"pm25", "pm10", "o3", "no2", "so2", "co"}

// Training-set means substituted for missing or non-numeric values.
var pollutantDefaults = map[string]float64{
	"pm25": 25.0,
	"pm10": 50.0,
	"o3":   30.0,
	"no2":  25.0,
	"so2":  10.0,
	"co":   0.5,
}

// Physical ranges every value is clipped to after substitution.
var pollutantBounds = map[string][2]float64{
	"pm25": {0, 500},
	"pm10": {0, 1000},
	"o3":   {0, 400},
	"no2":  {0, 300},
	"so2":  {0, 200},
	"co":   {0, 50},
}

// Engineered column names in the exact order the classifier was trained on.
var modelColumns = []string{
	"pm25", "pm10", "o3", "no2", "so2", "co",
	"dayofweek", "is_weekend",
	"total_pollutants", "pm25_pm10_ratio",
	"country_encoded", "loc_encoded",
}

// PollutantCodes returns the trained pollutant codes in column order.
func PollutantCodes() []string {
	out := make([]string, len(pollutantCodes))
	copy(out, pollutantCodes)
	return out
}

// DefaultMean returns the value substituted when a pollutant is missing.
func DefaultMean(code string) (float64, bool) {
	v, ok := pollutantDefaults[code]
	return v, ok
}

// PhysicalRange returns the clip range applied to a pollutant.
func PhysicalRange(code string) (min, max float64, ok bool) {
	b, ok := pollutantBounds[code]
	if !ok {
		return 0, 0, false
	}
	return b[0], b[1], true
}

// ModelColumns returns the trained column names in order.
func ModelColumns() []string {
	out := make([]string, len(modelColumns))
	copy(out, modelColumns)
	return out
}

// BuildFeatures engineers one record into the trained column layout.
// It never fails: bad dates fall back to the current date and missing or
// non-finite pollutant values fall back to their training means before
// clipping.
func BuildFeatures(rec Record, countries, locations *LabelEncoder) FeatureRow {
	date := parseDate(rec.Date)

	// Weekday indexed Monday=0 through Sunday=6, weekends are 5 and 6.
	dayOfWeek := float64((int(date.Weekday()) + 6) % 7)
	isWeekend := 0.0
	if dayOfWeek >= 5 {
		isWeekend = 1.0
	}

	clipped := make(map[string]float64, len(pollutantCodes))
	total := 0.0
	for _, code := range pollutantCodes {
		v := clipPollutant(code, rec.pollutant(code))
		clipped[code] = v
		total += v
	}

	// Guard the ratio against a zero denominator instead of failing.
	ratio := 0.0
	if clipped["pm10"] > 0 {
		ratio = clipped["pm25"] / clipped["pm10"]
	}

	values := []float64{
		clipped["pm25"], clipped["pm10"], clipped["o3"],
		clipped["no2"], clipped["so2"], clipped["co"],
		dayOfWeek, isWeekend,
		total, ratio,
		float64(countries.Transform(rec.Country)),
		float64(locations.Transform(rec.City)),
	}

	return FeatureRow{Columns: ModelColumns(), Values: values}
}

// BuildFeatureBatch engineers a batch of records, one row per record.
func BuildFeatureBatch(recs []Record, countries, locations *LabelEncoder) []FeatureRow {
	rows := make([]FeatureRow, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, BuildFeatures(rec, countries, locations))
	}
	return rows
}

// pollutant returns the raw caller value for a known code, nil otherwise.
func (r Record) pollutant(code string) *float64 {
	switch code {
	case "pm25":
		return r.PM25
	case "pm10":
		return r.PM10
	case "o3":
		return r.O3
	case "no2":
		return r.NO2
	case "so2":
		return r.SO2
	case "co":
		return r.CO
	}
	return nil
}

func clipPollutant(code string, raw *float64) float64 {
	v := pollutantDefaults[code]
	if raw != nil && !math.IsNaN(*raw) && !math.IsInf(*raw, 0) {
		v = *raw
	}

	b := pollutantBounds[code]
	if v < b[0] {
		v = b[0]
	}
	if v > b[1] {
		v = b[1]
	}
	return v
}

func parseDate(raw string) time.Time {
	if raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			return t
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t
		}
	}
	// A bad date degrades to today rather than failing the batch.
	return time.Now().UTC()
}
