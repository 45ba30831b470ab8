// Package airquality provides access to live air-quality readings.
package airquality

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Provider errors.
var (
	// ErrNoData means the provider has no information for the
	// requested coordinate. This is a valid answer, not an outage.
	ErrNoData = errors.New("no air quality data for location")

	ErrProviderUnavailable = errors.New("air quality provider unavailable")
)

// KnownPollutants are the six pollutant codes carried end to end.
// Provider responses may include more; anything outside this set is
// kept in the raw reading but excluded from summaries.
var KnownPollutants = []string{"pm25", "pm10", "o3", "no2", "so2", "co"}

// IsKnownPollutant reports whether code is one of the six tracked codes.
func IsKnownPollutant(code string) bool {
	for _, known := range KnownPollutants {
		if code == known {
			return true
		}
	}
	return false
}

// Concentration is a measured pollutant value in provider-native units.
// Units are carried verbatim; no cross-provider normalization happens
// here.
type Concentration struct {
	Value *float64 `json:"value,omitempty"`
	Units string   `json:"units,omitempty"`
}

// PollutantDetail is one pollutant entry from a provider reading.
type PollutantDetail struct {
	Code           string            `json:"code"`
	DisplayName    string            `json:"display_name,omitempty"`
	FullName       string            `json:"full_name,omitempty"`
	Concentration  Concentration     `json:"concentration"`
	AdditionalInfo map[string]string `json:"additional_info,omitempty"`
}

// Index is one AQI index entry (universal or local).
type Index struct {
	Code              string             `json:"code"`
	DisplayName       string             `json:"display_name"`
	AQI               int                `json:"aqi"`
	AQIDisplay        string             `json:"aqi_display,omitempty"`
	Category          string             `json:"category,omitempty"`
	DominantPollutant string             `json:"dominant_pollutant,omitempty"`
	Color             map[string]float64 `json:"color,omitempty"`
}

// Reading is a point-in-time air-quality observation at a coordinate.
type Reading struct {
	FetchedAt  time.Time `json:"fetched_at"`
	RegionCode string    `json:"region_code,omitempty"`
	Country    string    `json:"country,omitempty"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`

	Indexes    []Index           `json:"indexes"`
	Pollutants []PollutantDetail `json:"pollutants"`

	HealthRecommendations map[string]string `json:"health_recommendations,omitempty"`

	// Source labels the provider, e.g. "Google Air Quality API".
	Source string `json:"source,omitempty"`
}

// Summary maps each of the six tracked pollutant codes to its measured
// value. Codes missing from the reading, unknown codes and entries
// without a value are omitted.
func (r *Reading) Summary() map[string]float64 {
	out := make(map[string]float64, len(KnownPollutants))
	for _, p := range r.Pollutants {
		if !IsKnownPollutant(p.Code) || p.Concentration.Value == nil {
			continue
		}
		out[p.Code] = *p.Concentration.Value
	}
	return out
}

// Pollutant returns the measured value for a tracked code, or nil.
func (r *Reading) Pollutant(code string) *float64 {
	if !IsKnownPollutant(code) {
		return nil
	}
	for _, p := range r.Pollutants {
		if p.Code == code {
			return p.Concentration.Value
		}
	}
	return nil
}

// UniversalAQI returns the universal AQI index value when present.
func (r *Reading) UniversalAQI() (int, bool) {
	for _, idx := range r.Indexes {
		if strings.EqualFold(idx.DisplayName, "universal aqi") || idx.Code == "uaqi" {
			return idx.AQI, true
		}
	}
	return 0, false
}

// Provider is a live air-quality backend. Implementations return
// ErrNoData when the provider has nothing for the coordinate.
type Provider interface {
	CurrentConditions(ctx context.Context, lat, lon float64, languageCode string) (*Reading, error)
}

// regionNames maps provider region codes to country names for the
// markets this service is deployed in. Codes outside the table fall
// back to their upper-cased form.
var regionNames = map[string]string{
	"au": "Australia",
	"cn": "China",
	"de": "Germany",
	"es": "Spain",
	"fr": "France",
	"gb": "United Kingdom",
	"id": "Indonesia",
	"in": "India",
	"it": "Italy",
	"jp": "Japan",
	"kr": "South Korea",
	"my": "Malaysia",
	"nl": "Netherlands",
	"ph": "Philippines",
	"sg": "Singapore",
	"th": "Thailand",
	"tw": "Taiwan",
	"us": "United States",
	"vn": "Vietnam",
}

// CountryForRegion resolves a region code to a country name.
func CountryForRegion(code string) string {
	if code == "" {
		return "Unknown"
	}
	if name, ok := regionNames[strings.ToLower(code)]; ok {
		return name
	}
	return strings.ToUpper(code)
}
