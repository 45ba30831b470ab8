// Package heatmap aggregates stored observations and predictions into
// geographic AQI points and estimates the AQI at arbitrary
// coordinates by inverse distance weighting.
package heatmap

import (
	"errors"
	"strings"
)

// Heatmap errors.
var (
	ErrNoPoints         = errors.New("no data points available")
	ErrNoPointsInRange  = errors.New("no data points within range")
	ErrStoreUnavailable = errors.New("heatmap store unavailable")
)

// Point is one renderable heatmap sample.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	AQI       float64 `json:"aqi"`
}

// IndexEntry is one air-quality index as read back from a stored
// observation. AQI and AQIValue cover the two field spellings that
// appear in stored payloads.
type IndexEntry struct {
	DisplayName string   `json:"display_name"`
	AQI         *float64 `json:"aqi"`
	AQIValue    *float64 `json:"aqi_value"`
}

// ConditionsRecord is a stored observation reduced to what the
// heatmap needs. Coordinates are pointers because old rows may lack
// them.
type ConditionsRecord struct {
	Latitude  *float64
	Longitude *float64
	Indexes   []IndexEntry
}

// PredictionRecord is a stored prediction reduced to what the heatmap
// needs.
type PredictionRecord struct {
	Latitude  *float64
	Longitude *float64
	Category  string
}

// categoryMidpoints maps a predicted category to a representative AQI
// for rendering.
var categoryMidpoints = map[string]float64{
	"Good":                           25,
	"Moderate":                       75,
	"Unhealthy for Sensitive Groups": 125,
	"Unhealthy":                      175,
	"Very Unhealthy":                 250,
	"Hazardous":                      350,
}

// CategoryMidpoint returns the representative AQI for a predicted
// category, and false for categories the heatmap does not render.
func CategoryMidpoint(category string) (float64, bool) {
	mid, ok := categoryMidpoints[category]
	return mid, ok
}

// FromConditions converts a stored observation into a heatmap point.
// The AQI is taken from the universal AQI index when present, then
// from the leading index's aqi, then its aqi_value. Records without
// coordinates or without an AQI are dropped.
func FromConditions(rec ConditionsRecord) (Point, bool) {
	if rec.Latitude == nil || rec.Longitude == nil {
		return Point{}, false
	}
	aqi, ok := conditionsAQI(rec.Indexes)
	if !ok {
		return Point{}, false
	}
	return Point{Latitude: *rec.Latitude, Longitude: *rec.Longitude, AQI: aqi}, true
}

// FromPrediction converts a stored prediction into a heatmap point
// using the category midpoint. Records without coordinates or with an
// unknown category are dropped.
func FromPrediction(rec PredictionRecord) (Point, bool) {
	if rec.Latitude == nil || rec.Longitude == nil {
		return Point{}, false
	}
	mid, ok := categoryMidpoints[rec.Category]
	if !ok {
		return Point{}, false
	}
	return Point{Latitude: *rec.Latitude, Longitude: *rec.Longitude, AQI: mid}, true
}

func conditionsAQI(indexes []IndexEntry) (float64, bool) {
	for _, idx := range indexes {
		if strings.EqualFold(idx.DisplayName, "universal aqi") && idx.AQI != nil {
			return *idx.AQI, true
		}
	}
	// Without a universal index only the leading index counts; a
	// local AQI further down the list is not a usable map value.
	if len(indexes) == 0 {
		return 0, false
	}
	first := indexes[0]
	if first.AQI != nil {
		return *first.AQI, true
	}
	if first.AQIValue != nil {
		return *first.AQIValue, true
	}
	return 0, false
}
