package heatmap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqisense/aqisense/internal/heatmap"
)

func floatPtr(v float64) *float64 { return &v }

func TestFromConditions(t *testing.T) {
	tests := []struct {
		name    string
		rec     heatmap.ConditionsRecord
		wantAQI float64
		wantOK  bool
	}{
		{
			name: "universal aqi preferred over other indexes",
			rec: heatmap.ConditionsRecord{
				Latitude:  floatPtr(52.37),
				Longitude: floatPtr(4.89),
				Indexes: []heatmap.IndexEntry{
					{DisplayName: "NL AQI", AQI: floatPtr(80)},
					{DisplayName: "Universal AQI", AQI: floatPtr(42)},
				},
			},
			wantAQI: 42,
			wantOK:  true,
		},
		{
			name: "universal aqi match is case insensitive",
			rec: heatmap.ConditionsRecord{
				Latitude:  floatPtr(1),
				Longitude: floatPtr(2),
				Indexes: []heatmap.IndexEntry{
					{DisplayName: "universal AQI", AQI: floatPtr(55)},
				},
			},
			wantAQI: 55,
			wantOK:  true,
		},
		{
			name: "falls back to the leading index's aqi",
			rec: heatmap.ConditionsRecord{
				Latitude:  floatPtr(1),
				Longitude: floatPtr(2),
				Indexes: []heatmap.IndexEntry{
					{DisplayName: "Local AQI", AQI: floatPtr(91)},
					{DisplayName: "Other AQI", AQI: floatPtr(12)},
				},
			},
			wantAQI: 91,
			wantOK:  true,
		},
		{
			name: "falls back to aqi_value spelling",
			rec: heatmap.ConditionsRecord{
				Latitude:  floatPtr(1),
				Longitude: floatPtr(2),
				Indexes: []heatmap.IndexEntry{
					{DisplayName: "Legacy", AQIValue: floatPtr(63)},
				},
			},
			wantAQI: 63,
			wantOK:  true,
		},
		{
			name: "leading aqi_value wins over a later aqi",
			rec: heatmap.ConditionsRecord{
				Latitude:  floatPtr(1),
				Longitude: floatPtr(2),
				Indexes: []heatmap.IndexEntry{
					{DisplayName: "Legacy", AQIValue: floatPtr(55)},
					{DisplayName: "Local AQI", AQI: floatPtr(99)},
				},
			},
			wantAQI: 55,
			wantOK:  true,
		},
		{
			name: "dropped when only a later index carries an aqi",
			rec: heatmap.ConditionsRecord{
				Latitude:  floatPtr(1),
				Longitude: floatPtr(2),
				Indexes: []heatmap.IndexEntry{
					{DisplayName: "Local AQI"},
					{DisplayName: "Other AQI", AQI: floatPtr(91)},
				},
			},
			wantOK: false,
		},
		{
			name: "dropped without coordinates",
			rec: heatmap.ConditionsRecord{
				Indexes: []heatmap.IndexEntry{
					{DisplayName: "Universal AQI", AQI: floatPtr(42)},
				},
			},
			wantOK: false,
		},
		{
			name: "dropped without any aqi",
			rec: heatmap.ConditionsRecord{
				Latitude:  floatPtr(1),
				Longitude: floatPtr(2),
				Indexes:   []heatmap.IndexEntry{{DisplayName: "Empty"}},
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := heatmap.FromConditions(tt.rec)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantAQI, p.AQI)
				assert.Equal(t, *tt.rec.Latitude, p.Latitude)
				assert.Equal(t, *tt.rec.Longitude, p.Longitude)
			}
		})
	}
}

func TestFromPrediction(t *testing.T) {
	midpoints := map[string]float64{
		"Good":                           25,
		"Moderate":                       75,
		"Unhealthy for Sensitive Groups": 125,
		"Unhealthy":                      175,
		"Very Unhealthy":                 250,
		"Hazardous":                      350,
	}

	for category, want := range midpoints {
		p, ok := heatmap.FromPrediction(heatmap.PredictionRecord{
			Latitude:  floatPtr(10),
			Longitude: floatPtr(20),
			Category:  category,
		})
		require.True(t, ok, category)
		assert.Equal(t, want, p.AQI, category)
	}

	_, ok := heatmap.FromPrediction(heatmap.PredictionRecord{
		Latitude:  floatPtr(10),
		Longitude: floatPtr(20),
		Category:  "Apocalyptic",
	})
	assert.False(t, ok, "unknown category must be dropped")

	_, ok = heatmap.FromPrediction(heatmap.PredictionRecord{Category: "Good"})
	assert.False(t, ok, "missing coordinates must be dropped")
}

func TestCategoryMidpoint(t *testing.T) {
	mid, ok := heatmap.CategoryMidpoint("Good")
	require.True(t, ok)
	assert.Equal(t, 25.0, mid)

	mid, ok = heatmap.CategoryMidpoint("Hazardous")
	require.True(t, ok)
	assert.Equal(t, 350.0, mid)

	_, ok = heatmap.CategoryMidpoint("Apocalyptic")
	assert.False(t, ok)
}
