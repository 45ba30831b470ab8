package inference_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqisense/aqisense/internal/inference"
)

func fptr(v float64) *float64 {
	return &v
}

func testEncoders() (countries, locations *inference.LabelEncoder) {
	return inference.NewLabelEncoder([]string{"Indonesia", "Netherlands"}),
		inference.NewLabelEncoder([]string{"Amsterdam", "Jakarta"})
}

func TestBuildFeatures_FullRecord(t *testing.T) {
	countries, locations := testEncoders()

	row := inference.BuildFeatures(inference.Record{
		Date:    "2025-05-21", // a Wednesday
		PM25:    fptr(60),
		PM10:    fptr(90),
		O3:      fptr(35),
		NO2:     fptr(45),
		SO2:     fptr(15),
		CO:      fptr(0.7),
		Country: "Indonesia",
		City:    "Jakarta",
	}, countries, locations)

	require.Equal(t, inference.ModelColumns(), row.Columns)
	require.Len(t, row.Values, len(row.Columns))

	got := make(map[string]float64, len(row.Columns))
	for i, col := range row.Columns {
		got[col] = row.Values[i]
	}

	assert.Equal(t, 2.0, got["dayofweek"])
	assert.Equal(t, 0.0, got["is_weekend"])
	assert.InDelta(t, 245.7, got["total_pollutants"], 1e-9)
	assert.InDelta(t, 60.0/90.0, got["pm25_pm10_ratio"], 1e-9)
	assert.Equal(t, 0.0, got["country_encoded"])
	assert.Equal(t, 1.0, got["loc_encoded"])
}

func TestBuildFeatures_WeekendDerivation(t *testing.T) {
	countries, locations := testEncoders()

	tests := []struct {
		name      string
		date      string
		dayOfWeek float64
		weekend   float64
	}{
		{"saturday", "2025-05-24", 5, 1},
		{"sunday", "2025-05-25", 6, 1},
		{"monday", "2025-05-26", 0, 0},
		{"friday", "2025-05-23", 4, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := inference.BuildFeatures(inference.Record{
				Date:    tt.date,
				Country: "Indonesia",
				City:    "Jakarta",
			}, countries, locations)

			assert.Equal(t, tt.dayOfWeek, row.Values[6])
			assert.Equal(t, tt.weekend, row.Values[7])
		})
	}
}

func TestBuildFeatures_MissingPollutantsUseDefaults(t *testing.T) {
	countries, locations := testEncoders()

	row := inference.BuildFeatures(inference.Record{
		Date:    "2025-05-21",
		Country: "Indonesia",
		City:    "Jakarta",
	}, countries, locations)

	for i, code := range inference.PollutantCodes() {
		want, ok := inference.DefaultMean(code)
		require.True(t, ok)
		assert.Equal(t, want, row.Values[i], "pollutant %s", code)
	}
}

func TestBuildFeatures_ClipsToPhysicalRange(t *testing.T) {
	countries, locations := testEncoders()

	row := inference.BuildFeatures(inference.Record{
		Date:    "2025-05-21",
		PM25:    fptr(-40),      // below range
		PM10:    fptr(1e12),     // absurdly large
		O3:      fptr(math.NaN()),
		NO2:     fptr(math.Inf(1)),
		SO2:     fptr(15),
		CO:      fptr(999),
		Country: "Indonesia",
		City:    "Jakarta",
	}, countries, locations)

	for i, code := range inference.PollutantCodes() {
		min, max, ok := inference.PhysicalRange(code)
		require.True(t, ok)
		assert.GreaterOrEqual(t, row.Values[i], min, "pollutant %s", code)
		assert.LessOrEqual(t, row.Values[i], max, "pollutant %s", code)
	}

	// NaN and Inf fall back to the training means, not to garbage.
	o3Default, _ := inference.DefaultMean("o3")
	no2Default, _ := inference.DefaultMean("no2")
	assert.Equal(t, o3Default, row.Values[2])
	assert.Equal(t, no2Default, row.Values[3])
}

func TestBuildFeatures_RatioGuardsZeroDenominator(t *testing.T) {
	countries, locations := testEncoders()

	row := inference.BuildFeatures(inference.Record{
		Date:    "2025-05-21",
		PM25:    fptr(60),
		PM10:    fptr(0),
		O3:      fptr(35),
		NO2:     fptr(45),
		SO2:     fptr(15),
		CO:      fptr(0.7),
		Country: "Indonesia",
		City:    "Jakarta",
	}, countries, locations)

	assert.Equal(t, 0.0, row.Values[9], "ratio must be 0 when pm10 is 0")
}

func TestBuildFeatures_BadDateDoesNotFail(t *testing.T) {
	countries, locations := testEncoders()

	for _, date := range []string{"", "not-a-date", "21/05/2025"} {
		row := inference.BuildFeatures(inference.Record{
			Date:    date,
			Country: "Indonesia",
			City:    "Jakarta",
		}, countries, locations)

		require.Len(t, row.Values, 12)
		assert.GreaterOrEqual(t, row.Values[6], 0.0)
		assert.LessOrEqual(t, row.Values[6], 6.0)
	}
}

func TestBuildFeatures_UnseenLocationGetsSentinel(t *testing.T) {
	countries, locations := testEncoders()

	row := inference.BuildFeatures(inference.Record{
		Date:    "2025-05-21",
		Country: "Atlantis",
		City:    "Nowhere",
	}, countries, locations)

	assert.Equal(t, -1.0, row.Values[10])
	assert.Equal(t, -1.0, row.Values[11])
}

func TestBuildFeatureBatch(t *testing.T) {
	countries, locations := testEncoders()

	rows := inference.BuildFeatureBatch([]inference.Record{
		{Date: "2025-05-21", Country: "Indonesia", City: "Jakarta"},
		{Date: "2025-05-24", Country: "Netherlands", City: "Amsterdam"},
	}, countries, locations)

	require.Len(t, rows, 2)
	assert.Equal(t, 0.0, rows[0].Values[7])
	assert.Equal(t, 1.0, rows[1].Values[7])
}
