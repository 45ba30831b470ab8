package prediction

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aqisense/aqisense/internal/airquality"
	"github.com/aqisense/aqisense/internal/geocode"
)

// defaultFillSource labels auto-filled values when the provider did
// not name itself.
const defaultFillSource = "External Air Quality Service"

// Geocoder resolves a country and city to coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, country, city string) (*geocode.Location, error)
}

// AirQualityFetcher returns the live reading at coordinates.
type AirQualityFetcher interface {
	Current(ctx context.Context, lat, lon float64, languageCode string) (*airquality.Reading, error)
}

// OrchestratorConfig holds dependencies for the auto-fill
// Orchestrator.
type OrchestratorConfig struct {
	Geocoder Geocoder
	Fetcher  AirQualityFetcher
	Logger   zerolog.Logger
}

// Orchestrator fills missing pollutant values from live measurements
// at the request location. It never overwrites a caller-supplied
// value, and every external failure degrades to the caller's input.
type Orchestrator struct {
	geocoder Geocoder
	fetcher  AirQualityFetcher
	logger   zerolog.Logger
}

// NewOrchestrator creates an auto-fill Orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		geocoder: cfg.Geocoder,
		fetcher:  cfg.Fetcher,
		logger:   cfg.Logger.With().Str("component", "autofill").Logger(),
	}
}

// FillResult is the outcome of one auto-fill attempt. Used is nil
// when no field was filled; Location is nil when geocoding failed.
type FillResult struct {
	Pollutants Pollutants
	Used       *UsedMeasurements
	Location   *geocode.Location
}

// Fill resolves the location, fetches the live reading and merges it
// into the missing pollutant fields. Caller-supplied values always
// win.
func (o *Orchestrator) Fill(ctx context.Context, current Pollutants, country, city string) FillResult {
	result := FillResult{Pollutants: current}

	missing := current.Missing()
	if len(missing) == 0 {
		return result
	}

	loc, err := o.geocoder.Resolve(ctx, country, city)
	if err != nil {
		o.logger.Warn().
			Err(err).
			Str("country", country).
			Str("city", city).
			Msg("auto-fill geocoding failed, using caller input as-is")
		return result
	}
	result.Location = loc

	reading, err := o.fetcher.Current(ctx, loc.Latitude, loc.Longitude, "")
	if err != nil {
		o.logger.Warn().
			Err(err).
			Str("city", city).
			Msg("auto-fill measurement fetch failed, using caller input as-is")
		return result
	}

	filled := make(map[string]float64)
	for _, code := range missing {
		value := reading.Pollutant(code)
		if value == nil {
			continue
		}
		result.Pollutants.Set(code, *value)
		filled[code] = *value
	}

	if len(filled) == 0 {
		o.logger.Debug().
			Str("city", city).
			Strs("missing", missing).
			Msg("provider had no values for the missing pollutants")
		return result
	}

	source := reading.Source
	if source == "" {
		source = defaultFillSource
	}
	timestamp := reading.FetchedAt
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	result.Used = &UsedMeasurements{
		Source:     source,
		Timestamp:  timestamp,
		Pollutants: filled,
	}

	o.logger.Info().
		Str("city", city).
		Int("filled", len(filled)).
		Str("source", source).
		Msg("auto-filled missing pollutants")

	return result
}
