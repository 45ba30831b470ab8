package conditions

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aqisense/aqisense/internal/airquality"
	"github.com/aqisense/aqisense/internal/geocode"
	"github.com/aqisense/aqisense/internal/inference"
)

// Geocoder resolves names to coordinates and back.
type Geocoder interface {
	Resolve(ctx context.Context, country, city string) (*geocode.Location, error)
	ReverseResolve(ctx context.Context, lat, lon float64) (*geocode.Location, error)
}

// Fetcher returns the live reading at coordinates.
type Fetcher interface {
	Current(ctx context.Context, lat, lon float64, languageCode string) (*airquality.Reading, error)
}

// FlagGate exposes the runtime switch for the forecast step.
type FlagGate interface {
	ConditionsPredictionEnabled(ctx context.Context) bool
}

// ServiceConfig holds dependencies for the conditions Service.
type ServiceConfig struct {
	Geocoder   Geocoder
	Fetcher    Fetcher
	Engine     *inference.Engine
	Repository Repository

	// Flags is optional; a nil gate leaves the forecast enabled.
	Flags FlagGate

	Logger zerolog.Logger
}

// Service answers conditions lookups by name or by coordinates. A
// lookup that reaches the provider always returns its reading; the
// forecast and the stored snapshot are best effort.
type Service struct {
	geocoder Geocoder
	fetcher  Fetcher
	engine   *inference.Engine
	repo     Repository
	flags    FlagGate
	logger   zerolog.Logger
}

// NewService creates a conditions Service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		geocoder: cfg.Geocoder,
		fetcher:  cfg.Fetcher,
		engine:   cfg.Engine,
		repo:     cfg.Repository,
		flags:    cfg.Flags,
		logger:   cfg.Logger.With().Str("component", "conditions").Logger(),
	}
}

// Lookup resolves a named place and returns the current conditions
// there.
func (s *Service) Lookup(ctx context.Context, country, city, languageCode string) (*Snapshot, error) {
	if strings.TrimSpace(country) == "" || strings.TrimSpace(city) == "" {
		return nil, ErrValidation
	}

	loc, err := s.geocoder.Resolve(ctx, country, city)
	if err != nil {
		return nil, err
	}

	reading, err := s.fetcher.Current(ctx, loc.Latitude, loc.Longitude, languageCode)
	if err != nil {
		return nil, err
	}

	return s.assemble(ctx, *loc, reading), nil
}

// Current returns the conditions at raw coordinates, reverse
// geocoding them to a named place when possible.
func (s *Service) Current(ctx context.Context, lat, lon float64, languageCode string) (*Snapshot, error) {
	reading, err := s.fetcher.Current(ctx, lat, lon, languageCode)
	if err != nil {
		return nil, err
	}

	loc := geocode.Location{
		Country:   reading.Country,
		City:      "Unknown",
		Latitude:  lat,
		Longitude: lon,
	}
	if resolved, err := s.geocoder.ReverseResolve(ctx, lat, lon); err != nil {
		s.logger.Warn().
			Err(err).
			Float64("lat", lat).
			Float64("lon", lon).
			Msg("reverse geocoding failed, keeping provider region")
	} else {
		loc = *resolved
		loc.Latitude = lat
		loc.Longitude = lon
	}

	return s.assemble(ctx, loc, reading), nil
}

// assemble builds the snapshot, attaches the forecast when possible
// and persists it. Persistence failures are logged, never fatal.
func (s *Service) assemble(ctx context.Context, loc geocode.Location, reading *airquality.Reading) *Snapshot {
	snapshot := &Snapshot{
		ID:                "cnd_" + uuid.New().String()[:22],
		Location:          loc,
		PollutantsSummary: reading.Summary(),
		Reading:           reading,
		FetchedAt:         reading.FetchedAt,
		CreatedAt:         time.Now().UTC(),
	}

	if s.forecastEnabled(ctx) && len(snapshot.PollutantsSummary) > 0 {
		snapshot.Forecast = s.forecast(snapshot)
	}

	if err := s.repo.Save(ctx, snapshot); err != nil {
		s.logger.Error().
			Err(err).
			Str("snapshot_id", snapshot.ID).
			Str("city", loc.City).
			Msg("failed to persist conditions snapshot")
	}

	return snapshot
}

// forecast runs the classifier on the measured pollutants. A failed
// forecast degrades to nil.
func (s *Service) forecast(snapshot *Snapshot) *Forecast {
	rec := inference.Record{
		Date:    time.Now().UTC().Format("2006-01-02"),
		Country: snapshot.Location.Country,
		City:    snapshot.Location.City,
	}
	for code, value := range snapshot.PollutantsSummary {
		v := value
		switch code {
		case "pm25":
			rec.PM25 = &v
		case "pm10":
			rec.PM10 = &v
		case "o3":
			rec.O3 = &v
		case "no2":
			rec.NO2 = &v
		case "so2":
			rec.SO2 = &v
		case "co":
			rec.CO = &v
		}
	}

	result, err := s.engine.PredictRecord(rec)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("city", snapshot.Location.City).
			Msg("forecast failed, returning conditions without prediction")
		return nil
	}

	return &Forecast{
		ID:            "prd_" + uuid.New().String()[:22],
		Category:      result.Category,
		Probabilities: result.Probabilities,
		Summary:       result.Summary,
	}
}

func (s *Service) forecastEnabled(ctx context.Context) bool {
	if s.engine == nil {
		return false
	}
	if s.flags == nil {
		return true
	}
	return s.flags.ConditionsPredictionEnabled(ctx)
}
