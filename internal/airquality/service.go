package airquality

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the air quality service.
type ServiceConfig struct {
	// Provider is the live backend (required).
	Provider Provider

	// DefaultLanguage is used when callers pass an empty language
	// code (default: "en").
	DefaultLanguage string

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service fetches current air-quality readings from the configured
// provider.
type Service struct {
	provider    Provider
	defaultLang string
	logger      zerolog.Logger
}

// NewService creates a new air quality service.
func NewService(cfg ServiceConfig) *Service {
	lang := cfg.DefaultLanguage
	if lang == "" {
		lang = "en"
	}
	return &Service{
		provider:    cfg.Provider,
		defaultLang: lang,
		logger:      cfg.Logger,
	}
}

// Current fetches the live reading at a coordinate. A provider miss
// comes back as ErrNoData; anything else means the provider failed.
func (s *Service) Current(ctx context.Context, lat, lon float64, languageCode string) (*Reading, error) {
	if languageCode == "" {
		languageCode = s.defaultLang
	}

	start := time.Now()
	reading, err := s.provider.CurrentConditions(ctx, lat, lon, languageCode)
	if err != nil {
		if errors.Is(err, ErrNoData) {
			s.logger.Debug().
				Float64("lat", lat).
				Float64("lon", lon).
				Msg("provider has no air quality data for coordinate")
			return nil, err
		}
		s.logger.Warn().Err(err).
			Float64("lat", lat).
			Float64("lon", lon).
			Msg("air quality fetch failed")
		return nil, err
	}

	s.logger.Debug().
		Float64("lat", lat).
		Float64("lon", lon).
		Int("pollutants", len(reading.Pollutants)).
		Int("indexes", len(reading.Indexes)).
		Dur("elapsed", time.Since(start)).
		Msg("air quality reading fetched")

	return reading, nil
}

// IsNoData reports whether err means the provider had no reading, as
// opposed to being unreachable.
func IsNoData(err error) bool {
	return errors.Is(err, ErrNoData)
}
