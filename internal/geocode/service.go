package geocode

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Provider is a live geocoding backend. Implementations return
// ErrNoResults when the query resolves to nothing.
type Provider interface {
	Geocode(ctx context.Context, country, city string) (*Location, error)
	ReverseGeocode(ctx context.Context, lat, lon float64) (*Location, error)
}

// ServiceConfig holds configuration for the geocoding service.
type ServiceConfig struct {
	// Provider is the live geocoding backend (required).
	Provider Provider

	// Cache fronts the provider. Optional; without it every call goes
	// to the provider.
	Cache CacheStore

	// CacheTTL is the write-through TTL (default: 24h).
	CacheTTL time.Duration

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service resolves locations cache-first with write-through on live
// hits. Cached geocodes are idempotent facts, so last-writer-wins races
// on Set are harmless.
type Service struct {
	provider Provider
	cache    CacheStore
	cacheTTL time.Duration
	logger   zerolog.Logger
}

// NewService creates a new geocoding service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = DefaultCacheTTL
	}

	return &Service{
		provider: cfg.Provider,
		cache:    cfg.Cache,
		cacheTTL: cacheTTL,
		logger:   cfg.Logger,
	}
}

// Resolve geocodes a country/city pair.
func (s *Service) Resolve(ctx context.Context, country, city string) (*Location, error) {
	key := ForwardKey(country, city)

	if loc := s.cached(ctx, key); loc != nil {
		s.logger.Debug().Str("key", key).Msg("geocode cache hit")
		return loc, nil
	}

	loc, err := s.provider.Geocode(ctx, country, city)
	if err != nil {
		return nil, err
	}

	s.writeThrough(ctx, key, loc)
	return loc, nil
}

// ReverseResolve geocodes a coordinate pair back to a place.
func (s *Service) ReverseResolve(ctx context.Context, lat, lon float64) (*Location, error) {
	key := ReverseKey(lat, lon)

	if loc := s.cached(ctx, key); loc != nil {
		s.logger.Debug().Str("key", key).Msg("reverse geocode cache hit")
		return loc, nil
	}

	loc, err := s.provider.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		return nil, err
	}

	s.writeThrough(ctx, key, loc)
	return loc, nil
}

// cached reads the cache, marking hits so callers can tell them from
// live resolutions. Cache errors degrade to a miss.
func (s *Service) cached(ctx context.Context, key string) *Location {
	if s.cache == nil {
		return nil
	}

	loc, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("geocode cache read failed")
		return nil
	}
	if loc == nil {
		return nil
	}

	if loc.Source != "" {
		loc.Source += " (cached)"
	}
	return loc
}

func (s *Service) writeThrough(ctx context.Context, key string, loc *Location) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, loc, s.cacheTTL); err != nil {
		// A failed write only costs a future provider call.
		s.logger.Warn().Err(err).Str("key", key).Msg("geocode cache write failed")
	}
}

// IsMiss reports whether err means the provider had no data, as opposed
// to being unreachable.
func IsMiss(err error) bool {
	return errors.Is(err, ErrNoResults)
}
