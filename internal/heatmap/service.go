package heatmap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// ConditionsSource yields stored observations for the heatmap.
type ConditionsSource interface {
	AllForMap(ctx context.Context) ([]ConditionsRecord, error)
}

// PredictionSource yields stored predictions for the heatmap.
type PredictionSource interface {
	AllForMap(ctx context.Context) ([]PredictionRecord, error)
}

// ServiceConfig holds dependencies for the heatmap Service.
type ServiceConfig struct {
	Conditions  ConditionsSource
	Predictions PredictionSource
	Estimator   *Estimator
	Logger      zerolog.Logger
}

// Service assembles heatmap points from both stores and serves AQI
// estimates at arbitrary coordinates.
type Service struct {
	conditions  ConditionsSource
	predictions PredictionSource
	estimator   *Estimator
	logger      zerolog.Logger
}

// NewService creates a heatmap Service.
func NewService(cfg ServiceConfig) *Service {
	est := cfg.Estimator
	if est == nil {
		est = NewEstimator(DefaultEstimatorConfig())
	}
	return &Service{
		conditions:  cfg.Conditions,
		predictions: cfg.Predictions,
		estimator:   est,
		logger:      cfg.Logger.With().Str("component", "heatmap").Logger(),
	}
}

// AllPoints returns every renderable point from stored observations
// and predictions. Records that cannot yield a point are dropped, not
// errors.
func (s *Service) AllPoints(ctx context.Context) ([]Point, error) {
	points := make([]Point, 0, 64)

	condRecords, err := s.conditions.AllForMap(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: conditions: %v", ErrStoreUnavailable, err)
	}
	dropped := 0
	for _, rec := range condRecords {
		p, ok := FromConditions(rec)
		if !ok {
			dropped++
			continue
		}
		points = append(points, p)
	}

	predRecords, err := s.predictions.AllForMap(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: predictions: %v", ErrStoreUnavailable, err)
	}
	for _, rec := range predRecords {
		p, ok := FromPrediction(rec)
		if !ok {
			dropped++
			continue
		}
		points = append(points, p)
	}

	s.logger.Debug().
		Int("points", len(points)).
		Int("dropped", dropped).
		Msg("assembled heatmap points")

	return points, nil
}

// EstimateAt interpolates the AQI at the given coordinates from all
// stored points.
func (s *Service) EstimateAt(ctx context.Context, lat, lon float64) (*Estimate, error) {
	points, err := s.AllPoints(ctx)
	if err != nil {
		return nil, err
	}

	est, err := s.estimator.Estimate(lat, lon, points)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Float64("lat", lat).
		Float64("lon", lon).
		Float64("aqi", est.AQI).
		Str("confidence", string(est.Confidence)).
		Msg("estimated aqi")

	return est, nil
}
