package prediction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aqisense/aqisense/internal/geocode"
	"github.com/aqisense/aqisense/internal/inference"
)

// geocodeFallbackSource labels resolved locations whose provider did
// not name itself.
const geocodeFallbackSource = "geocoding_service"

// FlagGate exposes the runtime switch for the auto-fill step.
type FlagGate interface {
	AutofillEnabled(ctx context.Context) bool
}

// ServiceConfig holds dependencies for the prediction Service.
type ServiceConfig struct {
	Engine     *inference.Engine
	Repository Repository

	// Autofill is optional; without it auto-fill requests run on the
	// caller's input alone.
	Autofill *Orchestrator

	// Flags is optional; a nil gate leaves auto-fill enabled.
	Flags FlagGate

	Logger zerolog.Logger
}

// Service runs the prediction workflow end to end.
type Service struct {
	engine   *inference.Engine
	repo     Repository
	autofill *Orchestrator
	flags    FlagGate
	logger   zerolog.Logger
}

// NewService creates a prediction Service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		engine:   cfg.Engine,
		repo:     cfg.Repository,
		autofill: cfg.Autofill,
		flags:    cfg.Flags,
		logger:   cfg.Logger.With().Str("component", "prediction").Logger(),
	}
}

// Predict validates the input, optionally auto-fills missing
// pollutants, runs the classifier and persists the outcome.
func (s *Service) Predict(ctx context.Context, in Input) (*StoredPrediction, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	final := in.Pollutants
	var (
		used     *UsedMeasurements
		resolved *geocode.Location
	)

	if in.AutoFill && s.autofillEnabled(ctx) {
		res := s.autofill.Fill(ctx, in.Pollutants, in.Country, in.City)
		final = res.Pollutants
		used = res.Used
		resolved = res.Location
	}

	result, err := s.engine.PredictRecord(inference.Record{
		Date:    in.Date,
		PM25:    final.PM25,
		PM10:    final.PM10,
		O3:      final.O3,
		NO2:     final.NO2,
		SO2:     final.SO2,
		CO:      final.CO,
		Country: in.Country,
		City:    in.City,
	})
	if err != nil {
		return nil, err
	}

	stored := &StoredPrediction{
		ID:   "prd_" + uuid.New().String()[:22],
		Date: in.Date,
		InputData: InputData{
			Date:       in.Date,
			Pollutants: in.Pollutants,
			Country:    in.Country,
			Loc:        in.City,
			AutoFill:   in.AutoFill,
		},
		Category:         result.Category,
		Probabilities:    result.Probabilities,
		Summary:          result.Summary,
		UsedMeasurements: used,
		CreatedAt:        time.Now().UTC(),
	}
	if resolved != nil {
		source := resolved.Source
		if source == "" {
			source = geocodeFallbackSource
		}
		stored.LocationInfo = &LocationInfo{
			Latitude:         resolved.Latitude,
			Longitude:        resolved.Longitude,
			FormattedAddress: resolved.FormattedAddress,
			DisplayName:      resolved.City,
			PlaceID:          resolved.PlaceID,
			Source:           source,
		}
	}

	if err := s.repo.Save(ctx, stored); err != nil {
		s.logger.Error().
			Err(err).
			Str("prediction_id", stored.ID).
			Str("category", stored.Category).
			Msg("failed to persist prediction")
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	s.logger.Info().
		Str("prediction_id", stored.ID).
		Str("date", stored.Date).
		Str("category", stored.Category).
		Bool("auto_filled", used != nil).
		Msg("stored prediction")

	return stored, nil
}

// History returns a page of stored predictions, newest first. An
// empty date means all dates.
func (s *Service) History(ctx context.Context, date string, limit, skip int) (*HistoryPage, error) {
	if date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
		}
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}

	opts := QueryOptions{Limit: limit, Skip: skip}

	var (
		items []*StoredPrediction
		total int
		err   error
	)
	if date == "" {
		items, total, err = s.repo.QueryAll(ctx, opts)
	} else {
		items, total, err = s.repo.QueryByDate(ctx, date, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return &HistoryPage{
		Items:      items,
		TotalCount: total,
		Limit:      limit,
		Skip:       skip,
	}, nil
}

func (s *Service) autofillEnabled(ctx context.Context) bool {
	if s.autofill == nil {
		return false
	}
	if s.flags == nil {
		return true
	}
	return s.flags.AutofillEnabled(ctx)
}

func validateInput(in Input) error {
	if _, err := time.Parse("2006-01-02", in.Date); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	if strings.TrimSpace(in.Country) == "" {
		return fmt.Errorf("%w: country is required", ErrValidation)
	}
	if strings.TrimSpace(in.City) == "" {
		return fmt.Errorf("%w: loc is required", ErrValidation)
	}
	return nil
}
