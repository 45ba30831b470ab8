package worker

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aqisense/aqisense/internal/conditions"
)

// ConditionsService is the slice of the conditions service the
// refresher needs.
type ConditionsService interface {
	Lookup(ctx context.Context, country, city, languageCode string) (*conditions.Snapshot, error)
}

// EventPublisher emits an event after each successful refresh. A nil
// publisher disables events.
type EventPublisher interface {
	Publish(ctx context.Context, ev RefreshedEvent) error
}

// RefreshJob refreshes stored conditions for the configured cities.
type RefreshJob struct {
	config     RefreshConfig
	conditions ConditionsService
	publisher  EventPublisher
	logger     zerolog.Logger

	mu      sync.Mutex
	lastRun *RefreshResult
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config     RefreshConfig
	Conditions ConditionsService
	Publisher  EventPublisher
	Logger     zerolog.Logger
}

// NewRefreshJob creates a new refresh job processor.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	config := cfg.Config
	if len(config.Cities) == 0 {
		config.Cities = DefaultCities()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 3
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &RefreshJob{
		config:     config,
		conditions: cfg.Conditions,
		publisher:  cfg.Publisher,
		logger:     cfg.Logger.With().Str("component", "refresh_job").Logger(),
	}
}

// RefreshResult contains the result of one refresh round.
type RefreshResult struct {
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	TotalCities int
	Successful  int
	Failed      int
	Errors      []RefreshError
}

// RefreshError records one failed city refresh.
type RefreshError struct {
	Target CityTarget
	Error  string
}

// Run refreshes every configured city once. A failing city is logged
// and skipped; the round always completes.
func (j *RefreshJob) Run(ctx context.Context) *RefreshResult {
	startTime := time.Now()
	result := &RefreshResult{
		StartTime:   startTime,
		TotalCities: len(j.config.Cities),
	}

	j.logger.Info().
		Int("cities", result.TotalCities).
		Int("concurrency", j.config.Concurrency).
		Msg("starting conditions refresh round")

	targets := make(chan CityTarget, len(j.config.Cities))
	results := make(chan cityResult, len(j.config.Cities))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for target := range targets {
				results <- j.refreshCity(ctx, target)
			}
		}()
	}

	for _, target := range j.config.Cities {
		targets <- target
	}
	close(targets)

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		if res.err == nil {
			result.Successful++
			continue
		}
		result.Failed++
		result.Errors = append(result.Errors, RefreshError{
			Target: res.target,
			Error:  res.err.Error(),
		})
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.mu.Lock()
	j.lastRun = result
	j.mu.Unlock()

	j.logger.Info().
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("conditions refresh round completed")

	return result
}

// LastRun returns the most recent round's result, or nil before the
// first round.
func (j *RefreshJob) LastRun() *RefreshResult {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastRun
}

type cityResult struct {
	target CityTarget
	err    error
}

func (j *RefreshJob) refreshCity(ctx context.Context, target CityTarget) cityResult {
	cityCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	snap, err := j.conditions.Lookup(cityCtx, target.Country, target.City, "")
	if err != nil {
		j.logger.Warn().
			Err(err).
			Str("country", target.Country).
			Str("city", target.City).
			Msg("city refresh failed")
		return cityResult{target: target, err: err}
	}

	j.publish(cityCtx, target, snap)
	return cityResult{target: target}
}

// publish emits the refresh event. Publish failures do not fail the
// refresh; the snapshot is already stored.
func (j *RefreshJob) publish(ctx context.Context, target CityTarget, snap *conditions.Snapshot) {
	if j.publisher == nil || snap == nil {
		return
	}

	ev := RefreshedEvent{
		Country:   target.Country,
		City:      target.City,
		FetchedAt: snap.FetchedAt,
	}
	if snap.Reading != nil {
		if aqi, ok := snap.Reading.UniversalAQI(); ok {
			ev.AQI = aqi
		}
	}
	if snap.Forecast != nil {
		ev.Category = snap.Forecast.Category
	}

	if err := j.publisher.Publish(ctx, ev); err != nil {
		j.logger.Warn().
			Err(err).
			Str("city", target.City).
			Msg("refresh event publish failed")
	}
}

// Loop runs refresh rounds until ctx is cancelled. The first round
// starts immediately; later rounds run every Interval plus a random
// jitter.
func (j *RefreshJob) Loop(ctx context.Context) {
	j.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info().Msg("refresh loop stopped")
			return
		case <-time.After(j.nextDelay()):
			j.Run(ctx)
		}
	}
}

func (j *RefreshJob) nextDelay() time.Duration {
	delay := j.config.Interval
	if delay <= 0 {
		delay = 15 * time.Minute
	}
	if j.config.Jitter > 0 {
		delay += time.Duration(rand.Int63n(int64(j.config.Jitter)))
	}
	return delay
}
