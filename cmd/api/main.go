// Package main provides the entrypoint for the AQISense API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/aqisense/aqisense/internal/airquality"
	"github.com/aqisense/aqisense/internal/airquality/googleair"
	"github.com/aqisense/aqisense/internal/api"
	"github.com/aqisense/aqisense/internal/api/handler"
	"github.com/aqisense/aqisense/internal/api/middleware"
	"github.com/aqisense/aqisense/internal/auth"
	"github.com/aqisense/aqisense/internal/cache"
	"github.com/aqisense/aqisense/internal/conditions"
	"github.com/aqisense/aqisense/internal/database"
	"github.com/aqisense/aqisense/internal/featureflags"
	"github.com/aqisense/aqisense/internal/geocode"
	"github.com/aqisense/aqisense/internal/geocode/googleplaces"
	"github.com/aqisense/aqisense/internal/heatmap"
	"github.com/aqisense/aqisense/internal/inference"
	"github.com/aqisense/aqisense/internal/prediction"
	"github.com/aqisense/aqisense/internal/provider/resilience"
	"github.com/aqisense/aqisense/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "aqisense-api"

	// Local development convenience; ignored when no .env exists.
	_ = godotenv.Load()

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting AQISense API")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	// Connect to Redis for the geocode cache. The API degrades to
	// uncached geocoding when Redis is down.
	var geocodeCache geocode.CacheStore
	redisConfig := cache.ConfigFromEnv()
	redisClient, err := cache.Connect(ctx, redisConfig)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, geocoding runs uncached")
	} else {
		defer redisClient.Close()
		geocodeCache = geocode.NewRedisCache(redisClient, log)
		log.Info().Str("addr", redisConfig.Addr()).Msg("redis connected")
	}

	// Load the classifier bundle. The API cannot serve predictions
	// without it.
	modelDir := os.Getenv("MODEL_DIR")
	engine := inference.NewEngine(inference.Config{Dir: modelDir, Logger: log})
	if err := engine.Load(); err != nil {
		log.Fatal().Err(err).Msg("failed to load model bundle")
	}
	log.Info().Msg("model bundle loaded")

	// External provider clients, tracked in a shared health registry.
	googleAPIKey := os.Getenv("GOOGLE_API_KEY")
	if googleAPIKey == "" {
		log.Warn().Msg("GOOGLE_API_KEY not set - geocoding and live conditions will fail")
	}
	providerRegistry := resilience.NewRegistry()

	geocodeService := geocode.NewService(geocode.ServiceConfig{
		Provider: googleplaces.NewClient(googleplaces.ClientConfig{
			APIKey:   googleAPIKey,
			Registry: providerRegistry,
			Logger:   log,
		}),
		Cache:  geocodeCache,
		Logger: log,
	})

	airQualityService := airquality.NewService(airquality.ServiceConfig{
		Provider: googleair.NewClient(googleair.ClientConfig{
			APIKey:   googleAPIKey,
			Registry: providerRegistry,
			Logger:   log,
		}),
		Logger: log,
	})

	// Admin token service
	tokenService := auth.NewJWTService(auth.JWTConfigFromEnv())

	// Initialize feature flags repository and service
	ffRepo := featureflags.NewPostgresRepository(pool)
	ffService := featureflags.NewService(featureflags.ServiceConfig{
		Repository: ffRepo,
		Logger:     log,
		CacheTTL:   1 * time.Minute,
	})
	log.Info().Msg("feature flags service initialized")

	// Prediction pipeline
	predictionRepo := prediction.NewPostgresRepository(pool)
	predictionService := prediction.NewService(prediction.ServiceConfig{
		Engine:     engine,
		Repository: predictionRepo,
		Autofill: prediction.NewOrchestrator(prediction.OrchestratorConfig{
			Geocoder: geocodeService,
			Fetcher:  airQualityService,
			Logger:   log,
		}),
		Flags:  ffService,
		Logger: log,
	})
	log.Info().Msg("prediction service initialized")

	// Live conditions
	conditionsRepo := conditions.NewPostgresRepository(pool)
	conditionsService := conditions.NewService(conditions.ServiceConfig{
		Geocoder:   geocodeService,
		Fetcher:    airQualityService,
		Engine:     engine,
		Repository: conditionsRepo,
		Flags:      ffService,
		Logger:     log,
	})
	log.Info().Msg("conditions service initialized")

	// Heatmap aggregation over both stores
	heatmapService := heatmap.NewService(heatmap.ServiceConfig{
		Conditions:  conditionsRepo,
		Predictions: predictionRepo,
		Logger:      log,
	})

	// Readiness and status probes
	subsystemProbes := map[string]handler.Probe{
		"cloud-sql": func(ctx context.Context) error { return pool.Ping(ctx) },
		"model": func(context.Context) error {
			if !engine.Loaded() {
				return errors.New("model bundle not loaded")
			}
			return nil
		},
	}
	if redisClient != nil {
		subsystemProbes["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	providerProbes := map[string]handler.Probe{
		googleair.ProviderName:    providerProbe(providerRegistry, googleair.ProviderName, googleAPIKey),
		googleplaces.ProviderName: providerProbe(providerRegistry, googleplaces.ProviderName, googleAPIKey),
	}

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:            Version,
		BuildTime:          BuildTime,
		Logger:             log,
		ServiceName:        serviceName,
		Metrics:            metrics,
		TokenService:       tokenService,
		FeatureFlagService: ffService,
		PredictionService:  predictionService,
		ConditionsService:  conditionsService,
		HeatmapService:     heatmapService,
		SubsystemProbes:    subsystemProbes,
		ProviderProbes:     providerProbes,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

// providerProbe reports a provider as failing when its API key is missing
// or its circuit breaker is open.
func providerProbe(registry *resilience.Registry, name, apiKey string) handler.Probe {
	return func(context.Context) error {
		if apiKey == "" {
			return errors.New("GOOGLE_API_KEY not configured")
		}
		health := registry.GetHealth(name)
		if health == nil {
			return fmt.Errorf("provider %s not registered", name)
		}
		if health.IsUnhealthy() {
			if health.LastError != "" {
				return fmt.Errorf("circuit open: %s", health.LastError)
			}
			return errors.New("circuit open")
		}
		return nil
	}
}
