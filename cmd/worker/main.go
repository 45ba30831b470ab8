// Package main provides the entrypoint for the AQISense conditions
// refresh worker.
package main

import (
	"context"
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
	"github.com/aqisense/aqisense/internal/cache"
	"github.com/aqisense/aqisense/internal/conditions"
	"github.com/aqisense/aqisense/internal/database"
	"github.com/aqisense/aqisense/internal/featureflags"
	"github.com/aqisense/aqisense/internal/geocode"
	"github.com/aqisense/aqisense/internal/geocode/googleplaces"
	"github.com/aqisense/aqisense/internal/inference"
	"github.com/aqisense/aqisense/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "aqisense-worker"

	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting AQISense worker")

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Str("database", dbConfig.Database).
		Msg("database connected")

	// Redis geocode cache is optional here too; the worker mostly
	// hits the same handful of cities, so the cache saves quota.
	var geocodeCache geocode.CacheStore
	redisClient, err := cache.Connect(ctx, cache.ConfigFromEnv())
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, geocoding runs uncached")
	} else {
		defer redisClient.Close()
		geocodeCache = geocode.NewRedisCache(redisClient, log)
	}

	// The worker forecasts refreshed conditions, so it loads the same
	// model bundle as the API.
	engine := inference.NewEngine(inference.Config{Dir: os.Getenv("MODEL_DIR"), Logger: log})
	if err := engine.Load(); err != nil {
		log.Fatal().Err(err).Msg("failed to load model bundle")
	}

	googleAPIKey := os.Getenv("GOOGLE_API_KEY")
	if googleAPIKey == "" {
		log.Warn().Msg("GOOGLE_API_KEY not set - refreshes will fail")
	}

	geocodeService := geocode.NewService(geocode.ServiceConfig{
		Provider: googleplaces.NewClient(googleplaces.ClientConfig{
			APIKey: googleAPIKey,
			Logger: log,
		}),
		Cache:  geocodeCache,
		Logger: log,
	})

	airQualityService := airquality.NewService(airquality.ServiceConfig{
		Provider: googleair.NewClient(googleair.ClientConfig{
			APIKey: googleAPIKey,
			Logger: log,
		}),
		Logger: log,
	})

	ffService := featureflags.NewService(featureflags.ServiceConfig{
		Repository: featureflags.NewPostgresRepository(pool),
		Logger:     log,
		CacheTTL:   1 * time.Minute,
	})

	conditionsService := conditions.NewService(conditions.ServiceConfig{
		Geocoder:   geocodeService,
		Fetcher:    airQualityService,
		Engine:     engine,
		Repository: conditions.NewPostgresRepository(pool),
		Flags:      ffService,
		Logger:     log,
	})

	// Pub/Sub publisher is optional; without a project the worker just
	// refreshes silently.
	var publisher worker.EventPublisher
	if projectID := os.Getenv("PUBSUB_PROJECT_ID"); projectID != "" {
		topic := os.Getenv("PUBSUB_TOPIC_CONDITIONS")
		if topic == "" {
			topic = "conditions-refreshed"
		}
		pub, err := worker.NewPublisher(ctx, worker.PublisherConfig{
			ProjectID: projectID,
			Topic:     topic,
			Logger:    log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub publisher")
		}
		defer pub.Close()
		publisher = pub
		log.Info().Str("topic", topic).Msg("pubsub publisher initialized")
	}

	refreshConfig := worker.ConfigFromEnv()
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:     refreshConfig,
		Conditions: conditionsService,
		Publisher:  publisher,
		Logger:     log,
	})

	// Health endpoint for Cloud Run
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","version":"%s"}`, Version)
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("health server error")
		}
	}()

	go func() {
		log.Info().
			Int("cities", len(refreshConfig.Cities)).
			Dur("interval", refreshConfig.Interval).
			Msg("refresh loop started")
		job.Loop(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
