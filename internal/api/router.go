// Package api provides the HTTP API for AQISense.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/aqisense/aqisense/internal/api/handler"
	"github.com/aqisense/aqisense/internal/api/middleware"
	"github.com/aqisense/aqisense/internal/auth"
	"github.com/aqisense/aqisense/internal/conditions"
	"github.com/aqisense/aqisense/internal/featureflags"
	"github.com/aqisense/aqisense/internal/heatmap"
	"github.com/aqisense/aqisense/internal/prediction"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version            string
	BuildTime          string
	Logger             zerolog.Logger
	ServiceName        string
	Metrics            *middleware.Metrics
	TokenService       *auth.JWTService
	FeatureFlagService *featureflags.Service
	PredictionService  *prediction.Service
	ConditionsService  *conditions.Service
	HeatmapService     *heatmap.Service

	// SubsystemProbes and ProviderProbes back the readiness and
	// status endpoints. Keys name the dependency (e.g. "cloud-sql",
	// "redis", "model").
	SubsystemProbes map[string]handler.Probe
	ProviderProbes  map[string]handler.Probe
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "aqisense-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)      // JSON content type

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.SubsystemProbes, cfg.ProviderProbes)
	predictionsHandler := handler.NewPredictionsHandler(cfg.PredictionService)
	conditionsHandler := handler.NewConditionsHandler(cfg.ConditionsService)
	mapDataHandler := handler.NewMapDataHandler(cfg.HeatmapService, flagGate(cfg.FeatureFlagService))
	metadataHandler := handler.NewMetadataHandler()
	featureFlagsHandler := handler.NewFeatureFlagsHandler(cfg.FeatureFlagService)

	// Admin auth middleware
	adminAuth := middleware.AdminAuth(cfg.TokenService)

	// Rate limits per endpoint category
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			// Status endpoint is admin-only
			r.With(adminAuth).Get("/status", opsHandler.SystemStatus)
		})

		// Prediction endpoints - inference is expensive
		r.Route("/predictions", func(r chi.Router) {
			r.With(expensiveRateLimit).Post("/", predictionsHandler.CreatePrediction)
			r.With(standardRateLimit).Get("/history", predictionsHandler.GetHistory)
		})

		// Live conditions endpoints - call external providers
		r.Route("/conditions", func(r chi.Router) {
			r.Use(expensiveRateLimit)
			r.Post("/lookup", conditionsHandler.Lookup)
			r.Post("/current", conditionsHandler.Current)
		})

		// Heatmap endpoints
		r.Route("/map-data", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/all", mapDataHandler.GetAll)
			r.Get("/estimate", mapDataHandler.GetEstimate)
		})

		// Metadata endpoints (public, static)
		r.Route("/metadata", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/categories", metadataHandler.GetCategories)
			r.Get("/pollutants", metadataHandler.GetPollutants)
		})

		// Admin endpoints - rate limited per token subject
		r.Route("/admin", func(r chi.Router) {
			r.Use(adminAuth)
			r.Use(middleware.RateLimitBySubject(middleware.StandardRateLimit))

			r.Route("/feature-flags", func(r chi.Router) {
				r.Get("/", featureFlagsHandler.ListFeatureFlags)
				r.Put("/", featureFlagsHandler.UpsertFeatureFlags)
				r.Post("/invalidate", featureFlagsHandler.InvalidateCache)
			})
		})
	})

	return r
}

// flagGate narrows the feature flag service to the heatmap gate
// interface, keeping a nil service as a nil gate.
func flagGate(svc *featureflags.Service) handler.MapDataFlagGate {
	if svc == nil {
		return nil
	}
	return svc
}
