package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqisense/aqisense/internal/airquality"
	"github.com/aqisense/aqisense/internal/api"
	"github.com/aqisense/aqisense/internal/api/handler"
	"github.com/aqisense/aqisense/internal/api/models"
	"github.com/aqisense/aqisense/internal/auth"
	"github.com/aqisense/aqisense/internal/conditions"
	"github.com/aqisense/aqisense/internal/featureflags"
	"github.com/aqisense/aqisense/internal/geocode"
	"github.com/aqisense/aqisense/internal/heatmap"
	"github.com/aqisense/aqisense/internal/inference"
	"github.com/aqisense/aqisense/internal/prediction"
)

const testModelJSON = `{
  "columns": ["pm25","pm10","o3","no2","so2","co","dayofweek","is_weekend","total_pollutants","pm25_pm10_ratio","country_encoded","loc_encoded"],
  "num_class": 6,
  "base_score": 0.5,
  "trees": [
    {"class":0,"nodes":[{"feature":0,"threshold":50,"left":1,"right":2},{"feature":-1,"value":2},{"feature":-1,"value":-1}]},
    {"class":1,"nodes":[{"feature":0,"threshold":50,"left":1,"right":2},{"feature":-1,"value":-1},{"feature":-1,"value":2}]},
    {"class":2,"nodes":[{"feature":-1,"value":0}]},
    {"class":3,"nodes":[{"feature":-1,"value":0}]},
    {"class":4,"nodes":[{"feature":-1,"value":0}]},
    {"class":5,"nodes":[{"feature":-1,"value":0}]}
  ]
}`

func testEngine(t *testing.T) *inference.Engine {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"model.json":      testModelJSON,
		"le_country.json": `{"classes":["Indonesia","Netherlands"]}`,
		"le_loc.json":     `{"classes":["Amsterdam","Jakarta"]}`,
		"le_cat.json":     `{"classes":["Good","Hazardous","Moderate","Unhealthy","Unhealthy for Sensitive Groups","Very Unhealthy"]}`,
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}

	eng := inference.NewEngine(inference.Config{Dir: dir, Logger: zerolog.New(io.Discard)})
	require.NoError(t, eng.Load())
	return eng
}

type stubGeocoder struct{}

func (stubGeocoder) Resolve(_ context.Context, country, city string) (*geocode.Location, error) {
	return &geocode.Location{
		Country:   country,
		City:      city,
		Latitude:  -6.2,
		Longitude: 106.8,
		Source:    "google_geocoding_api",
	}, nil
}

func (stubGeocoder) ReverseResolve(_ context.Context, lat, lon float64) (*geocode.Location, error) {
	return &geocode.Location{
		Country:   "Indonesia",
		City:      "Jakarta",
		Latitude:  lat,
		Longitude: lon,
		Source:    "google_geocoding_api",
	}, nil
}

type stubFetcher struct{}

func (stubFetcher) Current(_ context.Context, lat, lon float64, _ string) (*airquality.Reading, error) {
	v := 42.0
	return &airquality.Reading{
		FetchedAt: time.Now(),
		Country:   "Indonesia",
		Latitude:  lat,
		Longitude: lon,
		Indexes: []airquality.Index{
			{Code: "uaqi", DisplayName: "Universal AQI", AQI: 55, Category: "Moderate air quality"},
		},
		Pollutants: []airquality.PollutantDetail{
			{Code: "pm25", Concentration: airquality.Concentration{Value: &v, Units: "µg/m³"}},
		},
		Source: "Google Air Quality API",
	}, nil
}

func testTokenService() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "https://api.aqisense.dev",
		Audience:   "aqisense-admin",
	})
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := zerolog.New(io.Discard)
	engine := testEngine(t)

	flagService := featureflags.NewService(featureflags.ServiceConfig{
		Repository: featureflags.NewInMemoryRepository(),
		Logger:     logger,
	})

	predictionRepo := prediction.NewMemoryRepository()
	predictionService := prediction.NewService(prediction.ServiceConfig{
		Engine:     engine,
		Repository: predictionRepo,
		Flags:      flagService,
		Logger:     logger,
	})

	conditionsRepo := conditions.NewMemoryRepository()
	conditionsService := conditions.NewService(conditions.ServiceConfig{
		Geocoder:   stubGeocoder{},
		Fetcher:    stubFetcher{},
		Engine:     engine,
		Repository: conditionsRepo,
		Flags:      flagService,
		Logger:     logger,
	})

	heatmapService := heatmap.NewService(heatmap.ServiceConfig{
		Conditions:  conditionsRepo,
		Predictions: predictionRepo,
		Logger:      logger,
	})

	return api.NewRouter(api.RouterConfig{
		Version:            "test",
		BuildTime:          "2026-01-01T00:00:00Z",
		Logger:             logger,
		TokenService:       testTokenService(),
		FeatureFlagService: flagService,
		PredictionService:  predictionService,
		ConditionsService:  conditionsService,
		HeatmapService:     heatmapService,
		SubsystemProbes: map[string]handler.Probe{
			"model": func(context.Context) error { return nil },
		},
		ProviderProbes: map[string]handler.Probe{
			"google-air-quality": func(context.Context) error { return nil },
		},
	})
}

// addAdminHeader adds a valid admin Bearer token to the request.
func addAdminHeader(t *testing.T, req *http.Request) {
	t.Helper()
	token, _, err := testTokenService().GenerateAdminToken("ops@aqisense.dev")
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
}

func TestRouter_HealthCheck(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	var health models.Health
	err := json.Unmarshal(w.Body.Bytes(), &health)
	require.NoError(t, err)

	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.NotEmpty(t, health.Time)
}

func TestRouter_ReadinessCheck(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/ready", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var health models.Health
	err := json.Unmarshal(w.Body.Bytes(), &health)
	require.NoError(t, err)

	assert.Equal(t, models.HealthStatusOK, health.Status)
}

func TestRouter_SystemStatus(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody)
	addAdminHeader(t, req)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var status models.SystemStatus
	err := json.Unmarshal(w.Body.Bytes(), &status)
	require.NoError(t, err)

	assert.Equal(t, models.HealthStatusOK, status.Status)
	assert.NotEmpty(t, status.Subsystems)
	assert.NotEmpty(t, status.Providers)
}

func TestRouter_SystemStatus_RequiresAdmin(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
}

func TestRouter_CreatePrediction(t *testing.T) {
	router := newTestRouter(t)

	input := models.PredictionRequest{
		Date:    "2026-03-02",
		Country: "Indonesia",
		Loc:     "Jakarta",
		PM25:    fptr(12.5),
	}
	body, _ := json.Marshal(input)

	req := httptest.NewRequest(http.MethodPost, "/v1/predictions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, w.Header().Get("Location"))

	var stored prediction.StoredPrediction
	err := json.Unmarshal(w.Body.Bytes(), &stored)
	require.NoError(t, err)

	assert.NotEmpty(t, stored.ID)
	assert.Contains(t, stored.ID, "prd_")
	assert.Equal(t, "2026-03-02", stored.Date)
	assert.NotEmpty(t, stored.Category)
	assert.NotEmpty(t, stored.Probabilities)
}

func TestRouter_CreatePrediction_ValidationError(t *testing.T) {
	router := newTestRouter(t)

	input := models.PredictionRequest{
		Date:    "02-03-2026",
		Country: "Indonesia",
		Loc:     "Jakarta",
	}
	body, _ := json.Marshal(input)

	req := httptest.NewRequest(http.MethodPost, "/v1/predictions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))

	var problem models.Problem
	err := json.Unmarshal(w.Body.Bytes(), &problem)
	require.NoError(t, err)

	assert.Equal(t, models.ProblemTypeValidation, problem.Type)
	assert.NotEmpty(t, problem.TraceID)
}

func TestRouter_GetHistory(t *testing.T) {
	router := newTestRouter(t)

	// Seed one prediction through the API
	input := models.PredictionRequest{
		Date:    "2026-03-02",
		Country: "Indonesia",
		Loc:     "Jakarta",
	}
	body, _ := json.Marshal(input)
	seed := httptest.NewRequest(http.MethodPost, "/v1/predictions", bytes.NewReader(body))
	seed.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(httptest.NewRecorder(), seed)

	req := httptest.NewRequest(http.MethodGet, "/v1/predictions/history?limit=5", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var page models.PredictionHistory
	err := json.Unmarshal(w.Body.Bytes(), &page)
	require.NoError(t, err)

	assert.Equal(t, 1, page.TotalCount)
	assert.Equal(t, 5, page.Limit)
	require.Len(t, page.Predictions, 1)
	assert.Equal(t, "2026-03-02", page.Predictions[0].Date)
	assert.Contains(t, w.Body.String(), `"predictions"`)
}

func TestRouter_ConditionsLookup(t *testing.T) {
	router := newTestRouter(t)

	body, _ := json.Marshal(models.ConditionsLookupRequest{
		Country: "Indonesia",
		City:    "Jakarta",
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/conditions/lookup", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var snap conditions.Snapshot
	err := json.Unmarshal(w.Body.Bytes(), &snap)
	require.NoError(t, err)

	assert.Contains(t, snap.ID, "cnd_")
	assert.Equal(t, "Jakarta", snap.Location.City)
	assert.NotNil(t, snap.Reading)
	assert.NotNil(t, snap.Forecast)
}

func TestRouter_ConditionsCurrent(t *testing.T) {
	router := newTestRouter(t)

	body, _ := json.Marshal(models.CurrentConditionsRequest{
		Latitude:  fptr(-6.2),
		Longitude: fptr(106.8),
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/conditions/current", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var snap conditions.Snapshot
	err := json.Unmarshal(w.Body.Bytes(), &snap)
	require.NoError(t, err)

	assert.Equal(t, -6.2, snap.Location.Latitude)
	assert.Equal(t, 106.8, snap.Location.Longitude)
}

func TestRouter_ConditionsCurrent_MissingCoords(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/conditions/current", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_MapDataAll(t *testing.T) {
	router := newTestRouter(t)

	// Seed a snapshot so the map has at least one point.
	body, _ := json.Marshal(models.ConditionsLookupRequest{Country: "Indonesia", City: "Jakarta"})
	seed := httptest.NewRequest(http.MethodPost, "/v1/conditions/lookup", bytes.NewReader(body))
	seed.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(httptest.NewRecorder(), seed)

	req := httptest.NewRequest(http.MethodGet, "/v1/map-data/all", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var data models.MapData
	err := json.Unmarshal(w.Body.Bytes(), &data)
	require.NoError(t, err)

	assert.NotEmpty(t, data.Points)
	assert.Equal(t, len(data.Points), data.Count)
}

func TestRouter_MapDataAll_EmptyStores(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/map-data/all", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
}

func TestRouter_MapDataEstimate(t *testing.T) {
	router := newTestRouter(t)

	body, _ := json.Marshal(models.ConditionsLookupRequest{Country: "Indonesia", City: "Jakarta"})
	seed := httptest.NewRequest(http.MethodPost, "/v1/conditions/lookup", bytes.NewReader(body))
	seed.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(httptest.NewRecorder(), seed)

	req := httptest.NewRequest(http.MethodGet, "/v1/map-data/estimate?lat=-6.21&lon=106.81", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var est heatmap.Estimate
	err := json.Unmarshal(w.Body.Bytes(), &est)
	require.NoError(t, err)

	assert.NotZero(t, est.AQI)
	assert.NotZero(t, est.PointsUsed)
}

func TestRouter_MapDataEstimate_MissingParams(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/map-data/estimate", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_GetCategories(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/metadata/categories", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var list models.CategoryList
	err := json.Unmarshal(w.Body.Bytes(), &list)
	require.NoError(t, err)

	require.Len(t, list.Items, 6)
	assert.Equal(t, "Good", list.Items[0].Category)
	assert.NotEmpty(t, list.Items[0].Summary)
	assert.Equal(t, 25.0, list.Items[0].Midpoint)
	assert.Equal(t, 350.0, list.Items[5].Midpoint)
}

func TestRouter_GetPollutants(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/metadata/pollutants", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var list models.PollutantList
	err := json.Unmarshal(w.Body.Bytes(), &list)
	require.NoError(t, err)

	require.Len(t, list.Items, 6)
	assert.Equal(t, "pm25", list.Items[0].Code)
	assert.Equal(t, 25.0, list.Items[0].DefaultValue)
}

func TestRouter_ListFeatureFlags(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/feature-flags", http.NoBody)
	addAdminHeader(t, req)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var list featureflags.FlagList
	err := json.Unmarshal(w.Body.Bytes(), &list)
	require.NoError(t, err)

	assert.NotEmpty(t, list.Items)
}

func TestRouter_FeatureFlags_RequiresAdmin(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/feature-flags", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_UpsertFeatureFlags(t *testing.T) {
	router := newTestRouter(t)

	body, _ := json.Marshal(featureflags.FlagUpdateRequest{
		Updates: []featureflags.FlagUpdate{
			{Key: featureflags.FlagAutofillEnabled, Value: false},
		},
		Reason: "load shedding",
	})

	req := httptest.NewRequest(http.MethodPut, "/v1/admin/feature-flags", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	addAdminHeader(t, req)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRouter_InvalidateFlagCache(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/feature-flags/invalidate", http.NoBody)
	addAdminHeader(t, req)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRouter_RequestID_Generated(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	requestID := w.Header().Get("X-Request-Id")
	assert.NotEmpty(t, requestID)
	assert.Contains(t, requestID, "req_")
}

func TestRouter_RequestID_Preserved(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	req.Header.Set("X-Request-Id", "custom_request_id")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, "custom_request_id", w.Header().Get("X-Request-Id"))
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/nonexistent", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func fptr(v float64) *float64 {
	return &v
}
