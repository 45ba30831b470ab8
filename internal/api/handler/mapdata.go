package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/aqisense/aqisense/internal/api/models"
	"github.com/aqisense/aqisense/internal/api/response"
	"github.com/aqisense/aqisense/internal/heatmap"
)

// MapDataFlagGate reports whether point estimation is enabled.
// A nil gate means estimation is always on.
type MapDataFlagGate interface {
	HeatmapEstimateEnabled(ctx context.Context) bool
}

// MapDataHandler serves aggregated heatmap data.
type MapDataHandler struct {
	service *heatmap.Service
	gate    MapDataFlagGate
}

// NewMapDataHandler creates a new MapDataHandler.
func NewMapDataHandler(service *heatmap.Service, gate MapDataFlagGate) *MapDataHandler {
	return &MapDataHandler{service: service, gate: gate}
}

// GetAll handles GET /v1/map-data/all.
func (h *MapDataHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	points, err := h.service.AllPoints(r.Context())
	if err != nil {
		response.ServiceUnavailable(w, r, "map data store is not available")
		return
	}
	if len(points) == 0 {
		response.NotFound(w, r, "no map data available from any source")
		return
	}

	response.JSON(w, r, http.StatusOK, models.MapData{
		Points: points,
		Count:  len(points),
	})
}

// GetEstimate handles GET /v1/map-data/estimate.
func (h *MapDataHandler) GetEstimate(w http.ResponseWriter, r *http.Request) {
	if h.gate != nil && !h.gate.HeatmapEstimateEnabled(r.Context()) {
		response.NotFound(w, r, "point estimation is not available")
		return
	}

	lat, err := parseCoordParam(r, "lat", -90, 90)
	if err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}
	lon, err := parseCoordParam(r, "lon", -180, 180)
	if err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	est, err := h.service.EstimateAt(r.Context(), lat, lon)
	if err != nil {
		switch {
		case errors.Is(err, heatmap.ErrNoPoints), errors.Is(err, heatmap.ErrNoPointsInRange):
			response.NotFound(w, r, "no measurements near this location")
		default:
			response.ServiceUnavailable(w, r, "map data store is not available")
		}
		return
	}

	response.JSON(w, r, http.StatusOK, est)
}

func parseCoordParam(r *http.Request, name string, min, max float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, errors.New(name + " query parameter is required")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.New(name + " must be a number")
	}
	if v < min || v > max {
		return 0, errors.New(name + " is out of range")
	}
	return v, nil
}
