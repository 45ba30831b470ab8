// Package handler provides HTTP handlers for the AQISense API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/aqisense/aqisense/internal/api/models"
	"github.com/aqisense/aqisense/internal/api/response"
	"github.com/aqisense/aqisense/internal/inference"
	"github.com/aqisense/aqisense/internal/prediction"
)

// PredictionsHandler handles prediction endpoints.
type PredictionsHandler struct {
	service *prediction.Service
}

// NewPredictionsHandler creates a new PredictionsHandler.
func NewPredictionsHandler(service *prediction.Service) *PredictionsHandler {
	return &PredictionsHandler{service: service}
}

// CreatePrediction handles POST /v1/predictions.
func (h *PredictionsHandler) CreatePrediction(w http.ResponseWriter, r *http.Request) {
	var req models.PredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}

	stored, err := h.service.Predict(r.Context(), req.Input())
	if err != nil {
		switch {
		case errors.Is(err, prediction.ErrValidation):
			response.BadRequest(w, r, err.Error(), nil)
		case errors.Is(err, inference.ErrNotLoaded), errors.Is(err, inference.ErrSchemaMismatch):
			response.ServiceUnavailable(w, r, "prediction model is not available")
		case errors.Is(err, prediction.ErrPersistence):
			response.ServiceUnavailable(w, r, "prediction store is not available")
		default:
			response.InternalError(w, r, "prediction failed")
		}
		return
	}

	response.Created(w, r, "/v1/predictions/history?date="+stored.Date, stored)
}

// GetHistory handles GET /v1/predictions/history.
func (h *PredictionsHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := 10
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(w, r, "limit must be an integer", nil)
			return
		}
		limit = parsed
	}
	skip := 0
	if raw := query.Get("skip"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(w, r, "skip must be an integer", nil)
			return
		}
		skip = parsed
	}

	page, err := h.service.History(r.Context(), query.Get("date"), limit, skip)
	if err != nil {
		switch {
		case errors.Is(err, prediction.ErrValidation):
			response.BadRequest(w, r, err.Error(), nil)
		default:
			response.ServiceUnavailable(w, r, "prediction store is not available")
		}
		return
	}

	items := page.Items
	if items == nil {
		items = []*prediction.StoredPrediction{}
	}
	response.JSON(w, r, http.StatusOK, models.PredictionHistory{
		Predictions: items,
		TotalCount:  page.TotalCount,
		Limit:       page.Limit,
		Skip:        page.Skip,
	})
}
