package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aqisense/aqisense/internal/airquality"
	"github.com/aqisense/aqisense/internal/api/models"
	"github.com/aqisense/aqisense/internal/api/response"
	"github.com/aqisense/aqisense/internal/conditions"
	"github.com/aqisense/aqisense/internal/geocode"
)

// ConditionsHandler handles live conditions endpoints.
type ConditionsHandler struct {
	service *conditions.Service
}

// NewConditionsHandler creates a new ConditionsHandler.
func NewConditionsHandler(service *conditions.Service) *ConditionsHandler {
	return &ConditionsHandler{service: service}
}

// Lookup handles POST /v1/conditions/lookup.
func (h *ConditionsHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	var req models.ConditionsLookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}

	snap, err := h.service.Lookup(r.Context(), req.Country, req.City, req.LanguageCode)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, snap)
}

// Current handles POST /v1/conditions/current.
func (h *ConditionsHandler) Current(w http.ResponseWriter, r *http.Request) {
	var req models.CurrentConditionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}

	if req.Latitude == nil || req.Longitude == nil {
		response.BadRequest(w, r, "latitude and longitude are required", []models.FieldError{
			{Field: "latitude", Message: "required"},
			{Field: "longitude", Message: "required"},
		})
		return
	}
	if *req.Latitude < -90 || *req.Latitude > 90 || *req.Longitude < -180 || *req.Longitude > 180 {
		response.BadRequest(w, r, "coordinates out of range", nil)
		return
	}

	snap, err := h.service.Current(r.Context(), *req.Latitude, *req.Longitude, req.LanguageCode)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, snap)
}

func (h *ConditionsHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, conditions.ErrValidation):
		response.BadRequest(w, r, "country and city are required", nil)
	case errors.Is(err, geocode.ErrNoResults):
		response.NotFound(w, r, "location could not be resolved")
	case errors.Is(err, airquality.ErrNoData):
		response.NotFound(w, r, "no air quality data for this location")
	default:
		response.ServiceUnavailable(w, r, "air quality provider is not available")
	}
}
