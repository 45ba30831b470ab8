package handler

import (
	"net/http"

	"github.com/aqisense/aqisense/internal/api/models"
	"github.com/aqisense/aqisense/internal/api/response"
	"github.com/aqisense/aqisense/internal/heatmap"
	"github.com/aqisense/aqisense/internal/inference"
)

// MetadataHandler serves static model metadata.
type MetadataHandler struct{}

// NewMetadataHandler creates a new MetadataHandler.
func NewMetadataHandler() *MetadataHandler {
	return &MetadataHandler{}
}

// GetCategories handles GET /v1/metadata/categories.
func (h *MetadataHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	names := inference.Categories()
	items := make([]models.CategoryInfo, 0, len(names))
	for _, name := range names {
		info := models.CategoryInfo{
			Category: name,
			Summary:  inference.SummaryMessage(name),
		}
		if mid, ok := heatmap.CategoryMidpoint(name); ok {
			info.Midpoint = mid
		}
		items = append(items, info)
	}

	response.JSON(w, r, http.StatusOK, models.CategoryList{Items: items})
}

// GetPollutants handles GET /v1/metadata/pollutants.
func (h *MetadataHandler) GetPollutants(w http.ResponseWriter, r *http.Request) {
	codes := inference.PollutantCodes()
	items := make([]models.PollutantInfo, 0, len(codes))
	for _, code := range codes {
		info := models.PollutantInfo{Code: code}
		if mean, ok := inference.DefaultMean(code); ok {
			info.DefaultValue = mean
		}
		if min, max, ok := inference.PhysicalRange(code); ok {
			info.Min = min
			info.Max = max
		}
		items = append(items, info)
	}

	response.JSON(w, r, http.StatusOK, models.PollutantList{Items: items})
}
