package models

import (
	"github.com/aqisense/aqisense/internal/heatmap"
)

// MapData is the response of GET /v1/map-data/all.
type MapData struct {
	Points []heatmap.Point `json:"points"`
	Count  int             `json:"count"`
}
