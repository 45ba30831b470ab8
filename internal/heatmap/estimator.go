package heatmap

import (
	"math"
	"sort"
)

// Confidence grades an estimate by how close the contributing samples
// are to the query point.
type Confidence string

const (
	ConfidenceLow    Confidence = "LOW"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceHigh   Confidence = "HIGH"
)

// EstimatorConfig holds configuration for the inverse distance
// weighted estimator.
type EstimatorConfig struct {
	// MaxDistance is the maximum distance (in meters) to consider
	// samples. Samples beyond this distance are ignored. Default:
	// 200000 (200km).
	MaxDistance float64

	// MaxPoints is the maximum number of nearest samples to use.
	// Default: 8.
	MaxPoints int

	// Power is the power parameter for inverse distance weighting.
	// Higher values give more weight to closer samples. Default: 2.0.
	Power float64

	// HighConfidenceMaxDistance is the max nearest-sample distance
	// for HIGH confidence. Default: 10000 (10km).
	HighConfidenceMaxDistance float64

	// MediumConfidenceMaxDistance is the max nearest-sample distance
	// for MEDIUM confidence. Default: 50000 (50km).
	MediumConfidenceMaxDistance float64
}

// DefaultEstimatorConfig returns the default configuration.
func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		MaxDistance:                 200000,
		MaxPoints:                   8,
		Power:                       2.0,
		HighConfidenceMaxDistance:   10000,
		MediumConfidenceMaxDistance: 50000,
	}
}

// Estimate is the interpolated AQI at a query point.
type Estimate struct {
	Latitude        float64    `json:"latitude"`
	Longitude       float64    `json:"longitude"`
	AQI             float64    `json:"estimated_aqi"`
	Confidence      Confidence `json:"confidence"`
	PointsUsed      int        `json:"points_used"`
	NearestDistance float64    `json:"nearest_distance_m"`
}

// pointDistance pairs a sample with its distance from the query point.
type pointDistance struct {
	point    Point
	distance float64
}

// Estimator performs spatial interpolation of AQI samples.
type Estimator struct {
	config EstimatorConfig
}

// NewEstimator creates an Estimator, filling zero config fields with
// defaults.
func NewEstimator(config EstimatorConfig) *Estimator {
	def := DefaultEstimatorConfig()
	if config.MaxDistance <= 0 {
		config.MaxDistance = def.MaxDistance
	}
	if config.MaxPoints <= 0 {
		config.MaxPoints = def.MaxPoints
	}
	if config.Power <= 0 {
		config.Power = def.Power
	}
	if config.HighConfidenceMaxDistance <= 0 {
		config.HighConfidenceMaxDistance = def.HighConfidenceMaxDistance
	}
	if config.MediumConfidenceMaxDistance <= 0 {
		config.MediumConfidenceMaxDistance = def.MediumConfidenceMaxDistance
	}
	return &Estimator{config: config}
}

// Estimate interpolates the AQI at the given location from the sample
// set.
func (e *Estimator) Estimate(lat, lon float64, points []Point) (*Estimate, error) {
	if len(points) == 0 {
		return nil, ErrNoPoints
	}

	var candidates []pointDistance
	for _, p := range points {
		dist := haversineDistance(lat, lon, p.Latitude, p.Longitude)
		if dist <= e.config.MaxDistance {
			candidates = append(candidates, pointDistance{point: p, distance: dist})
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoPointsInRange
	}

	sort.Slice(candidates, func(a, b int) bool {
		return candidates[a].distance < candidates[b].distance
	})
	if len(candidates) > e.config.MaxPoints {
		candidates = candidates[:e.config.MaxPoints]
	}

	var totalWeight, weightedSum float64
	for _, c := range candidates {
		var weight float64
		if c.distance < 1 {
			// On top of a sample - use its value directly
			weight = 1e10
		} else {
			weight = 1.0 / math.Pow(c.distance, e.config.Power)
		}
		weightedSum += c.point.AQI * weight
		totalWeight += weight
	}

	nearest := candidates[0].distance
	return &Estimate{
		Latitude:        lat,
		Longitude:       lon,
		AQI:             weightedSum / totalWeight,
		Confidence:      e.confidence(nearest, len(candidates)),
		PointsUsed:      len(candidates),
		NearestDistance: nearest,
	}, nil
}

// confidence grades an estimate by nearest-sample distance and sample
// count.
func (e *Estimator) confidence(nearestDistance float64, pointCount int) Confidence {
	if nearestDistance <= e.config.HighConfidenceMaxDistance && pointCount >= 2 {
		return ConfidenceHigh
	}
	if nearestDistance <= e.config.MediumConfidenceMaxDistance && pointCount >= 1 {
		return ConfidenceMedium
	}
	return ConfidenceLow
}

// haversineDistance calculates the distance between two points in
// meters using the Haversine formula.
func haversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371000 // meters

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}
