package models

// CategoryInfo describes one predictable AQI category. Midpoint is the
// representative AQI the heatmap renders for the category.
type CategoryInfo struct {
	Category string  `json:"category"`
	Summary  string  `json:"summary"`
	Midpoint float64 `json:"midpoint"`
}

// CategoryList is the response of GET /v1/metadata/categories.
type CategoryList struct {
	Items []CategoryInfo `json:"items"`
}

// PollutantInfo describes one tracked pollutant and the input bounds
// the classifier accepts for it.
type PollutantInfo struct {
	Code         string  `json:"code"`
	DefaultValue float64 `json:"default_value"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
}

// PollutantList is the response of GET /v1/metadata/pollutants.
type PollutantList struct {
	Items []PollutantInfo `json:"items"`
}
