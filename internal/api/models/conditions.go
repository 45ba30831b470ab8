package models

// ConditionsLookupRequest is the body of POST /v1/conditions/lookup.
type ConditionsLookupRequest struct {
	Country      string `json:"country"`
	City         string `json:"city"`
	LanguageCode string `json:"language_code,omitempty"`
}

// CurrentConditionsRequest is the body of POST /v1/conditions/current.
// Coordinates are pointers so that a missing field can be told apart
// from an explicit zero.
type CurrentConditionsRequest struct {
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	LanguageCode string   `json:"language_code,omitempty"`
}
