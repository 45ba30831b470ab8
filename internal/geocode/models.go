// Package geocode resolves place names to coordinates and back, with a
// TTL cache in front of the live provider.
package geocode

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Geocoding errors.
var (
	ErrNoResults           = errors.New("no geocoding results")
	ErrProviderUnavailable = errors.New("geocoding provider unavailable")
)

// DefaultCacheTTL is how long resolved locations stay cached.
const DefaultCacheTTL = 86400 * time.Second

// Location is a resolved place. Geocoded locations always carry
// coordinates.
type Location struct {
	Country          string  `json:"country"`
	City             string  `json:"city"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
	PlaceID          string  `json:"place_id,omitempty"`

	// Source identifies where the resolution came from, such as
	// "google_places_api" or "google_geocoding_api (cached)".
	Source string `json:"source,omitempty"`
}

// ForwardKey derives the cache key for a country/city pair.
func ForwardKey(country, city string) string {
	return "geocode:" + normalizePart(country) + ":" + normalizePart(city)
}

// ReverseKey derives the cache key for a coordinate pair.
func ReverseKey(lat, lon float64) string {
	return fmt.Sprintf("revgeo:%.6f:%.6f", lat, lon)
}

func normalizePart(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "_")
}
