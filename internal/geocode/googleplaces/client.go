// Package googleplaces implements geocoding against the Google Places
// and Geocoding APIs.
package googleplaces

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/aqisense/aqisense/internal/geocode"
	"github.com/aqisense/aqisense/internal/provider/resilience"
)

const (
	// ProviderName identifies this client in the provider registry.
	ProviderName = "google-places"

	// SourceForward labels locations resolved through the Places API.
	SourceForward = "google_places_api"

	// SourceReverse labels locations resolved through the Geocoding API.
	SourceReverse = "google_geocoding_api"

	// DefaultPlacesURL is the Places text search endpoint.
	DefaultPlacesURL = "https://places.googleapis.com/v1/places:searchText"

	// DefaultGeocodingURL is the reverse geocoding endpoint.
	DefaultGeocodingURL = "https://maps.googleapis.com/maps/api/geocode/json"

	placesFieldMask = "places.id,places.displayName,places.formattedAddress,places.location,places.addressComponents"
)

// ClientConfig holds configuration for the Google geocoding client.
type ClientConfig struct {
	// APIKey is the Google API key (required).
	APIKey string

	// PlacesURL overrides the Places endpoint (optional).
	PlacesURL string

	// GeocodingURL overrides the Geocoding endpoint (optional).
	GeocodingURL string

	// HTTPClient is the HTTP client to use (must implement HTTPDoer).
	// If nil, a default resilient client will be created.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the Google Places and Geocoding APIs.
type Client struct {
	apiKey       string
	placesURL    string
	geocodingURL string
	httpClient   HTTPDoer
	logger       zerolog.Logger
}

// Compile-time check that Client implements geocode.Provider.
var _ geocode.Provider = (*Client)(nil)

// NewClient creates a new Google geocoding client.
func NewClient(cfg ClientConfig) *Client {
	placesURL := cfg.PlacesURL
	if placesURL == "" {
		placesURL = DefaultPlacesURL
	}

	geocodingURL := cfg.GeocodingURL
	if geocodingURL == "" {
		geocodingURL = DefaultGeocodingURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:            ProviderName,
			Timeout:         timeout,
			MaxRetries:      3,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Registry:        cfg.Registry,
		})
	}

	return &Client{
		apiKey:       cfg.APIKey,
		placesURL:    placesURL,
		geocodingURL: geocodingURL,
		httpClient:   httpClient,
		logger:       cfg.Logger,
	}
}

// Geocode resolves a country/city pair through the Places text search.
func (c *Client) Geocode(ctx context.Context, country, city string) (*geocode.Location, error) {
	query := fmt.Sprintf("%s, %s", city, country)

	body, err := json.Marshal(map[string]any{
		"textQuery":      query,
		"languageCode":   "en",
		"maxResultCount": 1,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.placesURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", placesFieldMask)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var placesResp searchTextResponse
	if err := json.NewDecoder(resp.Body).Decode(&placesResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(placesResp.Places) == 0 {
		c.logger.Warn().Str("query", query).Msg("no places found")
		return nil, geocode.ErrNoResults
	}

	place := placesResp.Places[0]
	if place.Location == nil {
		c.logger.Warn().Str("query", query).Msg("place has no coordinates")
		return nil, geocode.ErrNoResults
	}

	parsedCity, parsedCountry := parseComponents(place.AddressComponents)

	formatted := place.FormattedAddress
	if formatted == "" {
		formatted = query
	}
	if parsedCity == "" {
		parsedCity = city
	}
	if parsedCountry == "" {
		parsedCountry = country
	}

	return &geocode.Location{
		Country:          parsedCountry,
		City:             parsedCity,
		Latitude:         place.Location.Latitude,
		Longitude:        place.Location.Longitude,
		FormattedAddress: formatted,
		PlaceID:          place.ID,
		Source:           SourceForward,
	}, nil
}

// ReverseGeocode resolves a coordinate pair through the Geocoding API.
// When no locality is resolvable the city comes back as "Unknown".
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (*geocode.Location, error) {
	params := url.Values{}
	params.Set("latlng", fmt.Sprintf("%f,%f", lat, lon))
	params.Set("key", c.apiKey)
	params.Set("language", "en")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.geocodingURL+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var geoResp geocodingResponse
	if err := json.NewDecoder(resp.Body).Decode(&geoResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if geoResp.Status != "OK" || len(geoResp.Results) == 0 {
		c.logger.Warn().
			Str("status", geoResp.Status).
			Str("error", geoResp.ErrorMessage).
			Float64("lat", lat).
			Float64("lon", lon).
			Msg("reverse geocoding returned no results")
		return nil, geocode.ErrNoResults
	}

	result := geoResp.Results[0]
	parsedCity, parsedCountry := parseLegacyComponents(result.AddressComponents)
	if parsedCity == "" {
		parsedCity = "Unknown"
	}
	if parsedCountry == "" {
		parsedCountry = "Unknown"
	}

	formatted := result.FormattedAddress
	if formatted == "" {
		formatted = fmt.Sprintf("Lat: %f, Lon: %f", lat, lon)
	}

	return &geocode.Location{
		Country:          parsedCountry,
		City:             parsedCity,
		Latitude:         lat,
		Longitude:        lon,
		FormattedAddress: formatted,
		PlaceID:          result.PlaceID,
		Source:           SourceReverse,
	}, nil
}

// parseComponents extracts city and country from Places API components.
// Locality wins over administrative_area_level_2, with level 1 as the
// last resort for the city.
func parseComponents(components []placeComponent) (city, country string) {
	for _, comp := range components {
		types := typeSet(comp.Types)
		if city == "" && (types["locality"] || types["administrative_area_level_2"]) {
			city = comp.LongText
		}
		if country == "" && types["country"] {
			country = comp.LongText
		}
	}
	if city == "" {
		for _, comp := range components {
			if typeSet(comp.Types)["administrative_area_level_1"] {
				city = comp.LongText
				break
			}
		}
	}
	return city, country
}

// parseLegacyComponents does the same for the legacy Geocoding API,
// which uses snake_case field names.
func parseLegacyComponents(components []legacyComponent) (city, country string) {
	for _, comp := range components {
		types := typeSet(comp.Types)
		if city == "" && (types["locality"] || types["administrative_area_level_2"]) {
			city = comp.LongName
		}
		if country == "" && types["country"] {
			country = comp.LongName
		}
	}
	if city == "" {
		for _, comp := range components {
			if typeSet(comp.Types)["administrative_area_level_1"] {
				city = comp.LongName
				break
			}
		}
	}
	return city, country
}

func typeSet(types []string) map[string]bool {
	set := make(map[string]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}

// Google API response structures.

type searchTextResponse struct {
	Places []struct {
		ID          string `json:"id"`
		DisplayName struct {
			Text string `json:"text"`
		} `json:"displayName"`
		FormattedAddress string `json:"formattedAddress"`
		Location         *struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"location"`
		AddressComponents []placeComponent `json:"addressComponents"`
	} `json:"places"`
}

type placeComponent struct {
	LongText  string   `json:"longText"`
	ShortText string   `json:"shortText"`
	Types     []string `json:"types"`
}

type geocodingResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		PlaceID           string            `json:"place_id"`
		FormattedAddress  string            `json:"formatted_address"`
		AddressComponents []legacyComponent `json:"address_components"`
	} `json:"results"`
}

type legacyComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}
