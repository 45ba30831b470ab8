// Package googleair implements the air quality provider against the
// Google Air Quality API.
package googleair

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aqisense/aqisense/internal/airquality"
	"github.com/aqisense/aqisense/internal/provider/resilience"
)

const (
	// ProviderName identifies this client in the provider registry.
	ProviderName = "google-air-quality"

	// Source labels readings produced by this client.
	Source = "Google Air Quality API"

	// DefaultBaseURL is the current-conditions lookup endpoint.
	DefaultBaseURL = "https://airquality.googleapis.com/v1/currentConditions:lookup"

	// noDataMarker appears in 400 responses when the API has no
	// coverage for a coordinate. That is an answer, not a failure.
	noDataMarker = "Information is unavailable for this location"
)

// extraComputations requested on every lookup.
var extraComputations = []string{
	"HEALTH_RECOMMENDATIONS",
	"DOMINANT_POLLUTANT_CONCENTRATION",
	"POLLUTANT_CONCENTRATION",
	"LOCAL_AQI",
	"POLLUTANT_ADDITIONAL_INFO",
}

// ClientConfig holds configuration for the Google Air Quality client.
type ClientConfig struct {
	// APIKey is the Google API key (required).
	APIKey string

	// BaseURL overrides the lookup endpoint (optional).
	BaseURL string

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

// Client talks to the Google Air Quality API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// Compile-time check that Client implements airquality.Provider.
var _ airquality.Provider = (*Client)(nil)

// NewClient creates a new Google Air Quality client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
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
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// CurrentConditions fetches the live reading at a coordinate.
func (c *Client) CurrentConditions(ctx context.Context, lat, lon float64, languageCode string) (*airquality.Reading, error) {
	if languageCode == "" {
		languageCode = "en"
	}

	body, err := json.Marshal(lookupRequest{
		Location:          latLng{Latitude: lat, Longitude: lon},
		ExtraComputations: extraComputations,
		UniversalAQI:      true,
		LanguageCode:      languageCode,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"?key="+c.apiKey, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode == http.StatusBadRequest && strings.Contains(string(raw), noDataMarker) {
			c.logger.Debug().
				Float64("lat", lat).
				Float64("lon", lon).
				Msg("no air quality coverage for coordinate")
			return nil, airquality.ErrNoData
		}
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var lookupResp lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&lookupResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return c.parseReading(&lookupResp, lat, lon), nil
}

// parseReading normalizes the API payload into the internal reading
// shape. Pollutant codes are lower-cased so downstream set-membership
// checks match.
func (c *Client) parseReading(resp *lookupResponse, lat, lon float64) *airquality.Reading {
	reading := &airquality.Reading{
		FetchedAt:             parseDateTime(resp.DateTime),
		RegionCode:            resp.RegionCode,
		Country:               airquality.CountryForRegion(resp.RegionCode),
		Latitude:              lat,
		Longitude:             lon,
		HealthRecommendations: resp.HealthRecommendations,
		Source:                Source,
	}

	for _, idx := range resp.Indexes {
		reading.Indexes = append(reading.Indexes, airquality.Index{
			Code:              idx.Code,
			DisplayName:       idx.DisplayName,
			AQI:               idx.AQI,
			AQIDisplay:        idx.AQIDisplay,
			Category:          idx.Category,
			DominantPollutant: strings.ToLower(idx.DominantPollutant),
			Color:             idx.Color,
		})
	}

	for _, p := range resp.Pollutants {
		reading.Pollutants = append(reading.Pollutants, airquality.PollutantDetail{
			Code:        strings.ToLower(p.Code),
			DisplayName: p.DisplayName,
			FullName:    p.FullName,
			Concentration: airquality.Concentration{
				Value: p.Concentration.Value,
				Units: p.Concentration.Units,
			},
			AdditionalInfo: p.AdditionalInfo,
		})
	}

	return reading
}

func parseDateTime(raw string) time.Time {
	if raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Now().UTC()
}

// Google API request/response structures.

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type lookupRequest struct {
	Location          latLng   `json:"location"`
	ExtraComputations []string `json:"extraComputations"`
	UniversalAQI      bool     `json:"universalAqi"`
	LanguageCode      string   `json:"languageCode"`
}

type lookupResponse struct {
	DateTime   string `json:"dateTime"`
	RegionCode string `json:"regionCode"`
	Indexes    []struct {
		Code              string             `json:"code"`
		DisplayName       string             `json:"displayName"`
		AQI               int                `json:"aqi"`
		AQIDisplay        string             `json:"aqiDisplay"`
		Category          string             `json:"category"`
		DominantPollutant string             `json:"dominantPollutant"`
		Color             map[string]float64 `json:"color"`
	} `json:"indexes"`
	Pollutants []struct {
		Code          string `json:"code"`
		DisplayName   string `json:"displayName"`
		FullName      string `json:"fullName"`
		Concentration struct {
			Value *float64 `json:"value"`
			Units string   `json:"units"`
		} `json:"concentration"`
		AdditionalInfo map[string]string `json:"additionalInfo"`
	} `json:"pollutants"`
	HealthRecommendations map[string]string `json:"healthRecommendations"`
}
