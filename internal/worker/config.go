// Package worker runs the background conditions refresher for AQISense.
package worker

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// CityTarget is one place the refresher keeps current.
type CityTarget struct {
	Country string
	City    string
}

// RefreshConfig holds configuration for the conditions refresh job.
type RefreshConfig struct {
	// Cities are the places to refresh. If empty, uses DefaultCities.
	Cities []CityTarget

	// Interval between refresh rounds. Default: 15 minutes.
	Interval time.Duration

	// Jitter randomizes each round's start to avoid thundering-herd
	// calls against the provider. Default: 1 minute.
	Jitter time.Duration

	// Concurrency is the number of concurrent city refreshes.
	// Default: 3
	Concurrency int

	// Timeout is the per-city timeout. Default: 30 seconds.
	Timeout time.Duration
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Cities:      DefaultCities(),
		Interval:    15 * time.Minute,
		Jitter:      1 * time.Minute,
		Concurrency: 3,
		Timeout:     30 * time.Second,
	}
}

// DefaultCities returns the cities refreshed when none are configured.
// These are the high-traffic places in the training data.
func DefaultCities() []CityTarget {
	return []CityTarget{
		{Country: "Indonesia", City: "Jakarta"},
		{Country: "Indonesia", City: "Bandung"},
		{Country: "Indonesia", City: "Surabaya"},
		{Country: "India", City: "Delhi"},
		{Country: "India", City: "Mumbai"},
		{Country: "Netherlands", City: "Amsterdam"},
		{Country: "Poland", City: "Warsaw"},
		{Country: "United States", City: "Los Angeles"},
	}
}

// ConfigFromEnv builds a RefreshConfig from environment variables,
// with defaults for anything unset.
//
//	WORKER_CITIES       comma-separated Country:City pairs
//	WORKER_INTERVAL     Go duration, e.g. "15m"
//	WORKER_JITTER       Go duration, e.g. "1m"
//	WORKER_CONCURRENCY  integer
//	WORKER_TIMEOUT      Go duration, e.g. "30s"
func ConfigFromEnv() RefreshConfig {
	cfg := DefaultRefreshConfig()

	if raw := os.Getenv("WORKER_CITIES"); raw != "" {
		if cities := ParseCities(raw); len(cities) > 0 {
			cfg.Cities = cities
		}
	}
	if d, err := time.ParseDuration(os.Getenv("WORKER_INTERVAL")); err == nil && d > 0 {
		cfg.Interval = d
	}
	if d, err := time.ParseDuration(os.Getenv("WORKER_JITTER")); err == nil && d >= 0 {
		cfg.Jitter = d
	}
	if n, err := strconv.Atoi(os.Getenv("WORKER_CONCURRENCY")); err == nil && n > 0 {
		cfg.Concurrency = n
	}
	if d, err := time.ParseDuration(os.Getenv("WORKER_TIMEOUT")); err == nil && d > 0 {
		cfg.Timeout = d
	}

	return cfg
}

// ParseCities parses a comma-separated list of Country:City pairs.
// Malformed entries are skipped.
func ParseCities(raw string) []CityTarget {
	var cities []CityTarget
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 {
			continue
		}
		country := strings.TrimSpace(parts[0])
		city := strings.TrimSpace(parts[1])
		if country == "" || city == "" {
			continue
		}
		cities = append(cities, CityTarget{Country: country, City: city})
	}
	return cities
}
