package server

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config contains server configuration values such as listen address, auth
// token, upstream endpoints, and cache behavior. Values come from an
// optional YAML file with environment-variable overrides on top.
type Config struct {
	Addr  string `yaml:"addr"`
	Token string `yaml:"token"`

	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Weather WeatherConfig `yaml:"weather"`
	Events  EventsConfig  `yaml:"events"`

	CacheTTL time.Duration  `yaml:"cache_ttl"`
	Prefetch PrefetchConfig `yaml:"prefetch"`
}

// WeatherConfig holds the Open-Meteo endpoints.
type WeatherConfig struct {
	GeocodingURL string `yaml:"geocoding_url"`
	ForecastURL  string `yaml:"forecast_url"`
}

// EventsConfig holds the search endpoint.
type EventsConfig struct {
	SearchURL string `yaml:"search_url"`
}

// PrefetchConfig drives scheduled cache warming. An empty schedule disables
// prefetching.
type PrefetchConfig struct {
	Schedule string   `yaml:"schedule"` // standard 5-field cron expression
	Cities   []string `yaml:"cities"`
}

// DefaultConfig returns the configuration used when no file or environment
// overrides are present.
func DefaultConfig() Config {
	return Config{
		Addr:     ":8000",
		Name:     "cityscout",
		Version:  "0.1.0",
		CacheTTL: 10 * time.Minute,
	}
}

// LoadConfig reads the YAML file at path (when non-empty), then applies
// environment overrides. A missing file with an empty path is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Addr = getEnv("CITYSCOUT_ADDR", c.Addr)
	c.Token = getEnv("CITYSCOUT_TOKEN", c.Token)
	c.Weather.GeocodingURL = getEnv("CITYSCOUT_GEOCODING_URL", c.Weather.GeocodingURL)
	c.Weather.ForecastURL = getEnv("CITYSCOUT_FORECAST_URL", c.Weather.ForecastURL)
	c.Events.SearchURL = getEnv("CITYSCOUT_SEARCH_URL", c.Events.SearchURL)
	c.Prefetch.Schedule = getEnv("CITYSCOUT_PREFETCH_SCHEDULE", c.Prefetch.Schedule)
	if cities := os.Getenv("CITYSCOUT_PREFETCH_CITIES"); cities != "" {
		c.Prefetch.Cities = splitCSV(cities)
	}
	if ttl := os.Getenv("CITYSCOUT_CACHE_TTL"); ttl != "" {
		if parsed, err := time.ParseDuration(ttl); err == nil {
			c.CacheTTL = parsed
		}
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
