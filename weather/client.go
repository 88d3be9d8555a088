// Package weather provides current-weather lookups backed by the Open-Meteo
// APIs and exposes them as the get_weather tool. Open-Meteo is free and
// keyless: a geocoding call resolves the city to coordinates, then a
// forecast call fetches current conditions.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
	defaultForecastURL  = "https://api.open-meteo.com/v1/forecast"

	// currentFields selects the current-conditions variables requested
	// from the forecast API.
	currentFields = "temperature_2m,wind_speed_10m,weather_code"
)

// Client calls the Open-Meteo geocoding and forecast APIs.
type Client struct {
	geocodingURL string
	forecastURL  string
	httpClient   *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURLs overrides the geocoding and forecast endpoints, mainly for
// tests against a local fake.
func WithBaseURLs(geocodingURL, forecastURL string) ClientOption {
	return func(c *Client) {
		c.geocodingURL = geocodingURL
		c.forecastURL = forecastURL
	}
}

// WithHTTPClient overrides the HTTP client. The provided client must be
// safe for concurrent use.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient constructs a Client against the public Open-Meteo endpoints
// with a 10 second request timeout.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		geocodingURL: defaultGeocodingURL,
		forecastURL:  defaultForecastURL,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Report is the structured weather result for one city.
type Report struct {
	City            string      `json:"city"`
	Country         string      `json:"country"`
	Temperature     float64     `json:"temperature"`
	TemperatureUnit string      `json:"temperature_unit"`
	WindSpeed       float64     `json:"wind_speed"`
	WindSpeedUnit   string      `json:"wind_speed_unit"`
	WeatherCode     int         `json:"weather_code"`
	Coordinates     Coordinates `json:"coordinates"`
}

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type geocodeResponse struct {
	Results []geocodeResult `json:"results"`
}

type geocodeResult struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   string  `json:"country"`
}

type forecastResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		WindSpeed   float64 `json:"wind_speed_10m"`
		WeatherCode int     `json:"weather_code"`
	} `json:"current"`
	CurrentUnits struct {
		Temperature string `json:"temperature_2m"`
		WindSpeed   string `json:"wind_speed_10m"`
	} `json:"current_units"`
}

// ErrCityNotFound is returned when the geocoding API has no match for the
// requested city, including after the comma fallback.
type ErrCityNotFound struct {
	City string
}

func (e *ErrCityNotFound) Error() string {
	return fmt.Sprintf("City '%s' not found", e.City)
}

// CurrentWeather resolves the city to coordinates and fetches current
// conditions for them.
func (c *Client) CurrentWeather(ctx context.Context, city string) (*Report, error) {
	location, err := c.geocode(ctx, city)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%g", location.Latitude))
	params.Set("longitude", fmt.Sprintf("%g", location.Longitude))
	params.Set("current", currentFields)

	var forecast forecastResponse
	if err := c.getJSON(ctx, c.forecastURL, params, &forecast); err != nil {
		return nil, fmt.Errorf("forecast lookup: %w", err)
	}

	country := location.Country
	if country == "" {
		country = "Unknown"
	}

	return &Report{
		City:            location.Name,
		Country:         country,
		Temperature:     forecast.Current.Temperature,
		TemperatureUnit: forecast.CurrentUnits.Temperature,
		WindSpeed:       forecast.Current.WindSpeed,
		WindSpeedUnit:   forecast.CurrentUnits.WindSpeed,
		WeatherCode:     forecast.Current.WeatherCode,
		Coordinates: Coordinates{
			Latitude:  location.Latitude,
			Longitude: location.Longitude,
		},
	}, nil
}

// geocode resolves a city name to coordinates. The geocoding API is
// inconsistent with qualified names ("Aspen" works where "Aspen, Colorado"
// may not), so when the lookup comes back empty and the input contains a
// comma, the part before the comma is tried once more.
func (c *Client) geocode(ctx context.Context, city string) (*geocodeResult, error) {
	result, err := c.geocodeOnce(ctx, city)
	if err != nil {
		return nil, err
	}
	if result != nil {
		return result, nil
	}

	if idx := strings.Index(city, ","); idx >= 0 {
		cityOnly := strings.TrimSpace(city[:idx])
		result, err = c.geocodeOnce(ctx, cityOnly)
		if err != nil {
			return nil, err
		}
		if result != nil {
			return result, nil
		}
	}

	return nil, &ErrCityNotFound{City: city}
}

func (c *Client) geocodeOnce(ctx context.Context, name string) (*geocodeResult, error) {
	params := url.Values{}
	params.Set("name", name)
	params.Set("count", "1")
	params.Set("format", "json")

	var response geocodeResponse
	if err := c.getJSON(ctx, c.geocodingURL, params, &response); err != nil {
		return nil, fmt.Errorf("geocoding lookup: %w", err)
	}
	if len(response.Results) == 0 {
		return nil, nil
	}
	return &response.Results[0], nil
}

func (c *Client) getJSON(ctx context.Context, baseURL string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, baseURL)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
