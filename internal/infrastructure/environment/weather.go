// Package environment resolves ambient signals (weather and time of day)
// used as optional context for recommendation requests
package environment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/huynhbao103/dietchat/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Weather classification buckets
const (
	WeatherRainy = "rainy"
	WeatherHot   = "hot"
	WeatherWarm  = "warm"
	WeatherMild  = "mild"
	WeatherCold  = "cold"
)

// WeatherService resolves the current weather classification bucket
type WeatherService interface {
	CurrentBucket(ctx context.Context) (string, error)
}

// WeatherClient fetches current conditions from an OpenWeather-compatible
// endpoint and reduces them to a coarse bucket
type WeatherClient struct {
	url        string
	apiKey     string
	latitude   float64
	longitude  float64
	httpClient *http.Client
	logger     *zap.Logger
}

// NewWeatherClient creates a new weather client
func NewWeatherClient(cfg config.EnvironmentConfig, logger *zap.Logger) *WeatherClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &WeatherClient{
		url:       cfg.WeatherURL,
		apiKey:    cfg.WeatherAPIKey,
		latitude:  cfg.Latitude,
		longitude: cfg.Longitude,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.Named("weather-client"),
	}
}

// weatherResponse is the subset of the conditions payload we use
type weatherResponse struct {
	Weather []struct {
		Main string `json:"main"`
	} `json:"weather"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
}

// CurrentBucket fetches conditions and classifies them
func (c *WeatherClient) CurrentBucket(ctx context.Context) (string, error) {
	u := fmt.Sprintf("%s?lat=%f&lon=%f&units=metric&appid=%s",
		c.url, c.latitude, c.longitude, c.apiKey)

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("weather lookup failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read weather response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("weather lookup failed with status %d", resp.StatusCode)
	}

	var conditions weatherResponse
	if err := json.Unmarshal(body, &conditions); err != nil {
		return "", fmt.Errorf("failed to decode weather response: %w", err)
	}

	main := ""
	if len(conditions.Weather) > 0 {
		main = conditions.Weather[0].Main
	}

	bucket := ClassifyWeather(main, conditions.Main.Temp)
	c.logger.Debug("Weather resolved",
		zap.String("condition", main),
		zap.Float64("temp_c", conditions.Main.Temp),
		zap.String("bucket", bucket))

	return bucket, nil
}

// ClassifyWeather reduces raw conditions to a coarse bucket. Precipitation
// wins over temperature.
func ClassifyWeather(condition string, tempCelsius float64) string {
	switch strings.ToLower(strings.TrimSpace(condition)) {
	case "rain", "drizzle", "thunderstorm":
		return WeatherRainy
	}

	switch {
	case tempCelsius >= 32:
		return WeatherHot
	case tempCelsius >= 25:
		return WeatherWarm
	case tempCelsius >= 18:
		return WeatherMild
	default:
		return WeatherCold
	}
}
