package environment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/huynhbao103/dietchat/internal/infrastructure/config"
)

func TestClassifyWeather(t *testing.T) {
	tests := []struct {
		name      string
		condition string
		temp      float64
		want      string
	}{
		{"rain wins over heat", "Rain", 35, WeatherRainy},
		{"drizzle", "Drizzle", 20, WeatherRainy},
		{"thunderstorm", "Thunderstorm", 10, WeatherRainy},
		{"hot", "Clear", 33, WeatherHot},
		{"hot boundary", "Clear", 32, WeatherHot},
		{"warm", "Clouds", 28, WeatherWarm},
		{"mild", "Clear", 20, WeatherMild},
		{"cold", "Snow", 5, WeatherCold},
		{"unknown condition falls through to temp", "Haze", 26, WeatherWarm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyWeather(tt.condition, tt.temp))
		})
	}
}

func TestWeatherClientCurrentBucket(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "metric", q.Get("units"))
		assert.Equal(t, "test-key", q.Get("appid"))
		assert.NotEmpty(t, q.Get("lat"))
		assert.NotEmpty(t, q.Get("lon"))

		w.Write([]byte(`{"weather":[{"main":"Clear"}],"main":{"temp":34.2}}`))
	}))
	defer server.Close()

	client := NewWeatherClient(config.EnvironmentConfig{
		WeatherURL:    server.URL,
		WeatherAPIKey: "test-key",
		Latitude:      10.76,
		Longitude:     106.66,
		Timeout:       2 * time.Second,
	}, zap.NewNop())

	bucket, err := client.CurrentBucket(context.Background())
	require.NoError(t, err)
	assert.Equal(t, WeatherHot, bucket)
}

func TestWeatherClientUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewWeatherClient(config.EnvironmentConfig{
		WeatherURL: server.URL,
		Timeout:    2 * time.Second,
	}, zap.NewNop())

	_, err := client.CurrentBucket(context.Background())
	assert.Error(t, err)
}
