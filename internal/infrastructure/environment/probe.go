package environment

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/huynhbao103/dietchat/internal/infrastructure/config"
	"github.com/huynhbao103/dietchat/internal/ports/outbound"
	"go.uber.org/zap"
)

// Time-of-day buckets
const (
	TimeMorning   = "morning"
	TimeNoon      = "noon"
	TimeAfternoon = "afternoon"
	TimeEvening   = "evening"
	TimeNight     = "night"
)

const (
	weatherCacheKey = "environment:weather-bucket"

	// A failed lookup is remembered briefly so every message doesn't retry
	// a dead weather service.
	failureCacheTTL = time.Minute
)

// Probe implements EnvironmentSource. Current never returns while a weather
// lookup is still in flight: concurrent callers wait on the first lookup's
// settlement, so a request is never submitted without context that was about
// to arrive.
type Probe struct {
	weather  WeatherService
	cache    outbound.CacheRepository
	cacheTTL time.Duration
	location *time.Location
	now      func() time.Time
	logger   *zap.Logger

	mu       sync.Mutex
	inflight chan struct{}
}

// NewProbe creates an environment probe backed by the given weather service
// and cache
func NewProbe(cfg config.EnvironmentConfig, weather WeatherService, cache outbound.CacheRepository, logger *zap.Logger) *Probe {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	return &Probe{
		weather:  weather,
		cache:    cache,
		cacheTTL: ttl,
		location: time.FixedZone("local", cfg.TimezoneOffset*3600),
		now:      time.Now,
		logger:   logger.Named("environment-probe"),
	}
}

// Current resolves both ambient signals. The weather value is empty when the
// lookup definitively failed; the time-of-day bucket is always present.
func (p *Probe) Current(ctx context.Context) (outbound.AmbientContext, error) {
	weather, err := p.weatherBucket(ctx)
	if err != nil {
		return outbound.AmbientContext{}, err
	}

	return outbound.AmbientContext{
		Weather:   cleanSignal(weather),
		TimeOfDay: TimeOfDayBucket(p.now().In(p.location)),
	}, nil
}

// weatherBucket returns the cached bucket, fetching on a miss. Only one
// fetch runs at a time; latecomers block until it settles and then read the
// cached outcome. The error return is reserved for context cancellation --
// a failed lookup settles as an empty bucket.
func (p *Probe) weatherBucket(ctx context.Context) (string, error) {
	for {
		if cached, err := p.cache.Get(ctx, weatherCacheKey); err == nil {
			return string(cached), nil
		}

		p.mu.Lock()
		if p.inflight == nil {
			done := make(chan struct{})
			p.inflight = done
			p.mu.Unlock()

			bucket := p.fetch(ctx)

			p.mu.Lock()
			p.inflight = nil
			p.mu.Unlock()
			close(done)

			return bucket, nil
		}

		wait := p.inflight
		p.mu.Unlock()

		select {
		case <-wait:
			// Re-read the cache; the settled outcome lives there.
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// fetch resolves the bucket and caches the outcome, failures included
func (p *Probe) fetch(ctx context.Context) string {
	bucket, err := p.weather.CurrentBucket(ctx)
	if err != nil {
		p.logger.Warn("Weather lookup failed, continuing without weather context", zap.Error(err))
		if cerr := p.cache.Set(ctx, weatherCacheKey, []byte(""), failureCacheTTL); cerr != nil {
			p.logger.Debug("Failed to cache weather failure", zap.Error(cerr))
		}
		return ""
	}

	if err := p.cache.Set(ctx, weatherCacheKey, []byte(bucket), p.cacheTTL); err != nil {
		p.logger.Debug("Failed to cache weather bucket", zap.Error(err))
	}
	return bucket
}

// TimeOfDayBucket classifies a local time into a coarse bucket
func TimeOfDayBucket(t time.Time) string {
	switch hour := t.Hour(); {
	case hour >= 5 && hour < 11:
		return TimeMorning
	case hour >= 11 && hour < 14:
		return TimeNoon
	case hour >= 14 && hour < 18:
		return TimeAfternoon
	case hour >= 18 && hour < 22:
		return TimeEvening
	default:
		return TimeNight
	}
}

// cleanSignal strips whitespace and normalizes empty strings to absent
func cleanSignal(s string) string {
	return strings.TrimSpace(s)
}
