package environment

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/huynhbao103/dietchat/internal/infrastructure/config"
	"github.com/huynhbao103/dietchat/internal/infrastructure/persistence/memory"
)

type stubWeather struct {
	mu     sync.Mutex
	bucket string
	err    error
	calls  int32
	block  chan struct{}
}

func (s *stubWeather) CurrentBucket(ctx context.Context) (string, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bucket, s.err
}

func newProbe(weather WeatherService) *Probe {
	return NewProbe(config.EnvironmentConfig{
		CacheTTL:       time.Minute,
		TimezoneOffset: 7,
	}, weather, memory.NewCacheRepository(), zap.NewNop())
}

func TestProbeResolvesBothSignals(t *testing.T) {
	p := newProbe(&stubWeather{bucket: WeatherHot})
	p.now = func() time.Time {
		return time.Date(2024, 6, 1, 5, 0, 0, 0, time.UTC) // 12:00 at UTC+7
	}

	ambient, err := p.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, WeatherHot, ambient.Weather)
	assert.Equal(t, TimeNoon, ambient.TimeOfDay)
}

func TestProbeCachesWeatherAcrossCalls(t *testing.T) {
	weather := &stubWeather{bucket: WeatherWarm}
	p := newProbe(weather)

	for i := 0; i < 3; i++ {
		ambient, err := p.Current(context.Background())
		require.NoError(t, err)
		assert.Equal(t, WeatherWarm, ambient.Weather)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&weather.calls))
}

func TestProbeSingleFlightUnderConcurrency(t *testing.T) {
	weather := &stubWeather{bucket: WeatherMild, block: make(chan struct{})}
	p := newProbe(weather)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ambient, err := p.Current(context.Background())
			require.NoError(t, err)
			results[i] = ambient.Weather
		}(i)
	}

	// Give every caller time to park behind the in-flight lookup.
	time.Sleep(20 * time.Millisecond)
	close(weather.block)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&weather.calls))
	for _, r := range results {
		assert.Equal(t, WeatherMild, r)
	}
}

func TestProbeFailureSettlesAsEmptyWeather(t *testing.T) {
	weather := &stubWeather{err: errors.New("weather service down")}
	p := newProbe(weather)

	ambient, err := p.Current(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ambient.Weather)
	assert.NotEmpty(t, ambient.TimeOfDay)

	// The failure outcome is cached; the next call does not retry.
	_, err = p.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&weather.calls))
}

func TestProbeWaiterHonorsContextCancellation(t *testing.T) {
	weather := &stubWeather{bucket: WeatherCold, block: make(chan struct{})}
	p := newProbe(weather)

	go p.Current(context.Background())
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Current(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	close(weather.block)
}

func TestTimeOfDayBucket(t *testing.T) {
	at := func(hour int) time.Time {
		return time.Date(2024, 6, 1, hour, 30, 0, 0, time.UTC)
	}

	assert.Equal(t, TimeMorning, TimeOfDayBucket(at(5)))
	assert.Equal(t, TimeMorning, TimeOfDayBucket(at(10)))
	assert.Equal(t, TimeNoon, TimeOfDayBucket(at(11)))
	assert.Equal(t, TimeNoon, TimeOfDayBucket(at(13)))
	assert.Equal(t, TimeAfternoon, TimeOfDayBucket(at(14)))
	assert.Equal(t, TimeAfternoon, TimeOfDayBucket(at(17)))
	assert.Equal(t, TimeEvening, TimeOfDayBucket(at(18)))
	assert.Equal(t, TimeEvening, TimeOfDayBucket(at(21)))
	assert.Equal(t, TimeNight, TimeOfDayBucket(at(22)))
	assert.Equal(t, TimeNight, TimeOfDayBucket(at(2)))
}
