package weather

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biteindex/internal/types"
)

type fakeProvider struct {
	mu    sync.Mutex
	calls int
	err   error
	temp  float64
}

func (f *fakeProvider) CurrentWeather(_ context.Context, _ types.Coordinate) (*types.WeatherSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &types.WeatherSnapshot{TemperatureC: f.temp, PressureMMHg: 745, WindDirection: "С"}, nil
}

type steppingClock struct{ t time.Time }

func (c *steppingClock) Now() time.Time { return c.t }

var center = types.Coordinate{Latitude: 55.38, Longitude: 60.40}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCurrent_CachesWithinTTL(t *testing.T) {
	p := &fakeProvider{temp: 5}
	clock := &steppingClock{t: time.Date(2025, 10, 15, 10, 0, 0, 0, time.UTC)}
	svc := NewService(p, center, 10*time.Minute, clock, discardLogger())

	first, err := svc.Reservoir(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5.0, first.TemperatureC)

	// A nearby point falls into the same cache cell.
	_, err = svc.Current(context.Background(), types.Coordinate{Latitude: 55.381, Longitude: 60.401})
	require.NoError(t, err)
	assert.Equal(t, 1, p.calls)

	clock.t = clock.t.Add(10 * time.Minute)
	p.temp = 6
	refreshed, err := svc.Reservoir(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6.0, refreshed.TemperatureC)
	assert.Equal(t, 2, p.calls)
}

func TestCurrent_ReturnsCopies(t *testing.T) {
	p := &fakeProvider{temp: 5}
	svc := NewService(p, center, time.Minute, nil, discardLogger())

	a, err := svc.Reservoir(context.Background())
	require.NoError(t, err)
	a.TemperatureC = 99

	b, err := svc.Reservoir(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5.0, b.TemperatureC)
}

func TestCurrent_ErrorsAreNotCached(t *testing.T) {
	p := &fakeProvider{err: types.NewAppError(types.ErrCodeUpstreamWeather, "down", nil)}
	svc := NewService(p, center, time.Minute, nil, discardLogger())

	_, err := svc.Reservoir(context.Background())
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeUpstreamWeather, appErr.Code)

	p.err = nil
	snap, err := svc.Reservoir(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, snap)
	assert.Equal(t, 2, p.calls)
}

func TestLookup_SwallowsErrors(t *testing.T) {
	p := &fakeProvider{err: errors.New("boom")}
	svc := NewService(p, center, time.Minute, nil, discardLogger())

	assert.Nil(t, svc.Lookup(context.Background(), center))
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, cacheKey(types.Coordinate{Latitude: 55.3801, Longitude: 60.4}), cacheKey(center))
	assert.NotEqual(t, cacheKey(types.Coordinate{Latitude: 55.40, Longitude: 60.4}), cacheKey(center))
}
