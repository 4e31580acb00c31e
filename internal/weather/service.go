// Package weather serves current conditions from an upstream provider through
// a short-lived in-memory cache. Ratings submitted within the same minutes at
// roughly the same spot share one upstream call.
package weather

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"biteindex/internal/external"
	"biteindex/internal/types"
)

// DefaultTTL is used when the configured TTL is not positive.
const DefaultTTL = 10 * time.Minute

// Cache keys round coordinates to two decimals, about 1 km at this latitude.
const keyPrecision = 100

// maxEntries bounds the cache; expired entries are swept when it is reached.
const maxEntries = 1024

type entry struct {
	snap *types.WeatherSnapshot
	exp  time.Time
}

// Service wraps a WeatherProvider with caching and a fixed default point.
type Service struct {
	provider external.WeatherProvider
	center   types.Coordinate
	ttl      time.Duration
	clock    types.Clock
	logger   *slog.Logger

	mu      sync.Mutex
	entries map[string]entry
}

// NewService creates a Service. center is reported by Reservoir.
func NewService(provider external.WeatherProvider, center types.Coordinate, ttl time.Duration, clock types.Clock, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		provider: provider,
		center:   center,
		ttl:      ttl,
		clock:    clock,
		logger:   logger,
		entries:  make(map[string]entry),
	}
}

// Center returns the reservoir centre.
func (s *Service) Center() types.Coordinate {
	return s.center
}

// Reservoir returns current weather at the reservoir centre.
func (s *Service) Reservoir(ctx context.Context) (*types.WeatherSnapshot, error) {
	return s.Current(ctx, s.center)
}

// Current returns weather at the given point, from cache when fresh.
// Returned snapshots are copies and may be modified by the caller.
func (s *Service) Current(ctx context.Context, at types.Coordinate) (*types.WeatherSnapshot, error) {
	key := cacheKey(at)
	now := s.clock.Now()

	s.mu.Lock()
	e, ok := s.entries[key]
	s.mu.Unlock()
	if ok && now.Before(e.exp) {
		cp := *e.snap
		return &cp, nil
	}

	snap, err := s.provider.CurrentWeather(ctx, at)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if len(s.entries) >= maxEntries {
		s.sweepLocked(now)
	}
	s.entries[key] = entry{snap: snap, exp: now.Add(s.ttl)}
	s.mu.Unlock()

	cp := *snap
	return &cp, nil
}

// Lookup is the best-effort form used when enriching ratings: failures are
// logged and reported as a nil snapshot.
func (s *Service) Lookup(ctx context.Context, at types.Coordinate) *types.WeatherSnapshot {
	snap, err := s.Current(ctx, at)
	if err != nil {
		s.logger.WarnContext(ctx, "weather lookup failed",
			slog.Float64("lat", at.Latitude),
			slog.Float64("lon", at.Longitude),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return snap
}

func (s *Service) sweepLocked(now time.Time) {
	for k, e := range s.entries {
		if !now.Before(e.exp) {
			delete(s.entries, k)
		}
	}
	if len(s.entries) >= maxEntries {
		clear(s.entries)
	}
}

func cacheKey(c types.Coordinate) string {
	return fmt.Sprintf("%.0f:%.0f", math.Round(c.Latitude*keyPrecision), math.Round(c.Longitude*keyPrecision))
}
