package core

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// sweepThreshold is the number of tracked keys above which idle limiters are
// evicted.
const sweepThreshold = 10000

// MemoryRateLimitStore is a token bucket RateLimitStore kept in process
// memory. Each Lambda instance limits independently, which is acceptable for
// the small user base of a single reservoir.
type MemoryRateLimitStore struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	idleTTL  time.Duration
	now      func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemoryRateLimitStore returns an empty store. Limiters unused for idleTTL
// are dropped during sweeps.
func NewMemoryRateLimitStore(idleTTL time.Duration) *MemoryRateLimitStore {
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &MemoryRateLimitStore{
		limiters: make(map[string]*limiterEntry),
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

// IncrementAndCheck takes one token from key's bucket. The bucket holds limit
// tokens and refills completely over window.
func (m *MemoryRateLimitStore) IncrementAndCheck(_ context.Context, key string, limit int, window time.Duration) (RateLimitResult, error) {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Second
	}
	every := rate.Limit(float64(limit) / window.Seconds())

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	entry, ok := m.limiters[key]
	if !ok {
		if len(m.limiters) >= sweepThreshold {
			m.sweepLocked(now)
		}
		entry = &limiterEntry{limiter: rate.NewLimiter(every, limit)}
		m.limiters[key] = entry
	} else if entry.limiter.Limit() != every || entry.limiter.Burst() != limit {
		entry.limiter.SetLimitAt(now, every)
		entry.limiter.SetBurstAt(now, limit)
	}
	entry.lastSeen = now

	allowed := entry.limiter.AllowN(now, 1)
	tokens := entry.limiter.TokensAt(now)

	remaining := int(tokens)
	if remaining < 0 {
		remaining = 0
	}

	// Time until at least one token is available again.
	refill := time.Duration(float64(time.Second) / float64(every))
	resetAt := now.Add(refill)
	if tokens >= 1 {
		resetAt = now
	}

	return RateLimitResult{
		Allowed:   allowed,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

// Len reports the number of tracked keys.
func (m *MemoryRateLimitStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.limiters)
}

func (m *MemoryRateLimitStore) sweepLocked(now time.Time) {
	for k, e := range m.limiters {
		if now.Sub(e.lastSeen) > m.idleTTL {
			delete(m.limiters, k)
		}
	}
}
