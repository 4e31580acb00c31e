package core

import (
	"context"
	"sync"
	"time"

	"biteindex/internal/types"
)

// MockAuthenticator is an Authenticator for tests. ResolveTokenFunc wins over
// Err, which wins over Actor. Anonymous is returned from AnonymousActor.
type MockAuthenticator struct {
	Actor            *types.Actor
	Err              error
	Anonymous        *types.Actor
	ResolveTokenFunc func(ctx context.Context, token string) (*types.Actor, error)

	mu    sync.Mutex
	Calls []string
}

func (m *MockAuthenticator) ResolveToken(ctx context.Context, token string) (*types.Actor, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, token)
	m.mu.Unlock()

	if m.ResolveTokenFunc != nil {
		return m.ResolveTokenFunc(ctx, token)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Actor, nil
}

func (m *MockAuthenticator) AnonymousActor() *types.Actor {
	return m.Anonymous
}

// CallCount returns how many times ResolveToken ran.
func (m *MockAuthenticator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockRateLimitStore is a RateLimitStore for tests.
type MockRateLimitStore struct {
	Result                RateLimitResult
	Err                   error
	IncrementAndCheckFunc func(ctx context.Context, key string, limit int, window time.Duration) (RateLimitResult, error)

	mu    sync.Mutex
	Calls []RateLimitCall
}

// RateLimitCall records the arguments of one IncrementAndCheck call.
type RateLimitCall struct {
	Key    string
	Limit  int
	Window time.Duration
}

func (m *MockRateLimitStore) IncrementAndCheck(ctx context.Context, key string, limit int, window time.Duration) (RateLimitResult, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, RateLimitCall{Key: key, Limit: limit, Window: window})
	m.mu.Unlock()

	if m.IncrementAndCheckFunc != nil {
		return m.IncrementAndCheckFunc(ctx, key, limit, window)
	}
	return m.Result, m.Err
}

// MockMetricsCollector records RecordRequest calls.
type MockMetricsCollector struct {
	mu    sync.Mutex
	Calls []RecordedRequest
}

// RecordedRequest is one RecordRequest invocation.
type RecordedRequest struct {
	Method   string
	Endpoint string
	Status   string
	Duration time.Duration
}

func (m *MockMetricsCollector) RecordRequest(method, endpoint, status string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, RecordedRequest{Method: method, Endpoint: endpoint, Status: status, Duration: duration})
}

var (
	_ Authenticator          = (*MockAuthenticator)(nil)
	_ AnonymousAuthenticator = (*MockAuthenticator)(nil)
	_ RateLimitStore         = (*MockRateLimitStore)(nil)
	_ RateLimitStore         = (*MemoryRateLimitStore)(nil)
	_ MetricsCollector       = (*MockMetricsCollector)(nil)
)
