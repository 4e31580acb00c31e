package core

import (
	"context"
	"time"

	"biteindex/internal/types"
)

// Authenticator resolves a credential to an Actor. It keeps the HTTP layer
// independent of the identity provider.
type Authenticator interface {
	// ResolveToken verifies token and returns the Actor it identifies.
	// Return ErrCodeAuthTokenInvalid for malformed or forged tokens and
	// ErrCodeAuthTokenExpired for stale ones.
	ResolveToken(ctx context.Context, token string) (*types.Actor, error)
}

// AnonymousAuthenticator is optionally implemented by an Authenticator that
// can attribute credential-less requests to a fallback identity. A nil Actor
// means anonymous access is not allowed.
type AnonymousAuthenticator interface {
	AnonymousActor() *types.Actor
}

// RateLimitStore abstracts the backing store for rate limiting.
type RateLimitStore interface {
	// IncrementAndCheck records one request for key and reports whether it
	// fits within limit requests per window.
	IncrementAndCheck(ctx context.Context, key string, limit int, window time.Duration) (RateLimitResult, error)
}

// RateLimitResult contains the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}
