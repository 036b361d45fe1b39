// Package identity resolves user identifiers to display names.
package identity

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// Resolver resolves a user identifier to a display name.
// The environment collaborator owns the actual lookup.
type Resolver interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, userID string) (string, error)

// DisplayName calls f.
func (f ResolverFunc) DisplayName(ctx context.Context, userID string) (string, error) {
	return f(ctx, userID)
}

// Cached decorates a Resolver with in-memory caching. Display names change
// rarely; caching keeps the lookup off the per-turn path.
type Cached struct {
	inner Resolver
	cache *cache.Cache
}

// NewCached creates a caching resolver. defaultTTL is the expiration time
// for cached names.
func NewCached(inner Resolver, defaultTTL time.Duration) *Cached {
	return &Cached{
		inner: inner,
		cache: cache.New(defaultTTL, defaultTTL*2),
	}
}

// DisplayName retrieves a name from the cache or delegates to the inner
// resolver. Lookup failures are not cached.
func (c *Cached) DisplayName(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", nil
	}

	if val, found := c.cache.Get(userID); found {
		if name, ok := val.(string); ok {
			return name, nil
		}
	}

	name, err := c.inner.DisplayName(ctx, userID)
	if err != nil {
		return "", err
	}

	c.cache.Set(userID, name, cache.DefaultExpiration)
	return name, nil
}
