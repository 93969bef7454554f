package cache

import (
	"context"
	"time"
)

// Scoped wraps a Cache and prefixes every key, so several tools or
// tenants can share one redis database without colliding.
//
// Example usage:
//
//	shared, _ := NewRedisCache(ctx, url)
//	c := NewScoped(shared, "crateapi:")
type Scoped struct {
	inner  Cache
	prefix string
}

// NewScoped creates a prefixed view of inner. A nil inner is a [NullCache].
func NewScoped(inner Cache, prefix string) *Scoped {
	if inner == nil {
		inner = NewNullCache()
	}
	return &Scoped{inner: inner, prefix: prefix}
}

// Get reads prefix+key from the inner cache.
func (s *Scoped) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

// Set writes prefix+key to the inner cache.
func (s *Scoped) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return s.inner.Set(ctx, s.prefix+key, data, ttl)
}

// Delete removes prefix+key from the inner cache.
func (s *Scoped) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, s.prefix+key)
}

// Close closes the inner cache.
func (s *Scoped) Close() error {
	return s.inner.Close()
}

// Unwrap returns the inner cache.
func (s *Scoped) Unwrap() Cache { return s.inner }

var _ Cache = (*Scoped)(nil)
