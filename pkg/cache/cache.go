package cache

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// DefaultTTL is how long built graphs stay cached. Entries are keyed by
// content, so staleness is not a concern; the TTL only bounds disk use.
const DefaultTTL = 7 * 24 * time.Hour

// Cache stores opaque byte payloads by key.
//
// A miss is reported as (nil, false, nil); errors are reserved for backend
// failures. Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Config selects and configures a backend for [Open].
type Config struct {
	// Disabled returns a [NullCache].
	Disabled bool

	// RedisURL selects the redis backend, e.g. "redis://localhost:6379/0".
	RedisURL string

	// Dir is the file cache directory. Defaults to [DefaultDir].
	Dir string

	// Prefix namespaces every key.
	Prefix string
}

// Open returns the backend described by cfg: null when disabled, redis
// when a URL is given, files otherwise.
func Open(ctx context.Context, cfg Config) (Cache, error) {
	var (
		c   Cache
		err error
	)
	switch {
	case cfg.Disabled:
		return NewNullCache(), nil
	case cfg.RedisURL != "":
		c, err = NewRedisCache(ctx, cfg.RedisURL)
	default:
		dir := cfg.Dir
		if dir == "" {
			if dir, err = DefaultDir(); err != nil {
				return nil, err
			}
		}
		c, err = NewFileCache(dir)
	}
	if err != nil {
		return nil, err
	}
	if cfg.Prefix != "" {
		c = NewScoped(c, cfg.Prefix)
	}
	return c, nil
}

// DefaultDir returns $XDG_CACHE_HOME/crateapi, falling back to the user
// cache directory of the platform.
func DefaultDir() (string, error) {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "crateapi"), nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "crateapi"), nil
}
