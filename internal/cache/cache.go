// Package cache provides a small multi-backend key/value client.
//
// Backends:
//   - Memory (in-process, for development and tests)
//   - Redis (shared, for production)
//
// The rate limiter is its main consumer; Incr exists so a fixed window can be
// counted atomically on either backend.
package cache

import (
	"context"
	"time"
)

// Client defines the cache operations.
type Client interface {
	// Get returns a value, or ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value. ttl 0 means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes a key.
	Delete(ctx context.Context, key string) error

	// Exists reports whether a key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Incr increments a counter and returns the new value. The first hit
	// creates the counter at 1 with the given ttl.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend connection.
	Close() error

	// Stats returns backend statistics.
	Stats(ctx context.Context) (Stats, error)
}

// Stats holds cache statistics.
type Stats struct {
	Driver     string
	Keys       int64
	UsedMemory string
	Hits       int64
	Misses     int64
}

// Config selects and configures a backend.
type Config struct {
	Driver   string // "memory" | "redis"
	Host     string
	Port     int
	Password string
	DB       int
	Prefix   string // prepended to every key
}

// ErrNotFound is returned by Get for absent keys.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (e errNotFound) Error() string { return "cache: key not found" }

// IsNotFound reports whether err means the key does not exist.
func IsNotFound(err error) bool {
	_, ok := err.(errNotFound)
	return ok
}

// New creates a cache client for the configured driver.
// Unknown and empty drivers fall back to memory.
func New(cfg Config) (Client, error) {
	switch cfg.Driver {
	case "redis":
		return NewRedis(cfg)
	case "memory", "":
		return NewMemory(cfg.Prefix), nil
	default:
		return NewMemory(cfg.Prefix), nil
	}
}
