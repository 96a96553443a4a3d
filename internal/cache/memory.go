package cache

import (
	"context"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const memoryCleanupInterval = 5 * time.Minute

// memoryClient implements Client on an in-process go-cache store.
// Suitable for a single instance; counters reset on restart.
type memoryClient struct {
	store  *gocache.Cache
	prefix string
	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemory creates an in-process cache client.
func NewMemory(prefix string) *memoryClient {
	return &memoryClient{
		store:  gocache.New(gocache.NoExpiration, memoryCleanupInterval),
		prefix: prefix,
	}
}

func (c *memoryClient) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

func (c *memoryClient) Get(ctx context.Context, key string) (string, error) {
	v, ok := c.store.Get(c.key(key))
	if !ok {
		c.misses.Add(1)
		return "", ErrNotFound
	}
	s, ok := v.(string)
	if !ok {
		// Counter keys are int64; they are not readable through Get.
		c.misses.Add(1)
		return "", ErrNotFound
	}
	c.hits.Add(1)
	return s, nil
}

func (c *memoryClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	c.store.Set(c.key(key), value, ttl)
	return nil
}

func (c *memoryClient) Delete(ctx context.Context, key string) error {
	c.store.Delete(c.key(key))
	return nil
}

func (c *memoryClient) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := c.store.Get(c.key(key))
	return ok, nil
}

func (c *memoryClient) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	k := c.key(key)
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	// Add fails when the key already exists, so exactly one caller creates
	// the counter and the rest increment it.
	if err := c.store.Add(k, int64(1), ttl); err == nil {
		return 1, nil
	}
	n, err := c.store.IncrementInt64(k, 1)
	if err != nil {
		// The key expired between Add and Increment. Start a fresh window.
		c.store.Set(k, int64(1), ttl)
		return 1, nil
	}
	return n, nil
}

func (c *memoryClient) Ping(ctx context.Context) error { return nil }

func (c *memoryClient) Close() error {
	c.store.Flush()
	return nil
}

func (c *memoryClient) Stats(ctx context.Context) (Stats, error) {
	return Stats{
		Driver: "memory",
		Keys:   int64(c.store.ItemCount()),
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}, nil
}
