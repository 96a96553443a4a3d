// Package rate implements a fixed-window request limiter over the cache
// backend, so memory and Redis deployments share one implementation.
package rate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/authcore/internal/cache"
)

type Result struct {
	Allowed     bool
	Remaining   int64
	RetryAfter  time.Duration
	WindowTTL   time.Duration
	CurrentHits int64
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// FixedWindowLimiter counts hits per key in fixed windows (INCR + EXPIRE).
type FixedWindowLimiter struct {
	Cache  cache.Client
	Prefix string
	Max    int64
	Window time.Duration

	// now is overridable in tests.
	now func() time.Time
}

func NewFixedWindowLimiter(c cache.Client, prefix string, max int, window time.Duration) *FixedWindowLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &FixedWindowLimiter{
		Cache:  c,
		Prefix: prefix,
		Max:    int64(max),
		Window: window,
		now:    time.Now,
	}
}

func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := l.now().UTC()
	winStart := now.Truncate(l.Window)
	winKey := fmt.Sprintf("%s%s:%d", l.Prefix, strings.ReplaceAll(key, " ", "_"), winStart.Unix())

	hits, err := l.Cache.Incr(ctx, winKey, l.Window)
	if err != nil {
		return Result{}, err
	}

	// The key embeds the window start, so the remaining window is
	// computable without asking the backend for a TTL.
	windowTTL := winStart.Add(l.Window).Sub(now)

	allowed := hits <= l.Max
	remaining := l.Max - hits
	if remaining < 0 {
		remaining = 0
	}

	res := Result{
		Allowed:     allowed,
		Remaining:   remaining,
		CurrentHits: hits,
		WindowTTL:   windowTTL,
	}
	if !allowed {
		res.RetryAfter = windowTTL
	}
	return res, nil
}
