package rate

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dropDatabas3/authcore/internal/cache"
)

func newTestLimiter(max int, window time.Duration, at time.Time) (*FixedWindowLimiter, cache.Client) {
	c := cache.NewMemory("")
	l := NewFixedWindowLimiter(c, "", max, window)
	l.now = func() time.Time { return at }
	return l, c
}

func TestAllowCountsWithinWindow(t *testing.T) {
	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	l, _ := newTestLimiter(3, time.Minute, t0)
	ctx := context.Background()

	for i, wantRemaining := range []int64{2, 1, 0} {
		res, err := l.Allow(ctx, "client")
		if err != nil {
			t.Fatalf("Allow #%d: %v", i+1, err)
		}
		if !res.Allowed {
			t.Fatalf("Allow #%d: denied, want allowed", i+1)
		}
		if res.Remaining != wantRemaining {
			t.Errorf("Allow #%d: Remaining = %d, want %d", i+1, res.Remaining, wantRemaining)
		}
		if res.CurrentHits != int64(i+1) {
			t.Errorf("Allow #%d: CurrentHits = %d, want %d", i+1, res.CurrentHits, i+1)
		}
	}

	res, err := l.Allow(ctx, "client")
	if err != nil {
		t.Fatalf("Allow over limit: %v", err)
	}
	if res.Allowed {
		t.Fatal("4th hit allowed, want denied")
	}
	if res.Remaining != 0 {
		t.Errorf("Remaining = %d, want 0", res.Remaining)
	}
	if res.RetryAfter <= 0 || res.RetryAfter > time.Minute {
		t.Errorf("RetryAfter = %v, want within (0, 1m]", res.RetryAfter)
	}
}

func TestWindowRollsOver(t *testing.T) {
	t0 := time.Date(2026, 1, 2, 3, 4, 59, 0, time.UTC)
	l, _ := newTestLimiter(1, time.Minute, t0)
	ctx := context.Background()

	if res, _ := l.Allow(ctx, "client"); !res.Allowed {
		t.Fatal("first hit denied")
	}
	if res, _ := l.Allow(ctx, "client"); res.Allowed {
		t.Fatal("second hit in same window allowed")
	}

	// Two seconds later the minute boundary has passed.
	l.now = func() time.Time { return t0.Add(2 * time.Second) }
	res, err := l.Allow(ctx, "client")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Allowed {
		t.Fatal("hit in fresh window denied")
	}
	if res.CurrentHits != 1 {
		t.Errorf("CurrentHits = %d, want 1 in fresh window", res.CurrentHits)
	}
}

func TestKeysAreIsolatedAndSanitized(t *testing.T) {
	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	l, c := newTestLimiter(1, time.Minute, t0)
	ctx := context.Background()

	if res, _ := l.Allow(ctx, "alice"); !res.Allowed {
		t.Fatal("alice first hit denied")
	}
	if res, _ := l.Allow(ctx, "bob"); !res.Allowed {
		t.Fatal("bob first hit denied, keys not isolated")
	}

	if _, err := l.Allow(ctx, "spaced key"); err != nil {
		t.Fatal(err)
	}
	winStart := t0.Truncate(time.Minute).Unix()
	ok, err := c.Exists(ctx, fmt.Sprintf("rl:spaced_key:%d", winStart))
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("sanitized window key not found in backend")
	}
}

func TestWindowTTLReflectsRemainingWindow(t *testing.T) {
	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	l, _ := newTestLimiter(10, time.Minute, t0)

	res, err := l.Allow(context.Background(), "client")
	if err != nil {
		t.Fatal(err)
	}
	if res.WindowTTL != 55*time.Second {
		t.Errorf("WindowTTL = %v, want 55s", res.WindowTTL)
	}
}
