package ratelimit

import (
	"testing"
	"time"
)

func TestRedisLimiter_WindowKey(t *testing.T) {
	t.Parallel()

	l := NewRedisLimiter(nil, "scrape", 30)
	start := time.Date(2026, 4, 18, 15, 30, 0, 0, time.UTC)

	first := l.windowKey("LIVE_SCORE", start)
	sameWindow := l.windowKey("LIVE_SCORE", start.Add(59*time.Second))
	nextWindow := l.windowKey("LIVE_SCORE", start.Add(time.Minute))
	otherSource := l.windowKey("ONE_FOOTBALL", start)

	if first != sameWindow {
		t.Fatalf("expected same bucket inside one minute: %s vs %s", first, sameWindow)
	}
	if first == nextWindow {
		t.Fatalf("expected a new bucket after one minute")
	}
	if first == otherSource {
		t.Fatalf("expected sources to be counted separately")
	}
	if want := "scrape:LIVE_SCORE:"; first[:len(want)] != want {
		t.Fatalf("unexpected key prefix: %s", first)
	}
}

func TestRedisLimiter_WindowKeyIgnoresZone(t *testing.T) {
	t.Parallel()

	l := NewRedisLimiter(nil, "scrape", 30)
	at := time.Date(2026, 4, 18, 15, 30, 10, 0, time.UTC)
	jakarta := time.FixedZone("WIB", 7*60*60)

	if l.windowKey("k", at) != l.windowKey("k", at.In(jakarta)) {
		t.Fatalf("expected bucket to depend on the instant only")
	}
}
