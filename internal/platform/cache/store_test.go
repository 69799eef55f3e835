package cache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestStore_GetOrLoad_UsesSingleFlight(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	var calls atomic.Int32

	loader := func(context.Context) (any, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return "value", nil
	}

	const workers = 32
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)
	errCh := make(chan error, workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			v, err := store.GetOrLoad(context.Background(), "same-key", loader)
			if err != nil {
				errCh <- err
				return
			}
			if got, _ := v.(string); got != "value" {
				errCh <- errUnexpectedValue
			}
		}()
	}

	close(start)
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := calls.Load(); got != 1 {
		t.Fatalf("loader called %d times, want 1", got)
	}
}

func TestStore_GetOrLoad_UsesCachedValueAfterFirstLoad(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	var calls atomic.Int32

	loader := func(context.Context) (any, error) {
		calls.Add(1)
		return "cached", nil
	}

	if _, err := store.GetOrLoad(context.Background(), "k", loader); err != nil {
		t.Fatalf("first GetOrLoad error: %v", err)
	}
	if _, err := store.GetOrLoad(context.Background(), "k", loader); err != nil {
		t.Fatalf("second GetOrLoad error: %v", err)
	}

	if got := calls.Load(); got != 1 {
		t.Fatalf("loader called %d times, want 1", got)
	}
}

var errUnexpectedValue = errors.New("unexpected loaded value")

func TestStore_ExpiredEntriesAreReloaded(t *testing.T) {
	t.Parallel()

	store := NewStore(5 * time.Second)
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	var calls atomic.Int32
	loader := func(context.Context) (any, error) {
		calls.Add(1)
		return "page", nil
	}

	if _, err := store.GetOrLoad(context.Background(), "livescore:/match/1", loader); err != nil {
		t.Fatalf("first GetOrLoad error: %v", err)
	}
	now = now.Add(6 * time.Second)
	if _, err := store.GetOrLoad(context.Background(), "livescore:/match/1", loader); err != nil {
		t.Fatalf("second GetOrLoad error: %v", err)
	}

	if got := calls.Load(); got != 2 {
		t.Fatalf("loader called %d times, want 2", got)
	}
}

func TestStore_LoaderErrorIsNotCached(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	boom := errors.New("upstream down")
	if _, err := store.GetOrLoad(context.Background(), "k", func(context.Context) (any, error) {
		return nil, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected loader error, got %v", err)
	}
	if _, ok := store.Get(context.Background(), "k"); ok {
		t.Fatalf("expected failed load not to be cached")
	}
}

func TestStore_PurgeAndDeletePrefix(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Second)
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	ctx := context.Background()
	store.Set(ctx, "onefootball:a", 1)
	store.Set(ctx, "onefootball:b", 2)
	store.Set(ctx, "livescore:a", 3)

	store.DeletePrefix(ctx, "onefootball:")
	if got := entryCount(store); got != 1 {
		t.Fatalf("expected 1 entry after prefix delete, got %d", got)
	}

	now = now.Add(2 * time.Second)
	if removed := store.Purge(); removed != 1 {
		t.Fatalf("expected 1 purged entry, got %d", removed)
	}
}

func entryCount(s *Store) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func TestStore_RunEvictsEntriesThatAreNeverReadAgain(t *testing.T) {
	t.Parallel()

	store := NewStore(10 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		store.Run(ctx)
	}()

	page := make([]byte, 4<<10)
	for i := 0; i < 1000; i++ {
		store.Set(ctx, "livescore:/match/"+strconv.Itoa(i), page)
	}

	deadline := time.Now().Add(2 * time.Second)
	for entryCount(store) > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected expired pages to be evicted, %d remain", entryCount(store))
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestStore_SetSweepsExpiredEntries(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Second)
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 100; i++ {
		store.Set(ctx, "onefootball:"+strconv.Itoa(i), i)
	}

	now = now.Add(2 * time.Second)
	store.Set(ctx, "onefootball:fresh", "page")
	if got := entryCount(store); got != 1 {
		t.Fatalf("expected only the fresh entry after sweep, got %d", got)
	}
}

func TestStore_NonPositiveTTLDisablesCaching(t *testing.T) {
	t.Parallel()

	for _, ttl := range []time.Duration{0, -time.Second} {
		store := NewStore(ttl)
		var calls atomic.Int32
		loader := func(context.Context) (any, error) {
			calls.Add(1)
			return "page", nil
		}

		for i := 0; i < 3; i++ {
			if _, err := store.GetOrLoad(context.Background(), "k", loader); err != nil {
				t.Fatalf("ttl=%s GetOrLoad error: %v", ttl, err)
			}
		}
		if got := calls.Load(); got != 3 {
			t.Fatalf("ttl=%s loader called %d times, want 3", ttl, got)
		}
		if got := entryCount(store); got != 0 {
			t.Fatalf("ttl=%s expected empty store, got %d entries", ttl, got)
		}

		// Run must not spin or block when caching is off.
		store.Run(context.Background())
	}
}
