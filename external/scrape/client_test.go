package scrape

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/score-tracker/internal/platform/logging"
	"github.com/riskibarqy/score-tracker/internal/platform/resilience"
)

type stubLimiter struct {
	allow bool
	err   error
	calls atomic.Int32
}

func (l *stubLimiter) Allow(context.Context, string) (bool, error) {
	l.calls.Add(1)
	return l.allow, l.err
}

func newTestClient(cfg ClientConfig) *Client {
	cfg.Logger = logging.NewNop()
	c := NewClient("LIVE_SCORE", cfg)
	c.backoff = func(int) time.Duration { return 0 }
	return c
}

func TestClientFetch_SendsUserAgentAndCachesPage(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if got := r.Header.Get("User-Agent"); got != "score-tracker-test" {
			t.Errorf("unexpected user agent: %q", got)
		}
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	c := newTestClient(ClientConfig{UserAgent: "score-tracker-test", PageCacheTTL: time.Minute})

	for i := 0; i < 3; i++ {
		body, err := c.Fetch(context.Background(), srv.URL+"/match/1")
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if !strings.Contains(string(body), "ok") {
			t.Fatalf("unexpected body: %s", body)
		}
	}
	if hits.Load() != 1 {
		t.Fatalf("expected cached page to be reused, got %d requests", hits.Load())
	}
}

func TestClientFetch_NotFoundIsNotRetried(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := newTestClient(ClientConfig{MaxRetries: 2})
	_, err := c.Fetch(context.Background(), srv.URL)
	if !stderrors.Is(err, ErrPageNotFound) {
		t.Fatalf("expected ErrPageNotFound, got %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected a single request, got %d", hits.Load())
	}
}

func TestClientFetch_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	c := newTestClient(ClientConfig{MaxRetries: 1})
	body, err := c.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(body) != "recovered" || hits.Load() != 2 {
		t.Fatalf("unexpected result body=%q hits=%d", body, hits.Load())
	}
}

func TestClientFetch_OpenBreakerSkipsRequest(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	var transitions []resilience.CircuitState
	c := newTestClient(ClientConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 1,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
		OnStateChange: func(_ string, _, to resilience.CircuitState) {
			transitions = append(transitions, to)
		},
	})

	if _, err := c.Fetch(context.Background(), srv.URL); err == nil {
		t.Fatalf("expected first fetch to fail")
	}
	_, err := c.Fetch(context.Background(), srv.URL)
	if !stderrors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected open breaker to skip the request, got %d hits", hits.Load())
	}
	if len(transitions) != 1 || transitions[0] != resilience.CircuitStateOpen {
		t.Fatalf("unexpected breaker transitions: %v", transitions)
	}
}

func TestClientFetch_BlockedResponsesOpenBreaker(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusForbidden, http.StatusTooManyRequests} {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			w.WriteHeader(status)
		}))

		c := newTestClient(ClientConfig{
			MaxRetries: 1,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          true,
				FailureThreshold: 2,
				OpenTimeout:      time.Minute,
				HalfOpenMaxReq:   1,
			},
		})

		for i := 0; i < 2; i++ {
			if _, err := c.Fetch(context.Background(), srv.URL); err == nil {
				t.Fatalf("status=%d: expected fetch %d to fail", status, i)
			}
		}
		before := hits.Load()
		_, err := c.Fetch(context.Background(), srv.URL)
		srv.Close()
		if !stderrors.Is(err, resilience.ErrCircuitOpen) {
			t.Fatalf("status=%d: expected ErrCircuitOpen after repeated blocks, got %v", status, err)
		}
		if hits.Load() != before {
			t.Fatalf("status=%d: expected open breaker to skip the request", status)
		}
	}
}

func TestClientFetch_ForbiddenIsNotRetried(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := newTestClient(ClientConfig{MaxRetries: 2})
	_, err := c.Fetch(context.Background(), srv.URL)
	if !isCircuitFailure(err) {
		t.Fatalf("expected 403 to count as a source failure, got %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected a single request, got %d", hits.Load())
	}
}

func TestClientFetch_RateLimited(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Errorf("limited request must not reach the server")
	}))
	defer srv.Close()

	limiter := &stubLimiter{allow: false}
	c := newTestClient(ClientConfig{Limiter: limiter})

	_, err := c.Fetch(context.Background(), srv.URL)
	if !stderrors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if limiter.calls.Load() != 1 {
		t.Fatalf("expected limiter to be consulted once, got %d", limiter.calls.Load())
	}
}

func TestClientFetch_LimiterErrorFailsOpen(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("page"))
	}))
	defer srv.Close()

	c := newTestClient(ClientConfig{Limiter: &stubLimiter{err: stderrors.New("redis down")}})
	if _, err := c.Fetch(context.Background(), srv.URL); err != nil {
		t.Fatalf("expected limiter outage to allow the request, got %v", err)
	}
}

func TestClientFetch_InvalidURL(t *testing.T) {
	t.Parallel()

	c := newTestClient(ClientConfig{})
	for _, raw := range []string{"", "ftp://example.com/x", "not a url", "https://"} {
		if _, err := c.Fetch(context.Background(), raw); !stderrors.Is(err, ErrInvalidPageURL) {
			t.Fatalf("expected ErrInvalidPageURL for %q, got %v", raw, err)
		}
	}
}

func TestAbbreviateBody(t *testing.T) {
	t.Parallel()

	got := abbreviateBody([]byte("  <html>\n\n   <body>\tdown</body>\n</html>  "))
	if got != "<html> <body> down</body> </html>" {
		t.Fatalf("unexpected preview: %q", got)
	}

	long := abbreviateBody([]byte(strings.Repeat("a", 500)))
	if len(long) != bodyPreviewLimit+3 || !strings.HasSuffix(long, "...") {
		t.Fatalf("unexpected long preview length=%d", len(long))
	}
}
