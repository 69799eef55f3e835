package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/riskibarqy/score-tracker/internal/config"
	"github.com/riskibarqy/score-tracker/internal/platform/logging"
)

func TestProfilingDisabledReturnsNoopStops(t *testing.T) {
	t.Parallel()

	cfg := config.Config{}
	logger := logging.NewNop()

	stopProfiling, err := InitPyroscope(cfg, logger)
	if err != nil {
		t.Fatalf("init pyroscope: %v", err)
	}
	if err := stopProfiling(); err != nil {
		t.Fatalf("stop pyroscope: %v", err)
	}

	stopPprof, err := StartPprofServer(cfg, logger)
	if err != nil {
		t.Fatalf("start pprof: %v", err)
	}
	if err := stopPprof(context.Background()); err != nil {
		t.Fatalf("stop pprof: %v", err)
	}
}

func TestPprofServerLifecycle(t *testing.T) {
	t.Parallel()

	stop, err := StartPprofServer(config.Config{PprofEnabled: true, PprofAddr: "127.0.0.1:0"}, logging.NewNop())
	if err != nil {
		t.Fatalf("start pprof: %v", err)
	}
	if err := stop(context.Background()); err != nil {
		t.Fatalf("stop pprof: %v", err)
	}
}

func TestPprofHandlerServesIndex(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	pprofHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "goroutine") {
		t.Fatalf("expected profile index listing")
	}
}
