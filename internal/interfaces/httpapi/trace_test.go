package httpapi

import (
	"context"
	"net/http/httptest"
	"testing"
)

func TestShouldCreateHTTPAPISpan(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"httpapi.Handler.ManualUpdate": true,
		"httpapi.Handler.RefreshMatch": true,
		"httpapi.RequireAdminToken":    false,
		"httpapi.writeError":           false,
		"usecase.MatchService.Refresh": false,
	}
	for in, want := range tests {
		if got := shouldCreateHTTPAPISpan(in); got != want {
			t.Fatalf("shouldCreateHTTPAPISpan(%q)=%v want=%v", in, got, want)
		}
	}
}

func TestStartSpan_WithoutParentIsNoop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	got, span := startSpan(ctx, "httpapi.Handler.GetMatch")
	defer span.End()

	if got != ctx {
		t.Fatalf("expected context to be returned unchanged")
	}
	if span.SpanContext().IsValid() {
		t.Fatalf("expected no-op span without a parent")
	}
}

func TestMatchIDAttr(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("GET", "/v1/matches/m-42", nil)
	req.SetPathValue("matchID", "m-42")
	attr := matchIDAttr(req)
	if string(attr.Key) != "match.id" || attr.Value.AsString() != "m-42" {
		t.Fatalf("unexpected attribute: %v=%v", attr.Key, attr.Value.AsString())
	}
}

func TestShouldTraceRequest(t *testing.T) {
	t.Parallel()

	for _, path := range []string{"/healthz", "/health", "/livez", "/readyz", "/metrics", " /healthz "} {
		if shouldTraceRequest(path) {
			t.Fatalf("expected no tracing for path %q", path)
		}
	}
	for _, path := range []string{"/v1/matches", "/v1/matches/m-1/events", "/v1/admin/matches/finished", "/"} {
		if !shouldTraceRequest(path) {
			t.Fatalf("expected tracing for path %q", path)
		}
	}
}
