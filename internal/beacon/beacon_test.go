package beacon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"hitbeacon/internal/tracker"
)

var _ tracker.Beacon = (*HTTP)(nil)

type hitRecorder struct {
	mu       sync.Mutex
	methods  []string
	queries  []string
	response int
}

func (r *hitRecorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	r.methods = append(r.methods, req.Method)
	r.queries = append(r.queries, req.URL.RawQuery)
	status := r.response
	r.mu.Unlock()
	if status == 0 {
		status = http.StatusNoContent
	}
	w.WriteHeader(status)
}

func (r *hitRecorder) snapshot() ([]string, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.methods...), append([]string(nil), r.queries...)
}

func TestHTTPSendPostsAndDrainsOnClose(t *testing.T) {
	recorder := &hitRecorder{}
	server := httptest.NewServer(recorder)
	defer server.Close()

	registry := prometheus.NewRegistry()
	b, err := New(Options{Timeout: time.Second, Registerer: registry})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	b.Send(server.URL + "/c?appID=A1&hitType=first_visit")
	b.Send(server.URL + "/c?appID=A1&hitType=click")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.Close(ctx); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	methods, queries := recorder.snapshot()
	if len(methods) != 2 {
		t.Fatalf("unexpected request count: got=%d want=2", len(methods))
	}
	for _, method := range methods {
		if method != http.MethodPost {
			t.Fatalf("unexpected method: %s", method)
		}
	}
	seen := map[string]bool{}
	for _, query := range queries {
		seen[query] = true
	}
	if !seen["appID=A1&hitType=first_visit"] || !seen["appID=A1&hitType=click"] {
		t.Fatalf("unexpected queries: %v", queries)
	}
	if got := counterValue(t, registry, resultSent); got != 2 {
		t.Fatalf("unexpected sent count: got=%v want=2", got)
	}
}

func TestHTTPSendGet(t *testing.T) {
	recorder := &hitRecorder{response: http.StatusInternalServerError}
	server := httptest.NewServer(recorder)
	defer server.Close()

	b, err := New(Options{Method: "get"})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	b.Send(server.URL + "/c?hitType=page_view")
	if err := b.Close(context.Background()); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	methods, _ := recorder.snapshot()
	if len(methods) != 1 || methods[0] != http.MethodGet {
		t.Fatalf("unexpected methods: %v", methods)
	}
}

func TestHTTPFailuresAreCountedNotSurfaced(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	target := server.URL + "/c?hitType=click"
	server.Close()

	registry := prometheus.NewRegistry()
	b, err := New(Options{Timeout: 500 * time.Millisecond, Registerer: registry})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	b.Send(target)
	if err := b.Close(context.Background()); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if got := counterValue(t, registry, resultFailed); got != 1 {
		t.Fatalf("unexpected failed count: got=%v want=1", got)
	}
}

func TestHTTPSendAfterCloseIsDropped(t *testing.T) {
	recorder := &hitRecorder{}
	server := httptest.NewServer(recorder)
	defer server.Close()

	registry := prometheus.NewRegistry()
	b, err := New(Options{Registerer: registry})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := b.Close(context.Background()); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	b.Send(server.URL + "/c?hitType=late")

	if methods, _ := recorder.snapshot(); len(methods) != 0 {
		t.Fatalf("expected no requests after close, got=%v", methods)
	}
	if got := counterValue(t, registry, resultDropped); got != 1 {
		t.Fatalf("unexpected dropped count: got=%v want=1", got)
	}
}

func TestHTTPCloseDeadlineAbortsSlowSends(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	b, err := New(Options{Timeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	b.Send(server.URL + "/c?hitType=slow")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := b.Close(ctx); err == nil {
		t.Fatalf("expected drain deadline error")
	}
}

func TestNewRejectsUnsupportedMethod(t *testing.T) {
	if _, err := New(Options{Method: "PUT"}); err == nil {
		t.Fatalf("expected error for PUT")
	}
}

func counterValue(t *testing.T, registry *prometheus.Registry, result string) float64 {
	t.Helper()
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != "hitbeacon_beacons_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "result" && label.GetValue() == result {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
