package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yourusername/serverrequest/core"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	mw := MetricsWithConfig(MetricsConfig{Registerer: reg, Namespace: "test"})

	ok := mw(func(w http.ResponseWriter, r *core.ServerRequest) error {
		w.WriteHeader(http.StatusOK)
		return nil
	})
	failing := mw(func(w http.ResponseWriter, r *core.ServerRequest) error {
		return core.ErrNotFound
	})

	_ = ok(httptest.NewRecorder(), testRequest(t, core.Options{}))
	_ = ok(httptest.NewRecorder(), testRequest(t, core.Options{}))
	_ = failing(httptest.NewRecorder(), testRequest(t, core.Options{Method: "DELETE"}))
	_ = ok(httptest.NewRecorder(), testRequest(t, core.Options{Method: "PURGE"}))

	count, err := testutil.GatherAndCount(reg, "test_http_requests_total")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 label sets (GET/200, DELETE/404, OTHER/200), got %d", count)
	}

	hist, err := testutil.GatherAndCount(reg, "test_http_request_duration_seconds")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hist != 3 {
		t.Errorf("expected 3 histogram series, got %d", hist)
	}
}

func TestMetricsSharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := MetricsWithConfig(MetricsConfig{Registerer: reg})
	second := MetricsWithConfig(MetricsConfig{Registerer: reg})

	h := func(w http.ResponseWriter, r *core.ServerRequest) error { return nil }
	_ = first(h)(httptest.NewRecorder(), testRequest(t, core.Options{}))
	_ = second(h)(httptest.NewRecorder(), testRequest(t, core.Options{}))

	expected := `
# HELP http_requests_total Number of HTTP requests by method and status.
# TYPE http_requests_total counter
http_requests_total{method="GET",status="200"} 2
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "http_requests_total"); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
}

func TestMethodLabel(t *testing.T) {
	if methodLabel("GET") != "GET" || methodLabel("PROPFIND") != "OTHER" {
		t.Error("unexpected method labels")
	}
}
