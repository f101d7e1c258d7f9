package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestMetricsHandler_Smoke(t *testing.T) {
	ExposeBuildInfo("test")
	ObserveHTTP("GET", "/airfoils/{code}", 200, 0.001)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "app_build_info") || !strings.Contains(body, "http_requests_total") {
		t.Fatalf("metrics payload did not contain expected metric names; got:\n%s", body)
	}
}

func TestInit_CustomRegistry_AndLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	Init(reg)
	Init(reg) // second registration is tolerated

	IncSourceResult("memory", "hit")
	IncGeometryBuild("ok")
	ObserveResample("circle", nil, 0.0002)
	ObserveStoreOp("get", errors.New("boom"), 0.001)

	rr := httptest.NewRecorder()
	promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rr.Body.String()

	for _, want := range []string{
		`source_results_total{outcome="hit",tier="memory"}`,
		`geometry_builds_total{outcome="ok"}`,
		`resample_duration_seconds_bucket{outcome="ok",scheme="circle"`,
		`store_op_total{op="get",result="error"}`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %s in:\n%s", want, body)
		}
	}
}
