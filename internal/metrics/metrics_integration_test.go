package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mohammed-shakir/airfoil-geometry/internal/core/observability"
)

func assertHasMetricLine(t *testing.T, body, metric string, wantLabels ...string) {
	t.Helper()
	for ln := range strings.SplitSeq(body, "\n") {
		if !strings.HasPrefix(ln, metric+"{") {
			continue
		}
		ok := true
		for _, s := range wantLabels {
			if !strings.Contains(ln, s) {
				ok = false
				break
			}
		}
		if ok && (len(ln) > 0 && ln[len(ln)-1] >= '0' && ln[len(ln)-1] <= '9') {
			return
		}
	}
	t.Fatalf("expected a %s line with labels %v; got:\n%s", metric, wantLabels, body)
}

func Test_AppMetrics_CustomRegistry_Smoke(t *testing.T) {
	p := Init(Config{Build: BuildInfo{Version: "test"}})

	observability.ObserveHTTP("GET", "/airfoils/{code}", 200, 0.004)
	observability.ObserveUpstreamLatency("uiuc", nil, 0.12)
	observability.ObserveStoreOp("get", nil, 0.002)
	observability.IncResampleCache("hit")
	observability.SetHotCodes(42)
	observability.IncKafkaConsumerError("decode")
	observability.IncClone("failed")
	observability.ObserveResample("chord", errors.New("bad ratio"), 0.0001)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	mustContain := []string{
		`http_request_duration_seconds_bucket`,
		`redis_operation_duration_seconds_count`,
		`upstream_latency_seconds_count{outcome="ok",upstream="uiuc"}`,
		`popularity_hot_codes 42`,
	}
	for _, s := range mustContain {
		if !strings.Contains(body, s) {
			t.Fatalf("expected metrics to contain %q;\n---\n%s", s, body)
		}
	}

	assertHasMetricLine(t, body, "http_requests_total", `route="/airfoils/{code}"`, `status="200"`)
	assertHasMetricLine(t, body, "resample_cache_total", `result="hit"`)
	assertHasMetricLine(t, body, "kafka_consumer_errors_total", `kind="decode"`)
	assertHasMetricLine(t, body, "catalog_clone_airfoils_total", `outcome="failed"`)
	assertHasMetricLine(t, body, "resample_duration_seconds_count", `outcome="error"`, `scheme="chord"`)
	assertHasMetricLine(t, body, "app_build_info", `version="test"`)
}
