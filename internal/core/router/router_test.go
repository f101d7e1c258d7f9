package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/mohammed-shakir/airfoil-geometry/internal/airfoil"
	"github.com/mohammed-shakir/airfoil-geometry/internal/core/config"
	"github.com/mohammed-shakir/airfoil-geometry/internal/core/model"
	"github.com/mohammed-shakir/airfoil-geometry/internal/popularity"
	"github.com/mohammed-shakir/airfoil-geometry/internal/source"
	"github.com/mohammed-shakir/airfoil-geometry/internal/source/uiuc"
)

func seligDoc(code string) model.Document {
	return model.Document{
		Code: code,
		X:    []float64{1, 0.8, 0.6, 0.4, 0.2, 0.1, 0.05, 0, 0.05, 0.1, 0.2, 0.4, 0.6, 0.8, 1},
		Y:    []float64{0, 0.02, 0.035, 0.045, 0.045, 0.035, 0.025, 0, -0.02, -0.03, -0.04, -0.04, -0.03, -0.015, 0},
	}
}

type fetchCounter struct{ n atomic.Int32 }

func (f *fetchCounter) source() source.Source {
	return source.Func(func(_ context.Context, code string) (model.Document, error) {
		f.n.Add(1)
		switch code {
		case "missing":
			return model.Document{}, fmt.Errorf("%w: %s", model.ErrNotFound, code)
		case "down":
			return model.Document{}, fmt.Errorf("%w: dial tcp", model.ErrSourceUnavailable)
		case "broken":
			return model.Document{Code: code, X: []float64{1, 0, 1}, Y: []float64{0, 0, 0}}, nil
		}
		return seligDoc(code), nil
	})
}

type staticCatalog uiuc.Index

func (c staticCatalog) Index(context.Context) (uiuc.Index, error) { return uiuc.Index(c), nil }

type mapCache struct {
	mu   sync.Mutex
	m    map[string][]byte
	puts int
}

func (c *mapCache) GetResampled(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.m[key]
	return b, ok, nil
}

func (c *mapCache) PutResampled(_ context.Context, _, key string, body []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m == nil {
		c.m = map[string][]byte{}
	}
	c.m[key] = body
	c.puts++
	return nil
}

func newServer(t *testing.T, h *Handler) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	h.Mount(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newHandler(fc *fetchCounter) *Handler {
	return &Handler{
		Loader:   &airfoil.Loader{Source: fc.source()},
		Catalog:  staticCatalog{"a": {"ag03"}, "e": {"e387", "e423"}},
		Defaults: config.ResampleCfg{Points: 100, Scheme: "chord", Ratio: 0.9, MaxPoints: 400, CacheTTL: time.Minute},
	}
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	var sb bytes.Buffer
	if _, err := sb.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, sb.String()
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("fetch: %w", model.ErrNotFound), http.StatusNotFound},
		{model.ErrInvalidSpacingParameters, http.StatusBadRequest},
		{model.ErrMalformedGeometry, http.StatusUnprocessableEntity},
		{model.ErrSourceUnavailable, http.StatusBadGateway},
		{model.ErrInterpolationDomain, http.StatusInternalServerError},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v)=%d want %d", tt.err, got, tt.want)
		}
	}
}

func TestProfile(t *testing.T) {
	srv := newServer(t, newHandler(&fetchCounter{}))
	resp, body := get(t, srv.URL+"/airfoils/test0010")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, body)
	}
	var p profileJSON
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Code != "test0010" || p.Split != "traversal" {
		t.Fatalf("code=%q split=%q", p.Code, p.Split)
	}
	c := p.Contour
	if c[0] != [2]float64{1, 0} || c[len(c)-1] != [2]float64{1, 0} {
		t.Fatalf("contour not closed: %v .. %v", c[0], c[len(c)-1])
	}
	if p.SignedArea >= 0 {
		t.Fatalf("signed area=%g want negative", p.SignedArea)
	}
}

func TestResampled_UniformChord(t *testing.T) {
	srv := newServer(t, newHandler(&fetchCounter{}))
	resp, body := get(t, srv.URL+"/airfoils/test0010/resampled?n=10&scheme=chord&ratio=1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, body)
	}
	var p profileJSON
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Points != 10 || p.Scheme != "chord" || p.Ratio != 1 {
		t.Fatalf("params echoed as n=%d scheme=%q ratio=%g", p.Points, p.Scheme, p.Ratio)
	}
	var xs []float64
	for _, pt := range p.Suction {
		xs = append(xs, pt[0])
	}
	want := []float64{0, 0.25, 0.5, 0.75, 1}
	if diff := cmp.Diff(want, xs, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Fatalf("suction xs (-want +got):\n%s", diff)
	}
	if len(p.Contour) != 2*len(want)-1 {
		t.Fatalf("contour len=%d", len(p.Contour))
	}
}

func TestErrorStatus(t *testing.T) {
	srv := newServer(t, newHandler(&fetchCounter{}))
	tests := []struct {
		path string
		want int
	}{
		{"/airfoils/missing", http.StatusNotFound},
		{"/airfoils/down", http.StatusBadGateway},
		{"/airfoils/broken", http.StatusUnprocessableEntity},
		{"/airfoils/e387/resampled?n=abc", http.StatusBadRequest},
		{"/airfoils/e387/resampled?n=2", http.StatusBadRequest},
		{"/airfoils/e387/resampled?n=401", http.StatusBadRequest},
		{"/airfoils/e387/dat?n=2000000000", http.StatusBadRequest},
		{"/airfoils/e387/resampled?scheme=spiral", http.StatusBadRequest},
		{"/airfoils/e387/resampled?ratio=-1", http.StatusBadRequest},
		{"/airfoils/e387/dat?ratio=x", http.StatusBadRequest},
		{"/airfoils/missing/svg", http.StatusNotFound},
		{"/catalog?bucket=z", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := get(t, srv.URL+tt.path)
			if resp.StatusCode != tt.want {
				t.Fatalf("status=%d want %d body=%s", resp.StatusCode, tt.want, body)
			}
		})
	}
}

func TestResampled_PointLimit(t *testing.T) {
	fc := &fetchCounter{}
	srv := newServer(t, newHandler(fc))

	resp, body := get(t, srv.URL+"/airfoils/e387/resampled?n=2000000000")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status=%d want 400 body=%s", resp.StatusCode, body)
	}
	if !strings.Contains(body, "exceeds the limit of 400") {
		t.Fatalf("body=%s", body)
	}
	if got := fc.n.Load(); got != 0 {
		t.Fatalf("oversized request reached the source %d times", got)
	}

	resp, body = get(t, srv.URL+"/airfoils/e387/resampled?n=400")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("n at the limit: status=%d body=%s", resp.StatusCode, body)
	}
}

func TestResampled_CachesHotCodes(t *testing.T) {
	fc := &fetchCounter{}
	cache := &mapCache{}
	h := newHandler(fc)
	h.Cache = cache
	h.Gate = &popularity.Gate{Tracker: popularity.New(time.Minute), Threshold: 0}
	srv := newServer(t, h)

	_, first := get(t, srv.URL+"/airfoils/e387/resampled?n=20")
	_, second := get(t, srv.URL+"/airfoils/e387/resampled?n=20")
	if first != second {
		t.Fatal("cached body differs from computed body")
	}
	if got := fc.n.Load(); got != 1 {
		t.Fatalf("source fetched %d times, want 1", got)
	}
	if cache.puts != 1 {
		t.Fatalf("cache puts=%d want 1", cache.puts)
	}
}

func TestResampled_ColdCodesSkipCache(t *testing.T) {
	fc := &fetchCounter{}
	cache := &mapCache{}
	h := newHandler(fc)
	h.Cache = cache
	h.Gate = &popularity.Gate{Tracker: popularity.New(time.Hour), Threshold: 100}
	srv := newServer(t, h)

	for range 3 {
		if resp, body := get(t, srv.URL+"/airfoils/e387/resampled"); resp.StatusCode != http.StatusOK {
			t.Fatalf("status=%d body=%s", resp.StatusCode, body)
		}
	}
	if cache.puts != 0 || fc.n.Load() != 3 {
		t.Fatalf("puts=%d fetches=%d", cache.puts, fc.n.Load())
	}
}

func TestDat(t *testing.T) {
	srv := newServer(t, newHandler(&fetchCounter{}))
	resp, body := get(t, srv.URL+"/airfoils/test0010/dat?n=10&ratio=1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, body)
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain") {
		t.Fatalf("content-type=%q", resp.Header.Get("Content-Type"))
	}
	lines := strings.Split(strings.TrimSpace(body), "\n")
	if lines[0] != "test0010" || len(lines) != 1+9 {
		t.Fatalf("dat lines=%q", lines)
	}
	doc := uiuc.ParseDat("test0010", []byte(body))
	if doc.X[0] != 1 || doc.X[4] != 0 {
		t.Fatalf("round trip x=%v", doc.X)
	}
}

func TestSVG(t *testing.T) {
	srv := newServer(t, newHandler(&fetchCounter{}))
	resp, body := get(t, srv.URL+"/airfoils/test0010/svg")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, body)
	}
	if resp.Header.Get("Content-Type") != "image/svg+xml" || !strings.Contains(body, `<path d="M1.000000 0.000000`) {
		t.Fatalf("unexpected svg (%s):\n%s", resp.Header.Get("Content-Type"), body)
	}
}

func TestCatalog(t *testing.T) {
	srv := newServer(t, newHandler(&fetchCounter{}))
	_, body := get(t, srv.URL+"/catalog")
	var out catalogJSON
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Buckets != 2 || out.Airfoils != 3 {
		t.Fatalf("catalog=%+v", out)
	}

	_, body = get(t, srv.URL+"/catalog?bucket=e")
	out = catalogJSON{}
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(uiuc.Index{"e": {"e387", "e423"}}, out.Index); diff != "" {
		t.Fatalf("bucket filter (-want +got):\n%s", diff)
	}
}
