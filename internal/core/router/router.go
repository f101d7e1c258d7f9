// Package router serves airfoil geometry over HTTP.
package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/airfoil-geometry/internal/airfoil"
	"github.com/mohammed-shakir/airfoil-geometry/internal/cache/keys"
	"github.com/mohammed-shakir/airfoil-geometry/internal/core/config"
	"github.com/mohammed-shakir/airfoil-geometry/internal/core/model"
	"github.com/mohammed-shakir/airfoil-geometry/internal/core/observability"
	"github.com/mohammed-shakir/airfoil-geometry/internal/geometry/spacing"
	mylog "github.com/mohammed-shakir/airfoil-geometry/internal/logger"
	"github.com/mohammed-shakir/airfoil-geometry/internal/popularity"
	"github.com/mohammed-shakir/airfoil-geometry/internal/source/uiuc"
)

type GeometryLoader interface {
	Load(ctx context.Context, code string) (*airfoil.Geometry, error)
}

type Catalog interface {
	Index(ctx context.Context) (uiuc.Index, error)
}

// ResampleCache stores encoded resampled profiles of popular airfoils.
type ResampleCache interface {
	GetResampled(ctx context.Context, key string) ([]byte, bool, error)
	PutResampled(ctx context.Context, code, key string, body []byte, ttl time.Duration) error
}

type Handler struct {
	Loader  GeometryLoader
	Catalog Catalog
	// Cache and Gate are optional. Resampled bodies are cached only when
	// both are set and the gate reports the code as hot.
	Cache    ResampleCache
	Gate     *popularity.Gate
	Defaults config.ResampleCfg
	Log      *slog.Logger
}

// Mount registers the API routes on r.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/catalog", h.instrument("/catalog", h.catalog))
	r.Get("/airfoils/{code}", h.instrument("/airfoils/{code}", h.profile))
	r.Get("/airfoils/{code}/resampled", h.instrument("/airfoils/{code}/resampled", h.resampled))
	r.Get("/airfoils/{code}/dat", h.instrument("/airfoils/{code}/dat", h.dat))
	r.Get("/airfoils/{code}/svg", h.instrument("/airfoils/{code}/svg", h.svg))
}

type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func (h *Handler) instrument(route string, fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		if err := fn(sw, r); err != nil {
			h.writeError(sw, r, err)
		}
		observability.ObserveHTTP(r.Method, route, sw.code, time.Since(start).Seconds())
	}
}

// StatusFor maps a domain error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidSpacingParameters):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrMalformedGeometry):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrSourceUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := StatusFor(err)
	lvl := slog.LevelDebug
	if code >= http.StatusInternalServerError {
		lvl = slog.LevelError
	}
	h.log().Log(r.Context(), lvl, "request failed", "path", r.URL.Path, "status", code, "err", err)
	http.Error(w, err.Error(), code)
}

func (h *Handler) log() *slog.Logger {
	if h.Log == nil {
		return slog.Default()
	}
	return h.Log
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

type catalogJSON struct {
	Buckets  int        `json:"buckets"`
	Airfoils int        `json:"airfoils"`
	Index    uiuc.Index `json:"index"`
}

func (h *Handler) catalog(w http.ResponseWriter, r *http.Request) error {
	idx, err := h.Catalog.Index(r.Context())
	if err != nil {
		return fmt.Errorf("catalog index: %w", err)
	}
	if b := strings.TrimSpace(r.URL.Query().Get("bucket")); b != "" {
		idx = uiuc.Index{b: idx[b]}
		if idx[b] == nil {
			return fmt.Errorf("%w: bucket %q", model.ErrNotFound, b)
		}
	}
	return writeJSON(w, catalogJSON{Buckets: len(idx.Buckets()), Airfoils: idx.Len(), Index: idx})
}

type profileJSON struct {
	Code       string       `json:"code"`
	Split      string       `json:"split"`
	Points     int          `json:"points,omitempty"`
	Scheme     string       `json:"scheme,omitempty"`
	Ratio      float64      `json:"ratio,omitempty"`
	SignedArea float64      `json:"signed_area"`
	Suction    [][2]float64 `json:"suction"`
	Pressure   [][2]float64 `json:"pressure"`
	Contour    [][2]float64 `json:"contour"`
}

func profileBody(g *airfoil.Geometry, p model.Profile) profileJSON {
	return profileJSON{
		Code:       g.Code(),
		Split:      g.SplitMethod().String(),
		SignedArea: p.Contour.SignedArea(),
		Suction:    pairs(p.Suction.Points()),
		Pressure:   pairs(p.Pressure.Points()),
		Contour:    pairs(p.Contour),
	}
}

func pairs(pts []model.Point) [][2]float64 {
	out := make([][2]float64, len(pts))
	for i, p := range pts {
		out[i] = [2]float64{p.X, p.Y}
	}
	return out
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) error {
	ctx, code := codeParam(r)
	g, err := h.Loader.Load(ctx, code)
	if err != nil {
		return err
	}
	return writeJSON(w, profileBody(g, g.Parsed()))
}

func (h *Handler) resampled(w http.ResponseWriter, r *http.Request) error {
	ctx, code := codeParam(r)
	p, err := h.resampleParams(r)
	if err != nil {
		return err
	}

	var key string
	if h.Cache != nil && h.Gate != nil && h.Gate.Observe(code) {
		key = keys.Resampled(code, p.n, string(p.scheme), p.ratio)
		body, ok, err := h.Cache.GetResampled(ctx, key)
		switch {
		case err != nil:
			h.log().WarnContext(ctx, "resample cache read failed", "key", key, "err", err)
		case ok:
			observability.IncResampleCache("hit")
			return writeJSONBytes(w, body)
		}
	}

	g, res, err := h.resample(ctx, code, p)
	if err != nil {
		return err
	}
	out := profileBody(g, res.Profile)
	out.Points, out.Scheme, out.Ratio = res.Points, string(res.Scheme), res.Ratio
	body, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	if key == "" {
		observability.IncResampleCache("skip")
	} else {
		observability.IncResampleCache("miss")
		if err := h.Cache.PutResampled(ctx, code, key, body, h.Defaults.CacheTTL); err != nil {
			h.log().WarnContext(ctx, "resample cache write failed", "key", key, "err", err)
		}
	}
	return writeJSONBytes(w, body)
}

func (h *Handler) dat(w http.ResponseWriter, r *http.Request) error {
	ctx, code := codeParam(r)
	g, contour, err := h.contour(ctx, code, r)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := uiuc.WriteDat(&buf, g.Code(), contour); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", g.Code()+".dat"))
	_, err = w.Write(buf.Bytes())
	return err
}

func (h *Handler) svg(w http.ResponseWriter, r *http.Request) error {
	ctx, code := codeParam(r)
	g, contour, err := h.contour(ctx, code, r)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := airfoil.WriteSVG(&buf, g.Code(), contour); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, err = w.Write(buf.Bytes())
	return err
}

// contour returns the parsed contour, or the resampled one when any
// resample parameter is present in the query.
func (h *Handler) contour(ctx context.Context, code string, r *http.Request) (*airfoil.Geometry, model.Contour, error) {
	q := r.URL.Query()
	if !q.Has("n") && !q.Has("scheme") && !q.Has("ratio") {
		g, err := h.Loader.Load(ctx, code)
		if err != nil {
			return nil, nil, err
		}
		return g, g.Contour(), nil
	}
	p, err := h.resampleParams(r)
	if err != nil {
		return nil, nil, err
	}
	g, res, err := h.resample(ctx, code, p)
	if err != nil {
		return nil, nil, err
	}
	return g, res.Profile.Contour, nil
}

type resampleParams struct {
	n      int
	scheme spacing.Scheme
	ratio  float64
}

func (h *Handler) resampleParams(r *http.Request) (resampleParams, error) {
	q := r.URL.Query()
	p := resampleParams{n: h.Defaults.Points, ratio: h.Defaults.Ratio}
	if v := q.Get("n"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, fmt.Errorf("%w: n=%q is not an integer", model.ErrInvalidSpacingParameters, v)
		}
		if m := h.Defaults.MaxPoints; m > 0 && n > m {
			return p, fmt.Errorf("%w: n=%d exceeds the limit of %d", model.ErrInvalidSpacingParameters, n, m)
		}
		p.n = n
	}
	scheme := h.Defaults.Scheme
	if v := q.Get("scheme"); v != "" {
		scheme = v
	}
	s, err := spacing.ParseScheme(scheme)
	if err != nil {
		return p, err
	}
	p.scheme = s
	if v := q.Get("ratio"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return p, fmt.Errorf("%w: ratio=%q is not a number", model.ErrInvalidSpacingParameters, v)
		}
		p.ratio = f
	}
	return p, nil
}

func (h *Handler) resample(ctx context.Context, code string, p resampleParams) (*airfoil.Geometry, airfoil.Resampled, error) {
	g, err := h.Loader.Load(ctx, code)
	if err != nil {
		return nil, airfoil.Resampled{}, err
	}
	start := time.Now()
	err = g.Resample(p.n, p.scheme, p.ratio)
	observability.ObserveResample(string(p.scheme), err, time.Since(start).Seconds())
	if err != nil {
		return nil, airfoil.Resampled{}, err
	}
	res, _ := g.Interpolated()
	return g, res, nil
}

func codeParam(r *http.Request) (context.Context, string) {
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	return mylog.WithCode(r.Context(), code), code
}

func writeJSON(w http.ResponseWriter, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	return writeJSONBytes(w, body)
}

func writeJSONBytes(w http.ResponseWriter, body []byte) error {
	w.Header().Set("Content-Type", "application/json")
	_, err := w.Write(body)
	return err
}
