// Package airfoil ties splitting and re-sampling together for one airfoil.
package airfoil

import (
	"fmt"

	"github.com/mohammed-shakir/airfoil-geometry/internal/core/model"
	"github.com/mohammed-shakir/airfoil-geometry/internal/geometry/interp"
	"github.com/mohammed-shakir/airfoil-geometry/internal/geometry/spacing"
	"github.com/mohammed-shakir/airfoil-geometry/internal/geometry/spline"
	"github.com/mohammed-shakir/airfoil-geometry/internal/geometry/split"
)

// Geometry owns the raw points of one airfoil, the profile parsed from them
// and, after Resample, a re-paneled profile.
//
// Resample overwrites the interpolated profile in place; calls on the same
// Geometry must be serialized by the caller.
type Geometry struct {
	code   string
	raw    model.RawPointSet
	parsed model.Profile
	method split.Method
	fitter spline.Fitter

	interp *Resampled
}

// Resampled is an interpolated profile together with the parameters that
// produced it.
type Resampled struct {
	Points  int
	Scheme  spacing.Scheme
	Ratio   float64
	Profile model.Profile
}

type Option func(*Geometry)

// WithFitter replaces the default clamped cubic spline.
func WithFitter(f spline.Fitter) Option {
	return func(g *Geometry) {
		if f != nil {
			g.fitter = f
		}
	}
}

// Build splits raw into surfaces. It fails with model.ErrMalformedGeometry
// when raw cannot be split.
func Build(code string, raw model.RawPointSet, opts ...Option) (*Geometry, error) {
	res, err := split.Split(raw)
	if err != nil {
		return nil, fmt.Errorf("airfoil %q: %w", code, err)
	}
	g := &Geometry{
		code:   code,
		raw:    raw,
		parsed: res.Profile,
		method: res.Method,
		fitter: spline.GonumFitter{},
	}
	for _, o := range opts {
		o(g)
	}
	return g, nil
}

// Resample re-panels both surfaces with floor(n/2) points each. On error the
// previous interpolated profile is kept.
func (g *Geometry) Resample(n int, scheme spacing.Scheme, ratio float64) error {
	xs, err := spacing.Samples(n, scheme, ratio)
	if err != nil {
		return fmt.Errorf("airfoil %q: %w", g.code, err)
	}
	p, err := interp.Profile(g.parsed, xs, g.fitter)
	if err != nil {
		return fmt.Errorf("airfoil %q: %w", g.code, err)
	}
	g.interp = &Resampled{Points: n, Scheme: scheme, Ratio: ratio, Profile: p}
	return nil
}

func (g *Geometry) Code() string { return g.code }

func (g *Geometry) Raw() model.RawPointSet { return g.raw }

func (g *Geometry) Parsed() model.Profile { return g.parsed }

func (g *Geometry) Contour() model.Contour { return g.parsed.Contour }

// SplitMethod reports how the raw points were partitioned.
func (g *Geometry) SplitMethod() split.Method { return g.method }

func (g *Geometry) Interpolated() (Resampled, bool) {
	if g.interp == nil {
		return Resampled{}, false
	}
	return *g.interp, true
}

// InterpolatedContour returns nil before the first successful Resample.
func (g *Geometry) InterpolatedContour() model.Contour {
	if g.interp == nil {
		return nil
	}
	return g.interp.Profile.Contour
}
