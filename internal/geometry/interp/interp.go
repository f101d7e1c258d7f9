// Package interp re-samples airfoil surfaces on new chordwise positions.
package interp

import (
	"fmt"

	"github.com/mohammed-shakir/airfoil-geometry/internal/core/model"
	"github.com/mohammed-shakir/airfoil-geometry/internal/geometry/spline"
)

// EdgeCondition pins the surface slope to zero at the leading and trailing
// edge, which keeps the fit from overshooting at the extreme points.
var EdgeCondition = spline.Clamped(0, 0)

// Interpolate fits surface with fitter and evaluates the fit at xs. Every
// value in xs must lie inside the surface's x range.
func Interpolate(surface model.Surface, xs []float64, fitter spline.Fitter) (model.Surface, error) {
	if fitter == nil {
		fitter = spline.GonumFitter{}
	}
	curve, err := fitter.Fit(surface.Points(), EdgeCondition)
	if err != nil {
		return model.Surface{}, fmt.Errorf("fit surface: %w", err)
	}

	lo, hi := curve.Domain()
	pts := make([]model.Point, len(xs))
	for i, x := range xs {
		if x < lo || x > hi {
			return model.Surface{}, fmt.Errorf("%w: sample %d at x=%g outside [%g, %g]", model.ErrInterpolationDomain, i, x, lo, hi)
		}
		pts[i] = model.Point{X: x, Y: curve.At(x)}
	}

	// the edges are exact by construction, keep them bit-identical
	if len(pts) > 0 && pts[0].X == model.LeadingEdge.X {
		pts[0] = model.LeadingEdge
	}
	if n := len(pts); n > 0 && pts[n-1].X == model.TrailingEdge.X {
		pts[n-1] = model.TrailingEdge
	}

	out, err := model.NewSurface(pts)
	if err != nil {
		return model.Surface{}, fmt.Errorf("resampled surface: %w", err)
	}
	return out, nil
}

// Profile re-samples both surfaces of p at xs and reassembles the contour.
func Profile(p model.Profile, xs []float64, fitter spline.Fitter) (model.Profile, error) {
	suction, err := Interpolate(p.Suction, xs, fitter)
	if err != nil {
		return model.Profile{}, fmt.Errorf("suction: %w", err)
	}
	pressure, err := Interpolate(p.Pressure, xs, fitter)
	if err != nil {
		return model.Profile{}, fmt.Errorf("pressure: %w", err)
	}
	return model.NewProfile(suction, pressure), nil
}
