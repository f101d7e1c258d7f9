// Package spline fits piecewise-cubic curves y(x) through ordered knots.
//
// Callers depend on [Fitter] and [Curve] only, so the interpolation strategy
// can be swapped without touching the code that produces the knots or the
// sample positions.
package spline

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/mohammed-shakir/airfoil-geometry/internal/core/model"
)

var ErrKnots = errors.New("invalid spline knots")

type BoundaryKind int

const (
	// ClampedKind pins the first derivative at both ends.
	ClampedKind BoundaryKind = iota
	// NaturalKind sets the second derivative to zero at both ends.
	NaturalKind
)

type BoundaryCondition struct {
	Kind       BoundaryKind
	StartSlope float64
	EndSlope   float64
}

// Clamped fixes dy/dx at the first and last knot.
func Clamped(start, end float64) BoundaryCondition {
	return BoundaryCondition{Kind: ClampedKind, StartSlope: start, EndSlope: end}
}

func Natural() BoundaryCondition {
	return BoundaryCondition{Kind: NaturalKind}
}

// Curve is a fitted interpolant. At is only meaningful inside Domain.
type Curve interface {
	At(x float64) float64
	Domain() (lo, hi float64)
}

type Fitter interface {
	Fit(pts []model.Point, bc BoundaryCondition) (Curve, error)
}

func validateKnots(pts []model.Point) error {
	if len(pts) < 2 {
		return fmt.Errorf("%w: need at least 2 knots, got %d", ErrKnots, len(pts))
	}
	for i := 1; i < len(pts); i++ {
		if !(pts[i].X > pts[i-1].X) {
			return fmt.Errorf("%w: x not strictly increasing at knot %d", ErrKnots, i)
		}
	}
	for i, p := range pts {
		if math.IsNaN(p.Y) || math.IsInf(p.Y, 0) {
			return fmt.Errorf("%w: non-finite y at knot %d", ErrKnots, i)
		}
	}
	return nil
}

// hermite is a piecewise cubic stored as knot values and knot slopes.
type hermite struct {
	xs, ys, ms []float64
}

func (h *hermite) Domain() (float64, float64) {
	return h.xs[0], h.xs[len(h.xs)-1]
}

func (h *hermite) At(x float64) float64 {
	i := segment(h.xs, x)
	x0, x1 := h.xs[i], h.xs[i+1]
	dx := x1 - x0
	t := (x - x0) / dx
	t2 := t * t
	t3 := t2 * t
	h00 := 2*t3 - 3*t2 + 1
	h10 := t3 - 2*t2 + t
	h01 := -2*t3 + 3*t2
	h11 := t3 - t2
	return h00*h.ys[i] + h10*dx*h.ms[i] + h01*h.ys[i+1] + h11*dx*h.ms[i+1]
}

// segment returns i such that xs[i] <= x <= xs[i+1], clamped to the end
// segments for x outside the knots.
func segment(xs []float64, x float64) int {
	i := sort.SearchFloat64s(xs, x) - 1
	if i < 0 {
		return 0
	}
	if i > len(xs)-2 {
		return len(xs) - 2
	}
	return i
}

func unzip(pts []model.Point) (xs, ys []float64) {
	xs = make([]float64, len(pts))
	ys = make([]float64, len(pts))
	for i, p := range pts {
		xs[i], ys[i] = p.X, p.Y
	}
	return xs, ys
}
