package spline

import (
	"fmt"

	"github.com/mohammed-shakir/airfoil-geometry/internal/core/model"
)

// CubicFitter fits a C2 cubic spline. With a clamped boundary condition the
// spline passes through every knot and matches the given end slopes.
type CubicFitter struct{}

var _ Fitter = CubicFitter{}

func (CubicFitter) Fit(pts []model.Point, bc BoundaryCondition) (Curve, error) {
	if err := validateKnots(pts); err != nil {
		return nil, err
	}
	xs, ys := unzip(pts)
	m, err := secondDerivatives(xs, ys, bc)
	if err != nil {
		return nil, err
	}
	return &cubic{xs: xs, ys: ys, m: m}, nil
}

type cubic struct {
	xs, ys []float64
	m      []float64 // second derivative at each knot
}

func (c *cubic) Domain() (float64, float64) {
	return c.xs[0], c.xs[len(c.xs)-1]
}

func (c *cubic) At(x float64) float64 {
	i := segment(c.xs, x)
	x0, x1 := c.xs[i], c.xs[i+1]
	h := x1 - x0
	a := x1 - x
	b := x - x0
	return c.m[i]*a*a*a/(6*h) + c.m[i+1]*b*b*b/(6*h) +
		(c.ys[i]/h-c.m[i]*h/6)*a +
		(c.ys[i+1]/h-c.m[i+1]*h/6)*b
}

// secondDerivatives solves the tridiagonal moment equations with the Thomas
// algorithm.
func secondDerivatives(xs, ys []float64, bc BoundaryCondition) ([]float64, error) {
	n := len(xs)
	h := make([]float64, n-1)
	slope := make([]float64, n-1)
	for i := range h {
		h[i] = xs[i+1] - xs[i]
		slope[i] = (ys[i+1] - ys[i]) / h[i]
	}

	sub := make([]float64, n)  // a_i, coefficient of m[i-1]
	diag := make([]float64, n) // b_i
	sup := make([]float64, n)  // c_i, coefficient of m[i+1]
	rhs := make([]float64, n)

	switch bc.Kind {
	case ClampedKind:
		diag[0], sup[0] = 2*h[0], h[0]
		rhs[0] = 6 * (slope[0] - bc.StartSlope)
		sub[n-1], diag[n-1] = h[n-2], 2*h[n-2]
		rhs[n-1] = 6 * (bc.EndSlope - slope[n-2])
	case NaturalKind:
		diag[0], rhs[0] = 1, 0
		diag[n-1], rhs[n-1] = 1, 0
	default:
		return nil, fmt.Errorf("unsupported boundary condition %d", bc.Kind)
	}
	for i := 1; i < n-1; i++ {
		sub[i] = h[i-1]
		diag[i] = 2 * (h[i-1] + h[i])
		sup[i] = h[i]
		rhs[i] = 6 * (slope[i] - slope[i-1])
	}

	// forward sweep
	for i := 1; i < n; i++ {
		w := sub[i] / diag[i-1]
		diag[i] -= w * sup[i-1]
		rhs[i] -= w * rhs[i-1]
	}
	m := make([]float64, n)
	m[n-1] = rhs[n-1] / diag[n-1]
	for i := n - 2; i >= 0; i-- {
		m[i] = (rhs[i] - sup[i]*m[i+1]) / diag[i]
	}
	return m, nil
}
