package spline

import (
	"fmt"

	"gonum.org/v1/gonum/interp"

	"github.com/mohammed-shakir/airfoil-geometry/internal/core/model"
)

// GonumFitter fits gonum's C2 cubic splines: interp.ClampedCubic for the
// zero-slope clamped condition and interp.NaturalCubic for natural ends.
// Non-zero end slopes and two-knot surfaces, which gonum does not cover, are
// fitted by CubicFitter.
type GonumFitter struct{}

var _ Fitter = GonumFitter{}

// predictor is the part of gonum's interpolators a fitted curve needs.
type predictor interface {
	Fit(xs, ys []float64) error
	Predict(x float64) float64
}

func (GonumFitter) Fit(pts []model.Point, bc BoundaryCondition) (Curve, error) {
	if err := validateKnots(pts); err != nil {
		return nil, err
	}

	var p predictor
	switch {
	case len(pts) < 3:
		return CubicFitter{}.Fit(pts, bc)
	case bc.Kind == ClampedKind && bc.StartSlope == 0 && bc.EndSlope == 0:
		p = &interp.ClampedCubic{}
	case bc.Kind == ClampedKind:
		return CubicFitter{}.Fit(pts, bc)
	case bc.Kind == NaturalKind:
		p = &interp.NaturalCubic{}
	default:
		return nil, fmt.Errorf("unsupported boundary condition %d", bc.Kind)
	}

	xs, ys := unzip(pts)
	if err := p.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKnots, err)
	}
	return &gonumCurve{p: p, lo: xs[0], hi: xs[len(xs)-1]}, nil
}

type gonumCurve struct {
	p      predictor
	lo, hi float64
}

func (c *gonumCurve) At(x float64) float64 { return c.p.Predict(x) }

func (c *gonumCurve) Domain() (float64, float64) { return c.lo, c.hi }
