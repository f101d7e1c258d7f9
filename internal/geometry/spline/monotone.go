package spline

import (
	"math"

	"github.com/mohammed-shakir/airfoil-geometry/internal/core/model"
)

// MonotoneFitter fits a Fritsch-Carlson monotone piecewise cubic Hermite
// interpolant. It never overshoots between knots, at the cost of only C1
// continuity. Clamped end slopes are honored; otherwise the end slopes are
// the one-sided secants.
type MonotoneFitter struct{}

var _ Fitter = MonotoneFitter{}

func (MonotoneFitter) Fit(pts []model.Point, bc BoundaryCondition) (Curve, error) {
	if err := validateKnots(pts); err != nil {
		return nil, err
	}
	xs, ys := unzip(pts)
	n := len(xs)

	d := make([]float64, n-1)
	for i := range d {
		d[i] = (ys[i+1] - ys[i]) / (xs[i+1] - xs[i])
	}

	ms := make([]float64, n)
	ms[0], ms[n-1] = d[0], d[n-2]
	for i := 1; i < n-1; i++ {
		if d[i-1]*d[i] <= 0 {
			ms[i] = 0
			continue
		}
		ms[i] = (d[i-1] + d[i]) / 2
	}

	for i := range d {
		if d[i] == 0 {
			ms[i], ms[i+1] = 0, 0
			continue
		}
		a := ms[i] / d[i]
		b := ms[i+1] / d[i]
		if s := a*a + b*b; s > 9 {
			tau := 3 / math.Sqrt(s)
			ms[i] = tau * a * d[i]
			ms[i+1] = tau * b * d[i]
		}
	}

	if bc.Kind == ClampedKind {
		ms[0], ms[n-1] = bc.StartSlope, bc.EndSlope
	}
	return &hermite{xs: xs, ys: ys, ms: ms}, nil
}
