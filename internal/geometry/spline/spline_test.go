package spline

import (
	"errors"
	"math"
	"testing"

	"github.com/mohammed-shakir/airfoil-geometry/internal/core/model"
)

const tol = 1e-12

func knots() []model.Point {
	return []model.Point{
		{X: 0, Y: 0},
		{X: 0.1, Y: 0.045},
		{X: 0.3, Y: 0.07},
		{X: 0.55, Y: 0.06},
		{X: 0.8, Y: 0.03},
		{X: 1, Y: 0},
	}
}

func slope(c Curve, x float64) float64 {
	const h = 1e-7
	return (c.At(x+h) - c.At(x)) / h
}

func TestCubicFitter_PassesThroughKnots(t *testing.T) {
	for _, bc := range []BoundaryCondition{Clamped(0, 0), Natural(), Clamped(0.3, -0.2)} {
		c, err := CubicFitter{}.Fit(knots(), bc)
		if err != nil {
			t.Fatalf("Fit: %v", err)
		}
		for _, p := range knots() {
			if got := c.At(p.X); math.Abs(got-p.Y) > tol {
				t.Fatalf("bc=%+v At(%g)=%g want %g", bc, p.X, got, p.Y)
			}
		}
	}
}

func TestCubicFitter_ClampedEndSlopes(t *testing.T) {
	c, err := CubicFitter{}.Fit(knots(), Clamped(0, 0))
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if s := slope(c, 0); math.Abs(s) > 1e-5 {
		t.Fatalf("leading slope=%g want 0", s)
	}
	if s := slope(c, 1-1e-7); math.Abs(s) > 1e-5 {
		t.Fatalf("trailing slope=%g want 0", s)
	}
	lo, hi := c.Domain()
	if lo != 0 || hi != 1 {
		t.Fatalf("domain=[%g,%g] want [0,1]", lo, hi)
	}
}

func TestCubicFitter_ReproducesCubic(t *testing.T) {
	// a single cubic with matching end slopes is its own clamped spline
	f := func(x float64) float64 { return x*x*x - 2*x*x + x }
	df := func(x float64) float64 { return 3*x*x - 4*x + 1 }
	var pts []model.Point
	for _, x := range []float64{0, 0.2, 0.45, 0.7, 1} {
		pts = append(pts, model.Point{X: x, Y: f(x)})
	}
	c, err := CubicFitter{}.Fit(pts, Clamped(df(0), df(1)))
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	for _, x := range []float64{0.05, 0.33, 0.5, 0.91} {
		if got := c.At(x); math.Abs(got-f(x)) > 1e-10 {
			t.Fatalf("At(%g)=%g want %g", x, got, f(x))
		}
	}
}

func TestGonumFitter_MatchesCubicFitter(t *testing.T) {
	for _, bc := range []BoundaryCondition{Clamped(0, 0), Natural(), Clamped(0.3, -0.2)} {
		want, err := CubicFitter{}.Fit(knots(), bc)
		if err != nil {
			t.Fatalf("CubicFitter.Fit: %v", err)
		}
		got, err := GonumFitter{}.Fit(knots(), bc)
		if err != nil {
			t.Fatalf("GonumFitter.Fit: %v", err)
		}
		lo, hi := got.Domain()
		if lo != 0 || hi != 1 {
			t.Fatalf("domain=[%g,%g] want [0,1]", lo, hi)
		}
		for i := 0; i <= 100; i++ {
			x := float64(i) / 100
			if d := math.Abs(got.At(x) - want.At(x)); d > tol {
				t.Fatalf("bc=%+v At(%g): gonum=%.17g cubic=%.17g", bc, x, got.At(x), want.At(x))
			}
		}
	}
}

func TestGonumFitter_TwoKnots(t *testing.T) {
	c, err := GonumFitter{}.Fit([]model.Point{{X: 0, Y: 0}, {X: 1, Y: 0}}, Clamped(0, 0))
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if got := c.At(0.5); got != 0 {
		t.Fatalf("At(0.5)=%g want 0", got)
	}
}

func TestCubicFitter_TwoKnots(t *testing.T) {
	c, err := CubicFitter{}.Fit([]model.Point{{X: 0, Y: 0}, {X: 1, Y: 0}}, Clamped(0, 0))
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if got := c.At(0.5); math.Abs(got) > tol {
		t.Fatalf("flat chord should stay flat, At(0.5)=%g", got)
	}
}

func TestMonotoneFitter_NoOvershoot(t *testing.T) {
	pts := []model.Point{{X: 0, Y: 0}, {X: 0.2, Y: 0}, {X: 0.4, Y: 1}, {X: 0.6, Y: 1}, {X: 1, Y: 1}}
	c, err := MonotoneFitter{}.Fit(pts, Natural())
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	for x := 0.0; x <= 1; x += 0.01 {
		if y := c.At(x); y < -tol || y > 1+tol {
			t.Fatalf("At(%g)=%g overshoots [0,1]", x, y)
		}
	}
	for _, p := range pts {
		if got := c.At(p.X); math.Abs(got-p.Y) > tol {
			t.Fatalf("At(%g)=%g want %g", p.X, got, p.Y)
		}
	}
}

func TestFit_InvalidKnots(t *testing.T) {
	cases := map[string][]model.Point{
		"single knot":  {{X: 0, Y: 0}},
		"repeated x":   {{X: 0, Y: 0}, {X: 0.5, Y: 0.1}, {X: 0.5, Y: 0.2}, {X: 1, Y: 0}},
		"decreasing x": {{X: 0, Y: 0}, {X: 0.6, Y: 0.1}, {X: 0.4, Y: 0.2}, {X: 1, Y: 0}},
		"non-finite y": {{X: 0, Y: 0}, {X: 0.5, Y: math.NaN()}, {X: 1, Y: 0}},
	}
	for name, pts := range cases {
		for _, f := range []Fitter{GonumFitter{}, CubicFitter{}, MonotoneFitter{}} {
			if _, err := f.Fit(pts, Clamped(0, 0)); !errors.Is(err, ErrKnots) {
				t.Fatalf("%s: %T err=%v want ErrKnots", name, f, err)
			}
		}
	}
}
