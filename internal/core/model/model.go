// Package model defines core domain types shared across the service.
package model

import (
	"fmt"
	"math"
	"slices"
)

type Point struct {
	X, Y float64
}

// Pt returns the point (x, y).
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

func (p Point) String() string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}

// Chord-line edge points every Surface is pinned to.
var (
	LeadingEdge  = Point{X: 0, Y: 0}
	TrailingEdge = Point{X: 1, Y: 0}
)

// RawPointSet is a digitized boundary exactly as a coordinate source returned it.
type RawPointSet struct {
	x, y []float64
}

// NewRawPointSet copies x and y. Both must have the same length and hold
// finite values; ordering and uniqueness are not checked.
func NewRawPointSet(x, y []float64) (RawPointSet, error) {
	if len(x) != len(y) {
		return RawPointSet{}, fmt.Errorf("%w: %d x-values but %d y-values", ErrMalformedGeometry, len(x), len(y))
	}
	for i := range x {
		if !finite(x[i]) || !finite(y[i]) {
			return RawPointSet{}, fmt.Errorf("%w: non-finite coordinate at index %d", ErrMalformedGeometry, i)
		}
	}
	return RawPointSet{x: slices.Clone(x), y: slices.Clone(y)}, nil
}

func (r RawPointSet) Len() int { return len(r.x) }

func (r RawPointSet) At(i int) Point { return Point{X: r.x[i], Y: r.y[i]} }

func (r RawPointSet) Xs() []float64 { return slices.Clone(r.x) }

func (r RawPointSet) Ys() []float64 { return slices.Clone(r.y) }

// Document is the persisted shape of an airfoil's raw coordinates.
type Document struct {
	Code string    `json:"code"`
	X    []float64 `json:"x"`
	Y    []float64 `json:"y"`
}

func (d Document) Points() (RawPointSet, error) {
	return NewRawPointSet(d.X, d.Y)
}

// Surface is one side of the airfoil ordered from leading to trailing edge.
// x is strictly increasing, the first point is exactly LeadingEdge and the
// last exactly TrailingEdge.
type Surface struct {
	pts []Point
}

func NewSurface(pts []Point) (Surface, error) {
	if len(pts) < 2 {
		return Surface{}, fmt.Errorf("%w: surface needs at least 2 points, got %d", ErrMalformedGeometry, len(pts))
	}
	if pts[0] != LeadingEdge {
		return Surface{}, fmt.Errorf("%w: surface starts at %v, want %v", ErrMalformedGeometry, pts[0], LeadingEdge)
	}
	if last := pts[len(pts)-1]; last != TrailingEdge {
		return Surface{}, fmt.Errorf("%w: surface ends at %v, want %v", ErrMalformedGeometry, last, TrailingEdge)
	}
	for i := 1; i < len(pts); i++ {
		if !finite(pts[i].Y) {
			return Surface{}, fmt.Errorf("%w: non-finite y at surface index %d", ErrMalformedGeometry, i)
		}
		if !(pts[i].X > pts[i-1].X) {
			return Surface{}, fmt.Errorf("%w: surface x not strictly increasing at index %d (%g after %g)",
				ErrMalformedGeometry, i, pts[i].X, pts[i-1].X)
		}
	}
	return Surface{pts: slices.Clone(pts)}, nil
}

func (s Surface) Len() int { return len(s.pts) }

func (s Surface) Points() []Point { return slices.Clone(s.pts) }

func (s Surface) Xs() []float64 {
	out := make([]float64, len(s.pts))
	for i, p := range s.pts {
		out[i] = p.X
	}
	return out
}

func (s Surface) Ys() []float64 {
	out := make([]float64, len(s.pts))
	for i, p := range s.pts {
		out[i] = p.Y
	}
	return out
}

func (s Surface) MaxY() float64 {
	m := math.Inf(-1)
	for _, p := range s.pts {
		m = max(m, p.Y)
	}
	return m
}

// Contour is the closed outline starting and ending at the trailing edge:
// down the pressure side to the leading edge, then up the suction side.
type Contour []Point

// AssembleContour concatenates the reversed pressure surface, minus its
// leading-edge point, with the suction surface.
func AssembleContour(suction, pressure Surface) Contour {
	out := make(Contour, 0, suction.Len()+pressure.Len()-1)
	for i := len(pressure.pts) - 1; i > 0; i-- {
		out = append(out, pressure.pts[i])
	}
	return append(out, suction.pts...)
}

func (c Contour) Xs() []float64 {
	out := make([]float64, len(c))
	for i, p := range c {
		out[i] = p.X
	}
	return out
}

func (c Contour) Ys() []float64 {
	out := make([]float64, len(c))
	for i, p := range c {
		out[i] = p.Y
	}
	return out
}

// SignedArea is the shoelace area of the loop in a y-up frame. Contours
// assembled by AssembleContour run pressure side first and come out negative.
func (c Contour) SignedArea() float64 {
	if len(c) < 3 {
		return 0
	}
	var sum float64
	for i := range c {
		j := (i + 1) % len(c)
		sum += c[i].X*c[j].Y - c[j].X*c[i].Y
	}
	return sum / 2
}

// Profile groups both surfaces with the contour assembled from them.
type Profile struct {
	Suction  Surface
	Pressure Surface
	Contour  Contour
}

func NewProfile(suction, pressure Surface) Profile {
	return Profile{
		Suction:  suction,
		Pressure: pressure,
		Contour:  AssembleContour(suction, pressure),
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
