// Package split partitions a digitized airfoil boundary into its suction and
// pressure surfaces and assembles the canonical closed contour.
//
// # Input ordering
//
// The preferred path relies on how catalogs trace an outline: the points form
// two contiguous index runs, each running from a leading-edge candidate to a
// trailing-edge candidate. Selig order (TE, upper, LE, lower, TE) and Lednicer
// order (LE..TE upper, then LE..TE lower) both qualify. The two points with
// the smallest x and the two with the largest x then straddle the places where
// the traversal crosses from one surface to the other, and the runs are
// recovered as a [RangePair].
//
// When the runs overlap or leave a surface without interior points, the
// traversal is cut at the point with the smallest x instead, which still works
// for Selig files whose two trailing-edge measurements differ. Only input with
// no usable run order is classified by the side of the leading-edge to
// trailing-edge line each point lies on, and that result is rejected unless
// both surfaces come out as single curves that do not cross.
//
// Either way the measured edge points are discarded and replaced by the exact
// chord-line points (0, 0) and (1, 0).
package split

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/mohammed-shakir/airfoil-geometry/internal/core/model"
)

const minPoints = 4

type Method int

const (
	// Traversal slices the surfaces out of the input by index ranges.
	Traversal Method = iota
	// ChordSide classifies points by the side of the chord line.
	ChordSide
	// Pivot cuts the traversal at the minimum-x point.
	Pivot
)

// maxTurns bounds how often the slope of a chord-side surface may change
// sign. A reflexed section turns three times.
const maxTurns = 3

func (m Method) String() string {
	switch m {
	case Traversal:
		return "traversal"
	case ChordSide:
		return "chord-side"
	case Pivot:
		return "pivot"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// IndexRange is an inclusive range of indices into the raw point set.
type IndexRange struct {
	Lo, Hi int
}

func newRange(a, b int) IndexRange {
	return IndexRange{Lo: min(a, b), Hi: max(a, b)}
}

func (r IndexRange) Len() int { return r.Hi - r.Lo + 1 }

func (r IndexRange) overlaps(o IndexRange) bool {
	return r.Lo <= o.Hi && o.Lo <= r.Hi
}

// RangePair holds the two candidate surface runs. Minima joins the smaller
// index of the leading pair with the smaller index of the trailing pair;
// Maxima joins the larger ones.
type RangePair struct {
	Minima IndexRange
	Maxima IndexRange
}

// Ordered reports whether the pair describes two disjoint runs with at least
// one interior point each.
func (rp RangePair) Ordered() bool {
	if rp.Minima.overlaps(rp.Maxima) {
		return false
	}
	return rp.Minima.Len() >= 3 && rp.Maxima.Len() >= 3
}

type Result struct {
	Profile model.Profile
	Method  Method
	Ranges  RangePair
}

// Split separates raw into suction and pressure surfaces. It fails with
// model.ErrMalformedGeometry for fewer than four points, for surfaces whose
// maximum y is equal, and for points that cannot be assigned to a surface.
func Split(raw model.RawPointSet) (Result, error) {
	n := raw.Len()
	if n < minPoints {
		return Result{}, fmt.Errorf("%w: need at least %d points, got %d", model.ErrMalformedGeometry, minPoints, n)
	}

	order := argsortX(raw)
	rp := RangePair{
		Minima: newRange(min(order[0], order[1]), min(order[n-2], order[n-1])),
		Maxima: newRange(max(order[0], order[1]), max(order[n-2], order[n-1])),
	}

	var (
		a, b   []model.Point
		method Method
		err    error
	)
	if rp.Ordered() {
		method = Traversal
		a = trimmed(slicePoints(raw, rp.Minima))
		b = trimmed(slicePoints(raw, rp.Maxima))
	} else if pa, pb, ok := pivotRuns(raw, order[0]); ok {
		method = Pivot
		a, b = pa, pb
		rp = RangePair{Minima: IndexRange{0, order[0]}, Maxima: IndexRange{order[0], n - 1}}
	} else {
		method = ChordSide
		a, b, err = partitionByChord(raw, order)
		if err != nil {
			return Result{}, err
		}
	}

	sa, err := rebuild(a)
	if err != nil {
		return Result{}, err
	}
	sb, err := rebuild(b)
	if err != nil {
		return Result{}, err
	}

	var suction, pressure model.Surface
	switch ma, mb := sa.MaxY(), sb.MaxY(); {
	case ma > mb:
		suction, pressure = sa, sb
	case mb > ma:
		suction, pressure = sb, sa
	default:
		return Result{}, fmt.Errorf("%w: surfaces share maximum y %g", model.ErrMalformedGeometry, ma)
	}

	if method == ChordSide {
		if err := singleValued(suction, pressure); err != nil {
			return Result{}, err
		}
	}

	return Result{
		Profile: model.NewProfile(suction, pressure),
		Method:  method,
		Ranges:  rp,
	}, nil
}

// argsortX returns the indices that sort raw by x. Ties keep input order.
func argsortX(raw model.RawPointSet) []int {
	idx := make([]int, raw.Len())
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(i, j int) int {
		return cmp.Compare(raw.At(i).X, raw.At(j).X)
	})
	return idx
}

func slicePoints(raw model.RawPointSet, r IndexRange) []model.Point {
	out := make([]model.Point, 0, r.Len())
	for i := r.Lo; i <= r.Hi; i++ {
		out = append(out, raw.At(i))
	}
	return out
}

// trimmed sorts pts by (x, y) and drops the first and last point, which sit
// at the measured edges.
func trimmed(pts []model.Point) []model.Point {
	sortXY(pts)
	return pts[1 : len(pts)-1]
}

// pivotRuns cuts the traversal at index k into [0..k] and [k..n-1] and drops
// the three measured edge points. Both runs must move monotonically in x with
// every interior point strictly inside the chord.
func pivotRuns(raw model.RawPointSet, k int) (a, b []model.Point, ok bool) {
	n := raw.Len()
	if k < 2 || k > n-3 {
		return nil, nil, false
	}
	a = make([]model.Point, 0, k-1)
	for i := k - 1; i >= 1; i-- {
		a = append(a, raw.At(i))
	}
	b = slicePoints(raw, IndexRange{k + 1, n - 2})
	if !inChord(a) || !inChord(b) {
		return nil, nil, false
	}
	return a, b, true
}

func inChord(pts []model.Point) bool {
	prev := model.LeadingEdge.X
	for _, p := range pts {
		if !(p.X > prev) {
			return false
		}
		prev = p.X
	}
	return prev < model.TrailingEdge.X
}

func partitionByChord(raw model.RawPointSet, order []int) (above, below []model.Point, err error) {
	n := len(order)
	le, te := raw.At(order[0]), raw.At(order[n-1])
	for _, i := range order[1 : n-1] {
		p := raw.At(i)
		if p.X <= le.X || p.X >= te.X {
			continue // duplicate edge measurement
		}
		switch side := cross(le, te, p); {
		case side > 0:
			above = append(above, p)
		case side < 0:
			below = append(below, p)
		default:
			return nil, nil, fmt.Errorf("%w: point %d %v lies on the chord line", model.ErrMalformedGeometry, i, p)
		}
	}
	sortXY(above)
	sortXY(below)
	return above, below, nil
}

// cross is positive when p lies to the left of the directed line a->b.
func cross(a, b, p model.Point) float64 {
	return (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
}

// singleValued rejects chord-side surfaces that zigzag or cross. Points of the
// other surface that were misread as this one show up as slope reversals.
func singleValued(suction, pressure model.Surface) error {
	for _, s := range []struct {
		name string
		pts  []model.Point
	}{{"suction", suction.Points()}, {"pressure", pressure.Points()}} {
		if t := turns(s.pts); t > maxTurns {
			return fmt.Errorf("%w: %s surface changes direction %d times", model.ErrMalformedGeometry, s.name, t)
		}
	}
	for _, p := range suction.Points()[1 : suction.Len()-1] {
		if y := yAt(pressure, p.X); !(p.Y > y) {
			return fmt.Errorf("%w: surfaces cross near x=%g", model.ErrMalformedGeometry, p.X)
		}
	}
	for _, p := range pressure.Points()[1 : pressure.Len()-1] {
		if y := yAt(suction, p.X); !(y > p.Y) {
			return fmt.Errorf("%w: surfaces cross near x=%g", model.ErrMalformedGeometry, p.X)
		}
	}
	return nil
}

func turns(pts []model.Point) int {
	var n, last int
	for i := 1; i < len(pts); i++ {
		d := cmp.Compare(pts[i].Y, pts[i-1].Y)
		if d == 0 {
			continue
		}
		if last != 0 && d != last {
			n++
		}
		last = d
	}
	return n
}

// yAt linearly interpolates s at x, which must lie within the chord.
func yAt(s model.Surface, x float64) float64 {
	pts := s.Points()
	i, found := slices.BinarySearchFunc(pts, x, func(p model.Point, x float64) int {
		return cmp.Compare(p.X, x)
	})
	if found {
		return pts[i].Y
	}
	lo, hi := pts[i-1], pts[i]
	t := (x - lo.X) / (hi.X - lo.X)
	return lo.Y + t*(hi.Y-lo.Y)
}

func rebuild(interior []model.Point) (model.Surface, error) {
	pts := make([]model.Point, 0, len(interior)+2)
	pts = append(pts, model.LeadingEdge)
	pts = append(pts, interior...)
	pts = append(pts, model.TrailingEdge)
	s, err := model.NewSurface(pts)
	if err != nil {
		return model.Surface{}, fmt.Errorf("rebuild surface: %w", err)
	}
	return s, nil
}

func sortXY(pts []model.Point) {
	slices.SortFunc(pts, func(a, b model.Point) int {
		if c := cmp.Compare(a.X, b.X); c != 0 {
			return c
		}
		return cmp.Compare(a.Y, b.Y)
	})
}
