// Package spacing produces the chordwise sample positions used to re-panel an
// airfoil surface.
package spacing

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/mohammed-shakir/airfoil-geometry/internal/core/model"
)

type Scheme string

const (
	// Chord distributes panel lengths directly along the chord.
	Chord Scheme = "chord"
	// Circle distributes angular steps over a half circle of unit diameter
	// and projects them onto the chord (half-cosine spacing).
	Circle Scheme = "circle"
)

func ParseScheme(s string) (Scheme, error) {
	switch Scheme(strings.ToLower(strings.TrimSpace(s))) {
	case Chord:
		return Chord, nil
	case Circle:
		return Circle, nil
	default:
		return "", fmt.Errorf("%w: unknown scheme %q (want chord or circle)", model.ErrInvalidSpacingParameters, s)
	}
}

const minPoints = 4

// Samples returns floor(n/2) ascending positions in [0, 1], the first exactly
// 0 and the last exactly 1. Consecutive panel lengths follow a geometric
// progression with common ratio ratio; ratio 1 gives uniform panels.
func Samples(n int, scheme Scheme, ratio float64) ([]float64, error) {
	if n < minPoints {
		return nil, fmt.Errorf("%w: point count %d below %d", model.ErrInvalidSpacingParameters, n, minPoints)
	}
	if !(ratio > 0) || math.IsInf(ratio, 0) {
		return nil, fmt.Errorf("%w: ratio must be positive and finite, got %g", model.ErrInvalidSpacingParameters, ratio)
	}

	var total float64
	switch scheme {
	case Chord:
		total = 1
	case Circle:
		total = math.Pi
	default:
		return nil, fmt.Errorf("%w: unknown scheme %q", model.ErrInvalidSpacingParameters, scheme)
	}

	panels := n/2 - 1
	cum, err := cumulative(panels, ratio, total)
	if err != nil {
		return nil, err
	}

	xs := cum
	if scheme == Circle {
		xs = make([]float64, len(cum))
		for i, th := range cum {
			xs[i] = 0.5 + 0.5*math.Cos(th)
		}
		slices.Reverse(xs)
		xs[0], xs[len(xs)-1] = 0, 1
	}

	for i := 1; i < len(xs); i++ {
		if !(xs[i] > xs[i-1]) {
			return nil, fmt.Errorf("%w: ratio %g collapses samples %d and %d", model.ErrInvalidSpacingParameters, ratio, i-1, i)
		}
	}
	return xs, nil
}

// cumulative returns 0 followed by the running sum of p intervals
// ratio^(p-i), i = 1..p, scaled so the last value equals total.
func cumulative(p int, ratio, total float64) ([]float64, error) {
	w := make([]float64, p)
	for i := 1; i <= p; i++ {
		// factor out the largest term so ratios above 1 cannot overflow
		if ratio <= 1 {
			w[i-1] = math.Pow(ratio, float64(p-i))
		} else {
			w[i-1] = math.Pow(1/ratio, float64(i-1))
		}
	}

	var sum float64
	for _, v := range w {
		sum += v
	}

	out := make([]float64, p+1)
	acc := 0.0
	for i, v := range w {
		d := total * v / sum
		if d <= 0 {
			return nil, fmt.Errorf("%w: ratio %g underflows for %d panels", model.ErrInvalidSpacingParameters, ratio, p)
		}
		acc += d
		out[i+1] = acc
	}
	out[p] = total
	return out, nil
}
