// Package popularity keeps an exponentially decaying request score per
// airfoil code. The server only caches resampled responses for codes whose
// score reaches a threshold.
package popularity

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/airfoil-geometry/internal/core/observability"
)

const numShards = 64

type Tracker struct {
	HalfLife time.Duration

	now func() time.Time

	shards [numShards]shard
}

type shard struct {
	mu sync.RWMutex
	m  map[string]*counter
}

type counter struct {
	score float64
	last  time.Time
}

func New(halfLife time.Duration) *Tracker {
	if halfLife <= 0 {
		halfLife = time.Minute
	}
	t := &Tracker{HalfLife: halfLife, now: time.Now}
	for i := range t.shards {
		t.shards[i].m = make(map[string]*counter)
	}
	return t
}

// Inc records one request for code and returns the updated score.
func (t *Tracker) Inc(code string) float64 {
	if code == "" {
		return 0
	}
	s := t.pick(code)
	n := t.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.m[code]
	if c == nil {
		s.m[code] = &counter{score: 1, last: n}
		return 1
	}
	// decay the old score to now before adding this request
	c.score = decay(c.score, n.Sub(c.last).Seconds(), t.HalfLife.Seconds()) + 1.0
	c.last = n
	return c.score
}

func (t *Tracker) Score(code string) float64 {
	if code == "" {
		return 0
	}
	s := t.pick(code)
	n := t.now()

	s.mu.RLock()
	c := s.m[code]
	if c == nil {
		s.mu.RUnlock()
		return 0
	}
	score, last := c.score, c.last
	s.mu.RUnlock()

	return decay(score, n.Sub(last).Seconds(), t.HalfLife.Seconds())
}

func (t *Tracker) Reset(codes ...string) {
	for _, code := range codes {
		if code == "" {
			continue
		}
		s := t.pick(code)
		s.mu.Lock()
		delete(s.m, code)
		s.mu.Unlock()
	}
}

// Prune forgets codes whose decayed score fell below floor and reports how
// many codes are at or above hot.
func (t *Tracker) Prune(floor, hot float64) (removed, hotCount int) {
	n := t.now()
	hl := t.HalfLife.Seconds()
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.Lock()
		for code, c := range s.m {
			score := decay(c.score, n.Sub(c.last).Seconds(), hl)
			switch {
			case score < floor:
				delete(s.m, code)
				removed++
			case hot > 0 && score >= hot:
				hotCount++
			}
		}
		s.mu.Unlock()
	}
	return removed, hotCount
}

func (t *Tracker) Size() int {
	total := 0
	for i := range t.shards {
		t.shards[i].mu.RLock()
		total += len(t.shards[i].m)
		t.shards[i].mu.RUnlock()
	}
	return total
}

func decay(score, dt, halfLife float64) float64 {
	if score == 0 || dt <= 0 || halfLife <= 0 {
		return score
	}
	lambda := math.Ln2 / halfLife
	// e^(-λt)
	return score * math.Exp(-lambda*dt)
}

func (t *Tracker) pick(code string) *shard {
	h := xxhash.Sum64String(code)
	return &t.shards[h&(numShards-1)]
}

// Gate decides whether a code is popular enough to cache derived results.
type Gate struct {
	Tracker   *Tracker
	Threshold float64
}

// Observe counts one request and reports whether code is hot. A threshold
// of zero or less makes every code hot.
func (g Gate) Observe(code string) bool {
	score := g.Tracker.Inc(code)
	return g.Threshold <= 0 || score >= g.Threshold
}

// Hot reports whether code is hot without counting a request.
func (g Gate) Hot(code string) bool {
	return g.Threshold <= 0 || g.Tracker.Score(code) >= g.Threshold
}

// Maintain prunes cold codes every interval and publishes the hot count
// until ctx is done.
func (g Gate) Maintain(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = g.Tracker.HalfLife
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			_, hot := g.Tracker.Prune(0.01, g.Threshold)
			observability.SetHotCodes(hot)
		}
	}
}
