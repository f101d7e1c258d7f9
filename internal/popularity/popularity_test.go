package popularity

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Add(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTrackerForTest(hl time.Duration) (*Tracker, *fakeClock) {
	fc := &fakeClock{now: time.Unix(0, 0).UTC()}
	tr := New(hl)
	tr.now = fc.Now
	return tr, fc
}

func almostEq(t *testing.T, got, want, eps float64) {
	t.Helper()
	if math.Abs(got-want) > eps {
		t.Fatalf("got=%g want=%g (eps=%g)", got, want, eps)
	}
}

func TestInc_AccumulatesImmediately(t *testing.T) {
	tr, _ := newTrackerForTest(time.Minute)
	for i := 1; i <= 3; i++ {
		almostEq(t, tr.Inc("naca2412"), float64(i), 1e-9)
	}
	almostEq(t, tr.Score("naca2412"), 3, 1e-9)
	if tr.Inc("") != 0 || tr.Score("") != 0 {
		t.Fatal("empty code must not be tracked")
	}
}

func TestHalfLife_DecaysByHalf(t *testing.T) {
	hl := 2 * time.Second
	tr, fc := newTrackerForTest(hl)

	tr.Inc("e387")
	fc.Add(hl)
	almostEq(t, tr.Score("e387"), 0.5, 1e-6)
	fc.Add(hl)
	almostEq(t, tr.Score("e387"), 0.25, 1e-6)

	// the next request adds to the decayed score
	almostEq(t, tr.Inc("e387"), 1.25, 1e-6)
}

func TestConcurrency_ManyIncSameCode(t *testing.T) {
	tr, _ := newTrackerForTest(time.Minute)
	const N = 256

	var wg sync.WaitGroup
	wg.Add(N)
	for range N {
		go func() {
			tr.Inc("clarky")
			wg.Done()
		}()
	}
	wg.Wait()
	almostEq(t, tr.Score("clarky"), N, 1e-9)
}

func TestReset_OnlySelectedCodes(t *testing.T) {
	tr, _ := newTrackerForTest(30 * time.Second)
	tr.Inc("a18")
	tr.Inc("b707")
	tr.Reset("a18")
	if got := tr.Score("a18"); got != 0 {
		t.Fatalf("reset failed: got %g", got)
	}
	if got := tr.Score("b707"); got <= 0 {
		t.Fatalf("unexpected reset of b707: %g", got)
	}
}

func TestPrune(t *testing.T) {
	tr, fc := newTrackerForTest(time.Second)
	for range 10 {
		tr.Inc("hot")
	}
	tr.Inc("cold")
	fc.Add(3 * time.Second) // hot: 1.25, cold: 0.125

	removed, hot := tr.Prune(0.2, 1)
	if removed != 1 || hot != 1 {
		t.Fatalf("removed=%d hot=%d want 1/1", removed, hot)
	}
	if tr.Size() != 1 {
		t.Fatalf("size=%d want 1", tr.Size())
	}
}

func TestGate(t *testing.T) {
	tr, _ := newTrackerForTest(time.Minute)
	g := Gate{Tracker: tr, Threshold: 3}
	got := []bool{g.Observe("x"), g.Observe("x"), g.Observe("x")}
	if got[0] || got[1] || !got[2] {
		t.Fatalf("observe sequence=%v want [false false true]", got)
	}
	if !g.Hot("x") || g.Hot("y") {
		t.Fatal("Hot disagrees with scores")
	}
	if !(Gate{Tracker: tr}).Observe("anything") {
		t.Fatal("zero threshold must treat every code as hot")
	}
}

func TestGate_MaintainStops(t *testing.T) {
	g := Gate{Tracker: New(time.Minute), Threshold: 1}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		g.Maintain(ctx, time.Millisecond)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Maintain did not stop")
	}
}

func TestDecayHelper_Edges(t *testing.T) {
	if got := decay(0, 10, 60); got != 0 {
		t.Fatalf("expected 0, got %g", got)
	}
	if got := decay(5, 0, 60); got != 5 {
		t.Fatalf("expected 5, got %g", got)
	}
	if got := decay(5, 10, 0); got != 5 {
		t.Fatalf("expected 5, got %g", got)
	}
}
