package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mohammed-shakir/airfoil-geometry/internal/catalogevents"
)

type fakeDocs struct {
	mu          sync.Mutex
	evicted     []string
	invalidated []string
	err         error
}

func (f *fakeDocs) Evict(codes ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evicted = append(f.evicted, codes...)
}

func (f *fakeDocs) Invalidate(_ context.Context, codes ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.invalidated = append(f.invalidated, codes...)
	return nil
}

type fakeResample struct {
	mu      sync.Mutex
	dropped []string
}

func (f *fakeResample) DropResampled(_ context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropped = append(f.dropped, code)
	return nil
}

type mockResetter struct {
	mu    sync.Mutex
	calls []string
}

func (m *mockResetter) Reset(codes ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, codes...)
}

func message(t *testing.T, ev catalogevents.Event) *sarama.ConsumerMessage {
	t.Helper()
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	return &sarama.ConsumerMessage{Topic: "airfoil-catalog", Offset: 1, Timestamp: time.Now().UTC(), Value: b}
}

func newRunner(docs DocumentCache, rs ResampleCache, hot PopularityResetter) (*Runner, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	r := New(InvalidationConfig{Enabled: true}, docs, Options{Register: reg, Resample: rs, Popularity: hot})
	return r, reg
}

func TestUpsert_EvictsAndDropsResampled_Idempotent(t *testing.T) {
	docs, rs, hot := &fakeDocs{}, &fakeResample{}, &mockResetter{}
	r, _ := newRunner(docs, rs, hot)
	ctx := context.Background()

	msg := message(t, catalogevents.New(catalogevents.OpUpsert, "naca2412", 1))
	for range 2 {
		if err := r.handleMessage(ctx, msg); err != nil {
			t.Fatalf("handleMessage: %v", err)
		}
	}
	if !slices.Equal(docs.evicted, []string{"naca2412"}) || len(docs.invalidated) != 0 {
		t.Fatalf("evicted=%v invalidated=%v", docs.evicted, docs.invalidated)
	}
	if !slices.Equal(rs.dropped, []string{"naca2412"}) || !slices.Equal(hot.calls, []string{"naca2412"}) {
		t.Fatalf("dropped=%v resets=%v", rs.dropped, hot.calls)
	}
	if got := testutil.ToFloat64(r.ms.events.WithLabelValues("upsert", outcomeStale)); got != 1 {
		t.Fatalf("stale upserts=%g want 1", got)
	}
	if got := testutil.ToFloat64(r.ms.actions.WithLabelValues("upsert", "drop_resampled")); got != 1 {
		t.Fatalf("drop_resampled=%g want 1", got)
	}

	// a newer version applies again
	if err := r.handleMessage(ctx, message(t, catalogevents.New(catalogevents.OpUpsert, "naca2412", 2))); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
	if len(docs.evicted) != 2 {
		t.Fatalf("newer version skipped: %v", docs.evicted)
	}
}

func TestDelete_InvalidatesStore(t *testing.T) {
	docs := &fakeDocs{}
	r, _ := newRunner(docs, nil, nil)
	if err := r.handleMessage(context.Background(), message(t, catalogevents.New(catalogevents.OpDelete, "e387", 4))); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
	if !slices.Equal(docs.invalidated, []string{"e387"}) {
		t.Fatalf("invalidated=%v", docs.invalidated)
	}
}

func TestApplyFailure_RetriesSameVersion(t *testing.T) {
	docs := &fakeDocs{err: errors.New("redis down")}
	r, _ := newRunner(docs, nil, nil)
	msg := message(t, catalogevents.New(catalogevents.OpDelete, "e387", 1))

	if err := r.handleMessage(context.Background(), msg); err == nil {
		t.Fatal("expected apply error")
	}
	docs.err = nil
	if err := r.handleMessage(context.Background(), msg); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !slices.Equal(docs.invalidated, []string{"e387"}) {
		t.Fatalf("retry not applied: %v", docs.invalidated)
	}
}

func TestApplyFailure_OlderVersionStaysStale(t *testing.T) {
	docs := &fakeDocs{}
	r, reg := newRunner(docs, nil, nil)
	ctx := context.Background()

	if err := r.handleMessage(ctx, message(t, catalogevents.New(catalogevents.OpDelete, "e387", 5))); err != nil {
		t.Fatalf("v5: %v", err)
	}
	docs.err = errors.New("redis down")
	if err := r.handleMessage(ctx, message(t, catalogevents.New(catalogevents.OpDelete, "e387", 7))); err == nil {
		t.Fatal("v7: expected apply error")
	}
	docs.err = nil

	// a late redelivery of an older event must not apply after the rollback
	if err := r.handleMessage(ctx, message(t, catalogevents.New(catalogevents.OpDelete, "e387", 3))); err != nil {
		t.Fatalf("v3: %v", err)
	}
	if err := r.handleMessage(ctx, message(t, catalogevents.New(catalogevents.OpDelete, "e387", 7))); err != nil {
		t.Fatalf("v7 retry: %v", err)
	}
	if !slices.Equal(docs.invalidated, []string{"e387", "e387"}) {
		t.Fatalf("invalidated=%v want v5 and v7 only", docs.invalidated)
	}

	for name, want := range map[string]float64{
		outcomeApplied: 2,
		outcomeFailed:  1,
		outcomeStale:   1,
	} {
		if got := testutil.ToFloat64(r.ms.events.WithLabelValues("delete", name)); got != want {
			t.Fatalf("%s=%g want %g", name, got, want)
		}
	}
	if n, err := testutil.GatherAndCount(reg, "airfoil_catalog_events_apply_seconds"); err != nil || n != 1 {
		t.Fatalf("apply histogram series=%d err=%v", n, err)
	}
}

func TestVersionDedupe_ForgetRestoresPrevious(t *testing.T) {
	d := newVersionDedupe(8)
	if _, ok := d.shouldApply("e387", 5); !ok {
		t.Fatal("first version rejected")
	}
	c, ok := d.shouldApply("e387", 7)
	if !ok {
		t.Fatal("newer version rejected")
	}
	d.forget(c)
	if _, ok := d.shouldApply("e387", 5); ok {
		t.Fatal("version 5 applied twice after rollback")
	}
	if _, ok := d.shouldApply("e387", 7); !ok {
		t.Fatal("version 7 not retryable after rollback")
	}

	fresh, _ := d.shouldApply("a18", 1)
	d.forget(fresh)
	if _, ok := d.shouldApply("a18", 1); !ok {
		t.Fatal("first version of a code not retryable after rollback")
	}
}

func TestUndecodable_Skipped(t *testing.T) {
	docs := &fakeDocs{}
	r, _ := newRunner(docs, nil, nil)
	msg := &sarama.ConsumerMessage{Value: []byte(`{"op":"upsert"}`)}
	if err := r.handleMessage(context.Background(), msg); err != nil {
		t.Fatalf("undecodable message should be skipped, got %v", err)
	}
	if got := testutil.ToFloat64(r.ms.events.WithLabelValues("unknown", outcomeUndecodable)); got != 1 {
		t.Fatalf("undecodable=%g want 1", got)
	}
}

type fakeSession struct {
	ctx    context.Context
	claims map[string][]int32
	marked []int64
}

func (s *fakeSession) Claims() map[string][]int32               { return s.claims }
func (s *fakeSession) MemberID() string                         { return "m" }
func (s *fakeSession) GenerationID() int32                      { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string)  {}
func (s *fakeSession) Commit()                                  {}
func (s *fakeSession) ResetOffset(string, int32, int64, string) {}
func (s *fakeSession) MarkMessage(m *sarama.ConsumerMessage, _ string) {
	s.marked = append(s.marked, m.Offset)
}
func (s *fakeSession) Context() context.Context { return s.ctx }

type fakeClaim struct {
	ch chan *sarama.ConsumerMessage
}

func (c fakeClaim) Topic() string                            { return "airfoil-catalog" }
func (c fakeClaim) Partition() int32                         { return 0 }
func (c fakeClaim) InitialOffset() int64                     { return 0 }
func (c fakeClaim) HighWaterMarkOffset() int64               { return 0 }
func (c fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.ch }

func TestGroupHandler_MarksAndTracksAssignment(t *testing.T) {
	docs := &fakeDocs{}
	r, _ := newRunner(docs, nil, nil)
	h := &groupHandler{setup: r.setAssignment, cleanup: func(sarama.ConsumerGroupSession) { r.clearAssignment() }, process: r.handleMessage}

	sess := &fakeSession{ctx: context.Background(), claims: map[string][]int32{"airfoil-catalog": {2, 0}}}
	if ready, _ := r.Readiness(); ready {
		t.Fatal("ready before setup")
	}
	_ = h.Setup(sess)
	ready, parts := r.Readiness()
	if !ready || !slices.Equal(parts, []int32{0, 2}) {
		t.Fatalf("ready=%v parts=%v", ready, parts)
	}

	ch := make(chan *sarama.ConsumerMessage, 2)
	m1 := message(t, catalogevents.New(catalogevents.OpUpsert, "a18", 1))
	m1.Offset = 10
	m2 := &sarama.ConsumerMessage{Offset: 11, Value: []byte("garbage")}
	ch <- m1
	ch <- m2
	close(ch)
	if err := h.ConsumeClaim(sess, fakeClaim{ch: ch}); err != nil {
		t.Fatalf("ConsumeClaim: %v", err)
	}
	if !slices.Equal(sess.marked, []int64{10, 11}) {
		t.Fatalf("marked=%v", sess.marked)
	}

	_ = h.Cleanup(sess)
	if ready, _ := r.Readiness(); ready {
		t.Fatal("ready after cleanup")
	}
}

func TestStart_Disabled(t *testing.T) {
	r := New(InvalidationConfig{}, nil, Options{})
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	r.Stop()
}
