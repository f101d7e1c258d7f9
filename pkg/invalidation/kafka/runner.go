// Package kafka consumes catalog events and drops every cached artifact
// derived from the changed airfoils.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mohammed-shakir/airfoil-geometry/internal/catalogevents"
	"github.com/mohammed-shakir/airfoil-geometry/internal/core/observability"
	mylog "github.com/mohammed-shakir/airfoil-geometry/internal/logger"
)

// DocumentCache is the tiered coordinate source.
type DocumentCache interface {
	Evict(codes ...string)
	Invalidate(ctx context.Context, codes ...string) error
}

// ResampleCache drops cached resampled profiles of one code.
type ResampleCache interface {
	DropResampled(ctx context.Context, code string) error
}

type PopularityResetter interface {
	Reset(codes ...string)
}

type Runner struct {
	log      *slog.Logger
	cfg      InvalidationConfig
	docs     DocumentCache
	resample ResampleCache
	hot      PopularityResetter
	ms       *eventMetrics
	ver      *versionDedupe
	assigned atomic.Bool
	assignMu sync.RWMutex
	assign   map[int32]struct{}
	wg       sync.WaitGroup
	cancel   context.CancelFunc
}

type Options struct {
	Logger     *slog.Logger
	Register   prometheus.Registerer
	Resample   ResampleCache
	Popularity PopularityResetter
}

func New(cfg InvalidationConfig, docs DocumentCache, opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Runner{
		log:      opts.Logger,
		cfg:      cfg,
		docs:     docs,
		resample: opts.Resample,
		hot:      opts.Popularity,
		ms:       newEventMetrics(opts.Register),
		ver:      newVersionDedupe(cfg.DedupeSize),
		assign:   map[int32]struct{}{},
	}
}

func (r *Runner) Start(ctx context.Context) error {
	if !r.cfg.Enabled {
		r.log.Info("invalidation runner disabled")
		return nil
	}
	if r.docs == nil {
		return errors.New("kafka runner: document cache is required")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Consumer.Group.Session.Timeout = r.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = r.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = r.cfg.RebalanceTimeout
	if r.cfg.InitialOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(r.cfg.Brokers, r.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("consumer group: %w", err)
	}
	r.run(ctx, group)
	return nil
}

// run drives group until ctx is canceled or Stop is called.
func (r *Runner) run(ctx context.Context, group sarama.ConsumerGroup) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	ctx = mylog.WithComponent(ctx, "invalidation")

	h := &groupHandler{
		setup:   r.setAssignment,
		cleanup: func(sarama.ConsumerGroupSession) { r.clearAssignment() },
		process: r.handleMessage,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if err := group.Close(); err != nil {
				r.log.Error("kafka consumer group close", "err", err)
			}
		}()

		for {
			if err := group.Consume(ctx, []string{r.cfg.Topic}, h); err != nil {
				observability.IncKafkaConsumerError("session")
				r.log.ErrorContext(ctx, "kafka consume error", "err", err)
				select {
				case <-time.After(2 * time.Second):
				case <-ctx.Done():
					return
				}
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for err := range group.Errors() {
			observability.IncKafkaConsumerError("group")
			r.log.ErrorContext(ctx, "kafka group error", "err", err)
		}
	}()

	r.log.InfoContext(ctx, "kafka invalidation runner started",
		"topic", r.cfg.Topic, "group", r.cfg.GroupID, "brokers", r.cfg.Brokers)
}

func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	r.log.Info("kafka invalidation runner stopped")
}

func (r *Runner) setAssignment(sess sarama.ConsumerGroupSession) {
	r.assignMu.Lock()
	defer r.assignMu.Unlock()
	r.assign = map[int32]struct{}{}
	for _, parts := range sess.Claims() {
		for _, p := range parts {
			r.assign[p] = struct{}{}
		}
	}
	r.assigned.Store(true)
}

func (r *Runner) clearAssignment() {
	r.assignMu.Lock()
	defer r.assignMu.Unlock()
	r.assigned.Store(false)
	r.assign = map[int32]struct{}{}
}

// Readiness reports whether the group session is live and which partitions
// this instance owns, sorted.
func (r *Runner) Readiness() (ready bool, partitions []int32) {
	if !r.assigned.Load() {
		return false, nil
	}
	r.assignMu.RLock()
	defer r.assignMu.RUnlock()
	for p := range r.assign {
		partitions = append(partitions, p)
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })
	return true, partitions
}

// handleMessage applies one event. Undecodable messages are logged and
// skipped; an error is returned only when applying failed and the message
// should be redelivered.
func (r *Runner) handleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	start := time.Now()
	r.ms.observeLag(msg.Partition, msg.Timestamp)

	ev, err := catalogevents.Decode(msg.Value)
	if err != nil {
		observability.IncKafkaConsumerError("decode")
		r.ms.outcome("", outcomeUndecodable)
		r.log.WarnContext(ctx, "dropping undecodable catalog event",
			"partition", msg.Partition, "offset", msg.Offset, "err", err)
		return nil
	}

	ctx = mylog.WithCode(ctx, ev.Code)
	c, ok := r.ver.shouldApply(ev.Code, ev.Version)
	if !ok {
		r.ms.outcome(ev.Op, outcomeStale)
		return nil
	}

	err = r.apply(ctx, ev)
	r.ms.applied(ev.Op, time.Since(start))
	if err != nil {
		r.ver.forget(c)
		observability.IncKafkaConsumerError("apply")
		r.ms.outcome(ev.Op, outcomeFailed)
		return err
	}
	r.ms.outcome(ev.Op, outcomeApplied)
	return nil
}

func (r *Runner) apply(ctx context.Context, ev catalogevents.Event) error {
	switch ev.Op {
	case catalogevents.OpDelete:
		// Invalidate also removes the cached resampled profiles
		if err := r.docs.Invalidate(ctx, ev.Code); err != nil {
			return fmt.Errorf("invalidate %q: %w", ev.Code, err)
		}
		r.ms.action(ev.Op, "invalidate")
	default:
		r.docs.Evict(ev.Code)
		r.ms.action(ev.Op, "evict")
		if r.resample != nil {
			if err := r.resample.DropResampled(ctx, ev.Code); err != nil {
				return fmt.Errorf("drop resampled %q: %w", ev.Code, err)
			}
			r.ms.action(ev.Op, "drop_resampled")
		}
	}
	if r.hot != nil {
		r.hot.Reset(ev.Code)
		r.ms.action(ev.Op, "reset_popularity")
	}
	r.log.DebugContext(ctx, "catalog event applied", "op", ev.Op, "version", ev.Version, "event_id", ev.ID)
	return nil
}

type groupHandler struct {
	setup   func(sarama.ConsumerGroupSession)
	cleanup func(sarama.ConsumerGroupSession)
	process func(context.Context, *sarama.ConsumerMessage) error
}

func (h *groupHandler) Setup(sess sarama.ConsumerGroupSession) error {
	if h.setup != nil {
		h.setup(sess)
	}
	return nil
}

func (h *groupHandler) Cleanup(sess sarama.ConsumerGroupSession) error {
	if h.cleanup != nil {
		h.cleanup(sess)
	}
	return nil
}

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()
	for msg := range claim.Messages() {
		if err := h.process(ctx, msg); err != nil {
			return err
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}
