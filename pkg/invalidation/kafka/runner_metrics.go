package kafka

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeApplied     = "applied"
	outcomeStale       = "stale"
	outcomeFailed      = "failed"
	outcomeUndecodable = "undecodable"
)

// eventMetrics instruments the catalog event consumer. Series are labeled by
// event op so upserts and deletes can be told apart.
type eventMetrics struct {
	events  *prometheus.CounterVec
	actions *prometheus.CounterVec
	apply   *prometheus.HistogramVec
	lag     *prometheus.GaugeVec
}

func newEventMetrics(r prometheus.Registerer) *eventMetrics {
	m := &eventMetrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airfoil",
			Subsystem: "catalog_events",
			Name:      "consumed_total",
			Help:      "Catalog events consumed, by op and outcome (applied, stale, failed, undecodable).",
		}, []string{"op", "outcome"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airfoil",
			Subsystem: "catalog_events",
			Name:      "cache_actions_total",
			Help:      "Cache entries dropped for applied catalog events, by op and action.",
		}, []string{"op", "action"}),
		apply: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "airfoil",
			Subsystem: "catalog_events",
			Name:      "apply_seconds",
			Help:      "Time to apply one catalog event to the caches.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"op"}),
		lag: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "airfoil",
			Subsystem: "catalog_events",
			Name:      "lag_seconds",
			Help:      "Age of the last consumed catalog event per partition.",
		}, []string{"partition"}),
	}
	if r != nil {
		r.MustRegister(m.events, m.actions, m.apply, m.lag)
	}
	return m
}

func (m *eventMetrics) outcome(op, outcome string) {
	if op == "" {
		op = "unknown"
	}
	m.events.WithLabelValues(op, outcome).Inc()
}

func (m *eventMetrics) action(op, action string) {
	m.actions.WithLabelValues(op, action).Inc()
}

func (m *eventMetrics) applied(op string, d time.Duration) {
	m.apply.WithLabelValues(op).Observe(d.Seconds())
}

func (m *eventMetrics) observeLag(partition int32, ts time.Time) {
	if ts.IsZero() {
		return
	}
	m.lag.WithLabelValues(strconv.Itoa(int(partition))).Set(time.Since(ts).Seconds())
}
