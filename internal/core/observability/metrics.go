// Package observability holds the Prometheus collectors shared by the service.
package observability

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	upstreamLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of upstream catalog calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"upstream", "outcome"},
	)

	storeOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_op_total",
			Help: "Document store operations by op and result.",
		},
		[]string{"op", "result"},
	)

	storeOpDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Latency of Redis operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"op"},
	)

	sourceResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_results_total",
			Help: "Coordinate lookups by the tier that answered and outcome.",
		},
		[]string{"tier", "outcome"},
	)

	geometryBuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geometry_builds_total",
			Help: "Airfoil geometries built from raw coordinates by outcome.",
		},
		[]string{"outcome"},
	)

	resampleDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resample_duration_seconds",
			Help:    "Time spent re-paneling one airfoil.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 16),
		},
		[]string{"scheme", "outcome"},
	)

	resampleCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resample_cache_total",
			Help: "Resampled-profile cache lookups by result (hit, miss, skip).",
		},
		[]string{"result"},
	)

	hotCodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "popularity_hot_codes",
			Help: "Airfoil codes currently above the hot threshold.",
		},
	)

	cloneResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_clone_airfoils_total",
			Help: "Airfoils processed by the catalog clone by outcome.",
		},
		[]string{"outcome"},
	)

	kafkaConsumerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_consumer_errors_total",
			Help: "Invalidation consumer errors by kind.",
		},
		[]string{"kind"},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)
)

// Init additionally registers every collector on reg so a dedicated
// registry can serve them.
func Init(reg prometheus.Registerer) {
	if reg == nil {
		return
	}
	for _, c := range []prometheus.Collector{
		httpRequestsTotal,
		httpRequestDurationSeconds,
		upstreamLatencySeconds,
		storeOpsTotal,
		storeOpDurationSeconds,
		sourceResults,
		geometryBuilds,
		resampleDurationSeconds,
		resampleCacheTotal,
		hotCodes,
		cloneResults,
		kafkaConsumerErrors,
	} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
		}
	}
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveUpstreamLatency(upstream string, err error, durationSeconds float64) {
	upstreamLatencySeconds.WithLabelValues(upstream, outcome(err)).Observe(durationSeconds)
}

func ObserveStoreOp(op string, err error, durationSeconds float64) {
	storeOpsTotal.WithLabelValues(op, outcome(err)).Inc()
	storeOpDurationSeconds.WithLabelValues(op).Observe(durationSeconds)
}

// IncSourceResult counts one lookup answered by tier ("memory", "store",
// "upstream") with outcome "hit", "miss" or "error".
func IncSourceResult(tier, outcome string) {
	sourceResults.WithLabelValues(tier, outcome).Inc()
}

func IncGeometryBuild(outcome string) {
	geometryBuilds.WithLabelValues(outcome).Inc()
}

func ObserveResample(scheme string, err error, durationSeconds float64) {
	resampleDurationSeconds.WithLabelValues(scheme, outcome(err)).Observe(durationSeconds)
}

func IncResampleCache(result string) {
	resampleCacheTotal.WithLabelValues(result).Inc()
}

func SetHotCodes(n int) {
	hotCodes.Set(float64(n))
}

func IncClone(outcome string) {
	cloneResults.WithLabelValues(outcome).Inc()
}

// IncKafkaConsumerError counts consumer failures; kind is "decode", "apply"
// or "session".
func IncKafkaConsumerError(kind string) {
	kafkaConsumerErrors.WithLabelValues(kind).Inc()
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
