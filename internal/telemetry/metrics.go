// Package telemetry exposes Prometheus collectors for the harvester.
package telemetry

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchesTotal          *prometheus.CounterVec
	rowsPersistedTotal    *prometheus.CounterVec
	tupleFailuresTotal    prometheus.Counter
	rateLimitDelaySeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		fetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_fetches_total",
				Help: "Total orchestrated fetches, labeled by tier and terminal outcome.",
			},
			[]string{"tier", "outcome"},
		)

		rowsPersistedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_rows_persisted_total",
				Help: "Total rows written to the provenance store, labeled by table.",
			},
			[]string{"table"},
		)

		tupleFailuresTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "harvester_tuple_failures_total",
				Help: "Total extraction tuples whose atomic write failed.",
			},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harvester_rate_limit_delay_seconds",
				Help:    "Histogram of delays introduced by the per-domain rate limiter.",
				Buckets: []float64{0.01, 0.05, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"domain"},
		)
	})
}

// ObserveFetch records one terminal orchestrator outcome.
func ObserveFetch(tier, outcome string) {
	if fetchesTotal == nil {
		return
	}
	fetchesTotal.WithLabelValues(tier, outcome).Inc()
}

// AddPersistedRows records rows written to the given table.
func AddPersistedRows(table string, n int) {
	if rowsPersistedTotal == nil || n <= 0 {
		return
	}
	rowsPersistedTotal.WithLabelValues(table).Add(float64(n))
}

// ObserveTupleFailure records one failed per-tuple write.
func ObserveTupleFailure() {
	if tupleFailuresTotal == nil {
		return
	}
	tupleFailuresTotal.Inc()
}

// ObserveRateLimitDelay records how long a caller was held by the limiter.
func ObserveRateLimitDelay(domain string, d time.Duration) {
	if rateLimitDelaySeconds == nil {
		return
	}
	rateLimitDelaySeconds.WithLabelValues(domain).Observe(d.Seconds())
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
