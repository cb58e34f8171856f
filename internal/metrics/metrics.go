// Package metrics exposes the session engine's prometheus collectors,
// grounded on the teacher's metrics.Registry pattern but scoped to the
// session lifecycle instead of crypto trading performance.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/atlas-desktop/session-engine/pkg/types"
)

// Registry is the custom prometheus registry for session engine metrics.
var Registry = prometheus.NewRegistry()

var (
	SessionsRunning = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sessionengine",
			Subsystem: "session",
			Name:      "running",
			Help:      "Number of currently active trading sessions",
		},
	)

	SessionCyclesTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessionengine",
			Subsystem: "session",
			Name:      "cycles_total",
			Help:      "Total evaluation cycles run per session",
		},
		[]string{"session_id", "stock_code"},
	)

	SessionErrorsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessionengine",
			Subsystem: "session",
			Name:      "errors_total",
			Help:      "Total cycle errors per session",
		},
		[]string{"session_id"},
	)

	OrdersTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessionengine",
			Subsystem: "order",
			Name:      "total",
			Help:      "Total orders placed, by side and outcome",
		},
		[]string{"side", "outcome"}, // side: buy/sell, outcome: filled/failed
	)

	BrokerCallDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sessionengine",
			Subsystem: "broker",
			Name:      "call_duration_seconds",
			Help:      "Upstream broker call latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	BrokerDegradedTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessionengine",
			Subsystem: "broker",
			Name:      "degraded_total",
			Help:      "Times a balance fetch fell back to the cached value",
		},
		[]string{"account_no"},
	)

	RateLimiterWaitSeconds = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sessionengine",
			Subsystem: "rate_limiter",
			Name:      "wait_seconds",
			Help:      "Time spent waiting for a rate limiter token",
			Buckets:   []float64{0, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	WorkerPoolQueueLength = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "sessionengine",
			Subsystem: "worker_pool",
			Name:      "queue_length",
			Help:      "Current worker pool queue depth",
		},
		[]string{"pool"},
	)
)

// Init registers the standard Go runtime collectors alongside the
// domain-specific ones declared above.
func Init() {
	Registry.MustRegister(prometheus.NewGoCollector())
	Registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
}

// RecordOrder records the outcome of one order placement.
func RecordOrder(signal types.Signal, filled bool) {
	side := "buy"
	if signal == types.SignalSell {
		side = "sell"
	}
	outcome := "filled"
	if !filled {
		outcome = "failed"
	}
	OrdersTotal.WithLabelValues(side, outcome).Inc()
}
