package pool

import "github.com/prometheus/client_golang/prometheus"

var (
	dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "poolchat",
			Subsystem: "pool",
			Name:      "dispatch_total",
			Help:      "Worker calls by outcome",
		},
		[]string{"outcome"},
	)

	dispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "poolchat",
			Subsystem: "pool",
			Name:      "dispatch_duration_seconds",
			Help:      "Time from dispatch to reply per request kind",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		[]string{"kind"},
	)

	inflightGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "poolchat",
			Subsystem: "pool",
			Name:      "inflight_calls",
			Help:      "Worker calls dispatched and not yet settled",
		},
	)

	workersGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "poolchat",
			Subsystem: "pool",
			Name:      "workers",
			Help:      "Workers in the most recently created pool",
		},
	)

	violationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "poolchat",
			Subsystem: "pool",
			Name:      "protocol_violations_total",
			Help:      "Single-outstanding-call violations detected",
		},
	)
)

func init() {
	prometheus.MustRegister(dispatchTotal, dispatchDuration, inflightGauge, workersGauge, violationsTotal)
}
