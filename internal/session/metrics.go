package session

import "github.com/prometheus/client_golang/prometheus"

var (
	incrementsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "poolchat",
			Subsystem: "session",
			Name:      "increments_total",
			Help:      "Generation increments emitted",
		},
	)

	resetsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "poolchat",
			Subsystem: "session",
			Name:      "resets_total",
			Help:      "Session resets",
		},
	)

	submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "poolchat",
			Subsystem: "session",
			Name:      "submissions_total",
			Help:      "Submissions by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(incrementsTotal, resetsTotal, submissionsTotal)
}
