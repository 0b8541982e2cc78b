package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neweyes_session_mutations_total",
			Help: "Session live-state mutator calls by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)
	liveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "neweyes_live_connections",
			Help: "Open websocket readers.",
		},
	)
	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neweyes_state_notifications_total",
			Help: "Session state change notifications by origin.",
		},
		[]string{"origin"},
	)
	degradedReads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neweyes_degraded_reads_total",
			Help: "Non-critical reads that failed and were rendered as unavailable.",
		},
		[]string{"what"},
	)
)

var registerOnce sync.Once

// Register adds the collectors to the default registry; safe to call twice.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(mutations, liveConnections, notifications, degradedReads)
	})
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}

func ObserveMutation(op string, err error) {
	mutations.WithLabelValues(op, outcome(err)).Inc()
}

func ConnectionOpened() {
	liveConnections.Inc()
}

func ConnectionClosed() {
	liveConnections.Dec()
}

func ObserveNotification(origin string) {
	notifications.WithLabelValues(origin).Inc()
}

func ObserveDegradedRead(what string) {
	degradedReads.WithLabelValues(what).Inc()
}
