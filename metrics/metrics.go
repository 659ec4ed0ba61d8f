// Package metrics provides Prometheus metrics for the flowcanvas server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GesturesTotal counts finished canvas gestures by kind and whether they
	// changed the workflow.
	GesturesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flowcanvas",
			Subsystem: "canvas",
			Name:      "gestures_total",
			Help:      "Finished canvas gestures by kind",
		},
		[]string{"kind", "changed"},
	)

	// ConnectionsTotal counts connection validations by verdict.
	ConnectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flowcanvas",
			Subsystem: "canvas",
			Name:      "connections_total",
			Help:      "Connection attempts by result and rejection reason",
		},
		[]string{"result", "reason"}, // "accepted" / "rejected"
	)

	// CanvasesOpen tracks canvases held by the server.
	CanvasesOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "flowcanvas",
			Subsystem: "canvas",
			Name:      "open",
			Help:      "Number of canvases currently held in memory",
		},
	)

	// BackendRequestDuration tracks calls to the execution and insight backends.
	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "flowcanvas",
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Backend request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "operation", "outcome"},
	)
)

// RecordConnection counts one validator verdict.
func RecordConnection(accepted bool, reason string) {
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	ConnectionsTotal.WithLabelValues(result, reason).Inc()
}

// RecordGesture counts one finished gesture.
func RecordGesture(kind string, changed bool) {
	c := "false"
	if changed {
		c = "true"
	}
	GesturesTotal.WithLabelValues(kind, c).Inc()
}
