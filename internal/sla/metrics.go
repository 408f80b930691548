package sla

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "incidentdesk"

var (
	slaNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sla",
			Name:      "notifications_total",
			Help:      "Total SLA notifications fired by threshold",
		},
		[]string{"threshold"},
	)

	slaCheckDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sla",
			Name:      "check_duration_seconds",
			Help:      "Time spent on a single SLA sweep",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	slaBreachedIncidents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sla",
			Name:      "breached_incidents",
			Help:      "Unresolved incidents currently past the escalation threshold",
		},
	)
)

func recordNotification(threshold string) {
	slaNotifications.WithLabelValues(threshold).Inc()
}

func recordCheck(duration time.Duration, breached int) {
	slaCheckDuration.Observe(duration.Seconds())
	slaBreachedIncidents.Set(float64(breached))
}
