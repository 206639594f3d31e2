// Package metrics exposes Prometheus collectors for the reporting pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Report outcomes.
const (
	OutcomeCreated       = "created"
	OutcomeCommented     = "commented"
	OutcomeCommentFailed = "comment_failed"
	OutcomeFailed        = "failed"
	OutcomeDisabled      = "disabled"
)

// The counters are exported so callers can read them back with testutil.
var (
	ReportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faultline_reports_total",
			Help: "Total number of error reports by outcome",
		},
		[]string{"outcome"},
	)

	DedupEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "faultline_dedup_evictions_total",
			Help: "Total number of dedup cache entries evicted by the sweeper",
		},
	)

	trackerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "faultline_tracker_request_duration_seconds",
			Help:    "Latency of issue-tracker calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{ReportsTotal, DedupEvictions, trackerDuration} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Handler serves the metrics gathered by reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

func RecordReport(outcome string) {
	ReportsTotal.WithLabelValues(outcome).Inc()
}

func RecordEvictions(n int) {
	DedupEvictions.Add(float64(n))
}

// ObserveTracker records the duration of a tracker call started at start.
func ObserveTracker(op string, start time.Time) {
	trackerDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
