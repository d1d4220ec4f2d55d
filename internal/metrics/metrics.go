// Package metrics holds the Prometheus instruments for the feed service.
// They are registered with the default registry and served on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Feed paths label which stage produced a response.
const (
	PathHybrid   = "hybrid"
	PathFallback = "fallback"
	PathEmpty    = "empty"
)

var (
	FeedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_requests_total",
			Help: "Feed requests by the stage that produced the page",
		},
		[]string{"path"},
	)

	FeedRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feed_request_duration_seconds",
			Help:    "End-to-end feed ranking latency",
			Buckets: prometheus.DefBuckets,
		},
	)

	GeneratorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_generator_duration_seconds",
			Help:    "Candidate generator latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"source"},
	)

	GeneratorFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_generator_failures_total",
			Help: "Candidate generator calls that failed and were dropped from the blend",
		},
		[]string{"source"},
	)

	GeneratorCandidates = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_generator_candidates",
			Help:    "Candidates returned per generator call",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
		[]string{"source"},
	)

	InteractionsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_interactions_recorded_total",
			Help: "Interactions appended to the log by kind",
		},
		[]string{"kind"},
	)

	InteractionRecordFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_interaction_record_failures_total",
			Help: "Interactions dropped because validation or storage failed",
		},
	)

	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_events_dropped_total",
			Help: "Interaction events dropped because the bus was full",
		},
	)

	ProfileRebuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_profile_rebuilds_total",
			Help: "Profile rebuilds by trigger and outcome",
		},
		[]string{"trigger", "outcome"},
	)

	ComponentUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "feed_component_up",
			Help: "1 while a dependency's last health probe passed",
		},
		[]string{"component"},
	)

	OutboxRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_outbox_rows_total",
			Help: "Outbox rows handled by the profile worker, by outcome",
		},
		[]string{"outcome"},
	)

	HandlerPanics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_http_panics_total",
			Help: "Handler panics recovered by route template",
		},
		[]string{"route"},
	)

	ProfileRebuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feed_profile_rebuild_duration_seconds",
			Help:    "Profile rebuild latency",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// ObserveGenerator records one generator call.
func ObserveGenerator(source string, started time.Time, candidates int, failed bool) {
	GeneratorDuration.WithLabelValues(source).Observe(time.Since(started).Seconds())
	GeneratorCandidates.WithLabelValues(source).Observe(float64(candidates))
	if failed {
		GeneratorFailures.WithLabelValues(source).Inc()
	}
}

// ObserveRebuild records one profile rebuild.
func ObserveRebuild(trigger, outcome string, started time.Time) {
	ProfileRebuilds.WithLabelValues(trigger, outcome).Inc()
	ProfileRebuildDuration.Observe(time.Since(started).Seconds())
}

// SetComponentUp records a dependency health flag.
func SetComponentUp(component string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	ComponentUp.WithLabelValues(component).Set(v)
}
