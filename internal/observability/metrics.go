package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// light-status engine.
type Metrics struct {
	FeedEventsApplied prometheus.Counter
	FeedParseErrors   prometheus.Counter
	FeedRunning       prometheus.Gauge
	StatusesPublished prometheus.Counter

	// Batch processing metrics.
	BatchSize     prometheus.Histogram
	BatchDuration prometheus.Histogram

	// Derivation metrics.
	DeriveDuration prometheus.Histogram

	// Submission metrics.
	Submissions      *prometheus.CounterVec // labels: outcome={accepted,validation,cooldown,constraint,unavailable,contact}
	EnumFallbacks    prometheus.Counter
	ConsensusResolve prometheus.Counter
}

// NewMetrics creates and registers all engine metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FeedEventsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lightwatch",
			Name:      "feed_events_applied_total",
			Help:      "Total push-feed events applied to the in-memory state.",
		}),
		FeedParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lightwatch",
			Name:      "feed_parse_errors_total",
			Help:      "Total push-feed messages that failed to parse or validate.",
		}),
		FeedRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lightwatch",
			Name:      "feed_running",
			Help:      "1 when the feed loop is active, 0 when shut down.",
		}),
		StatusesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lightwatch",
			Name:      "statuses_published_total",
			Help:      "Total changed light statuses published to the sink topic.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lightwatch",
			Name:      "feed_batch_size",
			Help:      "Number of messages per batch extracted from the push feed.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lightwatch",
			Name:      "feed_batch_duration_seconds",
			Help:      "Duration of a complete extract-apply-publish cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		DeriveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lightwatch",
			Name:      "derive_duration_seconds",
			Help:      "Duration of one full status derivation pass.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lightwatch",
			Name:      "submissions_total",
			Help:      "Report submissions by outcome.",
		}, []string{"outcome"}),
		EnumFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lightwatch",
			Name:      "enum_fallbacks_total",
			Help:      "Inserts retried with a historical enum synonym.",
		}),
		ConsensusResolve: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lightwatch",
			Name:      "consensus_resolutions_total",
			Help:      "Lights marked operational via working-acknowledgment consensus.",
		}),
	}

	prometheus.MustRegister(
		m.FeedEventsApplied,
		m.FeedParseErrors,
		m.FeedRunning,
		m.StatusesPublished,
		m.BatchSize,
		m.BatchDuration,
		m.DeriveDuration,
		m.Submissions,
		m.EnumFallbacks,
		m.ConsensusResolve,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FeedEventsApplied: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "lightwatch", Name: "feed_events_applied_total"}),
		FeedParseErrors:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "lightwatch", Name: "feed_parse_errors_total"}),
		FeedRunning:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "lightwatch", Name: "feed_running"}),
		StatusesPublished: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "lightwatch", Name: "statuses_published_total"}),
		BatchSize:         prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "lightwatch", Name: "feed_batch_size"}),
		BatchDuration:     prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "lightwatch", Name: "feed_batch_duration_seconds"}),
		DeriveDuration:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "lightwatch", Name: "derive_duration_seconds"}),
		Submissions:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "lightwatch", Name: "submissions_total"}, []string{"outcome"}),
		EnumFallbacks:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "lightwatch", Name: "enum_fallbacks_total"}),
		ConsensusResolve:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "lightwatch", Name: "consensus_resolutions_total"}),
	}
}
