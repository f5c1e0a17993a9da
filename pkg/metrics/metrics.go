// Package metrics defines the Prometheus collectors for active learning runs
// and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for a learner or collector process.
type Metrics struct {
	RoundsTotal          *prometheus.CounterVec
	AcquisitionsTotal    *prometheus.CounterVec
	FitDuration          *prometheus.HistogramVec
	Accuracy             *prometheus.GaugeVec
	TrainSize            *prometheus.GaugeVec
	RunFailuresTotal     *prometheus.CounterVec
	DensityCacheHits     prometheus.Counter
	DensityCacheMisses   prometheus.Counter
	CurvesStoredTotal    *prometheus.CounterVec
	RoundEventsPublished *prometheus.CounterVec
	RoundEventsConsumed  *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them on reg. A nil reg uses the
// process-wide default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		RoundsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activelearn_rounds_total",
				Help: "Completed fit/evaluate rounds by strategy.",
			},
			[]string{"strategy"},
		),
		AcquisitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activelearn_acquisitions_total",
				Help: "Pool items moved into the training set by strategy.",
			},
			[]string{"strategy"},
		),
		FitDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "activelearn_fit_duration_seconds",
				Help:    "Classifier fit latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"strategy"},
		),
		Accuracy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "activelearn_accuracy",
				Help: "Test accuracy of the most recent round by strategy.",
			},
			[]string{"strategy"},
		),
		TrainSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "activelearn_train_size",
				Help: "Training set size of the most recent round by strategy.",
			},
			[]string{"strategy"},
		),
		RunFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activelearn_run_failures_total",
				Help: "Strategy runs aborted by an error.",
			},
			[]string{"strategy"},
		),
		DensityCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "activelearn_density_cache_hits_total",
				Help: "Density vectors served from the cache.",
			},
		),
		DensityCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "activelearn_density_cache_misses_total",
				Help: "Density vectors computed because the cache had no usable entry.",
			},
		),
		CurvesStoredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activelearn_curves_stored_total",
				Help: "Learning curves written to a result sink by status.",
			},
			[]string{"status"},
		),
		RoundEventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activelearn_round_events_published_total",
				Help: "Round events published to Kafka by status.",
			},
			[]string{"status"},
		),
		RoundEventsConsumed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activelearn_round_events_consumed_total",
				Help: "Round events consumed from Kafka by status.",
			},
			[]string{"status"},
		),
	}

	reg.MustRegister(
		m.RoundsTotal,
		m.AcquisitionsTotal,
		m.FitDuration,
		m.Accuracy,
		m.TrainSize,
		m.RunFailuresTotal,
		m.DensityCacheHits,
		m.DensityCacheMisses,
		m.CurvesStoredTotal,
		m.RoundEventsPublished,
		m.RoundEventsConsumed,
	)

	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}
	return m
}

// Handler returns the Prometheus scrape HTTP handler for the registry the
// collectors were registered on.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
