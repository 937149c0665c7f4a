// Package metrics defines the Prometheus collectors for feature mapping and
// the streaming worker, and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for featurepic.
type Metrics struct {
	PointsClassifiedTotal  *prometheus.CounterVec
	FeaturesMappedTotal    prometheus.Counter
	FeaturesDiscardedTotal prometheus.Counter
	RefinementsTotal       *prometheus.CounterVec
	PointsRemovedTotal     *prometheus.CounterVec
	FeatureMapDuration     prometheus.Histogram
	CacheHitsTotal         prometheus.Counter
	CacheMissesTotal       prometheus.Counter
	JobsTotal              *prometheus.CounterVec
	CircuitBreakerState    *prometheus.GaugeVec
}

// New creates all collectors and registers them with reg. Pass
// prometheus.DefaultRegisterer to expose them through Handler.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PointsClassifiedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pic_points_classified_total",
				Help: "Observations classified against the reference grid, by class (matched, missing, out_of_range).",
			},
			[]string{"class"},
		),
		FeaturesMappedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pic_features_mapped_total",
				Help: "Features mapped onto the reference grid.",
			},
		),
		FeaturesDiscardedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pic_features_discarded_total",
				Help: "Features dropped from output because no observation matched the grid.",
			},
		),
		RefinementsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pic_refinements_total",
				Help: "Refinement passes by operation and result (applied, skipped, error).",
			},
			[]string{"op", "result"},
		),
		PointsRemovedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pic_points_removed_total",
				Help: "Matched points removed by refinement, by operation.",
			},
			[]string{"op"},
		),
		FeatureMapDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pic_feature_map_duration_seconds",
				Help:    "Time to classify and refine one feature.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pic_cache_hits_total",
				Help: "Map results served from the result cache.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pic_cache_misses_total",
				Help: "Map results computed because the cache had none.",
			},
		),
		JobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pic_jobs_total",
				Help: "Worker map jobs by status (published, discarded, invalid, failed).",
			},
			[]string{"status"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.PointsClassifiedTotal,
		m.FeaturesMappedTotal,
		m.FeaturesDiscardedTotal,
		m.RefinementsTotal,
		m.PointsRemovedTotal,
		m.FeatureMapDuration,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.JobsTotal,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
