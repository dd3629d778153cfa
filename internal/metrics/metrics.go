// Package metrics wires the orchestrator's observable behavior to
// Prometheus, reviving client_golang — declared in the teacher's go.mod but
// never registered with a collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry groups every collector this module registers, so the CLI can
// construct one instance bound to a private prometheus.Registerer in tests
// and the default global registerer in production.
type Registry struct {
	Conversions       *prometheus.CounterVec
	ConversionErrors  *prometheus.CounterVec
	ConversionLatency *prometheus.HistogramVec
	GapCount          prometheus.Histogram
	CoverageChecks    *prometheus.CounterVec
}

// New registers every collector against reg and returns the bound Registry.
// Pass prometheus.DefaultRegisterer in production, a fresh
// prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)
	return &Registry{
		Conversions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sigmaspl",
			Name:      "conversions_total",
			Help:      "Total conversions performed, by direction.",
		}, []string{"direction"}),
		ConversionErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sigmaspl",
			Name:      "conversion_errors_total",
			Help:      "Total conversion failures, by direction and error kind.",
		}, []string{"direction", "kind"}),
		ConversionLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sigmaspl",
			Name:      "conversion_duration_seconds",
			Help:      "Conversion wall-clock duration, by direction.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"direction"}),
		GapCount: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sigmaspl",
			Name:      "gap_items_per_conversion",
			Help:      "Number of gap items surfaced per forward conversion.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		}),
		CoverageChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sigmaspl",
			Name:      "coverage_checks_total",
			Help:      "Total coverage checks, by overall_covered result.",
		}, []string{"covered"}),
	}
}
