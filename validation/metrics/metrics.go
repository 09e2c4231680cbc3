package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "graphql_validation"

var (
	// Failures counts requests rejected by a validation layer.
	Failures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "failures_total",
		Help:      "Number of field resolutions rejected by a validation layer.",
	}, []string{"layer", "type", "field"})

	// Rebuilds counts generation builds by result.
	Rebuilds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rebuilds_total",
		Help:      "Number of validation generation builds.",
	}, []string{"result"})

	// Generation is the number of the active generation.
	Generation = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "generation",
		Help:      "Number of the active validation generation.",
	})

	// WrappedFields is the number of resolvers wrapped in the active generation.
	WrappedFields = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "wrapped_fields",
		Help:      "Number of field resolvers wrapped in the active generation.",
	})
)

func init() {
	prometheus.MustRegister(Failures, Rebuilds, Generation, WrappedFields)
}
