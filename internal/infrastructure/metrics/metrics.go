// Package metrics exposes the engine's runtime counters as Prometheus
// collectors, mirroring the teacher's infrastructure/metrics wiring: a
// small Recorder built around a registerer, with nil-safe no-op methods
// so a caller that never configures Prometheus still runs cleanly.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recorder is the set of collectors the fixed-point driver updates once
// per time step plus the two recoverable-error counters from §7.
type Recorder struct {
	steps            prometheus.Counter
	factsAdded       prometheus.Histogram
	maxBoundDelta    prometheus.Histogram
	staticViolations prometheus.Counter
	annotationErrors prometheus.Counter
}

// New builds a Recorder and registers its collectors with reg. Passing a
// nil reg is valid: the collectors are created but never registered,
// which is only useful in tests that want a Recorder without a live
// Prometheus registry.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reason",
			Name:      "steps_total",
			Help:      "Total fixed-point steps executed.",
		}),
		factsAdded: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "reason",
			Name:      "facts_added",
			Help:      "Facts added or changed per step.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		maxBoundDelta: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "reason",
			Name:      "max_bound_delta",
			Help:      "Largest interval-width narrowing applied in a step.",
			Buckets:   prometheus.LinearBuckets(0, 0.05, 20),
		}),
		staticViolations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reason",
			Name:      "static_violations_total",
			Help:      "Proposals rejected because their target fact was frozen.",
		}),
		annotationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reason",
			Name:      "annotation_errors_total",
			Help:      "Annotation aggregator panics or invalid results.",
		}),
	}
	if reg != nil {
		reg.MustRegister(r.steps, r.factsAdded, r.maxBoundDelta, r.staticViolations, r.annotationErrors)
	}
	return r
}

// RecordStep folds one step's counters into the histograms.
func (r *Recorder) RecordStep(factsAdded int, maxBoundDelta float64) {
	if r == nil {
		return
	}
	r.steps.Inc()
	r.factsAdded.Observe(float64(factsAdded))
	r.maxBoundDelta.Observe(maxBoundDelta)
}

// IncStaticViolation counts one rejected write to a frozen fact.
func (r *Recorder) IncStaticViolation() {
	if r == nil {
		return
	}
	r.staticViolations.Inc()
}

// IncAnnotationError counts one annotation failure.
func (r *Recorder) IncAnnotationError() {
	if r == nil {
		return
	}
	r.annotationErrors.Inc()
}
