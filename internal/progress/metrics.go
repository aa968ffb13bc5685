package progress

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cwbudde/descent/internal/opt"
)

const prefix = "descent_"

var (
	methodLabels          = []string{"method"}
	methodAndStatusLabels = []string{"method", "status"}
)

// Metrics records optimizer progress as prometheus metrics in its own
// registry.
type Metrics struct {
	registry *prometheus.Registry

	iterations     *prometheus.CounterVec
	skippedUpdates *prometheus.CounterVec
	runs           *prometheus.CounterVec
	value          *prometheus.GaugeVec
	gradNorm       *prometheus.GaugeVec
	stepNorm       *prometheus.HistogramVec
}

// NewMetrics creates the metrics and registers them in a fresh registry.
func NewMetrics() *Metrics {
	iterations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "iterations_total",
			Help: "Number of completed optimizer steps",
		},
		methodLabels,
	)

	skippedUpdates := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "skipped_curvature_updates_total",
			Help: "Number of quasi-Newton steps that kept the previous inverse-Hessian approximation",
		},
		methodLabels,
	)

	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "runs_total",
			Help: "Number of finished optimization runs by termination status",
		},
		methodAndStatusLabels,
	)

	value := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "objective_value",
			Help: "Objective value at the current point",
		},
		methodLabels,
	)

	gradNorm := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "gradient_norm",
			Help: "Euclidean norm of the gradient at the current point",
		},
		methodLabels,
	)

	stepNorm := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "step_norm",
			Help:    "Euclidean norm of each step",
			Buckets: prometheus.ExponentialBuckets(1e-9, 10, 12),
		},
		methodLabels,
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(iterations, skippedUpdates, runs, value, gradNorm, stepNorm)

	return &Metrics{
		registry:       registry,
		iterations:     iterations,
		skippedUpdates: skippedUpdates,
		runs:           runs,
		value:          value,
		gradNorm:       gradNorm,
		stepNorm:       stepNorm,
	}
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe implements opt.Observer.
func (m *Metrics) Observe(e opt.Event) {
	method := string(e.Method)
	switch e.Kind {
	case opt.EventStart, opt.EventIteration:
		m.value.WithLabelValues(method).Set(e.Value)
		m.gradNorm.WithLabelValues(method).Set(e.GradNorm)
	case opt.EventUpdate:
		m.iterations.WithLabelValues(method).Inc()
		m.stepNorm.WithLabelValues(method).Observe(e.StepNorm)
		if e.SkippedUpdate {
			m.skippedUpdates.WithLabelValues(method).Inc()
		}
	case opt.EventTerminate:
		m.value.WithLabelValues(method).Set(e.Value)
		m.gradNorm.WithLabelValues(method).Set(e.GradNorm)
		m.runs.WithLabelValues(method, e.Status.String()).Inc()
	}
}

// WriteToTextfile writes the metrics in the text exposition format, for the
// node exporter's textfile collector.
func (m *Metrics) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
