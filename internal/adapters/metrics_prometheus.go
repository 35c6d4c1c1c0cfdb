package adapters

import (
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/prometheus/client_golang/prometheus"

	"cascade-builds/internal/ports"
)

const metricsNamespace = "cascade_builds"

// PrometheusMetrics records per-step durations and mergeable polling. A run
// is a short-lived process, so metrics are written to a node-exporter
// textfile on Flush rather than served.
type PrometheusMetrics struct {
	registry     *prometheus.Registry
	stepDuration *prometheus.HistogramVec
	steps        *prometheus.CounterVec
	pollAttempts *prometheus.HistogramVec
	textfile     string
}

func NewPrometheusMetrics(textfile string) *PrometheusMetrics {
	m := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "sequencer",
				Name:      "step_duration_seconds",
				Help:      "Duration of materialize and build steps in seconds.",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
			},
			[]string{"repo", "phase", "outcome"},
		),
		steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "sequencer",
				Name:      "steps_total",
				Help:      "Materialize and build steps by outcome.",
			},
			[]string{"phase", "outcome"},
		),
		pollAttempts: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "resolver",
				Name:      "mergeable_poll_attempts",
				Help:      "Host calls needed to learn a proposal's mergeable status.",
				Buckets:   prometheus.LinearBuckets(1, 1, 5),
			},
			[]string{"repo"},
		),
		textfile: strings.TrimSpace(textfile),
	}
	m.MustRegister(m.registry)
	return m
}

func (m *PrometheusMetrics) MustRegister(registry prometheus.Registerer) {
	registry.MustRegister(m.stepDuration)
	registry.MustRegister(m.steps)
	registry.MustRegister(m.pollAttempts)
}

func (m *PrometheusMetrics) ObserveStep(repo string, phase string, outcome string, duration time.Duration) {
	m.stepDuration.WithLabelValues(repo, phase, outcome).Observe(duration.Seconds())
	m.steps.WithLabelValues(phase, outcome).Inc()
}

func (m *PrometheusMetrics) ObserveMergeablePoll(repo string, attempts int) {
	m.pollAttempts.WithLabelValues(repo).Observe(float64(attempts))
}

// Flush writes the registry to the textfile, if one is configured.
func (m *PrometheusMetrics) Flush() error {
	if m.textfile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(m.textfile, m.registry); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write metrics textfile").
			WithCause(err)
	}
	return nil
}

func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

var _ ports.MetricsPort = (*PrometheusMetrics)(nil)
