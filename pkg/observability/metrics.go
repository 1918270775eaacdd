package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/vigil/pkg/schema"
)

// Metrics records validation passes as Prometheus metrics.
type Metrics struct {
	registry    *prometheus.Registry
	validations *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

var _ schema.Observer = (*Metrics)(nil)

// NewMetrics creates the collectors on a dedicated registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		validations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vigil_validations_total",
				Help: "Total number of validation passes",
			},
			[]string{"schema", "result"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vigil_field_errors_total",
				Help: "Total number of failing paths, by error code",
			},
			[]string{"schema", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vigil_validation_duration_seconds",
				Help:    "Duration of validation passes",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"schema"},
		),
	}
	m.registry.MustRegister(m.validations, m.failures, m.duration)
	return m
}

// OnValidated implements schema.Observer.
func (m *Metrics) OnValidated(e schema.ValidationEvent) {
	result := "valid"
	if !e.Valid {
		result = "invalid"
	}
	m.validations.WithLabelValues(e.Schema, result).Inc()
	for _, code := range e.Messages {
		m.failures.WithLabelValues(e.Schema, code).Inc()
	}
	m.duration.WithLabelValues(e.Schema).Observe(e.Duration.Seconds())
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
