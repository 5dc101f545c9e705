// Package metrics provides Prometheus metrics for the registration saga.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RegistrationsStarted   prometheus.Counter
	RegistrationsSucceeded prometheus.Counter
	RegistrationsFailed    *prometheus.CounterVec // labeled by the step that failed
	Compensations          prometheus.Counter
	CompensationFailures   *prometheus.CounterVec // labeled by the step whose undo failed
	SagaDuration           prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		RegistrationsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "homeroom_registrations_started_total",
			Help: "Total number of school registration attempts",
		}),
		RegistrationsSucceeded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "homeroom_registrations_succeeded_total",
			Help: "Registrations that completed every provisioning step",
		}),
		RegistrationsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "homeroom_registrations_failed_total",
			Help: "Registrations aborted, labeled by the step that failed",
		}, []string{"step"}),
		Compensations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "homeroom_registration_compensations_total",
			Help: "Compensation actions executed while unwinding a failed registration",
		}),
		CompensationFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "homeroom_registration_compensation_failures_total",
			Help: "Compensations that failed and left residue for reconciliation, labeled by step",
		}, []string{"step"}),
		SagaDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "homeroom_registration_duration_seconds",
			Help:    "End-to-end duration of the registration saga",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

func (m *Metrics) IncrementStarted() {
	m.RegistrationsStarted.Inc()
}

func (m *Metrics) IncrementSucceeded() {
	m.RegistrationsSucceeded.Inc()
}

func (m *Metrics) IncrementFailed(step string) {
	m.RegistrationsFailed.WithLabelValues(step).Inc()
}

func (m *Metrics) IncrementCompensations() {
	m.Compensations.Inc()
}

func (m *Metrics) IncrementCompensationFailures(step string) {
	m.CompensationFailures.WithLabelValues(step).Inc()
}

func (m *Metrics) ObserveSaga(start time.Time) {
	m.SagaDuration.Observe(time.Since(start).Seconds())
}
