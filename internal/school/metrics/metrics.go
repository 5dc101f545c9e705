package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SchoolsRegistered    prometheus.Counter
	StatusChanged        prometheus.Counter
	DetailsFetchDuration prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		SchoolsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "homeroom_schools_registered_total",
			Help: "Total number of schools registered",
		}),
		StatusChanged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "homeroom_schools_status_changed_total",
			Help: "Total number of school activation state transitions",
		}),
		DetailsFetchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "homeroom_school_details_fetch_duration_seconds",
			Help:    "Duration of school details queries including member counts",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementSchoolsRegistered() {
	m.SchoolsRegistered.Inc()
}

func (m *Metrics) IncrementStatusChanged() {
	m.StatusChanged.Inc()
}

func (m *Metrics) ObserveDetailsFetch(start time.Time) {
	m.DetailsFetchDuration.Observe(time.Since(start).Seconds())
}
