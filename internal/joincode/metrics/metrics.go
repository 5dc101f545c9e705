package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	CodesIssued      prometheus.Counter
	CodesRegenerated prometheus.Counter
	CollisionRetries prometheus.Counter
	SwapConflicts    prometheus.Counter
	VerifyDuration   prometheus.Histogram
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		CodesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "homeroom_join_codes_issued_total",
			Help: "Total number of join codes issued, initial and regenerated",
		}),
		CodesRegenerated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "homeroom_join_codes_regenerated_total",
			Help: "Total number of join code regenerations",
		}),
		CollisionRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "homeroom_join_code_collision_retries_total",
			Help: "Times a generated code collided and was redrawn; growth signals code-space saturation",
		}),
		SwapConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "homeroom_join_code_swap_conflicts_total",
			Help: "Regeneration attempts that lost the conditional write and retried",
		}),
		VerifyDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "homeroom_join_code_verify_duration_seconds",
			Help:    "Duration of code verification (member join critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "homeroom_join_code_cache_hits_total",
			Help: "Verification requests answered from the cache",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "homeroom_join_code_cache_misses_total",
			Help: "Verification requests that fell through to the store",
		}),
	}
}

func (m *Metrics) IncrementCodesIssued() {
	m.CodesIssued.Inc()
}

func (m *Metrics) IncrementCodesRegenerated() {
	m.CodesRegenerated.Inc()
}

func (m *Metrics) IncrementCollisionRetries() {
	m.CollisionRetries.Inc()
}

func (m *Metrics) IncrementSwapConflicts() {
	m.SwapConflicts.Inc()
}

func (m *Metrics) ObserveVerify(start time.Time) {
	m.VerifyDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementCacheHits() {
	m.CacheHits.Inc()
}

func (m *Metrics) IncrementCacheMisses() {
	m.CacheMisses.Inc()
}
