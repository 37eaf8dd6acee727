package lifecycle

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/cartitem"
)

// Metrics holds the controller's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	transitions      *prometheus.CounterVec
	conflicts        *prometheus.CounterVec
	retries          prometheus.Counter
	lockWait         prometheus.Histogram
	lockTimeouts     prometheus.Counter
	emissionFailures *prometheus.CounterVec
	batches          *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cart_item",
			Name:      "transitions_total",
			Help:      "Committed state transitions.",
		}, []string{"from", "to"}),
		conflicts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cart_item",
			Name:      "version_conflicts_total",
			Help:      "Optimistic writes that lost a version race, by conflict policy.",
		}, []string{"policy"}),
		retries: f.NewCounter(prometheus.CounterOpts{
			Namespace: "cart_item",
			Name:      "retries_total",
			Help:      "Optimistic re-attempts after a conflict or transient failure.",
		}),
		lockWait: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cart_item",
			Name:      "lock_wait_seconds",
			Help:      "Time spent waiting for an exclusive lease.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		lockTimeouts: f.NewCounter(prometheus.CounterOpts{
			Namespace: "cart_item",
			Name:      "lock_timeouts_total",
			Help:      "Exclusive leases not acquired within the lock timeout.",
		}),
		emissionFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cart_item",
			Name:      "emission_failures_total",
			Help:      "Audit records or events that failed after commit.",
		}, []string{"sink"}),
		batches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cart_item",
			Name:      "batches_total",
			Help:      "Batch updates by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) transition(from, to cartitem.State) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
}

func (m *Metrics) conflict(policy ConflictPolicy) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(policy.String()).Inc()
}

func (m *Metrics) retry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func (m *Metrics) waited(d time.Duration, timedOut bool) {
	if m == nil {
		return
	}
	m.lockWait.Observe(d.Seconds())
	if timedOut {
		m.lockTimeouts.Inc()
	}
}

func (m *Metrics) emissionFailed(sink string) {
	if m == nil {
		return
	}
	m.emissionFailures.WithLabelValues(sink).Inc()
}

func (m *Metrics) batch(outcome string) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(outcome).Inc()
}
