// Package metrics exposes the scheduler's operational counters through
// Prometheus collectors. The core never serves HTTP itself; the embedding
// process decides whether and where to expose the registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the collectors updated by the ledger, composer, and
// stall monitor.
type Metrics struct {
	SoftReserved     *prometheus.GaugeVec
	HardLocked       *prometheus.GaugeVec
	BatchesComposed  prometheus.Counter
	BatchesCommitted prometheus.Counter
	CommitShrinks    prometheus.Counter
	SerialsIssued    prometheus.Counter
	StallAlerts      prometheus.Counter
	HandoffsEmitted  prometheus.Counter
}

// New creates the collectors and registers them with reg. Pass a fresh
// prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SoftReserved: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "batchplan_soft_reserved_units",
			Help: "Soft-reserved quantity per component SKU.",
		}, []string{"sku"}),
		HardLocked: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "batchplan_hard_locked_units",
			Help: "Hard-locked quantity per component SKU.",
		}, []string{"sku"}),
		BatchesComposed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batchplan_batches_composed_total",
			Help: "Batch drafts produced by the composer.",
		}),
		BatchesCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batchplan_batches_committed_total",
			Help: "Batches committed with hard reservations.",
		}),
		CommitShrinks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batchplan_commit_shrinks_total",
			Help: "Commits that shrank after a concurrent stock change.",
		}),
		SerialsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batchplan_serials_issued_total",
			Help: "Unit serials issued from the 20-bit space.",
		}),
		StallAlerts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batchplan_stall_alerts_total",
			Help: "Inactivity alerts emitted by the stall monitor.",
		}),
		HandoffsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batchplan_handoffs_emitted_total",
			Help: "Production-complete hand-off events emitted.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.SoftReserved,
			m.HardLocked,
			m.BatchesComposed,
			m.BatchesCommitted,
			m.CommitShrinks,
			m.SerialsIssued,
			m.StallAlerts,
			m.HandoffsEmitted,
		)
	}
	return m
}

// SetReservationGauges updates the per-SKU gauges after a ledger mutation
func (m *Metrics) SetReservationGauges(sku string, soft, hard int64) {
	if m == nil {
		return
	}
	m.SoftReserved.WithLabelValues(sku).Set(float64(soft))
	m.HardLocked.WithLabelValues(sku).Set(float64(hard))
}
