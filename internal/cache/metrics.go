package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/recache/internal/ir"
)

// Batch outcomes for recache_batches_total.
const (
	outcomeCommitted = "committed"
	outcomeFailed    = "failed"
	outcomeDiscarded = "discarded"
)

// metrics holds the cache's collectors. A nil *metrics records nothing.
type metrics struct {
	applied    *prometheus.CounterVec
	skipped    *prometheus.CounterVec
	batches    *prometheus.CounterVec
	deliveries prometheus.Counter
	records    prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}
	factory := promauto.With(reg)
	return &metrics{
		applied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "recache_operations_applied_total",
			Help: "Operations that changed the cache, by operation type",
		}, []string{"op"}),
		skipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "recache_operations_skipped_total",
			Help: "Operations that changed nothing, by operation type",
		}, []string{"op"}),
		batches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "recache_batches_total",
			Help: "Update batches by outcome",
		}, []string{"outcome"}),
		deliveries: factory.NewCounter(prometheus.CounterOpts{
			Name: "recache_live_query_deliveries_total",
			Help: "Live query results delivered to subscribers",
		}),
		records: factory.NewGauge(prometheus.GaugeOpts{
			Name: "recache_records",
			Help: "Records held in the committed store",
		}),
	}
}

func (m *metrics) operationApplied(kind ir.OpKind) {
	if m != nil {
		m.applied.WithLabelValues(string(kind)).Inc()
	}
}

func (m *metrics) operationSkipped(kind ir.OpKind) {
	if m != nil {
		m.skipped.WithLabelValues(string(kind)).Inc()
	}
}

func (m *metrics) batch(outcome string, records int) {
	if m != nil {
		m.batches.WithLabelValues(outcome).Inc()
		m.records.Set(float64(records))
	}
}

func (m *metrics) delivered(n int) {
	if m != nil && n > 0 {
		m.deliveries.Add(float64(n))
	}
}
