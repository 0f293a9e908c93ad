package metrics

import (
	"loyalty-ledger-go/internal/events"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics is an events.Emitter that records ledger activity as
// Prometheus metrics.
type LedgerMetrics struct {
	operations     *prometheus.CounterVec
	pointsIssued   prometheus.Counter
	pointsRedeemed prometheus.Counter
	totalSupply    prometheus.Gauge
	userBalances   prometheus.Histogram
	supplyMismatch prometheus.Gauge
	purgedEntries  prometheus.Counter
}

// NewLedgerMetrics creates the collectors and registers them with reg.
func NewLedgerMetrics(reg prometheus.Registerer) (*LedgerMetrics, error) {
	m := &LedgerMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loyalty",
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Count of successful ledger operations segmented by event type.",
		}, []string{"event"}),
		pointsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loyalty",
			Subsystem: "ledger",
			Name:      "points_issued_total",
			Help:      "Points credited to users by merchants.",
		}),
		pointsRedeemed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loyalty",
			Subsystem: "ledger",
			Name:      "points_redeemed_total",
			Help:      "Points spent by users at merchants.",
		}),
		totalSupply: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "loyalty",
			Subsystem: "ledger",
			Name:      "total_supply",
			Help:      "Points in circulation after the last operation.",
		}),
		userBalances: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "loyalty",
			Subsystem: "ledger",
			Name:      "user_balance_points",
			Help:      "User balance observed after each issue or redeem.",
			Buckets:   prometheus.ExponentialBuckets(10, 10, 7),
		}),
		supplyMismatch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "loyalty",
			Subsystem: "ledger",
			Name:      "supply_mismatch",
			Help:      "1 when the last reconciliation found total supply != sum of balances.",
		}),
		purgedEntries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loyalty",
			Subsystem: "store",
			Name:      "purged_entries_total",
			Help:      "Expired store entries removed by housekeeping.",
		}),
	}

	collectors := []prometheus.Collector{
		m.operations, m.pointsIssued, m.pointsRedeemed, m.totalSupply,
		m.userBalances, m.supplyMismatch, m.purgedEntries,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Emit implements events.Emitter.
func (m *LedgerMetrics) Emit(e events.Event) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(e.EventType()).Inc()

	switch ev := e.(type) {
	case events.PointsIssued:
		m.pointsIssued.Add(float64(ev.Points))
		m.totalSupply.Set(float64(ev.TotalSupply))
		m.userBalances.Observe(float64(ev.UserBalance))
	case events.PointsRedeemed:
		m.pointsRedeemed.Add(float64(ev.Points))
		m.totalSupply.Set(float64(ev.TotalSupply))
		m.userBalances.Observe(float64(ev.UserBalance))
	}
}

// SetTotalSupply seeds the supply gauge, typically from the store at startup.
func (m *LedgerMetrics) SetTotalSupply(total uint64) {
	if m == nil {
		return
	}
	m.totalSupply.Set(float64(total))
}

// ObserveReconcile records the outcome of a conservation check.
func (m *LedgerMetrics) ObserveReconcile(totalSupply uint64, balanced bool) {
	if m == nil {
		return
	}
	m.totalSupply.Set(float64(totalSupply))
	if balanced {
		m.supplyMismatch.Set(0)
	} else {
		m.supplyMismatch.Set(1)
	}
}

func (m *LedgerMetrics) AddPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.purgedEntries.Add(float64(n))
}
