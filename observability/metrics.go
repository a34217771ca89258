package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics records cycle reward ledger activity.
type LedgerMetrics struct {
	submissions     *prometheus.CounterVec
	cycles          prometheus.Counter
	withdrawals     prometheus.Counter
	registryLookups *prometheus.CounterVec
	payouts         *prometheus.CounterVec
	rewardsPaid     prometheus.Counter
}

var (
	ledgerMetricsOnce sync.Once
	ledgerRegistry    *LedgerMetrics
)

// Ledger returns the lazily-initialised metrics registry used to record
// ledger activity.
func Ledger() *LedgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "juscat",
				Subsystem: "ledger",
				Name:      "submissions_total",
				Help:      "Total submissions segmented by outcome.",
			}, []string{"outcome"}),
			cycles: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "juscat",
				Subsystem: "ledger",
				Name:      "cycle_transitions_total",
				Help:      "Count of successful cycle transitions.",
			}),
			withdrawals: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "juscat",
				Subsystem: "ledger",
				Name:      "withdrawals_total",
				Help:      "Count of successful leftover withdrawals.",
			}),
			registryLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "juscat",
				Subsystem: "ledger",
				Name:      "registry_lookups_total",
				Help:      "Passport registry lookups segmented by result.",
			}, []string{"result"}),
			payouts: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "juscat",
				Subsystem: "ledger",
				Name:      "payouts_total",
				Help:      "Payout attempts segmented by result.",
			}, []string{"result"}),
			rewardsPaid: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "juscat",
				Subsystem: "ledger",
				Name:      "rewarded_submissions_total",
				Help:      "Count of submissions that carried a non-zero reward.",
			}),
		}
		prometheus.MustRegister(
			ledgerRegistry.submissions,
			ledgerRegistry.cycles,
			ledgerRegistry.withdrawals,
			ledgerRegistry.registryLookups,
			ledgerRegistry.payouts,
			ledgerRegistry.rewardsPaid,
		)
	})
	return ledgerRegistry
}

// ObserveSubmission records a submission outcome ("accepted", "unrewarded",
// "cap_exceeded", "access_denied", "error").
func (m *LedgerMetrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
	if outcome == "accepted" {
		m.rewardsPaid.Inc()
	}
}

// ObserveCycleTransition records a successful trigger.
func (m *LedgerMetrics) ObserveCycleTransition() {
	if m == nil {
		return
	}
	m.cycles.Inc()
}

// ObserveWithdrawal records a successful leftover withdrawal.
func (m *LedgerMetrics) ObserveWithdrawal() {
	if m == nil {
		return
	}
	m.withdrawals.Inc()
}

// ObserveRegistryLookup records a registry round-trip result ("hit", "miss",
// "error").
func (m *LedgerMetrics) ObserveRegistryLookup(result string) {
	if m == nil {
		return
	}
	m.registryLookups.WithLabelValues(result).Inc()
}

// ObservePayout records a payout attempt result ("ok", "error").
func (m *LedgerMetrics) ObservePayout(result string) {
	if m == nil {
		return
	}
	m.payouts.WithLabelValues(result).Inc()
}
