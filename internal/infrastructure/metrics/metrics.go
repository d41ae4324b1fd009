package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus counters of a replay run.
type Metrics struct {
	// Transaction metrics
	TransactionsApplied   *prometheus.CounterVec
	TransactionsRejected  *prometheus.CounterVec
	TransactionsPersisted prometheus.Counter

	// Account metrics
	AccountsCreated prometheus.Counter
	AccountsLocked  prometheus.Counter
	Disputes        *prometheus.CounterVec
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		TransactionsApplied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txreplay_transactions_applied_total",
				Help: "Total transactions applied by type",
			},
			[]string{"type"},
		),
		TransactionsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txreplay_transactions_rejected_total",
				Help: "Total transactions rejected by type and reason",
			},
			[]string{"type", "reason"},
		),
		TransactionsPersisted: factory.NewCounter(prometheus.CounterOpts{
			Name: "txreplay_transactions_persisted_total",
			Help: "Total deposits and withdrawals kept for dispute lookup",
		}),

		AccountsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "txreplay_accounts_created_total",
			Help: "Total number of client accounts created",
		}),
		AccountsLocked: factory.NewCounter(prometheus.CounterOpts{
			Name: "txreplay_accounts_locked_total",
			Help: "Total number of accounts locked by a chargeback",
		}),
		Disputes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txreplay_dispute_transitions_total",
				Help: "Dispute state transitions by event",
			},
			[]string{"event"},
		),
	}
}

// WriteTextfile writes the current values of every metric in g to path
// in the Prometheus text exposition format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
