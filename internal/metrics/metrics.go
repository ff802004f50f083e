package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransactionsAdded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_transactions_added_total",
			Help: "Transactions added, by document and type",
		},
		[]string{"document", "type"},
	)

	TransactionsDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_transactions_deleted_total",
			Help: "Transactions deleted, by document",
		},
		[]string{"document"},
	)

	PersistFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_persist_failures_total",
			Help: "Document writes that failed and were dropped",
		},
		[]string{"document"},
	)

	RemoteUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_remote_updates_total",
			Help: "Documents replaced by a change from another instance",
		},
		[]string{"document"},
	)

	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_auth_attempts_total",
			Help: "Login attempts, by result",
		},
		[]string{"result"},
	)

	BalanceDrift = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tracker_balance_drift",
			Help: "Stored balance minus the balance recomputed from transactions, per ledger",
		},
		[]string{"document", "ledger"},
	)
)
