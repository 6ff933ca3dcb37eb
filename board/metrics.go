package board

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reconcileWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderdesk_reconcile_writes_total",
		Help: "Corrective status writes issued by the reconciliation scanner, by result.",
	}, []string{"result"})

	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderdesk_transitions_total",
		Help: "User drag transitions handled by the coordinator, by result.",
	}, []string{"result"})
)

// Metric result labels.
const (
	resultApplied  = "applied"
	resultFailed   = "failed"
	resultNoop     = "noop"
	resultRejected = "rejected"
)
