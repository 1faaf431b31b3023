// Package metrics exposes Prometheus instrumentation for the VM manager.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	vmCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "virtlab_vm_created_total",
		Help: "Total number of VMs created",
	}, []string{"owner"})

	vmDeletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "virtlab_vm_deleted_total",
		Help: "Total number of VMs deleted",
	}, []string{"owner"})

	terminalSessionsActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "virtlab_terminal_sessions_active",
		Help: "Number of active terminal sessions",
	}, []string{"vm_name"})

	poolReconcileTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "virtlab_pool_reconcile_total",
		Help: "Total pool slot reconciliation attempts by result",
	}, []string{"result"})
)

func ownerLabel(owner string) string {
	if owner == "" {
		return "anonymous"
	}
	return owner
}

// VMCreated records a successful VM creation.
func VMCreated(owner string) {
	vmCreatedTotal.WithLabelValues(ownerLabel(owner)).Inc()
}

// VMDeleted records a VM deletion.
func VMDeleted(owner string) {
	vmDeletedTotal.WithLabelValues(ownerLabel(owner)).Inc()
}

// SessionOpened records a terminal session entering the streaming state.
func SessionOpened(vmName string) {
	terminalSessionsActive.WithLabelValues(vmName).Inc()
}

// SessionClosed records a terminal session ending.
func SessionClosed(vmName string) {
	terminalSessionsActive.WithLabelValues(vmName).Dec()
}

// PoolReconcile records the outcome ("ok" or "error") of one slot
// reconciliation attempt.
func PoolReconcile(result string) {
	poolReconcileTotal.WithLabelValues(result).Inc()
}
