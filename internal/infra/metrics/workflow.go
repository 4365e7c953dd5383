package metrics

import (
	"contract-plan-manager/internal/domain/model"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		contractsTotal,
		changeRequestsTotal,
		contractTransitionsTotal,
		changeRequestsProcessedTotal,
	)
}

var (
	contractsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "contracts_total",
			Help: "Current number of contracts by status.",
		},
		[]string{"status"}, // 'active', 'suspended', 'terminated'
	)

	changeRequestsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "plan_change_requests_total",
			Help: "Current number of plan change requests by status.",
		},
		[]string{"status"},
	)

	contractTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contract_transitions_total",
			Help: "Contract lifecycle transitions performed.",
		},
		[]string{"transition"}, // 'created', 'suspended', 'reactivated', 'terminated'
	)

	changeRequestsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plan_change_requests_processed_total",
			Help: "Plan change requests leaving Pending, by outcome.",
		},
		[]string{"outcome"}, // 'approved', 'rejected', 'cancelled'
	)
)

func SetContractsTotal(counts map[model.ContractStatus]int) {
	statuses := []model.ContractStatus{
		model.ContractStatusActive,
		model.ContractStatusSuspended,
		model.ContractStatusTerminated,
	}
	for _, status := range statuses {
		contractsTotal.WithLabelValues(norm(string(status))).Set(float64(counts[status]))
	}
}

func SetChangeRequestsTotal(counts map[model.ChangeRequestStatus]int) {
	statuses := []model.ChangeRequestStatus{
		model.ChangeRequestPending,
		model.ChangeRequestApproved,
		model.ChangeRequestRejected,
		model.ChangeRequestCancelled,
	}
	for _, status := range statuses {
		changeRequestsTotal.WithLabelValues(norm(string(status))).Set(float64(counts[status]))
	}
}

func IncContractTransition(transition string) {
	contractTransitionsTotal.WithLabelValues(norm(transition)).Inc()
}

func IncChangeRequestProcessed(outcome string) {
	changeRequestsProcessedTotal.WithLabelValues(norm(outcome)).Inc()
}
