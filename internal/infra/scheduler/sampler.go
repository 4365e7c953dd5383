package scheduler

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"contract-plan-manager/internal/domain/model"
	"contract-plan-manager/internal/infra/metrics"
)

type ContractCounter interface {
	CountByStatus(ctx context.Context) (map[model.ContractStatus]int, error)
}

type ChangeRequestCounter interface {
	CountByStatus(ctx context.Context) (map[model.ChangeRequestStatus]int, error)
}

// PoolStater is satisfied by *pgxpool.Pool.
type PoolStater interface {
	Stat() *pgxpool.Stat
}

// WorkflowSampler publishes contract and change request gauges and the
// database pool state.
type WorkflowSampler struct {
	contracts ContractCounter
	requests  ChangeRequestCounter
	pool      PoolStater
}

// NewWorkflowSampler accepts a nil pool to skip pool stats.
func NewWorkflowSampler(contracts ContractCounter, requests ChangeRequestCounter, pool PoolStater) *WorkflowSampler {
	return &WorkflowSampler{contracts: contracts, requests: requests, pool: pool}
}

func (s *WorkflowSampler) Name() string { return "workflow_sampler" }

func (s *WorkflowSampler) Run(ctx context.Context) error {
	if s.pool != nil {
		st := s.pool.Stat()
		metrics.SetDBPoolStats(st.TotalConns(), st.IdleConns(), st.AcquiredConns())
	}
	cs, err := s.contracts.CountByStatus(ctx)
	if err != nil {
		return fmt.Errorf("count contracts: %w", err)
	}
	metrics.SetContractsTotal(cs)

	rs, err := s.requests.CountByStatus(ctx)
	if err != nil {
		return fmt.Errorf("count change requests: %w", err)
	}
	metrics.SetChangeRequestsTotal(rs)
	return nil
}
