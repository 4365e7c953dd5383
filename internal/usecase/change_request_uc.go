package usecase

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"contract-plan-manager/internal/domain"
	"contract-plan-manager/internal/domain/model"
	"contract-plan-manager/internal/domain/ports/repository"
	"contract-plan-manager/internal/infra/logging"
	"contract-plan-manager/internal/infra/metrics"
)

// Compile-time check
var _ PlanChangeRequestUseCase = (*changeRequestUC)(nil)

// PlanChangeRequestUseCase drives the request, approve/reject, cancel workflow.
type PlanChangeRequestUseCase interface {
	Get(ctx context.Context, id string) (*PlanChangeRequestDTO, error)
	ListByContract(ctx context.Context, contractID string) ([]PlanChangeRequestDTO, error)
	ListPending(ctx context.Context) ([]PlanChangeRequestDTO, error)
	Create(ctx context.Context, in CreatePlanChangeRequestInput) (*PlanChangeRequestDTO, error)
	// Process approves or rejects a pending request. Approval moves the
	// contract to the requested plan in the same transaction.
	Process(ctx context.Context, id string, in ProcessPlanChangeRequestInput) (*PlanChangeRequestDTO, error)
	Cancel(ctx context.Context, id string) error
}

type changeRequestUC struct {
	requests  repository.PlanChangeRequestRepository
	contracts repository.ContractRepository
	plans     repository.PaymentPlanRepository
	tm        repository.TransactionManager
	log       *zerolog.Logger
}

func NewPlanChangeRequestUseCase(
	requests repository.PlanChangeRequestRepository,
	contracts repository.ContractRepository,
	plans repository.PaymentPlanRepository,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) PlanChangeRequestUseCase {
	return &changeRequestUC{requests: requests, contracts: contracts, plans: plans, tm: tm, log: logger}
}

func (u *changeRequestUC) Get(ctx context.Context, id string) (*PlanChangeRequestDTO, error) {
	defer logging.TraceDuration(u.log, "ChangeRequestUC.Get")()
	r, err := u.requests.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	dto := toPlanChangeRequestDTO(r)
	return &dto, nil
}

func (u *changeRequestUC) ListByContract(ctx context.Context, contractID string) ([]PlanChangeRequestDTO, error) {
	defer logging.TraceDuration(u.log, "ChangeRequestUC.ListByContract")()
	if _, err := u.contracts.FindByID(ctx, repository.NoTX, contractID); err != nil {
		return nil, err
	}
	rs, err := u.requests.ListByContract(ctx, repository.NoTX, contractID)
	if err != nil {
		return nil, err
	}
	return toPlanChangeRequestDTOs(rs), nil
}

func (u *changeRequestUC) ListPending(ctx context.Context) ([]PlanChangeRequestDTO, error) {
	defer logging.TraceDuration(u.log, "ChangeRequestUC.ListPending")()
	rs, err := u.requests.ListPending(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	return toPlanChangeRequestDTOs(rs), nil
}

// Create records a pending request from the contract's current plan to the
// target plan, which must exist and be active.
func (u *changeRequestUC) Create(ctx context.Context, in CreatePlanChangeRequestInput) (*PlanChangeRequestDTO, error) {
	defer logging.TraceDuration(u.log, "ChangeRequestUC.Create")()
	var req *model.PlanChangeRequest
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		c, err := u.contracts.FindByID(ctx, tx, in.ContractID)
		if err != nil {
			return err
		}
		to, err := u.plans.FindByID(ctx, tx, in.ToPlanID)
		if err != nil {
			return err
		}
		if !to.IsActive() {
			return fmt.Errorf("%w: cannot change to an inactive payment plan", domain.ErrInvalidState)
		}
		req, err = model.NewPlanChangeRequest(c, c.CurrentPlan(), to, in.RequestedBy, in.EffectiveDate)
		if err != nil {
			return err
		}
		return u.requests.Add(ctx, tx, req)
	})
	if err != nil {
		return nil, err
	}
	logging.With(ctx, u.log).Info().
		Str("request_id", req.ID()).
		Str("contract_id", in.ContractID).
		Str("to_plan_id", in.ToPlanID).
		Bool("upgrade", req.IsUpgrade()).
		Msg("plan change requested")
	dto := toPlanChangeRequestDTO(req)
	return &dto, nil
}

func (u *changeRequestUC) Process(ctx context.Context, id string, in ProcessPlanChangeRequestInput) (*PlanChangeRequestDTO, error) {
	defer logging.TraceDuration(u.log, "ChangeRequestUC.Process")()
	var req *model.PlanChangeRequest
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		r, err := u.requests.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if in.Approved {
			if err := r.Approve(in.ProcessedBy); err != nil {
				return err
			}
			if err := u.contracts.Update(ctx, tx, r.Contract()); err != nil {
				return err
			}
		} else if err := r.Reject(in.ProcessedBy, in.RejectionReason); err != nil {
			return err
		}
		if err := u.requests.Update(ctx, tx, r); err != nil {
			return err
		}
		req = r
		return nil
	})
	if err != nil {
		logging.With(ctx, u.log).Debug().Err(err).Str("request_id", id).Bool("approved", in.Approved).Msg("plan change processing rejected")
		return nil, err
	}
	outcome := req.Status().String()
	metrics.IncChangeRequestProcessed(outcome)
	logging.With(ctx, u.log).Info().
		Str("request_id", id).
		Str("contract_id", req.Contract().ID()).
		Str("outcome", outcome).
		Msg("plan change processed")
	dto := toPlanChangeRequestDTO(req)
	return &dto, nil
}

func (u *changeRequestUC) Cancel(ctx context.Context, id string) error {
	defer logging.TraceDuration(u.log, "ChangeRequestUC.Cancel")()
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		r, err := u.requests.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := r.Cancel(); err != nil {
			return err
		}
		return u.requests.Update(ctx, tx, r)
	})
	if err != nil {
		return err
	}
	metrics.IncChangeRequestProcessed("cancelled")
	logging.With(ctx, u.log).Info().Str("request_id", id).Msg("plan change cancelled")
	return nil
}
