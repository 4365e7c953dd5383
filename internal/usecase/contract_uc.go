package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"contract-plan-manager/internal/domain"
	"contract-plan-manager/internal/domain/model"
	"contract-plan-manager/internal/domain/ports/repository"
	"contract-plan-manager/internal/infra/logging"
	"contract-plan-manager/internal/infra/metrics"
)

// Compile-time check
var _ ContractUseCase = (*contractUC)(nil)

// ContractUseCase manages contracts and their lifecycle.
type ContractUseCase interface {
	Get(ctx context.Context, id string) (*ContractDTO, error)
	GetByNumber(ctx context.Context, contractNumber string) (*ContractDTO, error)
	List(ctx context.Context) ([]ContractDTO, error)
	ListActive(ctx context.Context) ([]ContractDTO, error)
	Create(ctx context.Context, in CreateContractInput) (*ContractDTO, error)
	UpdateCustomer(ctx context.Context, id string, in UpdateContractInput) (*ContractDTO, error)
	Suspend(ctx context.Context, id string) error
	Reactivate(ctx context.Context, id string) error
	Terminate(ctx context.Context, id string, endDate time.Time) error
	PlanHistory(ctx context.Context, id string) ([]PlanHistoryEntryDTO, error)
}

type contractUC struct {
	contracts repository.ContractRepository
	plans     repository.PaymentPlanRepository
	tm        repository.TransactionManager
	log       *zerolog.Logger
}

func NewContractUseCase(
	contracts repository.ContractRepository,
	plans repository.PaymentPlanRepository,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) ContractUseCase {
	return &contractUC{contracts: contracts, plans: plans, tm: tm, log: logger}
}

func (u *contractUC) Get(ctx context.Context, id string) (*ContractDTO, error) {
	defer logging.TraceDuration(u.log, "ContractUC.Get")()
	c, err := u.contracts.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	dto := toContractDTO(c)
	return &dto, nil
}

func (u *contractUC) GetByNumber(ctx context.Context, contractNumber string) (*ContractDTO, error) {
	defer logging.TraceDuration(u.log, "ContractUC.GetByNumber")()
	c, err := u.contracts.FindByNumber(ctx, repository.NoTX, contractNumber)
	if err != nil {
		return nil, err
	}
	dto := toContractDTO(c)
	return &dto, nil
}

func (u *contractUC) List(ctx context.Context) ([]ContractDTO, error) {
	defer logging.TraceDuration(u.log, "ContractUC.List")()
	cs, err := u.contracts.ListAll(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	return toContractDTOs(cs), nil
}

func (u *contractUC) ListActive(ctx context.Context) ([]ContractDTO, error) {
	defer logging.TraceDuration(u.log, "ContractUC.ListActive")()
	cs, err := u.contracts.ListActive(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	return toContractDTOs(cs), nil
}

// Create requires an existing, active initial plan. Duplicate contract
// numbers surface as domain.ErrAlreadyExists.
func (u *contractUC) Create(ctx context.Context, in CreateContractInput) (*ContractDTO, error) {
	defer logging.TraceDuration(u.log, "ContractUC.Create")()
	var c *model.Contract
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		plan, err := u.plans.FindByID(ctx, tx, in.InitialPaymentPlanID)
		if err != nil {
			return err
		}
		if !plan.IsActive() {
			return fmt.Errorf("%w: cannot create contract with inactive payment plan", domain.ErrInvalidState)
		}
		switch _, err := u.contracts.FindByNumber(ctx, tx, in.ContractNumber); {
		case err == nil:
			return fmt.Errorf("%w: contract number %s", domain.ErrAlreadyExists, in.ContractNumber)
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}
		c, err = model.NewContract(in.ContractNumber, in.CustomerName, in.CustomerEmail, in.StartDate, plan)
		if err != nil {
			return err
		}
		return u.contracts.Add(ctx, tx, c)
	})
	if err != nil {
		return nil, err
	}
	metrics.IncContractTransition("created")
	logging.With(ctx, u.log).Info().Str("contract_id", c.ID()).Str("contract_number", c.ContractNumber()).Msg("contract created")
	dto := toContractDTO(c)
	return &dto, nil
}

func (u *contractUC) UpdateCustomer(ctx context.Context, id string, in UpdateContractInput) (*ContractDTO, error) {
	defer logging.TraceDuration(u.log, "ContractUC.UpdateCustomer")()
	c, err := u.mutate(ctx, id, func(c *model.Contract) error {
		return c.UpdateCustomerDetails(in.CustomerName, in.CustomerEmail)
	})
	if err != nil {
		return nil, err
	}
	logging.With(ctx, u.log).Info().Str("contract_id", id).Msg("contract customer details updated")
	dto := toContractDTO(c)
	return &dto, nil
}

func (u *contractUC) Suspend(ctx context.Context, id string) error {
	defer logging.TraceDuration(u.log, "ContractUC.Suspend")()
	return u.transition(ctx, id, "suspended", (*model.Contract).Suspend)
}

func (u *contractUC) Reactivate(ctx context.Context, id string) error {
	defer logging.TraceDuration(u.log, "ContractUC.Reactivate")()
	return u.transition(ctx, id, "reactivated", (*model.Contract).Reactivate)
}

func (u *contractUC) Terminate(ctx context.Context, id string, endDate time.Time) error {
	defer logging.TraceDuration(u.log, "ContractUC.Terminate")()
	return u.transition(ctx, id, "terminated", func(c *model.Contract) error {
		return c.Terminate(endDate)
	})
}

// PlanHistory lists the plans the contract used before its current one, oldest first.
func (u *contractUC) PlanHistory(ctx context.Context, id string) ([]PlanHistoryEntryDTO, error) {
	defer logging.TraceDuration(u.log, "ContractUC.PlanHistory")()
	c, err := u.contracts.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	entries := c.PlanHistory()
	out := make([]PlanHistoryEntryDTO, 0, len(entries))
	for _, e := range entries {
		dto := PlanHistoryEntryDTO{PlanID: e.PlanID, ReplacedAt: e.ReplacedAt}
		p, err := u.plans.FindByID(ctx, repository.NoTX, e.PlanID)
		switch {
		case err == nil:
			dto.PlanName = p.Name()
		case !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
		out = append(out, dto)
	}
	return out, nil
}

func (u *contractUC) transition(ctx context.Context, id, name string, fn func(c *model.Contract) error) error {
	if _, err := u.mutate(ctx, id, fn); err != nil {
		logging.With(ctx, u.log).Debug().Err(err).Str("contract_id", id).Str("transition", name).Msg("contract transition rejected")
		return err
	}
	metrics.IncContractTransition(name)
	logging.With(ctx, u.log).Info().Str("contract_id", id).Str("transition", name).Msg("contract transition")
	return nil
}

// mutate loads the contract under a row lock, applies fn and saves it.
func (u *contractUC) mutate(ctx context.Context, id string, fn func(c *model.Contract) error) (*model.Contract, error) {
	var out *model.Contract
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		c, err := u.contracts.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
		if err := u.contracts.Update(ctx, tx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}
