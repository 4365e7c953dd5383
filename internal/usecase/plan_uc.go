package usecase

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"contract-plan-manager/internal/domain/model"
	"contract-plan-manager/internal/domain/ports/repository"
	"contract-plan-manager/internal/infra/logging"
)

// Compile-time check
var _ PaymentPlanUseCase = (*paymentPlanUC)(nil)

// PaymentPlanUseCase manages the plan catalogue. Plans are never deleted,
// only deactivated.
type PaymentPlanUseCase interface {
	Get(ctx context.Context, id string) (*PaymentPlanDTO, error)
	List(ctx context.Context) ([]PaymentPlanDTO, error)
	ListActive(ctx context.Context) ([]PaymentPlanDTO, error)
	Create(ctx context.Context, in CreatePaymentPlanInput) (*PaymentPlanDTO, error)
	Update(ctx context.Context, id string, in UpdatePaymentPlanInput) (*PaymentPlanDTO, error)
	Deactivate(ctx context.Context, id string) error
	Reactivate(ctx context.Context, id string) error
}

type paymentPlanUC struct {
	plans repository.PaymentPlanRepository
	tm    repository.TransactionManager
	log   *zerolog.Logger
}

func NewPaymentPlanUseCase(plans repository.PaymentPlanRepository, tm repository.TransactionManager, logger *zerolog.Logger) PaymentPlanUseCase {
	return &paymentPlanUC{plans: plans, tm: tm, log: logger}
}

func (u *paymentPlanUC) Get(ctx context.Context, id string) (*PaymentPlanDTO, error) {
	defer logging.TraceDuration(u.log, "PaymentPlanUC.Get")()
	p, err := u.plans.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	dto := toPaymentPlanDTO(p)
	return &dto, nil
}

func (u *paymentPlanUC) List(ctx context.Context) ([]PaymentPlanDTO, error) {
	defer logging.TraceDuration(u.log, "PaymentPlanUC.List")()
	ps, err := u.plans.ListAll(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	return toPaymentPlanDTOs(ps), nil
}

func (u *paymentPlanUC) ListActive(ctx context.Context) ([]PaymentPlanDTO, error) {
	defer logging.TraceDuration(u.log, "PaymentPlanUC.ListActive")()
	ps, err := u.plans.ListActive(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	return toPaymentPlanDTOs(ps), nil
}

func (u *paymentPlanUC) Create(ctx context.Context, in CreatePaymentPlanInput) (*PaymentPlanDTO, error) {
	defer logging.TraceDuration(u.log, "PaymentPlanUC.Create")()
	p, err := model.NewPaymentPlan(in.Name, in.Description, in.MonthlyPrice, in.BillingCycle, in.Tier)
	if err != nil {
		return nil, err
	}
	if err := u.plans.Add(ctx, repository.NoTX, p); err != nil {
		return nil, err
	}
	logging.With(ctx, u.log).Info().Str("plan_id", p.ID()).Str("tier", p.Tier().String()).Msg("payment plan created")
	dto := toPaymentPlanDTO(p)
	return &dto, nil
}

func (u *paymentPlanUC) Update(ctx context.Context, id string, in UpdatePaymentPlanInput) (*PaymentPlanDTO, error) {
	defer logging.TraceDuration(u.log, "PaymentPlanUC.Update")()
	var out *model.PaymentPlan
	err := u.mutate(ctx, id, func(p *model.PaymentPlan) error {
		if err := p.UpdatePricing(in.MonthlyPrice); err != nil {
			return err
		}
		p.UpdateDescription(in.Description)
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	logging.With(ctx, u.log).Info().Str("plan_id", id).Str("monthly_price", out.MonthlyPrice().String()).Msg("payment plan updated")
	dto := toPaymentPlanDTO(out)
	return &dto, nil
}

func (u *paymentPlanUC) Deactivate(ctx context.Context, id string) error {
	defer logging.TraceDuration(u.log, "PaymentPlanUC.Deactivate")()
	err := u.mutate(ctx, id, func(p *model.PaymentPlan) error {
		p.Deactivate()
		return nil
	})
	if err == nil {
		logging.With(ctx, u.log).Info().Str("plan_id", id).Msg("payment plan deactivated")
	}
	return err
}

func (u *paymentPlanUC) Reactivate(ctx context.Context, id string) error {
	defer logging.TraceDuration(u.log, "PaymentPlanUC.Reactivate")()
	err := u.mutate(ctx, id, func(p *model.PaymentPlan) error {
		p.Reactivate()
		return nil
	})
	if err == nil {
		logging.With(ctx, u.log).Info().Str("plan_id", id).Msg("payment plan reactivated")
	}
	return err
}

// mutate loads the plan under a row lock, applies fn and saves it.
func (u *paymentPlanUC) mutate(ctx context.Context, id string, fn func(p *model.PaymentPlan) error) error {
	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.plans.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		return u.plans.Update(ctx, tx, p)
	})
}
