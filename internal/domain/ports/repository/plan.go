package repository

import (
	"context"

	"contract-plan-manager/internal/domain/model"
)

// PaymentPlanRepository is the port for plan persistence. Plans are never deleted.
type PaymentPlanRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.PaymentPlan, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.PaymentPlan, error)
	ListActive(ctx context.Context, tx Tx) ([]*model.PaymentPlan, error)
	Add(ctx context.Context, tx Tx, plan *model.PaymentPlan) error
	Update(ctx context.Context, tx Tx, plan *model.PaymentPlan) error
}
