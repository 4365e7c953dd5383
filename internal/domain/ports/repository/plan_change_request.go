package repository

import (
	"context"

	"contract-plan-manager/internal/domain/model"
)

// PlanChangeRequestRepository is the port for plan change request persistence.
type PlanChangeRequestRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.PlanChangeRequest, error)
	ListByContract(ctx context.Context, tx Tx, contractID string) ([]*model.PlanChangeRequest, error)
	ListPending(ctx context.Context, tx Tx) ([]*model.PlanChangeRequest, error)
	Add(ctx context.Context, tx Tx, req *model.PlanChangeRequest) error
	Update(ctx context.Context, tx Tx, req *model.PlanChangeRequest) error
}
