package repository

import (
	"context"

	"contract-plan-manager/internal/domain/model"
)

// ContractRepository is the port for contract persistence. Loaded contracts
// carry their current plan.
type ContractRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Contract, error)
	FindByNumber(ctx context.Context, tx Tx, contractNumber string) (*model.Contract, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.Contract, error)
	ListActive(ctx context.Context, tx Tx) ([]*model.Contract, error)
	Add(ctx context.Context, tx Tx, contract *model.Contract) error
	// Update persists scalar fields, the current plan and any new plan history entries.
	Update(ctx context.Context, tx Tx, contract *model.Contract) error
	Delete(ctx context.Context, tx Tx, id string) error
}
