package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"contract-plan-manager/internal/domain"
	"contract-plan-manager/internal/domain/model"
	"contract-plan-manager/internal/domain/ports/repository"
)

// Ensure interface compliance
var _ repository.PaymentPlanRepository = (*PlanRepo)(nil)

type PlanRepo struct {
	pool *pgxpool.Pool
}

func NewPlanRepo(pool *pgxpool.Pool) *PlanRepo {
	return &PlanRepo{pool: pool}
}

const planColumns = `id, name, description, monthly_price::text, billing_cycle, tier, is_active, created_at, deactivated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPlan(row rowScanner) (*model.PaymentPlan, error) {
	var (
		r                  model.PaymentPlanRecord
		price, cycle, tier string
	)
	if err := row.Scan(&r.ID, &r.Name, &r.Description, &price, &cycle, &tier, &r.IsActive, &r.CreatedAt, &r.DeactivatedAt); err != nil {
		return nil, err
	}
	r.BillingCycle = model.BillingCycle(cycle)
	r.Tier = model.PlanTier(tier)
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("%w: plan %s price %q", domain.ErrReadDatabaseRow, r.ID, price)
	}
	r.MonthlyPrice = d
	r.CreatedAt = r.CreatedAt.UTC()
	r.DeactivatedAt = utcPtr(r.DeactivatedAt)
	return model.RestorePaymentPlan(r), nil
}

func (r *PlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentPlan, error) {
	q := `SELECT ` + planColumns + ` FROM payment_plans WHERE id = $1`
	if inTx(tx) {
		q += ` FOR UPDATE`
	}
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	p, err := scanPlan(row)
	if err != nil {
		return nil, scanErr(err)
	}
	return p, nil
}

func (r *PlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.PaymentPlan, error) {
	return r.list(ctx, tx, `SELECT `+planColumns+` FROM payment_plans ORDER BY monthly_price ASC, name ASC`)
}

func (r *PlanRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.PaymentPlan, error) {
	return r.list(ctx, tx, `SELECT `+planColumns+` FROM payment_plans WHERE is_active = TRUE ORDER BY monthly_price ASC, name ASC`)
}

// findMany loads plans by id; missing ids are absent from the map.
func (r *PlanRepo) findMany(ctx context.Context, tx repository.Tx, ids []string) (map[string]*model.PaymentPlan, error) {
	out := make(map[string]*model.PaymentPlan, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	plans, err := r.list(ctx, tx, `SELECT `+planColumns+` FROM payment_plans WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range plans {
		out[p.ID()] = p
	}
	return out, nil
}

func (r *PlanRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.PaymentPlan, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.PaymentPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, scanErr(err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err)
	}
	return out, nil
}

func (r *PlanRepo) Add(ctx context.Context, tx repository.Tx, plan *model.PaymentPlan) error {
	const q = `
INSERT INTO payment_plans (id, name, description, monthly_price, billing_cycle, tier, is_active, created_at, deactivated_at)
VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9);`
	rec := plan.Record()
	_, err := execSQL(ctx, r.pool, tx, q,
		rec.ID, rec.Name, rec.Description, rec.MonthlyPrice.String(),
		string(rec.BillingCycle), string(rec.Tier), rec.IsActive, rec.CreatedAt, rec.DeactivatedAt,
	)
	return err
}

func (r *PlanRepo) Update(ctx context.Context, tx repository.Tx, plan *model.PaymentPlan) error {
	const q = `
UPDATE payment_plans SET
  name = $2,
  description = $3,
  monthly_price = $4::numeric,
  billing_cycle = $5,
  tier = $6,
  is_active = $7,
  deactivated_at = $8
WHERE id = $1;`
	rec := plan.Record()
	tag, err := execSQL(ctx, r.pool, tx, q,
		rec.ID, rec.Name, rec.Description, rec.MonthlyPrice.String(),
		string(rec.BillingCycle), string(rec.Tier), rec.IsActive, rec.DeactivatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: payment plan %s", domain.ErrNotFound, rec.ID)
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
