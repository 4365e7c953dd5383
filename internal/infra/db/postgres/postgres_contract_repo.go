package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"contract-plan-manager/internal/domain"
	"contract-plan-manager/internal/domain/model"
	"contract-plan-manager/internal/domain/ports/repository"
)

var _ repository.ContractRepository = (*ContractRepo)(nil)

// ContractRepo stores contracts and their plan history. Loaded contracts
// carry their current plan, read through the plan repo.
type ContractRepo struct {
	pool  *pgxpool.Pool
	plans *PlanRepo
}

func NewContractRepo(pool *pgxpool.Pool) *ContractRepo {
	return &ContractRepo{pool: pool, plans: NewPlanRepo(pool)}
}

const contractColumns = `id, contract_number, customer_name, customer_email, start_date, end_date, status, current_payment_plan_id, created_at, updated_at`

func scanContractRecord(row rowScanner) (model.ContractRecord, error) {
	var (
		r      model.ContractRecord
		status string
	)
	if err := row.Scan(&r.ID, &r.ContractNumber, &r.CustomerName, &r.CustomerEmail, &r.StartDate, &r.EndDate, &status, &r.CurrentPlanID, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return r, err
	}
	r.Status = model.ContractStatus(status)
	r.StartDate = r.StartDate.UTC()
	r.EndDate = utcPtr(r.EndDate)
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return r, nil
}

func (r *ContractRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Contract, error) {
	return r.findOne(ctx, tx, `SELECT `+contractColumns+` FROM contracts WHERE id = $1`, id)
}

func (r *ContractRepo) FindByNumber(ctx context.Context, tx repository.Tx, contractNumber string) (*model.Contract, error) {
	return r.findOne(ctx, tx, `SELECT `+contractColumns+` FROM contracts WHERE contract_number = $1`, contractNumber)
}

func (r *ContractRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Contract, error) {
	return r.list(ctx, tx, `SELECT `+contractColumns+` FROM contracts ORDER BY created_at DESC, contract_number ASC`)
}

func (r *ContractRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Contract, error) {
	return r.list(ctx, tx, `SELECT `+contractColumns+` FROM contracts WHERE status = $1 ORDER BY created_at DESC, contract_number ASC`,
		string(model.ContractStatusActive))
}

func (r *ContractRepo) findOne(ctx context.Context, tx repository.Tx, q string, arg interface{}) (*model.Contract, error) {
	if inTx(tx) {
		q += ` FOR UPDATE`
	}
	row, err := pickRow(ctx, r.pool, tx, q, arg)
	if err != nil {
		return nil, err
	}
	rec, err := scanContractRecord(row)
	if err != nil {
		return nil, scanErr(err)
	}
	out, err := r.hydrate(ctx, tx, []model.ContractRecord{rec})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// findMany loads contracts by id, locking them inside a transaction.
func (r *ContractRepo) findMany(ctx context.Context, tx repository.Tx, ids []string) (map[string]*model.Contract, error) {
	out := make(map[string]*model.Contract, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	q := `SELECT ` + contractColumns + ` FROM contracts WHERE id = ANY($1::uuid[])`
	if inTx(tx) {
		q += ` FOR UPDATE`
	}
	cs, err := r.list(ctx, tx, q, ids)
	if err != nil {
		return nil, err
	}
	for _, c := range cs {
		out[c.ID()] = c
	}
	return out, nil
}

func (r *ContractRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Contract, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	var recs []model.ContractRecord
	for rows.Next() {
		rec, err := scanContractRecord(rows)
		if err != nil {
			rows.Close()
			return nil, scanErr(err)
		}
		recs = append(recs, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err)
	}
	return r.hydrate(ctx, tx, recs)
}

// hydrate attaches current plans and plan history. Rows must be closed
// before calling it because a transaction runs one query at a time.
func (r *ContractRepo) hydrate(ctx context.Context, tx repository.Tx, recs []model.ContractRecord) ([]*model.Contract, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(recs))
	planIDs := make([]string, 0, len(recs))
	seen := map[string]bool{}
	for _, rec := range recs {
		ids = append(ids, rec.ID)
		if !seen[rec.CurrentPlanID] {
			seen[rec.CurrentPlanID] = true
			planIDs = append(planIDs, rec.CurrentPlanID)
		}
	}
	plans, err := r.plans.findMany(ctx, tx, planIDs)
	if err != nil {
		return nil, err
	}
	history, err := r.history(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*model.Contract, 0, len(recs))
	for _, rec := range recs {
		rec.PlanHistory = history[rec.ID]
		c, err := model.RestoreContract(rec, plans[rec.CurrentPlanID])
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *ContractRepo) history(ctx context.Context, tx repository.Tx, contractIDs []string) (map[string][]model.PlanHistoryEntry, error) {
	const q = `
SELECT contract_id, payment_plan_id, replaced_at
  FROM contract_plan_history
 WHERE contract_id = ANY($1::uuid[])
 ORDER BY replaced_at ASC, id ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, contractIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]model.PlanHistoryEntry)
	for rows.Next() {
		var (
			contractID string
			e          model.PlanHistoryEntry
		)
		if err := rows.Scan(&contractID, &e.PlanID, &e.ReplacedAt); err != nil {
			return nil, scanErr(err)
		}
		e.ReplacedAt = e.ReplacedAt.UTC()
		out[contractID] = append(out[contractID], e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err)
	}
	return out, nil
}

func (r *ContractRepo) Add(ctx context.Context, tx repository.Tx, c *model.Contract) error {
	const q = `
INSERT INTO contracts (id, contract_number, customer_name, customer_email, start_date, end_date, status, current_payment_plan_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`
	rec := c.Record()
	if _, err := execSQL(ctx, r.pool, tx, q,
		rec.ID, rec.ContractNumber, rec.CustomerName, rec.CustomerEmail, rec.StartDate, rec.EndDate,
		string(rec.Status), rec.CurrentPlanID, rec.CreatedAt, rec.UpdatedAt,
	); err != nil {
		return err
	}
	return r.appendHistory(ctx, tx, rec)
}

func (r *ContractRepo) Update(ctx context.Context, tx repository.Tx, c *model.Contract) error {
	const q = `
UPDATE contracts SET
  contract_number = $2,
  customer_name = $3,
  customer_email = $4,
  start_date = $5,
  end_date = $6,
  status = $7,
  current_payment_plan_id = $8,
  updated_at = $9
WHERE id = $1;`
	rec := c.Record()
	tag, err := execSQL(ctx, r.pool, tx, q,
		rec.ID, rec.ContractNumber, rec.CustomerName, rec.CustomerEmail, rec.StartDate, rec.EndDate,
		string(rec.Status), rec.CurrentPlanID, rec.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: contract %s", domain.ErrNotFound, rec.ID)
	}
	return r.appendHistory(ctx, tx, rec)
}

// appendHistory inserts history entries not stored yet.
func (r *ContractRepo) appendHistory(ctx context.Context, tx repository.Tx, rec model.ContractRecord) error {
	const q = `
INSERT INTO contract_plan_history (contract_id, payment_plan_id, replaced_at)
VALUES ($1, $2, $3)
ON CONFLICT ON CONSTRAINT contract_plan_history_entry_key DO NOTHING;`
	for _, e := range rec.PlanHistory {
		if _, err := execSQL(ctx, r.pool, tx, q, rec.ID, e.PlanID, e.ReplacedAt); err != nil {
			return err
		}
	}
	return nil
}

func (r *ContractRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM contracts WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: contract %s", domain.ErrNotFound, id)
	}
	return nil
}

// CountByStatus returns the number of contracts per status.
func (r *ContractRepo) CountByStatus(ctx context.Context) (map[model.ContractStatus]int, error) {
	rows, err := queryRows(ctx, r.pool, repository.NoTX, `SELECT status, COUNT(*) FROM contracts GROUP BY status;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[model.ContractStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, scanErr(err)
		}
		out[model.ContractStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err)
	}
	return out, nil
}
