package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"contract-plan-manager/internal/domain"
	"contract-plan-manager/internal/domain/model"
	"contract-plan-manager/internal/domain/ports/repository"
)

var _ repository.PlanChangeRequestRepository = (*ChangeRequestRepo)(nil)

// ChangeRequestRepo stores plan change requests. Loaded requests carry their
// contract and both plans; inside a transaction the request and its contract
// are locked.
type ChangeRequestRepo struct {
	pool      *pgxpool.Pool
	plans     *PlanRepo
	contracts *ContractRepo
}

func NewChangeRequestRepo(pool *pgxpool.Pool) *ChangeRequestRepo {
	return &ChangeRequestRepo{pool: pool, plans: NewPlanRepo(pool), contracts: NewContractRepo(pool)}
}

const changeRequestColumns = `id, contract_id, from_plan_id, to_plan_id, status, requested_at, processed_at, requested_by, processed_by, rejection_reason, effective_date`

func scanChangeRequestRecord(row rowScanner) (model.PlanChangeRequestRecord, error) {
	var (
		r      model.PlanChangeRequestRecord
		status string
	)
	if err := row.Scan(&r.ID, &r.ContractID, &r.FromPlanID, &r.ToPlanID, &status, &r.RequestedAt, &r.ProcessedAt,
		&r.RequestedBy, &r.ProcessedBy, &r.RejectionReason, &r.EffectiveDate); err != nil {
		return r, err
	}
	r.Status = model.ChangeRequestStatus(status)
	r.RequestedAt = r.RequestedAt.UTC()
	r.ProcessedAt = utcPtr(r.ProcessedAt)
	r.EffectiveDate = r.EffectiveDate.UTC()
	return r, nil
}

func (r *ChangeRequestRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PlanChangeRequest, error) {
	q := `SELECT ` + changeRequestColumns + ` FROM plan_change_requests WHERE id = $1`
	if inTx(tx) {
		q += ` FOR UPDATE`
	}
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	rec, err := scanChangeRequestRecord(row)
	if err != nil {
		return nil, scanErr(err)
	}
	out, err := r.hydrate(ctx, tx, []model.PlanChangeRequestRecord{rec})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (r *ChangeRequestRepo) ListByContract(ctx context.Context, tx repository.Tx, contractID string) ([]*model.PlanChangeRequest, error) {
	return r.list(ctx, tx, `SELECT `+changeRequestColumns+` FROM plan_change_requests WHERE contract_id = $1 ORDER BY requested_at DESC`, contractID)
}

func (r *ChangeRequestRepo) ListPending(ctx context.Context, tx repository.Tx) ([]*model.PlanChangeRequest, error) {
	return r.list(ctx, tx, `SELECT `+changeRequestColumns+` FROM plan_change_requests WHERE status = $1 ORDER BY requested_at ASC`,
		string(model.ChangeRequestPending))
}

func (r *ChangeRequestRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.PlanChangeRequest, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	var recs []model.PlanChangeRequestRecord
	for rows.Next() {
		rec, err := scanChangeRequestRecord(rows)
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

func (r *ChangeRequestRepo) hydrate(ctx context.Context, tx repository.Tx, recs []model.PlanChangeRequestRecord) ([]*model.PlanChangeRequest, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	var contractIDs, planIDs []string
	seenC, seenP := map[string]bool{}, map[string]bool{}
	for _, rec := range recs {
		if !seenC[rec.ContractID] {
			seenC[rec.ContractID] = true
			contractIDs = append(contractIDs, rec.ContractID)
		}
		for _, id := range []string{rec.FromPlanID, rec.ToPlanID} {
			if !seenP[id] {
				seenP[id] = true
				planIDs = append(planIDs, id)
			}
		}
	}
	contracts, err := r.contracts.findMany(ctx, tx, contractIDs)
	if err != nil {
		return nil, err
	}
	plans, err := r.plans.findMany(ctx, tx, planIDs)
	if err != nil {
		return nil, err
	}

	out := make([]*model.PlanChangeRequest, 0, len(recs))
	for _, rec := range recs {
		req, err := model.RestorePlanChangeRequest(rec, contracts[rec.ContractID], plans[rec.FromPlanID], plans[rec.ToPlanID])
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}

func (r *ChangeRequestRepo) Add(ctx context.Context, tx repository.Tx, req *model.PlanChangeRequest) error {
	const q = `
INSERT INTO plan_change_requests (id, contract_id, from_plan_id, to_plan_id, status, requested_at, processed_at, requested_by, processed_by, rejection_reason, effective_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);`
	rec := req.Record()
	_, err := execSQL(ctx, r.pool, tx, q,
		rec.ID, rec.ContractID, rec.FromPlanID, rec.ToPlanID, string(rec.Status), rec.RequestedAt, rec.ProcessedAt,
		rec.RequestedBy, rec.ProcessedBy, rec.RejectionReason, rec.EffectiveDate,
	)
	return err
}

// Update persists the processing outcome. Contract and plan references are immutable.
func (r *ChangeRequestRepo) Update(ctx context.Context, tx repository.Tx, req *model.PlanChangeRequest) error {
	const q = `
UPDATE plan_change_requests SET
  status = $2,
  processed_at = $3,
  processed_by = $4,
  rejection_reason = $5,
  effective_date = $6
WHERE id = $1;`
	rec := req.Record()
	tag, err := execSQL(ctx, r.pool, tx, q,
		rec.ID, string(rec.Status), rec.ProcessedAt, rec.ProcessedBy, rec.RejectionReason, rec.EffectiveDate,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: plan change request %s", domain.ErrNotFound, rec.ID)
	}
	return nil
}

// CountByStatus returns the number of requests per status.
func (r *ChangeRequestRepo) CountByStatus(ctx context.Context) (map[model.ChangeRequestStatus]int, error) {
	rows, err := queryRows(ctx, r.pool, repository.NoTX, `SELECT status, COUNT(*) FROM plan_change_requests GROUP BY status;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[model.ChangeRequestStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, scanErr(err)
		}
		out[model.ChangeRequestStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err)
	}
	return out, nil
}
