//go:build !integration

package usecase_test

import (
	"context"
	"sort"
	"sync"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"contract-plan-manager/internal/domain"
	"contract-plan-manager/internal/domain/model"
	"contract-plan-manager/internal/domain/ports/repository"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// ---- Mock PaymentPlanRepository ----

// MockPlanRepo stores records so callers never share pointers with the store.
type MockPlanRepo struct {
	mu      sync.RWMutex
	records map[string]model.PaymentPlanRecord

	UpdateErr error
	// FindErr, when set, can fail FindByID for chosen ids.
	FindErr func(id string) error
}

var _ repository.PaymentPlanRepository = (*MockPlanRepo)(nil)

func NewMockPlanRepo() *MockPlanRepo {
	return &MockPlanRepo{records: make(map[string]model.PaymentPlanRecord)}
}

func (m *MockPlanRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.PaymentPlan, error) {
	if m.FindErr != nil {
		if err := m.FindErr(id); err != nil {
			return nil, err
		}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return model.RestorePaymentPlan(r), nil
}

func (m *MockPlanRepo) ListAll(_ context.Context, _ repository.Tx) ([]*model.PaymentPlan, error) {
	return m.list(func(model.PaymentPlanRecord) bool { return true }), nil
}

func (m *MockPlanRepo) ListActive(_ context.Context, _ repository.Tx) ([]*model.PaymentPlan, error) {
	return m.list(func(r model.PaymentPlanRecord) bool { return r.IsActive }), nil
}

func (m *MockPlanRepo) list(keep func(model.PaymentPlanRecord) bool) []*model.PaymentPlan {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.PaymentPlan, 0, len(m.records))
	for _, r := range m.records {
		if keep(r) {
			out = append(out, model.RestorePaymentPlan(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MonthlyPrice().LessThan(out[j].MonthlyPrice()) })
	return out
}

func (m *MockPlanRepo) Add(_ context.Context, _ repository.Tx, p *model.PaymentPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[p.ID()]; ok {
		return domain.ErrAlreadyExists
	}
	m.records[p.ID()] = p.Record()
	return nil
}

func (m *MockPlanRepo) Update(_ context.Context, _ repository.Tx, p *model.PaymentPlan) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[p.ID()]; !ok {
		return domain.ErrNotFound
	}
	m.records[p.ID()] = p.Record()
	return nil
}

// ---- Mock ContractRepository ----

type MockContractRepo struct {
	mu      sync.RWMutex
	records map[string]model.ContractRecord
	plans   *MockPlanRepo

	UpdateErr       error
	FindByNumberErr error
	Updates         int
}

var _ repository.ContractRepository = (*MockContractRepo)(nil)

func NewMockContractRepo(plans *MockPlanRepo) *MockContractRepo {
	return &MockContractRepo{records: make(map[string]model.ContractRecord), plans: plans}
}

func (m *MockContractRepo) restore(ctx context.Context, r model.ContractRecord) (*model.Contract, error) {
	p, err := m.plans.FindByID(ctx, repository.NoTX, r.CurrentPlanID)
	if err != nil {
		return nil, err
	}
	return model.RestoreContract(r, p)
}

func (m *MockContractRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.Contract, error) {
	m.mu.RLock()
	r, ok := m.records[id]
	m.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m.restore(ctx, r)
}

func (m *MockContractRepo) FindByNumber(ctx context.Context, _ repository.Tx, number string) (*model.Contract, error) {
	if m.FindByNumberErr != nil {
		return nil, m.FindByNumberErr
	}
	m.mu.RLock()
	var (
		found model.ContractRecord
		ok    bool
	)
	for _, r := range m.records {
		if r.ContractNumber == number {
			found, ok = r, true
			break
		}
	}
	m.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m.restore(ctx, found)
}

func (m *MockContractRepo) ListAll(ctx context.Context, _ repository.Tx) ([]*model.Contract, error) {
	return m.list(ctx, func(model.ContractRecord) bool { return true })
}

func (m *MockContractRepo) ListActive(ctx context.Context, _ repository.Tx) ([]*model.Contract, error) {
	return m.list(ctx, func(r model.ContractRecord) bool { return r.Status == model.ContractStatusActive })
}

func (m *MockContractRepo) list(ctx context.Context, keep func(model.ContractRecord) bool) ([]*model.Contract, error) {
	m.mu.RLock()
	recs := make([]model.ContractRecord, 0, len(m.records))
	for _, r := range m.records {
		if keep(r) {
			recs = append(recs, r)
		}
	}
	m.mu.RUnlock()
	sort.Slice(recs, func(i, j int) bool { return recs[i].ContractNumber < recs[j].ContractNumber })
	out := make([]*model.Contract, 0, len(recs))
	for _, r := range recs {
		c, err := m.restore(ctx, r)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *MockContractRepo) Add(_ context.Context, _ repository.Tx, c *model.Contract) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.ContractNumber == c.ContractNumber() {
			return domain.ErrAlreadyExists
		}
	}
	m.records[c.ID()] = c.Record()
	return nil
}

func (m *MockContractRepo) Update(_ context.Context, _ repository.Tx, c *model.Contract) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[c.ID()]; !ok {
		return domain.ErrNotFound
	}
	m.records[c.ID()] = c.Record()
	m.Updates++
	return nil
}

func (m *MockContractRepo) Delete(_ context.Context, _ repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.records, id)
	return nil
}

// ---- Mock PlanChangeRequestRepository ----

type MockChangeRequestRepo struct {
	mu        sync.RWMutex
	records   map[string]model.PlanChangeRequestRecord
	contracts *MockContractRepo
	plans     *MockPlanRepo

	UpdateErr error
}

var _ repository.PlanChangeRequestRepository = (*MockChangeRequestRepo)(nil)

func NewMockChangeRequestRepo(contracts *MockContractRepo, plans *MockPlanRepo) *MockChangeRequestRepo {
	return &MockChangeRequestRepo{
		records:   make(map[string]model.PlanChangeRequestRecord),
		contracts: contracts,
		plans:     plans,
	}
}

func (m *MockChangeRequestRepo) restore(ctx context.Context, r model.PlanChangeRequestRecord) (*model.PlanChangeRequest, error) {
	c, err := m.contracts.FindByID(ctx, repository.NoTX, r.ContractID)
	if err != nil {
		return nil, err
	}
	from, err := m.plans.FindByID(ctx, repository.NoTX, r.FromPlanID)
	if err != nil {
		return nil, err
	}
	to, err := m.plans.FindByID(ctx, repository.NoTX, r.ToPlanID)
	if err != nil {
		return nil, err
	}
	return model.RestorePlanChangeRequest(r, c, from, to)
}

func (m *MockChangeRequestRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.PlanChangeRequest, error) {
	m.mu.RLock()
	r, ok := m.records[id]
	m.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m.restore(ctx, r)
}

func (m *MockChangeRequestRepo) ListByContract(ctx context.Context, _ repository.Tx, contractID string) ([]*model.PlanChangeRequest, error) {
	out, err := m.list(ctx, func(r model.PlanChangeRequestRecord) bool { return r.ContractID == contractID })
	if err != nil {
		return nil, err
	}
	// newest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (m *MockChangeRequestRepo) ListPending(ctx context.Context, _ repository.Tx) ([]*model.PlanChangeRequest, error) {
	return m.list(ctx, func(r model.PlanChangeRequestRecord) bool { return r.Status == model.ChangeRequestPending })
}

func (m *MockChangeRequestRepo) list(ctx context.Context, keep func(model.PlanChangeRequestRecord) bool) ([]*model.PlanChangeRequest, error) {
	m.mu.RLock()
	recs := make([]model.PlanChangeRequestRecord, 0, len(m.records))
	for _, r := range m.records {
		if keep(r) {
			recs = append(recs, r)
		}
	}
	m.mu.RUnlock()
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].RequestedAt.Equal(recs[j].RequestedAt) {
			return recs[i].ID < recs[j].ID
		}
		return recs[i].RequestedAt.Before(recs[j].RequestedAt)
	})
	out := make([]*model.PlanChangeRequest, 0, len(recs))
	for _, r := range recs {
		req, err := m.restore(ctx, r)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}

func (m *MockChangeRequestRepo) Add(_ context.Context, _ repository.Tx, r *model.PlanChangeRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.ID()] = r.Record()
	return nil
}

func (m *MockChangeRequestRepo) Update(_ context.Context, _ repository.Tx, r *model.PlanChangeRequest) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[r.ID()]; !ok {
		return domain.ErrNotFound
	}
	m.records[r.ID()] = r.Record()
	return nil
}

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
	Calls      int
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn with NoTX unless WithTxFunc is set.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.Calls++
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}
