//go:build !integration

package seed_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contract-plan-manager/internal/domain"
	"contract-plan-manager/internal/domain/model"
	"contract-plan-manager/internal/domain/ports/repository"
	red "contract-plan-manager/internal/infra/redis"
	"contract-plan-manager/internal/infra/seed"
)

type memStore struct {
	mu        sync.Mutex
	plans     []*model.PaymentPlan
	contracts []*model.Contract
	requests  []*model.PlanChangeRequest
	failOn    string
}

type memPlans struct{ *memStore }

func (m memPlans) FindByID(_ context.Context, _ repository.Tx, id string) (*model.PaymentPlan, error) {
	for _, p := range m.plans {
		if p.ID() == id {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}
func (m memPlans) ListAll(context.Context, repository.Tx) ([]*model.PaymentPlan, error) {
	return append([]*model.PaymentPlan(nil), m.plans...), nil
}
func (m memPlans) ListActive(ctx context.Context, tx repository.Tx) ([]*model.PaymentPlan, error) {
	return m.ListAll(ctx, tx)
}
func (m memPlans) Add(_ context.Context, _ repository.Tx, p *model.PaymentPlan) error {
	m.plans = append(m.plans, p)
	return nil
}
func (m memPlans) Update(context.Context, repository.Tx, *model.PaymentPlan) error { return nil }

type memContracts struct {
	repository.ContractRepository
	*memStore
}

func (m memContracts) Add(_ context.Context, _ repository.Tx, c *model.Contract) error {
	m.contracts = append(m.contracts, c)
	return nil
}

type memRequests struct {
	repository.PlanChangeRequestRepository
	*memStore
}

func (m memRequests) Add(_ context.Context, _ repository.Tx, r *model.PlanChangeRequest) error {
	if m.failOn == "request" {
		return errors.New("insert failed")
	}
	m.requests = append(m.requests, r)
	return nil
}

// snapshotTx discards everything written by a failed transaction.
type snapshotTx struct{ s *memStore }

func (t snapshotTx) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(context.Context, repository.Tx) error) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	plans, contracts, requests := t.s.plans, t.s.contracts, t.s.requests
	if err := fn(ctx, nil); err != nil {
		t.s.plans, t.s.contracts, t.s.requests = plans, contracts, requests
		return err
	}
	return nil
}

func newSeeder(s *memStore, locker red.Locker) *seed.Seeder {
	log := zerolog.Nop()
	return seed.NewSeeder(memPlans{s}, memContracts{memStore: s}, memRequests{memStore: s}, snapshotTx{s}, locker, &log)
}

func TestSeeder_Run_PopulatesEmptyStore(t *testing.T) {
	s := &memStore{}
	res, err := newSeeder(s, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, seed.Result{Plans: 4, Contracts: 3, Requests: 1}, res)

	names := make([]string, 0, len(s.plans))
	for _, p := range s.plans {
		names = append(names, p.Name())
		assert.True(t, p.IsActive())
		assert.Equal(t, model.BillingCycleMonthly, p.BillingCycle())
	}
	assert.Equal(t, []string{"Basic Plan", "Standard Plan", "Premium Plan", "Enterprise Plan"}, names)
	assert.Equal(t, "299.99", s.plans[3].MonthlyPrice().StringFixed(2))

	require.Len(t, s.contracts, 3)
	assert.Equal(t, "CNT-2024-001", s.contracts[0].ContractNumber())
	assert.Equal(t, s.plans[0].ID(), s.contracts[0].CurrentPlanID())
	assert.Equal(t, s.plans[2].ID(), s.contracts[2].CurrentPlanID())
	assert.True(t, s.contracts[0].StartDate().Before(time.Now().AddDate(0, -5, 0)))

	require.Len(t, s.requests, 1)
	r := s.requests[0]
	assert.Equal(t, model.ChangeRequestPending, r.Status())
	assert.Equal(t, s.plans[1].ID(), r.ToPlan().ID())
	assert.Equal(t, "system@example.com", r.RequestedBy())
}

func TestSeeder_Run_SkipsWhenPlansExist(t *testing.T) {
	s := &memStore{}
	_, err := newSeeder(s, nil).Run(context.Background())
	require.NoError(t, err)

	res, err := newSeeder(s, nil).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Len(t, s.plans, 4)
	assert.Len(t, s.contracts, 3)
}

func TestSeeder_Run_RollsBackOnFailure(t *testing.T) {
	s := &memStore{failOn: "request"}
	_, err := newSeeder(s, nil).Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, s.plans)
	assert.Empty(t, s.contracts)
}

func TestSeeder_Run_HonoursRedisLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := red.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	locker := red.NewLocker(client)

	require.NoError(t, mr.Set("lock:seed", "someone-else"))
	s := &memStore{}
	res, err := newSeeder(s, locker).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Empty(t, s.plans)

	mr.Del("lock:seed")
	res, err = newSeeder(s, locker).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, res.Plans)
	assert.False(t, mr.Exists("lock:seed"), "lock released after seeding")
}
