//go:build !integration

package postgres

import (
	"context"
	"time"

	"contract-plan-manager/internal/domain/model"
	"contract-plan-manager/internal/domain/ports/repository"
	red "contract-plan-manager/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerPlanRepo mocks the database repository that the Plan decorator wraps.
type mockInnerPlanRepo struct {
	AddFunc        func(ctx context.Context, tx repository.Tx, plan *model.PaymentPlan) error
	UpdateFunc     func(ctx context.Context, tx repository.Tx, plan *model.PaymentPlan) error
	FindByIDFunc   func(ctx context.Context, tx repository.Tx, id string) (*model.PaymentPlan, error)
	ListAllFunc    func(ctx context.Context, tx repository.Tx) ([]*model.PaymentPlan, error)
	ListActiveFunc func(ctx context.Context, tx repository.Tx) ([]*model.PaymentPlan, error)
}

func (m *mockInnerPlanRepo) Add(ctx context.Context, tx repository.Tx, plan *model.PaymentPlan) error {
	return m.AddFunc(ctx, tx, plan)
}
func (m *mockInnerPlanRepo) Update(ctx context.Context, tx repository.Tx, plan *model.PaymentPlan) error {
	return m.UpdateFunc(ctx, tx, plan)
}
func (m *mockInnerPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentPlan, error) {
	return m.FindByIDFunc(ctx, tx, id)
}
func (m *mockInnerPlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.PaymentPlan, error) {
	return m.ListAllFunc(ctx, tx)
}
func (m *mockInnerPlanRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.PaymentPlan, error) {
	return m.ListActiveFunc(ctx, tx)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc    func(ctx context.Context, keys ...string) error
	PingFunc   func(ctx context.Context) error
	IncrFunc   func(ctx context.Context, key string) (int64, error)
	ExpireFunc func(ctx context.Context, key string, expiration time.Duration) error
	CloseFunc  func() error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return m.PingFunc(ctx) }
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return m.IncrFunc(ctx, key)
}
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return m.ExpireFunc(ctx, key, expiration)
}
func (m *mockRedisClient) Close() error { return m.CloseFunc() }
