package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"contract-plan-manager/internal/domain/model"
	"contract-plan-manager/internal/domain/ports/repository"
	"contract-plan-manager/internal/infra/metrics"
	red "contract-plan-manager/internal/infra/redis"
)

var _ repository.PaymentPlanRepository = (*planRepoCacheDecorator)(nil)

const (
	planListAllKey    = "plans:all"
	planListActiveKey = "plans:active"
)

func planKey(id string) string { return fmt.Sprintf("plan:%s", id) }

// planRepoCacheDecorator serves plan reads from Redis. Reads inside a
// transaction always go to the database so row locks are taken.
type planRepoCacheDecorator struct {
	inner repository.PaymentPlanRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewPlanRepoCacheDecorator(inner repository.PaymentPlanRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.PaymentPlanRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &planRepoCacheDecorator{
		inner: inner,
		cache: cache,
		ttl:   ttl,
		log:   logger,
	}
}

func (d *planRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentPlan, error) {
	if tx != nil {
		return d.inner.FindByID(ctx, tx, id)
	}
	key := planKey(id)
	var rec model.PaymentPlanRecord
	if d.get(ctx, key, &rec) {
		metrics.IncCacheRequest("plan", "hit")
		return model.RestorePaymentPlan(rec), nil
	}

	metrics.IncCacheRequest("plan", "miss")
	plan, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	d.set(ctx, key, plan.Record())
	return plan, nil
}

func (d *planRepoCacheDecorator) ListAll(ctx context.Context, tx repository.Tx) ([]*model.PaymentPlan, error) {
	return d.list(ctx, tx, planListAllKey, d.inner.ListAll)
}

func (d *planRepoCacheDecorator) ListActive(ctx context.Context, tx repository.Tx) ([]*model.PaymentPlan, error) {
	return d.list(ctx, tx, planListActiveKey, d.inner.ListActive)
}

func (d *planRepoCacheDecorator) list(ctx context.Context, tx repository.Tx, key string,
	load func(context.Context, repository.Tx) ([]*model.PaymentPlan, error)) ([]*model.PaymentPlan, error) {
	if tx != nil {
		return load(ctx, tx)
	}
	var recs []model.PaymentPlanRecord
	if d.get(ctx, key, &recs) {
		metrics.IncCacheRequest("plan_list", "hit")
		out := make([]*model.PaymentPlan, 0, len(recs))
		for _, r := range recs {
			out = append(out, model.RestorePaymentPlan(r))
		}
		return out, nil
	}

	metrics.IncCacheRequest("plan_list", "miss")
	plans, err := load(ctx, tx)
	if err != nil {
		return nil, err
	}
	if len(plans) > 0 {
		recs = make([]model.PaymentPlanRecord, 0, len(plans))
		for _, p := range plans {
			recs = append(recs, p.Record())
		}
		d.set(ctx, key, recs)
	}
	return plans, nil
}

// Writes drop the cached entries now and again once the transaction commits,
// since a reader outside the transaction can re-cache the old row meanwhile.
func (d *planRepoCacheDecorator) Add(ctx context.Context, tx repository.Tx, plan *model.PaymentPlan) error {
	return d.write(ctx, plan.ID(), func() error { return d.inner.Add(ctx, tx, plan) })
}

func (d *planRepoCacheDecorator) Update(ctx context.Context, tx repository.Tx, plan *model.PaymentPlan) error {
	return d.write(ctx, plan.ID(), func() error { return d.inner.Update(ctx, tx, plan) })
}

func (d *planRepoCacheDecorator) write(ctx context.Context, id string, fn func() error) error {
	d.invalidate(ctx, id)
	if err := fn(); err != nil {
		return err
	}
	repository.AfterCommit(ctx, func(ctx context.Context) { d.invalidate(ctx, id) })
	return nil
}

func (d *planRepoCacheDecorator) invalidate(ctx context.Context, id string) {
	if err := d.cache.Del(ctx, planKey(id), planListAllKey, planListActiveKey); err != nil {
		d.log.Warn().Err(err).Str("plan_id", id).Msg("plan cache invalidation failed")
	}
}

func (d *planRepoCacheDecorator) get(ctx context.Context, key string, dst interface{}) bool {
	val, err := d.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, red.Nil) {
			d.log.Warn().Err(err).Str("key", key).Msg("plan cache read failed")
		}
		return false
	}
	if err := json.Unmarshal([]byte(val), dst); err != nil {
		d.log.Warn().Err(err).Str("key", key).Msg("plan cache entry is corrupt")
		return false
	}
	return true
}

func (d *planRepoCacheDecorator) set(ctx context.Context, key string, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, key, b, d.ttl); err != nil {
		d.log.Warn().Err(err).Str("key", key).Msg("plan cache write failed")
	}
}
