package commands

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"contract-plan-manager/internal/domain/ports/repository"
	pg "contract-plan-manager/internal/infra/db/postgres"
	red "contract-plan-manager/internal/infra/redis"
)

// infra holds the connections shared by serve and seed.
type infra struct {
	pool  *pgxpool.Pool
	redis *red.Client // nil when redis.url is empty

	plans     repository.PaymentPlanRepository
	contracts *pg.ContractRepo
	requests  *pg.ChangeRequestRepo
	tm        repository.TransactionManager
}

func openInfra(ctx context.Context) (*infra, error) {
	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	in := &infra{pool: pool}

	if cfg.Redis.URL != "" {
		rc, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			pool.Close()
			return nil, err
		}
		in.redis = rc
	} else {
		logger.Warn().Msg("redis.url not set; plan cache, rate limiting and seed lock disabled")
	}

	planRepo := pg.NewPlanRepo(pool)
	in.plans = planRepo
	if in.redis != nil {
		in.plans = pg.NewPlanRepoCacheDecorator(planRepo, in.redis, cfg.Redis.TTL, logger)
	}
	in.contracts = pg.NewContractRepo(pool)
	in.requests = pg.NewChangeRequestRepo(pool)
	in.tm = pg.NewTxManager(pool)
	return in, nil
}

// locker returns nil when redis is not configured.
func (in *infra) locker() red.Locker {
	if in.redis == nil {
		return nil
	}
	return red.NewLocker(in.redis)
}

func (in *infra) Close() {
	if in.redis != nil {
		if err := in.redis.Close(); err != nil {
			logger.Warn().Err(err).Msg("close redis")
		}
	}
	in.pool.Close()
}
