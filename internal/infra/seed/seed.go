// Package seed loads demo plans, contracts and a pending change request
// into an empty database.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"contract-plan-manager/internal/domain/model"
	"contract-plan-manager/internal/domain/ports/repository"
	red "contract-plan-manager/internal/infra/redis"
)

const lockKey = "lock:seed"

// Result reports what Run wrote. Skipped is set when plans already existed.
type Result struct {
	Plans     int
	Contracts int
	Requests  int
	Skipped   bool
}

type Seeder struct {
	plans     repository.PaymentPlanRepository
	contracts repository.ContractRepository
	requests  repository.PlanChangeRequestRepository
	tm        repository.TransactionManager
	locker    red.Locker
	log       *zerolog.Logger
	now       func() time.Time
}

// NewSeeder takes an optional locker that serialises concurrent seeders.
func NewSeeder(
	plans repository.PaymentPlanRepository,
	contracts repository.ContractRepository,
	requests repository.PlanChangeRequestRepository,
	tm repository.TransactionManager,
	locker red.Locker,
	logger *zerolog.Logger,
) *Seeder {
	return &Seeder{
		plans:     plans,
		contracts: contracts,
		requests:  requests,
		tm:        tm,
		locker:    locker,
		log:       logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type planSeed struct {
	name, description, price string
	tier                     model.PlanTier
}

var planSeeds = []planSeed{
	{"Basic Plan", "Essential features for small businesses", "29.99", model.PlanTierBasic},
	{"Standard Plan", "Advanced features for growing businesses", "79.99", model.PlanTierStandard},
	{"Premium Plan", "Complete feature set for established businesses", "149.99", model.PlanTierPremium},
	{"Enterprise Plan", "Customizable solutions for large organizations", "299.99", model.PlanTierEnterprise},
}

type contractSeed struct {
	number, customer, email string
	monthsAgo, plan         int
}

var contractSeeds = []contractSeed{
	{"CNT-2024-001", "Acme Corporation", "contact@acme.com", 6, 0},
	{"CNT-2024-002", "Tech Innovations Ltd", "info@techinnovations.com", 3, 1},
	{"CNT-2024-003", "Global Solutions Inc", "hello@globalsolutions.com", 1, 2},
}

// Run writes the demo data in a single transaction. It is a no-op when any
// plan exists.
func (s *Seeder) Run(ctx context.Context) (Result, error) {
	if s.locker != nil {
		token, err := s.locker.TryLock(ctx, lockKey, time.Minute)
		if err != nil {
			if errors.Is(err, red.ErrLockHeld) {
				s.log.Info().Msg("another seeder is running, skipping")
				return Result{Skipped: true}, nil
			}
			return Result{}, fmt.Errorf("acquire seed lock: %w", err)
		}
		defer func() {
			if err := s.locker.Unlock(context.WithoutCancel(ctx), lockKey, token); err != nil {
				s.log.Warn().Err(err).Msg("release seed lock")
			}
		}()
	}

	var res Result
	err := s.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(ctx context.Context, tx repository.Tx) error {
		existing, err := s.plans.ListAll(ctx, tx)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			res.Skipped = true
			return nil
		}

		now := s.now()
		plans := make([]*model.PaymentPlan, 0, len(planSeeds))
		for _, ps := range planSeeds {
			p, err := model.NewPaymentPlan(ps.name, ps.description, decimal.RequireFromString(ps.price), model.BillingCycleMonthly, ps.tier)
			if err != nil {
				return err
			}
			if err := s.plans.Add(ctx, tx, p); err != nil {
				return fmt.Errorf("add plan %q: %w", ps.name, err)
			}
			plans = append(plans, p)
		}
		res.Plans = len(plans)

		contracts := make([]*model.Contract, 0, len(contractSeeds))
		for _, cs := range contractSeeds {
			c, err := model.NewContract(cs.number, cs.customer, cs.email, now.AddDate(0, -cs.monthsAgo, 0), plans[cs.plan])
			if err != nil {
				return err
			}
			if err := s.contracts.Add(ctx, tx, c); err != nil {
				return fmt.Errorf("add contract %s: %w", cs.number, err)
			}
			contracts = append(contracts, c)
		}
		res.Contracts = len(contracts)

		req, err := model.NewPlanChangeRequest(contracts[0], plans[0], plans[1], "system@example.com", now.AddDate(0, 0, 7))
		if err != nil {
			return err
		}
		if err := s.requests.Add(ctx, tx, req); err != nil {
			return fmt.Errorf("add change request: %w", err)
		}
		res.Requests = 1
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	if res.Skipped {
		s.log.Info().Msg("plans already present, nothing seeded")
	} else {
		s.log.Info().Int("plans", res.Plans).Int("contracts", res.Contracts).Int("requests", res.Requests).Msg("seeding complete")
	}
	return res, nil
}
