//go:build !integration

package api

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"contract-plan-manager/internal/usecase"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// Stubs embed the use case interface; calling a method without a func set panics.

type stubPlans struct {
	usecase.PaymentPlanUseCase
	list       func(ctx context.Context) ([]usecase.PaymentPlanDTO, error)
	get        func(ctx context.Context, id string) (*usecase.PaymentPlanDTO, error)
	create     func(ctx context.Context, in usecase.CreatePaymentPlanInput) (*usecase.PaymentPlanDTO, error)
	deactivate func(ctx context.Context, id string) error
}

func (s *stubPlans) List(ctx context.Context) ([]usecase.PaymentPlanDTO, error) { return s.list(ctx) }
func (s *stubPlans) Get(ctx context.Context, id string) (*usecase.PaymentPlanDTO, error) {
	return s.get(ctx, id)
}
func (s *stubPlans) Create(ctx context.Context, in usecase.CreatePaymentPlanInput) (*usecase.PaymentPlanDTO, error) {
	return s.create(ctx, in)
}
func (s *stubPlans) Deactivate(ctx context.Context, id string) error { return s.deactivate(ctx, id) }

type stubContracts struct {
	usecase.ContractUseCase
	create    func(ctx context.Context, in usecase.CreateContractInput) (*usecase.ContractDTO, error)
	terminate func(ctx context.Context, id string, end time.Time) error
	byNumber  func(ctx context.Context, number string) (*usecase.ContractDTO, error)
}

func (s *stubContracts) Create(ctx context.Context, in usecase.CreateContractInput) (*usecase.ContractDTO, error) {
	return s.create(ctx, in)
}
func (s *stubContracts) Terminate(ctx context.Context, id string, end time.Time) error {
	return s.terminate(ctx, id, end)
}
func (s *stubContracts) GetByNumber(ctx context.Context, number string) (*usecase.ContractDTO, error) {
	return s.byNumber(ctx, number)
}

type stubRequests struct {
	usecase.PlanChangeRequestUseCase
	process func(ctx context.Context, id string, in usecase.ProcessPlanChangeRequestInput) (*usecase.PlanChangeRequestDTO, error)
	pending func(ctx context.Context) ([]usecase.PlanChangeRequestDTO, error)
}

func (s *stubRequests) Process(ctx context.Context, id string, in usecase.ProcessPlanChangeRequestInput) (*usecase.PlanChangeRequestDTO, error) {
	return s.process(ctx, id, in)
}
func (s *stubRequests) ListPending(ctx context.Context) ([]usecase.PlanChangeRequestDTO, error) {
	return s.pending(ctx)
}
