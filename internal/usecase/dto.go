package usecase

import (
	"time"

	"github.com/shopspring/decimal"

	"contract-plan-manager/internal/domain/model"
)

// PaymentPlanDTO is the transfer shape of a payment plan.
type PaymentPlanDTO struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	MonthlyPrice  decimal.Decimal `json:"monthlyPrice"`
	BillingCycle  string          `json:"billingCycle"`
	Tier          string          `json:"tier"`
	IsActive      bool            `json:"isActive"`
	CreatedAt     time.Time       `json:"createdAt"`
	DeactivatedAt *time.Time      `json:"deactivatedAt,omitempty"`
}

// ContractDTO includes the name and price of the current plan.
type ContractDTO struct {
	ID                     string          `json:"id"`
	ContractNumber         string          `json:"contractNumber"`
	CustomerName           string          `json:"customerName"`
	CustomerEmail          string          `json:"customerEmail"`
	StartDate              time.Time       `json:"startDate"`
	EndDate                *time.Time      `json:"endDate"`
	Status                 string          `json:"status"`
	CurrentPaymentPlanID   string          `json:"currentPaymentPlanId"`
	CurrentPaymentPlanName string          `json:"currentPaymentPlanName"`
	CurrentMonthlyPrice    decimal.Decimal `json:"currentMonthlyPrice"`
	CreatedAt              time.Time       `json:"createdAt"`
	UpdatedAt              time.Time       `json:"updatedAt"`
}

type PlanHistoryEntryDTO struct {
	PlanID     string    `json:"planId"`
	PlanName   string    `json:"planName"`
	ReplacedAt time.Time `json:"replacedAt"`
}

type PlanChangeRequestDTO struct {
	ID              string     `json:"id"`
	ContractID      string     `json:"contractId"`
	ContractNumber  string     `json:"contractNumber"`
	FromPlanID      string     `json:"fromPlanId"`
	FromPlanName    string     `json:"fromPlanName"`
	ToPlanID        string     `json:"toPlanId"`
	ToPlanName      string     `json:"toPlanName"`
	Status          string     `json:"status"`
	RequestedAt     time.Time  `json:"requestedAt"`
	ProcessedAt     *time.Time `json:"processedAt"`
	RequestedBy     string     `json:"requestedBy"`
	ProcessedBy     *string    `json:"processedBy"`
	RejectionReason *string    `json:"rejectionReason"`
	EffectiveDate   time.Time  `json:"effectiveDate"`
	IsUpgrade       bool       `json:"isUpgrade"`
}

// Inputs

type CreatePaymentPlanInput struct {
	Name         string
	Description  string
	MonthlyPrice decimal.Decimal
	BillingCycle model.BillingCycle
	Tier         model.PlanTier
}

type UpdatePaymentPlanInput struct {
	MonthlyPrice decimal.Decimal
	Description  string
}

type CreateContractInput struct {
	ContractNumber       string
	CustomerName         string
	CustomerEmail        string
	StartDate            time.Time
	InitialPaymentPlanID string
}

type UpdateContractInput struct {
	CustomerName  string
	CustomerEmail string
}

type CreatePlanChangeRequestInput struct {
	ContractID    string
	ToPlanID      string
	RequestedBy   string
	EffectiveDate time.Time
}

type ProcessPlanChangeRequestInput struct {
	Approved        bool
	ProcessedBy     string
	RejectionReason string
}

// Mapping

func toPaymentPlanDTO(p *model.PaymentPlan) PaymentPlanDTO {
	return PaymentPlanDTO{
		ID:            p.ID(),
		Name:          p.Name(),
		Description:   p.Description(),
		MonthlyPrice:  p.MonthlyPrice(),
		BillingCycle:  p.BillingCycle().String(),
		Tier:          p.Tier().String(),
		IsActive:      p.IsActive(),
		CreatedAt:     p.CreatedAt(),
		DeactivatedAt: p.DeactivatedAt(),
	}
}

func toPaymentPlanDTOs(ps []*model.PaymentPlan) []PaymentPlanDTO {
	out := make([]PaymentPlanDTO, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPaymentPlanDTO(p))
	}
	return out
}

func toContractDTO(c *model.Contract) ContractDTO {
	plan := c.CurrentPlan()
	return ContractDTO{
		ID:                     c.ID(),
		ContractNumber:         c.ContractNumber(),
		CustomerName:           c.CustomerName(),
		CustomerEmail:          c.CustomerEmail(),
		StartDate:              c.StartDate(),
		EndDate:                c.EndDate(),
		Status:                 c.Status().String(),
		CurrentPaymentPlanID:   plan.ID(),
		CurrentPaymentPlanName: plan.Name(),
		CurrentMonthlyPrice:    plan.MonthlyPrice(),
		CreatedAt:              c.CreatedAt(),
		UpdatedAt:              c.UpdatedAt(),
	}
}

func toContractDTOs(cs []*model.Contract) []ContractDTO {
	out := make([]ContractDTO, 0, len(cs))
	for _, c := range cs {
		out = append(out, toContractDTO(c))
	}
	return out
}

func toPlanChangeRequestDTO(r *model.PlanChangeRequest) PlanChangeRequestDTO {
	return PlanChangeRequestDTO{
		ID:              r.ID(),
		ContractID:      r.Contract().ID(),
		ContractNumber:  r.Contract().ContractNumber(),
		FromPlanID:      r.FromPlan().ID(),
		FromPlanName:    r.FromPlan().Name(),
		ToPlanID:        r.ToPlan().ID(),
		ToPlanName:      r.ToPlan().Name(),
		Status:          r.Status().String(),
		RequestedAt:     r.RequestedAt(),
		ProcessedAt:     r.ProcessedAt(),
		RequestedBy:     r.RequestedBy(),
		ProcessedBy:     r.ProcessedBy(),
		RejectionReason: r.RejectionReason(),
		EffectiveDate:   r.EffectiveDate(),
		IsUpgrade:       r.IsUpgrade(),
	}
}

func toPlanChangeRequestDTOs(rs []*model.PlanChangeRequest) []PlanChangeRequestDTO {
	out := make([]PlanChangeRequestDTO, 0, len(rs))
	for _, r := range rs {
		out = append(out, toPlanChangeRequestDTO(r))
	}
	return out
}
