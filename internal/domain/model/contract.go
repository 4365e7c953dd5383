package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"contract-plan-manager/internal/domain"
)

type ContractStatus string

const (
	ContractStatusActive     ContractStatus = "Active"
	ContractStatusSuspended  ContractStatus = "Suspended"
	ContractStatusTerminated ContractStatus = "Terminated"
)

func (s ContractStatus) Valid() bool {
	switch s {
	case ContractStatusActive, ContractStatusSuspended, ContractStatusTerminated:
		return true
	}
	return false
}

func (s ContractStatus) String() string { return string(s) }

func (s ContractStatus) MarshalText() ([]byte, error) { return []byte(s), nil }

func (s *ContractStatus) UnmarshalText(b []byte) error {
	v := ContractStatus(b)
	if !v.Valid() {
		return fmt.Errorf("%w: invalid contract status %q", domain.ErrValidation, string(b))
	}
	*s = v
	return nil
}

// PlanHistoryEntry records a plan a contract used to be on.
type PlanHistoryEntry struct {
	PlanID     string    `json:"plan_id"`
	ReplacedAt time.Time `json:"replaced_at"`
}

// Contract is a customer agreement bound to exactly one current payment plan.
type Contract struct {
	id             string
	contractNumber string
	customerName   string
	customerEmail  string
	startDate      time.Time
	endDate        *time.Time
	status         ContractStatus
	currentPlan    *PaymentPlan
	planHistory    []PlanHistoryEntry
	createdAt      time.Time
	updatedAt      time.Time
}

// NewContract validates and constructs an Active contract on initialPlan.
func NewContract(contractNumber, customerName, customerEmail string, startDate time.Time, initialPlan *PaymentPlan) (*Contract, error) {
	if strings.TrimSpace(contractNumber) == "" {
		return nil, fmt.Errorf("%w: contract number is required", domain.ErrValidation)
	}
	if strings.TrimSpace(customerName) == "" {
		return nil, fmt.Errorf("%w: customer name is required", domain.ErrValidation)
	}
	if strings.TrimSpace(customerEmail) == "" {
		return nil, fmt.Errorf("%w: customer email is required", domain.ErrValidation)
	}
	if initialPlan == nil {
		return nil, fmt.Errorf("%w: initial payment plan is required", domain.ErrValidation)
	}
	t := now()
	return &Contract{
		id:             uuid.NewString(),
		contractNumber: contractNumber,
		customerName:   customerName,
		customerEmail:  customerEmail,
		startDate:      startDate,
		status:         ContractStatusActive,
		currentPlan:    initialPlan,
		createdAt:      t,
		updatedAt:      t,
	}, nil
}

func (c *Contract) ID() string                { return c.id }
func (c *Contract) ContractNumber() string    { return c.contractNumber }
func (c *Contract) CustomerName() string      { return c.customerName }
func (c *Contract) CustomerEmail() string     { return c.customerEmail }
func (c *Contract) StartDate() time.Time      { return c.startDate }
func (c *Contract) EndDate() *time.Time       { return c.endDate }
func (c *Contract) Status() ContractStatus    { return c.status }
func (c *Contract) CurrentPlan() *PaymentPlan { return c.currentPlan }
func (c *Contract) CurrentPlanID() string     { return c.currentPlan.ID() }
func (c *Contract) CreatedAt() time.Time      { return c.createdAt }
func (c *Contract) UpdatedAt() time.Time      { return c.updatedAt }
func (c *Contract) IsTerminated() bool        { return c.status == ContractStatusTerminated }

// PlanHistory returns previous plans, oldest first.
func (c *Contract) PlanHistory() []PlanHistoryEntry {
	return append([]PlanHistoryEntry(nil), c.planHistory...)
}

// ChangePlan moves an active contract onto newPlan and records the old plan
// in the history.
func (c *Contract) ChangePlan(newPlan *PaymentPlan) error {
	if newPlan == nil {
		return fmt.Errorf("%w: new payment plan is required", domain.ErrValidation)
	}
	if c.status != ContractStatusActive {
		return fmt.Errorf("%w: cannot change plan for inactive contract", domain.ErrInvalidState)
	}
	if c.currentPlan.ID() == newPlan.ID() {
		return fmt.Errorf("%w: new plan must be different from current plan", domain.ErrValidation)
	}
	t := now()
	c.planHistory = append(c.planHistory, PlanHistoryEntry{PlanID: c.currentPlan.ID(), ReplacedAt: t})
	c.currentPlan = newPlan
	c.updatedAt = t
	return nil
}

// Terminate ends the contract. Terminated is absorbing.
func (c *Contract) Terminate(endDate time.Time) error {
	if c.status == ContractStatusTerminated {
		return fmt.Errorf("%w: contract is already terminated", domain.ErrInvalidState)
	}
	if endDate.Before(c.startDate) {
		return fmt.Errorf("%w: end date cannot be before start date", domain.ErrValidation)
	}
	c.endDate = &endDate
	c.status = ContractStatusTerminated
	c.updatedAt = now()
	return nil
}

// Suspend is idempotent on an already suspended contract.
func (c *Contract) Suspend() error {
	if c.status == ContractStatusTerminated {
		return fmt.Errorf("%w: cannot suspend terminated contract", domain.ErrInvalidState)
	}
	c.status = ContractStatusSuspended
	c.updatedAt = now()
	return nil
}

func (c *Contract) Reactivate() error {
	if c.status == ContractStatusTerminated {
		return fmt.Errorf("%w: cannot reactivate terminated contract", domain.ErrInvalidState)
	}
	c.status = ContractStatusActive
	c.updatedAt = now()
	return nil
}

// UpdateCustomerDetails replaces the customer's name and email.
func (c *Contract) UpdateCustomerDetails(customerName, customerEmail string) error {
	if c.status == ContractStatusTerminated {
		return fmt.Errorf("%w: cannot update terminated contract", domain.ErrInvalidState)
	}
	if strings.TrimSpace(customerName) == "" {
		return fmt.Errorf("%w: customer name is required", domain.ErrValidation)
	}
	if strings.TrimSpace(customerEmail) == "" {
		return fmt.Errorf("%w: customer email is required", domain.ErrValidation)
	}
	c.customerName = customerName
	c.customerEmail = customerEmail
	c.updatedAt = now()
	return nil
}

// ContractRecord is the persisted shape of a Contract.
type ContractRecord struct {
	ID             string
	ContractNumber string
	CustomerName   string
	CustomerEmail  string
	StartDate      time.Time
	EndDate        *time.Time
	Status         ContractStatus
	CurrentPlanID  string
	PlanHistory    []PlanHistoryEntry
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (c *Contract) Record() ContractRecord {
	return ContractRecord{
		ID:             c.id,
		ContractNumber: c.contractNumber,
		CustomerName:   c.customerName,
		CustomerEmail:  c.customerEmail,
		StartDate:      c.startDate,
		EndDate:        c.endDate,
		Status:         c.status,
		CurrentPlanID:  c.currentPlan.ID(),
		PlanHistory:    c.PlanHistory(),
		CreatedAt:      c.createdAt,
		UpdatedAt:      c.updatedAt,
	}
}

// RestoreContract rebuilds a contract from storage. plan must be the plan
// referenced by r.CurrentPlanID.
func RestoreContract(r ContractRecord, plan *PaymentPlan) (*Contract, error) {
	if plan == nil || plan.ID() != r.CurrentPlanID {
		return nil, fmt.Errorf("%w: contract %s current plan mismatch", domain.ErrInvalidArgument, r.ID)
	}
	return &Contract{
		id:             r.ID,
		contractNumber: r.ContractNumber,
		customerName:   r.CustomerName,
		customerEmail:  r.CustomerEmail,
		startDate:      r.StartDate,
		endDate:        r.EndDate,
		status:         r.Status,
		currentPlan:    plan,
		planHistory:    append([]PlanHistoryEntry(nil), r.PlanHistory...),
		createdAt:      r.CreatedAt,
		updatedAt:      r.UpdatedAt,
	}, nil
}
