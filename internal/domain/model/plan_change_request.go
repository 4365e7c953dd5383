package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"contract-plan-manager/internal/domain"
)

type ChangeRequestStatus string

const (
	ChangeRequestPending   ChangeRequestStatus = "Pending"
	ChangeRequestApproved  ChangeRequestStatus = "Approved"
	ChangeRequestRejected  ChangeRequestStatus = "Rejected"
	ChangeRequestCancelled ChangeRequestStatus = "Cancelled"
)

func (s ChangeRequestStatus) Valid() bool {
	switch s {
	case ChangeRequestPending, ChangeRequestApproved, ChangeRequestRejected, ChangeRequestCancelled:
		return true
	}
	return false
}

func (s ChangeRequestStatus) String() string { return string(s) }

func (s ChangeRequestStatus) MarshalText() ([]byte, error) { return []byte(s), nil }

func (s *ChangeRequestStatus) UnmarshalText(b []byte) error {
	v := ChangeRequestStatus(b)
	if !v.Valid() {
		return fmt.Errorf("%w: invalid change request status %q", domain.ErrValidation, string(b))
	}
	*s = v
	return nil
}

// PlanChangeRequest asks to move a contract from one plan to another.
// Approving it changes the contract's current plan.
type PlanChangeRequest struct {
	id              string
	contract        *Contract
	fromPlan        *PaymentPlan
	toPlan          *PaymentPlan
	status          ChangeRequestStatus
	requestedAt     time.Time
	processedAt     *time.Time
	requestedBy     string
	processedBy     *string
	rejectionReason *string
	effectiveDate   time.Time
}

// NewPlanChangeRequest validates and constructs a Pending request.
func NewPlanChangeRequest(contract *Contract, fromPlan, toPlan *PaymentPlan, requestedBy string, effectiveDate time.Time) (*PlanChangeRequest, error) {
	if contract == nil {
		return nil, fmt.Errorf("%w: contract is required", domain.ErrValidation)
	}
	if fromPlan == nil {
		return nil, fmt.Errorf("%w: from plan is required", domain.ErrValidation)
	}
	if toPlan == nil {
		return nil, fmt.Errorf("%w: to plan is required", domain.ErrValidation)
	}
	if strings.TrimSpace(requestedBy) == "" {
		return nil, fmt.Errorf("%w: requested by is required", domain.ErrValidation)
	}
	t := now()
	if effectiveDate.Before(startOfDay(t)) {
		return nil, fmt.Errorf("%w: effective date cannot be in the past", domain.ErrValidation)
	}
	return &PlanChangeRequest{
		id:            uuid.NewString(),
		contract:      contract,
		fromPlan:      fromPlan,
		toPlan:        toPlan,
		status:        ChangeRequestPending,
		requestedAt:   t,
		requestedBy:   requestedBy,
		effectiveDate: effectiveDate,
	}, nil
}

func (r *PlanChangeRequest) ID() string                  { return r.id }
func (r *PlanChangeRequest) Contract() *Contract         { return r.contract }
func (r *PlanChangeRequest) FromPlan() *PaymentPlan      { return r.fromPlan }
func (r *PlanChangeRequest) ToPlan() *PaymentPlan        { return r.toPlan }
func (r *PlanChangeRequest) Status() ChangeRequestStatus { return r.status }
func (r *PlanChangeRequest) RequestedAt() time.Time      { return r.requestedAt }
func (r *PlanChangeRequest) ProcessedAt() *time.Time     { return r.processedAt }
func (r *PlanChangeRequest) RequestedBy() string         { return r.requestedBy }
func (r *PlanChangeRequest) ProcessedBy() *string        { return r.processedBy }
func (r *PlanChangeRequest) RejectionReason() *string    { return r.rejectionReason }
func (r *PlanChangeRequest) EffectiveDate() time.Time    { return r.effectiveDate }
func (r *PlanChangeRequest) IsPending() bool             { return r.status == ChangeRequestPending }

// IsUpgrade reports whether the target plan is on a higher tier.
func (r *PlanChangeRequest) IsUpgrade() bool { return r.toPlan.IsUpgradeFrom(r.fromPlan) }

// Approve moves the contract onto the target plan. A failure from the
// contract is returned as is and leaves the request pending.
func (r *PlanChangeRequest) Approve(processedBy string) error {
	if r.status != ChangeRequestPending {
		return fmt.Errorf("%w: only pending requests can be approved", domain.ErrInvalidState)
	}
	if strings.TrimSpace(processedBy) == "" {
		return fmt.Errorf("%w: processed by is required", domain.ErrValidation)
	}
	if err := r.contract.ChangePlan(r.toPlan); err != nil {
		return err
	}
	t := now()
	r.status = ChangeRequestApproved
	r.processedAt = &t
	r.processedBy = &processedBy
	return nil
}

func (r *PlanChangeRequest) Reject(processedBy, reason string) error {
	if r.status != ChangeRequestPending {
		return fmt.Errorf("%w: only pending requests can be rejected", domain.ErrInvalidState)
	}
	if strings.TrimSpace(processedBy) == "" {
		return fmt.Errorf("%w: processed by is required", domain.ErrValidation)
	}
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("%w: rejection reason is required", domain.ErrValidation)
	}
	t := now()
	r.status = ChangeRequestRejected
	r.processedAt = &t
	r.processedBy = &processedBy
	r.rejectionReason = &reason
	return nil
}

func (r *PlanChangeRequest) Cancel() error {
	if r.status != ChangeRequestPending {
		return fmt.Errorf("%w: only pending requests can be cancelled", domain.ErrInvalidState)
	}
	t := now()
	r.status = ChangeRequestCancelled
	r.processedAt = &t
	return nil
}

// PlanChangeRequestRecord is the persisted shape of a PlanChangeRequest.
type PlanChangeRequestRecord struct {
	ID              string
	ContractID      string
	FromPlanID      string
	ToPlanID        string
	Status          ChangeRequestStatus
	RequestedAt     time.Time
	ProcessedAt     *time.Time
	RequestedBy     string
	ProcessedBy     *string
	RejectionReason *string
	EffectiveDate   time.Time
}

func (r *PlanChangeRequest) Record() PlanChangeRequestRecord {
	return PlanChangeRequestRecord{
		ID:              r.id,
		ContractID:      r.contract.ID(),
		FromPlanID:      r.fromPlan.ID(),
		ToPlanID:        r.toPlan.ID(),
		Status:          r.status,
		RequestedAt:     r.requestedAt,
		ProcessedAt:     r.processedAt,
		RequestedBy:     r.requestedBy,
		ProcessedBy:     r.processedBy,
		RejectionReason: r.rejectionReason,
		EffectiveDate:   r.effectiveDate,
	}
}

// RestorePlanChangeRequest rebuilds a request from storage together with the
// entities it references.
func RestorePlanChangeRequest(rec PlanChangeRequestRecord, contract *Contract, fromPlan, toPlan *PaymentPlan) (*PlanChangeRequest, error) {
	switch {
	case contract == nil || contract.ID() != rec.ContractID,
		fromPlan == nil || fromPlan.ID() != rec.FromPlanID,
		toPlan == nil || toPlan.ID() != rec.ToPlanID:
		return nil, fmt.Errorf("%w: change request %s references mismatch", domain.ErrInvalidArgument, rec.ID)
	}
	return &PlanChangeRequest{
		id:              rec.ID,
		contract:        contract,
		fromPlan:        fromPlan,
		toPlan:          toPlan,
		status:          rec.Status,
		requestedAt:     rec.RequestedAt,
		processedAt:     rec.ProcessedAt,
		requestedBy:     rec.RequestedBy,
		processedBy:     rec.ProcessedBy,
		rejectionReason: rec.RejectionReason,
		effectiveDate:   rec.EffectiveDate,
	}, nil
}
