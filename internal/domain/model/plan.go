package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"contract-plan-manager/internal/domain"
)

// BillingCycle is the recurrence period of a plan's price.
type BillingCycle string

const (
	BillingCycleMonthly   BillingCycle = "Monthly"
	BillingCycleQuarterly BillingCycle = "Quarterly"
	BillingCycleAnnually  BillingCycle = "Annually"
)

func (c BillingCycle) Valid() bool {
	switch c {
	case BillingCycleMonthly, BillingCycleQuarterly, BillingCycleAnnually:
		return true
	}
	return false
}

func (c BillingCycle) String() string { return string(c) }

func (c BillingCycle) MarshalText() ([]byte, error) { return []byte(c), nil }

func (c *BillingCycle) UnmarshalText(b []byte) error {
	v := BillingCycle(b)
	if !v.Valid() {
		return fmt.Errorf("%w: invalid billing cycle %q", domain.ErrValidation, string(b))
	}
	*c = v
	return nil
}

// ParseBillingCycle converts the wire form into a BillingCycle.
func ParseBillingCycle(s string) (BillingCycle, error) {
	var c BillingCycle
	err := c.UnmarshalText([]byte(strings.TrimSpace(s)))
	return c, err
}

// PlanTier ranks plans. The order of the constants is the tier order.
type PlanTier string

const (
	PlanTierBasic      PlanTier = "Basic"
	PlanTierStandard   PlanTier = "Standard"
	PlanTierPremium    PlanTier = "Premium"
	PlanTierEnterprise PlanTier = "Enterprise"
)

// Rank returns the ordinal of the tier, or -1 for an unknown tier.
func (t PlanTier) Rank() int {
	switch t {
	case PlanTierBasic:
		return 0
	case PlanTierStandard:
		return 1
	case PlanTierPremium:
		return 2
	case PlanTierEnterprise:
		return 3
	}
	return -1
}

func (t PlanTier) Valid() bool { return t.Rank() >= 0 }

func (t PlanTier) String() string { return string(t) }

func (t PlanTier) MarshalText() ([]byte, error) { return []byte(t), nil }

func (t *PlanTier) UnmarshalText(b []byte) error {
	v := PlanTier(b)
	if !v.Valid() {
		return fmt.Errorf("%w: invalid plan tier %q", domain.ErrValidation, string(b))
	}
	*t = v
	return nil
}

// ParsePlanTier converts the wire form into a PlanTier.
func ParsePlanTier(s string) (PlanTier, error) {
	var t PlanTier
	err := t.UnmarshalText([]byte(strings.TrimSpace(s)))
	return t, err
}

// PaymentPlan is a priced, tiered offering that contracts subscribe to.
type PaymentPlan struct {
	id            string
	name          string
	description   string
	monthlyPrice  decimal.Decimal
	billingCycle  BillingCycle
	tier          PlanTier
	active        bool
	createdAt     time.Time
	deactivatedAt *time.Time
}

// priceScale is the number of decimal places stored for a price.
const priceScale = 2

func validatePrice(d decimal.Decimal) error {
	if !d.IsPositive() {
		return fmt.Errorf("%w: monthly price must be greater than zero", domain.ErrValidation)
	}
	if !d.Equal(d.Truncate(priceScale)) {
		return fmt.Errorf("%w: monthly price cannot have more than %d decimal places", domain.ErrValidation, priceScale)
	}
	return nil
}

// NewPaymentPlan validates and constructs an active plan.
func NewPaymentPlan(name, description string, monthlyPrice decimal.Decimal, cycle BillingCycle, tier PlanTier) (*PaymentPlan, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: plan name is required", domain.ErrValidation)
	}
	if err := validatePrice(monthlyPrice); err != nil {
		return nil, err
	}
	if !cycle.Valid() {
		return nil, fmt.Errorf("%w: invalid billing cycle %q", domain.ErrValidation, cycle)
	}
	if !tier.Valid() {
		return nil, fmt.Errorf("%w: invalid plan tier %q", domain.ErrValidation, tier)
	}
	return &PaymentPlan{
		id:           uuid.NewString(),
		name:         name,
		description:  description,
		monthlyPrice: monthlyPrice,
		billingCycle: cycle,
		tier:         tier,
		active:       true,
		createdAt:    now(),
	}, nil
}

func (p *PaymentPlan) ID() string                    { return p.id }
func (p *PaymentPlan) Name() string                  { return p.name }
func (p *PaymentPlan) Description() string           { return p.description }
func (p *PaymentPlan) MonthlyPrice() decimal.Decimal { return p.monthlyPrice }
func (p *PaymentPlan) BillingCycle() BillingCycle    { return p.billingCycle }
func (p *PaymentPlan) Tier() PlanTier                { return p.tier }
func (p *PaymentPlan) IsActive() bool                { return p.active }
func (p *PaymentPlan) CreatedAt() time.Time          { return p.createdAt }
func (p *PaymentPlan) DeactivatedAt() *time.Time     { return p.deactivatedAt }

// UpdatePricing replaces the monthly price.
func (p *PaymentPlan) UpdatePricing(monthlyPrice decimal.Decimal) error {
	if err := validatePrice(monthlyPrice); err != nil {
		return err
	}
	p.monthlyPrice = monthlyPrice
	return nil
}

func (p *PaymentPlan) UpdateDescription(description string) {
	p.description = description
}

// Deactivate hides the plan from new contracts and change requests.
// Calling it again re-stamps the deactivation time.
func (p *PaymentPlan) Deactivate() {
	t := now()
	p.active = false
	p.deactivatedAt = &t
}

func (p *PaymentPlan) Reactivate() {
	p.active = true
	p.deactivatedAt = nil
}

// IsUpgradeFrom reports whether p sits on a strictly higher tier than other.
func (p *PaymentPlan) IsUpgradeFrom(other *PaymentPlan) bool {
	return p.tier.Rank() > other.tier.Rank()
}

// IsDowngradeFrom reports whether p sits on a strictly lower tier than other.
func (p *PaymentPlan) IsDowngradeFrom(other *PaymentPlan) bool {
	return p.tier.Rank() < other.tier.Rank()
}

// PaymentPlanRecord is the persisted shape of a PaymentPlan.
type PaymentPlanRecord struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	MonthlyPrice  decimal.Decimal `json:"monthly_price"`
	BillingCycle  BillingCycle    `json:"billing_cycle"`
	Tier          PlanTier        `json:"tier"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	DeactivatedAt *time.Time      `json:"deactivated_at,omitempty"`
}

// Record snapshots the plan for persistence.
func (p *PaymentPlan) Record() PaymentPlanRecord {
	return PaymentPlanRecord{
		ID:            p.id,
		Name:          p.name,
		Description:   p.description,
		MonthlyPrice:  p.monthlyPrice,
		BillingCycle:  p.billingCycle,
		Tier:          p.tier,
		IsActive:      p.active,
		CreatedAt:     p.createdAt,
		DeactivatedAt: p.deactivatedAt,
	}
}

// RestorePaymentPlan rebuilds a plan from storage without re-running
// creation rules.
func RestorePaymentPlan(r PaymentPlanRecord) *PaymentPlan {
	return &PaymentPlan{
		id:            r.ID,
		name:          r.Name,
		description:   r.Description,
		monthlyPrice:  r.MonthlyPrice,
		billingCycle:  r.BillingCycle,
		tier:          r.Tier,
		active:        r.IsActive,
		createdAt:     r.CreatedAt,
		deactivatedAt: r.DeactivatedAt,
	}
}
