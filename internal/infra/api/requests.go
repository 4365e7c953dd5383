package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Date accepts RFC 3339 timestamps as well as bare "2006-01-02" dates.
type Date struct{ time.Time }

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

func (d Date) MarshalJSON() ([]byte, error) { return json.Marshal(d.Time) }

type createPlanRequest struct {
	Name         string          `json:"name" label:"Plan name" validate:"required,max=100"`
	Description  string          `json:"description" label:"Description" validate:"max=500"`
	MonthlyPrice decimal.Decimal `json:"monthlyPrice" label:"Monthly price" validate:"gt=0,lte=100000"`
	BillingCycle string          `json:"billingCycle" label:"Billing cycle" validate:"required,oneof=Monthly Quarterly Annually"`
	Tier         string          `json:"tier" label:"Plan tier" validate:"required,oneof=Basic Standard Premium Enterprise"`
}

type updatePlanRequest struct {
	MonthlyPrice decimal.Decimal `json:"monthlyPrice" label:"Monthly price" validate:"gt=0,lte=100000"`
	Description  string          `json:"description" label:"Description" validate:"max=500"`
}

type createContractRequest struct {
	ContractNumber       string `json:"contractNumber" label:"Contract number" validate:"required,max=50,contractnumber"`
	CustomerName         string `json:"customerName" label:"Customer name" validate:"required,max=200"`
	CustomerEmail        string `json:"customerEmail" label:"Customer email" validate:"required,email,max=255"`
	StartDate            Date   `json:"startDate" label:"Start date" validate:"required,notpast"`
	InitialPaymentPlanID string `json:"initialPaymentPlanId" label:"Initial payment plan" validate:"required,uuid"`
}

type updateContractRequest struct {
	CustomerName  string `json:"customerName" label:"Customer name" validate:"required,max=200"`
	CustomerEmail string `json:"customerEmail" label:"Customer email" validate:"required,email,max=255"`
}

type createChangeRequestRequest struct {
	ContractID    string `json:"contractId" label:"Contract ID" validate:"required,uuid"`
	ToPlanID      string `json:"toPlanId" label:"Target plan ID" validate:"required,uuid"`
	RequestedBy   string `json:"requestedBy" label:"Requester" validate:"required,max=200"`
	EffectiveDate Date   `json:"effectiveDate" label:"Effective date" validate:"required,notpast"`
}

type processChangeRequestRequest struct {
	Approved        bool   `json:"approved"`
	ProcessedBy     string `json:"processedBy" label:"Processor" validate:"required,max=200"`
	RejectionReason string `json:"rejectionReason" label:"Rejection reason" validate:"required_if=Approved false,max=1000"`
}

type loginRequest struct {
	Password string `json:"password" label:"Password" validate:"required"`
}

var contractNumberRE = regexp.MustCompile(`^[A-Z0-9-]+$`)

// today is swapped in tests.
var today = func() time.Time {
	y, m, d := time.Now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if l := f.Tag.Get("label"); l != "" {
			return l
		}
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	v.RegisterCustomTypeFunc(func(f reflect.Value) interface{} {
		d, _ := f.Interface().(Date)
		if d.IsZero() {
			return nil
		}
		return d.Time
	}, Date{})
	v.RegisterCustomTypeFunc(func(f reflect.Value) interface{} {
		d, _ := f.Interface().(decimal.Decimal)
		return d.InexactFloat64()
	}, decimal.Decimal{})
	_ = v.RegisterValidation("contractnumber", func(fl validator.FieldLevel) bool {
		return contractNumberRE.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("notpast", func(fl validator.FieldLevel) bool {
		t, ok := fl.Field().Interface().(time.Time)
		return ok && !t.Before(today())
	})
	return v
}

var errMalformedBody = errors.New("malformed request body")

// decode reads a JSON body into dst and validates it. The returned strings
// are user-facing messages, one per failed rule.
func decode(r *http.Request, v *validator.Validate, dst interface{}) ([]string, error) {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return []string{err.Error()}, errMalformedBody
	}
	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, err
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, message(fe))
		}
		return msgs, err
	}
	return nil, nil
}

func message(fe validator.FieldError) string {
	f := fe.Field()
	switch fe.Tag() {
	case "required":
		return f + " is required"
	case "required_if":
		return f + " is required when rejecting a request"
	case "max":
		return fmt.Sprintf("%s cannot exceed %s characters", f, fe.Param())
	case "email":
		return "Invalid email format"
	case "uuid":
		return f + " must be a valid UUID"
	case "contractnumber":
		return f + " must contain only uppercase letters, numbers, and hyphens"
	case "notpast":
		return f + " cannot be in the past"
	case "gt":
		return f + " must be greater than zero"
	case "lte":
		return f + " seems unreasonably high"
	case "oneof":
		return fmt.Sprintf("Invalid %s. Valid values: %s", strings.ToLower(f), strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s failed %s validation", f, fe.Tag())
	}
}
