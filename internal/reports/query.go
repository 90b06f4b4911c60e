package reports

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/shopledger/shopledger/internal/billing"
)

const queryDateLayout = "2006-01-02"

var validate = validator.New()

// Query is the textual form of a Filter, as it arrives in a request or a
// queued export job.
type Query struct {
	Period      string `json:"period,omitempty" validate:"omitempty,oneof=all today weekly monthly custom"`
	From        string `json:"from,omitempty" validate:"omitempty,datetime=2006-01-02"`
	To          string `json:"to,omitempty" validate:"omitempty,datetime=2006-01-02"`
	BranchID    string `json:"branch_id,omitempty" validate:"omitempty,max=64"`
	CustomerID  string `json:"customer_id,omitempty" validate:"omitempty,max=64"`
	PaymentMode string `json:"payment_mode,omitempty" validate:"omitempty,oneof=cash card bank_transfer upi cheque"`
	Kind        string `json:"kind,omitempty" validate:"omitempty,oneof=customer branch"`
}

// Canonical trims and lowercases the enum fields and folds payment mode
// spellings.
func (q Query) Canonical() Query {
	q.Period = strings.ToLower(strings.TrimSpace(q.Period))
	q.From = strings.TrimSpace(q.From)
	q.To = strings.TrimSpace(q.To)
	q.BranchID = strings.TrimSpace(q.BranchID)
	q.CustomerID = strings.TrimSpace(q.CustomerID)
	q.PaymentMode = string(billing.NormalizePaymentMode(q.PaymentMode))
	q.Kind = strings.ToLower(strings.TrimSpace(q.Kind))
	return q
}

// Filter validates the query and converts it. Dates are read in loc. Any
// failure wraps ErrInvalidFilter.
func (q Query) Filter(loc *time.Location) (Filter, billing.PartyKind, error) {
	if loc == nil {
		loc = time.UTC
	}
	q = q.Canonical()
	if err := validate.Struct(q); err != nil {
		return Filter{}, "", fmt.Errorf("%w: %s", ErrInvalidFilter, describe(err))
	}
	period, err := ParsePeriod(q.Period)
	if err != nil {
		return Filter{}, "", err
	}
	f := Filter{
		Period:      period,
		BranchID:    q.BranchID,
		CustomerID:  q.CustomerID,
		PaymentMode: billing.PaymentMode(q.PaymentMode),
	}
	if q.From != "" || q.To != "" {
		if period != PeriodCustom {
			return Filter{}, "", fmt.Errorf("%w: from and to require period=custom", ErrInvalidFilter)
		}
		// Format already checked by the validator.
		f.From, _ = time.ParseInLocation(queryDateLayout, q.From, loc)
		f.To, _ = time.ParseInLocation(queryDateLayout, q.To, loc)
	}
	return f, billing.PartyKind(q.Kind), nil
}

func describe(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
