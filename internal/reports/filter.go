package reports

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopledger/shopledger/internal/billing"
)

// ErrInvalidFilter is returned when a filter cannot be resolved to a window.
var ErrInvalidFilter = errors.New("reports: invalid filter")

// Period selects the reporting window relative to the clock.
type Period string

const (
	PeriodAll     Period = "all"
	PeriodToday   Period = "today"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodCustom  Period = "custom"
)

// ParsePeriod maps a query value to a Period. Empty input means PeriodAll.
func ParsePeriod(value string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(value))); p {
	case "":
		return PeriodAll, nil
	case PeriodAll, PeriodToday, PeriodWeekly, PeriodMonthly, PeriodCustom:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown period %q", ErrInvalidFilter, value)
	}
}

// Filter narrows the snapshot before aggregation.
type Filter struct {
	Period      Period
	From        time.Time
	To          time.Time
	BranchID    string
	CustomerID  string
	PaymentMode billing.PaymentMode
}

// Window is a half-open [Start, End) interval. An unbounded window matches
// every instant.
type Window struct {
	Start   time.Time `json:"start,omitempty"`
	End     time.Time `json:"end,omitempty"`
	Bounded bool      `json:"bounded"`
	// Dense asks the collection graph to emit a point for every day.
	Dense bool `json:"-"`
}

// Contains reports whether t lies in the window.
func (w Window) Contains(t time.Time) bool {
	if !w.Bounded {
		return true
	}
	return !t.Before(w.Start) && t.Before(w.End)
}

// Resolve turns the period into a concrete window anchored at now in loc.
func (f Filter) Resolve(now time.Time, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.UTC
	}
	today := startOfDay(now, loc)
	tomorrow := today.AddDate(0, 0, 1)

	switch f.Period {
	case "", PeriodAll:
		return Window{}, nil
	case PeriodToday:
		return Window{Start: today, End: tomorrow, Bounded: true, Dense: true}, nil
	case PeriodWeekly:
		return Window{Start: today.AddDate(0, 0, -6), End: tomorrow, Bounded: true, Dense: true}, nil
	case PeriodMonthly:
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, loc)
		return Window{Start: first, End: tomorrow, Bounded: true}, nil
	case PeriodCustom:
		if f.From.IsZero() || f.To.IsZero() {
			return Window{}, fmt.Errorf("%w: custom period requires from and to", ErrInvalidFilter)
		}
		start := startOfDay(f.From, loc)
		end := startOfDay(f.To, loc).AddDate(0, 0, 1)
		if !end.After(start) {
			return Window{}, fmt.Errorf("%w: from must not be after to", ErrInvalidFilter)
		}
		return Window{Start: start, End: end, Bounded: true}, nil
	default:
		return Window{}, fmt.Errorf("%w: unknown period %q", ErrInvalidFilter, f.Period)
	}
}

// Narrow keeps the bills and purchase orders matching the branch and
// customer scope. Directory data is never filtered.
func (f Filter) Narrow(snap billing.Snapshot) billing.Snapshot {
	if f.BranchID == "" && f.CustomerID == "" {
		return snap
	}
	out := snap
	out.Bills = make([]billing.Bill, 0, len(snap.Bills))
	for _, b := range snap.Bills {
		if f.BranchID != "" && b.BranchID != f.BranchID {
			continue
		}
		if f.CustomerID != "" && b.CustomerID != f.CustomerID {
			continue
		}
		out.Bills = append(out.Bills, b)
	}
	// Supplier orders never belong to a customer.
	out.PurchaseOrders = make([]billing.PurchaseOrder, 0, len(snap.PurchaseOrders))
	if f.CustomerID == "" {
		for _, po := range snap.PurchaseOrders {
			if po.BranchID == f.BranchID {
				out.PurchaseOrders = append(out.PurchaseOrders, po)
			}
		}
	}
	return out
}

// BillsIn returns the bills dated inside the window, preserving order.
func BillsIn(bills []billing.Bill, w Window) []billing.Bill {
	if !w.Bounded {
		return bills
	}
	out := make([]billing.Bill, 0, len(bills))
	for _, b := range bills {
		if w.Contains(b.BillDate) {
			out = append(out, b)
		}
	}
	return out
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// DaysBetween counts calendar days from one date to another in loc.
// Negative spans are clamped to 0.
func DaysBetween(from, to time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	fy, fm, fd := from.In(loc).Date()
	ty, tm, td := to.In(loc).Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	// Unix seconds, since Sub saturates for spans beyond ~292 years.
	days := int((b.Unix() - a.Unix()) / 86400)
	if days < 0 {
		return 0
	}
	return days
}
