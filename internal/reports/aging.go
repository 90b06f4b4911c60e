package reports

import (
	"sort"
	"time"

	"github.com/shopledger/shopledger/internal/billing"
)

// AgingBucket summarises the outstanding amount inside a day range.
type AgingBucket struct {
	Bucket   string  `json:"bucket"`
	Amount   float64 `json:"amount"`
	Accounts int     `json:"accounts"`
}

// AgingRow is one overdue account.
type AgingRow struct {
	Kind         billing.PartyKind `json:"kind"`
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	DueAmount    float64           `json:"dueAmount"`
	LastBillDate time.Time         `json:"lastBillDate"`
	DaysOverdue  int               `json:"daysOverdue"`
	Bucket       string            `json:"bucket"`
	// Undated rows have no usable bill date. They sit in the oldest bucket
	// and are left out of the day average.
	Undated bool `json:"undated,omitempty"`
}

// AgingSummary carries the receivables headline figures.
type AgingSummary struct {
	TotalDue          float64 `json:"totalDue"`
	CustomersWithDues int     `json:"customersWithDues"`
	AvgDaysOverdue    float64 `json:"avgDaysOverdue"`
	UndatedAccounts   int     `json:"undatedAccounts"`
}

// AgingReport is the receivables aging analysis.
type AgingReport struct {
	AsOf    time.Time     `json:"asOf"`
	Summary AgingSummary  `json:"summary"`
	Buckets []AgingBucket `json:"buckets"`
	Rows    []AgingRow    `json:"rows"`
}

// BuildAging classifies every account with a positive balance by the days
// elapsed since its last bill. Buckets are always returned in AgingBuckets
// order, including empty ones.
func BuildAging(accounts []Account, asOf time.Time, loc *time.Location) AgingReport {
	report := AgingReport{
		AsOf:    asOf,
		Buckets: make([]AgingBucket, len(AgingBuckets)),
		Rows:    make([]AgingRow, 0, len(accounts)),
	}
	position := make(map[string]int, len(AgingBuckets))
	for i, label := range AgingBuckets {
		report.Buckets[i] = AgingBucket{Bucket: label}
		position[label] = i
	}

	var totalDays, dated int
	for _, acc := range accounts {
		if acc.DueAmount <= 0 {
			continue
		}
		undated := acc.LastBillDate.IsZero()
		days, label := 0, Aging90Plus
		if undated {
			report.Summary.UndatedAccounts++
		} else {
			days = DaysBetween(acc.LastBillDate, asOf, loc)
			label = AgingBucketFor(days)
			totalDays += days
			dated++
		}
		bucket := &report.Buckets[position[label]]
		bucket.Amount += acc.DueAmount
		bucket.Accounts++

		report.Rows = append(report.Rows, AgingRow{
			Kind:         acc.Kind,
			ID:           acc.ID,
			Name:         acc.Name,
			DueAmount:    acc.DueAmount,
			LastBillDate: acc.LastBillDate,
			DaysOverdue:  days,
			Bucket:       label,
			Undated:      undated,
		})
		report.Summary.TotalDue += acc.DueAmount
		report.Summary.CustomersWithDues++
	}
	if dated > 0 {
		report.Summary.AvgDaysOverdue = float64(totalDays) / float64(dated)
	}

	sort.SliceStable(report.Rows, func(i, j int) bool {
		if report.Rows[i].DaysOverdue != report.Rows[j].DaysOverdue {
			return report.Rows[i].DaysOverdue > report.Rows[j].DaysOverdue
		}
		if report.Rows[i].DueAmount != report.Rows[j].DueAmount {
			return report.Rows[i].DueAmount > report.Rows[j].DueAmount
		}
		return report.Rows[i].ID < report.Rows[j].ID
	})
	return report
}
