package reports

import (
	"sort"
	"time"

	"github.com/shopledger/shopledger/internal/billing"
)

// GraphDateLayout formats collection graph points.
const GraphDateLayout = "2006-01-02"

// Breakdown splits collected money by ModeBuckets column.
type Breakdown struct {
	Cash  float64 `json:"cash"`
	UPI   float64 `json:"upi"`
	Card  float64 `json:"card"`
	Bank  float64 `json:"bank"`
	Other float64 `json:"other"`
}

func (b *Breakdown) add(bucket ModeBucket, amount float64) {
	switch bucket {
	case BucketCash:
		b.Cash += amount
	case BucketUPI:
		b.UPI += amount
	case BucketCard:
		b.Card += amount
	case BucketBank:
		b.Bank += amount
	default:
		b.Other += amount
	}
}

// Total sums every column.
func (b Breakdown) Total() float64 {
	return b.Cash + b.UPI + b.Card + b.Bank + b.Other
}

// GraphPoint is one day of collections.
type GraphPoint struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

// CollectionRow is one payment inside the window.
type CollectionRow struct {
	PaymentID     string              `json:"paymentId"`
	BillID        string              `json:"billId"`
	BillNo        string              `json:"billNo"`
	PartyName     string              `json:"partyName"`
	Mode          billing.PaymentMode `json:"paymentMode"`
	Bucket        ModeBucket          `json:"bucket"`
	Amount        float64             `json:"amount"`
	TransactionID string              `json:"transactionId,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
}

// CollectionSummary carries the collection totals.
type CollectionSummary struct {
	TotalCollected float64   `json:"totalCollected"`
	TotalPayments  int       `json:"totalPayments"`
	Breakdown      Breakdown `json:"paymentModeBreakdown"`
}

// CollectionReport is the payment collection breakdown.
type CollectionReport struct {
	Window  Window            `json:"window"`
	Summary CollectionSummary `json:"summary"`
	Graph   []GraphPoint      `json:"graph"`
	Rows    []CollectionRow   `json:"rows"`
}

// BuildCollections gathers invoice payments received inside the window. An
// empty mode keeps every payment. Dense windows get a graph point for every
// day; otherwise only days with payments appear.
func BuildCollections(bills []billing.Bill, dir billing.Directory, window Window, mode billing.PaymentMode, loc *time.Location) CollectionReport {
	if loc == nil {
		loc = time.UTC
	}
	report := CollectionReport{
		Window: window,
		Graph:  make([]GraphPoint, 0),
		Rows:   make([]CollectionRow, 0),
	}
	daily := make(map[string]float64)
	for _, bill := range bills {
		if !bill.IsInvoice() {
			continue
		}
		for _, p := range bill.Payments {
			if mode != "" && p.Mode != mode {
				continue
			}
			if !window.Contains(p.CreatedAt) {
				continue
			}
			bucket := BucketFor(p.Mode)
			report.Summary.Breakdown.add(bucket, p.AmountPaid)
			report.Summary.TotalCollected += p.AmountPaid
			report.Summary.TotalPayments++
			daily[p.CreatedAt.In(loc).Format(GraphDateLayout)] += p.AmountPaid

			report.Rows = append(report.Rows, CollectionRow{
				PaymentID:     p.ID,
				BillID:        bill.ID,
				BillNo:        bill.BillNo,
				PartyName:     dir.Name(bill.Owner()),
				Mode:          p.Mode,
				Bucket:        bucket,
				Amount:        p.AmountPaid,
				TransactionID: p.TransactionID,
				CreatedAt:     p.CreatedAt,
			})
		}
	}

	if window.Bounded && window.Dense {
		for day := window.Start; day.Before(window.End); day = day.AddDate(0, 0, 1) {
			key := day.In(loc).Format(GraphDateLayout)
			report.Graph = append(report.Graph, GraphPoint{Date: key, Amount: daily[key]})
		}
	} else {
		for key, amount := range daily {
			report.Graph = append(report.Graph, GraphPoint{Date: key, Amount: amount})
		}
		sort.Slice(report.Graph, func(i, j int) bool {
			return report.Graph[i].Date < report.Graph[j].Date
		})
	}

	sort.SliceStable(report.Rows, func(i, j int) bool {
		if !report.Rows[i].CreatedAt.Equal(report.Rows[j].CreatedAt) {
			return report.Rows[i].CreatedAt.Before(report.Rows[j].CreatedAt)
		}
		return report.Rows[i].PaymentID < report.Rows[j].PaymentID
	})
	return report
}
