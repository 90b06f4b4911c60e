package reports

import (
	"sort"
	"time"

	"github.com/shopledger/shopledger/internal/billing"
)

// AccountKey identifies a customer or branch account.
type AccountKey = billing.PartyRef

// AccountStatus flags whether money is still owed.
type AccountStatus string

const (
	StatusDue   AccountStatus = "due"
	StatusClear AccountStatus = "clear"
)

// Account is the derived running balance of a customer or branch.
type Account struct {
	Kind         billing.PartyKind `json:"kind"`
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	InvoiceCount int               `json:"invoiceCount"`
	TotalBilled  float64           `json:"totalBilled"`
	TotalPaid    float64           `json:"totalPaid"`
	DueAmount    float64           `json:"dueAmount"`
	Status       AccountStatus     `json:"status"`
	LastBillDate time.Time         `json:"lastBillDate"`
}

// Key returns the account identity.
func (a Account) Key() AccountKey {
	return AccountKey{Kind: a.Kind, ID: a.ID}
}

// AccountSummary totals a set of accounts. TotalDue only sums positive dues;
// overpaid accounts still show their negative balance in the rows.
type AccountSummary struct {
	Accounts         int     `json:"accounts"`
	TotalBilled      float64 `json:"totalBilled"`
	TotalPaid        float64 `json:"totalPaid"`
	TotalDue         float64 `json:"totalDue"`
	AccountsWithDues int     `json:"accountsWithDues"`
}

// AccountReport is the account balance listing.
type AccountReport struct {
	Summary AccountSummary `json:"summary"`
	Rows    []Account      `json:"rows"`
}

// BuildAccounts groups invoices by owner. Quotations are ignored and accounts
// that were never billed are dropped. An empty kind keeps every account.
func BuildAccounts(bills []billing.Bill, dir billing.Directory, kind billing.PartyKind) AccountReport {
	rows := aggregateAccounts(bills, dir)
	report := AccountReport{Rows: make([]Account, 0, len(rows))}
	for _, acc := range rows {
		if kind != "" && acc.Kind != kind {
			continue
		}
		report.Rows = append(report.Rows, acc)
		report.Summary.Accounts++
		report.Summary.TotalBilled += acc.TotalBilled
		report.Summary.TotalPaid += acc.TotalPaid
		if acc.Status == StatusDue {
			report.Summary.TotalDue += acc.DueAmount
			report.Summary.AccountsWithDues++
		}
	}
	return report
}

func aggregateAccounts(bills []billing.Bill, dir billing.Directory) []Account {
	index := make(map[AccountKey]*Account)
	order := make([]AccountKey, 0)
	for _, bill := range bills {
		if !bill.IsInvoice() {
			continue
		}
		key := bill.Owner()
		acc, ok := index[key]
		if !ok {
			acc = &Account{Kind: key.Kind, ID: key.ID, Name: dir.Name(key)}
			index[key] = acc
			order = append(order, key)
		}
		acc.InvoiceCount++
		acc.TotalBilled += bill.GrandTotal
		acc.TotalPaid += bill.PaidAmount()
		if bill.BillDate.After(acc.LastBillDate) {
			acc.LastBillDate = bill.BillDate
		}
	}

	rows := make([]Account, 0, len(order))
	for _, key := range order {
		acc := index[key]
		if acc.TotalBilled == 0 {
			continue
		}
		acc.DueAmount = acc.TotalBilled - acc.TotalPaid
		acc.Status = StatusClear
		if acc.DueAmount > 0 {
			acc.Status = StatusDue
		}
		rows = append(rows, *acc)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].DueAmount != rows[j].DueAmount {
			return rows[i].DueAmount > rows[j].DueAmount
		}
		if rows[i].Name != rows[j].Name {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].ID < rows[j].ID
	})
	return rows
}
