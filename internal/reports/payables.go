package reports

import (
	"sort"

	"github.com/shopledger/shopledger/internal/billing"
)

// BuildPayables derives supplier accounts from purchase orders using the same
// balance rules as receivables. Cancelled orders are ignored and orders
// outside the window are skipped.
func BuildPayables(orders []billing.PurchaseOrder, dir billing.Directory, window Window) AccountReport {
	index := make(map[string]*Account)
	order := make([]string, 0)
	for _, po := range orders {
		if po.Status == billing.POStatusCancelled || !window.Contains(po.OrderDate) {
			continue
		}
		acc, ok := index[po.SupplierID]
		if !ok {
			ref := billing.PartyRef{Kind: billing.PartySupplier, ID: po.SupplierID}
			acc = &Account{Kind: ref.Kind, ID: ref.ID, Name: dir.Name(ref)}
			index[po.SupplierID] = acc
			order = append(order, po.SupplierID)
		}
		acc.InvoiceCount++
		acc.TotalBilled += po.GrandTotal
		acc.TotalPaid += po.PaidAmount
		if po.OrderDate.After(acc.LastBillDate) {
			acc.LastBillDate = po.OrderDate
		}
	}

	report := AccountReport{Rows: make([]Account, 0, len(order))}
	for _, id := range order {
		acc := index[id]
		if acc.TotalBilled == 0 {
			continue
		}
		acc.DueAmount = acc.TotalBilled - acc.TotalPaid
		acc.Status = StatusClear
		if acc.DueAmount > 0 {
			acc.Status = StatusDue
			report.Summary.TotalDue += acc.DueAmount
			report.Summary.AccountsWithDues++
		}
		report.Summary.Accounts++
		report.Summary.TotalBilled += acc.TotalBilled
		report.Summary.TotalPaid += acc.TotalPaid
		report.Rows = append(report.Rows, *acc)
	}
	sort.Slice(report.Rows, func(i, j int) bool {
		if report.Rows[i].DueAmount != report.Rows[j].DueAmount {
			return report.Rows[i].DueAmount > report.Rows[j].DueAmount
		}
		return report.Rows[i].ID < report.Rows[j].ID
	})
	return report
}
