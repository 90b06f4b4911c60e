package reports

import (
	"time"

	"github.com/shopledger/shopledger/internal/billing"
)

// ProfitRow is the profit and loss line of one invoice.
type ProfitRow struct {
	BillID          string    `json:"billId"`
	BillNo          string    `json:"billNo"`
	BillDate        time.Time `json:"billDate"`
	PartyName       string    `json:"partyName"`
	Revenue         float64   `json:"revenue"`
	Cost            float64   `json:"cost"`
	Profit          float64   `json:"profit"`
	Margin          float64   `json:"margin"`
	MissingProducts int       `json:"missingProducts"`
}

// ProfitSummary aggregates the invoices of a period.
type ProfitSummary struct {
	TotalRevenue    float64 `json:"totalRevenue"`
	TotalCost       float64 `json:"totalCost"`
	GrossProfit     float64 `json:"grossProfit"`
	ProfitMargin    float64 `json:"profitMargin"`
	TotalInvoices   int     `json:"totalInvoices"`
	MissingProducts int     `json:"missingProducts"`
}

// ProfitReport is the profit and loss statement.
type ProfitReport struct {
	Basis   RevenueBasis  `json:"basis"`
	Summary ProfitSummary `json:"summary"`
	Rows    []ProfitRow   `json:"rows"`
}

// BuildProfitLoss costs every invoice at the product purchase price. Lines
// whose product is unknown cost nothing and are counted in MissingProducts.
func BuildProfitLoss(bills []billing.Bill, products map[string]billing.Product, dir billing.Directory, basis RevenueBasis) ProfitReport {
	if basis == "" {
		basis = DefaultRevenueBasis
	}
	report := ProfitReport{Basis: basis, Rows: make([]ProfitRow, 0, len(bills))}
	for _, bill := range bills {
		if !bill.IsInvoice() {
			continue
		}
		row := ProfitRow{
			BillID:    bill.ID,
			BillNo:    bill.BillNo,
			BillDate:  bill.BillDate,
			PartyName: dir.Name(bill.Owner()),
			Revenue:   basis.Revenue(bill),
		}
		for _, item := range bill.Items {
			product, ok := products[item.ProductID]
			if !ok {
				row.MissingProducts++
				continue
			}
			row.Cost += item.Quantity * product.PurchasePrice
		}
		row.Profit = row.Revenue - row.Cost
		row.Margin = percent(row.Profit, row.Revenue)
		report.Rows = append(report.Rows, row)

		report.Summary.TotalRevenue += row.Revenue
		report.Summary.TotalCost += row.Cost
		report.Summary.TotalInvoices++
		report.Summary.MissingProducts += row.MissingProducts
	}
	report.Summary.GrossProfit = report.Summary.TotalRevenue - report.Summary.TotalCost
	report.Summary.ProfitMargin = percent(report.Summary.GrossProfit, report.Summary.TotalRevenue)
	return report
}
