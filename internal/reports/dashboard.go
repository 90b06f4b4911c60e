package reports

import (
	"time"

	"github.com/shopledger/shopledger/internal/billing"
)

// Dashboard is the headline view. Period figures follow the window;
// receivables and payables are always all-time.
type Dashboard struct {
	Window           Window       `json:"window"`
	Sales            float64      `json:"sales"`
	Invoices         int          `json:"invoices"`
	Collected        float64      `json:"collected"`
	Payments         int          `json:"payments"`
	Breakdown        Breakdown    `json:"paymentModeBreakdown"`
	GrossProfit      float64      `json:"grossProfit"`
	ProfitMargin     float64      `json:"profitMargin"`
	ReceivablesDue   float64      `json:"receivablesDue"`
	AccountsWithDues int          `json:"accountsWithDues"`
	PayablesDue      float64      `json:"payablesDue"`
	Quotations       int          `json:"quotations"`
	QuotationValue   float64      `json:"quotationValue"`
	Graph            []GraphPoint `json:"graph"`
}

// DashboardInput bundles what BuildDashboard needs.
type DashboardInput struct {
	Snapshot billing.Snapshot
	Window   Window
	Basis    RevenueBasis
	Location *time.Location
}

// BuildDashboard composes the other builders over one snapshot.
func BuildDashboard(in DashboardInput) Dashboard {
	dir := in.Snapshot.Directory()
	period := BillsIn(in.Snapshot.Bills, in.Window)

	profit := BuildProfitLoss(period, in.Snapshot.ProductIndex(), dir, in.Basis)
	collections := BuildCollections(in.Snapshot.Bills, dir, in.Window, "", in.Location)
	receivables := BuildAccounts(in.Snapshot.Bills, dir, "")
	payables := BuildPayables(in.Snapshot.PurchaseOrders, dir, Window{})

	dash := Dashboard{
		Window:           in.Window,
		Collected:        collections.Summary.TotalCollected,
		Payments:         collections.Summary.TotalPayments,
		Breakdown:        collections.Summary.Breakdown,
		Graph:            collections.Graph,
		GrossProfit:      profit.Summary.GrossProfit,
		ProfitMargin:     profit.Summary.ProfitMargin,
		ReceivablesDue:   receivables.Summary.TotalDue,
		AccountsWithDues: receivables.Summary.AccountsWithDues,
		PayablesDue:      payables.Summary.TotalDue,
	}
	for _, bill := range period {
		switch {
		case bill.IsInvoice():
			dash.Sales += bill.GrandTotal
			dash.Invoices++
		case bill.IsQuotation():
			dash.Quotations++
			dash.QuotationValue += bill.GrandTotal
		}
	}
	return dash
}
