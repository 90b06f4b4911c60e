package reports

import (
	"time"

	"github.com/shopledger/shopledger/internal/billing"
)

// RegisterRow is one bill with its recomputed totals.
type RegisterRow struct {
	BillID        string                `json:"billId"`
	BillNo        string                `json:"billNo"`
	Type          billing.BillType      `json:"type"`
	BillDate      time.Time             `json:"billDate"`
	PartyKind     billing.PartyKind     `json:"partyKind"`
	PartyName     string                `json:"partyName"`
	Items         int                   `json:"items"`
	Subtotal      float64               `json:"subtotal"`
	Discount      float64               `json:"discount"`
	Tax           float64               `json:"tax"`
	GrandTotal    float64               `json:"grandTotal"`
	Computed      float64               `json:"computedTotal"`
	Paid          float64               `json:"paid"`
	Due           float64               `json:"due"`
	PaymentStatus billing.PaymentStatus `json:"paymentStatus"`
	TotalsMatch   bool                  `json:"totalsMatch"`
}

// RegisterSummary totals the register.
type RegisterSummary struct {
	Bills          int     `json:"bills"`
	Invoices       int     `json:"invoices"`
	Quotations     int     `json:"quotations"`
	InvoiceValue   float64 `json:"invoiceValue"`
	QuotationValue float64 `json:"quotationValue"`
	// Other counts bills whose type is neither invoice nor quotation.
	Other      int     `json:"other"`
	Paid       float64 `json:"paid"`
	Due        float64 `json:"due"`
	Mismatched int     `json:"mismatched"`
}

// BillRegister lists bills in input order.
type BillRegister struct {
	Summary RegisterSummary `json:"summary"`
	Rows    []RegisterRow   `json:"rows"`
}

// BuildBillRegister recomputes every bill and flags stored totals that drift
// from their lines. Quotations never carry a due amount.
func BuildBillRegister(bills []billing.Bill, dir billing.Directory) BillRegister {
	register := BillRegister{Rows: make([]RegisterRow, 0, len(bills))}
	for _, bill := range bills {
		totals, match := billing.CheckTotals(bill)
		owner := bill.Owner()
		paid := bill.PaidAmount()
		row := RegisterRow{
			BillID:      bill.ID,
			BillNo:      bill.BillNo,
			Type:        bill.Type,
			BillDate:    bill.BillDate,
			PartyKind:   owner.Kind,
			PartyName:   dir.Name(owner),
			Items:       len(bill.Items),
			Subtotal:    bill.TotalAmount,
			Discount:    bill.DiscountAmount,
			Tax:         bill.TaxAmount,
			GrandTotal:  bill.GrandTotal,
			Computed:    totals.GrandTotal,
			Paid:        paid,
			TotalsMatch: match,
		}
		if len(bill.Items) == 0 {
			row.Computed = bill.GrandTotal
		}

		register.Summary.Bills++
		if !match {
			register.Summary.Mismatched++
		}
		switch {
		case bill.IsInvoice():
			row.Due = bill.GrandTotal - paid
			row.PaymentStatus = billing.DerivePaymentStatus(bill.GrandTotal, paid)
			register.Summary.Invoices++
			register.Summary.InvoiceValue += bill.GrandTotal
			register.Summary.Paid += paid
			register.Summary.Due += row.Due
		case bill.IsQuotation():
			row.PaymentStatus = bill.PaymentStatus
			register.Summary.Quotations++
			register.Summary.QuotationValue += bill.GrandTotal
		default:
			row.PaymentStatus = bill.PaymentStatus
			register.Summary.Other++
		}
		register.Rows = append(register.Rows, row)
	}
	return register
}
