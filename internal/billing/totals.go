package billing

import "math"

// Tolerance is the largest difference between a stored and a recomputed
// amount that still counts as a match.
const Tolerance = 0.01

// LineAmounts is the breakdown of a single priced line.
type LineAmounts struct {
	LineAmount float64 `json:"lineAmount"`
	Discount   float64 `json:"discount"`
	Taxable    float64 `json:"taxable"`
	Tax        float64 `json:"tax"`
	LineTotal  float64 `json:"lineTotal"`
}

// Totals is the header-level aggregate of a set of lines.
type Totals struct {
	Subtotal      float64 `json:"subtotal"`
	TotalDiscount float64 `json:"totalDiscount"`
	TotalTax      float64 `json:"totalTax"`
	GrandTotal    float64 `json:"grandTotal"`
}

// CalculateLine applies discount before tax. Values keep full precision;
// rounding happens only when amounts are displayed.
func CalculateLine(item BillItem) LineAmounts {
	lineAmount := item.Quantity * item.UnitPrice
	discount := lineAmount * (item.DiscountPercent / 100)
	taxable := lineAmount - discount
	tax := taxable * (item.TaxPercent / 100)
	return LineAmounts{
		LineAmount: lineAmount,
		Discount:   discount,
		Taxable:    taxable,
		Tax:        tax,
		LineTotal:  taxable + tax,
	}
}

// CalculateTotals sums the line breakdowns. An empty slice yields zero totals.
func CalculateTotals(items []BillItem) Totals {
	var totals Totals
	for _, item := range items {
		line := CalculateLine(item)
		totals.Subtotal += line.LineAmount
		totals.TotalDiscount += line.Discount
		totals.TotalTax += line.Tax
	}
	totals.GrandTotal = totals.Subtotal - totals.TotalDiscount + totals.TotalTax
	return totals
}

// CheckTotals recomputes the bill from its lines and reports whether the
// stored grand total agrees within Tolerance. Bills without lines are taken
// at face value.
func CheckTotals(bill Bill) (Totals, bool) {
	totals := CalculateTotals(bill.Items)
	if len(bill.Items) == 0 {
		return totals, true
	}
	return totals, ApproxEqual(totals.GrandTotal, bill.GrandTotal)
}

// ApproxEqual compares two amounts within Tolerance.
func ApproxEqual(a, b float64) bool {
	return math.Abs(a-b) <= Tolerance
}
