package billing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateLineDiscountBeforeTax(t *testing.T) {
	line := CalculateLine(BillItem{Quantity: 2, UnitPrice: 100, DiscountPercent: 10, TaxPercent: 18})

	assert.InDelta(t, 200.0, line.LineAmount, 1e-9)
	assert.InDelta(t, 20.0, line.Discount, 1e-9)
	assert.InDelta(t, 180.0, line.Taxable, 1e-9)
	assert.InDelta(t, 32.4, line.Tax, 1e-9)
	assert.InDelta(t, 212.4, line.LineTotal, 1e-9)
}

func TestCalculateLineMatchesClosedForm(t *testing.T) {
	cases := []BillItem{
		{Quantity: 0, UnitPrice: 100, DiscountPercent: 5, TaxPercent: 12},
		{Quantity: 3, UnitPrice: 19.99, DiscountPercent: 0, TaxPercent: 0},
		{Quantity: 7.5, UnitPrice: 42.1, DiscountPercent: 100, TaxPercent: 28},
		{Quantity: 1, UnitPrice: 0.01, DiscountPercent: 33.3, TaxPercent: 5},
		{Quantity: 1200, UnitPrice: 1499.5, DiscountPercent: 12.5, TaxPercent: 18},
	}
	for _, item := range cases {
		want := (item.Quantity * item.UnitPrice) * (1 - item.DiscountPercent/100) * (1 + item.TaxPercent/100)
		got := CalculateLine(item).LineTotal
		require.InDeltaf(t, want, got, 1e-6*math.Max(1, math.Abs(want)), "item %+v", item)
	}
}

func TestCalculateTotalsAdditive(t *testing.T) {
	items := []BillItem{
		{Quantity: 2, UnitPrice: 100, DiscountPercent: 10, TaxPercent: 18},
		{Quantity: 1, UnitPrice: 550, TaxPercent: 5},
		{Quantity: 4, UnitPrice: 12.75, DiscountPercent: 2.5},
	}

	totals := CalculateTotals(items)

	var sum float64
	for _, item := range items {
		sum += CalculateLine(item).LineTotal
	}
	assert.InDelta(t, sum, totals.GrandTotal, 1e-9)
	assert.InDelta(t, totals.Subtotal-totals.TotalDiscount+totals.TotalTax, totals.GrandTotal, 1e-9)
	assert.InDelta(t, 801.0, totals.Subtotal, 1e-9)
}

func TestCalculateTotalsEmpty(t *testing.T) {
	require.Equal(t, Totals{}, CalculateTotals(nil))
}

func TestCheckTotals(t *testing.T) {
	bill := Bill{
		Items:      []BillItem{{Quantity: 2, UnitPrice: 100, DiscountPercent: 10, TaxPercent: 18}},
		GrandTotal: 212.4,
	}
	_, ok := CheckTotals(bill)
	require.True(t, ok)

	bill.GrandTotal = 215
	totals, ok := CheckTotals(bill)
	require.False(t, ok)
	require.InDelta(t, 212.4, totals.GrandTotal, 1e-9)

	_, ok = CheckTotals(Bill{GrandTotal: 99})
	require.True(t, ok, "bills without lines are taken at face value")
}

func TestDerivePaymentStatus(t *testing.T) {
	require.Equal(t, PaymentStatusUnpaid, DerivePaymentStatus(100, 0))
	require.Equal(t, PaymentStatusPartial, DerivePaymentStatus(100, 40))
	require.Equal(t, PaymentStatusPaid, DerivePaymentStatus(100, 99.995))
	require.Equal(t, PaymentStatusPaid, DerivePaymentStatus(100, 120))
}
