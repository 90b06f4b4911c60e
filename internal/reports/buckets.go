package reports

import (
	"fmt"
	"strings"

	"github.com/shopledger/shopledger/internal/billing"
)

// RevenueBasis selects which bill amount counts as revenue.
type RevenueBasis string

const (
	// RevenueGrandTotal books revenue after discount and tax.
	RevenueGrandTotal RevenueBasis = "grand_total"
	// RevenueTotalAmount books the pre-discount, pre-tax subtotal.
	RevenueTotalAmount RevenueBasis = "total_amount"
)

// DefaultRevenueBasis is used when no basis is configured.
const DefaultRevenueBasis = RevenueGrandTotal

// ParseRevenueBasis validates a configured basis.
func ParseRevenueBasis(value string) (RevenueBasis, error) {
	switch b := RevenueBasis(strings.ToLower(strings.TrimSpace(value))); b {
	case "":
		return DefaultRevenueBasis, nil
	case RevenueGrandTotal, RevenueTotalAmount:
		return b, nil
	default:
		return "", fmt.Errorf("reports: unknown revenue basis %q", value)
	}
}

// Revenue returns the revenue booked for a bill.
func (b RevenueBasis) Revenue(bill billing.Bill) float64 {
	if b == RevenueTotalAmount {
		return bill.TotalAmount
	}
	return bill.GrandTotal
}

// ModeBucket is a column of the collection breakdown.
type ModeBucket string

const (
	BucketCash  ModeBucket = "cash"
	BucketUPI   ModeBucket = "upi"
	BucketCard  ModeBucket = "card"
	BucketBank  ModeBucket = "bank"
	BucketOther ModeBucket = "other"
)

// ModeBuckets maps payment modes to breakdown columns. Modes not listed land
// in BucketOther.
var ModeBuckets = map[billing.PaymentMode]ModeBucket{
	billing.ModeCash:         BucketCash,
	billing.ModeUPI:          BucketUPI,
	billing.ModeCard:         BucketCard,
	billing.ModeBankTransfer: BucketBank,
	billing.ModeCheque:       BucketBank,
}

// BucketFor resolves the breakdown column of a payment mode.
func BucketFor(mode billing.PaymentMode) ModeBucket {
	if bucket, ok := ModeBuckets[mode]; ok {
		return bucket
	}
	return BucketOther
}

// Aging bucket labels in display order.
const (
	Aging0To30  = "0-30"
	Aging31To60 = "31-60"
	Aging61To90 = "61-90"
	Aging90Plus = "90+"
)

// AgingBuckets lists the aging labels in ascending order.
var AgingBuckets = []string{Aging0To30, Aging31To60, Aging61To90, Aging90Plus}

// AgingBucketFor classifies a non-negative day count. Both bounds of each
// range are inclusive.
func AgingBucketFor(days int) string {
	switch {
	case days <= 30:
		return Aging0To30
	case days <= 60:
		return Aging31To60
	case days <= 90:
		return Aging61To90
	default:
		return Aging90Plus
	}
}
