package billing

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// ID accepts both JSON strings and numbers so that numeric keys from older
// backends decode into the same opaque string identifiers.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// RawBill is a bill exactly as the backend reports it.
type RawBill struct {
	ID             ID           `json:"id"`
	Type           *string      `json:"type"`
	BillNo         *string      `json:"billNo"`
	BillDate       *string      `json:"billDate"`
	CustomerID     ID           `json:"customerId"`
	BranchID       ID           `json:"branchId"`
	Items          []RawItem    `json:"items"`
	TotalAmount    *float64     `json:"totalAmount"`
	DiscountAmount *float64     `json:"discountAmount"`
	TaxAmount      *float64     `json:"taxAmount"`
	GrandTotal     *float64     `json:"grandTotal"`
	PaymentStatus  *string      `json:"paymentStatus"`
	Payments       []RawPayment `json:"payments"`
}

// RawItem is a bill line with optional numeric fields.
type RawItem struct {
	ProductID       ID       `json:"productId"`
	Quantity        *float64 `json:"quantity"`
	UnitPrice       *float64 `json:"unitPrice"`
	DiscountPercent *float64 `json:"discountPercent"`
	TaxPercent      *float64 `json:"taxPercent"`
	LineTotal       *float64 `json:"lineTotal"`
}

// RawPayment carries both the current and the historical field names.
type RawPayment struct {
	ID            ID       `json:"id"`
	BillID        ID       `json:"billId"`
	PaymentMode   *string  `json:"paymentMode"`
	PaymentMethod *string  `json:"paymentMethod"`
	AmountPaid    *float64 `json:"amountPaid"`
	Amount        *float64 `json:"amount"`
	TransactionID *string  `json:"transactionId"`
	CreatedAt     *string  `json:"createdAt"`
}

// RawProduct carries both cost aliases.
type RawProduct struct {
	ID                   ID       `json:"id"`
	Name                 *string  `json:"name"`
	PurchasePrice        *float64 `json:"purchasePrice"`
	PurchasePriceWithGST *float64 `json:"purchasePriceWithGST"`
}

// RawParty is a customer, branch or supplier directory entry.
type RawParty struct {
	ID   ID      `json:"id"`
	Name *string `json:"name"`
}

// RawPurchaseOrder is a supplier order as reported by the backend.
type RawPurchaseOrder struct {
	ID         ID       `json:"id"`
	PONumber   *string  `json:"poNumber"`
	SupplierID ID       `json:"supplierId"`
	BranchID   ID       `json:"branchId"`
	OrderDate  *string  `json:"orderDate"`
	GrandTotal *float64 `json:"grandTotal"`
	PaidAmount *float64 `json:"paidAmount"`
	Status     *string  `json:"status"`
}

// RawSnapshot groups the raw collections fetched from a source.
type RawSnapshot struct {
	Bills          []RawBill          `json:"bills"`
	Products       []RawProduct       `json:"products"`
	Customers      []RawParty         `json:"customers"`
	Branches       []RawParty         `json:"branches"`
	Suppliers      []RawParty         `json:"suppliers"`
	PurchaseOrders []RawPurchaseOrder `json:"purchaseOrders"`
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime parses the timestamp formats the backends are known to emit.
// Date-only and zone-less values are interpreted in loc.
func ParseTime(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func floatOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

func stringOr(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return fallback
	}
	return s
}

func timeOr(v *string, loc *time.Location) time.Time {
	if v == nil {
		return time.Time{}
	}
	t, _ := ParseTime(*v, loc)
	return t
}

// NormalizeItem applies defaults to a raw line. A missing line total is
// recomputed from the priced fields.
func NormalizeItem(raw RawItem) BillItem {
	item := BillItem{
		ProductID:       string(raw.ProductID),
		Quantity:        floatOr(raw.Quantity, 0),
		UnitPrice:       floatOr(raw.UnitPrice, 0),
		DiscountPercent: floatOr(raw.DiscountPercent, 0),
		TaxPercent:      floatOr(raw.TaxPercent, 0),
	}
	if raw.LineTotal != nil {
		item.LineTotal = *raw.LineTotal
	} else {
		item.LineTotal = CalculateLine(item).LineTotal
	}
	return item
}

// NormalizePaymentMode lowercases the mode and folds common spellings.
func NormalizePaymentMode(mode string) PaymentMode {
	m := strings.ToLower(strings.TrimSpace(mode))
	m = strings.NewReplacer(" ", "_", "-", "_").Replace(m)
	switch m {
	case "bank", "banktransfer", "neft", "rtgs", "imps":
		return ModeBankTransfer
	case "check":
		return ModeCheque
	}
	return PaymentMode(m)
}

// NormalizePayment resolves mode and amount aliases. The current field names
// win over the historical ones.
func NormalizePayment(raw RawPayment, billID string, loc *time.Location) Payment {
	mode := stringOr(raw.PaymentMode, stringOr(raw.PaymentMethod, ""))
	amount := floatOr(raw.AmountPaid, floatOr(raw.Amount, 0))
	bid := string(raw.BillID)
	if bid == "" {
		bid = billID
	}
	return Payment{
		ID:            string(raw.ID),
		BillID:        bid,
		Mode:          NormalizePaymentMode(mode),
		AmountPaid:    amount,
		TransactionID: stringOr(raw.TransactionID, ""),
		CreatedAt:     timeOr(raw.CreatedAt, loc),
	}
}

// NormalizeBill converts a raw bill into its canonical form. Missing header
// amounts are recomputed from the lines; a missing payment status is derived
// from the paid amount.
func NormalizeBill(raw RawBill, loc *time.Location) Bill {
	bill := Bill{
		ID:         string(raw.ID),
		Type:       BillType(strings.ToLower(stringOr(raw.Type, string(BillTypeInvoice)))),
		BillNo:     stringOr(raw.BillNo, ""),
		BillDate:   timeOr(raw.BillDate, loc),
		CustomerID: string(raw.CustomerID),
		BranchID:   string(raw.BranchID),
		Items:      make([]BillItem, 0, len(raw.Items)),
		Payments:   make([]Payment, 0, len(raw.Payments)),
	}
	for _, it := range raw.Items {
		bill.Items = append(bill.Items, NormalizeItem(it))
	}
	for _, p := range raw.Payments {
		payment := NormalizePayment(p, bill.ID, loc)
		// Undated payments are taken as received on the bill date.
		if payment.CreatedAt.IsZero() {
			payment.CreatedAt = bill.BillDate
		}
		bill.Payments = append(bill.Payments, payment)
	}

	totals := CalculateTotals(bill.Items)
	bill.TotalAmount = floatOr(raw.TotalAmount, totals.Subtotal)
	bill.DiscountAmount = floatOr(raw.DiscountAmount, totals.TotalDiscount)
	bill.TaxAmount = floatOr(raw.TaxAmount, totals.TotalTax)
	bill.GrandTotal = floatOr(raw.GrandTotal, totals.GrandTotal)

	if status := stringOr(raw.PaymentStatus, ""); status != "" {
		bill.PaymentStatus = PaymentStatus(strings.ToLower(status))
	} else {
		bill.PaymentStatus = DerivePaymentStatus(bill.GrandTotal, bill.PaidAmount())
	}
	return bill
}

// DerivePaymentStatus classifies a bill from its grand total and paid amount.
func DerivePaymentStatus(grandTotal, paid float64) PaymentStatus {
	switch {
	case paid <= 0:
		return PaymentStatusUnpaid
	case paid+Tolerance < grandTotal:
		return PaymentStatusPartial
	default:
		return PaymentStatusPaid
	}
}

// NormalizeProduct resolves the cost alias. purchasePrice wins over
// purchasePriceWithGST.
func NormalizeProduct(raw RawProduct) Product {
	return Product{
		ID:            string(raw.ID),
		Name:          stringOr(raw.Name, ""),
		PurchasePrice: floatOr(raw.PurchasePrice, floatOr(raw.PurchasePriceWithGST, 0)),
	}
}

// NormalizeParty tags a directory entry with its kind.
func NormalizeParty(kind PartyKind, raw RawParty) Party {
	return Party{Kind: kind, ID: string(raw.ID), Name: stringOr(raw.Name, "")}
}

// NormalizePurchaseOrder converts a raw supplier order.
func NormalizePurchaseOrder(raw RawPurchaseOrder, loc *time.Location) PurchaseOrder {
	return PurchaseOrder{
		ID:         string(raw.ID),
		PONumber:   stringOr(raw.PONumber, ""),
		SupplierID: string(raw.SupplierID),
		BranchID:   string(raw.BranchID),
		OrderDate:  timeOr(raw.OrderDate, loc),
		GrandTotal: floatOr(raw.GrandTotal, 0),
		PaidAmount: floatOr(raw.PaidAmount, 0),
		Status:     PurchaseOrderStatus(strings.ToLower(stringOr(raw.Status, string(POStatusPending)))),
	}
}

// Normalize converts a full raw snapshot.
func Normalize(raw RawSnapshot, loc *time.Location) Snapshot {
	snap := Snapshot{
		Bills:          make([]Bill, 0, len(raw.Bills)),
		Products:       make([]Product, 0, len(raw.Products)),
		Parties:        make([]Party, 0, len(raw.Customers)+len(raw.Branches)+len(raw.Suppliers)),
		PurchaseOrders: make([]PurchaseOrder, 0, len(raw.PurchaseOrders)),
	}
	for _, b := range raw.Bills {
		snap.Bills = append(snap.Bills, NormalizeBill(b, loc))
	}
	for _, p := range raw.Products {
		snap.Products = append(snap.Products, NormalizeProduct(p))
	}
	for _, p := range raw.Customers {
		snap.Parties = append(snap.Parties, NormalizeParty(PartyCustomer, p))
	}
	for _, p := range raw.Branches {
		snap.Parties = append(snap.Parties, NormalizeParty(PartyBranch, p))
	}
	for _, p := range raw.Suppliers {
		snap.Parties = append(snap.Parties, NormalizeParty(PartySupplier, p))
	}
	for _, po := range raw.PurchaseOrders {
		snap.PurchaseOrders = append(snap.PurchaseOrders, NormalizePurchaseOrder(po, loc))
	}
	return snap
}
