package billing

import "time"

// BillType distinguishes payable invoices from non-binding quotations.
type BillType string

const (
	BillTypeInvoice   BillType = "invoice"
	BillTypeQuotation BillType = "quotation"
)

// PaymentStatus mirrors the settlement state stored on a bill.
type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "unpaid"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// PaymentMode enumerates the tender types accepted by the billing desk.
type PaymentMode string

const (
	ModeCash         PaymentMode = "cash"
	ModeCard         PaymentMode = "card"
	ModeBankTransfer PaymentMode = "bank_transfer"
	ModeUPI          PaymentMode = "upi"
	ModeCheque       PaymentMode = "cheque"
)

// PartyKind identifies which directory a party belongs to.
type PartyKind string

const (
	PartyCustomer   PartyKind = "customer"
	PartyBranch     PartyKind = "branch"
	PartySupplier   PartyKind = "supplier"
	PartyUnassigned PartyKind = "unassigned"
)

// PurchaseOrderStatus tracks supplier order progress.
type PurchaseOrderStatus string

const (
	POStatusPending   PurchaseOrderStatus = "pending"
	POStatusReceived  PurchaseOrderStatus = "received"
	POStatusCancelled PurchaseOrderStatus = "cancelled"
)

// PartyRef names the owner of a bill or an order.
type PartyRef struct {
	Kind PartyKind `json:"kind"`
	ID   string    `json:"id"`
}

// Bill is a normalised billing document.
type Bill struct {
	ID             string        `json:"id"`
	Type           BillType      `json:"type"`
	BillNo         string        `json:"billNo"`
	BillDate       time.Time     `json:"billDate"`
	CustomerID     string        `json:"customerId,omitempty"`
	BranchID       string        `json:"branchId,omitempty"`
	Items          []BillItem    `json:"items"`
	TotalAmount    float64       `json:"totalAmount"`
	DiscountAmount float64       `json:"discountAmount"`
	TaxAmount      float64       `json:"taxAmount"`
	GrandTotal     float64       `json:"grandTotal"`
	PaymentStatus  PaymentStatus `json:"paymentStatus"`
	Payments       []Payment     `json:"payments"`
}

// Owner returns the party the bill is charged to. Customer wins over branch.
func (b Bill) Owner() PartyRef {
	switch {
	case b.CustomerID != "":
		return PartyRef{Kind: PartyCustomer, ID: b.CustomerID}
	case b.BranchID != "":
		return PartyRef{Kind: PartyBranch, ID: b.BranchID}
	default:
		return PartyRef{Kind: PartyUnassigned}
	}
}

// IsInvoice reports whether the bill is payable.
func (b Bill) IsInvoice() bool {
	return b.Type == BillTypeInvoice
}

// IsQuotation reports whether the bill is a non-binding quote.
func (b Bill) IsQuotation() bool {
	return b.Type == BillTypeQuotation
}

// PaidAmount sums every payment recorded against the bill.
func (b Bill) PaidAmount() float64 {
	var paid float64
	for _, p := range b.Payments {
		paid += p.AmountPaid
	}
	return paid
}

// BillItem is a single priced line on a bill.
type BillItem struct {
	ProductID       string  `json:"productId"`
	Quantity        float64 `json:"quantity"`
	UnitPrice       float64 `json:"unitPrice"`
	DiscountPercent float64 `json:"discountPercent"`
	TaxPercent      float64 `json:"taxPercent"`
	LineTotal       float64 `json:"lineTotal"`
}

// Payment records money received against a bill.
type Payment struct {
	ID            string      `json:"id"`
	BillID        string      `json:"billId"`
	Mode          PaymentMode `json:"paymentMode"`
	AmountPaid    float64     `json:"amountPaid"`
	TransactionID string      `json:"transactionId,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// Product carries the canonical cost used for profit calculations.
type Product struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	PurchasePrice float64 `json:"purchasePrice"`
}

// Party is an entry of the customer, branch or supplier directory.
type Party struct {
	Kind PartyKind `json:"kind"`
	ID   string    `json:"id"`
	Name string    `json:"name"`
}

// PurchaseOrder is a supplier order used for payables.
type PurchaseOrder struct {
	ID         string              `json:"id"`
	PONumber   string              `json:"poNumber"`
	SupplierID string              `json:"supplierId"`
	BranchID   string              `json:"branchId,omitempty"`
	OrderDate  time.Time           `json:"orderDate"`
	GrandTotal float64             `json:"grandTotal"`
	PaidAmount float64             `json:"paidAmount"`
	Status     PurchaseOrderStatus `json:"status"`
}

// Snapshot is the in-memory collection handed to the aggregation builders.
type Snapshot struct {
	Bills          []Bill          `json:"bills"`
	Products       []Product       `json:"products"`
	Parties        []Party         `json:"parties"`
	PurchaseOrders []PurchaseOrder `json:"purchaseOrders"`
}

// ProductIndex maps product IDs to products.
func (s Snapshot) ProductIndex() map[string]Product {
	index := make(map[string]Product, len(s.Products))
	for _, p := range s.Products {
		index[p.ID] = p
	}
	return index
}

// Directory resolves party names.
type Directory map[PartyRef]string

// Directory builds the name lookup for all parties in the snapshot.
func (s Snapshot) Directory() Directory {
	dir := make(Directory, len(s.Parties))
	for _, p := range s.Parties {
		dir[PartyRef{Kind: p.Kind, ID: p.ID}] = p.Name
	}
	return dir
}

// Name returns the party name or a placeholder when the reference is dangling.
func (d Directory) Name(ref PartyRef) string {
	if name, ok := d[ref]; ok && name != "" {
		return name
	}
	switch ref.Kind {
	case PartyUnassigned:
		return "Unassigned"
	case PartyCustomer:
		return "Unknown customer #" + ref.ID
	case PartyBranch:
		return "Unknown branch #" + ref.ID
	case PartySupplier:
		return "Unknown supplier #" + ref.ID
	default:
		return "Unknown #" + ref.ID
	}
}
