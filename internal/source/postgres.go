package source

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/sync/errgroup"

	"github.com/shopledger/shopledger/internal/billing"
)

// Querier is the subset of pgxpool.Pool used by Postgres.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Postgres reads the ERP tables directly. Keys are cast to text so they match
// the identifiers served by the REST backend.
type Postgres struct {
	db Querier
}

// NewPostgres constructs a Postgres fetcher.
func NewPostgres(db Querier) *Postgres {
	return &Postgres{db: db}
}

// Business dates are DATE columns. They are selected as plain YYYY-MM-DD text
// so the loader reads them in the report zone rather than the session zone.
const (
	billsQuery = `
		SELECT id::text, type, bill_no, to_char(bill_date, 'YYYY-MM-DD'), customer_id::text, branch_id::text,
			total_amount, discount_amount, tax_amount, grand_total, payment_status
		FROM bills
		ORDER BY bill_date, id`

	billItemsQuery = `
		SELECT bill_id::text, product_id::text, quantity, unit_price,
			discount_percent, tax_percent, line_total
		FROM bill_items
		ORDER BY bill_id, id`

	billPaymentsQuery = `
		SELECT id::text, bill_id::text, payment_mode, amount_paid, transaction_id, created_at
		FROM bill_payments
		ORDER BY created_at, id`

	productsQuery = `
		SELECT id::text, name, purchase_price, purchase_price_with_gst
		FROM products`

	partiesQuery = `SELECT id::text, name FROM %s`

	purchaseOrdersQuery = `
		SELECT id::text, po_number, supplier_id::text, branch_id::text, to_char(order_date, 'YYYY-MM-DD'),
			grand_total, paid_amount, status
		FROM purchase_orders
		ORDER BY order_date, id`
)

type itemRow struct {
	billID string
	item   billing.RawItem
}

type paymentRow struct {
	billID  string
	payment billing.RawPayment
}

// Fetch loads every collection in parallel and stitches items and payments
// onto their bills.
func (p *Postgres) Fetch(ctx context.Context) (billing.RawSnapshot, error) {
	var (
		snap     billing.RawSnapshot
		items    []itemRow
		payments []paymentRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { snap.Bills, err = p.bills(gctx); return })
	g.Go(func() (err error) { items, err = p.items(gctx); return })
	g.Go(func() (err error) { payments, err = p.payments(gctx); return })
	g.Go(func() (err error) { snap.Products, err = p.products(gctx); return })
	g.Go(func() (err error) { snap.Customers, err = p.parties(gctx, "customers"); return })
	g.Go(func() (err error) { snap.Branches, err = p.parties(gctx, "branches"); return })
	g.Go(func() (err error) { snap.Suppliers, err = p.parties(gctx, "suppliers"); return })
	g.Go(func() (err error) { snap.PurchaseOrders, err = p.purchaseOrders(gctx); return })
	if err := g.Wait(); err != nil {
		return billing.RawSnapshot{}, fmt.Errorf("source/postgres: %w", err)
	}

	index := make(map[string]int, len(snap.Bills))
	for i, b := range snap.Bills {
		index[string(b.ID)] = i
	}
	for _, row := range items {
		if i, ok := index[row.billID]; ok {
			snap.Bills[i].Items = append(snap.Bills[i].Items, row.item)
		}
	}
	for _, row := range payments {
		if i, ok := index[row.billID]; ok {
			snap.Bills[i].Payments = append(snap.Bills[i].Payments, row.payment)
		}
	}
	return snap, nil
}

func (p *Postgres) bills(ctx context.Context) ([]billing.RawBill, error) {
	rows, err := p.db.Query(ctx, billsQuery)
	if err != nil {
		return nil, fmt.Errorf("query bills: %w", err)
	}
	defer rows.Close()

	var out []billing.RawBill
	for rows.Next() {
		var (
			id                             string
			kind, billNo, customer, branch pgtype.Text
			status, billDate               pgtype.Text
			total, discount, tax, grand    pgtype.Numeric
		)
		if err := rows.Scan(&id, &kind, &billNo, &billDate, &customer, &branch, &total, &discount, &tax, &grand, &status); err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		out = append(out, billing.RawBill{
			ID:             billing.ID(id),
			Type:           textPtr(kind),
			BillNo:         textPtr(billNo),
			BillDate:       textPtr(billDate),
			CustomerID:     billing.ID(customer.String),
			BranchID:       billing.ID(branch.String),
			TotalAmount:    numericPtr(total),
			DiscountAmount: numericPtr(discount),
			TaxAmount:      numericPtr(tax),
			GrandTotal:     numericPtr(grand),
			PaymentStatus:  textPtr(status),
		})
	}
	return out, rows.Err()
}

func (p *Postgres) items(ctx context.Context) ([]itemRow, error) {
	rows, err := p.db.Query(ctx, billItemsQuery)
	if err != nil {
		return nil, fmt.Errorf("query bill items: %w", err)
	}
	defer rows.Close()

	var out []itemRow
	for rows.Next() {
		var (
			billID                           string
			productID                        pgtype.Text
			qty, price, discount, tax, total pgtype.Numeric
		)
		if err := rows.Scan(&billID, &productID, &qty, &price, &discount, &tax, &total); err != nil {
			return nil, fmt.Errorf("scan bill item: %w", err)
		}
		out = append(out, itemRow{billID: billID, item: billing.RawItem{
			ProductID:       billing.ID(productID.String),
			Quantity:        numericPtr(qty),
			UnitPrice:       numericPtr(price),
			DiscountPercent: numericPtr(discount),
			TaxPercent:      numericPtr(tax),
			LineTotal:       numericPtr(total),
		}})
	}
	return out, rows.Err()
}

func (p *Postgres) payments(ctx context.Context) ([]paymentRow, error) {
	rows, err := p.db.Query(ctx, billPaymentsQuery)
	if err != nil {
		return nil, fmt.Errorf("query bill payments: %w", err)
	}
	defer rows.Close()

	var out []paymentRow
	for rows.Next() {
		var (
			id, billID      string
			mode, reference pgtype.Text
			amount          pgtype.Numeric
			createdAt       pgtype.Timestamptz
		)
		if err := rows.Scan(&id, &billID, &mode, &amount, &reference, &createdAt); err != nil {
			return nil, fmt.Errorf("scan bill payment: %w", err)
		}
		out = append(out, paymentRow{billID: billID, payment: billing.RawPayment{
			ID:            billing.ID(id),
			BillID:        billing.ID(billID),
			PaymentMode:   textPtr(mode),
			AmountPaid:    numericPtr(amount),
			TransactionID: textPtr(reference),
			CreatedAt:     timePtr(createdAt),
		}})
	}
	return out, rows.Err()
}

func (p *Postgres) products(ctx context.Context) ([]billing.RawProduct, error) {
	rows, err := p.db.Query(ctx, productsQuery)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var out []billing.RawProduct
	for rows.Next() {
		var (
			id         string
			name       pgtype.Text
			price, gst pgtype.Numeric
		)
		if err := rows.Scan(&id, &name, &price, &gst); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, billing.RawProduct{
			ID:                   billing.ID(id),
			Name:                 textPtr(name),
			PurchasePrice:        numericPtr(price),
			PurchasePriceWithGST: numericPtr(gst),
		})
	}
	return out, rows.Err()
}

func (p *Postgres) parties(ctx context.Context, table string) ([]billing.RawParty, error) {
	rows, err := p.db.Query(ctx, fmt.Sprintf(partiesQuery, pgx.Identifier{table}.Sanitize()))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var out []billing.RawParty
	for rows.Next() {
		var (
			id   string
			name pgtype.Text
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out = append(out, billing.RawParty{ID: billing.ID(id), Name: textPtr(name)})
	}
	return out, rows.Err()
}

func (p *Postgres) purchaseOrders(ctx context.Context) ([]billing.RawPurchaseOrder, error) {
	rows, err := p.db.Query(ctx, purchaseOrdersQuery)
	if err != nil {
		return nil, fmt.Errorf("query purchase orders: %w", err)
	}
	defer rows.Close()

	var out []billing.RawPurchaseOrder
	for rows.Next() {
		var (
			id               string
			number, supplier pgtype.Text
			branch, status   pgtype.Text
			orderDate        pgtype.Text
			grand, paid      pgtype.Numeric
		)
		if err := rows.Scan(&id, &number, &supplier, &branch, &orderDate, &grand, &paid, &status); err != nil {
			return nil, fmt.Errorf("scan purchase order: %w", err)
		}
		out = append(out, billing.RawPurchaseOrder{
			ID:         billing.ID(id),
			PONumber:   textPtr(number),
			SupplierID: billing.ID(supplier.String),
			BranchID:   billing.ID(branch.String),
			OrderDate:  textPtr(orderDate),
			GrandTotal: numericPtr(grand),
			PaidAmount: numericPtr(paid),
			Status:     textPtr(status),
		})
	}
	return out, rows.Err()
}

// Ping checks connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	_, err := p.db.Exec(ctx, "SELECT 1")
	return err
}

func textPtr(v pgtype.Text) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func numericPtr(v pgtype.Numeric) *float64 {
	if !v.Valid {
		return nil
	}
	f, err := v.Float64Value()
	if err != nil || !f.Valid {
		return nil
	}
	return &f.Float64
}

func timePtr(v pgtype.Timestamptz) *string {
	if !v.Valid {
		return nil
	}
	s := v.Time.Format(time.RFC3339Nano)
	return &s
}
