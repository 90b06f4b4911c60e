package reports

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopledger/shopledger/internal/billing"
)

// ErrUnknownReport is returned for report names without a table view.
var ErrUnknownReport = errors.New("reports: unknown report")

// Kind names an exportable report.
type Kind string

const (
	KindDashboard   Kind = "dashboard"
	KindBills       Kind = "bills"
	KindAccounts    Kind = "accounts"
	KindAging       Kind = "aging"
	KindProfitLoss  Kind = "profit-loss"
	KindCollections Kind = "collections"
	KindPayables    Kind = "payables"
)

// Kinds lists every exportable report.
var Kinds = []Kind{KindDashboard, KindBills, KindAccounts, KindAging, KindProfitLoss, KindCollections, KindPayables}

// ParseKind validates a report name.
func ParseKind(value string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == value {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownReport, value)
}

// Column describes a table column. Numeric columns hold FormatPlain or
// integer values.
type Column struct {
	Title   string
	Numeric bool
}

// Table is the flat, format-neutral view shared by every exporter.
type Table struct {
	Title   string
	Columns []Column
	Rows    [][]string
	// Footer holds label/value pairs printed under the rows.
	Footer [][2]string
}

const dateLayout = "2006-01-02"

func text(title string) Column   { return Column{Title: title} }
func number(title string) Column { return Column{Title: title, Numeric: true} }

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func itoa(v int) string { return strconv.Itoa(v) }

// Table flattens the account listing.
func (r AccountReport) Table(title string) Table {
	t := Table{
		Title: title,
		Columns: []Column{
			text("Kind"), text("ID"), text("Name"), number("Documents"),
			number("Total Billed"), number("Total Paid"), number("Due"), text("Status"), text("Last Date"),
		},
		Rows: make([][]string, 0, len(r.Rows)),
	}
	for _, a := range r.Rows {
		t.Rows = append(t.Rows, []string{
			string(a.Kind), a.ID, a.Name, itoa(a.InvoiceCount),
			FormatPlain(a.TotalBilled), FormatPlain(a.TotalPaid), FormatPlain(a.DueAmount), string(a.Status), formatDate(a.LastBillDate),
		})
	}
	t.Footer = [][2]string{
		{"Total Billed", FormatPlain(r.Summary.TotalBilled)},
		{"Total Paid", FormatPlain(r.Summary.TotalPaid)},
		{"Total Due", FormatPlain(r.Summary.TotalDue)},
		{"Accounts With Dues", itoa(r.Summary.AccountsWithDues)},
	}
	return t
}

// Table flattens the aging analysis.
func (r AgingReport) Table() Table {
	t := Table{
		Title: "Receivables Aging as of " + formatDate(r.AsOf),
		Columns: []Column{
			text("Kind"), text("ID"), text("Name"), number("Due"), text("Last Bill Date"), number("Days Overdue"), text("Bucket"),
		},
		Rows: make([][]string, 0, len(r.Rows)),
	}
	for _, row := range r.Rows {
		t.Rows = append(t.Rows, []string{
			string(row.Kind), row.ID, row.Name, FormatPlain(row.DueAmount), formatDate(row.LastBillDate), itoa(row.DaysOverdue), row.Bucket,
		})
	}
	for _, b := range r.Buckets {
		t.Footer = append(t.Footer, [2]string{b.Bucket + " days", FormatPlain(b.Amount)})
	}
	t.Footer = append(t.Footer,
		[2]string{"Total Due", FormatPlain(r.Summary.TotalDue)},
		[2]string{"Accounts With Dues", itoa(r.Summary.CustomersWithDues)},
		[2]string{"Average Days Overdue", FormatPlain(r.Summary.AvgDaysOverdue)},
	)
	if r.Summary.UndatedAccounts > 0 {
		t.Footer = append(t.Footer, [2]string{"Undated Accounts", itoa(r.Summary.UndatedAccounts)})
	}
	return t
}

// Table flattens the profit and loss statement.
func (r ProfitReport) Table() Table {
	t := Table{
		Title: "Profit & Loss",
		Columns: []Column{
			text("Bill No"), text("Date"), text("Party"), number("Revenue"), number("Cost"), number("Profit"), number("Margin %"),
		},
		Rows: make([][]string, 0, len(r.Rows)),
	}
	for _, row := range r.Rows {
		t.Rows = append(t.Rows, []string{
			row.BillNo, formatDate(row.BillDate), row.PartyName,
			FormatPlain(row.Revenue), FormatPlain(row.Cost), FormatPlain(row.Profit), FormatPlain(row.Margin),
		})
	}
	t.Footer = [][2]string{
		{"Total Revenue", FormatPlain(r.Summary.TotalRevenue)},
		{"Total Cost", FormatPlain(r.Summary.TotalCost)},
		{"Gross Profit", FormatPlain(r.Summary.GrossProfit)},
		{"Profit Margin %", FormatPlain(r.Summary.ProfitMargin)},
		{"Invoices", itoa(r.Summary.TotalInvoices)},
	}
	return t
}

// Table flattens the collection breakdown.
func (r CollectionReport) Table() Table {
	t := Table{
		Title: "Payment Collections",
		Columns: []Column{
			text("Date"), text("Bill No"), text("Party"), text("Mode"), text("Transaction"), number("Amount"),
		},
		Rows: make([][]string, 0, len(r.Rows)),
	}
	for _, row := range r.Rows {
		t.Rows = append(t.Rows, []string{
			formatDate(row.CreatedAt), row.BillNo, row.PartyName, string(row.Mode), row.TransactionID, FormatPlain(row.Amount),
		})
	}
	b := r.Summary.Breakdown
	t.Footer = [][2]string{
		{"Cash", FormatPlain(b.Cash)},
		{"UPI", FormatPlain(b.UPI)},
		{"Card", FormatPlain(b.Card)},
		{"Bank", FormatPlain(b.Bank)},
		{"Other", FormatPlain(b.Other)},
		{"Total Collected", FormatPlain(r.Summary.TotalCollected)},
		{"Payments", itoa(r.Summary.TotalPayments)},
	}
	return t
}

// Table flattens the bill register.
func (r BillRegister) Table() Table {
	t := Table{
		Title: "Bill Register",
		Columns: []Column{
			text("Bill No"), text("Type"), text("Date"), text("Party"), number("Subtotal"), number("Discount"),
			number("Tax"), number("Grand Total"), number("Paid"), number("Due"), text("Status"), text("Totals Match"),
		},
		Rows: make([][]string, 0, len(r.Rows)),
	}
	for _, row := range r.Rows {
		t.Rows = append(t.Rows, []string{
			row.BillNo, string(row.Type), formatDate(row.BillDate), row.PartyName,
			FormatPlain(row.Subtotal), FormatPlain(row.Discount), FormatPlain(row.Tax), FormatPlain(row.GrandTotal),
			FormatPlain(row.Paid), FormatPlain(row.Due), string(row.PaymentStatus), strconv.FormatBool(row.TotalsMatch),
		})
	}
	t.Footer = [][2]string{
		{"Invoices", itoa(r.Summary.Invoices)},
		{"Invoice Value", FormatPlain(r.Summary.InvoiceValue)},
		{"Quotations", itoa(r.Summary.Quotations)},
		{"Quotation Value", FormatPlain(r.Summary.QuotationValue)},
		{"Paid", FormatPlain(r.Summary.Paid)},
		{"Due", FormatPlain(r.Summary.Due)},
		{"Mismatched Totals", itoa(r.Summary.Mismatched)},
	}
	return t
}

// Table flattens the dashboard into metric/value rows.
func (d Dashboard) Table() Table {
	return Table{
		Title:   "Dashboard",
		Columns: []Column{text("Metric"), number("Value")},
		Rows: [][]string{
			{"Sales", FormatPlain(d.Sales)},
			{"Invoices", itoa(d.Invoices)},
			{"Collected", FormatPlain(d.Collected)},
			{"Payments", itoa(d.Payments)},
			{"Gross Profit", FormatPlain(d.GrossProfit)},
			{"Profit Margin %", FormatPlain(d.ProfitMargin)},
			{"Receivables Due", FormatPlain(d.ReceivablesDue)},
			{"Accounts With Dues", itoa(d.AccountsWithDues)},
			{"Payables Due", FormatPlain(d.PayablesDue)},
			{"Quotations", itoa(d.Quotations)},
			{"Quotation Value", FormatPlain(d.QuotationValue)},
		},
	}
}

// Table builds the table view of any report kind. partyKind only applies to
// KindAccounts.
func (s *Service) Table(ctx context.Context, kind Kind, filter Filter, partyKind billing.PartyKind) (Table, error) {
	switch kind {
	case KindDashboard:
		d, err := s.Dashboard(ctx, filter)
		return d.Table(), err
	case KindBills:
		r, err := s.Bills(ctx, filter)
		return r.Table(), err
	case KindAccounts:
		r, err := s.Accounts(ctx, filter, partyKind)
		return r.Table("Account Balances"), err
	case KindAging:
		r, err := s.Aging(ctx, filter)
		return r.Table(), err
	case KindProfitLoss:
		r, err := s.ProfitLoss(ctx, filter)
		return r.Table(), err
	case KindCollections:
		r, err := s.Collections(ctx, filter)
		return r.Table(), err
	case KindPayables:
		r, err := s.Payables(ctx, filter)
		return r.Table("Supplier Payables"), err
	default:
		return Table{}, fmt.Errorf("%w: %q", ErrUnknownReport, kind)
	}
}
