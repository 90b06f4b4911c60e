package reports

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shopledger/shopledger/internal/billing"
)

var asOf = time.Date(2024, 6, 30, 15, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return time.Date(2024, 6, 30, 10, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func invoice(id string, owner billing.PartyRef, date time.Time, grand float64, payments ...billing.Payment) billing.Bill {
	b := billing.Bill{ID: id, BillNo: "INV-" + id, Type: billing.BillTypeInvoice, BillDate: date, GrandTotal: grand, TotalAmount: grand, Payments: payments}
	switch owner.Kind {
	case billing.PartyCustomer:
		b.CustomerID = owner.ID
	case billing.PartyBranch:
		b.BranchID = owner.ID
	}
	return b
}

func pay(id string, mode billing.PaymentMode, amount float64, at time.Time) billing.Payment {
	return billing.Payment{ID: id, Mode: mode, AmountPaid: amount, CreatedAt: at}
}

func customer(id string) billing.PartyRef {
	return billing.PartyRef{Kind: billing.PartyCustomer, ID: id}
}
func branch(id string) billing.PartyRef { return billing.PartyRef{Kind: billing.PartyBranch, ID: id} }

func fixtureSnapshot() billing.Snapshot {
	quote := invoice("q1", customer("c3"), day(-2), 900)
	quote.Type = billing.BillTypeQuotation
	return billing.Snapshot{
		Bills: []billing.Bill{
			invoice("1", customer("c1"), day(-40), 5000, pay("p1", billing.ModeCash, 2000, day(-40)), pay("p2", billing.ModeUPI, 1000, day(-1))),
			invoice("2", customer("c2"), day(-5), 5000, pay("p3", billing.ModeBankTransfer, 5000, day(-5))),
			quote,
			invoice("3", branch("b1"), day(-95), 1200, pay("p4", billing.ModeCheque, 200, day(-3))),
			invoice("4", customer("c4"), day(0), 100, pay("p5", billing.ModeCard, 150, day(0))),
			invoice("5", branch("b2"), day(-1), 0),
		},
		Parties: []billing.Party{
			{Kind: billing.PartyCustomer, ID: "c1", Name: "Asha Stores"},
			{Kind: billing.PartyCustomer, ID: "c2", Name: "Bharat Mart"},
			{Kind: billing.PartyBranch, ID: "b1", Name: "Main Branch"},
		},
	}
}

func TestBuildAccountsBalanceInvariant(t *testing.T) {
	snap := fixtureSnapshot()
	report := BuildAccounts(snap.Bills, snap.Directory(), "")

	byID := make(map[string]Account)
	for _, acc := range report.Rows {
		require.Equal(t, acc.TotalBilled-acc.TotalPaid, acc.DueAmount)
		require.Equal(t, acc.DueAmount > 0, acc.Status == StatusDue)
		require.NotZero(t, acc.TotalBilled)
		byID[acc.ID] = acc
	}

	require.Len(t, report.Rows, 4)
	require.NotContains(t, byID, "c3", "quotation-only accounts are never billed")
	require.NotContains(t, byID, "b2", "zero-billed accounts are dropped")

	require.Equal(t, 2000.0, byID["c1"].DueAmount)
	require.Equal(t, StatusDue, byID["c1"].Status)
	require.Equal(t, "Asha Stores", byID["c1"].Name)
	require.Equal(t, 0.0, byID["c2"].DueAmount)
	require.Equal(t, StatusClear, byID["c2"].Status)
	require.Equal(t, -50.0, byID["c4"].DueAmount)
	require.Equal(t, StatusClear, byID["c4"].Status)
	require.Equal(t, "Unknown customer #c4", byID["c4"].Name)

	require.Equal(t, 3000.0, report.Summary.TotalDue)
	require.Equal(t, 2, report.Summary.AccountsWithDues)
	require.Equal(t, "c1", report.Rows[0].ID)
}

func TestBuildAccountsKindFilter(t *testing.T) {
	snap := fixtureSnapshot()
	report := BuildAccounts(snap.Bills, snap.Directory(), billing.PartyBranch)
	require.Len(t, report.Rows, 1)
	require.Equal(t, "b1", report.Rows[0].ID)
	require.Equal(t, 1000.0, report.Summary.TotalDue)
}

func TestBuildAccountsUnassignedOwner(t *testing.T) {
	bills := []billing.Bill{{ID: "x", Type: billing.BillTypeInvoice, GrandTotal: 10}}
	report := BuildAccounts(bills, billing.Directory{}, "")
	require.Len(t, report.Rows, 1)
	require.Equal(t, billing.PartyUnassigned, report.Rows[0].Kind)
	require.Equal(t, "Unassigned", report.Rows[0].Name)
}

func TestAgingBucketPartition(t *testing.T) {
	cases := map[int]string{
		0: Aging0To30, 30: Aging0To30,
		31: Aging31To60, 60: Aging31To60,
		61: Aging61To90, 90: Aging61To90,
		91: Aging90Plus, 10000: Aging90Plus,
	}
	for days, want := range cases {
		require.Equal(t, want, AgingBucketFor(days), "days=%d", days)
	}
	for days := 0; days <= 400; days++ {
		hits := 0
		label := AgingBucketFor(days)
		for _, b := range AgingBuckets {
			if b == label {
				hits++
			}
		}
		require.Equal(t, 1, hits, "days=%d", days)
	}
}

func TestBuildAging(t *testing.T) {
	accounts := []Account{
		{ID: "a", DueAmount: 100, LastBillDate: day(0)},
		{ID: "b", DueAmount: 200, LastBillDate: day(-30)},
		{ID: "c", DueAmount: 300, LastBillDate: day(-31)},
		{ID: "d", DueAmount: 400, LastBillDate: day(-61)},
		{ID: "e", DueAmount: 500, LastBillDate: day(-91)},
		{ID: "f", DueAmount: 50, LastBillDate: day(3)},
		{ID: "g", DueAmount: 0, LastBillDate: day(-200)},
		{ID: "h", DueAmount: -20, LastBillDate: day(-200)},
	}
	report := BuildAging(accounts, asOf, time.UTC)

	require.Len(t, report.Buckets, 4)
	want := []AgingBucket{
		{Bucket: Aging0To30, Amount: 350, Accounts: 3},
		{Bucket: Aging31To60, Amount: 300, Accounts: 1},
		{Bucket: Aging61To90, Amount: 400, Accounts: 1},
		{Bucket: Aging90Plus, Amount: 500, Accounts: 1},
	}
	require.Equal(t, want, report.Buckets)
	require.Equal(t, 6, report.Summary.CustomersWithDues)
	require.Equal(t, 1550.0, report.Summary.TotalDue)
	require.InDelta(t, float64(0+30+31+61+91+0)/6, report.Summary.AvgDaysOverdue, 1e-9)
	require.Equal(t, "e", report.Rows[0].ID)

	var bucketTotal float64
	for _, b := range report.Buckets {
		bucketTotal += b.Amount
	}
	require.Equal(t, report.Summary.TotalDue, bucketTotal)
}

func TestBuildAgingKeepsUndatedOutOfAverage(t *testing.T) {
	accounts := []Account{
		{ID: "c1", DueAmount: 100, LastBillDate: day(-5)},
		{ID: "c2", DueAmount: 40},
	}
	report := BuildAging(accounts, asOf, time.UTC)

	require.Equal(t, 2, report.Summary.CustomersWithDues)
	require.Equal(t, 1, report.Summary.UndatedAccounts)
	require.InDelta(t, 5.0, report.Summary.AvgDaysOverdue, 1e-9)
	require.Equal(t, 140.0, report.Summary.TotalDue)
	require.Equal(t, AgingBucket{Bucket: Aging90Plus, Amount: 40, Accounts: 1}, report.Buckets[3])

	undated := report.Rows[1]
	require.Equal(t, "c2", undated.ID)
	require.True(t, undated.Undated)
	require.Zero(t, undated.DaysOverdue)
}

func TestDaysBetweenLongSpans(t *testing.T) {
	from := time.Date(1500, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, int(to.Unix()-from.Unix())/86400, DaysBetween(from, to, time.UTC))
	require.Greater(t, DaysBetween(from, to, time.UTC), 106751)
}

func TestBuildAgingUsesLocationCalendarDays(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	// 20:00 UTC on May 30th is already May 31st in IST.
	accounts := []Account{{ID: "a", DueAmount: 10, LastBillDate: time.Date(2024, 5, 30, 20, 0, 0, 0, time.UTC)}}
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

	require.Equal(t, 31, BuildAging(accounts, now, time.UTC).Rows[0].DaysOverdue)
	require.Equal(t, 30, BuildAging(accounts, now, ist).Rows[0].DaysOverdue)
}

func TestBuildProfitLoss(t *testing.T) {
	bills := []billing.Bill{
		{
			ID: "1", Type: billing.BillTypeInvoice, CustomerID: "c1", GrandTotal: 1180, TotalAmount: 1000,
			Items: []billing.BillItem{{ProductID: "p1", Quantity: 10}, {ProductID: "gone", Quantity: 3}},
		},
		{ID: "2", Type: billing.BillTypeInvoice, BranchID: "b1", GrandTotal: 0, Items: []billing.BillItem{{ProductID: "p1", Quantity: 1}}},
		{ID: "3", Type: billing.BillTypeQuotation, GrandTotal: 9999},
	}
	products := map[string]billing.Product{"p1": {ID: "p1", PurchasePrice: 60}}

	report := BuildProfitLoss(bills, products, billing.Directory{}, RevenueGrandTotal)

	require.Len(t, report.Rows, 2)
	require.Equal(t, 1180.0, report.Rows[0].Revenue)
	require.Equal(t, 600.0, report.Rows[0].Cost)
	require.Equal(t, 580.0, report.Rows[0].Profit)
	require.InDelta(t, 580.0/1180*100, report.Rows[0].Margin, 1e-9)
	require.Equal(t, 1, report.Rows[0].MissingProducts)

	require.Equal(t, 0.0, report.Rows[1].Revenue)
	require.Equal(t, -60.0, report.Rows[1].Profit)
	require.Equal(t, 0.0, report.Rows[1].Margin)
	require.False(t, math.IsNaN(report.Rows[1].Margin))

	require.Equal(t, 2, report.Summary.TotalInvoices)
	require.Equal(t, 1180.0, report.Summary.TotalRevenue)
	require.Equal(t, 660.0, report.Summary.TotalCost)
	require.Equal(t, 520.0, report.Summary.GrossProfit)
	require.Equal(t, 1, report.Summary.MissingProducts)

	byAmount := BuildProfitLoss(bills, products, billing.Directory{}, RevenueTotalAmount)
	require.Equal(t, RevenueTotalAmount, byAmount.Basis)
	require.Equal(t, 1000.0, byAmount.Summary.TotalRevenue)
}

func TestBuildProfitLossEmpty(t *testing.T) {
	report := BuildProfitLoss(nil, nil, nil, "")
	require.Equal(t, DefaultRevenueBasis, report.Basis)
	require.NotNil(t, report.Rows)
	require.Empty(t, report.Rows)
	require.Equal(t, ProfitSummary{}, report.Summary)
}

func TestBuildCollectionsConservesTotals(t *testing.T) {
	snap := fixtureSnapshot()
	snap.Bills = append(snap.Bills, invoice("6", customer("c1"), day(-2), 300, pay("p6", billing.PaymentMode("wallet"), 75, day(-2))))

	for _, period := range []Period{PeriodAll, PeriodToday, PeriodWeekly, PeriodMonthly} {
		window, err := Filter{Period: period}.Resolve(asOf, time.UTC)
		require.NoError(t, err)
		report := BuildCollections(snap.Bills, snap.Directory(), window, "", time.UTC)
		require.InDelta(t, report.Summary.TotalCollected, report.Summary.Breakdown.Total(), 1e-9, "period=%s", period)
		require.Len(t, report.Rows, report.Summary.TotalPayments)
	}

	all := BuildCollections(snap.Bills, snap.Directory(), Window{}, "", time.UTC)
	require.Equal(t, Breakdown{Cash: 2000, UPI: 1000, Card: 150, Bank: 5200, Other: 75}, all.Summary.Breakdown)
	require.Equal(t, 8425.0, all.Summary.TotalCollected)
	require.Equal(t, 6, all.Summary.TotalPayments)
}

func TestBuildCollectionsModeFilter(t *testing.T) {
	snap := fixtureSnapshot()
	report := BuildCollections(snap.Bills, snap.Directory(), Window{}, billing.ModeCheque, time.UTC)
	require.Equal(t, 200.0, report.Summary.TotalCollected)
	require.Equal(t, Breakdown{Bank: 200}, report.Summary.Breakdown)
	require.Equal(t, "Main Branch", report.Rows[0].PartyName)
}

func TestBuildCollectionsGraph(t *testing.T) {
	snap := fixtureSnapshot()

	weekly, err := Filter{Period: PeriodWeekly}.Resolve(asOf, time.UTC)
	require.NoError(t, err)
	dense := BuildCollections(snap.Bills, snap.Directory(), weekly, "", time.UTC)
	require.Len(t, dense.Graph, 7)
	require.Equal(t, "2024-06-24", dense.Graph[0].Date)
	require.Equal(t, "2024-06-30", dense.Graph[6].Date)
	require.Equal(t, 5000.0, dense.Graph[1].Amount)
	require.Equal(t, 0.0, dense.Graph[2].Amount)
	require.Equal(t, 150.0, dense.Graph[6].Amount)

	sparse := BuildCollections(snap.Bills, snap.Directory(), Window{}, "", time.UTC)
	dates := make([]string, 0, len(sparse.Graph))
	for _, p := range sparse.Graph {
		dates = append(dates, p.Date)
	}
	require.Equal(t, []string{"2024-05-21", "2024-06-25", "2024-06-27", "2024-06-29", "2024-06-30"}, dates)
}

func TestBuildCollectionsEmpty(t *testing.T) {
	report := BuildCollections(nil, nil, Window{}, "", nil)
	require.NotNil(t, report.Rows)
	require.NotNil(t, report.Graph)
	require.Equal(t, CollectionSummary{}, report.Summary)
}

func TestBuildBillRegister(t *testing.T) {
	snap := fixtureSnapshot()
	drifted := billing.Bill{
		ID: "7", Type: billing.BillTypeInvoice, CustomerID: "c1", GrandTotal: 250,
		Items: []billing.BillItem{{Quantity: 2, UnitPrice: 100, DiscountPercent: 10, TaxPercent: 18}},
	}
	snap.Bills = append(snap.Bills, drifted)

	register := BuildBillRegister(snap.Bills, snap.Directory())
	require.Len(t, register.Rows, len(snap.Bills))
	require.Equal(t, 6, register.Summary.Invoices)
	require.Equal(t, 1, register.Summary.Quotations)
	require.Equal(t, 900.0, register.Summary.QuotationValue)
	require.Equal(t, 1, register.Summary.Mismatched)

	last := register.Rows[len(register.Rows)-1]
	require.False(t, last.TotalsMatch)
	require.InDelta(t, 212.4, last.Computed, 1e-9)
	require.Equal(t, billing.PaymentStatusUnpaid, last.PaymentStatus)
	require.Equal(t, 250.0, last.Due)

	first := register.Rows[0]
	require.Equal(t, billing.PaymentStatusPartial, first.PaymentStatus)
	require.Equal(t, 2000.0, first.Due)

	quote := register.Rows[2]
	require.Equal(t, billing.BillTypeQuotation, quote.Type)
	require.Zero(t, quote.Due)
}

func TestBuildPayables(t *testing.T) {
	orders := []billing.PurchaseOrder{
		{ID: "1", SupplierID: "s1", GrandTotal: 1000, PaidAmount: 400, OrderDate: day(-10)},
		{ID: "2", SupplierID: "s1", GrandTotal: 500, PaidAmount: 500, OrderDate: day(-2)},
		{ID: "3", SupplierID: "s2", GrandTotal: 800, OrderDate: day(-1), Status: billing.POStatusCancelled},
		{ID: "4", SupplierID: "s3", GrandTotal: 300, PaidAmount: 300, OrderDate: day(-60)},
	}
	dir := billing.Directory{{Kind: billing.PartySupplier, ID: "s1"}: "Metro Wholesale"}

	report := BuildPayables(orders, dir, Window{})
	require.Len(t, report.Rows, 2)
	require.Equal(t, "Metro Wholesale", report.Rows[0].Name)
	require.Equal(t, 600.0, report.Rows[0].DueAmount)
	require.Equal(t, 2, report.Rows[0].InvoiceCount)
	require.Equal(t, StatusClear, report.Rows[1].Status)
	require.Equal(t, 600.0, report.Summary.TotalDue)

	monthly, err := Filter{Period: PeriodMonthly}.Resolve(asOf, time.UTC)
	require.NoError(t, err)
	require.Len(t, BuildPayables(orders, dir, monthly).Rows, 1)
}

func TestUnknownBillTypesAreNotQuotations(t *testing.T) {
	credit := invoice("cn1", customer("c1"), day(0), 75)
	credit.Type = billing.BillType("credit_note")
	quote := invoice("q9", customer("c1"), day(0), 30)
	quote.Type = billing.BillTypeQuotation
	bills := []billing.Bill{credit, quote}

	register := BuildBillRegister(bills, billing.Directory{})
	require.Equal(t, 2, register.Summary.Bills)
	require.Equal(t, 1, register.Summary.Quotations)
	require.Equal(t, 30.0, register.Summary.QuotationValue)
	require.Equal(t, 1, register.Summary.Other)
	require.Zero(t, register.Summary.Invoices)
	require.Zero(t, register.Rows[0].Due)

	dash := BuildDashboard(DashboardInput{Snapshot: billing.Snapshot{Bills: bills}, Location: time.UTC})
	require.Equal(t, 1, dash.Quotations)
	require.Equal(t, 30.0, dash.QuotationValue)
	require.Zero(t, dash.Invoices)
	require.Zero(t, dash.Sales)
}

func TestBuildDashboard(t *testing.T) {
	snap := fixtureSnapshot()
	snap.Products = []billing.Product{{ID: "p1", PurchasePrice: 1}}
	snap.PurchaseOrders = []billing.PurchaseOrder{{ID: "po", SupplierID: "s1", GrandTotal: 700, PaidAmount: 200}}

	weekly, err := Filter{Period: PeriodWeekly}.Resolve(asOf, time.UTC)
	require.NoError(t, err)
	dash := BuildDashboard(DashboardInput{Snapshot: snap, Window: weekly, Location: time.UTC})

	require.Equal(t, 5100.0, dash.Sales)
	require.Equal(t, 3, dash.Invoices)
	require.Equal(t, 1, dash.Quotations)
	require.Equal(t, 900.0, dash.QuotationValue)
	require.Equal(t, 6350.0, dash.Collected)
	require.Equal(t, 3000.0, dash.ReceivablesDue)
	require.Equal(t, 500.0, dash.PayablesDue)
	require.Len(t, dash.Graph, 7)
}

func TestBuildersAreIdempotent(t *testing.T) {
	snap := fixtureSnapshot()
	dir := snap.Directory()
	products := snap.ProductIndex()

	accounts := BuildAccounts(snap.Bills, dir, "")
	require.Equal(t, accounts, BuildAccounts(snap.Bills, dir, ""))
	require.Equal(t, BuildAging(accounts.Rows, asOf, time.UTC), BuildAging(accounts.Rows, asOf, time.UTC))
	require.Equal(t, BuildProfitLoss(snap.Bills, products, dir, ""), BuildProfitLoss(snap.Bills, products, dir, ""))
	require.Equal(t, BuildCollections(snap.Bills, dir, Window{}, "", time.UTC), BuildCollections(snap.Bills, dir, Window{}, "", time.UTC))
	require.Equal(t, BuildBillRegister(snap.Bills, dir), BuildBillRegister(snap.Bills, dir))

	in := DashboardInput{Snapshot: snap, Location: time.UTC}
	require.Equal(t, BuildDashboard(in), BuildDashboard(in))
}
