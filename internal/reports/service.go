package reports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopledger/shopledger/internal/billing"
)

// ErrSourceUnavailable wraps every failure to load a snapshot.
var ErrSourceUnavailable = errors.New("reports: source unavailable")

// Source loads the canonical snapshot the builders run on.
type Source interface {
	Load(ctx context.Context) (billing.Snapshot, error)
}

// Observer receives build timings.
type Observer interface {
	ObserveReport(report string, elapsed time.Duration)
}

// Options tunes a Service.
type Options struct {
	Location *time.Location
	Basis    RevenueBasis
	Now      func() time.Time
	Logger   *slog.Logger
	Observer Observer
}

// Service loads a fresh snapshot per call and runs the builders over it.
// Aggregates are never cached.
type Service struct {
	source   Source
	loc      *time.Location
	basis    RevenueBasis
	now      func() time.Time
	logger   *slog.Logger
	observer Observer
}

// NewService wires a Source with the reporting options.
func NewService(source Source, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Basis == "" {
		opts.Basis = DefaultRevenueBasis
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		source:   source,
		loc:      opts.Location,
		basis:    opts.Basis,
		now:      opts.Now,
		logger:   opts.Logger,
		observer: opts.Observer,
	}
}

// Location returns the reporting time zone.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Basis returns the configured revenue basis.
func (s *Service) Basis() RevenueBasis {
	return s.basis
}

func (s *Service) prepare(ctx context.Context, filter Filter) (billing.Snapshot, Window, error) {
	window, err := filter.Resolve(s.now(), s.loc)
	if err != nil {
		return billing.Snapshot{}, Window{}, err
	}
	snap, err := s.source.Load(ctx)
	if err != nil {
		s.logger.Error("load snapshot", slog.Any("error", err))
		return billing.Snapshot{}, Window{}, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	return filter.Narrow(snap), window, nil
}

func (s *Service) observe(report string, started time.Time) {
	if s.observer != nil {
		s.observer.ObserveReport(report, time.Since(started))
	}
}

// Dashboard builds the headline figures.
func (s *Service) Dashboard(ctx context.Context, filter Filter) (Dashboard, error) {
	snap, window, err := s.prepare(ctx, filter)
	if err != nil {
		return Dashboard{}, err
	}
	defer s.observe("dashboard", time.Now())
	return BuildDashboard(DashboardInput{Snapshot: snap, Window: window, Basis: s.basis, Location: s.loc}), nil
}

// Bills builds the bill register for bills dated inside the window.
func (s *Service) Bills(ctx context.Context, filter Filter) (BillRegister, error) {
	snap, window, err := s.prepare(ctx, filter)
	if err != nil {
		return BillRegister{}, err
	}
	defer s.observe("bills", time.Now())
	return BuildBillRegister(BillsIn(snap.Bills, window), snap.Directory()), nil
}

// Accounts builds account balances over the bills dated inside the window.
func (s *Service) Accounts(ctx context.Context, filter Filter, kind billing.PartyKind) (AccountReport, error) {
	snap, window, err := s.prepare(ctx, filter)
	if err != nil {
		return AccountReport{}, err
	}
	defer s.observe("accounts", time.Now())
	return BuildAccounts(BillsIn(snap.Bills, window), snap.Directory(), kind), nil
}

// Aging ages the current receivables as of now. The period is not applied:
// an outstanding balance is outstanding whenever it was billed.
func (s *Service) Aging(ctx context.Context, filter Filter) (AgingReport, error) {
	snap, _, err := s.prepare(ctx, filter)
	if err != nil {
		return AgingReport{}, err
	}
	defer s.observe("aging", time.Now())
	accounts := BuildAccounts(snap.Bills, snap.Directory(), "")
	return BuildAging(accounts.Rows, s.now(), s.loc), nil
}

// ProfitLoss builds the statement for invoices dated inside the window.
func (s *Service) ProfitLoss(ctx context.Context, filter Filter) (ProfitReport, error) {
	snap, window, err := s.prepare(ctx, filter)
	if err != nil {
		return ProfitReport{}, err
	}
	defer s.observe("profit_loss", time.Now())
	return BuildProfitLoss(BillsIn(snap.Bills, window), snap.ProductIndex(), snap.Directory(), s.basis), nil
}

// Collections builds the payment breakdown for payments received inside the
// window.
func (s *Service) Collections(ctx context.Context, filter Filter) (CollectionReport, error) {
	snap, window, err := s.prepare(ctx, filter)
	if err != nil {
		return CollectionReport{}, err
	}
	defer s.observe("collections", time.Now())
	return BuildCollections(snap.Bills, snap.Directory(), window, filter.PaymentMode, s.loc), nil
}

// Payables builds supplier balances for orders placed inside the window.
func (s *Service) Payables(ctx context.Context, filter Filter) (AccountReport, error) {
	snap, window, err := s.prepare(ctx, filter)
	if err != nil {
		return AccountReport{}, err
	}
	defer s.observe("payables", time.Now())
	return BuildPayables(snap.PurchaseOrders, snap.Directory(), window), nil
}
