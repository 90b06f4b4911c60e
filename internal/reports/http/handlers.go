// Package reporthttp exposes the report builders over HTTP.
package reporthttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/shopledger/shopledger/internal/billing"
	"github.com/shopledger/shopledger/internal/platform/httpx"
	"github.com/shopledger/shopledger/internal/reports"
	"github.com/shopledger/shopledger/internal/reports/export"
	"github.com/shopledger/shopledger/internal/reports/svg"
	"github.com/shopledger/shopledger/jobs"
)

const defaultRequestTimeout = 30 * time.Second

// ReportService defines the report contract used by the handler.
type ReportService interface {
	Dashboard(ctx context.Context, filter reports.Filter) (reports.Dashboard, error)
	Bills(ctx context.Context, filter reports.Filter) (reports.BillRegister, error)
	Accounts(ctx context.Context, filter reports.Filter, kind billing.PartyKind) (reports.AccountReport, error)
	Aging(ctx context.Context, filter reports.Filter) (reports.AgingReport, error)
	ProfitLoss(ctx context.Context, filter reports.Filter) (reports.ProfitReport, error)
	Collections(ctx context.Context, filter reports.Filter) (reports.CollectionReport, error)
	Payables(ctx context.Context, filter reports.Filter) (reports.AccountReport, error)
	Table(ctx context.Context, kind reports.Kind, filter reports.Filter, partyKind billing.PartyKind) (reports.Table, error)
	Location() *time.Location
}

// Enqueuer submits asynchronous exports.
type Enqueuer interface {
	EnqueueExport(ctx context.Context, payload jobs.ExportPayload) (*asynq.TaskInfo, error)
}

// CacheBumper invalidates the snapshot cache.
type CacheBumper interface {
	Bump(ctx context.Context) (int64, error)
}

// Options tunes the handler. Zero values pick defaults.
type Options struct {
	Timeout         time.Duration
	ExportRateLimit int
	Exports         Enqueuer
	Cache           CacheBumper
}

// Handler coordinates HTTP requests for the reports API.
type Handler struct {
	logger      *slog.Logger
	service     ReportService
	exports     Enqueuer
	cache       CacheBumper
	timeout     time.Duration
	exportLimit int
	bufPool     sync.Pool
	now         func() time.Time
	newID       func() string
}

// NewHandler constructs the reports HTTP handler.
func NewHandler(logger *slog.Logger, service ReportService, opts Options) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultRequestTimeout
	}
	if opts.ExportRateLimit <= 0 {
		opts.ExportRateLimit = 10
	}
	h := &Handler{
		logger:      logger,
		service:     service,
		exports:     opts.Exports,
		cache:       opts.Cache,
		timeout:     opts.Timeout,
		exportLimit: opts.ExportRateLimit,
		now:         time.Now,
		newID:       func() string { return uuid.NewString() },
	}
	h.bufPool.New = func() any { return new(bytes.Buffer) }
	return h
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

func (h *Handler) parseQuery(r *http.Request) (reports.Filter, billing.PartyKind, error) {
	q := r.URL.Query()
	return reports.Query{
		Period:      q.Get("period"),
		From:        q.Get("from"),
		To:          q.Get("to"),
		BranchID:    q.Get("branch_id"),
		CustomerID:  q.Get("customer_id"),
		PaymentMode: q.Get("payment_mode"),
		Kind:        q.Get("kind"),
	}.Filter(h.service.Location())
}

// serveJSON adapts a report builder into a JSON endpoint.
func serveJSON[T any](h *Handler, name string, build func(ctx context.Context, f reports.Filter, kind billing.PartyKind) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, kind, err := h.parseQuery(r)
		if err != nil {
			h.respondError(w, name, err)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		report, err := build(ctx, filter, kind)
		if err != nil {
			h.respondError(w, name, err)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		httpx.JSON(w, http.StatusOK, report)
	}
}

func (h *Handler) handleDashboard() http.HandlerFunc {
	return serveJSON(h, "dashboard", func(ctx context.Context, f reports.Filter, _ billing.PartyKind) (reports.Dashboard, error) {
		return h.service.Dashboard(ctx, f)
	})
}

func (h *Handler) handleBills() http.HandlerFunc {
	return serveJSON(h, "bills", func(ctx context.Context, f reports.Filter, _ billing.PartyKind) (reports.BillRegister, error) {
		return h.service.Bills(ctx, f)
	})
}

func (h *Handler) handleAccounts() http.HandlerFunc {
	return serveJSON(h, "accounts", h.service.Accounts)
}

func (h *Handler) handleAging() http.HandlerFunc {
	return serveJSON(h, "aging", func(ctx context.Context, f reports.Filter, _ billing.PartyKind) (reports.AgingReport, error) {
		return h.service.Aging(ctx, f)
	})
}

func (h *Handler) handleProfitLoss() http.HandlerFunc {
	return serveJSON(h, "profit-loss", func(ctx context.Context, f reports.Filter, _ billing.PartyKind) (reports.ProfitReport, error) {
		return h.service.ProfitLoss(ctx, f)
	})
}

func (h *Handler) handleCollections() http.HandlerFunc {
	return serveJSON(h, "collections", func(ctx context.Context, f reports.Filter, _ billing.PartyKind) (reports.CollectionReport, error) {
		return h.service.Collections(ctx, f)
	})
}

func (h *Handler) handlePayables() http.HandlerFunc {
	return serveJSON(h, "payables", func(ctx context.Context, f reports.Filter, _ billing.PartyKind) (reports.AccountReport, error) {
		return h.service.Payables(ctx, f)
	})
}

func (h *Handler) handleCollectionsChart(w http.ResponseWriter, r *http.Request) {
	filter, _, err := h.parseQuery(r)
	if err != nil {
		h.respondError(w, "collections chart", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	report, err := h.service.Collections(ctx, filter)
	if err != nil {
		h.respondError(w, "collections chart", err)
		return
	}
	chart, err := svg.Collections(report.Graph, svg.Opts{
		Title:       "Collections",
		Description: fmt.Sprintf("Payments collected, total %s", reports.FormatAmount(report.Summary.TotalCollected)),
		ShowDots:    true,
	})
	if err != nil {
		h.respondError(w, "render chart", err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write([]byte(chart)); err != nil {
		h.logError("stream chart", err)
	}
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	kind, err := reports.ParseKind(chi.URLParam(r, "report"))
	if err != nil {
		h.respondError(w, "export", err)
		return
	}
	format, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		h.respondError(w, "export", err)
		return
	}
	filter, partyKind, err := h.parseQuery(r)
	if err != nil {
		h.respondError(w, "export", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	table, err := h.service.Table(ctx, kind, filter, partyKind)
	if err != nil {
		h.respondError(w, "export", err)
		return
	}

	buf := h.bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.bufPool.Put(buf)
	}()

	generated := h.now().In(h.service.Location())
	if err := export.Write(buf, format, table, generated); err != nil {
		h.respondError(w, "render export", err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(kind, format, generated)))
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream export", err)
	}
}

type exportRequest struct {
	Report string `json:"report"`
	Format string `json:"format"`
	reports.Query
}

type exportAccepted struct {
	JobID  string `json:"jobId"`
	Report string `json:"report"`
	Format string `json:"format"`
	Queue  string `json:"queue"`
}

func (h *Handler) handleEnqueueExport(w http.ResponseWriter, r *http.Request) {
	if h.exports == nil {
		httpx.RespondError(w, fmt.Errorf("%w: background exports are not configured", httpx.ErrUnavailable))
		return
	}
	var req exportRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	kind, err := reports.ParseKind(req.Report)
	if err != nil {
		h.respondError(w, "enqueue export", err)
		return
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		h.respondError(w, "enqueue export", err)
		return
	}
	if _, _, err := req.Query.Filter(h.service.Location()); err != nil {
		h.respondError(w, "enqueue export", err)
		return
	}

	payload := jobs.ExportPayload{
		JobID:       h.newID(),
		Report:      string(kind),
		Format:      string(format),
		Query:       req.Query.Canonical(),
		RequestedAt: h.now().UTC(),
	}
	info, err := h.exports.EnqueueExport(r.Context(), payload)
	if err != nil {
		h.respondError(w, "enqueue export", err)
		return
	}
	h.logger.Info("export queued", slog.String("job_id", payload.JobID), slog.String("report", payload.Report), slog.String("format", payload.Format))
	queue := jobs.QueueDefault
	if info != nil {
		queue = info.Queue
	}
	httpx.JSON(w, http.StatusAccepted, exportAccepted{JobID: payload.JobID, Report: payload.Report, Format: payload.Format, Queue: queue})
}

func (h *Handler) handleCacheBump(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		httpx.RespondError(w, fmt.Errorf("%w: snapshot cache is disabled", httpx.ErrUnavailable))
		return
	}
	version, err := h.cache.Bump(r.Context())
	if err != nil {
		h.respondError(w, "bump cache", err)
		return
	}
	h.logger.Info("snapshot cache bumped", slog.Int64("version", version))
	httpx.JSON(w, http.StatusOK, map[string]int64{"version": version})
}

// respondError maps report errors onto problem responses.
func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, reports.ErrInvalidFilter):
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrValidation, err))
	case errors.Is(err, reports.ErrUnknownReport), errors.Is(err, export.ErrUnsupportedFormat):
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrNotFound, err))
	case errors.Is(err, reports.ErrSourceUnavailable):
		h.logger.Warn(op, slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrUpstream, err))
	default:
		h.logError(op, err)
		httpx.RespondError(w, err)
	}
}

func (h *Handler) logError(op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
}
