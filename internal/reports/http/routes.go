package reporthttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/shopledger/shopledger/internal/platform/httpx"
)

// MountRoutes registers the report endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(h.exportLimit, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "export rate limit reached")
		}),
	)

	r.Get("/dashboard", h.handleDashboard())
	r.Get("/bills", h.handleBills())
	r.Get("/accounts", h.handleAccounts())
	r.Get("/receivables/aging", h.handleAging())
	r.Get("/profit-loss", h.handleProfitLoss())
	r.Get("/collections", h.handleCollections())
	r.Get("/collections/chart.svg", h.handleCollectionsChart)
	r.Get("/payables", h.handlePayables())
	r.Post("/cache/bump", h.handleCacheBump)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/{report}/export.{format}", h.handleExport)
		gr.Post("/exports", h.handleEnqueueExport)
	})
}
