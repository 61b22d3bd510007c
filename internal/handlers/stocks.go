package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/adirathodd/titan-trading/internal/market"
	"github.com/adirathodd/titan-trading/internal/session"
	"github.com/adirathodd/titan-trading/internal/storage"
)

// StockHandler renders the per-ticker trading page and accepts trade
// submissions.
type StockHandler struct {
	templates TemplateCache
	registry  *market.Registry
	store     *session.Store
	journal   *storage.TradeJournal
	log       *slog.Logger
}

// NewStockHandler creates a new StockHandler.
func NewStockHandler(
	templates TemplateCache,
	registry *market.Registry,
	store *session.Store,
	journal *storage.TradeJournal,
	log *slog.Logger,
) *StockHandler {
	return &StockHandler{
		templates: templates,
		registry:  registry,
		store:     store,
		journal:   journal,
		log:       log,
	}
}

// StockPage renders the trading view for one ticker. An optional period
// query parameter switches the chart range before rendering.
func (h *StockHandler) StockPage(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "ticker"))
	ctrl := h.registry.Get(symbol)

	if period := r.URL.Query().Get("period"); period != "" {
		if err := ctrl.SetPeriod(r.Context(), period); err != nil {
			h.log.Warn("set period", "symbol", symbol, "period", period, "error", err)
		}
	}

	view := ctrl.View()

	trades, err := h.journal.Recent(symbol, 10)
	if err != nil {
		h.log.Error("load recent trades", "symbol", symbol, "error", err)
	}

	chartJSON := []byte("null")
	if view.History != nil {
		if b, err := json.Marshal(view.History); err == nil {
			chartJSON = b
		}
	}

	render(h.log, h.templates, w, "stock.html", map[string]any{
		"Title":     symbol,
		"Username":  h.store.Username(),
		"Cash":      h.store.Cash(),
		"View":      view,
		"Periods":   market.Periods,
		"Trades":    trades,
		"ChartData": string(chartJSON),
	})
}

// Buy submits a buy order for the ticker and redirects back to its page.
// Quantity problems surface through the view's message center, so the
// redirect target shows the outcome either way.
func (h *StockHandler) Buy(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "ticker"))
	ctrl := h.registry.Get(symbol)

	// A submitted trade runs to completion even if the client disconnects;
	// the confirmed balance must be applied once the server executes it.
	qty := parseQuantity(r)
	if err := ctrl.Buy(context.WithoutCancel(r.Context()), qty); err != nil {
		h.log.Warn("buy order", "symbol", symbol, "quantity", qty, "error", err)
	}

	http.Redirect(w, r, "/stocks/"+symbol, http.StatusSeeOther)
}

// Sell submits a sell order for the ticker and redirects back to its page.
func (h *StockHandler) Sell(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "ticker"))
	ctrl := h.registry.Get(symbol)

	qty := parseQuantity(r)
	if err := ctrl.Sell(context.WithoutCancel(r.Context()), qty); err != nil {
		h.log.Warn("sell order", "symbol", symbol, "quantity", qty, "error", err)
	}

	http.Redirect(w, r, "/stocks/"+symbol, http.StatusSeeOther)
}

// parseQuantity reads the quantity form field. Unparseable input becomes
// zero, which the controller rejects with a user-facing message.
func parseQuantity(r *http.Request) float64 {
	if err := r.ParseForm(); err != nil {
		return 0
	}
	qty, err := strconv.ParseFloat(strings.TrimSpace(r.FormValue("quantity")), 64)
	if err != nil {
		return 0
	}
	return qty
}
