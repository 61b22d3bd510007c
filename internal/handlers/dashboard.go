package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/adirathodd/titan-trading/internal/api"
	apperrors "github.com/adirathodd/titan-trading/internal/errors"
	"github.com/adirathodd/titan-trading/internal/portfolio"
	"github.com/adirathodd/titan-trading/internal/session"
)

// DashboardHandler renders the portfolio overview.
type DashboardHandler struct {
	templates TemplateCache
	client    *api.Client
	store     *session.Store
	log       *slog.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(templates TemplateCache, client *api.Client, store *session.Store, log *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		templates: templates,
		client:    client,
		store:     store,
		log:       log,
	}
}

// Dashboard renders the dashboard with portfolio history and holdings.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	resp, err := h.client.Dashboard(r.Context())
	if err != nil {
		h.log.Error("load dashboard", "error", err)
		render(h.log, h.templates, w, "dashboard.html", map[string]any{
			"Title":    "Dashboard",
			"Username": h.store.Username(),
			"Cash":     h.store.Cash(),
			"Error":    apperrors.Message(err, "Failed to load portfolio data."),
		})
		return
	}

	summary := portfolio.Summarize(resp.PortfolioHistory)

	// Serialized once for the inline chart script.
	chartJSON, err := json.Marshal(resp.PortfolioHistory)
	if err != nil {
		h.log.Error("encode portfolio history", "error", err)
		chartJSON = []byte("[]")
	}

	render(h.log, h.templates, w, "dashboard.html", map[string]any{
		"Title":         "Dashboard",
		"Username":      h.store.Username(),
		"Cash":          h.store.Cash(),
		"Holdings":      resp.CurrentHoldings,
		"HoldingsValue": portfolio.HoldingsValue(resp.CurrentHoldings),
		"CurrentValue":  summary.CurrentValue,
		"ChangePercent": summary.ChangePercent,
		"ChartData":     string(chartJSON),
	})
}
