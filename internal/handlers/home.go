package handlers

import (
	"log/slog"
	"net/http"

	"github.com/adirathodd/titan-trading/internal/session"
)

// HomeHandler renders the landing page and the health probe.
type HomeHandler struct {
	templates TemplateCache
	store     *session.Store
	log       *slog.Logger
}

// NewHomeHandler creates a new HomeHandler.
func NewHomeHandler(templates TemplateCache, store *session.Store, log *slog.Logger) *HomeHandler {
	return &HomeHandler{templates: templates, store: store, log: log}
}

// Home renders the landing page. Authenticated users get a greeting and a
// jump to the dashboard; everyone else gets the login and register links.
func (h *HomeHandler) Home(w http.ResponseWriter, r *http.Request) {
	state := h.store.State()
	render(h.log, h.templates, w, "welcome.html", map[string]any{
		"Title":         "Titan Trading",
		"Authenticated": state.Authenticated,
		"Username":      state.Username,
	})
}

// Health reports liveness.
func (h *HomeHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
