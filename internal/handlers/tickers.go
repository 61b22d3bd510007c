package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/adirathodd/titan-trading/internal/api"
)

// TickersHandler proxies the autocomplete endpoint for the search box.
type TickersHandler struct {
	client *api.Client
	log    *slog.Logger
}

// NewTickersHandler creates a new TickersHandler.
func NewTickersHandler(client *api.Client, log *slog.Logger) *TickersHandler {
	return &TickersHandler{client: client, log: log}
}

// Search returns ticker suggestions for the query parameter as JSON.
func (h *TickersHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))

	w.Header().Set("Content-Type", "application/json")

	if query == "" {
		w.Write([]byte("[]"))
		return
	}

	suggestions, err := h.client.SearchTickers(r.Context(), query)
	if err != nil {
		h.log.Error("ticker search", "query", query, "error", err)
		http.Error(w, `{"error":"search failed"}`, http.StatusBadGateway)
		return
	}
	if suggestions == nil {
		suggestions = []api.TickerSuggestion{}
	}

	if err := json.NewEncoder(w).Encode(suggestions); err != nil {
		h.log.Error("encode suggestions", "error", err)
	}
}
