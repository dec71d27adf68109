package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all ledger routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/portfolios/{id}/events", h.HandleGetEvents)
	r.Get("/portfolios/{id}/positions", h.HandleGetPositions)
	r.Get("/portfolios/{id}/holdings", h.HandleGetHoldings)
	r.Post("/portfolios/{id}/holdings/rebuild", h.HandleRebuildHoldings)
}
