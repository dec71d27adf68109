package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all stats routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/portfolios/{id}/stats", h.HandleGetHistory)
	r.Post("/stats/refresh", h.HandleRefresh)
}
