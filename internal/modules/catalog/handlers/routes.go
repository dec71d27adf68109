package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all catalog routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/instruments", h.HandleListInstruments)
	r.Get("/clients", h.HandleListClients)
	r.Get("/portfolios", h.HandleListPortfolios)
	r.Get("/portfolios/{id}", h.HandleGetPortfolio)
}
