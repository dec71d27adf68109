package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all strategy routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/strategy/run", h.HandleRun)
	r.Post("/strategy/catchup", h.HandleCatchUp)
	r.Get("/portfolios/{id}/decisions", h.HandlePreviewDecisions)
}
