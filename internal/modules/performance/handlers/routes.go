package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all performance routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/portfolios/{id}/performance/weekly", h.HandleGetWeekly)
	r.Get("/portfolios/{id}/performance/metrics", h.HandleGetMetrics)
	r.Get("/portfolios/{id}/performance/vs-benchmark", h.HandleGetVsBenchmark)
}
