// Package handlers provides HTTP handlers for strategy execution.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/quantply/fundsim/internal/modules/catalog"
	"github.com/quantply/fundsim/internal/modules/strategy"
	"github.com/quantply/fundsim/internal/utils"
)

// Handler handles strategy HTTP requests
type Handler struct {
	service *strategy.Service
	clients *catalog.ClientRepository
	log     zerolog.Logger
}

// NewHandler creates a new strategy handler
func NewHandler(service *strategy.Service, clients *catalog.ClientRepository, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		clients: clients,
		log:     log.With().Str("handler", "strategy").Logger(),
	}
}

// HandleRun executes one decision epoch for every portfolio. The epoch
// defaults to the most recent Monday.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	date, err := epochParam(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	results, err := h.service.RunAll(date)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, results)
}

// HandleCatchUp replays the trailing weeks of epochs
func (h *Handler) HandleCatchUp(w http.ResponseWriter, r *http.Request) {
	weeks := 4
	if s := r.URL.Query().Get("weeks"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed < 1 || parsed > 52 {
			h.writeError(w, http.StatusBadRequest, "weeks must be between 1 and 52")
			return
		}
		weeks = parsed
	}

	results, err := h.service.CatchUp(time.Now().UTC(), weeks)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, results)
}

// HandlePreviewDecisions generates decisions for one portfolio without
// recording them
func (h *Handler) HandlePreviewDecisions(w http.ResponseWriter, r *http.Request) {
	portfolioID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid portfolio id")
		return
	}

	date, err := epochParam(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	portfolio, err := h.clients.GetPortfolio(portfolioID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if portfolio == nil {
		h.writeError(w, http.StatusNotFound, "portfolio not found")
		return
	}

	decisions, err := h.service.Decide(*portfolio, date)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"portfolio_id": portfolioID,
		"date":         utils.MidnightUTC(date).Format(utils.DateLayout),
		"decisions":    decisions,
	})
}

// epochParam reads the epoch date, defaulting to the most recent Monday
func epochParam(r *http.Request) (time.Time, error) {
	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		return utils.PreviousMonday(time.Now().UTC()), nil
	}
	return utils.ParseDate(dateStr)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
