// Package handlers provides HTTP handlers for the trade-event ledger.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/quantply/fundsim/internal/modules/ledger"
	"github.com/quantply/fundsim/internal/utils"
)

// Handler handles ledger HTTP requests
type Handler struct {
	events        *ledger.TradeEventRepository
	holdings      *ledger.HoldingsRepository
	reconstructor *ledger.Reconstructor
	log           zerolog.Logger
}

// NewHandler creates a new ledger handler
func NewHandler(
	events *ledger.TradeEventRepository,
	holdings *ledger.HoldingsRepository,
	reconstructor *ledger.Reconstructor,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		events:        events,
		holdings:      holdings,
		reconstructor: reconstructor,
		log:           log.With().Str("handler", "ledger").Logger(),
	}
}

// HandleGetEvents returns a portfolio's trade events, optionally limited to
// a [start, end] date range
func (h *Handler) HandleGetEvents(w http.ResponseWriter, r *http.Request) {
	portfolioID, err := portfolioIDParam(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid portfolio id")
		return
	}

	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" && endStr == "" {
		events, err := h.events.GetAll(portfolioID)
		if err != nil {
			h.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		h.writeJSON(w, http.StatusOK, events)
		return
	}

	start, err := utils.ParseDate(startStr)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid start date, expected YYYY-MM-DD")
		return
	}
	end, err := utils.ParseDate(endStr)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid end date, expected YYYY-MM-DD")
		return
	}

	events, err := h.events.GetAllInRange(portfolioID, start, end)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, events)
}

// HandleGetPositions returns ledger-reconstructed positions as of a date
// (today when the date parameter is absent)
func (h *Handler) HandleGetPositions(w http.ResponseWriter, r *http.Request) {
	portfolioID, err := portfolioIDParam(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid portfolio id")
		return
	}

	asOf, err := asOfParam(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	positions, err := h.reconstructor.Positions(portfolioID, asOf)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"portfolio_id": portfolioID,
		"date":         utils.MidnightUTC(asOf).Format(utils.DateLayout),
		"positions":    positions,
	})
}

// HandleGetHoldings returns the persisted holdings snapshot
func (h *Handler) HandleGetHoldings(w http.ResponseWriter, r *http.Request) {
	portfolioID, err := portfolioIDParam(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid portfolio id")
		return
	}

	holdings, err := h.holdings.GetByPortfolio(portfolioID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, holdings)
}

// HandleRebuildHoldings recomputes the holdings snapshot from the ledger
func (h *Handler) HandleRebuildHoldings(w http.ResponseWriter, r *http.Request) {
	portfolioID, err := portfolioIDParam(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid portfolio id")
		return
	}

	if err := h.holdings.Rebuild(portfolioID); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	holdings, err := h.holdings.GetByPortfolio(portfolioID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, holdings)
}

func portfolioIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func asOfParam(r *http.Request) (time.Time, error) {
	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		return time.Now().UTC(), nil
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
