// Package handlers provides HTTP handlers for the instrument and client catalog.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/quantply/fundsim/internal/modules/catalog"
)

// Handler handles catalog HTTP requests
type Handler struct {
	instruments *catalog.InstrumentRepository
	clients     *catalog.ClientRepository
	allocations *catalog.AllocationRepository
	log         zerolog.Logger
}

// NewHandler creates a new catalog handler
func NewHandler(
	instruments *catalog.InstrumentRepository,
	clients *catalog.ClientRepository,
	allocations *catalog.AllocationRepository,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		instruments: instruments,
		clients:     clients,
		allocations: allocations,
		log:         log.With().Str("handler", "catalog").Logger(),
	}
}

// HandleListInstruments returns the full instrument universe
func (h *Handler) HandleListInstruments(w http.ResponseWriter, r *http.Request) {
	instruments, err := h.instruments.GetAll()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, instruments)
}

// HandleListClients returns all clients
func (h *Handler) HandleListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.clients.GetAllClients()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, clients)
}

// HandleListPortfolios returns all portfolios
func (h *Handler) HandleListPortfolios(w http.ResponseWriter, r *http.Request) {
	portfolios, err := h.clients.GetAllPortfolios()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, portfolios)
}

// HandleGetPortfolio returns one portfolio with its allocated tickers
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	portfolioID, err := portfolioIDParam(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid portfolio id")
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

	tickers, err := h.allocations.TickersForPortfolio(portfolioID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"portfolio":   portfolio,
		"allocations": tickers,
	})
}

func portfolioIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
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
