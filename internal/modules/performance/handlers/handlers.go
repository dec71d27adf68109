// Package handlers provides HTTP handlers for performance analytics.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/quantply/fundsim/internal/domain"
	"github.com/quantply/fundsim/internal/modules/marketdata"
	"github.com/quantply/fundsim/internal/modules/performance"
	"github.com/quantply/fundsim/internal/utils"
)

// Handler handles performance HTTP requests
type Handler struct {
	service *performance.Service
	cache   *performance.Cache
	series  *marketdata.SeriesRepository
	log     zerolog.Logger
}

// NewHandler creates a new performance handler
func NewHandler(
	service *performance.Service,
	cache *performance.Cache,
	series *marketdata.SeriesRepository,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service: service,
		cache:   cache,
		series:  series,
		log:     log.With().Str("handler", "performance").Logger(),
	}
}

// HandleGetWeekly returns the Monday-to-Monday valuation series
func (h *Handler) HandleGetWeekly(w http.ResponseWriter, r *http.Request) {
	portfolioID, start, end, ok := h.rangeParams(w, r)
	if !ok {
		return
	}

	points, err := h.service.WeeklyReturns(portfolioID, start, end)
	if err != nil {
		h.writeRangeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, points)
}

// HandleGetMetrics returns performance metrics for a date range, served
// from the cache when fresh
func (h *Handler) HandleGetMetrics(w http.ResponseWriter, r *http.Request) {
	portfolioID, start, end, ok := h.rangeParams(w, r)
	if !ok {
		return
	}

	key := performance.MetricsKey(
		portfolioID,
		utils.MidnightUTC(start).Format(utils.DateLayout),
		utils.MidnightUTC(end).Format(utils.DateLayout),
	)

	if cached, err := h.cache.Get(key); err != nil {
		h.log.Warn().Err(err).Msg("Metrics cache read failed")
	} else if cached != nil {
		h.writeJSON(w, http.StatusOK, cached)
		return
	}

	metrics, err := h.service.ComputeMetrics(portfolioID, start, end)
	if err != nil {
		h.writeRangeError(w, err)
		return
	}

	if err := h.cache.Put(key, metrics); err != nil {
		h.log.Warn().Err(err).Msg("Metrics cache write failed")
	}

	h.writeJSON(w, http.StatusOK, metrics)
}

// HandleGetVsBenchmark regresses the portfolio against a benchmark ticker
func (h *Handler) HandleGetVsBenchmark(w http.ResponseWriter, r *http.Request) {
	portfolioID, start, end, ok := h.rangeParams(w, r)
	if !ok {
		return
	}

	ticker := r.URL.Query().Get("ticker")
	if ticker == "" {
		h.writeError(w, http.StatusBadRequest, "missing benchmark ticker")
		return
	}

	benchmarkReturns, err := performance.BenchmarkWeeklyReturns(h.series, ticker, start, end)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	comparison, err := h.service.CompareToBenchmark(portfolioID, ticker, benchmarkReturns, start, end)
	if err != nil {
		h.writeRangeError(w, err)
		return
	}
	if comparison == nil {
		h.writeError(w, http.StatusNotFound, "no overlapping weeks with benchmark")
		return
	}

	h.writeJSON(w, http.StatusOK, comparison)
}

// rangeParams extracts the portfolio id and [start, end] range. The range
// defaults to the trailing year.
func (h *Handler) rangeParams(w http.ResponseWriter, r *http.Request) (int64, time.Time, time.Time, bool) {
	portfolioID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid portfolio id")
		return 0, time.Time{}, time.Time{}, false
	}

	end := time.Now().UTC()
	start := end.AddDate(-1, 0, 0)

	if s := r.URL.Query().Get("start"); s != "" {
		start, err = utils.ParseDate(s)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid start date, expected YYYY-MM-DD")
			return 0, time.Time{}, time.Time{}, false
		}
	}
	if s := r.URL.Query().Get("end"); s != "" {
		end, err = utils.ParseDate(s)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid end date, expected YYYY-MM-DD")
			return 0, time.Time{}, time.Time{}, false
		}
	}

	return portfolioID, start, end, true
}

func (h *Handler) writeRangeError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrEmptyRange) {
		h.writeError(w, http.StatusBadRequest, "date range contains no Mondays")
		return
	}
	h.writeError(w, http.StatusInternalServerError, err.Error())
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
