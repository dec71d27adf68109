package valuation

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantply/fundsim/internal/modules/ledger"
	"github.com/quantply/fundsim/internal/modules/marketdata"
	"github.com/quantply/fundsim/internal/utils"
)

// PositionValue is one priced position in a portfolio snapshot
type PositionValue struct {
	Ticker      string  `json:"ticker"`
	Quantity    int64   `json:"quantity"`
	Close       float64 `json:"close"`
	PriceDate   string  `json:"price_date"`
	MarketValue float64 `json:"market_value"`
	Weight      float64 `json:"weight"` // fraction of priced total, [0,1]
}

// Snapshot is a point-in-time valuation of a portfolio
type Snapshot struct {
	PortfolioID int64           `json:"portfolio_id"`
	Date        string          `json:"date"`
	TotalValue  float64         `json:"total_value"`
	DailyReturn *float64        `json:"daily_return,omitempty"` // value-weighted, nil when unpriceable
	Positions   []PositionValue `json:"positions"`
	Unpriced    []string        `json:"unpriced,omitempty"` // held but without any usable price
}

// Service values portfolios by combining ledger-reconstructed positions with
// the most recent stored close at or before the valuation date. Positions
// without any usable price are reported, not silently dropped, and never
// contribute to the total.
type Service struct {
	reconstructor *ledger.Reconstructor
	series        *marketdata.SeriesRepository
	log           zerolog.Logger
}

// NewService creates a new valuation service
func NewService(reconstructor *ledger.Reconstructor, series *marketdata.SeriesRepository, log zerolog.Logger) *Service {
	return &Service{
		reconstructor: reconstructor,
		series:        series,
		log:           log.With().Str("service", "valuation").Logger(),
	}
}

// Composition values every open position as of a date and computes each
// position's weight within the priced total
func (s *Service) Composition(portfolioID int64, asOf time.Time) (*Snapshot, error) {
	positions, err := s.reconstructor.Positions(portfolioID, asOf)
	if err != nil {
		return nil, err
	}

	snapshot := &Snapshot{
		PortfolioID: portfolioID,
		Date:        utils.MidnightUTC(asOf).Format(utils.DateLayout),
		Positions:   []PositionValue{},
	}

	var weightedReturn float64
	var haveReturn bool

	for _, ticker := range sortedTickers(positions) {
		qty := positions[ticker]

		bar, err := s.series.LatestBar(ticker, asOf)
		if err != nil {
			return nil, err
		}
		if bar == nil {
			snapshot.Unpriced = append(snapshot.Unpriced, ticker)
			s.log.Warn().
				Int64("portfolio_id", portfolioID).
				Str("ticker", ticker).
				Str("date", snapshot.Date).
				Msg("No price available for held position")
			continue
		}

		value := float64(qty) * bar.Close
		snapshot.Positions = append(snapshot.Positions, PositionValue{
			Ticker:      ticker,
			Quantity:    qty,
			Close:       bar.Close,
			PriceDate:   bar.Date.Format(utils.DateLayout),
			MarketValue: value,
		})
		snapshot.TotalValue += value

		if bar.Return != nil {
			weightedReturn += value * *bar.Return
			haveReturn = true
		}
	}

	if snapshot.TotalValue > 0 {
		for i := range snapshot.Positions {
			snapshot.Positions[i].Weight = snapshot.Positions[i].MarketValue / snapshot.TotalValue
		}
		// Weighted against the full priced value: a position without a
		// stored daily return still dilutes the portfolio figure
		if haveReturn {
			r := weightedReturn / snapshot.TotalValue
			snapshot.DailyReturn = &r
		}
	}

	return snapshot, nil
}

// ValueAndReturn computes a portfolio's total market value and value-weighted
// daily return as of a date. A portfolio with no priceable positions values
// to zero with a nil return.
func (s *Service) ValueAndReturn(portfolioID int64, asOf time.Time) (float64, *float64, error) {
	snapshot, err := s.Composition(portfolioID, asOf)
	if err != nil {
		return 0, nil, err
	}
	return snapshot.TotalValue, snapshot.DailyReturn, nil
}

func sortedTickers(positions map[string]int64) []string {
	tickers := make([]string, 0, len(positions))
	for ticker := range positions {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)
	return tickers
}
