// Package marketdata provides the daily market series store, trailing-window
// statistics and the market data collection pipeline.
package marketdata

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/quantply/fundsim/internal/domain"
)

// TradingDaysPerYear is the annualization factor for daily volatility.
const TradingDaysPerYear = 252

// Bar is one daily observation for an instrument.
// Return and Volatility are nil until enough prior observations exist.
type Bar struct {
	Date       time.Time `json:"date"`
	Close      float64   `json:"close"`
	Return     *float64  `json:"daily_return,omitempty"`
	Volatility *float64  `json:"volatility,omitempty"`
}

// Series is a trailing window of daily observations for one instrument,
// ordered most-recent-first. All window helpers operate on the leading N
// entries, mirroring "the last N trading days before the as-of date".
type Series struct {
	Ticker string
	Bars   []Bar
}

// Len returns the number of observations in the window
func (s *Series) Len() int {
	return len(s.Bars)
}

// IsEmpty reports whether the window holds no observations
func (s *Series) IsEmpty() bool {
	return s == nil || len(s.Bars) == 0
}

// returns collects up to n most recent non-nil daily returns
func (s *Series) returns(n int) []float64 {
	out := make([]float64, 0, n)
	for _, bar := range s.Bars {
		if len(out) == n {
			break
		}
		if bar.Return != nil && !math.IsNaN(*bar.Return) {
			out = append(out, *bar.Return)
		}
	}
	return out
}

// MeanReturn computes the mean daily return over the trailing n observations.
// Returns ErrInsufficientHistory when fewer than n returns are available.
func (s *Series) MeanReturn(n int) (float64, error) {
	if s.IsEmpty() {
		return 0, domain.ErrMissingData
	}
	rets := s.returns(n)
	if len(rets) < n {
		return 0, domain.ErrInsufficientHistory
	}
	return stat.Mean(rets, nil), nil
}

// AnnualizedVolatility computes the annualized standard deviation of the
// trailing n daily returns (sample stdev, scaled by sqrt(252)).
// Returns ErrInsufficientHistory when fewer than n returns are available.
func (s *Series) AnnualizedVolatility(n int) (float64, error) {
	if s.IsEmpty() {
		return 0, domain.ErrMissingData
	}
	rets := s.returns(n)
	if len(rets) < n {
		return 0, domain.ErrInsufficientHistory
	}

	sd := stat.StdDev(rets, nil)
	if math.IsNaN(sd) {
		return 0, domain.ErrInsufficientHistory
	}
	return sd * math.Sqrt(TradingDaysPerYear), nil
}

// Latest returns the most recent bar in the window, or nil when empty
func (s *Series) Latest() *Bar {
	if s.IsEmpty() {
		return nil
	}
	return &s.Bars[0]
}
