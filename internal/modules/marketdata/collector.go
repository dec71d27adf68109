package marketdata

import (
	"math"
	"time"

	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"
)

// VolatilityWindow is the rolling window (trading days) for the stored
// annualized volatility column.
const VolatilityWindow = 20

// Collector refreshes the daily series store from a market data provider,
// deriving daily returns and rolling annualized volatility from raw closes.
type Collector struct {
	provider Provider
	repo     *SeriesRepository
	log      zerolog.Logger
}

// NewCollector creates a new market data collector
func NewCollector(provider Provider, repo *SeriesRepository, log zerolog.Logger) *Collector {
	return &Collector{
		provider: provider,
		repo:     repo,
		log:      log.With().Str("service", "collector").Logger(),
	}
}

// Refresh fetches closes for every ticker over [start, end] and upserts the
// derived bars. Tickers without data are skipped, never fatal.
func (c *Collector) Refresh(tickers []string, start, end time.Time) error {
	refreshed := 0
	for _, ticker := range tickers {
		points, err := c.provider.FetchCloses(ticker, start, end)
		if err != nil {
			c.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to fetch closes, skipping")
			continue
		}
		if len(points) == 0 {
			c.log.Debug().Str("ticker", ticker).Msg("No data available, skipping")
			continue
		}

		bars := DeriveBars(points)
		if err := c.repo.UpsertBars(ticker, bars); err != nil {
			return err
		}
		refreshed++
	}

	c.log.Info().
		Int("tickers", refreshed).
		Str("start", start.Format("2006-01-02")).
		Str("end", end.Format("2006-01-02")).
		Msg("Market data refreshed")

	return nil
}

// DeriveBars converts raw chronological closes into daily bars with
// pct-change returns and a rolling annualized volatility.
func DeriveBars(points []ClosePoint) []Bar {
	closes := make([]float64, len(points))
	for i, p := range points {
		closes[i] = p.Close
	}

	// Rate-of-change over 1 day = pct-change * 100; leading entries are
	// warmup zeros and treated as missing below.
	rocs := talib.Roc(closes, 1)
	vols := talib.StdDev(rocs, VolatilityWindow, 1.0)

	bars := make([]Bar, len(points))
	for i, p := range points {
		bars[i] = Bar{Date: p.Date, Close: p.Close}

		if i >= 1 {
			ret := rocs[i] / 100
			bars[i].Return = &ret
		}

		// The first volatility window that contains only real returns
		// starts once VolatilityWindow returns exist.
		if i >= VolatilityWindow {
			vol := (vols[i] / 100) * math.Sqrt(TradingDaysPerYear)
			bars[i].Volatility = &vol
		}
	}

	return bars
}
