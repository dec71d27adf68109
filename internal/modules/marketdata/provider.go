package marketdata

import (
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/quantply/fundsim/internal/utils"
)

// ClosePoint is one raw daily close from a market data provider.
type ClosePoint struct {
	Date  time.Time
	Close float64
}

// Provider supplies raw daily closes for a ticker over a date range.
// A missing ticker yields an empty slice, not an error.
type Provider interface {
	FetchCloses(ticker string, start, end time.Time) ([]ClosePoint, error)
}

// SyntheticProvider generates deterministic random-walk price histories.
// It stands in for an external market data feed in development and tests:
// the same (seed, ticker, range) always yields the same series.
type SyntheticProvider struct {
	seed int64
}

// NewSyntheticProvider creates a provider with a fixed seed
func NewSyntheticProvider(seed int64) *SyntheticProvider {
	return &SyntheticProvider{seed: seed}
}

// FetchCloses generates a geometric random walk over the weekdays in
// [start, end]. Drift and volatility are derived from the ticker so each
// instrument has a stable personality across calls.
func (p *SyntheticProvider) FetchCloses(ticker string, start, end time.Time) ([]ClosePoint, error) {
	start = utils.MidnightUTC(start)
	end = utils.MidnightUTC(end)
	if end.Before(start) {
		return nil, nil
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(ticker))
	rng := rand.New(rand.NewSource(p.seed ^ int64(h.Sum64())))

	// Per-ticker personality: base price 20-220, mild drift, 10-40% annual vol
	price := 20 + rng.Float64()*200
	drift := (rng.Float64() - 0.45) * 0.0008
	dailyVol := (0.10 + rng.Float64()*0.30) / math.Sqrt(TradingDaysPerYear)

	var points []ClosePoint
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		price *= math.Exp(drift + dailyVol*rng.NormFloat64())
		points = append(points, ClosePoint{Date: d, Close: price})
	}

	return points, nil
}
