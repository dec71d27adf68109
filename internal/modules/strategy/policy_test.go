package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quantply/fundsim/internal/domain"
	"github.com/quantply/fundsim/internal/modules/marketdata"
)

// stubPositions serves fixed positions keyed by ticker
type stubPositions map[string]int64

func (s stubPositions) Position(portfolioID int64, ticker string, asOf time.Time) (int64, error) {
	return s[ticker], nil
}

// stubTrades serves fixed trade counts for any date
type stubTrades struct {
	onDate  int
	inMonth int
}

func (s stubTrades) CountOnDate(portfolioID int64, date time.Time) (int, error) {
	return s.onDate, nil
}

func (s stubTrades) CountInMonth(portfolioID int64, t time.Time) (int, error) {
	return s.inMonth, nil
}

// seriesOf builds a most-recent-first window from daily returns
// (index 0 = most recent)
func seriesOf(ticker string, returns []float64) *marketdata.Series {
	s := &marketdata.Series{Ticker: ticker}
	date := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	for i, r := range returns {
		ret := r
		s.Bars = append(s.Bars, marketdata.Bar{
			Date:   date.AddDate(0, 0, -i),
			Close:  100,
			Return: &ret,
		})
	}
	return s
}

// alternating builds n returns oscillating around mean with amplitude d, so
// windows see mean `mean` and a controlled sample stdev
func alternating(n int, mean, d float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = mean + d
		} else {
			out[i] = mean - d
		}
	}
	return out
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestInverseVolSize(t *testing.T) {
	// 8% annualized volatility on a 10000 budget sizes to 12 units
	qty, ok := inverseVolSize(10000, 0.08, 5, 20)
	assert.True(t, ok)
	assert.Equal(t, int64(12), qty)

	// Low volatility clamps at the maximum
	qty, ok = inverseVolSize(10000, 0.01, 5, 20)
	assert.True(t, ok)
	assert.Equal(t, int64(20), qty)

	// High volatility clamps at the minimum
	qty, ok = inverseVolSize(10000, 0.90, 5, 20)
	assert.True(t, ok)
	assert.Equal(t, int64(5), qty)
}

func TestInverseVolSizeRejectsDegenerateVol(t *testing.T) {
	_, ok := inverseVolSize(10000, 0, 5, 20)
	assert.False(t, ok)

	_, ok = inverseVolSize(10000, -0.1, 5, 20)
	assert.False(t, ok)
}

func TestSellQuantity(t *testing.T) {
	// Fraction of the position, rounded
	assert.Equal(t, int64(10), sellQuantity(40, 0.25))
	assert.Equal(t, int64(15), sellQuantity(20, 0.75))

	// Floor of 5 units
	assert.Equal(t, int64(5), sellQuantity(8, 0.25))

	// Never more than the position
	assert.Equal(t, int64(3), sellQuantity(3, 0.75))
}

func TestForProfile(t *testing.T) {
	deps := Deps{Positions: stubPositions{}, Trades: stubTrades{}, TargetVol: 0.10}

	for _, profile := range []domain.RiskProfile{
		domain.ProfileConservative,
		domain.ProfileLowTurnover,
		domain.ProfileHighYieldEquity,
	} {
		policy, err := ForProfile(profile, deps)
		assert.NoError(t, err)
		assert.Equal(t, profile, policy.Profile())
	}

	_, err := ForProfile("AGGRESSIVE_CRYPTO", deps)
	assert.Error(t, err)
}
