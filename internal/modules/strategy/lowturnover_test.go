package strategy

import (
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantply/fundsim/internal/domain"
	"github.com/quantply/fundsim/internal/modules/marketdata"
)

func lowTurnoverContext(date time.Time, tickers []string, series map[string]*marketdata.Series) Context {
	return Context{
		Portfolio: domain.Portfolio{ID: 2, RiskProfile: domain.ProfileLowTurnover},
		Date:      date,
		Tickers:   tickers,
		Series:    series,
	}
}

// momentum builds 20 returns where the 5d mean is `recent` and the trailing
// 15 are `older`
func momentum(recent, older float64) []float64 {
	return append(constant(5, recent), constant(15, older)...)
}

var (
	firstMonday  = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)  // week 1
	secondMonday = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC) // week 2
	thirdMonday  = time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC) // week 3
)

func TestLowTurnoverInactiveWeek(t *testing.T) {
	policy := NewLowTurnoverPolicy(stubPositions{}, stubTrades{}, rand.New(rand.NewSource(1)), zerolog.Nop())

	series := map[string]*marketdata.Series{"AAPL": seriesOf("AAPL", momentum(0.02, 0.0))}
	decisions, err := policy.Decide(lowTurnoverContext(secondMonday, []string{"AAPL"}, series))
	require.NoError(t, err)
	assert.Nil(t, decisions)
}

func TestLowTurnoverSkipsWhenAlreadyTraded(t *testing.T) {
	policy := NewLowTurnoverPolicy(stubPositions{}, stubTrades{onDate: 1}, rand.New(rand.NewSource(1)), zerolog.Nop())

	series := map[string]*marketdata.Series{"AAPL": seriesOf("AAPL", momentum(0.02, 0.0))}
	decisions, err := policy.Decide(lowTurnoverContext(firstMonday, []string{"AAPL"}, series))
	require.NoError(t, err)
	assert.Nil(t, decisions)
}

func TestLowTurnoverHonorsMonthlyTradeCap(t *testing.T) {
	policy := NewLowTurnoverPolicy(stubPositions{}, stubTrades{inMonth: 2}, rand.New(rand.NewSource(1)), zerolog.Nop())

	maxTrades := 2
	ctx := lowTurnoverContext(thirdMonday, []string{"AAPL"}, map[string]*marketdata.Series{
		"AAPL": seriesOf("AAPL", momentum(0.02, 0.001)),
	})
	ctx.Portfolio.MaxMonthlyTrades = &maxTrades

	decisions, err := policy.Decide(ctx)
	require.NoError(t, err)
	assert.Nil(t, decisions)
}

func TestLowTurnoverBuysOnMomentum(t *testing.T) {
	policy := NewLowTurnoverPolicy(stubPositions{}, stubTrades{}, rand.New(rand.NewSource(1)), zerolog.Nop())

	// 5d mean well above 110% of the 20d mean
	series := map[string]*marketdata.Series{"AAPL": seriesOf("AAPL", momentum(0.02, 0.001))}
	decisions, err := policy.Decide(lowTurnoverContext(firstMonday, []string{"AAPL"}, series))
	require.NoError(t, err)
	require.Len(t, decisions, 1)

	assert.Equal(t, domain.SideBuy, decisions[0].Side)
	assert.GreaterOrEqual(t, decisions[0].Quantity, int64(15))
	assert.LessOrEqual(t, decisions[0].Quantity, int64(25))
}

func TestLowTurnoverSellCappedAtPosition(t *testing.T) {
	policy := NewLowTurnoverPolicy(stubPositions{"AAPL": 10}, stubTrades{}, rand.New(rand.NewSource(1)), zerolog.Nop())

	// 5d mean well below 90% of the 20d mean
	series := map[string]*marketdata.Series{"AAPL": seriesOf("AAPL", momentum(-0.01, 0.01))}
	decisions, err := policy.Decide(lowTurnoverContext(thirdMonday, []string{"AAPL"}, series))
	require.NoError(t, err)
	require.Len(t, decisions, 1)

	assert.Equal(t, domain.SideSell, decisions[0].Side)
	assert.Equal(t, int64(10), decisions[0].Quantity)
}

func TestLowTurnoverAtMostOneTrade(t *testing.T) {
	policy := NewLowTurnoverPolicy(stubPositions{}, stubTrades{}, rand.New(rand.NewSource(1)), zerolog.Nop())

	// Both instruments qualify for a buy; the lexical scan stops at the first
	series := map[string]*marketdata.Series{
		"AAPL": seriesOf("AAPL", momentum(0.02, 0.001)),
		"MSFT": seriesOf("MSFT", momentum(0.02, 0.001)),
	}
	decisions, err := policy.Decide(lowTurnoverContext(firstMonday, []string{"AAPL", "MSFT"}, series))
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, "AAPL", decisions[0].Ticker)
}

func TestLowTurnoverSeededRandIsReproducible(t *testing.T) {
	series := map[string]*marketdata.Series{"AAPL": seriesOf("AAPL", momentum(0.02, 0.001))}
	ctx := lowTurnoverContext(firstMonday, []string{"AAPL"}, series)

	a := NewLowTurnoverPolicy(stubPositions{}, stubTrades{}, rand.New(rand.NewSource(7)), zerolog.Nop())
	b := NewLowTurnoverPolicy(stubPositions{}, stubTrades{}, rand.New(rand.NewSource(7)), zerolog.Nop())

	first, err := a.Decide(ctx)
	require.NoError(t, err)
	second, err := b.Decide(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestLowTurnoverHoldsInQuietMarket(t *testing.T) {
	policy := NewLowTurnoverPolicy(stubPositions{"AAPL": 10}, stubTrades{}, rand.New(rand.NewSource(1)), zerolog.Nop())

	// 5d mean within the hold band around the 20d mean
	series := map[string]*marketdata.Series{"AAPL": seriesOf("AAPL", constant(20, 0.005))}
	decisions, err := policy.Decide(lowTurnoverContext(firstMonday, []string{"AAPL"}, series))
	require.NoError(t, err)
	assert.Nil(t, decisions)
}
