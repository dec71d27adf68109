package strategy

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantply/fundsim/internal/domain"
	"github.com/quantply/fundsim/internal/modules/marketdata"
)

func highYieldContext(tickers []string, series map[string]*marketdata.Series) Context {
	return Context{
		Portfolio: domain.Portfolio{ID: 3, RiskProfile: domain.ProfileHighYieldEquity},
		Date:      time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		Tickers:   tickers,
		Series:    series,
		Classes:   map[string]domain.AssetClass{},
	}
}

func TestHighYieldStopLoss(t *testing.T) {
	policy := NewHighYieldPolicy(stubPositions{"TSLA": 20}, zerolog.Nop())

	// 30d mean of -8% breaches the -7% stop; 75% of 20 = 15
	series := map[string]*marketdata.Series{"TSLA": seriesOf("TSLA", constant(30, -0.08))}
	decisions, err := policy.Decide(highYieldContext([]string{"TSLA"}, series))
	require.NoError(t, err)
	require.Len(t, decisions, 1)

	assert.Equal(t, domain.SideSell, decisions[0].Side)
	assert.Equal(t, int64(15), decisions[0].Quantity)
}

func TestHighYieldSellsOnConfirmedDowntrend(t *testing.T) {
	policy := NewHighYieldPolicy(stubPositions{"TSLA": 20}, zerolog.Nop())

	// Mildly negative across all windows: above the stop but a confirmed
	// downtrend
	series := map[string]*marketdata.Series{"TSLA": seriesOf("TSLA", constant(30, -0.005))}
	decisions, err := policy.Decide(highYieldContext([]string{"TSLA"}, series))
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, domain.SideSell, decisions[0].Side)
}

func TestHighYieldHoldsOnMixedSignals(t *testing.T) {
	policy := NewHighYieldPolicy(stubPositions{"TSLA": 20}, zerolog.Nop())

	// Recent window positive, longer windows negative but above the stop:
	// not a confirmed downtrend, so the position is held
	returns := append(constant(5, 0.01), constant(25, -0.005)...)
	series := map[string]*marketdata.Series{"TSLA": seriesOf("TSLA", returns)}
	decisions, err := policy.Decide(highYieldContext([]string{"TSLA"}, series))
	require.NoError(t, err)
	assert.Empty(t, decisions)
}

func TestHighYieldEntersOnConfirmedUptrend(t *testing.T) {
	policy := NewHighYieldPolicy(stubPositions{}, zerolog.Nop())

	// Positive means across all windows, ~8% volatility:
	// 15000 / (8 * 100) = 18
	series := map[string]*marketdata.Series{"TSLA": seriesOf("TSLA", alternating(30, 0.001, 0.004955))}
	decisions, err := policy.Decide(highYieldContext([]string{"TSLA"}, series))
	require.NoError(t, err)
	require.Len(t, decisions, 1)

	assert.Equal(t, domain.SideBuy, decisions[0].Side)
	assert.Equal(t, int64(18), decisions[0].Quantity)
}

func TestHighYieldRejectsHighVolatilityEntry(t *testing.T) {
	policy := NewHighYieldPolicy(stubPositions{}, zerolog.Nop())

	// Positive trend but ~48% annualized volatility, above the 40% ceiling
	series := map[string]*marketdata.Series{"TSLA": seriesOf("TSLA", alternating(30, 0.001, 0.03))}
	decisions, err := policy.Decide(highYieldContext([]string{"TSLA"}, series))
	require.NoError(t, err)
	assert.Empty(t, decisions)
}

func TestHighYieldSkipsShortHistory(t *testing.T) {
	policy := NewHighYieldPolicy(stubPositions{}, zerolog.Nop())

	series := map[string]*marketdata.Series{"TSLA": seriesOf("TSLA", constant(10, 0.01))}
	decisions, err := policy.Decide(highYieldContext([]string{"TSLA"}, series))
	require.NoError(t, err)
	assert.Empty(t, decisions)
}
