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

func conservativeContext(tickers []string, series map[string]*marketdata.Series, classes map[string]domain.AssetClass) Context {
	return Context{
		Portfolio: domain.Portfolio{ID: 1, RiskProfile: domain.ProfileConservative},
		Date:      time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		Tickers:   tickers,
		Series:    series,
		Classes:   classes,
	}
}

func TestConservativeBuysWithInverseVolSizing(t *testing.T) {
	policy := NewConservativePolicy(stubPositions{}, 0.10, zerolog.Nop())

	// Positive 10d and 30d means, ~8% annualized volatility
	series := seriesOf("AAPL", alternating(30, 0.001, 0.004955))
	ctx := conservativeContext(
		[]string{"AAPL"},
		map[string]*marketdata.Series{"AAPL": series},
		map[string]domain.AssetClass{"AAPL": domain.AssetClassEquity},
	)

	decisions, err := policy.Decide(ctx)
	require.NoError(t, err)
	require.Len(t, decisions, 1)

	assert.Equal(t, domain.SideBuy, decisions[0].Side)
	assert.Equal(t, "AAPL", decisions[0].Ticker)
	assert.Equal(t, int64(12), decisions[0].Quantity)
}

func TestConservativeSellsEquityOnDrawdown(t *testing.T) {
	policy := NewConservativePolicy(stubPositions{"AAPL": 40}, 0.10, zerolog.Nop())

	// 30d mean return of -3% breaches the equity floor
	series := seriesOf("AAPL", constant(30, -0.03))
	ctx := conservativeContext(
		[]string{"AAPL"},
		map[string]*marketdata.Series{"AAPL": series},
		map[string]domain.AssetClass{"AAPL": domain.AssetClassEquity},
	)

	decisions, err := policy.Decide(ctx)
	require.NoError(t, err)
	require.Len(t, decisions, 1)

	assert.Equal(t, domain.SideSell, decisions[0].Side)
	assert.Equal(t, int64(10), decisions[0].Quantity) // 25% of 40
}

func TestConservativeBondFloorIsTighter(t *testing.T) {
	// -1.5% 30d mean: breaches the bond floor but not the equity floor
	returns := constant(30, -0.015)

	equityPolicy := NewConservativePolicy(stubPositions{"AAPL": 40}, 0.10, zerolog.Nop())
	equityCtx := conservativeContext(
		[]string{"AAPL"},
		map[string]*marketdata.Series{"AAPL": seriesOf("AAPL", returns)},
		map[string]domain.AssetClass{"AAPL": domain.AssetClassEquity},
	)
	decisions, err := equityPolicy.Decide(equityCtx)
	require.NoError(t, err)
	assert.Empty(t, decisions)

	bondPolicy := NewConservativePolicy(stubPositions{"BND": 40}, 0.10, zerolog.Nop())
	bondCtx := conservativeContext(
		[]string{"BND"},
		map[string]*marketdata.Series{"BND": seriesOf("BND", returns)},
		map[string]domain.AssetClass{"BND": domain.AssetClassFixedIncome},
	)
	decisions, err = bondPolicy.Decide(bondCtx)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, domain.SideSell, decisions[0].Side)
}

func TestConservativeSellsOnVolatilitySpike(t *testing.T) {
	policy := NewConservativePolicy(stubPositions{"AAPL": 40}, 0.10, zerolog.Nop())

	// Positive returns but ~19% annualized volatility, above 1.5x the 10%
	// target
	series := seriesOf("AAPL", alternating(30, 0.001, 0.012))
	ctx := conservativeContext(
		[]string{"AAPL"},
		map[string]*marketdata.Series{"AAPL": series},
		map[string]domain.AssetClass{"AAPL": domain.AssetClassEquity},
	)

	decisions, err := policy.Decide(ctx)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, domain.SideSell, decisions[0].Side)
}

func TestConservativeSkipsZeroVolatilityEntry(t *testing.T) {
	policy := NewConservativePolicy(stubPositions{}, 0.10, zerolog.Nop())

	// Constant positive returns: zero volatility, sizing is impossible
	series := seriesOf("AAPL", constant(30, 0.01))
	ctx := conservativeContext(
		[]string{"AAPL"},
		map[string]*marketdata.Series{"AAPL": series},
		map[string]domain.AssetClass{"AAPL": domain.AssetClassEquity},
	)

	decisions, err := policy.Decide(ctx)
	require.NoError(t, err)
	assert.Empty(t, decisions)
}

func TestConservativeSkipsInsufficientHistory(t *testing.T) {
	policy := NewConservativePolicy(stubPositions{}, 0.10, zerolog.Nop())

	ctx := conservativeContext(
		[]string{"AAPL", "NEW"},
		map[string]*marketdata.Series{
			"AAPL": seriesOf("AAPL", alternating(30, 0.001, 0.004955)),
			"NEW":  seriesOf("NEW", constant(3, 0.01)),
		},
		map[string]domain.AssetClass{
			"AAPL": domain.AssetClassEquity,
			"NEW":  domain.AssetClassEquity,
		},
	)

	decisions, err := policy.Decide(ctx)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, "AAPL", decisions[0].Ticker)
}

func TestConservativeHonorsPortfolioTargetVolatility(t *testing.T) {
	policy := NewConservativePolicy(stubPositions{}, 0.10, zerolog.Nop())

	// ~8% volatility entry passes a 10% default target but fails a 5%
	// portfolio override (1.2 * 0.05 = 6% ceiling)
	override := 0.05
	series := seriesOf("AAPL", alternating(30, 0.001, 0.004955))
	ctx := conservativeContext(
		[]string{"AAPL"},
		map[string]*marketdata.Series{"AAPL": series},
		map[string]domain.AssetClass{"AAPL": domain.AssetClassEquity},
	)
	ctx.Portfolio.TargetVolatility = &override

	decisions, err := policy.Decide(ctx)
	require.NoError(t, err)
	assert.Empty(t, decisions)
}
