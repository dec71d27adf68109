// Package strategy implements the weekly decision policies, the strategy
// execution service and the deal recorder.
package strategy

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantply/fundsim/internal/domain"
	"github.com/quantply/fundsim/internal/modules/marketdata"
)

// PositionSource supplies the current net position of an instrument.
// Satisfied by ledger.Reconstructor.
type PositionSource interface {
	Position(portfolioID int64, ticker string, asOf time.Time) (int64, error)
}

// TradeCounter reports how many ledger events exist for a portfolio on an
// exact date and in a calendar month. Satisfied by ledger.TradeEventRepository.
type TradeCounter interface {
	CountOnDate(portfolioID int64, date time.Time) (int, error)
	CountInMonth(portfolioID int64, t time.Time) (int, error)
}

// Context carries everything a policy needs to decide one epoch.
// Tickers holds the eligible instruments in lexical order; policies scan in
// that order so decisions are reproducible.
type Context struct {
	Portfolio domain.Portfolio
	Date      time.Time
	Tickers   []string
	Series    map[string]*marketdata.Series
	Classes   map[string]domain.AssetClass
}

// Policy maps market series and current positions to proposed trades for one
// epoch. Implementations are deterministic given their inputs; the only
// randomness (LowTurnover sizing) comes from an injected seedable generator.
type Policy interface {
	Profile() domain.RiskProfile
	Decide(ctx Context) ([]domain.Decision, error)
}

// Deps bundles the collaborators policies draw on
type Deps struct {
	Positions PositionSource
	Trades    TradeCounter
	Rand      *rand.Rand
	TargetVol float64 // default annualized target for Conservative portfolios
	Log       zerolog.Logger
}

// ForProfile returns the policy implementing a risk profile.
// The switch is exhaustive over the closed RiskProfile set.
func ForProfile(profile domain.RiskProfile, deps Deps) (Policy, error) {
	switch profile {
	case domain.ProfileConservative:
		return NewConservativePolicy(deps.Positions, deps.TargetVol, deps.Log), nil
	case domain.ProfileLowTurnover:
		return NewLowTurnoverPolicy(deps.Positions, deps.Trades, deps.Rand, deps.Log), nil
	case domain.ProfileHighYieldEquity:
		return NewHighYieldPolicy(deps.Positions, deps.Log), nil
	}
	return nil, fmt.Errorf("no policy for risk profile %q", profile)
}

// inverseVolSize computes a buy quantity inversely proportional to trailing
// annualized volatility: budget / (volPct * 100), clamped to [min, max].
// Lower volatility yields a larger position. Returns false when volatility
// is zero, negative or NaN; sizing is skipped rather than divided by zero.
func inverseVolSize(budget, volatility float64, min, max int64) (int64, bool) {
	volPct := volatility * 100
	if volPct <= 0 || math.IsNaN(volPct) {
		return 0, false
	}

	qty := int64(budget / (volPct * 100))
	if qty < min {
		qty = min
	}
	if qty > max {
		qty = max
	}
	return qty, true
}

// sellQuantity computes a partial-liquidation quantity: fraction of the
// position, at least 5 units, never more than the position itself.
func sellQuantity(position int64, fraction float64) int64 {
	qty := int64(math.Round(float64(position) * fraction))
	if qty < 5 {
		qty = 5
	}
	if qty > position {
		qty = position
	}
	return qty
}
