package strategy

import (
	"github.com/rs/zerolog"

	"github.com/quantply/fundsim/internal/domain"
)

// HighYieldEquity policy parameters
const (
	highYieldStopLoss     = -0.07 // 30d mean return stop-loss
	highYieldMaxVol       = 0.40  // maximum annualized volatility for entries
	highYieldSellFraction = 0.75
	highYieldBuyBudget    = 15000
	highYieldMinBuy       = 5
	highYieldMaxBuy       = 25
)

// HighYieldPolicy is the aggressive equities-only momentum policy: it cuts
// losers hard (75% liquidation on stop-loss or a confirmed downtrend) and
// enters only on a confirmed uptrend below the volatility ceiling.
type HighYieldPolicy struct {
	positions PositionSource
	log       zerolog.Logger
}

// NewHighYieldPolicy creates the high-yield equity policy
func NewHighYieldPolicy(positions PositionSource, log zerolog.Logger) *HighYieldPolicy {
	return &HighYieldPolicy{
		positions: positions,
		log:       log.With().Str("policy", "high_yield").Logger(),
	}
}

// Profile returns the risk profile this policy implements
func (p *HighYieldPolicy) Profile() domain.RiskProfile {
	return domain.ProfileHighYieldEquity
}

// Decide proposes at most one trade per eligible instrument for this epoch
func (p *HighYieldPolicy) Decide(ctx Context) ([]domain.Decision, error) {
	var decisions []domain.Decision

	for _, ticker := range ctx.Tickers {
		series := ctx.Series[ticker]
		if series.IsEmpty() {
			continue
		}

		r5, err := series.MeanReturn(5)
		if skippable(err) {
			continue
		} else if err != nil {
			return nil, err
		}
		r10, err := series.MeanReturn(10)
		if skippable(err) {
			continue
		} else if err != nil {
			return nil, err
		}
		r30, err := series.MeanReturn(30)
		if skippable(err) {
			continue
		} else if err != nil {
			return nil, err
		}
		vol30, err := series.AnnualizedVolatility(30)
		if skippable(err) {
			continue
		} else if err != nil {
			return nil, err
		}

		position, err := p.positions.Position(ctx.Portfolio.ID, ticker, ctx.Date)
		if err != nil {
			return nil, err
		}

		if position > 0 {
			// Stop-loss, or downtrend confirmed across all three windows
			if r30 < highYieldStopLoss || (r5 < 0 && r10 < 0 && r30 < 0) {
				decisions = append(decisions, domain.Decision{
					PortfolioID: ctx.Portfolio.ID,
					Ticker:      ticker,
					Side:        domain.SideSell,
					Quantity:    sellQuantity(position, highYieldSellFraction),
				})
			}
			continue
		}

		// Entry on momentum confirmed across all three windows
		if r5 > 0 && r10 > 0 && r30 > 0 && vol30 < highYieldMaxVol {
			qty, ok := inverseVolSize(highYieldBuyBudget, vol30, highYieldMinBuy, highYieldMaxBuy)
			if !ok {
				continue
			}
			decisions = append(decisions, domain.Decision{
				PortfolioID: ctx.Portfolio.ID,
				Ticker:      ticker,
				Side:        domain.SideBuy,
				Quantity:    qty,
			})
		}
	}

	return decisions, nil
}
