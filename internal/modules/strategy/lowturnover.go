package strategy

import (
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/quantply/fundsim/internal/domain"
	"github.com/quantply/fundsim/internal/utils"
)

// LowTurnover policy parameters
const (
	lowTurnoverSellRatio = 0.90 // sell when 5d mean falls below 90% of 20d mean
	lowTurnoverBuyRatio  = 1.10 // buy when 5d mean exceeds 110% of 20d mean
	lowTurnoverMinQty    = 15
	lowTurnoverMaxQty    = 25
)

// LowTurnoverPolicy trades at most once per active Monday, and only on the
// first and third Monday of the calendar month. Trade sizes are randomized
// in [15, 25]; the generator is injected so test runs are reproducible.
//
// The scan runs over the eligible tickers in lexical order and stops at the
// first qualifying instrument. The order is a deliberate choice: it makes
// the single trade per epoch deterministic.
type LowTurnoverPolicy struct {
	positions PositionSource
	trades    TradeCounter
	rng       *rand.Rand
	log       zerolog.Logger
}

// NewLowTurnoverPolicy creates the low-turnover policy
func NewLowTurnoverPolicy(positions PositionSource, trades TradeCounter, rng *rand.Rand, log zerolog.Logger) *LowTurnoverPolicy {
	return &LowTurnoverPolicy{
		positions: positions,
		trades:    trades,
		rng:       rng,
		log:       log.With().Str("policy", "low_turnover").Logger(),
	}
}

// Profile returns the risk profile this policy implements
func (p *LowTurnoverPolicy) Profile() domain.RiskProfile {
	return domain.ProfileLowTurnover
}

// Decide proposes at most one trade, and only on an active Monday
func (p *LowTurnoverPolicy) Decide(ctx Context) ([]domain.Decision, error) {
	week := utils.WeekOfMonth(ctx.Date)
	if week != 1 && week != 3 {
		p.log.Debug().
			Int64("portfolio_id", ctx.Portfolio.ID).
			Int("week_of_month", week).
			Msg("Inactive week, no trades")
		return nil, nil
	}

	existing, err := p.trades.CountOnDate(ctx.Portfolio.ID, ctx.Date)
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		p.log.Debug().
			Int64("portfolio_id", ctx.Portfolio.ID).
			Int("existing_trades", existing).
			Msg("Trade already recorded for this epoch")
		return nil, nil
	}

	if limit := ctx.Portfolio.MaxMonthlyTrades; limit != nil {
		monthly, err := p.trades.CountInMonth(ctx.Portfolio.ID, ctx.Date)
		if err != nil {
			return nil, err
		}
		if monthly >= *limit {
			p.log.Debug().
				Int64("portfolio_id", ctx.Portfolio.ID).
				Int("monthly_trades", monthly).
				Int("max", *limit).
				Msg("Monthly trade cap reached")
			return nil, nil
		}
	}

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
		r20, err := series.MeanReturn(20)
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
			if r5 < r20*lowTurnoverSellRatio {
				qty := p.randomQuantity()
				if qty > position {
					qty = position
				}
				return []domain.Decision{{
					PortfolioID: ctx.Portfolio.ID,
					Ticker:      ticker,
					Side:        domain.SideSell,
					Quantity:    qty,
				}}, nil
			}
			continue
		}

		if r5 > r20*lowTurnoverBuyRatio {
			return []domain.Decision{{
				PortfolioID: ctx.Portfolio.ID,
				Ticker:      ticker,
				Side:        domain.SideBuy,
				Quantity:    p.randomQuantity(),
			}}, nil
		}
	}

	return nil, nil
}

func (p *LowTurnoverPolicy) randomQuantity() int64 {
	return lowTurnoverMinQty + p.rng.Int63n(lowTurnoverMaxQty-lowTurnoverMinQty+1)
}
