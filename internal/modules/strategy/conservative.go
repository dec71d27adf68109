package strategy

import (
	"errors"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/quantply/fundsim/internal/domain"
	"github.com/quantply/fundsim/internal/modules/marketdata"
)

// Conservative policy thresholds
const (
	conservativeSellEquityReturn = -0.02 // 30d mean return floor for equities
	conservativeSellBondReturn   = -0.01 // 30d mean return floor for fixed income
	conservativeSellVolFactor    = 1.5   // sell when vol exceeds 1.5x target
	conservativeBuyVolFactor     = 1.2   // buy only when vol is below 1.2x target
	conservativeSellFraction     = 0.25
	conservativeBuyBudget        = 10000
	conservativeMinBuy           = 5
	conservativeMaxBuy           = 20
)

// ConservativePolicy targets a fixed annualized volatility: it trims held
// positions on drawdowns or volatility spikes and enters new positions with
// inverse-volatility sizing when short- and medium-term returns agree.
type ConservativePolicy struct {
	positions        PositionSource
	defaultTargetVol float64
	log              zerolog.Logger
}

// NewConservativePolicy creates the Conservative ("low risk") policy
func NewConservativePolicy(positions PositionSource, defaultTargetVol float64, log zerolog.Logger) *ConservativePolicy {
	return &ConservativePolicy{
		positions:        positions,
		defaultTargetVol: defaultTargetVol,
		log:              log.With().Str("policy", "conservative").Logger(),
	}
}

// Profile returns the risk profile this policy implements
func (p *ConservativePolicy) Profile() domain.RiskProfile {
	return domain.ProfileConservative
}

// Decide proposes at most one trade per eligible instrument for this epoch
func (p *ConservativePolicy) Decide(ctx Context) ([]domain.Decision, error) {
	targetVol := p.defaultTargetVol
	if ctx.Portfolio.TargetVolatility != nil && *ctx.Portfolio.TargetVolatility > 0 {
		targetVol = *ctx.Portfolio.TargetVolatility
	}

	if portfolioVol, ok := equalWeightPortfolioVolatility(ctx, 30); ok {
		p.log.Debug().
			Int64("portfolio_id", ctx.Portfolio.ID).
			Float64("portfolio_volatility", portfolioVol).
			Float64("target_volatility", targetVol).
			Msg("Current portfolio volatility")
	}

	var decisions []domain.Decision
	for _, ticker := range ctx.Tickers {
		series := ctx.Series[ticker]
		if series.IsEmpty() {
			continue
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
			class := ctx.Classes[ticker]
			if (r30 < conservativeSellEquityReturn && class == domain.AssetClassEquity) ||
				(r30 < conservativeSellBondReturn && class == domain.AssetClassFixedIncome) ||
				vol30 > targetVol*conservativeSellVolFactor {
				decisions = append(decisions, domain.Decision{
					PortfolioID: ctx.Portfolio.ID,
					Ticker:      ticker,
					Side:        domain.SideSell,
					Quantity:    sellQuantity(position, conservativeSellFraction),
				})
			}
			continue
		}

		if r10 > 0 && r30 > 0 && vol30 < targetVol*conservativeBuyVolFactor {
			qty, ok := inverseVolSize(conservativeBuyBudget, vol30, conservativeMinBuy, conservativeMaxBuy)
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

// equalWeightPortfolioVolatility estimates the annualized volatility of an
// equal-weight portfolio over the eligible instruments, from the covariance
// matrix of their trailing n daily returns. Informational only: instruments
// with insufficient history are left out, and fewer than two usable series
// yields ok=false.
func equalWeightPortfolioVolatility(ctx Context, n int) (float64, bool) {
	var columns [][]float64
	for _, ticker := range ctx.Tickers {
		series := ctx.Series[ticker]
		if series.IsEmpty() {
			continue
		}
		rets := make([]float64, 0, n)
		for _, bar := range series.Bars {
			if len(rets) == n {
				break
			}
			if bar.Return != nil && !math.IsNaN(*bar.Return) {
				rets = append(rets, *bar.Return)
			}
		}
		if len(rets) == n {
			columns = append(columns, rets)
		}
	}

	assets := len(columns)
	if assets < 2 {
		return 0, false
	}

	data := mat.NewDense(n, assets, nil)
	for j, col := range columns {
		for i, v := range col {
			data.Set(i, j, v)
		}
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, data, nil)

	weight := 1.0 / float64(assets)
	var variance float64
	for i := 0; i < assets; i++ {
		for j := 0; j < assets; j++ {
			variance += weight * weight * cov.At(i, j)
		}
	}
	if variance <= 0 {
		return 0, false
	}

	return math.Sqrt(variance * marketdata.TradingDaysPerYear), true
}

// skippable reports whether an error means "leave this instrument out of
// this epoch" rather than "abort the batch"
func skippable(err error) bool {
	return errors.Is(err, domain.ErrInsufficientHistory) || errors.Is(err, domain.ErrMissingData)
}
