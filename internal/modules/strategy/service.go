package strategy

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quantply/fundsim/internal/domain"
	"github.com/quantply/fundsim/internal/modules/catalog"
	"github.com/quantply/fundsim/internal/modules/ledger"
	"github.com/quantply/fundsim/internal/modules/marketdata"
	"github.com/quantply/fundsim/internal/utils"
)

// SeriesLookback is the trailing window of daily observations loaded for
// each instrument before a decision epoch.
const SeriesLookback = 252

// EpochResult summarizes one portfolio's decision epoch
type EpochResult struct {
	PortfolioID int64              `json:"portfolio_id"`
	Profile     domain.RiskProfile `json:"profile"`
	Date        string             `json:"date"`
	Decisions   []domain.Decision  `json:"decisions"`
	Recorded    int                `json:"recorded"`
}

// Service orchestrates strategy execution: it resolves the eligible
// instrument set per portfolio, loads market windows, dispatches the
// profile's policy and records the resulting decisions. Execution is
// synchronous and proceeds portfolio-by-portfolio, epoch-by-epoch; the
// idempotent ledger insert makes re-running an epoch safe.
type Service struct {
	clients       *catalog.ClientRepository
	allocations   *catalog.AllocationRepository
	instruments   *catalog.InstrumentRepository
	series        *marketdata.SeriesRepository
	events        *ledger.TradeEventRepository
	reconstructor *ledger.Reconstructor
	recorder      *Recorder
	rng           *rand.Rand
	targetVol     float64
	log           zerolog.Logger
}

// NewService creates a new strategy service. The random source feeds the
// LowTurnover policy's trade sizing; seed it for reproducible runs.
func NewService(
	clients *catalog.ClientRepository,
	allocations *catalog.AllocationRepository,
	instruments *catalog.InstrumentRepository,
	series *marketdata.SeriesRepository,
	events *ledger.TradeEventRepository,
	reconstructor *ledger.Reconstructor,
	recorder *Recorder,
	rng *rand.Rand,
	targetVol float64,
	log zerolog.Logger,
) *Service {
	return &Service{
		clients:       clients,
		allocations:   allocations,
		instruments:   instruments,
		series:        series,
		events:        events,
		reconstructor: reconstructor,
		recorder:      recorder,
		rng:           rng,
		targetVol:     targetVol,
		log:           log.With().Str("service", "strategy").Logger(),
	}
}

// Decide generates the decision set for one portfolio and epoch without
// recording anything
func (s *Service) Decide(portfolio domain.Portfolio, date time.Time) ([]domain.Decision, error) {
	allocated, err := s.allocations.TickersForPortfolio(portfolio.ID)
	if err != nil {
		return nil, err
	}
	if len(allocated) == 0 {
		s.log.Debug().Int64("portfolio_id", portfolio.ID).Msg("No allocations for portfolio")
		return nil, nil
	}

	classes, err := s.instruments.ClassesByTicker()
	if err != nil {
		return nil, err
	}

	eligible := catalog.EligibleTickers(portfolio.RiskProfile, allocated, classes)
	if len(eligible) == 0 {
		return nil, nil
	}

	series := make(map[string]*marketdata.Series, len(eligible))
	for _, ticker := range eligible {
		window, err := s.series.TrailingSeries(ticker, date, SeriesLookback)
		if err != nil {
			return nil, err
		}
		series[ticker] = window
	}

	policy, err := ForProfile(portfolio.RiskProfile, Deps{
		Positions: s.reconstructor,
		Trades:    s.events,
		Rand:      s.rng,
		TargetVol: s.targetVol,
		Log:       s.log,
	})
	if err != nil {
		return nil, err
	}

	return policy.Decide(Context{
		Portfolio: portfolio,
		Date:      utils.MidnightUTC(date),
		Tickers:   eligible,
		Series:    series,
		Classes:   classes,
	})
}

// RunEpoch generates and records decisions for one portfolio and epoch
func (s *Service) RunEpoch(portfolio domain.Portfolio, date time.Time) (*EpochResult, error) {
	decisions, err := s.Decide(portfolio, date)
	if err != nil {
		return nil, err
	}

	recorded, err := s.recorder.Record(decisions, date)
	if err != nil {
		return nil, err
	}

	return &EpochResult{
		PortfolioID: portfolio.ID,
		Profile:     portfolio.RiskProfile,
		Date:        date.Format(utils.DateLayout),
		Decisions:   decisions,
		Recorded:    recorded,
	}, nil
}

// RunAll executes one epoch for every portfolio
func (s *Service) RunAll(date time.Time) ([]EpochResult, error) {
	portfolios, err := s.clients.GetAllPortfolios()
	if err != nil {
		return nil, err
	}
	if len(portfolios) == 0 {
		s.log.Warn().Msg("No portfolios found")
		return nil, nil
	}

	runID := uuid.NewString()
	timer := utils.NewTimer("strategy_run", s.log)
	defer timer.Stop()

	results := make([]EpochResult, 0, len(portfolios))
	for _, portfolio := range portfolios {
		result, err := s.RunEpoch(portfolio, date)
		if err != nil {
			return results, err
		}
		results = append(results, *result)

		s.log.Info().
			Str("run_id", runID).
			Int64("portfolio_id", portfolio.ID).
			Str("profile", string(portfolio.RiskProfile)).
			Str("date", result.Date).
			Int("decisions", len(result.Decisions)).
			Int("recorded", result.Recorded).
			Msg("Epoch executed")
	}

	return results, nil
}

// CatchUp replays the trailing weeks of Mondays up to asOf, oldest first.
// Re-running already-processed epochs is a no-op thanks to the idempotent
// ledger insert.
func (s *Service) CatchUp(asOf time.Time, weeks int) ([]EpochResult, error) {
	monday := utils.PreviousMonday(asOf)
	var all []EpochResult

	for i := weeks - 1; i >= 0; i-- {
		epoch := monday.AddDate(0, 0, -7*i)
		results, err := s.RunAll(epoch)
		if err != nil {
			return all, err
		}
		all = append(all, results...)
	}

	return all, nil
}
