package scheduler

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/quantply/fundsim/internal/modules/catalog"
	"github.com/quantply/fundsim/internal/modules/ledger"
	"github.com/quantply/fundsim/internal/modules/marketdata"
	"github.com/quantply/fundsim/internal/modules/stats"
	"github.com/quantply/fundsim/internal/modules/strategy"
)

const (
	// RefreshLookbackDays covers the longest trailing window any policy
	// reads, plus warmup for the rolling volatility column
	RefreshLookbackDays = 400
	// CatchUpWeeks is how many trailing Mondays each run replays. Replays
	// are idempotent, so overlap between runs is harmless.
	CatchUpWeeks = 4
)

// StrategyJob runs the full weekly pipeline: refresh market data, replay the
// trailing decision epochs, then rebuild the derived holdings snapshots and
// monthly statistics
type StrategyJob struct {
	collector   *marketdata.Collector
	instruments *catalog.InstrumentRepository
	clients     *catalog.ClientRepository
	strategy    *strategy.Service
	holdings    *ledger.HoldingsRepository
	stats       *stats.Service
	log         zerolog.Logger
}

// NewStrategyJob creates the weekly strategy pipeline job
func NewStrategyJob(
	collector *marketdata.Collector,
	instruments *catalog.InstrumentRepository,
	clients *catalog.ClientRepository,
	strategySvc *strategy.Service,
	holdings *ledger.HoldingsRepository,
	statsSvc *stats.Service,
	log zerolog.Logger,
) *StrategyJob {
	return &StrategyJob{
		collector:   collector,
		instruments: instruments,
		clients:     clients,
		strategy:    strategySvc,
		holdings:    holdings,
		stats:       statsSvc,
		log:         log.With().Str("job", "strategy_pipeline").Logger(),
	}
}

// Name returns the job name
func (j *StrategyJob) Name() string {
	return "strategy_pipeline"
}

// Run executes the pipeline once
func (j *StrategyJob) Run() error {
	now := time.Now().UTC()

	tickers, err := j.instruments.GetAllTickers()
	if err != nil {
		return err
	}

	if err := j.collector.Refresh(tickers, now.AddDate(0, 0, -RefreshLookbackDays), now); err != nil {
		return err
	}

	results, err := j.strategy.CatchUp(now, CatchUpWeeks)
	if err != nil {
		return err
	}

	recorded := 0
	for _, result := range results {
		recorded += result.Recorded
	}
	j.log.Info().
		Int("epochs", len(results)).
		Int("events_recorded", recorded).
		Msg("Decision epochs replayed")

	portfolios, err := j.clients.GetAllPortfolios()
	if err != nil {
		return err
	}
	for _, portfolio := range portfolios {
		if err := j.holdings.Rebuild(portfolio.ID); err != nil {
			return err
		}
	}

	return j.stats.RefreshAll()
}
