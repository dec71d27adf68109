package strategy

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quantply/fundsim/internal/domain"
	"github.com/quantply/fundsim/internal/modules/catalog"
	"github.com/quantply/fundsim/internal/modules/ledger"
	"github.com/quantply/fundsim/internal/modules/marketdata"
)

// TrailingStatsWindow is the number of trailing observations used to
// annotate a trade event with its market context.
const TrailingStatsWindow = 20

// Recorder persists proposed decisions as dated trade events. Each event is
// annotated with the trailing mean return and mean volatility at trade time;
// duplicates on (portfolio, instrument, date, side) are silently absorbed by
// the ledger, making epoch generation safely re-runnable.
type Recorder struct {
	events      *ledger.TradeEventRepository
	series      *marketdata.SeriesRepository
	instruments *catalog.InstrumentRepository
	log         zerolog.Logger
}

// NewRecorder creates a new deal recorder
func NewRecorder(
	events *ledger.TradeEventRepository,
	series *marketdata.SeriesRepository,
	instruments *catalog.InstrumentRepository,
	log zerolog.Logger,
) *Recorder {
	return &Recorder{
		events:      events,
		series:      series,
		instruments: instruments,
		log:         log.With().Str("service", "recorder").Logger(),
	}
}

// Record persists a decision set for a date and returns the number of events
// actually inserted (duplicates and unknown instruments are skipped).
func (r *Recorder) Record(decisions []domain.Decision, date time.Time) (int, error) {
	if len(decisions) == 0 {
		return 0, nil
	}

	recorded := 0
	for _, decision := range decisions {
		inst, err := r.instruments.GetByTicker(decision.Ticker)
		if err != nil {
			return recorded, err
		}
		if inst == nil {
			r.log.Warn().
				Str("ticker", decision.Ticker).
				Msg("Decision references unknown instrument, skipping")
			continue
		}

		meanReturn, meanVol, err := r.series.TrailingStats(decision.Ticker, date, TrailingStatsWindow)
		if err != nil {
			return recorded, err
		}

		inserted, err := r.events.Append(domain.TradeEvent{
			EventUID:           uuid.NewString(),
			PortfolioID:        decision.PortfolioID,
			Ticker:             decision.Ticker,
			Side:               decision.Side,
			Quantity:           decision.Quantity,
			Date:               date,
			TrailingVolatility: meanVol,
			TrailingReturn:     meanReturn,
		})
		if err != nil {
			return recorded, err
		}

		if inserted {
			recorded++
			r.log.Info().
				Int64("portfolio_id", decision.PortfolioID).
				Str("ticker", decision.Ticker).
				Str("side", string(decision.Side)).
				Int64("quantity", decision.Quantity).
				Msg("Trade event recorded")
		}
	}

	return recorded, nil
}
