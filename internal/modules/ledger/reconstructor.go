package ledger

import (
	"time"

	"github.com/rs/zerolog"
)

// Reconstructor replays the event ledger into point-in-time positions.
// Positions are a pure function of the event set: the signed quantity sum is
// commutative, so the result is invariant under event insertion order.
type Reconstructor struct {
	events *TradeEventRepository
	log    zerolog.Logger
}

// NewReconstructor creates a new position reconstructor
func NewReconstructor(events *TradeEventRepository, log zerolog.Logger) *Reconstructor {
	return &Reconstructor{
		events: events,
		log:    log.With().Str("service", "reconstructor").Logger(),
	}
}

// Positions returns the net holdings per ticker for a portfolio as of a
// date. Only strictly positive positions are emitted; zero and negative
// derived positions are excluded from valuation and composition.
// An empty ledger yields an empty map, not an error.
func (r *Reconstructor) Positions(portfolioID int64, asOf time.Time) (map[string]int64, error) {
	events, err := r.events.GetUntil(portfolioID, asOf)
	if err != nil {
		return nil, err
	}

	net := make(map[string]int64)
	for _, event := range events {
		net[event.Ticker] += event.SignedQuantity()
	}

	positions := make(map[string]int64, len(net))
	for ticker, qty := range net {
		if qty > 0 {
			positions[ticker] = qty
		}
	}

	return positions, nil
}

// Position returns the net signed holding of one instrument as of a date.
// Unlike Positions, the result may be zero or negative; a negative value
// indicates an invalid oversell that policies must never produce.
func (r *Reconstructor) Position(portfolioID int64, ticker string, asOf time.Time) (int64, error) {
	events, err := r.events.GetUntil(portfolioID, asOf)
	if err != nil {
		return 0, err
	}

	var position int64
	for _, event := range events {
		if event.Ticker == ticker {
			position += event.SignedQuantity()
		}
	}

	return position, nil
}
