package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantply/fundsim/internal/database"
)

// Holding is one row of the persisted current-holdings snapshot
type Holding struct {
	PortfolioID int64  `json:"portfolio_id"`
	Ticker      string `json:"ticker"`
	Quantity    int64  `json:"quantity"`
}

// HoldingsRepository persists the current-holdings snapshot derived from the
// full ledger. The snapshot is a convenience view; the ledger remains the
// source of truth.
type HoldingsRepository struct {
	portfolioDB   *sql.DB
	reconstructor *Reconstructor
	log           zerolog.Logger
}

// NewHoldingsRepository creates a new holdings repository
func NewHoldingsRepository(portfolioDB *sql.DB, reconstructor *Reconstructor, log zerolog.Logger) *HoldingsRepository {
	return &HoldingsRepository{
		portfolioDB:   portfolioDB,
		reconstructor: reconstructor,
		log:           log.With().Str("repo", "holdings").Logger(),
	}
}

// Rebuild recomputes a portfolio's holdings from the full event ledger and
// replaces the stored snapshot atomically
func (r *HoldingsRepository) Rebuild(portfolioID int64) error {
	positions, err := r.reconstructor.Positions(portfolioID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to reconstruct positions for portfolio %d: %w", portfolioID, err)
	}

	err = database.WithTransaction(r.portfolioDB, func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM holdings WHERE portfolio_id = ?", portfolioID); err != nil {
			return fmt.Errorf("failed to clear holdings: %w", err)
		}

		now := time.Now().Unix()
		for ticker, qty := range positions {
			_, err := tx.Exec(`
				INSERT INTO holdings (portfolio_id, ticker, quantity, updated_at)
				VALUES (?, ?, ?, ?)
			`, portfolioID, ticker, qty, now)
			if err != nil {
				return fmt.Errorf("failed to insert holding %s: %w", ticker, err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	r.log.Info().
		Int64("portfolio_id", portfolioID).
		Int("positions", len(positions)).
		Msg("Holdings snapshot rebuilt")

	return nil
}

// GetByPortfolio retrieves the stored holdings snapshot ordered by ticker
func (r *HoldingsRepository) GetByPortfolio(portfolioID int64) ([]Holding, error) {
	rows, err := r.portfolioDB.Query(`
		SELECT portfolio_id, ticker, quantity
		FROM holdings
		WHERE portfolio_id = ?
		ORDER BY ticker ASC
	`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []Holding
	for rows.Next() {
		var h Holding
		if err := rows.Scan(&h.PortfolioID, &h.Ticker, &h.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}

	return holdings, nil
}
