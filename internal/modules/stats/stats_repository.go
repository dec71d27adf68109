// Package stats maintains realized monthly statistics per portfolio,
// derived from the trade-event ledger.
package stats

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// MonthlyStat is one persisted month of realized portfolio statistics
type MonthlyStat struct {
	PortfolioID        int64    `json:"portfolio_id"`
	Month              string   `json:"month"` // YYYY-MM
	RealizedVolatility *float64 `json:"realized_volatility,omitempty"`
	RealizedReturn     *float64 `json:"realized_return,omitempty"`
	MonthlyTrades      int      `json:"monthly_trades"`
}

// Repository handles portfolio_stats database operations
type Repository struct {
	portfolioDB *sql.DB
	log         zerolog.Logger
}

// NewRepository creates a new stats repository
func NewRepository(portfolioDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		portfolioDB: portfolioDB,
		log:         log.With().Str("repo", "stats").Logger(),
	}
}

// Upsert replaces the stored statistics for a portfolio's month
func (r *Repository) Upsert(stat MonthlyStat) error {
	monthStart, err := monthToUnix(stat.Month)
	if err != nil {
		return err
	}

	_, err = r.portfolioDB.Exec(
		"DELETE FROM portfolio_stats WHERE portfolio_id = ? AND date = ?",
		stat.PortfolioID, monthStart,
	)
	if err != nil {
		return fmt.Errorf("failed to clear stats for month %s: %w", stat.Month, err)
	}

	_, err = r.portfolioDB.Exec(`
		INSERT INTO portfolio_stats
		(portfolio_id, date, realized_volatility, realized_return, monthly_trades, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		stat.PortfolioID,
		monthStart,
		nullFloat64Ptr(stat.RealizedVolatility),
		nullFloat64Ptr(stat.RealizedReturn),
		stat.MonthlyTrades,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert stats for month %s: %w", stat.Month, err)
	}

	return nil
}

// GetByPortfolio retrieves all stored monthly statistics for a portfolio,
// most recent month first
func (r *Repository) GetByPortfolio(portfolioID int64) ([]MonthlyStat, error) {
	rows, err := r.portfolioDB.Query(`
		SELECT date, realized_volatility, realized_return, monthly_trades
		FROM portfolio_stats
		WHERE portfolio_id = ?
		ORDER BY date DESC
	`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio stats: %w", err)
	}
	defer rows.Close()

	var stats []MonthlyStat
	for rows.Next() {
		stat := MonthlyStat{PortfolioID: portfolioID}
		var dateUnix int64
		var vol, ret sql.NullFloat64

		if err := rows.Scan(&dateUnix, &vol, &ret, &stat.MonthlyTrades); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio stat: %w", err)
		}

		stat.Month = time.Unix(dateUnix, 0).UTC().Format("2006-01")
		if vol.Valid {
			stat.RealizedVolatility = &vol.Float64
		}
		if ret.Valid {
			stat.RealizedReturn = &ret.Float64
		}

		stats = append(stats, stat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolio stats: %w", err)
	}

	return stats, nil
}

func monthToUnix(month string) (int64, error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return 0, fmt.Errorf("invalid month %q: %w", month, err)
	}
	return t.UTC().Unix(), nil
}

func nullFloat64Ptr(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
