package catalog

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantply/fundsim/internal/domain"
)

// AllocationRepository handles allocation membership database operations.
// An allocation marks an instrument as eligible for a client's strategy;
// the weight column is informational only.
type AllocationRepository struct {
	configDB *sql.DB
	log      zerolog.Logger
}

// NewAllocationRepository creates a new allocation repository
func NewAllocationRepository(configDB *sql.DB, log zerolog.Logger) *AllocationRepository {
	return &AllocationRepository{
		configDB: configDB,
		log:      log.With().Str("repo", "allocation").Logger(),
	}
}

// Add inserts an allocation; adding the same (client, ticker) twice is a no-op
func (r *AllocationRepository) Add(clientID int64, ticker string, weight float64) error {
	_, err := r.configDB.Exec(`
		INSERT OR IGNORE INTO allocations (client_id, ticker, weight, created_at)
		VALUES (?, ?, ?, ?)
	`, clientID, strings.ToUpper(strings.TrimSpace(ticker)), weight, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to add allocation %s for client %d: %w", ticker, clientID, err)
	}
	return nil
}

// Remove deletes an allocation membership
func (r *AllocationRepository) Remove(clientID int64, ticker string) error {
	_, err := r.configDB.Exec(
		"DELETE FROM allocations WHERE client_id = ? AND ticker = ?",
		clientID, strings.ToUpper(strings.TrimSpace(ticker)),
	)
	if err != nil {
		return fmt.Errorf("failed to remove allocation %s for client %d: %w", ticker, clientID, err)
	}
	return nil
}

// GetByClient retrieves all allocations for a client ordered by ticker
func (r *AllocationRepository) GetByClient(clientID int64) ([]domain.Allocation, error) {
	rows, err := r.configDB.Query(`
		SELECT id, client_id, ticker, weight
		FROM allocations
		WHERE client_id = ?
		ORDER BY ticker ASC
	`, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	var allocations []domain.Allocation
	for rows.Next() {
		var a domain.Allocation
		if err := rows.Scan(&a.ID, &a.ClientID, &a.Ticker, &a.Weight); err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		allocations = append(allocations, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating allocations: %w", err)
	}

	return allocations, nil
}

// TickersForPortfolio resolves the allocated tickers for a portfolio via its
// owning client, ordered by ticker
func (r *AllocationRepository) TickersForPortfolio(portfolioID int64) ([]string, error) {
	rows, err := r.configDB.Query(`
		SELECT a.ticker
		FROM allocations a
		JOIN portfolios p ON a.client_id = p.client_id
		WHERE p.id = ?
		ORDER BY a.ticker ASC
	`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio allocations: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan allocation ticker: %w", err)
		}
		tickers = append(tickers, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating allocation tickers: %w", err)
	}

	return tickers, nil
}

// EligibleTickers resolves the instruments a strategy may trade for a
// portfolio: the client's allocations filtered by the profile's asset-class
// restriction. The result is sorted lexically; policies rely on this order
// for their deterministic scan.
//
// Conservative portfolios may trade every allocated class, LowTurnover is
// restricted to equities and fund wrappers, HighYieldEquity to equities only.
func EligibleTickers(profile domain.RiskProfile, allocated []string, classes map[string]domain.AssetClass) []string {
	eligible := make([]string, 0, len(allocated))

	for _, ticker := range allocated {
		class, ok := classes[ticker]
		if !ok {
			continue // not in the catalog
		}

		switch profile {
		case domain.ProfileConservative:
			eligible = append(eligible, ticker)
		case domain.ProfileLowTurnover:
			if class == domain.AssetClassEquity || class == domain.AssetClassFundWrapper {
				eligible = append(eligible, ticker)
			}
		case domain.ProfileHighYieldEquity:
			if class == domain.AssetClassEquity {
				eligible = append(eligible, ticker)
			}
		}
	}

	sort.Strings(eligible)
	return eligible
}
