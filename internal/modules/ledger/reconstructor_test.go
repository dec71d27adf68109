package ledger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantply/fundsim/internal/domain"
)

func TestPositionsFromSignedSum(t *testing.T) {
	repo := NewTradeEventRepository(setupTestDB(t), zerolog.Nop())
	recon := NewReconstructor(repo, zerolog.Nop())

	mustAppend(t, repo, testEvent(1, "AAPL", domain.SideBuy, 10, "2025-03-03"))
	mustAppend(t, repo, testEvent(1, "AAPL", domain.SideBuy, 5, "2025-03-10"))
	mustAppend(t, repo, testEvent(1, "AAPL", domain.SideSell, 8, "2025-03-17"))
	mustAppend(t, repo, testEvent(1, "MSFT", domain.SideBuy, 20, "2025-03-03"))

	positions, err := recon.Positions(1, mustDate("2025-12-31"))
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{"AAPL": 7, "MSFT": 20}, positions)
}

func TestPositionsInvariantUnderInsertionOrder(t *testing.T) {
	events := []domain.TradeEvent{
		testEvent(1, "AAPL", domain.SideBuy, 10, "2025-03-03"),
		testEvent(1, "AAPL", domain.SideBuy, 5, "2025-03-10"),
		testEvent(1, "AAPL", domain.SideSell, 8, "2025-03-17"),
		testEvent(1, "MSFT", domain.SideBuy, 20, "2025-03-03"),
		testEvent(1, "MSFT", domain.SideSell, 6, "2025-03-24"),
	}

	// The same event set in chronological, reversed and interleaved
	// insertion order must reconstruct to identical positions
	orders := map[string][]int{
		"chronological": {0, 1, 2, 3, 4},
		"reversed":      {4, 3, 2, 1, 0},
		"interleaved":   {2, 4, 0, 3, 1},
	}

	want := map[string]int64{"AAPL": 7, "MSFT": 14}

	for name, order := range orders {
		t.Run(name, func(t *testing.T) {
			repo := NewTradeEventRepository(setupTestDB(t), zerolog.Nop())
			recon := NewReconstructor(repo, zerolog.Nop())

			for _, i := range order {
				mustAppend(t, repo, events[i])
			}

			positions, err := recon.Positions(1, mustDate("2025-12-31"))
			require.NoError(t, err)
			assert.Equal(t, want, positions)

			position, err := recon.Position(1, "AAPL", mustDate("2025-03-12"))
			require.NoError(t, err)
			assert.Equal(t, int64(15), position)
		})
	}
}

func TestPositionsAsOfDate(t *testing.T) {
	repo := NewTradeEventRepository(setupTestDB(t), zerolog.Nop())
	recon := NewReconstructor(repo, zerolog.Nop())

	mustAppend(t, repo, testEvent(1, "AAPL", domain.SideBuy, 10, "2025-03-03"))
	mustAppend(t, repo, testEvent(1, "AAPL", domain.SideSell, 8, "2025-03-17"))

	positions, err := recon.Positions(1, mustDate("2025-03-10"))
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"AAPL": 10}, positions)
}

func TestPositionsOmitFlatPositions(t *testing.T) {
	repo := NewTradeEventRepository(setupTestDB(t), zerolog.Nop())
	recon := NewReconstructor(repo, zerolog.Nop())

	mustAppend(t, repo, testEvent(1, "AAPL", domain.SideBuy, 10, "2025-03-03"))
	mustAppend(t, repo, testEvent(1, "AAPL", domain.SideSell, 10, "2025-03-10"))

	positions, err := recon.Positions(1, mustDate("2025-12-31"))
	require.NoError(t, err)
	assert.Empty(t, positions)
}

func TestPositionSingleTicker(t *testing.T) {
	repo := NewTradeEventRepository(setupTestDB(t), zerolog.Nop())
	recon := NewReconstructor(repo, zerolog.Nop())

	mustAppend(t, repo, testEvent(1, "AAPL", domain.SideBuy, 10, "2025-03-03"))
	mustAppend(t, repo, testEvent(1, "AAPL", domain.SideSell, 15, "2025-03-10"))

	// Position may go negative when sells outweigh buys; callers guard.
	position, err := recon.Position(1, "AAPL", mustDate("2025-12-31"))
	require.NoError(t, err)
	assert.Equal(t, int64(-5), position)

	position, err = recon.Position(1, "MSFT", mustDate("2025-12-31"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), position)
}

func TestPositionsEmptyLedger(t *testing.T) {
	repo := NewTradeEventRepository(setupTestDB(t), zerolog.Nop())
	recon := NewReconstructor(repo, zerolog.Nop())

	positions, err := recon.Positions(99, mustDate("2025-12-31"))
	require.NoError(t, err)
	assert.Empty(t, positions)
}

func TestHoldingsRebuild(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTradeEventRepository(db, zerolog.Nop())
	recon := NewReconstructor(repo, zerolog.Nop())
	holdings := NewHoldingsRepository(db, recon, zerolog.Nop())

	mustAppend(t, repo, testEvent(1, "AAPL", domain.SideBuy, 10, "2025-03-03"))
	mustAppend(t, repo, testEvent(1, "MSFT", domain.SideBuy, 20, "2025-03-03"))
	mustAppend(t, repo, testEvent(1, "MSFT", domain.SideSell, 20, "2025-03-10"))

	require.NoError(t, holdings.Rebuild(1))

	rows, err := holdings.GetByPortfolio(1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "AAPL", rows[0].Ticker)
	assert.Equal(t, int64(10), rows[0].Quantity)

	// Rebuild replaces, never accumulates
	mustAppend(t, repo, testEvent(1, "AAPL", domain.SideSell, 4, "2025-03-17"))
	require.NoError(t, holdings.Rebuild(1))

	rows, err = holdings.GetByPortfolio(1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(6), rows[0].Quantity)
}
