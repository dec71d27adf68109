package stats

import (
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

const statsTestSchema = `
CREATE TABLE portfolio_stats (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    portfolio_id INTEGER NOT NULL,
    date INTEGER NOT NULL,
    realized_volatility REAL,
    realized_return REAL,
    monthly_trades INTEGER,
    created_at INTEGER NOT NULL
);
`

func setupStatsDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(statsTestSchema)
	require.NoError(t, err)

	return db
}

func TestUpsertReplacesMonth(t *testing.T) {
	repo := NewRepository(setupStatsDB(t), zerolog.Nop())

	vol, ret := 0.20, 0.01
	require.NoError(t, repo.Upsert(MonthlyStat{
		PortfolioID: 1, Month: "2025-03",
		RealizedVolatility: &vol, RealizedReturn: &ret, MonthlyTrades: 3,
	}))

	// A second upsert for the same month replaces, not accumulates
	vol2 := 0.25
	require.NoError(t, repo.Upsert(MonthlyStat{
		PortfolioID: 1, Month: "2025-03",
		RealizedVolatility: &vol2, MonthlyTrades: 5,
	}))

	stats, err := repo.GetByPortfolio(1)
	require.NoError(t, err)
	require.Len(t, stats, 1)

	assert.Equal(t, "2025-03", stats[0].Month)
	assert.Equal(t, 5, stats[0].MonthlyTrades)
	require.NotNil(t, stats[0].RealizedVolatility)
	assert.InDelta(t, 0.25, *stats[0].RealizedVolatility, 1e-9)
	assert.Nil(t, stats[0].RealizedReturn)
}

func TestUpsertRejectsInvalidMonth(t *testing.T) {
	repo := NewRepository(setupStatsDB(t), zerolog.Nop())

	err := repo.Upsert(MonthlyStat{PortfolioID: 1, Month: "March 2025"})
	assert.Error(t, err)
}

func TestGetByPortfolioMostRecentFirst(t *testing.T) {
	repo := NewRepository(setupStatsDB(t), zerolog.Nop())

	for _, month := range []string{"2025-01", "2025-03", "2025-02"} {
		require.NoError(t, repo.Upsert(MonthlyStat{PortfolioID: 1, Month: month, MonthlyTrades: 1}))
	}
	require.NoError(t, repo.Upsert(MonthlyStat{PortfolioID: 2, Month: "2025-04", MonthlyTrades: 9}))

	stats, err := repo.GetByPortfolio(1)
	require.NoError(t, err)
	require.Len(t, stats, 3)
	assert.Equal(t, "2025-03", stats[0].Month)
	assert.Equal(t, "2025-02", stats[1].Month)
	assert.Equal(t, "2025-01", stats[2].Month)
}

func TestGetByPortfolioEmpty(t *testing.T) {
	repo := NewRepository(setupStatsDB(t), zerolog.Nop())

	stats, err := repo.GetByPortfolio(42)
	require.NoError(t, err)
	assert.Empty(t, stats)
}
