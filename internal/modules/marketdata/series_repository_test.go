package marketdata

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

const historyTestSchema = `
CREATE TABLE daily_series (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    ticker TEXT NOT NULL,
    date INTEGER NOT NULL,
    close REAL NOT NULL,
    daily_return REAL,
    volatility REAL,
    UNIQUE (ticker, date)
);
`

func setupHistoryDB(t *testing.T) *SeriesRepository {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(historyTestSchema)
	require.NoError(t, err)

	return NewSeriesRepository(db, zerolog.Nop())
}

func barsForDays(start time.Time, closes []float64) []Bar {
	bars := make([]Bar, len(closes))
	for i, c := range closes {
		bars[i] = Bar{Date: start.AddDate(0, 0, i), Close: c}
		if i > 0 {
			r := c/closes[i-1] - 1
			bars[i].Return = &r
		}
	}
	return bars
}

func TestTrailingSeriesMostRecentFirst(t *testing.T) {
	repo := setupHistoryDB(t)
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.UpsertBars("AAPL", barsForDays(start, []float64{100, 101, 102, 103})))

	series, err := repo.TrailingSeries("AAPL", start.AddDate(0, 0, 10), 10)
	require.NoError(t, err)
	require.Equal(t, 4, series.Len())

	assert.Equal(t, 103.0, series.Bars[0].Close)
	assert.Equal(t, 100.0, series.Bars[3].Close)
}

func TestTrailingSeriesRespectsAsOfAndLimit(t *testing.T) {
	repo := setupHistoryDB(t)
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.UpsertBars("AAPL", barsForDays(start, []float64{100, 101, 102, 103})))

	// As-of in the middle of the range excludes later bars
	series, err := repo.TrailingSeries("AAPL", start.AddDate(0, 0, 1), 10)
	require.NoError(t, err)
	require.Equal(t, 2, series.Len())
	assert.Equal(t, 101.0, series.Bars[0].Close)

	series, err = repo.TrailingSeries("AAPL", start.AddDate(0, 0, 10), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, series.Len())
}

func TestTrailingSeriesUnknownTicker(t *testing.T) {
	repo := setupHistoryDB(t)

	series, err := repo.TrailingSeries("NOPE", time.Now(), 10)
	require.NoError(t, err)
	assert.True(t, series.IsEmpty())
}

func TestUpsertBarsIsRerunnable(t *testing.T) {
	repo := setupHistoryDB(t)
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.UpsertBars("AAPL", barsForDays(start, []float64{100, 101})))
	require.NoError(t, repo.UpsertBars("AAPL", barsForDays(start, []float64{200, 201})))

	series, err := repo.TrailingSeries("AAPL", start.AddDate(0, 0, 10), 10)
	require.NoError(t, err)
	require.Equal(t, 2, series.Len())
	assert.Equal(t, 201.0, series.Bars[0].Close)
}

func TestLatestBarNeverLooksForward(t *testing.T) {
	repo := setupHistoryDB(t)
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.UpsertBars("AAPL", barsForDays(start, []float64{100, 101, 102})))

	// Weekend valuation date falls back to the last weekday close
	bar, err := repo.LatestBar("AAPL", start.AddDate(0, 0, 5))
	require.NoError(t, err)
	require.NotNil(t, bar)
	assert.Equal(t, 102.0, bar.Close)

	// Before the first observation there is no price
	bar, err = repo.LatestBar("AAPL", start.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Nil(t, bar)
}

func TestTrailingStats(t *testing.T) {
	repo := setupHistoryDB(t)
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	r1, r2 := 0.02, 0.04
	v1, v2 := 0.20, 0.40
	bars := []Bar{
		{Date: start, Close: 100},
		{Date: start.AddDate(0, 0, 1), Close: 102, Return: &r1, Volatility: &v1},
		{Date: start.AddDate(0, 0, 2), Close: 106, Return: &r2, Volatility: &v2},
	}
	require.NoError(t, repo.UpsertBars("AAPL", bars))

	meanRet, meanVol, err := repo.TrailingStats("AAPL", start.AddDate(0, 0, 10), 2)
	require.NoError(t, err)
	require.NotNil(t, meanRet)
	require.NotNil(t, meanVol)
	assert.InDelta(t, 0.03, *meanRet, 1e-9)
	assert.InDelta(t, 0.30, *meanVol, 1e-9)
}

func TestTrailingStatsNoData(t *testing.T) {
	repo := setupHistoryDB(t)

	meanRet, meanVol, err := repo.TrailingStats("NOPE", time.Now(), 20)
	require.NoError(t, err)
	assert.Nil(t, meanRet)
	assert.Nil(t, meanVol)
}
