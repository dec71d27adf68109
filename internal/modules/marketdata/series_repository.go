package marketdata

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantply/fundsim/internal/utils"
)

// SeriesRepository provides access to the daily market series store.
// Series live in a single (ticker, date)-keyed table; lookups are always
// backward-looking (most recent observation at or before the as-of date).
type SeriesRepository struct {
	historyDB *sql.DB
	log       zerolog.Logger
}

// NewSeriesRepository creates a new series repository
func NewSeriesRepository(historyDB *sql.DB, log zerolog.Logger) *SeriesRepository {
	return &SeriesRepository{
		historyDB: historyDB,
		log:       log.With().Str("repo", "series").Logger(),
	}
}

// UpsertBars writes daily observations for a ticker, replacing any existing
// rows for the same (ticker, date). Refreshing a date range is safe to rerun.
func (r *SeriesRepository) UpsertBars(ticker string, bars []Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := r.historyDB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin series upsert: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO daily_series (ticker, date, close, daily_return, volatility)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare series upsert: %w", err)
	}
	defer stmt.Close()

	for _, bar := range bars {
		_, err := stmt.Exec(
			ticker,
			utils.MidnightUTC(bar.Date).Unix(),
			bar.Close,
			nullFloat64Ptr(bar.Return),
			nullFloat64Ptr(bar.Volatility),
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to upsert bar %s/%s: %w", ticker, bar.Date.Format(utils.DateLayout), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit series upsert: %w", err)
	}

	return nil
}

// TrailingSeries fetches up to limit observations for a ticker with
// date <= asOf, most recent first. An unknown ticker yields an empty
// series, not an error.
func (r *SeriesRepository) TrailingSeries(ticker string, asOf time.Time, limit int) (*Series, error) {
	rows, err := r.historyDB.Query(`
		SELECT date, close, daily_return, volatility
		FROM daily_series
		WHERE ticker = ? AND date <= ?
		ORDER BY date DESC
		LIMIT ?
	`, ticker, utils.MidnightUTC(asOf).Unix(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query series for %s: %w", ticker, err)
	}
	defer rows.Close()

	series := &Series{Ticker: ticker}
	for rows.Next() {
		bar, err := scanBar(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bar for %s: %w", ticker, err)
		}
		series.Bars = append(series.Bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating series for %s: %w", ticker, err)
	}

	return series, nil
}

// LatestBar fetches the most recent observation at or before asOf.
// Returns nil when no observation exists; lookups never look forward.
func (r *SeriesRepository) LatestBar(ticker string, asOf time.Time) (*Bar, error) {
	row := r.historyDB.QueryRow(`
		SELECT date, close, daily_return, volatility
		FROM daily_series
		WHERE ticker = ? AND date <= ?
		ORDER BY date DESC
		LIMIT 1
	`, ticker, utils.MidnightUTC(asOf).Unix())

	bar, err := scanBar(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest bar for %s: %w", ticker, err)
	}

	return &bar, nil
}

// TrailingStats computes the mean daily return and mean rolling volatility
// over up to n observations ending at asOf. Used to annotate trade events
// with their market context. Either value is nil when no observations carry
// the corresponding column.
func (r *SeriesRepository) TrailingStats(ticker string, asOf time.Time, n int) (meanReturn, meanVolatility *float64, err error) {
	row := r.historyDB.QueryRow(`
		SELECT AVG(daily_return), AVG(volatility)
		FROM (
			SELECT daily_return, volatility
			FROM daily_series
			WHERE ticker = ? AND date <= ?
			ORDER BY date DESC
			LIMIT ?
		)
	`, ticker, utils.MidnightUTC(asOf).Unix(), n)

	var avgReturn, avgVol sql.NullFloat64
	if err := row.Scan(&avgReturn, &avgVol); err != nil {
		return nil, nil, fmt.Errorf("failed to compute trailing stats for %s: %w", ticker, err)
	}

	if avgReturn.Valid {
		meanReturn = &avgReturn.Float64
	}
	if avgVol.Valid {
		meanVolatility = &avgVol.Float64
	}

	return meanReturn, meanVolatility, nil
}

// LatestDate returns the most recent stored date for a ticker, or nil when
// the ticker has no observations
func (r *SeriesRepository) LatestDate(ticker string) (*time.Time, error) {
	var ts sql.NullInt64
	err := r.historyDB.QueryRow(
		"SELECT MAX(date) FROM daily_series WHERE ticker = ?", ticker,
	).Scan(&ts)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest date for %s: %w", ticker, err)
	}
	if !ts.Valid {
		return nil, nil
	}

	t := time.Unix(ts.Int64, 0).UTC()
	return &t, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBar(s rowScanner) (Bar, error) {
	var bar Bar
	var dateUnix int64
	var ret, vol sql.NullFloat64

	if err := s.Scan(&dateUnix, &bar.Close, &ret, &vol); err != nil {
		return Bar{}, err
	}

	bar.Date = time.Unix(dateUnix, 0).UTC()
	if ret.Valid {
		bar.Return = &ret.Float64
	}
	if vol.Valid {
		bar.Volatility = &vol.Float64
	}

	return bar, nil
}

func nullFloat64Ptr(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
