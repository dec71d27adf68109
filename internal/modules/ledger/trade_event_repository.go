// Package ledger provides the append-only trade-event store and the
// point-in-time position reconstructor built on top of it.
package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantply/fundsim/internal/domain"
	"github.com/quantply/fundsim/internal/utils"
)

// tradeEventColumns is the list of columns for the trade_events table.
// Column order must match scanEvent.
const tradeEventColumns = `id, event_uid, portfolio_id, ticker, side, quantity, date, trailing_volatility, trailing_return, created_at`

// TradeEventRepository handles trade-event database operations.
// Events are immutable; the only mutation is the idempotent append.
type TradeEventRepository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewTradeEventRepository creates a new trade event repository
func NewTradeEventRepository(ledgerDB *sql.DB, log zerolog.Logger) *TradeEventRepository {
	return &TradeEventRepository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "trade_event").Logger(),
	}
}

// Append inserts a trade event unless an event with the same
// (portfolio, ticker, date, side) already exists. Returns true when a row
// was inserted, false when the duplicate was silently absorbed; re-running
// decision generation for an already-processed date must not duplicate
// events.
func (r *TradeEventRepository) Append(event domain.TradeEvent) (bool, error) {
	if event.Quantity <= 0 {
		return false, fmt.Errorf("trade event quantity must be positive, got %d", event.Quantity)
	}
	if _, err := domain.ParseSide(string(event.Side)); err != nil {
		return false, err
	}

	res, err := r.ledgerDB.Exec(`
		INSERT OR IGNORE INTO trade_events
		(event_uid, portfolio_id, ticker, side, quantity, date, trailing_volatility, trailing_return, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.EventUID,
		event.PortfolioID,
		event.Ticker,
		string(event.Side),
		event.Quantity,
		utils.MidnightUTC(event.Date).Unix(),
		nullFloat64Ptr(event.TrailingVolatility),
		nullFloat64Ptr(event.TrailingReturn),
		time.Now().Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to append trade event: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read append result: %w", err)
	}

	if affected == 0 {
		r.log.Debug().
			Int64("portfolio_id", event.PortfolioID).
			Str("ticker", event.Ticker).
			Str("side", string(event.Side)).
			Str("date", event.Date.Format(utils.DateLayout)).
			Msg("Duplicate trade event absorbed")
		return false, nil
	}

	return true, nil
}

// GetUntil retrieves all events for a portfolio with date <= asOf,
// ordered by date ascending
func (r *TradeEventRepository) GetUntil(portfolioID int64, asOf time.Time) ([]domain.TradeEvent, error) {
	return r.queryEvents(`
		SELECT `+tradeEventColumns+` FROM trade_events
		WHERE portfolio_id = ? AND date <= ?
		ORDER BY date ASC
	`, portfolioID, utils.MidnightUTC(asOf).Unix())
}

// GetAllInRange retrieves all events for a portfolio within [start, end],
// ordered by date ascending
func (r *TradeEventRepository) GetAllInRange(portfolioID int64, start, end time.Time) ([]domain.TradeEvent, error) {
	return r.queryEvents(`
		SELECT `+tradeEventColumns+` FROM trade_events
		WHERE portfolio_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, portfolioID, utils.MidnightUTC(start).Unix(), utils.MidnightUTC(end).Unix())
}

// GetAll retrieves the full event history for a portfolio ordered by date
func (r *TradeEventRepository) GetAll(portfolioID int64) ([]domain.TradeEvent, error) {
	return r.queryEvents(`
		SELECT `+tradeEventColumns+` FROM trade_events
		WHERE portfolio_id = ?
		ORDER BY date ASC
	`, portfolioID)
}

// CountOnDate returns the number of events for a portfolio on an exact date
func (r *TradeEventRepository) CountOnDate(portfolioID int64, date time.Time) (int, error) {
	var count int
	err := r.ledgerDB.QueryRow(
		"SELECT COUNT(*) FROM trade_events WHERE portfolio_id = ? AND date = ?",
		portfolioID, utils.MidnightUTC(date).Unix(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count events on date: %w", err)
	}
	return count, nil
}

// CountInMonth returns the number of events for a portfolio in the calendar
// month containing t
func (r *TradeEventRepository) CountInMonth(portfolioID int64, t time.Time) (int, error) {
	monthStart := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0).Add(-time.Second)

	var count int
	err := r.ledgerDB.QueryRow(
		"SELECT COUNT(*) FROM trade_events WHERE portfolio_id = ? AND date >= ? AND date <= ?",
		portfolioID, monthStart.Unix(), monthEnd.Unix(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count events in month: %w", err)
	}
	return count, nil
}

// MonthlyAggregates summarizes a portfolio's latest calendar month of trading:
// trade count, mean trailing volatility and summed trailing return across the
// month's events. Returns nil when the portfolio has no events.
func (r *TradeEventRepository) MonthlyAggregates(portfolioID int64) (*MonthAggregate, error) {
	row := r.ledgerDB.QueryRow(`
		SELECT
			strftime('%Y-%m', date, 'unixepoch') AS month,
			AVG(trailing_volatility),
			SUM(trailing_return),
			COUNT(*)
		FROM trade_events
		WHERE portfolio_id = ?
		GROUP BY month
		ORDER BY month DESC
		LIMIT 1
	`, portfolioID)

	var agg MonthAggregate
	var avgVol, sumRet sql.NullFloat64
	err := row.Scan(&agg.Month, &avgVol, &sumRet, &agg.TradeCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate month for portfolio %d: %w", portfolioID, err)
	}

	if avgVol.Valid {
		agg.MeanVolatility = &avgVol.Float64
	}
	if sumRet.Valid {
		agg.SummedReturn = &sumRet.Float64
	}

	return &agg, nil
}

// MonthAggregate summarizes one calendar month of a portfolio's trading
type MonthAggregate struct {
	Month          string   `json:"month"`
	MeanVolatility *float64 `json:"mean_volatility,omitempty"`
	SummedReturn   *float64 `json:"summed_return,omitempty"`
	TradeCount     int      `json:"trade_count"`
}

func (r *TradeEventRepository) queryEvents(query string, args ...interface{}) ([]domain.TradeEvent, error) {
	rows, err := r.ledgerDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade events: %w", err)
	}
	defer rows.Close()

	var events []domain.TradeEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade events: %w", err)
	}

	return events, nil
}

func scanEvent(rows *sql.Rows) (domain.TradeEvent, error) {
	var event domain.TradeEvent
	var side string
	var dateUnix, createdUnix int64
	var vol, ret sql.NullFloat64

	err := rows.Scan(
		&event.ID,
		&event.EventUID,
		&event.PortfolioID,
		&event.Ticker,
		&side,
		&event.Quantity,
		&dateUnix,
		&vol,
		&ret,
		&createdUnix,
	)
	if err != nil {
		return domain.TradeEvent{}, err
	}

	parsed, err := domain.ParseSide(side)
	if err != nil {
		return domain.TradeEvent{}, err
	}
	event.Side = parsed
	event.Date = time.Unix(dateUnix, 0).UTC()
	event.CreatedAt = time.Unix(createdUnix, 0).UTC()

	if vol.Valid {
		event.TrailingVolatility = &vol.Float64
	}
	if ret.Valid {
		event.TrailingReturn = &ret.Float64
	}

	return event, nil
}

func nullFloat64Ptr(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
