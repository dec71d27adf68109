// Package catalog provides repositories for the instrument catalog,
// clients, portfolios and allocation memberships.
package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantply/fundsim/internal/domain"
)

// instrumentColumns is the list of columns for the instruments table.
// Used to avoid SELECT * which can break when schema changes.
const instrumentColumns = `id, name, class, ticker`

// InstrumentRepository handles instrument catalog database operations
type InstrumentRepository struct {
	universeDB *sql.DB
	log        zerolog.Logger
}

// NewInstrumentRepository creates a new instrument repository
func NewInstrumentRepository(universeDB *sql.DB, log zerolog.Logger) *InstrumentRepository {
	return &InstrumentRepository{
		universeDB: universeDB,
		log:        log.With().Str("repo", "instrument").Logger(),
	}
}

// Create inserts a new instrument record
func (r *InstrumentRepository) Create(inst domain.Instrument) error {
	query := `
		INSERT INTO instruments (name, class, ticker, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := r.universeDB.Exec(query,
		inst.Name,
		string(inst.Class),
		strings.ToUpper(strings.TrimSpace(inst.Ticker)),
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create instrument %s: %w", inst.Ticker, err)
	}

	return nil
}

// GetByTicker retrieves a single instrument, or nil when unknown
func (r *InstrumentRepository) GetByTicker(ticker string) (*domain.Instrument, error) {
	query := "SELECT " + instrumentColumns + " FROM instruments WHERE ticker = ?"

	row := r.universeDB.QueryRow(query, strings.ToUpper(strings.TrimSpace(ticker)))
	inst, err := scanInstrument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get instrument by ticker: %w", err)
	}

	return &inst, nil
}

// GetAll retrieves the full catalog ordered by ticker
func (r *InstrumentRepository) GetAll() ([]domain.Instrument, error) {
	query := "SELECT " + instrumentColumns + " FROM instruments ORDER BY ticker ASC"

	rows, err := r.universeDB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query instruments: %w", err)
	}
	defer rows.Close()

	var instruments []domain.Instrument
	for rows.Next() {
		inst, err := scanInstrumentFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instrument: %w", err)
		}
		instruments = append(instruments, inst)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating instruments: %w", err)
	}

	return instruments, nil
}

// GetAllTickers retrieves all tickers ordered lexically
func (r *InstrumentRepository) GetAllTickers() ([]string, error) {
	rows, err := r.universeDB.Query("SELECT ticker FROM instruments ORDER BY ticker ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query tickers: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		tickers = append(tickers, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tickers: %w", err)
	}

	return tickers, nil
}

// ClassesByTicker returns the asset class for every instrument, keyed by ticker
func (r *InstrumentRepository) ClassesByTicker() (map[string]domain.AssetClass, error) {
	rows, err := r.universeDB.Query("SELECT ticker, class FROM instruments")
	if err != nil {
		return nil, fmt.Errorf("failed to query instrument classes: %w", err)
	}
	defer rows.Close()

	classes := make(map[string]domain.AssetClass)
	for rows.Next() {
		var ticker, class string
		if err := rows.Scan(&ticker, &class); err != nil {
			return nil, fmt.Errorf("failed to scan instrument class: %w", err)
		}
		parsed, err := domain.ParseAssetClass(class)
		if err != nil {
			return nil, err
		}
		classes[ticker] = parsed
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating instrument classes: %w", err)
	}

	return classes, nil
}

// Count returns the number of catalogued instruments
func (r *InstrumentRepository) Count() (int, error) {
	var count int
	if err := r.universeDB.QueryRow("SELECT COUNT(*) FROM instruments").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count instruments: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInstrument(row *sql.Row) (domain.Instrument, error) {
	return scanInstrumentRow(row)
}

func scanInstrumentFromRows(rows *sql.Rows) (domain.Instrument, error) {
	return scanInstrumentRow(rows)
}

func scanInstrumentRow(s rowScanner) (domain.Instrument, error) {
	var inst domain.Instrument
	var class string

	if err := s.Scan(&inst.ID, &inst.Name, &class, &inst.Ticker); err != nil {
		return domain.Instrument{}, err
	}

	parsed, err := domain.ParseAssetClass(class)
	if err != nil {
		return domain.Instrument{}, err
	}
	inst.Class = parsed

	return inst, nil
}
