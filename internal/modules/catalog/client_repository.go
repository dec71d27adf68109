package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantply/fundsim/internal/domain"
)

// ClientRepository handles client and portfolio database operations.
// Portfolios inherit their client's risk profile at onboarding time and
// their policy parameters are immutable after creation.
type ClientRepository struct {
	configDB *sql.DB
	log      zerolog.Logger
}

// NewClientRepository creates a new client repository
func NewClientRepository(configDB *sql.DB, log zerolog.Logger) *ClientRepository {
	return &ClientRepository{
		configDB: configDB,
		log:      log.With().Str("repo", "client").Logger(),
	}
}

// CreateClient inserts a client and returns its id
func (r *ClientRepository) CreateClient(name string, profile domain.RiskProfile) (int64, error) {
	res, err := r.configDB.Exec(
		"INSERT INTO clients (name, risk_profile, created_at) VALUES (?, ?, ?)",
		name, string(profile), time.Now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create client %s: %w", name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get client id: %w", err)
	}

	return id, nil
}

// CreatePortfolio inserts a portfolio for a client and returns its id.
// targetVolatility is set for Conservative portfolios, maxMonthlyTrades
// for LowTurnover ones; both are nil otherwise.
func (r *ClientRepository) CreatePortfolio(p domain.Portfolio) (int64, error) {
	res, err := r.configDB.Exec(`
		INSERT INTO portfolios (client_id, name, risk_profile, target_volatility, max_monthly_trades, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		p.ClientID,
		p.Name,
		string(p.RiskProfile),
		nullFloat64Ptr(p.TargetVolatility),
		nullIntPtr(p.MaxMonthlyTrades),
		time.Now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create portfolio for client %d: %w", p.ClientID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get portfolio id: %w", err)
	}

	return id, nil
}

// GetPortfolio retrieves a portfolio by id, or nil when unknown
func (r *ClientRepository) GetPortfolio(id int64) (*domain.Portfolio, error) {
	query := `
		SELECT id, client_id, name, risk_profile, target_volatility, max_monthly_trades
		FROM portfolios
		WHERE id = ?
	`

	p, err := scanPortfolio(r.configDB.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio %d: %w", id, err)
	}

	return &p, nil
}

// GetAllPortfolios retrieves every portfolio ordered by id
func (r *ClientRepository) GetAllPortfolios() ([]domain.Portfolio, error) {
	query := `
		SELECT id, client_id, name, risk_profile, target_volatility, max_monthly_trades
		FROM portfolios
		ORDER BY id ASC
	`

	rows, err := r.configDB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	var portfolios []domain.Portfolio
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		portfolios = append(portfolios, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolios: %w", err)
	}

	return portfolios, nil
}

// GetAllClients retrieves every client ordered by id
func (r *ClientRepository) GetAllClients() ([]domain.Client, error) {
	rows, err := r.configDB.Query("SELECT id, name, risk_profile FROM clients ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}
	defer rows.Close()

	var clients []domain.Client
	for rows.Next() {
		var c domain.Client
		var profile string
		if err := rows.Scan(&c.ID, &c.Name, &profile); err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		parsed, err := domain.ParseRiskProfile(profile)
		if err != nil {
			return nil, err
		}
		c.RiskProfile = parsed
		clients = append(clients, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clients: %w", err)
	}

	return clients, nil
}

// CountClients returns the number of onboarded clients
func (r *ClientRepository) CountClients() (int, error) {
	var count int
	if err := r.configDB.QueryRow("SELECT COUNT(*) FROM clients").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count clients: %w", err)
	}
	return count, nil
}

func scanPortfolio(s rowScanner) (domain.Portfolio, error) {
	var p domain.Portfolio
	var profile string
	var targetVol sql.NullFloat64
	var maxTrades sql.NullInt64

	if err := s.Scan(&p.ID, &p.ClientID, &p.Name, &profile, &targetVol, &maxTrades); err != nil {
		return domain.Portfolio{}, err
	}

	parsed, err := domain.ParseRiskProfile(profile)
	if err != nil {
		return domain.Portfolio{}, err
	}
	p.RiskProfile = parsed

	if targetVol.Valid {
		p.TargetVolatility = &targetVol.Float64
	}
	if maxTrades.Valid {
		n := int(maxTrades.Int64)
		p.MaxMonthlyTrades = &n
	}

	return p, nil
}

func nullFloat64Ptr(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func nullIntPtr(n *int) interface{} {
	if n == nil {
		return nil
	}
	return *n
}
