package catalog

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/quantply/fundsim/internal/domain"
)

// Seeder populates an empty catalog with the default fund setup: three
// clients (one per risk profile), their portfolios, the instrument catalog
// and the per-profile allocation memberships.
type Seeder struct {
	instruments *InstrumentRepository
	clients     *ClientRepository
	allocations *AllocationRepository
	targetVol   float64
	log         zerolog.Logger
}

// NewSeeder creates a new catalog seeder
func NewSeeder(
	instruments *InstrumentRepository,
	clients *ClientRepository,
	allocations *AllocationRepository,
	targetVol float64,
	log zerolog.Logger,
) *Seeder {
	return &Seeder{
		instruments: instruments,
		clients:     clients,
		allocations: allocations,
		targetVol:   targetVol,
		log:         log.With().Str("service", "seeder").Logger(),
	}
}

type seedInstrument struct {
	name   string
	class  domain.AssetClass
	ticker string
}

var seedInstruments = []seedInstrument{
	// Equities
	{"Apple", domain.AssetClassEquity, "AAPL"},
	{"Google", domain.AssetClassEquity, "GOOGL"},
	{"Microsoft", domain.AssetClassEquity, "MSFT"},
	{"Tesla", domain.AssetClassEquity, "TSLA"},
	{"Nvidia", domain.AssetClassEquity, "NVDA"},
	{"Meta Platforms", domain.AssetClassEquity, "META"},
	{"Amazon", domain.AssetClassEquity, "AMZN"},
	{"Johnson & Johnson", domain.AssetClassEquity, "JNJ"},
	{"Visa", domain.AssetClassEquity, "V"},
	{"Coca-Cola", domain.AssetClassEquity, "KO"},
	{"Procter & Gamble", domain.AssetClassEquity, "PG"},
	{"Pfizer", domain.AssetClassEquity, "PFE"},
	{"Berkshire Hathaway", domain.AssetClassEquity, "BRK-B"},
	{"Walmart", domain.AssetClassEquity, "WMT"},
	{"McDonald's", domain.AssetClassEquity, "MCD"},
	{"JPMorgan Chase", domain.AssetClassEquity, "JPM"},
	{"Chevron", domain.AssetClassEquity, "CVX"},
	{"PepsiCo", domain.AssetClassEquity, "PEP"},
	{"Intel", domain.AssetClassEquity, "INTC"},
	{"Netflix", domain.AssetClassEquity, "NFLX"},

	// Fund wrappers
	{"S&P 500 ETF", domain.AssetClassFundWrapper, "SPY"},
	{"NASDAQ-100 ETF", domain.AssetClassFundWrapper, "QQQ"},
	{"Russell 2000 ETF", domain.AssetClassFundWrapper, "IWM"},
	{"MSCI World ETF", domain.AssetClassFundWrapper, "URTH"},
	{"Technology Select Sector ETF", domain.AssetClassFundWrapper, "XLK"},
	{"Healthcare Select Sector ETF", domain.AssetClassFundWrapper, "XLV"},
	{"Financial Select Sector ETF", domain.AssetClassFundWrapper, "XLF"},
	{"Consumer Discretionary ETF", domain.AssetClassFundWrapper, "XLY"},
	{"Energy Select Sector ETF", domain.AssetClassFundWrapper, "XLE"},
	{"Vanguard Total World ETF", domain.AssetClassFundWrapper, "VT"},

	// Fixed income
	{"Treasury Bond ETF", domain.AssetClassFixedIncome, "TLT"},
	{"Corporate Bond ETF", domain.AssetClassFixedIncome, "LQD"},
	{"iShares TIPS Bond ETF", domain.AssetClassFixedIncome, "TIP"},
	{"Aggregate Bond ETF", domain.AssetClassFixedIncome, "AGG"},
	{"High Yield Bond ETF", domain.AssetClassFixedIncome, "HYG"},
	{"Municipal Bond ETF", domain.AssetClassFixedIncome, "MUB"},
	{"Short-Term Treasury ETF", domain.AssetClassFixedIncome, "SHY"},
	{"Intermediate Treasury ETF", domain.AssetClassFixedIncome, "IEF"},
	{"UltraShort Treasury ETF", domain.AssetClassFixedIncome, "TBT"},
	{"Vanguard Total Bond Market ETF", domain.AssetClassFixedIncome, "BND"},
}

var seedClients = []struct {
	name    string
	profile domain.RiskProfile
	assets  []string
}{
	{"Client 1", domain.ProfileConservative, []string{"TLT", "LQD", "TIP", "AGG", "SPY", "BND"}},
	{"Client 2", domain.ProfileLowTurnover, []string{"AAPL", "MSFT", "JNJ", "V", "KO", "PG", "SPY", "VT"}},
	{"Client 3", domain.ProfileHighYieldEquity, []string{"AAPL", "GOOGL", "MSFT", "TSLA", "NVDA", "META", "AMZN", "NFLX"}},
}

// SeedIfEmpty populates the catalog when no clients exist yet.
// Safe to call on every startup.
func (s *Seeder) SeedIfEmpty() error {
	count, err := s.clients.CountClients()
	if err != nil {
		return err
	}
	if count > 0 {
		s.log.Debug().Int("clients", count).Msg("Catalog already seeded")
		return nil
	}

	return s.Seed()
}

// Seed inserts the default clients, portfolios, instruments and allocations
func (s *Seeder) Seed() error {
	for _, inst := range seedInstruments {
		err := s.instruments.Create(domain.Instrument{
			Name:   inst.name,
			Class:  inst.class,
			Ticker: inst.ticker,
		})
		if err != nil {
			return fmt.Errorf("failed to seed instrument %s: %w", inst.ticker, err)
		}
	}

	for _, c := range seedClients {
		clientID, err := s.clients.CreateClient(c.name, c.profile)
		if err != nil {
			return fmt.Errorf("failed to seed client %s: %w", c.name, err)
		}

		portfolio := domain.Portfolio{
			ClientID:    clientID,
			Name:        fmt.Sprintf("Portfolio of %s", c.name),
			RiskProfile: c.profile,
		}
		switch c.profile {
		case domain.ProfileConservative:
			targetVol := s.targetVol
			portfolio.TargetVolatility = &targetVol
		case domain.ProfileLowTurnover:
			maxTrades := 2
			portfolio.MaxMonthlyTrades = &maxTrades
		case domain.ProfileHighYieldEquity:
			// No extra parameters
		}

		if _, err := s.clients.CreatePortfolio(portfolio); err != nil {
			return fmt.Errorf("failed to seed portfolio for %s: %w", c.name, err)
		}

		for _, ticker := range c.assets {
			if err := s.allocations.Add(clientID, ticker, 0); err != nil {
				return fmt.Errorf("failed to seed allocation %s: %w", ticker, err)
			}
		}
	}

	s.log.Info().
		Int("instruments", len(seedInstruments)).
		Int("clients", len(seedClients)).
		Msg("Catalog seeded")

	return nil
}
