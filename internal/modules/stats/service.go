package stats

import (
	"github.com/rs/zerolog"

	"github.com/quantply/fundsim/internal/modules/catalog"
	"github.com/quantply/fundsim/internal/modules/ledger"
)

// Service refreshes realized monthly statistics from the trade-event ledger
type Service struct {
	repo    *Repository
	clients *catalog.ClientRepository
	events  *ledger.TradeEventRepository
	log     zerolog.Logger
}

// NewService creates a new stats service
func NewService(repo *Repository, clients *catalog.ClientRepository, events *ledger.TradeEventRepository, log zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		clients: clients,
		events:  events,
		log:     log.With().Str("service", "stats").Logger(),
	}
}

// RefreshAll recomputes the latest month's realized statistics for every
// portfolio. Portfolios without any events are skipped.
func (s *Service) RefreshAll() error {
	portfolios, err := s.clients.GetAllPortfolios()
	if err != nil {
		return err
	}

	for _, portfolio := range portfolios {
		agg, err := s.events.MonthlyAggregates(portfolio.ID)
		if err != nil {
			return err
		}
		if agg == nil {
			continue
		}

		err = s.repo.Upsert(MonthlyStat{
			PortfolioID:        portfolio.ID,
			Month:              agg.Month,
			RealizedVolatility: agg.MeanVolatility,
			RealizedReturn:     agg.SummedReturn,
			MonthlyTrades:      agg.TradeCount,
		})
		if err != nil {
			return err
		}

		s.log.Debug().
			Int64("portfolio_id", portfolio.ID).
			Str("month", agg.Month).
			Int("trades", agg.TradeCount).
			Msg("Monthly stats refreshed")
	}

	return nil
}

// History returns the stored monthly statistics for a portfolio
func (s *Service) History(portfolioID int64) ([]MonthlyStat, error) {
	return s.repo.GetByPortfolio(portfolioID)
}
