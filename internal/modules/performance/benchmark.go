package performance

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/quantply/fundsim/internal/modules/marketdata"
	"github.com/quantply/fundsim/internal/utils"
)

// BenchmarkComparison relates a portfolio's weekly returns to a benchmark
// instrument's over the overlapping weeks
type BenchmarkComparison struct {
	PortfolioID int64   `json:"portfolio_id"`
	Benchmark   string  `json:"benchmark"`
	Weeks       int     `json:"weeks"`
	Beta        float64 `json:"beta"`
	Alpha       float64 `json:"alpha"` // annualized
}

// BenchmarkWeeklyReturns builds an instrument's Monday-to-Monday return
// series over [start, end] from stored closes, keyed by date string. Weeks
// without a usable prior close are left out.
func BenchmarkWeeklyReturns(series *marketdata.SeriesRepository, ticker string, start, end time.Time) (map[string]float64, error) {
	mondays := utils.MondaysBetween(start, end)
	returns := make(map[string]float64, len(mondays))

	var prevClose float64
	for _, monday := range mondays {
		bar, err := series.LatestBar(ticker, monday)
		if err != nil {
			return nil, err
		}
		if bar == nil {
			continue
		}
		if prevClose > 0 {
			returns[monday.Format(utils.DateLayout)] = bar.Close/prevClose - 1
		}
		prevClose = bar.Close
	}

	return returns, nil
}

// CompareToBenchmark regresses the portfolio's weekly returns against a
// benchmark instrument's over their overlapping dates. Returns nil when
// fewer than two weeks overlap; beta falls back to zero when the benchmark
// shows no variance.
func (s *Service) CompareToBenchmark(
	portfolioID int64,
	benchmark string,
	benchmarkReturns map[string]float64,
	start, end time.Time,
) (*BenchmarkComparison, error) {
	points, err := s.WeeklyReturns(portfolioID, start, end)
	if err != nil {
		return nil, err
	}

	var portfolio, market []float64
	for _, point := range points {
		if point.Return == nil {
			continue
		}
		benchReturn, ok := benchmarkReturns[point.Date]
		if !ok {
			continue
		}
		portfolio = append(portfolio, *point.Return)
		market = append(market, benchReturn)
	}

	if len(portfolio) < 2 {
		return nil, nil
	}

	marketVariance := stat.Variance(market, nil)
	var beta float64
	if marketVariance > 0 {
		beta = stat.Covariance(portfolio, market, nil) / marketVariance
	}

	meanPortfolio := stat.Mean(portfolio, nil)
	meanMarket := stat.Mean(market, nil)
	weeklyAlpha := meanPortfolio - beta*meanMarket

	return &BenchmarkComparison{
		PortfolioID: portfolioID,
		Benchmark:   benchmark,
		Weeks:       len(portfolio),
		Beta:        beta,
		Alpha:       weeklyAlpha * WeeksPerYear,
	}, nil
}
