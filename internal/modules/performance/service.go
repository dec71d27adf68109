package performance

import (
	"math"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/quantply/fundsim/internal/domain"
	"github.com/quantply/fundsim/internal/modules/valuation"
	"github.com/quantply/fundsim/internal/utils"
)

const (
	// WeeksPerYear is the annualization factor for weekly observations
	WeeksPerYear = 52
	// ReturnClip bounds a single weekly return; valuation jumps beyond
	// +-10% come from trade flows, not market moves, and would distort
	// the compounded series.
	ReturnClip = 0.10
)

// WeeklyPoint is one Monday observation of a portfolio's value and its
// week-over-week return. Return is nil for the first priced week and for
// weeks without a usable prior value.
type WeeklyPoint struct {
	Date   string   `json:"date"`
	Value  float64  `json:"value"`
	Return *float64 `json:"return,omitempty"`
}

// Metrics is the performance summary of a weekly return series
type Metrics struct {
	PortfolioID      int64   `json:"portfolio_id"`
	Start            string  `json:"start"`
	End              string  `json:"end"`
	Weeks            int     `json:"weeks"`
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	AnnualizedVol    float64 `json:"annualized_volatility"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	MaxDrawdown      float64 `json:"max_drawdown"` // reported as a negative fraction
	FinalValue       float64 `json:"final_value"`
	PositiveWeeks    int     `json:"positive_weeks"`
}

// Service computes portfolio performance from weekly valuation series.
// All statistics derive from Monday-to-Monday value changes; the risk-free
// rate is annual and constant.
type Service struct {
	valuation    *valuation.Service
	riskFreeRate float64
	log          zerolog.Logger
}

// NewService creates a new performance service
func NewService(valuationSvc *valuation.Service, riskFreeRate float64, log zerolog.Logger) *Service {
	return &Service{
		valuation:    valuationSvc,
		riskFreeRate: riskFreeRate,
		log:          log.With().Str("service", "performance").Logger(),
	}
}

// WeeklyReturns values a portfolio on every Monday in [start, end] and
// derives week-over-week returns. Returns are percent changes against the
// most recent prior week with a positive value, clipped to +-10%. Weeks
// where the portfolio values to zero yield no return and do not reset the
// comparison base.
func (s *Service) WeeklyReturns(portfolioID int64, start, end time.Time) ([]WeeklyPoint, error) {
	mondays := utils.MondaysBetween(start, end)
	if len(mondays) == 0 {
		return nil, domain.ErrEmptyRange
	}

	points := make([]WeeklyPoint, 0, len(mondays))
	var prevValue float64

	for _, monday := range mondays {
		value, _, err := s.valuation.ValueAndReturn(portfolioID, monday)
		if err != nil {
			return nil, err
		}

		point := WeeklyPoint{
			Date:  monday.Format(utils.DateLayout),
			Value: value,
		}

		if prevValue > 0 && value > 0 {
			r := clip(value/prevValue-1, ReturnClip)
			point.Return = &r
		}
		if value > 0 {
			prevValue = value
		}

		points = append(points, point)
	}

	return points, nil
}

// ComputeMetrics summarizes a weekly series into performance metrics.
// Fewer than two return observations yields zeroed metrics rather than an
// error: a fresh portfolio simply has no measurable performance yet.
func (s *Service) ComputeMetrics(portfolioID int64, start, end time.Time) (*Metrics, error) {
	points, err := s.WeeklyReturns(portfolioID, start, end)
	if err != nil {
		return nil, err
	}

	metrics := &Metrics{
		PortfolioID: portfolioID,
		Start:       utils.MidnightUTC(start).Format(utils.DateLayout),
		End:         utils.MidnightUTC(end).Format(utils.DateLayout),
	}
	if len(points) > 0 {
		metrics.FinalValue = points[len(points)-1].Value
	}

	returns := make([]float64, 0, len(points))
	for _, point := range points {
		if point.Return != nil {
			returns = append(returns, *point.Return)
		}
	}
	metrics.Weeks = len(returns)

	if len(returns) < 2 {
		return metrics, nil
	}

	growth := 1.0
	for _, r := range returns {
		growth *= 1 + r
		if r > 0 {
			metrics.PositiveWeeks++
		}
	}
	metrics.TotalReturn = growth - 1
	metrics.AnnualizedReturn = math.Pow(growth, WeeksPerYear/float64(len(returns))) - 1
	metrics.AnnualizedVol = stat.StdDev(returns, nil) * math.Sqrt(WeeksPerYear)
	metrics.MaxDrawdown = maxDrawdown(returns)

	if metrics.AnnualizedVol > 0 {
		metrics.SharpeRatio = (metrics.AnnualizedReturn - s.riskFreeRate) / metrics.AnnualizedVol
	}

	return metrics, nil
}

// maxDrawdown computes the worst peak-to-trough decline of the compounded
// value series implied by the returns. Zero when the series never declines.
func maxDrawdown(returns []float64) float64 {
	value := 1.0
	peak := 1.0
	worst := 0.0

	for _, r := range returns {
		value *= 1 + r
		if value > peak {
			peak = value
		}
		if dd := value/peak - 1; dd < worst {
			worst = dd
		}
	}

	return worst
}

func clip(v, bound float64) float64 {
	if v > bound {
		return bound
	}
	if v < -bound {
		return -bound
	}
	return v
}
