package performance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBenchmarkWeeklyReturns(t *testing.T) {
	f := setupPerformance(t)
	f.holdOneShare(t, mondays[0], []float64{100, 105, 99.75})

	returns, err := BenchmarkWeeklyReturns(f.series, "IDX", mondays[0], mondays[2])
	require.NoError(t, err)
	require.Len(t, returns, 2)

	assert.InDelta(t, 0.05, returns["2025-03-10"], 1e-9)
	assert.InDelta(t, -0.05, returns["2025-03-17"], 1e-9)
}

func TestBenchmarkWeeklyReturnsUnknownTicker(t *testing.T) {
	f := setupPerformance(t)

	returns, err := BenchmarkWeeklyReturns(f.series, "GHOST", mondays[0], mondays[2])
	require.NoError(t, err)
	assert.Empty(t, returns)
}

func TestCompareToBenchmarkIdenticalSeries(t *testing.T) {
	f := setupPerformance(t)
	f.holdOneShare(t, mondays[0], []float64{100, 105, 99.75, 104})

	benchmarkReturns, err := BenchmarkWeeklyReturns(f.series, "IDX", mondays[0], mondays[3])
	require.NoError(t, err)

	// The portfolio is one share of the benchmark: beta 1, zero alpha
	comparison, err := f.service.CompareToBenchmark(1, "IDX", benchmarkReturns, mondays[0], mondays[3])
	require.NoError(t, err)
	require.NotNil(t, comparison)

	assert.Equal(t, 3, comparison.Weeks)
	assert.InDelta(t, 1.0, comparison.Beta, 1e-9)
	assert.InDelta(t, 0.0, comparison.Alpha, 1e-9)
}

func TestCompareToBenchmarkNoOverlap(t *testing.T) {
	f := setupPerformance(t)
	f.holdOneShare(t, mondays[0], []float64{100, 105, 99.75})

	comparison, err := f.service.CompareToBenchmark(1, "OTHER", map[string]float64{}, mondays[0], mondays[2])
	require.NoError(t, err)
	assert.Nil(t, comparison)
}
