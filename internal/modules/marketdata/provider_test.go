package marketdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyntheticProviderDeterministic(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)

	a, err := NewSyntheticProvider(42).FetchCloses("AAPL", start, end)
	require.NoError(t, err)
	b, err := NewSyntheticProvider(42).FetchCloses("AAPL", start, end)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestSyntheticProviderVariesByTickerAndSeed(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)

	provider := NewSyntheticProvider(42)
	aapl, err := provider.FetchCloses("AAPL", start, end)
	require.NoError(t, err)
	msft, err := provider.FetchCloses("MSFT", start, end)
	require.NoError(t, err)
	require.Equal(t, len(aapl), len(msft))
	assert.NotEqual(t, aapl[0].Close, msft[0].Close)

	other, err := NewSyntheticProvider(7).FetchCloses("AAPL", start, end)
	require.NoError(t, err)
	assert.NotEqual(t, aapl[0].Close, other[0].Close)
}

func TestSyntheticProviderWeekdaysOnly(t *testing.T) {
	// One full week, Monday through Sunday
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)

	points, err := NewSyntheticProvider(42).FetchCloses("AAPL", start, end)
	require.NoError(t, err)
	require.Len(t, points, 5)

	for _, p := range points {
		assert.NotEqual(t, time.Saturday, p.Date.Weekday())
		assert.NotEqual(t, time.Sunday, p.Date.Weekday())
		assert.Greater(t, p.Close, 0.0)
	}
}

func TestSyntheticProviderEmptyRange(t *testing.T) {
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	points, err := NewSyntheticProvider(42).FetchCloses("AAPL", start, end)
	require.NoError(t, err)
	assert.Empty(t, points)
}
