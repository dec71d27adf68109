package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	parsed, err := ParseDate("2025-03-10")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), parsed)
}

func TestParseDateInvalid(t *testing.T) {
	_, err := ParseDate("10/03/2025")
	assert.Error(t, err)

	_, err = ParseDate("")
	assert.Error(t, err)
}

func TestDateToUnixRoundTrip(t *testing.T) {
	ts, err := DateToUnix("2025-03-10")
	require.NoError(t, err)

	assert.Equal(t, "2025-03-10", UnixToDate(ts))
}

func TestEndOfDayUnix(t *testing.T) {
	start, err := DateToUnix("2025-03-10")
	require.NoError(t, err)
	end, err := EndOfDayUnix("2025-03-10")
	require.NoError(t, err)

	assert.Equal(t, int64(86399), end-start)
}

func TestMidnightUTC(t *testing.T) {
	ts := time.Date(2025, 3, 10, 17, 45, 12, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), MidnightUTC(ts))
}

func TestPreviousMonday(t *testing.T) {
	// 2025-03-13 is a Thursday
	thursday := time.Date(2025, 3, 13, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), PreviousMonday(thursday))

	// A Monday maps to itself
	monday := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), PreviousMonday(monday))
}

func TestMondaysBetween(t *testing.T) {
	// 2025-03-01 is a Saturday; first Monday in range is 2025-03-03
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)

	mondays := MondaysBetween(start, end)
	require.Len(t, mondays, 5)
	assert.Equal(t, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), mondays[0])
	assert.Equal(t, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), mondays[4])

	for _, m := range mondays {
		assert.Equal(t, time.Monday, m.Weekday())
	}
}

func TestMondaysBetweenEmptyRange(t *testing.T) {
	// Tuesday to Friday of the same week contains no Monday
	start := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	assert.Empty(t, MondaysBetween(start, end))
}

func TestWeekOfMonth(t *testing.T) {
	cases := []struct {
		day  int
		week int
	}{
		{1, 1}, {7, 1}, {8, 2}, {14, 2}, {15, 3}, {21, 3}, {22, 4}, {31, 5},
	}
	for _, tc := range cases {
		d := time.Date(2025, 3, tc.day, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, tc.week, WeekOfMonth(d), "day %d", tc.day)
	}
}

func TestYearMonth(t *testing.T) {
	assert.Equal(t, "2025-03", YearMonth(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)))
}
