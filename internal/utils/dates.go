// Package utils provides shared date and timing helpers.
package utils

import (
	"fmt"
	"time"
)

// DateLayout is the canonical YYYY-MM-DD date format used at API boundaries.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// DateToUnix converts a YYYY-MM-DD string to a Unix timestamp at midnight UTC.
func DateToUnix(s string) (int64, error) {
	t, err := ParseDate(s)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}

// EndOfDayUnix converts a YYYY-MM-DD string to a Unix timestamp at 23:59:59 UTC.
// Used for inclusive upper bounds on date-range scans.
func EndOfDayUnix(s string) (int64, error) {
	t, err := ParseDate(s)
	if err != nil {
		return 0, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC).Unix(), nil
}

// UnixToDate formats a Unix timestamp as a YYYY-MM-DD string in UTC.
func UnixToDate(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(DateLayout)
}

// MidnightUTC truncates a time to midnight UTC.
func MidnightUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// PreviousMonday returns the most recent Monday at or before t (midnight UTC).
func PreviousMonday(t time.Time) time.Time {
	t = MidnightUTC(t)
	for t.Weekday() != time.Monday {
		t = t.AddDate(0, 0, -1)
	}
	return t
}

// MondaysBetween returns every Monday in [start, end], starting from the
// first Monday at or after start.
func MondaysBetween(start, end time.Time) []time.Time {
	cur := MidnightUTC(start)
	for cur.Weekday() != time.Monday {
		cur = cur.AddDate(0, 0, 1)
	}

	var mondays []time.Time
	for !cur.After(MidnightUTC(end)) {
		mondays = append(mondays, cur)
		cur = cur.AddDate(0, 0, 7)
	}
	return mondays
}

// WeekOfMonth returns the 1-based week-of-month index for t: days 1-7 are
// week 1, days 8-14 are week 2, and so on.
func WeekOfMonth(t time.Time) int {
	return (t.Day()-1)/7 + 1
}

// YearMonth formats a time as YYYY-MM.
func YearMonth(t time.Time) string {
	return t.UTC().Format("2006-01")
}
