package domain

import "errors"

// Data-availability failures are local: callers skip the affected instrument
// and continue.
var (
	// ErrMissingData indicates no market series exists for an instrument/date.
	ErrMissingData = errors.New("no market data available")

	// ErrInsufficientHistory indicates the trailing window is shorter than the
	// policy requires for this epoch.
	ErrInsufficientHistory = errors.New("insufficient trailing history")

	// ErrEmptyRange indicates a metrics request over fewer than two weekly
	// samples; callers receive canonical zero metrics instead.
	ErrEmptyRange = errors.New("not enough weekly samples")
)
