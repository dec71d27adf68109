// Package domain provides core domain models and types.
package domain

import (
	"fmt"
	"time"
)

// AssetClass represents the class of a tradeable instrument
type AssetClass string

const (
	// AssetClassEquity represents individual stocks/shares
	AssetClassEquity AssetClass = "EQUITY"
	// AssetClassFixedIncome represents bonds and bond funds
	AssetClassFixedIncome AssetClass = "FIXED_INCOME"
	// AssetClassFundWrapper represents ETFs and index fund wrappers
	AssetClassFundWrapper AssetClass = "FUND_WRAPPER"
)

// ParseAssetClass validates a stored asset class value
func ParseAssetClass(s string) (AssetClass, error) {
	switch AssetClass(s) {
	case AssetClassEquity, AssetClassFixedIncome, AssetClassFundWrapper:
		return AssetClass(s), nil
	}
	return "", fmt.Errorf("unknown asset class: %q", s)
}

// RiskProfile is the closed set of strategy profiles a client can hold.
// Strategy dispatch switches exhaustively over these variants.
type RiskProfile string

const (
	// ProfileConservative targets a fixed annualized volatility
	ProfileConservative RiskProfile = "CONSERVATIVE"
	// ProfileLowTurnover trades at most once per active Monday
	ProfileLowTurnover RiskProfile = "LOW_TURNOVER"
	// ProfileHighYieldEquity is the aggressive equities-only momentum profile
	ProfileHighYieldEquity RiskProfile = "HIGH_YIELD_EQUITY"
)

// ParseRiskProfile validates a stored risk profile value
func ParseRiskProfile(s string) (RiskProfile, error) {
	switch RiskProfile(s) {
	case ProfileConservative, ProfileLowTurnover, ProfileHighYieldEquity:
		return RiskProfile(s), nil
	}
	return "", fmt.Errorf("unknown risk profile: %q", s)
}

// Side represents the direction of a trade event
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide validates a stored trade side value
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideBuy, SideSell:
		return Side(s), nil
	}
	return "", fmt.Errorf("unknown trade side: %q", s)
}

// Instrument is immutable reference data for a tradeable product
type Instrument struct {
	ID     int64      `json:"id"`
	Name   string     `json:"name"`
	Class  AssetClass `json:"class"`
	Ticker string     `json:"ticker"`
}

// Client owns exactly one portfolio in this system
type Client struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	RiskProfile RiskProfile `json:"risk_profile"`
}

// Portfolio belongs to one client and inherits its risk profile.
// Policy parameters are immutable after creation.
type Portfolio struct {
	ID               int64       `json:"id"`
	ClientID         int64       `json:"client_id"`
	Name             string      `json:"name"`
	RiskProfile      RiskProfile `json:"risk_profile"`
	TargetVolatility *float64    `json:"target_volatility,omitempty"` // Conservative only
	MaxMonthlyTrades *int        `json:"max_monthly_trades,omitempty"` // LowTurnover only
}

// Allocation marks an instrument as eligible for a client's strategy.
// Weight is informational only.
type Allocation struct {
	ID       int64   `json:"id"`
	ClientID int64   `json:"client_id"`
	Ticker   string  `json:"ticker"`
	Weight   float64 `json:"weight"`
}

// Decision is a single proposed trade for one epoch, produced by a policy.
// Quantity is always positive; Sell quantities are clamped to the current
// position before a decision is emitted.
type Decision struct {
	PortfolioID int64  `json:"portfolio_id"`
	Ticker      string `json:"ticker"`
	Side        Side   `json:"side"`
	Quantity    int64  `json:"quantity"`
}

// TradeEvent is one immutable record in the append-only ledger.
// At most one event exists per (portfolio, ticker, date, side).
type TradeEvent struct {
	ID                 int64     `json:"id"`
	EventUID           string    `json:"event_uid"`
	PortfolioID        int64     `json:"portfolio_id"`
	Ticker             string    `json:"ticker"`
	Side               Side      `json:"side"`
	Quantity           int64     `json:"quantity"`
	Date               time.Time `json:"date"`
	TrailingVolatility *float64  `json:"trailing_volatility,omitempty"`
	TrailingReturn     *float64  `json:"trailing_return,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// SignedQuantity returns the position delta this event contributes:
// positive for buys, negative for sells.
func (e TradeEvent) SignedQuantity() int64 {
	if e.Side == SideSell {
		return -e.Quantity
	}
	return e.Quantity
}
