// Package domain defines the core data types shared across the trading
// simulator: quotes, conditional-order rules, and lookback periods.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Period is the lookback window requested from the market data provider.
type Period string

// Supported lookback periods.
const (
	Period1D  Period = "1d"
	Period5D  Period = "5d"
	Period1Mo Period = "1mo"
	Period3Mo Period = "3mo"
	Period1Y  Period = "1y"
)

// Days returns the approximate calendar length of the period. Used to size
// bar requests against the provider.
func (p Period) Days() int {
	switch p {
	case Period1D:
		return 1
	case Period5D:
		return 5
	case Period1Mo:
		return 31
	case Period3Mo:
		return 92
	case Period1Y:
		return 365
	default:
		return 1
	}
}

// Quote is a snapshot of OHLC price data for a symbol at a point in time.
// Close uses NullDecimal: an invalid close means "price unavailable" and is
// never to be read as zero.
type Quote struct {
	Symbol    string
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.NullDecimal
	Timestamp time.Time
}

// HasClose reports whether the quote carries a usable closing price.
func (q Quote) HasClose() bool {
	return q.Close.Valid
}

// RuleKind identifies the trigger semantics of a conditional order.
type RuleKind string

// Rule kinds. Buy-limit and stop-loss trigger at or below the target price;
// take-profit triggers at or above it.
const (
	BuyLimit       RuleKind = "buy_limit"
	SellStopLoss   RuleKind = "sell_stop_loss"
	SellTakeProfit RuleKind = "sell_take_profit"
)

// IsSell reports whether the kind results in a sell when triggered.
func (k RuleKind) IsSell() bool {
	return k == SellStopLoss || k == SellTakeProfit
}

// Valid reports whether k is one of the defined rule kinds.
func (k RuleKind) Valid() bool {
	switch k {
	case BuyLimit, SellStopLoss, SellTakeProfit:
		return true
	}
	return false
}

// Label returns the human-readable name used in tables and notifications.
func (k RuleKind) Label() string {
	switch k {
	case BuyLimit:
		return "Buy (Limit)"
	case SellStopLoss:
		return "Sell (Stop Loss)"
	case SellTakeProfit:
		return "Sell (Take Profit)"
	default:
		return string(k)
	}
}

// Rule is a standing conditional order: buy or sell a fixed quantity of a
// symbol when the price crosses the target. Rules are immutable once created;
// the only mutations are removal and consumption after a successful trigger.
type Rule struct {
	ID          int64           `json:"id"`
	Symbol      string          `json:"symbol"`
	Kind        RuleKind        `json:"kind"`
	TargetPrice decimal.Decimal `json:"target_price"`
	Quantity    int64           `json:"quantity"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Triggered reports whether the rule's predicate is satisfied by the given
// closing price.
func (r Rule) Triggered(close decimal.Decimal) bool {
	switch r.Kind {
	case BuyLimit, SellStopLoss:
		return close.LessThanOrEqual(r.TargetPrice)
	case SellTakeProfit:
		return close.GreaterThanOrEqual(r.TargetPrice)
	default:
		return false
	}
}
