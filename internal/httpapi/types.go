// Package httpapi exposes the trading session over a JSON REST API plus a
// server-sent-events stream for change notifications.
package httpapi

import (
	"time"

	"github.com/shopspring/decimal"

	"tradesim/internal/domain"
	"tradesim/internal/ledger"
)

// PortfolioResponse is the priced session snapshot.
type PortfolioResponse struct {
	Cash     decimal.Decimal  `json:"cash"`
	Holdings []ledger.Holding `json:"holdings"`
	Total    decimal.Decimal  `json:"total"`
	// Unpriced lists held symbols without a current quote; their value is
	// excluded from total rather than counted as zero.
	Unpriced []string `json:"unpriced,omitempty"`
}

// WatchlistResponse lists watched symbols in insertion order.
type WatchlistResponse struct {
	Symbols []string `json:"symbols"`
}

// RuleJSON is the wire form of an active rule.
type RuleJSON struct {
	ID          int64           `json:"id"`
	Symbol      string          `json:"symbol"`
	Kind        string          `json:"kind"`
	TargetPrice decimal.Decimal `json:"target_price"`
	Quantity    int64           `json:"quantity"`
	CreatedAt   string          `json:"created_at"`
}

// RulesResponse lists active rules in book order.
type RulesResponse struct {
	Rules []RuleJSON `json:"rules"`
}

// AddRuleRequest registers a conditional order.
type AddRuleRequest struct {
	Symbol      string          `json:"symbol"`
	Kind        domain.RuleKind `json:"kind"`
	TargetPrice decimal.Decimal `json:"target_price"`
	Quantity    int64           `json:"quantity"`
}

// TradeRequest is a manual buy or sell at the latest close.
type TradeRequest struct {
	Symbol   string `json:"symbol"`
	Quantity int64  `json:"quantity"`
}

// TradeResponse reports the fill of a manual trade.
type TradeResponse struct {
	Symbol   string          `json:"symbol"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// SetCashRequest replaces the session's cash balance.
type SetCashRequest struct {
	Cash decimal.Decimal `json:"cash"`
}

// EngineStartRequest optionally overrides the poll interval.
type EngineStartRequest struct {
	IntervalSeconds int `json:"interval_seconds,omitempty"`
}

// EngineStatusResponse reports the scheduler state.
type EngineStatusResponse struct {
	Running         bool `json:"running"`
	IntervalSeconds int  `json:"interval_seconds,omitempty"`
}

func ruleToJSON(r domain.Rule) RuleJSON {
	return RuleJSON{
		ID:          r.ID,
		Symbol:      r.Symbol,
		Kind:        string(r.Kind),
		TargetPrice: r.TargetPrice,
		Quantity:    r.Quantity,
		CreatedAt:   r.CreatedAt.UTC().Format(time.RFC3339),
	}
}
