// Package engine evaluates conditional orders against fresh quotes and
// executes both rule-triggered and manual trades through the session ledger.
// The manual and automatic paths share one implementation so price-resolution
// and failure behaviour cannot diverge between them.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"tradesim/internal/domain"
	"tradesim/internal/ledger"
	"tradesim/internal/marketdata"
	"tradesim/internal/notify"
	"tradesim/internal/session"
)

// Sides reported on manual trade notifications.
const (
	sideBuy  = "buy"
	sideSell = "sell"
)

// Engine holds a reference to the trading context and the price source. It
// never keeps a private copy of cash or holdings; all money state flows
// through the ledger's operations.
type Engine struct {
	sess   *session.Session
	source marketdata.PriceSource
	period domain.Period
	log    *slog.Logger
}

// New creates an Engine evaluating quotes over the given lookback period.
func New(sess *session.Session, source marketdata.PriceSource, period domain.Period, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		sess:   sess,
		source: source,
		period: period,
		log:    log.With("component", "engine"),
	}
}

// TickReport summarises one evaluation pass.
type TickReport struct {
	Evaluated int // rules seen in this pass
	Skipped   int // rules skipped because no quote was available
	Consumed  int // rules that triggered and executed
	Failed    int // rules that triggered but failed at the ledger (kept)
}

// Tick runs one evaluation pass over the current rule snapshot, in book
// order. One quote is fetched per symbol and reused by every rule on that
// symbol, so the pass is deterministic for a fixed book and fixed quotes.
// Rules whose quote is unavailable simply wait for the next tick. Rules
// whose predicate holds but whose ledger operation fails stay active —
// funds or shares may be back before the next pass. Consumed rules are
// removed in a single batch after the full pass.
func (e *Engine) Tick(ctx context.Context) TickReport {
	rules := e.sess.Rules.List()

	report := TickReport{Evaluated: len(rules)}
	closes := make(map[string]decimal.Decimal)
	unavailable := make(map[string]bool)
	var consumed []int64

	for _, rule := range rules {
		closePrice, ok := e.closeFor(ctx, rule.Symbol, closes, unavailable)
		if !ok {
			report.Skipped++
			continue
		}

		if !rule.Triggered(closePrice) {
			continue
		}

		var err error
		if rule.Kind.IsSell() {
			err = e.sess.Ledger.Sell(rule.Symbol, rule.Quantity, closePrice)
		} else {
			err = e.sess.Ledger.Buy(rule.Symbol, rule.Quantity, closePrice)
		}
		if err != nil {
			report.Failed++
			e.log.Warn("triggered rule could not execute",
				"rule", rule.ID, "symbol", rule.Symbol, "kind", rule.Kind, "error", err)
			e.sess.Bus.Publish(notify.Event{
				Type:     notify.TradeFailed,
				Symbol:   rule.Symbol,
				Kind:     string(rule.Kind),
				Quantity: rule.Quantity,
				Reason:   err.Error(),
			})
			continue
		}

		if !rule.Kind.IsSell() {
			e.sess.Watch.Add(rule.Symbol)
		}

		report.Consumed++
		consumed = append(consumed, rule.ID)
		e.log.Info("rule executed",
			"rule", rule.ID, "symbol", rule.Symbol, "kind", rule.Kind,
			"quantity", rule.Quantity, "price", closePrice)
		e.sess.Bus.Publish(notify.Event{
			Type:     notify.TradeExecuted,
			Symbol:   rule.Symbol,
			Kind:     string(rule.Kind),
			Quantity: rule.Quantity,
			Price:    closePrice,
		})
	}

	e.sess.Rules.RemoveBatch(consumed)
	return report
}

// closeFor returns the tick-stable closing price for a symbol. Both
// successful fetches and failures are cached so every rule on the symbol
// sees the same outcome within one pass.
func (e *Engine) closeFor(ctx context.Context, symbol string, closes map[string]decimal.Decimal, unavailable map[string]bool) (decimal.Decimal, bool) {
	if closePrice, ok := closes[symbol]; ok {
		return closePrice, true
	}
	if unavailable[symbol] {
		return decimal.Decimal{}, false
	}

	q, err := marketdata.Close(e.source.Fetch(ctx, symbol, e.period))
	if err != nil {
		e.log.Debug("no quote this tick", "symbol", symbol, "error", err)
		unavailable[symbol] = true
		return decimal.Decimal{}, false
	}

	closePrice := q.Close.Decimal
	closes[symbol] = closePrice
	return closePrice, true
}

// Buy resolves the symbol's latest close and buys quantity shares at it.
// The price is fetched before the ledger lock is taken; when no close is
// available the request fails instead of transacting at zero.
func (e *Engine) Buy(ctx context.Context, symbol string, quantity int64) (decimal.Decimal, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	q, err := marketdata.Close(e.source.Fetch(ctx, symbol, e.period))
	if err != nil {
		return decimal.Decimal{}, err
	}
	price := q.Close.Decimal

	if err := e.sess.Ledger.Buy(symbol, quantity, price); err != nil {
		e.publishFailure(symbol, sideBuy, quantity, err)
		return decimal.Decimal{}, err
	}

	e.sess.Watch.Add(symbol)
	e.sess.Bus.Publish(notify.Event{
		Type:     notify.TradeExecuted,
		Symbol:   symbol,
		Kind:     sideBuy,
		Quantity: quantity,
		Price:    price,
	})
	return price, nil
}

// Sell resolves the symbol's latest close and sells quantity shares at it.
func (e *Engine) Sell(ctx context.Context, symbol string, quantity int64) (decimal.Decimal, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	q, err := marketdata.Close(e.source.Fetch(ctx, symbol, e.period))
	if err != nil {
		return decimal.Decimal{}, err
	}
	price := q.Close.Decimal

	if err := e.sess.Ledger.Sell(symbol, quantity, price); err != nil {
		e.publishFailure(symbol, sideSell, quantity, err)
		return decimal.Decimal{}, err
	}

	e.sess.Bus.Publish(notify.Event{
		Type:     notify.TradeExecuted,
		Symbol:   symbol,
		Kind:     sideSell,
		Quantity: quantity,
		Price:    price,
	})
	return price, nil
}

func (e *Engine) publishFailure(symbol, side string, quantity int64, err error) {
	e.sess.Bus.Publish(notify.Event{
		Type:     notify.TradeFailed,
		Symbol:   symbol,
		Kind:     side,
		Quantity: quantity,
		Reason:   err.Error(),
	})
}

// Portfolio is a priced snapshot of the session ledger.
type Portfolio struct {
	Cash     decimal.Decimal
	Holdings []ledger.Holding
	Total    decimal.Decimal
	// Unpriced lists held symbols with no quote available right now. Their
	// positions contribute nothing to Total; they are not worth zero.
	Unpriced []string
}

// Portfolio prices the current holdings from the latest quotes and returns
// the session snapshot. Quote fetches happen before any ledger read lock is
// taken.
func (e *Engine) Portfolio(ctx context.Context) Portfolio {
	holdings := e.sess.Ledger.Holdings()

	priced := make(map[string]decimal.Decimal, len(holdings))
	for _, h := range holdings {
		q, err := marketdata.Close(e.source.Fetch(ctx, h.Symbol, e.period))
		if err != nil {
			if !errors.Is(err, marketdata.ErrUnavailable) {
				e.log.Warn("pricing holding", "symbol", h.Symbol, "error", err)
			}
			continue
		}
		priced[h.Symbol] = q.Close.Decimal
	}

	total, unpriced := e.sess.Ledger.TotalValue(priced)
	return Portfolio{
		Cash:     e.sess.Ledger.Cash(),
		Holdings: holdings,
		Total:    total,
		Unpriced: unpriced,
	}
}
