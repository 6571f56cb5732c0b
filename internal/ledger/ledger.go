// Package ledger owns the authoritative cash and holdings state of a
// trading session. Every mutation of money state in the simulator goes
// through a Ledger operation so the invariants (cash never negative, no
// zero-quantity holdings) are enforced in one place.
package ledger

import (
	"errors"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"tradesim/internal/notify"
)

// Business-rule violations returned by Buy and Sell. Callers dispatch with
// errors.Is; none of these leave any state change behind.
var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrNotHeld            = errors.New("symbol not held")
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrInvalidPrice       = errors.New("price must not be negative")
)

// Holding is one symbol position in a snapshot.
type Holding struct {
	Symbol   string `json:"symbol"`
	Quantity int64  `json:"quantity"`
}

// Ledger tracks simulated cash and share positions. All methods are safe for
// concurrent use; a single buy or sell is atomic with respect to every other
// operation.
type Ledger struct {
	mu       sync.RWMutex
	cash     decimal.Decimal
	holdings map[string]int64
	bus      *notify.Bus
}

// New creates a Ledger with the given starting cash. Negative starting cash
// is treated as zero. The bus may be nil, in which case no notifications are
// emitted.
func New(startingCash decimal.Decimal, bus *notify.Bus) *Ledger {
	if startingCash.IsNegative() {
		startingCash = decimal.Zero
	}
	return &Ledger{
		cash:     startingCash,
		holdings: make(map[string]int64),
		bus:      bus,
	}
}

// Buy debits unitPrice*quantity from cash and credits the holding. The debit
// and the holdings increment happen together or not at all.
func (l *Ledger) Buy(symbol string, quantity int64, unitPrice decimal.Decimal) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if unitPrice.IsNegative() {
		return ErrInvalidPrice
	}

	cost := unitPrice.Mul(decimal.NewFromInt(quantity))

	l.mu.Lock()
	if l.cash.LessThan(cost) {
		l.mu.Unlock()
		return ErrInsufficientFunds
	}
	l.cash = l.cash.Sub(cost)
	l.holdings[symbol] += quantity
	l.mu.Unlock()

	l.changed()
	return nil
}

// Sell debits the holding and credits unitPrice*quantity to cash. A holding
// that reaches zero is removed, never stored at zero.
func (l *Ledger) Sell(symbol string, quantity int64, unitPrice decimal.Decimal) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if unitPrice.IsNegative() {
		return ErrInvalidPrice
	}

	proceeds := unitPrice.Mul(decimal.NewFromInt(quantity))

	l.mu.Lock()
	held, ok := l.holdings[symbol]
	if !ok {
		l.mu.Unlock()
		return ErrNotHeld
	}
	if held < quantity {
		l.mu.Unlock()
		return ErrInsufficientShares
	}
	if held == quantity {
		delete(l.holdings, symbol)
	} else {
		l.holdings[symbol] = held - quantity
	}
	l.cash = l.cash.Add(proceeds)
	l.mu.Unlock()

	l.changed()
	return nil
}

// SetCash replaces the cash balance (the settings surface lets the user fund
// the session). Negative values are rejected.
func (l *Ledger) SetCash(cash decimal.Decimal) error {
	if cash.IsNegative() {
		return ErrInvalidPrice
	}
	l.mu.Lock()
	l.cash = cash
	l.mu.Unlock()

	l.changed()
	return nil
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cash
}

// Quantity returns the held quantity for a symbol, zero when not held.
func (l *Ledger) Quantity(symbol string) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.holdings[symbol]
}

// Held reports whether the symbol appears in holdings.
func (l *Ledger) Held(symbol string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.holdings[symbol]
	return ok
}

// Holdings returns a snapshot of all positions, sorted by symbol.
func (l *Ledger) Holdings() []Holding {
	l.mu.RLock()
	out := make([]Holding, 0, len(l.holdings))
	for sym, qty := range l.holdings {
		out = append(out, Holding{Symbol: sym, Quantity: qty})
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// TotalValue returns cash plus the market value of every holding that has a
// price in priced. Symbols without a price contribute nothing to the total
// and are returned separately so the caller can tell "no price" apart from
// "worth zero".
func (l *Ledger) TotalValue(priced map[string]decimal.Decimal) (decimal.Decimal, []string) {
	l.mu.RLock()
	total := l.cash
	var unpriced []string
	for sym, qty := range l.holdings {
		price, ok := priced[sym]
		if !ok {
			unpriced = append(unpriced, sym)
			continue
		}
		total = total.Add(price.Mul(decimal.NewFromInt(qty)))
	}
	l.mu.RUnlock()

	sort.Strings(unpriced)
	return total, unpriced
}

func (l *Ledger) changed() {
	if l.bus != nil {
		l.bus.Publish(notify.Event{Type: notify.LedgerChanged})
	}
}
