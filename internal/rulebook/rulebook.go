// Package rulebook owns the set of active conditional orders. Rules enter
// the book only through Add (which validates them), and leave either through
// explicit removal or in a consumed batch after the engine triggers them.
// Listing order is insertion order; two rules on the same symbol evaluate in
// a stable, reproducible sequence.
package rulebook

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tradesim/internal/domain"
	"tradesim/internal/notify"
)

// Validation and lookup errors.
var (
	ErrEmptySymbol     = errors.New("symbol must not be empty")
	ErrInvalidTarget   = errors.New("target price must be positive")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrUnknownKind     = errors.New("unknown rule kind")
	ErrUnownedShares   = errors.New("not enough shares held to register a sell rule")
	ErrNotFound        = errors.New("rule not found")
)

// Spec is a rule registration request before validation.
type Spec struct {
	Symbol      string
	Kind        domain.RuleKind
	TargetPrice decimal.Decimal
	Quantity    int64
}

// Book is the active rule set. Safe for concurrent use.
type Book struct {
	mu     sync.RWMutex
	nextID int64
	rules  []domain.Rule
	// quantityOf reports the held quantity for a symbol (Ledger.Quantity).
	// Sell rules are checked against it at registration time only; trigger
	// time re-checks against live holdings.
	quantityOf func(symbol string) int64
	bus        *notify.Bus
}

// New creates an empty Book. quantityOf and bus may be nil.
func New(quantityOf func(symbol string) int64, bus *notify.Bus) *Book {
	return &Book{
		nextID:     1,
		quantityOf: quantityOf,
		bus:        bus,
	}
}

// Add validates the spec and appends a new rule to the book, returning the
// created rule. Symbols are upper-cased and trimmed.
func (b *Book) Add(spec Spec) (domain.Rule, error) {
	symbol := strings.ToUpper(strings.TrimSpace(spec.Symbol))
	if symbol == "" {
		return domain.Rule{}, ErrEmptySymbol
	}
	if !spec.Kind.Valid() {
		return domain.Rule{}, ErrUnknownKind
	}
	if !spec.TargetPrice.IsPositive() {
		return domain.Rule{}, ErrInvalidTarget
	}
	if spec.Quantity <= 0 {
		return domain.Rule{}, ErrInvalidQuantity
	}
	if spec.Kind.IsSell() && b.quantityOf != nil && b.quantityOf(symbol) < spec.Quantity {
		return domain.Rule{}, ErrUnownedShares
	}

	b.mu.Lock()
	rule := domain.Rule{
		ID:          b.nextID,
		Symbol:      symbol,
		Kind:        spec.Kind,
		TargetPrice: spec.TargetPrice,
		Quantity:    spec.Quantity,
		CreatedAt:   time.Now(),
	}
	b.nextID++
	b.rules = append(b.rules, rule)
	b.mu.Unlock()

	b.changed()
	return rule, nil
}

// Remove deletes the rule with the given id.
func (b *Book) Remove(id int64) error {
	b.mu.Lock()
	idx := -1
	for i, r := range b.rules {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		b.mu.Unlock()
		return ErrNotFound
	}
	b.rules = append(b.rules[:idx], b.rules[idx+1:]...)
	b.mu.Unlock()

	b.changed()
	return nil
}

// RemoveBatch deletes every rule whose id is in ids in a single pass and
// returns the number removed. The engine uses it to drop consumed rules
// after a full evaluation pass; one rules-changed notification is emitted
// regardless of how many rules were consumed.
func (b *Book) RemoveBatch(ids []int64) int {
	if len(ids) == 0 {
		return 0
	}
	drop := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	b.mu.Lock()
	kept := b.rules[:0]
	removed := 0
	for _, r := range b.rules {
		if _, ok := drop[r.ID]; ok {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	b.rules = kept
	b.mu.Unlock()

	if removed > 0 {
		b.changed()
	}
	return removed
}

// List returns a snapshot of the active rules in insertion order.
func (b *Book) List() []domain.Rule {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.Rule, len(b.rules))
	copy(out, b.rules)
	return out
}

// Len returns the number of active rules.
func (b *Book) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rules)
}

func (b *Book) changed() {
	if b.bus != nil {
		b.bus.Publish(notify.Event{Type: notify.RulesChanged})
	}
}
