// Package watchset tracks the symbols a session is watching. The set is a
// superset of the portfolio: symbols bought through the trading surface are
// added automatically, and a symbol that is still held cannot be removed.
package watchset

import (
	"errors"
	"strings"
	"sync"

	"tradesim/internal/notify"
)

var (
	ErrNotWatched = errors.New("symbol not watched")
	ErrHeld       = errors.New("symbol is held and cannot be removed from the watch list")
)

// Set is an insertion-ordered set of watched symbols, safe for concurrent
// use. The held predicate (usually Ledger.Held) guards removal; it may be
// nil, in which case any symbol is removable.
type Set struct {
	mu      sync.RWMutex
	order   []string
	members map[string]struct{}
	held    func(symbol string) bool
	bus     *notify.Bus
}

// New creates an empty Set.
func New(held func(symbol string) bool, bus *notify.Bus) *Set {
	return &Set{
		members: make(map[string]struct{}),
		held:    held,
		bus:     bus,
	}
}

// Add inserts a symbol (upper-cased, trimmed) and reports whether it was
// newly added.
func (s *Set) Add(symbol string) bool {
	symbol = normalize(symbol)
	s.mu.Lock()
	if _, ok := s.members[symbol]; ok {
		s.mu.Unlock()
		return false
	}
	s.members[symbol] = struct{}{}
	s.order = append(s.order, symbol)
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(notify.Event{Type: notify.WatchlistChanged, Symbol: symbol})
	}
	return true
}

// Remove deletes a symbol from the set. Removal of a held symbol is
// rejected, not silently ignored.
func (s *Set) Remove(symbol string) error {
	symbol = normalize(symbol)
	if s.held != nil && s.held(symbol) {
		return ErrHeld
	}

	s.mu.Lock()
	if _, ok := s.members[symbol]; !ok {
		s.mu.Unlock()
		return ErrNotWatched
	}
	delete(s.members, symbol)
	for i, sym := range s.order {
		if sym == symbol {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(notify.Event{Type: notify.WatchlistChanged, Symbol: symbol})
	}
	return nil
}

// Contains reports whether the symbol is watched.
func (s *Set) Contains(symbol string) bool {
	symbol = normalize(symbol)
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[symbol]
	return ok
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// List returns the watched symbols in insertion order.
func (s *Set) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
