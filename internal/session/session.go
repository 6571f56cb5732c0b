// Package session wires the per-process trading context: the ledger, the
// rule book, the watch set, and the notification bus they publish on. The
// context is created once at startup and passed by reference to the engine
// and the API surface; nothing else holds money state.
package session

import (
	"github.com/shopspring/decimal"

	"tradesim/internal/ledger"
	"tradesim/internal/notify"
	"tradesim/internal/rulebook"
	"tradesim/internal/watchset"
)

// Session is the session-scoped trading context. State lives for the process
// lifetime only; nothing is restored on restart.
type Session struct {
	Ledger *ledger.Ledger
	Rules  *rulebook.Book
	Watch  *watchset.Set
	Bus    *notify.Bus
}

// New creates a Session with the given starting cash. The rule book checks
// sell registrations against the ledger's holdings, and the watch set
// refuses to drop held symbols.
func New(startingCash decimal.Decimal) *Session {
	bus := notify.NewBus()
	led := ledger.New(startingCash, bus)
	return &Session{
		Ledger: led,
		Rules:  rulebook.New(led.Quantity, bus),
		Watch:  watchset.New(led.Held, bus),
		Bus:    bus,
	}
}
