// Package notify provides the in-process pub/sub bus carrying state-change
// events from the trading core to the presentation layer. Delivery is
// fire-and-forget: slow subscribers have events dropped rather than blocking
// a trading operation.
package notify

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// EventType identifies what changed.
type EventType string

// Event types emitted by the trading core.
const (
	LedgerChanged    EventType = "ledger_changed"
	RulesChanged     EventType = "rules_changed"
	WatchlistChanged EventType = "watchlist_changed"
	TradeExecuted    EventType = "trade_executed"
	TradeFailed      EventType = "trade_failed"
)

// Event is the wire format for notifications. Symbol, Kind, Quantity, and
// Price are set for trade events; Reason is set for failures.
type Event struct {
	Type     EventType       `json:"type"`
	Symbol   string          `json:"symbol,omitempty"`
	Kind     string          `json:"kind,omitempty"`
	Quantity int64           `json:"quantity,omitempty"`
	Price    decimal.Decimal `json:"price,omitempty"`
	Reason   string          `json:"reason,omitempty"`
	Time     time.Time       `json:"time"`
}

// Bus fans events out to subscribers.
type Bus struct {
	mu        sync.Mutex
	nextSubID int
	subs      map[int]chan Event
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Publish stamps the event with the current time (when unset) and sends it
// to every subscriber without blocking.
func (b *Bus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			// Slow consumer — drop event.
		}
	}
}

// Subscribe returns a channel that receives events. bufSize controls the
// channel buffer; once full, further events are dropped for that subscriber.
func (b *Bus) Subscribe(bufSize int) (int, <-chan Event) {
	ch := make(chan Event, bufSize)
	b.mu.Lock()
	id := b.nextSubID
	b.nextSubID++
	b.subs[id] = ch
	b.mu.Unlock()
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(id int) {
	b.mu.Lock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
	b.mu.Unlock()
}
