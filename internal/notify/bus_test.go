package notify

import (
	"testing"
	"time"
)

func TestBusDeliversToSubscribers(t *testing.T) {
	b := NewBus()
	id, ch := b.Subscribe(4)
	defer b.Unsubscribe(id)

	b.Publish(Event{Type: LedgerChanged})
	b.Publish(Event{Type: TradeExecuted, Symbol: "AAPL", Quantity: 2})

	select {
	case e := <-ch:
		if e.Type != LedgerChanged {
			t.Errorf("first event type = %q, want %q", e.Type, LedgerChanged)
		}
		if e.Time.IsZero() {
			t.Error("event time should be stamped")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first event")
	}

	select {
	case e := <-ch:
		if e.Type != TradeExecuted || e.Symbol != "AAPL" || e.Quantity != 2 {
			t.Errorf("second event = %+v, want TradeExecuted AAPL x2", e)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for second event")
	}
}

func TestBusDropsWhenSubscriberFull(t *testing.T) {
	b := NewBus()
	id, ch := b.Subscribe(1)
	defer b.Unsubscribe(id)

	// Second publish must not block even though nobody is draining.
	done := make(chan struct{})
	go func() {
		b.Publish(Event{Type: RulesChanged})
		b.Publish(Event{Type: RulesChanged})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}

	if len(ch) != 1 {
		t.Errorf("subscriber buffer holds %d events, want 1 (overflow dropped)", len(ch))
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	b := NewBus()
	id, ch := b.Subscribe(1)
	b.Unsubscribe(id)

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Unsubscribe")
	}

	// Publishing after unsubscribe must not panic.
	b.Publish(Event{Type: WatchlistChanged})
}
