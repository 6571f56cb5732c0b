package ledger

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestBuyDebitsCashAndCreditsHolding(t *testing.T) {
	l := New(dec("500.00"), nil)

	if err := l.Buy("AAPL", 2, dec("149.50")); err != nil {
		t.Fatalf("Buy returned error: %v", err)
	}

	if got := l.Cash(); !got.Equal(dec("201.00")) {
		t.Errorf("Cash() = %s, want 201.00", got)
	}
	if got := l.Quantity("AAPL"); got != 2 {
		t.Errorf("Quantity(AAPL) = %d, want 2", got)
	}
}

func TestBuyInsufficientFundsLeavesStateUntouched(t *testing.T) {
	l := New(dec("100.00"), nil)

	err := l.Buy("GOOG", 1, dec("150.00"))
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("Buy error = %v, want ErrInsufficientFunds", err)
	}

	if got := l.Cash(); !got.Equal(dec("100.00")) {
		t.Errorf("Cash() = %s, want unchanged 100.00", got)
	}
	if l.Held("GOOG") {
		t.Error("failed buy must not create a holding")
	}
}

func TestBuyValidation(t *testing.T) {
	l := New(dec("100.00"), nil)

	if err := l.Buy("AAPL", 0, dec("1.00")); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("Buy qty=0 error = %v, want ErrInvalidQuantity", err)
	}
	if err := l.Buy("AAPL", -5, dec("1.00")); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("Buy qty=-5 error = %v, want ErrInvalidQuantity", err)
	}
	if err := l.Buy("AAPL", 1, dec("-1.00")); !errors.Is(err, ErrInvalidPrice) {
		t.Errorf("Buy negative price error = %v, want ErrInvalidPrice", err)
	}
}

func TestSellRemovesEmptiedHolding(t *testing.T) {
	l := New(dec("10000.00"), nil)
	if err := l.Buy("TSLA", 10, dec("250.00")); err != nil {
		t.Fatalf("Buy returned error: %v", err)
	}

	if err := l.Sell("TSLA", 10, dec("310.00")); err != nil {
		t.Fatalf("Sell returned error: %v", err)
	}

	if l.Held("TSLA") {
		t.Error("holding sold to zero must be removed, not stored at zero")
	}
	// 10000 - 2500 + 3100 = 10600
	if got := l.Cash(); !got.Equal(dec("10600.00")) {
		t.Errorf("Cash() = %s, want 10600.00", got)
	}
	if got := len(l.Holdings()); got != 0 {
		t.Errorf("Holdings() has %d entries, want 0", got)
	}
}

func TestSellFailures(t *testing.T) {
	l := New(dec("1000.00"), nil)
	if err := l.Buy("AAPL", 5, dec("100.00")); err != nil {
		t.Fatalf("Buy returned error: %v", err)
	}

	if err := l.Sell("MSFT", 1, dec("100.00")); !errors.Is(err, ErrNotHeld) {
		t.Errorf("Sell unheld symbol error = %v, want ErrNotHeld", err)
	}
	if err := l.Sell("AAPL", 6, dec("100.00")); !errors.Is(err, ErrInsufficientShares) {
		t.Errorf("Sell too many error = %v, want ErrInsufficientShares", err)
	}
	if err := l.Sell("AAPL", 0, dec("100.00")); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("Sell qty=0 error = %v, want ErrInvalidQuantity", err)
	}

	// Failed sells leave state untouched.
	if got := l.Quantity("AAPL"); got != 5 {
		t.Errorf("Quantity(AAPL) = %d, want 5", got)
	}
	if got := l.Cash(); !got.Equal(dec("500.00")) {
		t.Errorf("Cash() = %s, want 500.00", got)
	}
}

func TestBuySellRoundTripConservesCash(t *testing.T) {
	l := New(dec("500.00"), nil)
	price := dec("123.45")

	if err := l.Buy("AAPL", 3, price); err != nil {
		t.Fatalf("Buy returned error: %v", err)
	}
	if err := l.Sell("AAPL", 3, price); err != nil {
		t.Fatalf("Sell returned error: %v", err)
	}

	if got := l.Cash(); !got.Equal(dec("500.00")) {
		t.Errorf("Cash() after round trip = %s, want exactly 500.00", got)
	}
}

func TestNewClampsNegativeCash(t *testing.T) {
	l := New(dec("-50.00"), nil)
	if got := l.Cash(); !got.Equal(decimal.Zero) {
		t.Errorf("Cash() = %s, want 0", got)
	}
}

func TestSetCash(t *testing.T) {
	l := New(dec("500.00"), nil)

	if err := l.SetCash(dec("1000000.00")); err != nil {
		t.Fatalf("SetCash returned error: %v", err)
	}
	if got := l.Cash(); !got.Equal(dec("1000000.00")) {
		t.Errorf("Cash() = %s, want 1000000.00", got)
	}

	if err := l.SetCash(dec("-1.00")); !errors.Is(err, ErrInvalidPrice) {
		t.Errorf("SetCash(-1) error = %v, want ErrInvalidPrice", err)
	}
}

func TestTotalValueReportsUnpriced(t *testing.T) {
	l := New(dec("100.00"), nil)
	if err := l.Buy("AAPL", 2, dec("10.00")); err != nil {
		t.Fatalf("Buy returned error: %v", err)
	}
	if err := l.Buy("GOOG", 1, dec("20.00")); err != nil {
		t.Fatalf("Buy returned error: %v", err)
	}
	// cash now 60.00

	total, unpriced := l.TotalValue(map[string]decimal.Decimal{
		"AAPL": dec("15.00"),
	})

	// 60 cash + 2*15 AAPL; GOOG has no price and contributes nothing.
	if !total.Equal(dec("90.00")) {
		t.Errorf("TotalValue = %s, want 90.00", total)
	}
	if len(unpriced) != 1 || unpriced[0] != "GOOG" {
		t.Errorf("unpriced = %v, want [GOOG]", unpriced)
	}

	// A symbol genuinely priced at zero is not "unpriced".
	total, unpriced = l.TotalValue(map[string]decimal.Decimal{
		"AAPL": dec("15.00"),
		"GOOG": decimal.Zero,
	})
	if !total.Equal(dec("90.00")) {
		t.Errorf("TotalValue with zero price = %s, want 90.00", total)
	}
	if len(unpriced) != 0 {
		t.Errorf("unpriced = %v, want empty", unpriced)
	}
}

func TestHoldingsSnapshotSorted(t *testing.T) {
	l := New(dec("1000.00"), nil)
	for _, sym := range []string{"TSLA", "AAPL", "MSFT"} {
		if err := l.Buy(sym, 1, dec("1.00")); err != nil {
			t.Fatalf("Buy(%s) returned error: %v", sym, err)
		}
	}

	got := l.Holdings()
	want := []string{"AAPL", "MSFT", "TSLA"}
	if len(got) != len(want) {
		t.Fatalf("Holdings() has %d entries, want %d", len(got), len(want))
	}
	for i, h := range got {
		if h.Symbol != want[i] {
			t.Errorf("Holdings()[%d].Symbol = %q, want %q", i, h.Symbol, want[i])
		}
	}
}
