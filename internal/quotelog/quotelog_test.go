package quotelog

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tradesim/internal/domain"
)

func quoteAt(symbol string, close string, ts time.Time) domain.Quote {
	q := domain.Quote{
		Symbol:    symbol,
		Open:      decimal.RequireFromString("99.00"),
		High:      decimal.RequireFromString("101.00"),
		Low:       decimal.RequireFromString("98.00"),
		Timestamp: ts,
	}
	if close != "" {
		q.Close = decimal.NewNullDecimal(decimal.RequireFromString(close))
	}
	return q
}

func TestRecordFlushRead(t *testing.T) {
	l := New(t.TempDir())
	day := time.Date(2026, 8, 28, 21, 0, 0, 0, time.UTC)

	l.Record(quoteAt("aapl", "150.25", day))
	l.Record(quoteAt("AAPL", "150.25", day.Add(-24*time.Hour)))
	if l.Pending() != 2 {
		t.Fatalf("Pending = %d, want 2", l.Pending())
	}

	if err := l.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if l.Pending() != 0 {
		t.Errorf("Pending after flush = %d, want 0", l.Pending())
	}

	records, err := l.Read("AAPL", day)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Read returned %d records, want 1 (one bar per day file)", len(records))
	}
	r := records[0]
	if r.Symbol != "AAPL" {
		t.Errorf("symbol = %q, want upper-cased AAPL", r.Symbol)
	}
	if !r.HasClose || r.Close != 150.25 {
		t.Errorf("close = (%v, %v), want (150.25, true)", r.Close, r.HasClose)
	}
}

func TestFlushMergesDuplicateBars(t *testing.T) {
	l := New(t.TempDir())
	day := time.Date(2026, 8, 28, 21, 0, 0, 0, time.UTC)

	l.Record(quoteAt("GOOG", "200.00", day))
	if err := l.Flush(); err != nil {
		t.Fatalf("first Flush: %v", err)
	}

	// Same bar observed again with a later close.
	l.Record(quoteAt("GOOG", "201.00", day))
	if err := l.Flush(); err != nil {
		t.Fatalf("second Flush: %v", err)
	}

	records, err := l.Read("GOOG", day)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Read returned %d records, want 1 after merge", len(records))
	}
	if records[0].Close != 201.00 {
		t.Errorf("merged close = %v, want the later observation 201.00", records[0].Close)
	}
}

func TestRecordWithoutClose(t *testing.T) {
	l := New(t.TempDir())
	day := time.Date(2026, 8, 28, 21, 0, 0, 0, time.UTC)

	l.Record(quoteAt("TSLA", "", day))
	if err := l.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	records, err := l.Read("TSLA", day)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(records) != 1 || records[0].HasClose {
		t.Errorf("records = %+v, want one record with HasClose=false", records)
	}
}

func TestReadMissingFile(t *testing.T) {
	l := New(t.TempDir())
	records, err := l.Read("NVDA", time.Now())
	if err != nil {
		t.Fatalf("Read of missing file: %v", err)
	}
	if records != nil {
		t.Errorf("records = %v, want nil", records)
	}
}

func TestFlushEmptyIsNoop(t *testing.T) {
	l := New(t.TempDir())
	if err := l.Flush(); err != nil {
		t.Errorf("Flush with nothing pending: %v", err)
	}
}
