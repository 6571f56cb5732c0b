// Package quotelog records every quote fetched during a session to Parquet
// files on disk. The log is an observation trail for later analysis; the
// engine never reads prices back out of it.
package quotelog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"

	"tradesim/internal/domain"
	"tradesim/internal/marketdata"
)

// Compile-time interface check.
var _ marketdata.QuoteSink = (*Log)(nil)

// QuoteRecord is the Parquet schema for observed quotes. Prices are stored
// as float64 in the file; the in-process representation stays decimal.
type QuoteRecord struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	HasClose  bool    `parquet:"has_close"`
	FetchedAt int64   `parquet:"fetched_at,timestamp(millisecond)"` // Unix ms
}

// Log buffers quotes in memory and flushes them to per-symbol, per-day
// Parquet files. Safe for concurrent use.
type Log struct {
	dataDir string

	mu      sync.Mutex
	pending []QuoteRecord
}

// New creates a Log rooted at the given data directory.
func New(dataDir string) *Log {
	return &Log{dataDir: dataDir}
}

// Record buffers one observed quote. Disk I/O happens only on Flush, so the
// engine's fetch path never blocks on the filesystem.
func (l *Log) Record(q domain.Quote) {
	rec := QuoteRecord{
		Symbol:    strings.ToUpper(q.Symbol),
		Timestamp: q.Timestamp.UnixMilli(),
		Open:      q.Open.InexactFloat64(),
		High:      q.High.InexactFloat64(),
		Low:       q.Low.InexactFloat64(),
		FetchedAt: time.Now().UnixMilli(),
	}
	if q.HasClose() {
		rec.Close = q.Close.Decimal.InexactFloat64()
		rec.HasClose = true
	}

	l.mu.Lock()
	l.pending = append(l.pending, rec)
	l.mu.Unlock()
}

// Flush writes all buffered quotes to disk, merging with any records already
// in the target files. Duplicate observations of the same bar (same symbol
// and bar timestamp) collapse to the most recent fetch.
func (l *Log) Flush() error {
	l.mu.Lock()
	pending := l.pending
	l.pending = nil
	l.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	type key struct {
		symbol string
		date   string // YYYY-MM-DD of the bar
	}
	groups := make(map[key][]QuoteRecord)
	for _, r := range pending {
		k := key{symbol: r.Symbol, date: time.UnixMilli(r.Timestamp).UTC().Format("2006-01-02")}
		groups[k] = append(groups[k], r)
	}

	for k, records := range groups {
		path := l.quotePath(k.symbol, k.date)

		existing, _ := readParquetFile[QuoteRecord](path)
		merged := mergeQuoteRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			// Re-buffer so a transient disk fault does not lose the quotes.
			l.mu.Lock()
			l.pending = append(l.pending, records...)
			l.mu.Unlock()
			return fmt.Errorf("writing quote log for %s/%s: %w", k.symbol, k.date, err)
		}
	}
	return nil
}

// Pending returns the number of buffered, unflushed quotes.
func (l *Log) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// Read returns the logged quotes for a symbol on a given day, sorted by bar
// timestamp. A missing file yields an empty result, not an error.
func (l *Log) Read(symbol string, day time.Time) ([]QuoteRecord, error) {
	path := l.quotePath(strings.ToUpper(symbol), day.UTC().Format("2006-01-02"))
	records, err := readParquetFile[QuoteRecord](path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading quote log %s: %w", path, err)
	}
	return records, nil
}

// Layout: <dataDir>/quotes/<SYMBOL>/<YYYY-MM-DD>.parquet
func (l *Log) quotePath(symbol, date string) string {
	return filepath.Join(l.dataDir, "quotes", symbol, date+".parquet")
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	return parquet.ReadFile[T](path)
}

// mergeQuoteRecords deduplicates by (symbol, bar timestamp), preferring the
// record fetched later. Results are sorted by bar timestamp.
func mergeQuoteRecords(existing, incoming []QuoteRecord) []QuoteRecord {
	type key struct {
		symbol string
		ts     int64
	}
	seen := make(map[key]QuoteRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.Symbol, r.Timestamp}] = r
	}
	for _, r := range incoming {
		k := key{r.Symbol, r.Timestamp}
		if prev, ok := seen[k]; !ok || r.FetchedAt >= prev.FetchedAt {
			seen[k] = r
		}
	}

	merged := make([]QuoteRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
