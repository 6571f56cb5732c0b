// Package journal is the write-only trade audit log. Every executed or
// rejected trade, manual or rule-triggered, becomes one row in a SQLite
// table. The journal records history only; portfolio state is never read
// back from it, so a ":memory:" database keeps the simulator fully
// session-scoped while a file path gives a durable audit trail.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"tradesim/internal/notify"
)

// Trade outcomes as stored in the status column.
const (
	StatusExecuted = "executed"
	StatusFailed   = "failed"
)

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	ts       TEXT NOT NULL,
	symbol   TEXT NOT NULL,
	kind     TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	price    TEXT NOT NULL DEFAULT '',
	status   TEXT NOT NULL,
	reason   TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_trades_ts ON trades (ts);
`

// Entry is one journaled trade attempt.
type Entry struct {
	ID       int64           `json:"id"`
	Time     time.Time       `json:"time"`
	Symbol   string          `json:"symbol"`
	Kind     string          `json:"kind"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Status   string          `json:"status"`
	Reason   string          `json:"reason,omitempty"`
}

// Journal persists trade attempts to SQLite.
type Journal struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens (and if needed initialises) the journal database at path.
// Use ":memory:" for a journal that lives only as long as the process.
func Open(path string, log *slog.Logger) (*Journal, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal db: %w", err)
	}
	// modernc.org/sqlite serialises writes itself; a single connection
	// avoids table-lock errors under concurrent inserts.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialising journal schema: %w", err)
	}
	return &Journal{db: db, log: log.With("component", "journal")}, nil
}

// Close releases the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// RecordExecuted journals a filled trade.
func (j *Journal) RecordExecuted(at time.Time, symbol, kind string, quantity int64, price decimal.Decimal) error {
	_, err := j.db.Exec(
		`INSERT INTO trades (ts, symbol, kind, quantity, price, status) VALUES (?, ?, ?, ?, ?, ?)`,
		at.UTC().Format(time.RFC3339Nano), symbol, kind, quantity, price.String(), StatusExecuted,
	)
	if err != nil {
		return fmt.Errorf("journaling executed trade: %w", err)
	}
	return nil
}

// RecordFailed journals a trade attempt that the ledger rejected.
func (j *Journal) RecordFailed(at time.Time, symbol, kind string, quantity int64, reason string) error {
	_, err := j.db.Exec(
		`INSERT INTO trades (ts, symbol, kind, quantity, status, reason) VALUES (?, ?, ?, ?, ?, ?)`,
		at.UTC().Format(time.RFC3339Nano), symbol, kind, quantity, StatusFailed, reason,
	)
	if err != nil {
		return fmt.Errorf("journaling failed trade: %w", err)
	}
	return nil
}

// List returns up to limit entries, newest first. limit <= 0 means all.
func (j *Journal) List(limit int) ([]Entry, error) {
	query := `SELECT id, ts, symbol, kind, quantity, price, status, reason FROM trades ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ts, price string
		if err := rows.Scan(&e.ID, &ts, &e.Symbol, &e.Kind, &e.Quantity, &price, &e.Status, &e.Reason); err != nil {
			return nil, fmt.Errorf("scanning journal row: %w", err)
		}
		if e.Time, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("parsing journal timestamp %q: %w", ts, err)
		}
		if price != "" {
			if e.Price, err = decimal.NewFromString(price); err != nil {
				return nil, fmt.Errorf("parsing journal price %q: %w", price, err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Start subscribes to the bus and journals trade events until ctx is
// cancelled. The subscription is taken before Start returns, so events
// published immediately afterwards are never missed; draining happens on a
// background goroutine and insert failures are logged, never propagated
// back into the trading path. The returned channel closes when the drain
// loop exits.
func (j *Journal) Start(ctx context.Context, bus *notify.Bus) <-chan struct{} {
	id, events := bus.Subscribe(256)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer bus.Unsubscribe(id)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				j.record(ev)
			}
		}
	}()
	return done
}

func (j *Journal) record(ev notify.Event) {
	var err error
	switch ev.Type {
	case notify.TradeExecuted:
		err = j.RecordExecuted(ev.Time, ev.Symbol, ev.Kind, ev.Quantity, ev.Price)
	case notify.TradeFailed:
		err = j.RecordFailed(ev.Time, ev.Symbol, ev.Kind, ev.Quantity, ev.Reason)
	default:
		return
	}
	if err != nil {
		j.log.Warn("journal insert failed", "type", ev.Type, "symbol", ev.Symbol, "error", err)
	}
}
