package marketdata

import (
	"context"

	"tradesim/internal/domain"
)

// QuoteSink receives every quote successfully fetched during the session.
type QuoteSink interface {
	Record(q domain.Quote)
}

// Compile-time interface check.
var _ PriceSource = (*Recorded)(nil)

// Recorded wraps a PriceSource and forwards each successful fetch to a sink
// (the Parquet session quote log). Failed fetches are not recorded.
type Recorded struct {
	src  PriceSource
	sink QuoteSink
}

// NewRecorded wraps src so that sink observes every fetched quote.
func NewRecorded(src PriceSource, sink QuoteSink) *Recorded {
	return &Recorded{src: src, sink: sink}
}

// Fetch delegates to the wrapped source and records the result on success.
func (r *Recorded) Fetch(ctx context.Context, symbol string, period domain.Period) (domain.Quote, error) {
	q, err := r.src.Fetch(ctx, symbol, period)
	if err == nil {
		r.sink.Record(q)
	}
	return q, err
}
