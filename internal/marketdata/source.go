// Package marketdata defines the PriceSource boundary the trading core
// fetches quotes through, and provides the Alpaca-backed implementation.
// The provider is the only I/O dependency of the engine; every failure mode
// it has (network fault, empty result, missing close, timeout) is collapsed
// into ErrUnavailable so the engine never sees a raw provider fault.
package marketdata

import (
	"context"
	"errors"

	"tradesim/internal/domain"
)

// ErrUnavailable means no usable quote could be produced for the symbol
// right now. Transient by definition: the engine skips the rule for the
// tick and the trading surface rejects the request with a user-visible
// message. It never stands in for "price is zero".
var ErrUnavailable = errors.New("price unavailable")

// PriceSource fetches the latest quote for a symbol over the given lookback
// period. Implementations must be idempotent and side-effect-free from the
// engine's perspective.
type PriceSource interface {
	Fetch(ctx context.Context, symbol string, period domain.Period) (domain.Quote, error)
}

// Close extracts a usable closing price from a fetch result, mapping an
// absent close to ErrUnavailable. Shared by the engine and the manual
// trading surface so both fail the same way instead of assuming zero.
func Close(q domain.Quote, err error) (domain.Quote, error) {
	if err != nil {
		return domain.Quote{}, err
	}
	if !q.HasClose() {
		return domain.Quote{}, ErrUnavailable
	}
	return q, nil
}
