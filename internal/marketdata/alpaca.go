package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"tradesim/internal/domain"
	"tradesim/internal/util"
)

// Compile-time interface check.
var _ PriceSource = (*AlpacaSource)(nil)

// AlpacaSource implements PriceSource against the Alpaca market-data API.
// It requests daily bars for the lookback period and returns the most recent
// one as the quote. Calls are rate limited and retried; every failure comes
// back wrapped in ErrUnavailable.
type AlpacaSource struct {
	client  *marketdata.Client
	limiter *util.RateLimiter
	retries int
	timeout time.Duration
	log     *slog.Logger
}

// NewAlpacaSource creates an AlpacaSource with the given credentials and
// limits. dataURL may be empty to use the SDK default endpoint.
func NewAlpacaSource(apiKey, apiSecret, dataURL string, ratePerMin, retries int, timeout time.Duration) *AlpacaSource {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}

	return &AlpacaSource{
		client:  marketdata.NewClient(opts),
		limiter: util.NewRateLimiter(ratePerMin),
		retries: retries,
		timeout: timeout,
		log:     slog.Default().With("component", "marketdata"),
	}
}

// Fetch returns the latest daily quote for the symbol. The whole call —
// rate-limit wait, retries, and the API request — is bounded by the
// configured timeout; on expiry the quote counts as unavailable for this
// tick rather than blocking the evaluation of other symbols.
func (s *AlpacaSource) Fetch(ctx context.Context, symbol string, period domain.Period) (domain.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.limiter.Wait(ctx); err != nil {
		return domain.Quote{}, fmt.Errorf("%w: rate limit wait: %v", ErrUnavailable, err)
	}

	// Pad the lookback so weekends and holidays still yield at least one bar.
	start := time.Now().AddDate(0, 0, -(period.Days() + 4))

	var bars []marketdata.Bar
	err := util.Retry(ctx, s.retries, 250*time.Millisecond, func() error {
		var ferr error
		bars, ferr = s.client.GetBars(symbol, marketdata.GetBarsRequest{
			TimeFrame: marketdata.OneDay,
			Start:     start,
		})
		return ferr
	})
	if err != nil {
		s.log.Debug("bar fetch failed", "symbol", symbol, "error", err)
		return domain.Quote{}, fmt.Errorf("%w: fetching bars for %s: %v", ErrUnavailable, symbol, err)
	}
	if len(bars) == 0 {
		return domain.Quote{}, fmt.Errorf("%w: no bars for %s", ErrUnavailable, symbol)
	}

	latest := bars[len(bars)-1]
	q := domain.Quote{
		Symbol:    symbol,
		Open:      decimal.NewFromFloat(latest.Open),
		High:      decimal.NewFromFloat(latest.High),
		Low:       decimal.NewFromFloat(latest.Low),
		Timestamp: latest.Timestamp,
	}
	if !math.IsNaN(latest.Close) {
		q.Close = decimal.NewNullDecimal(decimal.NewFromFloat(latest.Close))
	}
	return q, nil
}
