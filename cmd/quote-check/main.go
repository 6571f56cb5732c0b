// One-shot tool: fetch the latest quote for a symbol and print it, using the
// same provider path the engine evaluates rules with. Handy for checking
// credentials and for seeing exactly what close a rule would trigger on.
//
// Usage:
//
//	go run cmd/quote-check/main.go AAPL [1d|5d|1mo|3mo|1y]
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"tradesim/internal/config"
	"tradesim/internal/domain"
	"tradesim/internal/marketdata"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: quote-check SYMBOL [PERIOD]")
		os.Exit(1)
	}
	symbol := strings.ToUpper(os.Args[1])
	period := domain.Period1D
	if len(os.Args) > 2 {
		period = domain.Period(os.Args[2])
	}

	_ = godotenv.Load()
	cfg := config.Default()

	source := marketdata.NewAlpacaSource(
		cfg.Alpaca.APIKey,
		cfg.Alpaca.APISecret,
		cfg.Alpaca.DataURL,
		cfg.Trading.RateLimitPerMin,
		cfg.Trading.FetchRetries,
		time.Duration(cfg.Trading.FetchTimeoutSecs)*time.Second,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	q, err := source.Fetch(ctx, symbol, period)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetch failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s (%s bar ending %s)\n", q.Symbol, period, q.Timestamp.Format("2006-01-02"))
	fmt.Printf("  open:  %s\n", q.Open)
	fmt.Printf("  high:  %s\n", q.High)
	fmt.Printf("  low:   %s\n", q.Low)
	if q.HasClose() {
		fmt.Printf("  close: %s\n", q.Close.Decimal)
	} else {
		fmt.Println("  close: unavailable")
	}
}
