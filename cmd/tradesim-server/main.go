package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"tradesim/internal/config"
	"tradesim/internal/domain"
	"tradesim/internal/engine"
	"tradesim/internal/httpapi"
	"tradesim/internal/journal"
	"tradesim/internal/marketdata"
	"tradesim/internal/quotelog"
	"tradesim/internal/session"
	"tradesim/internal/util"
)

func main() {
	// Credentials usually live in .env during development; absence is fine.
	_ = godotenv.Load()

	cfgPath := "config/tradesim.yaml"
	if p := os.Getenv("TRADESIM_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = config.Default()
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sess := session.New(decimal.NewFromFloat(cfg.Trading.StartingCash))

	var source marketdata.PriceSource = marketdata.NewAlpacaSource(
		cfg.Alpaca.APIKey,
		cfg.Alpaca.APISecret,
		cfg.Alpaca.DataURL,
		cfg.Trading.RateLimitPerMin,
		cfg.Trading.FetchRetries,
		time.Duration(cfg.Trading.FetchTimeoutSecs)*time.Second,
	)

	var qlog *quotelog.Log
	if cfg.Storage.DataDir != "" {
		qlog = quotelog.New(cfg.Storage.DataDir)
		source = marketdata.NewRecorded(source, qlog)
		go flushLoop(ctx, qlog)
	}

	jrnl, err := journal.Open(cfg.Storage.SQLitePath, logger)
	if err != nil {
		log.Fatalf("failed to open trade journal: %v", err)
	}
	defer jrnl.Close()
	jrnl.Start(ctx, sess.Bus)

	eng := engine.New(sess, source, domain.Period(cfg.Trading.LookbackPeriod), logger)
	sched := engine.NewScheduler(eng, logger)
	pollInterval := time.Duration(cfg.Trading.PollIntervalSecs) * time.Second
	sched.Start(pollInterval)

	api := httpapi.NewServer(sess, eng, sched, jrnl, pollInterval, logger)
	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: api.Handler(),
	}

	go func() {
		logger.Info("tradesim server listening",
			"addr", cfg.Server.Addr(),
			"starting_cash", cfg.Trading.StartingCash,
			"poll_interval", pollInterval)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}

	if qlog != nil {
		if err := qlog.Flush(); err != nil {
			logger.Error("flushing quote log", "error", err)
		}
	}
}

// flushLoop writes buffered quotes to disk once a minute so a crash loses at
// most the last minute of observations.
func flushLoop(ctx context.Context, qlog *quotelog.Log) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := qlog.Flush(); err != nil {
				slog.Warn("flushing quote log", "error", err)
			}
		}
	}
}
