package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tradesim.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ALPACA_API_KEY", "ALPACA_API_SECRET", "ALPACA_DATA_URL",
		"APCA_API_KEY_ID", "APCA_API_SECRET_KEY",
		"LOG_LEVEL", "LOG_FORMAT", "SQLITE_PATH", "DATA_DIR", "STARTING_CASH",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
server:
  host: "0.0.0.0"
  port: 9000
alpaca:
  api_key: "test-key"
  api_secret: "test-secret"
  data_url: "https://data.alpaca.markets"
logging:
  level: "debug"
  format: "text"
trading:
  starting_cash: 1000.50
  poll_interval_secs: 30
  fetch_timeout_secs: 5
  lookback_period: "1mo"
  rate_limit_per_min: 100
  fetch_retries: 3
storage:
  sqlite_path: "/tmp/tradesim.db"
  data_dir: "/tmp/tradesim-data"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if got := cfg.Server.Addr(); got != "0.0.0.0:9000" {
		t.Errorf("Server.Addr() = %q, want %q", got, "0.0.0.0:9000")
	}
	if cfg.Alpaca.APIKey != "test-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q", cfg.Alpaca.APIKey, "test-key")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "text")
	}
	if cfg.Trading.StartingCash != 1000.50 {
		t.Errorf("Trading.StartingCash = %v, want 1000.50", cfg.Trading.StartingCash)
	}
	if cfg.Trading.PollIntervalSecs != 30 {
		t.Errorf("Trading.PollIntervalSecs = %d, want 30", cfg.Trading.PollIntervalSecs)
	}
	if cfg.Trading.LookbackPeriod != "1mo" {
		t.Errorf("Trading.LookbackPeriod = %q, want %q", cfg.Trading.LookbackPeriod, "1mo")
	}
	if cfg.Storage.SQLitePath != "/tmp/tradesim.db" {
		t.Errorf("Storage.SQLitePath = %q, want %q", cfg.Storage.SQLitePath, "/tmp/tradesim.db")
	}
	if cfg.Storage.DataDir != "/tmp/tradesim-data" {
		t.Errorf("Storage.DataDir = %q, want %q", cfg.Storage.DataDir, "/tmp/tradesim-data")
	}
}

func TestLoadFillsDefaults(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
alpaca:
  api_key: "k"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Trading.PollIntervalSecs != 5 {
		t.Errorf("Trading.PollIntervalSecs = %d, want default 5", cfg.Trading.PollIntervalSecs)
	}
	if cfg.Trading.LookbackPeriod != "1d" {
		t.Errorf("Trading.LookbackPeriod = %q, want default %q", cfg.Trading.LookbackPeriod, "1d")
	}
	if cfg.Storage.SQLitePath != ":memory:" {
		t.Errorf("Storage.SQLitePath = %q, want default %q", cfg.Storage.SQLitePath, ":memory:")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want default %q", cfg.Logging.Level, "info")
	}
}

func TestDefaultStartingCash(t *testing.T) {
	clearEnv(t)

	cfg := Default()
	if cfg.Trading.StartingCash != 500.00 {
		t.Errorf("Default starting cash = %v, want 500.00", cfg.Trading.StartingCash)
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
alpaca:
  api_key: "yaml-key"
  api_secret: "yaml-secret"
storage:
  data_dir: "/original/data"
`)

	t.Setenv("ALPACA_API_KEY", "env-key")
	t.Setenv("DATA_DIR", "/env/data")
	t.Setenv("STARTING_CASH", "2500")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Alpaca.APIKey != "env-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q (env override)", cfg.Alpaca.APIKey, "env-key")
	}
	// api_secret should remain from YAML since no env override was set.
	if cfg.Alpaca.APISecret != "yaml-secret" {
		t.Errorf("Alpaca.APISecret = %q, want %q (from YAML)", cfg.Alpaca.APISecret, "yaml-secret")
	}
	if cfg.Storage.DataDir != "/env/data" {
		t.Errorf("Storage.DataDir = %q, want %q (env override)", cfg.Storage.DataDir, "/env/data")
	}
	if cfg.Trading.StartingCash != 2500 {
		t.Errorf("Trading.StartingCash = %v, want 2500 (env override)", cfg.Trading.StartingCash)
	}
}

func TestEnvOverrideRejectsNegativeCash(t *testing.T) {
	clearEnv(t)
	t.Setenv("STARTING_CASH", "-100")

	cfg := Default()
	if cfg.Trading.StartingCash != 500.00 {
		t.Errorf("Trading.StartingCash = %v, want 500.00 (negative override ignored)", cfg.Trading.StartingCash)
	}
}
