// Package config loads the tradesim YAML configuration and applies
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the trading simulator.
type Config struct {
	Server  Server  `yaml:"server"`
	Alpaca  Alpaca  `yaml:"alpaca"`
	Logging Logging `yaml:"logging"`
	Trading Trading `yaml:"trading"`
	Storage Storage `yaml:"storage"`
}

// Server holds the HTTP listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the host:port listen address.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Alpaca holds credentials and endpoints for the Alpaca market data API.
// The API is used read-only; no orders are ever routed to it.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Trading defines simulation and rule-engine parameters.
type Trading struct {
	// StartingCash is the simulated cash balance the session opens with.
	StartingCash float64 `yaml:"starting_cash"`
	// PollIntervalSecs is the scheduler tick interval for rule evaluation.
	PollIntervalSecs int `yaml:"poll_interval_secs"`
	// FetchTimeoutSecs bounds a single market data fetch; on timeout the
	// quote is treated as unavailable for that tick.
	FetchTimeoutSecs int `yaml:"fetch_timeout_secs"`
	// LookbackPeriod is the bar lookback requested from the provider
	// ("1d", "5d", "1mo", "3mo", "1y").
	LookbackPeriod string `yaml:"lookback_period"`
	// RateLimitPerMin caps market data requests per minute.
	RateLimitPerMin int `yaml:"rate_limit_per_min"`
	// FetchRetries is the number of attempts per quote fetch.
	FetchRetries int `yaml:"fetch_retries"`
}

// Storage holds paths for the trade journal and the session quote log.
type Storage struct {
	// SQLitePath is the trade journal database. ":memory:" keeps the
	// journal for the process lifetime only.
	SQLitePath string `yaml:"sqlite_path"`
	// DataDir, when set, enables the Parquet session quote recorder.
	DataDir string `yaml:"data_dir"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default returns the configuration used when no file is present: a 500.00
// cash session polling every 5 seconds, journal in memory, quote log off.
func Default() *Config {
	cfg := &Config{
		Server:  Server{Host: "127.0.0.1", Port: 8080},
		Logging: Logging{Level: "info", Format: "json"},
		Trading: Trading{
			StartingCash:     500.00,
			PollIntervalSecs: 5,
			FetchTimeoutSecs: 10,
			LookbackPeriod:   "1d",
			RateLimitPerMin:  200,
			FetchRetries:     2,
		},
		Storage: Storage{SQLitePath: ":memory:"},
	}
	applyEnvOverrides(cfg)
	return cfg
}

// Load reads the YAML configuration file at the given path, fills unset
// fields with defaults, and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	fillDefaults(cfg)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// fillDefaults replaces zero values with the defaults from Default.
func fillDefaults(cfg *Config) {
	def := Default()
	if cfg.Server.Host == "" {
		cfg.Server.Host = def.Server.Host
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
	if cfg.Trading.StartingCash == 0 {
		cfg.Trading.StartingCash = def.Trading.StartingCash
	}
	if cfg.Trading.PollIntervalSecs == 0 {
		cfg.Trading.PollIntervalSecs = def.Trading.PollIntervalSecs
	}
	if cfg.Trading.FetchTimeoutSecs == 0 {
		cfg.Trading.FetchTimeoutSecs = def.Trading.FetchTimeoutSecs
	}
	if cfg.Trading.LookbackPeriod == "" {
		cfg.Trading.LookbackPeriod = def.Trading.LookbackPeriod
	}
	if cfg.Trading.RateLimitPerMin == 0 {
		cfg.Trading.RateLimitPerMin = def.Trading.RateLimitPerMin
	}
	if cfg.Trading.FetchRetries == 0 {
		cfg.Trading.FetchRetries = def.Trading.FetchRetries
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = def.Storage.SQLitePath
	}
}

// applyEnvOverrides checks well-known environment variables and overrides
// the corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("STARTING_CASH"); v != "" {
		if cash, err := strconv.ParseFloat(v, 64); err == nil && cash >= 0 {
			cfg.Trading.StartingCash = cash
		}
	}

	// Standard Alpaca env vars (highest priority — canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
