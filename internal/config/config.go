package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"BreakoutScreener/internal/backtest"
	"BreakoutScreener/internal/condition"
	"BreakoutScreener/internal/indicator"
	"BreakoutScreener/internal/logger"
	"BreakoutScreener/internal/strategy"
	"BreakoutScreener/internal/tracker"
)

// Data source kinds.
const (
	SourceYahoo = "yahoo"
	SourceREST  = "rest"
	SourceCSV   = "csv"
	SourceMock  = "mock"
)

// Ticker is one symbol of the screened universe.
type Ticker struct {
	Symbol string `yaml:"symbol"`
	Name   string `yaml:"name"`
}

// DataSource selects where bars come from.
type DataSource struct {
	Kind     string  `yaml:"kind"`
	BaseURL  string  `yaml:"base_url"`
	APIKey   string  `yaml:"api_key"`
	CSVPath  string  `yaml:"csv_path"`
	CacheDir string  `yaml:"cache_dir"`
	Days     int     `yaml:"days"` // bars loaded per ticker
	RPS      float64 `yaml:"rps"`  // yahoo request pacing, 0 is unlimited
}

// Tracking selects the store backend.
type Tracking struct {
	Backend string          `yaml:"backend"`
	Path    string          `yaml:"path"`
	Options tracker.Options `yaml:",inline"`
}

// Config holds all application configuration.
type Config struct {
	DataSource     DataSource                    `yaml:"data_source"`
	Universe       []Ticker                      `yaml:"universe"`
	Indicators     indicator.Config              `yaml:"indicators"`
	Conditions     condition.Set                 `yaml:"conditions"`
	Scoring        strategy.Scoring              `yaml:"scoring"`
	MinConditions  int                           `yaml:"min_conditions"`
	CrossSectional strategy.CrossSectionalConfig `yaml:"cross_sectional"`
	Backtest       backtest.Config               `yaml:"backtest"`
	Tracking       Tracking                      `yaml:"tracking"`
	Schedule       struct {
		SearchCron   string `yaml:"search_cron"`
		TrackingCron string `yaml:"tracking_cron"`
		RunOnStart   bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
		Commands bool   `yaml:"commands"` // long-poll for chat commands under serve
	} `yaml:"telegram"`
	Log   logger.Options `yaml:"log"`
	Proxy string         `yaml:"proxy"`
}

// DefaultUniverse is the large-cap KOSPI list the screener ships with.
func DefaultUniverse() []Ticker {
	return []Ticker{
		{"005930.KS", "Samsung Electronics"},
		{"000660.KS", "SK Hynix"},
		{"051910.KS", "LG Chem"},
		{"207940.KS", "Samsung Biologics"},
		{"006400.KS", "Samsung SDI"},
		{"035720.KS", "Kakao"},
		{"012330.KS", "Hyundai Mobis"},
		{"005380.KS", "Hyundai Motor"},
		{"055550.KS", "Shinhan Financial"},
		{"032830.KS", "Samsung Life Insurance"},
	}
}

// Default returns the configuration used when no file is present. Core
// sections are filled before decoding so a YAML file only has to name the
// thresholds it changes.
func Default() *Config {
	return &Config{
		Indicators:     indicator.DefaultConfig(),
		Conditions:     condition.DefaultSet(),
		Scoring:        strategy.DefaultScoring(),
		MinConditions:  3,
		CrossSectional: strategy.DefaultCrossSectional(),
		Backtest:       backtest.DefaultConfig(),
		Tracking:       Tracking{Options: tracker.DefaultOptions()},
	}
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides, then fills remaining defaults. A missing file is not an
// error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env never overrides variables already set in the process.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"TELEGRAM_BOT_TOKEN":     &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":       &c.Telegram.ChatID,
		"SCREENER_SOURCE":        &c.DataSource.Kind,
		"SCREENER_BASE_URL":      &c.DataSource.BaseURL,
		"SCREENER_API_KEY":       &c.DataSource.APIKey,
		"SCREENER_CSV_PATH":      &c.DataSource.CSVPath,
		"SCREENER_CACHE_DIR":     &c.DataSource.CacheDir,
		"SCREENER_STORE":         &c.Tracking.Backend,
		"SCREENER_STORE_PATH":    &c.Tracking.Path,
		"SCREENER_SEARCH_CRON":   &c.Schedule.SearchCron,
		"SCREENER_TRACKING_CRON": &c.Schedule.TrackingCron,
		"SCREENER_METRICS_ADDR":  &c.Metrics.Addr,
		"SCREENER_LOG_LEVEL":     &c.Log.Level,
		"SCREENER_LOG_FORMAT":    &c.Log.Format,
		"HTTPS_PROXY":            &c.Proxy,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("SCREENER_INITIAL_CAPITAL"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("SCREENER_INITIAL_CAPITAL: %w", err)
		}
		c.Backtest.InitialCapital = f
	}
	if v := os.Getenv("SCREENER_MIN_CONDITIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SCREENER_MIN_CONDITIONS: %w", err)
		}
		c.MinConditions = n
	}
	if v := os.Getenv("RUN_ON_START"); v != "" {
		c.Schedule.RunOnStart = v == "true"
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.DataSource.Kind == "" {
		c.DataSource.Kind = SourceYahoo
	}
	if c.DataSource.CacheDir == "" {
		c.DataSource.CacheDir = ".cache"
	}
	if c.DataSource.Days == 0 {
		c.DataSource.Days = 60
	}
	if len(c.Universe) == 0 && c.DataSource.Kind != SourceCSV {
		c.Universe = DefaultUniverse()
	}
	if c.Tracking.Backend == "" {
		c.Tracking.Backend = tracker.BackendSQLite
	}
	if c.Tracking.Path == "" {
		switch c.Tracking.Backend {
		case tracker.BackendJSON:
			c.Tracking.Path = "data/tracking.json"
		default:
			c.Tracking.Path = "data/screener.db"
		}
	}
	if c.Schedule.SearchCron == "" {
		c.Schedule.SearchCron = "0 50 15 * * 1-5"
	}
	if c.Schedule.TrackingCron == "" {
		c.Schedule.TrackingCron = "0 0 16 * * 1-5"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9090"
	}
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.DataSource.Kind {
	case SourceYahoo, SourceMock:
	case SourceREST:
		if c.DataSource.BaseURL == "" {
			errs = append(errs, errors.New("data_source.base_url is required for the rest source"))
		}
	case SourceCSV:
		if c.DataSource.CSVPath == "" {
			errs = append(errs, errors.New("data_source.csv_path is required for the csv source"))
		}
	default:
		errs = append(errs, fmt.Errorf("data_source.kind %q: want yahoo, rest, csv or mock", c.DataSource.Kind))
	}
	if c.DataSource.Days <= 0 {
		errs = append(errs, fmt.Errorf("data_source.days must be positive, got %d", c.DataSource.Days))
	}
	if c.DataSource.RPS < 0 {
		errs = append(errs, fmt.Errorf("data_source.rps must be non-negative, got %g", c.DataSource.RPS))
	}
	for i, t := range c.Universe {
		if t.Symbol == "" {
			errs = append(errs, fmt.Errorf("universe[%d]: symbol is required", i))
		}
	}
	if c.MinConditions < 0 || c.MinConditions > condition.Count {
		errs = append(errs, fmt.Errorf("min_conditions must be in [0,%d], got %d", condition.Count, c.MinConditions))
	}
	switch c.Tracking.Backend {
	case tracker.BackendSQLite, tracker.BackendJSON, tracker.BackendNone:
	default:
		errs = append(errs, fmt.Errorf("tracking.backend %q: want sqlite, json or none", c.Tracking.Backend))
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		errs = append(errs, errors.New("telegram.bot_token and telegram.chat_id must be set together"))
	}

	errs = append(errs,
		c.Indicators.Validate(),
		c.Conditions.Validate(),
		c.Scoring.Validate(),
		c.CrossSectional.Validate(),
		c.Backtest.Validate(),
		c.Tracking.Options.Validate(),
	)
	return errors.Join(errs...)
}

// Tickers lists the universe symbols in order.
func (c *Config) Tickers() []string {
	out := make([]string, len(c.Universe))
	for i, t := range c.Universe {
		out[i] = t.Symbol
	}
	return out
}

// Names maps universe symbols to display names.
func (c *Config) Names() map[string]string {
	out := make(map[string]string, len(c.Universe))
	for _, t := range c.Universe {
		if t.Name != "" {
			out[t.Symbol] = t.Name
		}
	}
	return out
}

// IndicatorConfig extends the configured windows with those both selection
// policies read.
func (c *Config) IndicatorConfig() indicator.Config {
	return c.Indicators.
		Require(c.Conditions.Windows()).
		Require(c.CrossSectional.Windows())
}

// TelegramEnabled reports whether notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
