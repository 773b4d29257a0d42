package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/verrerie/finx-sub000/internal/logging"
)

// EnvPrefix prefixes every environment override, e.g. FINX_SERVER_PORT.
const EnvPrefix = "FINX"

type Server struct {
	Port           string        `yaml:"port" envconfig:"PORT"`
	RequestTimeout time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
	// RateLimit is the inbound request rate per client IP, per second.
	// Zero disables inbound throttling.
	RateLimit float64 `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
	Burst     int     `yaml:"burst" envconfig:"BURST"`
}

type AlphaVantage struct {
	APIKey       string        `yaml:"api_key" envconfig:"API_KEY"`
	BaseURL      string        `yaml:"base_url" envconfig:"BASE_URL"`
	Timeout      time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	MaxPerMinute int           `yaml:"max_per_minute" envconfig:"MAX_PER_MINUTE"`
	MaxPerDay    int           `yaml:"max_per_day" envconfig:"MAX_PER_DAY"`
	// MaxWait bounds how long a call may queue for quota before the
	// fallback is used instead. Zero waits indefinitely.
	MaxWait time.Duration `yaml:"max_wait" envconfig:"MAX_WAIT"`
}

type Yahoo struct {
	BaseURL string        `yaml:"base_url" envconfig:"BASE_URL"`
	Timeout time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
}

type Cache struct {
	QuoteTTL   time.Duration `yaml:"quote_ttl" envconfig:"QUOTE_TTL"`
	CompanyTTL time.Duration `yaml:"company_ttl" envconfig:"COMPANY_TTL"`
	HistoryTTL time.Duration `yaml:"history_ttl" envconfig:"HISTORY_TTL"`
	SearchTTL  time.Duration `yaml:"search_ttl" envconfig:"SEARCH_TTL"`
}

// Redis backs the rate limit journal. An empty Addr keeps usage in memory.
type Redis struct {
	Addr     string `yaml:"addr" envconfig:"ADDR"`
	Password string `yaml:"password" envconfig:"PASSWORD"`
	DB       int    `yaml:"db" envconfig:"DB"`
	Key      string `yaml:"key" envconfig:"KEY"`
}

type Config struct {
	Server       Server         `yaml:"server" envconfig:"SERVER"`
	AlphaVantage AlphaVantage   `yaml:"alphavantage" envconfig:"ALPHAVANTAGE"`
	Yahoo        Yahoo          `yaml:"yahoo" envconfig:"YAHOO"`
	Cache        Cache          `yaml:"cache" envconfig:"CACHE"`
	Redis        Redis          `yaml:"redis" envconfig:"REDIS"`
	Log          logging.Config `yaml:"log" envconfig:"LOG"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeout: 2 * time.Minute, RateLimit: 5, Burst: 10},
		AlphaVantage: AlphaVantage{
			BaseURL:      "https://www.alphavantage.co/query",
			Timeout:      15 * time.Second,
			MaxPerMinute: 5,
			MaxPerDay:    25,
			MaxWait:      90 * time.Second,
		},
		Yahoo: Yahoo{
			BaseURL: "https://query1.finance.yahoo.com",
			Timeout: 10 * time.Second,
		},
		Cache: Cache{
			QuoteTTL:   time.Minute,
			CompanyTTL: 24 * time.Hour,
			HistoryTTL: time.Hour,
			SearchTTL:  24 * time.Hour,
		},
		Redis: Redis{Key: "finx:ratelimit:calls"},
		Log:   logging.Config{Level: "info", Format: "json", Output: "stdout", MaxSizeMB: 50, MaxBackups: 5, MaxAgeDays: 14},
	}
}

// Load builds the configuration. Defaults are overlaid by the YAML file at
// path (or CONFIG_FILE, or ./config.yaml when present), then by FINX_*
// environment variables. A .env file in the working directory is loaded
// into the environment first. ALPHA_VANTAGE_API_KEY and PORT are honoured
// when the prefixed variables are unset.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("env config: %w", err)
	}
	applyLegacyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyLegacyEnv(cfg *Config) {
	if _, ok := os.LookupEnv(EnvPrefix + "_ALPHAVANTAGE_API_KEY"); !ok {
		if v := os.Getenv("ALPHA_VANTAGE_API_KEY"); v != "" {
			cfg.AlphaVantage.APIKey = v
		}
	}
	if _, ok := os.LookupEnv(EnvPrefix + "_SERVER_PORT"); !ok {
		if v := os.Getenv("PORT"); v != "" {
			cfg.Server.Port = v
		}
	}
}

// Validate rejects settings the service cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.AlphaVantage.MaxPerMinute < 0 || c.AlphaVantage.MaxPerDay < 0 {
		errs = append(errs, errors.New("alphavantage quotas must not be negative"))
	}
	if c.AlphaVantage.MaxWait < 0 {
		errs = append(errs, errors.New("alphavantage.max_wait must not be negative"))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, errors.New("server.rate_limit must not be negative"))
	}
	for name, ttl := range map[string]time.Duration{
		"quote_ttl":   c.Cache.QuoteTTL,
		"company_ttl": c.Cache.CompanyTTL,
		"history_ttl": c.Cache.HistoryTTL,
		"search_ttl":  c.Cache.SearchTTL,
	} {
		if ttl <= 0 {
			errs = append(errs, fmt.Errorf("cache.%s must be positive", name))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// PrimaryEnabled reports whether the quota-limited primary is configured.
func (c Config) PrimaryEnabled() bool { return c.AlphaVantage.APIKey != "" }
