// Package config loads engine and server configuration from a TOML file,
// an optional .env file and the process environment, in that order of precedence (lowest first).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"

	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/domain"
)

const (
	defaultDisplayCurrency      = "AUD"
	defaultPriceCacheTTLMinutes = 15
	defaultSnapshotStaleDays    = 60 // 2 calendar months modeled as 2x30 days
	defaultGatewayTimeout       = "5s"
	defaultConcurrency          = 8
	defaultTopPerformersLimit   = 5
	defaultHistoryMonths        = 12
	defaultGRPCPort             = ":8080"
	defaultAPIToken             = "dev-token"
)

// Config holds all configuration
type Config struct {
	DisplayCurrency string            `toml:"display_currency"`
	Valuation       ValuationConfig   `toml:"valuation"`
	Rates           map[string]string `toml:"rates"` // Static fallback rates, "USD/AUD" = "1.52"
	Database        DatabaseConfig    `toml:"database"`
	Redis           RedisConfig       `toml:"redis"`
	Server          ServerConfig      `toml:"server"`
	Logging         LoggingConfig     `toml:"logging"`
}

// ValuationConfig holds the engine's freshness windows and request limits
type ValuationConfig struct {
	PriceCacheTTLMinutes int    `toml:"price_cache_ttl_minutes"`
	SnapshotStaleDays    int    `toml:"snapshot_stale_days"`
	GatewayTimeout       string `toml:"gateway_timeout"`
	Concurrency          int    `toml:"concurrency"`
	TopPerformersLimit   int    `toml:"top_performers_limit"`
	HistoryMonths        int    `toml:"history_months"`
}

// PriceCacheTTL returns the age after which a cached price is reported as expired
func (c *ValuationConfig) PriceCacheTTL() time.Duration {
	return time.Duration(c.PriceCacheTTLMinutes) * time.Minute
}

// SnapshotStaleAfter returns the age after which a snapshot is reported as old
func (c *ValuationConfig) SnapshotStaleAfter() time.Duration {
	return time.Duration(c.SnapshotStaleDays) * 24 * time.Hour
}

// GetGatewayTimeout parses and returns the per-call gateway timeout
func (c *ValuationConfig) GetGatewayTimeout() time.Duration {
	d, err := time.ParseDuration(c.GatewayTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	ConnStr  string `toml:"conn_str"`
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Name     string `toml:"name"`
}

// ConnString returns the explicit connection string, or builds one from the individual fields
func (c *DatabaseConfig) ConnString() string {
	if c.ConnStr != "" {
		return c.ConnStr
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Name)
}

// RedisConfig holds the price cache connection
type RedisConfig struct {
	Addr      string `toml:"addr"`
	Password  string `toml:"password"`
	DB        int    `toml:"db"`
	KeyPrefix string `toml:"key_prefix"`
}

// ServerConfig holds gRPC server configuration
type ServerConfig struct {
	Port     string `toml:"port"`
	APIToken string `toml:"api_token"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		DisplayCurrency: defaultDisplayCurrency,
		Valuation: ValuationConfig{
			PriceCacheTTLMinutes: defaultPriceCacheTTLMinutes,
			SnapshotStaleDays:    defaultSnapshotStaleDays,
			GatewayTimeout:       defaultGatewayTimeout,
			Concurrency:          defaultConcurrency,
			TopPerformersLimit:   defaultTopPerformersLimit,
			HistoryMonths:        defaultHistoryMonths,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5432",
			User:     "postgres",
			Password: "postgres",
			Name:     "mjolnir",
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "mjolnir:",
		},
		Server: ServerConfig{
			Port:     defaultGRPCPort,
			APIToken: defaultAPIToken,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from path (optional), then .env, then the environment
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// A missing .env file is not an error
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv overrides fields from environment variables
func (c *Config) applyEnv() error {
	c.DisplayCurrency = getEnv("DISPLAY_CURRENCY", c.DisplayCurrency)

	var err error
	if c.Valuation.PriceCacheTTLMinutes, err = getEnvInt("DEFAULT_PRICE_CACHE_TTL_MINUTES", c.Valuation.PriceCacheTTLMinutes); err != nil {
		return err
	}
	if c.Valuation.SnapshotStaleDays, err = getEnvInt("SNAPSHOT_STALE_DAYS", c.Valuation.SnapshotStaleDays); err != nil {
		return err
	}
	if c.Valuation.Concurrency, err = getEnvInt("VALUATION_CONCURRENCY", c.Valuation.Concurrency); err != nil {
		return err
	}
	c.Valuation.GatewayTimeout = getEnv("GATEWAY_TIMEOUT", c.Valuation.GatewayTimeout)

	c.Database.ConnStr = getEnv("DB_CONN_STR", c.Database.ConnStr)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnv("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Name = getEnv("DB_NAME", c.Database.Name)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)

	c.Server.Port = getEnv("GRPC_PORT", c.Server.Port)
	c.Server.APIToken = getEnv("API_TOKEN", c.Server.APIToken)

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)

	return nil
}

// Validate ensures the configuration is usable
func (c *Config) Validate() error {
	c.DisplayCurrency = strings.ToUpper(c.DisplayCurrency)
	if err := domain.ValidateCurrency(c.DisplayCurrency); err != nil {
		return fmt.Errorf("invalid display_currency: %w", err)
	}
	if c.Valuation.PriceCacheTTLMinutes <= 0 {
		return errors.New("price_cache_ttl_minutes must be positive")
	}
	if c.Valuation.SnapshotStaleDays <= 0 {
		return errors.New("snapshot_stale_days must be positive")
	}
	if d, err := time.ParseDuration(c.Valuation.GatewayTimeout); err != nil || d <= 0 {
		return fmt.Errorf("invalid gateway_timeout %q", c.Valuation.GatewayTimeout)
	}
	if c.Valuation.Concurrency <= 0 {
		return errors.New("concurrency must be positive")
	}
	if c.Valuation.TopPerformersLimit <= 0 {
		return errors.New("top_performers_limit must be positive")
	}
	if c.Valuation.HistoryMonths <= 0 {
		return errors.New("history_months must be positive")
	}
	if _, err := c.RateTable(); err != nil {
		return err
	}
	return nil
}

// RateTable parses the static rates section
func (c *Config) RateTable() (domain.RateTable, error) {
	rates := make(domain.RateTable, len(c.Rates))
	for pair, value := range c.Rates {
		parts := strings.Split(pair, "/")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid rate pair %q: want FROM/TO", pair)
		}
		for _, code := range parts {
			if err := domain.ValidateCurrency(strings.ToUpper(code)); err != nil {
				return nil, fmt.Errorf("invalid rate pair %q: %w", pair, err)
			}
		}
		rate, err := decimal.NewFromString(value)
		if err != nil || !rate.IsPositive() {
			return nil, fmt.Errorf("invalid rate %q for %s", value, pair)
		}
		rates[domain.PairKey(parts[0], parts[1])] = rate
	}
	return rates, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
