// Package common provides shared utilities for Shanon
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Shanon
type Config struct {
	Environment       string        `toml:"environment"`
	ReportingCurrency string        `toml:"reporting_currency"` // FX target currency, never stored as a rate row
	Server            ServerConfig  `toml:"server"`
	Storage           StorageConfig `toml:"storage"`
	Redis             RedisConfig   `toml:"redis"`
	Clients           ClientsConfig `toml:"clients"`
	Quotes            QuotesConfig  `toml:"quotes"`
	Jobs              JobsConfig    `toml:"jobs"`
	Logging           LoggingConfig `toml:"logging"`
	Auth              AuthConfig    `toml:"auth"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Backend   string `toml:"backend"` // "surrealdb", "postgres" or "sqlite"
	Address   string `toml:"address"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	DSN       string `toml:"dsn"` // gorm DSN for postgres, file path for sqlite
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the per-operation store timeout
func (c *StorageConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 5*time.Second)
}

// RedisConfig configures the optional hot quote cache. An empty address disables it.
type RedisConfig struct {
	Address  string `toml:"address"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	TTL      string `toml:"ttl"`
}

// GetTTL parses and returns the cache entry TTL
func (c *RedisConfig) GetTTL() time.Duration {
	return parseDuration(c.TTL, 5*time.Minute)
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	EODHD        ProviderConfig `toml:"eodhd"`
	Yahoo        ProviderConfig `toml:"yahoo"`
	AlphaVantage ProviderConfig `toml:"alphavantage"`
	CNB          ProviderConfig `toml:"cnb"`
}

// ProviderConfig holds configuration for one external data source
type ProviderConfig struct {
	Enabled   bool    `toml:"enabled"`
	BaseURL   string  `toml:"base_url"`
	APIKey    string  `toml:"api_key"`
	RateLimit float64 `toml:"rate_limit"` // requests per second, 0 = unlimited
	Timeout   string  `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *ProviderConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 10*time.Second)
}

// QuotesConfig holds quote cache and batch refresh settings
type QuotesConfig struct {
	TTL            string   `toml:"ttl"`
	PerCallDelay   string   `toml:"per_call_delay"`
	Workers        int      `toml:"workers"`
	HistoryDefault bool     `toml:"history_default"` // trackHistory flag for newly created quote rows
	ProviderOrder  []string `toml:"provider_order"`
}

// GetTTL returns the quote freshness window
func (c *QuotesConfig) GetTTL() time.Duration {
	return parseDuration(c.TTL, 15*time.Minute)
}

// GetPerCallDelay returns the batch refresh pacing delay between tickers
func (c *QuotesConfig) GetPerCallDelay() time.Duration {
	return parseDuration(c.PerCallDelay, 500*time.Millisecond)
}

// GetWorkers returns the batch refresh worker count (minimum 1)
func (c *QuotesConfig) GetWorkers() int {
	if c.Workers <= 0 {
		return 1
	}
	return c.Workers
}

// JobsConfig holds scheduled job configuration
type JobsConfig struct {
	Enabled           bool   `toml:"enabled"`
	RefreshInterval   string `toml:"refresh_interval"`
	AnalyticsInterval string `toml:"analytics_interval"`
	FxImportInterval  string `toml:"fx_import_interval"`
}

// GetRefreshInterval returns the batch quote refresh interval
func (c *JobsConfig) GetRefreshInterval() time.Duration {
	return parseDuration(c.RefreshInterval, 30*time.Minute)
}

// GetAnalyticsInterval returns the analytics recompute interval
func (c *JobsConfig) GetAnalyticsInterval() time.Duration {
	return parseDuration(c.AnalyticsInterval, 6*time.Hour)
}

// GetFxImportInterval returns the FX fixing import interval
func (c *JobsConfig) GetFxImportInterval() time.Duration {
	return parseDuration(c.FxImportInterval, 24*time.Hour)
}

// AuthConfig holds the admin bearer token secret.
type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" or "json"
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment:       "development",
		ReportingCurrency: "CZK",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Backend:   "surrealdb",
			Address:   "ws://localhost:8000/rpc",
			Namespace: "shanon",
			Database:  "quotes",
			Username:  "root",
			Password:  "root",
			Timeout:   "5s",
		},
		Redis: RedisConfig{
			TTL: "5m",
		},
		Clients: ClientsConfig{
			EODHD: ProviderConfig{
				Enabled:   true,
				BaseURL:   "https://eodhd.com/api",
				RateLimit: 10,
				Timeout:   "10s",
			},
			Yahoo: ProviderConfig{
				Enabled:   true,
				BaseURL:   "https://query1.finance.yahoo.com",
				RateLimit: 2,
				Timeout:   "10s",
			},
			AlphaVantage: ProviderConfig{
				Enabled:   true,
				BaseURL:   "https://www.alphavantage.co",
				RateLimit: 0.2,
				Timeout:   "15s",
			},
			CNB: ProviderConfig{
				Enabled: true,
				BaseURL: "https://www.cnb.cz",
				Timeout: "15s",
			},
		},
		Quotes: QuotesConfig{
			TTL:            "15m",
			PerCallDelay:   "500ms",
			Workers:        1,
			HistoryDefault: true,
			ProviderOrder:  []string{"eodhd", "yahoo", "alphavantage", "manual"},
		},
		Jobs: JobsConfig{
			Enabled:           true,
			RefreshInterval:   "30m",
			AnalyticsInterval: "6h",
			FxImportInterval:  "24h",
		},
		Auth: AuthConfig{
			JWTSecret: "dev-jwt-secret-change-in-production",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// .env values never override variables already set in the process
	_ = godotenv.Load()

	applyEnvOverrides(config)

	config.ReportingCurrency = strings.ToUpper(strings.TrimSpace(config.ReportingCurrency))
	if config.ReportingCurrency == "" {
		config.ReportingCurrency = "CZK"
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("SHANON_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("SHANON_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("SHANON_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("SHANON_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if v := os.Getenv("SHANON_REPORTING_CURRENCY"); v != "" {
		config.ReportingCurrency = v
	}

	// Storage overrides
	if v := os.Getenv("SHANON_STORAGE_BACKEND"); v != "" {
		config.Storage.Backend = v
	}
	if v := os.Getenv("SHANON_STORAGE_ADDRESS"); v != "" {
		config.Storage.Address = v
	}
	if v := os.Getenv("SHANON_STORAGE_USERNAME"); v != "" {
		config.Storage.Username = v
	}
	if v := os.Getenv("SHANON_STORAGE_PASSWORD"); v != "" {
		config.Storage.Password = v
	}
	if v := os.Getenv("SHANON_STORAGE_DSN"); v != "" {
		config.Storage.DSN = v
	}
	if v := os.Getenv("SHANON_REDIS_ADDRESS"); v != "" {
		config.Redis.Address = v
	}

	// Provider keys
	if v := firstEnv("EODHD_API_KEY", "SHANON_EODHD_API_KEY"); v != "" {
		config.Clients.EODHD.APIKey = v
	}
	if v := firstEnv("ALPHAVANTAGE_API_KEY", "SHANON_ALPHAVANTAGE_API_KEY"); v != "" {
		config.Clients.AlphaVantage.APIKey = v
	}

	if v := os.Getenv("SHANON_QUOTES_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Quotes.Workers = n
		}
	}

	if v := os.Getenv("SHANON_AUTH_JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
