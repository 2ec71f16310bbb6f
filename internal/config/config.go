// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Storage
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)
	RedisURL    string // Redis connection string (optional, uses in-memory cache if not set)

	// Quote aggregation
	ProviderTimeout time.Duration // per-bridge quote timeout
	GlobalTimeout   time.Duration // ceiling for the whole fan-out
	CacheTTL        time.Duration // aggregated-result cache TTL

	// Gas estimation
	EthRPCURL     string  // JSON-RPC endpoint for source-chain gas prices
	PolygonRPCURL string  // JSON-RPC endpoint for destination-chain gas prices
	ETHPriceUSD   float64 // fallback ETH/USD price when the oracle is unreachable

	// Rate limiting defaults for anonymous callers
	AnonymousPerMinute int
	AnonymousPerHour   int

	// Security
	AdminSecret string // Admin API secret for key management

	// Tracing
	OTLPEndpoint string
}

const (
	DefaultPort            = "8080"
	DefaultEnv             = "development"
	DefaultLogLevel        = "info"
	DefaultProviderTimeout = 5 * time.Second
	DefaultGlobalTimeout   = 8 * time.Second
	DefaultCacheTTL        = 30 * time.Second
	DefaultEthRPCURL       = "https://eth.llamarpc.com"
	DefaultPolygonRPCURL   = "https://polygon-rpc.com"
	DefaultETHPriceUSD     = 3000.0
	DefaultAnonPerMinute   = 20
	DefaultAnonPerHour     = 200
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", DefaultPort),
		Env:                getEnv("ENV", DefaultEnv),
		LogLevel:           getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		ProviderTimeout:    getEnvDuration("PROVIDER_TIMEOUT", DefaultProviderTimeout),
		GlobalTimeout:      getEnvDuration("GLOBAL_TIMEOUT", DefaultGlobalTimeout),
		CacheTTL:           getEnvDuration("CACHE_TTL", DefaultCacheTTL),
		EthRPCURL:          getEnv("ETH_RPC_URL", DefaultEthRPCURL),
		PolygonRPCURL:      getEnv("POLYGON_RPC_URL", DefaultPolygonRPCURL),
		ETHPriceUSD:        getEnvFloat("ETH_PRICE_USD", DefaultETHPriceUSD),
		AnonymousPerMinute: int(getEnvInt64("ANON_RATE_LIMIT_PER_MINUTE", DefaultAnonPerMinute)),
		AnonymousPerHour:   int(getEnvInt64("ANON_RATE_LIMIT_PER_HOUR", DefaultAnonPerHour)),
		AdminSecret:        os.Getenv("ADMIN_SECRET"),
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent
func (c *Config) Validate() error {
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be positive")
	}
	if c.GlobalTimeout <= c.ProviderTimeout {
		return fmt.Errorf("GLOBAL_TIMEOUT (%s) must exceed PROVIDER_TIMEOUT (%s)", c.GlobalTimeout, c.ProviderTimeout)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("CACHE_TTL must not be negative")
	}
	if c.AnonymousPerMinute <= 0 || c.AnonymousPerHour <= 0 {
		return fmt.Errorf("anonymous rate limits must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
