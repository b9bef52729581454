// Package config reads the server configuration from the environment, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/simaogato/moneytransfer-backend/internal/domain"
	"github.com/simaogato/moneytransfer-backend/internal/usecase/seeder"
	"github.com/simaogato/moneytransfer-backend/internal/usecase/transfer"
)

// Lock backends
const (
	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"
)

// defaultAPIToken is only used when ENV is a development environment
const defaultAPIToken = "dev-token"

// Config holds everything cmd/server needs to wire the application
type Config struct {
	Env      string
	LogLevel string

	GRPCAddr string
	HTTPAddr string
	APIToken string

	// DBConnStr is empty when no database is configured; accounts are then kept in memory
	DBConnStr string

	LockBackend    string
	RedisAddr      string
	LockExpiry     time.Duration
	LockTries      int
	LockRetryDelay time.Duration
	LockTimeout    time.Duration

	MaxTransferAmount domain.Money
	// MaxAccountBalance caps the balance a deposit may produce. Nil means no cap.
	MaxAccountBalance *domain.Money
	BaselineWindow    time.Duration

	SeedAccounts []seeder.SeedAccount
}

// Load reads the configuration. A missing .env file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", ""),
		GRPCAddr:    getEnv("GRPC_ADDR", ":8080"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8081"),
		APIToken:    getEnv("API_TOKEN", ""),
		DBConnStr:   dbConnectionString(),
		LockBackend: strings.ToLower(getEnv("LOCK_BACKEND", LockBackendMemory)),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
	}

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var err error
	cfg.LockExpiry, err = getDuration("LOCK_EXPIRY", 10*time.Second)
	collect(err)
	cfg.LockTries, err = getInt("LOCK_TRIES", 32)
	collect(err)
	cfg.LockRetryDelay, err = getDuration("LOCK_RETRY_DELAY", 50*time.Millisecond)
	collect(err)
	cfg.LockTimeout, err = getDuration("LOCK_TIMEOUT", 5*time.Second)
	collect(err)
	cfg.BaselineWindow, err = getDuration("BASELINE_WINDOW", transfer.DefaultBaselineWindow)
	collect(err)

	cfg.MaxTransferAmount, err = getMoney("MAX_TRANSFER_AMOUNT", domain.MoneyOf(1_000_000))
	collect(err)

	if raw := getEnv("MAX_ACCOUNT_BALANCE", ""); raw != "" {
		limit, err := domain.NewMoneyFromString(raw)
		if err != nil {
			collect(fmt.Errorf("invalid MAX_ACCOUNT_BALANCE %q: %w", raw, err))
		} else {
			cfg.MaxAccountBalance = &limit
		}
	}

	cfg.SeedAccounts, err = ParseSeedAccounts(getEnv("SEED_ACCOUNTS", ""))
	collect(err)

	if cfg.APIToken == "" {
		if cfg.IsDevelopment() {
			cfg.APIToken = defaultAPIToken
		} else {
			collect(fmt.Errorf("API_TOKEN is required when ENV is %q", cfg.Env))
		}
	}

	switch cfg.LockBackend {
	case LockBackendMemory, LockBackendRedis:
	default:
		collect(fmt.Errorf("invalid LOCK_BACKEND %q: want %q or %q", cfg.LockBackend, LockBackendMemory, LockBackendRedis))
	}

	if !cfg.MaxTransferAmount.IsPositive() {
		collect(fmt.Errorf("MAX_TRANSFER_AMOUNT must be positive, got %s", cfg.MaxTransferAmount))
	}
	if cfg.BaselineWindow < 0 {
		collect(fmt.Errorf("BASELINE_WINDOW must not be negative, got %s", cfg.BaselineWindow))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}

	return cfg, nil
}

// IsDevelopment reports whether the server runs in a local development environment
func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "local"
}

// UsesDatabase reports whether accounts are stored in PostgreSQL
func (c *Config) UsesDatabase() bool {
	return c.DBConnStr != ""
}

// ParseSeedAccounts parses "uuid:amount,uuid:amount". The amount is optional and defaults to zero.
func ParseSeedAccounts(raw string) ([]seeder.SeedAccount, error) {
	var seeds []seeder.SeedAccount

	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		idPart, amountPart, _ := strings.Cut(item, ":")

		id, err := domain.ParseAccountID(strings.TrimSpace(idPart))
		if err != nil {
			return nil, fmt.Errorf("invalid SEED_ACCOUNTS entry %q: %w", item, err)
		}

		amount := domain.ZeroMoney
		if amountPart = strings.TrimSpace(amountPart); amountPart != "" {
			amount, err = domain.NewMoneyFromString(amountPart)
			if err != nil {
				return nil, fmt.Errorf("invalid SEED_ACCOUNTS amount in %q: %w", item, err)
			}
		}

		seeds = append(seeds, seeder.SeedAccount{ID: id, OpeningBalance: amount})
	}

	return seeds, nil
}

// dbConnectionString returns DB_CONN_STR, or builds one when DB_HOST is set (Docker friendly)
func dbConnectionString() string {
	if connStr := getEnv("DB_CONN_STR", ""); connStr != "" {
		return connStr
	}

	host := getEnv("DB_HOST", "")
	if host == "" {
		return ""
	}

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host,
		getEnv("DB_PORT", "5432"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_NAME", "moneytransfer"),
	)
}

// Helper to get env with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}

func getMoney(key string, fallback domain.Money) (domain.Money, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	m, err := domain.NewMoneyFromString(raw)
	if err != nil {
		return domain.ZeroMoney, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return m, nil
}
