// Package config provides application configuration loaded from environment variables.
// Use the package-level Get() function to obtain the singleton Config instance.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sub-config structs
// ──────────────────────────────────────────────────────────────────────────────

// ServerConfig holds process-level settings.
type ServerConfig struct {
	Env string // "development" | "production"
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	DSN             string        // full postgres DSN
	MaxOpenConns    int           // default 25
	MaxIdleConns    int           // default 10
	ConnMaxLifetime time.Duration // default 5m
	MigrationsDir   string        // default "migrations"
}

// EconomyConfig holds lending and savings policy knobs.
type EconomyConfig struct {
	MaxActiveLoans     int // default 3
	MinLoanCreditScore int // default 400
}

// MarketConfig holds exchange settings.
type MarketConfig struct {
	TradingFeeRate    float64       // default 0.002 (0.2 %)
	TradingMinFee     float64       // default 10
	SharesOutstanding int64         // default 50000
	TrendAmplitude    float64       // default 0.002
	TrendPeriod       time.Duration // default 720h (30 days)
}

// EventsConfig holds world event generation settings.
type EventsConfig struct {
	TriggerProbability float64 // default 0.30
	GlobalActiveProb   float64 // reduced probability while a global event runs; default 0.10
}

// SchedulerConfig holds the simulated-time tick lengths. A game shard can run
// an accelerated economy by shrinking these.
type SchedulerConfig struct {
	HourTick     time.Duration // one simulated hour; default 1h
	DayTick      time.Duration // one simulated day; default 24h
	DividendDays int           // simulated days between dividend runs; default 30
}

// ──────────────────────────────────────────────────────────────────────────────
// Top-level Config
// ──────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object for the entire engine.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Economy   EconomyConfig
	Market    MarketConfig
	Events    EventsConfig
	Scheduler SchedulerConfig
}

// IsProd returns true when running in the production environment.
func (c *Config) IsProd() bool {
	return c.Server.Env == "production"
}

// Validate checks that all required configuration values are present and valid.
// Returns the first validation errors encountered, joined.
func (c *Config) Validate() error {
	var errs []error

	if c.IsProd() && c.DB.DSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN must be set in production"))
	}

	if c.Events.TriggerProbability < 0 || c.Events.TriggerProbability > 1 {
		errs = append(errs, fmt.Errorf(
			"EVENT_TRIGGER_PROBABILITY must be within [0,1], got %.4f", c.Events.TriggerProbability))
	}
	if c.Events.GlobalActiveProb < 0 || c.Events.GlobalActiveProb > c.Events.TriggerProbability {
		errs = append(errs, fmt.Errorf(
			"EVENT_GLOBAL_ACTIVE_PROBABILITY must be within [0, trigger probability], got %.4f",
			c.Events.GlobalActiveProb))
	}

	if c.Market.TradingFeeRate <= 0 || c.Market.TradingFeeRate >= 1 {
		errs = append(errs, fmt.Errorf(
			"MARKET_TRADING_FEE_RATE must be between 0 and 1 (exclusive), got %.4f",
			c.Market.TradingFeeRate))
	}
	if c.Market.SharesOutstanding <= 0 {
		errs = append(errs, errors.New("MARKET_SHARES_OUTSTANDING must be positive"))
	}

	if c.Scheduler.HourTick <= 0 || c.Scheduler.DayTick <= 0 {
		errs = append(errs, errors.New("scheduler tick durations must be positive"))
	}
	if c.Scheduler.DividendDays <= 0 {
		errs = append(errs, errors.New("SCHED_DIVIDEND_DAYS must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Singleton
// ──────────────────────────────────────────────────────────────────────────────

var (
	instance *Config
	once     sync.Once
	loadErr  error
)

// Get returns the singleton Config, loading it once from environment variables.
// Panics if loading fails — call this early in main() to catch misconfigurations
// at startup.
func Get() *Config {
	once.Do(func() {
		instance, loadErr = load()
	})
	if loadErr != nil {
		panic(fmt.Sprintf("config: failed to load: %v", loadErr))
	}
	return instance
}

// MustLoad loads and validates configuration. Intended for use in main().
// Panics on any error so misconfiguration is caught immediately at boot.
func MustLoad() *Config {
	cfg := Get()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: validation failed: %v", err))
	}
	return cfg
}

// ──────────────────────────────────────────────────────────────────────────────
// Internal loader
// ──────────────────────────────────────────────────────────────────────────────

func load() (*Config, error) {
	cfg := &Config{}

	// ── Server ────────────────────────────────────────────────────────────────
	cfg.Server = ServerConfig{
		Env: getEnv("ENVIRONMENT", "development"),
	}

	// ── Database ──────────────────────────────────────────────────────────────
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		// Build DSN from individual components for convenience in dev
		dsn = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", ""),
			getEnv("DB_NAME", "playstrata_economy"),
			getEnv("DB_SSLMODE", "disable"),
		)
	}

	maxOpen, err := getInt("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_OPEN_CONNS: %w", err)
	}
	maxIdle, err := getInt("DB_MAX_IDLE_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_IDLE_CONNS: %w", err)
	}

	cfg.DB = DBConfig{
		DSN:             dsn,
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		MigrationsDir:   getEnv("DB_MIGRATIONS_DIR", "migrations"),
	}

	// ── Economy ───────────────────────────────────────────────────────────────
	maxLoans, err := getInt("ECON_MAX_ACTIVE_LOANS", 3)
	if err != nil {
		return nil, fmt.Errorf("ECON_MAX_ACTIVE_LOANS: %w", err)
	}
	minScore, err := getInt("ECON_MIN_LOAN_CREDIT_SCORE", 400)
	if err != nil {
		return nil, fmt.Errorf("ECON_MIN_LOAN_CREDIT_SCORE: %w", err)
	}
	cfg.Economy = EconomyConfig{
		MaxActiveLoans:     maxLoans,
		MinLoanCreditScore: minScore,
	}

	// ── Market ────────────────────────────────────────────────────────────────
	feeRate, err := getFloat("MARKET_TRADING_FEE_RATE", 0.002)
	if err != nil {
		return nil, fmt.Errorf("MARKET_TRADING_FEE_RATE: %w", err)
	}
	minFee, err := getFloat("MARKET_TRADING_MIN_FEE", 10)
	if err != nil {
		return nil, fmt.Errorf("MARKET_TRADING_MIN_FEE: %w", err)
	}
	shares, err := getInt("MARKET_SHARES_OUTSTANDING", 50_000)
	if err != nil {
		return nil, fmt.Errorf("MARKET_SHARES_OUTSTANDING: %w", err)
	}
	amplitude, err := getFloat("MARKET_TREND_AMPLITUDE", 0.002)
	if err != nil {
		return nil, fmt.Errorf("MARKET_TREND_AMPLITUDE: %w", err)
	}
	cfg.Market = MarketConfig{
		TradingFeeRate:    feeRate,
		TradingMinFee:     minFee,
		SharesOutstanding: int64(shares),
		TrendAmplitude:    amplitude,
		TrendPeriod:       getDuration("MARKET_TREND_PERIOD", 30*24*time.Hour),
	}

	// ── Events ────────────────────────────────────────────────────────────────
	trigger, err := getFloat("EVENT_TRIGGER_PROBABILITY", 0.30)
	if err != nil {
		return nil, fmt.Errorf("EVENT_TRIGGER_PROBABILITY: %w", err)
	}
	globalProb, err := getFloat("EVENT_GLOBAL_ACTIVE_PROBABILITY", 0.10)
	if err != nil {
		return nil, fmt.Errorf("EVENT_GLOBAL_ACTIVE_PROBABILITY: %w", err)
	}
	cfg.Events = EventsConfig{
		TriggerProbability: trigger,
		GlobalActiveProb:   globalProb,
	}

	// ── Scheduler ─────────────────────────────────────────────────────────────
	dividendDays, err := getInt("SCHED_DIVIDEND_DAYS", 30)
	if err != nil {
		return nil, fmt.Errorf("SCHED_DIVIDEND_DAYS: %w", err)
	}
	cfg.Scheduler = SchedulerConfig{
		HourTick:     getDuration("SCHED_HOUR_TICK", time.Hour),
		DayTick:      getDuration("SCHED_DAY_TICK", 24*time.Hour),
		DividendDays: dividendDays,
	}

	return cfg, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper functions
// ──────────────────────────────────────────────────────────────────────────────

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

func getFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float %q", v)
	}
	return f, nil
}

// getDuration parses an env var as a Go duration string (e.g. "15m", "2s").
// Falls back to defaultVal if the variable is unset or empty.
func getDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
