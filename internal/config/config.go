// Package config loads and validates tradecore's runtime configuration
// from environment variables (optionally via a .env file) using viper,
// replacing the teacher's hand-rolled os.Getenv helpers with bound
// defaults and a single validation pass.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the fully resolved runtime configuration for the trading
// core: exchange credentials, storage targets, and per-component knobs.
type Config struct {
	KalshiAPIKeyID    string `mapstructure:"kalshi_api_key_id"`
	KalshiPrivKeyPath string `mapstructure:"kalshi_priv_key_path"`
	KalshiEnv         string `mapstructure:"kalshi_env"` // "prod" or "demo"
	DryRun            bool   `mapstructure:"dry_run"`

	DatabaseURL string `mapstructure:"database_url"`
	RedisAddr   string `mapstructure:"redis_addr"`
	RedisDB     int    `mapstructure:"redis_db"`

	KalshiWSCacheTTLSeconds int `mapstructure:"kalshi_ws_cache_ttl_seconds"`
	KalshiWSRefreshMinutes  int `mapstructure:"kalshi_ws_refresh_minutes"`

	MinEVThreshold          float64 `mapstructure:"min_ev_threshold"`
	UseKellySizing          bool    `mapstructure:"use_kelly_sizing"`
	KellyFraction           float64 `mapstructure:"kelly_fraction"`
	MaxBankrollPctPerTrade  float64 `mapstructure:"max_bankroll_pct_per_trade"`
	MaxContractsPerTrade    int     `mapstructure:"max_contracts_per_trade"`
	MaxTradeSizeCents       int64   `mapstructure:"max_trade_size_cents"`
	MaxDailyExposureCents   int64   `mapstructure:"max_daily_exposure_cents"`
	MaxDailyLossCents       int64   `mapstructure:"max_daily_loss_cents"`
	CooldownPerLossMinutes  int     `mapstructure:"cooldown_per_loss_minutes"`
	ConsecutiveLossLimit    int     `mapstructure:"consecutive_loss_limit"`
	PendingTradeTTLMinutes  int     `mapstructure:"pending_trade_ttl_minutes"`
	RequireApprovalForTrade bool    `mapstructure:"require_approval_for_trade"`

	CycleIntervalSeconds int    `mapstructure:"cycle_interval_seconds"`
	CronSchedule         string `mapstructure:"cron_schedule"`

	Debug bool `mapstructure:"debug"`
}

// LogFields returns the subset of configuration worth logging at
// startup. Callers should route this through logging.WithFields (or
// logging.RedactMap) rather than attaching it to an event directly,
// since kalshi_api_key_id and kalshi_priv_key_path belong in here too.
func (c *Config) LogFields() map[string]any {
	return map[string]any{
		"kalshi_api_key_id":          c.KalshiAPIKeyID,
		"kalshi_priv_key_path":       c.KalshiPrivKeyPath,
		"kalshi_env":                 c.KalshiEnv,
		"dry_run":                    c.DryRun,
		"database_url":               c.DatabaseURL,
		"redis_addr":                 c.RedisAddr,
		"cycle_interval_seconds":     c.CycleIntervalSeconds,
		"kalshi_ws_cache_ttl_seconds": c.KalshiWSCacheTTLSeconds,
		"kalshi_ws_refresh_minutes":  c.KalshiWSRefreshMinutes,
	}
}

// BaseURL returns the REST base URL for the configured environment.
func (c *Config) BaseURL() string {
	if c.KalshiEnv == "prod" {
		return "https://api.elections.kalshi.com/trade-api/v2"
	}
	return "https://demo-api.kalshi.co/trade-api/v2"
}

// WSBaseURL returns the WebSocket base URL for the configured environment.
func (c *Config) WSBaseURL() string {
	if c.KalshiEnv == "prod" {
		return "wss://api.elections.kalshi.com/trade-api/ws/v2"
	}
	return "wss://demo-api.kalshi.co/trade-api/ws/v2"
}

// Load reads configuration from environment variables (prefixed
// TRADECORE_, with a leading .env load for local development) and
// returns a validated Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("TRADECORE")
	v.AutomaticEnv()
	bindEnv(v)

	v.SetDefault("kalshi_priv_key_path", "./kalshi_private_key.pem")
	v.SetDefault("kalshi_env", "prod")
	v.SetDefault("dry_run", true)
	v.SetDefault("database_url", "postgres://localhost:5432/tradecore?sslmode=disable")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("kalshi_ws_cache_ttl_seconds", 90)
	v.SetDefault("kalshi_ws_refresh_minutes", 5)
	v.SetDefault("min_ev_threshold", 0.02)
	v.SetDefault("use_kelly_sizing", true)
	v.SetDefault("kelly_fraction", 0.25)
	v.SetDefault("max_bankroll_pct_per_trade", 0.05)
	v.SetDefault("max_contracts_per_trade", 10)
	v.SetDefault("max_trade_size_cents", 50_00)
	v.SetDefault("max_daily_exposure_cents", 500_00)
	v.SetDefault("max_daily_loss_cents", 100_00)
	v.SetDefault("cooldown_per_loss_minutes", 30)
	v.SetDefault("consecutive_loss_limit", 3)
	v.SetDefault("pending_trade_ttl_minutes", 30)
	v.SetDefault("require_approval_for_trade", false)
	v.SetDefault("cycle_interval_seconds", 300)
	v.SetDefault("cron_schedule", "*/5 * * * *")
	v.SetDefault("debug", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func bindEnv(v *viper.Viper) {
	keys := []string{
		"kalshi_api_key_id", "kalshi_priv_key_path", "kalshi_env", "dry_run",
		"database_url", "redis_addr", "redis_db",
		"kalshi_ws_cache_ttl_seconds", "kalshi_ws_refresh_minutes",
		"min_ev_threshold", "use_kelly_sizing", "kelly_fraction",
		"max_bankroll_pct_per_trade", "max_contracts_per_trade",
		"max_trade_size_cents", "max_daily_exposure_cents", "max_daily_loss_cents",
		"cooldown_per_loss_minutes", "consecutive_loss_limit",
		"pending_trade_ttl_minutes", "require_approval_for_trade",
		"cycle_interval_seconds", "cron_schedule", "debug",
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}

func (c *Config) validate() error {
	if c.KalshiAPIKeyID == "" {
		return fmt.Errorf("config: kalshi_api_key_id is required")
	}
	if c.KalshiEnv != "prod" && c.KalshiEnv != "demo" {
		return fmt.Errorf("config: kalshi_env must be 'prod' or 'demo', got %q", c.KalshiEnv)
	}
	if c.MinEVThreshold < 0 {
		return fmt.Errorf("config: min_ev_threshold must be >= 0")
	}
	if c.KellyFraction <= 0 || c.KellyFraction > 1 {
		return fmt.Errorf("config: kelly_fraction must be in (0, 1]")
	}
	return nil
}
