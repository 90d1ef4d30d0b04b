// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// BillingConfig carries the billing knobs injected into the use cases.
type BillingConfig struct {
	DefaultAppArea      string `yaml:"default_app_area"`      // pool credited by top-ups
	DefaultIntervalDays int    `yaml:"default_interval_days"` // fallback when an action has none
	CreditPriceCents    int64  `yaml:"credit_price_cents"`    // gateway price of one credit
	Currency            string `yaml:"currency"`
	FallbackTaxCountry  string `yaml:"fallback_tax_country"`
}

type GatewayConfig struct {
	Provider     string `yaml:"provider"` // checkout | noop
	MerchantID   string `yaml:"merchant_id"`
	CallbackURL  string `yaml:"callback_url"`
	CallbackPort int    `yaml:"callback_port"`
	ReturnURL    string `yaml:"return_url"` // where the result page sends the purchaser
	Sandbox      bool   `yaml:"sandbox"`
}

type AdminConfig struct {
	Port       int           `yaml:"port"`
	APIKey     string        `yaml:"api_key"`
	JWTSecret  string        `yaml:"jwt_secret"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type SchedulerConfig struct {
	ExpiryInterval    time.Duration `yaml:"expiry_interval"`
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	StalePaymentAge   time.Duration `yaml:"stale_payment_age"`
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Billing   BillingConfig   `yaml:"billing"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Admin     AdminConfig     `yaml:"admin"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Billing.DefaultAppArea == "" {
		cfg.Billing.DefaultAppArea = "job"
	}
	if cfg.Billing.DefaultIntervalDays <= 0 {
		cfg.Billing.DefaultIntervalDays = 30
	}
	if cfg.Billing.Currency == "" {
		cfg.Billing.Currency = "USD"
	}
	if cfg.Billing.FallbackTaxCountry == "" {
		cfg.Billing.FallbackTaxCountry = "US"
	}
	if cfg.Gateway.Provider == "" {
		cfg.Gateway.Provider = "checkout"
	}
	if cfg.Admin.SessionTTL <= 0 {
		cfg.Admin.SessionTTL = 30 * time.Minute
	}
	if cfg.Scheduler.ExpiryInterval <= 0 {
		cfg.Scheduler.ExpiryInterval = time.Hour
	}
	if cfg.Scheduler.ReconcileInterval <= 0 {
		cfg.Scheduler.ReconcileInterval = 15 * time.Minute
	}
	if cfg.Scheduler.StalePaymentAge <= 0 {
		cfg.Scheduler.StalePaymentAge = time.Hour
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Billing.CreditPriceCents <= 0 {
		return nil, errors.New("billing.credit_price_cents is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
