// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/light-bringer/worktrack-service/internal/app/product/domain"
)

// Ledger backends.
const (
	BackendSpanner = "spanner"
	BackendMemory  = "memory"
)

// Lock backends.
const (
	LockLocal = "local"
	LockRedis = "redis"
)

// Config holds runtime configuration for the service and its commands.
type Config struct {
	AppAddr         string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout  time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	LedgerBackend      string        `envconfig:"LEDGER_BACKEND" default:"spanner"`
	SpannerDatabase    string        `envconfig:"SPANNER_DATABASE" default:"projects/test-project/instances/dev/databases/worktrack"`
	LedgerReadTimeout  time.Duration `envconfig:"LEDGER_READ_TIMEOUT" default:"5s"`
	LedgerWriteTimeout time.Duration `envconfig:"LEDGER_WRITE_TIMEOUT" default:"30s"`
	LedgerDialTimeout  time.Duration `envconfig:"LEDGER_DIAL_TIMEOUT" default:"10s"`
	LoadConcurrency    int           `envconfig:"LOAD_CONCURRENCY" default:"4"`

	StatusRegressionPolicy string `envconfig:"STATUS_REGRESSION_POLICY" default:"allow"`
	RejectNoopTransitions  bool   `envconfig:"REJECT_NOOP_TRANSITIONS" default:"false"`

	LockBackend string        `envconfig:"LOCK_BACKEND" default:"local"`
	RedisAddr   string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	LockTTL     time.Duration `envconfig:"LOCK_TTL" default:"45s"`

	KafkaBrokers []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"worktrack.events"`

	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`

	ActingIdentity string `envconfig:"ACTING_IDENTITY"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.LedgerBackend {
	case BackendSpanner, BackendMemory:
	default:
		return fmt.Errorf("unknown LEDGER_BACKEND %q", c.LedgerBackend)
	}
	switch c.LockBackend {
	case LockLocal, LockRedis:
	default:
		return fmt.Errorf("unknown LOCK_BACKEND %q", c.LockBackend)
	}
	if _, err := c.RegressionPolicy(); err != nil {
		return err
	}
	if c.LedgerBackend == BackendSpanner && strings.TrimSpace(c.SpannerDatabase) == "" {
		return fmt.Errorf("SPANNER_DATABASE must be provided for the spanner backend")
	}
	if c.LoadConcurrency <= 0 {
		return fmt.Errorf("LOAD_CONCURRENCY must be positive")
	}
	return nil
}

// RegressionPolicy returns the parsed status regression policy.
func (c *Config) RegressionPolicy() (domain.RegressionPolicy, error) {
	return domain.ParseRegressionPolicy(c.StatusRegressionPolicy)
}
