package scheduler

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/jdziat/simple-triggers/pkg/core"
	"github.com/jdziat/simple-triggers/pkg/security"
)

// Config holds scheduler configuration.
type Config struct {
	// InstanceID names this scheduler in logs. Defaults to a random UUID.
	InstanceID string `yaml:"instance_id"`
	// PollInterval is the longest the loop sleeps between store polls.
	PollInterval time.Duration `yaml:"poll_interval"`
	// MisfireThreshold is how late a trigger may be before it counts as misfired.
	MisfireThreshold time.Duration `yaml:"misfire_threshold"`
	Workers          int           `yaml:"workers"`
	// BatchSize caps the triggers acquired per poll.
	BatchSize    int               `yaml:"batch_size"`
	ShutdownMode core.ShutdownMode `yaml:"shutdown_mode"`
	StoreRetry   RetryConfig       `yaml:"store_retry"`

	Logger *slog.Logger     `yaml:"-"`
	Clock  func() time.Time `yaml:"-"`
}

// DefaultConfig returns the configuration New starts from.
func DefaultConfig() Config {
	return Config{
		PollInterval:     time.Second,
		MisfireThreshold: time.Minute,
		Workers:          10,
		BatchSize:        10,
		ShutdownMode:     core.ShutdownGraceful,
		StoreRetry:       DefaultRetryConfig(),
	}
}

// Validate checks the configuration and fills unset fields from the defaults.
func (c *Config) Validate() error {
	def := DefaultConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	if c.MisfireThreshold < 0 {
		return fmt.Errorf("triggers: misfire threshold must be >= 0, got %s", c.MisfireThreshold)
	}
	c.Workers = security.ClampWorkers(c.Workers)
	c.BatchSize = security.ClampBatchSize(c.BatchSize)
	switch c.ShutdownMode {
	case "":
		c.ShutdownMode = def.ShutdownMode
	case core.ShutdownGraceful, core.ShutdownAggressive:
	default:
		return fmt.Errorf("triggers: unknown shutdown mode %q", c.ShutdownMode)
	}
	if c.StoreRetry.MaxAttempts < 1 {
		c.StoreRetry = def.StoreRetry
	}
	if c.InstanceID == "" {
		c.InstanceID = uuid.New().String()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return nil
}

// ParseConfig reads YAML on top of DefaultConfig. Durations use Go syntax
// such as "500ms" or "1m30s".
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("triggers: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads a YAML configuration file.
//
//	poll_interval: 500ms
//	misfire_threshold: 1m
//	workers: 4
//	shutdown_mode: aggressive
//	store_retry:
//	  max_attempts: 3
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("triggers: read config: %w", err)
	}
	return ParseConfig(data)
}

// Option configures a Scheduler.
type Option interface {
	apply(*Config)
}

type optionFunc func(*Config)

func (f optionFunc) apply(c *Config) { f(c) }

// WithConfig replaces the whole configuration, typically one from LoadConfig.
// Options after it still apply.
func WithConfig(cfg Config) Option {
	return optionFunc(func(c *Config) { *c = cfg })
}

// WithInstanceID names the scheduler in logs.
func WithInstanceID(id string) Option {
	return optionFunc(func(c *Config) { c.InstanceID = id })
}

// WithPollInterval sets how often the store is polled for due triggers.
func WithPollInterval(d time.Duration) Option {
	return optionFunc(func(c *Config) { c.PollInterval = d })
}

// WithMisfireThreshold sets how late a trigger may fire before its misfire
// instruction applies.
func WithMisfireThreshold(d time.Duration) Option {
	return optionFunc(func(c *Config) { c.MisfireThreshold = d })
}

// WithWorkers sets the number of jobs that may run at once.
// Values are clamped to [1, security.MaxWorkers].
func WithWorkers(n int) Option {
	return optionFunc(func(c *Config) { c.Workers = n })
}

// WithBatchSize caps the triggers acquired per poll.
func WithBatchSize(n int) Option {
	return optionFunc(func(c *Config) { c.BatchSize = n })
}

// WithShutdownMode selects what happens to running jobs when Start's context
// is cancelled.
func WithShutdownMode(m core.ShutdownMode) Option {
	return optionFunc(func(c *Config) { c.ShutdownMode = m })
}

// WithStoreRetry sets the retry policy for store calls made by the loop.
func WithStoreRetry(r RetryConfig) Option {
	return optionFunc(func(c *Config) { c.StoreRetry = r })
}

// DisableRetry makes every store call a single attempt.
func DisableRetry() Option {
	return optionFunc(func(c *Config) {
		c.StoreRetry = DefaultRetryConfig()
		c.StoreRetry.MaxAttempts = 1
	})
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *Config) { c.Logger = l })
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return optionFunc(func(c *Config) { c.Clock = now })
}
