package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all service configuration.
type Config struct {
	Server    ServerConfig
	Lifecycle LifecycleConfig
	Recovery  RecoveryConfig
	Storage   StorageConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8090" yaml:"port"`
	Host string `envconfig:"HOST" default:"0.0.0.0" yaml:"host"`
}

// LifecycleConfig bounds the view lifecycle manager.
type LifecycleConfig struct {
	MaxActiveViews    int           `envconfig:"MAX_ACTIVE_VIEWS" default:"5" yaml:"max_active_views"`
	PoolSize          int           `envconfig:"VIEW_POOL_SIZE" default:"3" yaml:"pool_size"`
	PoolMaxAge        time.Duration `envconfig:"VIEW_POOL_MAX_AGE" default:"5m" yaml:"pool_max_age"`
	PoolSweepInterval time.Duration `envconfig:"VIEW_POOL_SWEEP_INTERVAL" default:"1m" yaml:"pool_sweep_interval"`
	MonitorInterval   time.Duration `envconfig:"STATUS_MONITOR_INTERVAL" default:"15s" yaml:"monitor_interval"`
	ProbeTimeout      time.Duration `envconfig:"PROBE_TIMEOUT" default:"5s" yaml:"probe_timeout"`
}

// RecoveryConfig bounds retry, reload and reconnect behavior.
type RecoveryConfig struct {
	MaxRetries         int           `envconfig:"RECOVERY_MAX_RETRIES" default:"3" yaml:"max_retries"`
	InitialDelay       time.Duration `envconfig:"RECOVERY_INITIAL_DELAY" default:"1s" yaml:"initial_delay"`
	MaxDelay           time.Duration `envconfig:"RECOVERY_MAX_DELAY" default:"30s" yaml:"max_delay"`
	ReloadWait         time.Duration `envconfig:"RECOVERY_RELOAD_WAIT" default:"30s" yaml:"reload_wait"`
	NudgeSettle        time.Duration `envconfig:"RECOVERY_NUDGE_SETTLE" default:"3s" yaml:"nudge_settle"`
	ReconnectInterval  time.Duration `envconfig:"RECONNECT_INTERVAL" default:"30s" yaml:"reconnect_interval"`
	ReconnectMaxTries  int           `envconfig:"RECONNECT_MAX_ATTEMPTS" default:"0" yaml:"reconnect_max_attempts"`
	BreakerThreshold   uint32        `envconfig:"PROBE_BREAKER_THRESHOLD" default:"5" yaml:"breaker_threshold"`
	BreakerOpenTimeout time.Duration `envconfig:"PROBE_BREAKER_TIMEOUT" default:"1m" yaml:"breaker_open_timeout"`
}

// StorageConfig locates per-account session data on disk.
type StorageConfig struct {
	Root string `envconfig:"DATA_ROOT" default:"./data" yaml:"root"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development"`
}

// RateLimitConfig holds API rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100" yaml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200" yaml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" yaml:"enabled"`
}

// Load loads configuration from environment variables, then overlays
// the YAML file named by CONFIG_FILE when set.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if file := os.Getenv("CONFIG_FILE"); file != "" {
		if err := overlayFile(&cfg, file); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8090", Host: "0.0.0.0"},
		Lifecycle: LifecycleConfig{
			MaxActiveViews:    5,
			PoolSize:          3,
			PoolMaxAge:        5 * time.Minute,
			PoolSweepInterval: time.Minute,
			MonitorInterval:   15 * time.Second,
			ProbeTimeout:      5 * time.Second,
		},
		Recovery: RecoveryConfig{
			MaxRetries:         3,
			InitialDelay:       time.Second,
			MaxDelay:           30 * time.Second,
			ReloadWait:         30 * time.Second,
			NudgeSettle:        3 * time.Second,
			ReconnectInterval:  30 * time.Second,
			BreakerThreshold:   5,
			BreakerOpenTimeout: time.Minute,
		},
		Storage:   StorageConfig{Root: "./data"},
		Logging:   LogConfig{Level: "info", Development: false},
		RateLimit: RateLimitConfig{RequestsPerSecond: 100, Burst: 200, Enabled: true},
	}
}

// Validate rejects configurations that cannot be enforced.
func (c *Config) Validate() error {
	if c.Lifecycle.MaxActiveViews < 1 {
		return fmt.Errorf("max active views must be at least 1, got %d", c.Lifecycle.MaxActiveViews)
	}
	if c.Lifecycle.PoolSize < 0 {
		return fmt.Errorf("pool size cannot be negative, got %d", c.Lifecycle.PoolSize)
	}
	if c.Storage.Root == "" {
		return fmt.Errorf("storage root is required")
	}
	return nil
}

func overlayFile(cfg *Config, file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", file, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", file, err)
	}
	return nil
}
