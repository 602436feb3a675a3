package config

import (
	"fmt"
	"time"

	"github.com/minhvu/geofetch/internal/infra/redis"
	"github.com/minhvu/geofetch/internal/infra/storage/postgres"
	"github.com/minhvu/geofetch/internal/jobs/retry"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig    `yaml:"server"`
	Logging  LoggingConfig   `yaml:"logging"`
	Jobs     JobsConfig      `yaml:"jobs"`
	Retry    RetryConfig     `yaml:"retry"`
	Storage  StorageConfig   `yaml:"storage"`
	Redis    redis.Config    `yaml:"redis"`
	Database postgres.Config `yaml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// JobsConfig holds job execution settings.
type JobsConfig struct {
	ResultsDir   string   `yaml:"results_dir"`
	Retention    Duration `yaml:"retention"` // 0 = keep forever
	FetchTimeout Duration `yaml:"fetch_timeout"`
	CacheTTL     Duration `yaml:"cache_ttl"`
}

// RetryConfig holds the per-layer retry policy.
type RetryConfig struct {
	MaxAttempts int      `yaml:"max_attempts"`
	Strategy    string   `yaml:"strategy"`
	BaseDelay   Duration `yaml:"base_delay"`
	MaxDelay    Duration `yaml:"max_delay"`
	Jitter      *bool    `yaml:"jitter"` // nil = enabled
}

// Policy converts the config block into the executor's retry policy.
func (c RetryConfig) Policy() retry.Policy {
	jitter := true
	if c.Jitter != nil {
		jitter = *c.Jitter
	}
	return retry.Policy{
		MaxAttempts: c.MaxAttempts,
		Strategy:    retry.Strategy(c.Strategy),
		BaseDelay:   time.Duration(c.BaseDelay),
		MaxDelay:    time.Duration(c.MaxDelay),
		Jitter:      jitter,
	}
}

// StorageConfig selects the job store backend.
type StorageConfig struct {
	Backend string `yaml:"backend"` // file, postgres, memory
	Dir     string `yaml:"dir"`     // file backend only
}

// Duration parses human-readable durations ("30s", "24h") from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}
