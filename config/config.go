package config

import (
	"fmt"
	"time"
)

// Config represents a strata.yaml configuration file.
// All values are optional and act as defaults for strata command flags.
// CLI flags always override config values.
type Config struct {
	URL        string `yaml:"url"`
	Token      string `yaml:"token"`
	TokenEnv   string `yaml:"token_env"`
	UserAgent  string `yaml:"user_agent"`
	MaxWorkers int    `yaml:"max_workers"`

	DialTimeout           Duration `yaml:"dial_timeout"`
	ResponseHeaderTimeout Duration `yaml:"response_header_timeout"`

	Retry  RetryConfig  `yaml:"retry"`
	Cache  CacheConfig  `yaml:"cache"`
	Output OutputConfig `yaml:"output"`
}

// RetryConfig holds retry policy defaults from the config file.
type RetryConfig struct {
	MaxRetries int      `yaml:"max_retries"`
	BaseDelay  Duration `yaml:"base_delay"`
	Multiplier float64  `yaml:"multiplier"`
	Jitter     float64  `yaml:"jitter"`
	MaxDelay   Duration `yaml:"max_delay"`
}

// CacheConfig holds response cache defaults from the config file.
// Backend is "disk" or "redis"; an empty backend disables caching.
type CacheConfig struct {
	Backend   string   `yaml:"backend"`
	Path      string   `yaml:"path"`
	RedisURL  string   `yaml:"redis_url"`
	TTL       Duration `yaml:"ttl"`
	KeyPrefix string   `yaml:"key_prefix"`
}

// OutputConfig holds artifact output defaults from the config file.
// Destination is a local directory or an s3:// URL.
type OutputConfig struct {
	Destination string `yaml:"destination"`
}

// Validate checks values that would otherwise fail deep inside a request.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "", "disk", "redis":
	default:
		return fmt.Errorf("unknown cache backend %q (want disk or redis)", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisURL == "" {
		return fmt.Errorf("cache backend redis requires redis_url")
	}
	if c.MaxWorkers < 0 {
		return fmt.Errorf("max_workers must not be negative")
	}
	return nil
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}
