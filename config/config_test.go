package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "strata.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}

func assertEqual(t *testing.T, field, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("expected %s=%q, got %q", field, want, got)
	}
}

func TestLoad_FullConfig(t *testing.T) {
	yaml := `url: https://raster.example.com
token_env: STRATA_TOKEN
user_agent: strata-ci
max_workers: 4

dial_timeout: 5s
response_header_timeout: 2m

retry:
  max_retries: 3
  base_delay: 250ms
  multiplier: 2.0
  jitter: 0.5
  max_delay: 10s

cache:
  backend: redis
  redis_url: redis://localhost:6379/0
  ttl: 1h
  key_prefix: "ci:raster:"

output:
  destination: s3://my-bucket/rasters
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	assertEqual(t, "url", cfg.URL, "https://raster.example.com")
	assertEqual(t, "token_env", cfg.TokenEnv, "STRATA_TOKEN")
	assertEqual(t, "user_agent", cfg.UserAgent, "strata-ci")
	if cfg.MaxWorkers != 4 {
		t.Errorf("expected max_workers=4, got %d", cfg.MaxWorkers)
	}
	if cfg.DialTimeout.Duration != 5*time.Second {
		t.Errorf("expected dial_timeout=5s, got %v", cfg.DialTimeout.Duration)
	}
	if cfg.ResponseHeaderTimeout.Duration != 2*time.Minute {
		t.Errorf("expected response_header_timeout=2m, got %v", cfg.ResponseHeaderTimeout.Duration)
	}

	// Retry
	if cfg.Retry.MaxRetries != 3 {
		t.Errorf("expected retry.max_retries=3, got %d", cfg.Retry.MaxRetries)
	}
	if cfg.Retry.BaseDelay.Duration != 250*time.Millisecond {
		t.Errorf("expected retry.base_delay=250ms, got %v", cfg.Retry.BaseDelay.Duration)
	}
	if cfg.Retry.Jitter != 0.5 {
		t.Errorf("expected retry.jitter=0.5, got %v", cfg.Retry.Jitter)
	}

	// Cache
	assertEqual(t, "cache.backend", cfg.Cache.Backend, "redis")
	assertEqual(t, "cache.redis_url", cfg.Cache.RedisURL, "redis://localhost:6379/0")
	assertEqual(t, "cache.key_prefix", cfg.Cache.KeyPrefix, "ci:raster:")
	if cfg.Cache.TTL.Duration != time.Hour {
		t.Errorf("expected cache.ttl=1h, got %v", cfg.Cache.TTL.Duration)
	}

	// Output
	assertEqual(t, "output.destination", cfg.Output.Destination, "s3://my-bucket/rasters")
}

func TestLoad_EmptyConfig(t *testing.T) {
	path := writeTemp(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.URL != "" {
		t.Errorf("expected empty url, got %q", cfg.URL)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/strata.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTemp(t, "{{invalid yaml")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_RASTER_URL", "https://expanded.example.com")

	yaml := `url: ${TEST_RASTER_URL}`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "url", cfg.URL, "https://expanded.example.com")
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeTemp(t, "dial_timeout: soon")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestValidate_UnknownCacheBackend(t *testing.T) {
	path := writeTemp(t, "cache:\n  backend: memcached\n")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown cache backend")
	}
}

func TestValidate_RedisRequiresURL(t *testing.T) {
	path := writeTemp(t, "cache:\n  backend: redis\n")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for redis backend without redis_url")
	}
}
