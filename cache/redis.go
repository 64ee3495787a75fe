package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a cached response stays fresh in Redis.
const DefaultTTL = 24 * time.Hour

// DefaultKeyPrefix namespaces strata entries in a shared instance.
const DefaultKeyPrefix = "strata:raster:"

// RedisConfig configures the Redis cache backend.
type RedisConfig struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// TTL is the entry expiry (default 24h).
	TTL time.Duration
	// KeyPrefix namespaces keys (default "strata:raster:").
	KeyPrefix string
}

// RedisCache stores entries in a shared Redis instance, useful when several
// processes fetch the same scenes.
type RedisCache struct {
	config RedisConfig
	client *goredis.Client
}

// NewRedisCache creates a Redis cache from the given config.
// Returns an error if the URL is empty or invalid.
func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	if cfg.URL == "" {
		return nil, errors.New("cache: redis cache requires a URL")
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("cache: invalid redis URL: %w", err)
	}

	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}

	return &RedisCache{
		config: cfg,
		client: goredis.NewClient(opts),
	}, nil
}

// Get loads the entry for key, or ErrMiss.
func (c *RedisCache) Get(ctx context.Context, key string) (*Entry, error) {
	b, err := c.client.Get(ctx, c.config.KeyPrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache: redis get: %w", err)
	}
	return decodeEntry(b)
}

// Put stores the entry for key with the configured TTL.
func (c *RedisCache) Put(ctx context.Context, key string, e *Entry) error {
	b, err := e.encode()
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.config.KeyPrefix+key, b, c.config.TTL).Err(); err != nil {
		return fmt.Errorf("cache: redis set: %w", err)
	}
	return nil
}

// Clear removes every entry under the configured prefix. Returns the number
// of entries removed. Only prefixed keys are touched; the instance may be
// shared.
func (c *RedisCache) Clear(ctx context.Context) (int, error) {
	removed := 0
	iter := c.client.Scan(ctx, 0, c.config.KeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return removed, fmt.Errorf("cache: redis del: %w", err)
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("cache: redis scan: %w", err)
	}
	return removed, nil
}

// Close releases the underlying Redis connections.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
