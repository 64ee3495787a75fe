package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/argilla-geo/strata/cache"
	"github.com/argilla-geo/strata/config"
	"github.com/argilla-geo/strata/log"
	"github.com/argilla-geo/strata/metrics"
	"github.com/argilla-geo/strata/raster"
	"github.com/argilla-geo/strata/retry"
	"github.com/argilla-geo/strata/service"
	"github.com/argilla-geo/strata/sink"
	"github.com/argilla-geo/strata/types"
)

// loadConfig reads the --config file when given, otherwise returns an
// empty config so flag values stand alone.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		return &config.Config{}, nil
	}
	return config.Load(path)
}

// buildClient assembles a raster client from the config file and flags.
// Flags override config values.
func buildClient(c *cli.Context, cfg *config.Config, out string) (*raster.Client, error) {
	url := c.String("url")
	if url == "" {
		url = cfg.URL
	}
	if url == "" {
		return nil, fmt.Errorf("service URL required (--url or config url)")
	}

	tokens, err := buildTokens(c, cfg)
	if err != nil {
		return nil, err
	}

	respCache, err := buildCache(cfg)
	if err != nil {
		return nil, err
	}

	dest := out
	if dest == "" {
		dest = cfg.Output.Destination
	}
	var artifactSink sink.Sink
	if dest != "" {
		artifactSink, err = sink.Open(dest)
		if err != nil {
			return nil, err
		}
	}

	return raster.New(raster.Config{
		URL:                   url,
		Tokens:                tokens,
		UserAgent:             cfg.UserAgent,
		DialTimeout:           cfg.DialTimeout.Duration,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout.Duration,
		Retry: retry.Config{
			MaxRetries: cfg.Retry.MaxRetries,
			BaseDelay:  cfg.Retry.BaseDelay.Duration,
			Multiplier: cfg.Retry.Multiplier,
			Jitter:     cfg.Retry.Jitter,
			MaxDelay:   cfg.Retry.MaxDelay.Duration,
		},
		MaxWorkers: cfg.MaxWorkers,
		Sink:       artifactSink,
		Cache:      respCache,
		Logger:     log.NewLogger("strata", types.Version),
		Metrics:    metrics.NewCollector("strata", url),
	})
}

func buildTokens(c *cli.Context, cfg *config.Config) (service.TokenProvider, error) {
	if env := c.String("token-env"); env != "" {
		return service.EnvToken(env), nil
	}
	if cfg.TokenEnv != "" {
		return service.EnvToken(cfg.TokenEnv), nil
	}
	if cfg.Token != "" {
		return service.StaticToken(cfg.Token), nil
	}
	return nil, nil
}

func buildCache(cfg *config.Config) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case "":
		return nil, nil
	case "disk":
		path := cfg.Cache.Path
		if path == "" {
			path = ".strata-cache"
		}
		return cache.NewDiskCache(path)
	case "redis":
		return cache.NewRedisCache(cache.RedisConfig{
			URL:       cfg.Cache.RedisURL,
			TTL:       cfg.Cache.TTL.Duration,
			KeyPrefix: cfg.Cache.KeyPrefix,
		})
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}
