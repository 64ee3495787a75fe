// Package raster is the client for the raster service: mosaicked scenes
// are fetched over a streaming HTTP protocol, decoded into masked arrays,
// and optionally stacked across scenes or written out as files.
//
// Clients are constructed explicitly from a Config; there is no implicit
// process-wide instance. All dependencies (auth, cache, sink, logging,
// metrics) are injected.
package raster

import (
	"errors"
	"net/http"
	"time"

	"github.com/argilla-geo/strata/cache"
	"github.com/argilla-geo/strata/log"
	"github.com/argilla-geo/strata/metrics"
	"github.com/argilla-geo/strata/retry"
	"github.com/argilla-geo/strata/service"
	"github.com/argilla-geo/strata/sink"
)

// DefaultMaxWorkers bounds the parallel scene fetches in Stack.
const DefaultMaxWorkers = 8

// Config assembles a Client's dependencies. URL is required; everything
// else has a working default.
type Config struct {
	// URL is the raster service root.
	URL string

	// Tokens supplies bearer tokens. Requests go out unauthenticated
	// when nil.
	Tokens service.TokenProvider

	// UserAgent overrides the default client identification.
	UserAgent string

	// DialTimeout and ResponseHeaderTimeout tune the transport; zero
	// values use the service defaults.
	DialTimeout           time.Duration
	ResponseHeaderTimeout time.Duration

	// Retry tunes the retry policy. The zero value uses the package
	// defaults (8 retries, 500ms base, 2x growth, 30s cap, full jitter).
	Retry retry.Config

	// MaxWorkers bounds parallel scene fetches in Stack (default 8).
	MaxWorkers int

	// Sink is where Raster writes artifacts (default: current directory).
	Sink sink.Sink

	// Cache is an optional decoded-response cache; nil disables caching.
	Cache cache.Cache

	// Logger receives structured client logs (default: discard).
	Logger *log.Logger

	// Metrics receives counters; nil disables collection.
	Metrics *metrics.Collector

	// HTTPClient overrides the transport, for tests.
	HTTPClient *http.Client
}

// Client talks to one raster service instance.
type Client struct {
	session    *service.Session
	retry      retry.Config
	maxWorkers int
	sink       sink.Sink
	cache      cache.Cache
	log        *log.Logger
	metrics    *metrics.Collector
}

// New builds a Client from cfg.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("raster: service URL is required")
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = DefaultMaxWorkers
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Nop()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "strata-go"
	}
	if cfg.Sink == nil {
		local, err := sink.NewLocalSink(".")
		if err != nil {
			return nil, err
		}
		cfg.Sink = local
	}

	session := service.New(service.Options{
		BaseURL:               cfg.URL,
		Tokens:                cfg.Tokens,
		UserAgent:             cfg.UserAgent,
		DialTimeout:           cfg.DialTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		HTTPClient:            cfg.HTTPClient,
	})

	return &Client{
		session:    session,
		retry:      cfg.Retry,
		maxWorkers: cfg.MaxWorkers,
		sink:       cfg.Sink,
		cache:      cfg.Cache,
		log:        cfg.Logger,
		metrics:    cfg.Metrics,
	}, nil
}

// Metrics returns the collector wired at construction, nil if none.
func (c *Client) Metrics() *metrics.Collector { return c.metrics }
