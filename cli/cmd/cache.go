package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/argilla-geo/strata/cli/render"
)

// clearer is satisfied by cache backends that can drop all their entries.
type clearer interface {
	Clear(ctx context.Context) (int, error)
}

// CacheResponse is the response for cache commands.
type CacheResponse struct {
	Backend string `json:"backend"`
	Removed int    `json:"removed"`
}

// CacheCommand returns the cache command group.
func CacheCommand() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Response cache maintenance",
		Subcommands: []*cli.Command{
			{
				Name:   "clear",
				Usage:  "Remove all cached responses",
				Flags:  []cli.Flag{ConfigFlag, FormatFlag},
				Action: cacheClearAction,
			},
		},
	}
}

func cacheClearAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.Cache.Backend == "" {
		return cli.Exit("no cache backend configured", 1)
	}

	respCache, err := buildCache(cfg)
	if err != nil {
		return err
	}
	cl, ok := respCache.(clearer)
	if !ok {
		return fmt.Errorf("cache backend %q does not support clearing", cfg.Cache.Backend)
	}

	ctx, cancel := signalContext()
	defer cancel()

	removed, err := cl.Clear(ctx)
	if err != nil {
		return err
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	return r.Render(CacheResponse{Backend: cfg.Cache.Backend, Removed: removed})
}
