package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/argilla-geo/strata/cli/render"
)

// TileCommand returns the tile command group: read-only tile grid lookups.
func TileCommand() *cli.Command {
	return &cli.Command{
		Name:  "tile",
		Usage: "Tile grid lookups",
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Look up a tile by key",
				ArgsUsage: "<key>",
				Flags:     CommonFlags(),
				Action:    tileGetAction,
			},
			{
				Name:  "from-latlon",
				Usage: "Find the tile covering a point",
				Flags: append(CommonFlags(),
					&cli.Float64Flag{Name: "lat", Usage: "Latitude", Required: true},
					&cli.Float64Flag{Name: "lon", Usage: "Longitude", Required: true},
					&cli.Float64Flag{Name: "resolution", Usage: "Tile resolution", Required: true},
					&cli.IntFlag{Name: "tilesize", Usage: "Tile size in pixels", Value: 256},
					&cli.IntFlag{Name: "pad", Usage: "Tile padding in pixels"},
				),
				Action: tileFromLatLonAction,
			},
			{
				Name:      "from-shape",
				Usage:     "Find the tiles covering a GeoJSON geometry",
				ArgsUsage: "<geometry.geojson>",
				Flags: append(CommonFlags(),
					&cli.Float64Flag{Name: "resolution", Usage: "Tile resolution", Required: true},
					&cli.IntFlag{Name: "tilesize", Usage: "Tile size in pixels", Value: 256},
					&cli.IntFlag{Name: "pad", Usage: "Tile padding in pixels"},
				),
				Action: tilesFromShapeAction,
			},
		},
	}
}

func tileGetAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("exactly one tile key is required", 1)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	client, err := buildClient(c, cfg, "")
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	tile, err := client.Tile(ctx, c.Args().First())
	if err != nil {
		return err
	}
	return renderTile(c, "tile", map[string]any(tile))
}

func tileFromLatLonAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	client, err := buildClient(c, cfg, "")
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	tile, err := client.TileFromLatLon(ctx,
		c.Float64("lat"), c.Float64("lon"), c.Float64("resolution"),
		c.Int("tilesize"), c.Int("pad"))
	if err != nil {
		return err
	}
	return renderTile(c, "tile", map[string]any(tile))
}

func tilesFromShapeAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("exactly one geometry file is required", 1)
	}

	data, err := os.ReadFile(c.Args().First())
	if err != nil {
		return fmt.Errorf("cannot read geometry file: %w", err)
	}
	var shape any
	if err := json.Unmarshal(data, &shape); err != nil {
		return fmt.Errorf("invalid GeoJSON: %w", err)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	client, err := buildClient(c, cfg, "")
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fc, err := client.TilesFromShape(ctx,
		c.Float64("resolution"), c.Int("tilesize"), c.Int("pad"), shape)
	if err != nil {
		return err
	}
	return renderTile(c, "tiles", fc)
}

func renderTile(c *cli.Context, viewType string, data any) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if c.Bool("tui") {
		return r.RenderTUI(viewType, data)
	}
	return r.Render(data)
}
