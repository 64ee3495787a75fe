package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/argilla-geo/strata/cli/render"
	"github.com/argilla-geo/strata/cli/tui"
	"github.com/argilla-geo/strata/progress"
	"github.com/argilla-geo/strata/raster"
	"github.com/argilla-geo/strata/types"
)

// FetchResponse is the response for the fetch command.
type FetchResponse struct {
	Location string `json:"location"`
	ID       string `json:"id"`
	Inputs   int    `json:"inputs"`
}

// FetchCommand returns the fetch command: mosaic scenes and write the
// result to the output destination as a .npy array plus a .json metadata
// sidecar.
func FetchCommand() *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Fetch a mosaicked raster and write it to the output destination",
		ArgsUsage: "<scene-id> [<scene-id>...]",
		Flags: append(CommonFlags(), rasterFlags(
			&cli.Float64Flag{
				Name:  "nodata",
				Usage: "Fill value for masked pixels",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Output destination: directory or s3:// URL",
			},
			&cli.StringFlag{
				Name:  "basename",
				Usage: "Output file basename (default: first scene id)",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Suppress progress output",
			},
		)...),
		Action: fetchAction,
	}
}

// rasterFlags returns the rasterization flags shared by fetch and stack.
func rasterFlags(extra ...cli.Flag) []cli.Flag {
	flags := []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "band",
			Usage: "Band to rasterize (repeatable)",
		},
		&cli.StringFlag{
			Name:  "ot",
			Usage: "Output data type: Byte, UInt16, Int16, UInt32, Int32, Float32, Float64",
		},
		&cli.StringFlag{
			Name:  "srs",
			Usage: "Output spatial reference system",
		},
		&cli.Float64Flag{
			Name:  "resolution",
			Usage: "Output resolution in SRS units",
		},
		&cli.IntSliceFlag{
			Name:  "dimensions",
			Usage: "Output size as width,height pixels",
		},
		&cli.Float64SliceFlag{
			Name:  "bounds",
			Usage: "Output bounds as minX,minY,maxX,maxY",
		},
		&cli.StringFlag{
			Name:  "bounds-srs",
			Usage: "Coordinate system the bounds are expressed in",
		},
		&cli.StringFlag{
			Name:  "cutline",
			Usage: "GeoJSON or WKT geometry clipping the output",
		},
		&cli.BoolFlag{
			Name:  "align-pixels",
			Usage: "Align output pixels to the target coordinate system",
		},
		&cli.StringFlag{
			Name:  "resampler",
			Usage: "Resampling algorithm (near, bilinear, cubic, ...)",
		},
		&cli.StringFlag{
			Name:  "dltile",
			Usage: "Tile key fixing resolution, bounds, and SRS",
		},
		&cli.StringFlag{
			Name:  "processing-level",
			Usage: "Source adjustment: toa or surface",
		},
	}
	return append(flags, extra...)
}

// requestFromFlags builds the shared rasterization parameters.
func requestFromFlags(c *cli.Context) raster.Request {
	return raster.Request{
		Inputs:          c.Args().Slice(),
		Bands:           c.StringSlice("band"),
		DataType:        c.String("ot"),
		SRS:             c.String("srs"),
		Resolution:      c.Float64("resolution"),
		Dimensions:      c.IntSlice("dimensions"),
		Bounds:          c.Float64Slice("bounds"),
		BoundsSRS:       c.String("bounds-srs"),
		Cutline:         c.String("cutline"),
		AlignPixels:     c.Bool("align-pixels"),
		Resampler:       c.String("resampler"),
		DLTile:          c.String("dltile"),
		ProcessingLevel: c.String("processing-level"),
	}
}

func fetchAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("at least one scene id is required", 1)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	client, err := buildClient(c, cfg, c.String("out"))
	if err != nil {
		return err
	}

	req := raster.RasterRequest{
		Request:         requestFromFlags(c),
		OutfileBasename: c.String("basename"),
	}
	if c.IsSet("nodata") {
		nodata := c.Float64("nodata")
		req.Nodata = &nodata
	}

	ctx, cancel := signalContext()
	defer cancel()

	var location string
	var meta types.StreamMetadata

	if c.Bool("tui") {
		err = tui.RunFetch(req.Inputs[0], func(report func(int)) (string, error) {
			tuiReq := req
			tuiReq.Progress = report
			var fetchErr error
			location, meta, fetchErr = client.Raster(ctx, tuiReq)
			return location, fetchErr
		})
	} else {
		var reporter *progress.Reporter
		if !c.Bool("quiet") {
			reporter = progress.NewReporter(progress.Options{Label: req.Inputs[0]})
			reporter.Start()
			req.Progress = reporter.BytesProcessed
			req.OnRetry = reporter.RetryAttempted
		}
		location, meta, err = client.Raster(ctx, req)
		if reporter != nil {
			reporter.Stop()
		}
	}
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	id, _ := meta["id"].(string)
	return r.Render(FetchResponse{
		Location: location,
		ID:       id,
		Inputs:   len(req.Inputs),
	})
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx, cancel
}
