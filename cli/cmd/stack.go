package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/argilla-geo/strata/cli/render"
	"github.com/argilla-geo/strata/npy"
	"github.com/argilla-geo/strata/progress"
	"github.com/argilla-geo/strata/raster"
	"github.com/argilla-geo/strata/sink"
)

// StackResponse is the response for the stack command.
type StackResponse struct {
	Location string `json:"location"`
	Scenes   int    `json:"scenes"`
	Shape    []int  `json:"shape"`
	DType    string `json:"dtype"`
}

// StackCommand returns the stack command: fetch several scenes with shared
// rasterization parameters and write the stacked 4-D array.
func StackCommand() *cli.Command {
	return &cli.Command{
		Name:      "stack",
		Usage:     "Fetch multiple scenes and write them as one stacked array",
		ArgsUsage: "<scene-id> <scene-id> [<scene-id>...]",
		Flags: append(CommonFlags(), rasterFlags(
			&cli.StringFlag{
				Name:  "order",
				Usage: "Axis order: image (default) or gdal",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Output destination: directory or s3:// URL",
			},
			&cli.StringFlag{
				Name:  "basename",
				Usage: "Output file basename",
				Value: "stack",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Suppress progress output",
			},
		)...),
		Action: stackAction,
	}
}

func stackAction(c *cli.Context) error {
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

	dest := c.String("out")
	if dest == "" {
		dest = cfg.Output.Destination
	}
	if dest == "" {
		dest = "."
	}
	artifactSink, err := sink.Open(dest)
	if err != nil {
		return err
	}

	shared := requestFromFlags(c)
	shared.Order = c.String("order")
	req := raster.StackRequest{
		Scenes:  raster.SceneIDs(c.Args().Slice()),
		Request: shared,
	}

	var reporter *progress.Reporter
	if !c.Bool("quiet") {
		workers := cfg.MaxWorkers
		if workers <= 0 {
			workers = raster.DefaultMaxWorkers
		}
		if workers > len(req.Scenes) {
			workers = len(req.Scenes)
		}
		reporter = progress.NewReporter(progress.Options{
			Label:   fmt.Sprintf("%d scenes", len(req.Scenes)),
			Workers: workers,
		})
		reporter.Start()
		req.Progress = reporter.BytesProcessed
		req.OnRetry = reporter.RetryAttempted
	}

	ctx, cancel := signalContext()
	defer cancel()

	arr, metas, err := client.Stack(ctx, req)
	if reporter != nil {
		reporter.Stop()
	}
	if err != nil {
		return fmt.Errorf("stack failed: %w", err)
	}

	basename := c.String("basename")
	var buf bytes.Buffer
	if err := npy.Write(&buf, arr.Dims(), arr.DType(), arr.Data()); err != nil {
		return err
	}
	if err := artifactSink.Put(ctx, basename+".npy", "application/octet-stream", buf.Bytes()); err != nil {
		return err
	}
	sidecar, err := json.Marshal(metas)
	if err == nil {
		err = artifactSink.Put(ctx, basename+".json", "application/json", sidecar)
	}
	if err != nil {
		return err
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	return r.Render(StackResponse{
		Location: artifactSink.Location(basename + ".npy"),
		Scenes:   len(metas),
		Shape:    arr.Dims(),
		DType:    arr.DType().String(),
	})
}
