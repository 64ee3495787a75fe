package raster

import (
	"context"
	"sync"

	"github.com/argilla-geo/strata/array"
	"github.com/argilla-geo/strata/stream"
	"github.com/argilla-geo/strata/types"
)

// StackRequest fetches several scenes with identical rasterization
// parameters and stacks them along a new outermost axis.
type StackRequest struct {
	// Scenes lists the stack levels in output order. Each inner slice is
	// mosaicked into one level.
	Scenes [][]string

	// Request carries the shared rasterization parameters. Its Inputs
	// field is ignored; Scenes supplies the identifiers.
	Request
}

// SceneIDs wraps single-image scenes for StackRequest.Scenes.
func SceneIDs(ids []string) [][]string {
	scenes := make([][]string, len(ids))
	for i, id := range ids {
		scenes[i] = []string{id}
	}
	return scenes
}

func (r *StackRequest) validate() error {
	if len(r.Scenes) == 0 {
		return stream.NewClientError("at least one scene is required")
	}
	// Every level must cover the same extent at the same resolution or
	// the stack dimensions cannot line up.
	if r.DLTile == "" {
		if r.Resolution == 0 && len(r.Dimensions) == 0 {
			return stream.NewClientError("must set `resolution` or `dimensions`")
		}
		if r.SRS == "" {
			return stream.NewClientError("must set `srs`")
		}
		if len(r.Bounds) == 0 {
			return stream.NewClientError("must set `bounds`")
		}
	}
	return validateOrder(r.Order)
}

// Stack fetches every scene, each through its own retried request-plus-
// decode, and assembles a 4-D array with the scene axis outermost:
// (scene, row, column, band) for order "image", (scene, band, row, column)
// for "gdal". Scenes are fetched by a bounded worker pool; assembly happens
// only after every worker has finished. The metadata slice is aligned with
// Scenes.
func (c *Client) Stack(ctx context.Context, req StackRequest) (*array.Masked, []types.StreamMetadata, error) {
	if err := req.validate(); err != nil {
		return nil, nil, err
	}

	n := len(req.Scenes)
	workers := c.maxWorkers
	if workers > n {
		workers = n
	}

	arrs := make([]*array.Masked, n)
	metas := make([]types.StreamMetadata, n)
	errs := make([]error, n)

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := range req.Scenes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			sceneReq := req.Request
			sceneReq.Inputs = req.Scenes[i]
			arrs[i], metas[i], errs[i] = c.NDArray(ctx, sceneReq)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, nil, err
		}
	}

	stack, err := array.NewStack(n, arrs[0])
	if err != nil {
		return nil, nil, err
	}
	for i, arr := range arrs {
		if err := stack.SetScene(i, arr); err != nil {
			return nil, nil, err
		}
		c.metrics.IncSceneAssembled()
	}
	return stack.Array(), metas, nil
}
