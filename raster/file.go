package raster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/argilla-geo/strata/iox"
	"github.com/argilla-geo/strata/npy"
	"github.com/argilla-geo/strata/retry"
	"github.com/argilla-geo/strata/stream"
	"github.com/argilla-geo/strata/types"
)

// RasterRequest fetches a mosaic and writes it to the configured sink as a
// .npy file plus a .json metadata sidecar.
type RasterRequest struct {
	Request

	// Nodata fills masked pixels in the output. When nil, masked pixels
	// are written as zero.
	Nodata *float64

	// OutfileBasename overrides the output name (default: first input id).
	OutfileBasename string
}

// Raster streams the response chunk by chunk, assembles a band-last image
// buffer, and writes "<basename>.npy" and "<basename>.json" to the sink.
// It returns the artifact location and the stream metadata. A failure after
// the array file has been written removes it, so the sink never holds an
// array without its sidecar.
func (c *Client) Raster(ctx context.Context, req RasterRequest) (string, types.StreamMetadata, error) {
	if err := req.validate(); err != nil {
		return "", nil, err
	}

	basename := req.OutfileBasename
	if basename == "" {
		basename = req.Inputs[0]
	}
	params := req.params()

	type rasterResult struct {
		location string
		meta     types.StreamMetadata
	}

	op := func(ctx context.Context, headers http.Header) (rasterResult, error) {
		c.metrics.IncRequestStarted()
		if n := headers.Get(retry.RetryCountHeader); n != "" && n != "0" {
			c.metrics.IncRetry()
			c.log.Info("retrying request", map[string]any{"retry_count": n})
			if req.OnRetry != nil {
				req.OnRetry()
			}
		}

		body, err := c.session.PostStream(ctx, "/npz", params, headers)
		if err != nil {
			return rasterResult{}, err
		}
		defer iox.DrainClose(body)

		cs, err := stream.NewChunkStream(body, req.Nodata, stream.Options{
			Progress: c.instrument(req.Progress),
			Logger:   c.log.Zap(),
		})
		if err != nil {
			c.metrics.IncDecodeError()
			return rasterResult{}, err
		}

		meta := cs.Meta()
		if _, ok := meta["id"]; !ok {
			meta["id"] = req.Inputs[0]
		}

		dims, dtype, data, err := c.assembleImage(cs, req.Nodata)
		if err != nil {
			c.metrics.IncDecodeError()
			return rasterResult{}, err
		}

		location, err := c.writeArtifacts(ctx, basename, dims, dtype, data, meta)
		if err != nil {
			return rasterResult{}, err
		}
		return rasterResult{location: location, meta: meta}, nil
	}

	result, err := retry.Do(ctx, c.retry, nil, op)
	if err != nil {
		c.metrics.IncRequestFailed()
		return "", nil, err
	}
	c.metrics.IncRequestCompleted()
	return result.location, result.meta, nil
}

// assembleImage drains the chunk stream into one band-last buffer of the
// declared full extent. Pixels not covered by any chunk stay at the nodata
// value (zero when nodata is nil).
func (c *Client) assembleImage(cs *stream.ChunkStream, nodata *float64) ([]int, types.DType, []byte, error) {
	am := cs.ArrayMeta()
	dtype, err := types.ParseDType(am.DType)
	if err != nil {
		return nil, 0, nil, err
	}
	full := am.Shape

	data := make([]byte, full.NumBytes(dtype))
	if nodata != nil && *nodata != 0 {
		es := dtype.Size()
		var elem [8]byte
		dtype.PutValue(elem[:], *nodata)
		for i := 0; i < full.Elems(); i++ {
			copy(data[i*es:(i+1)*es], elem[:es])
		}
	}

	for {
		tile, err := cs.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, nil, err
		}
		placeTile(data, full, dtype, tile)
	}

	dims := []int{full.Height, full.Width, full.Bands}
	if full.Bands == 1 {
		dims = dims[:2]
	}
	return dims, dtype, data, nil
}

// placeTile blits one band-last tile into the band-last image buffer at
// the tile's source offset.
func placeTile(dst []byte, full types.Shape, dtype types.DType, tile *stream.Tile) {
	es := dtype.Size()
	th, tw, tb := tile.Shape.Height, tile.Shape.Width, tile.Shape.Bands
	src := tile.Array.Data()

	if tile.Offset.Band == 0 && tb == full.Bands {
		// Tile spans all bands: each tile row is contiguous in both
		// buffers.
		rowBytes := tw * tb * es
		for y := 0; y < th; y++ {
			dstOff := (((tile.Offset.Y+y)*full.Width + tile.Offset.X) * full.Bands) * es
			copy(dst[dstOff:dstOff+rowBytes], src[y*rowBytes:(y+1)*rowBytes])
		}
		return
	}

	// Band-partial tile: copy per pixel into the band sub-range.
	pixBytes := tb * es
	for y := 0; y < th; y++ {
		for x := 0; x < tw; x++ {
			dstOff := (((tile.Offset.Y+y)*full.Width+tile.Offset.X+x)*full.Bands + tile.Offset.Band) * es
			srcOff := (y*tw + x) * pixBytes
			copy(dst[dstOff:dstOff+pixBytes], src[srcOff:srcOff+pixBytes])
		}
	}
}

// writeArtifacts publishes the array and its metadata sidecar. If the
// sidecar write fails the array file is removed.
func (c *Client) writeArtifacts(ctx context.Context, basename string, dims []int, dtype types.DType, data []byte, meta types.StreamMetadata) (string, error) {
	arrayName := basename + ".npy"
	sidecarName := basename + ".json"

	var buf bytes.Buffer
	if err := npy.Write(&buf, dims, dtype, data); err != nil {
		return "", &stream.Error{Kind: stream.KindFatal, Msg: "encode output array", Err: err}
	}
	if err := c.sink.Put(ctx, arrayName, "application/octet-stream", buf.Bytes()); err != nil {
		return "", &stream.Error{Kind: stream.KindFatal, Msg: "write output array", Err: err}
	}

	sidecar, err := json.Marshal(meta)
	if err == nil {
		err = c.sink.Put(ctx, sidecarName, "application/json", sidecar)
	}
	if err != nil {
		if rmErr := c.sink.Remove(ctx, arrayName); rmErr != nil {
			c.log.Warn("orphaned output array", map[string]any{"name": arrayName, "error": rmErr.Error()})
		}
		return "", &stream.Error{Kind: stream.KindFatal, Msg: fmt.Sprintf("write metadata sidecar %s", sidecarName), Err: err}
	}

	return c.sink.Location(arrayName), nil
}
