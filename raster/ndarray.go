package raster

import (
	"context"
	"errors"
	"net/http"

	"github.com/argilla-geo/strata/array"
	"github.com/argilla-geo/strata/cache"
	"github.com/argilla-geo/strata/iox"
	"github.com/argilla-geo/strata/retry"
	"github.com/argilla-geo/strata/stream"
	"github.com/argilla-geo/strata/types"
)

type decoded struct {
	arr  *array.Masked
	meta types.StreamMetadata
}

// NDArray fetches a mosaic as a masked array plus its pass-through
// metadata. The request is validated before any network call; the whole
// request-plus-decode is retried on transient failures, each attempt with
// a fresh stream and target array.
//
// The returned array is laid out (row, column, band) for order "image"
// (the default) and (band, row, column) for order "gdal".
func (c *Client) NDArray(ctx context.Context, req Request) (*array.Masked, types.StreamMetadata, error) {
	if err := req.validate(); err != nil {
		return nil, nil, err
	}
	params := req.params()

	var key string
	if c.cache != nil {
		key = cache.Key("/npz", params)
		if entry, err := c.cache.Get(ctx, key); err == nil {
			arr, aerr := entry.Array()
			if aerr == nil {
				c.metrics.IncCacheHit()
				c.log.Debug("cache hit", map[string]any{"key": key})
				arr, aerr = finishArray(arr, req)
				if aerr != nil {
					return nil, nil, aerr
				}
				return arr, entry.Metadata, nil
			}
			c.log.Warn("cache entry unusable", map[string]any{"key": key, "error": aerr.Error()})
		} else if !errors.Is(err, cache.ErrMiss) {
			c.log.Warn("cache lookup failed", map[string]any{"key": key, "error": err.Error()})
		}
		c.metrics.IncCacheMiss()
	}

	result, err := c.fetchArray(ctx, params, req.Progress, req.OnRetry)
	if err != nil {
		return nil, nil, err
	}

	if _, ok := result.meta["id"]; !ok {
		result.meta["id"] = req.Inputs[0]
	}

	if c.cache != nil {
		if err := c.cache.Put(ctx, key, cache.NewEntry(result.arr, result.meta)); err != nil {
			c.log.Warn("cache store failed", map[string]any{"key": key, "error": err.Error()})
		}
	}

	arr, err := finishArray(result.arr, req)
	if err != nil {
		return nil, nil, err
	}
	return arr, result.meta, nil
}

// fetchArray runs the retried request-plus-decode loop and returns the
// array in wire order (band, row, column).
func (c *Client) fetchArray(ctx context.Context, params map[string]any, progress stream.ProgressFunc, onRetry func()) (decoded, error) {
	op := func(ctx context.Context, headers http.Header) (decoded, error) {
		c.metrics.IncRequestStarted()
		if n := headers.Get(retry.RetryCountHeader); n != "" && n != "0" {
			c.metrics.IncRetry()
			c.log.Info("retrying request", map[string]any{"retry_count": n})
			if onRetry != nil {
				onRetry()
			}
		}

		body, err := c.session.PostStream(ctx, "/npz", params, headers)
		if err != nil {
			return decoded{}, err
		}
		defer iox.DrainClose(body)

		arr, meta, err := stream.DecodeArray(body, stream.Options{
			Progress: c.instrument(progress),
			Logger:   c.log.Zap(),
		})
		if err != nil {
			c.metrics.IncDecodeError()
			return decoded{}, err
		}
		return decoded{arr: arr, meta: meta}, nil
	}

	result, err := retry.Do(ctx, c.retry, nil, op)
	if err != nil {
		c.metrics.IncRequestFailed()
		return decoded{}, err
	}
	c.metrics.IncRequestCompleted()
	return result, nil
}

// instrument layers byte metrics onto a caller progress callback.
func (c *Client) instrument(progress stream.ProgressFunc) stream.ProgressFunc {
	return func(n int) {
		c.metrics.AddChunks(1)
		c.metrics.AddBytes(int64(n))
		if progress != nil {
			progress(n)
		}
	}
}

// finishArray applies the result-shaping options: mask dropping and axis
// order.
func finishArray(arr *array.Masked, req Request) (*array.Masked, error) {
	if req.Unmasked {
		arr.DropMask()
	}
	if req.Order == "gdal" {
		return arr, nil
	}
	return arr.TransposeBandLast()
}
