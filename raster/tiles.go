package raster

import (
	"context"
	"fmt"
	"net/url"

	"github.com/argilla-geo/strata/stream"
)

// TileFeature is a DLTile GeoJSON feature as returned by the tiling
// service. The decoder passes it through; callers typically read
// properties.key, properties.outputBounds, properties.resolution, and
// properties.cs_code.
type TileFeature map[string]any

// Key extracts the tile key from the feature properties, empty if absent.
func (f TileFeature) Key() string {
	props, ok := f["properties"].(map[string]any)
	if !ok {
		return ""
	}
	key, _ := props["key"].(string)
	return key
}

// Tile resolves a DLTile key to its GeoJSON feature.
func (c *Client) Tile(ctx context.Context, key string) (TileFeature, error) {
	if key == "" {
		return nil, stream.NewClientError("tile key is required")
	}
	var out TileFeature
	if err := c.session.GetJSON(ctx, "/dlkeys/"+url.PathEscape(key), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TileFromLatLon returns the DLTile feature covering a point.
// tilesize is the count of valid pixels per tile, pad the ghost pixels
// shared between neighbors.
func (c *Client) TileFromLatLon(ctx context.Context, lat, lon, resolution float64, tilesize, pad int) (TileFeature, error) {
	q := url.Values{}
	q.Set("resolution", fmt.Sprintf("%g", resolution))
	q.Set("tilesize", fmt.Sprintf("%d", tilesize))
	q.Set("pad", fmt.Sprintf("%d", pad))
	path := fmt.Sprintf("/dlkeys/from_latlon/%f/%f?%s", lat, lon, q.Encode())

	var out TileFeature
	if err := c.session.GetJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TilesFromShape returns a GeoJSON FeatureCollection of the DLTiles
// intersecting a GeoJSON geometry.
func (c *Client) TilesFromShape(ctx context.Context, resolution float64, tilesize, pad int, shape any) (map[string]any, error) {
	if shape == nil {
		return nil, stream.NewClientError("a shape geometry is required")
	}
	params := map[string]any{
		"resolution": resolution,
		"tilesize":   tilesize,
		"pad":        pad,
		"shape":      shape,
	}
	var out map[string]any
	if err := c.session.PostJSON(ctx, "/dlkeys/from_shape", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}
