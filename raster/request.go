package raster

import (
	"github.com/argilla-geo/strata/stream"
	"github.com/argilla-geo/strata/types"
)

// resamplers accepted by the warp step, matching GDAL's resampling names.
var resamplers = map[string]bool{
	"near": true, "bilinear": true, "cubic": true, "cubicspline": true,
	"lanczos": true, "average": true, "mode": true,
	"max": true, "min": true, "med": true, "q1": true, "q3": true,
}

var processingLevels = map[string]bool{"toa": true, "surface": true}

// Request describes one mosaicked rasterization. Inputs lists the image
// identifiers to combine; all other fields tune the warp and output.
type Request struct {
	// Inputs is the list of image identifiers to mosaic (required).
	Inputs []string

	// Bands selects the bands to rasterize. If the last band is an alpha
	// band its zero pixels are treated as transparent in image overlaps.
	Bands []string

	// Scales gives per-band scaling as (srcMin, srcMax) or
	// (srcMin, srcMax, outMin, outMax) tuples, nil entries for no scaling.
	Scales [][]float64

	// DataType is the output element type (Byte, UInt16, Int16, UInt32,
	// Int32, Float32, Float64).
	DataType string

	// SRS is the output spatial reference system.
	SRS string

	// Resolution is the output resolution in SRS units. Incompatible with
	// Dimensions.
	Resolution float64

	// Dimensions is the output (width, height) in pixels. Incompatible
	// with Resolution.
	Dimensions []int

	// Cutline is a GeoJSON object or WKT string clipping the output.
	Cutline string

	// Bounds is (minX, minY, maxX, maxY) in the target SRS.
	Bounds []float64

	// BoundsSRS overrides the coordinate system Bounds is expressed in.
	BoundsSRS string

	// AlignPixels aligns output pixels to the target coordinate system.
	AlignPixels bool

	// Resampler is the warp resampling algorithm (near, bilinear, ...).
	Resampler string

	// Order is the returned axis order: "image" (row, column, band, the
	// default) or "gdal" (band, row, column).
	Order string

	// DLTile is a tile key that fixes resolution, bounds, and SRS. The
	// key is expanded server-side.
	DLTile string

	// ProcessingLevel adjusts the source data: "toa" or "surface".
	ProcessingLevel string

	// Unmasked drops the validity mask from the result.
	Unmasked bool

	// Progress receives decoded byte counts during streaming.
	Progress stream.ProgressFunc

	// OnRetry is called once per retried attempt.
	OnRetry func()

	// Extra carries pass-through parameters sent to the service verbatim.
	Extra map[string]any
}

func (r *Request) validate() error {
	if len(r.Inputs) == 0 {
		return stream.NewClientError("at least one input id is required")
	}
	if r.Resolution != 0 && len(r.Dimensions) > 0 {
		return stream.NewClientError("`resolution` and `dimensions` are mutually exclusive")
	}
	if len(r.Dimensions) != 0 && len(r.Dimensions) != 2 {
		return stream.NewClientError("`dimensions` must be (width, height), got %d values", len(r.Dimensions))
	}
	if len(r.Bounds) != 0 && len(r.Bounds) != 4 {
		return stream.NewClientError("`bounds` must be (minX, minY, maxX, maxY), got %d values", len(r.Bounds))
	}
	if err := validateOrder(r.Order); err != nil {
		return err
	}
	if r.Resampler != "" && !resamplers[r.Resampler] {
		return stream.NewClientError("unknown resampler %q", r.Resampler)
	}
	if r.ProcessingLevel != "" && !processingLevels[r.ProcessingLevel] {
		return stream.NewClientError("processing_level must be 'toa' or 'surface', got %q", r.ProcessingLevel)
	}
	if r.DataType != "" {
		if _, err := types.ParseDType(r.DataType); err != nil {
			return stream.NewClientError("unknown output data type %q", r.DataType)
		}
	}
	return nil
}

func validateOrder(order string) error {
	if order != "" && order != "image" && order != "gdal" {
		return stream.NewClientError("unknown order %q; should be one of 'image' or 'gdal'", order)
	}
	return nil
}

// params builds the request body for the /npz endpoint. Unset fields are
// omitted; the output format is always the chunked blosc stream.
func (r *Request) params() map[string]any {
	p := map[string]any{
		"ids": r.Inputs,
		"of":  "blosc",
	}
	if len(r.Bands) > 0 {
		p["bands"] = r.Bands
	}
	if len(r.Scales) > 0 {
		p["scales"] = r.Scales
	}
	if r.DataType != "" {
		p["ot"] = r.DataType
	}
	if r.SRS != "" {
		p["srs"] = r.SRS
	}
	if r.Resolution != 0 {
		p["resolution"] = r.Resolution
	}
	if r.Cutline != "" {
		p["shape"] = r.Cutline
	}
	if len(r.Bounds) > 0 {
		p["outputBounds"] = r.Bounds
	}
	if r.BoundsSRS != "" {
		p["outputBoundsSRS"] = r.BoundsSRS
	}
	if len(r.Dimensions) > 0 {
		p["outsize"] = r.Dimensions
	}
	if r.AlignPixels {
		p["targetAlignedPixels"] = true
	}
	if r.Resampler != "" {
		p["resampleAlg"] = r.Resampler
	}
	if r.ProcessingLevel != "" {
		p["processing_level"] = r.ProcessingLevel
	}
	if r.DLTile != "" {
		p["dltile"] = r.DLTile
	}
	for k, v := range r.Extra {
		p[k] = v
	}
	return p
}
