package stream

import (
	"bufio"
	"fmt"
	"io"

	"github.com/argilla-geo/strata/array"
	"github.com/argilla-geo/strata/blosc"
	"github.com/argilla-geo/strata/types"
)

// Tile is one decoded chunk in streaming mode. Array is laid out band-last:
// squeezed to (height, width) for single-band chunks, transposed to
// (height, width, bands) otherwise. Offset and Shape give the tile's
// placement in the source (bands, height, width) coordinate system so a
// file writer can position it.
type Tile struct {
	Array  *array.Masked
	Offset types.Offset
	Shape  types.Shape
}

// ChunkStream yields one array per chunk instead of accumulating into a
// shared target. The sequence is finite, forward-only, and not restartable;
// consuming it exhausts the underlying stream.
type ChunkStream struct {
	br        *bufio.Reader
	meta      types.StreamMetadata
	arrayMeta types.ArrayMetadata
	dtype     types.DType
	nodata    *float64
	progress  ProgressFunc

	remaining int
	err       error // sticky
}

// NewChunkStream reads the two metadata lines and prepares per-chunk
// iteration. When nodata is non-nil, each tile's mask payload is applied
// and masked elements are filled with the nodata value; when nil, the mask
// payload is still consumed (the framing requires it) but not applied.
func NewChunkStream(r io.Reader, nodata *float64, opts Options) (*ChunkStream, error) {
	br := bufio.NewReader(r)
	meta, arrayMeta, dtype, err := readPreamble(br)
	if err != nil {
		return nil, err
	}

	return &ChunkStream{
		br:        br,
		meta:      meta,
		arrayMeta: arrayMeta,
		dtype:     dtype,
		nodata:    nodata,
		progress:  opts.Progress,
		remaining: arrayMeta.Chunks,
	}, nil
}

// Meta returns the pass-through stream metadata.
func (cs *ChunkStream) Meta() types.StreamMetadata { return cs.meta }

// ArrayMeta returns the declared target array metadata.
func (cs *ChunkStream) ArrayMeta() types.ArrayMetadata { return cs.arrayMeta }

// Next returns the next tile, or io.EOF once all declared chunks have been
// consumed. After any other error the stream is dead and Next keeps
// returning that error.
func (cs *ChunkStream) Next() (*Tile, error) {
	if cs.err != nil {
		return nil, cs.err
	}
	if cs.remaining == 0 {
		return nil, io.EOF
	}

	tile, err := cs.next()
	if err != nil {
		cs.err = err
		return nil, err
	}
	cs.remaining--
	return tile, nil
}

func (cs *ChunkStream) next() (*Tile, error) {
	header, err := readChunkHeader(cs.br)
	if err != nil {
		return nil, err
	}

	full := cs.arrayMeta.Shape
	if header.Offset.Band < 0 || header.Offset.Y < 0 || header.Offset.X < 0 ||
		header.Offset.Band+header.Shape.Bands > full.Bands ||
		header.Offset.Y+header.Shape.Height > full.Height ||
		header.Offset.X+header.Shape.Width > full.Width {
		return nil, &Error{
			Kind: KindMetadataCorrupt,
			Msg:  fmt.Sprintf("chunk region %v at %v outside declared extent %v", header.Shape, header.Offset, full),
		}
	}

	chunk, err := array.New(header.Shape, cs.dtype)
	if err != nil {
		return nil, &Error{Kind: KindMetadataCorrupt, Msg: errChunkMetadata, Err: err}
	}

	data, err := readChunkPayload(cs.br, header.Shape.NumBytes(cs.dtype))
	if err != nil {
		return nil, err
	}
	if err := chunk.SetRegion(types.Offset{}, header.Shape, data); err != nil {
		return nil, &Error{Kind: KindFatal, Msg: "chunk self-assignment", Err: err}
	}

	processed := len(data)

	if cs.nodata != nil {
		mask, err := readChunkPayload(cs.br, header.Shape.Elems())
		if err != nil {
			return nil, err
		}
		processed += len(mask)
		if err := chunk.SetMaskRegion(types.Offset{}, header.Shape, mask); err != nil {
			return nil, &Error{Kind: KindFatal, Msg: "chunk mask self-assignment", Err: err}
		}
		chunk.FillMasked(*cs.nodata)
	} else {
		// Consume the mask buffer to keep framing intact.
		_, buf, err := blosc.ReadBuffer(cs.br)
		if err != nil {
			return nil, &Error{Kind: KindTransportIncomplete, Msg: "reading chunk mask payload", Err: err}
		}
		processed += len(buf)
		chunk.DropMask()
	}

	var out *array.Masked
	if header.Shape.Bands == 1 {
		out, err = chunk.SqueezeBand()
	} else {
		out, err = chunk.TransposeBandLast()
	}
	if err != nil {
		return nil, &Error{Kind: KindFatal, Msg: "chunk layout transform", Err: err}
	}

	if cs.progress != nil {
		cs.progress(processed)
	}

	return &Tile{Array: out, Offset: header.Offset, Shape: header.Shape}, nil
}
