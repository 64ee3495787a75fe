// Package stream decodes the raster service's chunked streaming responses.
//
// A response body alternates newline-delimited JSON metadata with
// compressed binary payloads:
//
//	line 1: StreamMetadata (open mapping, passed through)
//	line 2: ArrayMetadata  {shape, dtype, chunks}
//	N times:
//	  line:   ChunkHeader {shape, offset} or {error}
//	  binary: compressed data payload (blosc buffer)
//	  binary: compressed mask payload (blosc buffer)
//
// DecodeArray reassembles the chunks into one masked array (bulk mode);
// ChunkStream yields one array per chunk (streaming/mosaic mode).
package stream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/argilla-geo/strata/array"
	"github.com/argilla-geo/strata/blosc"
	"github.com/argilla-geo/strata/types"
)

// errChunkMetadata is the uniform message for the three chunk-metadata
// failure paths (undecodable bytes, empty line, malformed JSON). The
// service instance may have been killed without a transport error;
// however the line fails to parse, the problem is the same.
const errChunkMetadata = "did not receive complete chunk metadata"

// ProgressFunc receives the number of decompressed bytes each chunk
// contributed, in the manner of a progress-bar update.
type ProgressFunc func(bytesProcessed int)

// Options tunes a decode. The zero value is usable.
type Options struct {
	// Progress, if set, is called once per chunk with the decompressed
	// byte count (data + mask).
	Progress ProgressFunc
	// Logger receives per-chunk debug logging. Defaults to a nop logger.
	Logger *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}

// DecodeArray consumes an entire streaming response body and reassembles it
// into a masked array of the declared shape and dtype. The array is fully
// masked until chunks unmask it; a zero-chunk response returns a fully
// masked array. Errors abort the whole decode with no partial results.
func DecodeArray(r io.Reader, opts Options) (*array.Masked, types.StreamMetadata, error) {
	br := bufio.NewReader(r)
	logger := opts.logger()

	meta, arrayMeta, dtype, err := readPreamble(br)
	if err != nil {
		return nil, nil, err
	}

	out, err := array.New(arrayMeta.Shape, dtype)
	if err != nil {
		return nil, nil, &Error{Kind: KindFatal, Msg: "cannot allocate target array", Err: err}
	}

	logger.Debug("decoding array stream",
		zap.String("shape", arrayMeta.Shape.String()),
		zap.String("dtype", dtype.String()),
		zap.Int("chunks", arrayMeta.Chunks))

	for i := 0; i < arrayMeta.Chunks; i++ {
		header, err := readChunkHeader(br)
		if err != nil {
			return nil, nil, err
		}

		data, err := readChunkPayload(br, header.Shape.NumBytes(dtype))
		if err != nil {
			return nil, nil, err
		}
		if err := out.SetRegion(header.Offset, header.Shape, data); err != nil {
			return nil, nil, &Error{Kind: KindMetadataCorrupt, Msg: "chunk region outside target array", Err: err}
		}

		mask, err := readChunkPayload(br, header.Shape.Elems())
		if err != nil {
			return nil, nil, err
		}
		if err := out.SetMaskRegion(header.Offset, header.Shape, mask); err != nil {
			return nil, nil, &Error{Kind: KindMetadataCorrupt, Msg: "mask region outside target array", Err: err}
		}

		if opts.Progress != nil {
			opts.Progress(len(data) + len(mask))
		}
	}

	return out, meta, nil
}

// readPreamble reads and validates the two leading metadata lines.
func readPreamble(br *bufio.Reader) (types.StreamMetadata, types.ArrayMetadata, types.DType, error) {
	var meta types.StreamMetadata
	if err := readJSONLine(br, &meta, "did not receive complete stream metadata"); err != nil {
		return nil, types.ArrayMetadata{}, 0, err
	}
	// A JSON null unmarshals into a nil map without error; callers write
	// into the metadata, so it must be a real object.
	if meta == nil {
		return nil, types.ArrayMetadata{}, 0, &Error{
			Kind: KindMetadataCorrupt,
			Msg:  "did not receive complete stream metadata",
		}
	}

	var arrayMeta types.ArrayMetadata
	if err := readJSONLine(br, &arrayMeta, "did not receive complete array metadata"); err != nil {
		return nil, types.ArrayMetadata{}, 0, err
	}

	if !arrayMeta.Shape.Valid() || arrayMeta.Chunks < 0 {
		return nil, types.ArrayMetadata{}, 0, &Error{
			Kind: KindMetadataCorrupt,
			Msg:  "array metadata declares a negative extent or chunk count",
		}
	}

	// Reject unsupported dtypes outright rather than coercing; a
	// well-formed line with a dtype outside the supported set is a
	// contract violation, not a transient failure.
	dtype, err := types.ParseDType(arrayMeta.DType)
	if err != nil {
		return nil, types.ArrayMetadata{}, 0, &Error{Kind: KindClientError, Msg: "array metadata", Err: err}
	}

	sh := arrayMeta.Shape
	if _, err := array.CheckedElems([]int{sh.Bands, sh.Height, sh.Width}, dtype); err != nil {
		return nil, types.ArrayMetadata{}, 0, &Error{
			Kind: KindMetadataCorrupt,
			Msg:  "declared extent exceeds the allocation limit",
			Err:  err,
		}
	}

	return meta, arrayMeta, dtype, nil
}

// readChunkHeader reads one chunk metadata line. All failure paths surface
// as the same metadata-corruption error; a server-reported error field
// fails the stream with the server's message.
func readChunkHeader(br *bufio.Reader) (types.ChunkHeader, error) {
	var header types.ChunkHeader
	if err := readJSONLine(br, &header, errChunkMetadata); err != nil {
		return types.ChunkHeader{}, err
	}
	if header.Error != "" {
		return types.ChunkHeader{}, &Error{Kind: KindServerReported, Msg: header.Error}
	}
	if !header.Shape.Valid() {
		return types.ChunkHeader{}, &Error{Kind: KindMetadataCorrupt, Msg: errChunkMetadata}
	}
	return header, nil
}

// readChunkPayload reads one compressed buffer and decompresses it into a
// fresh scratch buffer of exactly expected bytes. The declared uncompressed
// size must match before any decompression is attempted (fail-fast, never
// silent truncation).
func readChunkPayload(br *bufio.Reader, expected int) ([]byte, error) {
	rawSize, buf, err := blosc.ReadBuffer(br)
	if err != nil {
		return nil, &Error{Kind: KindTransportIncomplete, Msg: "reading chunk payload", Err: err}
	}
	if rawSize != expected {
		return nil, &Error{
			Kind: KindTransportIncomplete,
			Msg:  fmt.Sprintf("did not receive complete chunk (got %d, expected %d)", rawSize, expected),
		}
	}

	scratch := make([]byte, expected)
	if err := blosc.DecompressInto(buf, scratch); err != nil {
		return nil, &Error{Kind: KindTransportIncomplete, Msg: "decompressing chunk payload", Err: err}
	}
	return scratch, nil
}

// readJSONLine reads one newline-delimited JSON value. Any failure (short
// read, empty line, malformed JSON) surfaces uniformly as a
// metadata-corruption error with the supplied message, since the
// underlying causes are symptomatically identical.
func readJSONLine(br *bufio.Reader, v any, msg string) error {
	line, err := br.ReadBytes('\n')
	if err != nil && (err != io.EOF || len(line) == 0) {
		return &Error{Kind: KindMetadataCorrupt, Msg: msg, Err: err}
	}

	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return &Error{Kind: KindMetadataCorrupt, Msg: msg}
	}
	if err := json.Unmarshal(line, v); err != nil {
		return &Error{Kind: KindMetadataCorrupt, Msg: msg, Err: err}
	}
	return nil
}
