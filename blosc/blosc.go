// Package blosc implements the length-prefixed compressed-buffer encoding
// used by the raster streaming protocol.
//
// Every buffer is self-describing: a fixed 16-byte header of four
// little-endian uint32 fields (marker, uncompressed size, reserved,
// total size including the header) followed by the compressed payload.
// The field order and byte order are a wire contract with the server.
package blosc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

const (
	// HeaderSize is the fixed size of the buffer header in bytes.
	HeaderSize = 16

	// MaxBufferSize caps a single compressed buffer (256 MiB including
	// header). Anything larger is treated as header corruption rather
	// than attempted as an allocation.
	MaxBufferSize = 256 * 1024 * 1024
)

// Payload format markers carried in the first header field.
const (
	// MarkerLZ4 identifies an lz4 block-compressed payload.
	MarkerLZ4 uint32 = 0x315a4c42 // "BLZ1"
	// MarkerRaw identifies an uncompressed payload (stored when lz4
	// would not shrink the input).
	MarkerRaw uint32 = 0x30574152 // "RAW0"
)

// Sentinel errors for buffer decoding. Callers classify these into the
// transport error taxonomy with errors.Is.
var (
	// ErrIncompleteHeader indicates the stream ended inside the 16-byte header.
	ErrIncompleteHeader = errors.New("incomplete buffer header")
	// ErrTruncated indicates the stream ended inside the payload.
	ErrTruncated = errors.New("truncated buffer payload")
	// ErrSizeMismatch indicates the decompressed byte count disagrees with
	// the destination buffer size.
	ErrSizeMismatch = errors.New("decompressed size mismatch")
	// ErrCorrupt indicates an undecodable payload or nonsensical header.
	ErrCorrupt = errors.New("corrupt buffer")
)

// ReadBuffer reads one complete compressed buffer from r.
// It returns the declared uncompressed size and the full buffer bytes
// (header included), ready to hand to DecompressInto.
//
// The reader must deliver exactly compressed_size bytes; anything short is
// ErrIncompleteHeader (inside the header) or ErrTruncated (inside the body).
func ReadBuffer(r io.Reader) (rawSize int, buf []byte, err error) {
	header := make([]byte, HeaderSize)
	n, err := io.ReadFull(r, header)
	if err != nil {
		return 0, nil, fmt.Errorf("%w (got %d bytes, expected %d)", ErrIncompleteHeader, n, HeaderSize)
	}

	size := binary.LittleEndian.Uint32(header[4:8])
	compressedSize := binary.LittleEndian.Uint32(header[12:16])

	if compressedSize < HeaderSize || compressedSize > MaxBufferSize {
		return 0, nil, fmt.Errorf("%w: declared size %d out of range", ErrCorrupt, compressedSize)
	}

	body := make([]byte, compressedSize-HeaderSize)
	if n, err := io.ReadFull(r, body); err != nil {
		return 0, nil, fmt.Errorf("%w (got %d bytes, expected %d)", ErrTruncated, n, len(body))
	}

	return int(size), append(header, body...), nil
}

// DecompressInto decompresses a buffer returned by ReadBuffer directly into
// dst. The decompressed byte count must equal len(dst) exactly; a mismatch
// is ErrSizeMismatch and dst contents are unspecified.
func DecompressInto(buf, dst []byte) error {
	if len(buf) < HeaderSize {
		return fmt.Errorf("%w: buffer shorter than header", ErrCorrupt)
	}

	marker := binary.LittleEndian.Uint32(buf[0:4])
	size := binary.LittleEndian.Uint32(buf[4:8])
	payload := buf[HeaderSize:]

	if int(size) != len(dst) {
		return fmt.Errorf("%w (got %d, expected %d)", ErrSizeMismatch, size, len(dst))
	}

	switch marker {
	case MarkerRaw:
		if len(payload) != len(dst) {
			return fmt.Errorf("%w (got %d, expected %d)", ErrSizeMismatch, len(payload), len(dst))
		}
		copy(dst, payload)
		return nil

	case MarkerLZ4:
		n, err := lz4.UncompressBlock(payload, dst)
		if err != nil {
			return fmt.Errorf("%w: lz4: %v", ErrCorrupt, err)
		}
		if n != len(dst) {
			return fmt.Errorf("%w (got %d, expected %d)", ErrSizeMismatch, n, len(dst))
		}
		return nil

	default:
		return fmt.Errorf("%w: unknown format marker %#x", ErrCorrupt, marker)
	}
}

// Compress encodes src as a self-describing compressed buffer.
// Incompressible input is stored raw under MarkerRaw so the round trip is
// always exact. Used by tests, fixtures, and local tooling; the client
// itself only ever decodes.
func Compress(src []byte) []byte {
	var c lz4.Compressor

	marker := MarkerLZ4
	payload := make([]byte, lz4.CompressBlockBound(len(src)))
	n, err := c.CompressBlock(src, payload)
	if err != nil || n == 0 || n >= len(src) {
		// n == 0 means incompressible per the lz4 block API.
		marker = MarkerRaw
		payload = src
	} else {
		payload = payload[:n]
	}

	buf := make([]byte, HeaderSize+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], marker)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(src)))
	binary.LittleEndian.PutUint32(buf[8:12], 0) // reserved
	binary.LittleEndian.PutUint32(buf[12:16], uint32(HeaderSize+len(payload)))
	copy(buf[HeaderSize:], payload)
	return buf
}
