// Package npy writes arrays in the NumPy .npy format, version 1.0.
//
// Only writing is supported; the client produces files for downstream
// consumption and never reads them back.
package npy

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/argilla-geo/strata/types"
)

var magic = []byte{0x93, 'N', 'U', 'M', 'P', 'Y', 1, 0}

// descr maps element types to NumPy dtype descriptors. Multi-byte types
// are written little-endian, matching the wire payloads.
var descr = map[types.DType]string{
	types.DTypeUint8:   "|u1",
	types.DTypeUint16:  "<u2",
	types.DTypeInt16:   "<i2",
	types.DTypeUint32:  "<u4",
	types.DTypeInt32:   "<i4",
	types.DTypeFloat32: "<f4",
	types.DTypeFloat64: "<f8",
}

// Write emits a .npy v1.0 file: magic, header dict, then the raw data
// buffer in C order. data length must match the shape and dtype exactly.
func Write(w io.Writer, dims []int, dtype types.DType, data []byte) error {
	d, ok := descr[dtype]
	if !ok {
		return fmt.Errorf("npy: unsupported dtype %s", dtype)
	}

	elems := 1
	for _, n := range dims {
		if n < 0 {
			return fmt.Errorf("npy: negative dimension %d", n)
		}
		elems *= n
	}
	if want := elems * dtype.Size(); len(data) != want {
		return fmt.Errorf("npy: data is %d bytes, shape needs %d", len(data), want)
	}

	header := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': %s, }", d, shapeTuple(dims))

	// Total header size (magic + length field + dict + padding) must be a
	// multiple of 64, and the dict must end with a newline.
	unpadded := len(magic) + 2 + len(header) + 1
	padding := (64 - unpadded%64) % 64
	header += strings.Repeat(" ", padding) + "\n"

	if _, err := w.Write(magic); err != nil {
		return fmt.Errorf("npy: write magic: %w", err)
	}
	var hlen [2]byte
	binary.LittleEndian.PutUint16(hlen[:], uint16(len(header)))
	if _, err := w.Write(hlen[:]); err != nil {
		return fmt.Errorf("npy: write header length: %w", err)
	}
	if _, err := io.WriteString(w, header); err != nil {
		return fmt.Errorf("npy: write header: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("npy: write data: %w", err)
	}
	return nil
}

// shapeTuple renders dims as a Python tuple literal. A one-element tuple
// keeps its trailing comma.
func shapeTuple(dims []int) string {
	var b strings.Builder
	b.WriteByte('(')
	for i, n := range dims {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d", n)
	}
	if len(dims) == 1 {
		b.WriteByte(',')
	}
	b.WriteByte(')')
	return b.String()
}
