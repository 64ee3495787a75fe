//nolint:revive // types is a common Go package naming convention
package types

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DType is a tagged enum of the numeric element types the wire protocol can
// carry. The decoder validates every chunk against the target array's dtype;
// there is no implicit widening or coercion across the chunk/target boundary.
type DType int

const (
	// DTypeInvalid is the zero value; it never appears on a decoded array.
	DTypeInvalid DType = iota
	// DTypeUint8 is an 8-bit unsigned integer ("Byte" in GDAL terms).
	DTypeUint8
	// DTypeUint16 is a 16-bit unsigned integer.
	DTypeUint16
	// DTypeInt16 is a 16-bit signed integer.
	DTypeInt16
	// DTypeUint32 is a 32-bit unsigned integer.
	DTypeUint32
	// DTypeInt32 is a 32-bit signed integer.
	DTypeInt32
	// DTypeFloat32 is a 32-bit IEEE float.
	DTypeFloat32
	// DTypeFloat64 is a 64-bit IEEE float.
	DTypeFloat64
)

// dtypeNames maps each DType to its wire name (numpy dtype spelling).
var dtypeNames = map[DType]string{
	DTypeUint8:   "uint8",
	DTypeUint16:  "uint16",
	DTypeInt16:   "int16",
	DTypeUint32:  "uint32",
	DTypeInt32:   "int32",
	DTypeFloat32: "float32",
	DTypeFloat64: "float64",
}

// dtypeAliases accepts the GDAL data type spellings used in request
// parameters alongside the numpy wire names.
var dtypeAliases = map[string]DType{
	"uint8":   DTypeUint8,
	"byte":    DTypeUint8,
	"uint16":  DTypeUint16,
	"int16":   DTypeInt16,
	"uint32":  DTypeUint32,
	"int32":   DTypeInt32,
	"float32": DTypeFloat32,
	"float64": DTypeFloat64,
}

// ParseDType resolves a wire or request dtype name. It accepts numpy names
// ("uint16") and GDAL names ("UInt16", "Byte") case-insensitively.
func ParseDType(name string) (DType, error) {
	if dt, ok := dtypeAliases[lowerASCII(name)]; ok {
		return dt, nil
	}
	return DTypeInvalid, fmt.Errorf("unsupported dtype %q", name)
}

// String returns the numpy-style wire name.
func (d DType) String() string {
	if name, ok := dtypeNames[d]; ok {
		return name
	}
	return fmt.Sprintf("dtype(%d)", int(d))
}

// Valid reports whether d is one of the supported element types.
func (d DType) Valid() bool {
	_, ok := dtypeNames[d]
	return ok
}

// Size returns the element size in bytes.
func (d DType) Size() int {
	switch d {
	case DTypeUint8:
		return 1
	case DTypeUint16, DTypeInt16:
		return 2
	case DTypeUint32, DTypeInt32, DTypeFloat32:
		return 4
	case DTypeFloat64:
		return 8
	default:
		return 0
	}
}

// PutValue encodes v as one element of d into buf (little-endian).
// Integer dtypes truncate toward zero. buf must be at least Size() bytes.
// Used for nodata fills; the wire payloads themselves are copied verbatim.
func (d DType) PutValue(buf []byte, v float64) {
	switch d {
	case DTypeUint8:
		buf[0] = uint8(v)
	case DTypeUint16:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	case DTypeInt16:
		binary.LittleEndian.PutUint16(buf, uint16(int16(v)))
	case DTypeUint32:
		binary.LittleEndian.PutUint32(buf, uint32(v))
	case DTypeInt32:
		binary.LittleEndian.PutUint32(buf, uint32(int32(v)))
	case DTypeFloat32:
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(v)))
	case DTypeFloat64:
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
	}
}

// lowerASCII lowercases ASCII letters without pulling in strings for one call.
func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}
