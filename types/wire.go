package types

import (
	"encoding/json"
	"fmt"
)

// Shape is the extent of a 3-D raster region, ordered (bands, height, width).
type Shape struct {
	Bands  int
	Height int
	Width  int
}

// Offset is the origin of a chunk within its target array, ordered
// (band, row, column).
type Offset struct {
	Band int
	Y    int
	X    int
}

// Elems returns the number of elements covered by the shape.
func (s Shape) Elems() int {
	return s.Bands * s.Height * s.Width
}

// NumBytes returns the byte count of a buffer of this shape and dtype.
func (s Shape) NumBytes(dtype DType) int {
	return s.Elems() * dtype.Size()
}

// Valid reports whether all extents are non-negative.
func (s Shape) Valid() bool {
	return s.Bands >= 0 && s.Height >= 0 && s.Width >= 0
}

func (s Shape) String() string {
	return fmt.Sprintf("(%d, %d, %d)", s.Bands, s.Height, s.Width)
}

// UnmarshalJSON decodes the wire representation, a 3-element array.
func (s *Shape) UnmarshalJSON(data []byte) error {
	var dims []int
	if err := json.Unmarshal(data, &dims); err != nil {
		return err
	}
	if len(dims) != 3 {
		return fmt.Errorf("shape must have 3 dimensions, got %d", len(dims))
	}
	s.Bands, s.Height, s.Width = dims[0], dims[1], dims[2]
	return nil
}

// MarshalJSON encodes the shape as a 3-element array.
func (s Shape) MarshalJSON() ([]byte, error) {
	return json.Marshal([]int{s.Bands, s.Height, s.Width})
}

func (o Offset) String() string {
	return fmt.Sprintf("(%d, %d, %d)", o.Band, o.Y, o.X)
}

// UnmarshalJSON decodes the wire representation, a 3-element array.
func (o *Offset) UnmarshalJSON(data []byte) error {
	var dims []int
	if err := json.Unmarshal(data, &dims); err != nil {
		return err
	}
	if len(dims) != 3 {
		return fmt.Errorf("offset must have 3 dimensions, got %d", len(dims))
	}
	o.Band, o.Y, o.X = dims[0], dims[1], dims[2]
	return nil
}

// MarshalJSON encodes the offset as a 3-element array.
func (o Offset) MarshalJSON() ([]byte, error) {
	return json.Marshal([]int{o.Band, o.Y, o.X})
}

// StreamMetadata is the first JSON line of a streaming response: an
// open-ended mapping of descriptive fields (geotransform, coordinate
// system, per-image identifiers). The decoder passes it through unchanged;
// the client defaults an "id" field when the server omits one.
type StreamMetadata map[string]any

// ArrayMetadata is the second JSON line of a streaming response. It declares
// the target array the chunk sequence reassembles into.
type ArrayMetadata struct {
	// Shape is the target extent, ordered (bands, height, width).
	Shape Shape `json:"shape"`
	// DType is the numpy-style element type name.
	DType string `json:"dtype"`
	// Chunks is the number of chunk records to expect. Zero means the
	// target array stays fully masked.
	Chunks int `json:"chunks"`
}

// ChunkHeader is the JSON line preceding each chunk's binary payloads.
// Either Shape/Offset describe a sub-region, or Error carries a
// server-reported failure for the whole stream.
type ChunkHeader struct {
	Shape  Shape  `json:"shape"`
	Offset Offset `json:"offset"`
	Error  string `json:"error,omitempty"`
}
