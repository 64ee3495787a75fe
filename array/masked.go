// Package array implements masked numeric arrays used as decode targets.
//
// A masked array pairs a flat row-major data buffer with a one-byte-per
// element validity mask (1 = masked, no meaningful data). Arrays are
// allocated fully masked and populated region by region as chunks arrive.
package array

import (
	"fmt"

	"github.com/argilla-geo/strata/types"
)

// MaxBytes caps a single array's data buffer (4 GiB). Extents beyond the
// cap are rejected rather than attempted as allocations, so a nonsensical
// declared shape cannot overflow the element count.
const MaxBytes = 4 << 30

// Masked is a masked numeric array with arbitrary row-major dimensions.
// Element bytes are little-endian. The zero value is not usable; construct
// with New or NewDims.
type Masked struct {
	dims  []int
	dtype types.DType
	data  []byte
	mask  []byte
}

// New allocates a fully masked 3-D array of the given shape and dtype,
// dimension order (bands, height, width).
func New(shape types.Shape, dtype types.DType) (*Masked, error) {
	if !shape.Valid() {
		return nil, fmt.Errorf("invalid shape %v", shape)
	}
	return NewDims([]int{shape.Bands, shape.Height, shape.Width}, dtype)
}

// NewDims allocates a fully masked array with arbitrary dimensions.
func NewDims(dims []int, dtype types.DType) (*Masked, error) {
	if !dtype.Valid() {
		return nil, fmt.Errorf("invalid dtype %v", dtype)
	}
	elems, err := CheckedElems(dims, dtype)
	if err != nil {
		return nil, err
	}

	a := &Masked{
		dims:  append([]int(nil), dims...),
		dtype: dtype,
		data:  make([]byte, elems*dtype.Size()),
		mask:  make([]byte, elems),
	}
	for i := range a.mask {
		a.mask[i] = 1
	}
	return a, nil
}

// FromBuffers wraps existing data and mask buffers without copying. Both
// buffers must match the dimensions exactly; a nil mask yields a fully
// valid array.
func FromBuffers(dims []int, dtype types.DType, data, mask []byte) (*Masked, error) {
	if !dtype.Valid() {
		return nil, fmt.Errorf("invalid dtype %v", dtype)
	}
	elems, err := CheckedElems(dims, dtype)
	if err != nil {
		return nil, err
	}
	if len(data) != elems*dtype.Size() {
		return nil, fmt.Errorf("data is %d bytes, dims need %d", len(data), elems*dtype.Size())
	}
	if mask == nil {
		mask = make([]byte, elems)
	} else if len(mask) != elems {
		return nil, fmt.Errorf("mask is %d bytes, dims need %d", len(mask), elems)
	}
	return &Masked{
		dims:  append([]int(nil), dims...),
		dtype: dtype,
		data:  data,
		mask:  mask,
	}, nil
}

// CheckedElems returns the element count for dims, rejecting negative
// dimensions and extents whose data buffer would exceed MaxBytes. The
// multiplication is guarded so hostile dimensions cannot overflow.
func CheckedElems(dims []int, dtype types.DType) (int, error) {
	maxElems := MaxBytes / dtype.Size()
	elems := 1
	for _, d := range dims {
		if d < 0 {
			return 0, fmt.Errorf("negative dimension %d", d)
		}
		if d > 0 && elems > maxElems/d {
			return 0, fmt.Errorf("dims %v exceed the %d byte allocation limit", dims, MaxBytes)
		}
		elems *= d
	}
	return elems, nil
}

// Dims returns the array dimensions. The slice must not be mutated.
func (a *Masked) Dims() []int { return a.dims }

// DType returns the element type.
func (a *Masked) DType() types.DType { return a.dtype }

// Data returns the backing data buffer. The slice must not be mutated
// except through SetRegion.
func (a *Masked) Data() []byte { return a.data }

// Mask returns the backing mask buffer (1 = masked).
func (a *Masked) Mask() []byte { return a.mask }

// Elems returns the element count.
func (a *Masked) Elems() int { return len(a.mask) }

// NumBytes returns the data buffer size in bytes.
func (a *Masked) NumBytes() int { return len(a.data) }

// MaskedCount returns the number of masked elements.
func (a *Masked) MaskedCount() int {
	n := 0
	for _, m := range a.mask {
		if m != 0 {
			n++
		}
	}
	return n
}

// shape3 returns the array's extents as a Shape. Region operations only
// apply to 3-D arrays in protocol order (bands, height, width).
func (a *Masked) shape3() (types.Shape, error) {
	if len(a.dims) != 3 {
		return types.Shape{}, fmt.Errorf("region write requires a 3-D array, have %d dims", len(a.dims))
	}
	return types.Shape{Bands: a.dims[0], Height: a.dims[1], Width: a.dims[2]}, nil
}

// checkRegion validates that a sub-region lies within the array bounds.
func (a *Masked) checkRegion(off types.Offset, sh types.Shape) (types.Shape, error) {
	full, err := a.shape3()
	if err != nil {
		return types.Shape{}, err
	}
	if !sh.Valid() || off.Band < 0 || off.Y < 0 || off.X < 0 ||
		off.Band+sh.Bands > full.Bands ||
		off.Y+sh.Height > full.Height ||
		off.X+sh.Width > full.Width {
		return types.Shape{}, fmt.Errorf("region %v at %v exceeds array bounds %v", sh, off, full)
	}
	return full, nil
}

// SetRegion blits src into the data buffer at the given 3-D offset.
// src must hold exactly sh.NumBytes(dtype) bytes in row-major order.
func (a *Masked) SetRegion(off types.Offset, sh types.Shape, src []byte) error {
	full, err := a.checkRegion(off, sh)
	if err != nil {
		return err
	}
	if len(src) != sh.NumBytes(a.dtype) {
		return fmt.Errorf("region data is %d bytes, expected %d", len(src), sh.NumBytes(a.dtype))
	}
	blit(a.data, src, full, off, sh, a.dtype.Size())
	return nil
}

// SetMaskRegion blits src into the mask buffer at the given 3-D offset.
// src must hold exactly sh.Elems() bytes (one per element, 1 = masked).
func (a *Masked) SetMaskRegion(off types.Offset, sh types.Shape, src []byte) error {
	full, err := a.checkRegion(off, sh)
	if err != nil {
		return err
	}
	if len(src) != sh.Elems() {
		return fmt.Errorf("region mask is %d bytes, expected %d", len(src), sh.Elems())
	}
	blit(a.mask, src, full, off, sh, 1)
	return nil
}

// blit copies a row-major sub-block into dst row by row.
func blit(dst, src []byte, full types.Shape, off types.Offset, sh types.Shape, elemSize int) {
	rowBytes := sh.Width * elemSize
	for b := 0; b < sh.Bands; b++ {
		for y := 0; y < sh.Height; y++ {
			dstOff := (((off.Band+b)*full.Height+off.Y+y)*full.Width + off.X) * elemSize
			srcOff := ((b*sh.Height + y) * sh.Width) * elemSize
			copy(dst[dstOff:dstOff+rowBytes], src[srcOff:srcOff+rowBytes])
		}
	}
}

// FillMasked writes value into every masked element, then clears the mask.
// This is the nodata substitution used by the streaming (mosaic) mode.
func (a *Masked) FillMasked(value float64) {
	es := a.dtype.Size()
	var elem [8]byte
	a.dtype.PutValue(elem[:], value)
	for i, m := range a.mask {
		if m != 0 {
			copy(a.data[i*es:(i+1)*es], elem[:es])
			a.mask[i] = 0
		}
	}
}

// DropMask marks every element valid. Used for the unmasked result variant;
// the data buffer is untouched.
func (a *Masked) DropMask() {
	for i := range a.mask {
		a.mask[i] = 0
	}
}

// SqueezeBand removes a size-1 leading band axis without moving data.
func (a *Masked) SqueezeBand() (*Masked, error) {
	if len(a.dims) != 3 || a.dims[0] != 1 {
		return nil, fmt.Errorf("cannot squeeze band axis of dims %v", a.dims)
	}
	return &Masked{
		dims:  []int{a.dims[1], a.dims[2]},
		dtype: a.dtype,
		data:  a.data,
		mask:  a.mask,
	}, nil
}

// TransposeBandLast reorders a (bands, height, width) array into
// (height, width, bands) layout, the "image" ordering.
func (a *Masked) TransposeBandLast() (*Masked, error) {
	sh, err := a.shape3()
	if err != nil {
		return nil, err
	}

	out := &Masked{
		dims:  []int{sh.Height, sh.Width, sh.Bands},
		dtype: a.dtype,
		data:  make([]byte, len(a.data)),
		mask:  make([]byte, len(a.mask)),
	}

	es := a.dtype.Size()
	for b := 0; b < sh.Bands; b++ {
		for y := 0; y < sh.Height; y++ {
			for x := 0; x < sh.Width; x++ {
				src := (b*sh.Height+y)*sh.Width + x
				dst := (y*sh.Width+x)*sh.Bands + b
				copy(out.data[dst*es:(dst+1)*es], a.data[src*es:(src+1)*es])
				out.mask[dst] = a.mask[src]
			}
		}
	}
	return out, nil
}
