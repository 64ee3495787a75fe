package array

import (
	"bytes"
	"testing"

	"github.com/argilla-geo/strata/types"
)

func TestNew_FullyMasked(t *testing.T) {
	a, err := New(types.Shape{Bands: 2, Height: 3, Width: 4}, types.DTypeUint16)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if a.Elems() != 24 {
		t.Errorf("Elems = %d, want 24", a.Elems())
	}
	if a.NumBytes() != 48 {
		t.Errorf("NumBytes = %d, want 48", a.NumBytes())
	}
	if a.MaskedCount() != a.Elems() {
		t.Errorf("new array has %d masked elements, want all %d", a.MaskedCount(), a.Elems())
	}
}

func TestNewDims_AllocationLimit(t *testing.T) {
	cases := map[string][]int{
		"over the cap":       {1 << 16, 1 << 16, 1 << 16},
		"overflowing elems":  {1 << 31, 1 << 31, 1 << 31},
		"negative dimension": {2, -3, 4},
	}
	for name, dims := range cases {
		if _, err := NewDims(dims, types.DTypeUint8); err == nil {
			t.Errorf("%s: NewDims(%v) succeeded, want error", name, dims)
		}
	}

	// A zero dimension is a legal empty array, not an error.
	a, err := NewDims([]int{0, 4, 4}, types.DTypeUint8)
	if err != nil {
		t.Fatalf("NewDims with a zero dimension failed: %v", err)
	}
	if a.Elems() != 0 {
		t.Errorf("Elems = %d, want 0", a.Elems())
	}
}

func TestSetRegion(t *testing.T) {
	a, err := New(types.Shape{Bands: 1, Height: 4, Width: 4}, types.DTypeUint8)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// 2x2 block of ones at (0, 1, 1)
	sh := types.Shape{Bands: 1, Height: 2, Width: 2}
	off := types.Offset{Band: 0, Y: 1, X: 1}
	if err := a.SetRegion(off, sh, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("SetRegion failed: %v", err)
	}

	want := []byte{
		0, 0, 0, 0,
		0, 1, 2, 0,
		0, 3, 4, 0,
		0, 0, 0, 0,
	}
	if !bytes.Equal(a.Data(), want) {
		t.Errorf("data = %v, want %v", a.Data(), want)
	}

	if err := a.SetMaskRegion(off, sh, []byte{0, 0, 0, 0}); err != nil {
		t.Fatalf("SetMaskRegion failed: %v", err)
	}
	if got := a.MaskedCount(); got != 12 {
		t.Errorf("MaskedCount = %d, want 12", got)
	}
}

func TestSetRegion_OutOfBounds(t *testing.T) {
	a, err := New(types.Shape{Bands: 1, Height: 2, Width: 2}, types.DTypeUint8)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	sh := types.Shape{Bands: 1, Height: 2, Width: 2}
	off := types.Offset{Band: 0, Y: 1, X: 1}
	if err := a.SetRegion(off, sh, make([]byte, 4)); err == nil {
		t.Error("expected bounds error, got nil")
	}
}

func TestSetRegion_WrongSize(t *testing.T) {
	a, err := New(types.Shape{Bands: 1, Height: 2, Width: 2}, types.DTypeUint16)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	sh := types.Shape{Bands: 1, Height: 2, Width: 2}
	if err := a.SetRegion(types.Offset{}, sh, make([]byte, 4)); err == nil {
		t.Error("expected size error for 4 bytes into uint16 region, got nil")
	}
}

func TestFillMasked(t *testing.T) {
	a, err := New(types.Shape{Bands: 1, Height: 1, Width: 4}, types.DTypeUint16)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	sh := types.Shape{Bands: 1, Height: 1, Width: 4}
	if err := a.SetRegion(types.Offset{}, sh, []byte{1, 0, 2, 0, 3, 0, 4, 0}); err != nil {
		t.Fatalf("SetRegion failed: %v", err)
	}
	// Unmask elements 0 and 2 only.
	if err := a.SetMaskRegion(types.Offset{}, sh, []byte{0, 1, 0, 1}); err != nil {
		t.Fatalf("SetMaskRegion failed: %v", err)
	}

	a.FillMasked(9)

	want := []byte{1, 0, 9, 0, 3, 0, 9, 0}
	if !bytes.Equal(a.Data(), want) {
		t.Errorf("data = %v, want %v", a.Data(), want)
	}
	if a.MaskedCount() != 0 {
		t.Errorf("MaskedCount = %d after fill, want 0", a.MaskedCount())
	}
}

func TestTransposeBandLast(t *testing.T) {
	a, err := New(types.Shape{Bands: 2, Height: 2, Width: 2}, types.DTypeUint8)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	sh := types.Shape{Bands: 2, Height: 2, Width: 2}
	// band 0: [1 2; 3 4], band 1: [5 6; 7 8]
	if err := a.SetRegion(types.Offset{}, sh, []byte{1, 2, 3, 4, 5, 6, 7, 8}); err != nil {
		t.Fatalf("SetRegion failed: %v", err)
	}

	tr, err := a.TransposeBandLast()
	if err != nil {
		t.Fatalf("TransposeBandLast failed: %v", err)
	}
	if d := tr.Dims(); d[0] != 2 || d[1] != 2 || d[2] != 2 {
		t.Fatalf("dims = %v, want [2 2 2]", d)
	}

	// (y, x, band) layout
	want := []byte{1, 5, 2, 6, 3, 7, 4, 8}
	if !bytes.Equal(tr.Data(), want) {
		t.Errorf("data = %v, want %v", tr.Data(), want)
	}
}

func TestSqueezeBand(t *testing.T) {
	a, err := New(types.Shape{Bands: 1, Height: 2, Width: 3}, types.DTypeInt32)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	sq, err := a.SqueezeBand()
	if err != nil {
		t.Fatalf("SqueezeBand failed: %v", err)
	}
	if d := sq.Dims(); len(d) != 2 || d[0] != 2 || d[1] != 3 {
		t.Errorf("dims = %v, want [2 3]", d)
	}

	b, err := New(types.Shape{Bands: 2, Height: 2, Width: 3}, types.DTypeInt32)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := b.SqueezeBand(); err == nil {
		t.Error("expected error squeezing 2-band array, got nil")
	}
}

func TestStack(t *testing.T) {
	mk := func(fill byte) *Masked {
		a, err := New(types.Shape{Bands: 1, Height: 2, Width: 2}, types.DTypeUint8)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		sh := types.Shape{Bands: 1, Height: 2, Width: 2}
		data := bytes.Repeat([]byte{fill}, 4)
		if err := a.SetRegion(types.Offset{}, sh, data); err != nil {
			t.Fatalf("SetRegion failed: %v", err)
		}
		return a
	}

	s0, s1 := mk(10), mk(20)
	st, err := NewStack(2, s0)
	if err != nil {
		t.Fatalf("NewStack failed: %v", err)
	}
	if err := st.SetScene(1, s1); err != nil {
		t.Fatalf("SetScene(1) failed: %v", err)
	}
	if err := st.SetScene(0, s0); err != nil {
		t.Fatalf("SetScene(0) failed: %v", err)
	}

	arr := st.Array()
	if d := arr.Dims(); len(d) != 4 || d[0] != 2 {
		t.Fatalf("dims = %v, want 4-D with outer 2", d)
	}
	want := append(bytes.Repeat([]byte{10}, 4), bytes.Repeat([]byte{20}, 4)...)
	if !bytes.Equal(arr.Data(), want) {
		t.Errorf("data = %v, want %v", arr.Data(), want)
	}
}

func TestStack_Mismatch(t *testing.T) {
	a, err := New(types.Shape{Bands: 1, Height: 2, Width: 2}, types.DTypeUint8)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	st, err := NewStack(2, a)
	if err != nil {
		t.Fatalf("NewStack failed: %v", err)
	}

	b, err := New(types.Shape{Bands: 1, Height: 3, Width: 2}, types.DTypeUint8)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := st.SetScene(1, b); err == nil {
		t.Error("expected dims mismatch error, got nil")
	}
}
