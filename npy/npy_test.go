package npy

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/argilla-geo/strata/types"
)

func TestWrite_Layout(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6}
	var buf bytes.Buffer
	if err := Write(&buf, []int{2, 3}, types.DTypeUint8, data); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	out := buf.Bytes()
	if !bytes.HasPrefix(out, []byte{0x93, 'N', 'U', 'M', 'P', 'Y', 1, 0}) {
		t.Fatalf("bad magic: % x", out[:8])
	}

	hlen := int(binary.LittleEndian.Uint16(out[8:10]))
	if (10+hlen)%64 != 0 {
		t.Errorf("header end %d not 64-aligned", 10+hlen)
	}

	header := string(out[10 : 10+hlen])
	if !strings.Contains(header, "'descr': '|u1'") {
		t.Errorf("header = %q, want |u1 descr", header)
	}
	if !strings.Contains(header, "'fortran_order': False") {
		t.Errorf("header = %q, want C order", header)
	}
	if !strings.Contains(header, "'shape': (2, 3)") {
		t.Errorf("header = %q, want shape (2, 3)", header)
	}
	if !strings.HasSuffix(header, "\n") {
		t.Error("header must end with newline")
	}

	if got := out[10+hlen:]; !bytes.Equal(got, data) {
		t.Errorf("data = % x, want % x", got, data)
	}
}

func TestWrite_SingleDimTrailingComma(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, []int{4}, types.DTypeUint8, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !strings.Contains(buf.String(), "'shape': (4,)") {
		t.Errorf("header missing one-tuple comma:\n%s", buf.String()[:128])
	}
}

func TestWrite_MultiByteDescr(t *testing.T) {
	cases := []struct {
		dtype types.DType
		want  string
	}{
		{types.DTypeUint16, "<u2"},
		{types.DTypeInt16, "<i2"},
		{types.DTypeUint32, "<u4"},
		{types.DTypeInt32, "<i4"},
		{types.DTypeFloat32, "<f4"},
		{types.DTypeFloat64, "<f8"},
	}
	for _, tc := range cases {
		var buf bytes.Buffer
		data := make([]byte, 2*tc.dtype.Size())
		if err := Write(&buf, []int{2}, tc.dtype, data); err != nil {
			t.Fatalf("%s: Write failed: %v", tc.dtype, err)
		}
		if !strings.Contains(buf.String(), "'descr': '"+tc.want+"'") {
			t.Errorf("%s: header missing descr %q", tc.dtype, tc.want)
		}
	}
}

func TestWrite_SizeMismatch(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, []int{2, 3}, types.DTypeUint16, make([]byte, 6))
	if err == nil {
		t.Fatal("expected error for short data")
	}
}
