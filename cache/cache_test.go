package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/argilla-geo/strata/array"
	"github.com/argilla-geo/strata/types"
)

func testEntry(t *testing.T) *Entry {
	t.Helper()
	a, err := array.New(types.Shape{Bands: 1, Height: 2, Width: 2}, types.DTypeUint8)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := a.SetRegion(types.Offset{}, types.Shape{Bands: 1, Height: 2, Width: 2}, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("SetRegion failed: %v", err)
	}
	if err := a.SetMaskRegion(types.Offset{}, types.Shape{Bands: 1, Height: 2, Width: 2}, []byte{0, 0, 0, 1}); err != nil {
		t.Fatalf("SetMaskRegion failed: %v", err)
	}
	return NewEntry(a, types.StreamMetadata{"id": "scene-1"})
}

func checkRoundTrip(t *testing.T, got *Entry) {
	t.Helper()
	a, err := got.Array()
	if err != nil {
		t.Fatalf("Array failed: %v", err)
	}
	if a.DType() != types.DTypeUint8 {
		t.Errorf("dtype = %v", a.DType())
	}
	wantData := []byte{1, 2, 3, 4}
	for i, b := range wantData {
		if a.Data()[i] != b {
			t.Errorf("data[%d] = %d, want %d", i, a.Data()[i], b)
		}
	}
	if a.MaskedCount() != 1 {
		t.Errorf("MaskedCount = %d, want 1", a.MaskedCount())
	}
	if got.Metadata["id"] != "scene-1" {
		t.Errorf("metadata = %v", got.Metadata)
	}
}

func TestKey_Deterministic(t *testing.T) {
	a := Key("/npz", map[string]any{"ids": []string{"x"}, "ot": "UInt16"})
	b := Key("/npz", map[string]any{"ot": "UInt16", "ids": []string{"x"}})
	if a != b {
		t.Errorf("keys differ for equal params: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("key length = %d, want 64 hex chars", len(a))
	}

	c := Key("/npz", map[string]any{"ids": []string{"y"}, "ot": "UInt16"})
	if a == c {
		t.Error("different params produced the same key")
	}
	d := Key("/other", map[string]any{"ids": []string{"x"}, "ot": "UInt16"})
	if a == d {
		t.Error("different endpoints produced the same key")
	}
}

func TestDiskCache(t *testing.T) {
	c, err := NewDiskCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskCache failed: %v", err)
	}

	ctx := context.Background()
	key := Key("/npz", map[string]any{"ids": []string{"scene-1"}})

	if _, err := c.Get(ctx, key); !errors.Is(err, ErrMiss) {
		t.Fatalf("Get on empty cache = %v, want ErrMiss", err)
	}

	if err := c.Put(ctx, key, testEntry(t)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := c.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	checkRoundTrip(t, got)
}

func TestRedisCache(t *testing.T) {
	srv := miniredis.RunT(t)

	c, err := NewRedisCache(RedisConfig{URL: "redis://" + srv.Addr()})
	if err != nil {
		t.Fatalf("NewRedisCache failed: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	key := Key("/npz", map[string]any{"ids": []string{"scene-1"}})

	if _, err := c.Get(ctx, key); !errors.Is(err, ErrMiss) {
		t.Fatalf("Get on empty cache = %v, want ErrMiss", err)
	}

	if err := c.Put(ctx, key, testEntry(t)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := c.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	checkRoundTrip(t, got)

	// Entries expire after the TTL.
	srv.FastForward(DefaultTTL + time.Second)
	if _, err := c.Get(ctx, key); !errors.Is(err, ErrMiss) {
		t.Fatalf("Get after TTL = %v, want ErrMiss", err)
	}
}

func TestDiskCache_Clear(t *testing.T) {
	c, err := NewDiskCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskCache failed: %v", err)
	}

	ctx := context.Background()
	for _, id := range []string{"scene-1", "scene-2"} {
		key := Key("/npz", map[string]any{"ids": []string{id}})
		if err := c.Put(ctx, key, testEntry(t)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	removed, err := c.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	key := Key("/npz", map[string]any{"ids": []string{"scene-1"}})
	if _, err := c.Get(ctx, key); !errors.Is(err, ErrMiss) {
		t.Fatalf("Get after Clear = %v, want ErrMiss", err)
	}
}

func TestRedisCache_Clear(t *testing.T) {
	srv := miniredis.RunT(t)
	c, err := NewRedisCache(RedisConfig{URL: "redis://" + srv.Addr()})
	if err != nil {
		t.Fatalf("NewRedisCache failed: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	key := Key("/npz", map[string]any{"ids": []string{"scene-1"}})
	if err := c.Put(ctx, key, testEntry(t)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	// A foreign key outside the prefix must survive.
	srv.Set("other:key", "keep")

	removed, err := c.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := c.Get(ctx, key); !errors.Is(err, ErrMiss) {
		t.Fatalf("Get after Clear = %v, want ErrMiss", err)
	}
	if !srv.Exists("other:key") {
		t.Error("Clear removed a key outside the prefix")
	}
}

func TestNewRedisCache_Invalid(t *testing.T) {
	if _, err := NewRedisCache(RedisConfig{}); err == nil {
		t.Fatal("expected error for empty URL")
	}
	if _, err := NewRedisCache(RedisConfig{URL: "://bad"}); err == nil {
		t.Fatal("expected error for malformed URL")
	}
}
