// Package cache implements an optional response cache for decoded arrays,
// content-addressed by a digest of the request parameters.
//
// Entries hold the fully decoded array plus its stream metadata, so a hit
// skips both the network round trip and the decode. Two backends are
// provided: an on-disk directory and a shared Redis instance.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/argilla-geo/strata/array"
	"github.com/argilla-geo/strata/types"
)

// ErrMiss is returned by Get when the key is absent.
var ErrMiss = errors.New("cache: miss")

// Cache stores decoded responses keyed by request digest.
type Cache interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Put(ctx context.Context, key string, e *Entry) error
}

// Key produces a deterministic digest from endpoint + request parameters.
// Go's json.Marshal sorts map keys, so semantically equal parameter maps
// always hash the same.
func Key(endpoint string, params map[string]any) string {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		// Should not happen for map[string]any; degrade to endpoint-only.
		paramsJSON = []byte("{}")
	}

	h := sha256.New()
	h.Write([]byte(endpoint))
	h.Write([]byte{0x00}) // separator
	h.Write(paramsJSON)
	return hex.EncodeToString(h.Sum(nil))
}

// Entry is the stored form of one decoded response.
type Entry struct {
	Metadata types.StreamMetadata `msgpack:"metadata"`
	Dims     []int                `msgpack:"dims"`
	DType    string               `msgpack:"dtype"`
	Data     []byte               `msgpack:"data"`
	Mask     []byte               `msgpack:"mask"`
}

// NewEntry captures an array and its metadata for storage.
func NewEntry(a *array.Masked, meta types.StreamMetadata) *Entry {
	return &Entry{
		Metadata: meta,
		Dims:     a.Dims(),
		DType:    a.DType().String(),
		Data:     a.Data(),
		Mask:     a.Mask(),
	}
}

// Array rebuilds the decoded array from the stored buffers.
func (e *Entry) Array() (*array.Masked, error) {
	dtype, err := types.ParseDType(e.DType)
	if err != nil {
		return nil, fmt.Errorf("cache: stored entry has unusable dtype: %w", err)
	}
	return array.FromBuffers(e.Dims, dtype, e.Data, e.Mask)
}

func (e *Entry) encode() ([]byte, error) {
	b, err := msgpack.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("cache: encode entry: %w", err)
	}
	return b, nil
}

func decodeEntry(b []byte) (*Entry, error) {
	var e Entry
	if err := msgpack.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("cache: decode entry: %w", err)
	}
	return &e, nil
}
