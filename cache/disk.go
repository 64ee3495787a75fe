package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DiskCache stores entries as msgpack files under a directory, one file per
// key. Writes go through a temp file and rename so readers never observe a
// partial entry.
type DiskCache struct {
	dir string
}

// NewDiskCache creates the cache directory if needed.
func NewDiskCache(dir string) (*DiskCache, error) {
	if dir == "" {
		return nil, errors.New("cache: disk cache requires a directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create directory: %w", err)
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) path(key string) string {
	return filepath.Join(c.dir, key+".bin")
}

// Get loads the entry for key, or ErrMiss.
func (c *DiskCache) Get(_ context.Context, key string) (*Entry, error) {
	b, err := os.ReadFile(c.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache: read entry: %w", err)
	}
	return decodeEntry(b)
}

// Put stores the entry for key, replacing any previous value.
func (c *DiskCache) Put(_ context.Context, key string, e *Entry) error {
	b, err := e.encode()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(c.dir, key+".tmp*")
	if err != nil {
		return fmt.Errorf("cache: create temp file: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("cache: write entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cache: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cache: publish entry: %w", err)
	}
	return nil
}

// Clear removes every stored entry. Returns the number of entries removed.
func (c *DiskCache) Clear(_ context.Context) (int, error) {
	matches, err := filepath.Glob(filepath.Join(c.dir, "*.bin"))
	if err != nil {
		return 0, fmt.Errorf("cache: list entries: %w", err)
	}
	removed := 0
	for _, path := range matches {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("cache: remove entry: %w", err)
		}
		removed++
	}
	return removed, nil
}
