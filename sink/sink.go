// Package sink abstracts where fetched raster artifacts land: a local
// directory or an S3 bucket.
package sink

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Sink stores named artifacts. Put replaces atomically; readers never see a
// partial artifact.
type Sink interface {
	// Put writes data under name. The name must not contain path
	// separators or "..".
	Put(ctx context.Context, name, contentType string, data []byte) error

	// Remove deletes the artifact if present. Removing an absent artifact
	// is not an error.
	Remove(ctx context.Context, name string) error

	// Location returns a human-readable destination for name (path or URL).
	Location(name string) string
}

// Open builds a sink from a destination string: "s3://bucket/prefix" for S3,
// anything else is treated as a local directory.
func Open(dest string) (Sink, error) {
	if dest == "" {
		return nil, errors.New("sink: empty destination")
	}
	if strings.HasPrefix(dest, "s3://") {
		bucket, prefix := ParseS3URL(dest)
		return NewS3Sink(S3Config{Bucket: bucket, Prefix: prefix})
	}
	return NewLocalSink(dest)
}

func validName(name string) error {
	if name == "" || strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return errors.New("sink: invalid artifact name " + name)
	}
	return nil
}

// StubSink records Put and Remove calls for testing.
type StubSink struct {
	mu    sync.Mutex
	Files map[string][]byte
}

// NewStubSink creates an empty in-memory sink.
func NewStubSink() *StubSink {
	return &StubSink{Files: make(map[string][]byte)}
}

func (s *StubSink) Put(_ context.Context, name, _ string, data []byte) error {
	if err := validName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Files[name] = append([]byte(nil), data...)
	return nil
}

func (s *StubSink) Remove(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Files, name)
	return nil
}

func (s *StubSink) Location(name string) string { return "stub://" + name }

var _ Sink = (*StubSink)(nil)
