package sink

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func TestLocalSink_PutRemove(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalSink(dir)
	if err != nil {
		t.Fatalf("NewLocalSink failed: %v", err)
	}

	ctx := context.Background()
	if err := s.Put(ctx, "scene.npy", "application/octet-stream", []byte("payload")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "scene.npy"))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("content = %q", got)
	}
	if s.Location("scene.npy") != filepath.Join(dir, "scene.npy") {
		t.Errorf("Location = %q", s.Location("scene.npy"))
	}

	if err := s.Remove(ctx, "scene.npy"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "scene.npy")); !os.IsNotExist(err) {
		t.Error("artifact still present after Remove")
	}

	// Removing an absent artifact is fine.
	if err := s.Remove(ctx, "scene.npy"); err != nil {
		t.Errorf("Remove of absent artifact = %v", err)
	}
}

func TestLocalSink_RejectsPathTraversal(t *testing.T) {
	s, err := NewLocalSink(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalSink failed: %v", err)
	}
	for _, name := range []string{"", "../escape", "a/b", `a\b`} {
		if err := s.Put(context.Background(), name, "", []byte("x")); err == nil {
			t.Errorf("Put(%q) succeeded, want error", name)
		}
	}
}

type fakeS3 struct {
	objects map[string][]byte
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Bucket+"/"+*in.Key] = b
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, *in.Bucket+"/"+*in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Sink_PutRemove(t *testing.T) {
	fake := &fakeS3{objects: make(map[string][]byte)}
	s, err := NewS3SinkWithClient(S3Config{Bucket: "rasters", Prefix: "fetched"}, fake)
	if err != nil {
		t.Fatalf("NewS3SinkWithClient failed: %v", err)
	}

	ctx := context.Background()
	if err := s.Put(ctx, "scene.npy", "application/octet-stream", []byte("payload")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if !bytes.Equal(fake.objects["rasters/fetched/scene.npy"], []byte("payload")) {
		t.Errorf("objects = %v", fake.objects)
	}
	if s.Location("scene.npy") != "s3://rasters/fetched/scene.npy" {
		t.Errorf("Location = %q", s.Location("scene.npy"))
	}

	if err := s.Remove(ctx, "scene.npy"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if len(fake.objects) != 0 {
		t.Errorf("objects not removed: %v", fake.objects)
	}
}

func TestParseS3URL(t *testing.T) {
	cases := []struct {
		in             string
		bucket, prefix string
	}{
		{"s3://bucket", "bucket", ""},
		{"s3://bucket/prefix", "bucket", "prefix"},
		{"s3://bucket/a/b/", "bucket", "a/b"},
	}
	for _, tc := range cases {
		b, p := ParseS3URL(tc.in)
		if b != tc.bucket || p != tc.prefix {
			t.Errorf("ParseS3URL(%q) = %q, %q; want %q, %q", tc.in, b, p, tc.bucket, tc.prefix)
		}
	}
}

func TestOpen_Local(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, ok := s.(*LocalSink); !ok {
		t.Errorf("Open returned %T, want *LocalSink", s)
	}
}
