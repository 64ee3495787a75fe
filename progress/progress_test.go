package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0 B"},
		{100, "100 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1024 * 1024, "1.00 MB"},
		{256 * 1024 * 1024, "256.00 MB"},
		{1024 * 1024 * 1024, "1.00 GB"},
		{1024 * 1024 * 1024 * 1024, "1.00 TB"},
	}

	for _, tt := range tests {
		result := FormatBytes(tt.input)
		if result != tt.expected {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestReporterChunkTracking(t *testing.T) {
	reporter := NewReporter(Options{
		TotalSize:      1024,
		TotalChunks:    4,
		UpdateInterval: 100 * time.Millisecond,
	})

	reporter.BytesProcessed(256)
	reporter.BytesProcessed(256)
	reporter.BytesProcessed(128)
	reporter.RetryAttempted()

	if got := reporter.completedChunks.Load(); got != 3 {
		t.Errorf("completedChunks = %d, want 3", got)
	}
	if got := reporter.completedBytes.Load(); got != 640 {
		t.Errorf("completedBytes = %d, want 640", got)
	}
	if got := reporter.retries.Load(); got != 1 {
		t.Errorf("retries = %d, want 1", got)
	}
}

func TestReporterStartStop(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewReporter(Options{
		TotalSize:      1024 * 1024,
		TotalChunks:    4,
		Workers:        2,
		UpdateInterval: 10 * time.Millisecond,
		Output:         &buf,
		Label:          "sentinel-2:L1C",
	})

	reporter.Start()

	reporter.BytesProcessed(256 * 1024)
	reporter.BytesProcessed(256 * 1024)

	time.Sleep(50 * time.Millisecond)

	reporter.Stop()
	// Second Stop must be a no-op, not a double close.
	reporter.Stop()

	out := buf.String()
	if !strings.Contains(out, "sentinel-2:L1C") {
		t.Errorf("output missing label:\n%s", out)
	}
	if !strings.Contains(out, "[strata]") {
		t.Errorf("output missing prefix:\n%s", out)
	}
	if !strings.Contains(out, "Workers: 2") {
		t.Errorf("output missing worker count:\n%s", out)
	}
	if reporter.completedBytes.Load() != 512*1024 {
		t.Errorf("completedBytes = %d, want %d", reporter.completedBytes.Load(), 512*1024)
	}
}
