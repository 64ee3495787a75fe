// Package progress provides progress reporting for streaming raster fetches.
//
// The reporter prints human-readable progress to a writer, including
// decoded byte counts, chunk completion, throughput, and ETA when the
// expected total is known. Counter updates are lock-free so the streaming
// decode path can report per-chunk without contention.
//
// # Usage
//
//	reporter := progress.NewReporter(progress.Options{
//	    TotalChunks: meta.Chunks,
//	    TotalSize:   shape.NumBytes(dtype) * 2,
//	    Output:      os.Stderr,
//	})
//
//	reporter.Start()
//	defer reporter.Stop()
//
//	// BytesProcessed matches the decode callback shape.
//	req.Progress = reporter.BytesProcessed
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Options configures the progress reporter.
type Options struct {
	// TotalSize is the expected decompressed byte count, zero if unknown.
	TotalSize int64

	// TotalChunks is the chunk count announced by the stream preamble.
	TotalChunks int

	// Workers is the number of parallel scene fetches (stack mode).
	Workers int

	// Output is where to write progress output.
	// Default: os.Stderr
	Output io.Writer

	// UpdateInterval is how often to update the progress display.
	// Default: 500ms
	UpdateInterval time.Duration

	// Label identifies the fetch (product id or output filename).
	Label string
}

// Reporter outputs human-readable progress information.
type Reporter struct {
	opts Options

	mu              sync.Mutex
	completedBytes  atomic.Int64
	completedChunks atomic.Int32
	retries         atomic.Int32
	startTime       time.Time
	lastUpdate      time.Time
	lastBytes       int64
	stopCh          chan struct{}
	doneCh          chan struct{}
	started         bool
	stopped         bool
}

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.UpdateInterval == 0 {
		opts.UpdateInterval = 500 * time.Millisecond
	}

	return &Reporter{
		opts:   opts,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins outputting progress information.
func (r *Reporter) Start() {
	r.mu.Lock()
	r.started = true
	r.mu.Unlock()

	r.startTime = time.Now()
	r.lastUpdate = r.startTime

	fmt.Fprintf(r.opts.Output, "[strata] Fetching: %s\n", r.opts.Label)
	if r.opts.Workers > 0 {
		fmt.Fprintf(r.opts.Output, "[strata] Workers: %d\n", r.opts.Workers)
	}
	if r.opts.TotalSize > 0 {
		fmt.Fprintf(r.opts.Output, "[strata] Expected: %s in %d chunks\n",
			formatBytes(r.opts.TotalSize),
			r.opts.TotalChunks,
		)
	}

	go r.updateLoop()
}

// Stop stops the progress reporter and prints the final summary. Blocks
// until the update loop has flushed its last line.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	started := r.started
	r.mu.Unlock()

	close(r.stopCh)
	if started {
		<-r.doneCh
	}
}

// BytesProcessed records one decoded chunk and its decompressed byte count.
// Satisfies the decode callback shape, so it can be passed directly as a
// ProgressFunc.
func (r *Reporter) BytesProcessed(n int) {
	r.completedBytes.Add(int64(n))
	r.completedChunks.Add(1)
}

// RetryAttempted records a retried request.
func (r *Reporter) RetryAttempted() {
	r.retries.Add(1)
}

func (r *Reporter) updateLoop() {
	ticker := time.NewTicker(r.opts.UpdateInterval)
	defer ticker.Stop()
	defer close(r.doneCh)

	for {
		select {
		case <-r.stopCh:
			r.printFinalStatus()
			return
		case <-ticker.C:
			r.printProgress()
		}
	}
}

func (r *Reporter) printProgress() {
	now := time.Now()
	completed := r.completedBytes.Load()
	completedChunks := int(r.completedChunks.Load())

	elapsed := now.Sub(r.lastUpdate).Seconds()
	if elapsed < 0.1 {
		elapsed = 0.1
	}
	bytesThisPeriod := completed - r.lastBytes
	speed := float64(bytesThisPeriod) / elapsed

	r.lastUpdate = now
	r.lastBytes = completed

	var percent float64
	eta := "unknown"
	if r.opts.TotalSize > 0 {
		percent = float64(completed) / float64(r.opts.TotalSize) * 100
		if speed > 0 {
			remaining := float64(r.opts.TotalSize - completed)
			eta = formatDuration(time.Duration(remaining / speed * float64(time.Second)))
		}
	}

	fmt.Fprintf(r.opts.Output, "\r[strata] Progress: %.1f%% | %s decoded | Chunks: %d/%d | Speed: %s/s | ETA: %s    ",
		percent,
		formatBytes(completed),
		completedChunks,
		r.opts.TotalChunks,
		formatBytes(int64(speed)),
		eta,
	)
}

func (r *Reporter) printFinalStatus() {
	completed := r.completedBytes.Load()
	completedChunks := int(r.completedChunks.Load())
	retries := int(r.retries.Load())
	duration := time.Since(r.startTime)
	avgSpeed := float64(completed) / duration.Seconds()

	fmt.Fprintf(r.opts.Output, "\r[strata] Done: %s decoded in %d chunks | Retries: %d    \n",
		formatBytes(completed),
		completedChunks,
		retries,
	)
	fmt.Fprintf(r.opts.Output, "[strata] Total time: %s | Average speed: %s/s\n",
		formatDuration(duration),
		formatBytes(int64(avgSpeed)),
	)
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(b int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case b >= TB:
		return fmt.Sprintf("%.2f TB", float64(b)/float64(TB))
	case b >= GB:
		return fmt.Sprintf("%.2f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.2f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.2f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// FormatBytes is exported for use by the CLI render layer.
func FormatBytes(b int64) string {
	return formatBytes(b)
}
