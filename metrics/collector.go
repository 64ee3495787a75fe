// Package metrics provides per-client metrics collection.
//
// The Collector accumulates counters across the requests issued by one
// client. It is a leaf package with no internal dependencies. All increment
// methods are nil-receiver safe so callers never need to guard.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Request lifecycle
	RequestsStarted   int64
	RequestsCompleted int64
	RequestsFailed    int64
	Retries           int64

	// Streaming decode
	ChunksDecoded int64
	BytesDecoded  int64
	DecodeErrors  int64

	// Cache
	CacheHits   int64
	CacheMisses int64

	// Stacking
	ScenesAssembled int64

	// Dimensions (informational, set at construction)
	Client string
	Target string
}

// Collector accumulates metrics for a single client instance.
// Thread-safe via sync.Mutex.
type Collector struct {
	mu sync.Mutex

	requestsStarted   int64
	requestsCompleted int64
	requestsFailed    int64
	retries           int64

	chunksDecoded int64
	bytesDecoded  int64
	decodeErrors  int64

	cacheHits   int64
	cacheMisses int64

	scenesAssembled int64

	client string
	target string
}

// NewCollector creates a Collector with dimension labels. client names the
// library consumer, target the service base URL.
func NewCollector(client, target string) *Collector {
	return &Collector{client: client, target: target}
}

// --- Request lifecycle ---

// IncRequestStarted records an attempt hitting the wire.
func (c *Collector) IncRequestStarted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.requestsStarted++
	c.mu.Unlock()
}

// IncRequestCompleted records a request that decoded to completion.
func (c *Collector) IncRequestCompleted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.requestsCompleted++
	c.mu.Unlock()
}

// IncRequestFailed records a request that exhausted its retry budget or
// failed terminally.
func (c *Collector) IncRequestFailed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.requestsFailed++
	c.mu.Unlock()
}

// IncRetry records a retried attempt.
func (c *Collector) IncRetry() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.retries++
	c.mu.Unlock()
}

// --- Streaming decode ---

// AddChunks records n decoded chunks.
func (c *Collector) AddChunks(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.chunksDecoded += n
	c.mu.Unlock()
}

// AddBytes records n decompressed payload bytes.
func (c *Collector) AddBytes(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.bytesDecoded += n
	c.mu.Unlock()
}

// IncDecodeError records a stream decode failure.
func (c *Collector) IncDecodeError() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.decodeErrors++
	c.mu.Unlock()
}

// --- Cache ---

// IncCacheHit records a request served from cache.
func (c *Collector) IncCacheHit() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.cacheHits++
	c.mu.Unlock()
}

// IncCacheMiss records a cache lookup that went to the service.
func (c *Collector) IncCacheMiss() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.cacheMisses++
	c.mu.Unlock()
}

// --- Stacking ---

// IncSceneAssembled records one scene slotted into a stack.
func (c *Collector) IncSceneAssembled() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.scenesAssembled++
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all counters.
// The Collector can continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		RequestsStarted:   c.requestsStarted,
		RequestsCompleted: c.requestsCompleted,
		RequestsFailed:    c.requestsFailed,
		Retries:           c.retries,

		ChunksDecoded: c.chunksDecoded,
		BytesDecoded:  c.bytesDecoded,
		DecodeErrors:  c.decodeErrors,

		CacheHits:   c.cacheHits,
		CacheMisses: c.cacheMisses,

		ScenesAssembled: c.scenesAssembled,

		Client: c.client,
		Target: c.target,
	}
}
