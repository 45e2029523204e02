// Package writer implements the debounced write-behind layer between
// the document engine and the snapshot codec.
//
// The coalescer tracks which persistence partitions are dirty and
// flushes them through a single FlushFunc after a quiet period. Every
// mutation restarts the debounce timer; that is intentional coalescing,
// not failure. Mutation callers never block on disk - only Flush and
// WaitForFlush do.
package writer

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultDelay is the debounce window applied when none is configured.
const DefaultDelay = 500 * time.Millisecond

// FlushFunc persists the given partitions. Implemented by the snapshot
// codec wiring in internal/project.
type FlushFunc func(partitions []string) error

// Coalescer schedules debounced, coalesced flushes of dirty partitions.
//
// Error contract: a failed flush keeps its partitions dirty and the
// error is surfaced to the next Flush/WaitForFlush caller rather than
// disappearing into a log line. A background (timer-fired) flush
// failure is additionally logged, since it has no caller to report to
// until someone waits.
type Coalescer struct {
	flush FlushFunc
	delay time.Duration

	mu      sync.Mutex
	dirty   map[string]struct{}
	timer   *time.Timer
	lastErr error
	closed  bool

	// flushMu serializes actual flush I/O so the codec never sees
	// concurrent writers.
	flushMu sync.Mutex
}

// New creates a coalescer flushing through fn after delay of quiet.
// A non-positive delay falls back to DefaultDelay.
func New(fn FlushFunc, delay time.Duration) *Coalescer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Coalescer{
		flush: fn,
		delay: delay,
		dirty: make(map[string]struct{}),
	}
}

// Schedule marks partitions dirty and (re)starts the debounce timer.
func (c *Coalescer) Schedule(partitions ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	for _, p := range partitions {
		c.dirty[p] = struct{}{}
	}
	if len(c.dirty) == 0 {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.delay, c.background)
}

// Flush cancels any pending timer and flushes all dirty partitions
// immediately, returning the first persistence error.
func (c *Coalescer) Flush() error {
	c.stopTimer()
	return c.drain()
}

// WaitForFlush is the durability barrier: when it returns nil, every
// partition that was dirty at the time of the call (and any that became
// dirty while the flush ran) has been persisted.
func (c *Coalescer) WaitForFlush() error {
	c.stopTimer()
	return c.drain()
}

// Close flushes outstanding dirt and rejects further scheduling.
func (c *Coalescer) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.stopTimer()
	return c.drain()
}

// Dirty reports whether any partition awaits a flush.
func (c *Coalescer) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.dirty) > 0
}

func (c *Coalescer) stopTimer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// background runs a timer-fired flush. Failures stay dirty and sticky;
// the log line is informational only.
func (c *Coalescer) background() {
	if err := c.drain(); err != nil {
		slog.Error("debounced flush failed; partitions remain dirty", "error", err)
	}
}

// drain flushes until no partition is dirty. Partitions dirtied while a
// flush is in flight are picked up by the next loop iteration, which is
// exactly the WaitForFlush invariant.
func (c *Coalescer) drain() error {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	for {
		c.mu.Lock()
		if len(c.dirty) == 0 {
			err := c.lastErr
			c.mu.Unlock()
			return err
		}
		parts := make([]string, 0, len(c.dirty))
		for p := range c.dirty {
			parts = append(parts, p)
		}
		c.dirty = make(map[string]struct{})
		c.mu.Unlock()

		if err := c.flush(parts); err != nil {
			c.mu.Lock()
			for _, p := range parts {
				c.dirty[p] = struct{}{}
			}
			c.lastErr = err
			c.mu.Unlock()
			return err
		}

		c.mu.Lock()
		c.lastErr = nil
		c.mu.Unlock()
	}
}
