package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs is a thread-safe deterministic id generator for tests.
//
// Unlike engine.UUIDGenerator, SequentialIDs can be reset for test
// reuse, so the same scenario produces identical ids on every run.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	seq    int64
}

// NewSequentialIDs creates a generator producing "<prefix>-1",
// "<prefix>-2", and so on.
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "id"
	}
	return &SequentialIDs{prefix: prefix}
}

// NewID increments and returns the next id.
func (g *SequentialIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%d", g.prefix, g.seq)
}

// Current returns the last issued sequence number without incrementing.
func (g *SequentialIDs) Current() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seq
}

// Reset rewinds the generator. After Reset the next NewID returns
// "<prefix>-1" again.
func (g *SequentialIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
