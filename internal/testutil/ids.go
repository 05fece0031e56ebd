package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDGenerator hands out predictable record ids for tests.
//
// The same test run against a fresh generator produces byte-identical
// stored bodies, which is what golden comparisons need.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialIDGenerator struct {
	mu     sync.Mutex
	prefix string
	seq    int64
}

// NewSequentialIDGenerator creates a generator whose ids look like
// "<prefix>-0001". An empty prefix becomes "test-id".
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	if prefix == "" {
		prefix = "test-id"
	}
	return &SequentialIDGenerator{prefix: prefix}
}

// NewID returns the next id.
func (g *SequentialIDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%04d", g.prefix, g.seq)
}

// Issued returns how many ids have been handed out.
func (g *SequentialIDGenerator) Issued() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seq
}

// Reset starts the sequence over. The next id ends in 0001.
func (g *SequentialIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
