package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates ids of the form "<prefix>-0001", "<prefix>-0002".
// It stands in for the UUIDv7 journal ids in tests and golden traces.
//
// Thread-safety: Generate is safe for concurrent use.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs returns a generator for prefix. An empty prefix becomes
// "entry".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "entry"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
