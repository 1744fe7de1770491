package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates "<prefix>-0001", "<prefix>-0002", ... so stored
// games get stable ids across test runs.
//
// Thread-safety: safe for concurrent use.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator. An empty prefix means "game".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "game"
	}
	return &SequentialIDs{prefix: prefix}
}

// NewID returns the next id.
func (g *SequentialIDs) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n), nil
}
