package testutil

import (
	"sync"
	"time"
)

// Epoch is the first instant a DeterministicClock reports.
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// DeterministicClock is a logical wall clock for tests: every call to Now
// advances it by one second from Epoch, so stored timestamps are
// reproducible.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu  sync.Mutex
	seq int64
}

// NewDeterministicClock creates a clock that has not ticked yet.
//
// The first call to Now() returns Epoch plus one second.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Now ticks the clock and returns the new instant.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return Epoch.Add(time.Duration(c.seq) * time.Second)
}

// Ticks returns how often Now was called.
func (c *DeterministicClock) Ticks() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset rewinds the clock. After Reset(), the next Now() returns Epoch plus
// one second again.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
