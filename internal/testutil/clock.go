package testutil

import (
	"sync"
	"time"
)

// BlockClock hands out consecutive block heights and evenly spaced block
// times for tests.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type BlockClock struct {
	mu     sync.Mutex
	start  time.Time
	step   time.Duration
	height uint64
}

// NewBlockClock creates a clock whose first block is at start+step.
// start is the genesis time.
func NewBlockClock(start time.Time, step time.Duration) *BlockClock {
	return &BlockClock{start: start, step: step}
}

// Next returns the next block height and its time.
//
// Monotonic: heights go 1, 2, 3... and times never decrease.
func (c *BlockClock) Next() (uint64, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.height++
	return c.height, c.start.Add(time.Duration(c.height) * c.step)
}

// Height returns the last height handed out, 0 before the first Next.
func (c *BlockClock) Height() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.height
}

// Genesis returns the start time.
func (c *BlockClock) Genesis() time.Time {
	return c.start
}

// Reset rewinds the clock to genesis.
//
// Used for test reuse. After Reset(), the next call to Next() returns height 1.
func (c *BlockClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.height = 0
}

// FixedRunIDGenerator generates the same run id every time.
//
// Unlike pipeline.FixedGenerator which returns ids in sequence, this
// generator always returns the same id, so every block of a scenario
// shares it.
type FixedRunIDGenerator struct {
	id string
}

// NewFixedRunIDGenerator creates a fixed run id generator.
// If id is empty, Generate() returns "test-run-default".
func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunIDGenerator{id: id}
}

// Generate returns the fixed run id.
//
// Implements pipeline.RunIDGenerator interface.
func (g *FixedRunIDGenerator) Generate() string {
	return g.id
}
