package state

import "sync/atomic"

// Clock is a monotonically increasing scene revision counter.
// Mirrors use it to drop snapshots older than the one they already show.
type Clock struct {
	counter atomic.Uint64
}

// Tick increments the clock and returns the new value.
func (c *Clock) Tick() uint64 {
	return c.counter.Add(1)
}

// Update advances the clock to a received revision if it is newer.
// It reports whether the revision was newer.
func (c *Clock) Update(rev uint64) bool {
	for {
		cur := c.counter.Load()
		if rev <= cur {
			return false
		}
		if c.counter.CompareAndSwap(cur, rev) {
			return true
		}
	}
}

// Now returns the current revision.
func (c *Clock) Now() uint64 {
	return c.counter.Load()
}
