package fieldunit

import (
	"sync/atomic"
	"time"
)

// debounceWindow is the minimum gap between accepted meter edges.
// Mechanical reed switches bounce well inside 10ms.
const debounceWindow = 10 * time.Millisecond

// PulseCounter counts flow meter edges. OnEdge is called from the
// hardware driver's event goroutine while ReadAndReset runs on the
// control loop, so both the count and the debounce clock are atomics.
type PulseCounter struct {
	count    atomic.Int64
	lastEdge atomic.Int64 // unix nanoseconds of the last accepted edge
	debounce time.Duration
	now      func() time.Time
}

// NewPulseCounter creates a counter with the standard debounce window.
func NewPulseCounter() *PulseCounter {
	return &PulseCounter{
		debounce: debounceWindow,
		now:      time.Now,
	}
}

// OnEdge registers one meter edge. Edges inside the debounce window of
// the previously accepted edge are ignored as switch bounce.
func (c *PulseCounter) OnEdge() {
	now := c.now().UnixNano()
	last := c.lastEdge.Load()
	if now-last < int64(c.debounce) {
		return
	}
	if !c.lastEdge.CompareAndSwap(last, now) {
		// Another edge won the race inside the same window.
		return
	}
	c.count.Add(1)
}

// ReadAndReset returns the accumulated count and zeroes it in a single
// atomic exchange. A separate read-then-write would lose edges that
// fire between the two steps.
func (c *PulseCounter) ReadAndReset() int64 {
	return c.count.Swap(0)
}

// Count returns the accumulated count without resetting it. The
// watchdog uses this to project pending usage between folds.
func (c *PulseCounter) Count() int64 {
	return c.count.Load()
}
