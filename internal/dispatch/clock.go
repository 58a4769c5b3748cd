package dispatch

import "sync/atomic"

// Clock hands out the strictly increasing sequence numbers that order
// recorded calls. Sequence numbers are logical, not wall-clock: trace
// ordering stays deterministic across machines and replays reproduce
// the original order exactly. Safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClock returns a clock whose first Next is 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt returns a clock positioned after start, so the first Next
// is start+1. Callers resuming an existing trace seed it with the
// highest recorded sequence number.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next advances the clock and returns the new sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current reports the last issued sequence number without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
