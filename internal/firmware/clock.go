package firmware

import (
	"time"
)

// Clock is a free running microsecond counter that wraps at 2^32.
type Clock interface {
	Micros() uint32
}

// Elapsed returns the time from since to now. Modular subtraction keeps
// it correct across a counter wrap as long as the real gap stays below
// 2^31 µs.
func Elapsed(now, since uint32) uint32 {
	return now - since
}

// MonotonicClock counts microseconds since it was created.
type MonotonicClock struct {
	start time.Time
	// offset shifts the counter, useful to exercise wraparound.
	offset uint32
}

// NewMonotonicClock starts a counter at offset.
func NewMonotonicClock(offset uint32) *MonotonicClock {
	return &MonotonicClock{start: time.Now(), offset: offset}
}

func (c *MonotonicClock) Micros() uint32 {
	return c.offset + uint32(time.Since(c.start)/time.Microsecond)
}

// ManualClock only moves when told to.
type ManualClock struct {
	Now uint32
}

func (c *ManualClock) Micros() uint32 { return c.Now }

// Advance moves the clock forward by us, wrapping like the hardware does.
func (c *ManualClock) Advance(us uint32) {
	c.Now += us
}
