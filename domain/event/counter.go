package event

import "sync"

// Counter accumulates per-variant totals. Exposed through the debug
// endpoint and the telemetry worker.
type Counter struct {
	mu     sync.Mutex
	counts map[Type]uint64
}

func NewCounter() *Counter {
	return &Counter{counts: make(map[Type]uint64)}
}

func (c *Counter) Increment(t Type) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[t]++
}

func (c *Counter) Value(t Type) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[t]
}

// Snapshot returns a copy safe to read without holding the lock.
func (c *Counter) Snapshot() map[Type]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[Type]uint64, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}
