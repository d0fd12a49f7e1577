package bridge

import (
	"sync"
	"time"
)

// coalescer collapses bursts of per-key flush requests: the first request
// arms a timer, further requests within the window are absorbed into it. The
// flush callback runs on the timer goroutine and is expected to read the
// freshest state itself. A non-positive interval flushes synchronously.
type coalescer struct {
	interval time.Duration
	onFlush  func(key string)

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
}

func newCoalescer(interval time.Duration, onFlush func(key string)) *coalescer {
	return &coalescer{
		interval: interval,
		onFlush:  onFlush,
		pending:  make(map[string]*time.Timer),
	}
}

// Mark requests a flush for key.
func (c *coalescer) Mark(key string) {
	if c.interval <= 0 {
		c.onFlush(key)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if _, armed := c.pending[key]; armed {
		return
	}
	c.pending[key] = time.AfterFunc(c.interval, func() {
		c.flush(key)
	})
}

func (c *coalescer) flush(key string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	delete(c.pending, key)
	c.mu.Unlock()

	c.onFlush(key)
}

// Close drops all armed timers. Marks after Close are ignored.
func (c *coalescer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for key, timer := range c.pending {
		timer.Stop()
		delete(c.pending, key)
	}
}
