package replay

import "sync"

// Counter hands out increasing indexes per key. Bundle uses one to number
// successive recordings of the same URL so they are replayed in the order
// they were recorded instead of overwriting each other.
type Counter struct {
	mu   sync.Mutex
	next map[string]int
}

// NewCounter returns an empty Counter.
func NewCounter() *Counter {
	return &Counter{next: make(map[string]int)}
}

// Next returns the next index for key, starting at 1.
func (c *Counter) Next(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.next == nil {
		c.next = make(map[string]int)
	}
	c.next[key]++
	return c.next[key]
}

// Peek returns the index the last call to Next returned for key, or 0.
func (c *Counter) Peek(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next[key]
}

// Reset forgets every key.
func (c *Counter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = make(map[string]int)
}
