package state

import "sync"

// ContextStore is the process-wide key/value scratchpad lent to beacons.
type ContextStore interface {
	Get(key string) (any, bool)
	Set(key string, value any)
	Delete(key string)
}

// MemoryContext keeps the scratchpad in memory for the life of the process.
type MemoryContext struct {
	// values holds the stored entries.
	values map[string]any
	// mu protects values; beacons of different instances run concurrently.
	mu sync.RWMutex
}

// NewMemoryContext creates an empty context store.
func NewMemoryContext() *MemoryContext {
	return &MemoryContext{
		values: make(map[string]any),
	}
}

// Get returns the value stored under key.
func (c *MemoryContext) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	value, ok := c.values[key]

	return value, ok
}

// Set stores value under key.
func (c *MemoryContext) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.values[key] = value
}

// Delete removes key.
func (c *MemoryContext) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.values, key)
}
