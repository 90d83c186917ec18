package storage

import "sync"

// ThreadSafeSimpleLRU makes a SimpleLRU safe for concurrent use by
// serializing every public operation under one mutex.
//
// The mutex is held for the full duration of each call — from the first
// index lookup through any eviction the call triggers — so a mutation and
// the evictions it causes appear atomic to every other caller. A plain
// sync.Mutex is used rather than a RWMutex: there are no read-only
// operations, because even Get rewires the recency list.
//
// Locking never nests; the wrapped SimpleLRU makes no calls back into this
// layer.
type ThreadSafeSimpleLRU struct {
	mu    sync.Mutex
	cache *SimpleLRU
}

// NewThreadSafeSimpleLRU creates a concurrent cache with the given byte
// budget.
func NewThreadSafeSimpleLRU(maxBytes int) *ThreadSafeSimpleLRU {
	return &ThreadSafeSimpleLRU{cache: NewSimpleLRU(maxBytes)}
}

// Put stores value under key. See SimpleLRU.Put.
func (c *ThreadSafeSimpleLRU) Put(key string, value []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Put(key, value)
}

// PutIfAbsent inserts only when key is absent. See SimpleLRU.PutIfAbsent.
func (c *ThreadSafeSimpleLRU) PutIfAbsent(key string, value []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.PutIfAbsent(key, value)
}

// Set replaces the value of an existing key. See SimpleLRU.Set.
func (c *ThreadSafeSimpleLRU) Set(key string, value []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Set(key, value)
}

// Delete removes key. See SimpleLRU.Delete.
func (c *ThreadSafeSimpleLRU) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Delete(key)
}

// Get returns a copy of the value under key. See SimpleLRU.Get.
func (c *ThreadSafeSimpleLRU) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Get(key)
}

// Stats returns a snapshot of the wrapped cache's counters.
func (c *ThreadSafeSimpleLRU) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Stats()
}
