package storage

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// maxShardBytes bounds the per-shard budget a StripedLRU will accept.
// A budget past this point almost always means a misconfiguration (total
// budget huge, shard count tiny), and a single shard that large puts the
// whole budget behind one mutex.
const maxShardBytes = 1 << 30 // 1 GiB

// StripedLRU partitions a byte budget across N independent shards, each a
// ThreadSafeSimpleLRU with budget totalBytes/N. A stable 64-bit hash of the
// key selects the shard, so operations on keys in different shards contend
// on different mutexes and proceed in parallel.
//
// The shard count and the key→shard mapping are fixed for the lifetime of
// the cache: the same key always lands on the same shard.
//
// Each operation is atomic within its shard. There is no cross-shard
// atomicity and no global snapshot; eviction pressure is per-shard, so
// filling one shard never disturbs the others.
type StripedLRU struct {
	shards []*ThreadSafeSimpleLRU
}

// NewStripedLRU creates a striped cache splitting totalBytes evenly across
// shardCount shards.
//
// Construction fails when the configuration is unusable: a non-positive
// shard count, a per-shard budget that rounds to zero (every insert would be
// rejected as oversize), or a per-shard budget beyond maxShardBytes.
func NewStripedLRU(totalBytes, shardCount int) (*StripedLRU, error) {
	if shardCount <= 0 {
		return nil, fmt.Errorf("storage: shard count must be positive, got %d", shardCount)
	}

	shardBytes := totalBytes / shardCount
	if shardBytes <= 0 {
		return nil, fmt.Errorf("storage: budget %dB over %d shards leaves no room per shard", totalBytes, shardCount)
	}
	if shardBytes > maxShardBytes {
		return nil, fmt.Errorf("storage: per-shard budget %dB exceeds limit %dB; use more shards", shardBytes, maxShardBytes)
	}

	shards := make([]*ThreadSafeSimpleLRU, shardCount)
	for i := range shards {
		shards[i] = NewThreadSafeSimpleLRU(shardBytes)
	}
	return &StripedLRU{shards: shards}, nil
}

// shardFor routes a key to its owning shard. xxhash is stable across calls
// and processes, so the mapping never changes for a given shard count.
func (c *StripedLRU) shardFor(key string) *ThreadSafeSimpleLRU {
	return c.shards[xxhash.Sum64String(key)%uint64(len(c.shards))]
}

// Put stores value under key in the owning shard. Returns false when the
// entry exceeds the shard budget.
func (c *StripedLRU) Put(key string, value []byte) bool {
	return c.shardFor(key).Put(key, value)
}

// PutIfAbsent inserts only when key is absent from its shard.
func (c *StripedLRU) PutIfAbsent(key string, value []byte) bool {
	return c.shardFor(key).PutIfAbsent(key, value)
}

// Set replaces the value of an existing key.
func (c *StripedLRU) Set(key string, value []byte) bool {
	return c.shardFor(key).Set(key, value)
}

// Delete removes key from its shard.
func (c *StripedLRU) Delete(key string) bool {
	return c.shardFor(key).Delete(key)
}

// Get returns a copy of the value under key.
func (c *StripedLRU) Get(key string) ([]byte, bool) {
	return c.shardFor(key).Get(key)
}

// ShardCount returns the number of shards.
func (c *StripedLRU) ShardCount() int { return len(c.shards) }

// Stats aggregates the counters of every shard. Shards are snapshotted one
// at a time, so the result is not a point-in-time cut of the whole cache.
func (c *StripedLRU) Stats() CacheStats {
	var total CacheStats
	for _, s := range c.shards {
		total.add(s.Stats())
	}
	return total
}

// ShardStats returns one snapshot per shard, in shard order. Useful for
// spotting skewed key distributions.
func (c *StripedLRU) ShardStats() []CacheStats {
	out := make([]CacheStats, len(c.shards))
	for i, s := range c.shards {
		out[i] = s.Stats()
	}
	return out
}
