// Package storage implements the in-memory storage engine behind the mnemo
// cache server: a bounded least-recently-used map with strict byte
// accounting, and a sharded, mutex-striped composition of it for concurrent
// access.
//
// # Architecture
//
// The engine is built from three layers, each adding exactly one concern:
//
//	┌──────────────────────────────────────────────┐
//	│                 StripedLRU                   │
//	│  hash(key) → shard; per-shard budget         │
//	├──────────────────────────────────────────────┤
//	│            ThreadSafeSimpleLRU ×N            │
//	│  one mutex per shard, full-call scope        │
//	├──────────────────────────────────────────────┤
//	│                 SimpleLRU                    │
//	│  doubly linked recency list + key index      │
//	└──────────────────────────────────────────────┘
//
// SimpleLRU is the single-threaded core: a doubly linked list threaded from
// the most recently used entry (head) to the least recently used (tail),
// with a map from key to node for O(1) lookup. Every access promotes the
// touched entry to the head; every insertion that pushes the cache over its
// byte budget evicts from the tail until the budget holds again.
//
// ThreadSafeSimpleLRU serializes callers with a single mutex. A plain
// sync.Mutex is used rather than a RWMutex because there are no read-only
// operations: even Get rewires the recency list.
//
// StripedLRU partitions the key space across N independent shards so that
// operations on unrelated keys proceed in parallel. Each shard receives an
// equal slice of the total byte budget; a key's shard is fixed for the
// process lifetime by a stable 64-bit hash.
//
// # Consistency model
//
// Every operation is atomic within its shard: the shard mutex is held from
// the first lookup through any eviction the operation triggers. There is no
// cross-shard coordination and no global snapshot; a full-cache view (Stats)
// is a per-shard sequence of snapshots, not a point-in-time cut.
//
// # Byte accounting
//
// An entry costs len(key)+len(value) bytes against its shard's budget.
// An entry whose cost alone exceeds the budget is rejected outright; the
// cache is never drained to admit an entry that cannot fit.
//
// # Choosing shard counts
//
// More shards mean less lock contention but a smaller budget per shard, and
// eviction pressure is per-shard: one hot shard evicts while its neighbors
// sit half empty. Shard counts are typically small powers of two (8–64).
package storage
