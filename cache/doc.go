// Package cache implements the two durable caches that sit in front of the
// vector index service and the embedding function.
//
// The embedding cache maps a content hash to its embedding vector. Because
// the embedding function is deterministic, entries never expire and are
// never evicted; the cache grows without bound by design.
//
// The retrieval cache maps a query fingerprint to a ranked result list.
// Its only invalidation granularity is InvalidateAll: any index mutation
// clears the whole cache, trading hit-rate for correctness. There is no
// dependency tracking between a cached query and the vectors that could
// affect it.
//
// Both caches load a snapshot from a blobstore at construction, mutate in
// memory, and persist write-through under the same lock that performs the
// in-memory mutation, so a crash never observes a snapshot reflecting half
// of an update. Snapshot I/O failures degrade durability, never
// correctness: the in-memory state stays authoritative.
package cache
