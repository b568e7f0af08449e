// Package cache provides the backing stores that invalidation policies act on.
//
// Every store implements Invalidator (Delete and Clear, both idempotent) and
// the wider Cache interface used by code that populates entries. Three
// backends are provided: MemoryCache (unbounded, TTL), LRUCache (bounded,
// TTL) and RedisCache (namespaced by key prefix). Registry makes caches
// addressable by name.
package cache
