// Package cache provides a small generic in-memory cache used for
// server-side snapshots that are cheap to rebuild, such as resolved config
// mappings. Entries never expire on their own; owners invalidate explicitly.
package cache

// Cache is a concurrency-safe key/value cache.
type Cache[K comparable, V any] interface {
	// Set adds or replaces an entry.
	Set(key K, value V)
	// Get retrieves an entry.
	Get(key K) (V, bool)
	// Del removes an entry.
	Del(key K)
	// Keys returns all keys currently cached.
	Keys() []K
	// Len returns the number of entries.
	Len() int
	// Clear removes all entries.
	Clear()
}
