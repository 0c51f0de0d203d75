// Package kvstore provides the TTL key/value store backing the merge cache.
//
// The engine treats the store as an injected capability: anything satisfying
// Store works. Two implementations ship here — an SQLite-backed store for
// real deployments and an in-memory store for tests. Expiry is lazy on read
// plus a periodic garbage-collection sweep, so expired rows never surface but
// also never need a timer per key.
package kvstore

import (
	"context"
	"time"
)

// Store is a key/value cache with per-entry TTL. A zero or negative TTL means
// the entry never expires.
type Store interface {
	// Get returns the value for key, reporting a miss (not an error) when
	// the key is absent or expired.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set writes value under key with the given time to live, overwriting
	// any previous entry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases underlying resources.
	Close() error
}
