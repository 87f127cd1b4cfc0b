// Package security implements the volatile key/value store spec.md §6 names
// for replay-nonce tracking, idempotency keys, and rate-limit counters. Per
// spec.md §6's "shared resource policy", this store is never the source of
// truth and may be evicted without affecting task/notification state.
package security

import "context"

// Store is the narrow contract both backends satisfy. Every write carries a
// mandatory TTL; there is no unbounded-lifetime key.
type Store interface {
	// SetIfAbsent sets key to value with the given TTL only if key is not
	// already present (and not expired). Returns true if the set happened.
	SetIfAbsent(ctx context.Context, key, value string, ttlSeconds int) (bool, error)
	Get(ctx context.Context, key string) (string, bool, error)
	// Incr increments the integer counter at key, creating it at 1 if
	// absent, and returns the new value.
	Incr(ctx context.Context, key string, ttlSeconds int) (int64, error)
}
