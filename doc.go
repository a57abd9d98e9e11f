// Package refcache is a typed caching facade over interchangeable key-value
// stores (in-process map, off-heap, redis, memcached, discard sink) that adds
// compute-if-absent and O(1) group invalidation.
//
// Components:
//   - store.Store: byte store contract with TTLs, multi-key batches and
//     hit-flagged items. store.Adapt turns any driver into one.
//   - Codec[V]: (de)serializes V <-> []byte.
//   - refs.Source: generates group reference tokens (clock by default).
//
// Group invalidation:
//
// A group is one stored token. Each member is stored as an envelope holding
// the token that was current when it was written. A member is valid iff its
// token equals the group's current token and it has not expired. Writing a
// new token invalidates every member at once without touching them.
//
//	_ = cache.WriteGrouped(ctx, "user:42", "user:42:orders", orders, ttl, 0)
//	v, _, state := cache.ReadGrouped(ctx, "user:42", "user:42:orders") // Valid
//	cache.InvalidateGroup(ctx, "user:42", ttl)
//	v, cur, state = cache.ReadGrouped(ctx, "user:42", "user:42:orders") // Stale
//
// GetGroupElse recomputes a stale or absent member and rewrites it under
// the current token, so siblings stay valid.
//
// The cache takes no locks. Concurrent misses may all run their Loader;
// see package flight for caller-side deduplication.
package refcache
