package refcache

import (
	"context"
	"time"

	c "github.com/unkn0wn-root/refcache/codec"
	"github.com/unkn0wn-root/refcache/refs"
	"github.com/unkn0wn-root/refcache/store"
)

// DefaultTTL is a conventional TTL for callers without a better one.
const DefaultTTL = 300 * time.Second

// Loader computes a value after a cache miss. ok=false means "no value":
// nothing is cached and the result is passed through. An error is the
// loader's own and is returned to the caller unchanged.
type Loader[V any] func(ctx context.Context) (v V, ok bool, err error)

// Cache is the typed facade over a Store. V is the caller's value type;
// serialization is handled by a pluggable Codec[V].
//
// Store failures never surface as errors: reads degrade to misses and writes
// report false. The only errors returned are those of a Loader.
type Cache[V any] interface {
	Enabled() bool
	Close(context.Context) error

	// Single
	Get(ctx context.Context, key string, def V) V
	Lookup(ctx context.Context, key string) (v V, ok bool)
	Set(ctx context.Context, key string, value V, ttl time.Duration) bool
	// Add writes only if key holds no live value; false if it did.
	Add(ctx context.Context, key string, value V, ttl time.Duration) bool
	Delete(ctx context.Context, key string) bool
	Has(ctx context.Context, key string) bool
	GetItem(ctx context.Context, key string) Item[V]
	Save(ctx context.Context, item Item[V]) bool

	// Multi (every requested key is present in the result)
	GetMultiple(ctx context.Context, keys []string, def V) map[string]V
	SetMultiple(ctx context.Context, items map[string]V, ttl time.Duration) bool
	GetItems(ctx context.Context, keys []string) map[string]Item[V]
	DeleteMultiple(ctx context.Context, keys []string) bool

	// Clear drops every entry under the store's prefix. Drivers that cannot
	// enumerate keys (memcached, bigcache, ristretto) flush everything.
	Clear(ctx context.Context) bool

	// Compute-if-absent
	GetSet(ctx context.Context, key string, load Loader[V], ttl time.Duration) (V, bool, error)

	// Groups
	WriteGrouped(ctx context.Context, group, key string, value V, ttl time.Duration, ref Ref) bool
	ReadGrouped(ctx context.Context, group, key string) (v V, current Ref, state State)
	GetGroupElse(ctx context.Context, group, key string, load Loader[V], ttl time.Duration) (V, bool, error)
	InvalidateGroup(ctx context.Context, group string, ttl time.Duration) (Ref, bool)
}

// Options tune the behavior of the cache.
// Only Store and Codec are required; others have sensible defaults.
type Options[V any] struct {
	// Required
	Store store.Store
	Codec c.Codec[V]

	Logger   Logger      // if nil, NopLogger is used
	Hooks    Hooks       // if nil, NopHooks is used
	Refs     refs.Source // if nil, refs.Clock is used
	Disabled bool        // default false (enabled)
	// SelfHeal deletes entries that fail to decode on read.
	// Off by default: a key may legitimately hold another codec's bytes.
	SelfHeal bool
	// Now overrides the clock used for envelope deadlines, for tests.
	Now func() time.Time
}

func New[V any](opts Options[V]) (Cache[V], error) {
	return newCache[V](opts)
}
