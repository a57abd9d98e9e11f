package refcache

import (
	"context"
	"time"

	c "github.com/unkn0wn-root/refcache/codec"
	"github.com/unkn0wn-root/refcache/refs"
	"github.com/unkn0wn-root/refcache/store"
	"github.com/unkn0wn-root/refcache/store/blackhole"
)

type cache[V any] struct {
	store    store.Store
	codec    c.Codec[V]
	log      Logger
	hooks    Hooks
	refs     refs.Source
	enabled  bool
	selfHeal bool
	now      func() time.Time
}

func newCache[V any](opts Options[V]) (*cache[V], error) {
	if opts.Store == nil {
		return nil, ErrNilStore
	}
	if opts.Codec == nil {
		return nil, ErrNilCodec
	}

	c := &cache[V]{
		store:    opts.Store,
		codec:    opts.Codec,
		enabled:  !opts.Disabled,
		selfHeal: opts.SelfHeal,
		now:      opts.Now,
	}

	// defaults
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	c.refs = coalesce[refs.Source](opts.Refs, refs.Clock{})
	if c.now == nil {
		c.now = time.Now
	}
	if !c.enabled {
		// reads miss, writes vanish; the configured store is left untouched
		c.store = blackhole.NewStore()
	}
	return c, nil
}

func (c *cache[V]) Enabled() bool { return c.enabled }

func (c *cache[V]) Close(ctx context.Context) error {
	return c.store.Close(ctx)
}

func (c *cache[V]) Get(ctx context.Context, key string, def V) V {
	if v, ok := c.Lookup(ctx, key); ok {
		return v
	}
	return def
}

func (c *cache[V]) Lookup(ctx context.Context, key string) (V, bool) {
	it := c.GetItem(ctx, key)
	return it.Get(), it.IsHit()
}

func (c *cache[V]) GetItem(ctx context.Context, key string) Item[V] {
	e, err := c.store.GetItem(ctx, key)
	if err != nil {
		c.readFailed("get", 1, err)
		return missItem[V](key)
	}
	return c.decodeItem(ctx, e)
}

func (c *cache[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) bool {
	return c.Save(ctx, NewItem(key, value, ttl))
}

func (c *cache[V]) Save(ctx context.Context, item Item[V]) bool {
	if !item.IsHit() {
		return false
	}
	b, err := c.codec.Encode(item.Get())
	if err != nil {
		c.log.Warn("encode failed; not cached", Fields{"key": item.Key(), "err": err})
		return false
	}
	ok, err := c.store.Save(ctx, store.NewEntry(item.Key(), b, item.TTL()))
	return c.wrote("set", 1, ok, err)
}

// Add does not report a present key as a rejected write.
func (c *cache[V]) Add(ctx context.Context, key string, value V, ttl time.Duration) bool {
	b, err := c.codec.Encode(value)
	if err != nil {
		c.log.Warn("encode failed; not cached", Fields{"key": key, "err": err})
		return false
	}
	ok, err := c.store.Add(ctx, key, b, ttl)
	if err != nil {
		c.writeFailed("add", 1, err)
		return false
	}
	return ok
}

func (c *cache[V]) Delete(ctx context.Context, key string) bool {
	ok, err := c.store.Delete(ctx, key)
	if err != nil {
		c.writeFailed("delete", 1, err)
		return false
	}
	return ok
}

func (c *cache[V]) Has(ctx context.Context, key string) bool {
	ok, err := c.store.Has(ctx, key)
	if err != nil {
		c.readFailed("has", 1, err)
		return false
	}
	return ok
}

func (c *cache[V]) GetMultiple(ctx context.Context, keys []string, def V) map[string]V {
	items := c.GetItems(ctx, keys)
	out := make(map[string]V, len(items))
	for k, it := range items {
		if it.IsHit() {
			out[k] = it.Get()
		} else {
			out[k] = def
		}
	}
	return out
}

func (c *cache[V]) GetItems(ctx context.Context, keys []string) map[string]Item[V] {
	entries, err := c.store.GetItems(ctx, keys)
	if err != nil {
		// keep whatever hits came back; the rest are misses
		c.readFailed("get_items", len(keys), err)
	}
	out := make(map[string]Item[V], len(keys))
	for _, k := range keys {
		e, ok := entries[k]
		if !ok {
			out[k] = missItem[V](k)
			continue
		}
		out[k] = c.decodeItem(ctx, e)
	}
	return out
}

// SetMultiple encodes every value before writing any; one encode failure
// abandons the batch.
func (c *cache[V]) SetMultiple(ctx context.Context, items map[string]V, ttl time.Duration) bool {
	if len(items) == 0 {
		return true
	}
	raw := make(map[string][]byte, len(items))
	for k, v := range items {
		b, err := c.codec.Encode(v)
		if err != nil {
			c.log.Warn("encode failed; batch not cached", Fields{"key": k, "err": err})
			return false
		}
		raw[k] = b
	}
	ok, err := c.store.SetMultiple(ctx, raw, ttl)
	return c.wrote("set_multiple", len(raw), ok, err)
}

// DeleteMultiple is true when no delete failed; absent keys are not failures.
func (c *cache[V]) DeleteMultiple(ctx context.Context, keys []string) bool {
	if len(keys) == 0 {
		return true
	}
	ok, err := c.store.DeleteMultiple(ctx, keys)
	return c.wrote("delete_multiple", len(keys), ok, err)
}

func (c *cache[V]) Clear(ctx context.Context) bool {
	ok, err := c.store.Clear(ctx)
	return c.wrote("clear", 0, ok, err)
}

// GetSet returns the cached value for key or, on a miss, runs load and
// caches its value for ttl. load is never called on a hit. The bool reports
// whether a value (cached or computed) is returned.
//
// There is no locking: concurrent misses on one key may each run load and
// each write; the last write wins. A failed write still returns the
// computed value.
func (c *cache[V]) GetSet(ctx context.Context, key string, load Loader[V], ttl time.Duration) (V, bool, error) {
	if v, ok := c.Lookup(ctx, key); ok {
		return v, true, nil
	}

	var zero V
	v, ok, err := load(ctx)
	if err != nil {
		return zero, false, err
	}
	if !ok {
		return zero, false, nil
	}
	if !c.Set(ctx, key, v, ttl) {
		c.log.Debug("GetSet write-back failed; returning computed value", Fields{"key": key})
	}
	return v, true, nil
}

func (c *cache[V]) decodeItem(ctx context.Context, e store.Entry) Item[V] {
	if !e.IsHit() {
		return missItem[V](e.Key())
	}
	v, err := c.codec.Decode(e.Value())
	if err != nil {
		c.malformed(ctx, e.Key(), "value_decode")
		return missItem[V](e.Key())
	}
	return Item[V]{key: e.Key(), value: v, hit: true}
}

func (c *cache[V]) malformed(ctx context.Context, key, reason string) {
	c.hooks.Malformed(key, reason)
	c.log.Debug("malformed entry treated as miss", Fields{"key": key, "reason": reason})
	if c.selfHeal {
		_, _ = c.store.Delete(ctx, key)
	}
}

func (c *cache[V]) readFailed(op string, n int, err error) {
	c.hooks.ReadFailed(op, n, err)
	c.log.Warn("store read failed; treated as miss", Fields{"op": op, "keys": n, "err": err})
}

func (c *cache[V]) writeFailed(op string, n int, err error) {
	c.hooks.WriteFailed(op, n, err)
	c.log.Warn("store write failed", Fields{"op": op, "keys": n, "err": err})
}

// wrote reports a write result through hooks/logs and collapses it to a bool.
func (c *cache[V]) wrote(op string, n int, ok bool, err error) bool {
	if err != nil {
		c.writeFailed(op, n, err)
		return false
	}
	if !ok {
		c.hooks.WriteRejected(op, n)
		c.log.Debug("write rejected by store (pressure)", Fields{"op": op, "keys": n})
		return false
	}
	return true
}
