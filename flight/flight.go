// Package flight coalesces concurrent cache misses on the same key so the
// loader runs once per key at a time.
//
// refcache.Cache.GetSet and GetGroupElse take no locks: N concurrent misses
// run the loader N times. Wrapping the cache in a Group collapses them onto
// one call; the others wait and share its result.
package flight

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/unkn0wn-root/refcache"
)

type result[V any] struct {
	v  V
	ok bool
}

// Group wraps a cache with per-key call suppression.
type Group[V any] struct {
	c  refcache.Cache[V]
	sf singleflight.Group
}

func New[V any](c refcache.Cache[V]) *Group[V] {
	return &Group[V]{c: c}
}

// Cache returns the wrapped cache.
func (g *Group[V]) Cache() refcache.Cache[V] { return g.c }

// GetSet is refcache.Cache.GetSet with concurrent misses on key coalesced.
// The shared call runs under the first caller's ctx.
func (g *Group[V]) GetSet(ctx context.Context, key string, load refcache.Loader[V], ttl time.Duration) (V, bool, error) {
	if v, ok := g.c.Lookup(ctx, key); ok {
		return v, true, nil
	}
	return g.do(plainKey(key), func() (V, bool, error) {
		return g.c.GetSet(ctx, key, load, ttl)
	})
}

// GetGroupElse is refcache.Cache.GetGroupElse with concurrent recomputes of
// one member coalesced.
func (g *Group[V]) GetGroupElse(ctx context.Context, group, key string, load refcache.Loader[V], ttl time.Duration) (V, bool, error) {
	return g.do(memberKey(group, key), func() (V, bool, error) {
		return g.c.GetGroupElse(ctx, group, key, load, ttl)
	})
}

// Forget drops an in-flight GetSet call for key; the next caller starts a
// new one.
func (g *Group[V]) Forget(key string) { g.sf.Forget(plainKey(key)) }

// ForgetGroup drops an in-flight GetGroupElse call for key in group.
func (g *Group[V]) ForgetGroup(group, key string) { g.sf.Forget(memberKey(group, key)) }

// Plain and grouped calls live in separate namespaces, and the group name is
// length-prefixed, so no pair of caller keys can map to the same flight.
func plainKey(key string) string { return "k:" + key }

func memberKey(group, key string) string {
	return "g" + strconv.Itoa(len(group)) + ":" + group + key
}

func (g *Group[V]) do(key string, fn func() (V, bool, error)) (V, bool, error) {
	res, err, _ := g.sf.Do(key, func() (any, error) {
		v, ok, err := fn()
		return result[V]{v: v, ok: ok}, err
	})
	if err != nil {
		var zero V
		return zero, false, err
	}
	r := res.(result[V])
	return r.v, r.ok, nil
}
