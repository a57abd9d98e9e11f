package refcache

import (
	"context"
	"time"

	"github.com/unkn0wn-root/refcache/internal/wire"
)

// WriteGrouped stores value under key as a member of group. Both the group
// token and the member envelope are written in one batch with the same ttl.
// ref == 0 generates a fresh token, which starts a new generation and so
// invalidates every member written under the previous one.
//
// A negative ttl writes nothing but removes the member; the group token is
// left alone so siblings are unaffected.
func (c *cache[V]) WriteGrouped(ctx context.Context, group, key string, value V, ttl time.Duration, ref Ref) bool {
	if group == key {
		c.log.Warn("WriteGrouped: group and member share a key", Fields{"key": key})
		return false
	}
	if ttl < 0 {
		if _, err := c.store.Delete(ctx, key); err != nil {
			c.writeFailed("write_grouped", 1, err)
			return false
		}
		return true
	}

	if ref == 0 {
		r, err := c.refs.Next(ctx)
		if err != nil {
			c.hooks.RefError(group, err)
			c.log.Warn("ref source failed; grouped write skipped", Fields{"group": group, "err": err})
			return false
		}
		ref = Ref(r)
	}

	payload, err := c.codec.Encode(value)
	if err != nil {
		c.log.Warn("encode failed; not cached", Fields{"key": key, "err": err})
		return false
	}
	env := wire.EncodeEnvelope(wire.Envelope{
		Ref:       uint64(ref),
		ExpiresAt: wire.Deadline(c.now(), ttl),
		Payload:   payload,
	})

	ok, err := c.store.SetMultiple(ctx, map[string][]byte{
		group: wire.EncodeToken(uint64(ref)),
		key:   env,
	}, ttl)
	return c.wrote("write_grouped", 2, ok, err)
}

// ReadGrouped resolves key as a member of group with one multi-key read.
//
//   - Valid: v is the member's value.
//   - Stale: the group was invalidated after the member was written.
//   - Absent: member or token missing, expired or malformed, or the read failed.
//
// current carries the group's token whenever it resolved (Stale, and Absent
// with a live group), so a rewrite can rejoin the current generation instead
// of starting a new one. It is 0 when the group itself is unresolvable.
func (c *cache[V]) ReadGrouped(ctx context.Context, group, key string) (V, Ref, State) {
	v, cur, st := c.readGrouped(ctx, group, key)
	c.hooks.GroupResolved(group, st)
	return v, cur, st
}

func (c *cache[V]) readGrouped(ctx context.Context, group, key string) (V, Ref, State) {
	var zero V

	items, err := c.store.GetItems(ctx, []string{group, key})
	if err != nil {
		// fail open: never trust half a batch
		c.readFailed("read_grouped", 2, err)
		return zero, 0, Absent
	}

	g, ok := items[group]
	if !ok || !g.IsHit() {
		return zero, 0, Absent
	}
	tok, err := wire.DecodeToken(g.Value())
	if err != nil {
		c.malformed(ctx, group, "token")
		return zero, 0, Absent
	}
	cur := Ref(tok)

	m, ok := items[key]
	if !ok || !m.IsHit() {
		return zero, cur, Absent
	}
	env, err := wire.DecodeEnvelope(m.Value())
	if err != nil {
		c.malformed(ctx, key, "envelope")
		return zero, cur, Absent
	}
	// TTL and token are independent; an expired member is absent even if
	// its token still matches.
	if env.Expired(c.now()) {
		return zero, cur, Absent
	}
	if Ref(env.Ref) != cur {
		return zero, cur, Stale
	}
	val, err := c.codec.Decode(env.Payload)
	if err != nil {
		c.malformed(ctx, key, "value_decode")
		return zero, cur, Absent
	}
	return val, cur, Valid
}

// GetGroupElse returns the member if Valid. Otherwise it runs load and, for a
// value, rewrites the member under the group's current token (a fresh one if
// the group did not exist), which leaves valid siblings untouched.
//
// The rewrite also re-stores the token it read. An invalidation landing
// between the read and the rewrite is therefore undone; callers that cannot
// tolerate this must serialize invalidation with recomputation.
func (c *cache[V]) GetGroupElse(ctx context.Context, group, key string, load Loader[V], ttl time.Duration) (V, bool, error) {
	v, cur, st := c.ReadGrouped(ctx, group, key)
	if st == Valid {
		return v, true, nil
	}

	var zero V
	nv, ok, err := load(ctx)
	if err != nil {
		return zero, false, err
	}
	if !ok {
		return zero, false, nil
	}
	if !c.WriteGrouped(ctx, group, key, nv, ttl, cur) {
		c.log.Debug("GetGroupElse write-back failed; returning computed value",
			Fields{"group": group, "key": key})
	}
	return nv, true, nil
}

// InvalidateGroup replaces the group's token with a fresh one, invalidating
// every member written so far. Members are not touched; they read as Stale
// until rewritten or evicted. ttl applies to the new token.
func (c *cache[V]) InvalidateGroup(ctx context.Context, group string, ttl time.Duration) (Ref, bool) {
	r, err := c.refs.Next(ctx)
	if err != nil {
		c.hooks.RefError(group, err)
		c.log.Warn("ref source failed; group not invalidated", Fields{"group": group, "err": err})
		return 0, false
	}
	ok, err := c.store.Set(ctx, group, wire.EncodeToken(r), ttl)
	if !c.wrote("invalidate_group", 1, ok, err) {
		return 0, false
	}
	c.log.Debug("group invalidated", Fields{"group": group, "ref": r})
	return Ref(r), true
}
