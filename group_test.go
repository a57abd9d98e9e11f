package refcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/refcache/internal/wire"
	"github.com/unkn0wn-root/refcache/refs"
	"github.com/unkn0wn-root/refcache/store"
	"github.com/unkn0wn-root/refcache/store/memory"
)

// seqRefs hands out 1, 2, 3, ...
func seqRefs() refs.Source {
	var n uint64
	return refs.Func(func(context.Context) (uint64, error) {
		n++
		return n, nil
	})
}

func withSeqRefs(o *Options[user]) { o.Refs = seqRefs() }

func TestWriteThenReadGroupedIsValid(t *testing.T) {
	ctx := context.Background()
	cc, env := newUserCache(t, withSeqRefs)
	u := user{ID: "1", Name: "Ada"}

	require.True(t, cc.WriteGrouped(ctx, "g:users", "u:1", u, time.Minute, 0))
	v, cur, st := cc.ReadGrouped(ctx, "g:users", "u:1")
	assert.Equal(t, Valid, st)
	assert.Equal(t, u, v)
	assert.Equal(t, Ref(1), cur)
	assert.Equal(t, []State{Valid}, env.hooks.resolved)
}

func TestWriteGroupedExplicitRefJoinsGeneration(t *testing.T) {
	ctx := context.Background()
	cc, _ := newUserCache(t, withSeqRefs)

	require.True(t, cc.WriteGrouped(ctx, "g", "a", user{ID: "a"}, time.Minute, 0))
	_, cur, _ := cc.ReadGrouped(ctx, "g", "a")
	require.True(t, cc.WriteGrouped(ctx, "g", "b", user{ID: "b"}, time.Minute, cur))

	_, _, st := cc.ReadGrouped(ctx, "g", "a")
	assert.Equal(t, Valid, st, "joining with the current ref keeps siblings valid")
	_, _, st = cc.ReadGrouped(ctx, "g", "b")
	assert.Equal(t, Valid, st)
}

func TestWriteGroupedFreshRefInvalidatesSiblings(t *testing.T) {
	ctx := context.Background()
	cc, _ := newUserCache(t, withSeqRefs)

	require.True(t, cc.WriteGrouped(ctx, "g", "a", user{ID: "a"}, time.Minute, 0))
	require.True(t, cc.WriteGrouped(ctx, "g", "b", user{ID: "b"}, time.Minute, 0))

	_, cur, st := cc.ReadGrouped(ctx, "g", "a")
	assert.Equal(t, Stale, st)
	assert.Equal(t, Ref(2), cur)
}

func TestWriteGroupedRejectsSameKey(t *testing.T) {
	cc, env := newUserCache(t, nil)
	assert.False(t, cc.WriteGrouped(context.Background(), "k", "k", user{}, time.Minute, 0))
	assert.Zero(t, env.mem.Len())
}

func TestWriteGroupedNegativeTTLDeletesMemberOnly(t *testing.T) {
	ctx := context.Background()
	cc, env := newUserCache(t, withSeqRefs)

	require.True(t, cc.WriteGrouped(ctx, "g", "a", user{ID: "a"}, time.Minute, 0))
	_, cur, _ := cc.ReadGrouped(ctx, "g", "a")
	require.True(t, cc.WriteGrouped(ctx, "g", "b", user{ID: "b"}, time.Minute, cur))

	assert.True(t, cc.WriteGrouped(ctx, "g", "b", user{ID: "b2"}, -time.Second, cur))
	_, _, st := cc.ReadGrouped(ctx, "g", "b")
	assert.Equal(t, Absent, st)
	_, _, st = cc.ReadGrouped(ctx, "g", "a")
	assert.Equal(t, Valid, st)
	has, _ := env.st.Has(ctx, "g")
	assert.True(t, has)
}

func TestInvalidateGroupMakesMembersStale(t *testing.T) {
	ctx := context.Background()
	cc, _ := newUserCache(t, withSeqRefs)

	require.True(t, cc.WriteGrouped(ctx, "g", "a", user{ID: "a"}, time.Minute, 0))
	ref, ok := cc.InvalidateGroup(ctx, "g", time.Minute)
	require.True(t, ok)
	assert.Equal(t, Ref(2), ref)

	v, cur, st := cc.ReadGrouped(ctx, "g", "a")
	assert.Equal(t, Stale, st)
	assert.Equal(t, ref, cur)
	assert.Equal(t, user{}, v)
}

func TestTokenOverwrittenByAnotherWriterIsStale(t *testing.T) {
	ctx := context.Background()
	cc, env := newUserCache(t, withSeqRefs)

	require.True(t, cc.WriteGrouped(ctx, "g", "a", user{ID: "a"}, time.Minute, 0))
	_, err := env.st.Set(ctx, "g", wire.EncodeToken(99), time.Minute)
	require.NoError(t, err)

	_, cur, st := cc.ReadGrouped(ctx, "g", "a")
	assert.Equal(t, Stale, st)
	assert.Equal(t, Ref(99), cur)
}

func TestMemberExpiresIndependentlyOfToken(t *testing.T) {
	ctx := context.Background()

	t.Run("store_enforced", func(t *testing.T) {
		cc, env := newUserCache(t, withSeqRefs)
		require.True(t, cc.WriteGrouped(ctx, "g", "a", user{ID: "a"}, 10*time.Second, 0))
		// keep the token alive past the member
		_, cur, _ := cc.ReadGrouped(ctx, "g", "a")
		_, err := env.st.Set(ctx, "g", wire.EncodeToken(uint64(cur)), time.Hour)
		require.NoError(t, err)

		env.clk.Advance(11 * time.Second)
		_, got, st := cc.ReadGrouped(ctx, "g", "a")
		assert.Equal(t, Absent, st)
		assert.Equal(t, cur, got, "a live group still reports its token")
	})

	t.Run("envelope_enforced", func(t *testing.T) {
		// store clock frozen: the backend never expires anything
		cacheClock := newClock()
		mem := memory.New(memory.Config{Now: newClock().Now})
		cc, err := New[user](Options[user]{
			Store: store.Adapt(mem),
			Codec: jsonUser(),
			Refs:  seqRefs(),
			Now:   cacheClock.Now,
		})
		require.NoError(t, err)

		require.True(t, cc.WriteGrouped(ctx, "g", "a", user{ID: "a"}, 10*time.Second, 0))
		cacheClock.Advance(10 * time.Second)

		_, _, st := cc.ReadGrouped(ctx, "g", "a")
		assert.Equal(t, Absent, st)
		assert.Equal(t, 2, mem.Len(), "entries are still physically present")
	})

	t.Run("forever", func(t *testing.T) {
		cc, env := newUserCache(t, withSeqRefs)
		require.True(t, cc.WriteGrouped(ctx, "g", "a", user{ID: "a"}, store.Forever, 0))
		env.clk.Advance(24 * 365 * time.Hour)
		_, _, st := cc.ReadGrouped(ctx, "g", "a")
		assert.Equal(t, Valid, st)
	})
}

func TestMalformedEntriesAreAbsent(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name   string
		token  []byte
		member []byte
		reason string
		ref    Ref
	}{
		{
			name:   "member_not_envelope",
			token:  wire.EncodeToken(7),
			member: []byte("plain string"),
			reason: "envelope",
			ref:    7,
		},
		{
			name:   "member_wrong_kind",
			token:  wire.EncodeToken(7),
			member: wire.EncodeToken(7),
			reason: "envelope",
			ref:    7,
		},
		{
			name:   "token_garbage",
			token:  []byte("xx"),
			member: wire.EncodeEnvelope(wire.Envelope{Ref: 7, Payload: []byte(`{"id":"a"}`)}),
			reason: "token",
			ref:    0,
		},
		{
			name:   "payload_undecodable",
			token:  wire.EncodeToken(7),
			member: wire.EncodeEnvelope(wire.Envelope{Ref: 7, Payload: []byte("{oops")}),
			reason: "value_decode",
			ref:    7,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cc, env := newUserCache(t, nil)
			_, err := env.st.SetMultiple(ctx, map[string][]byte{"g": tc.token, "k": tc.member}, time.Minute)
			require.NoError(t, err)

			v, cur, st := cc.ReadGrouped(ctx, "g", "k")
			assert.Equal(t, Absent, st)
			assert.Equal(t, tc.ref, cur)
			assert.Equal(t, user{}, v)
			assert.Equal(t, []string{tc.reason}, env.hooks.malformed)
		})
	}
}

func TestReadGroupedMissingTokenIsAbsent(t *testing.T) {
	ctx := context.Background()
	cc, env := newUserCache(t, withSeqRefs)

	require.True(t, cc.WriteGrouped(ctx, "g", "a", user{ID: "a"}, time.Minute, 0))
	_, err := env.st.Delete(ctx, "g")
	require.NoError(t, err)

	_, cur, st := cc.ReadGrouped(ctx, "g", "a")
	assert.Equal(t, Absent, st)
	assert.Zero(t, cur)
}

func TestReadGroupedStoreFailureIsAbsent(t *testing.T) {
	h := &recHooks{}
	cc, err := New[user](Options[user]{
		Store: store.Adapt(failingBackend{err: errors.New("conn reset")}),
		Codec: jsonUser(),
		Hooks: h,
	})
	require.NoError(t, err)

	_, cur, st := cc.ReadGrouped(context.Background(), "g", "k")
	assert.Equal(t, Absent, st)
	assert.Zero(t, cur)
	assert.Equal(t, []string{"read_grouped"}, h.reads)
}

func TestGetGroupElseValidSkipsLoader(t *testing.T) {
	ctx := context.Background()
	cc, _ := newUserCache(t, withSeqRefs)
	require.True(t, cc.WriteGrouped(ctx, "g", "a", user{ID: "cached"}, time.Minute, 0))

	load, calls := countingLoader(user{ID: "loaded"}, true, nil)
	v, ok, err := cc.GetGroupElse(ctx, "g", "a", load, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "cached", v.ID)
	assert.Zero(t, *calls)
}

func TestGetGroupElseRevalidatesUnderCurrentToken(t *testing.T) {
	ctx := context.Background()
	cc, _ := newUserCache(t, withSeqRefs)

	require.True(t, cc.WriteGrouped(ctx, "g", "a", user{ID: "a1"}, time.Minute, 0))
	_, cur, _ := cc.ReadGrouped(ctx, "g", "a")
	require.True(t, cc.WriteGrouped(ctx, "g", "b", user{ID: "b1"}, time.Minute, cur))

	ref, ok := cc.InvalidateGroup(ctx, "g", time.Minute)
	require.True(t, ok)

	load, calls := countingLoader(user{ID: "a2"}, true, nil)
	v, ok, err := cc.GetGroupElse(ctx, "g", "a", load, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a2", v.ID)
	assert.Equal(t, 1, *calls)

	v, got, st := cc.ReadGrouped(ctx, "g", "a")
	assert.Equal(t, Valid, st)
	assert.Equal(t, "a2", v.ID)
	assert.Equal(t, ref, got, "the rewrite must not start a new generation")

	_, _, st = cc.ReadGrouped(ctx, "g", "b")
	assert.Equal(t, Stale, st, "siblings are not refreshed")
}

func TestGetGroupElseMissingMemberKeepsSiblingsValid(t *testing.T) {
	ctx := context.Background()
	cc, env := newUserCache(t, withSeqRefs)

	require.True(t, cc.WriteGrouped(ctx, "g", "a", user{ID: "a"}, time.Minute, 0))
	_, cur, _ := cc.ReadGrouped(ctx, "g", "a")
	require.True(t, cc.WriteGrouped(ctx, "g", "b", user{ID: "b"}, time.Minute, cur))
	_, err := env.st.Delete(ctx, "b")
	require.NoError(t, err)

	load, _ := countingLoader(user{ID: "b2"}, true, nil)
	_, ok, err := cc.GetGroupElse(ctx, "g", "b", load, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, _, st := cc.ReadGrouped(ctx, "g", "a")
	assert.Equal(t, Valid, st)
	_, _, st = cc.ReadGrouped(ctx, "g", "b")
	assert.Equal(t, Valid, st)
}

func TestGetGroupElseNewGroup(t *testing.T) {
	ctx := context.Background()
	cc, _ := newUserCache(t, withSeqRefs)

	load, calls := countingLoader(user{ID: "x"}, true, nil)
	_, ok, err := cc.GetGroupElse(ctx, "g", "x", load, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, *calls)

	_, cur, st := cc.ReadGrouped(ctx, "g", "x")
	assert.Equal(t, Valid, st)
	assert.Equal(t, Ref(1), cur)
}

func TestGetGroupElseNoValueAndError(t *testing.T) {
	ctx := context.Background()
	cc, env := newUserCache(t, withSeqRefs)

	load, _ := countingLoader(user{}, false, nil)
	_, ok, err := cc.GetGroupElse(ctx, "g", "x", load, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, env.mem.Len())

	boom := errors.New("boom")
	load, _ = countingLoader(user{}, true, boom)
	_, ok, err = cc.GetGroupElse(ctx, "g", "x", load, time.Minute)
	assert.ErrorIs(t, err, boom)
	assert.False(t, ok)
}

func TestRefSourceFailure(t *testing.T) {
	ctx := context.Background()
	cc, env := newUserCache(t, func(o *Options[user]) {
		o.Refs = refs.Func(func(context.Context) (uint64, error) { return 0, errors.New("redis down") })
	})

	assert.False(t, cc.WriteGrouped(ctx, "g", "a", user{}, time.Minute, 0))
	_, ok := cc.InvalidateGroup(ctx, "g", time.Minute)
	assert.False(t, ok)
	assert.Equal(t, 2, env.hooks.refErrs)
	assert.Zero(t, env.mem.Len())
}
