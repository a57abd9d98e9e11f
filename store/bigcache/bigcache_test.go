package bigcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBigCache(t *testing.T) *BigCache {
	t.Helper()
	p, err := New(Config{LifeWindow: time.Hour, Shards: 16})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return p
}

func TestPerEntryDeadline(t *testing.T) {
	ctx := context.Background()
	p := newTestBigCache(t)
	now := time.Unix(1_700_000_000, 0)
	p.now = func() time.Time { return now }

	_, err := p.Set(ctx, "short", []byte("s"), time.Second)
	require.NoError(t, err)
	_, err = p.Set(ctx, "forever", []byte("f"), 0)
	require.NoError(t, err)

	v, ok, err := p.Get(ctx, "short")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("s"), v)

	now = now.Add(2 * time.Second)
	_, ok, _ = p.Get(ctx, "short")
	assert.False(t, ok, "deadline shorter than LifeWindow still holds")
	_, ok, _ = p.Get(ctx, "forever")
	assert.True(t, ok)
	assert.Equal(t, 1, p.Len(), "expired entry evicted on read")
}

func TestForeignBytesAreDropped(t *testing.T) {
	ctx := context.Background()
	p := newTestBigCache(t)
	require.NoError(t, p.c.Set("k", []byte("not stamped")))

	_, ok, err := p.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, p.Len())
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	p := newTestBigCache(t)
	_, _ = p.Set(ctx, "k", []byte("v"), time.Minute)

	existed, err := p.Del(ctx, "k")
	require.NoError(t, err)
	assert.True(t, existed)
	existed, err = p.Del(ctx, "k")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestNewStoreMultiKey(t *testing.T) {
	ctx := context.Background()
	st, err := NewStore(Config{})
	require.NoError(t, err)
	defer st.Close(ctx)

	ok, err := st.SetMultiple(ctx, map[string][]byte{"a": {1}, "b": {2}}, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	vals, err := st.GetMultiple(ctx, []string{"a", "b", "c"}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": {1}, "b": {2}, "c": nil}, vals)
}

func TestClearResets(t *testing.T) {
	ctx := context.Background()
	p := newTestBigCache(t)
	_, _ = p.Set(ctx, "a", []byte("1"), time.Minute)
	_, _ = p.Set(ctx, "b", []byte("2"), 0)

	require.NoError(t, p.Clear(ctx, "ignored:"))
	assert.Zero(t, p.Len())
	_, ok, _ := p.Get(ctx, "a")
	assert.False(t, ok)
}
