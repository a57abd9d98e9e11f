package promhook

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/refcache"
	"github.com/unkn0wn-root/refcache/codec"
	"github.com/unkn0wn-root/refcache/store/memory"
)

func TestCountersByLabel(t *testing.T) {
	h := New("test", nil)

	h.ReadFailed("get", 1, errors.New("x"))
	h.ReadFailed("get", 1, errors.New("x"))
	h.WriteFailed("set", 1, errors.New("x"))
	h.WriteRejected("set_multiple", 3)
	h.Malformed("k", "envelope")
	h.GroupResolved("g", refcache.Stale)
	h.RefError("g", errors.New("x"))

	assert.Equal(t, 2.0, testutil.ToFloat64(h.readFailed.WithLabelValues("get")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.writeFailed.WithLabelValues("set")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.writeRejected.WithLabelValues("set_multiple")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.malformed.WithLabelValues("envelope")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.resolved.WithLabelValues("stale")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.refErrors))
}

func TestRegisterAndScrapeThroughCache(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	h := New("app", prometheus.Labels{"cache": "users"}).MustRegister(reg)

	cc, err := refcache.New[string](refcache.Options[string]{
		Store: memory.NewStore(memory.Config{}),
		Codec: codec.String{},
		Hooks: h,
	})
	require.NoError(t, err)
	ctx := context.Background()

	require.True(t, cc.WriteGrouped(ctx, "g", "k", "v", time.Minute, 0))
	cc.ReadGrouped(ctx, "g", "k")
	cc.ReadGrouped(ctx, "g", "other")

	expected := `
# HELP app_refcache_group_lookups_total Grouped lookups by resolved state.
# TYPE app_refcache_group_lookups_total counter
app_refcache_group_lookups_total{cache="users",state="absent"} 1
app_refcache_group_lookups_total{cache="users",state="valid"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "app_refcache_group_lookups_total"))
}
