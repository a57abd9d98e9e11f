package sloghook

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/unkn0wn-root/refcache"
)

func newBuf() (*bytes.Buffer, *slog.Logger) {
	var buf bytes.Buffer
	return &buf, slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestRedactsKeysByDefault(t *testing.T) {
	buf, l := newBuf()
	h := New(l, Options{})

	h.Malformed("user:42", "envelope")
	h.RefError("g:users", errors.New("down"))

	out := buf.String()
	assert.NotContains(t, out, "user:42")
	assert.NotContains(t, out, "g:users")
	assert.Contains(t, out, "reason=envelope")
	assert.Contains(t, out, "refcache.ref_error")
}

func TestCustomRedactor(t *testing.T) {
	buf, l := newBuf()
	h := New(l, Options{Redact: strings.ToUpper})
	h.Malformed("user:42", "token")
	assert.Contains(t, buf.String(), "key=USER:42")
}

func TestSampling(t *testing.T) {
	buf, l := newBuf()
	h := New(l, Options{MalformedEvery: 5})
	for i := 0; i < 10; i++ {
		h.Malformed("k", "value_decode")
	}
	assert.Equal(t, 2, strings.Count(buf.String(), "refcache.malformed"))
}

func TestGroupResolvedIsOptIn(t *testing.T) {
	buf, l := newBuf()
	New(l, Options{}).GroupResolved("g", refcache.Valid)
	assert.Empty(t, buf.String())

	New(l, Options{LogResolved: true}).GroupResolved("g", refcache.Stale)
	assert.Contains(t, buf.String(), "state=stale")
}

func TestNilLogger(t *testing.T) {
	h := New(nil, Options{})
	h.ReadFailed("get", 1, errors.New("x"))
	h.WriteFailed("set", 1, errors.New("x"))
	h.WriteRejected("set", 1)
}
