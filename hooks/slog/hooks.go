// Package sloghook logs cache hook events through log/slog.
package sloghook

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/refcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	MalformedEvery uint64
	ResolvedEvery  uint64
	// LogResolved enables a debug line per grouped lookup. Off by default.
	LogResolved bool
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	malformedCtr atomic.Uint64
	resolvedCtr  atomic.Uint64
}

var _ refcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) ReadFailed(op string, keys int, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("refcache.read_failed",
		"op", op,
		"keys", keys,
		"err", err)
}

func (h *Hooks) WriteFailed(op string, keys int, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("refcache.write_failed",
		"op", op,
		"keys", keys,
		"err", err)
}

func (h *Hooks) WriteRejected(op string, keys int) {
	if h.l == nil {
		return
	}
	h.l.Info("refcache.write_rejected",
		"op", op,
		"keys", keys)
}

func (h *Hooks) Malformed(key, reason string) {
	if h.l == nil || !sample(h.opts.MalformedEvery, &h.malformedCtr) {
		return
	}
	h.l.Debug("refcache.malformed",
		"key", h.redact(key),
		"reason", reason)
}

func (h *Hooks) GroupResolved(group string, state refcache.State) {
	if h.l == nil || !h.opts.LogResolved || !sample(h.opts.ResolvedEvery, &h.resolvedCtr) {
		return
	}
	h.l.Debug("refcache.group_resolved",
		"group", h.redact(group),
		"state", state.String())
}

func (h *Hooks) RefError(group string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("refcache.ref_error",
		"group", h.redact(group),
		"err", err)
}
