// Package asynchook moves hook calls off the cache's hot path.
//
// usage:
//
//	raw := sloghook.New(slog.Default(), sloghook.Options{MalformedEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	cache, _ := refcache.New[User](refcache.Options[User]{
//	    Store: st,
//	    Codec: codec.JSON[User]{},
//	    Hooks: hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/refcache"
)

// Hooks queues every call and runs it on a worker. When the queue is full
// the event is dropped and counted.
type Hooks struct {
	inner   refcache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ refcache.Hooks = (*Hooks)(nil)

func New(inner refcache.Hooks, workers, qlen int) *Hooks {
	if inner == nil {
		inner = refcache.NopHooks{}
	}
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains the queue and stops the workers. Calls after Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) ReadFailed(op string, n int, err error) {
	h.try(func() { h.inner.ReadFailed(op, n, err) })
}
func (h *Hooks) WriteFailed(op string, n int, err error) {
	h.try(func() { h.inner.WriteFailed(op, n, err) })
}
func (h *Hooks) WriteRejected(op string, n int) { h.try(func() { h.inner.WriteRejected(op, n) }) }
func (h *Hooks) Malformed(k, r string)          { h.try(func() { h.inner.Malformed(k, r) }) }
func (h *Hooks) GroupResolved(g string, s refcache.State) {
	h.try(func() { h.inner.GroupResolved(g, s) })
}
func (h *Hooks) RefError(g string, err error) { h.try(func() { h.inner.RefError(g, err) }) }
