// Package memory is an in-process map backend.
// Expiry is enforced on read; an optional sweep loop prunes expired entries.
// Values are copied on the way in and on the way out, so callers never share
// a slice with the map.
package memory

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/unkn0wn-root/refcache/store"
)

type entry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

func (e entry) expired(now time.Time) bool {
	return !e.exp.IsZero() && now.After(e.exp)
}

// Snapshot is a copy of the map contents, as returned by Dump.
type Snapshot map[string]SnapshotEntry

type SnapshotEntry struct {
	Value     []byte
	ExpiresAt time.Time // zero => no expiry
}

type Config struct {
	// CleanupInterval runs a background sweep of expired entries.
	// 0 disables the sweep; expired entries are then dropped on read only.
	CleanupInterval time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

type Memory struct {
	mu  sync.RWMutex
	m   map[string]entry
	now func() time.Time

	ticker    *time.Ticker
	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var (
	_ store.Backend     = (*Memory)(nil)
	_ store.BatchGetter = (*Memory)(nil)
	_ store.BatchSetter = (*Memory)(nil)
	_ store.Adder       = (*Memory)(nil)
)

func New(cfg Config) *Memory {
	p := &Memory{
		m:   make(map[string]entry),
		now: cfg.Now,
	}
	if p.now == nil {
		p.now = time.Now
	}
	if cfg.CleanupInterval > 0 {
		p.ticker = time.NewTicker(cfg.CleanupInterval)
		p.stopCh = make(chan struct{})
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-p.ticker.C:
					p.Cleanup()
				case <-p.stopCh:
					return
				}
			}
		}()
	}
	return p
}

// NewStore returns a Store over a fresh Memory backend.
func NewStore(cfg Config, opts ...store.Option) *store.Adapter {
	return store.Adapt(New(cfg), opts...)
}

func (p *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.RLock()
	e, ok := p.m[key]
	p.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if e.expired(p.now()) {
		p.mu.Lock()
		if cur, ok := p.m[key]; ok && cur.expired(p.now()) {
			delete(p.m, key)
		}
		p.mu.Unlock()
		return nil, false, nil
	}
	return bytes.Clone(e.v), true, nil
}

// GetMany takes the read lock once for all keys.
func (p *Memory) GetMany(_ context.Context, keys []string) (map[string][]byte, error) {
	now := p.now()
	out := make(map[string][]byte, len(keys))
	p.mu.RLock()
	for _, k := range keys {
		if e, ok := p.m[k]; ok && !e.expired(now) {
			out[k] = bytes.Clone(e.v)
		}
	}
	p.mu.RUnlock()
	return out, nil
}

func (p *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	e := p.entry(value, ttl)
	p.mu.Lock()
	p.m[key] = e
	p.mu.Unlock()
	return true, nil
}

// SetMany writes all items under one lock.
func (p *Memory) SetMany(_ context.Context, items map[string][]byte, ttl time.Duration) (bool, error) {
	p.mu.Lock()
	for k, v := range items {
		p.m[k] = p.entry(v, ttl)
	}
	p.mu.Unlock()
	return true, nil
}

// Add stores value only if key is absent or expired.
func (p *Memory) Add(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	e := p.entry(value, ttl)
	p.mu.Lock()
	defer p.mu.Unlock()
	if cur, ok := p.m[key]; ok && !cur.expired(p.now()) {
		return false, nil
	}
	p.m[key] = e
	return true, nil
}

func (p *Memory) Del(_ context.Context, key string) (bool, error) {
	p.mu.Lock()
	e, ok := p.m[key]
	if ok {
		delete(p.m, key)
	}
	p.mu.Unlock()
	return ok && !e.expired(p.now()), nil
}

// Clear drops every key starting with prefix; an empty prefix empties the map.
func (p *Memory) Clear(_ context.Context, prefix string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if prefix == "" {
		p.m = make(map[string]entry)
		return nil
	}
	for k := range p.m {
		if strings.HasPrefix(k, prefix) {
			delete(p.m, k)
		}
	}
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (p *Memory) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.m)
}

// Cleanup drops expired entries.
func (p *Memory) Cleanup() {
	now := p.now()
	p.mu.Lock()
	for k, e := range p.m {
		if e.expired(now) {
			delete(p.m, k)
		}
	}
	p.mu.Unlock()
}

// Dump copies the current contents.
func (p *Memory) Dump() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(Snapshot, len(p.m))
	for k, e := range p.m {
		out[k] = SnapshotEntry{Value: bytes.Clone(e.v), ExpiresAt: e.exp}
	}
	return out
}

// Restore replaces the contents with s.
func (p *Memory) Restore(s Snapshot) {
	m := make(map[string]entry, len(s))
	for k, e := range s {
		m[k] = entry{v: bytes.Clone(e.Value), exp: e.ExpiresAt}
	}
	p.mu.Lock()
	p.m = m
	p.mu.Unlock()
}

func (p *Memory) Close(_ context.Context) error {
	p.closeOnce.Do(func() {
		if p.stopCh != nil {
			close(p.stopCh)
			p.ticker.Stop()
			p.wg.Wait()
		}
	})
	return nil
}

func (p *Memory) entry(value []byte, ttl time.Duration) entry {
	var exp time.Time
	if ttl > 0 {
		exp = p.now().Add(ttl)
	}
	return entry{v: bytes.Clone(value), exp: exp}
}
