// Package bigcache is an off-heap shared store over allegro/bigcache.
//
// BigCache has no per-entry TTL, only a global LifeWindow. Each value is
// stamped with its own deadline and checked on read, so per-entry TTLs
// shorter than the window still hold. Entries outliving the window may be
// evicted early, as with any cache.
package bigcache

import (
	"context"
	"errors"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/refcache/internal/wire"
	"github.com/unkn0wn-root/refcache/store"
)

type BigCache struct {
	c   *bc.BigCache
	now func() time.Time
}

var _ store.Backend = (*BigCache)(nil)

type Config struct {
	LifeWindow         time.Duration // 0 => 10m
	CleanWindow        time.Duration
	Shards             int
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*BigCache, error) {
	life := cfg.LifeWindow
	if life <= 0 {
		life = 10 * time.Minute
	}
	conf := bc.DefaultConfig(life)
	conf.Verbose = false
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.Shards > 0 {
		conf.Shards = cfg.Shards
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.NewBigCache(conf)
	if err != nil {
		return nil, err
	}
	return &BigCache{c: c, now: time.Now}, nil
}

// NewStore returns a Store backed by a fresh BigCache.
func NewStore(cfg Config, opts ...store.Option) (*store.Adapter, error) {
	p, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return store.NewAdapter(p, opts...)
}

func (p *BigCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, err := p.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	exp, payload, err := wire.DecodeStamped(b)
	if err != nil {
		// foreign bytes under our key; drop them
		_ = p.c.Delete(key)
		return nil, false, nil
	}
	if exp != 0 && p.now().UnixNano() >= exp {
		_ = p.c.Delete(key)
		return nil, false, nil
	}
	return payload, true, nil
}

func (p *BigCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if err := p.c.Set(key, wire.EncodeStamped(wire.Deadline(p.now(), ttl), value)); err != nil {
		return false, err
	}
	return true, nil
}

func (p *BigCache) Del(_ context.Context, key string) (bool, error) {
	err := p.c.Delete(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Clear resets every shard. BigCache cannot iterate keys cheaply enough to
// honor a prefix, so the whole cache is emptied.
func (p *BigCache) Clear(_ context.Context, _ string) error {
	return p.c.Reset()
}

// Len reports the number of entries, expired ones not yet evicted included.
func (p *BigCache) Len() int { return p.c.Len() }

func (p *BigCache) Close(_ context.Context) error {
	return p.c.Close()
}
