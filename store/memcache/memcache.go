// Package memcache is a memcached backend over bradfitz/gomemcache.
//
// memcached limits keys to 250 bytes without whitespace; longer or unsafe keys
// are replaced by a readable head plus a sha256 digest. TTLs are rounded up to
// whole seconds, and TTLs beyond 30 days are sent as absolute unix times as
// the memcached protocol requires.
package memcache

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/unkn0wn-root/refcache/internal/util"
	"github.com/unkn0wn-root/refcache/store"
)

var ErrNilClient = errors.New("memcache store: nil client")

// relativeLimit is the largest expiration memcached treats as relative.
const relativeLimit = 30 * 24 * time.Hour

// Client is the subset of *memcache.Client used by the store.
type Client interface {
	Get(key string) (*memcache.Item, error)
	GetMulti(keys []string) (map[string]*memcache.Item, error)
	Set(item *memcache.Item) error
	Add(item *memcache.Item) error
	Delete(key string) error
	FlushAll() error
}

type Memcache struct {
	c   Client
	now func() time.Time
}

var (
	_ store.Backend     = (*Memcache)(nil)
	_ store.BatchGetter = (*Memcache)(nil)
	_ store.Adder       = (*Memcache)(nil)
)

type Config struct {
	// Client takes precedence over Servers.
	Client Client
	// Servers are host:port addresses, used when Client is nil.
	Servers []string
	// Timeout for socket reads/writes when dialing Servers. 0 => library default.
	Timeout time.Duration
	// MaxIdleConns per server when dialing Servers. 0 => library default.
	MaxIdleConns int
}

func New(cfg Config) (*Memcache, error) {
	c := cfg.Client
	if c == nil {
		if len(cfg.Servers) == 0 {
			return nil, ErrNilClient
		}
		mc := memcache.New(cfg.Servers...)
		if cfg.Timeout > 0 {
			mc.Timeout = cfg.Timeout
		}
		if cfg.MaxIdleConns > 0 {
			mc.MaxIdleConns = cfg.MaxIdleConns
		}
		c = mc
	}
	return &Memcache{c: c, now: time.Now}, nil
}

// NewStore returns a Store backed by memcached.
func NewStore(cfg Config, opts ...store.Option) (*store.Adapter, error) {
	m, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return store.NewAdapter(m, opts...)
}

func (p *Memcache) Get(_ context.Context, key string) ([]byte, bool, error) {
	it, err := p.c.Get(safe(key))
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return it.Value, true, nil
}

// GetMany maps hashed keys back to the requested ones.
func (p *Memcache) GetMany(_ context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	byWire := make(map[string]string, len(keys))
	wireKeys := make([]string, 0, len(keys))
	for _, k := range keys {
		w := safe(k)
		if _, dup := byWire[w]; !dup {
			wireKeys = append(wireKeys, w)
		}
		byWire[w] = k
	}
	items, err := p.c.GetMulti(wireKeys)
	if err != nil {
		return out, err
	}
	for w, it := range items {
		if k, ok := byWire[w]; ok {
			out[k] = it.Value
		}
	}
	return out, nil
}

func (p *Memcache) Set(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	err := p.c.Set(&memcache.Item{
		Key:        safe(key),
		Value:      value,
		Expiration: p.expiration(ttl),
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// Add maps memcached's NOT_STORED reply to added=false.
func (p *Memcache) Add(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	err := p.c.Add(&memcache.Item{
		Key:        safe(key),
		Value:      value,
		Expiration: p.expiration(ttl),
	})
	if errors.Is(err, memcache.ErrNotStored) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *Memcache) Del(_ context.Context, key string) (bool, error) {
	err := p.c.Delete(safe(key))
	if errors.Is(err, memcache.ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Clear issues flush_all. memcached cannot list keys, so every key on every
// server goes, whatever the prefix.
func (p *Memcache) Clear(_ context.Context, _ string) error {
	return p.c.FlushAll()
}

// Close closes the client when it supports it.
func (p *Memcache) Close(_ context.Context) error {
	if cl, ok := p.c.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

func (p *Memcache) expiration(ttl time.Duration) int32 {
	if ttl <= 0 {
		return 0
	}
	if ttl > relativeLimit {
		return int32(p.now().Add(ttl).Unix())
	}
	secs := (ttl + time.Second - 1) / time.Second
	return int32(secs)
}

func safe(key string) string { return util.SafeKey(key, util.MemcacheMaxKey) }
