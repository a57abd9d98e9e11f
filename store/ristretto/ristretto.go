// Package ristretto is an admission-controlled in-process store over
// dgraph-io/ristretto. Writes may be refused under pressure (ok=false).
// Values are copied in and out; ristretto itself keeps the stored slice.
package ristretto

import (
	"bytes"
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/refcache/store"
)

// CostFunc computes the admission cost of a value. Defaults to 1 per entry.
type CostFunc func(key string, value []byte) int64

type Ristretto struct {
	c    *rc.Cache
	cost CostFunc
	sync bool
}

var _ store.Backend = (*Ristretto)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
	Cost        CostFunc // nil => 1 per entry
	// Sync waits for each Set to be applied before returning, giving
	// read-your-writes at the price of write latency.
	Sync bool
}

func New(cfg Config) (*Ristretto, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	cost := cfg.Cost
	if cost == nil {
		cost = func(string, []byte) int64 { return 1 }
	}
	return &Ristretto{c: c, cost: cost, sync: cfg.Sync}, nil
}

// NewStore returns a Store backed by a fresh Ristretto cache.
func NewStore(cfg Config, opts ...store.Option) (*store.Adapter, error) {
	p, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return store.NewAdapter(p, opts...)
}

func (p *Ristretto) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		// self-heal: drop unexpected entry shape
		p.c.Del(key)
		return nil, false, nil
	}
	return bytes.Clone(b), true, nil
}

func (p *Ristretto) Set(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	ok := p.c.SetWithTTL(key, bytes.Clone(value), p.cost(key, value), ttl)
	if ok && p.sync {
		p.c.Wait()
	}
	return ok, nil
}

func (p *Ristretto) Del(_ context.Context, key string) (bool, error) {
	_, existed := p.c.Get(key)
	p.c.Del(key)
	if p.sync {
		p.c.Wait()
	}
	return existed, nil
}

// Clear drops every entry; ristretto has no key iteration, so prefix is
// ignored.
func (p *Ristretto) Clear(_ context.Context, _ string) error {
	p.c.Clear()
	return nil
}

func (p *Ristretto) Close(_ context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Metrics exposes ristretto's counters (nil unless Config.Metrics).
func (p *Ristretto) Metrics() *rc.Metrics { return p.c.Metrics }
