// Package blackhole is a backend that stores nothing.
// Writes succeed and are discarded; every read misses.
package blackhole

import (
	"context"
	"time"

	"github.com/unkn0wn-root/refcache/store"
)

type Blackhole struct{}

var _ store.Backend = Blackhole{}

// NewStore returns a Store that discards everything.
func NewStore(opts ...store.Option) *store.Adapter {
	return store.Adapt(Blackhole{}, opts...)
}

func (Blackhole) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (Blackhole) Set(context.Context, string, []byte, time.Duration) (bool, error) {
	return true, nil
}

func (Blackhole) Del(context.Context, string) (bool, error) { return true, nil }

func (Blackhole) Clear(context.Context, string) error { return nil }

func (Blackhole) Close(context.Context) error { return nil }
