// Package refs generates group reference tokens.
//
// A token only has to differ from the group's previous token. The default
// Clock source uses a nanosecond clock reading, so two writers generating a
// token in the same tick may collide; for the expected write rates the
// probability is negligible. Monotonic removes that collision within one
// process, Redis removes it across processes.
package refs

import (
	"context"
	"sync/atomic"
	"time"
)

// Source produces reference tokens. Tokens are never 0.
type Source interface {
	Next(ctx context.Context) (uint64, error)
}

// Clock returns the current time in unix nanoseconds.
type Clock struct{}

var _ Source = Clock{}

func (Clock) Next(context.Context) (uint64, error) {
	return nonZero(uint64(time.Now().UnixNano())), nil
}

// Monotonic returns clock readings forced to be strictly increasing within
// the process. The zero value is ready to use.
type Monotonic struct {
	last atomic.Uint64
	now  func() time.Time // nil => time.Now
}

var _ Source = (*Monotonic)(nil)

func (m *Monotonic) Next(context.Context) (uint64, error) {
	now := time.Now
	if m.now != nil {
		now = m.now
	}
	for {
		prev := m.last.Load()
		next := nonZero(uint64(now().UnixNano()))
		if next <= prev {
			next = prev + 1
		}
		if m.last.CompareAndSwap(prev, next) {
			return next, nil
		}
	}
}

// Func adapts a function to Source.
type Func func(ctx context.Context) (uint64, error)

func (f Func) Next(ctx context.Context) (uint64, error) { return f(ctx) }

func nonZero(v uint64) uint64 {
	if v == 0 {
		return 1
	}
	return v
}
