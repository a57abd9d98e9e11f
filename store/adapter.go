package store

import (
	"context"
	"errors"
	"time"

	"go.uber.org/multierr"
)

// ErrNilBackend is returned by NewAdapter when no backend is given.
var ErrNilBackend = errors.New("store: backend is required")

// Option configures an Adapter.
type Option func(*Adapter)

// WithPrefix namespaces every key written through the Adapter.
func WithPrefix(prefix string) Option {
	return func(a *Adapter) { a.prefix = prefix }
}

// Adapter implements Store over a Backend. It owns key prefixing, the
// every-key guarantee of multi-key reads, negative TTL handling and the
// per-key fallback for backends without batch operations.
type Adapter struct {
	b      Backend
	prefix string
	bg     BatchGetter // nil if unsupported
	bs     BatchSetter // nil if unsupported
	ad     Adder       // nil if unsupported
}

var _ Store = (*Adapter)(nil)

// Adapt wraps b. It panics on a nil backend; use NewAdapter to get an error.
func Adapt(b Backend, opts ...Option) *Adapter {
	a, err := NewAdapter(b, opts...)
	if err != nil {
		panic(err)
	}
	return a
}

func NewAdapter(b Backend, opts ...Option) (*Adapter, error) {
	if b == nil {
		return nil, ErrNilBackend
	}
	a := &Adapter{b: b}
	a.bg, _ = b.(BatchGetter)
	a.bs, _ = b.(BatchSetter)
	a.ad, _ = b.(Adder)
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

// Sub returns a view sharing the backend whose keys are prefixed with
// "<prefix><sub>_". An empty sub returns the receiver.
func (a *Adapter) Sub(sub string) *Adapter {
	if sub == "" {
		return a
	}
	cp := *a
	cp.prefix = a.prefix + sub + "_"
	return &cp
}

// Prefix returns the key prefix applied by the Adapter.
func (a *Adapter) Prefix() string { return a.prefix }

// Backend returns the wrapped driver.
func (a *Adapter) Backend() Backend { return a.b }

func (a *Adapter) key(k string) string { return a.prefix + k }

func (a *Adapter) Get(ctx context.Context, key string, def []byte) ([]byte, error) {
	v, ok, err := a.b.Get(ctx, a.key(key))
	if err != nil || !ok {
		return def, err
	}
	return v, nil
}

func (a *Adapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		// already expired: make sure nothing readable is left behind
		if _, err := a.b.Del(ctx, a.key(key)); err != nil {
			return false, err
		}
		return true, nil
	}
	return a.b.Set(ctx, a.key(key), value, ttl)
}

// Add is atomic on backends implementing Adder. Elsewhere it is a read then
// a write, and a concurrent writer can slip in between.
func (a *Adapter) Add(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		return false, nil
	}
	if a.ad != nil {
		return a.ad.Add(ctx, a.key(key), value, ttl)
	}
	_, ok, err := a.b.Get(ctx, a.key(key))
	if err != nil || ok {
		return false, err
	}
	return a.b.Set(ctx, a.key(key), value, ttl)
}

func (a *Adapter) Delete(ctx context.Context, key string) (bool, error) {
	return a.b.Del(ctx, a.key(key))
}

func (a *Adapter) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := a.b.Get(ctx, a.key(key))
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (a *Adapter) GetMultiple(ctx context.Context, keys []string, def []byte) (map[string][]byte, error) {
	hits, err := a.getMany(ctx, keys)
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := hits[k]; ok {
			out[k] = v
		} else {
			out[k] = def
		}
	}
	return out, err
}

func (a *Adapter) SetMultiple(ctx context.Context, values map[string][]byte, ttl time.Duration) (bool, error) {
	if len(values) == 0 {
		return true, nil
	}
	if ttl < 0 {
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		if _, err := a.DeleteMultiple(ctx, keys); err != nil {
			return false, err
		}
		return true, nil
	}

	if a.bs != nil {
		prefixed := make(map[string][]byte, len(values))
		for k, v := range values {
			prefixed[a.key(k)] = v
		}
		return a.bs.SetMany(ctx, prefixed, ttl)
	}

	all := true
	var errs error
	for k, v := range values {
		ok, err := a.b.Set(ctx, a.key(k), v, ttl)
		if err != nil {
			errs = multierr.Append(errs, err)
		}
		all = all && ok && err == nil
	}
	return all, errs
}

// DeleteMultiple removes every key. The result is false if any delete failed;
// absent keys do not count as failures.
func (a *Adapter) DeleteMultiple(ctx context.Context, keys []string) (bool, error) {
	var errs error
	for _, k := range keys {
		if _, err := a.b.Del(ctx, a.key(k)); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs == nil, errs
}

func (a *Adapter) GetItem(ctx context.Context, key string) (Entry, error) {
	v, ok, err := a.b.Get(ctx, a.key(key))
	if err != nil || !ok {
		return Miss(key), err
	}
	return HitEntry(key, v), nil
}

func (a *Adapter) GetItems(ctx context.Context, keys []string) (map[string]Entry, error) {
	hits, err := a.getMany(ctx, keys)
	out := make(map[string]Entry, len(keys))
	for _, k := range keys {
		if v, ok := hits[k]; ok {
			out[k] = HitEntry(k, v)
		} else {
			out[k] = Miss(k)
		}
	}
	return out, err
}

func (a *Adapter) Save(ctx context.Context, e Entry) (bool, error) {
	return a.Set(ctx, e.Key(), e.Value(), e.TTL())
}

// Clear removes the keys under the Adapter's prefix. See Backend.Clear for
// drivers that flush everything.
func (a *Adapter) Clear(ctx context.Context) (bool, error) {
	if err := a.b.Clear(ctx, a.prefix); err != nil {
		return false, err
	}
	return true, nil
}

func (a *Adapter) Close(ctx context.Context) error {
	return a.b.Close(ctx)
}

// getMany returns hits keyed by unprefixed key. On error the hits gathered
// so far are still returned.
func (a *Adapter) getMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	hits := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return hits, nil
	}

	if a.bg != nil {
		storage := make([]string, len(keys))
		for i, k := range keys {
			storage[i] = a.key(k)
		}
		got, err := a.bg.GetMany(ctx, storage)
		if err != nil {
			return hits, err
		}
		for i, sk := range storage {
			if v, ok := got[sk]; ok {
				hits[keys[i]] = v
			}
		}
		return hits, nil
	}

	var errs error
	for _, k := range keys {
		if _, seen := hits[k]; seen {
			continue
		}
		v, ok, err := a.b.Get(ctx, a.key(k))
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if ok {
			hits[k] = v
		}
	}
	return hits, errs
}
