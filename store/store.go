// Package store defines the storage contract consumed by refcache.
//
// A driver implements the small Backend interface (a byte store with TTLs).
// Adapt wraps any Backend into a Store, the full contract used by the cache:
// single and multi-key get/set/delete/has plus item-level reads that carry a
// hit flag.
//
// Backends MUST be byte-for-byte transparent: Get returns exactly the bytes
// previously passed to Set for that key. Drivers that frame values internally
// (e.g. to stamp an expiry) must strip the framing before returning.
package store

import (
	"context"
	"time"
)

// Forever is the TTL meaning "never expires".
const Forever time.Duration = 0

// Backend is a minimal byte store with TTLs.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Get returns (value, true, nil) on hit and (nil, false, nil) on miss.
	// IO or remote errors are returned as (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value for ttl. ttl == 0 means no expiry. The Adapter never
	// passes a negative ttl.
	// ok=false with a nil error means the store refused the write (pressure).
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) (ok bool, err error)

	// Del removes key. existed reports whether the key was present; drivers
	// that cannot tell report true.
	Del(ctx context.Context, key string) (existed bool, err error)

	// Clear removes every key starting with prefix. Drivers that cannot
	// enumerate keys flush everything they hold regardless of prefix.
	Clear(ctx context.Context, prefix string) error

	// Close releases resources.
	Close(ctx context.Context) error
}

// BatchGetter is implemented by backends with a native multi-key read.
// The returned map holds hits only.
type BatchGetter interface {
	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)
}

// BatchSetter is implemented by backends with a native multi-key write.
type BatchSetter interface {
	SetMany(ctx context.Context, items map[string][]byte, ttl time.Duration) (ok bool, err error)
}

// Adder is implemented by backends with a native set-if-absent.
// added=false with a nil error means the key already held a live value.
type Adder interface {
	Add(ctx context.Context, key string, value []byte, ttl time.Duration) (added bool, err error)
}

// Store is the uniform contract the cache runs on.
//
// Multi-key operations are one logical batch but need not be atomic.
// Every multi-key read returns a result for every requested key.
type Store interface {
	// Get returns the stored value or def on miss/expiry.
	Get(ctx context.Context, key string, def []byte) ([]byte, error)
	// Set writes value with ttl; ttl == Forever never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// Add writes value only if key is absent; false if it was present.
	Add(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// Delete removes key; false if it did not exist.
	Delete(ctx context.Context, key string) (bool, error)
	// Has reports whether key exists and is unexpired.
	Has(ctx context.Context, key string) (bool, error)

	GetMultiple(ctx context.Context, keys []string, def []byte) (map[string][]byte, error)
	SetMultiple(ctx context.Context, values map[string][]byte, ttl time.Duration) (bool, error)
	DeleteMultiple(ctx context.Context, keys []string) (bool, error)

	// GetItem returns an Entry whose hit flag distinguishes a stored empty
	// value from an absent one.
	GetItem(ctx context.Context, key string) (Entry, error)
	// GetItems returns one Entry per requested key, misses included.
	GetItems(ctx context.Context, keys []string) (map[string]Entry, error)
	// Save writes an Entry with its own TTL.
	Save(ctx context.Context, e Entry) (bool, error)

	// Clear removes every entry visible through the Store.
	Clear(ctx context.Context) (bool, error)

	Close(ctx context.Context) error
}
