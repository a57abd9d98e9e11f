package refcache

import (
	"time"

	"github.com/unkn0wn-root/refcache/store"
)

// Ref is a group reference token. 0 means "none".
type Ref uint64

// State is the resolution of a grouped lookup.
type State uint8

const (
	// Absent: member or group token not resolvable, expired, or malformed.
	Absent State = iota
	// Valid: member written under the group's current token.
	Valid
	// Stale: member written under an older token.
	Stale
)

func (s State) String() string {
	switch s {
	case Valid:
		return "valid"
	case Stale:
		return "stale"
	default:
		return "absent"
	}
}

// Item is a typed cache slot. A miss never surfaces its value.
type Item[V any] struct {
	key   string
	value V
	hit   bool
	ttl   time.Duration
}

// NewItem builds an Item to be written with Save.
func NewItem[V any](key string, value V, ttl time.Duration) Item[V] {
	return Item[V]{key: key, value: value, hit: true, ttl: ttl}
}

func missItem[V any](key string) Item[V] { return Item[V]{key: key} }

func (it Item[V]) Key() string { return it.key }

// Get returns the value, or V's zero value on a miss.
func (it Item[V]) Get() V {
	if !it.hit {
		var zero V
		return zero
	}
	return it.value
}

func (it Item[V]) IsHit() bool { return it.hit }

func (it Item[V]) TTL() time.Duration { return it.ttl }

func (it Item[V]) ExpiresAfter(d time.Duration) Item[V] {
	it.ttl = d
	return it
}

// ExpiresAt sets the TTL to t - now; a past t stores the item as expired.
func (it Item[V]) ExpiresAt(t time.Time) Item[V] {
	it.ttl = time.Until(t)
	return it
}

func (it Item[V]) NeverExpires() Item[V] {
	it.ttl = store.Forever
	return it
}
