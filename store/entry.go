package store

import "time"

// Entry is one cache slot: key, value, hit flag and TTL.
//
// A miss never surfaces its value. TTL is relative to write time and
// Forever (0) means no expiry; it is only meaningful for writes.
type Entry struct {
	key   string
	value []byte
	hit   bool
	ttl   time.Duration
}

// NewEntry builds an Entry to be written with Save.
func NewEntry(key string, value []byte, ttl time.Duration) Entry {
	return Entry{key: key, value: value, hit: true, ttl: ttl}
}

// HitEntry is a read result for a present key.
func HitEntry(key string, value []byte) Entry {
	return Entry{key: key, value: value, hit: true}
}

// Miss is a read result for an absent or expired key.
func Miss(key string) Entry {
	return Entry{key: key}
}

func (e Entry) Key() string { return e.key }

// Value returns nil unless the entry is a hit.
func (e Entry) Value() []byte {
	if !e.hit {
		return nil
	}
	return e.value
}

func (e Entry) IsHit() bool { return e.hit }

func (e Entry) TTL() time.Duration { return e.ttl }

// WithValue returns a copy holding value, marked as a hit.
func (e Entry) WithValue(value []byte) Entry {
	e.value = value
	e.hit = true
	return e
}

// ExpiresAfter sets the TTL to d.
func (e Entry) ExpiresAfter(d time.Duration) Entry {
	e.ttl = d
	return e
}

// ExpiresAt sets the TTL to t - now. A t in the past yields a negative TTL,
// which the Adapter stores as already expired.
func (e Entry) ExpiresAt(t time.Time) Entry {
	e.ttl = time.Until(t)
	return e
}

// NeverExpires sets the TTL to Forever.
func (e Entry) NeverExpires() Entry {
	e.ttl = Forever
	return e
}
