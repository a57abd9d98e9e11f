// Package codec converts typed cache values to and from the bytes a Store
// holds. Pick one per Cache; values written with one codec are unreadable
// through another and are treated as misses.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
