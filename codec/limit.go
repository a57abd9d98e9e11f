package codec

import (
	"errors"
	"fmt"
)

// ErrTooLarge is wrapped by Limit.Decode when a payload exceeds MaxDecode.
var ErrTooLarge = errors.New("codec: payload too large")

// Limit wraps another codec and refuses to decode payloads larger than
// MaxDecode bytes. MaxDecode <= 0 disables the check.
//
// A refused payload surfaces from the cache as a miss, which protects readers
// of a shared store from oversized or hostile entries.
type Limit[V any] struct {
	Inner     Codec[V]
	MaxDecode int
}

func (c Limit[V]) Encode(v V) ([]byte, error) { return c.Inner.Encode(v) }
func (c Limit[V]) Decode(b []byte) (V, error) {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		var zero V
		return zero, fmt.Errorf("%w: %d > %d", ErrTooLarge, len(b), c.MaxDecode)
	}
	return c.Inner.Decode(b)
}
