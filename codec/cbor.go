package codec

import (
	"github.com/fxamacker/cbor/v2"
)

// CBOROptions tunes a CBOR codec.
type CBOROptions struct {
	// Deterministic selects RFC 8949 core deterministic encoding, for
	// byte-stable output. Otherwise the preferred unsorted mode is used.
	Deterministic bool
	// MaxNestedLevels bounds decoding depth. 0 => library default (32).
	MaxNestedLevels int
	// RejectDuplicateKeys fails Decode on maps with repeated keys.
	RejectDuplicateKeys bool
}

// CBOR is a Codec over fxamacker/cbor. The zero value is NOT ready to use;
// construct with NewCBOR or MustCBOR. Times are encoded as RFC3339Nano.
type CBOR[V any] struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var _ Codec[struct{}] = CBOR[struct{}]{}

func NewCBOR[V any](opts CBOROptions) (CBOR[V], error) {
	var eo cbor.EncOptions
	if opts.Deterministic {
		eo = cbor.CoreDetEncOptions()
	} else {
		eo = cbor.PreferredUnsortedEncOptions()
	}
	eo.Time = cbor.TimeRFC3339Nano

	em, err := eo.EncMode()
	if err != nil {
		return CBOR[V]{}, err
	}

	do := cbor.DecOptions{MaxNestedLevels: opts.MaxNestedLevels}
	if opts.RejectDuplicateKeys {
		do.DupMapKey = cbor.DupMapKeyEnforcedAPF
	}
	dm, err := do.DecMode()
	if err != nil {
		return CBOR[V]{}, err
	}
	return CBOR[V]{enc: em, dec: dm}, nil
}

// MustCBOR is like NewCBOR but panics on error.
// Meant for package-level variables and tests.
func MustCBOR[V any](opts CBOROptions) CBOR[V] {
	c, err := NewCBOR[V](opts)
	if err != nil {
		panic(err)
	}
	return c
}

func (c CBOR[V]) Encode(v V) ([]byte, error) {
	return c.enc.Marshal(v)
}

func (c CBOR[V]) Decode(b []byte) (V, error) {
	var v V
	err := c.dec.Unmarshal(b, &v)
	return v, err
}
