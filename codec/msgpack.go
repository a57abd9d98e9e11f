package codec

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// Msgpack serializes values with vmihailenco/msgpack/v5. The zero value uses
// `msgpack` struct tags.
type Msgpack[V any] struct {
	// JSONTags reads `json` tags instead, so one struct serves both codecs.
	JSONTags bool
	// CompactInts encodes integers in the smallest msgpack type that fits.
	CompactInts bool
}

var _ Codec[struct{}] = Msgpack[struct{}]{}

func (c Msgpack[V]) Encode(v V) ([]byte, error) {
	if !c.JSONTags && !c.CompactInts {
		return msgpack.Marshal(v)
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if c.JSONTags {
		enc.SetCustomStructTag("json")
	}
	enc.UseCompactInts(c.CompactInts)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c Msgpack[V]) Decode(b []byte) (V, error) {
	var v V
	if !c.JSONTags {
		err := msgpack.Unmarshal(b, &v)
		return v, err
	}
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	dec.SetCustomStructTag("json")
	err := dec.Decode(&v)
	return v, err
}
