package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// JSON is a Codec over encoding/json. The zero value is ready to use; it
// decodes like json.Unmarshal and encodes like json.Marshal minus HTML
// escaping.
type JSON[V any] struct {
	// UseNumber decodes numbers held in interface{} as json.Number, keeping
	// int64 IDs exact.
	UseNumber bool
	// DisallowUnknownFields fails decoding when an object carries a field the
	// target struct lacks, so entries written by a newer schema read as misses.
	DisallowUnknownFields bool
	// EscapeHTML escapes <, > and & in strings, as json.Marshal does.
	EscapeHTML bool
}

var _ Codec[struct{}] = JSON[struct{}]{}

var errTrailingData = errors.New("codec: trailing data after JSON value")

func (j JSON[V]) Encode(v V) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(j.EscapeHTML)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// Encoder terminates each value with a newline
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

func (j JSON[V]) Decode(b []byte) (V, error) {
	var v V
	dec := json.NewDecoder(bytes.NewReader(b))
	if j.UseNumber {
		dec.UseNumber()
	}
	if j.DisallowUnknownFields {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&v); err != nil {
		return v, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return v, errTrailingData
	}
	return v, nil
}
