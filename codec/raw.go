package codec

import "bytes"

// Bytes is a codec for []byte values. Both directions copy, so a caller
// mutating a slice it passed in or got back cannot reach a store's copy.
type Bytes struct{}

func (Bytes) Encode(b []byte) ([]byte, error) { return bytes.Clone(b), nil }
func (Bytes) Decode(b []byte) ([]byte, error) { return bytes.Clone(b), nil }

// String stores Go strings as their bytes. No UTF-8 validation.
type String struct{}

func (String) Encode(s string) ([]byte, error) { return []byte(s), nil }
func (String) Decode(b []byte) (string, error) { return string(b), nil }
