package refcache

import "errors"

var (
	ErrNilStore = errors.New("refcache: store is required")
	ErrNilCodec = errors.New("refcache: codec is required")
)
