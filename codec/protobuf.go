package codec

import (
	"errors"

	"google.golang.org/protobuf/proto"
)

var errNilMessage = errors.New("codec: nil protobuf message")

// Protobuf is a Codec for generated protobuf messages. Build it with
// NewProtobuf so Decode can allocate the concrete message.
type Protobuf[T proto.Message] struct {
	alloc func() T
	mo    proto.MarshalOptions
	uo    proto.UnmarshalOptions
}

// NewProtobuf returns a codec allocating messages with alloc, e.g.
// func() *pb.User { return new(pb.User) }. Output is deterministic so equal
// messages produce equal bytes.
func NewProtobuf[T proto.Message](alloc func() T) Protobuf[T] {
	return Protobuf[T]{
		alloc: alloc,
		mo:    proto.MarshalOptions{Deterministic: true},
		uo:    proto.UnmarshalOptions{DiscardUnknown: true},
	}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	if !v.ProtoReflect().IsValid() {
		return nil, errNilMessage
	}
	return c.mo.Marshal(v)
}

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.alloc()
	if err := c.uo.Unmarshal(b, m); err != nil {
		var zero T
		return zero, err
	}
	return m, nil
}
