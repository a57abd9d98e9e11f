package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const (
	version      byte = 1
	kindToken    byte = 1
	kindEnvelope byte = 2
	kindStamped  byte = 3

	hdrLen      = 4 + 1 + 1
	tokenLen    = hdrLen + 8
	envelopeHdr = hdrLen + 8 + 8 + 4
	stampedHdr  = hdrLen + 8
)

var (
	ErrCorrupt = errors.New("refcache: corrupt entry")
	magic4     = [...]byte{'R', 'E', 'F', 'C'}
)

func hasHeader(b []byte, kind byte) bool {
	return len(b) >= hdrLen && bytes.Equal(b[:4], magic4[:]) && b[4] == version && b[5] == kind
}

func writeHeader(buf *bytes.Buffer, kind byte) {
	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kind)
}

// Token: magic(4) | ver(1) | kind(1=token) | ref(u64 be)
func EncodeToken(ref uint64) []byte {
	var buf bytes.Buffer
	buf.Grow(tokenLen)
	writeHeader(&buf, kindToken)

	var u8 [8]byte
	binary.BigEndian.PutUint64(u8[:], ref)
	buf.Write(u8[:])
	return buf.Bytes()
}

func DecodeToken(b []byte) (uint64, error) {
	if len(b) != tokenLen || !hasHeader(b, kindToken) {
		return 0, ErrCorrupt
	}
	return binary.BigEndian.Uint64(b[hdrLen:]), nil
}

// Envelope:
//
//	magic(4) | ver(1) | kind(2=envelope) | ref(u64 be) | expiresAt(i64 be, unix nanos, 0=never)
//	vlen(u32 be) | payload(vlen)
type Envelope struct {
	Ref       uint64
	ExpiresAt int64
	Payload   []byte
}

// Expired reports whether the envelope's own deadline has passed at now.
func (e Envelope) Expired(now time.Time) bool {
	return e.ExpiresAt != 0 && now.UnixNano() >= e.ExpiresAt
}

func EncodeEnvelope(e Envelope) []byte {
	var buf bytes.Buffer
	buf.Grow(envelopeHdr + len(e.Payload))
	writeHeader(&buf, kindEnvelope)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], e.Ref)
	buf.Write(u8[:])

	binary.BigEndian.PutUint64(u8[:], uint64(e.ExpiresAt))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(e.Payload)))
	buf.Write(u4[:])

	buf.Write(e.Payload)
	return buf.Bytes()
}

func DecodeEnvelope(b []byte) (Envelope, error) {
	if len(b) < envelopeHdr || !hasHeader(b, kindEnvelope) {
		return Envelope{}, ErrCorrupt
	}
	off := hdrLen

	ref := binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	exp := int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen != len(b)-off { // strict framing: no short reads, no trailing bytes
		return Envelope{}, ErrCorrupt
	}
	return Envelope{Ref: ref, ExpiresAt: exp, Payload: b[off:]}, nil
}

// Deadline converts a TTL relative to now into an envelope deadline.
// ttl <= 0 means no deadline; negative TTLs never reach the envelope.
func Deadline(now time.Time, ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return now.Add(ttl).UnixNano()
}

// Stamped: magic(4) | ver(1) | kind(3=stamped) | expiresAt(i64 be, unix nanos, 0=never) | payload(rest)
//
// Used by backends without per-entry TTLs to enforce expiry on read.
func EncodeStamped(expiresAt int64, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(stampedHdr + len(payload))
	writeHeader(&buf, kindStamped)

	var u8 [8]byte
	binary.BigEndian.PutUint64(u8[:], uint64(expiresAt))
	buf.Write(u8[:])

	buf.Write(payload)
	return buf.Bytes()
}

func DecodeStamped(b []byte) (expiresAt int64, payload []byte, err error) {
	if len(b) < stampedHdr || !hasHeader(b, kindStamped) {
		return 0, nil, ErrCorrupt
	}
	expiresAt = int64(binary.BigEndian.Uint64(b[hdrLen:stampedHdr]))
	return expiresAt, b[stampedHdr:], nil
}
