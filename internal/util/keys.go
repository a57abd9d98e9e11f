package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// MemcacheMaxKey is the longest key memcached accepts.
const MemcacheMaxKey = 250

// SafeKey returns key unchanged when it fits within max bytes and holds no
// whitespace or control characters. Otherwise it returns a deterministic
// replacement: a readable head of the key plus a sha256 hex digest of the
// whole key, sanitized and bounded by max.
func SafeKey(key string, max int) string {
	if len(key) > 0 && len(key) <= max && printable(key) {
		return key
	}
	sum := sha256.Sum256([]byte(key))
	digest := hex.EncodeToString(sum[:])

	head := make([]byte, 0, len(key))
	for i := 0; i < len(key); i++ {
		if c := key[i]; c > ' ' && c != 0x7f {
			head = append(head, c)
		}
	}
	room := max - len(digest) - 1
	if room < 0 {
		return digest[:max]
	}
	if len(head) > room {
		head = head[:room]
	}
	return string(head) + "#" + digest
}

func printable(s string) bool {
	for i := 0; i < len(s); i++ {
		if c := s[i]; c <= ' ' || c == 0x7f {
			return false
		}
	}
	return true
}
