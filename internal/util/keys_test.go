package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeKeyPassesValidKeys(t *testing.T) {
	assert.Equal(t, "user:42", SafeKey("user:42", MemcacheMaxKey))
	k := strings.Repeat("a", MemcacheMaxKey)
	assert.Equal(t, k, SafeKey(k, MemcacheMaxKey))
}

func TestSafeKeyHashesInvalidKeys(t *testing.T) {
	for _, k := range []string{
		strings.Repeat("a", MemcacheMaxKey+1),
		"has space",
		"tab\there",
		"",
	} {
		got := SafeKey(k, MemcacheMaxKey)
		assert.LessOrEqual(t, len(got), MemcacheMaxKey)
		assert.NotContains(t, got, " ")
		assert.Contains(t, got, "#")
		assert.Equal(t, got, SafeKey(k, MemcacheMaxKey), "deterministic")
	}

	assert.True(t, strings.HasPrefix(SafeKey("has space", MemcacheMaxKey), "hasspace#"))
	assert.NotEqual(t, SafeKey("a b", MemcacheMaxKey), SafeKey("ab ", MemcacheMaxKey))
}

func TestSafeKeyTinyMax(t *testing.T) {
	assert.Len(t, SafeKey("some key", 10), 10)
}
