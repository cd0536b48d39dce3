package attrs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	kv := []any{"reason", "restore", "count", 3, "request_id", "req-1"}

	assert.Equal(t, "restore", String(kv, "reason"))
	assert.Equal(t, "req-1", String(kv, "request_id"))
	assert.Empty(t, String(kv, "count"), "non-string values read as empty")
	assert.Empty(t, String(kv, "missing"))
	assert.Empty(t, String([]any{"dangling"}, "dangling"))
}

func TestLookupLastPairWins(t *testing.T) {
	v, ok := Lookup([]any{"family_id", "a", "family_id", "b"}, "family_id")
	assert.True(t, ok)
	assert.Equal(t, "b", v)
}
