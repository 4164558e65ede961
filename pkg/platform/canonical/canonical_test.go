package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal(t *testing.T) {
	t.Run("sorts object keys", func(t *testing.T) {
		out, err := Marshal(map[string]any{"b": 1, "a": 2})
		require.NoError(t, err)
		assert.Equal(t, `{"a":2,"b":1}`, string(out))
	})

	t.Run("equivalent values canonicalize identically", func(t *testing.T) {
		a, err := Marshal(map[string]any{"tier": 2, "ok": true})
		require.NoError(t, err)
		b, err := Marshal(map[string]any{"ok": true, "tier": float64(2)})
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b))
	})
}

func TestHash(t *testing.T) {
	t.Run("is deterministic across key order", func(t *testing.T) {
		h1, err := Hash(map[string]any{"x": "1", "y": "2"})
		require.NoError(t, err)
		h2, err := Hash(map[string]any{"y": "2", "x": "1"})
		require.NoError(t, err)
		assert.Equal(t, h1, h2)
		assert.Len(t, h1, 64)
	})

	t.Run("changes when any value changes", func(t *testing.T) {
		h1, err := Hash(map[string]any{"x": "1"})
		require.NoError(t, err)
		h2, err := Hash(map[string]any{"x": "2"})
		require.NoError(t, err)
		assert.NotEqual(t, h1, h2)
	})
}

func TestHashString(t *testing.T) {
	assert.Len(t, HashString("dispute:d-1:2026-01-01T00:00:00Z"), 64)
	assert.NotEqual(t, HashString("a"), HashString("b"))
}
