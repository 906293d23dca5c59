package flatten

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMap(t *testing.T) {
	t.Run("nested maps become dotted paths", func(t *testing.T) {
		in := map[string]any{
			"name": "web",
			"encryption": map[string]any{
				"enabled":   true,
				"algorithm": "AES256",
			},
		}
		out := Map(in)
		assert.Equal(t, "web", out["name"])
		assert.Equal(t, true, out["encryption.enabled"])
		assert.Equal(t, "AES256", out["encryption.algorithm"])
	})

	t.Run("scalar slices stay whole", func(t *testing.T) {
		in := map[string]any{
			"security_groups": []any{"sg-1", "sg-2"},
		}
		out := Map(in)
		assert.Equal(t, []any{"sg-1", "sg-2"}, out["security_groups"])
	})

	t.Run("slices of maps get index segments", func(t *testing.T) {
		in := map[string]any{
			"rule": []any{
				map[string]any{"id": "expire", "days": 30},
				map[string]any{"id": "archive", "days": 90},
			},
		}
		out := Map(in)
		assert.Equal(t, "expire", out["rule.0.id"])
		assert.Equal(t, 90, out["rule.1.days"])
	})

	t.Run("empty containers are preserved as leaves", func(t *testing.T) {
		out := Map(map[string]any{"tags": map[string]any{}})
		assert.Equal(t, map[string]any{}, out["tags"])
	})

	t.Run("dots in keys are escaped", func(t *testing.T) {
		out := Map(map[string]any{"labels": map[string]any{"app.kubernetes.io/name": "web"}})
		assert.Equal(t, "web", out[`labels.app\.kubernetes\.io/name`])
	})

	t.Run("backslashes in keys are escaped", func(t *testing.T) {
		out := Map(map[string]any{`dir\`: map[string]any{"b": 1}})
		assert.Equal(t, 1, out[`dir\\.b`])
	})
}

func TestSortedPaths(t *testing.T) {
	m := map[string]any{"b": 1, "a.c": 2, "a": 3}
	assert.Equal(t, []string{"a", "a.c", "b"}, SortedPaths(m))
}

func TestHasPrefix(t *testing.T) {
	assert.True(t, HasPrefix("a.b.c", "a.b"))
	assert.True(t, HasPrefix("a.b", "a.b"))
	assert.False(t, HasPrefix("a.bc", "a.b"))
	assert.False(t, HasPrefix("a", "a.b"))

	// Escaped literal dots are single segments, not separators.
	assert.False(t, HasPrefix(`a\.b.c`, "a.b"))
	assert.False(t, HasPrefix(`a\.b`, "a"))
	assert.True(t, HasPrefix(`a\.b.c`, `a\.b`))
}
