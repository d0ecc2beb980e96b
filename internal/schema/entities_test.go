package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntities_Accessors(t *testing.T) {
	e := Entities{
		"site":     " youtube ",
		"position": float64(2),
		"count":    "3",
		"latest":   true,
		"empty":    "  ",
	}

	assert.Equal(t, "youtube", e.String("site"))
	assert.Equal(t, "2", e.String("position"))

	n, ok := e.Int("position")
	assert.True(t, ok)
	assert.Equal(t, 2, n)

	n, ok = e.Int("count")
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	_, ok = e.Int("site")
	assert.False(t, ok)

	assert.True(t, e.Bool("latest"))
	assert.False(t, e.Bool("missing"))
	assert.False(t, e.Has("empty"))
	assert.True(t, e.Has("site"))
	assert.Equal(t, "youtube", e.First("missing", "empty", "site"))
}

func TestEntities_SetIfAbsentNeverOverwrites(t *testing.T) {
	e := Entities{"site": "youtube", "query": ""}

	assert.False(t, e.SetIfAbsent("site", "vimeo"))
	assert.Equal(t, "youtube", e["site"])

	assert.True(t, e.SetIfAbsent("query", "cats"))
	assert.Equal(t, "cats", e["query"])
}

func TestEntities_CloneIsIndependent(t *testing.T) {
	var nilMap Entities
	assert.NotNil(t, nilMap.Clone())

	orig := Entities{"a": 1}
	c := orig.Clone()
	c["b"] = 2
	assert.NotContains(t, orig, "b")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "ab", Truncate("ab", 3))
	assert.Equal(t, "éé", Truncate("ééé", 2))
}
