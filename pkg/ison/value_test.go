package ison

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOMapPreservesInsertionOrder(t *testing.T) {
	m := NewOMap()
	m.Set("z", Int(1))
	m.Set("a", Int(2))
	m.Set("m", Int(3))
	assert.Equal(t, []string{"z", "a", "m"}, m.Keys())

	m.Set("a", Int(99))
	assert.Equal(t, []string{"z", "a", "m"}, m.Keys(), "re-setting an existing key must not move it")

	v, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, int64(99), v.Int())
}

func TestOMapDelete(t *testing.T) {
	m := NewOMap()
	m.Set("a", Int(1))
	m.Set("b", Int(2))
	m.Delete("a")
	assert.Equal(t, []string{"b"}, m.Keys())
	_, ok := m.Get("a")
	assert.False(t, ok)
}

func TestOMapMergeKeepsExisting(t *testing.T) {
	dst := NewOMap()
	dst.Set("a", String("dst"))
	src := NewOMap()
	src.Set("a", String("src"))
	src.Set("b", String("src"))
	dst.Merge(src)

	v, _ := dst.Get("a")
	assert.Equal(t, "dst", v.Str(), "existing keys must not be overwritten")
	v, _ = dst.Get("b")
	assert.Equal(t, "src", v.Str())
}

func TestTruthy(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want bool
	}{
		{"null", Null(), false},
		{"false", Bool(false), false},
		{"true", Bool(true), true},
		{"zero int", Int(0), false},
		{"nonzero int", Int(1), true},
		{"zero float", Float(0), false},
		{"empty string", String(""), false},
		{"nonempty string", String("x"), true},
		{"empty list", ListOf(nil), false},
		{"nonempty list", List(Int(1)), true},
		{"empty map", MapOf(NewOMap()), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, c.v.Truthy())
		})
	}
}

func TestEqualCrossesIntFloat(t *testing.T) {
	assert.True(t, Equal(Int(2), Float(2.0)))
	assert.False(t, Equal(Int(2), Float(2.5)))
	assert.True(t, Equal(List(Int(1), String("a")), List(Int(1), String("a"))))
	assert.False(t, Equal(List(Int(1)), List(Int(1), Int(2))))
}

func TestToStringPreservesMapOrder(t *testing.T) {
	m := NewOMap()
	m.Set("z", Int(1))
	m.Set("a", Int(2))
	got := ToString(MapOf(m), 0)
	assert.Equal(t, `{"z":1,"a":2}`, got)
}

func TestFromGoRoundTrip(t *testing.T) {
	v := FromGo(map[string]any{"x": float64(1), "y": "s", "z": nil})
	require.Equal(t, KindMap, v.Kind())
	x, _ := v.Map().Get("x")
	assert.Equal(t, KindInt, x.Kind())
	z, _ := v.Map().Get("z")
	assert.True(t, z.IsNull())
}
