package ison

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON5Basics(t *testing.T) {
	v, err := DecodeJSON5(`{
		// a comment
		foo: 'bar',
		"baz": [1, 2.5, true, false, null,],
		/* block
		   comment */
		nested: { a: 1, },
	}`)
	require.NoError(t, err)
	require.Equal(t, KindMap, v.Kind())

	foo, ok := v.Map().Get("foo")
	require.True(t, ok)
	assert.Equal(t, "bar", foo.Str())

	baz, ok := v.Map().Get("baz")
	require.True(t, ok)
	require.Equal(t, KindList, baz.Kind())
	assert.Equal(t, int64(1), baz.List()[0].Int())
	assert.Equal(t, 2.5, baz.List()[1].Float())
	assert.True(t, baz.List()[2].Bool())
	assert.False(t, baz.List()[3].Bool())
	assert.True(t, baz.List()[4].IsNull())

	nested, ok := v.Map().Get("nested")
	require.True(t, ok)
	a, _ := nested.Map().Get("a")
	assert.Equal(t, int64(1), a.Int())
}

func TestDecodeJSON5PreservesKeyOrder(t *testing.T) {
	v, err := DecodeJSON5(`{z: 1, a: 2, m: 3}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "m"}, v.Map().Keys())
}

func TestDecodeJSON5StringEscapes(t *testing.T) {
	v, err := DecodeJSON5(`"a\nb\tcA"`)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\tcA", v.Str())
}

func TestDecodeJSON5TrailingDataErrors(t *testing.T) {
	_, err := DecodeJSON5(`{} garbage`)
	assert.Error(t, err)
}

func TestFileLoaderSuffixFallback(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir+"/doc.json", `{"ok": true}`)

	loader := FileLoader{BaseDir: dir}
	v, err := loader.Load("doc")
	require.NoError(t, err)
	ok, _ := v.Map().Get("ok")
	assert.True(t, ok.Bool())
}

func TestFileLoaderSearchPath(t *testing.T) {
	primary := t.TempDir()
	shared := t.TempDir()
	writeFile(t, shared+"/lib.ison", `{"from": "shared"}`)

	loader := FileLoader{BaseDir: primary, SearchPath: []string{shared}}
	v, err := loader.Load("lib")
	require.NoError(t, err)
	from, _ := v.Map().Get("from")
	assert.Equal(t, "shared", from.Str())
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
