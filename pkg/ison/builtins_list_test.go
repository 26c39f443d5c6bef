package ison

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinMap(t *testing.T) {
	ev := newTestEvaluator()
	// body "<%0>": substitution wraps each element in angle brackets;
	// %0 is not the sole content of the leaf so it stringifies in place.
	lam := &Lambda{Body: String("<%0>")}
	lamVal := String(lam.String())

	result := callBuiltin(t, ev, "map", []Value{lamVal, List(String("a"), String("b"))}, nil)
	require.Equal(t, KindList, result.Kind())
	assert.Equal(t, "<a>", result.List()[0].Str())
	assert.Equal(t, "<b>", result.List()[1].Str())
}

func TestBuiltinFilter(t *testing.T) {
	ev := newTestEvaluator()
	// body "%0" is a sole placeholder, so Apply returns the argument's
	// value directly (type preserved) rather than stringifying it —
	// filter keeps elements whose lambda result is Truthy.
	lam := &Lambda{Body: String("%0")}
	lamVal := String(lam.String())

	result := callBuiltin(t, ev, "filter", []Value{lamVal, List(Int(0), Int(1), Int(2), Int(0), Int(3))}, nil)
	require.Equal(t, KindList, result.Kind())
	require.Len(t, result.List(), 3)
	assert.Equal(t, int64(1), result.List()[0].Int())
	assert.Equal(t, int64(2), result.List()[1].Int())
	assert.Equal(t, int64(3), result.List()[2].Int())
}

func TestBuiltinReduce(t *testing.T) {
	ev := newTestEvaluator()
	// body "%0%1": string-concatenates the running accumulator (%0) with
	// each element (%1) in turn.
	lam := &Lambda{Body: String("%0%1")}
	lamVal := String(lam.String())

	result := callBuiltin(t, ev, "reduce", []Value{lamVal, List(String("a"), String("b"), String("c")), String("")}, nil)
	assert.Equal(t, "abc", result.Str())
}

func TestBuiltinZip(t *testing.T) {
	ev := newTestEvaluator()
	result := callBuiltin(t, ev, "zip", []Value{List(Int(1), Int(2), Int(3)), List(String("a"), String("b"))}, nil)
	require.Len(t, result.List(), 2)
	assert.Equal(t, int64(1), result.List()[0].List()[0].Int())
	assert.Equal(t, "a", result.List()[0].List()[1].Str())
}

func TestBuiltinSort(t *testing.T) {
	ev := newTestEvaluator()
	result := callBuiltin(t, ev, "sort", []Value{List(Int(3), Int(1), Int(2))}, nil)
	assert.Equal(t, []int64{1, 2, 3}, toInts(result))

	reversed := callBuiltin(t, ev, "sort", []Value{List(Int(3), Int(1), Int(2)), Bool(true)}, nil)
	assert.Equal(t, []int64{3, 2, 1}, toInts(reversed))
}

func toInts(v Value) []int64 {
	out := make([]int64, len(v.List()))
	for i, e := range v.List() {
		out[i] = e.Int()
	}
	return out
}
