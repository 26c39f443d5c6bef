package ison

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEvaluator() *Evaluator {
	r := NewFunctionRegistry()
	RegisterBuiltins(r)
	return NewEvaluator(Null(), r, nil, false)
}

func callBuiltin(t *testing.T, ev *Evaluator, name string, args []Value, named map[string]Value) Value {
	t.Helper()
	entry, ok := ev.Registry.Lookup(name)
	require.True(t, ok, "builtin %q must be registered", name)
	v, err := entry.Fn(ev, name, args, named)
	require.NoError(t, err)
	return v
}

func TestRandSeedHandleIsOpaqueAndDistinct(t *testing.T) {
	ev := newTestEvaluator()
	h1 := callBuiltin(t, ev, "rand.seed", []Value{Int(42)}, nil)
	h2 := callBuiltin(t, ev, "rand.seed", []Value{Int(42)}, nil)
	assert.NotEqual(t, h1.Str(), h2.Str(), "two generators from the same seed get distinct handles")

	_, ok := ev.rngFor(h1.Str())
	assert.True(t, ok)
	_, ok = ev.rngFor(h2.Str())
	assert.True(t, ok)
}

func TestRandFloatAndIntUseSeededStream(t *testing.T) {
	ev := newTestEvaluator()
	h := callBuiltin(t, ev, "rand.seed", []Value{Int(7)}, nil)

	f := callBuiltin(t, ev, "rand.float", []Value{h}, nil)
	assert.GreaterOrEqual(t, f.Float(), 0.0)
	assert.Less(t, f.Float(), 1.0)

	i := callBuiltin(t, ev, "rand.int", []Value{h, Int(10)}, nil)
	assert.GreaterOrEqual(t, i.Int(), int64(0))
	assert.Less(t, i.Int(), int64(10))
}

func TestRandFloatRejectsUnknownHandle(t *testing.T) {
	ev := newTestEvaluator()
	entry, ok := ev.Registry.Lookup("rand.float")
	require.True(t, ok)
	_, err := entry.Fn(ev, "rand.float", []Value{String("not-a-real-handle")}, nil)
	assert.Error(t, err)
}

func TestRandChoicePicksFromList(t *testing.T) {
	ev := newTestEvaluator()
	h := callBuiltin(t, ev, "rand.seed", []Value{Int(1)}, nil)
	list := List(String("a"), String("b"), String("c"))
	picked := callBuiltin(t, ev, "rand.choice", []Value{h, list}, nil)
	assert.Contains(t, []string{"a", "b", "c"}, picked.Str())
}
