package ison

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// BuiltinFunc is the signature of a registered built-in (§4.4): the
// evaluator handle, the name it was actually invoked as (relevant to
// namespace wildcard handlers), already-evaluated positional arguments,
// and already-evaluated named arguments.
type BuiltinFunc func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error)

type regEntry struct {
	fn   BuiltinFunc
	name string
}

// FunctionRegistry maps call names to built-ins (§4.4). Names containing
// a '.' that are not registered directly fall back to a namespace
// wildcard registered under the prefix before the last '.' (e.g.
// "path.dirname" falls back to the "path" namespace handler, which
// dispatches on the full name itself). Successful lookups are cached in
// a bounded LRU so repeated dotted lookups in hot evaluation loops don't
// re-walk the fallback chain.
type FunctionRegistry struct {
	entries   map[string]regEntry
	wildcards map[string]regEntry
	cache     *lru.Cache[string, regEntry]
}

func NewFunctionRegistry() *FunctionRegistry {
	cache, _ := lru.New[string, regEntry](512)
	return &FunctionRegistry{
		entries:   map[string]regEntry{},
		wildcards: map[string]regEntry{},
		cache:     cache,
	}
}

// Register installs a built-in under an exact call name.
func (r *FunctionRegistry) Register(name string, fn BuiltinFunc) {
	r.entries[name] = regEntry{fn: fn, name: name}
}

// RegisterNamespace installs a fallback handler for any dotted call
// "prefix.rest" not otherwise registered (e.g. prefix "path" catches
// "path.join", "path.dirname", ...).
func (r *FunctionRegistry) RegisterNamespace(prefix string, fn BuiltinFunc) {
	r.wildcards[prefix] = regEntry{fn: fn, name: prefix + ".*"}
}

func (r *FunctionRegistry) Lookup(name string) (regEntry, bool) {
	if e, ok := r.cache.Get(name); ok {
		return e, true
	}
	if e, ok := r.entries[name]; ok {
		r.cache.Add(name, e)
		return e, true
	}
	if dot := strings.LastIndexByte(name, '.'); dot >= 0 {
		if e, ok := r.wildcards[name[:dot]]; ok {
			r.cache.Add(name, e)
			return e, true
		}
	}
	return regEntry{}, false
}

func (e regEntry) Fn(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
	return e.fn(ev, name, args, named)
}
