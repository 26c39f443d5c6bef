// Package ison implements the ISON evaluator core: a tokenizer, argument
// splitter, lambda substitution engine, function registry and recursive
// evaluator that together resolve $name / ${path} / $func{args} expressions
// embedded in a JSON-shaped document tree.
package ison

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindMap
	KindNamedArg
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindNamedArg:
		return "named-arg"
	default:
		return "unknown"
	}
}

// NamedArg models a name=value argument slot (§3). It has no JSON
// representation but flows through evaluation and function dispatch.
type NamedArg struct {
	Key   string
	Value Value
}

// Value is the tagged-union runtime representation described in spec §3.
// Zero Value is Null.
type Value struct {
	kind Kind

	b bool
	i int64
	f float64
	s string
	l []Value
	m *OMap
	n *NamedArg
}

func Null() Value                      { return Value{kind: KindNull} }
func Bool(b bool) Value                { return Value{kind: KindBool, b: b} }
func Int(i int64) Value                { return Value{kind: KindInt, i: i} }
func Float(f float64) Value            { return Value{kind: KindFloat, f: f} }
func String(s string) Value            { return Value{kind: KindString, s: s} }
func List(items ...Value) Value        { return Value{kind: KindList, l: items} }
func ListOf(items []Value) Value       { return Value{kind: KindList, l: items} }
func MapOf(m *OMap) Value              { return Value{kind: KindMap, m: m} }
func NamedArgVal(name string, v Value) Value {
	return Value{kind: KindNamedArg, n: &NamedArg{Key: name, Value: v}}
}

func (v Value) Kind() Kind       { return v.kind }
func (v Value) IsNull() bool     { return v.kind == KindNull }
func (v Value) Bool() bool       { return v.b }
func (v Value) Int() int64       { return v.i }
func (v Value) Float() float64   { return v.f }
func (v Value) Str() string      { return v.s }
func (v Value) List() []Value    { return v.l }
func (v Value) Map() *OMap       { return v.m }
func (v Value) NamedArg() *NamedArg { return v.n }

// AsFloat widens Int to Float for arithmetic built-ins.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// Truthy implements the boolean coercion used by conditionals and logic
// built-ins: null and false are falsy, zero numbers and empty strings/
// collections are falsy, everything else is truthy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.b
	case KindInt:
		return v.i != 0
	case KindFloat:
		return v.f != 0
	case KindString:
		return v.s != ""
	case KindList:
		return len(v.l) > 0
	case KindMap:
		return v.m != nil && v.m.Len() > 0
	default:
		return true
	}
}

// Equal implements value equality used by comparison built-ins and tests.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		// allow int/float cross-comparison
		af, aok := a.AsFloat()
		bf, bok := b.AsFloat()
		if aok && bok {
			return af == bf
		}
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindInt:
		return a.i == b.i
	case KindFloat:
		return a.f == b.f
	case KindString:
		return a.s == b.s
	case KindList:
		if len(a.l) != len(b.l) {
			return false
		}
		for i := range a.l {
			if !Equal(a.l[i], b.l[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if a.m.Len() != b.m.Len() {
			return false
		}
		for _, k := range a.m.Keys() {
			bv, ok := b.m.Get(k)
			if !ok {
				return false
			}
			av, _ := a.m.Get(k)
			if !Equal(av, bv) {
				return false
			}
		}
		return true
	case KindNamedArg:
		return a.n.Key == b.n.Key && Equal(a.n.Value, b.n.Value)
	}
	return false
}

// OMap is an insertion-ordered string-keyed map, matching §5's ordering
// invariant: variable values are evaluated in insertion order so later
// definitions may reference earlier ones of the same kind.
type OMap struct {
	keys []string
	vals map[string]Value
}

func NewOMap() *OMap {
	return &OMap{vals: make(map[string]Value)}
}

func (m *OMap) Get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	v, ok := m.vals[key]
	return v, ok
}

func (m *OMap) Set(key string, v Value) {
	if _, exists := m.vals[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = v
}

func (m *OMap) Delete(key string) {
	if _, exists := m.vals[key]; !exists {
		return
	}
	delete(m.vals, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

func (m *OMap) Keys() []string {
	if m == nil {
		return nil
	}
	return m.keys
}

func (m *OMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

func (m *OMap) Clone() *OMap {
	c := NewOMap()
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		c.Set(k, v)
	}
	return c
}

// Merge copies entries from src that are not already present in m,
// matching §4.6 step 2's "existing keys not overwritten" include
// semantics; __pre__ merging uses it too. __platform__ data is merged by
// mergeOverlay instead, where the overlay's entries win.
func (m *OMap) Merge(src *OMap) {
	for _, k := range src.Keys() {
		if _, exists := m.Get(k); exists {
			continue
		}
		v, _ := src.Get(k)
		m.Set(k, v)
	}
}

// FromGo converts a decoded JSON/JSON5 tree (map[string]any, []any,
// string, float64/json.Number, bool, nil) into a Value tree.
func FromGo(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i)
		}
		f, _ := t.Float64()
		return Float(f)
	case float64:
		if float64(int64(t)) == t {
			return Int(int64(t))
		}
		return Float(t)
	case int:
		return Int(int64(t))
	case int64:
		return Int(t)
	case []any:
		items := make([]Value, len(t))
		for i, e := range t {
			items[i] = FromGo(e)
		}
		return ListOf(items)
	case []Value:
		return ListOf(t)
	case map[string]any:
		om := NewOMap()
		for _, k := range sortedKeys(t) {
			om.Set(k, FromGo(t[k]))
		}
		return MapOf(om)
	case *OMap:
		return MapOf(t)
	case Value:
		return t
	default:
		return String(fmt.Sprintf("%v", t))
	}
}

func sortedKeys(m map[string]any) []string {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}

// ToGo converts a Value tree into plain Go values suitable for
// encoding/json, used by ToString and by the final Process() result.
func (v Value) ToGo() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindList:
		out := make([]any, len(v.l))
		for i, e := range v.l {
			out[i] = e.ToGo()
		}
		return out
	case KindMap:
		return orderedMapMarshaler{v.m}
	case KindNamedArg:
		return v.n.Value.ToGo()
	}
	return nil
}

// orderedMapMarshaler preserves key insertion order when serialized,
// unlike a plain map[string]any (Go's encoding/json sorts map keys).
type orderedMapMarshaler struct{ m *OMap }

func (o orderedMapMarshaler) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.m.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		v, _ := o.m.Get(k)
		vb, err := json.Marshal(v.ToGo())
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ToString is the canonical JSON dump used for logging and error
// messages (§6 External interfaces). indent <= 0 produces compact output.
func ToString(v Value, indent int) string {
	goVal := v.ToGo()
	var out []byte
	if indent > 0 {
		out, _ = json.MarshalIndent(goVal, "", spaces(indent))
	} else {
		out, _ = json.Marshal(goVal)
	}
	return string(out)
}

func spaces(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}

// quoteKeyIfNeeded is used by error messages that need to display a
// reference path key (e.g. list-selection indices vs. map keys).
func quoteKeyIfNeeded(s string) string {
	if _, err := strconv.Atoi(s); err == nil {
		return s
	}
	return strconv.Quote(s)
}
