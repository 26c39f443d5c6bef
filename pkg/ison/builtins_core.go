package ison

import (
	"fmt"

	"github.com/kr/pretty"
)

// argAt returns args[i] or Null if the call was short on positional
// arguments; most built-ins treat a missing optional argument this way,
// per §7's "missing optional arguments yield a function-message error"
// only for arguments actually required.
func argAt(args []Value, i int) Value {
	if i < 0 || i >= len(args) {
		return Null()
	}
	return args[i]
}

func requireArg(name string, args []Value, i int) (Value, error) {
	if i >= len(args) {
		return Value{}, FuncError(name, "missing required argument %d", i)
	}
	return args[i], nil
}

// registerCore installs the lambda callers described in §4.4/§4.5: "L",
// "L*", "!", "!foreach", "!where", "*", "S", "Sb". The bare reference
// operator itself (empty Func) is handled directly by
// Evaluator.callReference in eval.go, since it needs access to
// resolveRefPath rather than being a context-free built-in.
func registerCore(r *FunctionRegistry) {
	// L(body): constructs a lambda value from a single data argument,
	// equivalent to writing "$L{...}" directly but usable when the body is
	// itself the result of another expression.
	r.Register("L", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		body, err := requireArg("L", args, 0)
		if err != nil {
			return Value{}, err
		}
		lam := &Lambda{Body: body}
		return String(lam.String()), nil
	})

	// L*(body): like L, but immediately self-applies with no arguments —
	// useful for deferring evaluation of a subtree by one pass without
	// introducing any placeholders.
	r.Register("L*", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		body, err := requireArg("L*", args, 0)
		if err != nil {
			return Value{}, err
		}
		lam := &Lambda{Body: body}
		result, _ := lam.Apply(nil, nil)
		return result, nil
	})

	// !(lambda, args...): calls a lambda value with positional/named
	// arguments, the same as naming it directly, but useful when the
	// lambda itself came from an expression rather than a bound name.
	r.Register("!", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		lamVal, err := requireArg("!", args, 0)
		if err != nil {
			return Value{}, err
		}
		lam, ok := lambdaFromValue(lamVal)
		if !ok {
			return Value{}, FuncError("!", "argument is not a lambda")
		}
		result, _ := lam.Apply(args[1:], named)
		return result, nil
	})

	// !foreach(lambda, name=list, ...): zips the named list arguments by
	// index, calling lambda once per index with that index's elements
	// bound under the matching names, and returns the list of results
	// (§8 scenario: foreach over two lists).
	r.Register("!foreach", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		lamVal, err := requireArg("!foreach", args, 0)
		if err != nil {
			return Value{}, err
		}
		lam, ok := lambdaFromValue(lamVal)
		if !ok {
			return Value{}, FuncError("!foreach", "first argument is not a lambda")
		}
		n := -1
		for k, v := range named {
			if v.Kind() != KindList {
				return Value{}, FuncError("!foreach", "argument %q is not a list", k)
			}
			if n == -1 {
				n = len(v.List())
			} else if len(v.List()) != n {
				return Value{}, FuncError("!foreach", "argument %q has length %d, expected %d", k, len(v.List()), n)
			}
		}
		if n == -1 {
			n = 0
		}
		out := make([]Value, n)
		for i := 0; i < n; i++ {
			call := make(map[string]Value, len(named))
			for k, v := range named {
				call[k] = v.List()[i]
			}
			result, _ := lam.Apply(nil, call)
			out[i] = result
		}
		return ListOf(out), nil
	})

	// !where(lambda, name=list, ...): like !foreach, but keeps only the
	// elements of the first named list for which the lambda, called with
	// every zipped binding, returns a truthy value.
	r.Register("!where", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		lamVal, err := requireArg("!where", args, 0)
		if err != nil {
			return Value{}, err
		}
		lam, ok := lambdaFromValue(lamVal)
		if !ok {
			return Value{}, FuncError("!where", "first argument is not a lambda")
		}
		var keys []string
		n := -1
		for k, v := range named {
			if v.Kind() != KindList {
				return Value{}, FuncError("!where", "argument %q is not a list", k)
			}
			keys = append(keys, k)
			if n == -1 {
				n = len(v.List())
			} else if len(v.List()) != n {
				return Value{}, FuncError("!where", "argument %q has length %d, expected %d", k, len(v.List()), n)
			}
		}
		if n == -1 {
			n = 0
		}
		var out []Value
		for i := 0; i < n; i++ {
			call := make(map[string]Value, len(named))
			for _, k := range keys {
				call[k] = named[k].List()[i]
			}
			result, _ := lam.Apply(nil, call)
			if result.Truthy() {
				out = append(out, named[keys[0]].List()[i])
			}
		}
		return ListOf(out), nil
	})

	// *(text): struct unwrap — decodes an S-wrapped text literal back into
	// a structured Value (§4.3's lambda-body encoding uses this to
	// reconstruct list/map bodies after placeholder substitution).
	r.Register("*", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		v, err := requireArg("*", args, 0)
		if err != nil {
			return Value{}, err
		}
		if v.Kind() != KindString {
			return v, nil
		}
		return DecodeSWrap(v.Str())
	})

	// S(value): wrap as the canonical JSON encoding of value (compact).
	r.Register("S", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		return String(ToString(argAt(args, 0), 0)), nil
	})

	// Sb(value): wrap as a back-quoted, pretty-printed debug dump, for
	// diagnostics embedded directly in a document's output.
	r.Register("Sb", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		v := argAt(args, 0)
		return String(fmt.Sprintf("`%# v`", pretty.Formatter(v.ToGo()))), nil
	})

	// if(cond, then, else): the three-argument conditional.
	r.Register("if", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		cond, err := requireArg("if", args, 0)
		if err != nil {
			return Value{}, err
		}
		if cond.Truthy() {
			return argAt(args, 1), nil
		}
		return argAt(args, 2), nil
	})
}

func lambdaFromValue(v Value) (*Lambda, bool) {
	if v.Kind() != KindString {
		return nil, false
	}
	return ParseLambdaString(v.Str())
}
