package ison

import (
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"
)

func strArg(name string, args []Value, i int) (string, error) {
	v, err := requireArg(name, args, i)
	if err != nil {
		return "", err
	}
	if v.Kind() != KindString {
		return "", FuncError(name, "argument %d is not a string", i+1)
	}
	return v.Str(), nil
}

// registerString installs string formatting and case-conversion
// built-ins, the latter grounded on iancoleman/strcase as used elsewhere
// in the dependency stack.
func registerString(r *FunctionRegistry) {
	r.Register("concat", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		var b strings.Builder
		for _, a := range args {
			b.WriteString(stringifySubstitution(a))
		}
		return String(b.String()), nil
	})
	r.Register("len", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		v, err := requireArg("len", args, 0)
		if err != nil {
			return Value{}, err
		}
		switch v.Kind() {
		case KindString:
			return Int(int64(len([]rune(v.Str())))), nil
		case KindList:
			return Int(int64(len(v.List()))), nil
		case KindMap:
			return Int(int64(v.Map().Len())), nil
		default:
			return Value{}, FuncError("len", "argument has no length")
		}
	})
	r.Register("upper", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		s, err := strArg("upper", args, 0)
		if err != nil {
			return Value{}, err
		}
		return String(strings.ToUpper(s)), nil
	})
	r.Register("lower", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		s, err := strArg("lower", args, 0)
		if err != nil {
			return Value{}, err
		}
		return String(strings.ToLower(s)), nil
	})
	r.Register("trim", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		s, err := strArg("trim", args, 0)
		if err != nil {
			return Value{}, err
		}
		return String(strings.TrimSpace(s)), nil
	})
	r.Register("str.snake", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		s, err := strArg("str.snake", args, 0)
		if err != nil {
			return Value{}, err
		}
		return String(strcase.ToSnake(s)), nil
	})
	r.Register("str.camel", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		s, err := strArg("str.camel", args, 0)
		if err != nil {
			return Value{}, err
		}
		return String(strcase.ToCamel(s)), nil
	})
	r.Register("str.kebab", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		s, err := strArg("str.kebab", args, 0)
		if err != nil {
			return Value{}, err
		}
		return String(strcase.ToKebab(s)), nil
	})
	r.Register("str.screamingSnake", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		s, err := strArg("str.screamingSnake", args, 0)
		if err != nil {
			return Value{}, err
		}
		return String(strcase.ToScreamingSnake(s)), nil
	})
	r.Register("split", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		s, err := strArg("split", args, 0)
		if err != nil {
			return Value{}, err
		}
		sep, err := strArg("split", args, 1)
		if err != nil {
			return Value{}, err
		}
		parts := strings.Split(s, sep)
		out := make([]Value, len(parts))
		for i, p := range parts {
			out[i] = String(p)
		}
		return ListOf(out), nil
	})
	r.Register("join", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		list, err := requireArg("join", args, 0)
		if err != nil {
			return Value{}, err
		}
		if list.Kind() != KindList {
			return Value{}, FuncError("join", "first argument is not a list")
		}
		sep := ""
		if len(args) > 1 {
			sep, _ = strArg("join", args, 1)
		}
		parts := make([]string, len(list.List()))
		for i, v := range list.List() {
			parts[i] = stringifySubstitution(v)
		}
		return String(strings.Join(parts, sep)), nil
	})
	r.Register("replace", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		s, err := strArg("replace", args, 0)
		if err != nil {
			return Value{}, err
		}
		old, err := strArg("replace", args, 1)
		if err != nil {
			return Value{}, err
		}
		repl, err := strArg("replace", args, 2)
		if err != nil {
			return Value{}, err
		}
		return String(strings.ReplaceAll(s, old, repl)), nil
	})
	r.Register("contains", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		s, err := strArg("contains", args, 0)
		if err != nil {
			return Value{}, err
		}
		sub, err := strArg("contains", args, 1)
		if err != nil {
			return Value{}, err
		}
		return Bool(strings.Contains(s, sub)), nil
	})
	r.Register("to_int", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		v, err := requireArg("to_int", args, 0)
		if err != nil {
			return Value{}, err
		}
		switch v.Kind() {
		case KindInt:
			return v, nil
		case KindFloat:
			return Int(int64(v.Float())), nil
		case KindString:
			i, convErr := strconv.ParseInt(strings.TrimSpace(v.Str()), 10, 64)
			if convErr != nil {
				return Value{}, FuncError("to_int", "cannot parse %q as int", v.Str())
			}
			return Int(i), nil
		default:
			return Value{}, FuncError("to_int", "cannot convert %s to int", v.Kind())
		}
	})
	r.Register("to_string", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		return String(stringifySubstitution(argAt(args, 0))), nil
	})
}
