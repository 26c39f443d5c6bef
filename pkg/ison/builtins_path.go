package ison

import "path/filepath"

// registerPath installs path-inspection built-ins, each registered under
// its exact "path."-prefixed name, grounded on the standard filepath package — no
// third-party path-manipulation library appears anywhere in the
// retrieved dependency set, so this one concern stays on the standard
// library (documented in DESIGN.md).
func registerPath(r *FunctionRegistry) {
	r.Register("path.join", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			if a.Kind() != KindString {
				return Value{}, FuncError("path.join", "argument %d is not a string", i+1)
			}
			parts[i] = a.Str()
		}
		return String(filepath.Join(parts...)), nil
	})
	r.Register("path.dirname", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		s, err := strArg("path.dirname", args, 0)
		if err != nil {
			return Value{}, err
		}
		return String(filepath.Dir(s)), nil
	})
	r.Register("path.basename", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		s, err := strArg("path.basename", args, 0)
		if err != nil {
			return Value{}, err
		}
		return String(filepath.Base(s)), nil
	})
	r.Register("path.ext", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		s, err := strArg("path.ext", args, 0)
		if err != nil {
			return Value{}, err
		}
		return String(filepath.Ext(s)), nil
	})
	r.Register("path.abs", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		s, err := strArg("path.abs", args, 0)
		if err != nil {
			return Value{}, err
		}
		abs, absErr := filepath.Abs(s)
		if absErr != nil {
			return Value{}, FuncError("path.abs", "%v", absErr)
		}
		return String(abs), nil
	})
}
