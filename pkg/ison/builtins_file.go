package ison

import (
	"os"
	"path/filepath"
)

// registerFile installs file read/write/exists and directory-listing
// built-ins. No third-party filesystem library appears in the retrieved
// dependency set for these simple blocking operations (§5: "blocking
// calls made on the evaluating thread"), so this concern stays on the
// standard library (documented in DESIGN.md).
func registerFile(r *FunctionRegistry) {
	r.Register("file.read", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		path, err := strArg(name, args, 0)
		if err != nil {
			return Value{}, err
		}
		data, rerr := os.ReadFile(path)
		if rerr != nil {
			return Value{}, FuncError(name, "%v", rerr)
		}
		return String(string(data)), nil
	})
	r.Register("file.write", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		path, err := strArg(name, args, 0)
		if err != nil {
			return Value{}, err
		}
		content, err := strArg(name, args, 1)
		if err != nil {
			return Value{}, err
		}
		if werr := os.WriteFile(path, []byte(content), 0o644); werr != nil {
			return Value{}, FuncError(name, "%v", werr)
		}
		return Bool(true), nil
	})
	r.Register("file.exists", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		path, err := strArg(name, args, 0)
		if err != nil {
			return Value{}, err
		}
		_, statErr := os.Stat(path)
		return Bool(statErr == nil), nil
	})
	r.Register("file.list_dir", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		path, err := strArg(name, args, 0)
		if err != nil {
			return Value{}, err
		}
		entries, rerr := os.ReadDir(path)
		if rerr != nil {
			return Value{}, FuncError(name, "%v", rerr)
		}
		out := make([]Value, len(entries))
		for i, e := range entries {
			out[i] = String(e.Name())
		}
		return ListOf(out), nil
	})
	r.Register("file.glob", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		pattern, err := strArg(name, args, 0)
		if err != nil {
			return Value{}, err
		}
		matches, gerr := filepath.Glob(pattern)
		if gerr != nil {
			return Value{}, FuncError(name, "%v", gerr)
		}
		out := make([]Value, len(matches))
		for i, m := range matches {
			out[i] = String(m)
		}
		return ListOf(out), nil
	})
}
