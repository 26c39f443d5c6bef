package ison

import "math"

func numOf(v Value) (float64, bool) {
	return v.AsFloat()
}

func isAllInt(vs []Value) bool {
	for _, v := range vs {
		if v.Kind() != KindInt {
			return false
		}
	}
	return true
}

func foldArith(name string, args []Value, ident float64, op func(a, b float64) float64) (Value, error) {
	if len(args) == 0 {
		return Float(ident), nil
	}
	acc, ok := numOf(args[0])
	if !ok {
		return Value{}, FuncError(name, "argument 1 is not a number")
	}
	for i, a := range args[1:] {
		f, ok := numOf(a)
		if !ok {
			return Value{}, FuncError(name, "argument %d is not a number", i+2)
		}
		acc = op(acc, f)
	}
	if isAllInt(args) {
		return Int(int64(acc)), nil
	}
	return Float(acc), nil
}

// registerMath installs arithmetic, comparison, and logic built-ins.
// Function names are words, not symbols: the tokenizer's func-name
// character set (§4.1) excludes '+', '/', '%', so operators cannot be
// spelled with their usual symbols.
func registerMath(r *FunctionRegistry) {
	r.Register("add", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		return foldArith("add", args, 0, func(a, b float64) float64 { return a + b })
	})
	r.Register("sub", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		if len(args) == 1 {
			return foldArith("sub", []Value{Int(0), args[0]}, 0, func(a, b float64) float64 { return a - b })
		}
		return foldArith("sub", args, 0, func(a, b float64) float64 { return a - b })
	})
	r.Register("mul", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		return foldArith("mul", args, 1, func(a, b float64) float64 { return a * b })
	})
	r.Register("div", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		if len(args) < 2 {
			return Value{}, FuncError("div", "requires at least 2 arguments")
		}
		acc, _ := numOf(args[0])
		for i, a := range args[1:] {
			f, ok := numOf(a)
			if !ok {
				return Value{}, FuncError("div", "argument %d is not a number", i+2)
			}
			if f == 0 {
				return Value{}, FuncError("div", "division by zero")
			}
			acc /= f
		}
		return Float(acc), nil
	})
	r.Register("mod", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		a, err := requireArg("mod", args, 0)
		if err != nil {
			return Value{}, err
		}
		b, err := requireArg("mod", args, 1)
		if err != nil {
			return Value{}, err
		}
		if b.Kind() == KindInt && b.Int() != 0 && a.Kind() == KindInt {
			return Int(a.Int() % b.Int()), nil
		}
		af, _ := numOf(a)
		bf, _ := numOf(b)
		if bf == 0 {
			return Value{}, FuncError("mod", "division by zero")
		}
		return Float(math.Mod(af, bf)), nil
	})
	r.Register("neg", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		v, err := requireArg("neg", args, 0)
		if err != nil {
			return Value{}, err
		}
		if v.Kind() == KindInt {
			return Int(-v.Int()), nil
		}
		f, ok := numOf(v)
		if !ok {
			return Value{}, FuncError("neg", "argument is not a number")
		}
		return Float(-f), nil
	})
	r.Register("abs", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		v, err := requireArg("abs", args, 0)
		if err != nil {
			return Value{}, err
		}
		if v.Kind() == KindInt {
			if v.Int() < 0 {
				return Int(-v.Int()), nil
			}
			return v, nil
		}
		f, _ := numOf(v)
		return Float(math.Abs(f)), nil
	})

	cmp := func(fname string, pred func(int) bool) {
		r.Register(fname, func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
			a, err := requireArg(name, args, 0)
			if err != nil {
				return Value{}, err
			}
			b, err := requireArg(name, args, 1)
			if err != nil {
				return Value{}, err
			}
			af, aok := numOf(a)
			bf, bok := numOf(b)
			if aok && bok {
				switch {
				case af < bf:
					return Bool(pred(-1)), nil
				case af > bf:
					return Bool(pred(1)), nil
				default:
					return Bool(pred(0)), nil
				}
			}
			if a.Kind() == KindString && b.Kind() == KindString {
				switch {
				case a.Str() < b.Str():
					return Bool(pred(-1)), nil
				case a.Str() > b.Str():
					return Bool(pred(1)), nil
				default:
					return Bool(pred(0)), nil
				}
			}
			return Value{}, FuncError(name, "arguments are not comparable")
		})
	}
	cmp("lt", func(c int) bool { return c < 0 })
	cmp("lte", func(c int) bool { return c <= 0 })
	cmp("gt", func(c int) bool { return c > 0 })
	cmp("gte", func(c int) bool { return c >= 0 })

	r.Register("eq", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		a, err := requireArg("eq", args, 0)
		if err != nil {
			return Value{}, err
		}
		b, err := requireArg("eq", args, 1)
		if err != nil {
			return Value{}, err
		}
		return Bool(Equal(a, b)), nil
	})
	r.Register("ne", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		a, err := requireArg("ne", args, 0)
		if err != nil {
			return Value{}, err
		}
		b, err := requireArg("ne", args, 1)
		if err != nil {
			return Value{}, err
		}
		return Bool(!Equal(a, b)), nil
	})
	r.Register("and", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		for _, a := range args {
			if !a.Truthy() {
				return Bool(false), nil
			}
		}
		return Bool(true), nil
	})
	r.Register("or", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		for _, a := range args {
			if a.Truthy() {
				return Bool(true), nil
			}
		}
		return Bool(false), nil
	})
	r.Register("not", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		v, err := requireArg("not", args, 0)
		if err != nil {
			return Value{}, err
		}
		return Bool(!v.Truthy()), nil
	})
}
