package ison

import "sort"

// registerList installs list and map combinators.
func registerList(r *FunctionRegistry) {
	// map(lambda, list): calls lambda once per element, positionally,
	// collecting the results — the unnamed-single-list sibling of
	// !foreach, which requires named list arguments to zip.
	r.Register("map", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		lamVal, err := requireArg("map", args, 0)
		if err != nil {
			return Value{}, err
		}
		lam, ok := lambdaFromValue(lamVal)
		if !ok {
			return Value{}, FuncError("map", "first argument is not a lambda")
		}
		list, err := requireArg("map", args, 1)
		if err != nil {
			return Value{}, err
		}
		if list.Kind() != KindList {
			return Value{}, FuncError("map", "second argument is not a list")
		}
		out := make([]Value, len(list.List()))
		for i, e := range list.List() {
			result, _ := lam.Apply([]Value{e}, nil)
			out[i] = result
		}
		return ListOf(out), nil
	})

	// filter(lambda, list): keeps the elements for which lambda, called
	// positionally with that element, returns a truthy value.
	r.Register("filter", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		lamVal, err := requireArg("filter", args, 0)
		if err != nil {
			return Value{}, err
		}
		lam, ok := lambdaFromValue(lamVal)
		if !ok {
			return Value{}, FuncError("filter", "first argument is not a lambda")
		}
		list, err := requireArg("filter", args, 1)
		if err != nil {
			return Value{}, err
		}
		if list.Kind() != KindList {
			return Value{}, FuncError("filter", "second argument is not a list")
		}
		var out []Value
		for _, e := range list.List() {
			result, _ := lam.Apply([]Value{e}, nil)
			if result.Truthy() {
				out = append(out, e)
			}
		}
		return ListOf(out), nil
	})

	// reduce(lambda, list, initial): folds lambda(accumulator, element)
	// left to right over list, starting from initial.
	r.Register("reduce", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		lamVal, err := requireArg("reduce", args, 0)
		if err != nil {
			return Value{}, err
		}
		lam, ok := lambdaFromValue(lamVal)
		if !ok {
			return Value{}, FuncError("reduce", "first argument is not a lambda")
		}
		list, err := requireArg("reduce", args, 1)
		if err != nil {
			return Value{}, err
		}
		if list.Kind() != KindList {
			return Value{}, FuncError("reduce", "second argument is not a list")
		}
		acc, err := requireArg("reduce", args, 2)
		if err != nil {
			return Value{}, err
		}
		for _, e := range list.List() {
			acc, _ = lam.Apply([]Value{acc, e}, nil)
		}
		return acc, nil
	})

	// zip(list, ...): combines corresponding elements of each list argument
	// into a list of lists, stopping at the shortest, grounded on the
	// original's "group" function (list(zip(*args))).
	r.Register("zip", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		if len(args) == 0 {
			return Value{}, FuncError("zip", "requires at least 1 argument")
		}
		n := -1
		for i, a := range args {
			if a.Kind() != KindList {
				return Value{}, FuncError("zip", "argument %d is not a list", i+1)
			}
			if n == -1 || len(a.List()) < n {
				n = len(a.List())
			}
		}
		out := make([]Value, n)
		for i := 0; i < n; i++ {
			tuple := make([]Value, len(args))
			for j, a := range args {
				tuple[j] = a.List()[i]
			}
			out[i] = ListOf(tuple)
		}
		return ListOf(out), nil
	})

	// sort(list, reverse?): returns a sorted copy of list, comparing
	// numbers numerically and anything else by its string rendering.
	r.Register("sort", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		list, err := requireArg("sort", args, 0)
		if err != nil {
			return Value{}, err
		}
		if list.Kind() != KindList {
			return Value{}, FuncError("sort", "first argument is not a list")
		}
		reverse := false
		if len(args) > 1 {
			reverse = args[1].Truthy()
		}
		out := append([]Value{}, list.List()...)
		sort.SliceStable(out, func(i, j int) bool {
			less := lessValue(out[i], out[j])
			if reverse {
				return !less && !Equal(out[i], out[j])
			}
			return less
		})
		return ListOf(out), nil
	})
	r.Register("first", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		v, err := requireArg("first", args, 0)
		if err != nil {
			return Value{}, err
		}
		if v.Kind() != KindList || len(v.List()) == 0 {
			return Value{}, FuncError("first", "argument is not a non-empty list")
		}
		return v.List()[0], nil
	})
	r.Register("last", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		v, err := requireArg("last", args, 0)
		if err != nil {
			return Value{}, err
		}
		if v.Kind() != KindList || len(v.List()) == 0 {
			return Value{}, FuncError("last", "argument is not a non-empty list")
		}
		return v.List()[len(v.List())-1], nil
	})
	r.Register("reverse", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		v, err := requireArg("reverse", args, 0)
		if err != nil {
			return Value{}, err
		}
		if v.Kind() != KindList {
			return Value{}, FuncError("reverse", "argument is not a list")
		}
		src := v.List()
		out := make([]Value, len(src))
		for i, e := range src {
			out[len(src)-1-i] = e
		}
		return ListOf(out), nil
	})
	r.Register("flatten", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		v, err := requireArg("flatten", args, 0)
		if err != nil {
			return Value{}, err
		}
		if v.Kind() != KindList {
			return Value{}, FuncError("flatten", "argument is not a list")
		}
		var out []Value
		for _, e := range v.List() {
			if e.Kind() == KindList {
				out = append(out, e.List()...)
			} else {
				out = append(out, e)
			}
		}
		return ListOf(out), nil
	})
	r.Register("append", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		v, err := requireArg("append", args, 0)
		if err != nil {
			return Value{}, err
		}
		if v.Kind() != KindList {
			return Value{}, FuncError("append", "first argument is not a list")
		}
		out := append(append([]Value{}, v.List()...), args[1:]...)
		return ListOf(out), nil
	})
	r.Register("range", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		if len(args) == 0 {
			return Value{}, FuncError("range", "requires at least 1 argument")
		}
		start, end, step := int64(0), int64(0), int64(1)
		switch len(args) {
		case 1:
			end = args[0].Int()
		case 2:
			start, end = args[0].Int(), args[1].Int()
		default:
			start, end, step = args[0].Int(), args[1].Int(), args[2].Int()
		}
		if step == 0 {
			return Value{}, FuncError("range", "step cannot be zero")
		}
		var out []Value
		if step > 0 {
			for i := start; i < end; i += step {
				out = append(out, Int(i))
			}
		} else {
			for i := start; i > end; i += step {
				out = append(out, Int(i))
			}
		}
		return ListOf(out), nil
	})
	r.Register("keys", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		v, err := requireArg("keys", args, 0)
		if err != nil {
			return Value{}, err
		}
		if v.Kind() != KindMap {
			return Value{}, FuncError("keys", "argument is not a map")
		}
		ks := v.Map().Keys()
		out := make([]Value, len(ks))
		for i, k := range ks {
			out[i] = String(k)
		}
		return ListOf(out), nil
	})
	r.Register("values", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		v, err := requireArg("values", args, 0)
		if err != nil {
			return Value{}, err
		}
		if v.Kind() != KindMap {
			return Value{}, FuncError("values", "argument is not a map")
		}
		ks := v.Map().Keys()
		out := make([]Value, len(ks))
		for i, k := range ks {
			out[i], _ = v.Map().Get(k)
		}
		return ListOf(out), nil
	})
	r.Register("has_key", func(ev *Evaluator, name string, args []Value, named map[string]Value) (Value, error) {
		m, err := requireArg("has_key", args, 0)
		if err != nil {
			return Value{}, err
		}
		key, err := strArg("has_key", args, 1)
		if err != nil {
			return Value{}, err
		}
		if m.Kind() != KindMap {
			return Value{}, FuncError("has_key", "first argument is not a map")
		}
		_, ok := m.Map().Get(key)
		return Bool(ok), nil
	})
}

// lessValue orders two values for sort: numerically if both are numbers,
// lexically by their string rendering otherwise.
func lessValue(a, b Value) bool {
	af, aok := numOf(a)
	bf, bok := numOf(b)
	if aok && bok {
		return af < bf
	}
	return stringifySubstitution(a) < stringifySubstitution(b)
}
