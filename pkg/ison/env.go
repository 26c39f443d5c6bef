package ison

// VarKind identifies one of the five variable kinds carried by the
// environment (§3 Environment, §9 design notes).
type VarKind int

const (
	KindLocals VarKind = iota
	KindGlobals
	KindRuntime
	KindFuncLocals
	KindFuncGlobals
)

// varFrame holds one kind's bindings plus its "already evaluated" set,
// per §3: "The evaluator owns, for each variable kind, a mapping
// name -> Value plus a set already_evaluated subset of names."
type varFrame struct {
	vars    *OMap
	evalSet map[string]bool
}

func newVarFrame() *varFrame {
	return &varFrame{vars: NewOMap(), evalSet: map[string]bool{}}
}

// Environment is the evaluator's variable environment (§3, §9). Locals
// and function-locals are LIFO stacks ("@loc-s"/"@func-loc-s" in spec's
// internal-state naming) that are always pushed/popped together so
// their depth stays equal; globals and function-globals do not stack —
// they flow outward on return.
type Environment struct {
	localsStack     []*varFrame // @loc-s / @loc-eval-s
	funcLocalsStack []*varFrame // @func-loc-s

	globals     *varFrame // @glo
	runtime     *varFrame // @rtv
	funcGlobals *varFrame // @func-glo

	top Value // @top: root of the current document
}

func NewEnvironment(top Value) *Environment {
	return &Environment{
		localsStack:     []*varFrame{newVarFrame()},
		funcLocalsStack: []*varFrame{newVarFrame()},
		globals:         newVarFrame(),
		runtime:         newVarFrame(),
		funcGlobals:     newVarFrame(),
		top:             top,
	}
}

func (e *Environment) Top() Value { return e.top }

func (e *Environment) curLocals() *varFrame     { return e.localsStack[len(e.localsStack)-1] }
func (e *Environment) curFuncLocals() *varFrame { return e.funcLocalsStack[len(e.funcLocalsStack)-1] }

// PushScope pushes a fresh local/function-local frame pair (§4.6 step 4:
// "Push the current local / function-local variable dictionaries ...
// clear the top of each stack for a fresh nested scope.").
func (e *Environment) PushScope() {
	e.localsStack = append(e.localsStack, newVarFrame())
	e.funcLocalsStack = append(e.funcLocalsStack, newVarFrame())
}

// PopScope pops the most recently pushed local/function-local frame
// pair, maintaining the equal-depth invariant (§3).
func (e *Environment) PopScope() {
	n := len(e.localsStack)
	e.localsStack = e.localsStack[:n-1]
	e.funcLocalsStack = e.funcLocalsStack[:n-1]
}

func (e *Environment) frame(kind VarKind) *varFrame {
	switch kind {
	case KindLocals:
		return e.curLocals()
	case KindGlobals:
		return e.globals
	case KindRuntime:
		return e.runtime
	case KindFuncLocals:
		return e.curFuncLocals()
	case KindFuncGlobals:
		return e.funcGlobals
	}
	return nil
}

// Define installs a binding for the given kind. It does not mark it
// evaluated; evaluated status is set explicitly once the value has been
// walked (§3: "pending" until resolved).
func (e *Environment) Define(kind VarKind, name string, v Value) {
	e.frame(kind).vars.Set(name, v)
}

func (e *Environment) MarkEvaluated(kind VarKind, name string) {
	e.frame(kind).evalSet[name] = true
}

func (e *Environment) IsEvaluated(kind VarKind, name string) bool {
	return e.frame(kind).evalSet[name]
}

// Lookup searches locals (stack, most recent frame first) -> globals ->
// runtime -> function-locals (stack, most recent frame first) ->
// function-globals, the order fixed by §3/§4.5. It returns the value,
// which kind it was found in, and whether it is already marked evaluated.
func (e *Environment) Lookup(name string) (Value, VarKind, bool, bool) {
	order := []VarKind{KindLocals, KindGlobals, KindRuntime, KindFuncLocals, KindFuncGlobals}
	for _, k := range order {
		frames := []*varFrame{e.frame(k)}
		switch k {
		case KindLocals:
			frames = e.localsStack
		case KindFuncLocals:
			frames = e.funcLocalsStack
		}
		for i := len(frames) - 1; i >= 0; i-- {
			f := frames[i]
			if v, ok := f.vars.Get(name); ok {
				return v, k, f.evalSet[name], true
			}
		}
	}
	return Value{}, 0, false, false
}

func (e *Environment) GlobalsFrame() *OMap     { return e.globals.vars }
func (e *Environment) RuntimeFrame() *OMap     { return e.runtime.vars }
func (e *Environment) FuncGlobalsFrame() *OMap { return e.funcGlobals.vars }
func (e *Environment) LocalsFrame() *OMap      { return e.curLocals().vars }
func (e *Environment) FuncLocalsFrame() *OMap  { return e.curFuncLocals().vars }

// ctxFrame carries the @ctx/@key/@value bindings pushed during key
// expansion (§4.6, §9 design notes), suffixed (-1, -2, ...) under
// nested expansions to disambiguate.
type ctxFrame struct {
	ctx, key, value Value
}

// KeyContext is a stack of ctxFrame, exposed to reference resolution as
// @ctx/@key/@value (and @ctx-1/@key-1/@value-1 for the enclosing frame,
// etc.).
type KeyContext struct {
	frames []ctxFrame
}

func (kc *KeyContext) Push(ctx, key, value Value) {
	kc.frames = append(kc.frames, ctxFrame{ctx: ctx, key: key, value: value})
}

func (kc *KeyContext) Pop() {
	kc.frames = kc.frames[:len(kc.frames)-1]
}

// Lookup resolves "@ctx"/"@key"/"@value" (current frame) or
// "@ctx-N"/"@key-N"/"@value-N" (N frames up from current, 1-based).
func (kc *KeyContext) Lookup(name string) (Value, bool) {
	if len(kc.frames) == 0 {
		return Value{}, false
	}
	base, depth := name, 0
	if idx := lastDash(name); idx >= 0 {
		if n, ok := parseSuffix(name[idx+1:]); ok {
			base = name[:idx]
			depth = n
		}
	}
	frameIdx := len(kc.frames) - 1 - depth
	if frameIdx < 0 || frameIdx >= len(kc.frames) {
		return Value{}, false
	}
	f := kc.frames[frameIdx]
	switch base {
	case "@ctx":
		return f.ctx, true
	case "@key":
		return f.key, true
	case "@value":
		return f.value, true
	}
	return Value{}, false
}

func lastDash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '-' {
			return i
		}
	}
	return -1
}

func parseSuffix(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
