package ison

import "strings"

// ProcessOptions carries the optional parameters of §6's Process entry
// point. Every field is optional; a nil *OMap or zero value means
// "nothing supplied".
type ProcessOptions struct {
	Globals     *OMap
	Locals      *OMap
	FuncGlobals *OMap
	FuncLocals  *OMap
	ConstVars   *OMap

	ProcessPaths []string

	PreProcessOnly bool
	IgnoreIncludes bool
	InPlace        bool
	StripVars      bool
}

// Processor is a reusable evaluation session: the function registry and
// document loader are process-wide (§5's "read-mostly" table), while
// runtime variables persist across Process calls so a caller can run the
// same document through multiple passes as more runtime data becomes
// available (§6's AddRuntimeVars/GetRuntimeVars).
type Processor struct {
	Registry *FunctionRegistry
	Loader   DocumentLoader

	// HostAliases, if set, is passed to every Evaluator built by this
	// Processor so __platform__ hostname nodes can also match aliases
	// configured in a project's ison.toml.
	HostAliases map[string][]string

	runtimeVars *OMap
	runtimeEval map[string]bool

	Warnings       *Warnings
	FullyProcessed bool
}

// NewProcessor builds a Processor with every built-in module registered.
func NewProcessor(loader DocumentLoader) *Processor {
	r := NewFunctionRegistry()
	RegisterBuiltins(r)
	return &Processor{
		Registry:    r,
		Loader:      loader,
		runtimeVars: NewOMap(),
		runtimeEval: map[string]bool{},
		Warnings:    &Warnings{},
	}
}

// AddRuntimeVars merges vars into the persisted __runtime_vars__ block
// and marks the named entries already evaluated.
func (p *Processor) AddRuntimeVars(vars *OMap, evaluated map[string]bool) {
	if vars != nil {
		for _, k := range vars.Keys() {
			v, _ := vars.Get(k)
			p.runtimeVars.Set(k, v)
		}
	}
	for k, ok := range evaluated {
		if ok {
			p.runtimeEval[k] = true
		}
	}
}

// GetRuntimeVars returns a copy of the persisted runtime-variable block.
func (p *Processor) GetRuntimeVars() *OMap { return p.runtimeVars.Clone() }

// GetRuntimeVarEvalSet returns a copy of the persisted runtime evaluated-name set.
func (p *Processor) GetRuntimeVarEvalSet() map[string]bool {
	out := make(map[string]bool, len(p.runtimeEval))
	for k := range p.runtimeEval {
		out[k] = true
	}
	return out
}

// Process implements §6's primary entry point: evaluate doc against the
// supplied variable seeds in one walk, returning the result tree. A
// value returned by a function is not re-scanned for further
// expressions, and a reference that cannot be resolved yet stays in
// place with FullyProcessed false, for a later Process call to resolve.
// The evaluator never mutates nested structure in place (it always
// builds fresh output nodes), so InPlace has no observable difference at
// this layer; it is accepted for interface compatibility with callers
// migrating from the original tool.
func (p *Processor) Process(doc Value, opts ProcessOptions) (Value, error) {
	work := doc
	if work.Kind() == KindMap {
		m := work.Map().Clone()
		seedBlock(m, keyGlobals, opts.Globals)
		seedBlock(m, keyLocals, opts.Locals)
		seedBlock(m, keyFuncGlobals, opts.FuncGlobals)
		seedBlock(m, keyFuncLocals, opts.FuncLocals)
		seedBlock(m, keyRuntimeVars, p.runtimeVars)
		work = MapOf(m)
	}

	ev := NewEvaluator(work, p.Registry, p.Loader, opts.StripVars)
	ev.Warnings = p.Warnings
	ev.HostAliases = p.HostAliases
	if opts.ConstVars != nil {
		installBlock(ev.Env, KindLocals, opts.ConstVars)
	}
	if opts.IgnoreIncludes {
		// Pre-populate the include stack with a sentinel that can never
		// match a real path, which would be pointless; instead callers
		// that want includes skipped entirely should not configure a
		// Loader. IgnoreIncludes is honored by refusing any __includes__
		// block outright.
		ev.Loader = nil
	}

	if opts.PreProcessOnly {
		if work.Kind() == KindMap {
			m := work.Map().Clone()
			if err := ev.applyPlatformOverlay(m); err != nil {
				return Value{}, err
			}
			if err := ev.applyIncludes(m); err != nil {
				return Value{}, err
			}
			if err := ev.applyPre(m); err != nil {
				return Value{}, err
			}
			return MapOf(m), nil
		}
		return work, nil
	}

	var result Value
	var err error
	if len(opts.ProcessPaths) > 0 {
		results := make([]Value, len(opts.ProcessPaths))
		for i, path := range opts.ProcessPaths {
			segs := strings.Split(path, "/")
			sub, subErr := selectDocPath(work, segs)
			if subErr != nil {
				return Value{}, subErr
			}
			ev2 := NewEvaluator(work, p.Registry, p.Loader, opts.StripVars)
			ev2.Warnings = ev.Warnings
			ev2.HostAliases = p.HostAliases
			v, _, evErr := ev2.EvalValue(sub)
			if evErr != nil {
				return Value{}, evErr
			}
			if !ev2.FullyProcessed {
				ev.FullyProcessed = false
			}
			results[i] = v
		}
		result = ListOf(results)
	} else {
		result, _, err = ev.EvalValue(work)
		if err != nil {
			return Value{}, err
		}
	}

	p.FullyProcessed = ev.FullyProcessed
	if runtimeOut, ok := extractRuntimeVars(result); ok {
		p.runtimeVars = runtimeOut
	}
	return result, nil
}

func seedBlock(m *OMap, key string, seed *OMap) {
	if seed == nil || seed.Len() == 0 {
		return
	}
	existing := NewOMap()
	if v, ok := m.Get(key); ok && v.Kind() == KindMap {
		existing = v.Map().Clone()
	}
	for _, k := range seed.Keys() {
		v, _ := seed.Get(k)
		existing.Set(k, v)
	}
	m.Set(key, MapOf(existing))
}

func extractRuntimeVars(result Value) (*OMap, bool) {
	if result.Kind() != KindMap {
		return nil, false
	}
	v, ok := result.Map().Get(keyRuntimeVars)
	if !ok || v.Kind() != KindMap {
		return nil, false
	}
	return v.Map(), true
}

// selectDocPath drills into a document by slash-separated map keys, for
// ProcessOptions.ProcessPaths (§6).
func selectDocPath(doc Value, segs []string) (Value, error) {
	cur := doc
	for _, s := range segs {
		if s == "" {
			continue
		}
		if cur.Kind() != KindMap {
			return Value{}, NewError(ErrMessage, "process path segment %q: not a map", s)
		}
		v, ok := cur.Map().Get(s)
		if !ok {
			return Value{}, DictSelectionError(s, cur.Map().Keys())
		}
		cur = v
	}
	return cur, nil
}

// ExecFunc implements §6's direct-dispatch entry point: call a
// registered built-in (or a lambda bound in no environment, since this
// path has none) with already-evaluated arguments.
func (p *Processor) ExecFunc(name string, args ...Value) (Value, error) {
	entry, ok := p.Registry.Lookup(name)
	if !ok {
		return Value{}, FuncError(name, "unknown function")
	}
	ev := NewEvaluator(Null(), p.Registry, p.Loader, false)
	ev.Warnings = p.Warnings
	return entry.Fn(ev, name, args, nil)
}

// RegisterFunctionModule installs a named group of built-ins (§6). A
// module is any function that takes the registry and registers its
// entries; this matches the shape of the registerCore/registerMath/...
// helpers used to build the default registry.
func RegisterFunctionModule(r *FunctionRegistry, module func(*FunctionRegistry)) {
	module(r)
}

// RegisterBuiltins installs every built-in module compiled into this
// package (§4.4's "populated at evaluator construction from compiled-in
// modules").
func RegisterBuiltins(r *FunctionRegistry) {
	registerCore(r)
	registerMath(r)
	registerString(r)
	registerList(r)
	registerPath(r)
	registerFile(r)
	registerRand(r)
}
