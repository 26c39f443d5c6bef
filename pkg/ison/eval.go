package ison

import (
	mathrand "math/rand"
	"sort"
	"strconv"
	"strings"
)

// Reserved top-level keys recognized by the evaluator (§3, §4.6, §9).
const (
	keyRuntimeVars = "__runtime_vars__"
	keyGlobals     = "__globals__"
	keyEvalGlobals = "__eval_globals__" // deprecated alias, merges into __globals__
	keyLocals      = "__locals__"
	keyEvalLocals  = "__eval_locals__" // deprecated alias, merges into __locals__
	keyFuncGlobals = "__func_globals__"
	keyFuncLocals  = "__func_locals__"
	keyIncludes    = "__includes__"
	keyPlatform    = "__platform__"
	keyPre         = "__pre__"
	keyLambdaMark  = "__lambda__"
)

var knownReservedKeys = map[string]bool{
	keyRuntimeVars: true,
	keyGlobals:     true,
	keyEvalGlobals: true,
	keyLocals:      true,
	keyEvalLocals:  true,
	keyFuncGlobals: true,
	keyFuncLocals:  true,
	keyIncludes:    true,
	keyPlatform:    true,
	keyPre:         true,
}

func isReservedKey(k string) bool {
	return len(k) >= 4 && strings.HasPrefix(k, "__") && strings.HasSuffix(k, "__")
}

// DocumentLoader resolves an __includes__ path to a parsed document tree.
// Implemented by the json5/document loader (§6 external interfaces).
type DocumentLoader interface {
	Load(path string) (Value, error)
}

// Evaluator is one Process() run's mutable state: the variable
// environment, the function registry, accumulated warnings, the
// @ctx/@key/@value stack used by key expansion, and the fully-processed
// bit (§4.6, §7).
type Evaluator struct {
	Env      *Environment
	Registry *FunctionRegistry
	Warnings *Warnings
	Ctx      *KeyContext
	Loader   DocumentLoader

	StripVars      bool
	FullyProcessed bool
	HostAliases    map[string][]string

	includeStack []string
	evalChain    []string

	rngs    map[string]*mathrand.Rand
	randSeq int
}

func NewEvaluator(top Value, registry *FunctionRegistry, loader DocumentLoader, stripVars bool) *Evaluator {
	return &Evaluator{
		Env:            NewEnvironment(top),
		Registry:       registry,
		Warnings:       &Warnings{},
		Ctx:            &KeyContext{},
		Loader:         loader,
		StripVars:      stripVars,
		FullyProcessed: true,
		rngs:           map[string]*mathrand.Rand{},
	}
}

func (ev *Evaluator) chain() []string { return ev.evalChain }

// EvalValue is the recursive evaluator walk of §4.6, dispatching on the
// node's kind. It returns the evaluated value and whether evaluation is
// still pending (a reference or function could not yet be resolved).
func (ev *Evaluator) EvalValue(v Value) (Value, bool, error) {
	switch v.Kind() {
	case KindMap:
		return ev.evalMapNode(v.Map())
	case KindList:
		return ev.evalListNode(v.List())
	case KindString:
		return ev.evalStringNode(v.Str())
	default:
		return v, false, nil
	}
}

// evalListNode implements §4.6's List node rule: a list whose first
// element is the literal string "__lambda__" is a lambda literal; every
// other list is evaluated element-wise in index order.
func (ev *Evaluator) evalListNode(items []Value) (Value, bool, error) {
	if len(items) > 0 && items[0].Kind() == KindString && items[0].Str() == keyLambdaMark {
		rest := items[1:]
		var body Value
		switch len(rest) {
		case 0:
			body = Null()
		case 1:
			body = rest[0]
		default:
			body = ListOf(rest)
		}
		lam := &Lambda{Body: body}
		return String(lam.String()), false, nil
	}

	out := make([]Value, len(items))
	anyPending := false
	for i, it := range items {
		v, pending, err := ev.EvalValue(it)
		if err != nil {
			return Value{}, false, WrapError(ErrArgListElement, err, "evaluating list element %d", i)
		}
		if pending {
			anyPending = true
			out[i] = it
			continue
		}
		out[i] = v
	}
	return ListOf(out), anyPending, nil
}

// evalStringNode implements §4.6's String node rule: tokenize, resolve
// every match, and either return the sole match's value directly (type
// preserved) or splice stringified substitutions into the surrounding
// text. A still-unresolved match is left textually intact and flips
// FullyProcessed false (§7 recovered-locally pending references).
func (ev *Evaluator) evalStringNode(s string) (Value, bool, error) {
	if _, ok := ParseLambdaString(s); ok {
		return String(s), false, nil
	}

	matches, err := Tokenize(s)
	if err != nil {
		return Value{}, false, StringMatchError(ErrStringMatch, s, 0, len(s), err)
	}
	if len(matches) == 0 {
		return String(s), false, nil
	}

	if len(matches) == 1 && matches[0].Start == 0 && matches[0].End == len(s) && matches[0].Func != "L" {
		v, pending, err := ev.callExpression(matches[0], s)
		if err != nil {
			return Value{}, false, StringMatchError(ErrStringMatch, s, matches[0].Start, matches[0].End, err)
		}
		if pending {
			ev.FullyProcessed = false
			return String(s), true, nil
		}
		return v, false, nil
	}

	var b strings.Builder
	last := 0
	pending := false
	for _, m := range matches {
		b.WriteString(s[last:m.Start])
		if m.Func == "L" {
			b.WriteString(m.Raw(s))
			last = m.End
			continue
		}
		v, pend, err := ev.callExpression(m, s)
		if err != nil {
			return Value{}, false, StringMatchError(ErrStringMatch, s, m.Start, m.End, err)
		}
		if pend {
			pending = true
			b.WriteString(m.Raw(s))
		} else {
			b.WriteString(stringifySubstitution(v))
		}
		last = m.End
	}
	b.WriteString(s[last:])
	if pending {
		ev.FullyProcessed = false
	}
	return String(b.String()), pending, nil
}

// callExpression resolves one tokenizer Match: a bare reference/path
// (empty Func) or a function call.
func (ev *Evaluator) callExpression(m Match, source string) (Value, bool, error) {
	if m.Func == "L" {
		return String(m.Raw(source)), false, nil
	}
	if m.Func == "" {
		return ev.callReference(m.Args)
	}
	return ev.callFunction(m.Func, m.Args)
}

// callReference implements §4.5's reference operator. The first
// top-level-comma slot is the ':'-delimited path (§4.5); any further
// slots are positional/named arguments applied to the resolved value
// when it is a lambda, matching the original's Reference function
// (core.py: iArgCnt>1 applies lp.Parse(xFunc, lLamPar) to the path
// result) — this is how a named lambda gets called (§8 scenario:
// "${greet, name=World}" calling a lambda bound in __func_globals__).
func (ev *Evaluator) callReference(argsText string) (Value, bool, error) {
	slots := SplitTopLevel(argsText, ',')
	if len(slots) <= 1 {
		v, pending, _, err := ev.resolveRefPath(argsText)
		return v, pending, err
	}

	v, pending, _, err := ev.resolveRefPath(slots[0])
	if err != nil || pending {
		return v, pending, err
	}

	var pos []Value
	named := map[string]Value{}
	for _, raw := range slots[1:] {
		if raw == "" {
			continue
		}
		slot := ClassifySlot(raw)
		vals, nm, pend, err := ev.evalSlot(slot)
		if err != nil {
			return Value{}, false, WrapError(ErrFuncArgs, err, "evaluating reference argument %q", raw)
		}
		if pend {
			return Value{}, true, nil
		}
		if nm != "" {
			if _, dup := named[nm]; dup {
				return Value{}, false, NamedArgError(nm)
			}
			named[nm] = vals[0]
		} else {
			pos = append(pos, vals...)
		}
	}

	lam, ok := lambdaFromValue(v)
	if !ok {
		return Value{}, false, NewError(ErrRefPath, "reference %q was given arguments but did not resolve to a lambda", slots[0])
	}
	result, _ := lam.Apply(pos, named)
	return result, false, nil
}

// callFunction implements §4.4's call resolution: a name bound to a
// lambda value is tried first, falling back to the registered built-in
// (with its dotted-namespace wildcard fallback).
func (ev *Evaluator) callFunction(name, argsText string) (Value, bool, error) {
	slots := SplitTopLevel(argsText, ',')
	var pos []Value
	named := map[string]Value{}
	for _, raw := range slots {
		if raw == "" {
			continue
		}
		slot := ClassifySlot(raw)
		vals, nm, pending, err := ev.evalSlot(slot)
		if err != nil {
			return Value{}, false, WrapError(ErrFuncArgs, err, "evaluating argument %q of %s", raw, name)
		}
		if pending {
			return Value{}, true, nil
		}
		if nm != "" {
			if _, dup := named[nm]; dup {
				return Value{}, false, NamedArgError(nm)
			}
			named[nm] = vals[0]
		} else {
			pos = append(pos, vals...)
		}
	}

	if v, kind, evaluated, found := ev.Env.Lookup(name); found {
		lamVal := v
		if !evaluated {
			nv, pending, err := ev.EvalValue(v)
			if err != nil {
				return Value{}, false, err
			}
			if pending {
				return Value{}, true, nil
			}
			ev.Env.Define(kind, name, nv)
			ev.Env.MarkEvaluated(kind, name)
			lamVal = nv
		}
		if lamVal.Kind() == KindString {
			if lam, ok := ParseLambdaString(lamVal.Str()); ok {
				result, _ := lam.Apply(pos, named)
				return result, false, nil
			}
		}
	}

	entry, ok := ev.Registry.Lookup(name)
	if !ok {
		return Value{}, false, FuncError(name, "unknown function")
	}
	result, err := entry.Fn(ev, name, pos, named)
	if err != nil {
		return Value{}, false, WrapError(ErrFunctionMessage, err, "calling %s", name)
	}
	return result, false, nil
}

// evalSlot evaluates one classified argument slot (§4.2 step 2) into
// zero or more positional values (more than one only for *$ unroll
// slots; a tuple slot yields one list value) or a single named value.
func (ev *Evaluator) evalSlot(slot ArgSlot) ([]Value, string, bool, error) {
	switch slot.Kind {
	case SlotPlaceholder:
		return []Value{String(slot.Raw)}, "", false, nil
	case SlotLiteral:
		return []Value{String(slot.Inner)}, "", false, nil
	case SlotUnroll:
		v, pending, err := ev.evalExprText(slot.Inner)
		if err != nil || pending {
			return nil, "", pending, err
		}
		if v.Kind() != KindList {
			return nil, "", false, NewError(ErrArgListElement, "unroll argument %q did not evaluate to a list", slot.Raw)
		}
		return v.List(), "", false, nil
	case SlotNamed:
		inner := ClassifySlot(slot.Inner)
		if inner.Kind == SlotUnroll {
			// A named argument whose value is "*$expr" keeps the whole
			// sequence intact (e.g. !foreach's per-argument lists); only a
			// bare positional "*$expr" splices (§4.4 foreach/where).
			v, pending, err := ev.evalExprText(inner.Inner)
			if err != nil || pending {
				return nil, "", pending, err
			}
			return []Value{v}, slot.Name, false, nil
		}
		vals, _, pending, err := ev.evalSlot(inner)
		if err != nil || pending {
			return nil, "", pending, err
		}
		if len(vals) != 1 {
			return nil, "", false, NewError(ErrArgString, "named argument %q must be a single value", slot.Name)
		}
		return vals, slot.Name, false, nil
	case SlotTuple:
		items := make([]Value, 0, len(slot.Tuple))
		for _, sub := range slot.Tuple {
			vs, _, pending, err := ev.evalSlot(sub)
			if err != nil || pending {
				return nil, "", pending, err
			}
			items = append(items, vs...)
		}
		return []Value{ListOf(items)}, "", false, nil
	default:
		v, pending, err := ev.evalExprText(slot.Raw)
		if err != nil || pending {
			return nil, "", pending, err
		}
		return []Value{v}, "", false, nil
	}
}

// evalExprText evaluates raw argument text (§4.2): JSON-like scalar
// literals parse directly, quoted literals are unescaped, everything
// else goes through the normal string evaluation pipeline.
func (ev *Evaluator) evalExprText(raw string) (Value, bool, error) {
	trimmed := strings.TrimSpace(raw)
	switch trimmed {
	case "true":
		return Bool(true), false, nil
	case "false":
		return Bool(false), false, nil
	case "null":
		return Null(), false, nil
	}
	if len(trimmed) >= 2 {
		q := trimmed[0]
		if (q == '"' || q == '\'') && trimmed[len(trimmed)-1] == q {
			return String(sWrapUnescape(trimmed[1 : len(trimmed)-1])), false, nil
		}
	}
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return Int(i), false, nil
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return Float(f), false, nil
	}
	return ev.evalStringNode(trimmed)
}

// evalMapNode implements §4.6's five-step Map node rule.
func (ev *Evaluator) evalMapNode(orig *OMap) (Value, bool, error) {
	m := orig.Clone()

	if err := ev.applyPlatformOverlay(m); err != nil {
		return Value{}, false, err
	}
	if err := ev.applyIncludes(m); err != nil {
		return Value{}, false, err
	}
	if err := ev.applyPre(m); err != nil {
		return Value{}, false, err
	}

	for _, k := range m.Keys() {
		if isReservedKey(k) && !knownReservedKeys[k] {
			return Value{}, false, NewError(ErrProcessKey, "unknown reserved key %q", k)
		}
	}

	runtimeBlock, err := collectVarBlock(m, keyRuntimeVars, "")
	if err != nil {
		return Value{}, false, err
	}
	globalsBlock, err := collectVarBlock(m, keyGlobals, keyEvalGlobals)
	if err != nil {
		return Value{}, false, err
	}
	localsBlock, err := collectVarBlock(m, keyLocals, keyEvalLocals)
	if err != nil {
		return Value{}, false, err
	}
	funcGlobalsBlock, err := collectVarBlock(m, keyFuncGlobals, "")
	if err != nil {
		return Value{}, false, err
	}
	funcLocalsBlock, err := collectVarBlock(m, keyFuncLocals, "")
	if err != nil {
		return Value{}, false, err
	}

	if err := checkDisjoint(map[string]*OMap{
		"__globals__":      globalsBlock,
		"__func_globals__": funcGlobalsBlock,
		"__locals__":       localsBlock,
		"__func_locals__":  funcLocalsBlock,
	}); err != nil {
		return Value{}, false, err
	}

	ev.Env.PushScope()
	defer ev.Env.PopScope()

	for _, k := range runtimeBlock.Keys() {
		if _, exists := ev.Env.RuntimeFrame().Get(k); exists {
			continue
		}
		v, _ := runtimeBlock.Get(k)
		ev.Env.Define(KindRuntime, k, v)
	}
	installBlock(ev.Env, KindGlobals, globalsBlock)
	installBlock(ev.Env, KindLocals, localsBlock)
	installBlock(ev.Env, KindFuncGlobals, funcGlobalsBlock)
	installBlock(ev.Env, KindFuncLocals, funcLocalsBlock)

	if err := ev.evalVarBlock(KindGlobals, globalsBlock); err != nil {
		return Value{}, false, err
	}
	if err := ev.evalVarBlock(KindLocals, localsBlock); err != nil {
		return Value{}, false, err
	}
	if err := ev.evalVarBlock(KindFuncGlobals, funcGlobalsBlock); err != nil {
		return Value{}, false, err
	}
	if err := ev.evalVarBlock(KindFuncLocals, funcLocalsBlock); err != nil {
		return Value{}, false, err
	}
	if err := ev.evalVarBlock(KindRuntime, runtimeBlock); err != nil {
		return Value{}, false, err
	}

	out := NewOMap()
	anyPending := false
	for _, k := range m.Keys() {
		if isReservedKey(k) {
			continue
		}
		valTemplate, _ := m.Get(k)
		pending, err := ev.evalKeyedChild(out, k, valTemplate)
		if err != nil {
			return Value{}, false, err
		}
		if pending {
			anyPending = true
		}
	}

	if !ev.StripVars {
		reattachBlock(out, ev.Env, keyRuntimeVars, KindRuntime, runtimeBlock)
		reattachBlock(out, ev.Env, keyGlobals, KindGlobals, globalsBlock)
		reattachBlock(out, ev.Env, keyLocals, KindLocals, localsBlock)
		reattachBlock(out, ev.Env, keyFuncGlobals, KindFuncGlobals, funcGlobalsBlock)
		reattachBlock(out, ev.Env, keyFuncLocals, KindFuncLocals, funcLocalsBlock)
	}

	return MapOf(out), anyPending, nil
}

func installBlock(env *Environment, kind VarKind, block *OMap) {
	for _, k := range block.Keys() {
		v, _ := block.Get(k)
		env.Define(kind, k, v)
	}
}

func reattachBlock(out *OMap, env *Environment, key string, kind VarKind, block *OMap) {
	if block.Len() == 0 {
		return
	}
	fresh := NewOMap()
	for _, k := range block.Keys() {
		v, ok := env.frame(kind).vars.Get(k)
		if !ok {
			v, _ = block.Get(k)
		}
		fresh.Set(k, v)
	}
	out.Set(key, MapOf(fresh))
}

// evalVarBlock evaluates each not-yet-evaluated name in a variable block,
// in insertion order, recording success in the kind's already_evaluated
// set (§3, §4.6 step 5).
func (ev *Evaluator) evalVarBlock(kind VarKind, block *OMap) error {
	for _, k := range block.Keys() {
		if ev.Env.IsEvaluated(kind, k) {
			continue
		}
		v, _ := ev.Env.frame(kind).vars.Get(k)
		ev.evalChain = append(ev.evalChain, k)
		nv, pending, err := ev.EvalValue(v)
		ev.evalChain = ev.evalChain[:len(ev.evalChain)-1]
		if err != nil {
			return WrapError(ErrMessage, err, "evaluating variable %q", k)
		}
		if pending {
			ev.FullyProcessed = false
			continue
		}
		ev.Env.Define(kind, k, nv)
		ev.Env.MarkEvaluated(kind, k)
	}
	return nil
}

// collectVarBlock reads a reserved map key (and its deprecated alias, if
// any) off parent, merging alias entries in and removing both keys from
// parent so they never reach the ordinary child-evaluation loop.
func collectVarBlock(parent *OMap, primary, alias string) (*OMap, error) {
	out := NewOMap()
	if v, ok := parent.Get(primary); ok {
		if v.Kind() != KindMap {
			return nil, NewError(ErrMessage, "%s must be a map", primary)
		}
		out = v.Map().Clone()
		parent.Delete(primary)
	}
	if alias != "" {
		if v, ok := parent.Get(alias); ok {
			if v.Kind() != KindMap {
				return nil, NewError(ErrMessage, "%s must be a map", alias)
			}
			for _, k := range v.Map().Keys() {
				if _, exists := out.Get(k); exists {
					return nil, NewError(ErrMessage, "duplicate variable %q across %s/%s", k, primary, alias)
				}
				vv, _ := v.Map().Get(k)
				out.Set(k, vv)
			}
			parent.Delete(alias)
		}
	}
	return out, nil
}

// checkDisjoint enforces §4.6 step 5's pairwise disjointness requirement
// across the four named variable blocks.
func checkDisjoint(blocks map[string]*OMap) error {
	names := make([]string, 0, len(blocks))
	for k := range blocks {
		names = append(names, k)
	}
	sort.Strings(names)
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			a, b := blocks[names[i]], blocks[names[j]]
			for _, k := range a.Keys() {
				if _, exists := b.Get(k); exists {
					return NewError(ErrMessage, "variable %q declared in both %s and %s", k, names[i], names[j])
				}
			}
		}
	}
	return nil
}

func stringifyKey(v Value) string {
	if v.Kind() == KindString {
		return v.Str()
	}
	return ToString(v, 0)
}

// evalKeyedChild implements §4.6 step 6's key-expansion rule: a map key
// consisting of a sole reference to a list or map expands into one child
// per element, binding @ctx/@key/@value; any other key substitutes
// textually and is processed once.
func (ev *Evaluator) evalKeyedChild(out *OMap, rawKey string, valTemplate Value) (bool, error) {
	matches, err := Tokenize(rawKey)
	if err != nil {
		return false, StringMatchError(ErrKeyStringMatch, rawKey, 0, len(rawKey), err)
	}

	sole := len(matches) == 1 && matches[0].Start == 0 && matches[0].End == len(rawKey) && matches[0].Func != "L"
	if !sole {
		finalKey, pending, err := ev.evalStringNode(rawKey)
		if err != nil {
			return false, WrapError(ErrProcessKey, err, "evaluating key %q", rawKey)
		}
		if pending {
			return true, nil
		}
		return ev.evalOneChild(out, stringifyKey(finalKey), valTemplate)
	}

	keyVal, pending, err := ev.callExpression(matches[0], rawKey)
	if err != nil {
		return false, WrapError(ErrProcessKey, err, "evaluating key %q", rawKey)
	}
	if pending {
		return true, nil
	}

	switch keyVal.Kind() {
	case KindList:
		anyPending := false
		for i, elem := range keyVal.List() {
			ev.Ctx.Push(keyVal, Int(int64(i)), elem)
			p, err := ev.evalOneChild(out, stringifyKey(elem), valTemplate)
			ev.Ctx.Pop()
			if err != nil {
				return false, err
			}
			if p {
				anyPending = true
			}
		}
		return anyPending, nil
	case KindMap:
		anyPending := false
		for _, k := range keyVal.Map().Keys() {
			elem, _ := keyVal.Map().Get(k)
			ev.Ctx.Push(keyVal, String(k), elem)
			p, err := ev.evalOneChild(out, k, valTemplate)
			ev.Ctx.Pop()
			if err != nil {
				return false, err
			}
			if p {
				anyPending = true
			}
		}
		return anyPending, nil
	default:
		return ev.evalOneChild(out, stringifyKey(keyVal), valTemplate)
	}
}

func (ev *Evaluator) evalOneChild(out *OMap, key string, valTemplate Value) (bool, error) {
	val, pending, err := ev.EvalValue(valTemplate)
	if err != nil {
		return false, WrapError(ErrProcessString, err, "evaluating value for key %q", key)
	}
	if pending {
		return true, nil
	}
	out.Set(key, val)
	return false, nil
}

// applyIncludes implements §4.6 step 2: evaluate each include path
// expression, load and recursively evaluate the referenced document, and
// merge it into m without overwriting existing keys. Cycles are detected
// via a per-branch include history so sibling/independent branches may
// legitimately include the same document.
func (ev *Evaluator) applyIncludes(m *OMap) error {
	incVal, ok := m.Get(keyIncludes)
	if !ok {
		return nil
	}
	if incVal.Kind() != KindList {
		return NewError(ErrMessage, "%s must be a list", keyIncludes)
	}
	for _, pathVal := range incVal.List() {
		resolved, pending, err := ev.EvalValue(pathVal)
		if err != nil {
			return WrapError(ErrMessage, err, "evaluating %s entry", keyIncludes)
		}
		if pending {
			ev.FullyProcessed = false
			continue
		}
		if resolved.Kind() != KindString {
			return NewError(ErrMessage, "%s entries must evaluate to strings", keyIncludes)
		}
		path := resolved.Str()
		for _, seen := range ev.includeStack {
			if seen == path {
				return NewError(ErrMessage, "include cycle detected at %q", path)
			}
		}
		if ev.Loader == nil {
			return NewError(ErrMessage, "no document loader configured for %s", keyIncludes)
		}
		doc, err := ev.Loader.Load(path)
		if err != nil {
			return WrapError(ErrMessage, err, "loading include %q", path)
		}
		ev.includeStack = append(ev.includeStack, path)
		resolvedDoc, pend, err := ev.EvalValue(doc)
		ev.includeStack = ev.includeStack[:len(ev.includeStack)-1]
		if err != nil {
			return WrapError(ErrMessage, err, "evaluating include %q", path)
		}
		if pend {
			ev.FullyProcessed = false
		}
		if resolvedDoc.Kind() != KindMap {
			return NewError(ErrMessage, "include %q did not evaluate to a map", path)
		}
		m.Merge(resolvedDoc.Map())
	}
	m.Delete(keyIncludes)
	return nil
}

// applyPre implements §4.6 step 3: evaluate __pre__ once and merge its
// result into the parent, merging variable-definition children into the
// matching reserved blocks under a disjointness check.
func (ev *Evaluator) applyPre(m *OMap) error {
	preVal, ok := m.Get(keyPre)
	if !ok {
		return nil
	}
	resolved, pending, err := ev.EvalValue(preVal)
	if err != nil {
		return WrapError(ErrMessage, err, "evaluating %s", keyPre)
	}
	if pending {
		ev.FullyProcessed = false
		return nil
	}
	if resolved.Kind() != KindMap {
		return NewError(ErrMessage, "%s must evaluate to a map", keyPre)
	}
	pre := resolved.Map().Clone()

	for _, vk := range []string{keyRuntimeVars, keyGlobals, keyLocals, keyFuncGlobals, keyFuncLocals} {
		pv, ok := pre.Get(vk)
		if !ok {
			continue
		}
		if pv.Kind() != KindMap {
			return NewError(ErrMessage, "%s must be a map", vk)
		}
		var target *OMap
		if existing, ok2 := m.Get(vk); ok2 && existing.Kind() == KindMap {
			target = existing.Map()
		} else {
			target = NewOMap()
			m.Set(vk, MapOf(target))
		}
		for _, k := range pv.Map().Keys() {
			if _, exists := target.Get(k); exists {
				return NewError(ErrMessage, "duplicate variable %q merging %s into %s", k, keyPre, vk)
			}
			v, _ := pv.Map().Get(k)
			target.Set(k, v)
		}
		pre.Delete(vk)
	}
	m.Merge(pre)
	m.Delete(keyPre)
	return nil
}
