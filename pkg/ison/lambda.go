package ison

import (
	"sort"
	"strconv"
	"strings"
)

// Lambda is a user-defined function literal (§4.3). Body is the
// unevaluated Value tree captured at definition time: string leaves may
// contain positional (%i) and named (%name%) placeholders, optionally
// prefixed with '~' to erase the match on substitution, and may embed
// further nested "$L{...}" lambda literals whose own placeholders belong
// to the inner scope, not this one.
type Lambda struct {
	Body Value
}

// String renders a Lambda to its data-model representation,
// the string "$L{BODY}" with BODY S-wrapped (§3, §4.3).
func (l *Lambda) String() string {
	return "$L{" + EncodeSWrap(l.Body) + "}"
}

// ParseLambdaString recognizes a "$L{...}" literal and decodes its body.
func ParseLambdaString(s string) (*Lambda, bool) {
	if !strings.HasPrefix(s, "$L{") || !strings.HasSuffix(s, "}") {
		return nil, false
	}
	close, err := findMatchingBrace(s, 2)
	if err != nil || close != len(s)-1 {
		return nil, false
	}
	body, err := DecodeSWrap(s[3:close])
	if err != nil {
		return nil, false
	}
	return &Lambda{Body: body}, true
}

// sWrapEscape/sWrapUnescape guard the handful of characters (backslash,
// the braces that delimit an S-wrap or lambda scope, and the quote
// characters that open a quoted run) that would otherwise confuse
// brace-balanced rescanning of the encoded text.
func sWrapEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `{`, `\{`, `}`, `\}`, `'`, `\'`, `"`, `\"`, "`", "\\`").Replace(s)
}

func sWrapUnescape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			b.WriteByte(s[i+1])
			i++
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// EncodeSWrap performs the S-wrap encoding of §4.3/§3: a textual JSON-like
// serialization in which every string literal "text" becomes $S{text}.
func EncodeSWrap(v Value) string {
	switch v.Kind() {
	case KindNull:
		return "null"
	case KindBool:
		if v.Bool() {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.Int(), 10)
	case KindFloat:
		f := strconv.FormatFloat(v.Float(), 'g', -1, 64)
		if !strings.ContainsAny(f, ".eEIN") {
			f += ".0" // keep whole-number floats from decoding as Int
		}
		return f
	case KindString:
		return "$S{" + sWrapEscape(v.Str()) + "}"
	case KindList:
		parts := make([]string, len(v.List()))
		for i, e := range v.List() {
			parts[i] = EncodeSWrap(e)
		}
		return "[" + strings.Join(parts, ",") + "]"
	case KindMap:
		keys := v.Map().Keys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			ev, _ := v.Map().Get(k)
			parts[i] = "$S{" + sWrapEscape(k) + "}:" + EncodeSWrap(ev)
		}
		return "{" + strings.Join(parts, ",") + "}"
	case KindNamedArg:
		return EncodeSWrap(v.NamedArg().Value)
	}
	return "null"
}

// DecodeSWrap inverts EncodeSWrap. Text that matches none of the known
// value grammars is not an error: it is returned as a raw String so the
// caller (the evaluator's normal string-node pass) can re-tokenize and
// resolve any $func{...} expressions left over from lambda substitution
// (e.g. the struct-unwrap marker produced for non-string arguments).
func DecodeSWrap(s string) (Value, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return String(""), nil
	case s == "null":
		return Null(), nil
	case s == "true":
		return Bool(true), nil
	case s == "false":
		return Bool(false), nil
	case strings.HasPrefix(s, "$S{") && strings.HasSuffix(s, "}"):
		close, err := findMatchingBrace(s, 2)
		if err == nil && close == len(s)-1 {
			return String(sWrapUnescape(s[3:close])), nil
		}
	case strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"):
		inner := s[1 : len(s)-1]
		parts := SplitTopLevel(inner, ',')
		items := make([]Value, 0, len(parts))
		for _, p := range parts {
			if p == "" {
				continue
			}
			v, err := DecodeSWrap(p)
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
		}
		return ListOf(items), nil
	case strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}"):
		inner := s[1 : len(s)-1]
		parts := SplitTopLevel(inner, ',')
		om := NewOMap()
		for _, entry := range parts {
			if entry == "" {
				continue
			}
			kv := SplitTopLevel(entry, ':')
			if len(kv) != 2 {
				return Value{}, NewError(ErrLambda, "malformed S-wrap map entry %q", entry)
			}
			kVal, err := DecodeSWrap(kv[0])
			if err != nil {
				return Value{}, err
			}
			vVal, err := DecodeSWrap(kv[1])
			if err != nil {
				return Value{}, err
			}
			om.Set(kVal.Str(), vVal)
		}
		return MapOf(om), nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(i), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Float(f), nil
	}
	return String(s), nil
}

// placeholder is one %i / %name% occurrence found in a string leaf.
type placeholder struct {
	start, end int
	erase      bool
	named      bool
	name       string
	index      int
}

func scanPlaceholders(s string) []placeholder {
	var out []placeholder
	i := 0
	for i < len(s) {
		if s[i] != '%' {
			i++
			continue
		}
		start := i
		j := i + 1
		erase := false
		if j < len(s) && s[j] == '~' {
			erase = true
			j++
		}
		if j < len(s) && s[j] >= '0' && s[j] <= '9' {
			k := j
			for k < len(s) && s[k] >= '0' && s[k] <= '9' {
				k++
			}
			idx, _ := strconv.Atoi(s[j:k])
			out = append(out, placeholder{start: start, end: k, erase: erase, index: idx})
			i = k
			continue
		}
		// named: %name%
		k := j
		for k < len(s) && isNameChar(s[k]) {
			k++
		}
		if k > j && k < len(s) && s[k] == '%' {
			out = append(out, placeholder{start: start, end: k + 1, erase: erase, named: true, name: s[j:k]})
			i = k + 1
			continue
		}
		i++
	}
	return out
}

// protectedSpans returns the byte ranges of nested top-level $L{...}
// lambda literals within s; placeholders inside these ranges belong to
// the inner lambda's own scope and must not be touched (§4.3 scope
// finding).
func protectedSpans(s string) []Match {
	matches, err := Tokenize(s)
	if err != nil {
		return nil
	}
	var out []Match
	for _, m := range matches {
		if m.Func == "L" {
			out = append(out, m)
		}
	}
	return out
}

func inSpans(pos int, spans []Match) bool {
	for _, m := range spans {
		if pos >= m.Start && pos < m.End {
			return true
		}
	}
	return false
}

// collectIndices gathers the distinct positional parameter indices
// referenced anywhere in the body, outside nested lambda scopes, for
// the per-scope renumbering described in §4.3.
func collectIndices(v Value, out map[int]bool) {
	switch v.Kind() {
	case KindString:
		spans := protectedSpans(v.Str())
		for _, p := range scanPlaceholders(v.Str()) {
			if inSpans(p.start, spans) || p.named {
				continue
			}
			out[p.index] = true
		}
	case KindList:
		for _, e := range v.List() {
			collectIndices(e, out)
		}
	case KindMap:
		for _, k := range v.Map().Keys() {
			ev, _ := v.Map().Get(k)
			collectIndices(ev, out)
		}
	case KindNamedArg:
		collectIndices(v.NamedArg().Value, out)
	}
}

func buildRemap(indices map[int]bool) map[int]int {
	sorted := make([]int, 0, len(indices))
	for i := range indices {
		sorted = append(sorted, i)
	}
	sort.Ints(sorted)
	remap := make(map[int]int, len(sorted))
	for newIdx, old := range sorted {
		remap[old] = newIdx
	}
	return remap
}

func stringifySubstitution(v Value) string {
	if v.Kind() == KindString {
		return v.Str()
	}
	return ToString(v, 0)
}

// substituteString replaces placeholders in s (outside nested lambda
// scopes) using remap/pos/named. unresolved is set true if any
// placeholder could not be substituted (out-of-range index, or a named
// placeholder with no matching argument) and is left literal, per the
// failure mode in §4.3.
func substituteString(s string, remap map[int]int, pos []Value, named map[string]Value, used map[string]bool, unresolved *bool) string {
	spans := protectedSpans(s)
	placeholders := scanPlaceholders(s)
	if len(placeholders) == 0 {
		return s
	}
	var b strings.Builder
	last := 0
	for _, p := range placeholders {
		if inSpans(p.start, spans) {
			continue
		}
		b.WriteString(s[last:p.start])
		if p.named {
			if v, ok := named[p.name]; ok {
				used[p.name] = true
				if !p.erase {
					b.WriteString(stringifySubstitution(v))
				}
			} else {
				*unresolved = true
				b.WriteString(s[p.start:p.end])
			}
		} else {
			newIdx, known := remap[p.index]
			if known && newIdx < len(pos) {
				if !p.erase {
					b.WriteString(stringifySubstitution(pos[newIdx]))
				}
			} else {
				*unresolved = true
				b.WriteString(s[p.start:p.end])
			}
		}
		last = p.end
	}
	b.WriteString(s[last:])
	return b.String()
}

// substituteValue walks the body tree substituting placeholders. A
// string leaf that is, in its entirety, a single unprotected placeholder
// returns the argument's value directly (preserving its type), matching
// the "sole reference returns the value directly" rule reused here for
// lambda parameter slots (§4.6).
func substituteValue(v Value, remap map[int]int, pos []Value, named map[string]Value, used map[string]bool, unresolved *bool) Value {
	switch v.Kind() {
	case KindString:
		s := v.Str()
		if spans := protectedSpans(s); len(spans) == 0 {
			if ps := scanPlaceholders(s); len(ps) == 1 && ps[0].start == 0 && ps[0].end == len(s) {
				p := ps[0]
				if p.named {
					if val, ok := named[p.name]; ok {
						used[p.name] = true
						if p.erase {
							return String("")
						}
						return val
					}
					*unresolved = true
					return v
				}
				newIdx, known := remap[p.index]
				if known && newIdx < len(pos) {
					if p.erase {
						return String("")
					}
					return pos[newIdx]
				}
				*unresolved = true
				return v
			}
		}
		return String(substituteString(s, remap, pos, named, used, unresolved))
	case KindList:
		items := make([]Value, len(v.List()))
		for i, e := range v.List() {
			items[i] = substituteValue(e, remap, pos, named, used, unresolved)
		}
		return ListOf(items)
	case KindMap:
		om := NewOMap()
		for _, k := range v.Map().Keys() {
			ev, _ := v.Map().Get(k)
			om.Set(k, substituteValue(ev, remap, pos, named, used, unresolved))
		}
		return MapOf(om)
	case KindNamedArg:
		return NamedArgVal(v.NamedArg().Key, substituteValue(v.NamedArg().Value, remap, pos, named, used, unresolved))
	default:
		return v
	}
}

// Apply calls the lambda with the given positional and named arguments
// (§4.3 Application). It returns the substituted result and whether it
// is still partially applied (has unresolved placeholders and must stay
// wrapped as a "$L{...}" string so it can be called again later).
func (l *Lambda) Apply(pos []Value, named map[string]Value) (result Value, stillLambda bool) {
	indices := map[int]bool{}
	collectIndices(l.Body, indices)
	remap := buildRemap(indices)

	used := map[string]bool{}
	var unresolved bool
	substituted := substituteValue(l.Body, remap, pos, named, used, &unresolved)

	if !unresolved {
		return substituted, false
	}
	return String((&Lambda{Body: substituted}).String()), true
}

// NamedArgError reports a named argument supplied twice to the same call
// (§4.3 Failure modes).
func NamedArgError(name string) error {
	return NewError(ErrLambdaArgs, "named argument %q supplied more than once", name)
}
