package ison

import (
	"strconv"
	"strings"
)

// resolveRefPath resolves a colon-separated reference path (§4.5). It
// returns the resolved value, whether resolution is still pending
// (missing data that might become available in a later pass), whether
// the result should be treated as literal (trailing empty segment), and
// any fatal error.
func (ev *Evaluator) resolveRefPath(pathText string) (Value, bool, bool, error) {
	segs := SplitTopLevel(pathText, ':')
	literal := false
	if len(segs) > 1 && segs[len(segs)-1] == "" {
		literal = true
		segs = segs[:len(segs)-1]
	}
	if len(segs) == 0 || (len(segs) == 1 && segs[0] == "") {
		return Value{}, false, false, NewError(ErrRefPath, "empty reference path %q", pathText)
	}

	firstVal, pending, err := ev.evalPathSegment(segs[0])
	if err != nil {
		return Value{}, false, false, WrapError(ErrRefPath, err, "evaluating path segment %q", segs[0])
	}
	if pending {
		return Value{}, true, false, nil
	}

	var cur Value
	if firstVal.Kind() != KindString {
		cur = firstVal
	} else {
		name := firstVal.Str()
		if strings.HasPrefix(name, "@ctx") || strings.HasPrefix(name, "@key") || strings.HasPrefix(name, "@value") {
			if v, ok := ev.Ctx.Lookup(name); ok {
				cur = v
				goto descendRest
			}
		}
		v, kind, evaluated, found := ev.Env.Lookup(name)
		if found {
			if !evaluated {
				nv, pend, everr := ev.EvalValue(v)
				if everr != nil {
					return Value{}, false, false, everr
				}
				if pend {
					return Value{}, true, false, nil
				}
				ev.Env.Define(kind, name, nv)
				ev.Env.MarkEvaluated(kind, name)
				cur = nv
			} else {
				cur = v
			}
		} else {
			top := ev.Env.Top()
			nv, ok := descendMapKey(top, name)
			if !ok {
				if len(segs) == 1 {
					ev.Warnings.Add(name, ev.chain())
					return Value{}, true, false, nil
				}
				return Value{}, false, false, DictSelectionError(name, mapKeysOf(top))
			}
			cur = nv
		}
	}

descendRest:
	for _, raw := range segs[1:] {
		segVal, pend, err := ev.evalPathSegment(raw)
		if err != nil {
			return Value{}, false, false, err
		}
		if pend {
			return Value{}, true, false, nil
		}
		nv, pend2, err := ev.descend(cur, segVal, raw)
		if err != nil {
			return Value{}, false, false, err
		}
		if pend2 {
			return Value{}, true, false, nil
		}
		cur = nv
	}

	return cur, false, literal, nil
}

// evalPathSegment evaluates one ':'-delimited path segment, which may
// itself contain nested expressions.
func (ev *Evaluator) evalPathSegment(raw string) (Value, bool, error) {
	return ev.evalStringNode(raw)
}

func mapKeysOf(v Value) []string {
	if v.Kind() != KindMap {
		return nil
	}
	return v.Map().Keys()
}

func descendMapKey(v Value, key string) (Value, bool) {
	if v.Kind() != KindMap {
		return Value{}, false
	}
	return v.Map().Get(key)
}

func normalizeIndex(i, n int) (int, error) {
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, ListSelectionError("index %d out of range for list of length %d", i, n)
	}
	return i, nil
}

// parseSlice parses the text after '~' in a "first~last[+step]" slice
// expression (§4.5 indexing policy).
func parseSlice(rest string) (last int, step *int, err error) {
	if rest == "" {
		return 0, nil, ListSelectionError("empty slice bound")
	}
	idx := 0
	if rest[idx] == '+' || rest[idx] == '-' {
		idx++
	}
	for idx < len(rest) && rest[idx] >= '0' && rest[idx] <= '9' {
		idx++
	}
	lastText := rest[:idx]
	stepText := rest[idx:]
	last, convErr := strconv.Atoi(lastText)
	if convErr != nil {
		return 0, nil, ListSelectionError("malformed slice bound %q", rest)
	}
	if stepText != "" {
		s, convErr := strconv.Atoi(stepText)
		if convErr != nil {
			return 0, nil, ListSelectionError("malformed slice step %q", stepText)
		}
		step = &s
	}
	return last, step, nil
}

func selectSlice(list []Value, firstRaw, lastRaw int, step *int, explicitStep bool) (Value, error) {
	n := len(list)
	f, err := normalizeIndex(firstRaw, n)
	if err != nil {
		return Value{}, err
	}
	l, err := normalizeIndex(lastRaw, n)
	if err != nil {
		return Value{}, err
	}
	var st int
	if step != nil {
		st = *step
	} else if f > l {
		st = -1
	} else {
		st = 1
	}
	if st == 0 {
		return Value{}, ListSelectionError("slice step cannot be zero")
	}
	if step != nil {
		if (st > 0 && f > l) || (st < 0 && f < l) {
			return Value{}, ListSelectionError("slice step %d contradicts direction %d~%d", st, firstRaw, lastRaw)
		}
	}
	var out []Value
	if st > 0 {
		for i := f; i <= l; i += st {
			out = append(out, list[i])
		}
	} else {
		for i := f; i >= l; i += st {
			out = append(out, list[i])
		}
	}
	return ListOf(out), nil
}

func selectIndexList(list []Value, idxs []Value) (Value, error) {
	out := make([]Value, 0, len(idxs))
	for _, iv := range idxs {
		i, err := normalizeIndex(int(iv.Int()), len(list))
		if err != nil {
			return Value{}, err
		}
		out = append(out, list[i])
	}
	return ListOf(out), nil
}

// descend applies one reference-path segment to cur (§4.5 step 4).
func (ev *Evaluator) descend(cur Value, segVal Value, raw string) (Value, bool, error) {
	switch cur.Kind() {
	case KindMap:
		if segVal.Kind() != KindString {
			return Value{}, false, NewError(ErrRefPath, "map key must be a string, got %s", segVal.Kind())
		}
		v, ok := cur.Map().Get(segVal.Str())
		if !ok {
			return Value{}, false, DictSelectionError(segVal.Str(), cur.Map().Keys())
		}
		return v, false, nil

	case KindList:
		list := cur.List()
		switch segVal.Kind() {
		case KindInt:
			i, err := normalizeIndex(int(segVal.Int()), len(list))
			if err != nil {
				return Value{}, false, err
			}
			return list[i], false, nil
		case KindList:
			v, err := selectIndexList(list, segVal.List())
			return v, false, err
		case KindString:
			text := strings.TrimSpace(segVal.Str())
			if strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]") {
				parts := SplitTopLevel(text[1:len(text)-1], ',')
				idxs := make([]Value, len(parts))
				for i, p := range parts {
					n, err := strconv.Atoi(strings.TrimSpace(p))
					if err != nil {
						return Value{}, false, ListSelectionError("malformed index list %q", text)
					}
					idxs[i] = Int(int64(n))
				}
				v, err := selectIndexList(list, idxs)
				return v, false, err
			}
			if tildeIdx := strings.IndexByte(text, '~'); tildeIdx >= 0 {
				firstText := text[:tildeIdx]
				first, err := strconv.Atoi(firstText)
				if err != nil {
					return Value{}, false, ListSelectionError("malformed slice first bound %q", text)
				}
				last, step, err := parseSlice(text[tildeIdx+1:])
				if err != nil {
					return Value{}, false, err
				}
				v, err := selectSlice(list, first, last, step, step != nil)
				return v, false, err
			}
			n, err := strconv.Atoi(text)
			if err != nil {
				return Value{}, false, ListSelectionError("malformed list index %q", text)
			}
			i, err := normalizeIndex(n, len(list))
			if err != nil {
				return Value{}, false, err
			}
			return list[i], false, nil
		default:
			return Value{}, false, NewError(ErrRefPath, "invalid list index of kind %s", segVal.Kind())
		}

	case KindString:
		resolved, pend, err := ev.evalStringNode(cur.Str())
		if err != nil {
			return Value{}, false, err
		}
		if pend {
			return Value{}, true, nil
		}
		if resolved.Kind() == KindString && resolved.Str() == cur.Str() {
			return Value{}, false, NewError(ErrRefPath, "string %q cannot be further specialized", cur.Str())
		}
		return ev.descend(resolved, segVal, raw)

	default:
		return Value{}, false, NewError(ErrRefPath, "cannot index into a %s", cur.Kind())
	}
}
