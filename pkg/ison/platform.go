package ison

import (
	"os"
	"regexp"
	"runtime"
	"strings"
)

// platformGOOSNames maps Go's runtime.GOOS to the capitalized platform
// names used in __platform__ tables, for parity with hand-authored
// documents that were written against platform.system()-style names.
var platformGOOSNames = map[string]string{
	"linux":   "Linux",
	"windows": "Windows",
	"darwin":  "Darwin",
	"freebsd": "FreeBSD",
}

func currentPlatformName() string {
	if name, ok := platformGOOSNames[runtime.GOOS]; ok {
		return name
	}
	return runtime.GOOS
}

// globToRegexp translates the two __platform__ wildcards ('*' matches a
// run of word characters, '?' matches any single character) into an
// anchored regular expression.
func globToRegexp(pat string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pat {
		switch r {
		case '*':
			b.WriteString(`[\w]*`)
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

// applyPlatformOverlay implements §4.6 step 1: select the __platform__
// subtree for the current OS, then the first hostname glob (in document
// order) matching the current host, merge their __data__ children into
// m, and remove __platform__. An unmatched OS or hostname contributes
// nothing (§7's "unknown platform overlay keys simply contribute
// nothing").
func (ev *Evaluator) applyPlatformOverlay(m *OMap) error {
	platVal, ok := m.Get(keyPlatform)
	if !ok {
		return nil
	}
	m.Delete(keyPlatform)
	if platVal.Kind() != KindMap {
		return NewError(ErrMessage, "%s must be a map", keyPlatform)
	}

	sysVal, ok := findPlatformEntry(platVal.Map(), currentPlatformName())
	if !ok {
		return nil
	}
	if sysVal.Kind() != KindMap {
		return NewError(ErrMessage, "%s entry for the current platform must be a map", keyPlatform)
	}
	sysMap := sysVal.Map()

	if data, ok := sysMap.Get("__data__"); ok {
		if data.Kind() != KindMap {
			return NewError(ErrMessage, "%s.__data__ must be a map", keyPlatform)
		}
		mergeOverlay(m, data.Map())
	}

	host, err := os.Hostname()
	if err != nil {
		return nil
	}
	hosts := append([]string{host}, ev.HostAliases[host]...)
	for _, k := range sysMap.Keys() {
		if strings.HasPrefix(k, "__") {
			continue
		}
		re, reErr := globToRegexp(k)
		if reErr != nil {
			continue
		}
		matched := false
		for _, h := range hosts {
			if re.MatchString(h) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		nodeVal, _ := sysMap.Get(k)
		if nodeVal.Kind() != KindMap {
			return NewError(ErrMessage, "%s node %q must be a map", keyPlatform, k)
		}
		if data, ok := nodeVal.Map().Get("__data__"); ok {
			if data.Kind() != KindMap {
				return NewError(ErrMessage, "%s node %q __data__ must be a map", keyPlatform, k)
			}
			mergeOverlay(m, data.Map())
		}
		break
	}
	return nil
}

// findPlatformEntry looks up the platform map case-insensitively: Go's
// runtime.GOOS ("linux") and hand-authored tables ("Linux") commonly
// disagree on case.
func findPlatformEntry(platforms *OMap, name string) (Value, bool) {
	if v, ok := platforms.Get(name); ok {
		return v, true
	}
	for _, k := range platforms.Keys() {
		if strings.EqualFold(k, name) {
			v, _ := platforms.Get(k)
			return v, true
		}
	}
	return Value{}, false
}

// mergeOverlay merges src into dst with src entries taking precedence
// over any sibling dst already holds — the opposite of __includes__'s
// existing-keys-win rule, since platform data exists to override the
// plain values it shadows.
func mergeOverlay(dst, src *OMap) {
	for _, k := range src.Keys() {
		v, _ := src.Get(k)
		dst.Set(k, v)
	}
}
