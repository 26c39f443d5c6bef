package ison

import "strings"

// Match is one occurrence of $name, ${...} or $func{...} located by the
// tokenizer (§4.1). Func is empty for $name/${...}. Start/End are byte
// offsets of the whole match (including the leading '$') in the scanned
// string, so callers can reconstruct unmatched text by slicing.
type Match struct {
	Func  string
	Args  string
	Start int
	End   int
}

// Raw returns the literal matched text, s[m.Start:m.End].
func (m Match) Raw(s string) string { return s[m.Start:m.End] }

func isFuncChar(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z':
		return true
	case c == '_' || c == '-' || c == '*' || c == '!' || c == '?' || c == '.':
		return true
	}
	return false
}

func isNameChar(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '_':
		return true
	}
	return false
}

// Tokenize scans s for variable/function openings and returns an ordered
// list of non-overlapping matches (§4.1). Errors are fatal (malformed
// braces) per §7.
func Tokenize(s string) ([]Match, error) {
	var matches []Match
	i := 0
	n := len(s)
	for i < n {
		if s[i] != '$' {
			i++
			continue
		}
		start := i
		j := i + 1

		// Maximal run of function-name characters (may include '.', so
		// this also greedily consumes what could be a bare name's dotted
		// suffix; disambiguated below).
		fStart := j
		for j < n && isFuncChar(s[j]) {
			j++
		}
		funcRun := s[fStart:j]

		if j < n && s[j] == '{' {
			close, err := findMatchingBrace(s, j)
			if err != nil {
				return nil, err
			}
			matches = append(matches, Match{
				Func:  funcRun,
				Args:  s[j+1 : close],
				Start: start,
				End:   close + 1,
			})
			i = close + 1
			continue
		}

		// Not a brace form; try a bare $name (namechars may include
		// digits, which the func-char run above does not).
		nStart := i + 1
		k := nStart
		for k < n && isNameChar(s[k]) {
			k++
		}
		if k == nStart {
			// No valid name characters at all: '$' is literal.
			i++
			continue
		}
		if k < n && (s[k] == '{' || s[k] == '.') {
			// Disallowed follow characters per §4.1: leave as literal.
			i++
			continue
		}
		matches = append(matches, Match{
			Func:  "",
			Args:  s[nStart:k],
			Start: start,
			End:   k,
		})
		i = k
	}
	return matches, nil
}

// findMatchingBrace scans forward from an opening '{' at index open,
// honoring nested braces and quoted substrings (', ", `), and returns the
// index of the matching '}'.
func findMatchingBrace(s string, open int) (int, error) {
	depth := 1
	var inQuote byte
	escaped := false
	for j := open + 1; j < len(s); j++ {
		c := s[j]
		if inQuote != 0 {
			if escaped {
				escaped = false
				continue
			}
			if c == '\\' {
				escaped = true
				continue
			}
			if c == inQuote {
				inQuote = 0
			}
			continue
		}
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
		case '\'', '"', '`':
			inQuote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return j, nil
			}
		}
	}
	return -1, NewError(ErrMessage, "missing close brace for '{' opened at offset %d in %q", open, s)
}

// Reconstruct interleaves the slices between matches with each match's
// literal text, reproducing the original string exactly. This exercises
// the tokenizer round-trip invariant from §8.
func Reconstruct(s string, matches []Match) string {
	var b strings.Builder
	prev := 0
	for _, m := range matches {
		b.WriteString(s[prev:m.Start])
		b.WriteString(m.Raw(s))
		prev = m.End
	}
	b.WriteString(s[prev:])
	return b.String()
}
