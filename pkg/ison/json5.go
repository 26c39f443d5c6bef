package ison

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DecodeJSON5 parses a JSON5-flavored document (comments, trailing
// commas, single-quoted and bare-identifier keys are all accepted in
// addition to plain JSON) directly into a Value tree, preserving object
// key order in an OMap. No third-party JSON5 library appears anywhere in
// the retrieved dependency set, so this hand-written recursive-descent
// reader — in the spirit of the table-driven JSON parsers elsewhere in
// the corpus — is the one place this package falls back to the standard
// library (documented in DESIGN.md).
func DecodeJSON5(src string) (Value, error) {
	p := &json5Parser{src: src}
	p.skipSpace()
	v, err := p.parseValue()
	if err != nil {
		return Value{}, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return Value{}, fmt.Errorf("json5: unexpected trailing data at offset %d", p.pos)
	}
	return v, nil
}

type json5Parser struct {
	src string
	pos int
}

func (p *json5Parser) peek() (rune, int) {
	if p.pos >= len(p.src) {
		return 0, 0
	}
	r, w := utf8.DecodeRuneInString(p.src[p.pos:])
	return r, w
}

func (p *json5Parser) skipSpace() {
	for p.pos < len(p.src) {
		r, w := p.peek()
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			p.pos += w
		case r == '/' && strings.HasPrefix(p.src[p.pos:], "//"):
			for p.pos < len(p.src) && p.src[p.pos] != '\n' {
				p.pos++
			}
		case r == '/' && strings.HasPrefix(p.src[p.pos:], "/*"):
			end := strings.Index(p.src[p.pos+2:], "*/")
			if end < 0 {
				p.pos = len(p.src)
				return
			}
			p.pos += end + 4
		default:
			return
		}
	}
}

func (p *json5Parser) errf(format string, args ...any) error {
	return fmt.Errorf("json5: at offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func (p *json5Parser) parseValue() (Value, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return Value{}, p.errf("unexpected end of input")
	}
	switch r, _ := p.peek(); {
	case r == '{':
		return p.parseObject()
	case r == '[':
		return p.parseArray()
	case r == '"' || r == '\'':
		s, err := p.parseString()
		return String(s), err
	case r == 't':
		return p.parseLiteral("true", Bool(true))
	case r == 'f':
		return p.parseLiteral("false", Bool(false))
	case r == 'n':
		return p.parseLiteral("null", Null())
	default:
		return p.parseNumber()
	}
}

func (p *json5Parser) parseLiteral(lit string, v Value) (Value, error) {
	if !strings.HasPrefix(p.src[p.pos:], lit) {
		return Value{}, p.errf("expected %q", lit)
	}
	p.pos += len(lit)
	return v, nil
}

func (p *json5Parser) parseObject() (Value, error) {
	p.pos++ // '{'
	out := NewOMap()
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == '}' {
		p.pos++
		return MapOf(out), nil
	}
	for {
		p.skipSpace()
		key, err := p.parseKey()
		if err != nil {
			return Value{}, err
		}
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != ':' {
			return Value{}, p.errf("expected ':' after object key %q", key)
		}
		p.pos++
		val, err := p.parseValue()
		if err != nil {
			return Value{}, err
		}
		out.Set(key, val)
		p.skipSpace()
		if p.pos >= len(p.src) {
			return Value{}, p.errf("unterminated object")
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
			p.skipSpace()
			if p.pos < len(p.src) && p.src[p.pos] == '}' {
				p.pos++
				return MapOf(out), nil
			}
		case '}':
			p.pos++
			return MapOf(out), nil
		default:
			return Value{}, p.errf("expected ',' or '}' in object")
		}
	}
}

func (p *json5Parser) parseKey() (string, error) {
	r, _ := p.peek()
	if r == '"' || r == '\'' {
		return p.parseString()
	}
	start := p.pos
	for p.pos < len(p.src) {
		r, w := p.peek()
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$' {
			p.pos += w
			continue
		}
		break
	}
	if p.pos == start {
		return "", p.errf("expected object key")
	}
	return p.src[start:p.pos], nil
}

func (p *json5Parser) parseArray() (Value, error) {
	p.pos++ // '['
	var out []Value
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == ']' {
		p.pos++
		return ListOf(out), nil
	}
	for {
		v, err := p.parseValue()
		if err != nil {
			return Value{}, err
		}
		out = append(out, v)
		p.skipSpace()
		if p.pos >= len(p.src) {
			return Value{}, p.errf("unterminated array")
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
			p.skipSpace()
			if p.pos < len(p.src) && p.src[p.pos] == ']' {
				p.pos++
				return ListOf(out), nil
			}
		case ']':
			p.pos++
			return ListOf(out), nil
		default:
			return Value{}, p.errf("expected ',' or ']' in array")
		}
	}
}

func (p *json5Parser) parseString() (string, error) {
	quote := p.src[p.pos]
	p.pos++
	var b strings.Builder
	for {
		if p.pos >= len(p.src) {
			return "", p.errf("unterminated string")
		}
		r, w := p.peek()
		if r == rune(quote) {
			p.pos += w
			return b.String(), nil
		}
		if r == '\\' {
			p.pos += w
			if p.pos >= len(p.src) {
				return "", p.errf("unterminated escape")
			}
			esc, ew := p.peek()
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case '"', '\'', '\\', '/':
				b.WriteRune(esc)
			case '\n':
				// line continuation, JSON5 permits escaped newlines in strings
			case 'u':
				if p.pos+ew+4 > len(p.src) {
					return "", p.errf("truncated unicode escape")
				}
				hex := p.src[p.pos+ew : p.pos+ew+4]
				code, convErr := strconv.ParseUint(hex, 16, 32)
				if convErr != nil {
					return "", p.errf("invalid unicode escape %q", hex)
				}
				b.WriteRune(rune(code))
				p.pos += 4
			default:
				b.WriteRune(esc)
			}
			p.pos += ew
			continue
		}
		b.WriteRune(r)
		p.pos += w
	}
}

func (p *json5Parser) parseNumber() (Value, error) {
	start := p.pos
	isFloat := false
	if p.pos < len(p.src) && (p.src[p.pos] == '+' || p.src[p.pos] == '-') {
		p.pos++
	}
	for p.pos < len(p.src) && (p.src[p.pos] >= '0' && p.src[p.pos] <= '9') {
		p.pos++
	}
	if p.pos < len(p.src) && p.src[p.pos] == '.' {
		isFloat = true
		p.pos++
		for p.pos < len(p.src) && (p.src[p.pos] >= '0' && p.src[p.pos] <= '9') {
			p.pos++
		}
	}
	if p.pos < len(p.src) && (p.src[p.pos] == 'e' || p.src[p.pos] == 'E') {
		isFloat = true
		p.pos++
		if p.pos < len(p.src) && (p.src[p.pos] == '+' || p.src[p.pos] == '-') {
			p.pos++
		}
		for p.pos < len(p.src) && (p.src[p.pos] >= '0' && p.src[p.pos] <= '9') {
			p.pos++
		}
	}
	if p.pos == start {
		return Value{}, p.errf("expected a value")
	}
	text := p.src[start:p.pos]
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Value{}, p.errf("invalid number %q", text)
		}
		return Float(f), nil
	}
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(text, 64)
		if ferr != nil {
			return Value{}, p.errf("invalid number %q", text)
		}
		return Float(f), nil
	}
	return Int(i), nil
}

// FileLoader resolves __includes__ paths against a base directory,
// trying the .json, .json5 and .ison suffixes in order when a path
// carries none of its own (§6's file-format rule). A relative path that
// isn't found under BaseDir is retried under each entry of SearchPath,
// in order, letting a project's ison.toml add shared include
// directories without every document needing "../../" paths.
type FileLoader struct {
	BaseDir    string
	SearchPath []string
}

var documentSuffixes = []string{".json", ".json5", ".ison"}

func (l FileLoader) Load(path string) (Value, error) {
	if filepath.IsAbs(path) {
		return loadDocument(path)
	}

	dirs := append([]string{l.BaseDir}, l.SearchPath...)
	var lastErr error
	for _, dir := range dirs {
		full := path
		if dir != "" {
			full = filepath.Join(dir, path)
		}
		v, err := loadDocument(full)
		if err == nil {
			return v, nil
		}
		lastErr = err
	}
	return Value{}, fmt.Errorf("loading %q: %w", path, lastErr)
}

func loadDocument(full string) (Value, error) {
	candidates := []string{full}
	if !hasDocumentSuffix(full) {
		for _, suf := range documentSuffixes {
			candidates = append(candidates, full+suf)
		}
	}
	var lastErr error
	for _, c := range candidates {
		data, err := os.ReadFile(c)
		if err != nil {
			lastErr = err
			continue
		}
		return DecodeJSON5(string(data))
	}
	return Value{}, lastErr
}

func hasDocumentSuffix(path string) bool {
	for _, suf := range documentSuffixes {
		if strings.HasSuffix(path, suf) {
			return true
		}
	}
	return false
}

