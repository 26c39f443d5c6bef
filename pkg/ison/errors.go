package ison

import (
	"fmt"
	"strings"
)

// ErrorKind enumerates the error kinds from spec §7. These are kinds, not
// distinct Go types: every one is carried by *EvalError.
type ErrorKind int

const (
	ErrMessage ErrorKind = iota
	ErrFunctionMessage
	ErrDictSelection
	ErrListSelection
	ErrStringMatch
	ErrKeyStringMatch
	ErrProcessString
	ErrProcessKey
	ErrArgString
	ErrArgListElement
	ErrFuncArgs
	ErrRefPath
	ErrLambda
	ErrLambdaArgs
	ErrLambdaPart
)

func (k ErrorKind) String() string {
	switch k {
	case ErrMessage:
		return "message"
	case ErrFunctionMessage:
		return "function-message"
	case ErrDictSelection:
		return "dict-selection"
	case ErrListSelection:
		return "list-selection"
	case ErrStringMatch:
		return "string-match"
	case ErrKeyStringMatch:
		return "key-string-match"
	case ErrProcessString:
		return "process-string"
	case ErrProcessKey:
		return "process-key"
	case ErrArgString:
		return "arg-string"
	case ErrArgListElement:
		return "arg-list-element"
	case ErrFuncArgs:
		return "func-args"
	case ErrRefPath:
		return "ref-path"
	case ErrLambda:
		return "lambda"
	case ErrLambdaArgs:
		return "lambda-args"
	case ErrLambdaPart:
		return "lambda-part"
	default:
		return "unknown"
	}
}

// EvalError is the structured error object of §7. Every error carries an
// optional child; the evaluator wraps lower-level errors as it unwinds,
// producing a numbered trace "1> ... 2> ... 3> ...".
type EvalError struct {
	Kind    ErrorKind
	Message string
	Func    string // set for FunctionMessage
	Child   error
}

func NewError(kind ErrorKind, format string, args ...any) *EvalError {
	return &EvalError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func WrapError(kind ErrorKind, child error, format string, args ...any) *EvalError {
	return &EvalError{Kind: kind, Message: fmt.Sprintf(format, args...), Child: child}
}

func FuncError(name string, format string, args ...any) *EvalError {
	return &EvalError{Kind: ErrFunctionMessage, Func: name, Message: fmt.Sprintf(format, args...)}
}

func (e *EvalError) Unwrap() error { return e.Child }

func (e *EvalError) Error() string {
	var b strings.Builder
	e.trace(&b, 1)
	return b.String()
}

func (e *EvalError) trace(b *strings.Builder, n int) {
	msg := e.Message
	if e.Kind == ErrFunctionMessage && e.Func != "" {
		msg = fmt.Sprintf("%s: %s", e.Func, msg)
	}
	fmt.Fprintf(b, "%d> [%s] %s\n", n, e.Kind, msg)
	if e.Child == nil {
		return
	}
	if child, ok := e.Child.(*EvalError); ok {
		child.trace(b, n+1)
		return
	}
	fmt.Fprintf(b, "%d> %s\n", n+1, e.Child.Error())
}

// DictSelectionError reports a failed key lookup, listing available keys.
func DictSelectionError(key string, available []string) *EvalError {
	return NewError(ErrDictSelection, "key %s not found (available: %s)", quoteKeyIfNeeded(key), strings.Join(available, ", "))
}

// ListSelectionError reports a bad index.
func ListSelectionError(format string, args ...any) *EvalError {
	return NewError(ErrListSelection, format, args...)
}

// StringMatchError highlights the offending region with >>...<<.
func StringMatchError(kind ErrorKind, source string, start, end int, child error) *EvalError {
	hi := start
	he := end
	if hi < 0 {
		hi = 0
	}
	if he > len(source) {
		he = len(source)
	}
	highlighted := source[:hi] + ">>" + source[hi:he] + "<<" + source[he:]
	return WrapError(kind, child, "in %q", highlighted)
}

// WarningKind enumerates warning kinds; per spec §7 the only kind is
// undefined-variable.
type WarningKind int

const (
	WarnUndefinedVariable WarningKind = iota
)

// Warning records a non-fatal observation with the enclosing variable
// chain, so the caller can see which unresolved reference contaminated
// which output.
type Warning struct {
	Kind  WarningKind
	Name  string
	Chain []string
}

func (w Warning) String() string {
	if len(w.Chain) == 0 {
		return fmt.Sprintf("undefined variable %q", w.Name)
	}
	return fmt.Sprintf("undefined variable %q (via %s)", w.Name, strings.Join(w.Chain, " -> "))
}

// Warnings is the parallel warnings collector from §7.
type Warnings struct {
	items []Warning
}

func (w *Warnings) Add(name string, chain []string) {
	cp := make([]string, len(chain))
	copy(cp, chain)
	w.items = append(w.items, Warning{Kind: WarnUndefinedVariable, Name: name, Chain: cp})
}

func (w *Warnings) Items() []Warning {
	if w == nil {
		return nil
	}
	return w.items
}

func (w *Warnings) Empty() bool { return w == nil || len(w.items) == 0 }
