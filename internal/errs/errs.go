// Package errs defines the tbasic error taxonomy.
package errs

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
)

// Kind classifies an interpreter error.
type Kind int

const (
	Fault Kind = iota // unclassified foreign failure
	Lexical
	Parse
	Undefined
	Type
	Arity
	Runtime
	StackOverflow
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case Fault:
		return "FAULT"
	case Lexical:
		return "LEXICAL"
	case Parse:
		return "PARSE"
	case Undefined:
		return "UNDEFINED"
	case Type:
		return "TYPE"
	case Arity:
		return "ARITY"
	case Runtime:
		return "RUNTIME"
	case StackOverflow:
		return "STACK_OVERFLOW"
	}
	return "UNKNOWN"
}

// ErrEndOfStream is returned when input ends in the middle of a token.
var ErrEndOfStream = errors.New("unexpected end of input")

// UnknownTokenError reports input that no token rule matches.
type UnknownTokenError struct {
	Fragment string
	Offset   int
}

func (e *UnknownTokenError) Error() string {
	return fmt.Sprintf("unknown token %q at offset %d", e.Fragment, e.Offset)
}

// ParseError reports a structural or syntactic problem.
// Line is the 0-based source line, or -1 when unknown.
type ParseError struct {
	Line int
	Msg  string
	// Unterminated is set when the input ended with blocks still open.
	Unterminated bool
}

func (e *ParseError) Error() string {
	if e.Line < 0 {
		return e.Msg
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// UndefinedError reports a name that no enclosing scope defines.
type UndefinedError struct {
	Name  string
	What  string // "variable", "function", "type", "member"
	Scope string
}

func (e *UndefinedError) Error() string {
	what := e.What
	if what == "" {
		what = "symbol"
	}
	if e.Scope != "" {
		return fmt.Sprintf("undefined %s %s in %s", what, e.Name, e.Scope)
	}
	return fmt.Sprintf("undefined %s %s", what, e.Name)
}

// TypeError reports a value that cannot be converted.
type TypeError struct {
	From     string
	Expected string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("invalid type in expression: %s, expected %s", e.From, e.Expected)
}

// ArityError reports a call with the wrong number of arguments.
type ArityError struct {
	Name     string
	Expected int
	Got      int
	AtLeast  bool
	AtMost   int // 0 when unbounded or exact
}

func (e *ArityError) Error() string {
	switch {
	case e.AtLeast && e.AtMost > 0:
		return fmt.Sprintf("%s expects %d to %d arguments, got %d", e.Name, e.Expected, e.AtMost, e.Got)
	case e.AtLeast:
		return fmt.Sprintf("%s expects at least %d arguments, got %d", e.Name, e.Expected, e.Got)
	}
	return fmt.Sprintf("%s expects %d arguments, got %d", e.Name, e.Expected, e.Got)
}

// RuntimeError reports a semantic failure during execution.
type RuntimeError struct {
	Msg string
	Err error
}

func (e *RuntimeError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// Runtimef builds a RuntimeError from a format string.
func Runtimef(format string, args ...any) *RuntimeError {
	return &RuntimeError{Msg: fmt.Sprintf(format, args...)}
}

// StackOverflowError is fatal: the call depth limit was exceeded.
type StackOverflowError struct {
	Depth int
}

func (e *StackOverflowError) Error() string {
	return fmt.Sprintf("stack overflow: call depth exceeded %d", e.Depth)
}

// FaultError carries a foreign failure that has no better classification.
type FaultError struct {
	Err error
}

func (e *FaultError) Error() string { return "interpreter fault: " + e.Err.Error() }
func (e *FaultError) Unwrap() error { return e.Err }

// LineError annotates an error with the source line it unwound through.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }
func (e *LineError) Unwrap() error { return e.Err }

// AtLine attaches a line number unless err already carries one.
func AtLine(err error, line int) error {
	if err == nil {
		return nil
	}
	var le *LineError
	if errors.As(err, &le) {
		return err
	}
	var pe *ParseError
	if errors.As(err, &pe) && pe.Line >= 0 {
		return err
	}
	return &LineError{Line: line, Err: err}
}

// KindOf classifies err. Errors outside the taxonomy are Fault.
func KindOf(err error) Kind {
	var (
		tok   *UnknownTokenError
		parse *ParseError
		undef *UndefinedError
		typ   *TypeError
		arity *ArityError
		rt    *RuntimeError
		so    *StackOverflowError
	)
	switch {
	case errors.As(err, &so):
		return StackOverflow
	case errors.As(err, &tok), errors.Is(err, ErrEndOfStream):
		return Lexical
	case errors.As(err, &parse):
		return Parse
	case errors.As(err, &undef):
		return Undefined
	case errors.As(err, &typ):
		return Type
	case errors.As(err, &arity):
		return Arity
	case errors.As(err, &rt):
		return Runtime
	}
	return Fault
}

// Is reports whether err belongs to kind k.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// Wrap maps a foreign failure into the taxonomy where it can.
// Format errors become parse errors, range and runtime panics become runtime
// errors; anything else is wrapped as a fault.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != Fault {
		return err
	}
	var fe *FaultError
	if errors.As(err, &fe) {
		return err
	}
	var num *strconv.NumError
	if errors.As(err, &num) {
		if errors.Is(num.Err, strconv.ErrRange) {
			return &RuntimeError{Msg: "numeric overflow", Err: err}
		}
		return &ParseError{Line: -1, Msg: err.Error()}
	}
	var re runtime.Error
	if errors.As(err, &re) {
		return &RuntimeError{Msg: "runtime failure", Err: err}
	}
	return &FaultError{Err: err}
}

// FromPanic converts a recovered panic value into an error.
func FromPanic(r any) error {
	switch v := r.(type) {
	case error:
		return Wrap(v)
	case string:
		return &FaultError{Err: errors.New(v)}
	}
	return &FaultError{Err: fmt.Errorf("%v", r)}
}
