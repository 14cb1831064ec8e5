package eval

import (
	"log/slog"

	"nickandperla.net/tbasic/internal/errs"
	"nickandperla.net/tbasic/internal/expr"
	"nickandperla.net/tbasic/internal/line"
	"nickandperla.net/tbasic/internal/value"
)

// signal is a pending control transfer for one activation.
type signal int

const (
	sigNone signal = iota
	sigBreak
	sigContinue
	sigReturn
	sigExit
)

func (s signal) String() string {
	switch s {
	case sigBreak:
		return "break"
	case sigContinue:
		return "continue"
	case sigReturn:
		return "return"
	case sigExit:
		return "exit"
	}
	return "none"
}

// activation is the per-call execution context.
type activation struct {
	name   string
	scope  *Scope
	signal signal
	ret    value.Value
	retSet bool
	depth  int
}

// Frame is the runtime data handed to a native function: the call's name,
// its unevaluated arguments, their values once evaluated, and access to the
// calling activation.
type Frame struct {
	Name string
	Args []expr.Node
	Raw  string    // text after the name, set for Raw natives
	Line line.Line // the statement being executed

	ev        *Evaluator
	act       *activation
	native    *Native
	values    []value.Value
	evaluated []bool
}

func newFrame(ev *Evaluator, name string, args []expr.Node, n *Native) *Frame {
	return &Frame{
		Name:      name,
		Args:      args,
		Line:      ev.line,
		ev:        ev,
		act:       ev.act,
		native:    n,
		values:    make([]value.Value, len(args)),
		evaluated: make([]bool, len(args)),
	}
}

// valueFrame is a frame whose arguments arrive already evaluated, as when the
// host calls a native by name.
func valueFrame(ev *Evaluator, name string, n *Native, vals []value.Value) *Frame {
	f := newFrame(ev, name, nil, n)
	f.values = vals
	f.evaluated = make([]bool, len(vals))
	for i := range f.evaluated {
		f.evaluated[i] = true
	}
	return f
}

// Len returns the number of supplied arguments.
func (f *Frame) Len() int {
	return len(f.values)
}

// Eval evaluates argument i once and coerces it to the declared kind. An
// argument past the end yields the zero value of its declared kind.
func (f *Frame) Eval(i int) (value.Value, error) {
	kind := value.Any
	if f.native != nil && i < len(f.native.Params) {
		kind = f.native.Params[i]
	}
	if i >= len(f.values) {
		return value.Zero(kind), nil
	}
	if !f.evaluated[i] {
		v, err := f.ev.evalNode(f.Args[i])
		if err != nil {
			return value.Value{}, err
		}
		f.values[i], f.evaluated[i] = v, true
	}
	return value.Coerce(f.values[i], kind)
}

// EvaluateAll evaluates every supplied argument in order.
func (f *Frame) EvaluateAll() ([]value.Value, error) {
	out := make([]value.Value, len(f.values))
	for i := range f.values {
		if !f.evaluated[i] {
			v, err := f.ev.evalNode(f.Args[i])
			if err != nil {
				return nil, err
			}
			f.values[i], f.evaluated[i] = v, true
		}
		out[i] = f.values[i]
	}
	return out, nil
}

// EvalText compiles and evaluates an expression in the caller's scope.
func (f *Frame) EvalText(text string) (value.Value, error) {
	n, err := f.ev.compile(text)
	if err != nil {
		return value.Value{}, err
	}
	return f.ev.evalNode(n)
}

// Exec runs text as a statement in the caller's activation.
func (f *Frame) Exec(text string) (value.Value, error) {
	l := f.ev.pre.Process(f.Line.WithText(text))
	return f.ev.execStatement(l)
}

// Assign stores v into an assignable expression: a variable, a member or an
// array element.
func (f *Frame) Assign(target expr.Node, v value.Value) error {
	return f.ev.assign(target, v)
}

// AssignText compiles target and stores v into it.
func (f *Frame) AssignText(target string, v value.Value) error {
	n, err := f.ev.compile(target)
	if err != nil {
		return err
	}
	if !expr.IsAssignable(expr.Unparen(n)) {
		return errs.Runtimef("cannot assign to %s", n)
	}
	return f.ev.assign(n, v)
}

// Scope returns the caller's scope.
func (f *Frame) Scope() *Scope {
	return f.act.scope
}

// Break requests that the innermost loop stop.
func (f *Frame) Break() { f.act.signal = sigBreak }

// Continue requests the next iteration of the innermost loop.
func (f *Frame) Continue() { f.act.signal = sigContinue }

// Return leaves the current function with v.
func (f *Frame) Return(v value.Value) {
	f.act.signal = sigReturn
	f.act.ret, f.act.retSet = v, true
}

// Leave exits the current function without setting a return value.
func (f *Frame) Leave() { f.act.signal = sigReturn }

// RequestExit unwinds every active block and call.
func (f *Frame) RequestExit() { f.act.signal = sigExit }

// Print writes text to the evaluator's output.
func (f *Frame) Print(text string) error {
	if f.ev.outputWriter == nil {
		return nil
	}
	return f.ev.outputWriter(text)
}

// Input reads a line from the evaluator's input. Without a reader it
// returns an empty string.
func (f *Frame) Input(prompt string) (string, error) {
	if f.ev.inputReader == nil {
		return "", nil
	}
	return f.ev.inputReader(prompt)
}

// Escape returns the string escape rune of the active dialect.
func (f *Frame) Escape() rune {
	return f.ev.escape
}

// Logger returns the evaluator's logger.
func (f *Frame) Logger() *slog.Logger {
	return f.ev.logger
}
