package eval

import (
	"fmt"
	"log/slog"
	"strings"

	"nickandperla.net/tbasic/internal/block"
	"nickandperla.net/tbasic/internal/errs"
	"nickandperla.net/tbasic/internal/expr"
	"nickandperla.net/tbasic/internal/line"
	"nickandperla.net/tbasic/internal/scanner"
	"nickandperla.net/tbasic/internal/token"
	"nickandperla.net/tbasic/internal/value"
)

// DefaultMaxDepth bounds nested script calls.
const DefaultMaxDepth = 2000

// InputReader reads user input.
type InputReader func(prompt string) (string, error)

// OutputWriter writes output (for PRINT).
type OutputWriter func(text string) error

// Result is the outcome of one top-level unit.
type Result struct {
	Value  value.Value
	Exited bool // STOP, END or EXIT was executed
}

// Evaluator executes tbasic programs. It owns its registry and global scope;
// an Evaluator must not be driven from more than one goroutine at a time.
type Evaluator struct {
	reg    *Registry
	global *Scope
	act    *activation
	line   line.Line // statement being executed

	kinds       []*block.Kind
	parser      *block.Parser
	pre         *line.Preprocessor
	implicitLet bool
	escape      rune
	maxDepth    int
	logger      *slog.Logger

	inputReader  InputReader
	outputWriter OutputWriter

	exprs   map[string]expr.Node
	lists   map[string][]expr.Node
	assigns map[string]assignment
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithMaxDepth sets the script call depth limit.
func WithMaxDepth(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.maxDepth = n
		}
	}
}

// WithLogger sets the structured logger used for call tracing.
func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithEscape sets the string escape rune of the dialect.
func WithEscape(r rune) Option {
	return func(e *Evaluator) { e.escape = r }
}

// WithKinds replaces the block kinds recognised by the parser.
func WithKinds(kinds ...*block.Kind) Option {
	return func(e *Evaluator) { e.kinds = kinds }
}

// WithImplicitLet enables or disables the "X = 1" shorthand.
func WithImplicitLet(on bool) Option {
	return func(e *Evaluator) { e.implicitLet = on }
}

// WithInputReader sets the input reader for INPUT.
func WithInputReader(r InputReader) Option {
	return func(e *Evaluator) { e.inputReader = r }
}

// WithOutputWriter sets the output writer for PRINT.
func WithOutputWriter(w OutputWriter) Option {
	return func(e *Evaluator) { e.outputWriter = w }
}

// New creates an Evaluator over reg. A nil registry gets the standard
// operators only. Core statements are always registered.
func New(reg *Registry, opts ...Option) *Evaluator {
	if reg == nil {
		reg = NewRegistry()
	}
	registerCore(reg)
	e := &Evaluator{
		reg:         reg,
		global:      NewScope(nil),
		implicitLet: true,
		escape:      scanner.StandardEscape,
		maxDepth:    DefaultMaxDepth,
		logger:      slog.New(slog.DiscardHandler),
		outputWriter: func(text string) error {
			fmt.Print(text)
			return nil
		},
		exprs:   make(map[string]expr.Node),
		lists:   make(map[string][]expr.Node),
		assigns: make(map[string]assignment),
	}
	for _, opt := range opts {
		opt(e)
	}
	popts := []block.Option{block.WithEscape(e.escape)}
	if e.kinds != nil {
		popts = append(popts, block.WithKinds(e.kinds...))
	}
	e.parser = block.NewParser(popts...)
	e.pre = line.NewPreprocessor(e.implicitLet)
	e.act = &activation{name: "main", scope: e.global}
	return e
}

// SetInputReader changes the input reader for INPUT.
func (e *Evaluator) SetInputReader(r InputReader) {
	e.inputReader = r
}

// SetOutputWriter changes the output writer for PRINT.
func (e *Evaluator) SetOutputWriter(w OutputWriter) {
	e.outputWriter = w
}

// Registry returns the evaluator's registry. Operators added to it take
// effect for expressions not yet compiled.
func (e *Evaluator) Registry() *Registry {
	return e.reg
}

// Global returns the global scope.
func (e *Evaluator) Global() *Scope {
	return e.global
}

// Parser returns the block parser, for callers that need Incomplete.
func (e *Evaluator) Parser() *block.Parser {
	return e.parser
}

// Preprocess applies the line rewrites (implicit LET) to lines.
func (e *Evaluator) Preprocess(lines []line.Line) []line.Line {
	for _, k := range e.reg.Keywords() {
		e.pre.Keywords[k] = true
	}
	return e.pre.ProcessAll(lines)
}

// Run preprocesses, parses and executes lines as one program.
func (e *Evaluator) Run(lines []line.Line) (Result, error) {
	prog, err := e.parser.Parse(e.Preprocess(lines))
	if err != nil {
		return Result{}, err
	}
	return e.RunProgram(prog)
}

// RunString runs source text.
func (e *Evaluator) RunString(src string) (Result, error) {
	lines, err := line.Read(strings.NewReader(src))
	if err != nil {
		return Result{}, err
	}
	return e.Run(lines)
}

// EvalLine runs a single statement line.
func (e *Evaluator) EvalLine(text string) (Result, error) {
	return e.Run([]line.Line{line.New(0, text)})
}

// RunProgram executes a parsed program in the global scope.
func (e *Evaluator) RunProgram(prog *block.Program) (Result, error) {
	e.logger.Debug("run program", slog.Int("statements", block.Count(prog.Body)))
	return e.top("main", func() (value.Value, error) {
		return e.execBlock(prog.Body)
	})
}

// Eval evaluates an expression in the global scope.
func (e *Evaluator) Eval(text string) (Result, error) {
	return e.top("eval", func() (value.Value, error) {
		n, err := e.compile(text)
		if err != nil {
			return value.Value{}, err
		}
		return e.evalNode(n)
	})
}

// Call invokes a function by name with evaluated arguments.
func (e *Evaluator) Call(name string, args ...value.Value) (Result, error) {
	return e.top("call", func() (value.Value, error) {
		c, ok := e.lookupCall(name)
		if !ok {
			return value.Value{}, &errs.UndefinedError{Name: name, What: "function"}
		}
		if def, ok := c.Script(); ok {
			return e.callScript(def, args, nil)
		}
		n, _ := c.Native()
		if n.Raw {
			return value.Value{}, errs.Runtimef("%s cannot be called with values", n.Name)
		}
		return e.invokeNative(valueFrame(e, name, n, args), n, true, args)
	})
}

// top runs fn in a fresh top-level activation and reports its signals.
func (e *Evaluator) top(name string, fn func() (value.Value, error)) (Result, error) {
	act := &activation{name: name, scope: e.global}
	prev := e.act
	e.act = act
	defer func() { e.act = prev }()

	v, err := fn()
	if err != nil {
		return Result{}, err
	}
	if act.signal == sigReturn && act.retSet {
		v = act.ret
	}
	return Result{Value: v, Exited: act.signal == sigExit}, nil
}

// execBlock runs a sequence of nodes, stopping at the first pending signal.
func (e *Evaluator) execBlock(nodes []block.Node) (value.Value, error) {
	e.hoist(nodes)
	var last value.Value
	for _, n := range nodes {
		v, err := e.execNode(n)
		if err != nil {
			return value.Value{}, errs.AtLine(err, n.Header().Number)
		}
		last = v
		if e.act.signal != sigNone {
			break
		}
	}
	return last, nil
}

// hoist registers the functions and classes defined directly in nodes.
func (e *Evaluator) hoist(nodes []block.Node) {
	for _, n := range nodes {
		switch d := n.(type) {
		case *block.FuncDef:
			e.act.scope.DefineFunc(d.Name, FromScript(d))
		case *block.ClassDef:
			e.defineClass(d)
		}
	}
}

func (e *Evaluator) execNode(n block.Node) (value.Value, error) {
	switch n := n.(type) {
	case *block.Statement:
		return e.execStatement(n.Line)
	case *block.While:
		return e.execWhile(n)
	case *block.For:
		return e.execFor(n)
	case *block.DoLoop:
		return e.execDo(n)
	case *block.If:
		return e.execIf(n)
	case *block.FuncDef, *block.ClassDef:
		return value.Value{}, nil
	}
	return value.Value{}, errs.Runtimef("unsupported block %T", n)
}

// loopDone consumes break and continue and reports whether the loop must
// stop. Return and exit are left pending for the enclosing call.
func (e *Evaluator) loopDone() bool {
	switch e.act.signal {
	case sigBreak:
		e.act.signal = sigNone
		return true
	case sigContinue:
		e.act.signal = sigNone
	case sigReturn, sigExit:
		return true
	}
	return false
}

func (e *Evaluator) execWhile(w *block.While) (value.Value, error) {
	if strings.TrimSpace(w.Cond) == "" {
		return value.Value{}, errs.Runtimef("WHILE without a condition")
	}
	for {
		ok, err := e.cond(w.Cond)
		if err != nil {
			return value.Value{}, err
		}
		if !ok {
			break
		}
		if _, err := e.execBlock(w.Body); err != nil {
			return value.Value{}, err
		}
		if e.loopDone() {
			break
		}
	}
	return value.Value{}, nil
}

func (e *Evaluator) execFor(f *block.For) (value.Value, error) {
	from, err := e.evalText(f.From)
	if err != nil {
		return value.Value{}, err
	}
	to, err := e.evalText(f.To)
	if err != nil {
		return value.Value{}, err
	}
	step := value.NewInt(1)
	if f.Step != "" {
		if step, err = e.evalText(f.Step); err != nil {
			return value.Value{}, err
		}
	}
	dir, err := value.ToFloat(step)
	if err != nil {
		return value.Value{}, err
	}
	if dir == 0 {
		return value.Value{}, errs.Runtimef("FOR step must not be zero")
	}
	if from, err = value.ToNumber(from); err != nil {
		return value.Value{}, err
	}
	e.act.scope.Assign(f.Var, from)
	for {
		cur, _ := e.act.scope.Lookup(f.Var)
		c, err := value.Compare(cur, to)
		if err != nil {
			return value.Value{}, err
		}
		if (dir > 0 && c > 0) || (dir < 0 && c < 0) {
			break
		}
		if _, err := e.execBlock(f.Body); err != nil {
			return value.Value{}, err
		}
		if e.loopDone() {
			break
		}
		cur, _ = e.act.scope.Lookup(f.Var)
		next, err := e.applyBinary("+", cur, step)
		if err != nil {
			return value.Value{}, err
		}
		e.act.scope.Assign(f.Var, next)
	}
	return value.Value{}, nil
}

func (e *Evaluator) execDo(d *block.DoLoop) (value.Value, error) {
	for {
		if d.PreCond != "" {
			ok, err := e.cond(d.PreCond)
			if err != nil {
				return value.Value{}, err
			}
			if ok == d.PreUntil {
				break
			}
		}
		if _, err := e.execBlock(d.Body); err != nil {
			return value.Value{}, err
		}
		if e.loopDone() {
			break
		}
		if d.PostCond != "" {
			ok, err := e.cond(d.PostCond)
			if err != nil {
				return value.Value{}, err
			}
			if ok == d.PostUntil {
				break
			}
		}
	}
	return value.Value{}, nil
}

func (e *Evaluator) execIf(n *block.If) (value.Value, error) {
	for _, b := range n.Branches {
		ok, err := e.cond(b.Cond)
		if err != nil {
			return value.Value{}, errs.AtLine(err, b.Head.Number)
		}
		if ok {
			return e.execBlock(b.Body)
		}
	}
	if n.HasElse {
		return e.execBlock(n.Else)
	}
	return value.Value{}, nil
}

// execStatement resolves a line by name. A callable name is dispatched as a
// call; anything else is evaluated as an expression.
func (e *Evaluator) execStatement(l line.Line) (value.Value, error) {
	if l.IsBlank() {
		return value.Value{}, nil
	}
	prev := e.line
	e.line = l
	defer func() { e.line = prev }()

	c, ok := e.lookupCall(l.Name)
	if !ok {
		if e.isCommandForm(l) {
			return value.Value{}, &errs.UndefinedError{Name: l.Name, What: "function"}
		}
		n, err := e.compile(l.Text)
		if err != nil {
			return value.Value{}, err
		}
		return e.evalNode(n)
	}
	if n, ok := c.Native(); ok && n.Raw {
		f := newFrame(e, l.Name, nil, n)
		f.Raw = l.Rest()
		return e.invokeNative(f, n, true, nil)
	}
	if l.IsFunction {
		n, err := e.compile(l.Text)
		if err != nil {
			return value.Value{}, err
		}
		call, ok := n.(*expr.Call)
		if !ok || value.Canonical(call.Name) != value.Canonical(l.Name) {
			return e.evalNode(n)
		}
		return e.callTarget(l.Name, c, call.Args, true)
	}
	args, err := e.compileList(l.Rest())
	if err != nil {
		return value.Value{}, err
	}
	return e.callTarget(l.Name, c, args, true)
}

// isCommandForm reports whether l reads as "NAME arg, ..." rather than an
// expression: the name is an identifier and the rest does not start with an
// operator or punctuation.
func (e *Evaluator) isCommandForm(l line.Line) bool {
	rest := l.Rest()
	if l.IsFunction || rest == "" {
		return false
	}
	if name, err := e.scan(l.Name); err != nil || len(name) != 2 || name[0].Kind != token.IDENT {
		return false
	}
	toks, err := e.scan(rest)
	if err != nil || len(toks) == 0 {
		return false
	}
	first := toks[0]
	switch first.Kind {
	case token.OPERATOR, token.PUNCT, token.EOF, token.COMMENT:
		return false
	case token.IDENT:
		if _, _, isOp := e.reg.Grammar().BinaryPrec(first.Text); isOp {
			return false
		}
	}
	return true
}

// lookupCall finds a callable: script functions in the scope chain first,
// then the registry.
func (e *Evaluator) lookupCall(name string) (CallData, bool) {
	if c, ok := e.act.scope.Func(name); ok {
		return c, true
	}
	return e.reg.Lookup(name)
}

// callTarget dispatches a call with unevaluated arguments.
func (e *Evaluator) callTarget(name string, c CallData, args []expr.Node, statement bool) (value.Value, error) {
	if n, ok := c.Native(); ok {
		return e.invokeNative(newFrame(e, name, args, n), n, statement, nil)
	}
	def, _ := c.Script()
	if !statement && def.Sub {
		return value.Value{}, errs.Runtimef("SUB %s does not produce a value", def.Name)
	}
	vals, err := e.evalAll(args)
	if err != nil {
		return value.Value{}, err
	}
	return e.callScript(def, vals, nil)
}

// invokeNative applies the calling convention and runs n. Pre-evaluated
// arguments may be passed in vals.
func (e *Evaluator) invokeNative(f *Frame, n *Native, statement bool, vals []value.Value) (value.Value, error) {
	if !statement && (!n.Returns || n.Statement) {
		return value.Value{}, errs.Runtimef("%s does not produce a value", n.Name)
	}
	var args []value.Value
	switch {
	case n.Raw:
	case n.Eager:
		if vals == nil {
			var err error
			if vals, err = f.EvaluateAll(); err != nil {
				return value.Value{}, err
			}
		}
		var err error
		if args, err = n.bind(vals); err != nil {
			return value.Value{}, err
		}
	default:
		if err := n.checkArity(f.Len()); err != nil {
			return value.Value{}, err
		}
	}
	e.logger.Debug("native call",
		slog.String("function", n.Name),
		slog.Int("argument-count", f.Len()))

	v, err := e.safeNative(n, f, args)
	if err != nil {
		return value.Value{}, err
	}
	if !n.Returns {
		return value.Value{}, nil
	}
	return v, nil
}

// safeNative runs a native, recovering panics into the error taxonomy.
func (e *Evaluator) safeNative(n *Native, f *Frame, args []value.Value) (v value.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.FromPanic(r)
		}
	}()
	v, err = n.Fn(f, args)
	return v, errs.Wrap(err)
}

// callScript pushes a scope, binds parameters, runs the body and pops the
// scope whether or not the body fails.
func (e *Evaluator) callScript(def *block.FuncDef, args []value.Value, self *Instance) (value.Value, error) {
	if len(args) != len(def.Params) {
		return value.Value{}, &errs.ArityError{Name: def.Name, Expected: len(def.Params), Got: len(args)}
	}
	caller := e.act
	depth := caller.depth + 1
	if depth > e.maxDepth {
		return value.Value{}, &errs.StackOverflowError{Depth: e.maxDepth}
	}
	parent := e.global
	if self != nil {
		parent = self.fields
	}
	sc := NewScope(parent)
	for i, p := range def.Params {
		sc.Declare(p, args[i])
	}
	if self != nil {
		sc.Declare("ME", value.NewObject(self))
	}
	act := &activation{name: def.Name, scope: sc, depth: depth}
	e.act = act
	e.logger.Debug("push frame",
		slog.String("function", def.Name),
		slog.Int("depth", depth))
	defer func() {
		e.act = caller
		e.logger.Debug("pop frame",
			slog.String("function", def.Name),
			slog.Int("depth", depth),
			slog.String("signal", act.signal.String()))
	}()

	if _, err := e.execBlock(def.Body); err != nil {
		return value.Value{}, err
	}
	if act.signal == sigExit {
		caller.signal = sigExit
	}
	if def.Sub {
		return value.Value{}, nil
	}
	if act.signal == sigReturn && act.retSet {
		return act.ret, nil
	}
	// FUNCTION F ... F = result ... END FUNCTION
	if v, ok := sc.vars[value.Canonical(def.Name)]; ok {
		return v, nil
	}
	return value.Value{}, nil
}

func (e *Evaluator) evalAll(nodes []expr.Node) ([]value.Value, error) {
	vals := make([]value.Value, len(nodes))
	for i, n := range nodes {
		v, err := e.evalNode(n)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

func (e *Evaluator) evalText(text string) (value.Value, error) {
	n, err := e.compile(text)
	if err != nil {
		return value.Value{}, err
	}
	return e.evalNode(n)
}

func (e *Evaluator) cond(text string) (bool, error) {
	v, err := e.evalText(text)
	if err != nil {
		return false, err
	}
	return value.ToBool(v)
}
