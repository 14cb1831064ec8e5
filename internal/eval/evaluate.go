package eval

import (
	"nickandperla.net/tbasic/internal/errs"
	"nickandperla.net/tbasic/internal/expr"
	"nickandperla.net/tbasic/internal/ops"
	"nickandperla.net/tbasic/internal/scanner"
	"nickandperla.net/tbasic/internal/token"
	"nickandperla.net/tbasic/internal/value"
)

// Caller is implemented by host objects that expose methods.
type Caller interface {
	CallMethod(name string, args []value.Value) (value.Value, error)
}

// opContext adapts the evaluator to ops.Context.
type opContext struct {
	e *Evaluator
}

func (c opContext) Eval(n expr.Node) (value.Value, error) {
	return c.e.evalNode(n)
}

func (c opContext) Construct(typeName string, args []expr.Node) (value.Value, error) {
	return c.e.construct(typeName, args)
}

func (e *Evaluator) evalNode(n expr.Node) (value.Value, error) {
	switch n := n.(type) {
	case *expr.Literal:
		return n.Value, nil
	case *expr.Paren:
		return e.evalNode(n.X)
	case *expr.Ident:
		return e.evalIdent(n)
	case *expr.Unary:
		op, err := e.reg.Unary.Lookup(n.Op)
		if err != nil {
			return value.Value{}, err
		}
		return e.applyOp(op, n.X)
	case *expr.Binary:
		op, err := e.reg.Binary.Lookup(n.Op)
		if err != nil {
			return value.Value{}, err
		}
		return e.applyOp(op, n.L, n.R)
	case *expr.Call:
		return e.evalCall(n)
	case *expr.Member:
		obj, err := e.object(n.X)
		if err != nil {
			return value.Value{}, err
		}
		return obj.GetField(n.Name)
	case *expr.MethodCall:
		return e.evalMethod(n)
	}
	return value.Value{}, errs.Runtimef("unsupported expression %T", n)
}

func (e *Evaluator) applyOp(op *ops.Operator, nodes ...expr.Node) (value.Value, error) {
	args := make([]ops.Operand, len(nodes))
	for i, n := range nodes {
		args[i].Node = n
		if op.Eager {
			v, err := e.evalNode(n)
			if err != nil {
				return value.Value{}, err
			}
			args[i].Value, args[i].Evaluated = v, true
		}
	}
	return op.Fn(opContext{e}, args)
}

// applyBinary applies a binary operator to evaluated values.
func (e *Evaluator) applyBinary(name string, a, b value.Value) (value.Value, error) {
	op, err := e.reg.Binary.Lookup(name)
	if err != nil {
		return value.Value{}, err
	}
	return op.Fn(opContext{e}, []ops.Operand{
		{Value: a, Evaluated: true},
		{Value: b, Evaluated: true},
	})
}

// evalIdent reads a variable. A function that produces a value may be named
// without parentheses.
func (e *Evaluator) evalIdent(n *expr.Ident) (value.Value, error) {
	if v, ok := e.act.scope.Lookup(n.Name); ok {
		return v, nil
	}
	if c, ok := e.lookupCall(n.Name); ok && c.producesValue() {
		return e.callTarget(n.Name, c, nil, false)
	}
	return value.Value{}, &errs.UndefinedError{Name: n.Name, What: "variable", Scope: e.act.name}
}

// evalCall indexes an array variable or calls a function.
func (e *Evaluator) evalCall(n *expr.Call) (value.Value, error) {
	if v, ok := e.act.scope.Lookup(n.Name); ok && v.Kind() == value.Array {
		elems, i, err := e.element(n.Name, v, n.Args)
		if err != nil {
			return value.Value{}, err
		}
		return elems[i], nil
	}
	c, ok := e.lookupCall(n.Name)
	if !ok {
		return value.Value{}, &errs.UndefinedError{Name: n.Name, What: "function"}
	}
	return e.callTarget(n.Name, c, n.Args, false)
}

func (e *Evaluator) evalMethod(n *expr.MethodCall) (value.Value, error) {
	x, err := e.evalNode(n.X)
	if err != nil {
		return value.Value{}, err
	}
	switch obj := x.Ref().(type) {
	case *Instance:
		def, ok := obj.class.methods[value.Canonical(n.Name)]
		if !ok {
			return value.Value{}, &errs.UndefinedError{Name: n.Name, What: "method", Scope: obj.class.name}
		}
		args, err := e.evalAll(n.Args)
		if err != nil {
			return value.Value{}, err
		}
		return e.callScript(def, args, obj)
	case Caller:
		args, err := e.evalAll(n.Args)
		if err != nil {
			return value.Value{}, err
		}
		return e.safeMethod(obj, n.Name, args)
	}
	return value.Value{}, &errs.TypeError{From: x.TypeName(), Expected: "object with methods"}
}

func (e *Evaluator) safeMethod(obj Caller, name string, args []value.Value) (v value.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.FromPanic(r)
		}
	}()
	v, err = obj.CallMethod(name, args)
	return v, errs.Wrap(err)
}

func (e *Evaluator) object(n expr.Node) (value.Member, error) {
	x, err := e.evalNode(n)
	if err != nil {
		return nil, err
	}
	obj, ok := x.Ref().(value.Member)
	if !ok {
		return nil, &errs.TypeError{From: x.TypeName(), Expected: "object"}
	}
	return obj, nil
}

// element walks nested arrays and returns the innermost backing slice and
// the index into it.
func (e *Evaluator) element(name string, arr value.Value, args []expr.Node) ([]value.Value, int, error) {
	if len(args) == 0 {
		return nil, 0, errs.Runtimef("array %s needs an index", name)
	}
	cur := arr
	for k, a := range args {
		if cur.Kind() != value.Array {
			return nil, 0, &errs.TypeError{From: cur.TypeName(), Expected: "array"}
		}
		iv, err := e.evalNode(a)
		if err != nil {
			return nil, 0, err
		}
		i, err := value.ToInt(iv)
		if err != nil {
			return nil, 0, err
		}
		elems := cur.Elems()
		if i < 0 || i >= int64(len(elems)) {
			return nil, 0, errs.Runtimef("index %d out of range for %s(0 to %d)", i, name, len(elems)-1)
		}
		if k == len(args)-1 {
			return elems, int(i), nil
		}
		cur = elems[i]
	}
	return nil, 0, nil
}

// construct resolves typeName before any argument is evaluated.
func (e *Evaluator) construct(typeName string, args []expr.Node) (value.Value, error) {
	factory, ok := e.reg.Types[value.Canonical(typeName)]
	if !ok {
		return value.Value{}, &errs.UndefinedError{Name: typeName, What: "type"}
	}
	f := newFrame(e, typeName, args, nil)
	vals, err := f.EvaluateAll()
	if err != nil {
		return value.Value{}, err
	}
	return e.safeFactory(factory, f, vals)
}

func (e *Evaluator) safeFactory(factory TypeFactory, f *Frame, args []value.Value) (v value.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.FromPanic(r)
		}
	}()
	v, err = factory(f, args)
	return v, errs.Wrap(err)
}

// assign stores v into target.
func (e *Evaluator) assign(target expr.Node, v value.Value) error {
	switch t := expr.Unparen(target).(type) {
	case *expr.Ident:
		e.act.scope.Assign(t.Name, v)
		return nil
	case *expr.Member:
		obj, err := e.object(t.X)
		if err != nil {
			return err
		}
		return obj.SetField(t.Name, v)
	case *expr.Call:
		arr, ok := e.act.scope.Lookup(t.Name)
		if !ok {
			return &errs.UndefinedError{Name: t.Name, What: "array", Scope: e.act.name}
		}
		if arr.Kind() != value.Array {
			return &errs.TypeError{From: arr.TypeName(), Expected: "array"}
		}
		elems, i, err := e.element(t.Name, arr, t.Args)
		if err != nil {
			return err
		}
		elems[i] = v
		return nil
	}
	return errs.Runtimef("cannot assign to %s", target)
}

// scan tokenizes text with the operators currently registered.
func (e *Evaluator) scan(text string) ([]token.Token, error) {
	s := scanner.New(text,
		scanner.WithOperators(e.reg.Grammar().Symbols()),
		scanner.WithEscape(e.escape))
	return s.All()
}

// compile parses an expression, caching the tree by source text.
func (e *Evaluator) compile(text string) (expr.Node, error) {
	if n, ok := e.exprs[text]; ok {
		return n, nil
	}
	toks, err := e.scan(text)
	if err != nil {
		return nil, err
	}
	n, err := expr.Parse(toks, e.reg.Grammar(), e.escape)
	if err != nil {
		return nil, err
	}
	e.exprs[text] = n
	return n, nil
}

// compileList parses a comma-separated argument list.
func (e *Evaluator) compileList(text string) ([]expr.Node, error) {
	if nodes, ok := e.lists[text]; ok {
		return nodes, nil
	}
	toks, err := e.scan(text)
	if err != nil {
		return nil, err
	}
	nodes, err := expr.ParseList(toks, e.reg.Grammar(), e.escape)
	if err != nil {
		return nil, err
	}
	e.lists[text] = nodes
	return nodes, nil
}

// assignment is a compiled "target = value".
type assignment struct {
	target expr.Node
	value  expr.Node
}

// compileAssignment splits text at the first top-level '=' operator.
func (e *Evaluator) compileAssignment(text string) (assignment, error) {
	if a, ok := e.assigns[text]; ok {
		return a, nil
	}
	toks, err := e.scan(text)
	if err != nil {
		return assignment{}, err
	}
	at := splitEquals(toks)
	if at < 0 {
		return assignment{}, &errs.ParseError{Line: -1, Msg: "expected '=' in assignment"}
	}
	target, err := expr.Parse(toks[:at], e.reg.Grammar(), e.escape)
	if err != nil {
		return assignment{}, err
	}
	if !expr.IsAssignable(expr.Unparen(target)) {
		return assignment{}, &errs.ParseError{Line: -1, Msg: "cannot assign to " + target.String()}
	}
	rhs, err := expr.Parse(toks[at+1:], e.reg.Grammar(), e.escape)
	if err != nil {
		return assignment{}, err
	}
	a := assignment{target: target, value: rhs}
	e.assigns[text] = a
	return a, nil
}

// splitEquals returns the index of the first '=' token outside parentheses.
func splitEquals(toks []token.Token) int {
	depth := 0
	for i, t := range toks {
		switch {
		case t.Is(token.PUNCT, token.LParen):
			depth++
		case t.Is(token.PUNCT, token.RParen):
			depth--
		case depth == 0 && t.Is(token.OPERATOR, "="):
			return i
		}
	}
	return -1
}
