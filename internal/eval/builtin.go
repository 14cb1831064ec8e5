package eval

import (
	"strings"

	"nickandperla.net/tbasic/internal/errs"
	"nickandperla.net/tbasic/internal/expr"
	"nickandperla.net/tbasic/internal/line"
	"nickandperla.net/tbasic/internal/value"
)

// registerCore adds the statements every evaluator needs.
func registerCore(r *Registry) {
	for _, n := range coreStatements() {
		r.Tagged(n)
	}
}

func coreStatements() []*Native {
	stmt := func(name string, returns bool, fn NativeFunc) *Native {
		return &Native{Name: name, Raw: true, Statement: true, Returns: returns, Variadic: true, Fn: fn}
	}
	return []*Native{
		stmt("LET", true, builtinLet),
		stmt("DIM", false, builtinDim),
		stmt("IF", true, builtinIf),
		stmt("RETURN", false, builtinReturn),
		stmt("BREAK", false, builtinBreak),
		stmt("CONTINUE", false, builtinContinue),
		stmt("EXIT", false, builtinExit),
		stmt("STOP", false, builtinStop),
		stmt("END", false, builtinStop),
		stmt("REM", false, builtinRem),
		stmt("CALL", false, builtinCall),
		stmt("SWAP", false, builtinSwap),
	}
}

// LET target = value
func builtinLet(f *Frame, _ []value.Value) (value.Value, error) {
	a, err := f.ev.compileAssignment(f.Raw)
	if err != nil {
		return value.Value{}, err
	}
	v, err := f.ev.evalNode(a.value)
	if err != nil {
		return value.Value{}, err
	}
	if err := f.ev.assign(a.target, v); err != nil {
		return value.Value{}, err
	}
	return v, nil
}

// DIM name [AS type] [= value], array(n[, m...]) [AS type], ...
func builtinDim(f *Frame, _ []value.Value) (value.Value, error) {
	if strings.TrimSpace(f.Raw) == "" {
		return value.Value{}, errs.Runtimef("DIM needs a name")
	}
	for _, part := range line.SplitTop(f.Raw, ',', f.Escape()) {
		if err := dimOne(f, strings.TrimSpace(part)); err != nil {
			return value.Value{}, err
		}
	}
	return value.Value{}, nil
}

func dimOne(f *Frame, decl string) error {
	toks, err := f.ev.scan(decl)
	if err != nil {
		return err
	}
	left, init := decl, ""
	if at := splitEquals(toks); at >= 0 {
		left = strings.TrimSpace(decl[:toks[at].Offset])
		init = strings.TrimSpace(decl[toks[at].End():])
	}
	kind := value.Any
	if name, typ, ok := line.SplitWord(left, "AS", f.Escape()); ok {
		if kind, err = kindOf(typ); err != nil {
			return err
		}
		left = name
	}
	target, err := f.ev.compile(left)
	if err != nil {
		return err
	}
	switch t := target.(type) {
	case *expr.Ident:
		v := zeroFor(kind)
		if init != "" {
			if v, err = f.EvalText(init); err != nil {
				return err
			}
			if v, err = value.Coerce(v, kind); err != nil {
				return err
			}
		}
		f.Scope().Declare(t.Name, v)
		return nil
	case *expr.Call:
		if init != "" {
			return errs.Runtimef("array %s cannot have an initial value", t.Name)
		}
		dims := make([]int64, len(t.Args))
		for i, a := range t.Args {
			v, err := f.ev.evalNode(a)
			if err != nil {
				return err
			}
			n, err := value.ToInt(v)
			if err != nil {
				return err
			}
			if n < 0 {
				return errs.Runtimef("negative array bound %d for %s", n, t.Name)
			}
			dims[i] = n
		}
		f.Scope().Declare(t.Name, newArray(dims, kind))
		return nil
	}
	return &errs.ParseError{Line: -1, Msg: "invalid DIM target " + left}
}

// newArray builds nested arrays; each dimension n holds n+1 elements.
func newArray(dims []int64, kind value.Kind) value.Value {
	elems := make([]value.Value, dims[0]+1)
	for i := range elems {
		if len(dims) > 1 {
			elems[i] = newArray(dims[1:], kind)
		} else {
			elems[i] = zeroFor(kind)
		}
	}
	return value.FromSlice(elems)
}

func zeroFor(k value.Kind) value.Value {
	if k == value.String {
		return value.NewString("")
	}
	return value.Zero(k)
}

func kindOf(name string) (value.Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "INTEGER", "LONG":
		return value.Int, nil
	case "SINGLE", "DOUBLE", "FLOAT":
		return value.Float, nil
	case "STRING":
		return value.String, nil
	case "BOOLEAN":
		return value.Bool, nil
	case "VARIANT", "OBJECT":
		return value.Any, nil
	}
	return value.Any, &errs.UndefinedError{Name: name, What: "type"}
}

// IF cond THEN statement [ELSE statement]
func builtinIf(f *Frame, _ []value.Value) (value.Value, error) {
	cond, rest, ok := line.SplitWord(f.Raw, "THEN", f.Escape())
	if !ok {
		return value.Value{}, &errs.ParseError{Line: -1, Msg: "IF without THEN"}
	}
	then, otherwise, hasElse := line.SplitWord(rest, "ELSE", f.Escape())
	v, err := f.EvalText(cond)
	if err != nil {
		return value.Value{}, err
	}
	b, err := value.ToBool(v)
	if err != nil {
		return value.Value{}, err
	}
	switch {
	case b && then != "":
		return f.Exec(then)
	case !b && hasElse && otherwise != "":
		return f.Exec(otherwise)
	}
	return value.Value{}, nil
}

// RETURN [value]
func builtinReturn(f *Frame, _ []value.Value) (value.Value, error) {
	if strings.TrimSpace(f.Raw) == "" {
		f.Return(value.Value{})
		return value.Value{}, nil
	}
	v, err := f.EvalText(f.Raw)
	if err != nil {
		return value.Value{}, err
	}
	f.Return(v)
	return v, nil
}

func builtinBreak(f *Frame, _ []value.Value) (value.Value, error) {
	f.Break()
	return value.Value{}, nil
}

func builtinContinue(f *Frame, _ []value.Value) (value.Value, error) {
	f.Continue()
	return value.Value{}, nil
}

// EXIT [FOR|WHILE|DO|FUNCTION|SUB]; a bare EXIT ends the program.
func builtinExit(f *Frame, _ []value.Value) (value.Value, error) {
	switch strings.ToUpper(strings.TrimSpace(f.Raw)) {
	case "":
		f.RequestExit()
	case "FOR", "WHILE", "DO", "LOOP":
		f.Break()
	case "FUNCTION", "SUB":
		f.Leave()
	default:
		return value.Value{}, &errs.ParseError{Line: -1, Msg: "unknown EXIT target " + f.Raw}
	}
	return value.Value{}, nil
}

func builtinStop(f *Frame, _ []value.Value) (value.Value, error) {
	if strings.TrimSpace(f.Raw) != "" {
		return value.Value{}, &errs.ParseError{Line: -1, Msg: "unexpected " + f.Name + " " + f.Raw}
	}
	f.RequestExit()
	return value.Value{}, nil
}

func builtinRem(*Frame, []value.Value) (value.Value, error) {
	return value.Value{}, nil
}

// CALL name[(args)] | CALL name args
func builtinCall(f *Frame, _ []value.Value) (value.Value, error) {
	if strings.TrimSpace(f.Raw) == "" {
		return value.Value{}, errs.Runtimef("CALL needs a target")
	}
	return f.Exec(f.Raw)
}

// SWAP a, b
func builtinSwap(f *Frame, _ []value.Value) (value.Value, error) {
	parts := line.SplitTop(f.Raw, ',', f.Escape())
	if len(parts) != 2 {
		return value.Value{}, &errs.ArityError{Name: "SWAP", Expected: 2, Got: len(parts)}
	}
	var targets [2]expr.Node
	var vals [2]value.Value
	for i, p := range parts {
		n, err := f.ev.compile(strings.TrimSpace(p))
		if err != nil {
			return value.Value{}, err
		}
		if !expr.IsAssignable(n) {
			return value.Value{}, errs.Runtimef("cannot SWAP %s", n)
		}
		if vals[i], err = f.ev.evalNode(n); err != nil {
			return value.Value{}, err
		}
		targets[i] = n
	}
	if err := f.Assign(targets[0], vals[1]); err != nil {
		return value.Value{}, err
	}
	return value.Value{}, f.Assign(targets[1], vals[0])
}
