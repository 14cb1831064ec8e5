package ops

import (
	"math"

	"nickandperla.net/tbasic/internal/errs"
	"nickandperla.net/tbasic/internal/expr"
	"nickandperla.net/tbasic/internal/value"
)

// Binary precedence levels, lowest to highest.
const (
	PrecOr      = 1
	PrecAnd     = 2
	PrecCompare = 3
	PrecConcat  = 4
	PrecShift   = 5
	PrecAdd     = 6
	PrecMul     = 7
	PrecPow     = 8
)

// StandardUnary returns the built-in prefix operators.
func StandardUnary() []Operator {
	return []Operator{
		{Name: "NEW", Fn: opNew},
		{Name: "+", Eager: true, Fn: unary(func(v value.Value) (value.Value, error) { return value.ToNumber(v) })},
		{Name: "-", Eager: true, Fn: unary(negate)},
		{Name: "NOT", Eager: true, Fn: unary(not)},
		{Name: "~", Eager: true, Fn: unary(complement)},
	}
}

// StandardBinary returns the built-in infix operators.
func StandardBinary() []Operator {
	return []Operator{
		{Name: "OR", Prec: PrecOr, Fn: logical(false)},
		{Name: "XOR", Prec: PrecOr, Eager: true, Fn: binary(xor)},
		{Name: "AND", Prec: PrecAnd, Fn: logical(true)},

		{Name: "=", Prec: PrecCompare, Eager: true, Fn: binary(equal(true))},
		{Name: "==", Prec: PrecCompare, Eager: true, Fn: binary(equal(true))},
		{Name: "<>", Prec: PrecCompare, Eager: true, Fn: binary(equal(false))},
		{Name: "!=", Prec: PrecCompare, Eager: true, Fn: binary(equal(false))},
		{Name: "<", Prec: PrecCompare, Eager: true, Fn: binary(compare(func(c int) bool { return c < 0 }))},
		{Name: ">", Prec: PrecCompare, Eager: true, Fn: binary(compare(func(c int) bool { return c > 0 }))},
		{Name: "<=", Prec: PrecCompare, Eager: true, Fn: binary(compare(func(c int) bool { return c <= 0 }))},
		{Name: ">=", Prec: PrecCompare, Eager: true, Fn: binary(compare(func(c int) bool { return c >= 0 }))},

		{Name: "&", Prec: PrecConcat, Eager: true, Fn: binary(concat)},

		{Name: "<<", Prec: PrecShift, Eager: true, Fn: binary(shift(true))},
		{Name: ">>", Prec: PrecShift, Eager: true, Fn: binary(shift(false))},

		{Name: "+", Prec: PrecAdd, Eager: true, Fn: binary(add)},
		{Name: "-", Prec: PrecAdd, Eager: true, Fn: binary(sub)},

		{Name: "*", Prec: PrecMul, Eager: true, Fn: binary(mul)},
		{Name: "/", Prec: PrecMul, Eager: true, Fn: binary(div)},
		{Name: "\\", Prec: PrecMul, Eager: true, Fn: binary(intDiv)},
		{Name: "MOD", Prec: PrecMul, Eager: true, Fn: binary(mod)},

		{Name: "^", Prec: PrecPow, RightAssoc: true, Eager: true, Fn: binary(pow)},
	}
}

// LoadStandard fills both tables with the built-in operators, replacing any
// existing entries of the same spelling.
func LoadStandard(unary, binary *Table) {
	unary.Load(StandardUnary())
	binary.Load(StandardBinary())
}

// Standard returns a fresh grammar holding the built-in operators.
func Standard() Grammar {
	g := Grammar{Unary: NewUnary(), Binary: NewBinary()}
	LoadStandard(g.Unary, g.Binary)
	return g
}

func unary(fn func(value.Value) (value.Value, error)) Func {
	return func(_ Context, args []Operand) (value.Value, error) {
		return fn(args[0].Value)
	}
}

func binary(fn func(a, b value.Value) (value.Value, error)) Func {
	return func(_ Context, args []Operand) (value.Value, error) {
		return fn(args[0].Value, args[1].Value)
	}
}

// opNew resolves the type named by the operand and constructs it. Arguments
// are left unevaluated for Construct.
func opNew(ctx Context, args []Operand) (value.Value, error) {
	switch n := expr.Unparen(args[0].Node).(type) {
	case *expr.Call:
		return ctx.Construct(n.Name, n.Args)
	case *expr.Ident:
		return ctx.Construct(n.Name, nil)
	}
	return value.Value{}, errs.Runtimef("NEW expects a type name, got %s", args[0].Node)
}

func negate(v value.Value) (value.Value, error) {
	n, err := value.ToNumber(v)
	if err != nil {
		return value.Value{}, err
	}
	if n.Kind() == value.Int {
		if n.Int() == math.MinInt64 {
			return value.NewFloat(-float64(n.Int())), nil
		}
		return value.NewInt(-n.Int()), nil
	}
	return value.NewFloat(-n.Float()), nil
}

// not is logical negation for every kind; ~ is the bitwise complement.
func not(v value.Value) (value.Value, error) {
	b, err := value.ToBool(v)
	if err != nil {
		return value.Value{}, err
	}
	return value.NewBool(!b), nil
}

func complement(v value.Value) (value.Value, error) {
	u, err := value.ToUint64(v)
	if err != nil {
		return value.Value{}, err
	}
	return value.NewInt(int64(^u)), nil
}

// logical builds AND/OR. Booleans short-circuit; integers combine bitwise.
func logical(and bool) Func {
	return func(ctx Context, args []Operand) (value.Value, error) {
		l, err := args[0].Get(ctx)
		if err != nil {
			return value.Value{}, err
		}
		if l.Kind() == value.Int {
			r, err := args[1].Get(ctx)
			if err != nil {
				return value.Value{}, err
			}
			ri, err := value.ToInt(r)
			if err != nil {
				return value.Value{}, err
			}
			if and {
				return value.NewInt(l.Int() & ri), nil
			}
			return value.NewInt(l.Int() | ri), nil
		}
		lb, err := value.ToBool(l)
		if err != nil {
			return value.Value{}, err
		}
		if lb != and {
			return value.NewBool(lb), nil
		}
		r, err := args[1].Get(ctx)
		if err != nil {
			return value.Value{}, err
		}
		rb, err := value.ToBool(r)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewBool(rb), nil
	}
}

func xor(a, b value.Value) (value.Value, error) {
	if a.Kind() == value.Int && b.Kind() == value.Int {
		return value.NewInt(a.Int() ^ b.Int()), nil
	}
	x, err := value.ToBool(a)
	if err != nil {
		return value.Value{}, err
	}
	y, err := value.ToBool(b)
	if err != nil {
		return value.Value{}, err
	}
	return value.NewBool(x != y), nil
}

func equal(want bool) func(a, b value.Value) (value.Value, error) {
	return func(a, b value.Value) (value.Value, error) {
		return value.NewBool(value.Equal(a, b) == want), nil
	}
}

func compare(test func(int) bool) func(a, b value.Value) (value.Value, error) {
	return func(a, b value.Value) (value.Value, error) {
		c, err := value.Compare(a, b)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewBool(test(c)), nil
	}
}

func concat(a, b value.Value) (value.Value, error) {
	return value.NewString(a.String() + b.String()), nil
}

func shift(left bool) func(a, b value.Value) (value.Value, error) {
	return func(a, b value.Value) (value.Value, error) {
		x, err := value.ToInt(a)
		if err != nil {
			return value.Value{}, err
		}
		n, err := value.ToInt(b)
		if err != nil {
			return value.Value{}, err
		}
		if n < 0 || n > 63 {
			return value.Value{}, errs.Runtimef("shift count %d out of range", n)
		}
		if left {
			return value.NewInt(x << uint(n)), nil
		}
		return value.NewInt(x >> uint(n)), nil
	}
}

// numbers converts both operands; ints reports whether both are Int.
func numbers(a, b value.Value) (x, y value.Value, ints bool, err error) {
	if x, err = value.ToNumber(a); err != nil {
		return
	}
	if y, err = value.ToNumber(b); err != nil {
		return
	}
	ints = x.Kind() == value.Int && y.Kind() == value.Int
	return
}

func float(v value.Value) float64 {
	if v.Kind() == value.Int {
		return float64(v.Int())
	}
	return v.Float()
}

func add(a, b value.Value) (value.Value, error) {
	if a.Kind() == value.String && b.Kind() == value.String {
		return value.NewString(a.Str() + b.Str()), nil
	}
	x, y, ints, err := numbers(a, b)
	if err != nil {
		return value.Value{}, err
	}
	if ints {
		r := x.Int() + y.Int()
		if (x.Int() >= 0) == (y.Int() >= 0) && (r >= 0) != (x.Int() >= 0) {
			return value.NewFloat(float64(x.Int()) + float64(y.Int())), nil
		}
		return value.NewInt(r), nil
	}
	return value.NewFloat(float(x) + float(y)), nil
}

func sub(a, b value.Value) (value.Value, error) {
	x, y, ints, err := numbers(a, b)
	if err != nil {
		return value.Value{}, err
	}
	if ints {
		r := x.Int() - y.Int()
		if (x.Int() >= 0) != (y.Int() >= 0) && (r >= 0) != (x.Int() >= 0) {
			return value.NewFloat(float64(x.Int()) - float64(y.Int())), nil
		}
		return value.NewInt(r), nil
	}
	return value.NewFloat(float(x) - float(y)), nil
}

func mul(a, b value.Value) (value.Value, error) {
	x, y, ints, err := numbers(a, b)
	if err != nil {
		return value.Value{}, err
	}
	if ints {
		i, j := x.Int(), y.Int()
		if i == 0 || j == 0 {
			return value.NewInt(0), nil
		}
		r := i * j
		if r/j != i || (i == -1 && j == math.MinInt64) || (j == -1 && i == math.MinInt64) {
			return value.NewFloat(float64(i) * float64(j)), nil
		}
		return value.NewInt(r), nil
	}
	return value.NewFloat(float(x) * float(y)), nil
}

func div(a, b value.Value) (value.Value, error) {
	x, y, _, err := numbers(a, b)
	if err != nil {
		return value.Value{}, err
	}
	if float(y) == 0 {
		return value.Value{}, errs.Runtimef("division by zero")
	}
	return value.NewFloat(float(x) / float(y)), nil
}

func intDiv(a, b value.Value) (value.Value, error) {
	x, err := value.ToInt(a)
	if err != nil {
		return value.Value{}, err
	}
	y, err := value.ToInt(b)
	if err != nil {
		return value.Value{}, err
	}
	if y == 0 {
		return value.Value{}, errs.Runtimef("division by zero")
	}
	if x == math.MinInt64 && y == -1 {
		return value.NewFloat(-float64(x)), nil
	}
	return value.NewInt(x / y), nil
}

func mod(a, b value.Value) (value.Value, error) {
	x, y, ints, err := numbers(a, b)
	if err != nil {
		return value.Value{}, err
	}
	if float(y) == 0 {
		return value.Value{}, errs.Runtimef("division by zero")
	}
	if ints {
		if y.Int() == -1 {
			return value.NewInt(0), nil
		}
		return value.NewInt(x.Int() % y.Int()), nil
	}
	return value.NewFloat(math.Mod(float(x), float(y))), nil
}

func pow(a, b value.Value) (value.Value, error) {
	x, y, _, err := numbers(a, b)
	if err != nil {
		return value.Value{}, err
	}
	return value.NewFloat(math.Pow(float(x), float(y))), nil
}
