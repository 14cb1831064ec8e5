package eval

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"nickandperla.net/tbasic/internal/block"
	"nickandperla.net/tbasic/internal/errs"
	"nickandperla.net/tbasic/internal/ops"
	"nickandperla.net/tbasic/internal/value"
)

// newTestEvaluator returns an evaluator with a PRINT statement that writes
// to the returned buffer.
func newTestEvaluator(opts ...Option) (*Evaluator, *strings.Builder) {
	var out strings.Builder
	reg := NewRegistry()
	reg.Tagged(&Native{
		Name:      "PRINT",
		Variadic:  true,
		Eager:     true,
		Statement: true,
		Fn: func(f *Frame, args []value.Value) (value.Value, error) {
			parts := make([]string, len(args))
			for i, a := range args {
				parts[i] = a.String()
			}
			return value.Value{}, f.Print(strings.Join(parts, " ") + "\n")
		},
	})
	opts = append([]Option{WithOutputWriter(func(text string) error {
		out.WriteString(text)
		return nil
	})}, opts...)
	return New(reg, opts...), &out
}

func run(t *testing.T, e *Evaluator, src string) Result {
	t.Helper()
	res, err := e.RunString(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return res
}

func global(t *testing.T, e *Evaluator, name string) value.Value {
	t.Helper()
	v, ok := e.Global().Lookup(name)
	if !ok {
		t.Fatalf("expected %s to be defined", name)
	}
	return v
}

func expectInt(t *testing.T, e *Evaluator, name string, want int64) {
	t.Helper()
	v := global(t, e, name)
	if v.Kind() != value.Int || v.Int() != want {
		t.Errorf("expected %s = %d, got %s (%s)", name, want, v, v.Kind())
	}
}

func TestLetEvaluatesExpression(t *testing.T) {
	e, _ := newTestEvaluator()
	res := run(t, e, "LET X = 5 + 3 * 2")
	expectInt(t, e, "X", 11)
	if res.Value.Int() != 11 {
		t.Errorf("expected unit result 11, got %v", res.Value)
	}
}

func TestWhileTerminates(t *testing.T) {
	e, _ := newTestEvaluator()
	run(t, e, "X = 3\nWHILE X > 0\n  X = X - 1\nWEND")
	expectInt(t, e, "X", 0)
}

func TestUndefinedFunction(t *testing.T) {
	e, _ := newTestEvaluator()
	for _, src := range []string{"FOO(1,2)", "Y = FOO(1, 2)", "FOO 1, 2", `FOO "a"`} {
		_, err := e.RunString(src)
		var ue *errs.UndefinedError
		if !errors.As(err, &ue) {
			t.Fatalf("%q: expected undefined error, got %v", src, err)
		}
		if ue.Name != "FOO" {
			t.Errorf("%q: expected error naming FOO, got %q", src, ue.Name)
		}
	}
}

func TestExpressionStatementIsNotACall(t *testing.T) {
	e, _ := newTestEvaluator()
	res := run(t, e, "X = 6\nX MOD 4")
	if res.Value.Int() != 2 {
		t.Errorf("expected 2, got %v", res.Value)
	}
	res = run(t, e, "X + 1")
	if res.Value.Int() != 7 {
		t.Errorf("expected 7, got %v", res.Value)
	}
}

func TestNativeDefaultsMissingTrailingParams(t *testing.T) {
	e, _ := newTestEvaluator()
	var got []value.Value
	e.Registry().Tagged(&Native{
		Name:     "F3",
		Params:   []value.Kind{value.Int, value.Int, value.String},
		Required: 2,
		Returns:  true,
		Eager:    true,
		Fn: func(f *Frame, args []value.Value) (value.Value, error) {
			got = args
			return value.NewInt(int64(len(args))), nil
		},
	})

	res, err := e.Eval("F3(1, \"2\")")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Value.Int() != 3 || len(got) != 3 {
		t.Fatalf("expected three bound arguments, got %v", got)
	}
	if got[1].Kind() != value.Int || got[1].Int() != 2 {
		t.Errorf("second argument should be coerced to Int, got %v (%s)", got[1], got[1].Kind())
	}
	if !got[2].IsNull() {
		t.Errorf("missing string parameter should default to null, got %v", got[2])
	}

	if _, err := e.Eval("F3(1)"); !errs.Is(err, errs.Arity) {
		t.Errorf("expected arity error, got %v", err)
	}
	if _, err := e.Eval("F3(1, 2, 3, 4)"); !errs.Is(err, errs.Arity) {
		t.Errorf("expected arity error, got %v", err)
	}
	if _, err := e.Eval("F3(\"x\", 2)"); !errs.Is(err, errs.Type) {
		t.Errorf("expected type error, got %v", err)
	}
}

func TestNewUnknownTypeEvaluatesNoArguments(t *testing.T) {
	e, _ := newTestEvaluator()
	calls := 0
	e.Registry().Native("BUMP", nil, true, true, func(*Frame, []value.Value) (value.Value, error) {
		calls++
		return value.NewInt(int64(calls)), nil
	})
	_, err := e.RunString("P = NEW Point(BUMP(), BUMP())")
	var ue *errs.UndefinedError
	if !errors.As(err, &ue) || ue.Name != "Point" {
		t.Fatalf("expected undefined error naming Point, got %v", err)
	}
	if calls != 0 {
		t.Errorf("constructor arguments should not be evaluated, got %d calls", calls)
	}
}

func TestForNext(t *testing.T) {
	e, _ := newTestEvaluator()
	run(t, e, `
S = 0
FOR I = 1 TO 10
  S = S + I
NEXT I
T = 0
FOR J = 10 TO 1 STEP -2
  T = T + J
NEXT
`)
	expectInt(t, e, "S", 55)
	expectInt(t, e, "T", 30)
	expectInt(t, e, "I", 11)

	if _, err := e.RunString("FOR K = 1 TO 2 STEP 0\nNEXT"); !errs.Is(err, errs.Runtime) {
		t.Errorf("expected runtime error for zero step, got %v", err)
	}
}

func TestDoLoop(t *testing.T) {
	e, _ := newTestEvaluator()
	run(t, e, `
N = 0
DO
  N = N + 1
LOOP UNTIL N >= 5
M = 0
DO WHILE M < 8
  M = M + 1
LOOP
`)
	expectInt(t, e, "N", 5)
	expectInt(t, e, "M", 8)
}

func TestIfBlocks(t *testing.T) {
	src := `
IF X > 10 THEN
  R = "big"
ELSEIF X > 5 THEN
  R = "medium"
ELSE
  R = "small"
END IF
`
	tests := []struct {
		x    int64
		want string
	}{
		{20, "big"},
		{7, "medium"},
		{1, "small"},
	}
	for _, tt := range tests {
		e, _ := newTestEvaluator()
		e.Global().Declare("X", value.NewInt(tt.x))
		run(t, e, src)
		if got := global(t, e, "R").String(); got != tt.want {
			t.Errorf("X = %d: expected %s, got %s", tt.x, tt.want, got)
		}
	}
}

func TestSingleLineIf(t *testing.T) {
	e, _ := newTestEvaluator()
	run(t, e, `
X = 7
IF X = 7 THEN Y = 1 ELSE Y = 2
IF X <> 7 THEN Z = 1 ELSE Z = 2
D = 0
IF D <> 0 AND 10 / D > 1 THEN Q = 1 ELSE Q = 2
`)
	expectInt(t, e, "Y", 1)
	expectInt(t, e, "Z", 2)
	expectInt(t, e, "Q", 2)

	run(t, e, "N = 0\nIF NOT 1 THEN N = 1\nIF NOT 0 THEN N = N + 10")
	expectInt(t, e, "N", 10)

	if _, err := e.RunString("IF X = 1 PRINT X"); !errs.Is(err, errs.Parse) {
		t.Errorf("expected parse error for IF without THEN, got %v", err)
	}
}

func TestFunctions(t *testing.T) {
	e, _ := newTestEvaluator()
	run(t, e, `
FUNCTION Fact(N)
  IF N <= 1 THEN RETURN 1
  RETURN N * Fact(N - 1)
END FUNCTION
FUNCTION Double(X)
  Double = X * 2
END FUNCTION
FUNCTION Pick(N)
  Pick = 1
  IF N > 0 THEN EXIT FUNCTION
  Pick = 2
END FUNCTION
R = Fact(10)
D = Double(21)
A = Pick(1)
B = Pick(0)
`)
	expectInt(t, e, "R", 3628800)
	expectInt(t, e, "D", 42)
	expectInt(t, e, "A", 1)
	expectInt(t, e, "B", 2)

	if _, err := e.RunString("X = Double(1, 2)"); !errs.Is(err, errs.Arity) {
		t.Errorf("expected arity error, got %v", err)
	}
}

func TestSubCalls(t *testing.T) {
	e, out := newTestEvaluator()
	run(t, e, `
SUB Greet(Name$)
  PRINT "Hello, " & Name$
END SUB
Greet "World"
CALL Greet("Again")
`)
	if out.String() != "Hello, World\nHello, Again\n" {
		t.Errorf("unexpected output %q", out.String())
	}
	if _, err := e.RunString("X = Greet(\"x\")"); !errs.Is(err, errs.Runtime) {
		t.Errorf("expected runtime error using a SUB as a value, got %v", err)
	}
}

func TestScopes(t *testing.T) {
	e, _ := newTestEvaluator()
	run(t, e, `
G = 1
FUNCTION Bump(N)
  L = N + G
  G = G + 1
  RETURN L
END FUNCTION
R = Bump(10)
`)
	expectInt(t, e, "R", 11)
	expectInt(t, e, "G", 2)
	if _, ok := e.Global().Lookup("L"); ok {
		t.Error("function local leaked into the global scope")
	}
	if _, ok := e.Global().Lookup("N"); ok {
		t.Error("parameter leaked into the global scope")
	}
}

func TestScopePoppedOnError(t *testing.T) {
	e, _ := newTestEvaluator()
	_, err := e.RunString(`
FUNCTION Bad(N)
  RETURN N / 0
END FUNCTION
X = Bad(1)
`)
	if !errs.Is(err, errs.Runtime) {
		t.Fatalf("expected runtime error, got %v", err)
	}
	if e.act.scope != e.Global() || e.act.depth != 0 {
		t.Error("activation was not restored after the failing call")
	}
	if _, ok := e.Global().Lookup("N"); ok {
		t.Error("parameter leaked after a failing call")
	}
}

func TestBreakAndContinue(t *testing.T) {
	e, _ := newTestEvaluator()
	run(t, e, `
S = 0
FOR I = 1 TO 10
  IF I MOD 2 = 0 THEN CONTINUE
  IF I > 7 THEN BREAK
  S = S + I
NEXT
WHILE TRUE
  BREAK
WEND
AFTER = 5
`)
	expectInt(t, e, "S", 16)
	expectInt(t, e, "AFTER", 5)
}

func TestStopUnwindsEverything(t *testing.T) {
	e, _ := newTestEvaluator()
	res := run(t, e, `
N = 0
SUB Quit()
  STOP
END SUB
WHILE TRUE
  N = N + 1
  IF N = 3 THEN Quit
WEND
N = 100
`)
	if !res.Exited {
		t.Error("expected exit to be reported")
	}
	expectInt(t, e, "N", 3)

	res = run(t, e, "M = 1")
	if res.Exited {
		t.Error("exit should not persist into the next unit")
	}
}

func TestStackOverflow(t *testing.T) {
	e, _ := newTestEvaluator(WithMaxDepth(50))
	_, err := e.RunString(`
FUNCTION R(N)
  RETURN R(N + 1)
END FUNCTION
X = R(0)
`)
	if !errs.Is(err, errs.StackOverflow) {
		t.Fatalf("expected stack overflow, got %v", err)
	}
	var so *errs.StackOverflowError
	if !errors.As(err, &so) || so.Depth != 50 {
		t.Errorf("expected depth 50, got %v", err)
	}
}

func TestClasses(t *testing.T) {
	e, _ := newTestEvaluator()
	run(t, e, `
CLASS Point
  DIM X = 0
  DIM Y = 0
  SUB NEW(A, B)
    X = A
    ME.Y = B
  END SUB
  FUNCTION Sum()
    RETURN X + Y
  END FUNCTION
  SUB Move(DX)
    X = X + DX
  END SUB
END CLASS
P = NEW Point(1, 2)
S = P.Sum()
P.Move(10)
PX = P.X
`)
	expectInt(t, e, "S", 3)
	expectInt(t, e, "PX", 11)
	if got := global(t, e, "P").TypeName(); got != "Point" {
		t.Errorf("expected type Point, got %s", got)
	}
	if _, ok := e.Global().Lookup("X"); ok {
		t.Error("field leaked into the global scope")
	}

	if _, err := e.RunString("Z = P.Z"); !errs.Is(err, errs.Undefined) {
		t.Errorf("expected undefined member error, got %v", err)
	}
	if _, err := e.RunString("P.Fly()"); !errs.Is(err, errs.Undefined) {
		t.Errorf("expected undefined method error, got %v", err)
	}
}

func TestArrays(t *testing.T) {
	e, _ := newTestEvaluator()
	run(t, e, `
DIM A(3)
A(0) = 5
A(3) = A(0) * 2
N = A(3)
DIM M(1, 2)
M(1, 2) = 9
V = M(1, 2)
DIM S AS STRING, I AS INTEGER = 3.7
`)
	expectInt(t, e, "N", 10)
	expectInt(t, e, "V", 9)
	expectInt(t, e, "I", 3)
	if s := global(t, e, "S"); s.Kind() != value.String || s.Str() != "" {
		t.Errorf("expected empty string, got %v (%s)", s, s.Kind())
	}
	if n := len(global(t, e, "A").Elems()); n != 4 {
		t.Errorf("DIM A(3) should hold 4 elements, got %d", n)
	}
	if _, err := e.RunString("A(4) = 1"); !errs.Is(err, errs.Runtime) {
		t.Errorf("expected out of range error, got %v", err)
	}
}

func TestSwap(t *testing.T) {
	e, _ := newTestEvaluator()
	run(t, e, "A = 1\nB = 2\nSWAP A, B")
	expectInt(t, e, "A", 2)
	expectInt(t, e, "B", 1)
}

func TestNativePanicIsRecovered(t *testing.T) {
	e, _ := newTestEvaluator()
	e.Registry().Native("BOOM", nil, true, true, func(*Frame, []value.Value) (value.Value, error) {
		panic("kaboom")
	})
	e.Registry().Native("OOB", nil, true, true, func(*Frame, []value.Value) (value.Value, error) {
		var xs []int
		i := 3
		return value.NewInt(int64(xs[i])), nil
	})
	if _, err := e.Eval("BOOM()"); !errs.Is(err, errs.Fault) {
		t.Errorf("expected fault, got %v", err)
	}
	if _, err := e.Eval("OOB()"); !errs.Is(err, errs.Runtime) {
		t.Errorf("expected runtime error, got %v", err)
	}
}

func TestReturnsIsDeclared(t *testing.T) {
	e, _ := newTestEvaluator()
	calls := 0
	e.Registry().Native("SIDE", nil, false, true, func(*Frame, []value.Value) (value.Value, error) {
		calls++
		return value.NewInt(42), nil
	})
	res := run(t, e, "SIDE")
	if calls != 1 || !res.Value.IsNull() {
		t.Errorf("statement call should run and discard its value, got %v after %d calls", res.Value, calls)
	}
	if _, err := e.Eval("SIDE() + 1"); !errs.Is(err, errs.Runtime) {
		t.Errorf("expected runtime error, got %v", err)
	}
}

func TestErrorsCarryLine(t *testing.T) {
	e, _ := newTestEvaluator()
	_, err := e.RunString("X = 1\nY = Z + 1")
	var le *errs.LineError
	if !errors.As(err, &le) || le.Line != 1 {
		t.Fatalf("expected error on line 1, got %v", err)
	}
	if !errs.Is(err, errs.Undefined) {
		t.Errorf("expected undefined variable, got %v", err)
	}
}

func TestWhileWithoutCondition(t *testing.T) {
	e, _ := newTestEvaluator()
	if _, err := e.RunString("WHILE\nX = 1\nWEND"); !errs.Is(err, errs.Runtime) {
		t.Errorf("expected runtime error, got %v", err)
	}
}

type counter struct{ n int64 }

func (c *counter) TypeName() string { return "Counter" }

func (c *counter) GetField(name string) (value.Value, error) {
	if strings.EqualFold(name, "N") {
		return value.NewInt(c.n), nil
	}
	return value.Value{}, &errs.UndefinedError{Name: name, What: "member"}
}

func (c *counter) SetField(name string, v value.Value) error {
	return errs.Runtimef("%s is read-only", name)
}

func (c *counter) CallMethod(name string, args []value.Value) (value.Value, error) {
	if !strings.EqualFold(name, "Add") || len(args) != 1 {
		return value.Value{}, &errs.UndefinedError{Name: name, What: "method"}
	}
	c.n += args[0].Int()
	return value.NewInt(c.n), nil
}

func TestHostType(t *testing.T) {
	e, _ := newTestEvaluator()
	e.Registry().Type("Counter", func(_ *Frame, args []value.Value) (value.Value, error) {
		c := &counter{}
		if len(args) > 0 {
			n, err := value.ToInt(args[0])
			if err != nil {
				return value.Value{}, err
			}
			c.n = n
		}
		return value.NewObject(c), nil
	})
	run(t, e, "C = NEW Counter(5)\nC.Add(3)\nN = C.N")
	expectInt(t, e, "N", 8)
	if _, err := e.RunString("C.N = 1"); !errs.Is(err, errs.Runtime) {
		t.Errorf("expected read-only error, got %v", err)
	}
}

func TestBraceDialect(t *testing.T) {
	e, _ := newTestEvaluator(WithKinds(block.BraceDialect()...))
	run(t, e, "FUNC Add(A, B) {\n  RETURN A + B\n}\nR = Add(2, 3)")
	expectInt(t, e, "R", 5)
}

func TestCallAndEval(t *testing.T) {
	e, _ := newTestEvaluator()
	run(t, e, "FUNCTION Double(X)\n  RETURN X * 2\nEND FUNCTION")
	res, err := e.Call("double", value.NewInt(4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Value.Int() != 8 {
		t.Errorf("expected 8, got %v", res.Value)
	}
	if _, err := e.Call("nope"); !errs.Is(err, errs.Undefined) {
		t.Errorf("expected undefined error, got %v", err)
	}

	first, err := e.Eval("2 ^ 10 / 4 + Double(3)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := e.Eval("2 ^ 10 / 4 + Double(3)")
	if !value.Equal(first.Value, second.Value) || first.Value.String() != "262" {
		t.Errorf("expected 262 twice, got %v and %v", first.Value, second.Value)
	}
}

func TestCallNonEagerNative(t *testing.T) {
	e, _ := newTestEvaluator()
	e.Registry().Tagged(&Native{
		Name:     "LAZY",
		Params:   []value.Kind{value.Int},
		Required: 1,
		Returns:  true,
		Fn: func(f *Frame, _ []value.Value) (value.Value, error) {
			if f.Len() != 1 {
				return value.Value{}, errs.Runtimef("expected 1 argument, got %d", f.Len())
			}
			return f.Eval(0)
		},
	})
	res, err := e.Call("LAZY", value.NewInt(7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Value.Int() != 7 {
		t.Errorf("expected 7, got %v", res.Value)
	}
	if _, err := e.Call("LAZY"); !errs.Is(err, errs.Arity) {
		t.Errorf("expected arity error, got %v", err)
	}

	e.Registry().Tagged(&Native{
		Name: "VERBATIM",
		Raw:  true,
		Fn: func(f *Frame, _ []value.Value) (value.Value, error) {
			return value.NewString(f.Raw), nil
		},
	})
	if _, err := e.Call("VERBATIM", value.NewInt(1)); !errs.Is(err, errs.Runtime) {
		t.Errorf("expected runtime error for a raw native, got %v", err)
	}
}

func TestOperatorExtension(t *testing.T) {
	e, _ := newTestEvaluator()
	e.Registry().Binary.RegisterBinary("<=>", ops.PrecCompare, false, func(_ ops.Context, args []ops.Operand) (value.Value, error) {
		c, err := value.Compare(args[0].Value, args[1].Value)
		return value.NewInt(int64(c)), err
	}, true)
	res, err := e.Eval("1 <=> 2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Value.Int() != -1 {
		t.Errorf("expected -1, got %v", res.Value)
	}
}

func TestIndependentEvaluators(t *testing.T) {
	a, _ := newTestEvaluator()
	b, _ := newTestEvaluator()
	run(t, a, "FUNCTION Only()\n  RETURN 1\nEND FUNCTION\nX = 1")
	if _, ok := b.Global().Lookup("X"); ok {
		t.Error("globals shared between evaluators")
	}
	if _, err := b.Eval("Only()"); !errs.Is(err, errs.Undefined) {
		t.Errorf("functions shared between evaluators: %v", err)
	}
}

func TestTracing(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e, _ := newTestEvaluator(WithLogger(logger))
	run(t, e, "FUNCTION One()\n  RETURN 1\nEND FUNCTION\nX = One()")
	for _, want := range []string{"push frame", "pop frame", "function=One"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("expected log to contain %q, got:\n%s", want, buf.String())
		}
	}
}

func TestScopeChain(t *testing.T) {
	g := NewScope(nil)
	g.Declare("x", value.NewInt(1))
	inner := NewScope(g)
	if inner.Parent() != g || g.Parent() != nil {
		t.Fatal("unexpected parent links")
	}
	inner.Assign("X", value.NewInt(2))
	inner.Declare("y", value.NewInt(3))
	if v, _ := g.Lookup("x"); v.Int() != 2 {
		t.Errorf("Assign should update the defining scope, got %v", v)
	}
	if g.Has("y") || !inner.Has("Y") {
		t.Error("Declare should bind in the inner scope only")
	}
	if names := inner.Names(); len(names) != 1 || names[0] != "Y" {
		t.Errorf("expected [Y], got %v", names)
	}
}

func TestRegistryClone(t *testing.T) {
	constant := func(n int64) NativeFunc {
		return func(*Frame, []value.Value) (value.Value, error) { return value.NewInt(n), nil }
	}
	base := NewRegistry()
	base.Native("ONE", nil, true, true, constant(1))
	clone := base.Clone()
	clone.Native("TWO", nil, true, true, constant(2))
	if _, ok := base.Lookup("TWO"); ok {
		t.Error("clone registrations leaked into the original")
	}
	res, err := New(clone).Eval("one() + two()")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Value.Int() != 3 {
		t.Errorf("expected 3, got %v", res.Value)
	}
}
