package tbasic

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nickandperla.net/tbasic/internal/errs"
	"nickandperla.net/tbasic/internal/value"
)

func newRuntime(t *testing.T, opts ...Option) (*Runtime, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	r, err := New(append([]Option{WithOutput(&out)}, opts...)...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r, &out
}

func TestRunString(t *testing.T) {
	r, out := newRuntime(t)
	_, err := r.RunString(`
FOR I = 1 TO 3
  PRINT "line "; I
NEXT
`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "line 1\nline 2\nline 3\n" {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestPreludeFunctions(t *testing.T) {
	r, _ := newRuntime(t)
	res, err := r.Eval(`CLAMP(15, 0, 10)`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Value.Int() != 10 {
		t.Errorf("expected 10, got %v", res.Value)
	}
	res, err = r.Eval(`PAD$("ab", 4) & "|"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Value.Str() != "ab  |" {
		t.Errorf("expected %q, got %q", "ab  |", res.Value.Str())
	}
}

func TestNoStdlibOption(t *testing.T) {
	r, _ := newRuntime(t, WithNoStdlib())
	if _, err := r.Eval(`CLAMP(1, 0, 2)`); !errs.Is(err, errs.Undefined) {
		t.Errorf("expected CLAMP to be undefined, got %v", err)
	}
	if _, err := r.RunString(`PRINT 1`); !errs.Is(err, errs.Undefined) {
		t.Errorf("expected PRINT to be undefined, got %v", err)
	}
}

func TestCustomPrelude(t *testing.T) {
	r, _ := newRuntime(t, WithPrelude("GREETING$ = \"hello world\""))
	res, err := r.Eval("GREETING$")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Value.Str() != "hello world" {
		t.Errorf("expected 'hello world', got '%s'", res.Value)
	}
}

func TestStartupProgramOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.db")
	r, _ := newRuntime(t, WithSQLiteStore(path))
	if err := r.Save(StartupProgram, "STARTED = 1"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	r.Close()

	r2, _ := newRuntime(t, WithSQLiteStore(path))
	res, err := r2.Eval("STARTED")
	if err != nil {
		t.Fatalf("startup program did not run: %v", err)
	}
	if res.Value.Int() != 1 {
		t.Errorf("expected 1, got %v", res.Value)
	}
}

func TestProgramLibrary(t *testing.T) {
	r, out := newRuntime(t, WithMemoryStore())
	if err := r.Save("hello", `PRINT "hello"`); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := r.Save("hello", `PRINT "hello, world"`); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := r.RunString(`CHAIN "hello"`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "hello, world\n" {
		t.Errorf("unexpected output %q", out.String())
	}

	names, err := r.Programs()
	if err != nil || len(names) != 1 || names[0] != "hello" {
		t.Errorf("expected [hello], got %v (%v)", names, err)
	}
	h, err := r.History("hello", 0)
	if err != nil || len(h) != 2 || h[0].Version != 2 {
		t.Errorf("expected two versions, got %v (%v)", h, err)
	}
	if _, err := r.RunStored("missing"); err == nil {
		t.Error("expected error for a missing program")
	}
}

func TestChainPropagatesExit(t *testing.T) {
	r, _ := newRuntime(t, WithMemoryStore())
	r.Save("quit", "STOP")
	res, err := r.RunString("CHAIN \"quit\"\nAFTER = 1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Exited {
		t.Error("expected exit from chained program")
	}
	if _, err := r.Eval("AFTER"); err == nil {
		t.Error("statement after an exiting CHAIN should not run")
	}
}

func TestNoStoreConfigured(t *testing.T) {
	r, _ := newRuntime(t)
	if err := r.Save("x", "REM"); err == nil {
		t.Error("expected error without a program library")
	}
	if _, err := r.RunString(`CHAIN "x"`); !errs.Is(err, errs.Undefined) {
		t.Errorf("CHAIN should not exist without a library, got %v", err)
	}
}

func TestBadSQLitePath(t *testing.T) {
	dir := t.TempDir()
	if _, err := New(WithSQLiteStore(filepath.Join(dir, "missing", "dir", "lib.db"))); err == nil {
		t.Error("expected error opening a library in a missing directory")
	}
}

func TestTerminalDialect(t *testing.T) {
	r, out := newRuntime(t, WithDialect(Terminal))
	_, err := r.RunString("FUNC Path$() {\n  RETURN \"C:\\temp\"\n}\nPRINT Path$()")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "C:\\temp\n" {
		t.Errorf("backslash should survive in the terminal dialect, got %q", out.String())
	}
	if _, err := ParseDialect("klingon"); err == nil {
		t.Error("expected error for an unknown dialect")
	}
}

func TestInputReader(t *testing.T) {
	r, _ := newRuntime(t, WithInputReader(func(string) (string, error) { return "7", nil }))
	if _, err := r.RunString("INPUT N\nM = N * 6"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, _ := r.Eval("M")
	if res.Value.Int() != 42 {
		t.Errorf("expected 42, got %v", res.Value)
	}
}

func TestWithNative(t *testing.T) {
	r, _ := newRuntime(t, WithNative(&Native{
		Name:     "TWICE",
		Params:   []value.Kind{value.Int},
		Required: 1,
		Returns:  true,
		Eager:    true,
		Fn: func(_ *Frame, args []Value) (Value, error) {
			return value.NewInt(args[0].Int() * 2), nil
		},
	}))
	res, err := r.Call("twice", value.NewInt(21))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Value.Int() != 42 {
		t.Errorf("expected 42, got %v", res.Value)
	}
}

func TestRunFileAndIncomplete(t *testing.T) {
	r, out := newRuntime(t)
	path := filepath.Join(t.TempDir(), "prog.bas")
	if err := os.WriteFile(path, []byte("PRINT UCASE$(\"done\")\n"), 0o644); err != nil {
		t.Fatalf("writing program: %v", err)
	}
	if _, err := r.RunFile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out.String()) != "DONE" {
		t.Errorf("unexpected output %q", out.String())
	}

	open, err := r.Incomplete("WHILE X < 3\n  X = X + 1")
	if err != nil || !open {
		t.Errorf("expected open block, got %v (%v)", open, err)
	}
	open, err = r.Incomplete("WHILE X < 3\n  X = X + 1\nWEND")
	if err != nil || open {
		t.Errorf("expected closed block, got %v (%v)", open, err)
	}
}
