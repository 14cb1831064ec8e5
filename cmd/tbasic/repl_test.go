package main

import (
	"bufio"
	"reflect"
	"strings"
	"testing"

	"nickandperla.net/tbasic/pkg/tbasic"
)

// replay feeds script to a fresh session and returns everything written.
func replay(t *testing.T, rt *tbasic.Runtime, script string) string {
	t.Helper()
	var out strings.Builder
	rt.SetOutputWriter(func(text string) error {
		out.WriteString(text)
		return nil
	})
	s := &session{rt: rt, out: &out}
	s.loop(readerPrompter{r: bufio.NewReader(strings.NewReader(script)), out: &out})
	return out.String()
}

func newREPLRuntime(t *testing.T) *tbasic.Runtime {
	t.Helper()
	rt, err := tbasic.New(tbasic.WithMemoryStore())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { rt.Close() })
	return rt
}

func TestREPLContinuation(t *testing.T) {
	rt := newREPLRuntime(t)
	out := replay(t, rt, "FOR I = 1 TO 3\nPRINT I;\nNEXT I\n:quit\n")
	want := ">>> ... ... 123>>> "
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestREPLEchoesValues(t *testing.T) {
	rt := newREPLRuntime(t)
	out := replay(t, rt, "1 + 2\nPRINT \"x\"\n")
	if !strings.Contains(out, ">>> 3\n") {
		t.Errorf("expected echoed value, got %q", out)
	}
	if strings.Contains(out, "x\n\n") {
		t.Errorf("PRINT should not echo a value, got %q", out)
	}
}

func TestREPLRecoversFromErrors(t *testing.T) {
	rt := newREPLRuntime(t)
	out := replay(t, rt, "PRINT NOSUCH(1)\nNEXT\nX = 5\nPRINT X\n")
	if strings.Count(out, "Error:") != 2 {
		t.Errorf("expected two errors, got %q", out)
	}
	if !strings.HasSuffix(out, "5\n>>> \n") {
		t.Errorf("session should continue after errors, got %q", out)
	}
}

func TestREPLDefinitionsPersist(t *testing.T) {
	rt := newREPLRuntime(t)
	script := "FUNCTION Sq(N)\nRETURN N * N\nEND FUNCTION\nPRINT Sq(9)\n"
	if out := replay(t, rt, script); !strings.Contains(out, "81\n") {
		t.Errorf("expected 81, got %q", out)
	}
}

func TestREPLProgramLibrary(t *testing.T) {
	rt := newREPLRuntime(t)
	script := strings.Join([]string{
		":save empty",
		"N = 2",
		"PRINT N * 10",
		":save tens",
		":new",
		":show",
		"N = 3",
		":save tens",
		":list",
		":history tens",
		":load tens",
		":run",
		":run nosuch",
		":quit",
	}, "\n")
	out := replay(t, rt, script)
	for _, want := range []string{
		"nothing to save",
		"saved tens",
		"tens\n",
		"v2  ",
		"v1  ",
		"loaded tens (1 lines)",
		`no program named "nosuch"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	src, err := rt.Load("tens")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src != "N = 3" {
		t.Errorf("stored source = %q, want %q", src, "N = 3")
	}
	res, _ := rt.Eval("N")
	if res.Value.Int() != 3 {
		t.Errorf("N = %v, want 3", res.Value)
	}
}

func TestREPLCommandUsage(t *testing.T) {
	rt := newREPLRuntime(t)
	out := replay(t, rt, ":save\n:load\n:history\n:frobnicate\n:help\n")
	for _, want := range []string{
		"usage: :save NAME",
		"usage: :load NAME",
		"usage: :history NAME",
		"unknown command :frobnicate",
		":quit",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestComplete(t *testing.T) {
	words := []string{"LEFT$", "LEN", "LET", "PRINT"}
	tests := []struct {
		input string
		want  []string
	}{
		{"le", []string{"LEFT$", "LEN", "LET"}},
		{"X = LEF", []string{"X = LEFT$"}},
		{"PRINT(pr", []string{"PRINT(PRINT"}},
		{"X = ", nil},
		{"zz", nil},
	}
	for _, tt := range tests {
		if got := complete(words, tt.input); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("complete(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
