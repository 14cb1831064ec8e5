package errs

import (
	"errors"
	"fmt"
	"strconv"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{&UnknownTokenError{Fragment: "@", Offset: 3}, Lexical},
		{ErrEndOfStream, Lexical},
		{&ParseError{Line: 2, Msg: "WEND without WHILE"}, Parse},
		{&UndefinedError{Name: "FOO"}, Undefined},
		{&TypeError{From: "string", Expected: "number"}, Type},
		{&ArityError{Name: "F", Expected: 2, Got: 1}, Arity},
		{Runtimef("division by zero"), Runtime},
		{&StackOverflowError{Depth: 10}, StackOverflow},
		{errors.New("boom"), Fault},
		{fmt.Errorf("wrapped: %w", &UndefinedError{Name: "X"}), Undefined},
		{AtLine(&TypeError{From: "a", Expected: "b"}, 4), Type},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestWrap(t *testing.T) {
	_, syntaxErr := strconv.ParseFloat("abc", 64)
	if got := KindOf(Wrap(syntaxErr)); got != Parse {
		t.Errorf("syntax error wrapped as %s, want PARSE", got)
	}

	_, rangeErr := strconv.ParseInt("99999999999999999999", 10, 64)
	if got := KindOf(Wrap(rangeErr)); got != Runtime {
		t.Errorf("range error wrapped as %s, want RUNTIME", got)
	}

	foreign := errors.New("disk on fire")
	wrapped := Wrap(foreign)
	var fe *FaultError
	if !errors.As(wrapped, &fe) {
		t.Fatalf("expected FaultError, got %T", wrapped)
	}
	if !errors.Is(wrapped, foreign) {
		t.Error("fault should unwrap to the original error")
	}

	undef := &UndefinedError{Name: "X"}
	if Wrap(undef) != undef {
		t.Error("classified errors should pass through unchanged")
	}
}

func TestFromPanic(t *testing.T) {
	var arr []int
	func() {
		defer func() {
			err := FromPanic(recover())
			if KindOf(err) != Runtime {
				t.Errorf("index panic classified as %s, want RUNTIME", KindOf(err))
			}
		}()
		_ = arr[3]
	}()

	if KindOf(FromPanic("plain")) != Fault {
		t.Error("string panic should be a fault")
	}
}

func TestAtLine(t *testing.T) {
	err := AtLine(&UndefinedError{Name: "FOO", What: "function"}, 7)
	if err.Error() != "line 7: undefined function FOO" {
		t.Errorf("unexpected message: %s", err)
	}
	// Already annotated errors keep the innermost line.
	again := AtLine(err, 1)
	if again.Error() != err.Error() {
		t.Errorf("expected %q, got %q", err, again)
	}
	if AtLine(nil, 3) != nil {
		t.Error("AtLine(nil) should be nil")
	}
}

func TestArityMessage(t *testing.T) {
	e := &ArityError{Name: "MID$", Expected: 2, Got: 1, AtLeast: true, AtMost: 3}
	if e.Error() != "MID$ expects 2 to 3 arguments, got 1" {
		t.Errorf("unexpected message: %s", e)
	}
}
