package value

import (
	"testing"

	"nickandperla.net/tbasic/internal/errs"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		kind Kind
		str  string
	}{
		{"42", Int, "42"},
		{" -7 ", Int, "-7"},
		{"3.5", Float, "3.5"},
		{"1e3", Float, "1000"},
		{"99999999999999999999", Float, "1e+20"},
	}
	for _, tt := range tests {
		v, err := ParseNumber(tt.in)
		if err != nil {
			t.Fatalf("%q: %v", tt.in, err)
		}
		if v.Kind() != tt.kind || v.String() != tt.str {
			t.Errorf("%q: expected %s %s, got %s %s", tt.in, tt.kind, tt.str, v.Kind(), v.String())
		}
	}
	if _, err := ParseNumber("1,5"); err == nil {
		t.Error("expected error for culture-specific decimal separator")
	}
	for _, in := range []string{"inf", "-Inf", "NaN", "0x1p3", "0x10", "1_000", ".", "1e", "e5", ""} {
		if v, err := ParseNumber(in); err == nil {
			t.Errorf("%q: expected error, got %v", in, v)
		}
	}
	for _, in := range []string{".5", "5.", "+2", "2E-3"} {
		if _, err := ParseNumber(in); err != nil {
			t.Errorf("%q: %v", in, err)
		}
	}
}

func TestToNumber(t *testing.T) {
	n, err := ToNumber(NewBool(true))
	if err != nil || n.Kind() != Int || n.Int() != 1 {
		t.Errorf("TRUE should convert to 1, got %v %v", n, err)
	}
	n, err = ToNumber(NewString("2.25"))
	if err != nil || n.Float() != 2.25 {
		t.Errorf("expected 2.25, got %v %v", n, err)
	}
	_, err = ToNumber(NewString("abc"))
	if !errs.Is(err, errs.Type) {
		t.Errorf("expected type error, got %v", err)
	}
	_, err = ToNumber(NewArray(2))
	if !errs.Is(err, errs.Type) {
		t.Errorf("expected type error for array, got %v", err)
	}
}

func TestToIntOverflow(t *testing.T) {
	if i, err := ToInt(NewFloat(3.9)); err != nil || i != 3 {
		t.Errorf("expected truncation to 3, got %d %v", i, err)
	}
	if _, err := ToInt(NewFloat(1e30)); !errs.Is(err, errs.Runtime) {
		t.Errorf("expected runtime overflow error, got %v", err)
	}
}

func TestToUint64(t *testing.T) {
	u, err := ToUint64(NewInt(-1))
	if err != nil || u != ^uint64(0) {
		t.Errorf("expected all ones, got %x %v", u, err)
	}
}

func TestToBool(t *testing.T) {
	tests := []struct {
		v    Value
		want bool
	}{
		{NewInt(0), false},
		{NewInt(5), true},
		{NewFloat(0.5), true},
		{NewString("true"), true},
		{NewString("FALSE"), false},
		{NewString("0"), false},
		{Value{}, false},
	}
	for _, tt := range tests {
		got, err := ToBool(tt.v)
		if err != nil || got != tt.want {
			t.Errorf("ToBool(%v) = %v %v, want %v", tt.v, got, err, tt.want)
		}
	}
	if _, err := ToBool(NewString("maybe")); !errs.Is(err, errs.Type) {
		t.Errorf("expected type error, got %v", err)
	}
}

func TestCoerceAndZero(t *testing.T) {
	v, err := Coerce(NewString("12"), Int)
	if err != nil || v.Kind() != Int || v.Int() != 12 {
		t.Errorf("expected Int 12, got %v %v", v, err)
	}
	v, err = Coerce(NewInt(3), String)
	if err != nil || v.Str() != "3" {
		t.Errorf("expected \"3\", got %v %v", v, err)
	}
	if _, err := Coerce(NewArray(1), String); !errs.Is(err, errs.Type) {
		t.Errorf("expected type error, got %v", err)
	}
	v, _ = Coerce(NewFloat(1.5), Any)
	if v.Kind() != Float {
		t.Errorf("Any should keep the value, got %s", v.Kind())
	}

	if z := Zero(Int); z.Kind() != Int || z.Int() != 0 {
		t.Errorf("unexpected zero Int %v", z)
	}
	if z := Zero(String); !z.IsNull() {
		t.Errorf("reference-like zero should be null, got %v", z)
	}
}

func TestCompareAndEqual(t *testing.T) {
	if !Equal(NewInt(2), NewFloat(2.0)) {
		t.Error("2 should equal 2.0")
	}
	if !Equal(NewString("3"), NewInt(3)) {
		t.Error("numeric string should equal its number")
	}
	if Equal(NewString("a"), NewInt(1)) {
		t.Error("non-numeric string should not equal a number")
	}
	c, err := Compare(NewString("abc"), NewString("abd"))
	if err != nil || c != -1 {
		t.Errorf("expected -1, got %d %v", c, err)
	}
	arr := NewArray(1)
	if !Equal(arr, arr) || Equal(arr, NewArray(1)) {
		t.Error("arrays compare by identity")
	}
	m1 := NewObject(map[string]int{})
	if Equal(m1, m1) {
		t.Error("uncomparable host objects are never equal")
	}
}

func TestStringAndCanonical(t *testing.T) {
	if NewBool(true).String() != "TRUE" {
		t.Error("unexpected bool rendering")
	}
	if NewFloat(11).String() != "11" {
		t.Errorf("expected 11, got %s", NewFloat(11).String())
	}
	arr := FromSlice([]Value{NewInt(1), NewString("x")})
	if arr.String() != "[1, x]" {
		t.Errorf("unexpected array rendering %q", arr.String())
	}
	if Canonical("name$") != "NAME$" {
		t.Errorf("unexpected canonical %q", Canonical("name$"))
	}
}
