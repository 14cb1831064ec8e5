package value

import (
	"math"
	"strconv"
	"strings"

	"nickandperla.net/tbasic/internal/errs"
)

// ParseNumber parses a numeric literal or numeric string. Integers that fit
// in int64 stay integers; everything else becomes a float. Only plain
// decimal notation is accepted: no inf, nan, hex or underscores.
func ParseNumber(s string) (Value, error) {
	s = strings.TrimSpace(s)
	if !isDecimal(s) {
		return Value{}, &strconv.NumError{Func: "ParseNumber", Num: s, Err: strconv.ErrSyntax}
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return NewInt(i), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Value{}, err
	}
	return NewFloat(f), nil
}

// isDecimal reports whether s matches [+-]digits[.digits][(e|E)[+-]digits]
// with at least one mantissa digit.
func isDecimal(s string) bool {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for ; i < len(s) && isDigit(s[i]); i++ {
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for ; i < len(s) && isDigit(s[i]); i++ {
			digits++
		}
	}
	if digits == 0 {
		return false
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		exp := i
		for ; i < len(s) && isDigit(s[i]); i++ {
		}
		if i == exp {
			return false
		}
	}
	return i == len(s)
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

// ToNumber converts v to Int or Float.
func ToNumber(v Value) (Value, error) {
	switch v.kind {
	case Int, Float:
		return v, nil
	case Bool:
		return NewInt(v.i), nil
	case String:
		n, err := ParseNumber(v.s)
		if err != nil {
			return Value{}, &errs.TypeError{From: "string " + strconv.Quote(v.s), Expected: "number"}
		}
		return n, nil
	}
	return Value{}, &errs.TypeError{From: v.TypeName(), Expected: "number"}
}

// ToFloat converts v to float64.
func ToFloat(v Value) (float64, error) {
	n, err := ToNumber(v)
	if err != nil {
		return 0, err
	}
	if n.kind == Int {
		return float64(n.i), nil
	}
	return n.f, nil
}

// ToInt converts v to int64, truncating floats.
func ToInt(v Value) (int64, error) {
	n, err := ToNumber(v)
	if err != nil {
		return 0, err
	}
	if n.kind == Int {
		return n.i, nil
	}
	if math.IsNaN(n.f) || n.f >= math.MaxInt64 || n.f < math.MinInt64 {
		return 0, errs.Runtimef("overflow converting %s to integer", FormatFloat(n.f))
	}
	return int64(n.f), nil
}

// ToUint64 converts v to uint64; negative integers wrap as two's complement.
func ToUint64(v Value) (uint64, error) {
	i, err := ToInt(v)
	if err != nil {
		return 0, err
	}
	return uint64(i), nil
}

// ToBool converts v to a boolean. Numbers are true when non-zero; strings
// are true when they read TRUE or a non-zero number.
func ToBool(v Value) (bool, error) {
	switch v.kind {
	case Bool:
		return v.Bool(), nil
	case Int:
		return v.i != 0, nil
	case Float:
		return v.f != 0, nil
	case Null:
		return false, nil
	case String:
		switch strings.ToUpper(strings.TrimSpace(v.s)) {
		case "TRUE":
			return true, nil
		case "FALSE", "":
			return false, nil
		}
		if n, err := ParseNumber(v.s); err == nil {
			return ToBool(n)
		}
		return false, &errs.TypeError{From: "string " + strconv.Quote(v.s), Expected: "boolean"}
	}
	return false, &errs.TypeError{From: v.TypeName(), Expected: "boolean"}
}

// Zero returns the default value for a declared parameter kind. Value-like
// kinds get their zero; reference-like kinds get null.
func Zero(k Kind) Value {
	switch k {
	case Int:
		return NewInt(0)
	case Float:
		return NewFloat(0)
	case Bool:
		return NewBool(false)
	}
	return Value{}
}

// Coerce converts v to kind k.
func Coerce(v Value, k Kind) (Value, error) {
	if k == Any || v.kind == k {
		return v, nil
	}
	switch k {
	case Int:
		i, err := ToInt(v)
		return NewInt(i), err
	case Float:
		f, err := ToFloat(v)
		return NewFloat(f), err
	case Bool:
		b, err := ToBool(v)
		return NewBool(b), err
	case String:
		if v.kind == Object || v.kind == Array {
			return Value{}, &errs.TypeError{From: v.TypeName(), Expected: "string"}
		}
		return NewString(v.String()), nil
	case Null:
		return Value{}, nil
	}
	if v.kind == Null {
		return v, nil
	}
	return Value{}, &errs.TypeError{From: v.TypeName(), Expected: k.String()}
}

// Equal reports whether a and b are equal. Numbers compare numerically
// across Int and Float; a numeric string equals the number it spells.
func Equal(a, b Value) bool {
	c, err := Compare(a, b)
	if err == nil {
		return c == 0
	}
	if a.kind != b.kind || (a.kind != Object && a.kind != Array) {
		return false
	}
	return sameRef(a.ref, b.ref)
}

// sameRef compares payload identity; uncomparable host payloads are never equal.
func sameRef(x, y any) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return x == y
}

// Compare orders a and b: -1, 0 or 1.
func Compare(a, b Value) (int, error) {
	switch {
	case a.kind == Null && b.kind == Null:
		return 0, nil
	case a.kind == String && b.kind == String:
		return strings.Compare(a.s, b.s), nil
	case a.kind == Bool && b.kind == Bool:
		return cmpInt(a.i, b.i), nil
	case a.kind == Null || b.kind == Null:
		if a.kind == Null {
			return -1, nil
		}
		return 1, nil
	}
	if a.kind == Int && b.kind == Int {
		return cmpInt(a.i, b.i), nil
	}
	x, err := ToFloat(a)
	if err != nil {
		return 0, err
	}
	y, err := ToFloat(b)
	if err != nil {
		return 0, err
	}
	switch {
	case x < y:
		return -1, nil
	case x > y:
		return 1, nil
	}
	return 0, nil
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
