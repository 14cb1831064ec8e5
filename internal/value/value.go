// Package value implements the tbasic dynamic value.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Kind is the tag of a Value.
type Kind uint8

const (
	Null Kind = iota
	Int
	Float
	String
	Bool
	Object
	Array
	Any // parameter declarations only: accept every kind unchanged
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Int:
		return "integer"
	case Float:
		return "float"
	case String:
		return "string"
	case Bool:
		return "boolean"
	case Object:
		return "object"
	case Array:
		return "array"
	case Any:
		return "any"
	}
	return "unknown"
}

// IsNumeric returns true for Int and Float.
func (k Kind) IsNumeric() bool {
	return k == Int || k == Float
}

// Value is a closed tagged variant. The zero Value is Null.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	ref  any // Object payload or *[]Value for arrays
}

// Member is implemented by host objects and script instances that support
// member access.
type Member interface {
	TypeName() string
	GetField(name string) (Value, error)
	SetField(name string, v Value) error
}

// Constructors.

func NewInt(i int64) Value     { return Value{kind: Int, i: i} }
func NewFloat(f float64) Value { return Value{kind: Float, f: f} }
func NewString(s string) Value { return Value{kind: String, s: s} }

func NewBool(b bool) Value {
	if b {
		return Value{kind: Bool, i: 1}
	}
	return Value{kind: Bool}
}

// NewObject wraps a host object or script instance.
func NewObject(o any) Value {
	if o == nil {
		return Value{}
	}
	return Value{kind: Object, ref: o}
}

// NewArray creates an array of n null elements.
func NewArray(n int) Value {
	elems := make([]Value, n)
	return Value{kind: Array, ref: &elems}
}

// FromSlice wraps elems as an array value sharing the slice.
func FromSlice(elems []Value) Value {
	return Value{kind: Array, ref: &elems}
}

// Kind returns the tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull returns true for the null value.
func (v Value) IsNull() bool { return v.kind == Null }

// Int returns the integer payload; valid only for Int and Bool.
func (v Value) Int() int64 { return v.i }

// Float returns the float payload; valid only for Float.
func (v Value) Float() float64 { return v.f }

// Str returns the string payload; valid only for String.
func (v Value) Str() string { return v.s }

// Bool returns the boolean payload; valid only for Bool.
func (v Value) Bool() bool { return v.i != 0 }

// Ref returns the object payload; valid only for Object.
func (v Value) Ref() any {
	if v.kind != Object {
		return nil
	}
	return v.ref
}

// Elems returns the backing slice of an array; nil for other kinds.
func (v Value) Elems() []Value {
	if v.kind != Array {
		return nil
	}
	return *v.ref.(*[]Value)
}

// TypeName returns the runtime type name used in error messages.
func (v Value) TypeName() string {
	if v.kind == Object {
		if o, ok := v.ref.(Member); ok {
			return o.TypeName()
		}
		return fmt.Sprintf("%T", v.ref)
	}
	return v.kind.String()
}

// String renders the value for display.
func (v Value) String() string {
	switch v.kind {
	case Null:
		return ""
	case Int:
		return strconv.FormatInt(v.i, 10)
	case Float:
		return FormatFloat(v.f)
	case String:
		return v.s
	case Bool:
		if v.Bool() {
			return "TRUE"
		}
		return "FALSE"
	case Object:
		if s, ok := v.ref.(fmt.Stringer); ok {
			return s.String()
		}
		return "<" + v.TypeName() + ">"
	case Array:
		elems := v.Elems()
		parts := make([]string, len(elems))
		for i, e := range elems {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return ""
}

// FormatFloat renders floats without a trailing ".0" for whole numbers.
func FormatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "INF"
	case math.IsInf(f, -1):
		return "-INF"
	case math.IsNaN(f):
		return "NAN"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// A cases.Caser keeps state between calls, so the shared one is locked.
var (
	foldMu sync.Mutex
	folder = cases.Upper(language.Und)
)

// Canonical folds a name for case-insensitive lookup.
func Canonical(name string) string {
	foldMu.Lock()
	defer foldMu.Unlock()
	return folder.String(name)
}
