// Package stdlib registers the tbasic library: console statements and the
// string and math functions, all through the native calling convention.
package stdlib

import (
	"nickandperla.net/tbasic/internal/eval"
	"nickandperla.net/tbasic/internal/value"
)

// Register adds the whole library to r.
func Register(r *eval.Registry) {
	for _, n := range ioNatives() {
		r.Tagged(n)
	}
	for _, n := range stringNatives() {
		r.Tagged(n)
	}
	for _, n := range mathNatives(newRNG()) {
		r.Tagged(n)
	}
}

// fn declares a value-producing eager native.
func fn(name string, params []value.Kind, required int, f eval.NativeFunc) *eval.Native {
	return &eval.Native{
		Name:     name,
		Params:   params,
		Required: required,
		Returns:  true,
		Eager:    true,
		Fn:       f,
	}
}

// kinds is shorthand for parameter lists.
func kinds(k ...value.Kind) []value.Kind { return k }
