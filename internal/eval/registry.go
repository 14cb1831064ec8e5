// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"sort"

	"nickandperla.net/tbasic/internal/block"
	"nickandperla.net/tbasic/internal/errs"
	"nickandperla.net/tbasic/internal/ops"
	"nickandperla.net/tbasic/internal/value"
)

// NativeFunc is the Go side of a native function.
type NativeFunc func(f *Frame, args []value.Value) (value.Value, error)

// Native describes a host function and how it is called.
//
// Eager natives receive their arguments evaluated, arity-checked, padded with
// zero values up to len(Params) and coerced to the declared kinds. Non-eager
// natives receive nil and pull arguments through Frame.Eval. Raw natives get
// the unparsed text after their name in Frame.Raw.
type Native struct {
	Name     string
	Params   []value.Kind
	Required int
	Variadic bool // extra arguments beyond Params are passed through unchanged
	Returns  bool // the call produces a usable value
	Eager    bool
	Raw      bool
	// Statement natives may only start a line; the implicit LET rewrite
	// never treats their names as assignment targets.
	Statement bool
	Fn        NativeFunc
}

// fixed returns true when the native takes exactly len(Params) arguments.
func (n *Native) fixed() bool {
	return !n.Variadic && n.Required == len(n.Params)
}

// checkArity validates an argument count against the declaration.
func (n *Native) checkArity(got int) error {
	if n.fixed() {
		if got != len(n.Params) {
			return &errs.ArityError{Name: n.Name, Expected: len(n.Params), Got: got}
		}
		return nil
	}
	if got < n.Required {
		e := &errs.ArityError{Name: n.Name, Expected: n.Required, Got: got, AtLeast: true}
		if !n.Variadic {
			e.AtMost = len(n.Params)
		}
		return e
	}
	if !n.Variadic && got > len(n.Params) {
		return &errs.ArityError{Name: n.Name, Expected: n.Required, Got: got, AtLeast: true, AtMost: len(n.Params)}
	}
	return nil
}

// bind applies the calling convention to evaluated arguments.
func (n *Native) bind(args []value.Value) ([]value.Value, error) {
	if err := n.checkArity(len(args)); err != nil {
		return nil, err
	}
	size := len(n.Params)
	if len(args) > size {
		size = len(args)
	}
	out := make([]value.Value, size)
	for i := range out {
		if i >= len(args) {
			out[i] = value.Zero(n.Params[i])
			continue
		}
		if i >= len(n.Params) {
			out[i] = args[i]
			continue
		}
		v, err := value.Coerce(args[i], n.Params[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// CallKind tags a CallData.
type CallKind int

const (
	ScriptCall CallKind = iota
	NativeCall
)

// CallData is a call target: either a script-defined function or a native.
type CallData struct {
	kind   CallKind
	script *block.FuncDef
	native *Native
}

// FromScript wraps a script-defined function.
func FromScript(def *block.FuncDef) CallData {
	return CallData{kind: ScriptCall, script: def}
}

// FromNative wraps a native function.
func FromNative(n *Native) CallData {
	return CallData{kind: NativeCall, native: n}
}

// Kind returns the tag.
func (c CallData) Kind() CallKind { return c.kind }

// Script returns the function definition of a script call.
func (c CallData) Script() (*block.FuncDef, bool) {
	return c.script, c.kind == ScriptCall && c.script != nil
}

// Native returns the descriptor of a native call.
func (c CallData) Native() (*Native, bool) {
	return c.native, c.kind == NativeCall && c.native != nil
}

// producesValue reports whether the target may be used inside an expression.
func (c CallData) producesValue() bool {
	if n, ok := c.Native(); ok {
		return n.Returns && !n.Statement
	}
	if def, ok := c.Script(); ok {
		return !def.Sub
	}
	return false
}

// TypeFactory constructs an instance of a registered type from evaluated
// constructor arguments.
type TypeFactory func(f *Frame, args []value.Value) (value.Value, error)

// Registry holds the operator tables, native functions and types an
// Evaluator is built with. Each Evaluator owns its registry.
type Registry struct {
	Unary  *ops.Table
	Binary *ops.Table
	Funcs  map[string]CallData
	Types  map[string]TypeFactory
}

// NewRegistry creates a registry with the standard operators loaded.
func NewRegistry() *Registry {
	r := &Registry{
		Unary:  ops.NewUnary(),
		Binary: ops.NewBinary(),
		Funcs:  make(map[string]CallData),
		Types:  make(map[string]TypeFactory),
	}
	ops.LoadStandard(r.Unary, r.Binary)
	return r
}

// Native registers a function with a fixed parameter list; every parameter
// is required.
func (r *Registry) Native(name string, params []value.Kind, returns, eager bool, fn NativeFunc) {
	r.Tagged(&Native{
		Name:     name,
		Params:   params,
		Required: len(params),
		Returns:  returns,
		Eager:    eager,
		Fn:       fn,
	})
}

// Tagged registers a native with explicit metadata.
func (r *Registry) Tagged(n *Native) {
	r.Funcs[value.Canonical(n.Name)] = FromNative(n)
}

// Type registers a constructible type.
func (r *Registry) Type(name string, f TypeFactory) {
	r.Types[value.Canonical(name)] = f
}

// Lookup finds a registered function.
func (r *Registry) Lookup(name string) (CallData, bool) {
	c, ok := r.Funcs[value.Canonical(name)]
	return c, ok
}

// Grammar returns the operator grammar for the expression parser.
func (r *Registry) Grammar() ops.Grammar {
	return ops.Grammar{Unary: r.Unary, Binary: r.Binary}
}

// Keywords returns the names of all statement natives.
func (r *Registry) Keywords() []string {
	var out []string
	for name, c := range r.Funcs {
		if n, ok := c.Native(); ok && n.Statement {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Names returns every registered function name, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.Funcs))
	for name := range r.Funcs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy.
func (r *Registry) Clone() *Registry {
	c := &Registry{
		Unary:  r.Unary.Clone(),
		Binary: r.Binary.Clone(),
		Funcs:  make(map[string]CallData, len(r.Funcs)),
		Types:  make(map[string]TypeFactory, len(r.Types)),
	}
	for k, v := range r.Funcs {
		c.Funcs[k] = v
	}
	for k, v := range r.Types {
		c.Types[k] = v
	}
	return c
}
