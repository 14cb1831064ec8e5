// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"nickandperla.net/tbasic/internal/block"
	"nickandperla.net/tbasic/internal/errs"
	"nickandperla.net/tbasic/internal/value"
)

// class is a script-defined type.
type class struct {
	name    string
	def     *block.ClassDef
	methods map[string]*block.FuncDef
}

// Instance is an object of a script-defined class. Its fields live in a
// scope that method bodies see as their parent.
type Instance struct {
	class  *class
	fields *Scope
}

// TypeName implements value.Member.
func (i *Instance) TypeName() string {
	return i.class.name
}

// GetField implements value.Member.
func (i *Instance) GetField(name string) (value.Value, error) {
	if v, ok := i.fields.vars[value.Canonical(name)]; ok {
		return v, nil
	}
	return value.Value{}, &errs.UndefinedError{Name: name, What: "member", Scope: i.class.name}
}

// SetField implements value.Member. Only declared fields may be set.
func (i *Instance) SetField(name string, v value.Value) error {
	key := value.Canonical(name)
	if _, ok := i.fields.vars[key]; !ok {
		return &errs.UndefinedError{Name: name, What: "member", Scope: i.class.name}
	}
	i.fields.vars[key] = v
	return nil
}

// defineClass registers a class as a constructible type.
func (e *Evaluator) defineClass(def *block.ClassDef) {
	c := &class{name: def.Name, def: def, methods: make(map[string]*block.FuncDef)}
	for _, n := range def.Body {
		if fd, ok := n.(*block.FuncDef); ok {
			c.methods[value.Canonical(fd.Name)] = fd
		}
	}
	e.reg.Type(def.Name, func(_ *Frame, args []value.Value) (value.Value, error) {
		return e.instantiate(c, args)
	})
}

// instantiate runs the field declarations in a fresh instance scope, then
// the NEW method if the class has one.
func (e *Evaluator) instantiate(c *class, args []value.Value) (value.Value, error) {
	// Field initialisers run with no parent scope; every name they assign
	// becomes a field.
	inst := &Instance{class: c, fields: NewScope(nil)}
	if err := e.initFields(inst); err != nil {
		return value.Value{}, err
	}
	inst.fields.parent = e.global

	self := value.NewObject(inst)
	if ctor, ok := c.methods["NEW"]; ok {
		if _, err := e.callScript(ctor, args, inst); err != nil {
			return value.Value{}, err
		}
		return self, nil
	}
	if len(args) > 0 {
		return value.Value{}, &errs.ArityError{Name: c.name, Expected: 0, Got: len(args)}
	}
	return self, nil
}

func (e *Evaluator) initFields(inst *Instance) error {
	caller := e.act
	depth := caller.depth + 1
	if depth > e.maxDepth {
		return &errs.StackOverflowError{Depth: e.maxDepth}
	}
	e.act = &activation{name: inst.class.name, scope: inst.fields, depth: depth}
	defer func() { e.act = caller }()

	for _, n := range inst.class.def.Body {
		st, ok := n.(*block.Statement)
		if !ok {
			continue
		}
		if _, err := e.execStatement(st.Line); err != nil {
			return errs.AtLine(err, st.Line.Number)
		}
	}
	return nil
}
