// Package eval implements the tbasic runtime executor.
package eval

import (
	"sort"

	"nickandperla.net/tbasic/internal/value"
)

// Scope is one level of the variable and function chain. Names are stored
// canonicalised. A Scope is not safe for concurrent use.
type Scope struct {
	vars   map[string]value.Value
	funcs  map[string]CallData
	parent *Scope
}

// NewScope creates an empty scope whose lookups fall back to parent.
func NewScope(parent *Scope) *Scope {
	return &Scope{
		vars:   make(map[string]value.Value),
		funcs:  make(map[string]CallData),
		parent: parent,
	}
}

// Parent returns the enclosing scope, or nil for the global scope.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Lookup finds a variable in this scope or an ancestor.
func (s *Scope) Lookup(name string) (value.Value, bool) {
	key := value.Canonical(name)
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.vars[key]; ok {
			return v, true
		}
	}
	return value.Value{}, false
}

// Has returns true if this scope itself defines name.
func (s *Scope) Has(name string) bool {
	_, ok := s.vars[value.Canonical(name)]
	return ok
}

// Assign updates the nearest scope that defines name, or declares it in s.
func (s *Scope) Assign(name string, v value.Value) {
	key := value.Canonical(name)
	for sc := s; sc != nil; sc = sc.parent {
		if _, ok := sc.vars[key]; ok {
			sc.vars[key] = v
			return
		}
	}
	s.vars[key] = v
}

// Declare binds name in s, shadowing any outer definition.
func (s *Scope) Declare(name string, v value.Value) {
	s.vars[value.Canonical(name)] = v
}

// Names returns the variables defined directly in s, sorted.
func (s *Scope) Names() []string {
	out := make([]string, 0, len(s.vars))
	for k := range s.vars {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Func finds a script function in this scope or an ancestor.
func (s *Scope) Func(name string) (CallData, bool) {
	key := value.Canonical(name)
	for sc := s; sc != nil; sc = sc.parent {
		if c, ok := sc.funcs[key]; ok {
			return c, true
		}
	}
	return CallData{}, false
}

// DefineFunc binds a function in s.
func (s *Scope) DefineFunc(name string, c CallData) {
	s.funcs[value.Canonical(name)] = c
}
