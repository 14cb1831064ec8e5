// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package expr defines tbasic expression trees.
package expr

import (
	"strconv"
	"strings"

	"nickandperla.net/tbasic/internal/value"
)

// Node is the interface all expression types implement.
type Node interface {
	// String returns a source-like rendering of the expression.
	String() string
	node()
}

// Literal is a constant value.
type Literal struct {
	Value value.Value
}

func (l *Literal) String() string {
	if l.Value.Kind() == value.String {
		return strconv.Quote(l.Value.Str())
	}
	if l.Value.IsNull() {
		return "NOTHING"
	}
	return l.Value.String()
}

// Ident is a variable reference.
type Ident struct {
	Name string
}

func (i *Ident) String() string { return i.Name }

// Unary is a prefix operator application.
type Unary struct {
	Op string
	X  Node
}

func (u *Unary) String() string {
	if isWordOp(u.Op) {
		return u.Op + " " + u.X.String()
	}
	return u.Op + u.X.String()
}

// Binary is an infix operator application.
type Binary struct {
	Op   string
	L, R Node
}

func (b *Binary) String() string {
	return b.L.String() + " " + b.Op + " " + b.R.String()
}

// Call is Name(args): a function call or an array index.
type Call struct {
	Name string
	Args []Node
}

func (c *Call) String() string {
	return c.Name + "(" + joinNodes(c.Args) + ")"
}

// Member is X.Name.
type Member struct {
	X    Node
	Name string
}

func (m *Member) String() string { return m.X.String() + "." + m.Name }

// MethodCall is X.Name(args).
type MethodCall struct {
	X    Node
	Name string
	Args []Node
}

func (m *MethodCall) String() string {
	return m.X.String() + "." + m.Name + "(" + joinNodes(m.Args) + ")"
}

// Paren is a parenthesised sub-expression.
type Paren struct {
	X Node
}

func (p *Paren) String() string { return "(" + p.X.String() + ")" }

func (*Literal) node()    {}
func (*Ident) node()      {}
func (*Unary) node()      {}
func (*Binary) node()     {}
func (*Call) node()       {}
func (*Member) node()     {}
func (*MethodCall) node() {}
func (*Paren) node()      {}

// Unparen strips any enclosing parentheses.
func Unparen(n Node) Node {
	for {
		p, ok := n.(*Paren)
		if !ok {
			return n
		}
		n = p.X
	}
}

// IsAssignable returns true for nodes that may appear left of '='.
func IsAssignable(n Node) bool {
	switch n.(type) {
	case *Ident, *Member, *Call:
		return true
	}
	return false
}

func joinNodes(nodes []Node) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, ", ")
}

func isWordOp(op string) bool {
	return op != "" && (op[0] >= 'A' && op[0] <= 'Z')
}
