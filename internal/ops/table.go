// Package ops holds the unary and binary operator tables.
package ops

import (
	"sort"
	"strings"

	"nickandperla.net/tbasic/internal/errs"
	"nickandperla.net/tbasic/internal/expr"
	"nickandperla.net/tbasic/internal/value"
)

// Context is the evaluator surface an operator may call back into.
type Context interface {
	// Eval evaluates an expression node.
	Eval(n expr.Node) (value.Value, error)
	// Construct instantiates a registered type. The type must be resolved
	// before any argument node is evaluated.
	Construct(typeName string, args []expr.Node) (value.Value, error)
}

// Operand is one operator argument. Eager operators receive operands with
// Evaluated set; non-eager operators evaluate on demand through Get.
type Operand struct {
	Node      expr.Node
	Value     value.Value
	Evaluated bool
}

// Get returns the operand's value, evaluating it at most once.
func (o *Operand) Get(ctx Context) (value.Value, error) {
	if o.Evaluated {
		return o.Value, nil
	}
	v, err := ctx.Eval(o.Node)
	if err != nil {
		return value.Value{}, err
	}
	o.Value, o.Evaluated = v, true
	return v, nil
}

// Func implements an operator.
type Func func(ctx Context, args []Operand) (value.Value, error)

// Operator is a table entry.
type Operator struct {
	Name       string
	Prec       int
	RightAssoc bool
	Eager      bool
	Fn         Func
}

// Table maps operator spellings to implementations. Word operators are keyed
// upper-case.
type Table struct {
	kind string
	ops  map[string]*Operator
}

// NewUnary creates an empty prefix operator table.
func NewUnary() *Table {
	return &Table{kind: "unary operator", ops: make(map[string]*Operator)}
}

// NewBinary creates an empty infix operator table.
func NewBinary() *Table {
	return &Table{kind: "binary operator", ops: make(map[string]*Operator)}
}

// Register adds or replaces a prefix operator.
func (t *Table) Register(name string, fn Func, eager bool) {
	name = key(name)
	t.ops[name] = &Operator{Name: name, Eager: eager, Fn: fn}
}

// RegisterBinary adds or replaces an infix operator.
func (t *Table) RegisterBinary(name string, prec int, rightAssoc bool, fn Func, eager bool) {
	name = key(name)
	t.ops[name] = &Operator{Name: name, Prec: prec, RightAssoc: rightAssoc, Eager: eager, Fn: fn}
}

// Lookup finds an operator by spelling.
func (t *Table) Lookup(name string) (*Operator, error) {
	if op, ok := t.ops[key(name)]; ok {
		return op, nil
	}
	return nil, &errs.UndefinedError{Name: name, What: t.kind}
}

// Has returns true if name is registered.
func (t *Table) Has(name string) bool {
	_, ok := t.ops[key(name)]
	return ok
}

// Symbols returns the registered non-word spellings, sorted, for the scanner's
// operator rule.
func (t *Table) Symbols() []string {
	var out []string
	for name := range t.ops {
		if !isWord(name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy of the table.
func (t *Table) Clone() *Table {
	c := &Table{kind: t.kind, ops: make(map[string]*Operator, len(t.ops))}
	for k, op := range t.ops {
		cp := *op
		c.ops[k] = &cp
	}
	return c
}

// Load registers every operator in src, replacing existing entries.
func (t *Table) Load(src []Operator) {
	for _, op := range src {
		op.Name = key(op.Name)
		cp := op
		t.ops[op.Name] = &cp
	}
}

// Grammar adapts a pair of tables to expr.Grammar.
type Grammar struct {
	Unary, Binary *Table
}

// BinaryPrec implements expr.Grammar.
func (g Grammar) BinaryPrec(op string) (int, bool, bool) {
	o, ok := g.Binary.ops[key(op)]
	if !ok {
		return 0, false, false
	}
	return o.Prec, o.RightAssoc, true
}

// IsUnary implements expr.Grammar.
func (g Grammar) IsUnary(op string) bool {
	return g.Unary.Has(op)
}

// Symbols merges both tables' symbol sets.
func (g Grammar) Symbols() []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range append(g.Unary.Symbols(), g.Binary.Symbols()...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func key(name string) string {
	if isWord(name) {
		return strings.ToUpper(name)
	}
	return name
}

func isWord(name string) bool {
	if name == "" {
		return false
	}
	c := name[0]
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
