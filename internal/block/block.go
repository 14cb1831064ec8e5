// Package block defines tbasic block nodes and the block parser.
package block

import (
	"nickandperla.net/tbasic/internal/line"
)

// Node is a parsed block or statement. Nodes are never mutated after
// parsing, so a tree can be executed any number of times.
type Node interface {
	// Header returns the line that introduced the node.
	Header() line.Line
	node()
}

// Statement is a single executable line.
type Statement struct {
	Line line.Line
}

// While is WHILE cond ... WEND.
type While struct {
	Head line.Line
	Cond string
	Body []Node
}

// For is FOR var = from TO to [STEP step] ... NEXT.
type For struct {
	Head line.Line
	Var  string
	From string
	To   string
	Step string // empty means 1
	Body []Node
}

// DoLoop is DO [WHILE|UNTIL cond] ... LOOP [WHILE|UNTIL cond].
type DoLoop struct {
	Head      line.Line
	PreCond   string
	PreUntil  bool
	PostCond  string
	PostUntil bool
	Body      []Node
}

// Branch is one arm of an IF block.
type Branch struct {
	Head line.Line
	Cond string
	Body []Node
}

// If is IF cond THEN ... [ELSEIF cond THEN ...] [ELSE ...] END IF.
type If struct {
	Head     line.Line
	Branches []Branch
	Else     []Node
	HasElse  bool
}

// FuncDef is a FUNCTION or SUB definition.
type FuncDef struct {
	Head   line.Line
	Name   string
	Params []string
	Sub    bool // SUB bodies produce no value
	Body   []Node
}

// ClassDef is a CLASS definition. Its body holds field declarations and
// method definitions.
type ClassDef struct {
	Head line.Line
	Name string
	Body []Node
}

// Program is the root sequence.
type Program struct {
	Body []Node
}

func (s *Statement) Header() line.Line { return s.Line }
func (w *While) Header() line.Line     { return w.Head }
func (f *For) Header() line.Line       { return f.Head }
func (d *DoLoop) Header() line.Line    { return d.Head }
func (i *If) Header() line.Line        { return i.Head }
func (f *FuncDef) Header() line.Line   { return f.Head }
func (c *ClassDef) Header() line.Line  { return c.Head }

func (*Statement) node() {}
func (*While) node()     {}
func (*For) node()       {}
func (*DoLoop) node()    {}
func (*If) node()        {}
func (*FuncDef) node()   {}
func (*ClassDef) node()  {}

// Count returns the number of Statement leaves in nodes.
func Count(nodes []Node) int {
	n := 0
	for _, nd := range nodes {
		switch v := nd.(type) {
		case *Statement:
			n++
		case *While:
			n += Count(v.Body)
		case *For:
			n += Count(v.Body)
		case *DoLoop:
			n += Count(v.Body)
		case *If:
			for _, b := range v.Branches {
				n += Count(b.Body)
			}
			n += Count(v.Else)
		case *FuncDef:
			n += Count(v.Body)
		case *ClassDef:
			n += Count(v.Body)
		}
	}
	return n
}
