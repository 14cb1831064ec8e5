package block

import (
	"errors"
	"fmt"

	"nickandperla.net/tbasic/internal/errs"
	"nickandperla.net/tbasic/internal/line"
	"nickandperla.net/tbasic/internal/scanner"
)

// Parser groups classified lines into a block tree.
type Parser struct {
	kinds  []*Kind
	escape rune
}

// Option configures a Parser.
type Option func(*Parser)

// WithKinds replaces the block kinds.
func WithKinds(kinds ...*Kind) Option {
	return func(p *Parser) { p.kinds = kinds }
}

// WithExtraKinds adds block kinds after the existing ones.
func WithExtraKinds(kinds ...*Kind) Option {
	return func(p *Parser) { p.kinds = append(p.kinds, kinds...) }
}

// WithEscape sets the string escape rune used when splitting headers.
func WithEscape(r rune) Option {
	return func(p *Parser) { p.escape = r }
}

// NewParser creates a parser with the standard block kinds.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		kinds:  StandardKinds(),
		escape: scanner.StandardEscape,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse builds the block tree in a single pass over lines.
func (p *Parser) Parse(lines []line.Line) (*Program, error) {
	var stack []*Marker
	var root []Node

	appendNode := func(n Node) {
		if len(stack) == 0 {
			root = append(root, n)
			return
		}
		top := stack[len(stack)-1]
		seg := &top.Segments[len(top.Segments)-1]
		seg.Body = append(seg.Body, n)
	}

	for _, l := range lines {
		if l.IsBlank() {
			continue
		}
		if text := line.StripComment(l.Text, p.escape); text != l.Text {
			l = l.WithText(text)
		}

		var top *Marker
		if len(stack) > 0 {
			top = stack[len(stack)-1]
		}

		// Intermediate markers (ELSE, ELSEIF) of the innermost block.
		if top != nil && top.Kind.Splits != nil && top.Kind.Splits(l) {
			top.Segments = append(top.Segments, Segment{Head: l})
			continue
		}

		if top != nil && top.Kind.Closes(l) {
			stack = stack[:len(stack)-1]
			top.Closer = l
			n, err := top.Kind.Build(top, p.escape)
			if err != nil {
				return nil, p.wrap(top.Header().Number, err)
			}
			appendNode(n)
			continue
		}

		if k := p.closing(l); k != nil {
			if top == nil {
				return nil, &errs.ParseError{Line: l.Number, Msg: fmt.Sprintf("%s without %s", l.Text, k.Name)}
			}
			return nil, &errs.ParseError{Line: l.Number, Msg: fmt.Sprintf("%s does not close %s opened on line %d", l.Text, top.Kind.Name, top.Header().Number)}
		}
		if k := p.splitting(l); k != nil {
			return nil, &errs.ParseError{Line: l.Number, Msg: fmt.Sprintf("%s outside %s", l.Name, k.Name)}
		}

		if k := p.opening(l); k != nil {
			stack = append(stack, &Marker{Kind: k, Segments: []Segment{{Head: l}}})
			continue
		}

		appendNode(&Statement{Line: l})
	}

	if len(stack) > 0 {
		top := stack[len(stack)-1]
		return nil, &errs.ParseError{
			Line:         top.Header().Number,
			Msg:          fmt.Sprintf("unterminated %s block", top.Kind.Name),
			Unterminated: true,
		}
	}
	return &Program{Body: root}, nil
}

// Incomplete reports whether lines end with blocks still open. Other
// structural errors are returned as is.
func (p *Parser) Incomplete(lines []line.Line) (bool, error) {
	_, err := p.Parse(lines)
	if err == nil {
		return false, nil
	}
	var pe *errs.ParseError
	if errors.As(err, &pe) && pe.Unterminated {
		return true, nil
	}
	return false, err
}

func (p *Parser) opening(l line.Line) *Kind {
	for _, k := range p.kinds {
		if k.Opens(l) {
			return k
		}
	}
	return nil
}

func (p *Parser) closing(l line.Line) *Kind {
	for _, k := range p.kinds {
		if k.Closes(l) {
			return k
		}
	}
	return nil
}

func (p *Parser) splitting(l line.Line) *Kind {
	for _, k := range p.kinds {
		if k.Splits != nil && k.Splits(l) {
			return k
		}
	}
	return nil
}

func (p *Parser) wrap(lineNo int, err error) error {
	var pe *errs.ParseError
	if errors.As(err, &pe) {
		return err
	}
	return &errs.ParseError{Line: lineNo, Msg: err.Error()}
}

// Parse parses lines with the standard block kinds.
func Parse(lines []line.Line) (*Program, error) {
	return NewParser().Parse(lines)
}
