package expr

import (
	"fmt"
	"strings"

	"nickandperla.net/tbasic/internal/errs"
	"nickandperla.net/tbasic/internal/scanner"
	"nickandperla.net/tbasic/internal/token"
	"nickandperla.net/tbasic/internal/value"
)

// Grammar supplies operator precedence to the parser.
type Grammar interface {
	// BinaryPrec returns the precedence and associativity of a binary
	// operator; higher binds tighter.
	BinaryPrec(op string) (prec int, rightAssoc bool, ok bool)
	// IsUnary returns true if op is a registered prefix operator.
	IsUnary(op string) bool
}

// Parser is a precedence-climbing parser over a token slice.
type Parser struct {
	toks    []token.Token
	pos     int
	grammar Grammar
	escape  rune
}

// NewParser creates a parser over toks. Comments and newlines are skipped.
func NewParser(toks []token.Token, g Grammar, esc rune) *Parser {
	filtered := make([]token.Token, 0, len(toks))
	for _, t := range toks {
		if !t.Kind.IsTrivia() {
			filtered = append(filtered, t)
		}
	}
	return &Parser{toks: filtered, grammar: g, escape: esc}
}

// Parse parses a single expression spanning all of toks.
func Parse(toks []token.Token, g Grammar, esc rune) (Node, error) {
	p := NewParser(toks, g, esc)
	n, err := p.Expr()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return n, nil
}

// ParseList parses a comma-separated list that may be empty.
func ParseList(toks []token.Token, g Grammar, esc rune) ([]Node, error) {
	p := NewParser(toks, g, esc)
	if p.peek().Kind == token.EOF {
		return nil, nil
	}
	var nodes []Node
	for {
		n, err := p.Expr()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
		if !p.accept(token.PUNCT, token.Comma) {
			break
		}
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return nodes, nil
}

// ParseString scans and parses src with the standard rules.
func ParseString(src string, g Grammar, opts ...scanner.Option) (Node, error) {
	s := scanner.New(src, opts...)
	toks, err := s.All()
	if err != nil {
		return nil, err
	}
	return Parse(toks, g, s.Escape())
}

// Expr parses one expression.
func (p *Parser) Expr() (Node, error) {
	return p.binary(1)
}

func (p *Parser) binary(minPrec int) (Node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.operator(p.peek())
		if !ok {
			return left, nil
		}
		prec, right, ok := p.grammar.BinaryPrec(op)
		if !ok || prec < minPrec {
			return left, nil
		}
		p.next()
		next := prec + 1
		if right {
			next = prec
		}
		rhs, err := p.binary(next)
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, L: left, R: rhs}
	}
}

func (p *Parser) unary() (Node, error) {
	if op, ok := p.operator(p.peek()); ok && p.grammar.IsUnary(op) {
		p.next()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: op, X: x}, nil
	}
	return p.postfix()
}

func (p *Parser) postfix() (Node, error) {
	n, err := p.primary()
	if err != nil {
		return nil, err
	}
	for p.accept(token.PUNCT, token.Dot) {
		name := p.next()
		if name.Kind != token.IDENT {
			return nil, p.errorf(name, "expected member name after '.'")
		}
		if p.peek().Is(token.PUNCT, token.LParen) {
			args, err := p.args()
			if err != nil {
				return nil, err
			}
			n = &MethodCall{X: n, Name: name.Text, Args: args}
			continue
		}
		n = &Member{X: n, Name: name.Text}
	}
	return n, nil
}

func (p *Parser) primary() (Node, error) {
	tok := p.next()
	switch tok.Kind {
	case token.NUMBER:
		v, err := value.ParseNumber(tok.Text)
		if err != nil {
			return nil, p.errorf(tok, "invalid number %q", tok.Text)
		}
		return &Literal{Value: v}, nil

	case token.STRING:
		return &Literal{Value: value.NewString(scanner.Unquote(tok.Text, p.escape))}, nil

	case token.IDENT:
		switch strings.ToUpper(tok.Text) {
		case "TRUE":
			return &Literal{Value: value.NewBool(true)}, nil
		case "FALSE":
			return &Literal{Value: value.NewBool(false)}, nil
		case "NOTHING", "NULL":
			return &Literal{}, nil
		}
		if p.peek().Is(token.PUNCT, token.LParen) {
			args, err := p.args()
			if err != nil {
				return nil, err
			}
			return &Call{Name: tok.Text, Args: args}, nil
		}
		return &Ident{Name: tok.Text}, nil

	case token.PUNCT:
		if tok.Text == token.LParen {
			n, err := p.Expr()
			if err != nil {
				return nil, err
			}
			if !p.accept(token.PUNCT, token.RParen) {
				return nil, p.errorf(p.peek(), "expected ')'")
			}
			return &Paren{X: n}, nil
		}

	case token.EOF:
		return nil, &errs.ParseError{Line: -1, Msg: "unexpected end of expression"}
	}
	return nil, p.errorf(tok, "unexpected %q", tok.Text)
}

// args parses "(a, b, ...)".
func (p *Parser) args() ([]Node, error) {
	p.next() // (
	if p.accept(token.PUNCT, token.RParen) {
		return nil, nil
	}
	var args []Node
	for {
		n, err := p.Expr()
		if err != nil {
			return nil, err
		}
		args = append(args, n)
		if p.accept(token.PUNCT, token.Comma) {
			continue
		}
		if p.accept(token.PUNCT, token.RParen) {
			return args, nil
		}
		return nil, p.errorf(p.peek(), "expected ',' or ')'")
	}
}

// operator returns the operator spelled by tok. Word operators are
// upper-cased so tables can be keyed case-insensitively.
func (p *Parser) operator(tok token.Token) (string, bool) {
	switch tok.Kind {
	case token.OPERATOR:
		return tok.Text, true
	case token.IDENT:
		return strings.ToUpper(tok.Text), true
	}
	return "", false
}

func (p *Parser) peek() token.Token {
	if p.pos >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) next() token.Token {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *Parser) accept(k token.Kind, text string) bool {
	if p.peek().Is(k, text) {
		p.pos++
		return true
	}
	return false
}

func (p *Parser) expectEOF() error {
	if t := p.peek(); t.Kind != token.EOF {
		return p.errorf(t, "unexpected %q after expression", t.Text)
	}
	return nil
}

func (p *Parser) errorf(tok token.Token, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if tok.Kind != token.EOF {
		msg = fmt.Sprintf("%s at offset %d", msg, tok.Offset)
	}
	return &errs.ParseError{Line: -1, Msg: msg}
}
