// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package scanner provides a maximal-munch tokenizer for tbasic.
package scanner

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"nickandperla.net/tbasic/internal/errs"
	"nickandperla.net/tbasic/internal/token"
)

// Escape runes for the built-in dialects.
const (
	StandardEscape = '\\'
	TerminalEscape = '`' // leaves backslashes in file paths alone
)

// Scanner tokenizes a buffer using a set of rules.
type Scanner struct {
	src    string
	pos    int
	rules  []Rule
	escape rune
	peeked *token.Token
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithRules replaces the rule set.
func WithRules(rules ...Rule) Option {
	return func(s *Scanner) { s.rules = rules }
}

// WithOperators sets the symbol operators recognised by the standard rules.
func WithOperators(ops []string) Option {
	return func(s *Scanner) { s.rules = StandardRules(ops) }
}

// WithEscape sets the escape rune used inside string literals.
func WithEscape(r rune) Option {
	return func(s *Scanner) { s.escape = r }
}

// New creates a new Scanner over src.
func New(src string, opts ...Option) *Scanner {
	s := &Scanner{
		src:    src,
		escape: StandardEscape,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rules == nil {
		s.rules = StandardRules(DefaultOperators)
	}
	return s
}

// Clone returns a scanner with the same rules and dialect over a new buffer.
func (s *Scanner) Clone(src string) *Scanner {
	return &Scanner{
		src:    src,
		rules:  s.rules,
		escape: s.escape,
	}
}

// Escape returns the escape rune of this scanner's dialect.
func (s *Scanner) Escape() rune {
	return s.escape
}

// Peek returns the next token without consuming it.
func (s *Scanner) Peek() (token.Token, error) {
	if s.peeked != nil {
		return *s.peeked, nil
	}
	tok, err := s.Next()
	if err != nil {
		return token.Token{}, err
	}
	s.peeked = &tok
	return tok, nil
}

// Next returns the next token. After EOF it keeps returning EOF.
func (s *Scanner) Next() (token.Token, error) {
	if s.peeked != nil {
		tok := *s.peeked
		s.peeked = nil
		return tok, nil
	}

	start := s.pos
	s.skipSpace()
	space := s.src[start:s.pos]

	if s.pos >= len(s.src) {
		return token.Token{Kind: token.EOF, Space: space, Offset: s.pos}, nil
	}

	best, bestLen := -1, 0
	for i, rule := range s.rules {
		n, err := rule.Match(s.src, s.pos, s.escape)
		if err != nil {
			if errors.Is(err, errs.ErrEndOfStream) {
				return token.Token{}, fmt.Errorf("unterminated %s at offset %d: %w", rule.Kind(), s.pos, err)
			}
			return token.Token{}, err
		}
		// Strictly longer wins, so the first registered rule keeps exact ties.
		if n > bestLen {
			best, bestLen = i, n
		}
	}
	if best < 0 {
		_, size := utf8.DecodeRuneInString(s.src[s.pos:])
		return token.Token{}, &errs.UnknownTokenError{Fragment: s.src[s.pos : s.pos+size], Offset: s.pos}
	}

	tok := token.Token{
		Kind:   s.rules[best].Kind(),
		Text:   s.src[s.pos : s.pos+bestLen],
		Space:  space,
		Offset: s.pos,
	}
	s.pos += bestLen
	return tok, nil
}

// All scans the remaining buffer. The last token is always EOF.
func (s *Scanner) All() ([]token.Token, error) {
	var toks []token.Token
	for {
		tok, err := s.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks, nil
		}
	}
}

// Tokenize scans src with the standard rules and the given options.
func Tokenize(src string, opts ...Option) ([]token.Token, error) {
	return New(src, opts...).All()
}

// Join reassembles the source text covered by toks.
func Join(toks []token.Token) string {
	n := 0
	for _, t := range toks {
		n += len(t.Space) + len(t.Text)
	}
	buf := make([]byte, 0, n)
	for _, t := range toks {
		buf = append(buf, t.Space...)
		buf = append(buf, t.Text...)
	}
	return string(buf)
}

// skipSpace consumes whitespace other than newlines.
func (s *Scanner) skipSpace() {
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case ' ', '\t', '\f', '\v':
			s.pos++
		case '\r':
			if s.pos+1 < len(s.src) && s.src[s.pos+1] == '\n' {
				return
			}
			s.pos++
		default:
			return
		}
	}
}
