// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package token defines tbasic token kinds.
package token

// Kind represents a tbasic token kind.
type Kind int

const (
	EOF Kind = iota
	NEWLINE
	IDENT
	NUMBER
	STRING
	OPERATOR
	PUNCT
	COMMENT
)

// String returns the string representation of a token kind.
func (k Kind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case NEWLINE:
		return "NEWLINE"
	case IDENT:
		return "IDENT"
	case NUMBER:
		return "NUMBER"
	case STRING:
		return "STRING"
	case OPERATOR:
		return "OPERATOR"
	case PUNCT:
		return "PUNCT"
	case COMMENT:
		return "COMMENT"
	}
	return "UNKNOWN"
}

// IsTrivia returns true for tokens the expression parser ignores.
func (k Kind) IsTrivia() bool {
	return k == COMMENT || k == NEWLINE
}

// Token is a scanned lexical unit.
type Token struct {
	Kind   Kind
	Text   string
	Space  string // whitespace skipped before this token
	Offset int    // byte offset of Text in the scanned buffer
}

// End returns the byte offset just past the token text.
func (t Token) End() int {
	return t.Offset + len(t.Text)
}

// Is returns true if the token has the given kind and text.
func (t Token) Is(k Kind, text string) bool {
	return t.Kind == k && t.Text == text
}

// Punctuation runes recognised by the standard scanner.
const (
	LParen = "("
	RParen = ")"
	Comma  = ","
	Dot    = "."
	Colon  = ":"
)
