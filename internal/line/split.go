// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package line

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SplitWord splits text at the first occurrence of word that stands alone,
// outside string literals and at parenthesis depth 0. The match is
// case-insensitive. ok is false when word does not occur.
func SplitWord(text, word string, esc rune) (before, after string, ok bool) {
	i := IndexWord(text, word, esc)
	if i < 0 {
		return text, "", false
	}
	return strings.TrimSpace(text[:i]), strings.TrimSpace(text[i+len(word):]), true
}

// IndexWord returns the byte index of the first standalone word, or -1.
func IndexWord(text, word string, esc rune) int {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		switch {
		case inString:
			switch {
			case escaped:
				escaped = false
			case r == esc:
				escaped = true
			case r == '"':
				inString = false
			}
		case r == '"':
			inString = true
		case r == '\'':
			return -1
		case r == '(':
			depth++
		case r == ')':
			depth--
		case depth == 0 && wordAt(text, i, word):
			return i
		}
		i += size
	}
	return -1
}

// StripComment removes a trailing apostrophe comment that starts outside
// string literals, and the space before it.
func StripComment(text string, esc rune) string {
	inString := false
	escaped := false
	for i, r := range text {
		switch {
		case inString:
			switch {
			case escaped:
				escaped = false
			case r == esc:
				escaped = true
			case r == '"':
				inString = false
			}
		case r == '"':
			inString = true
		case r == '\'':
			return strings.TrimRightFunc(text[:i], unicode.IsSpace)
		}
	}
	return text
}

// SplitTop splits text on sep at depth 0 outside strings.
func SplitTop(text string, sep rune, esc rune) []string {
	var parts []string
	depth := 0
	inString := false
	escaped := false
	start := 0
	for i, r := range text {
		switch {
		case inString:
			switch {
			case escaped:
				escaped = false
			case r == esc:
				escaped = true
			case r == '"':
				inString = false
			}
		case r == '"':
			inString = true
		case r == '(':
			depth++
		case r == ')':
			depth--
		case r == sep && depth == 0:
			parts = append(parts, strings.TrimSpace(text[start:i]))
			start = i + utf8.RuneLen(r)
		}
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" || len(parts) > 0 {
		parts = append(parts, tail)
	}
	return parts
}

func wordAt(text string, i int, word string) bool {
	if len(text)-i < len(word) || !strings.EqualFold(text[i:i+len(word)], word) {
		return false
	}
	if i > 0 {
		prev, _ := utf8.DecodeLastRuneInString(text[:i])
		if isWordRune(prev) {
			return false
		}
	}
	if next, _ := utf8.DecodeRuneInString(text[i+len(word):]); i+len(word) < len(text) && isWordRune(next) {
		return false
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$' || r == '%' || r == '#'
}
