package scanner

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"nickandperla.net/tbasic/internal/errs"
	"nickandperla.net/tbasic/internal/token"
)

// Rule matches one kind of token at a position in the buffer.
// Match returns the byte length of the match, 0 when the rule does not apply,
// or errs.ErrEndOfStream when the buffer ends inside a token.
type Rule interface {
	Kind() token.Kind
	Match(src string, pos int, esc rune) (int, error)
}

// RuleFunc adapts a plain function to the Rule interface.
type RuleFunc struct {
	K  token.Kind
	Fn func(src string, pos int, esc rune) (int, error)
}

func (r RuleFunc) Kind() token.Kind { return r.K }

func (r RuleFunc) Match(src string, pos int, esc rune) (int, error) {
	return r.Fn(src, pos, esc)
}

// DefaultOperators are the operator symbols of the standard operator tables.
var DefaultOperators = []string{
	"+", "-", "*", "/", "\\", "^", "&", "~",
	"=", "==", "<>", "!=", "<", ">", "<=", ">=",
	"<<", ">>",
}

// StandardRules returns the standard rule set, in registration order.
func StandardRules(operators []string) []Rule {
	return []Rule{
		CommentRule(),
		NewlineRule(),
		NumberRule(),
		StringRule(),
		IdentRule(),
		OperatorRule(operators),
		PunctRule(),
	}
}

// CommentRule matches an apostrophe comment up to (not including) the newline.
func CommentRule() Rule {
	return RuleFunc{K: token.COMMENT, Fn: func(src string, pos int, _ rune) (int, error) {
		if src[pos] != '\'' {
			return 0, nil
		}
		end := strings.IndexByte(src[pos:], '\n')
		if end < 0 {
			return len(src) - pos, nil
		}
		n := end
		if n > 0 && src[pos+n-1] == '\r' {
			n--
		}
		return n, nil
	}}
}

// NewlineRule matches \n or \r\n.
func NewlineRule() Rule {
	return RuleFunc{K: token.NEWLINE, Fn: func(src string, pos int, _ rune) (int, error) {
		switch {
		case src[pos] == '\n':
			return 1, nil
		case strings.HasPrefix(src[pos:], "\r\n"):
			return 2, nil
		}
		return 0, nil
	}}
}

// NumberRule matches decimal literals: 12, 1.5, .5, 3., 1e10, 2.5E-3.
func NumberRule() Rule {
	return RuleFunc{K: token.NUMBER, Fn: func(src string, pos int, _ rune) (int, error) {
		i := pos
		digits := 0
		for i < len(src) && isDigit(src[i]) {
			i++
			digits++
		}
		if i < len(src) && src[i] == '.' {
			j := i + 1
			frac := 0
			for j < len(src) && isDigit(src[j]) {
				j++
				frac++
			}
			if digits+frac > 0 {
				i = j
				digits += frac
			}
		}
		if digits == 0 {
			return 0, nil
		}
		if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
			j := i + 1
			if j < len(src) && (src[j] == '+' || src[j] == '-') {
				j++
			}
			exp := 0
			for j < len(src) && isDigit(src[j]) {
				j++
				exp++
			}
			if exp > 0 {
				i = j
			}
		}
		return i - pos, nil
	}}
}

// StringRule matches a double-quoted literal. The escape rune protects the
// following rune, including a quote.
func StringRule() Rule {
	return RuleFunc{K: token.STRING, Fn: func(src string, pos int, esc rune) (int, error) {
		if src[pos] != '"' {
			return 0, nil
		}
		i := pos + 1
		for i < len(src) {
			r, size := utf8.DecodeRuneInString(src[i:])
			switch {
			case r == '"':
				return i + 1 - pos, nil
			case r == '\n':
				return 0, errs.ErrEndOfStream
			case r == esc:
				i += size
				if i >= len(src) {
					return 0, errs.ErrEndOfStream
				}
				_, size = utf8.DecodeRuneInString(src[i:])
			}
			i += size
		}
		return 0, errs.ErrEndOfStream
	}}
}

// IdentRule matches identifiers with an optional BASIC type suffix ($ % #).
func IdentRule() Rule {
	return RuleFunc{K: token.IDENT, Fn: func(src string, pos int, _ rune) (int, error) {
		r, size := utf8.DecodeRuneInString(src[pos:])
		if !unicode.IsLetter(r) && r != '_' {
			return 0, nil
		}
		i := pos + size
		for i < len(src) {
			r, size = utf8.DecodeRuneInString(src[i:])
			if !isIdentChar(r) {
				break
			}
			i += size
		}
		if i < len(src) && (src[i] == '$' || src[i] == '%' || src[i] == '#') {
			i++
		}
		return i - pos, nil
	}}
}

// OperatorRule matches the longest symbol from operators.
func OperatorRule(operators []string) Rule {
	symbols := make([]string, 0, len(operators))
	for _, op := range operators {
		if op != "" && !isWord(op) {
			symbols = append(symbols, op)
		}
	}
	sort.SliceStable(symbols, func(i, j int) bool { return len(symbols[i]) > len(symbols[j]) })
	return RuleFunc{K: token.OPERATOR, Fn: func(src string, pos int, _ rune) (int, error) {
		for _, op := range symbols {
			if strings.HasPrefix(src[pos:], op) {
				return len(op), nil
			}
		}
		return 0, nil
	}}
}

// PunctRule matches single punctuation characters.
func PunctRule() Rule {
	return RuleFunc{K: token.PUNCT, Fn: func(src string, pos int, _ rune) (int, error) {
		switch src[pos] {
		case '(', ')', ',', '.', ':':
			return 1, nil
		}
		return 0, nil
	}}
}

// Unquote decodes a string token, dropping the quotes and resolving escapes.
func Unquote(text string, esc rune) string {
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		text = text[1 : len(text)-1]
	}
	if !strings.ContainsRune(text, esc) {
		return text
	}
	var sb strings.Builder
	escaped := false
	for _, r := range text {
		if escaped {
			switch r {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			case '0':
				sb.WriteRune(0)
			default:
				sb.WriteRune(r)
			}
			escaped = false
			continue
		}
		if r == esc {
			escaped = true
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// isIdentChar returns true if the rune is valid in an identifier (letter, digit, underscore).
func isIdentChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func isWord(op string) bool {
	r, _ := utf8.DecodeRuneInString(op)
	return unicode.IsLetter(r)
}
