// Package line classifies and preprocesses tbasic source lines.
package line

import (
	"bufio"
	"io"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Line is one logical source statement.
type Line struct {
	Number     int    // 0-based position in the source
	Text       string // trimmed statement text
	Name       string // leading identifier
	IsFunction bool   // '(' appears before any space
}

// New classifies text as line number n.
func New(n int, text string) Line {
	l := Line{Number: n}
	return l.WithText(text)
}

// WithText returns a copy of l with new text and a recomputed name.
func (l Line) WithText(text string) Line {
	l.Text = strings.TrimSpace(text)
	l.Name, l.IsFunction = classify(l.Text)
	return l
}

// classify derives the leading name from the first space and first '('.
func classify(text string) (string, bool) {
	space := strings.IndexFunc(text, unicode.IsSpace)
	paren := strings.IndexByte(text, '(')
	switch {
	case space < 0 && paren < 0:
		return text, false
	case paren >= 0 && (space < 0 || paren < space):
		return text[:paren], true
	}
	return text[:space], false
}

// Rest returns the text after the name.
func (l Line) Rest() string {
	return strings.TrimSpace(l.Text[len(l.Name):])
}

// Is returns true if the line's name matches word case-insensitively.
func (l Line) Is(word string) bool {
	return strings.EqualFold(l.Name, word)
}

// HasPrefixWords returns true if the line starts with the given words.
func (l Line) HasPrefixWords(words ...string) bool {
	fields := strings.Fields(l.Text)
	if len(fields) < len(words) {
		return false
	}
	for i, w := range words {
		if !strings.EqualFold(fields[i], w) {
			return false
		}
	}
	return true
}

// IsBlank returns true for empty and comment-only lines.
func (l Line) IsBlank() bool {
	return l.Text == "" || strings.HasPrefix(l.Text, "'")
}

func (l Line) String() string {
	return l.Text
}

// Sort orders lines by line number.
func Sort(lines []Line) {
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Number < lines[j].Number })
}

// Read ingests source text, numbering lines from 0. Blank and comment-only
// lines are dropped but keep their numbers reserved.
func Read(r io.Reader) ([]Line, error) {
	var lines []Line
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		l := New(n, sc.Text())
		n++
		if l.IsBlank() {
			continue
		}
		lines = append(lines, l)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// ReadString ingests source held in memory.
func ReadString(src string) []Line {
	lines, _ := Read(strings.NewReader(src))
	return lines
}

// Preprocessor rewrites lines before classification.
type Preprocessor struct {
	ImplicitLet bool
	Keywords    map[string]bool // upper-case statement words that are never assignments
}

var assignRe = regexp.MustCompile(`^[\p{L}_][\p{L}\p{N}_]*[$%#]?(\.[\p{L}_][\p{L}\p{N}_]*[$%#]?)*(\(.*\))?\s*=($|[^=])`)

// DefaultKeywords lists words that start statements rather than assignments.
var DefaultKeywords = []string{
	"LET", "IF", "ELSEIF", "FOR", "WHILE", "DO", "LOOP", "PRINT", "RETURN",
	"DIM", "CALL", "FUNCTION", "SUB", "CLASS", "END", "WEND", "NEXT", "ELSE",
	"STOP", "EXIT", "BREAK", "CONTINUE", "REM", "INPUT", "SWAP",
}

// NewPreprocessor creates a preprocessor with the default keyword set.
func NewPreprocessor(implicitLet bool) *Preprocessor {
	kw := make(map[string]bool, len(DefaultKeywords))
	for _, k := range DefaultKeywords {
		kw[k] = true
	}
	return &Preprocessor{ImplicitLet: implicitLet, Keywords: kw}
}

// Process returns l, rewritten if a rule applies.
func (p *Preprocessor) Process(l Line) Line {
	if p == nil || !p.ImplicitLet {
		return l
	}
	head := strings.ToUpper(l.Name)
	if i := strings.IndexAny(head, ".("); i >= 0 {
		head = head[:i]
	}
	if p.Keywords[head] {
		return l
	}
	if assignRe.MatchString(l.Text) {
		return l.WithText("LET " + l.Text)
	}
	return l
}

// ProcessAll rewrites every line.
func (p *Preprocessor) ProcessAll(lines []Line) []Line {
	out := make([]Line, len(lines))
	for i, l := range lines {
		out[i] = p.Process(l)
	}
	return out
}
