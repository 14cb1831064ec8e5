package block

import (
	"fmt"
	"strings"
	"unicode"

	"nickandperla.net/tbasic/internal/errs"
	"nickandperla.net/tbasic/internal/line"
)

// Kind describes one kind of block: how its opening, closing and
// intermediate (ELSE-like) lines are recognised, and how a finished marker
// becomes a node.
type Kind struct {
	Name   string
	Opens  func(l line.Line) bool
	Closes func(l line.Line) bool
	Splits func(l line.Line) bool // nil for kinds without intermediate markers
	Build  func(m *Marker, esc rune) (Node, error)
}

// Segment is a run of body nodes introduced by a header or split line.
type Segment struct {
	Head line.Line
	Body []Node
}

// Marker is an open block on the parser stack.
type Marker struct {
	Kind     *Kind
	Segments []Segment
	Closer   line.Line
}

// Header returns the opening line.
func (m *Marker) Header() line.Line {
	return m.Segments[0].Head
}

// Body returns the body of the first segment.
func (m *Marker) Body() []Node {
	return m.Segments[0].Body
}

// StandardKinds returns the block kinds of the standard dialect.
func StandardKinds() []*Kind {
	return []*Kind{
		WhileKind(),
		ForKind(),
		DoKind(),
		IfKind(),
		FuncKind("FUNCTION", false),
		FuncKind("SUB", true),
		ClassKind(),
	}
}

// BraceKinds returns FUNC and CLASS blocks closed by a lone "}".
func BraceKinds() []*Kind {
	closes := func(l line.Line) bool { return l.Text == "}" }
	opens := func(word string) func(l line.Line) bool {
		return func(l line.Line) bool {
			return strings.EqualFold(l.Name, word) && strings.HasSuffix(l.Text, "{")
		}
	}
	return []*Kind{
		{
			Name:   "FUNC",
			Opens:  opens("FUNC"),
			Closes: closes,
			Build: func(m *Marker, esc rune) (Node, error) {
				return buildFunc(m, false)
			},
		},
		{
			Name:   "CLASS{}",
			Opens:  opens("CLASS"),
			Closes: closes,
			Build:  buildClass,
		},
	}
}

// BraceDialect returns the brace kinds ahead of the standard ones, so a
// trailing "{" selects the brace form.
func BraceDialect() []*Kind {
	return append(BraceKinds(), StandardKinds()...)
}

// WhileKind is WHILE cond ... WEND (or END WHILE).
func WhileKind() *Kind {
	return &Kind{
		Name:  "WHILE",
		Opens: func(l line.Line) bool { return l.Is("WHILE") },
		Closes: func(l line.Line) bool {
			return l.Is("WEND") || l.HasPrefixWords("END", "WHILE")
		},
		Build: func(m *Marker, esc rune) (Node, error) {
			h := m.Header()
			return &While{Head: h, Cond: h.Rest(), Body: m.Body()}, nil
		},
	}
}

// ForKind is FOR var = from TO to [STEP step] ... NEXT [var].
func ForKind() *Kind {
	return &Kind{
		Name:   "FOR",
		Opens:  func(l line.Line) bool { return l.Is("FOR") },
		Closes: func(l line.Line) bool { return l.Is("NEXT") },
		Build: func(m *Marker, esc rune) (Node, error) {
			h := m.Header()
			assign, bounds, ok := line.SplitWord(h.Rest(), "TO", esc)
			if !ok {
				return nil, fmt.Errorf("FOR without TO")
			}
			eq := strings.IndexByte(assign, '=')
			if eq < 0 {
				return nil, fmt.Errorf("FOR without '='")
			}
			f := &For{
				Head: h,
				Var:  strings.TrimSpace(assign[:eq]),
				From: strings.TrimSpace(assign[eq+1:]),
				To:   bounds,
				Body: m.Body(),
			}
			if to, step, ok := line.SplitWord(bounds, "STEP", esc); ok {
				f.To, f.Step = to, step
			}
			if !isName(f.Var) || f.From == "" || f.To == "" {
				return nil, fmt.Errorf("malformed FOR header %q", h.Text)
			}
			if next := m.Closer.Rest(); next != "" && !strings.EqualFold(next, f.Var) {
				return nil, fmt.Errorf("NEXT %s does not match FOR %s", next, f.Var)
			}
			return f, nil
		},
	}
}

// DoKind is DO [WHILE|UNTIL cond] ... LOOP [WHILE|UNTIL cond].
func DoKind() *Kind {
	return &Kind{
		Name:   "DO",
		Opens:  func(l line.Line) bool { return l.Is("DO") },
		Closes: func(l line.Line) bool { return l.Is("LOOP") },
		Build: func(m *Marker, esc rune) (Node, error) {
			h := m.Header()
			d := &DoLoop{Head: h, Body: m.Body()}
			var err error
			if d.PreCond, d.PreUntil, err = loopCond(h.Rest()); err != nil {
				return nil, err
			}
			if d.PostCond, d.PostUntil, err = loopCond(m.Closer.Rest()); err != nil {
				return nil, err
			}
			if d.PreCond != "" && d.PostCond != "" {
				return nil, fmt.Errorf("DO loop has conditions on both DO and LOOP")
			}
			return d, nil
		},
	}
}

func loopCond(rest string) (string, bool, error) {
	if rest == "" {
		return "", false, nil
	}
	word, cond, _ := strings.Cut(rest, " ")
	cond = strings.TrimSpace(cond)
	switch {
	case strings.EqualFold(word, "WHILE") && cond != "":
		return cond, false, nil
	case strings.EqualFold(word, "UNTIL") && cond != "":
		return cond, true, nil
	}
	return "", false, fmt.Errorf("expected WHILE or UNTIL condition, got %q", rest)
}

// IfKind is IF cond THEN ... [ELSEIF cond THEN ...] [ELSE ...] END IF.
// An IF with a statement after THEN is a single-line statement, not a block.
func IfKind() *Kind {
	return &Kind{
		Name: "IF",
		Opens: func(l line.Line) bool {
			if !l.Is("IF") {
				return false
			}
			return endsWithWord(l.Text, "THEN")
		},
		Closes: func(l line.Line) bool {
			return l.HasPrefixWords("END", "IF") || l.Is("ENDIF")
		},
		Splits: func(l line.Line) bool {
			return l.Is("ELSE") || l.Is("ELSEIF")
		},
		Build: buildIf,
	}
}

func buildIf(m *Marker, esc rune) (Node, error) {
	n := &If{Head: m.Header()}
	for i, seg := range m.Segments {
		h := seg.Head
		switch {
		case i == 0 || h.Is("ELSEIF") || h.HasPrefixWords("ELSE", "IF"):
			if n.HasElse {
				return nil, &errs.ParseError{Line: h.Number, Msg: "ELSEIF after ELSE"}
			}
			rest := h.Rest()
			if h.HasPrefixWords("ELSE", "IF") {
				rest = strings.TrimSpace(rest[2:])
			}
			cond, after, ok := line.SplitWord(rest, "THEN", esc)
			if !ok || after != "" || cond == "" {
				return nil, &errs.ParseError{Line: h.Number, Msg: "expected condition followed by THEN"}
			}
			n.Branches = append(n.Branches, Branch{Head: h, Cond: cond, Body: seg.Body})
		default:
			if n.HasElse {
				return nil, &errs.ParseError{Line: h.Number, Msg: "duplicate ELSE"}
			}
			n.HasElse = true
			n.Else = seg.Body
		}
	}
	return n, nil
}

// FuncKind is FUNCTION name(params) ... END FUNCTION, or SUB ... END SUB.
func FuncKind(word string, sub bool) *Kind {
	return &Kind{
		Name:   word,
		Opens:  func(l line.Line) bool { return l.Is(word) },
		Closes: func(l line.Line) bool { return l.HasPrefixWords("END", word) },
		Build: func(m *Marker, esc rune) (Node, error) {
			return buildFunc(m, sub)
		},
	}
}

func buildFunc(m *Marker, sub bool) (Node, error) {
	h := m.Header()
	sig := strings.TrimSpace(strings.TrimSuffix(h.Rest(), "{"))
	name, params, err := parseSignature(sig)
	if err != nil {
		return nil, err
	}
	return &FuncDef{Head: h, Name: name, Params: params, Sub: sub, Body: m.Body()}, nil
}

// ClassKind is CLASS name ... END CLASS.
func ClassKind() *Kind {
	return &Kind{
		Name:   "CLASS",
		Opens:  func(l line.Line) bool { return l.Is("CLASS") },
		Closes: func(l line.Line) bool { return l.HasPrefixWords("END", "CLASS") },
		Build:  buildClass,
	}
}

func buildClass(m *Marker, _ rune) (Node, error) {
	h := m.Header()
	name := strings.TrimSpace(strings.TrimSuffix(h.Rest(), "{"))
	if !isName(name) {
		return nil, fmt.Errorf("invalid class name %q", name)
	}
	return &ClassDef{Head: h, Name: name, Body: m.Body()}, nil
}

// parseSignature parses "Name(a, b)" or "Name".
func parseSignature(sig string) (string, []string, error) {
	open := strings.IndexByte(sig, '(')
	if open < 0 {
		if !isName(sig) {
			return "", nil, fmt.Errorf("invalid function name %q", sig)
		}
		return sig, nil, nil
	}
	name := strings.TrimSpace(sig[:open])
	if !isName(name) {
		return "", nil, fmt.Errorf("invalid function name %q", name)
	}
	if !strings.HasSuffix(sig, ")") {
		return "", nil, fmt.Errorf("missing ')' in %q", sig)
	}
	inner := strings.TrimSpace(sig[open+1 : len(sig)-1])
	if inner == "" {
		return name, nil, nil
	}
	var params []string
	for _, p := range strings.Split(inner, ",") {
		p = strings.TrimSpace(p)
		if !isName(p) {
			return "", nil, fmt.Errorf("invalid parameter %q in %s", p, name)
		}
		params = append(params, p)
	}
	return name, params, nil
}

func endsWithWord(text, word string) bool {
	if len(text) < len(word) || !strings.EqualFold(text[len(text)-len(word):], word) {
		return false
	}
	if len(text) == len(word) {
		return true
	}
	r := rune(text[len(text)-len(word)-1])
	return unicode.IsSpace(r) || r == ')' || r == '"'
}

func isName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case unicode.IsLetter(r), r == '_':
		case i > 0 && unicode.IsDigit(r):
		case i > 0 && i == len(s)-1 && (r == '$' || r == '%' || r == '#'):
		default:
			return false
		}
	}
	return true
}
