// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package stdlib

import (
	"strings"
	"unicode/utf8"

	"nickandperla.net/tbasic/internal/errs"
	"nickandperla.net/tbasic/internal/eval"
	"nickandperla.net/tbasic/internal/value"
)

// zoneWidth is the column width a comma advances to in PRINT.
const zoneWidth = 14

func ioNatives() []*eval.Native {
	stmt := func(name string, f eval.NativeFunc) *eval.Native {
		return &eval.Native{Name: name, Raw: true, Statement: true, Variadic: true, Fn: f}
	}
	return []*eval.Native{
		stmt("PRINT", builtinPrint),
		stmt("INPUT", builtinInput),
		stmt("CLS", func(f *eval.Frame, _ []value.Value) (value.Value, error) {
			return value.Value{}, f.Print("\x1b[2J\x1b[H")
		}),
	}
}

// printItem is one expression of a PRINT list and the separator after it.
type printItem struct {
	expr string
	sep  rune // ';', ',' or 0 for the last item
}

// splitPrint cuts a PRINT list at top-level ';' and ','.
func splitPrint(text string, esc rune) []printItem {
	var items []printItem
	depth := 0
	inString, escaped := false, false
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
		case depth == 0 && (r == ';' || r == ','):
			items = append(items, printItem{expr: strings.TrimSpace(text[start:i]), sep: r})
			start = i + 1
		}
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		items = append(items, printItem{expr: tail})
	}
	return items
}

// PRINT expr [; expr | , expr]... [;|,]
func builtinPrint(f *eval.Frame, _ []value.Value) (value.Value, error) {
	var b strings.Builder
	col := 0
	newline := true
	for _, it := range splitPrint(f.Raw, f.Escape()) {
		if it.expr != "" {
			v, err := f.EvalText(it.expr)
			if err != nil {
				return value.Value{}, err
			}
			s := v.String()
			b.WriteString(s)
			col += utf8.RuneCountInString(s)
		}
		if it.sep == ',' {
			pad := zoneWidth - col%zoneWidth
			b.WriteString(strings.Repeat(" ", pad))
			col += pad
		}
		newline = it.sep == 0
	}
	if newline {
		b.WriteByte('\n')
	}
	return value.Value{}, f.Print(b.String())
}

// INPUT ["prompt" ;|,] target [, target]...
//
// A ';' after the prompt appends "? ". The line read is split on commas, one
// field per target. Targets ending in '$' receive the text; others receive a
// number when the field parses as one.
func builtinInput(f *eval.Frame, _ []value.Value) (value.Value, error) {
	items := splitPrint(f.Raw, f.Escape())
	prompt := "? "
	if len(items) > 0 && strings.HasPrefix(items[0].expr, `"`) && items[0].sep != 0 {
		p, err := f.EvalText(items[0].expr)
		if err != nil {
			return value.Value{}, err
		}
		prompt = p.String()
		if items[0].sep == ';' {
			prompt += "? "
		}
		items = items[1:]
	}
	if len(items) == 0 {
		return value.Value{}, errs.Runtimef("INPUT needs a target")
	}
	text, err := f.Input(prompt)
	if err != nil {
		return value.Value{}, err
	}
	fields := strings.Split(strings.TrimRight(text, "\r\n"), ",")
	for i, it := range items {
		field := ""
		if i < len(fields) {
			field = strings.TrimSpace(fields[i])
		}
		if err := f.AssignText(it.expr, inputValue(it.expr, field)); err != nil {
			return value.Value{}, err
		}
	}
	return value.Value{}, nil
}

func inputValue(target, field string) value.Value {
	if strings.HasSuffix(target, "$") {
		return value.NewString(field)
	}
	if n, err := value.ParseNumber(field); err == nil {
		return n
	}
	return value.NewString(field)
}
