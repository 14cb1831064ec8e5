package stdlib

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"nickandperla.net/tbasic/internal/errs"
	"nickandperla.net/tbasic/internal/eval"
	"nickandperla.net/tbasic/internal/value"
)

// A cases.Caser keeps state, so each call gets its own.
func upper(s string) string { return cases.Upper(language.Und).String(s) }
func lower(s string) string { return cases.Lower(language.Und).String(s) }

func stringNatives() []*eval.Native {
	str, num, anyKind := value.String, value.Int, value.Any
	return []*eval.Native{
		fn("LEN", kinds(str), 1, func(_ *eval.Frame, a []value.Value) (value.Value, error) {
			return value.NewInt(int64(utf8.RuneCountInString(a[0].Str()))), nil
		}),
		fn("LEFT$", kinds(str, num), 2, func(_ *eval.Frame, a []value.Value) (value.Value, error) {
			r := []rune(a[0].Str())
			n := clamp(a[1].Int(), len(r))
			return value.NewString(string(r[:n])), nil
		}),
		fn("RIGHT$", kinds(str, num), 2, func(_ *eval.Frame, a []value.Value) (value.Value, error) {
			r := []rune(a[0].Str())
			n := clamp(a[1].Int(), len(r))
			return value.NewString(string(r[len(r)-n:])), nil
		}),
		// MID$(s, start[, n]) with a 1-based start.
		fn("MID$", kinds(str, num, num), 2, builtinMid),
		fn("UCASE$", kinds(str), 1, mapString(upper)),
		fn("UPPER$", kinds(str), 1, mapString(upper)),
		fn("LCASE$", kinds(str), 1, mapString(lower)),
		fn("LOWER$", kinds(str), 1, mapString(lower)),
		fn("TRIM$", kinds(str), 1, mapString(strings.TrimSpace)),
		fn("LTRIM$", kinds(str), 1, mapString(func(s string) string { return strings.TrimLeft(s, " \t") })),
		fn("RTRIM$", kinds(str), 1, mapString(func(s string) string { return strings.TrimRight(s, " \t") })),
		fn("STR$", kinds(anyKind), 1, func(_ *eval.Frame, a []value.Value) (value.Value, error) {
			if a[0].Kind() == value.Object || a[0].Kind() == value.Array {
				return value.Value{}, &errs.TypeError{From: a[0].TypeName(), Expected: "scalar"}
			}
			return value.NewString(a[0].String()), nil
		}),
		// VAL yields 0 for text that is not a number.
		fn("VAL", kinds(str), 1, func(_ *eval.Frame, a []value.Value) (value.Value, error) {
			n, err := value.ParseNumber(a[0].Str())
			if err != nil {
				return value.NewInt(0), nil
			}
			return n, nil
		}),
		fn("CHR$", kinds(num), 1, func(_ *eval.Frame, a []value.Value) (value.Value, error) {
			c := a[0].Int()
			if c < 0 || c > utf8.MaxRune {
				return value.Value{}, errs.Runtimef("CHR$ code %d out of range", c)
			}
			return value.NewString(string(rune(c))), nil
		}),
		fn("ASC", kinds(str), 1, func(_ *eval.Frame, a []value.Value) (value.Value, error) {
			r, size := utf8.DecodeRuneInString(a[0].Str())
			if size == 0 {
				return value.Value{}, errs.Runtimef("ASC of an empty string")
			}
			return value.NewInt(int64(r)), nil
		}),
		// INSTR(s, sub[, start]) returns the 1-based position of sub, or 0.
		fn("INSTR", kinds(str, str, num), 2, builtinInstr),
		fn("SPACE$", kinds(num), 1, func(_ *eval.Frame, a []value.Value) (value.Value, error) {
			return value.NewString(strings.Repeat(" ", clamp(a[0].Int(), maxRepeat))), nil
		}),
		fn("STRING$", kinds(num, str), 2, func(_ *eval.Frame, a []value.Value) (value.Value, error) {
			r, size := utf8.DecodeRuneInString(a[1].Str())
			if size == 0 {
				return value.NewString(""), nil
			}
			return value.NewString(strings.Repeat(string(r), clamp(a[0].Int(), maxRepeat))), nil
		}),
		fn("REPLACE$", kinds(str, str, str), 3, func(_ *eval.Frame, a []value.Value) (value.Value, error) {
			if a[1].Str() == "" {
				return a[0], nil
			}
			return value.NewString(strings.ReplaceAll(a[0].Str(), a[1].Str(), a[2].Str())), nil
		}),
		fn("SPLIT", kinds(str, str), 2, func(_ *eval.Frame, a []value.Value) (value.Value, error) {
			parts := strings.Split(a[0].Str(), a[1].Str())
			elems := make([]value.Value, len(parts))
			for i, p := range parts {
				elems[i] = value.NewString(p)
			}
			return value.FromSlice(elems), nil
		}),
		fn("JOIN$", kinds(value.Array, str), 1, func(_ *eval.Frame, a []value.Value) (value.Value, error) {
			elems := a[0].Elems()
			parts := make([]string, len(elems))
			for i, e := range elems {
				parts[i] = e.String()
			}
			return value.NewString(strings.Join(parts, a[1].Str())), nil
		}),
	}
}

// maxRepeat bounds SPACE$ and STRING$.
const maxRepeat = 1 << 20

// clamp limits n to 0..max.
func clamp(n int64, max int) int {
	switch {
	case n < 0:
		return 0
	case n > int64(max):
		return max
	}
	return int(n)
}

func mapString(m func(string) string) eval.NativeFunc {
	return func(_ *eval.Frame, a []value.Value) (value.Value, error) {
		return value.NewString(m(a[0].Str())), nil
	}
}

func builtinMid(f *eval.Frame, a []value.Value) (value.Value, error) {
	r := []rune(a[0].Str())
	start := a[1].Int()
	if start < 1 {
		return value.Value{}, errs.Runtimef("MID$ start %d must be at least 1", start)
	}
	from := clamp(start-1, len(r))
	n := len(r) - from
	if f.Len() > 2 {
		n = clamp(a[2].Int(), n)
	}
	return value.NewString(string(r[from : from+n])), nil
}

func builtinInstr(_ *eval.Frame, a []value.Value) (value.Value, error) {
	s, sub := []rune(a[0].Str()), a[1].Str()
	start := a[2].Int()
	if start < 1 {
		start = 1
	}
	if start > int64(len(s))+1 {
		return value.NewInt(0), nil
	}
	i := strings.Index(string(s[start-1:]), sub)
	if i < 0 {
		return value.NewInt(0), nil
	}
	return value.NewInt(start + int64(utf8.RuneCountInString(string(s[start-1:])[:i]))), nil
}
