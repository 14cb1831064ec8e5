// Package tbasic provides the public API for the tbasic interpreter.
package tbasic

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"nickandperla.net/tbasic/internal/block"
	"nickandperla.net/tbasic/internal/eval"
	"nickandperla.net/tbasic/internal/scanner"
	"nickandperla.net/tbasic/internal/store"
	"nickandperla.net/tbasic/internal/value"
)

// Option configures a Runtime.
type Option func(*Runtime)

// Store is a program library with version history.
type Store = store.HistoryStore

// VersionEntry is one stored version of a program.
type VersionEntry = store.VersionEntry

// Result is the outcome of running a unit of code.
type Result = eval.Result

// Value is a tbasic runtime value.
type Value = value.Value

// Native describes a host function.
type Native = eval.Native

// Frame is the call data a Native receives.
type Frame = eval.Frame

// Dialect selects the string escape character and the block forms.
type Dialect struct {
	Name   string
	Escape rune
	Braces bool // FUNC name(...) { ... } and CLASS name { ... }
}

// Kinds returns the block kinds of the dialect.
func (d Dialect) Kinds() []*block.Kind {
	if d.Braces {
		return block.BraceDialect()
	}
	return block.StandardKinds()
}

var (
	// Standard uses backslash escapes and keyword-delimited blocks.
	Standard = Dialect{Name: "standard", Escape: scanner.StandardEscape}
	// Terminal uses backtick escapes, so backslashes in paths survive, and
	// also accepts brace-delimited functions and classes.
	Terminal = Dialect{Name: "terminal", Escape: scanner.TerminalEscape, Braces: true}
)

// ParseDialect parses a dialect name.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "", "standard":
		return Standard, nil
	case "terminal":
		return Terminal, nil
	}
	return Dialect{}, fmt.Errorf("unknown dialect %q", name)
}

// WithDialect sets the dialect.
func WithDialect(d Dialect) Option {
	return func(r *Runtime) {
		r.dialect = d
	}
}

// WithSQLiteStore configures a SQLite program library at the given path.
func WithSQLiteStore(path string) Option {
	return func(r *Runtime) {
		s, err := store.NewSQLite(path)
		if err != nil {
			r.storeErr = err
			return
		}
		r.store = s
	}
}

// WithMemoryStore configures an in-memory program library (for testing).
func WithMemoryStore() Option {
	return func(r *Runtime) {
		r.store = store.NewMemory()
	}
}

// WithStore configures a custom program library.
func WithStore(s Store) Option {
	return func(r *Runtime) {
		r.store = s
	}
}

// WithInputReader sets the input reader for INPUT.
func WithInputReader(reader func(prompt string) (string, error)) Option {
	return func(r *Runtime) {
		r.inputReader = reader
	}
}

// WithOutputWriter sets the output writer for PRINT.
func WithOutputWriter(writer func(text string) error) Option {
	return func(r *Runtime) {
		r.outputWriter = writer
	}
}

// WithOutput sets the io.Writer for output.
func WithOutput(w io.Writer) Option {
	return func(r *Runtime) {
		r.outputWriter = func(text string) error {
			_, err := io.WriteString(w, text)
			return err
		}
	}
}

// WithLogger sets the logger used for call tracing.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = l
	}
}

// WithMaxDepth limits the call depth.
func WithMaxDepth(n int) Option {
	return func(r *Runtime) {
		r.maxDepth = n
	}
}

// WithImplicitLet turns the "X = 1" shorthand for LET on or off.
func WithImplicitLet(on bool) Option {
	return func(r *Runtime) {
		r.implicitLet = on
	}
}

// WithPrelude sets a custom prelude source to be run on startup.
// If not set, DefaultPrelude is used.
func WithPrelude(source string) Option {
	return func(r *Runtime) {
		r.prelude = source
	}
}

// WithNoStdlib disables the library and the prelude.
func WithNoStdlib() Option {
	return func(r *Runtime) {
		r.noStdlib = true
	}
}

// WithNative registers a host function.
func WithNative(n *Native) Option {
	return func(r *Runtime) {
		r.natives = append(r.natives, n)
	}
}
