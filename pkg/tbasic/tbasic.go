package tbasic

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"nickandperla.net/tbasic/internal/eval"
	"nickandperla.net/tbasic/internal/line"
	"nickandperla.net/tbasic/internal/stdlib"
	"nickandperla.net/tbasic/internal/value"
)

// StartupProgram is the stored program that replaces the prelude when the
// program library has one.
const StartupProgram = "__startup__"

// Runtime is the tbasic interpreter runtime.
type Runtime struct {
	evaluator    *eval.Evaluator
	store        Store
	storeErr     error
	logger       *slog.Logger
	inputReader  func(prompt string) (string, error)
	outputWriter func(text string) error
	maxDepth     int
	dialect      Dialect
	implicitLet  bool
	prelude      string // custom prelude source (if empty, uses DefaultPrelude)
	noStdlib     bool   // if true, skip the library and the prelude
	natives      []*eval.Native
}

// New creates a new tbasic runtime with the given options.
func New(opts ...Option) (*Runtime, error) {
	r := &Runtime{
		dialect:     Standard,
		implicitLet: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.storeErr != nil {
		return nil, fmt.Errorf("opening program library: %w", r.storeErr)
	}

	reg := eval.NewRegistry()
	if !r.noStdlib {
		stdlib.Register(reg)
	}
	if r.store != nil {
		reg.Tagged(r.chainNative())
	}
	for _, n := range r.natives {
		reg.Tagged(n)
	}

	evalOpts := []eval.Option{
		eval.WithEscape(r.dialect.Escape),
		eval.WithKinds(r.dialect.Kinds()...),
		eval.WithImplicitLet(r.implicitLet),
	}
	if r.maxDepth > 0 {
		evalOpts = append(evalOpts, eval.WithMaxDepth(r.maxDepth))
	}
	if r.logger != nil {
		evalOpts = append(evalOpts, eval.WithLogger(r.logger))
	}
	if r.inputReader != nil {
		evalOpts = append(evalOpts, eval.WithInputReader(r.inputReader))
	}
	if r.outputWriter != nil {
		evalOpts = append(evalOpts, eval.WithOutputWriter(r.outputWriter))
	}
	r.evaluator = eval.New(reg, evalOpts...)

	if !r.noStdlib {
		prelude := r.prelude
		if prelude == "" {
			prelude = DefaultPrelude
		}
		// Check for database override
		if r.store != nil {
			if src, ok, err := r.store.Get(StartupProgram); err == nil && ok {
				prelude = src
			}
		}
		if _, err := r.evaluator.RunString(prelude); err != nil {
			return nil, fmt.Errorf("loading prelude: %w", err)
		}
	}
	return r, nil
}

// Evaluator exposes the underlying evaluator for hosts that register
// natives or types after construction.
func (r *Runtime) Evaluator() *eval.Evaluator {
	return r.evaluator
}

// RunString runs a program.
func (r *Runtime) RunString(src string) (Result, error) {
	return r.evaluator.RunString(src)
}

// Run runs already-read lines as one program.
func (r *Runtime) Run(lines []line.Line) (Result, error) {
	return r.evaluator.Run(lines)
}

// RunReader runs a program from a reader.
func (r *Runtime) RunReader(reader io.Reader) (Result, error) {
	lines, err := line.Read(reader)
	if err != nil {
		return Result{}, err
	}
	return r.evaluator.Run(lines)
}

// RunFile runs a program file.
func (r *Runtime) RunFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()
	return r.RunReader(f)
}

// EvalLine runs a single statement.
func (r *Runtime) EvalLine(text string) (Result, error) {
	return r.evaluator.EvalLine(text)
}

// Eval evaluates an expression.
func (r *Runtime) Eval(text string) (Result, error) {
	return r.evaluator.Eval(text)
}

// Call invokes a function by name.
func (r *Runtime) Call(name string, args ...Value) (Result, error) {
	return r.evaluator.Call(name, args...)
}

// Incomplete reports whether src still has an open block, so an
// interactive caller should keep reading.
func (r *Runtime) Incomplete(src string) (bool, error) {
	lines := r.evaluator.Preprocess(line.ReadString(src))
	return r.evaluator.Parser().Incomplete(lines)
}

// Keywords returns the statement words and function names known to the
// runtime, for completion.
func (r *Runtime) Keywords() []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range append(append([]string{}, line.DefaultKeywords...), r.evaluator.Registry().Names()...) {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	sort.Strings(out)
	return out
}

// Save stores a program in the library.
func (r *Runtime) Save(name, src string) error {
	if r.store == nil {
		return errNoStore
	}
	return r.store.Put(name, src)
}

// Load returns a stored program's source.
func (r *Runtime) Load(name string) (string, error) {
	if r.store == nil {
		return "", errNoStore
	}
	src, ok, err := r.store.Get(name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("no program named %q", name)
	}
	return src, nil
}

// RunStored runs a program from the library.
func (r *Runtime) RunStored(name string) (Result, error) {
	src, err := r.Load(name)
	if err != nil {
		return Result{}, err
	}
	return r.RunString(src)
}

// Programs lists the library.
func (r *Runtime) Programs() ([]string, error) {
	if r.store == nil {
		return nil, errNoStore
	}
	return r.store.List()
}

// History returns the stored versions of a program, newest first.
func (r *Runtime) History(name string, limit int) ([]VersionEntry, error) {
	if r.store == nil {
		return nil, errNoStore
	}
	return r.store.GetHistory(name, limit)
}

// Close releases resources.
func (r *Runtime) Close() error {
	if r.store != nil {
		return r.store.Close()
	}
	return nil
}

// SetInputReader changes the input reader for INPUT.
func (r *Runtime) SetInputReader(reader func(prompt string) (string, error)) {
	r.inputReader = reader
	r.evaluator.SetInputReader(reader)
}

// SetOutputWriter changes the output writer for PRINT.
func (r *Runtime) SetOutputWriter(writer func(text string) error) {
	r.outputWriter = writer
	r.evaluator.SetOutputWriter(writer)
}

var errNoStore = errors.New("no program library configured")

// chainNative is CHAIN "name": run a stored program in the current globals.
func (r *Runtime) chainNative() *eval.Native {
	return &eval.Native{
		Name:      "CHAIN",
		Params:    []value.Kind{value.String},
		Required:  1,
		Eager:     true,
		Statement: true,
		Fn: func(f *eval.Frame, args []value.Value) (value.Value, error) {
			res, err := r.RunStored(args[0].Str())
			if err != nil {
				return value.Value{}, err
			}
			if res.Exited {
				f.RequestExit()
			}
			return value.Value{}, nil
		},
	}
}
