// Command tbasic is the tbasic interpreter CLI.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"golang.org/x/term"

	"nickandperla.net/tbasic/internal/config"
	"nickandperla.net/tbasic/pkg/tbasic"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, os.Getenv))
}

// run is the whole CLI; it returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, getenv func(string) string) int {
	fs := flag.NewFlagSet("tbasic", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		evalStr    = fs.String("e", "", "Run tbasic source given on the command line")
		file       = fs.String("f", "", "Run a tbasic program file")
		configPath = fs.String("config", "", "Config file (default: TBASIC_CONFIG, ./tbasic.yaml, ~/.config/tbasic/tbasic.yaml)")
		dbPath     = fs.String("db", "", "SQLite program library path (overrides config)")
		dialect    = fs.String("dialect", "", "Dialect: standard or terminal (overrides config)")
		watch      = fs.Bool("watch", false, "Rerun the -f program whenever it changes")
		debug      = fs.Bool("debug", false, "Trace calls to stderr")
		noStdlib   = fs.Bool("no-stdlib", false, "Disable the library and prelude")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath, getenv)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if *dbPath != "" {
		cfg.Database = *dbPath
	}
	if *dialect != "" {
		cfg.Dialect = *dialect
	}
	if *debug {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if *watch && *file == "" {
		fmt.Fprintln(stderr, "Error: -watch needs -f")
		return 2
	}

	stdinReader := bufio.NewReader(stdin)
	opts, err := runtimeOptions(cfg, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	opts = append(opts, tbasic.WithInputReader(func(prompt string) (string, error) {
		if prompt != "" {
			fmt.Fprint(stdout, prompt)
		}
		text, err := stdinReader.ReadString('\n')
		if err == io.EOF && text != "" {
			return text, nil
		}
		return text, err
	}))
	if *noStdlib {
		opts = append(opts, tbasic.WithNoStdlib())
	}

	if *watch {
		debounce := time.Duration(cfg.Watch.DebounceMS) * time.Millisecond
		err := watchFile(ctx, *file, debounce, func() {
			// Each change runs against fresh globals.
			if code := runOnce(opts, stdout, stderr, *evalStr, *file); code != 0 {
				fmt.Fprintln(stderr, "waiting for changes...")
			}
		}, stderr)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if *evalStr != "" || *file != "" {
		return runOnce(opts, stdout, stderr, *evalStr, *file)
	}

	rt, err := tbasic.New(opts...)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer rt.Close()

	if !isTerminal(stdin) {
		// Piped input (no file specified)
		input, err := io.ReadAll(stdinReader)
		if err != nil {
			fmt.Fprintf(stderr, "Error reading stdin: %v\n", err)
			return 1
		}
		if _, err := rt.RunString(string(input)); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	runREPL(rt, cfg, stdout)
	return 0
}

// runOnce runs -e and then the file with one runtime.
func runOnce(opts []tbasic.Option, stdout, stderr io.Writer, evalStr, file string) int {
	rt, err := tbasic.New(opts...)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer rt.Close()

	if evalStr != "" {
		res, err := rt.RunString(evalStr)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if res.Exited {
			return 0
		}
		if file == "" && !res.Value.IsNull() {
			fmt.Fprintln(stdout, res.Value)
		}
	}
	if file != "" {
		if _, err := rt.RunFile(file); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}
	return 0
}

func runtimeOptions(cfg *config.Config, stdout, stderr io.Writer) ([]tbasic.Option, error) {
	d, err := tbasic.ParseDialect(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.Logging, stderr)
	if err != nil {
		return nil, err
	}
	opts := []tbasic.Option{
		tbasic.WithOutput(stdout),
		tbasic.WithDialect(d),
		tbasic.WithLogger(logger),
		tbasic.WithMaxDepth(cfg.MaxDepth),
		tbasic.WithImplicitLet(cfg.ImplicitLet),
	}
	if cfg.Database != "" {
		opts = append(opts, tbasic.WithSQLiteStore(config.ExpandHome(cfg.Database)))
	} else {
		opts = append(opts, tbasic.WithMemoryStore())
	}
	return opts, nil
}

func newLogger(lc config.LoggingConfig, w io.Writer) (*slog.Logger, error) {
	lvl, err := lc.SlogLevel()
	if err != nil {
		return nil, err
	}
	hopts := &slog.HandlerOptions{Level: lvl}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts)), nil
	}
	return slog.New(slog.NewTextHandler(w, hopts)), nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
