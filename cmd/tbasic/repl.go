package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/peterh/liner"

	"nickandperla.net/tbasic/internal/config"
	"nickandperla.net/tbasic/pkg/tbasic"
)

const (
	primaryPrompt      = ">>> "
	continuationPrompt = "... "
)

// prompter reads one line of REPL input.
type prompter interface {
	Prompt(prompt string) (string, error)
}

// session is the state of one interactive run: the block being typed and
// the statements entered so far, which :save stores as a program.
type session struct {
	rt      *tbasic.Runtime
	out     io.Writer
	pending []string
	program []string
}

func printBanner(w io.Writer) {
	fmt.Fprintln(w, "tbasic REPL (Ctrl+D to exit, :help for commands)")
}

func runREPL(rt *tbasic.Runtime, cfg *config.Config, out io.Writer) {
	printBanner(out)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	words := rt.Keywords()
	ln.SetCompleter(func(input string) []string {
		return complete(words, input)
	})

	historyPath := config.ExpandHome(cfg.HistoryFile)
	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			ln.ReadHistory(f)
			f.Close()
		}
		defer func() {
			if f, err := os.Create(historyPath); err == nil {
				ln.WriteHistory(f)
				f.Close()
			}
		}()
	}

	// INPUT shares the line editor so prompts are not garbled.
	rt.SetInputReader(func(prompt string) (string, error) {
		return ln.Prompt(prompt)
	})

	s := &session{rt: rt, out: out}
	s.loop(linerPrompter{ln})
}

type linerPrompter struct {
	ln *liner.State
}

func (p linerPrompter) Prompt(prompt string) (string, error) {
	text, err := p.ln.Prompt(prompt)
	if err == nil && strings.TrimSpace(text) != "" {
		p.ln.AppendHistory(text)
	}
	return text, err
}

// readerPrompter serves input that is not a terminal.
type readerPrompter struct {
	r   *bufio.Reader
	out io.Writer
}

func (p readerPrompter) Prompt(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	text, err := p.r.ReadString('\n')
	if err != nil && text == "" {
		return "", err
	}
	return strings.TrimRight(text, "\r\n"), nil
}

func (s *session) loop(p prompter) {
	for {
		prompt := primaryPrompt
		if len(s.pending) > 0 {
			prompt = continuationPrompt
		}
		text, err := p.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			s.pending = nil
			fmt.Fprintln(s.out, "^C")
			continue
		}
		if err != nil {
			fmt.Fprintln(s.out)
			return
		}
		if s.handle(text) {
			return
		}
	}
}

// handle processes one input line and reports whether the session ended.
func (s *session) handle(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(s.pending) == 0 && strings.HasPrefix(trimmed, ":") {
		return s.command(trimmed)
	}

	s.pending = append(s.pending, text)
	src := strings.Join(s.pending, "\n")
	incomplete, err := s.rt.Incomplete(src)
	if err != nil {
		s.pending = nil
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return false
	}
	if incomplete {
		return false
	}
	s.pending = nil
	if strings.TrimSpace(src) == "" {
		return false
	}

	res, err := s.rt.RunString(src)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return false
	}
	s.program = append(s.program, src)
	if !res.Exited && !res.Value.IsNull() {
		fmt.Fprintln(s.out, res.Value)
	}
	return false
}

func (s *session) command(text string) bool {
	fields := strings.Fields(text)
	cmd, arg := strings.ToLower(fields[0]), ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	switch cmd {
	case ":quit", ":q", ":exit":
		return true
	case ":help":
		fmt.Fprintln(s.out, "  :save NAME     store the statements entered so far")
		fmt.Fprintln(s.out, "  :load NAME     replace the session program with a stored one")
		fmt.Fprintln(s.out, "  :run [NAME]    run the session program or a stored one")
		fmt.Fprintln(s.out, "  :show          print the session program")
		fmt.Fprintln(s.out, "  :new           clear the session program")
		fmt.Fprintln(s.out, "  :list          list stored programs")
		fmt.Fprintln(s.out, "  :history NAME  list stored versions of a program")
		fmt.Fprintln(s.out, "  :quit          leave")
	case ":save":
		if arg == "" {
			fmt.Fprintln(s.out, "usage: :save NAME")
			break
		}
		if len(s.program) == 0 {
			fmt.Fprintln(s.out, "nothing to save")
			break
		}
		if err := s.rt.Save(arg, s.source()); err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			break
		}
		fmt.Fprintf(s.out, "saved %s\n", arg)
	case ":load":
		if arg == "" {
			fmt.Fprintln(s.out, "usage: :load NAME")
			break
		}
		src, err := s.rt.Load(arg)
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			break
		}
		s.program = []string{src}
		fmt.Fprintf(s.out, "loaded %s (%d lines)\n", arg, strings.Count(src, "\n")+1)
	case ":run":
		var (
			res tbasic.Result
			err error
		)
		if arg != "" {
			res, err = s.rt.RunStored(arg)
		} else {
			res, err = s.rt.RunString(s.source())
		}
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			break
		}
		if !res.Exited && !res.Value.IsNull() {
			fmt.Fprintln(s.out, res.Value)
		}
	case ":show":
		if len(s.program) > 0 {
			fmt.Fprintln(s.out, s.source())
		}
	case ":new":
		s.program = nil
	case ":list":
		names, err := s.rt.Programs()
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			break
		}
		for _, n := range names {
			fmt.Fprintln(s.out, n)
		}
	case ":history":
		if arg == "" {
			fmt.Fprintln(s.out, "usage: :history NAME")
			break
		}
		entries, err := s.rt.History(arg, 0)
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			break
		}
		for _, e := range entries {
			fmt.Fprintf(s.out, "v%d  %s  %d lines\n", e.Version, e.Ts, strings.Count(e.Value, "\n")+1)
		}
	default:
		fmt.Fprintf(s.out, "unknown command %s (try :help)\n", fields[0])
	}
	return false
}

func (s *session) source() string {
	return strings.Join(s.program, "\n")
}

// complete offers keywords and names matching the last word of input.
func complete(words []string, input string) []string {
	start := strings.LastIndexFunc(input, func(r rune) bool {
		return !(r == '_' || r == '$' || r == '.' || r >= '0' && r <= '9' ||
			r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	}) + 1
	head, word := input[:start], input[start:]
	if word == "" {
		return nil
	}
	upper := strings.ToUpper(word)
	var out []string
	for _, w := range words {
		if strings.HasPrefix(strings.ToUpper(w), upper) {
			out = append(out, head+w)
		}
	}
	sort.Strings(out)
	return out
}
