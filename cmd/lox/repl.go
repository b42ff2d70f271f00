package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	"github.com/tliron/commonlog"

	"github.com/chazu/treelox/compiler"
	"github.com/chazu/treelox/interpreter"
	"github.com/chazu/treelox/manifest"
	"github.com/chazu/treelox/session"
)

const (
	banner     = "Lox REPL (:help for commands, :quit or Ctrl-D to exit)"
	contPrompt = "... "
)

// prompter reads one line of input. *liner.State implements it.
type prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// scanPrompter reads lines from a non-terminal input such as a pipe.
type scanPrompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func (p *scanPrompter) Prompt(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return p.scanner.Text(), nil
}

func (p *scanPrompter) AppendHistory(string) {}

// runREPL reads inputs until EOF or :quit. Errors in one input are
// reported and do not end the session.
func runREPL(sess *session.Session, m *manifest.Manifest, stdin io.Reader, stdout, stderr io.Writer, rep compiler.Reporter) int {
	log := commonlog.GetLogger("lox.cli")

	var in prompter
	if f, ok := stdin.(*os.File); ok && f == os.Stdin {
		ln := liner.NewLiner()
		defer ln.Close()
		ln.SetCtrlCAborts(true)

		if path := m.HistoryPath(); path != "" {
			if f, err := os.Open(path); err == nil {
				_, _ = ln.ReadHistory(f)
				_ = f.Close()
			}
			defer func() {
				f, err := os.Create(path)
				if err != nil {
					log.Warningf("cannot save history: %s", err)
					return
				}
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}()
		}
		in = ln
	} else {
		in = &scanPrompter{scanner: bufio.NewScanner(stdin), out: stdout}
	}

	fmt.Fprintln(stdout, banner)
	for {
		src, ok := readInput(in, m.REPL.Prompt)
		if !ok {
			fmt.Fprintln(stdout)
			return session.ExitOK
		}

		trimmed := strings.TrimSpace(src)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ":") {
			if quit := handleCommand(sess, trimmed, stdout); quit {
				return session.ExitOK
			}
			continue
		}

		in.AppendHistory(strings.ReplaceAll(src, "\n", " "))
		value, err := sess.Eval(src, rep)
		if session.ExitCode(err) == session.ExitIO {
			fmt.Fprintf(stderr, "lox: %v\n", err)
			return session.ExitIO
		}
		if value != "" {
			fmt.Fprintln(stdout, value)
		}
	}
}

// readInput reads one complete input, prompting for continuation lines
// while the source so far is cut off mid-construct. It reports false at
// end of input.
func readInput(in prompter, prompt string) (string, bool) {
	var b strings.Builder
	for {
		p := prompt
		if b.Len() > 0 {
			p = contPrompt
		}
		line, err := in.Prompt(p)
		if errors.Is(err, liner.ErrPromptAborted) {
			// Ctrl-C discards the pending input.
			b.Reset()
			continue
		}
		if err != nil {
			if b.Len() > 0 {
				// Let the pipeline report what is missing.
				return b.String(), true
			}
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		if !session.Incomplete(b.String()) {
			return b.String(), true
		}
	}
}

// handleCommand runs a REPL meta-command and reports whether to quit.
func handleCommand(sess *session.Session, cmd string, stdout io.Writer) bool {
	switch cmd {
	case ":quit", ":q":
		return true
	case ":help", ":h", ":?":
		fmt.Fprintln(stdout, "REPL Commands:")
		fmt.Fprintln(stdout, "  :help, :h, :?     Show this help")
		fmt.Fprintln(stdout, "  :globals          List global names")
		fmt.Fprintln(stdout, "  :session          Show the session ID")
		fmt.Fprintln(stdout, "  :quit, :q         Exit REPL")
	case ":globals":
		globals := sess.Interpreter().Globals()
		for _, name := range globals.Names() {
			v, _ := globals.Lookup(name)
			fmt.Fprintf(stdout, "%s = %s\n", name, interpreter.Describe(v))
		}
	case ":session":
		fmt.Fprintln(stdout, sess.ID)
	default:
		fmt.Fprintf(stdout, "Unknown command %s. Type :help for commands.\n", cmd)
	}
	return false
}
