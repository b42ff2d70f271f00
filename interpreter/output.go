package interpreter

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Printer receives the display string of every executed print statement.
type Printer interface {
	Print(line string) error
}

// WriterPrinter writes each line, newline-terminated, to W.
type WriterPrinter struct {
	W io.Writer
}

func (p WriterPrinter) Print(line string) error {
	_, err := fmt.Fprintln(p.W, line)
	return err
}

// Transcript collects printed lines in memory. It is safe for concurrent
// use.
type Transcript struct {
	mu    sync.Mutex
	lines []string
}

func (t *Transcript) Print(line string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	return nil
}

// Lines returns a copy of everything printed so far.
func (t *Transcript) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.lines...)
}

// Reset discards collected output.
func (t *Transcript) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = nil
}

// String joins the collected lines as they would appear on a terminal.
func (t *Transcript) String() string {
	lines := t.Lines()
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
