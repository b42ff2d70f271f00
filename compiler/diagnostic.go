package compiler

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Diagnostics: (position, message) records reported by every stage
// ---------------------------------------------------------------------------

// Stage identifies which part of the pipeline produced a diagnostic.
type Stage int

const (
	StageLex Stage = iota
	StageParse
	StageResolve
	StageRuntime
)

func (s Stage) String() string {
	switch s {
	case StageLex:
		return "lex"
	case StageParse:
		return "parse"
	case StageResolve:
		return "resolve"
	case StageRuntime:
		return "runtime"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Diagnostic is a single error record. The core never prints diagnostics;
// presentation is left to whoever receives them.
type Diagnostic struct {
	Stage   Stage
	Pos     Position
	Lexeme  string // offending lexeme, empty at end of input or when unknown
	AtEnd   bool   // reported at the end-of-input token
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s error at %s: %s", d.Stage, d.Pos, d.Message)
}

// Reporter receives diagnostics from the lexer, parser, resolver and
// interpreter.
type Reporter interface {
	Report(d Diagnostic)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(d Diagnostic)

func (f ReporterFunc) Report(d Diagnostic) { f(d) }

// Diagnostics collects reported diagnostics in order.
type Diagnostics []Diagnostic

// Report appends d.
func (ds *Diagnostics) Report(d Diagnostic) {
	*ds = append(*ds, d)
}

// HasStage reports whether any diagnostic came from the given stage.
func (ds Diagnostics) HasStage(stage Stage) bool {
	for _, d := range ds {
		if d.Stage == stage {
			return true
		}
	}
	return false
}

// Messages returns the bare messages, mostly for tests.
func (ds Diagnostics) Messages() []string {
	msgs := make([]string, len(ds))
	for i, d := range ds {
		msgs[i] = d.Message
	}
	return msgs
}

func (ds Diagnostics) String() string {
	lines := make([]string, len(ds))
	for i, d := range ds {
		lines[i] = d.String()
	}
	return strings.Join(lines, "\n")
}

// counter wraps a Reporter and counts what passes through it.
type counter struct {
	next  Reporter
	count int
}

func (c *counter) Report(d Diagnostic) {
	c.count++
	if c.next != nil {
		c.next.Report(d)
	}
}

func newCounter(r Reporter) *counter {
	return &counter{next: r}
}

// tokenDiagnostic builds a diagnostic pointing at tok.
func tokenDiagnostic(stage Stage, tok Token, msg string) Diagnostic {
	d := Diagnostic{Stage: stage, Pos: tok.Pos, Message: msg}
	if tok.Type == TokenEOF {
		d.AtEnd = true
	} else {
		d.Lexeme = tok.Lexeme
	}
	return d
}
