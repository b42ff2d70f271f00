// Package session drives source text through the lexer, parser, resolver
// and interpreter, keeping one interpreter alive between inputs so that a
// REPL or a script sees a single set of globals.
package session

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/treelox/compiler"
	"github.com/chazu/treelox/interpreter"
)

// ErrStatic is returned when lexing, parsing or resolution reported errors
// and the program was therefore not executed.
var ErrStatic = errors.New("program has static errors")

// Session is a persistent interpreter plus the pipeline that feeds it.
// A Session is not safe for concurrent use.
type Session struct {
	ID   string
	Name string

	interp *interpreter.Interpreter
	echo   bool
	log    commonlog.Logger
}

type settings struct {
	name    string
	echo    bool
	out     interpreter.Printer
	natives []*interpreter.Native
}

// Option configures a Session.
type Option func(*settings)

// WithName labels the session in logs.
func WithName(name string) Option {
	return func(s *settings) { s.name = name }
}

// WithEcho makes Eval print the value of bare expressions.
func WithEcho(echo bool) Option {
	return func(s *settings) { s.echo = echo }
}

// WithOutput redirects print statements.
func WithOutput(p interpreter.Printer) Option {
	return func(s *settings) { s.out = p }
}

// WithNatives adds native functions to the session's globals.
func WithNatives(natives ...*interpreter.Native) Option {
	return func(s *settings) { s.natives = append(s.natives, natives...) }
}

// New creates a session with a fresh interpreter.
func New(opts ...Option) *Session {
	var cfg settings
	for _, opt := range opts {
		opt(&cfg)
	}

	var interpOpts []interpreter.Option
	if cfg.out != nil {
		interpOpts = append(interpOpts, interpreter.WithOutput(cfg.out))
	}
	if len(cfg.natives) > 0 {
		interpOpts = append(interpOpts, interpreter.WithNatives(cfg.natives...))
	}

	s := &Session{
		ID:     uuid.NewString(),
		Name:   cfg.name,
		interp: interpreter.New(interpOpts...),
		echo:   cfg.echo,
		log:    commonlog.GetLogger("lox.session"),
	}
	s.log.Debugf("session %s created (name=%q echo=%t)", s.ID, s.Name, s.echo)
	return s
}

// Interpreter returns the session's interpreter.
func (s *Session) Interpreter() *interpreter.Interpreter {
	return s.interp
}

// Run executes source as a program. Static diagnostics and any runtime
// fault are sent to rep, which may be nil. Execution does not start if any
// static diagnostic was reported.
func (s *Session) Run(source string, rep compiler.Reporter) error {
	var diags compiler.Diagnostics
	stmts, ok := compiler.ParseSource(source, &diags)
	var locals compiler.Resolution
	if ok {
		locals, ok = compiler.Resolve(stmts, &diags)
	}
	forward(diags, rep)
	if !ok {
		s.log.Debugf("session %s: %d static error(s)", s.ID, len(diags))
		return fmt.Errorf("%w: %d error(s)", ErrStatic, len(diags))
	}
	return s.execute(stmts, locals, rep)
}

// Eval executes one REPL input. With echo enabled, an input that is not a
// valid program but is a valid expression is evaluated and its value is
// returned in display form.
func (s *Session) Eval(source string, rep compiler.Reporter) (string, error) {
	tokens, diags := compiler.Tokenize(source)
	if len(diags) > 0 {
		forward(diags, rep)
		return "", fmt.Errorf("%w: %d error(s)", ErrStatic, len(diags))
	}

	p := compiler.NewParser(tokens, &diags)
	stmts := p.Parse()
	if p.HadError() && s.echo {
		var exprDiags compiler.Diagnostics
		if expr := compiler.NewParser(tokens, &exprDiags).ParseExpression(); expr != nil {
			return s.evalExpr(expr, rep)
		}
	}

	var locals compiler.Resolution
	if !p.HadError() {
		locals, _ = compiler.Resolve(stmts, &diags)
	}
	forward(diags, rep)
	if len(diags) > 0 {
		return "", fmt.Errorf("%w: %d error(s)", ErrStatic, len(diags))
	}
	return "", s.execute(stmts, locals, rep)
}

func (s *Session) evalExpr(expr compiler.Expr, rep compiler.Reporter) (string, error) {
	var diags compiler.Diagnostics
	r := compiler.NewResolver(&diags)
	locals := r.ResolveExpr(expr)
	forward(diags, rep)
	if r.HadError() {
		return "", fmt.Errorf("%w: %d error(s)", ErrStatic, len(diags))
	}

	s.interp.Resolve(locals)
	v, err := s.interp.Evaluate(expr)
	if err != nil {
		return "", s.fault(err, rep)
	}
	return interpreter.Repr(v), nil
}

func (s *Session) execute(stmts []compiler.Stmt, locals compiler.Resolution, rep compiler.Reporter) error {
	s.interp.Resolve(locals)
	if err := s.interp.Interpret(stmts); err != nil {
		return s.fault(err, rep)
	}
	return nil
}

// fault reports a runtime error to rep and returns err unchanged.
func (s *Session) fault(err error, rep compiler.Reporter) error {
	if rerr, ok := interpreter.AsRuntimeError(err); ok {
		s.log.Debugf("session %s: runtime error at line %d: %s", s.ID, rerr.Token.Pos.Line, rerr.Message)
		if rep != nil {
			rep.Report(rerr.Diagnostic())
		}
		return err
	}
	s.log.Errorf("session %s: %s", s.ID, err)
	return err
}

// Incomplete reports whether source fails only because input ended too
// early, such as an open block or an unterminated string. A REPL uses it
// to keep reading continuation lines.
func Incomplete(source string) bool {
	tokens, lexDiags := compiler.Tokenize(source)
	for _, d := range lexDiags {
		if d.Message == "Unterminated string." {
			return true
		}
	}
	if len(lexDiags) > 0 {
		return false
	}

	var diags compiler.Diagnostics
	compiler.NewParser(tokens, &diags).Parse()
	if len(diags) == 0 {
		return false
	}
	for _, d := range diags {
		// An error before the end is not fixed by more input.
		if !d.AtEnd {
			return false
		}
	}
	var exprDiags compiler.Diagnostics
	return compiler.NewParser(tokens, &exprDiags).ParseExpression() == nil
}

func forward(diags compiler.Diagnostics, rep compiler.Reporter) {
	if rep == nil {
		return
	}
	for _, d := range diags {
		rep.Report(d)
	}
}
