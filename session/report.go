package session

import (
	"errors"
	"fmt"

	"github.com/chazu/treelox/compiler"
	"github.com/chazu/treelox/interpreter"
)

// Exit statuses, following sysexits.h.
const (
	ExitOK      = 0
	ExitStatic  = 65 // EX_DATAERR
	ExitRuntime = 70 // EX_SOFTWARE
	ExitIO      = 74 // EX_IOERR
)

// ExitCode maps an error from Run or Eval to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrStatic):
		return ExitStatic
	}
	if _, ok := interpreter.AsRuntimeError(err); ok {
		return ExitRuntime
	}
	return ExitIO
}

// Format renders a diagnostic for a terminal.
func Format(d compiler.Diagnostic) string {
	if d.Stage == compiler.StageRuntime {
		return fmt.Sprintf("%s\n[line %d]", d.Message, d.Pos.Line)
	}
	where := ""
	switch {
	case d.Stage == compiler.StageLex:
	case d.AtEnd:
		where = " at end"
	case d.Lexeme != "":
		where = fmt.Sprintf(" at '%s'", d.Lexeme)
	}
	return fmt.Sprintf("[line %d:%d] Error%s: %s", d.Pos.Line, d.Pos.Column, where, d.Message)
}
