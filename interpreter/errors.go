package interpreter

import (
	"fmt"

	"github.com/chazu/treelox/compiler"
)

// RuntimeError is a fault raised while executing a program. Token locates
// the operator, name or parenthesis that triggered it.
type RuntimeError struct {
	Token   compiler.Token
	Message string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s\n[line %d]", e.Message, e.Token.Pos.Line)
}

// Diagnostic converts the fault into the record shape every other stage
// reports.
func (e *RuntimeError) Diagnostic() compiler.Diagnostic {
	return compiler.Diagnostic{
		Stage:   compiler.StageRuntime,
		Pos:     e.Token.Pos,
		Lexeme:  e.Token.Lexeme,
		AtEnd:   e.Token.Type == compiler.TokenEOF,
		Message: e.Message,
	}
}

func runtimeErrorf(tok compiler.Token, format string, args ...any) *RuntimeError {
	return &RuntimeError{Token: tok, Message: fmt.Sprintf(format, args...)}
}

func undefinedVariable(name compiler.Token) *RuntimeError {
	return runtimeErrorf(name, "Undefined variable '%s'.", name.Lexeme)
}
