// Package interpreter executes resolved Lox programs by walking the syntax
// tree produced by package compiler. An Interpreter owns a global
// environment that persists across Interpret calls, so a REPL can feed it
// one line at a time. Scripts print through a Printer; faults come back as
// *RuntimeError values carrying the offending token.
package interpreter
