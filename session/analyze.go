package session

import (
	"unicode/utf8"

	"github.com/chazu/treelox/compiler"
	"github.com/chazu/treelox/compiler/hash"
)

// Analysis is the static view of a program: everything the front end can
// say about it without running it.
type Analysis struct {
	// Source is the analysed text; token offsets index into it.
	Source      string
	Program     []compiler.Stmt
	Locals      compiler.Resolution
	Diagnostics compiler.Diagnostics
	Symbols     []*compiler.Symbol
	References  map[compiler.Expr]*compiler.Symbol

	// Hash is the content hash of the resolved program. It is only set
	// when there are no diagnostics.
	Hash hash.Sum
}

// Analyze lexes, parses and resolves source. The returned error is only
// non-nil when hashing a valid program fails.
func Analyze(source string) (*Analysis, error) {
	a := &Analysis{Source: source}
	stmts, ok := compiler.ParseSource(source, &a.Diagnostics)
	a.Program = stmts
	if !ok {
		return a, nil
	}

	r := compiler.NewResolver(&a.Diagnostics)
	a.Locals = r.Resolve(stmts)
	a.Symbols = r.Symbols()
	a.References = r.References()
	if r.HadError() {
		return a, nil
	}

	sum, err := hash.HashProgram(stmts, a.Locals)
	if err != nil {
		return a, err
	}
	a.Hash = sum
	return a, nil
}

// OK reports whether the program may be executed.
func (a *Analysis) OK() bool {
	return len(a.Diagnostics) == 0
}

// SymbolAt returns the declaration whose name covers pos, or the
// declaration a locally resolved reference at pos binds to.
func (a *Analysis) SymbolAt(pos compiler.Position) *compiler.Symbol {
	for _, sym := range a.Symbols {
		if covers(sym.Name, pos) {
			return sym
		}
	}
	for expr, sym := range a.References {
		var name compiler.Token
		switch e := expr.(type) {
		case *compiler.Variable:
			name = e.Name
		case *compiler.Assign:
			name = e.Name
		default:
			continue
		}
		if covers(name, pos) {
			return sym
		}
	}
	return nil
}

// Global returns the last top-level declaration of name. Redeclared
// globals replace earlier ones at runtime, so the last one wins.
func (a *Analysis) Global(name string) *compiler.Symbol {
	var found *compiler.Symbol
	for _, sym := range a.Symbols {
		if sym.Global && sym.Name.Lexeme == name {
			found = sym
		}
	}
	return found
}

func covers(tok compiler.Token, pos compiler.Position) bool {
	return tok.Pos.Line == pos.Line &&
		pos.Column >= tok.Pos.Column &&
		pos.Column < tok.Pos.Column+utf8.RuneCountInString(tok.Lexeme)
}
