package hash

import (
	"github.com/chazu/treelox/compiler"
)

// ---------------------------------------------------------------------------
// Normalization: compiler AST → hashing tree
//
// Walks the program with the same scope nesting the resolver uses. A local
// reference becomes (distance, slot) where distance comes from the
// resolution side table and slot is the declaration's position within
// that scope. Globals keep their names.
// ---------------------------------------------------------------------------

// scope tracks local declarations at one nesting level.
type scope struct {
	slots map[string]uint64 // name → declaration order
}

func (s *scope) declare(name string) {
	s.slots[name] = uint64(len(s.slots))
}

// normalizer holds state for the normalization walk.
type normalizer struct {
	scopes []*scope
	locals compiler.Resolution
}

// NormalizeProgram transforms a resolved program into its hashing tree.
// locals must be the side table produced by resolving stmts.
func NormalizeProgram(stmts []compiler.Stmt, locals compiler.Resolution) HNode {
	n := &normalizer{locals: locals}
	return node(TagProgram, n.stmts(stmts))
}

func (n *normalizer) beginScope() {
	n.scopes = append(n.scopes, &scope{slots: make(map[string]uint64)})
}

func (n *normalizer) endScope() {
	n.scopes = n.scopes[:len(n.scopes)-1]
}

func (n *normalizer) global() bool {
	return len(n.scopes) == 0
}

func (n *normalizer) declare(name string) {
	if !n.global() {
		n.scopes[len(n.scopes)-1].declare(name)
	}
}

// slot finds name in the scope distance levels out from the innermost one.
func (n *normalizer) slot(distance int, name string) (uint64, bool) {
	i := len(n.scopes) - 1 - distance
	if i < 0 || i >= len(n.scopes) {
		return 0, false
	}
	s, ok := n.scopes[i].slots[name]
	return s, ok
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (n *normalizer) stmts(stmts []compiler.Stmt) []HNode {
	out := make([]HNode, len(stmts))
	for i, s := range stmts {
		out[i] = n.stmt(s)
	}
	return out
}

func (n *normalizer) stmt(stmt compiler.Stmt) HNode {
	switch s := stmt.(type) {
	case *compiler.ExprStmt:
		return node(TagExprStmt, n.expr(s.Expr))

	case *compiler.PrintStmt:
		return node(TagPrint, n.expr(s.Expr))

	case *compiler.VarStmt:
		var init any
		if n.global() {
			if s.Initializer != nil {
				init = n.expr(s.Initializer)
			}
			return node(TagGlobalVar, s.Name.Lexeme, init)
		}
		n.declare(s.Name.Lexeme)
		if s.Initializer != nil {
			init = n.expr(s.Initializer)
		}
		return node(TagLocalVar, init)

	case *compiler.BlockStmt:
		n.beginScope()
		body := n.stmts(s.Statements)
		n.endScope()
		return node(TagBlock, body)

	case *compiler.IfStmt:
		var els any
		then := n.stmt(s.Then)
		if s.Else != nil {
			els = n.stmt(s.Else)
		}
		return node(TagIf, n.expr(s.Condition), then, els)

	case *compiler.WhileStmt:
		cond := n.expr(s.Condition)
		body := n.stmt(s.Body)
		var incr any
		if s.Increment != nil {
			incr = n.expr(s.Increment)
		}
		return node(TagWhile, cond, body, incr)

	case *compiler.FunctionStmt:
		n.declare(s.Name.Lexeme)
		return node(TagFunction, s.Name.Lexeme, uint64(len(s.Params)), n.function(s.Params, s.Body))

	case *compiler.ReturnStmt:
		var value any
		if s.Value != nil {
			value = n.expr(s.Value)
		}
		return node(TagReturn, value)

	case *compiler.ClassStmt:
		return n.class(s)

	case *compiler.BreakStmt:
		return node(TagBreak)

	case *compiler.ContinueStmt:
		return node(TagContinue)

	default:
		// unknown statement type
		return node(TagNil)
	}
}

func (n *normalizer) function(params []compiler.Token, body []compiler.Stmt) []HNode {
	n.beginScope()
	for _, p := range params {
		n.declare(p.Lexeme)
	}
	out := n.stmts(body)
	n.endScope()
	return out
}

func (n *normalizer) class(s *compiler.ClassStmt) HNode {
	n.declare(s.Name.Lexeme)

	var super any
	if s.Superclass != nil {
		super = n.expr(s.Superclass)
		n.beginScope()
		n.declare("super")
	}
	n.beginScope()
	n.declare("this")

	methods := make([]HNode, len(s.Methods))
	for i, m := range s.Methods {
		methods[i] = node(TagMethod, m.Name.Lexeme, uint64(len(m.Params)), n.function(m.Params, m.Body))
	}

	n.endScope()
	if s.Superclass != nil {
		n.endScope()
	}
	return node(TagClass, s.Name.Lexeme, super, methods)
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (n *normalizer) exprs(exprs []compiler.Expr) []HNode {
	out := make([]HNode, len(exprs))
	for i, e := range exprs {
		out[i] = n.expr(e)
	}
	return out
}

// ref returns the local (distance, slot) pair for expr, if it has one.
func (n *normalizer) ref(expr compiler.Expr, name string) (uint64, uint64, bool) {
	distance, ok := n.locals.Depth(expr)
	if !ok {
		return 0, 0, false
	}
	slot, ok := n.slot(distance, name)
	return uint64(distance), slot, ok
}

func (n *normalizer) expr(expr compiler.Expr) HNode {
	switch e := expr.(type) {
	case *compiler.Literal:
		switch v := e.Value.(type) {
		case bool:
			return node(TagBool, v)
		case float64:
			return node(TagNumber, v)
		case string:
			return node(TagString, v)
		}
		return node(TagNil)

	case *compiler.Grouping:
		return n.expr(e.Expression)

	case *compiler.Unary:
		return node(TagUnary, e.Operator.Lexeme, n.expr(e.Right))

	case *compiler.Binary:
		return node(TagBinary, e.Operator.Lexeme, n.expr(e.Left), n.expr(e.Right))

	case *compiler.Logical:
		return node(TagLogical, e.Operator.Lexeme, n.expr(e.Left), n.expr(e.Right))

	case *compiler.Variable:
		if distance, slot, ok := n.ref(e, e.Name.Lexeme); ok {
			return node(TagLocalRef, distance, slot)
		}
		return node(TagGlobalRef, e.Name.Lexeme)

	case *compiler.Assign:
		value := n.expr(e.Value)
		if distance, slot, ok := n.ref(e, e.Name.Lexeme); ok {
			return node(TagLocalAssign, distance, slot, value)
		}
		return node(TagGlobalAssign, e.Name.Lexeme, value)

	case *compiler.Call:
		return node(TagCall, n.expr(e.Callee), n.exprs(e.Arguments))

	case *compiler.Get:
		return node(TagGet, n.expr(e.Object), e.Name.Lexeme)

	case *compiler.Set:
		return node(TagSet, n.expr(e.Object), e.Name.Lexeme, n.expr(e.Value))

	case *compiler.This:
		return node(TagThis)

	case *compiler.Super:
		return node(TagSuper, e.Method.Lexeme)

	case *compiler.Lambda:
		return node(TagLambda, uint64(len(e.Params)), n.function(e.Params, e.Body))

	default:
		return node(TagNil)
	}
}
