package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Resolver: static binding-depth and placement analysis
// ---------------------------------------------------------------------------

// Resolution maps each locally bound Variable, Assign, This and Super node
// to the number of scopes between the reference and its declaration. Keys
// are node pointers, so two identical expressions at different positions
// never share an entry. A missing key means the name is global.
type Resolution map[Expr]int

// Depth returns the recorded depth for expr and whether it is local.
func (r Resolution) Depth(expr Expr) (int, bool) {
	d, ok := r[expr]
	return d, ok
}

// SymbolKind classifies a declared name.
type SymbolKind int

const (
	SymbolVariable SymbolKind = iota
	SymbolParameter
	SymbolFunction
	SymbolClass
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolVariable:
		return "variable"
	case SymbolParameter:
		return "parameter"
	case SymbolFunction:
		return "function"
	case SymbolClass:
		return "class"
	}
	return fmt.Sprintf("SymbolKind(%d)", int(k))
}

// Symbol is a declared name, kept for tooling (hover, go-to-definition).
type Symbol struct {
	Name   Token
	Kind   SymbolKind
	Global bool
}

type functionKind int

const (
	functionNone functionKind = iota
	functionPlain
	functionLambda
	functionMethod
	functionInitializer
)

type classKind int

const (
	classNone classKind = iota
	classPlain
	classSub
)

// binding is the resolver's view of one name in one scope.
type binding struct {
	ready  bool // false between declaration and the end of its initializer
	symbol *Symbol
}

// scopeFrame mirrors one runtime environment.
type scopeFrame map[string]*binding

// Resolver walks the AST in execution nesting order and records binding
// depths. It accumulates every violation rather than stopping at the first.
type Resolver struct {
	reporter *counter

	scopes    []scopeFrame
	function  functionKind
	class     classKind
	loopDepth int

	locals     Resolution
	symbols    []*Symbol
	references map[Expr]*Symbol
}

// NewResolver creates a resolver reporting to r.
func NewResolver(r Reporter) *Resolver {
	return &Resolver{
		reporter:   newCounter(r),
		locals:     make(Resolution),
		references: make(map[Expr]*Symbol),
	}
}

// Resolve resolves a whole program and returns the side table. When
// HadError reports true the program must not be executed.
func (r *Resolver) Resolve(stmts []Stmt) Resolution {
	for _, stmt := range stmts {
		r.resolveStmt(stmt)
	}
	return r.locals
}

// ResolveExpr resolves a single top-level expression.
func (r *Resolver) ResolveExpr(expr Expr) Resolution {
	r.resolveExpr(expr)
	return r.locals
}

// HadError reports whether any resolution error was reported.
func (r *Resolver) HadError() bool {
	return r.reporter.count > 0
}

// Symbols returns every declaration seen, in source order.
func (r *Resolver) Symbols() []*Symbol {
	return r.symbols
}

// References maps locally resolved expressions to their declarations.
// Global references are absent; look those up by name.
func (r *Resolver) References() map[Expr]*Symbol {
	return r.references
}

// Resolve is a convenience wrapper returning the side table and whether
// resolution succeeded.
func Resolve(stmts []Stmt, rep Reporter) (Resolution, bool) {
	res := NewResolver(rep)
	locals := res.Resolve(stmts)
	return locals, !res.HadError()
}

// errorAt records an error with position information.
func (r *Resolver) errorAt(tok Token, format string, args ...interface{}) {
	r.reporter.Report(tokenDiagnostic(StageResolve, tok, fmt.Sprintf(format, args...)))
}

// ---------------------------------------------------------------------------
// Scope management
// ---------------------------------------------------------------------------

func (r *Resolver) beginScope() {
	r.scopes = append(r.scopes, make(scopeFrame))
}

func (r *Resolver) endScope() {
	r.scopes = r.scopes[:len(r.scopes)-1]
}

// declare adds name to the innermost scope as not yet ready.
func (r *Resolver) declare(name Token, kind SymbolKind) {
	sym := &Symbol{Name: name, Kind: kind, Global: len(r.scopes) == 0}
	r.symbols = append(r.symbols, sym)
	if sym.Global {
		return
	}

	scope := r.scopes[len(r.scopes)-1]
	if _, exists := scope[name.Lexeme]; exists {
		r.errorAt(name, "Already a variable with this name in this scope.")
	}
	scope[name.Lexeme] = &binding{symbol: sym}
}

// define marks name in the innermost scope as ready for use.
func (r *Resolver) define(name Token) {
	if len(r.scopes) == 0 {
		return
	}
	if b, ok := r.scopes[len(r.scopes)-1][name.Lexeme]; ok {
		b.ready = true
	}
}

// defineSynthetic binds an implicit name (this, super) in the innermost scope.
func (r *Resolver) defineSynthetic(name string) {
	r.scopes[len(r.scopes)-1][name] = &binding{ready: true}
}

// resolveLocal records the depth of the innermost scope declaring name.
func (r *Resolver) resolveLocal(expr Expr, name string) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if b, ok := r.scopes[i][name]; ok {
			r.locals[expr] = len(r.scopes) - 1 - i
			if b.symbol != nil {
				r.references[expr] = b.symbol
			}
			return
		}
	}
	// Not found locally: global.
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (r *Resolver) resolveStmts(stmts []Stmt) {
	for _, stmt := range stmts {
		r.resolveStmt(stmt)
	}
}

func (r *Resolver) resolveStmt(stmt Stmt) {
	switch s := stmt.(type) {
	case *BlockStmt:
		r.beginScope()
		r.resolveStmts(s.Statements)
		r.endScope()

	case *VarStmt:
		r.declare(s.Name, SymbolVariable)
		if s.Initializer != nil {
			r.resolveExpr(s.Initializer)
		}
		r.define(s.Name)

	case *FunctionStmt:
		r.declare(s.Name, SymbolFunction)
		r.define(s.Name)
		r.resolveFunction(s.Params, s.Body, functionPlain)

	case *ClassStmt:
		r.resolveClass(s)

	case *ExprStmt:
		r.resolveExpr(s.Expr)

	case *PrintStmt:
		r.resolveExpr(s.Expr)

	case *IfStmt:
		r.resolveExpr(s.Condition)
		r.resolveStmt(s.Then)
		if s.Else != nil {
			r.resolveStmt(s.Else)
		}

	case *ReturnStmt:
		if r.function == functionNone {
			r.errorAt(s.Keyword, "Can't return from top-level code.")
		}
		if s.Value != nil {
			if r.function == functionInitializer {
				r.errorAt(s.Keyword, "Can't return a value from an initializer.")
			}
			r.resolveExpr(s.Value)
		}

	case *WhileStmt:
		r.resolveExpr(s.Condition)
		r.loopDepth++
		r.resolveStmt(s.Body)
		r.loopDepth--
		if s.Increment != nil {
			r.resolveExpr(s.Increment)
		}

	case *BreakStmt:
		if r.loopDepth == 0 {
			r.errorAt(s.Keyword, "Can't use 'break' outside of a loop.")
		}

	case *ContinueStmt:
		if r.loopDepth == 0 {
			r.errorAt(s.Keyword, "Can't use 'continue' outside of a loop.")
		}

	default:
		panic(fmt.Sprintf("resolver: unhandled statement %T", stmt))
	}
}

func (r *Resolver) resolveClass(s *ClassStmt) {
	enclosingClass := r.class
	r.class = classPlain
	defer func() { r.class = enclosingClass }()

	r.declare(s.Name, SymbolClass)
	r.define(s.Name)

	if s.Superclass != nil {
		if s.Superclass.Name.Lexeme == s.Name.Lexeme {
			r.errorAt(s.Superclass.Name, "A class can't inherit from itself.")
		}
		r.class = classSub
		r.resolveExpr(s.Superclass)

		r.beginScope()
		r.defineSynthetic("super")
	}

	r.beginScope()
	r.defineSynthetic("this")

	for _, method := range s.Methods {
		kind := functionMethod
		if method.Name.Lexeme == "init" {
			kind = functionInitializer
		}
		r.resolveFunction(method.Params, method.Body, kind)
	}

	r.endScope()
	if s.Superclass != nil {
		r.endScope()
	}
}

// resolveFunction resolves a function body in a fresh scope holding its
// parameters. Loops do not extend into nested functions.
func (r *Resolver) resolveFunction(params []Token, body []Stmt, kind functionKind) {
	enclosingFunction, enclosingLoops := r.function, r.loopDepth
	r.function, r.loopDepth = kind, 0

	r.beginScope()
	for _, param := range params {
		r.declare(param, SymbolParameter)
		r.define(param)
	}
	r.resolveStmts(body)
	r.endScope()

	r.function, r.loopDepth = enclosingFunction, enclosingLoops
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (r *Resolver) resolveExpr(expr Expr) {
	switch e := expr.(type) {
	case *Literal:
		// nothing to resolve

	case *Grouping:
		r.resolveExpr(e.Expression)

	case *Unary:
		r.resolveExpr(e.Right)

	case *Binary:
		r.resolveExpr(e.Left)
		r.resolveExpr(e.Right)

	case *Logical:
		r.resolveExpr(e.Left)
		r.resolveExpr(e.Right)

	case *Variable:
		if len(r.scopes) > 0 {
			if b, ok := r.scopes[len(r.scopes)-1][e.Name.Lexeme]; ok && !b.ready {
				r.errorAt(e.Name, "Can't read local variable in its own initializer.")
			}
		}
		r.resolveLocal(e, e.Name.Lexeme)

	case *Assign:
		r.resolveExpr(e.Value)
		r.resolveLocal(e, e.Name.Lexeme)

	case *Call:
		r.resolveExpr(e.Callee)
		for _, arg := range e.Arguments {
			r.resolveExpr(arg)
		}

	case *Get:
		r.resolveExpr(e.Object)

	case *Set:
		r.resolveExpr(e.Object)
		r.resolveExpr(e.Value)

	case *This:
		if r.class == classNone {
			r.errorAt(e.Keyword, "Can't use 'this' outside of a class.")
			return
		}
		r.resolveLocal(e, "this")

	case *Super:
		switch r.class {
		case classNone:
			r.errorAt(e.Keyword, "Can't use 'super' outside of a class.")
			return
		case classPlain:
			r.errorAt(e.Keyword, "Can't use 'super' in a class with no superclass.")
			return
		}
		r.resolveLocal(e, "super")

	case *Lambda:
		r.resolveFunction(e.Params, e.Body, functionLambda)

	default:
		panic(fmt.Sprintf("resolver: unhandled expression %T", expr))
	}
}
