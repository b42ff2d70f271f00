package compiler

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for Lox
// ---------------------------------------------------------------------------

// Node is the interface implemented by all AST nodes. Nodes are created once
// by the parser and are read-only afterwards; each node is its own heap
// allocation, so its pointer is a stable identity for side tables.
type Node interface {
	Pos() Position
	node() // marker method
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// Literal represents nil, a boolean, a number or a string literal.
// Value is nil, bool, float64 or string.
type Literal struct {
	Token Token
	Value any
}

func (n *Literal) Pos() Position { return n.Token.Pos }
func (n *Literal) node()         {}
func (n *Literal) expr()         {}

// Grouping represents a parenthesized expression.
type Grouping struct {
	LParen     Token
	Expression Expr
}

func (n *Grouping) Pos() Position { return n.LParen.Pos }
func (n *Grouping) node()         {}
func (n *Grouping) expr()         {}

// Unary represents a prefix operator (! or -).
type Unary struct {
	Operator Token
	Right    Expr
}

func (n *Unary) Pos() Position { return n.Operator.Pos }
func (n *Unary) node()         {}
func (n *Unary) expr()         {}

// Binary represents an arithmetic, comparison or equality operator.
type Binary struct {
	Left     Expr
	Operator Token
	Right    Expr
}

func (n *Binary) Pos() Position { return n.Left.Pos() }
func (n *Binary) node()         {}
func (n *Binary) expr()         {}

// Logical represents a short-circuiting `and` / `or`.
type Logical struct {
	Left     Expr
	Operator Token
	Right    Expr
}

func (n *Logical) Pos() Position { return n.Left.Pos() }
func (n *Logical) node()         {}
func (n *Logical) expr()         {}

// Variable represents a variable reference.
type Variable struct {
	Name Token
}

func (n *Variable) Pos() Position { return n.Name.Pos }
func (n *Variable) node()         {}
func (n *Variable) expr()         {}

// Assign represents a variable assignment (x = expr).
type Assign struct {
	Name  Token
	Value Expr
}

func (n *Assign) Pos() Position { return n.Name.Pos }
func (n *Assign) node()         {}
func (n *Assign) expr()         {}

// Call represents a call expression. Paren is the closing parenthesis and
// locates runtime errors.
type Call struct {
	Callee    Expr
	Paren     Token
	Arguments []Expr
}

func (n *Call) Pos() Position { return n.Callee.Pos() }
func (n *Call) node()         {}
func (n *Call) expr()         {}

// Get represents a property access (obj.name).
type Get struct {
	Object Expr
	Name   Token
}

func (n *Get) Pos() Position { return n.Object.Pos() }
func (n *Get) node()         {}
func (n *Get) expr()         {}

// Set represents a property assignment (obj.name = value).
type Set struct {
	Object Expr
	Name   Token
	Value  Expr
}

func (n *Set) Pos() Position { return n.Object.Pos() }
func (n *Set) node()         {}
func (n *Set) expr()         {}

// This represents the `this` keyword.
type This struct {
	Keyword Token
}

func (n *This) Pos() Position { return n.Keyword.Pos }
func (n *This) node()         {}
func (n *This) expr()         {}

// Super represents a superclass method access (super.method).
type Super struct {
	Keyword Token
	Method  Token
}

func (n *Super) Pos() Position { return n.Keyword.Pos }
func (n *Super) node()         {}
func (n *Super) expr()         {}

// Lambda represents an anonymous function literal: fun (a, b) { ... }.
type Lambda struct {
	Keyword Token
	Params  []Token
	Body    []Stmt
}

func (n *Lambda) Pos() Position { return n.Keyword.Pos }
func (n *Lambda) node()         {}
func (n *Lambda) expr()         {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// ExprStmt represents an expression evaluated for its side effects.
type ExprStmt struct {
	Expr Expr
}

func (n *ExprStmt) Pos() Position { return n.Expr.Pos() }
func (n *ExprStmt) node()         {}
func (n *ExprStmt) stmt()         {}

// PrintStmt emits the display string of its expression to the output sink.
type PrintStmt struct {
	Keyword Token
	Expr    Expr
}

func (n *PrintStmt) Pos() Position { return n.Keyword.Pos }
func (n *PrintStmt) node()         {}
func (n *PrintStmt) stmt()         {}

// VarStmt declares a variable. Initializer may be nil.
type VarStmt struct {
	Name        Token
	Initializer Expr
}

func (n *VarStmt) Pos() Position { return n.Name.Pos }
func (n *VarStmt) node()         {}
func (n *VarStmt) stmt()         {}

// BlockStmt is a braced sequence of declarations with its own scope.
type BlockStmt struct {
	LBrace     Token
	Statements []Stmt
}

func (n *BlockStmt) Pos() Position { return n.LBrace.Pos }
func (n *BlockStmt) node()         {}
func (n *BlockStmt) stmt()         {}

// IfStmt represents if/else. Else may be nil.
type IfStmt struct {
	Keyword   Token
	Condition Expr
	Then      Stmt
	Else      Stmt
}

func (n *IfStmt) Pos() Position { return n.Keyword.Pos }
func (n *IfStmt) node()         {}
func (n *IfStmt) stmt()         {}

// WhileStmt represents a while loop and every desugared for loop.
// Increment is nil for a plain while; for a for loop it runs after each
// iteration, continue included, in the scope enclosing the loop.
type WhileStmt struct {
	Keyword   Token
	Condition Expr
	Body      Stmt
	Increment Expr
}

func (n *WhileStmt) Pos() Position { return n.Keyword.Pos }
func (n *WhileStmt) node()         {}
func (n *WhileStmt) stmt()         {}

// FunctionStmt declares a named function, or a method inside a class.
type FunctionStmt struct {
	Name   Token
	Params []Token
	Body   []Stmt
}

func (n *FunctionStmt) Pos() Position { return n.Name.Pos }
func (n *FunctionStmt) node()         {}
func (n *FunctionStmt) stmt()         {}

// ReturnStmt represents return with an optional value.
type ReturnStmt struct {
	Keyword Token
	Value   Expr
}

func (n *ReturnStmt) Pos() Position { return n.Keyword.Pos }
func (n *ReturnStmt) node()         {}
func (n *ReturnStmt) stmt()         {}

// ClassStmt declares a class. Superclass may be nil.
type ClassStmt struct {
	Name       Token
	Superclass *Variable
	Methods    []*FunctionStmt
}

func (n *ClassStmt) Pos() Position { return n.Name.Pos }
func (n *ClassStmt) node()         {}
func (n *ClassStmt) stmt()         {}

// BreakStmt terminates the innermost enclosing loop.
type BreakStmt struct {
	Keyword Token
}

func (n *BreakStmt) Pos() Position { return n.Keyword.Pos }
func (n *BreakStmt) node()         {}
func (n *BreakStmt) stmt()         {}

// ContinueStmt skips to the next iteration of the innermost enclosing loop.
type ContinueStmt struct {
	Keyword Token
}

func (n *ContinueStmt) Pos() Position { return n.Keyword.Pos }
func (n *ContinueStmt) node()         {}
func (n *ContinueStmt) stmt()         {}
