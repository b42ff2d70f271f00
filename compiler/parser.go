package compiler

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for Lox
// ---------------------------------------------------------------------------

// maxArity caps both parameter lists and call argument lists.
const maxArity = 255

// errSyntax unwinds a parse function back to the enclosing declaration.
// The diagnostic has already been reported when it is returned.
var errSyntax = errors.New("syntax error")

// Parser parses a token sequence into a list of statements.
type Parser struct {
	tokens   []Token
	current  int
	reporter *counter
}

// NewParser creates a parser over tokens, which must end with TokenEOF.
// Errors are sent to r.
func NewParser(tokens []Token, r Reporter) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != TokenEOF {
		tokens = append(tokens, Token{Type: TokenEOF})
	}
	return &Parser{tokens: tokens, reporter: newCounter(r)}
}

// HadError reports whether any syntax error has been reported.
func (p *Parser) HadError() bool {
	return p.reporter.count > 0
}

// ---------------------------------------------------------------------------
// Token helpers
// ---------------------------------------------------------------------------

func (p *Parser) peek() Token {
	return p.tokens[p.current]
}

func (p *Parser) previous() Token {
	return p.tokens[p.current-1]
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Type == TokenEOF
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.peek().Type == t
}

// peekTokenIs checks if the token after the current one is of the given type.
func (p *Parser) peekTokenIs(t TokenType) bool {
	if p.current+1 >= len(p.tokens) {
		return false
	}
	return p.tokens[p.current+1].Type == t
}

func (p *Parser) advance() Token {
	tok := p.peek()
	if !p.isAtEnd() {
		p.current++
	}
	return tok
}

// match consumes the current token if it is one of types.
func (p *Parser) match(types ...TokenType) bool {
	for _, t := range types {
		if p.curTokenIs(t) {
			p.advance()
			return true
		}
	}
	return false
}

// expect consumes a token of type t, otherwise reports msg at the current token.
func (p *Parser) expect(t TokenType, msg string) (Token, error) {
	if p.curTokenIs(t) {
		return p.advance(), nil
	}
	return Token{}, p.errorAt(p.peek(), msg)
}

// errorAt reports a syntax error at tok and returns errSyntax.
func (p *Parser) errorAt(tok Token, msg string) error {
	p.reporter.Report(tokenDiagnostic(StageParse, tok, msg))
	return errSyntax
}

// synchronize discards tokens until a likely statement boundary.
func (p *Parser) synchronize() {
	p.advance()
	for !p.isAtEnd() {
		if p.previous().Type == TokenSemicolon {
			return
		}
		switch p.peek().Type {
		case TokenClass, TokenFun, TokenVar, TokenFor, TokenIf, TokenWhile,
			TokenPrint, TokenReturn, TokenBreak, TokenContinue:
			return
		}
		p.advance()
	}
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// Parse parses the whole token sequence. When HadError reports true the
// result is incomplete and must not be executed.
func (p *Parser) Parse() []Stmt {
	var stmts []Stmt
	for !p.isAtEnd() {
		if stmt := p.declaration(); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// ParseExpression parses the input as a single expression, optionally
// followed by a semicolon. It returns nil on error.
func (p *Parser) ParseExpression() Expr {
	expr, err := p.expression()
	if err != nil {
		return nil
	}
	p.match(TokenSemicolon)
	if !p.isAtEnd() {
		p.errorAt(p.peek(), "Expect end of expression.")
		return nil
	}
	if p.HadError() {
		// Error productions and bad assignment targets still build a node.
		return nil
	}
	return expr
}

// ParseSource lexes and parses source in one step.
func ParseSource(source string, r Reporter) ([]Stmt, bool) {
	c := newCounter(r)
	tokens := NewLexer(source).ScanTokens(c)
	p := NewParser(tokens, c)
	stmts := p.Parse()
	return stmts, c.count == 0
}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

func (p *Parser) declaration() Stmt {
	var (
		stmt Stmt
		err  error
	)
	switch {
	case p.match(TokenClass):
		stmt, err = p.classDeclaration()
	case p.curTokenIs(TokenFun) && p.peekTokenIs(TokenIdentifier):
		p.advance()
		stmt, err = p.function("function")
	case p.match(TokenVar):
		stmt, err = p.varDeclaration()
	default:
		stmt, err = p.statement()
	}
	if err != nil {
		p.synchronize()
		return nil
	}
	return stmt
}

func (p *Parser) classDeclaration() (Stmt, error) {
	name, err := p.expect(TokenIdentifier, "Expect class name.")
	if err != nil {
		return nil, err
	}

	var superclass *Variable
	if p.match(TokenLess) {
		super, err := p.expect(TokenIdentifier, "Expect superclass name.")
		if err != nil {
			return nil, err
		}
		superclass = &Variable{Name: super}
	}

	if _, err := p.expect(TokenLBrace, "Expect '{' before class body."); err != nil {
		return nil, err
	}

	var methods []*FunctionStmt
	for !p.curTokenIs(TokenRBrace) && !p.isAtEnd() {
		method, err := p.function("method")
		if err != nil {
			return nil, err
		}
		methods = append(methods, method)
	}

	if _, err := p.expect(TokenRBrace, "Expect '}' after class body."); err != nil {
		return nil, err
	}
	return &ClassStmt{Name: name, Superclass: superclass, Methods: methods}, nil
}

// function parses a named function or method after its `fun` keyword.
func (p *Parser) function(kind string) (*FunctionStmt, error) {
	name, err := p.expect(TokenIdentifier, fmt.Sprintf("Expect %s name.", kind))
	if err != nil {
		return nil, err
	}
	params, body, err := p.functionBody(kind)
	if err != nil {
		return nil, err
	}
	return &FunctionStmt{Name: name, Params: params, Body: body}, nil
}

// functionBody parses `(params) { body }`.
func (p *Parser) functionBody(kind string) ([]Token, []Stmt, error) {
	openMsg := fmt.Sprintf("Expect '(' after %s name.", kind)
	if kind == "lambda" {
		openMsg = "Expect '(' after 'fun'."
	}
	if _, err := p.expect(TokenLParen, openMsg); err != nil {
		return nil, nil, err
	}

	var params []Token
	if !p.curTokenIs(TokenRParen) {
		for {
			if len(params) >= maxArity {
				p.errorAt(p.peek(), fmt.Sprintf("Can't have more than %d parameters.", maxArity))
			}
			param, err := p.expect(TokenIdentifier, "Expect parameter name.")
			if err != nil {
				return nil, nil, err
			}
			params = append(params, param)
			if !p.match(TokenComma) {
				break
			}
		}
	}
	if _, err := p.expect(TokenRParen, "Expect ')' after parameters."); err != nil {
		return nil, nil, err
	}

	if _, err := p.expect(TokenLBrace, fmt.Sprintf("Expect '{' before %s body.", kind)); err != nil {
		return nil, nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, nil, err
	}
	return params, body, nil
}

func (p *Parser) varDeclaration() (Stmt, error) {
	name, err := p.expect(TokenIdentifier, "Expect variable name.")
	if err != nil {
		return nil, err
	}

	var init Expr
	if p.match(TokenEqual) {
		if init, err = p.expression(); err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(TokenSemicolon, "Expect ';' after variable declaration."); err != nil {
		return nil, err
	}
	return &VarStmt{Name: name, Initializer: init}, nil
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (p *Parser) statement() (Stmt, error) {
	switch {
	case p.match(TokenFor):
		return p.forStatement()
	case p.match(TokenIf):
		return p.ifStatement()
	case p.match(TokenPrint):
		return p.printStatement()
	case p.match(TokenReturn):
		return p.returnStatement()
	case p.match(TokenWhile):
		return p.whileStatement()
	case p.match(TokenBreak):
		kw := p.previous()
		if _, err := p.expect(TokenSemicolon, "Expect ';' after 'break'."); err != nil {
			return nil, err
		}
		return &BreakStmt{Keyword: kw}, nil
	case p.match(TokenContinue):
		kw := p.previous()
		if _, err := p.expect(TokenSemicolon, "Expect ';' after 'continue'."); err != nil {
			return nil, err
		}
		return &ContinueStmt{Keyword: kw}, nil
	case p.match(TokenLBrace):
		lbrace := p.previous()
		stmts, err := p.block()
		if err != nil {
			return nil, err
		}
		return &BlockStmt{LBrace: lbrace, Statements: stmts}, nil
	}
	return p.expressionStatement()
}

// forStatement desugars
//
//	for (init; cond; incr) body
//
// into
//
//	{ init; while (cond) body [incr] }
func (p *Parser) forStatement() (Stmt, error) {
	kw := p.previous()
	if _, err := p.expect(TokenLParen, "Expect '(' after 'for'."); err != nil {
		return nil, err
	}

	var (
		init Stmt
		err  error
	)
	switch {
	case p.match(TokenSemicolon):
	case p.match(TokenVar):
		init, err = p.varDeclaration()
	default:
		init, err = p.expressionStatement()
	}
	if err != nil {
		return nil, err
	}

	var cond Expr
	if !p.curTokenIs(TokenSemicolon) {
		if cond, err = p.expression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(TokenSemicolon, "Expect ';' after loop condition."); err != nil {
		return nil, err
	}

	var incr Expr
	if !p.curTokenIs(TokenRParen) {
		if incr, err = p.expression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(TokenRParen, "Expect ')' after for clauses."); err != nil {
		return nil, err
	}

	body, err := p.statement()
	if err != nil {
		return nil, err
	}

	if cond == nil {
		cond = &Literal{Token: kw, Value: true}
	}
	loop := &WhileStmt{Keyword: kw, Condition: cond, Body: body, Increment: incr}

	stmts := []Stmt{loop}
	if init != nil {
		stmts = []Stmt{init, loop}
	}
	return &BlockStmt{LBrace: kw, Statements: stmts}, nil
}

func (p *Parser) ifStatement() (Stmt, error) {
	kw := p.previous()
	if _, err := p.expect(TokenLParen, "Expect '(' after 'if'."); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenRParen, "Expect ')' after if condition."); err != nil {
		return nil, err
	}

	then, err := p.statement()
	if err != nil {
		return nil, err
	}
	var els Stmt
	if p.match(TokenElse) {
		if els, err = p.statement(); err != nil {
			return nil, err
		}
	}
	return &IfStmt{Keyword: kw, Condition: cond, Then: then, Else: els}, nil
}

func (p *Parser) printStatement() (Stmt, error) {
	kw := p.previous()
	value, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenSemicolon, "Expect ';' after value."); err != nil {
		return nil, err
	}
	return &PrintStmt{Keyword: kw, Expr: value}, nil
}

func (p *Parser) returnStatement() (Stmt, error) {
	kw := p.previous()
	var (
		value Expr
		err   error
	)
	if !p.curTokenIs(TokenSemicolon) {
		if value, err = p.expression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(TokenSemicolon, "Expect ';' after return value."); err != nil {
		return nil, err
	}
	return &ReturnStmt{Keyword: kw, Value: value}, nil
}

func (p *Parser) whileStatement() (Stmt, error) {
	kw := p.previous()
	if _, err := p.expect(TokenLParen, "Expect '(' after 'while'."); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenRParen, "Expect ')' after condition."); err != nil {
		return nil, err
	}
	body, err := p.statement()
	if err != nil {
		return nil, err
	}
	return &WhileStmt{Keyword: kw, Condition: cond, Body: body}, nil
}

// block parses declarations up to and including the closing brace.
func (p *Parser) block() ([]Stmt, error) {
	var stmts []Stmt
	for !p.curTokenIs(TokenRBrace) && !p.isAtEnd() {
		if stmt := p.declaration(); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	if _, err := p.expect(TokenRBrace, "Expect '}' after block."); err != nil {
		return nil, err
	}
	return stmts, nil
}

func (p *Parser) expressionStatement() (Stmt, error) {
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenSemicolon, "Expect ';' after expression."); err != nil {
		return nil, err
	}
	return &ExprStmt{Expr: expr}, nil
}

// ---------------------------------------------------------------------------
// Expressions, lowest precedence first
// ---------------------------------------------------------------------------

func (p *Parser) expression() (Expr, error) {
	return p.assignment()
}

func (p *Parser) assignment() (Expr, error) {
	expr, err := p.or()
	if err != nil {
		return nil, err
	}

	if p.match(TokenEqual) {
		equals := p.previous()
		value, err := p.assignment()
		if err != nil {
			return nil, err
		}

		switch target := expr.(type) {
		case *Variable:
			return &Assign{Name: target.Name, Value: value}, nil
		case *Get:
			return &Set{Object: target.Object, Name: target.Name, Value: value}, nil
		}
		// Reported but not unwound: the parser is not confused.
		p.errorAt(equals, "Invalid assignment target.")
	}
	return expr, nil
}

func (p *Parser) or() (Expr, error) {
	expr, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.match(TokenOr) {
		op := p.previous()
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		expr = &Logical{Left: expr, Operator: op, Right: right}
	}
	return expr, nil
}

func (p *Parser) and() (Expr, error) {
	expr, err := p.equality()
	if err != nil {
		return nil, err
	}
	for p.match(TokenAnd) {
		op := p.previous()
		right, err := p.equality()
		if err != nil {
			return nil, err
		}
		expr = &Logical{Left: expr, Operator: op, Right: right}
	}
	return expr, nil
}

// binary parses a left-associative chain of operators from types whose
// operands come from next. A chain that starts with one of the operators
// is missing its left operand; that is reported, the right operand is
// consumed and parsing carries on.
func (p *Parser) binary(next func() (Expr, error), types ...TokenType) (Expr, error) {
	if p.match(types...) {
		op := p.previous()
		p.errorAt(op, "Missing left-hand operand.")
		return next()
	}

	expr, err := next()
	if err != nil {
		return nil, err
	}
	for p.match(types...) {
		op := p.previous()
		right, err := next()
		if err != nil {
			return nil, err
		}
		expr = &Binary{Left: expr, Operator: op, Right: right}
	}
	return expr, nil
}

func (p *Parser) equality() (Expr, error) {
	return p.binary(p.comparison, TokenBangEqual, TokenEqualEqual)
}

func (p *Parser) comparison() (Expr, error) {
	return p.binary(p.term, TokenGreater, TokenGreaterEqual, TokenLess, TokenLessEqual)
}

func (p *Parser) term() (Expr, error) {
	// A leading minus is negation, so only plus can lack a left operand.
	if p.match(TokenPlus) {
		op := p.previous()
		p.errorAt(op, "Missing left-hand operand.")
		return p.term()
	}

	expr, err := p.factor()
	if err != nil {
		return nil, err
	}
	for p.match(TokenMinus, TokenPlus) {
		op := p.previous()
		right, err := p.factor()
		if err != nil {
			return nil, err
		}
		expr = &Binary{Left: expr, Operator: op, Right: right}
	}
	return expr, nil
}

func (p *Parser) factor() (Expr, error) {
	return p.binary(p.unary, TokenSlash, TokenStar)
}

func (p *Parser) unary() (Expr, error) {
	if p.match(TokenBang, TokenMinus) {
		op := p.previous()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &Unary{Operator: op, Right: right}, nil
	}
	return p.call()
}

func (p *Parser) call() (Expr, error) {
	expr, err := p.primary()
	if err != nil {
		return nil, err
	}

	for {
		switch {
		case p.match(TokenLParen):
			if expr, err = p.finishCall(expr); err != nil {
				return nil, err
			}
		case p.match(TokenDot):
			name, err := p.expect(TokenIdentifier, "Expect property name after '.'.")
			if err != nil {
				return nil, err
			}
			expr = &Get{Object: expr, Name: name}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) finishCall(callee Expr) (Expr, error) {
	var args []Expr
	if !p.curTokenIs(TokenRParen) {
		for {
			if len(args) >= maxArity {
				p.errorAt(p.peek(), fmt.Sprintf("Can't have more than %d arguments.", maxArity))
			}
			arg, err := p.expression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.match(TokenComma) {
				break
			}
		}
	}

	paren, err := p.expect(TokenRParen, "Expect ')' after arguments.")
	if err != nil {
		return nil, err
	}
	return &Call{Callee: callee, Paren: paren, Arguments: args}, nil
}

func (p *Parser) primary() (Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case TokenFalse:
		p.advance()
		return &Literal{Token: tok, Value: false}, nil
	case TokenTrue:
		p.advance()
		return &Literal{Token: tok, Value: true}, nil
	case TokenNil:
		p.advance()
		return &Literal{Token: tok, Value: nil}, nil
	case TokenNumber, TokenString:
		p.advance()
		return &Literal{Token: tok, Value: tok.Literal}, nil
	case TokenThis:
		p.advance()
		return &This{Keyword: tok}, nil
	case TokenIdentifier:
		p.advance()
		return &Variable{Name: tok}, nil
	case TokenSuper:
		p.advance()
		if _, err := p.expect(TokenDot, "Expect '.' after 'super'."); err != nil {
			return nil, err
		}
		method, err := p.expect(TokenIdentifier, "Expect superclass method name.")
		if err != nil {
			return nil, err
		}
		return &Super{Keyword: tok, Method: method}, nil
	case TokenFun:
		p.advance()
		params, body, err := p.functionBody("lambda")
		if err != nil {
			return nil, err
		}
		return &Lambda{Keyword: tok, Params: params, Body: body}, nil
	case TokenLParen:
		p.advance()
		inner, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen, "Expect ')' after expression."); err != nil {
			return nil, err
		}
		return &Grouping{LParen: tok, Expression: inner}, nil
	}
	return nil, p.errorAt(tok, "Expect expression.")
}
