package interpreter

import (
	"errors"
	"fmt"
	"os"

	"github.com/chazu/treelox/compiler"
)

// maxCallDepth bounds Lox-level recursion so runaway programs fault
// instead of exhausting the Go stack.
const maxCallDepth = 8192

// completionKind says how a statement finished.
type completionKind int

const (
	completionNormal completionKind = iota
	completionReturn
	completionBreak
	completionContinue
)

// completion is the outcome of executing a statement. value is set only
// for completionReturn.
type completion struct {
	kind  completionKind
	value Value
}

var normal = completion{kind: completionNormal}

// Interpreter evaluates resolved programs. Globals persist across calls to
// Interpret, so one Interpreter can serve a whole REPL session. An
// Interpreter is not safe for concurrent use.
type Interpreter struct {
	globals *Environment
	env     *Environment
	locals  compiler.Resolution
	out     Printer
	depth   int
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithOutput sends print output to p instead of standard output.
func WithOutput(p Printer) Option {
	return func(in *Interpreter) {
		in.out = p
	}
}

// WithNatives defines extra native functions as globals.
func WithNatives(natives ...*Native) Option {
	return func(in *Interpreter) {
		for _, n := range natives {
			in.globals.Define(n.Name, n)
		}
	}
}

// New creates an interpreter whose globals hold the standard natives.
func New(opts ...Option) *Interpreter {
	globals := NewEnvironment(nil)
	in := &Interpreter{
		globals: globals,
		env:     globals,
		locals:  make(compiler.Resolution),
		out:     WriterPrinter{W: os.Stdout},
	}
	for _, n := range StandardNatives() {
		globals.Define(n.Name, n)
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Globals returns the global environment.
func (in *Interpreter) Globals() *Environment {
	return in.globals
}

// Resolve merges a resolution side table into the interpreter's own.
// Entries are keyed by node identity, so tables from successive REPL
// inputs never collide.
func (in *Interpreter) Resolve(locals compiler.Resolution) {
	for expr, depth := range locals {
		in.locals[expr] = depth
	}
}

// Interpret executes statements in order against the global environment.
// It stops at the first fault and returns it as a *RuntimeError; globals
// defined before the fault remain. Any other error comes from the Printer.
func (in *Interpreter) Interpret(stmts []compiler.Stmt) error {
	in.env = in.globals
	in.depth = 0
	for _, stmt := range stmts {
		if _, err := in.execute(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Evaluate evaluates a single resolved expression in the global
// environment.
func (in *Interpreter) Evaluate(expr compiler.Expr) (Value, error) {
	in.env = in.globals
	in.depth = 0
	return in.evaluate(expr)
}

// AsRuntimeError reports whether err is a fault raised by a program.
func AsRuntimeError(err error) (*RuntimeError, bool) {
	var rerr *RuntimeError
	if errors.As(err, &rerr) {
		return rerr, true
	}
	return nil, false
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (in *Interpreter) execute(stmt compiler.Stmt) (completion, error) {
	switch s := stmt.(type) {
	case *compiler.ExprStmt:
		_, err := in.evaluate(s.Expr)
		return normal, err

	case *compiler.PrintStmt:
		v, err := in.evaluate(s.Expr)
		if err != nil {
			return normal, err
		}
		if err := in.out.Print(v.String()); err != nil {
			return normal, fmt.Errorf("print: %w", err)
		}
		return normal, nil

	case *compiler.VarStmt:
		var value Value = Nil{}
		if s.Initializer != nil {
			v, err := in.evaluate(s.Initializer)
			if err != nil {
				return normal, err
			}
			value = v
		}
		in.env.Define(s.Name.Lexeme, value)
		return normal, nil

	case *compiler.BlockStmt:
		return in.executeBlock(s.Statements, NewEnvironment(in.env))

	case *compiler.IfStmt:
		cond, err := in.evaluate(s.Condition)
		if err != nil {
			return normal, err
		}
		if Truthy(cond) {
			return in.execute(s.Then)
		}
		if s.Else != nil {
			return in.execute(s.Else)
		}
		return normal, nil

	case *compiler.WhileStmt:
		return in.executeWhile(s)

	case *compiler.FunctionStmt:
		in.env.Define(s.Name.Lexeme, newFunction(s, in.env, false))
		return normal, nil

	case *compiler.ReturnStmt:
		var value Value = Nil{}
		if s.Value != nil {
			v, err := in.evaluate(s.Value)
			if err != nil {
				return normal, err
			}
			value = v
		}
		return completion{kind: completionReturn, value: value}, nil

	case *compiler.ClassStmt:
		return normal, in.executeClass(s)

	case *compiler.BreakStmt:
		return completion{kind: completionBreak}, nil

	case *compiler.ContinueStmt:
		return completion{kind: completionContinue}, nil
	}
	panic(fmt.Sprintf("interpreter: unhandled statement %T", stmt))
}

// executeBlock runs stmts in env and restores the current environment on
// every exit path. Any non-normal completion stops the block and
// propagates.
func (in *Interpreter) executeBlock(stmts []compiler.Stmt, env *Environment) (completion, error) {
	previous := in.env
	in.env = env
	defer func() { in.env = previous }()

	for _, stmt := range stmts {
		c, err := in.execute(stmt)
		if err != nil || c.kind != completionNormal {
			return c, err
		}
	}
	return normal, nil
}

func (in *Interpreter) executeWhile(s *compiler.WhileStmt) (completion, error) {
	for {
		cond, err := in.evaluate(s.Condition)
		if err != nil {
			return normal, err
		}
		if !Truthy(cond) {
			return normal, nil
		}

		c, err := in.execute(s.Body)
		if err != nil {
			return normal, err
		}
		switch c.kind {
		case completionBreak:
			return normal, nil
		case completionReturn:
			return c, nil
		}

		// Normal and continue completions both fall through to the
		// increment.
		if s.Increment != nil {
			if _, err := in.evaluate(s.Increment); err != nil {
				return normal, err
			}
		}
	}
}

func (in *Interpreter) executeClass(s *compiler.ClassStmt) error {
	var superclass *Class
	if s.Superclass != nil {
		v, err := in.evaluate(s.Superclass)
		if err != nil {
			return err
		}
		sc, ok := v.(*Class)
		if !ok {
			return runtimeErrorf(s.Superclass.Name, "Superclass must be a class.")
		}
		superclass = sc
	}

	in.env.Define(s.Name.Lexeme, Nil{})

	env := in.env
	if superclass != nil {
		env = NewEnvironment(env)
		env.Define("super", superclass)
	}

	methods := make(map[string]*Function, len(s.Methods))
	for _, m := range s.Methods {
		methods[m.Name.Lexeme] = newFunction(m, env, m.Name.Lexeme == "init")
	}

	class := &Class{Name: s.Name.Lexeme, Superclass: superclass, methods: methods}
	return in.env.Assign(s.Name, class)
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (in *Interpreter) evaluate(expr compiler.Expr) (Value, error) {
	switch e := expr.(type) {
	case *compiler.Literal:
		return FromLiteral(e.Value), nil

	case *compiler.Grouping:
		return in.evaluate(e.Expression)

	case *compiler.Unary:
		return in.evaluateUnary(e)

	case *compiler.Binary:
		return in.evaluateBinary(e)

	case *compiler.Logical:
		left, err := in.evaluate(e.Left)
		if err != nil {
			return nil, err
		}
		if e.Operator.Type == compiler.TokenOr {
			if Truthy(left) {
				return left, nil
			}
		} else if !Truthy(left) {
			return left, nil
		}
		return in.evaluate(e.Right)

	case *compiler.Variable:
		return in.lookUpVariable(e.Name, e)

	case *compiler.Assign:
		value, err := in.evaluate(e.Value)
		if err != nil {
			return nil, err
		}
		if distance, ok := in.locals[e]; ok {
			in.env.AssignAt(distance, e.Name.Lexeme, value)
		} else if err := in.globals.Assign(e.Name, value); err != nil {
			return nil, err
		}
		return value, nil

	case *compiler.Call:
		return in.evaluateCall(e)

	case *compiler.Get:
		object, err := in.evaluate(e.Object)
		if err != nil {
			return nil, err
		}
		instance, ok := object.(*Instance)
		if !ok {
			return nil, runtimeErrorf(e.Name, "Only instances have properties.")
		}
		return instance.Get(e.Name)

	case *compiler.Set:
		object, err := in.evaluate(e.Object)
		if err != nil {
			return nil, err
		}
		instance, ok := object.(*Instance)
		if !ok {
			return nil, runtimeErrorf(e.Name, "Only instances have fields.")
		}
		value, err := in.evaluate(e.Value)
		if err != nil {
			return nil, err
		}
		instance.Set(e.Name, value)
		return value, nil

	case *compiler.This:
		return in.lookUpVariable(e.Keyword, e)

	case *compiler.Super:
		return in.evaluateSuper(e)

	case *compiler.Lambda:
		return newLambda(e, in.env), nil
	}
	panic(fmt.Sprintf("interpreter: unhandled expression %T", expr))
}

func (in *Interpreter) lookUpVariable(name compiler.Token, expr compiler.Expr) (Value, error) {
	if distance, ok := in.locals[expr]; ok {
		return in.env.GetAt(distance, name.Lexeme), nil
	}
	return in.globals.Get(name)
}

func (in *Interpreter) evaluateUnary(e *compiler.Unary) (Value, error) {
	right, err := in.evaluate(e.Right)
	if err != nil {
		return nil, err
	}

	switch e.Operator.Type {
	case compiler.TokenBang:
		return Bool(!Truthy(right)), nil
	case compiler.TokenMinus:
		n, ok := right.(Number)
		if !ok {
			return nil, runtimeErrorf(e.Operator, "Operand must be a number.")
		}
		return -n, nil
	}
	panic(fmt.Sprintf("interpreter: unknown unary operator %s", e.Operator.Lexeme))
}

func (in *Interpreter) evaluateBinary(e *compiler.Binary) (Value, error) {
	left, err := in.evaluate(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := in.evaluate(e.Right)
	if err != nil {
		return nil, err
	}

	switch e.Operator.Type {
	case compiler.TokenEqualEqual:
		return Bool(Equal(left, right)), nil
	case compiler.TokenBangEqual:
		return Bool(!Equal(left, right)), nil

	case compiler.TokenPlus:
		switch l := left.(type) {
		case Number:
			if r, ok := right.(Number); ok {
				return l + r, nil
			}
		case String:
			if r, ok := right.(String); ok {
				return l + r, nil
			}
		}
		return nil, runtimeErrorf(e.Operator, "Operands must be two numbers or two strings.")
	}

	l, lok := left.(Number)
	r, rok := right.(Number)
	if !lok || !rok {
		return nil, runtimeErrorf(e.Operator, "Operands must be numbers.")
	}

	switch e.Operator.Type {
	case compiler.TokenMinus:
		return l - r, nil
	case compiler.TokenStar:
		return l * r, nil
	case compiler.TokenSlash:
		return l / r, nil
	case compiler.TokenGreater:
		return Bool(l > r), nil
	case compiler.TokenGreaterEqual:
		return Bool(l >= r), nil
	case compiler.TokenLess:
		return Bool(l < r), nil
	case compiler.TokenLessEqual:
		return Bool(l <= r), nil
	}
	panic(fmt.Sprintf("interpreter: unknown binary operator %s", e.Operator.Lexeme))
}

func (in *Interpreter) evaluateCall(e *compiler.Call) (Value, error) {
	callee, err := in.evaluate(e.Callee)
	if err != nil {
		return nil, err
	}

	args := make([]Value, len(e.Arguments))
	for i, arg := range e.Arguments {
		if args[i], err = in.evaluate(arg); err != nil {
			return nil, err
		}
	}

	fn, ok := callee.(Callable)
	if !ok {
		return nil, runtimeErrorf(e.Paren, "Can only call functions and classes.")
	}
	if len(args) != fn.Arity() {
		return nil, runtimeErrorf(e.Paren, "Expected %d arguments but got %d.", fn.Arity(), len(args))
	}

	if in.depth >= maxCallDepth {
		return nil, runtimeErrorf(e.Paren, "Stack overflow.")
	}
	in.depth++
	defer func() { in.depth-- }()

	return fn.Call(in, args)
}

func (in *Interpreter) evaluateSuper(e *compiler.Super) (Value, error) {
	distance, ok := in.locals[e]
	if !ok {
		return nil, runtimeErrorf(e.Keyword, "Can't use 'super' outside of a class.")
	}
	superclass, _ := in.env.GetAt(distance, "super").(*Class)
	instance, _ := in.env.GetAt(distance-1, "this").(*Instance)
	if superclass == nil || instance == nil {
		return nil, runtimeErrorf(e.Keyword, "Can't use 'super' outside of a class.")
	}

	method := superclass.FindMethod(e.Method.Lexeme)
	if method == nil {
		return nil, runtimeErrorf(e.Method, "Undefined property '%s'.", e.Method.Lexeme)
	}
	return method.Bind(instance), nil
}
