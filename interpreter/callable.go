package interpreter

import (
	"sort"

	"github.com/chazu/treelox/compiler"
)

// Callable is implemented by every value that can appear before `(`.
type Callable interface {
	Value
	Arity() int
	Call(in *Interpreter, args []Value) (Value, error)
}

//-----------------------------------------------------------------------------
// User functions, lambdas and methods
//-----------------------------------------------------------------------------

// Function is a closure: a declaration plus the environment it was
// created in. Methods become bound Functions whose closure holds `this`.
type Function struct {
	name    string // empty for lambdas
	params  []compiler.Token
	body    []compiler.Stmt
	decl    compiler.Node // identity of the declaring node
	closure *Environment
	isInit  bool
	this    *Instance // receiver when bound
}

func newFunction(decl *compiler.FunctionStmt, closure *Environment, isInit bool) *Function {
	return &Function{
		name:    decl.Name.Lexeme,
		params:  decl.Params,
		body:    decl.Body,
		decl:    decl,
		closure: closure,
		isInit:  isInit,
	}
}

func newLambda(decl *compiler.Lambda, closure *Environment) *Function {
	return &Function{
		params:  decl.Params,
		body:    decl.Body,
		decl:    decl,
		closure: closure,
	}
}

func (f *Function) Kind() Kind { return KindFunction }

func (f *Function) String() string {
	if f.name == "" {
		return "<fn>"
	}
	return "<fn " + f.name + ">"
}

// Name returns the declared name, or "" for a lambda.
func (f *Function) Name() string { return f.name }

func (f *Function) Arity() int { return len(f.params) }

// Bind returns a copy of the method whose closure defines `this`.
func (f *Function) Bind(instance *Instance) *Function {
	env := NewEnvironment(f.closure)
	env.Define("this", instance)
	bound := *f
	bound.closure = env
	bound.this = instance
	return &bound
}

// Call runs the body in a fresh environment holding the parameters.
// An initializer always yields its instance.
func (f *Function) Call(in *Interpreter, args []Value) (Value, error) {
	env := NewEnvironment(f.closure)
	for i, param := range f.params {
		env.Define(param.Lexeme, args[i])
	}

	c, err := in.executeBlock(f.body, env)
	if err != nil {
		return nil, err
	}

	if f.isInit {
		return f.closure.GetAt(0, "this"), nil
	}
	if c.kind == completionReturn {
		return c.value, nil
	}
	return Nil{}, nil
}

func (f *Function) equal(other *Function) bool {
	if f == other {
		return true
	}
	return f.this != nil && f.this == other.this && f.decl == other.decl
}

//-----------------------------------------------------------------------------
// Natives
//-----------------------------------------------------------------------------

// Native is a function implemented in Go.
type Native struct {
	Name string
	Args int
	Fn   func(args []Value) (Value, error)
}

func (n *Native) Kind() Kind     { return KindNative }
func (n *Native) String() string { return "<native fn>" }
func (n *Native) Arity() int     { return n.Args }

func (n *Native) Call(_ *Interpreter, args []Value) (Value, error) {
	return n.Fn(args)
}

//-----------------------------------------------------------------------------
// Classes and instances
//-----------------------------------------------------------------------------

// Class holds methods and an optional superclass. Calling a class
// constructs an instance.
type Class struct {
	Name       string
	Superclass *Class // can be nil
	methods    map[string]*Function
}

func (c *Class) Kind() Kind     { return KindClass }
func (c *Class) String() string { return c.Name }

// FindMethod looks name up on the class, then along the superclass chain.
func (c *Class) FindMethod(name string) *Function {
	for class := c; class != nil; class = class.Superclass {
		if m, ok := class.methods[name]; ok {
			return m
		}
	}
	return nil
}

// Methods returns the names declared directly on this class, sorted.
func (c *Class) Methods() []string {
	names := make([]string, 0, len(c.methods))
	for name := range c.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Arity is the initializer's arity, or 0 without one.
func (c *Class) Arity() int {
	if init := c.FindMethod("init"); init != nil {
		return init.Arity()
	}
	return 0
}

func (c *Class) Call(in *Interpreter, args []Value) (Value, error) {
	instance := &Instance{class: c, fields: make(map[string]Value)}
	if init := c.FindMethod("init"); init != nil {
		if _, err := init.Bind(instance).Call(in, args); err != nil {
			return nil, err
		}
	}
	return instance, nil
}

// Instance is an object with its own field table.
type Instance struct {
	class  *Class
	fields map[string]Value
}

func (i *Instance) Kind() Kind     { return KindInstance }
func (i *Instance) String() string { return i.class.Name + " instance" }

// Class returns the instance's class.
func (i *Instance) Class() *Class { return i.class }

// Get reads a property. Fields shadow methods; methods come back bound.
func (i *Instance) Get(name compiler.Token) (Value, error) {
	if v, ok := i.fields[name.Lexeme]; ok {
		return v, nil
	}
	if m := i.class.FindMethod(name.Lexeme); m != nil {
		return m.Bind(i), nil
	}
	return nil, runtimeErrorf(name, "Undefined property '%s'.", name.Lexeme)
}

// Set creates or overwrites a field.
func (i *Instance) Set(name compiler.Token, value Value) {
	i.fields[name.Lexeme] = value
}
