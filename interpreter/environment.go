package interpreter

import (
	"fmt"
	"sort"

	"github.com/chazu/treelox/compiler"
)

// Environment provides lexical scoping for runtime values. Closures keep
// their defining environment alive by holding a pointer to it.
type Environment struct {
	values    map[string]Value
	enclosing *Environment
}

// NewEnvironment creates a new environment, optionally nested under an
// enclosing one.
func NewEnvironment(enclosing *Environment) *Environment {
	return &Environment{
		values:    make(map[string]Value),
		enclosing: enclosing,
	}
}

// Enclosing exposes the lexical parent (nil for globals).
func (e *Environment) Enclosing() *Environment {
	return e.enclosing
}

// Define inserts or replaces a binding in this scope.
func (e *Environment) Define(name string, value Value) {
	e.values[name] = value
}

// Get retrieves a binding, searching outward through the scope chain.
func (e *Environment) Get(name compiler.Token) (Value, error) {
	for env := e; env != nil; env = env.enclosing {
		if v, ok := env.values[name.Lexeme]; ok {
			return v, nil
		}
	}
	return nil, undefinedVariable(name)
}

// Assign updates an existing binding in the first scope where it appears.
func (e *Environment) Assign(name compiler.Token, value Value) error {
	for env := e; env != nil; env = env.enclosing {
		if _, ok := env.values[name.Lexeme]; ok {
			env.values[name.Lexeme] = value
			return nil
		}
	}
	return undefinedVariable(name)
}

// Ancestor walks distance links outward. The resolver guarantees the
// chain is long enough.
func (e *Environment) Ancestor(distance int) *Environment {
	env := e
	for i := 0; i < distance; i++ {
		env = env.enclosing
	}
	return env
}

// GetAt reads name from the environment exactly distance links out. A
// missing binding means the resolver and the runtime disagree about
// scopes, which is an interpreter bug.
func (e *Environment) GetAt(distance int, name string) Value {
	v, ok := e.Ancestor(distance).values[name]
	if !ok {
		panic(fmt.Sprintf("interpreter: no binding for %q at depth %d", name, distance))
	}
	return v
}

// AssignAt writes name in the environment exactly distance links out. Like
// GetAt it panics when the binding is missing.
func (e *Environment) AssignAt(distance int, name string, value Value) {
	env := e.Ancestor(distance)
	if _, ok := env.values[name]; !ok {
		panic(fmt.Sprintf("interpreter: no binding for %q at depth %d", name, distance))
	}
	env.values[name] = value
}

// Lookup reads a binding in this scope only.
func (e *Environment) Lookup(name string) (Value, bool) {
	v, ok := e.values[name]
	return v, ok
}

// Names returns the bindings of this scope in sorted order.
func (e *Environment) Names() []string {
	names := make([]string, 0, len(e.values))
	for k := range e.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
