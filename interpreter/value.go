package interpreter

import (
	"fmt"
	"math"
	"strconv"
)

// Kind identifies the runtime value category.
type Kind int

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindString
	KindFunction
	KindNative
	KindClass
	KindInstance
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindFunction:
		return "function"
	case KindNative:
		return "native"
	case KindClass:
		return "class"
	case KindInstance:
		return "instance"
	default:
		return fmt.Sprintf("unknown_kind_%d", int(k))
	}
}

// Value is the shared behaviour for all runtime values. String returns the
// display form used by print.
type Value interface {
	Kind() Kind
	String() string
}

//-----------------------------------------------------------------------------
// Scalars
//-----------------------------------------------------------------------------

type Nil struct{}

func (Nil) Kind() Kind     { return KindNil }
func (Nil) String() string { return "nil" }

type Bool bool

func (Bool) Kind() Kind { return KindBool }

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}

type Number float64

func (Number) Kind() Kind { return KindNumber }

// String prints the shortest form that round-trips. Integral values have
// no fractional part; exponents appear only for very large or very small
// magnitudes.
func (n Number) String() string {
	f := float64(n)
	switch abs := math.Abs(f); {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0 || (abs >= 1e-7 && abs < 1e21):
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

type String string

func (String) Kind() Kind       { return KindString }
func (s String) String() string { return string(s) }

//-----------------------------------------------------------------------------
// Operations shared by every evaluation site
//-----------------------------------------------------------------------------

// Truthy reports Lox truthiness: nil and false are falsey, everything else
// (including 0 and "") is truthy.
func Truthy(v Value) bool {
	switch v := v.(type) {
	case Nil:
		return false
	case Bool:
		return bool(v)
	default:
		return true
	}
}

// Equal reports Lox equality. Values of different kinds are never equal.
// Scalars compare by value (so NaN != NaN), objects by identity, and bound
// methods by receiver and declaration.
func Equal(a, b Value) bool {
	if fa, ok := a.(*Function); ok {
		fb, ok := b.(*Function)
		return ok && fa.equal(fb)
	}
	return a == b
}

// FromLiteral converts a parsed literal value to a runtime value.
func FromLiteral(v any) Value {
	switch v := v.(type) {
	case bool:
		return Bool(v)
	case float64:
		return Number(v)
	case string:
		return String(v)
	default:
		return Nil{}
	}
}
