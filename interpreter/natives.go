package interpreter

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// StandardNatives returns the natives every interpreter starts with.
func StandardNatives() []*Native {
	return []*Native{
		{
			Name: "clock",
			Args: 0,
			Fn: func([]Value) (Value, error) {
				return Number(float64(time.Now().UnixNano()) / 1e9), nil
			},
		},
	}
}

// Repr renders a value for REPL echo. It differs from the print form only
// in quoting strings, so `"1"` and `1` can be told apart.
func Repr(v Value) string {
	if s, ok := v.(String); ok {
		return `"` + string(s) + `"`
	}
	return v.String()
}

// Describe renders a value for inspection, such as the REPL's global
// listing. Functions show their arity, classes their superclass and
// methods, and instances their fields.
func Describe(v Value) string {
	switch v := v.(type) {
	case *Function:
		name := v.Name()
		if name == "" {
			name = "<lambda>"
		}
		return fmt.Sprintf("fun %s/%d", name, v.Arity())
	case *Class:
		var b strings.Builder
		b.WriteString("class " + v.Name)
		if v.Superclass != nil {
			b.WriteString(" < " + v.Superclass.Name)
		}
		if methods := v.Methods(); len(methods) > 0 {
			b.WriteString(" { " + strings.Join(methods, ", ") + " }")
		}
		return b.String()
	case *Instance:
		names := make([]string, 0, len(v.fields))
		for name := range v.fields {
			names = append(names, name)
		}
		sort.Strings(names)
		if len(names) == 0 {
			return v.Class().Name + " instance"
		}
		fields := make([]string, len(names))
		for i, name := range names {
			fields[i] = name + " = " + Repr(v.fields[name])
		}
		return fmt.Sprintf("%s instance { %s }", v.Class().Name, strings.Join(fields, ", "))
	}
	return Repr(v)
}
