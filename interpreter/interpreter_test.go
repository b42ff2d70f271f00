package interpreter

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/chazu/treelox/compiler"
)

// run parses, resolves and interprets source against in, failing the test
// on any static error.
func run(t *testing.T, in *Interpreter, source string) error {
	t.Helper()
	var diags compiler.Diagnostics
	stmts, ok := compiler.ParseSource(source, &diags)
	if !ok {
		t.Fatalf("parse %q: %v", source, diags)
	}
	locals, ok := compiler.Resolve(stmts, &diags)
	if !ok {
		t.Fatalf("resolve %q: %v", source, diags)
	}
	in.Resolve(locals)
	return in.Interpret(stmts)
}

func TestNumberString(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{1, "1"},
		{-3, "-3"},
		{2.5, "2.5"},
		{0.3, "0.3"},
		{1.0 / 3, "0.3333333333333333"},
		{1e6, "1000000"},
		{123456789012, "123456789012"},
		{1e21, "1e+21"},
		{1e-8, "1e-08"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
	}

	for _, tt := range tests {
		got := Number(tt.in).String()
		if got != tt.want {
			t.Errorf("Number(%v).String() = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		v    Value
		want bool
	}{
		{Nil{}, false},
		{Bool(false), false},
		{Bool(true), true},
		{Number(0), true},
		{String(""), true},
		{&Class{Name: "A"}, true},
	}

	for _, tt := range tests {
		if got := Truthy(tt.v); got != tt.want {
			t.Errorf("Truthy(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestEqual(t *testing.T) {
	nan := Number(math.NaN())
	class := &Class{Name: "A"}
	a := &Instance{class: class, fields: map[string]Value{}}
	b := &Instance{class: class, fields: map[string]Value{}}

	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"nil", Nil{}, Nil{}, true},
		{"numbers", Number(1), Number(1), true},
		{"nan", nan, nan, false},
		{"strings", String("a"), String("a"), true},
		{"number and string", Number(1), String("1"), false},
		{"nil and false", Nil{}, Bool(false), false},
		{"same instance", a, a, true},
		{"distinct instances", a, b, false},
	}

	for _, tt := range tests {
		if got := Equal(tt.a, tt.b); got != tt.want {
			t.Errorf("%s: Equal(%v, %v) = %v, want %v", tt.name, tt.a, tt.b, got, tt.want)
		}
	}
}

func TestKindString(t *testing.T) {
	if got := KindInstance.String(); got != "instance" {
		t.Errorf("KindInstance.String() = %q, want %q", got, "instance")
	}
	if got := Kind(99).String(); got != "unknown_kind_99" {
		t.Errorf("Kind(99).String() = %q, want %q", got, "unknown_kind_99")
	}
}

func TestRepr(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{String("hi"), `"hi"`},
		{Number(1), "1"},
		{Nil{}, "nil"},
		{Bool(true), "true"},
	}
	for _, tt := range tests {
		if got := Repr(tt.v); got != tt.want {
			t.Errorf("Repr(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestDescribe(t *testing.T) {
	in := New(WithOutput(&Transcript{}))
	err := run(t, in, `
class A { m() {} }
class B < A { init(x) { this.x = x; } zed() {} }
fun add(a, b) { return a + b; }
var lambda = fun (x) { return x; };
var b = B("one");
var bare = A();
var s = "str";
`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	tests := []struct {
		name string
		want string
	}{
		{"A", "class A { m }"},
		{"B", "class B < A { init, zed }"},
		{"add", "fun add/2"},
		{"lambda", "fun <lambda>/1"},
		{"b", `B instance { x = "one" }`},
		{"bare", "A instance"},
		{"s", `"str"`},
		{"clock", "<native fn>"},
	}
	for _, tt := range tests {
		v, ok := in.Globals().Lookup(tt.name)
		if !ok {
			t.Fatalf("global %s not defined", tt.name)
		}
		if got := Describe(v); got != tt.want {
			t.Errorf("Describe(%s) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestEnvironment(t *testing.T) {
	name := func(s string) compiler.Token {
		return compiler.Token{Type: compiler.TokenIdentifier, Lexeme: s, Pos: compiler.Position{Line: 4}}
	}

	global := NewEnvironment(nil)
	global.Define("a", Number(1))
	inner := NewEnvironment(global)
	inner.Define("b", Number(2))

	if v, err := inner.Get(name("a")); err != nil || v != Number(1) {
		t.Errorf("Get(a) = %v, %v, want 1", v, err)
	}
	if err := inner.Assign(name("a"), Number(3)); err != nil {
		t.Fatalf("Assign(a): %v", err)
	}
	if v := global.GetAt(0, "a"); v != Number(3) {
		t.Errorf("global a = %v, want 3", v)
	}
	if v := inner.GetAt(1, "a"); v != Number(3) {
		t.Errorf("GetAt(1, a) = %v, want 3", v)
	}
	inner.AssignAt(0, "b", String("x"))
	if v, ok := inner.Lookup("b"); !ok || v != String("x") {
		t.Errorf("Lookup(b) = %v, %v, want x", v, ok)
	}
	if inner.Ancestor(1) != global {
		t.Error("Ancestor(1) is not the enclosing environment")
	}
	if inner.Enclosing() != global {
		t.Error("Enclosing() is not the enclosing environment")
	}

	_, err := inner.Get(name("missing"))
	rerr, ok := AsRuntimeError(err)
	if !ok {
		t.Fatalf("Get(missing) error = %v, want runtime error", err)
	}
	if rerr.Message != "Undefined variable 'missing'." {
		t.Errorf("message = %q", rerr.Message)
	}
	if err := inner.Assign(name("missing"), Nil{}); err == nil {
		t.Error("Assign(missing) succeeded, want error")
	}

	global.Define("c", Nil{})
	names := global.Names()
	if strings.Join(names, ",") != "a,c" {
		t.Errorf("Names() = %v, want [a c]", names)
	}
}

func TestEnvironmentMissingBindingPanics(t *testing.T) {
	global := NewEnvironment(nil)
	global.Define("a", Number(1))
	inner := NewEnvironment(global)

	tests := []struct {
		name string
		fn   func()
	}{
		{"GetAt wrong depth", func() { inner.GetAt(0, "a") }},
		{"GetAt unknown name", func() { inner.GetAt(1, "b") }},
		{"AssignAt wrong depth", func() { inner.AssignAt(0, "a", Nil{}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				r := recover()
				if r == nil {
					t.Fatal("no panic")
				}
				if msg, _ := r.(string); !strings.Contains(msg, "no binding") {
					t.Errorf("panic = %v, want a missing binding message", r)
				}
			}()
			tt.fn()
		})
	}
	if _, ok := inner.Lookup("a"); ok {
		t.Error("failed AssignAt created a binding")
	}
}

func TestRuntimeErrorFormat(t *testing.T) {
	err := &RuntimeError{
		Token:   compiler.Token{Type: compiler.TokenMinus, Lexeme: "-", Pos: compiler.Position{Line: 7, Column: 3}},
		Message: "Operand must be a number.",
	}
	if got, want := err.Error(), "Operand must be a number.\n[line 7]"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	d := err.Diagnostic()
	if d.Stage != compiler.StageRuntime {
		t.Errorf("Stage = %v, want runtime", d.Stage)
	}
	if d.Pos.Line != 7 || d.Lexeme != "-" || d.AtEnd {
		t.Errorf("Diagnostic() = %+v", d)
	}
}

func TestStatePersistsAcrossInterpretCalls(t *testing.T) {
	out := &Transcript{}
	in := New(WithOutput(out))

	inputs := []string{
		"var greeting = \"hi\";",
		"fun shout(s) { return s + \"!\"; }",
		"class Box { init(v) { this.v = v; } }",
		"var b = Box(shout(greeting));",
		"print b.v;",
	}
	for _, src := range inputs {
		if err := run(t, in, src); err != nil {
			t.Fatalf("run %q: %v", src, err)
		}
	}

	if got := out.Lines(); len(got) != 1 || got[0] != "hi!" {
		t.Errorf("output = %q, want [hi!]", got)
	}
	if _, ok := in.Globals().Lookup("shout"); !ok {
		t.Error("shout not defined in globals")
	}
}

func TestGlobalsSurviveRuntimeError(t *testing.T) {
	in := New(WithOutput(&Transcript{}))
	err := run(t, in, "var kept = 1; print nil + 1; var lost = 2;")
	if _, ok := AsRuntimeError(err); !ok {
		t.Fatalf("error = %v, want runtime error", err)
	}
	if _, ok := in.Globals().Lookup("kept"); !ok {
		t.Error("kept was not defined before the fault")
	}
	if _, ok := in.Globals().Lookup("lost"); ok {
		t.Error("lost was defined after the fault")
	}

	// The interpreter is usable again at global scope.
	if err := run(t, in, "var again = kept + 1;"); err != nil {
		t.Fatalf("rerun: %v", err)
	}
}

func TestEvaluate(t *testing.T) {
	in := New(WithOutput(&Transcript{}))
	if err := run(t, in, "var x = 20;"); err != nil {
		t.Fatal(err)
	}

	var diags compiler.Diagnostics
	tokens := compiler.NewLexer("x * 2 + 2;").ScanTokens(&diags)
	expr := compiler.NewParser(tokens, &diags).ParseExpression()
	if expr == nil {
		t.Fatalf("ParseExpression: %v", diags)
	}
	r := compiler.NewResolver(&diags)
	in.Resolve(r.ResolveExpr(expr))

	v, err := in.Evaluate(expr)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if v != Number(42) {
		t.Errorf("Evaluate = %v, want 42", v)
	}
}

func TestWithNatives(t *testing.T) {
	var seen []Value
	record := &Native{
		Name: "record",
		Args: 2,
		Fn: func(args []Value) (Value, error) {
			seen = append(seen, args...)
			return String("ok"), nil
		},
	}
	out := &Transcript{}
	in := New(WithOutput(out), WithNatives(record))

	if err := run(t, in, `print record(1, "two"); print record;`); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 || seen[0] != Number(1) || seen[1] != String("two") {
		t.Errorf("native args = %v", seen)
	}
	assertLines(t, "output", out.Lines(), []string{"ok", "<native fn>"})

	err := run(t, in, "record(1);")
	rerr, ok := AsRuntimeError(err)
	if !ok || rerr.Message != "Expected 2 arguments but got 1." {
		t.Errorf("arity error = %v", err)
	}
}

func TestClockIsANumber(t *testing.T) {
	out := &Transcript{}
	in := New(WithOutput(out))
	if err := run(t, in, "var t = clock(); print t > 0; print clock() >= t;"); err != nil {
		t.Fatal(err)
	}
	assertLines(t, "output", out.Lines(), []string{"true", "true"})
}

type failingPrinter struct{}

var errClosed = errors.New("sink closed")

func (failingPrinter) Print(string) error { return errClosed }

func TestPrinterErrorIsNotARuntimeError(t *testing.T) {
	in := New(WithOutput(failingPrinter{}))
	err := run(t, in, "print 1;")
	if !errors.Is(err, errClosed) {
		t.Fatalf("error = %v, want %v", err, errClosed)
	}
	if _, ok := AsRuntimeError(err); ok {
		t.Error("printer failure reported as a runtime error")
	}
}

func TestIdenticalExpressionsResolveIndependently(t *testing.T) {
	// Both `a` references are textually identical but bind differently.
	out := &Transcript{}
	in := New(WithOutput(out))
	src := `
var a = "outer";
{
  print a;
  var a = "inner";
  print a;
}
`
	if err := run(t, in, src); err != nil {
		t.Fatal(err)
	}
	assertLines(t, "output", out.Lines(), []string{"outer", "inner"})
}

func TestWriterPrinter(t *testing.T) {
	var b strings.Builder
	in := New(WithOutput(WriterPrinter{W: &b}))
	if err := run(t, in, `print "a"; print 2;`); err != nil {
		t.Fatal(err)
	}
	if got := b.String(); got != "a\n2\n" {
		t.Errorf("written = %q, want %q", got, "a\n2\n")
	}
}

func TestTranscript(t *testing.T) {
	var tr Transcript
	if tr.String() != "" {
		t.Errorf("empty String() = %q", tr.String())
	}
	_ = tr.Print("x")
	_ = tr.Print("y")
	if got := tr.String(); got != "x\ny\n" {
		t.Errorf("String() = %q", got)
	}
	lines := tr.Lines()
	lines[0] = "mutated"
	if tr.Lines()[0] != "x" {
		t.Error("Lines() shares storage with the transcript")
	}
	tr.Reset()
	if len(tr.Lines()) != 0 {
		t.Errorf("after Reset, Lines() = %q", tr.Lines())
	}
}
