package compiler

import (
	"strings"
	"testing"
)

// parseExpr parses src as a single expression and fails on any diagnostic.
func parseExpr(t *testing.T, src string) Expr {
	t.Helper()
	var diags Diagnostics
	tokens := NewLexer(src).ScanTokens(&diags)
	p := NewParser(tokens, &diags)
	expr := p.ParseExpression()
	if len(diags) > 0 {
		t.Fatalf("parse %q: %v", src, diags)
	}
	return expr
}

// parseProgram parses src as a program and returns any diagnostics.
func parseProgram(src string) ([]Stmt, Diagnostics) {
	var diags Diagnostics
	stmts, _ := ParseSource(src, &diags)
	return stmts, diags
}

func TestParserPrecedence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1 + 2 * 3", "(+ 1 (* 2 3))"},
		{"(1 + 2) * 3", "(* (group (+ 1 2)) 3)"},
		{"a - b - c", "(- (- a b) c)"},
		{"10 / 2 / 5", "(/ (/ 10 2) 5)"},
		{"-a - -b", "(- (- a) (- b))"},
		{"!!true", "(! (! true))"},
		{"!true == false", "(== (! true) false)"},
		{"1 < 2 == 3 >= 4", "(== (< 1 2) (>= 3 4))"},
		{"a or b and c", "(or a (and b c))"},
		{"a and b or c", "(or (and a b) c)"},
		{"a = b = c", "(= a (= b c))"},
		{"a = 1 + 2", "(= a (+ 1 2))"},
	}

	for _, tc := range tests {
		if got := Print(parseExpr(t, tc.input)); got != tc.want {
			t.Errorf("Print(%q) = %s, want %s", tc.input, got, tc.want)
		}
	}
}

func TestParserPrimary(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"42", "42"},
		{"1.5", "1.5"},
		{`"hi there"`, `"hi there"`},
		{"nil", "nil"},
		{"true", "true"},
		{"false", "false"},
		{"this", "this"},
		{"super.m", "super.m"},
		{"foo", "foo"},
	}

	for _, tc := range tests {
		if got := Print(parseExpr(t, tc.input)); got != tc.want {
			t.Errorf("Print(%q) = %s, want %s", tc.input, got, tc.want)
		}
	}
}

func TestParserCallsAndProperties(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"f()", "(call f)"},
		{"f(1, 2)", "(call f 1 2)"},
		{"f(1)(2)", "(call (call f 1) 2)"},
		{"a.b", "(.b a)"},
		{"a.b.c", "(.c (.b a))"},
		{"a.b(1).c", "(.c (call (.b a) 1))"},
		{"a.b = 1", "(=b a 1)"},
		{"a.b.c = 1", "(=c (.b a) 1)"},
		{"fun (x) { return x; }", "(fun (x) (return x))"},
		{"fun () {}", "(fun ())"},
	}

	for _, tc := range tests {
		if got := Print(parseExpr(t, tc.input)); got != tc.want {
			t.Errorf("Print(%q) = %s, want %s", tc.input, got, tc.want)
		}
	}
}

func TestParserStatements(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"print 1;", "(print 1)"},
		{"1 + 1;", "(; (+ 1 1))"},
		{"var x;", "(var x)"},
		{"var x = 1;", "(var x 1)"},
		{"{ var x = 1; print x; }", "(block (var x 1) (print x))"},
		{"if (a) print 1;", "(if a (print 1))"},
		{"if (a) print 1; else print 2;", "(if-else a (print 1) (print 2))"},
		{"while (a) print 1;", "(while a (print 1))"},
		{"while (true) { break; continue; }", "(while true (block (break) (continue)))"},
		{"fun f(a, b) { return a; }", "(fun f(a b) (return a))"},
		{"fun f() { return; }", "(fun f() (return))"},
		{"fun () {};", "(; (fun ()))"},
		{"class A {}", "(class A)"},
		{"class B < A { init(x) { this.x = x; } }", "(class B < A (fun init(x) (; (=x this x))))"},
	}

	for _, tc := range tests {
		stmts, diags := parseProgram(tc.input)
		if len(diags) > 0 {
			t.Errorf("parse %q: %v", tc.input, diags)
			continue
		}
		if len(stmts) != 1 {
			t.Errorf("parse %q: got %d statements, want 1", tc.input, len(stmts))
			continue
		}
		if got := Print(stmts[0]); got != tc.want {
			t.Errorf("Print(%q) = %s, want %s", tc.input, got, tc.want)
		}
	}
}

func TestParserForDesugaring(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{
			"for (var i = 0; i < 3; i = i + 1) print i;",
			"(block (var i 0) (while (< i 3) (print i) (= i (+ i 1))))",
		},
		{"for (;;) break;", "(block (while true (break)))"},
		{"for (i = 0; i < 1;) {}", "(block (; (= i 0)) (while (< i 1) (block)))"},
	}

	for _, tc := range tests {
		stmts, diags := parseProgram(tc.input)
		if len(diags) > 0 {
			t.Fatalf("parse %q: %v", tc.input, diags)
		}
		if got := Print(stmts[0]); got != tc.want {
			t.Errorf("Print(%q) = %s, want %s", tc.input, got, tc.want)
		}
	}

	// The increment lives on the loop node, never inside the body.
	stmts, _ := parseProgram("for (;; i = i + 1) { continue; }")
	loop, ok := stmts[0].(*BlockStmt).Statements[0].(*WhileStmt)
	if !ok {
		t.Fatalf("desugared loop = %T, want *WhileStmt", stmts[0].(*BlockStmt).Statements[0])
	}
	if loop.Increment == nil {
		t.Error("Increment = nil, want the increment expression")
	}
	if body := loop.Body.(*BlockStmt); len(body.Statements) != 1 {
		t.Errorf("body has %d statements, want 1", len(body.Statements))
	}
}

func TestParserErrors(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		lexeme string
	}{
		{"var 1 = 2;", "Expect variable name.", "1"},
		{"print (1 + 2;", "Expect ')' after expression.", ";"},
		{"a + b = c;", "Invalid assignment target.", "="},
		{"== 1;", "Missing left-hand operand.", "=="},
		{"* 2;", "Missing left-hand operand.", "*"},
		{"+ 3;", "Missing left-hand operand.", "+"},
		{"super;", "Expect '.' after 'super'.", ";"},
		{"class { }", "Expect class name.", "{"},
		{"fun f(1) {}", "Expect parameter name.", "1"},
		{"if a) print 1;", "Expect '(' after 'if'.", "a"},
		{"foo.;", "Expect property name after '.'.", ";"},
		{";", "Expect expression.", ";"},
	}

	for _, tc := range tests {
		_, diags := parseProgram(tc.input)
		if len(diags) != 1 {
			t.Errorf("parse %q: diagnostics = %v, want 1", tc.input, diags)
			continue
		}
		d := diags[0]
		if d.Message != tc.want {
			t.Errorf("parse %q: message = %q, want %q", tc.input, d.Message, tc.want)
		}
		if d.Lexeme != tc.lexeme {
			t.Errorf("parse %q: lexeme = %q, want %q", tc.input, d.Lexeme, tc.lexeme)
		}
		if d.Stage != StageParse {
			t.Errorf("parse %q: stage = %v, want parse", tc.input, d.Stage)
		}
	}
}

func TestParserErrorAtEnd(t *testing.T) {
	_, diags := parseProgram("print 1")
	if len(diags) != 1 {
		t.Fatalf("diagnostics = %v, want 1", diags)
	}
	if !diags[0].AtEnd {
		t.Error("AtEnd = false, want true")
	}
	if diags[0].Message != "Expect ';' after value." {
		t.Errorf("message = %q", diags[0].Message)
	}
}

func TestParserSynchronizes(t *testing.T) {
	stmts, diags := parseProgram("var = 1; print 2; var ;")
	if len(diags) != 2 {
		t.Fatalf("diagnostics = %v, want 2", diags)
	}
	if len(stmts) != 1 || Print(stmts[0]) != "(print 2)" {
		t.Errorf("surviving statements = %v, want (print 2)", stmts)
	}
}

func TestParserArityLimit(t *testing.T) {
	args := func(n int) string {
		parts := make([]string, n)
		for i := range parts {
			parts[i] = "1"
		}
		return strings.Join(parts, ", ")
	}
	params := func(n int) string {
		parts := make([]string, n)
		for i := range parts {
			parts[i] = "p" + strings.Repeat("x", i)
		}
		return strings.Join(parts, ", ")
	}

	if _, diags := parseProgram("f(" + args(255) + ");"); len(diags) != 0 {
		t.Errorf("255 arguments: %v, want no errors", diags)
	}
	_, diags := parseProgram("f(" + args(256) + ");")
	if len(diags) != 1 || diags[0].Message != "Can't have more than 255 arguments." {
		t.Errorf("256 arguments: %v", diags)
	}

	if _, diags := parseProgram("fun f(" + params(255) + ") {}"); len(diags) != 0 {
		t.Errorf("255 parameters: %v, want no errors", diags)
	}
	_, diags = parseProgram("fun f(" + params(256) + ") {}")
	if len(diags) != 1 || diags[0].Message != "Can't have more than 255 parameters." {
		t.Errorf("256 parameters: %v", diags)
	}
}

func TestParseExpressionTrailing(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
	}{
		{"1 + 2", true},
		{"1 + 2;", true},
		{"1 + 2; 3", false},
		{"var x = 1;", false},
		{"* 2", false},
		{"a + b = c", false},
	}

	for _, tc := range tests {
		var diags Diagnostics
		p := NewParser(NewLexer(tc.input).ScanTokens(&diags), &diags)
		expr := p.ParseExpression()
		if ok := expr != nil && !p.HadError(); ok != tc.ok {
			t.Errorf("ParseExpression(%q) ok = %v, want %v (%v)", tc.input, ok, tc.ok, diags)
		}
	}
}

func TestParserNodeIdentity(t *testing.T) {
	stmts, diags := parseProgram("print a; print a;")
	if len(diags) != 0 {
		t.Fatal(diags)
	}
	first := stmts[0].(*PrintStmt).Expr
	second := stmts[1].(*PrintStmt).Expr
	if first == second {
		t.Error("identical expressions at different positions share a node")
	}
}
