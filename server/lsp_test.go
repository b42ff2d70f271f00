package server

import (
	"os"
	"strings"
	"testing"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/treelox/compiler"
	"github.com/chazu/treelox/session"
)

// ---------------------------------------------------------------------------
// Shared test infrastructure: one worker serves every test in the package.
// ---------------------------------------------------------------------------

var testWorker *Worker

func TestMain(m *testing.M) {
	testWorker = NewWorker()
	code := m.Run()
	testWorker.Stop()
	os.Exit(code)
}

func newTestLSP() *LspServer {
	return &LspServer{
		worker:   testWorker,
		sessions: NewSessionStore(),
		log:      commonlog.GetLogger("lox.server"),
		docs:     make(map[string]*document),
	}
}

func mustAnalyze(t *testing.T, src string) *session.Analysis {
	t.Helper()
	a, err := session.Analyze(src)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !a.OK() {
		t.Fatalf("diagnostics: %v", a.Diagnostics)
	}
	return a
}

func hoverText(t *testing.T, h *protocol.Hover) string {
	t.Helper()
	mc, ok := h.Contents.(protocol.MarkupContent)
	if !ok {
		t.Fatal("hover contents should be MarkupContent")
	}
	if mc.Kind != protocol.MarkupKindMarkdown {
		t.Errorf("hover markup kind = %q, want %q", mc.Kind, protocol.MarkupKindMarkdown)
	}
	return mc.Value
}

// ---------------------------------------------------------------------------
// Text extraction helpers
// ---------------------------------------------------------------------------

func TestExtractPrefix(t *testing.T) {
	tests := []struct {
		name string
		text string
		pos  protocol.Position
		want string
	}{
		{"simple word", "var counter", protocol.Position{Line: 0, Character: 11}, "counter"},
		{"partial", "print cou", protocol.Position{Line: 0, Character: 9}, "cou"},
		{"empty line", "", protocol.Position{Line: 0, Character: 0}, ""},
		{"multi line", "first line\nsecond line\nObj", protocol.Position{Line: 2, Character: 3}, "Obj"},
		{"after dot", "point.x", protocol.Position{Line: 0, Character: 7}, "x"},
		{"cursor at beginning", "hello", protocol.Position{Line: 0, Character: 0}, ""},
		{"line beyond document", "single line", protocol.Position{Line: 5, Character: 0}, ""},
		{"column beyond line", "abc", protocol.Position{Line: 0, Character: 40}, "abc"},
		{"non ascii before", "var é = ab", protocol.Position{Line: 0, Character: 10}, "ab"},
	}

	for _, tt := range tests {
		if got := extractPrefix(tt.text, tt.pos); got != tt.want {
			t.Errorf("%s: extractPrefix = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestExtractWord(t *testing.T) {
	tests := []struct {
		name string
		text string
		pos  protocol.Position
		want string
	}{
		{"simple word", "hello world", protocol.Position{Line: 0, Character: 3}, "hello"},
		{"at end of word", "hello world", protocol.Position{Line: 0, Character: 5}, "hello"},
		{"second word", "hello world", protocol.Position{Line: 0, Character: 8}, "world"},
		{"empty line", "", protocol.Position{Line: 0, Character: 0}, ""},
		{"multi line", "first\nObject", protocol.Position{Line: 1, Character: 3}, "Object"},
		{"underscore", "my_var", protocol.Position{Line: 0, Character: 3}, "my_var"},
		{"between punctuation", "f(a, b)", protocol.Position{Line: 0, Character: 4}, ""},
		{"line beyond document", "single line", protocol.Position{Line: 5, Character: 0}, ""},
	}

	for _, tt := range tests {
		if got := extractWord(tt.text, tt.pos); got != tt.want {
			t.Errorf("%s: extractWord = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestStringArg(t *testing.T) {
	args := []any{"file:///a.lox", 3}
	if s, ok := stringArg(args, 0); !ok || s != "file:///a.lox" {
		t.Errorf("stringArg(0) = %q, %v", s, ok)
	}
	if _, ok := stringArg(args, 1); ok {
		t.Error("stringArg(1) accepted a number")
	}
	if _, ok := stringArg(args, 2); ok {
		t.Error("stringArg(2) accepted a missing argument")
	}
}

func TestBoolPtr(t *testing.T) {
	if p := boolPtr(true); p == nil || !*p {
		t.Errorf("boolPtr(true) = %v, want pointer to true", p)
	}
	if p := boolPtr(false); p == nil || *p {
		t.Errorf("boolPtr(false) = %v, want pointer to false", p)
	}
}

// ---------------------------------------------------------------------------
// Position conversion
// ---------------------------------------------------------------------------

func TestTokenRange(t *testing.T) {
	text := "var x;\nprint count;"
	r := tokenRange(text, compiler.Position{Offset: 13, Line: 2, Column: 7}, "count")
	if r.Start.Line != 1 || r.Start.Character != 6 || r.End.Line != 1 || r.End.Character != 11 {
		t.Errorf("tokenRange = %+v, want 1:6-1:11", r)
	}

	r = tokenRange(text, compiler.Position{Offset: len(text)}, "")
	if r.Start.Line != 1 || r.End.Character-r.Start.Character != 1 {
		t.Errorf("empty lexeme range = %+v, want width 1 on line 1", r)
	}
}

func TestTokenRangeCountsUTF16(t *testing.T) {
	// The emoji is one rune but two UTF-16 code units.
	text := "print \"😀é\" + count;"
	tokens, _ := compiler.Tokenize(text)
	str, count := tokens[1], tokens[3]

	r := tokenRange(text, str.Pos, str.Lexeme)
	if r.Start.Character != 6 || r.End.Character != 11 {
		t.Errorf("string range = %+v, want 6-11", r)
	}
	r = tokenRange(text, count.Pos, count.Lexeme)
	if r.Start.Character != 14 || r.End.Character != 19 {
		t.Errorf("count range = %+v, want 14-19", r)
	}
}

func TestTokenRangeMultilineLexeme(t *testing.T) {
	text := "var s = \"a\nbc\";"
	tokens, _ := compiler.Tokenize(text)
	str := tokens[3]
	r := tokenRange(text, str.Pos, str.Lexeme)
	if r.Start.Line != 0 || r.Start.Character != 8 || r.End.Line != 1 || r.End.Character != 3 {
		t.Errorf("tokenRange = %+v, want 0:8-1:3", r)
	}
}

func TestFromProtocolPosition(t *testing.T) {
	text := "var 😀 = 1;\nprint abc;"
	tests := []struct {
		pos    protocol.Position
		line   int
		column int
	}{
		{protocol.Position{Line: 0, Character: 0}, 1, 1},
		{protocol.Position{Line: 0, Character: 7}, 1, 7},
		{protocol.Position{Line: 1, Character: 6}, 2, 7},
		{protocol.Position{Line: 5, Character: 2}, 6, 3},
	}
	for _, tt := range tests {
		got := fromProtocolPosition(text, tt.pos)
		if got.Line != tt.line || got.Column != tt.column {
			t.Errorf("fromProtocolPosition(%d:%d) = %d:%d, want %d:%d",
				tt.pos.Line, tt.pos.Character, got.Line, got.Column, tt.line, tt.column)
		}
	}
}

func TestLSP_DefinitionAfterWideCharacters(t *testing.T) {
	lsp := newTestLSP()
	uri := protocol.DocumentUri("file:///wide.lox")
	src := "var s = \"😀😀\"; var total = 1;\nprint total;\n"
	a := mustAnalyze(t, src)

	locations := lsp.definition(uri, a, src, protocol.Position{Line: 1, Character: 8})
	if len(locations) != 1 {
		t.Fatalf("definition = %v, want one location", locations)
	}
	r := locations[0].Range
	if r.Start.Line != 0 || r.Start.Character != 20 || r.End.Character != 25 {
		t.Errorf("Range = %+v, want 0:20-0:25", r)
	}

	// The cursor is on "total" in the declaration, measured in UTF-16.
	h := lsp.hover(a, src, protocol.Position{Line: 0, Character: 22})
	if h == nil || !strings.Contains(hoverText(t, h), "total") {
		t.Errorf("hover at declaration = %v, want total", h)
	}
}

func TestToProtocolDiagnostic(t *testing.T) {
	a, err := session.Analyze("var x = 1;\nprint x +;")
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Diagnostics) != 1 {
		t.Fatalf("diagnostics = %v, want one", a.Diagnostics)
	}

	d := toProtocolDiagnostic(a.Source, a.Diagnostics[0])
	if d.Message != "Expect expression." {
		t.Errorf("Message = %q", d.Message)
	}
	if d.Range.Start.Line != 1 || d.Range.Start.Character != 9 {
		t.Errorf("Range.Start = %+v, want 1:9", d.Range.Start)
	}
	if d.Severity == nil || *d.Severity != protocol.DiagnosticSeverityError {
		t.Error("Severity should be Error")
	}
	if d.Source == nil || *d.Source != lspName {
		t.Errorf("Source = %v, want %q", d.Source, lspName)
	}
}

// ---------------------------------------------------------------------------
// Analysis-backed features
// ---------------------------------------------------------------------------

func TestLSP_Complete(t *testing.T) {
	lsp := newTestLSP()
	a := mustAnalyze(t, "var counter = 0;\nfun count() {}\nclass Counter {}\n")

	items := lsp.complete(a, "co")
	var labels []string
	kinds := make(map[string]protocol.CompletionItemKind)
	for _, item := range items {
		labels = append(labels, item.Label)
		if item.Kind != nil {
			kinds[item.Label] = *item.Kind
		}
	}

	if got, want := strings.Join(labels, ","), "continue,count,counter"; got != want {
		t.Errorf("labels = %s, want %s", got, want)
	}
	if kinds["count"] != protocol.CompletionItemKindFunction {
		t.Errorf("count kind = %v, want Function", kinds["count"])
	}
	if kinds["counter"] != protocol.CompletionItemKindVariable {
		t.Errorf("counter kind = %v, want Variable", kinds["counter"])
	}
	if kinds["continue"] != protocol.CompletionItemKindKeyword {
		t.Errorf("continue kind = %v, want Keyword", kinds["continue"])
	}
}

func TestLSP_CompleteWithoutAnalysis(t *testing.T) {
	lsp := newTestLSP()
	items := lsp.complete(nil, "cl")
	if len(items) != 2 || items[0].Label != "class" || items[1].Label != "clock" {
		t.Errorf("complete(cl) = %v, want class and clock", items)
	}
}

func TestLSP_Hover_Class(t *testing.T) {
	lsp := newTestLSP()
	src := "class A {}\nclass B < A {\n  init(x) {}\n  m() {}\n}\n"
	a := mustAnalyze(t, src)

	h := lsp.hover(a, src, protocol.Position{Line: 1, Character: 6})
	if h == nil {
		t.Fatal("hover on B returned nil")
	}
	text := hoverText(t, h)
	for _, want := range []string{"class B < A", "`init`, `m`", "line 2 (global)"} {
		if !strings.Contains(text, want) {
			t.Errorf("hover = %q, want it to contain %q", text, want)
		}
	}
}

func TestLSP_Hover_GlobalFunctionReference(t *testing.T) {
	lsp := newTestLSP()
	src := "fun add(a, b) { return a + b; }\nprint add(1, 2);\n"
	a := mustAnalyze(t, src)

	h := lsp.hover(a, src, protocol.Position{Line: 1, Character: 7})
	if h == nil {
		t.Fatal("hover on add reference returned nil")
	}
	if text := hoverText(t, h); !strings.Contains(text, "fun add(a, b)") {
		t.Errorf("hover = %q, want the signature", text)
	}
}

func TestLSP_Hover_LocalVariable(t *testing.T) {
	lsp := newTestLSP()
	src := "{\n  var x = 1;\n  print x;\n}\n"
	a := mustAnalyze(t, src)

	h := lsp.hover(a, src, protocol.Position{Line: 2, Character: 8})
	if h == nil {
		t.Fatal("hover on x reference returned nil")
	}
	text := hoverText(t, h)
	if !strings.Contains(text, "(variable) x") || !strings.Contains(text, "line 2 (local)") {
		t.Errorf("hover = %q", text)
	}
}

func TestLSP_Hover_UnknownWord(t *testing.T) {
	lsp := newTestLSP()
	src := "print nothingDeclared;\n"
	a := mustAnalyze(t, src)

	if h := lsp.hover(a, src, protocol.Position{Line: 0, Character: 8}); h != nil {
		t.Errorf("hover on undeclared name = %v, want nil", h)
	}
}

func TestLSP_Definition(t *testing.T) {
	lsp := newTestLSP()
	uri := protocol.DocumentUri("file:///def.lox")
	src := "fun add(a, b) { return a + b; }\nprint add(1, 2);\n"
	a := mustAnalyze(t, src)

	locations := lsp.definition(uri, a, src, protocol.Position{Line: 1, Character: 7})
	if len(locations) != 1 {
		t.Fatalf("definition = %v, want one location", locations)
	}
	loc := locations[0]
	if loc.URI != uri {
		t.Errorf("URI = %q, want %q", loc.URI, uri)
	}
	if loc.Range.Start.Line != 0 || loc.Range.Start.Character != 4 || loc.Range.End.Character != 7 {
		t.Errorf("Range = %+v, want 0:4-0:7", loc.Range)
	}

	if got := lsp.definition(uri, a, src, protocol.Position{Line: 1, Character: 0}); len(got) != 0 {
		t.Errorf("definition on keyword = %v, want none", got)
	}
}

func TestLSP_AnalyzeKeepsLastGoodAnalysis(t *testing.T) {
	lsp := newTestLSP()
	uri := "file:///doc.lox"

	good, err := lsp.analyze(uri, "var a = 1;")
	if err != nil || !good.OK() {
		t.Fatalf("analyze good: %v %v", err, good.Diagnostics)
	}
	bad, err := lsp.analyze(uri, "var a = ;")
	if err != nil || bad.OK() {
		t.Fatalf("analyze bad: %v, OK = %v", err, bad.OK())
	}

	doc, ok := lsp.snapshot(protocol.DocumentUri(uri))
	if !ok {
		t.Fatal("document not stored")
	}
	if doc.text != "var a = ;" {
		t.Errorf("text = %q", doc.text)
	}
	if doc.analysis != bad || doc.good != good {
		t.Error("snapshot does not hold the latest and last good analyses")
	}
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

func TestLSP_RunAndEval(t *testing.T) {
	lsp := newTestLSP()
	uri := "file:///run.lox"

	res := lsp.run(uri, "var x = 2;\nprint x;")
	if res.ExitCode != session.ExitOK {
		t.Fatalf("run ExitCode = %d, diagnostics %v", res.ExitCode, res.Diagnostics)
	}
	if len(res.Output) != 1 || res.Output[0] != "2" {
		t.Errorf("run Output = %q, want [2]", res.Output)
	}

	res = lsp.eval(uri, "x * 3")
	if res.Value != "6" || res.ExitCode != session.ExitOK {
		t.Errorf("eval = %+v, want value 6", res)
	}
	if len(res.Output) != 0 {
		t.Errorf("eval Output = %q, want output of this evaluation only", res.Output)
	}
}

func TestLSP_EvalWithoutRun(t *testing.T) {
	lsp := newTestLSP()
	res := lsp.eval("file:///fresh.lox", "x")
	if res.ExitCode != session.ExitRuntime {
		t.Errorf("ExitCode = %d, want %d", res.ExitCode, session.ExitRuntime)
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0] != "Undefined variable 'x'.\n[line 1]" {
		t.Errorf("Diagnostics = %q", res.Diagnostics)
	}
}

func TestLSP_RunStaticError(t *testing.T) {
	lsp := newTestLSP()
	res := lsp.run("file:///bad.lox", "print 1;\nreturn;")
	if res.ExitCode != session.ExitStatic {
		t.Errorf("ExitCode = %d, want %d", res.ExitCode, session.ExitStatic)
	}
	if len(res.Output) != 0 {
		t.Errorf("Output = %q, want none", res.Output)
	}
	want := "[line 2:1] Error at 'return': Can't return from top-level code."
	if len(res.Diagnostics) != 1 || res.Diagnostics[0] != want {
		t.Errorf("Diagnostics = %q, want [%q]", res.Diagnostics, want)
	}
}
