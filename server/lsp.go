// Package server exposes the Lox front end to editors over the Language
// Server Protocol.
package server

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf16"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/treelox/compiler"
	"github.com/chazu/treelox/interpreter"
	"github.com/chazu/treelox/session"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "lox-lsp"

// Commands accepted by workspace/executeCommand.
const (
	// CommandRun runs a document in a fresh session. Arguments: [uri].
	CommandRun = "lox.run"
	// CommandEval evaluates source in the document's session.
	// Arguments: [uri, source].
	CommandEval = "lox.eval"
)

// document is the server's view of one open file.
type document struct {
	text     string
	analysis *session.Analysis
	// good is the most recent analysis without diagnostics; hover and
	// completion fall back to it while the text is broken.
	good *session.Analysis
}

// RunResult is returned by the run and eval commands.
type RunResult struct {
	Value       string   `json:"value,omitempty"`
	Output      []string `json:"output"`
	Diagnostics []string `json:"diagnostics"`
	ExitCode    int      `json:"exitCode"`
}

// LspServer bridges LSP editor features to the Lox front end via Worker.
type LspServer struct {
	worker   *Worker
	sessions *SessionStore
	log      commonlog.Logger

	mu   sync.Mutex
	docs map[string]*document // URI → document

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server.
func NewLSP() *LspServer {
	s := &LspServer{
		worker:   NewWorker(),
		sessions: NewSessionStore(),
		log:      commonlog.GetLogger("lox.server"),
		docs:     make(map[string]*document),
		version:  "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
		TextDocumentDefinition: s.textDocumentDefinition,

		WorkspaceExecuteCommand: s.workspaceExecuteCommand,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	s.log.Infof("%s %s initializing", lspName, s.version)

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true
	capabilities.ExecuteCommandProvider = &protocol.ExecuteCommandOptions{
		Commands: []string{CommandRun, CommandEval},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	s.worker.Stop()
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.update(ctx, params.TextDocument.URI, params.TextDocument.Text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.update(ctx, params.TextDocument.URI, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()
	s.sessions.Destroy(string(uri))

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// update stores new text, analyses it and publishes the diagnostics.
func (s *LspServer) update(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	a, err := s.analyze(string(uri), text)
	if err != nil {
		s.log.Errorf("analyze %s: %s", uri, err)
		return
	}

	diagnostics := make([]protocol.Diagnostic, 0, len(a.Diagnostics))
	for _, d := range a.Diagnostics {
		diagnostics = append(diagnostics, toProtocolDiagnostic(a.Source, d))
	}

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// analyze records text for uri along with its analysis.
func (s *LspServer) analyze(uri, text string) (*session.Analysis, error) {
	a, err := s.worker.Analyze(text)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[uri]
	if !ok {
		doc = &document{}
		s.docs[uri] = doc
	}
	doc.text = text
	doc.analysis = a
	if a.OK() {
		doc.good = a
		s.log.Debugf("%s: program %s", uri, a.Hash)
	}
	return a, nil
}

// snapshot returns a copy of the document for uri.
func (s *LspServer) snapshot(uri protocol.DocumentUri) (document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[string(uri)]
	if !ok {
		return document{}, false
	}
	return *doc, true
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	doc, ok := s.snapshot(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	prefix := extractPrefix(doc.text, params.Position)
	if prefix == "" {
		return nil, nil
	}
	return s.complete(doc.good, prefix), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc, ok := s.snapshot(params.TextDocument.URI)
	if !ok || doc.good == nil {
		return nil, nil
	}
	return s.hover(doc.good, doc.text, params.Position), nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	doc, ok := s.snapshot(params.TextDocument.URI)
	if !ok || doc.good == nil {
		return nil, nil
	}
	locations := s.definition(params.TextDocument.URI, doc.good, doc.text, params.Position)
	if len(locations) == 0 {
		return nil, nil
	}
	return locations, nil
}

func (s *LspServer) workspaceExecuteCommand(ctx *glsp.Context, params *protocol.ExecuteCommandParams) (any, error) {
	uri, ok := stringArg(params.Arguments, 0)
	if !ok {
		return nil, fmt.Errorf("%s: expected a document URI argument", params.Command)
	}

	switch params.Command {
	case CommandRun:
		doc, ok := s.snapshot(protocol.DocumentUri(uri))
		if !ok {
			return nil, fmt.Errorf("%s: document %s is not open", params.Command, uri)
		}
		return s.worker.Do(func() any {
			return s.run(uri, doc.text)
		})

	case CommandEval:
		source, ok := stringArg(params.Arguments, 1)
		if !ok {
			return nil, fmt.Errorf("%s: expected a source argument", params.Command)
		}
		return s.worker.Do(func() any {
			return s.eval(uri, source)
		})
	}
	return nil, fmt.Errorf("unknown command %q", params.Command)
}

// --- Session-backed logic (called on worker goroutine) ---

func (s *LspServer) run(uri, text string) *RunResult {
	sess := s.sessions.Create(uri)
	var diags compiler.Diagnostics
	err := sess.Run(text, &diags)
	return &RunResult{
		Output:      sess.Output.Lines(),
		Diagnostics: formatDiagnostics(diags),
		ExitCode:    session.ExitCode(err),
	}
}

func (s *LspServer) eval(uri, source string) *RunResult {
	sess, ok := s.sessions.Get(uri)
	if !ok {
		sess = s.sessions.Create(uri)
	}
	sess.Output.Reset()

	var diags compiler.Diagnostics
	value, err := sess.Eval(source, &diags)
	return &RunResult{
		Value:       value,
		Output:      sess.Output.Lines(),
		Diagnostics: formatDiagnostics(diags),
		ExitCode:    session.ExitCode(err),
	}
}

// --- Analysis-backed logic ---

func (s *LspServer) complete(a *session.Analysis, prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	seen := make(map[string]bool)
	add := func(label, detail string, kind protocol.CompletionItemKind) {
		if seen[label] || !strings.HasPrefix(label, prefix) {
			return
		}
		seen[label] = true
		labelCopy, detailCopy := label, detail
		items = append(items, protocol.CompletionItem{
			Label:      label,
			Kind:       &kind,
			Detail:     &detailCopy,
			InsertText: &labelCopy,
		})
	}

	// Names declared in the document
	if a != nil {
		for _, sym := range a.Symbols {
			add(sym.Name.Lexeme, sym.Kind.String(), completionKind(sym.Kind))
		}
	}

	for _, n := range interpreter.StandardNatives() {
		add(n.Name, "native", protocol.CompletionItemKindFunction)
	}

	for _, kw := range compiler.Keywords() {
		add(kw, "keyword", protocol.CompletionItemKindKeyword)
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Label < items[j].Label })

	// Limit results
	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}

	return items
}

func completionKind(k compiler.SymbolKind) protocol.CompletionItemKind {
	switch k {
	case compiler.SymbolClass:
		return protocol.CompletionItemKindClass
	case compiler.SymbolFunction:
		return protocol.CompletionItemKindFunction
	}
	return protocol.CompletionItemKindVariable
}

// symbolAt finds the declaration under the cursor: a declaring name, a
// local reference, or failing that a global with the same name.
func symbolAt(a *session.Analysis, text string, pos protocol.Position) *compiler.Symbol {
	if sym := a.SymbolAt(fromProtocolPosition(text, pos)); sym != nil {
		return sym
	}
	word := extractWord(text, pos)
	if word == "" {
		return nil
	}
	return a.Global(word)
}

func (s *LspServer) hover(a *session.Analysis, text string, pos protocol.Position) *protocol.Hover {
	sym := symbolAt(a, text, pos)
	if sym == nil {
		return nil
	}

	var b strings.Builder
	b.WriteString("```lox\n")
	switch decl := declaration(a.Program, sym.Name).(type) {
	case *compiler.ClassStmt:
		b.WriteString("class " + decl.Name.Lexeme)
		if decl.Superclass != nil {
			b.WriteString(" < " + decl.Superclass.Name.Lexeme)
		}
		b.WriteString("\n```\n\n")
		if len(decl.Methods) > 0 {
			names := make([]string, len(decl.Methods))
			for i, m := range decl.Methods {
				names[i] = "`" + m.Name.Lexeme + "`"
			}
			fmt.Fprintf(&b, "Methods: %s\n\n", strings.Join(names, ", "))
		}
	case *compiler.FunctionStmt:
		params := make([]string, len(decl.Params))
		for i, p := range decl.Params {
			params[i] = p.Lexeme
		}
		fmt.Fprintf(&b, "fun %s(%s)\n```\n\n", decl.Name.Lexeme, strings.Join(params, ", "))
	default:
		fmt.Fprintf(&b, "(%s) %s\n```\n\n", sym.Kind, sym.Name.Lexeme)
	}

	scope := "local"
	if sym.Global {
		scope = "global"
	}
	fmt.Fprintf(&b, "Declared on line %d (%s).", sym.Name.Pos.Line, scope)

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
	}
}

func (s *LspServer) definition(uri protocol.DocumentUri, a *session.Analysis, text string, pos protocol.Position) []protocol.Location {
	sym := symbolAt(a, text, pos)
	if sym == nil {
		return nil
	}
	return []protocol.Location{{
		URI:   uri,
		Range: tokenRange(a.Source, sym.Name.Pos, sym.Name.Lexeme),
	}}
}

// declaration finds the function or class statement whose name is tok.
func declaration(stmts []compiler.Stmt, tok compiler.Token) compiler.Stmt {
	for _, stmt := range stmts {
		if d := declarationIn(stmt, tok); d != nil {
			return d
		}
	}
	return nil
}

func declarationIn(stmt compiler.Stmt, tok compiler.Token) compiler.Stmt {
	switch s := stmt.(type) {
	case *compiler.FunctionStmt:
		if s.Name.Pos == tok.Pos {
			return s
		}
		return declaration(s.Body, tok)
	case *compiler.ClassStmt:
		if s.Name.Pos == tok.Pos {
			return s
		}
		for _, m := range s.Methods {
			if d := declarationIn(m, tok); d != nil {
				return d
			}
		}
	case *compiler.BlockStmt:
		return declaration(s.Statements, tok)
	case *compiler.IfStmt:
		if d := declarationIn(s.Then, tok); d != nil {
			return d
		}
		if s.Else != nil {
			return declarationIn(s.Else, tok)
		}
	case *compiler.WhileStmt:
		return declarationIn(s.Body, tok)
	}
	return nil
}

// --- Diagnostics ---

// toProtocolDiagnostic converts a diagnostic reported against text.
func toProtocolDiagnostic(text string, d compiler.Diagnostic) protocol.Diagnostic {
	severity := protocol.DiagnosticSeverityError
	source := lspName
	return protocol.Diagnostic{
		Range:    tokenRange(text, d.Pos, d.Lexeme),
		Severity: &severity,
		Source:   &source,
		Message:  d.Message,
	}
}

func formatDiagnostics(diags compiler.Diagnostics) []string {
	out := make([]string, len(diags))
	for i, d := range diags {
		out[i] = session.Format(d)
	}
	return out
}

// --- Position helpers ---
//
// LSP 3.16 counts Position.Character in UTF-16 code units, while compiler
// positions carry byte offsets and rune columns.

func utf16Width(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16Width(r)
	}
	return n
}

// offsetPosition converts a byte offset in text to an LSP position.
func offsetPosition(text string, offset int) protocol.Position {
	offset = min(max(offset, 0), len(text))
	before := text[:offset]
	lineStart := strings.LastIndexByte(before, '\n') + 1
	return protocol.Position{
		Line:      protocol.UInteger(strings.Count(before, "\n")),
		Character: protocol.UInteger(utf16Len(before[lineStart:])),
	}
}

// tokenRange converts a token in text to an LSP range. Empty lexemes
// still cover one character so editors show them.
func tokenRange(text string, pos compiler.Position, lexeme string) protocol.Range {
	start := offsetPosition(text, pos.Offset)
	if lexeme == "" {
		end := start
		end.Character++
		return protocol.Range{Start: start, End: end}
	}
	return protocol.Range{Start: start, End: offsetPosition(text, pos.Offset+len(lexeme))}
}

// fromProtocolPosition converts an LSP position in text to a 1-based line
// and rune column.
func fromProtocolPosition(text string, p protocol.Position) compiler.Position {
	col := int(p.Character)
	if _, c, ok := lineAt(text, p); ok {
		col = c
	}
	return compiler.Position{Line: int(p.Line) + 1, Column: col + 1}
}

// runeIndex converts a UTF-16 offset into line to a rune index, clamped to
// the line length.
func runeIndex(line []rune, units int) int {
	for i, r := range line {
		if units <= 0 {
			return i
		}
		units -= utf16Width(r)
	}
	return len(line)
}

// --- Text extraction helpers ---

func isIdentRune(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}

// lineAt returns the cursor's line as runes and the cursor's rune index in
// it, clamped to the line length.
func lineAt(text string, pos protocol.Position) ([]rune, int, bool) {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return nil, 0, false
	}
	line := []rune(lines[pos.Line])
	return line, runeIndex(line, int(pos.Character)), true
}

// extractPrefix returns the word fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	line, col, ok := lineAt(text, pos)
	if !ok {
		return ""
	}

	// Walk backwards from cursor to find the start of the identifier
	start := col
	for start > 0 && isIdentRune(line[start-1]) {
		start--
	}
	return string(line[start:col])
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	line, col, ok := lineAt(text, pos)
	if !ok {
		return ""
	}

	start := col
	for start > 0 && isIdentRune(line[start-1]) {
		start--
	}
	end := col
	for end < len(line) && isIdentRune(line[end]) {
		end++
	}
	return string(line[start:end])
}

// stringArg returns args[i] when it is a string.
func stringArg(args []any, i int) (string, bool) {
	if i >= len(args) {
		return "", false
	}
	s, ok := args[i].(string)
	return s, ok
}

func boolPtr(b bool) *bool {
	return &b
}
