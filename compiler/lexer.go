package compiler

import (
	"fmt"
	"strconv"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for Lox source
// ---------------------------------------------------------------------------

// Lexer tokenizes Lox source code.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      rune // current character
	eof     bool // current position is past the end of input
	line    int  // current line (1-based)
	column  int  // rune column of ch (1-based)
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
	}
	l.readChar()
	return l
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		if !l.eof {
			l.column++
		}
		l.ch = 0
		l.eof = true
		l.pos = l.readPos
		return
	}

	// The newline being left behind starts a new line.
	if l.readPos > 0 && l.ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}

	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

// position returns the current position.
func (l *Lexer) position() Position {
	return Position{
		Offset: l.pos,
		Line:   l.line,
		Column: l.column,
	}
}

// match consumes the current character if it equals want.
func (l *Lexer) match(want rune) bool {
	if l.eof || l.ch != want {
		return false
	}
	l.readChar()
	return true
}

func (l *Lexer) token(t TokenType, start int, pos Position) Token {
	return Token{Type: t, Lexeme: l.input[start:l.pos], Pos: pos}
}

// NextToken returns the next token. Lexical errors come back as TokenError
// tokens whose lexeme is the message; the lexer stays usable afterwards.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	pos := l.position()
	start := l.pos

	if l.eof {
		return Token{Type: TokenEOF, Pos: pos}
	}

	ch := l.ch
	switch {
	case isDigit(ch):
		return l.readNumber(pos)
	case isLetter(ch) || ch == '_':
		return l.readIdentifierOrKeyword(pos)
	case ch == '"':
		return l.readString(pos)
	}

	l.readChar()
	switch ch {
	case '(':
		return l.token(TokenLParen, start, pos)
	case ')':
		return l.token(TokenRParen, start, pos)
	case '{':
		return l.token(TokenLBrace, start, pos)
	case '}':
		return l.token(TokenRBrace, start, pos)
	case ',':
		return l.token(TokenComma, start, pos)
	case '.':
		return l.token(TokenDot, start, pos)
	case '-':
		return l.token(TokenMinus, start, pos)
	case '+':
		return l.token(TokenPlus, start, pos)
	case ';':
		return l.token(TokenSemicolon, start, pos)
	case '*':
		return l.token(TokenStar, start, pos)
	case '/':
		return l.token(TokenSlash, start, pos)
	case '!':
		if l.match('=') {
			return l.token(TokenBangEqual, start, pos)
		}
		return l.token(TokenBang, start, pos)
	case '=':
		if l.match('=') {
			return l.token(TokenEqualEqual, start, pos)
		}
		return l.token(TokenEqual, start, pos)
	case '<':
		if l.match('=') {
			return l.token(TokenLessEqual, start, pos)
		}
		return l.token(TokenLess, start, pos)
	case '>':
		if l.match('=') {
			return l.token(TokenGreaterEqual, start, pos)
		}
		return l.token(TokenGreater, start, pos)
	}

	return Token{Type: TokenError, Lexeme: fmt.Sprintf("Unexpected character '%c'.", ch), Pos: pos}
}

// skipWhitespaceAndComments skips whitespace and // line comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for !l.eof {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r':
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for !l.eof && l.ch != '\n' {
				l.readChar()
			}
		default:
			return
		}
	}
}

// readString reads a double-quoted string literal. There are no escape
// sequences and the literal may span lines.
func (l *Lexer) readString(pos Position) Token {
	start := l.pos
	l.readChar() // consume opening "

	for !l.eof && l.ch != '"' {
		l.readChar()
	}

	if l.eof {
		return Token{Type: TokenError, Lexeme: "Unterminated string.", Pos: pos}
	}
	l.readChar() // consume closing "

	lexeme := l.input[start:l.pos]
	return Token{Type: TokenString, Lexeme: lexeme, Literal: lexeme[1 : len(lexeme)-1], Pos: pos}
}

// readNumber reads a number literal: digits with an optional fractional part
// that must have digits on both sides of the point.
func (l *Lexer) readNumber(pos Position) Token {
	start := l.pos

	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // consume .
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	lexeme := l.input[start:l.pos]
	value, err := strconv.ParseFloat(lexeme, 64)
	if err != nil {
		return Token{Type: TokenError, Lexeme: fmt.Sprintf("Invalid number '%s'.", lexeme), Pos: pos}
	}
	return Token{Type: TokenNumber, Lexeme: lexeme, Literal: value, Pos: pos}
}

// readIdentifierOrKeyword reads an identifier or reserved word.
func (l *Lexer) readIdentifierOrKeyword(pos Position) Token {
	start := l.pos

	for !l.eof && (isLetter(l.ch) || isDigit(l.ch) || l.ch == '_') {
		l.readChar()
	}

	lexeme := l.input[start:l.pos]
	if tokType, ok := reservedWords[lexeme]; ok {
		return Token{Type: tokType, Lexeme: lexeme, Pos: pos}
	}
	return Token{Type: TokenIdentifier, Lexeme: lexeme, Pos: pos}
}

// ScanTokens scans the whole input. Every lexical error is reported and
// skipped, so one pass surfaces all of them. The result always ends with
// a TokenEOF.
func (l *Lexer) ScanTokens(r Reporter) []Token {
	var tokens []Token
	for {
		tok := l.NextToken()
		if tok.Type == TokenError {
			if r != nil {
				r.Report(Diagnostic{Stage: StageLex, Pos: tok.Pos, Message: tok.Lexeme})
			}
			continue
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens
		}
	}
}

// Helper functions

func isLetter(r rune) bool {
	return unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// Tokenize returns all tokens from the input along with any lexical errors.
func Tokenize(input string) ([]Token, Diagnostics) {
	var diags Diagnostics
	tokens := NewLexer(input).ScanTokens(&diags)
	return tokens, diags
}
