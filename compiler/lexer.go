package compiler

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for Lox source
// ---------------------------------------------------------------------------

// Lexer tokenizes Lox source code. Input is treated as bytes; identifiers
// and numbers are ASCII, string contents may be any bytes.
type Lexer struct {
	input string
	start int // start of the current lexeme
	pos   int // next byte to read
	line  int // current line (1-based)
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input, line: 1}
}

// Scan tokenizes all of input. The result always ends with exactly one
// TokenEOF; scanning errors appear in the stream as TokenError tokens.
func Scan(input string) []Token {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens
		}
	}
}

func (l *Lexer) atEnd() bool {
	return l.pos >= len(l.input)
}

func (l *Lexer) advance() byte {
	ch := l.input[l.pos]
	l.pos++
	return ch
}

// peek returns the current byte without consuming it, 0 at end.
func (l *Lexer) peek() byte {
	if l.atEnd() {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) peekNext() byte {
	if l.pos+1 >= len(l.input) {
		return 0
	}
	return l.input[l.pos+1]
}

func (l *Lexer) match(expected byte) bool {
	if l.atEnd() || l.input[l.pos] != expected {
		return false
	}
	l.pos++
	return true
}

func (l *Lexer) make(t TokenType) Token {
	return Token{Type: t, Lexeme: l.input[l.start:l.pos], Line: l.line}
}

func (l *Lexer) errorf(line int, format string, args ...interface{}) Token {
	return Token{Type: TokenError, Lexeme: fmt.Sprintf(format, args...), Line: line}
}

// NextToken returns the next token. After TokenEOF it keeps returning
// TokenEOF.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()
	l.start = l.pos

	if l.atEnd() {
		return Token{Type: TokenEOF, Line: l.line}
	}

	ch := l.advance()
	switch {
	case isDigit(ch):
		return l.number()
	case isAlpha(ch):
		return l.identifier()
	}

	switch ch {
	case '(':
		return l.make(TokenLParen)
	case ')':
		return l.make(TokenRParen)
	case '{':
		return l.make(TokenLBrace)
	case '}':
		return l.make(TokenRBrace)
	case ',':
		return l.make(TokenComma)
	case '.':
		return l.make(TokenDot)
	case '-':
		return l.make(TokenMinus)
	case '+':
		return l.make(TokenPlus)
	case ';':
		return l.make(TokenSemicolon)
	case '*':
		return l.make(TokenStar)
	case '/':
		return l.make(TokenSlash)
	case '!':
		if l.match('=') {
			return l.make(TokenBangEqual)
		}
		return l.make(TokenBang)
	case '=':
		if l.match('=') {
			return l.make(TokenEqualEqual)
		}
		return l.make(TokenEqual)
	case '<':
		if l.match('=') {
			return l.make(TokenLessEqual)
		}
		return l.make(TokenLess)
	case '>':
		if l.match('=') {
			return l.make(TokenGreaterEqual)
		}
		return l.make(TokenGreater)
	case '"':
		return l.string()
	}

	return l.errorf(l.line, "unexpected character %q", ch)
}

// skipWhitespaceAndComments skips blanks, newlines and // comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for !l.atEnd() {
		switch l.peek() {
		case ' ', '\r', '\t':
			l.pos++
		case '\n':
			l.line++
			l.pos++
		case '/':
			if l.peekNext() != '/' {
				return
			}
			for !l.atEnd() && l.peek() != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

// string scans a string literal. Strings may span lines; the token carries
// the line on which the literal starts.
func (l *Lexer) string() Token {
	startLine := l.line
	for !l.atEnd() && l.peek() != '"' {
		if l.peek() == '\n' {
			l.line++
		}
		l.pos++
	}
	if l.atEnd() {
		return l.errorf(startLine, "unterminated string")
	}
	l.pos++ // closing quote
	return Token{Type: TokenString, Lexeme: l.input[l.start:l.pos], Line: startLine}
}

// number scans 123 or 123.45. A trailing dot is not part of the number.
func (l *Lexer) number() Token {
	for isDigit(l.peek()) {
		l.pos++
	}
	if l.peek() == '.' && isDigit(l.peekNext()) {
		l.pos++
		for isDigit(l.peek()) {
			l.pos++
		}
	}
	return l.make(TokenNumber)
}

func (l *Lexer) identifier() Token {
	for isAlpha(l.peek()) || isDigit(l.peek()) {
		l.pos++
	}
	return l.make(LookupIdent(l.input[l.start:l.pos]))
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isAlpha(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}
