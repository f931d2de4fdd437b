package compiler

import (
	"strconv"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for Lox
// ---------------------------------------------------------------------------

// DefaultMaxDepth bounds statement and expression nesting in both the
// parser and the code generator.
const DefaultMaxDepth = 1024

// maxArgs is the largest parameter or argument count a call may carry.
const maxArgs = 255

// Parser parses Lox source code into an AST. After an error the parser
// skips to the next statement boundary and keeps going, so one pass can
// report several faults.
type Parser struct {
	lexer     *Lexer
	curToken  Token
	prevToken Token
	errors    ParseErrors
	panicMode bool // suppresses cascaded errors until synchronize
	consumed  int  // tokens consumed so far
	depth     int
	maxDepth  int
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{
		lexer:    NewLexer(input),
		maxDepth: DefaultMaxDepth,
	}
	p.nextToken()
	return p
}

// SetMaxDepth changes the nesting limit. Values below one are ignored.
func (p *Parser) SetMaxDepth(n int) {
	if n > 0 {
		p.maxDepth = n
	}
}

// Parse parses a whole program. The returned error is a ParseErrors when
// any scanning or parsing fault occurred.
func Parse(source string) (*Program, error) {
	prog, errs := NewParser(source).ParseProgram()
	if len(errs) > 0 {
		return prog, errs
	}
	return prog, nil
}

// nextToken advances to the next token. Scanner errors are recorded as
// they are skipped so the grammar never sees them.
func (p *Parser) nextToken() {
	p.prevToken = p.curToken
	p.consumed++
	for {
		p.curToken = p.lexer.NextToken()
		if p.curToken.Type != TokenError {
			return
		}
		p.errors = append(p.errors, &ParseError{Line: p.curToken.Line, Msg: p.curToken.Lexeme, Scan: true})
	}
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// match consumes the current token if it is one of types.
func (p *Parser) match(types ...TokenType) bool {
	for _, t := range types {
		if p.curTokenIs(t) {
			p.nextToken()
			return true
		}
	}
	return false
}

// expect consumes a token of type t or records msg at the current token.
func (p *Parser) expect(t TokenType, msg string) Token {
	if p.curTokenIs(t) {
		p.nextToken()
		return p.prevToken
	}
	p.errorAt(p.curToken, msg)
	return p.curToken
}

func (p *Parser) errorAt(tok Token, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.errors = append(p.errors, &ParseError{Line: tok.Line, Lexeme: tok.Lexeme, Msg: msg})
}

// Errors returns accumulated parse errors.
func (p *Parser) Errors() ParseErrors {
	return p.errors
}

// synchronize discards tokens until a likely statement boundary.
func (p *Parser) synchronize() {
	p.panicMode = false
	for !p.curTokenIs(TokenEOF) {
		if p.prevToken.Type == TokenSemicolon {
			return
		}
		switch p.curToken.Type {
		case TokenClass, TokenFun, TokenVar, TokenFor, TokenIf, TokenWhile, TokenPrint, TokenReturn:
			return
		}
		p.nextToken()
	}
}

// enter records one more level of nesting and reports whether the limit
// still holds. Every enter must be paired with leave.
func (p *Parser) enter() bool {
	p.depth++
	if p.depth > p.maxDepth {
		p.errorAt(p.curToken, "nesting too deep")
		return false
	}
	return true
}

func (p *Parser) leave() {
	p.depth--
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseProgram parses declarations until end of input. Statements that
// failed to parse are left out of the program.
func (p *Parser) ParseProgram() (*Program, ParseErrors) {
	prog := &Program{}
	for !p.curTokenIs(TokenEOF) {
		if stmt := p.declaration(); stmt != nil {
			prog.Stmts = append(prog.Stmts, stmt)
		}
	}
	prog.EOF = p.curToken
	return prog, p.errors
}

// ParseExpression parses a single expression that must span the whole
// input.
func (p *Parser) ParseExpression() (Expr, ParseErrors) {
	expr := p.expression()
	if !p.curTokenIs(TokenEOF) {
		p.errorAt(p.curToken, "expect end of expression")
	}
	return expr, p.errors
}

// ---------------------------------------------------------------------------
// Declarations and statements
// ---------------------------------------------------------------------------

func (p *Parser) declaration() Stmt {
	start := p.consumed
	var stmt Stmt
	switch {
	case p.match(TokenFun):
		stmt = p.parseFunction()
	case p.match(TokenVar):
		stmt = p.parseVar()
	default:
		stmt = p.statement()
	}
	if p.panicMode {
		// Always make progress, or a stray keyword would stall the loop.
		if p.consumed == start && !p.curTokenIs(TokenEOF) {
			p.nextToken()
		}
		p.synchronize()
		return nil
	}
	return stmt
}

func (p *Parser) parseFunction() Stmt {
	name := p.expect(TokenIdentifier, "expect function name")
	p.expect(TokenLParen, "expect '(' after function name")

	var params []Token
	if !p.curTokenIs(TokenRParen) {
		for {
			if len(params) >= maxArgs {
				p.errorAt(p.curToken, "can't have more than 255 parameters")
			}
			params = append(params, p.expect(TokenIdentifier, "expect parameter name"))
			if !p.match(TokenComma) {
				break
			}
		}
	}
	p.expect(TokenRParen, "expect ')' after parameters")
	p.expect(TokenLBrace, "expect '{' before function body")
	return &FunStmt{Name: name, Params: params, Body: p.parseBlock()}
}

func (p *Parser) parseVar() Stmt {
	stmt := &VarStmt{Name: p.expect(TokenIdentifier, "expect variable name")}
	if p.match(TokenEqual) {
		stmt.Initializer = p.expression()
	}
	p.expect(TokenSemicolon, "expect ';' after variable declaration")
	return stmt
}

func (p *Parser) statement() Stmt {
	if !p.enter() {
		p.leave()
		return nil
	}
	defer p.leave()

	switch {
	case p.match(TokenPrint):
		keyword := p.prevToken
		expr := p.expression()
		p.expect(TokenSemicolon, "expect ';' after value")
		return &PrintStmt{Keyword: keyword, Expr: expr}
	case p.match(TokenLBrace):
		return p.parseBlock()
	case p.match(TokenIf):
		return p.parseIf()
	case p.match(TokenWhile):
		return p.parseWhile()
	case p.match(TokenFor):
		return p.parseFor()
	case p.match(TokenReturn):
		return p.parseReturn()
	}
	return p.expressionStatement()
}

func (p *Parser) expressionStatement() *ExprStmt {
	expr := p.expression()
	semi := p.expect(TokenSemicolon, "expect ';' after expression")
	return &ExprStmt{Expr: expr, Semicolon: semi}
}

// parseBlock parses declarations up to the closing brace. The opening brace
// has been consumed.
func (p *Parser) parseBlock() *Block {
	block := &Block{Brace: p.prevToken}
	for !p.curTokenIs(TokenRBrace) && !p.curTokenIs(TokenEOF) {
		if stmt := p.declaration(); stmt != nil {
			block.Stmts = append(block.Stmts, stmt)
		}
	}
	p.expect(TokenRBrace, "expect '}' after block")
	return block
}

func (p *Parser) parseIf() Stmt {
	stmt := &IfStmt{Keyword: p.prevToken}
	p.expect(TokenLParen, "expect '(' after 'if'")
	stmt.Cond = p.expression()
	p.expect(TokenRParen, "expect ')' after if condition")
	stmt.Then = p.statement()
	if p.match(TokenElse) {
		stmt.Else = p.statement()
	}
	return stmt
}

func (p *Parser) parseWhile() Stmt {
	stmt := &WhileStmt{Keyword: p.prevToken}
	p.expect(TokenLParen, "expect '(' after 'while'")
	stmt.Cond = p.expression()
	p.expect(TokenRParen, "expect ')' after condition")
	stmt.Body = p.statement()
	return stmt
}

// parseFor desugars for (init; cond; incr) body into
// { init; while (cond) { body; incr; } }.
func (p *Parser) parseFor() Stmt {
	keyword := p.prevToken
	p.expect(TokenLParen, "expect '(' after 'for'")

	var init Stmt
	switch {
	case p.match(TokenSemicolon):
	case p.match(TokenVar):
		init = p.parseVar()
	default:
		init = p.expressionStatement()
	}

	var cond Expr
	if !p.curTokenIs(TokenSemicolon) {
		cond = p.expression()
	}
	p.expect(TokenSemicolon, "expect ';' after loop condition")

	var incr Expr
	if !p.curTokenIs(TokenRParen) {
		incr = p.expression()
	}
	closing := p.expect(TokenRParen, "expect ')' after for clauses")

	body := p.statement()
	if incr != nil {
		body = &Block{Brace: closing, Stmts: []Stmt{body, &ExprStmt{Expr: incr, Semicolon: closing}}}
	}
	if cond == nil {
		cond = &BoolLiteral{Token: Token{Type: TokenTrue, Lexeme: "true", Line: keyword.Line}, Value: true}
	}
	var loop Stmt = &WhileStmt{Keyword: keyword, Cond: cond, Body: body}
	if init != nil {
		loop = &Block{Brace: keyword, Stmts: []Stmt{init, loop}}
	}
	return loop
}

func (p *Parser) parseReturn() Stmt {
	stmt := &ReturnStmt{Keyword: p.prevToken}
	if !p.curTokenIs(TokenSemicolon) {
		stmt.Value = p.expression()
	}
	p.expect(TokenSemicolon, "expect ';' after return value")
	return stmt
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (p *Parser) expression() Expr {
	if !p.enter() {
		p.leave()
		return &NilLiteral{Token: p.curToken}
	}
	defer p.leave()
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() Expr {
	expr := p.parseOr()
	if p.match(TokenEqual) {
		equals := p.prevToken
		value := p.parseAssignment()
		if v, ok := expr.(*Variable); ok {
			return &Assign{Name: v.Name, Value: value}
		}
		p.errorAt(equals, "invalid assignment target")
	}
	return expr
}

func (p *Parser) parseOr() Expr {
	expr := p.parseAnd()
	for p.match(TokenOr) {
		op := p.prevToken
		expr = &Logical{Left: expr, Op: op, Right: p.parseAnd()}
	}
	return expr
}

func (p *Parser) parseAnd() Expr {
	expr := p.parseEquality()
	for p.match(TokenAnd) {
		op := p.prevToken
		expr = &Logical{Left: expr, Op: op, Right: p.parseEquality()}
	}
	return expr
}

// parseBinaryLevel parses left-associative operators of one precedence
// level over operands produced by next.
func (p *Parser) parseBinaryLevel(next func() Expr, ops ...TokenType) Expr {
	expr := next()
	for p.match(ops...) {
		op := p.prevToken
		expr = &Binary{Left: expr, Op: op, Right: next()}
	}
	return expr
}

func (p *Parser) parseEquality() Expr {
	return p.parseBinaryLevel(p.parseComparison, TokenBangEqual, TokenEqualEqual)
}

func (p *Parser) parseComparison() Expr {
	return p.parseBinaryLevel(p.parseTerm, TokenGreater, TokenGreaterEqual, TokenLess, TokenLessEqual)
}

func (p *Parser) parseTerm() Expr {
	return p.parseBinaryLevel(p.parseFactor, TokenMinus, TokenPlus)
}

func (p *Parser) parseFactor() Expr {
	return p.parseBinaryLevel(p.parseUnary, TokenSlash, TokenStar)
}

func (p *Parser) parseUnary() Expr {
	if p.match(TokenBang, TokenMinus) {
		op := p.prevToken
		if !p.enter() {
			p.leave()
			return &NilLiteral{Token: p.curToken}
		}
		defer p.leave()
		return &Unary{Op: op, Operand: p.parseUnary()}
	}
	return p.parseCall()
}

func (p *Parser) parseCall() Expr {
	expr := p.parsePrimary()
	for p.match(TokenLParen) {
		var args []Expr
		if !p.curTokenIs(TokenRParen) {
			for {
				if len(args) >= maxArgs {
					p.errorAt(p.curToken, "can't have more than 255 arguments")
				}
				args = append(args, p.expression())
				if !p.match(TokenComma) {
					break
				}
			}
		}
		paren := p.expect(TokenRParen, "expect ')' after arguments")
		expr = &Call{Callee: expr, Paren: paren, Args: args}
	}
	return expr
}

func (p *Parser) parsePrimary() Expr {
	tok := p.curToken
	switch tok.Type {
	case TokenFalse, TokenTrue:
		p.nextToken()
		return &BoolLiteral{Token: tok, Value: tok.Type == TokenTrue}
	case TokenNil:
		p.nextToken()
		return &NilLiteral{Token: tok}
	case TokenNumber:
		p.nextToken()
		n, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			p.errorAt(tok, "invalid number literal")
		}
		return &NumberLiteral{Token: tok, Value: n}
	case TokenString:
		p.nextToken()
		return &StringLiteral{Token: tok, Value: tok.Lexeme[1 : len(tok.Lexeme)-1]}
	case TokenIdentifier:
		p.nextToken()
		return &Variable{Name: tok}
	case TokenLParen:
		p.nextToken()
		inner := p.expression()
		closing := p.expect(TokenRParen, "expect ')' after expression")
		return &Grouping{Paren: tok, Inner: inner, Close: closing}
	}

	// Placeholder keeps the tree free of nil nodes; the error marks the
	// unit as failed.
	p.errorAt(tok, "expect expression")
	return &NilLiteral{Token: tok}
}
