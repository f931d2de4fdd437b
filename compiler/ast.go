package compiler

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for Lox
// ---------------------------------------------------------------------------

// Node is the interface implemented by all AST nodes.
type Node interface {
	// Line returns the source line of the token that introduced the node.
	Line() int
	node() // marker method
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// NumberLiteral represents a numeric literal.
type NumberLiteral struct {
	Token Token
	Value float64
}

func (n *NumberLiteral) Line() int { return n.Token.Line }
func (n *NumberLiteral) node()     {}
func (n *NumberLiteral) expr()     {}

// StringLiteral represents a string literal. Value excludes the quotes.
type StringLiteral struct {
	Token Token
	Value string
}

func (n *StringLiteral) Line() int { return n.Token.Line }
func (n *StringLiteral) node()     {}
func (n *StringLiteral) expr()     {}

// BoolLiteral represents true or false.
type BoolLiteral struct {
	Token Token
	Value bool
}

func (n *BoolLiteral) Line() int { return n.Token.Line }
func (n *BoolLiteral) node()     {}
func (n *BoolLiteral) expr()     {}

// NilLiteral represents nil.
type NilLiteral struct {
	Token Token
}

func (n *NilLiteral) Line() int { return n.Token.Line }
func (n *NilLiteral) node()     {}
func (n *NilLiteral) expr()     {}

// Unary represents a prefix operator: -x or !x.
type Unary struct {
	Op      Token
	Operand Expr
}

func (n *Unary) Line() int { return n.Op.Line }
func (n *Unary) node()     {}
func (n *Unary) expr()     {}

// Binary represents an infix arithmetic, comparison or equality operator.
type Binary struct {
	Left  Expr
	Op    Token
	Right Expr
}

func (n *Binary) Line() int { return n.Op.Line }
func (n *Binary) node()     {}
func (n *Binary) expr()     {}

// Logical represents `and` / `or`.
type Logical struct {
	Left  Expr
	Op    Token
	Right Expr
}

func (n *Logical) Line() int { return n.Op.Line }
func (n *Logical) node()     {}
func (n *Logical) expr()     {}

// Grouping represents a parenthesized expression.
type Grouping struct {
	Paren Token // opening paren
	Inner Expr
	Close Token
}

func (n *Grouping) Line() int { return n.Paren.Line }
func (n *Grouping) node()     {}
func (n *Grouping) expr()     {}

// Variable represents a variable reference.
type Variable struct {
	Name Token
}

func (n *Variable) Line() int { return n.Name.Line }
func (n *Variable) node()     {}
func (n *Variable) expr()     {}

// Assign represents name = value.
type Assign struct {
	Name  Token
	Value Expr
}

func (n *Assign) Line() int { return n.Name.Line }
func (n *Assign) node()     {}
func (n *Assign) expr()     {}

// Call represents callee(args...). Paren is the closing parenthesis.
type Call struct {
	Callee Expr
	Paren  Token
	Args   []Expr
}

func (n *Call) Line() int { return n.Paren.Line }
func (n *Call) node()     {}
func (n *Call) expr()     {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// ExprStmt is an expression followed by a semicolon.
type ExprStmt struct {
	Expr      Expr
	Semicolon Token
}

func (n *ExprStmt) Line() int { return n.Expr.Line() }
func (n *ExprStmt) node()     {}
func (n *ExprStmt) stmt()     {}

// PrintStmt represents print expr;.
type PrintStmt struct {
	Keyword Token
	Expr    Expr
}

func (n *PrintStmt) Line() int { return n.Keyword.Line }
func (n *PrintStmt) node()     {}
func (n *PrintStmt) stmt()     {}

// VarStmt represents var name (= init)?;.
type VarStmt struct {
	Name        Token
	Initializer Expr // nil when absent
}

func (n *VarStmt) Line() int { return n.Name.Line }
func (n *VarStmt) node()     {}
func (n *VarStmt) stmt()     {}

// Block represents { declarations }.
type Block struct {
	Brace Token
	Stmts []Stmt
}

func (n *Block) Line() int { return n.Brace.Line }
func (n *Block) node()     {}
func (n *Block) stmt()     {}

// IfStmt represents if (cond) then (else alt)?.
type IfStmt struct {
	Keyword Token
	Cond    Expr
	Then    Stmt
	Else    Stmt // nil when absent
}

func (n *IfStmt) Line() int { return n.Keyword.Line }
func (n *IfStmt) node()     {}
func (n *IfStmt) stmt()     {}

// WhileStmt represents while (cond) body. For loops are desugared into a
// WhileStmt wrapped in a Block.
type WhileStmt struct {
	Keyword Token
	Cond    Expr
	Body    Stmt
}

func (n *WhileStmt) Line() int { return n.Keyword.Line }
func (n *WhileStmt) node()     {}
func (n *WhileStmt) stmt()     {}

// FunStmt represents a function declaration.
type FunStmt struct {
	Name   Token
	Params []Token
	Body   *Block
}

func (n *FunStmt) Line() int { return n.Name.Line }
func (n *FunStmt) node()     {}
func (n *FunStmt) stmt()     {}

// ReturnStmt represents return value?;.
type ReturnStmt struct {
	Keyword Token
	Value   Expr // nil when absent
}

func (n *ReturnStmt) Line() int { return n.Keyword.Line }
func (n *ReturnStmt) node()     {}
func (n *ReturnStmt) stmt()     {}

// ---------------------------------------------------------------------------
// Program
// ---------------------------------------------------------------------------

// Program is a sequence of top-level declarations.
type Program struct {
	Stmts []Stmt
	EOF   Token // the terminating token, for the line of the final return
}

func (n *Program) Line() int {
	if len(n.Stmts) > 0 {
		return n.Stmts[0].Line()
	}
	return n.EOF.Line
}
func (n *Program) node() {}
