package compiler

import (
	"errors"
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/nimaipatel/rlox-bytecode/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Codegen: Compile AST to bytecode
// ---------------------------------------------------------------------------

var log = commonlog.GetLogger("rlox.compiler")

// Compiler lowers expression trees into a Chunk. Code is appended; nothing
// already in the chunk is touched.
type Compiler struct {
	chunk    *bytecode.Chunk
	depth    int
	maxDepth int
}

// NewCompiler creates a compiler that appends to chunk.
func NewCompiler(chunk *bytecode.Chunk) *Compiler {
	return &Compiler{chunk: chunk, maxDepth: DefaultMaxDepth}
}

// SetMaxDepth changes the nesting limit. Values below one are ignored.
func (c *Compiler) SetMaxDepth(n int) {
	if n > 0 {
		c.maxDepth = n
	}
}

// Compile lowers node into chunk and terminates the unit with OP_RETURN.
func Compile(node Node, chunk *bytecode.Chunk) error {
	return NewCompiler(chunk).Compile(node)
}

// CompileExpr lowers expr into chunk without a trailing OP_RETURN.
func CompileExpr(expr Expr, chunk *bytecode.Chunk) error {
	return NewCompiler(chunk).CompileExpr(expr)
}

// Compile accepts an expression, an expression statement, or a program
// made of exactly one expression statement. The OP_RETURN carries the line
// of the unit's last token.
func (c *Compiler) Compile(node Node) error {
	expr, last, err := unitExpr(node)
	if err != nil {
		log.Debugf("compile: %s", err)
		return err
	}
	if err := c.CompileExpr(expr); err != nil {
		return err
	}
	c.chunk.WriteOp(bytecode.OpReturn, last)
	return nil
}

// CompileExpr lowers expr leaving exactly one value on the stack at run
// time.
func (c *Compiler) CompileExpr(expr Expr) error {
	c.depth = 0
	if err := c.expr(expr); err != nil {
		log.Debugf("compile: %s", err)
		return err
	}
	return nil
}

// unitExpr extracts the single expression of a compilation unit and the
// line of its last token.
func unitExpr(node Node) (Expr, int, error) {
	switch n := node.(type) {
	case Expr:
		return n, lastLine(n), nil
	case *ExprStmt:
		return n.Expr, n.Semicolon.Line, nil
	case *Program:
		if len(n.Stmts) == 1 {
			if s, ok := n.Stmts[0].(*ExprStmt); ok {
				return s.Expr, s.Semicolon.Line, nil
			}
			return nil, 0, unsupported(n.Stmts[0])
		}
		if len(n.Stmts) == 0 {
			return nil, 0, &CompileError{Kind: Unsupported, Line: n.EOF.Line, Msg: "empty program"}
		}
		return nil, 0, &CompileError{
			Kind: Unsupported,
			Line: n.Stmts[1].Line(),
			Msg:  fmt.Sprintf("program has %d statements, only one expression statement is supported", len(n.Stmts)),
		}
	}
	return nil, 0, unsupported(node)
}

// lastLine returns the line of the rightmost token of expr.
func lastLine(expr Expr) int {
	switch e := expr.(type) {
	case *Binary:
		return lastLine(e.Right)
	case *Logical:
		return lastLine(e.Right)
	case *Unary:
		return lastLine(e.Operand)
	case *Grouping:
		return e.Close.Line
	case *Assign:
		return lastLine(e.Value)
	}
	return expr.Line()
}

func unsupported(node Node) *CompileError {
	var what string
	switch node.(type) {
	case *Variable:
		what = "variables"
	case *Assign:
		what = "assignment"
	case *Logical:
		what = "logical operators"
	case *Call:
		what = "calls"
	case *PrintStmt:
		what = "print statements"
	case *VarStmt:
		what = "variable declarations"
	case *Block:
		what = "blocks"
	case *IfStmt:
		what = "if statements"
	case *WhileStmt:
		what = "loops"
	case *FunStmt:
		what = "functions"
	case *ReturnStmt:
		what = "return statements"
	default:
		what = fmt.Sprintf("%T", node)
	}
	return &CompileError{Kind: Unsupported, Line: node.Line(), Msg: what + " not supported"}
}

func (c *Compiler) expr(expr Expr) error {
	c.depth++
	defer func() { c.depth-- }()
	if c.depth > c.maxDepth {
		return &CompileError{Kind: TooDeep, Line: expr.Line(), Msg: "expression nests too deeply"}
	}

	switch e := expr.(type) {
	case *NumberLiteral:
		return c.constant(bytecode.Number(e.Value), e.Token.Line)

	case *StringLiteral:
		return c.constant(c.chunk.AddString([]byte(e.Value)), e.Token.Line)

	case *BoolLiteral:
		if e.Value {
			c.chunk.WriteOp(bytecode.OpTrue, e.Token.Line)
		} else {
			c.chunk.WriteOp(bytecode.OpFalse, e.Token.Line)
		}
		return nil

	case *NilLiteral:
		c.chunk.WriteOp(bytecode.OpNil, e.Token.Line)
		return nil

	case *Grouping:
		return c.expr(e.Inner)

	case *Unary:
		if err := c.expr(e.Operand); err != nil {
			return err
		}
		switch e.Op.Type {
		case TokenMinus:
			c.chunk.WriteOp(bytecode.OpNegate, e.Op.Line)
		case TokenBang:
			c.chunk.WriteOp(bytecode.OpNot, e.Op.Line)
		default:
			return &CompileError{Kind: Unsupported, Line: e.Op.Line, Msg: fmt.Sprintf("unary operator %q", e.Op.Lexeme)}
		}
		return nil

	case *Binary:
		return c.binary(e)
	}

	return unsupported(expr)
}

// binary emits left, right, then the operator. The parser builds
// same-precedence chains like 1 + 2 + 3 in a loop, so the left spine is
// walked with an explicit stack and only right operands add depth.
func (c *Compiler) binary(e *Binary) error {
	spine := []*Binary{e}
	for {
		left, ok := spine[len(spine)-1].Left.(*Binary)
		if !ok {
			break
		}
		spine = append(spine, left)
	}

	if err := c.expr(spine[len(spine)-1].Left); err != nil {
		return err
	}
	for i := len(spine) - 1; i >= 0; i-- {
		b := spine[i]
		if err := c.expr(b.Right); err != nil {
			return err
		}
		if err := c.operator(b.Op); err != nil {
			return err
		}
	}
	return nil
}

// operator emits the opcodes for a binary operator. Negated comparisons
// lower to the complementary opcode followed by OP_NOT.
func (c *Compiler) operator(op Token) error {
	line := op.Line
	switch op.Type {
	case TokenPlus:
		c.chunk.WriteOp(bytecode.OpAdd, line)
	case TokenMinus:
		c.chunk.WriteOp(bytecode.OpSubtract, line)
	case TokenStar:
		c.chunk.WriteOp(bytecode.OpMultiply, line)
	case TokenSlash:
		c.chunk.WriteOp(bytecode.OpDivide, line)
	case TokenEqualEqual:
		c.chunk.WriteOp(bytecode.OpEqual, line)
	case TokenBangEqual:
		c.chunk.WriteOp(bytecode.OpEqual, line)
		c.chunk.WriteOp(bytecode.OpNot, line)
	case TokenGreater:
		c.chunk.WriteOp(bytecode.OpGreater, line)
	case TokenGreaterEqual:
		c.chunk.WriteOp(bytecode.OpLess, line)
		c.chunk.WriteOp(bytecode.OpNot, line)
	case TokenLess:
		c.chunk.WriteOp(bytecode.OpLess, line)
	case TokenLessEqual:
		c.chunk.WriteOp(bytecode.OpGreater, line)
		c.chunk.WriteOp(bytecode.OpNot, line)
	default:
		return &CompileError{Kind: Unsupported, Line: line, Msg: fmt.Sprintf("binary operator %q", op.Lexeme)}
	}
	return nil
}

func (c *Compiler) constant(v bytecode.Value, line int) error {
	if _, err := c.chunk.EmitConstant(v, line); err != nil {
		if errors.Is(err, bytecode.ErrConstantPoolOverflow) {
			return &CompileError{Kind: ConstantPoolOverflow, Line: line, Msg: "too many constants in one chunk"}
		}
		return fmt.Errorf("emit constant: %w", err)
	}
	return nil
}
