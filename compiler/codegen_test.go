package compiler

import (
	"errors"
	"strings"
	"testing"

	"github.com/nimaipatel/rlox-bytecode/pkg/bytecode"
	"github.com/nimaipatel/rlox-bytecode/vm"
)

// compileSource parses src as a program and compiles it into a new chunk.
func compileSource(t *testing.T, src string) (*bytecode.Chunk, error) {
	t.Helper()
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	chunk := bytecode.NewChunk()
	return chunk, Compile(prog, chunk)
}

func opcodes(t *testing.T, chunk *bytecode.Chunk) []bytecode.Opcode {
	t.Helper()
	var ops []bytecode.Opcode
	for offset := 0; offset < len(chunk.Code); {
		op, err := bytecode.Decode(chunk.Code[offset])
		if err != nil {
			t.Fatalf("offset %d: %v", offset, err)
		}
		ops = append(ops, op)
		offset += op.Width()
	}
	return ops
}

func TestCompileOpcodeSequences(t *testing.T) {
	C, L := bytecode.OpConstant, bytecode.OpReturn
	tests := []struct {
		src  string
		want []bytecode.Opcode
	}{
		{"1;", []bytecode.Opcode{C, L}},
		{"true;", []bytecode.Opcode{bytecode.OpTrue, L}},
		{"false;", []bytecode.Opcode{bytecode.OpFalse, L}},
		{"nil;", []bytecode.Opcode{bytecode.OpNil, L}},
		{"-1;", []bytecode.Opcode{C, bytecode.OpNegate, L}},
		{"!nil;", []bytecode.Opcode{bytecode.OpNil, bytecode.OpNot, L}},
		{"(1);", []bytecode.Opcode{C, L}},
		{"1 + 2;", []bytecode.Opcode{C, C, bytecode.OpAdd, L}},
		{"1 - 2;", []bytecode.Opcode{C, C, bytecode.OpSubtract, L}},
		{"1 * 2;", []bytecode.Opcode{C, C, bytecode.OpMultiply, L}},
		{"1 / 2;", []bytecode.Opcode{C, C, bytecode.OpDivide, L}},
		{"1 == 2;", []bytecode.Opcode{C, C, bytecode.OpEqual, L}},
		{"1 != 2;", []bytecode.Opcode{C, C, bytecode.OpEqual, bytecode.OpNot, L}},
		{"1 > 2;", []bytecode.Opcode{C, C, bytecode.OpGreater, L}},
		{"1 >= 2;", []bytecode.Opcode{C, C, bytecode.OpLess, bytecode.OpNot, L}},
		{"1 < 2;", []bytecode.Opcode{C, C, bytecode.OpLess, L}},
		{"1 <= 2;", []bytecode.Opcode{C, C, bytecode.OpGreater, bytecode.OpNot, L}},
		{`"a" + "b";`, []bytecode.Opcode{C, C, bytecode.OpAdd, L}},
	}

	for _, tc := range tests {
		chunk, err := compileSource(t, tc.src)
		if err != nil {
			t.Errorf("%q: %v", tc.src, err)
			continue
		}
		got := opcodes(t, chunk)
		if len(got) != len(tc.want) {
			t.Errorf("%q: ops = %v, want %v", tc.src, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("%q: ops = %v, want %v", tc.src, got, tc.want)
				break
			}
		}
	}
}

func TestCompileLinesFollowTokens(t *testing.T) {
	chunk, err := compileSource(t, "1\n+\n2\n;")
	if err != nil {
		t.Fatal(err)
	}
	// OP_CONSTANT 0 | OP_CONSTANT 1 | OP_ADD | OP_RETURN
	want := map[int]int{0: 1, 2: 3, 4: 2, 5: 4}
	for offset, line := range want {
		if got := chunk.LineAt(offset); got != line {
			t.Errorf("LineAt(%d) = %d, want %d", offset, got, line)
		}
	}
}

func TestCompileBareExpressionReturnLine(t *testing.T) {
	expr, errs := NewParser("(1 +\n2\n)").ParseExpression()
	if len(errs) > 0 {
		t.Fatal(errs)
	}
	chunk := bytecode.NewChunk()
	if err := Compile(expr, chunk); err != nil {
		t.Fatal(err)
	}
	if got := chunk.LineAt(len(chunk.Code) - 1); got != 3 {
		t.Errorf("OP_RETURN line = %d, want 3", got)
	}
}

func TestCompileStringLiteral(t *testing.T) {
	chunk, err := compileSource(t, `"hi";`)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunk.Objects) != 1 || chunk.Objects[0].String() != "hi" {
		t.Fatalf("objects = %v", chunk.Objects)
	}
	if !chunk.Constants[0].IsObject() {
		t.Errorf("constant = %v, want object reference", chunk.Constants[0])
	}
}

func TestCompileExprNoReturn(t *testing.T) {
	expr, _ := NewParser("1 + 2").ParseExpression()
	chunk := bytecode.NewChunk()
	if err := CompileExpr(expr, chunk); err != nil {
		t.Fatal(err)
	}
	ops := opcodes(t, chunk)
	if ops[len(ops)-1] != bytecode.OpAdd {
		t.Errorf("last op = %v, want OP_ADD", ops[len(ops)-1])
	}
}

func TestCompileUnsupported(t *testing.T) {
	tests := []struct {
		src  string
		line int
	}{
		{"x;", 1},
		{"x = 1;", 1},
		{"true and false;", 1},
		{"f();", 1},
		{"print 1;", 1},
		{"var a;", 1},
		{"{ 1; }", 1},
		{"1;\n2;", 2},
		{"1 + \n(true or false);", 2},
	}

	for _, tc := range tests {
		_, err := compileSource(t, tc.src)
		var ce *CompileError
		if !errors.As(err, &ce) {
			t.Errorf("%q: err = %v, want CompileError", tc.src, err)
			continue
		}
		if ce.Kind != Unsupported || ce.Line != tc.line {
			t.Errorf("%q: %v kind %v, want Unsupported at line %d", tc.src, ce, ce.Kind, tc.line)
		}
	}
}

func TestCompileTooDeep(t *testing.T) {
	src := strings.Repeat("-", 40) + "1"
	expr, errs := NewParser(src).ParseExpression()
	if len(errs) > 0 {
		t.Fatal(errs)
	}
	c := NewCompiler(bytecode.NewChunk())
	c.SetMaxDepth(10)
	err := c.Compile(expr)
	var ce *CompileError
	if !errors.As(err, &ce) || ce.Kind != TooDeep {
		t.Errorf("err = %v, want TooDeep", err)
	}
}

func TestCompileLongChainIgnoresDepth(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"sum", strings.Repeat("1 + ", DefaultMaxDepth+76) + "1;", "1101"},
		{"mixed precedence", strings.Repeat("2 * 3 + ", DefaultMaxDepth) + "0;", "6144"},
		{"comparison", strings.Repeat("1 + ", DefaultMaxDepth+10) + "1 > 5;", "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunk, err := compileSource(t, tt.src)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			machine := vm.NewVM()
			got, err := machine.Run(chunk, false)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if s := machine.Format(got); s != tt.want {
				t.Errorf("result = %s, want %s", s, tt.want)
			}
		})
	}
}

func TestCompileChainRightOperandsCountDepth(t *testing.T) {
	// Each parenthesized right operand is one level deeper.
	src := strings.Repeat("1 + (", 12) + "1" + strings.Repeat(")", 12)
	expr, errs := NewParser(src).ParseExpression()
	if len(errs) > 0 {
		t.Fatal(errs)
	}
	c := NewCompiler(bytecode.NewChunk())
	c.SetMaxDepth(10)
	var ce *CompileError
	if err := c.Compile(expr); !errors.As(err, &ce) || ce.Kind != TooDeep {
		t.Errorf("err = %v, want TooDeep", err)
	}
}

func TestCompileLongConstants(t *testing.T) {
	chunk := bytecode.NewChunk()
	for i := 0; i < 300; i++ {
		expr, _ := NewParser("1").ParseExpression()
		if err := CompileExpr(expr, chunk); err != nil {
			t.Fatal(err)
		}
	}
	// 256 short loads of 2 bytes, then 44 long loads of 4 bytes.
	if want := 256*2 + 44*4; len(chunk.Code) != want {
		t.Errorf("code length = %d, want %d", len(chunk.Code), want)
	}
	if chunk.Code[512] != byte(bytecode.OpConstantLong) {
		t.Errorf("byte 512 = %d, want OP_CONSTANT_LONG", chunk.Code[512])
	}
}

func TestCompileAndRun(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"1 + 2 * 3;", "7"},
		{"(-1 + 2) * 3 - -4;", "7"},
		{"1 != 2;", "true"},
		{"2 >= 2;", "true"},
		{"3 <= 2;", "false"},
		{"!(5 - 4 > 3 * 2 == !nil);", "true"},
		{`"foo" + "bar";`, "foobar"},
		{`"ab" == "a" + "b";`, "true"},
	}

	for _, tc := range tests {
		chunk, err := compileSource(t, tc.src)
		if err != nil {
			t.Errorf("%q: %v", tc.src, err)
			continue
		}
		machine := vm.NewVM()
		got, err := machine.Run(chunk, false)
		if err != nil {
			t.Errorf("%q: run: %v", tc.src, err)
			continue
		}
		if s := machine.Format(got); s != tc.want {
			t.Errorf("%q = %s, want %s", tc.src, s, tc.want)
		}
	}
}
